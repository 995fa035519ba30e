package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"airbnb-ingest/models"
)

// CSVWriter writes scraped result cards to a CSV file for quick inspection
// alongside the JSON results. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"room_id", "title", "name", "raw_price", "raw_rating", "badge", "image_url", "url", "scraped_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteCards appends the scraped cards to the CSV file.
func (c *CSVWriter) WriteCards(cards []*models.ScrapedCard) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, card := range cards {
		firstImage := ""
		if len(card.ImageURLs) > 0 {
			firstImage = card.ImageURLs[0]
		}
		row := []string{
			strconv.FormatInt(card.RoomID, 10),
			card.Title,
			card.Name,
			card.RawPrice,
			card.RawRating,
			card.Badge,
			firstImage,
			card.URL,
			card.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
