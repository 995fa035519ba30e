package ingest

import (
	"os"
	"path/filepath"

	"airbnb-ingest/models"
	"airbnb-ingest/services"
	"airbnb-ingest/storage"
	"airbnb-ingest/utils"
)

// Batch drives one end-to-end run over a folder of JSON result files:
// discover → load → normalize → upsert, one file at a time, one record at a
// time, with a processing-log row per file and running totals.
//
// Failure isolation is the core invariant: a broken file or record never
// stops the files and records after it.
type Batch struct {
	store  storage.ListingStore
	norm   *services.Normalizer
	logger *utils.Logger
}

// NewBatch creates a Batch writing through the given store.
func NewBatch(store storage.ListingStore, norm *services.Normalizer, logger *utils.Logger) *Batch {
	return &Batch{store: store, norm: norm, logger: logger}
}

// Run processes every discovered file under root and returns the totals.
func (b *Batch) Run(root string) *models.BatchSummary {
	summary := &models.BatchSummary{}

	files, err := Discover(root)
	if err != nil {
		b.logger.Error("[ingest] Discovery failed for %s: %v", root, err)
		return summary
	}
	summary.FilesFound = len(files)

	if len(files) == 0 {
		b.logger.Warn("[ingest] No JSON files found under %s", root)
		return summary
	}
	b.logger.Info("[ingest] Found %d JSON files under %s", len(files), root)

	for i, path := range files {
		b.logger.Info("[ingest] [%d/%d] Processing %s", i+1, len(files), filepath.Base(path))
		b.processFile(path, summary)
	}

	b.logger.Info("[ingest] Batch complete — files: %d ok / %d failed | records: %d seen, %d inserted, %d updated, %d skipped, %d failed",
		summary.FilesProcessed, summary.FilesFailed,
		summary.RecordsSeen, summary.RecordsInserted, summary.RecordsUpdated,
		summary.RecordsSkipped, summary.RecordsFailed)
	return summary
}

func (b *Batch) processFile(path string, summary *models.BatchSummary) {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	records, err := Load(path)
	if err != nil {
		// File-level failure: log it, count it, move on.
		b.logger.Error("[ingest] %v", err)
		summary.FilesFailed++
		b.logFile(models.FileLogEntry{
			FilePath: path,
			FileName: filepath.Base(path),
			FileSize: size,
			Status:   models.FileStatusFailed,
			ErrorMsg: err.Error(),
		})
		return
	}

	for _, raw := range records {
		summary.RecordsSeen++

		listing, ok := b.norm.Normalize(raw)
		if !ok {
			summary.RecordsSkipped++
			continue
		}
		listing.SourceFile = path

		outcome, err := b.store.UpsertListing(listing)
		switch outcome {
		case storage.OutcomeInserted:
			summary.RecordsInserted++
		case storage.OutcomeUpdated:
			summary.RecordsUpdated++
		default:
			summary.RecordsFailed++
			b.logger.Error("[ingest] Upsert failed for room %d: %v", listing.RoomID, err)
		}
	}

	// The file loaded and parsed, so it logs as succeeded even when
	// individual records were skipped or failed.
	summary.FilesProcessed++
	b.logFile(models.FileLogEntry{
		FilePath:    path,
		FileName:    filepath.Base(path),
		FileSize:    size,
		RecordCount: len(records),
		Status:      models.FileStatusSucceeded,
	})
}

// logFile writes the processing-log row. A logging failure is only worth a
// warning — it must not fail the file it describes.
func (b *Batch) logFile(entry models.FileLogEntry) {
	if err := b.store.LogFile(entry); err != nil {
		b.logger.Warn("[ingest] Could not write processing log for %s: %v", entry.FileName, err)
	}
}
