package main

import (
	"fmt"
	"os"

	"airbnb-ingest/config"
	"airbnb-ingest/ingest"
	"airbnb-ingest/scraper/airbnb"
	"airbnb-ingest/services"
	"airbnb-ingest/storage"
	"airbnb-ingest/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	mode := "ingest"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "ingest":
		runIngest(cfg, logger)
	case "scrape":
		runScrape(cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [ingest|scrape]\n", os.Args[0])
		os.Exit(2)
	}
}

// runIngest is the batch pipeline: ensure schema, process every JSON file in
// the results folder, then verify and report.
func runIngest(cfg *config.Config, logger *utils.Logger) {
	logger.Info("=== Airbnb JSON Ingest starting ===")
	logger.Info("Config — folder: %s | database: %s@%s:%s/%s",
		cfg.ResultsDir, cfg.PostgresUser, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)

	// Connection or migration failure is fatal — the schema is a
	// precondition for everything downstream.
	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to open PostgreSQL store: %v", err)
		logger.Error("Make sure the database is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	batch := ingest.NewBatch(store, services.NewNormalizer(logger), logger)
	summary := batch.Run(cfg.ResultsDir)

	dbSummary, err := store.Summarize(3)
	if err != nil {
		logger.Error("Post-run verification failed: %v", err)
		os.Exit(1)
	}

	logger.Info("Database state — listings: %d | images: %d | breakdown lines: %d | log entries: %d",
		dbSummary.ListingCount, dbSummary.ImageCount, dbSummary.BreakdownCount, dbSummary.LogEntryCount)
	for _, l := range dbSummary.SampleListings {
		logger.Info("  sample — room %d: %s", l.RoomID, l.Name)
	}

	listings, err := store.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch listings for insights: %v", err)
	} else {
		insightSvc := services.NewInsightService(logger)
		insightSvc.Print(insightSvc.Generate(listings))
	}

	fmt.Printf("  Done. %d/%d files processed, %d records upserted → PostgreSQL\n\n",
		summary.FilesProcessed, summary.FilesFound,
		summary.RecordsInserted+summary.RecordsUpdated)
}

// runScrape collects search results from the marketplace and drops them into
// the results folder as a JSON array, ready for a later ingest run.
func runScrape(cfg *config.Config, logger *utils.Logger) {
	logger.Info("=== Airbnb Search Scrape starting ===")
	logger.Info("Config — pages: %d | concurrency: %d | rate: %dms",
		cfg.PagesToScrape, cfg.MaxConcurrency, cfg.RateLimitMs)

	scraper := airbnb.New(cfg, logger)
	cards, err := scraper.Scrape(cfg.Search)
	if err != nil {
		logger.Error("Airbnb scrape failed: %v", err)
	}
	if len(cards) == 0 {
		logger.Error("No listings were scraped. Exiting.")
		os.Exit(1)
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	if err := csvWriter.WriteCards(cards); err != nil {
		logger.Error("CSV write failed: %v", err)
	} else {
		logger.Info("Card snapshot saved to %s", cfg.CSVOutputPath)
	}

	records := airbnb.BuildRecords(cards)
	path, err := airbnb.SaveResults(cfg.ResultsDir, records)
	if err != nil {
		logger.Error("Failed to write results file: %v", err)
		os.Exit(1)
	}

	logger.Info("Retrieved %d listings from search", len(records))
	fmt.Printf("  Done. Results → %s | run `airbnb-ingest ingest` to load them\n\n", path)
}
