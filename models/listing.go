package models

import (
	"encoding/json"
	"time"
)

// Listing is one normalized rental record, keyed by RoomID, ready for storage.
// Optional numeric fields are pointers so missing values persist as SQL NULL.
type Listing struct {
	RoomID              int64
	Category            string
	Kind                string
	Name                string
	Title               string
	Type                string
	RatingValue         *float64
	RatingReviewCount   *int64
	PriceAmount         *float64
	PriceQualifier      string
	PriceCurrencySymbol string
	Latitude            *float64
	Longitude           *float64
	Badges              []string
	Images              []ListingImage
	PriceBreakdown      []PriceBreakdownLine
	RawPayload          json.RawMessage // original record, stored verbatim as JSONB
	SourceFile          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ListingImage is one photo of a listing. Order is the 1-based position the
// image held in the source array — entries dropped during normalization leave
// gaps rather than forcing a renumber, so the original display order survives.
type ListingImage struct {
	URL   string
	Order int
}

// PriceBreakdownLine is one line of a listing's price breakdown.
type PriceBreakdownLine struct {
	Description string
	Amount      *float64
	Currency    string
}

// FileLogEntry records one processing attempt for one input file. Entries are
// append-only; Status reflects whether the file itself loaded and parsed,
// independent of per-record outcomes.
type FileLogEntry struct {
	FilePath    string
	FileName    string
	FileSize    int64
	RecordCount int
	Status      string // "succeeded" or "failed"
	ErrorMsg    string
}

const (
	FileStatusSucceeded = "succeeded"
	FileStatusFailed    = "failed"
)

// BatchSummary accumulates the running totals of one ingest run.
type BatchSummary struct {
	FilesFound      int
	FilesProcessed  int
	FilesFailed     int
	RecordsSeen     int
	RecordsInserted int
	RecordsUpdated  int
	RecordsSkipped  int
	RecordsFailed   int
}

// DBSummary is the verifier's read-only snapshot of the database state.
type DBSummary struct {
	ListingCount   int64
	ImageCount     int64
	BreakdownCount int64
	LogEntryCount  int64
	SampleListings []*Listing
}

// SearchParams drives one scrape run: a date range, a map bounding box and the
// usual search filters. Mirrors the parameters the marketplace search accepts.
type SearchParams struct {
	CheckIn   string
	CheckOut  string
	NELat     float64
	NELong    float64
	SWLat     float64
	SWLong    float64
	ZoomValue int
	PriceMin  int
	PriceMax  int
	PlaceType string
	Amenities []int
	Currency  string
	Language  string
	ProxyURL  string
}

// ScrapedCard holds the raw fields pulled off one search result card before
// it is assembled into a listing record. Also written to CSV for inspection.
type ScrapedCard struct {
	RoomID    int64
	Title     string
	Name      string
	RawPrice  string
	RawRating string
	Badge     string
	ImageURLs []string
	URL       string
	ScrapedAt time.Time
}

// InsightReport holds the computed analytics over the stored listings.
type InsightReport struct {
	TotalListings      int
	PricedListings     int
	AveragePrice       float64
	MinPrice           float64
	MaxPrice           float64
	MostExpensive      *Listing
	TopRated           []*Listing
	ListingsByCategory map[string]int
}
