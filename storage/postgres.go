package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"airbnb-ingest/models"
	"airbnb-ingest/utils"
)

// PostgresStore persists normalized listings and their children.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, verifies it with a
// bounded ping retry, runs schema migrations, and returns a ready store.
// Any failure here aborts the whole run.
func NewPostgresStore(dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, err
	}

	ps := &PostgresStore{db: db, logger: logger}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ps, nil
}

const upsertRoomQuery = `
	INSERT INTO airbnb_rooms (
		room_id, category, kind, name, title, type,
		rating_value, rating_review_count, price_amount,
		price_qualifier, price_currency_symbol, latitude, longitude,
		badges, raw_data, source_file, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
	ON CONFLICT (room_id) DO UPDATE SET
		category = EXCLUDED.category,
		kind = EXCLUDED.kind,
		name = EXCLUDED.name,
		title = EXCLUDED.title,
		type = EXCLUDED.type,
		rating_value = EXCLUDED.rating_value,
		rating_review_count = EXCLUDED.rating_review_count,
		price_amount = EXCLUDED.price_amount,
		price_qualifier = EXCLUDED.price_qualifier,
		price_currency_symbol = EXCLUDED.price_currency_symbol,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		badges = EXCLUDED.badges,
		raw_data = EXCLUDED.raw_data,
		source_file = EXCLUDED.source_file,
		updated_at = NOW()
	RETURNING (xmax = 0)`

// UpsertListing writes one listing and its child rows as a single
// transaction: upsert the flat row by room_id (full overwrite on conflict),
// delete every existing image and price-breakdown row for that room, insert
// the current sets, commit. On any error the transaction rolls back and the
// listing is left exactly as it was.
func (ps *PostgresStore) UpsertListing(l *models.Listing) (Outcome, error) {
	tx, err := ps.db.Begin()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("postgres: begin upsert: %w", err)
	}

	// xmax = 0 means the row version is brand new: an insert, not an update.
	var inserted bool
	err = tx.QueryRow(upsertRoomQuery,
		l.RoomID, nullStr(l.Category), nullStr(l.Kind), nullStr(l.Name),
		nullStr(l.Title), nullStr(l.Type),
		l.RatingValue, l.RatingReviewCount, l.PriceAmount,
		nullStr(l.PriceQualifier), nullStr(l.PriceCurrencySymbol),
		l.Latitude, l.Longitude,
		pq.Array(l.Badges), []byte(l.RawPayload), nullStr(l.SourceFile),
	).Scan(&inserted)
	if err != nil {
		_ = tx.Rollback()
		return OutcomeFailed, fmt.Errorf("postgres: upsert room %d: %w", l.RoomID, err)
	}

	for _, table := range []string{"room_images", "price_breakdown"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE room_id = $1", l.RoomID); err != nil {
			_ = tx.Rollback()
			return OutcomeFailed, fmt.Errorf("postgres: clear %s for room %d: %w", table, l.RoomID, err)
		}
	}

	for _, img := range l.Images {
		if _, err := tx.Exec(
			`INSERT INTO room_images (room_id, image_url, image_order) VALUES ($1, $2, $3)`,
			l.RoomID, img.URL, img.Order,
		); err != nil {
			_ = tx.Rollback()
			return OutcomeFailed, fmt.Errorf("postgres: insert image for room %d: %w", l.RoomID, err)
		}
	}

	for _, line := range l.PriceBreakdown {
		if _, err := tx.Exec(
			`INSERT INTO price_breakdown (room_id, description, amount, currency) VALUES ($1, $2, $3, $4)`,
			l.RoomID, nullStr(line.Description), line.Amount, nullStr(line.Currency),
		); err != nil {
			_ = tx.Rollback()
			return OutcomeFailed, fmt.Errorf("postgres: insert breakdown for room %d: %w", l.RoomID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return OutcomeFailed, fmt.Errorf("postgres: commit room %d: %w", l.RoomID, err)
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// LogFile appends one row to the file processing log. The log is append-only.
func (ps *PostgresStore) LogFile(entry models.FileLogEntry) error {
	_, err := ps.db.Exec(`
		INSERT INTO file_processing_log
			(file_path, file_name, file_size, records_count, processing_status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.FilePath, entry.FileName, entry.FileSize,
		entry.RecordCount, entry.Status, nullStr(entry.ErrorMsg),
	)
	if err != nil {
		return fmt.Errorf("postgres: log file %s: %w", entry.FileName, err)
	}
	return nil
}

// Summarize is the read-only post-run sanity check: row counts for the four
// tables plus a few sample listings. No mutation.
func (ps *PostgresStore) Summarize(sampleLimit int) (*models.DBSummary, error) {
	s := &models.DBSummary{}
	counts := []struct {
		table string
		dest  *int64
	}{
		{"airbnb_rooms", &s.ListingCount},
		{"room_images", &s.ImageCount},
		{"price_breakdown", &s.BreakdownCount},
		{"file_processing_log", &s.LogEntryCount},
	}
	for _, c := range counts {
		if err := ps.db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("postgres: count %s: %w", c.table, err)
		}
	}

	rows, err := ps.db.Query(`
		SELECT room_id, name, price_amount, latitude, longitude, created_at
		FROM airbnb_rooms ORDER BY room_id LIMIT $1`, sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("postgres: sample listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l := &models.Listing{}
		var name sql.NullString
		var price, lat, lng sql.NullFloat64
		if err := rows.Scan(&l.RoomID, &name, &price, &lat, &lng, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan sample: %w", err)
		}
		l.Name = name.String
		l.PriceAmount = nullableFloat(price)
		l.Latitude = nullableFloat(lat)
		l.Longitude = nullableFloat(lng)
		s.SampleListings = append(s.SampleListings, l)
	}
	return s, rows.Err()
}

// FetchAll retrieves the stored listings' analytic fields — used by the
// insight service after a batch run.
func (ps *PostgresStore) FetchAll() ([]*models.Listing, error) {
	rows, err := ps.db.Query(`
		SELECT room_id, category, name, title,
		       rating_value, rating_review_count, price_amount,
		       price_currency_symbol, latitude, longitude, created_at
		FROM airbnb_rooms
		ORDER BY room_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var category, name, title, symbol sql.NullString
		var rating, price, lat, lng sql.NullFloat64
		var reviews sql.NullInt64
		if err := rows.Scan(
			&l.RoomID, &category, &name, &title,
			&rating, &reviews, &price,
			&symbol, &lat, &lng, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		l.Category = category.String
		l.Name = name.String
		l.Title = title.String
		l.PriceCurrencySymbol = symbol.String
		l.RatingValue = nullableFloat(rating)
		l.PriceAmount = nullableFloat(price)
		l.Latitude = nullableFloat(lat)
		l.Longitude = nullableFloat(lng)
		if reviews.Valid {
			l.RatingReviewCount = &reviews.Int64
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// nullStr maps empty strings to SQL NULL.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
