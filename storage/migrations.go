package storage

import "fmt"

// migration is one idempotent, additive DDL step. Steps are applied in order
// exactly once and recorded in schema_migrations; columns are only ever
// added, never removed or retyped.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "base tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS airbnb_rooms (
				id SERIAL PRIMARY KEY,
				room_id BIGINT UNIQUE NOT NULL,
				category VARCHAR(100),
				kind VARCHAR(50),
				name TEXT,
				title TEXT,
				type VARCHAR(50),
				rating_value DECIMAL(3,2),
				rating_review_count INTEGER,
				price_amount DECIMAL(10,2),
				price_qualifier VARCHAR(100),
				price_currency_symbol VARCHAR(10),
				latitude DECIMAL(11,8),
				longitude DECIMAL(11,8),
				badges TEXT[],
				raw_data JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE TABLE IF NOT EXISTS room_images (
				id SERIAL PRIMARY KEY,
				room_id BIGINT REFERENCES airbnb_rooms(room_id),
				image_url TEXT NOT NULL,
				image_order INTEGER,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE TABLE IF NOT EXISTS price_breakdown (
				id SERIAL PRIMARY KEY,
				room_id BIGINT REFERENCES airbnb_rooms(room_id),
				description TEXT,
				amount DECIMAL(10,2),
				currency VARCHAR(10),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE TABLE IF NOT EXISTS file_processing_log (
				id SERIAL PRIMARY KEY,
				file_path TEXT NOT NULL,
				file_name TEXT NOT NULL,
				file_size BIGINT,
				records_count INTEGER,
				processing_status VARCHAR(20),
				error_message TEXT,
				processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_room_images_room_id ON room_images(room_id)`,
			`CREATE INDEX IF NOT EXISTS idx_price_breakdown_room_id ON price_breakdown(room_id)`,
		},
	},
	{
		version: 2,
		name:    "room provenance columns",
		stmts: []string{
			`ALTER TABLE airbnb_rooms ADD COLUMN IF NOT EXISTS source_file TEXT`,
			`ALTER TABLE airbnb_rooms ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
		},
	},
}

// migrate brings the schema up to the latest version. Any failure here is
// fatal to the run — the schema is a precondition for everything else.
func (ps *PostgresStore) migrate() error {
	if _, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("postgres: create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := ps.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("postgres: read schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("postgres: scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := ps.applyMigration(m); err != nil {
			return err
		}
		ps.logger.Info("[postgres] Applied migration %d (%s)", m.version, m.name)
	}
	return nil
}

func (ps *PostgresStore) applyMigration(m migration) error {
	tx, err := ps.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin migration %d: %w", m.version, err)
	}
	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres: migration %d (%s): %w", m.version, m.name, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		m.version, m.name,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("postgres: record migration %d: %w", m.version, err)
	}
	return tx.Commit()
}
