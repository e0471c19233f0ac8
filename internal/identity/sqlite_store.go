package identity

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore keeps identity records in the identity_records table.
// The table is created by the embedded migrations.
//
// Records are ordered by an autoincrement seq column, which keeps the
// first-free scan in Resolver stable across restarts. The identifier
// column is unique.
//
// Thread Safety: safe for concurrent use; database/sql pools access.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// List returns every record ordered by insertion.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, `SELECT name, identifier FROM identity_records ORDER BY seq`)
}

// ByName returns the records for name ordered by insertion.
func (s *SQLiteStore) ByName(ctx context.Context, name string) ([]Record, error) {
	return s.query(ctx,
		`SELECT name, identifier FROM identity_records WHERE name = ? ORDER BY seq`, name)
}

// Append inserts rec. The insert is an implicit transaction that SQLite
// commits, and with synchronous=FULL fsyncs, before the call returns.
// A duplicate identifier fails the unique constraint.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identity_records (name, identifier) VALUES (?, ?)`,
		rec.Name, rec.Identifier)
	if err != nil {
		return fmt.Errorf("inserting identity record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying identity records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.Identifier); err != nil {
			return nil, fmt.Errorf("scanning identity record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identity records: %w", err)
	}
	return records, nil
}
