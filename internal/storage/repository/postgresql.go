// Package repository implements the PostgreSQL-backed persistence for the
// payment ledger: users, payments and dead-lettered vendor orders.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Register the pgx driver for use with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage encapsulates the database connection and implements the user,
// payment and dead-letter repositories consumed by the services.
type Storage struct {
	DB *sql.DB
}

// New opens a PostgreSQL connection and verifies it with a ping.
func New(storageConnectionString string) (*Storage, error) {
	const op = "repository.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady verifies the schema has been migrated.
func (s *Storage) CheckDatabaseReady(ctx context.Context) error {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'payments'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table payments missing or query error: %w", err)
	}
	return nil
}
