package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// InitDB opens the state database. WAL allows concurrent readers during
// writes, the busy timeout waits on locks instead of failing.
func InitDB(ctx context.Context, path string) error {
	var err error
	dsn := "file:" + path + "?_journal_mode=WAL&_busy_timeout=15000&cache=shared&_foreign_keys=on"
	DB, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	DB.SetMaxOpenConns(8)
	DB.SetMaxIdleConns(4)
	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping state db: %w", err)
	}
	return CreateTables()
}

func CreateTables() error {
	if err := CreateRunTables(); err != nil {
		return err
	}
	return CreateAppliedTable()
}

func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}
