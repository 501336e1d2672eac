// Package sqlite provides a SQLite backed storage.Cache using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/lorebinders/internal/storage/sqlcache"
)

// Open opens the database at dsn, applies the schema and returns a cache
// scoped to workspace. If the first open fails because of WAL files left by
// a crashed process, the stale files are removed and the open is retried
// once.
func Open(dsn, workspace string) (*sqlcache.Cache, error) {
	db, err := openDB(dsn)
	if err == nil {
		return sqlcache.New(db, sqlcache.SQLite, workspace), nil
	}

	dbPath := dbPathFromDSN(dsn)
	if !isRecoverableWALError(err) || dbPath == "" || !isWALStale(dbPath) {
		return nil, err
	}
	removeStaleWAL(dbPath)

	db, retryErr := openDB(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("sqlite: failed after WAL recovery: %w (original: %v)", retryErr, err)
	}
	logrus.WithField("path", dbPath).Warn("sqlite: recovered from stale WAL files")
	return sqlcache.New(db, sqlcache.SQLite, workspace), nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection serialises writes instead
	// of surfacing SQLITE_BUSY to concurrent pipeline workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}
	return db, nil
}
