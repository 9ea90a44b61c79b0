package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/harmirror/internal/model"
)

// MirrorDB provides SQLite-based storage for mirror runs and extracted
// file records. It manages connection pooling and provides methods for
// CRUD operations.
//
// Design decision: We use a single database file for all mirrored sites
// rather than one per site root. Run history queries span sites, and a
// single file simplifies backup/restore.
type MirrorDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures MirrorDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a MirrorDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*MirrorDB, error) {
	dbPath := filepath.Join(dbDir, "harmirror.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple readers add nothing for
	// this workload.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	mdb := &MirrorDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := mdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return mdb, nil
}

// Close closes the database connection.
func (mdb *MirrorDB) Close() error {
	return mdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (mdb *MirrorDB) createTables() error {
	schema := `
	-- File records store individual extracted files
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		site_root TEXT NOT NULL,
		local_path TEXT,
		status TEXT NOT NULL,
		size INTEGER,
		hash TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, site_root)
	);

	CREATE INDEX IF NOT EXISTS idx_files_url ON files(url);
	CREATE INDEX IF NOT EXISTS idx_files_root ON files(site_root);
	CREATE INDEX IF NOT EXISTS idx_files_hash ON files(hash);

	-- Mirror runs store complete run reports as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		archive TEXT NOT NULL,
		site_root TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_archive ON runs(archive);
	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(site_root);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`

	_, err := mdb.db.ExecContext(context.Background(), schema)
	return err
}

// FileRecord represents a stored extracted-file result.
type FileRecord struct {
	ID        int64
	URL       string
	SiteRoot  string
	LocalPath string
	Status    string
	Size      int64
	Hash      string
	Timestamp time.Time
}

// InsertFileRecord inserts or updates a file record.
// Uses UPSERT to handle re-runs (same URL + site root): the latest run's
// status, size, and hash win, matching the on-disk overwrite semantics.
func (mdb *MirrorDB) InsertFileRecord(ctx context.Context, record *FileRecord) (int64, error) {
	query := `
	INSERT INTO files (url, site_root, local_path, status, size, hash)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, site_root) DO UPDATE SET
		local_path = excluded.local_path,
		status = excluded.status,
		size = excluded.size,
		hash = excluded.hash,
		timestamp = CURRENT_TIMESTAMP
	`

	result, err := mdb.db.ExecContext(ctx, query,
		record.URL,
		record.SiteRoot,
		record.LocalPath,
		record.Status,
		record.Size,
		record.Hash,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert file record: %w", err)
	}

	return result.LastInsertId()
}

// GetFileRecord retrieves a file record by URL and site root.
// Returns nil without error when no record exists.
func (mdb *MirrorDB) GetFileRecord(ctx context.Context, url, siteRoot string) (*FileRecord, error) {
	query := `
	SELECT id, url, site_root, local_path, status, size, hash, timestamp
	FROM files
	WHERE url = ? AND site_root = ?
	`

	var record FileRecord
	var timestamp string

	err := mdb.db.QueryRowContext(ctx, query, url, siteRoot).Scan(
		&record.ID,
		&record.URL,
		&record.SiteRoot,
		&record.LocalPath,
		&record.Status,
		&record.Size,
		&record.Hash,
		&timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}

	record.Timestamp = parseTimestamp(timestamp)
	return &record, nil
}

// SaveMirrorReport saves a complete run report as JSON and upserts every
// per-entry file record.
func (mdb *MirrorDB) SaveMirrorReport(ctx context.Context, report *model.MirrorReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := map[string]int{
		"written":         report.CountByStatus(model.StatusWritten),
		"skipped_image":   report.CountByStatus(model.StatusSkippedImage),
		"skipped_no_body": report.CountByStatus(model.StatusSkippedNoBody),
		"failed":          report.CountByStatus(model.StatusFailed),
	}
	summaryJSON, _ := json.Marshal(summary) //nolint:errcheck,errchkjson // summary is a simple map; Marshal won't fail

	query := `
	INSERT INTO runs (archive, site_root, report_json, summary)
	VALUES (?, ?, ?, ?)
	`

	if _, err = mdb.db.ExecContext(ctx, query,
		report.Archive,
		report.SiteRoot,
		string(reportJSON),
		string(summaryJSON),
	); err != nil {
		return fmt.Errorf("failed to save mirror report: %w", err)
	}

	for i := range report.Files {
		f := &report.Files[i]
		record := &FileRecord{
			URL:       f.URL,
			SiteRoot:  report.SiteRoot,
			LocalPath: f.LocalPath,
			Status:    f.Status.String(),
			Size:      f.Size,
			Hash:      f.Hash,
		}
		if _, err := mdb.InsertFileRecord(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// GetLatestReport retrieves the most recent run report for an archive.
// Returns nil without error when the archive was never mirrored.
func (mdb *MirrorDB) GetLatestReport(ctx context.Context, archive string) (*model.MirrorReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE archive = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := mdb.db.QueryRowContext(ctx, query, archive).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mirror report: %w", err)
	}

	var report model.MirrorReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListMirroredArchives returns every archive recorded in the run table.
func (mdb *MirrorDB) ListMirroredArchives(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT archive FROM runs
	ORDER BY archive
	`

	rows, err := mdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	defer rows.Close()

	var archives []string
	for rows.Next() {
		var archive string
		if err := rows.Scan(&archive); err != nil {
			return nil, fmt.Errorf("failed to scan archive: %w", err)
		}
		archives = append(archives, archive)
	}

	return archives, rows.Err()
}

// RunMetadata contains summary information about one mirror run.
// This is used for displaying run history without loading full reports.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Archive is the mirrored HAR file path.
	Archive string

	// SiteRoot is the directory the run mirrored into.
	SiteRoot string

	// Timestamp is when the run was performed.
	Timestamp time.Time

	// Summary contains entry counts keyed by outcome.
	Summary map[string]int
}

// GetRunHistory retrieves run metadata, newest first. When archive is
// empty, history for every archive is returned.
func (mdb *MirrorDB) GetRunHistory(ctx context.Context, archive string) ([]RunMetadata, error) {
	query := `
	SELECT id, archive, site_root, timestamp, summary
	FROM runs
	`
	args := make([]any, 0, 1)
	if archive != "" {
		query += " WHERE archive = ?"
		args = append(args, archive)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := mdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Archive, &meta.SiteRoot, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = make(map[string]int)
			}
		} else {
			meta.Summary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
