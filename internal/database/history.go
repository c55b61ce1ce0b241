package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/spider/internal/model"
)

// DBFileName is the history database file name inside the database directory.
const DBFileName = "history.db"

// ErrNilSummary is returned when SaveCrawl is called without a summary.
var ErrNilSummary = errors.New("nil crawl summary")

// HistoryDB stores finished crawls and their download outcomes.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	// The history subcommand opens without it so that listing never
	// creates an empty database.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, os.ErrNotExist)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return h, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		origin TEXT NOT NULL,
		recursive INTEGER NOT NULL DEFAULT 0,
		max_depth INTEGER NOT NULL DEFAULT 0,
		output_dir TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT,
		origin_status INTEGER NOT NULL DEFAULT 0,
		pages_visited INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		images_found INTEGER NOT NULL DEFAULT 0,
		images_saved INTEGER NOT NULL DEFAULT 0,
		images_failed INTEGER NOT NULL DEFAULT 0,
		timed_out INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_origin ON crawls(origin);
	CREATE INDEX IF NOT EXISTS idx_crawls_started ON crawls(started_at);

	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		image_url TEXT NOT NULL,
		page_url TEXT,
		path TEXT,
		success INTEGER NOT NULL DEFAULT 0,
		status_code INTEGER NOT NULL DEFAULT 0,
		bytes INTEGER NOT NULL DEFAULT 0,
		reason TEXT,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_crawl ON downloads(crawl_id);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawl stores a finished crawl and all of its download outcomes in one
// transaction. The new row ID is returned and also written to s.ID.
func (h *HistoryDB) SaveCrawl(ctx context.Context, s *model.CrawlSummary) (id int64, err error) {
	if s == nil {
		return 0, ErrNilSummary
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO crawls (origin, recursive, max_depth, output_dir, started_at, finished_at,
		origin_status, pages_visited, pages_failed, images_found, images_saved, images_failed,
		timed_out, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Origin,
		s.Recursive,
		s.MaxDepth,
		s.OutputDir,
		formatTimestamp(s.StartedAt),
		formatTimestamp(s.FinishedAt),
		s.OriginStatus,
		s.PagesVisited,
		s.PagesFailed,
		s.ImagesFound,
		s.ImagesSaved,
		s.ImagesFailed,
		s.TimedOut,
		s.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read crawl id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO downloads (crawl_id, image_url, page_url, path, success, status_code, bytes, reason, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare download insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range s.Downloads {
		var metadata sql.NullString
		if d.Metadata != nil {
			b, err := json.Marshal(d.Metadata)
			if err != nil {
				return 0, fmt.Errorf("failed to serialize metadata: %w", err)
			}
			metadata = sql.NullString{String: string(b), Valid: true}
		}

		reason := d.Reason
		if reason == "" && d.Err != nil {
			reason = d.Err.Error()
		}

		if _, err := stmt.ExecContext(ctx,
			id,
			d.ImageURL,
			d.PageURL,
			d.Path,
			d.Success,
			d.StatusCode,
			d.Bytes,
			reason,
			metadata,
		); err != nil {
			return 0, fmt.Errorf("failed to insert download: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}

	s.ID = id
	return id, nil
}

const crawlColumns = `id, origin, recursive, max_depth, output_dir, started_at, finished_at,
	origin_status, pages_visited, pages_failed, images_found, images_saved, images_failed,
	timed_out, error`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawl(row rowScanner) (*model.CrawlSummary, error) {
	var (
		s          model.CrawlSummary
		startedAt  sql.NullString
		finishedAt sql.NullString
		errText    sql.NullString
	)

	if err := row.Scan(
		&s.ID,
		&s.Origin,
		&s.Recursive,
		&s.MaxDepth,
		&s.OutputDir,
		&startedAt,
		&finishedAt,
		&s.OriginStatus,
		&s.PagesVisited,
		&s.PagesFailed,
		&s.ImagesFound,
		&s.ImagesSaved,
		&s.ImagesFailed,
		&s.TimedOut,
		&errText,
	); err != nil {
		return nil, err
	}

	if startedAt.Valid {
		s.StartedAt = parseTimestamp(startedAt.String)
	}
	if finishedAt.Valid {
		s.FinishedAt = parseTimestamp(finishedAt.String)
	}
	s.Error = errText.String

	return &s, nil
}

// ListCrawls returns stored crawls, newest first, without their downloads.
// An empty origin lists every crawl; limit <= 0 means no limit.
func (h *HistoryDB) ListCrawls(ctx context.Context, origin string, limit int) ([]*model.CrawlSummary, error) {
	query := `SELECT ` + crawlColumns + ` FROM crawls WHERE 1=1`
	args := make([]any, 0)

	if origin != "" {
		query += " AND origin = ?"
		args = append(args, origin)
	}

	query += " ORDER BY started_at DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	results := make([]*model.CrawlSummary, 0)
	for rows.Next() {
		s, err := scanCrawl(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetCrawl retrieves one crawl with its downloads.
// It returns nil without error when no crawl has the given ID.
func (h *HistoryDB) GetCrawl(ctx context.Context, id int64) (*model.CrawlSummary, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+crawlColumns+` FROM crawls WHERE id = ?`, id)

	s, err := scanCrawl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}

	downloads, err := h.GetDownloads(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Downloads = downloads

	return s, nil
}

// GetDownloads returns the download outcomes of a crawl in insertion order.
func (h *HistoryDB) GetDownloads(ctx context.Context, crawlID int64) ([]model.DownloadOutcome, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT image_url, page_url, path, success, status_code, bytes, reason, metadata
	FROM downloads
	WHERE crawl_id = ?
	ORDER BY id
	`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get downloads: %w", err)
	}
	defer rows.Close()

	results := make([]model.DownloadOutcome, 0)
	for rows.Next() {
		var (
			d        model.DownloadOutcome
			pageURL  sql.NullString
			path     sql.NullString
			reason   sql.NullString
			metadata sql.NullString
		)

		if err := rows.Scan(
			&d.ImageURL,
			&pageURL,
			&path,
			&d.Success,
			&d.StatusCode,
			&d.Bytes,
			&reason,
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}

		d.PageURL = pageURL.String
		d.Path = path.String
		d.Reason = reason.String

		if metadata.Valid && metadata.String != "" {
			var meta model.ImageMetadata
			if err := json.Unmarshal([]byte(metadata.String), &meta); err == nil {
				d.Metadata = &meta
			}
		}

		results = append(results, d)
	}

	return results, rows.Err()
}

// DeleteCrawl removes a crawl and its downloads. Deleting a missing ID is
// not an error.
func (h *HistoryDB) DeleteCrawl(ctx context.Context, id int64) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM crawls WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete crawl: %w", err)
	}
	return nil
}

// timestampLayout has a fixed-width fraction so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp renders t in UTC for storage. The zero time is stored as NULL.
func formatTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timestampLayout), Valid: true}
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // written by formatTimestamp
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
