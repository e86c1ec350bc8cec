package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/zapreport/internal/model"
)

// Supported history drivers.
const (
	// DriverSQLite stores history in a local SQLite file.
	DriverSQLite = "sqlite"
	// DriverPostgres stores history in a PostgreSQL database.
	DriverPostgres = "postgres"

	// FileName is the SQLite database file name inside the database directory.
	FileName = "zapreport.db"
)

var (
	// ErrRunNotFound is returned by GetRun when no run has the given ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrUnsupportedDriver is returned by Open for unknown drivers.
	ErrUnsupportedDriver = errors.New("unsupported history driver")
)

// HistoryDB stores one record per zapreport run.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// driver is DriverSQLite or DriverPostgres.
	driver string

	// location is the SQLite file path, or the PostgreSQL DSN.
	location string
}

// Options configures HistoryDB behavior.
type Options struct {
	// Driver selects the backend. Empty means DriverSQLite.
	Driver string

	// Dir is the directory of the SQLite database file.
	Dir string

	// DSN is the PostgreSQL connection string.
	DSN string

	// CreateIfNotExists creates the SQLite file and its directory if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for SQLite.
	EnableWAL bool
}

// DefaultOptions returns SQLite options for the given directory.
func DefaultOptions(dir string) Options {
	return Options{
		Driver:            DriverSQLite,
		Dir:               dir,
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database and creates the schema if needed.
func Open(ctx context.Context, opts Options) (*HistoryDB, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return openSQLite(ctx, opts)
	case DriverPostgres:
		return openPostgres(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}
}

func openSQLite(ctx context.Context, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(opts.Dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(opts.Dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return initialize(ctx, &HistoryDB{db: db, driver: DriverSQLite, location: dbPath})
}

func openPostgres(ctx context.Context, opts Options) (*HistoryDB, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, errors.New("postgres history requires a DSN")
	}

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return initialize(ctx, &HistoryDB{db: db, driver: DriverPostgres, location: opts.DSN})
}

func initialize(ctx context.Context, hdb *HistoryDB) (*HistoryDB, error) {
	if err := hdb.createTables(ctx); err != nil {
		_ = hdb.db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Driver returns the backend name.
func (hdb *HistoryDB) Driver() string {
	return hdb.driver
}

// Path returns the SQLite file path. It is empty for PostgreSQL.
func (hdb *HistoryDB) Path() string {
	if hdb.driver != DriverSQLite {
		return ""
	}
	return hdb.location
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if hdb.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
		` + idColumn + `,
		run_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		policy TEXT NOT NULL,
		targets TEXT NOT NULL,
		scanned INTEGER NOT NULL DEFAULT 0,
		failed_passes INTEGER NOT NULL DEFAULT 0,
		archive_path TEXT,
		archive_sha3 TEXT,
		notified BOOLEAN NOT NULL DEFAULT FALSE,
		error TEXT,
		run_json TEXT NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := hdb.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// RunRecord is the summary row of a stored run.
// It is used for listing history without decoding every run.
type RunRecord struct {
	// ID is the database identifier of the record.
	ID int64 `json:"id"`

	// RunID is the run identifier derived from its start time.
	RunID string `json:"run_id"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run finished.
	FinishedAt time.Time `json:"finished_at"`

	// Policy is the failure policy the run used.
	Policy string `json:"policy"`

	// Targets are the configured target URLs.
	Targets []string `json:"targets"`

	// Scanned is the number of targets whose pass sequence completed.
	Scanned int `json:"scanned"`

	// FailedPasses is the total number of failed passes.
	FailedPasses int `json:"failed_passes"`

	// ArchivePath is the archive file path, if one was created.
	ArchivePath string `json:"archive_path,omitempty"`

	// ArchiveSHA3 is the SHA3-256 digest of the archive.
	ArchiveSHA3 string `json:"archive_sha3,omitempty"`

	// Notified is true when the report email was sent.
	Notified bool `json:"notified"`

	// Error is the message of the error that terminated the run.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the run took, or 0 if it never finished.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SaveRun stores a run and returns its database ID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	if run == nil {
		return 0, errors.New("cannot save a nil run")
	}

	runJSON, err := json.Marshal(run)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run: %w", err)
	}
	targetsJSON, err := json.Marshal(run.TargetURLs())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize targets: %w", err)
	}

	var archivePath, archiveSHA3 string
	if run.Archive != nil {
		archivePath = run.Archive.Path
		archiveSHA3 = run.Archive.SHA3
	}
	notified := run.Notification != nil && run.Notification.Sent

	query := `
	INSERT INTO runs (run_id, started_at, finished_at, policy, targets, scanned,
		failed_passes, archive_path, archive_sha3, notified, error, run_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id
	`

	var id int64
	err = hdb.db.QueryRowContext(ctx, hdb.rebind(query),
		run.ID,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		string(run.Policy),
		string(targetsJSON),
		len(run.ScannedURLs()),
		run.FailedPasses(),
		archivePath,
		archiveSHA3,
		notified,
		run.Error,
		string(runJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	return id, nil
}

// ListRuns returns the most recent runs, newest first.
// A limit of 0 or less returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, run_id, started_at, finished_at, policy, targets, scanned,
		failed_passes, archive_path, archive_sha3, notified, error
	FROM runs
	ORDER BY started_at DESC, id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, hdb.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		var rec RunRecord
		var startedAt, targetsJSON string
		var finishedAt, archivePath, archiveSHA3, runErr sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&startedAt,
			&finishedAt,
			&rec.Policy,
			&targetsJSON,
			&rec.Scanned,
			&rec.FailedPasses,
			&archivePath,
			&archiveSHA3,
			&rec.Notified,
			&runErr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.StartedAt = parseTimestamp(startedAt)
		rec.FinishedAt = parseTimestamp(finishedAt.String)
		rec.ArchivePath = archivePath.String
		rec.ArchiveSHA3 = archiveSHA3.String
		rec.Error = runErr.String
		if err := json.Unmarshal([]byte(targetsJSON), &rec.Targets); err != nil {
			rec.Targets = nil
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetRun returns the complete run stored under the given database ID.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	query := `SELECT run_json, targets FROM runs WHERE id = ?`

	var runJSON, targetsJSON string
	err := hdb.db.QueryRowContext(ctx, hdb.rebind(query), id).Scan(&runJSON, &targetsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}

	// Targets are not part of the run JSON; rebuild them from the targets column.
	var urls []string
	if err := json.Unmarshal([]byte(targetsJSON), &urls); err == nil {
		if targets, err := model.NewTargets(urls); err == nil {
			run.Targets = targets
		}
	}

	return &run, nil
}

// rebind replaces '?' placeholders with '$1', '$2', ... for PostgreSQL.
func (hdb *HistoryDB) rebind(query string) string {
	if hdb.driver != DriverPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// storeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const storeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp stores times as sortable UTC text. The zero time is stored as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storeLayout)
}

// timestampFormats contains the timestamp formats the database may return.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp parses a stored timestamp. Unknown formats yield the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
