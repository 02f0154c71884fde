package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"jobwait/internal/engine"
	"jobwait/internal/logger"
	"jobwait/internal/storage/models"

	_ "github.com/mattn/go-sqlite3"
)

const timestampLayout = "2006-01-02 15:04:05.000000"

var db *sql.DB

// ErrNotInitialized is returned when the database is used before Init
var ErrNotInitialized = errors.New("run history database is not initialized")

// Init initializes the SQLite database
func Init(dbPath string) error {
	var err error

	// Open the database connection with connection pool settings
	db, err = sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return err
	}

	// One process writes one row per run; a small pool is enough
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err = Ping(); err != nil {
		return err
	}

	// Create the runs table if it doesn't exist
	if err = createTables(); err != nil {
		return err
	}

	logger.Debug("Run history database initialized", "path", dbPath)
	return nil
}

// createTables creates the necessary database tables
func createTables() error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		timestamp DATETIME NOT NULL,
		job_name TEXT NOT NULL,
		params TEXT,
		queue_url TEXT,
		build_url TEXT,
		outcome TEXT NOT NULL,
		error TEXT
	)
	`)

	return err
}

// Ping checks that the database is reachable
func Ping() error {
	if db == nil {
		return ErrNotInitialized
	}
	return db.Ping()
}

// InsertRun inserts a new run record
func InsertRun(run models.RunRecord) error {
	if db == nil {
		return ErrNotInitialized
	}

	_, err := db.Exec(
		`INSERT INTO runs (run_id, timestamp, job_name, params, queue_url, build_url, outcome, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Timestamp.UTC().Format(timestampLayout),
		run.JobName,
		run.Params,
		run.QueueURL,
		run.BuildURL,
		run.Outcome,
		run.Error,
	)

	if err != nil {
		logger.Error("Failed to insert run record", "run_id", run.RunID, "error", err)
		return err
	}

	return nil
}

// ListRuns retrieves run records with pagination, newest first
func ListRuns(limit, offset int) ([]models.RunRecord, error) {
	if db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := db.Query(
		`SELECT id, run_id, timestamp, job_name, params, queue_url, build_url, outcome, error FROM runs ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []models.RunRecord{}
	for rows.Next() {
		var run models.RunRecord
		var timestampStr string
		var params, queueURL, buildURL, errText sql.NullString

		if err := rows.Scan(
			&run.ID,
			&run.RunID,
			&timestampStr,
			&run.JobName,
			&params,
			&queueURL,
			&buildURL,
			&run.Outcome,
			&errText,
		); err != nil {
			return nil, err
		}
		run.Params = params.String
		run.QueueURL = queueURL.String
		run.BuildURL = buildURL.String
		run.Error = errText.String
		run.Timestamp = parseTimestamp(timestampStr)

		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// parseTimestamp accepts the stored layout with or without microseconds. The
// driver may also hand back RFC3339 for DATETIME columns.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timestampLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Close closes the database connection
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// Recorder writes finished runs to the database
type Recorder struct{}

// RecordRun stores result as one row. Params are kept as a JSON object.
func (Recorder) RecordRun(result *engine.RunResult, params map[string]string, at time.Time) error {
	encoded := "{}"
	if len(params) > 0 {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		encoded = string(b)
	}

	run := models.RunRecord{
		RunID:     result.RunID,
		Timestamp: at,
		JobName:   result.Job,
		Params:    encoded,
		QueueURL:  result.QueueURL,
		BuildURL:  result.BuildURL,
		Outcome:   string(result.Outcome),
	}
	if !result.Outcome.Succeeded() {
		run.Error = result.Message
	}
	return InsertRun(run)
}
