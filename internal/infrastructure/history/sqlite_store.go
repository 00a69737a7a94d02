package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/filesystem"
	"github.com/doeshing/tasq/internal/ports"
)

const schema = `
PRAGMA busy_timeout = 5000;
CREATE TABLE IF NOT EXISTS interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	input TEXT NOT NULL,
	command TEXT,
	description TEXT,
	source TEXT,
	commands INTEGER DEFAULT 0,
	executed INTEGER DEFAULT 0,
	success INTEGER DEFAULT 0,
	error TEXT,
	execution_time_ms INTEGER DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_interactions_timestamp ON interactions(timestamp);
`

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath is ~/.tasq/history.db.
func DefaultPath() string {
	return filepath.Join(filesystem.DataDir(), "history.db")
}

// Open opens (or creates) the history database at path.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath()
	}
	path = filesystem.ExpandPath(path)
	if err := filesystem.EnsureParentDir(path, domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// OpenOrFallback opens the SQLite store, falling back to a JSONL file next to
// it when the database cannot be used.
func OpenOrFallback(path string, log ports.Logger) ports.HistoryRepository {
	store, err := Open(path)
	if err == nil {
		return store
	}
	if path == "" {
		path = DefaultPath()
	}
	fallback := strings.TrimSuffix(filesystem.ExpandPath(path), filepath.Ext(path)) + ".jsonl"
	if log != nil {
		log.Warn("history database unavailable, using jsonl file", map[string]interface{}{"error": err.Error(), "path": fallback})
	}
	return NewFileStore(fallback)
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO interactions
		(timestamp, input, command, description, source, commands, executed, success, error, execution_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(record.Timestamp),
		record.Input,
		record.Command,
		record.Description,
		string(record.Source),
		record.Commands,
		boolToInt(record.Executed),
		boolToInt(record.Success),
		record.Error,
		record.ExecutionTimeMS,
	)
	return err
}

// Records returns history entries, newest first (limit/search optional).
func (s *SQLiteStore) Records(limit int, search string) ([]domain.HistoryRecord, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT timestamp, input, command, description, source, commands, executed, success, error, execution_time_ms FROM interactions`)
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE input LIKE ? OR command LIKE ? OR description LIKE ?")
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}
	builder.WriteString(" ORDER BY timestamp DESC, id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var ts, source string
		var command, description, errText sql.NullString
		var executed, success int
		if err := rows.Scan(&ts, &rec.Input, &command, &description, &source, &rec.Commands, &executed, &success, &errText, &rec.ExecutionTimeMS); err != nil {
			return nil, err
		}
		rec.Timestamp = parseTime(ts)
		rec.Command = command.String
		rec.Description = description.String
		rec.Error = errText.String
		rec.Source = domain.CommandSource(source)
		rec.Executed = executed == 1
		rec.Success = success == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats aggregates the whole table.
func (s *SQLiteStore) Stats() (domain.HistoryStats, error) {
	stats := domain.HistoryStats{BySource: map[domain.CommandSource]int{}}

	var first, last sql.NullString
	var executed, succeeded sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), SUM(executed), SUM(success), MIN(timestamp), MAX(timestamp) FROM interactions`).
		Scan(&stats.Total, &executed, &succeeded, &first, &last)
	if err != nil {
		return stats, err
	}
	stats.Executed = int(executed.Int64)
	stats.Succeeded = int(succeeded.Int64)
	if first.Valid {
		stats.FirstEntry = parseTime(first.String)
	}
	if last.Valid {
		stats.LastEntry = parseTime(last.String)
	}

	rows, err := s.db.Query(`SELECT COALESCE(source, ''), COUNT(*) FROM interactions GROUP BY source`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return stats, err
		}
		stats.BySource[domain.CommandSource(source)] = n
	}
	return stats, rows.Err()
}

// Retain deletes entries older than days and reports how many went.
func (s *SQLiteStore) Retain(days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := formatTime(time.Now().AddDate(0, 0, -days))
	res, err := s.db.Exec(`DELETE FROM interactions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM interactions")
	return err
}

// ExportJSON writes the table to a jsonl file, newest first.
func (s *SQLiteStore) ExportJSON(dest string) error {
	records, err := s.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, records)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// formatTime stores UTC with second precision so text comparison orders rows.
func formatTime(t time.Time) string {
	return t.UTC().Format(domain.TimestampFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(domain.TimestampFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
