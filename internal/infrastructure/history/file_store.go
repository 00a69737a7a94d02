package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/filesystem"
	"github.com/doeshing/tasq/internal/ports"
)

// FileStore appends history records to a jsonl file. It backs history when
// the SQLite database cannot be opened.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save implements ports.HistoryRepository.
func (f *FileStore) Save(record domain.HistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := filesystem.EnsureParentDir(f.path, domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = file.Write(append(data, '\n'))
	return err
}

// Records loads entries newest first; unreadable lines are skipped.
func (f *FileStore) Records(limit int, search string) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	records, err := f.load()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	needle := strings.ToLower(search)
	out := records[:0]
	for _, rec := range records {
		if needle != "" && !matches(rec, needle) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Stats aggregates the whole file.
func (f *FileStore) Stats() (domain.HistoryStats, error) {
	records, err := f.Records(0, "")
	if err != nil {
		return domain.HistoryStats{}, err
	}
	stats := domain.HistoryStats{BySource: map[domain.CommandSource]int{}}
	for _, rec := range records {
		stats.Total++
		if rec.Executed {
			stats.Executed++
		}
		if rec.Success {
			stats.Succeeded++
		}
		stats.BySource[rec.Source]++
		if stats.FirstEntry.IsZero() || rec.Timestamp.Before(stats.FirstEntry) {
			stats.FirstEntry = rec.Timestamp
		}
		if rec.Timestamp.After(stats.LastEntry) {
			stats.LastEntry = rec.Timestamp
		}
	}
	return stats, nil
}

// Retain rewrites the file without entries older than days.
func (f *FileStore) Retain(days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.load()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	kept := make([]domain.HistoryRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	if removed := len(records) - len(kept); removed > 0 {
		if err := writeJSONL(f.path, kept); err != nil {
			return 0, err
		}
		return removed, nil
	}
	return 0, nil
}

// Clear removes the history file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ExportJSON copies the entries, newest first, to dest.
func (f *FileStore) ExportJSON(dest string) error {
	records, err := f.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, records)
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() ([]domain.HistoryRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []domain.HistoryRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal(line, &rec); err == nil {
			records = append(records, rec)
		}
	}
	return records, scanner.Err()
}

func matches(rec domain.HistoryRecord, needle string) bool {
	return strings.Contains(strings.ToLower(rec.Input), needle) ||
		strings.Contains(strings.ToLower(rec.Command), needle) ||
		strings.Contains(strings.ToLower(rec.Description), needle)
}

func writeJSONL(dest string, records []domain.HistoryRecord) error {
	if err := filesystem.EnsureParentDir(dest, domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

var _ ports.HistoryRepository = (*FileStore)(nil)
