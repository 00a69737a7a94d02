package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/filesystem"
	"github.com/doeshing/tasq/internal/ports"
)

// ErrNotFound is returned when an item id does not exist.
var ErrNotFound = errors.New("item not found")

// SQLiteStore keeps tasks and records in a single SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Open opens (or creates) the item database at path.
func Open(path string) (*SQLiteStore, error) {
	path = filesystem.ExpandPath(path)
	if err := filesystem.EnsureParentDir(path, domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			status INTEGER NOT NULL DEFAULT 0,
			target_time INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			comment TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS snapshots (
			position INTEGER PRIMARY KEY,
			item_id INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_items_kind_status ON items(kind, status);
		CREATE INDEX IF NOT EXISTS idx_items_target_time ON items(target_time);
	`)
	return err
}

// Create inserts item and returns it with its id and timestamps.
func (s *SQLiteStore) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = domain.StatusOngoing
	}
	code, ok := item.Status.Code()
	if !ok {
		return domain.Item{}, fmt.Errorf("unknown status %q", item.Status)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO items
		(kind, content, category, status, target_time, created_at, updated_at, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.Kind), item.Content, item.Category, code, unixOrNil(item.TargetTime),
		item.CreatedAt.Unix(), item.UpdatedAt.Unix(), item.Comment,
	)
	if err != nil {
		return domain.Item{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Item{}, err
	}
	item.ID = id
	return item, nil
}

// Get loads one item.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, selectItems+" WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return item, err
}

// Update overwrites the mutable fields of item.
func (s *SQLiteStore) Update(ctx context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := item.Status.Code()
	if !ok {
		return fmt.Errorf("unknown status %q", item.Status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE items
		SET content = ?, category = ?, status = ?, target_time = ?, updated_at = ?, comment = ?
		WHERE id = ?`,
		item.Content, item.Category, code, unixOrNil(item.TargetTime), s.now().Unix(), item.Comment, item.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, item.ID)
	}
	return nil
}

// Delete removes items by id and returns how many were removed.
func (s *SQLiteStore) Delete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	removed := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE item_id NOT IN (SELECT id FROM items)`); err != nil {
		return 0, err
	}
	return removed, tx.Commit()
}

// List returns items matching filter, open tasks first by target time.
func (s *SQLiteStore) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	builder := strings.Builder{}
	builder.WriteString(selectItems)
	var where []string
	var args []interface{}

	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Category != "" {
		where = append(where, "LOWER(category) = LOWER(?)")
		args = append(args, filter.Category)
	}
	if codes := statusCodes(filter.Statuses); len(codes) > 0 {
		where = append(where, "status IN ("+placeholders(len(codes))+")")
		args = append(args, codes...)
	}
	if filter.Search != "" {
		where = append(where, "content LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Days > 0 {
		where = append(where, "created_at >= ?")
		args = append(args, s.now().AddDate(0, 0, -filter.Days).Unix())
	}
	if filter.TargetTimeMin != nil {
		where = append(where, "target_time >= ?")
		args = append(args, filter.TargetTimeMin.Unix())
	}
	if filter.TargetTimeMax != nil {
		where = append(where, "target_time <= ?")
		args = append(args, filter.TargetTimeMax.Unix())
	}
	if filter.NoDeadline {
		where = append(where, "target_time IS NULL")
	}
	if len(filter.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	if len(where) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(where, " AND "))
	}
	if filter.Kind == domain.KindRecord {
		builder.WriteString(" ORDER BY created_at DESC, id DESC")
	} else {
		builder.WriteString(" ORDER BY target_time IS NULL, target_time, id")
	}
	if filter.Limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Categories lists distinct non-empty categories, most used first.
func (s *SQLiteStore) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT category FROM items WHERE category != ''
		GROUP BY category ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveSnapshot remembers the order of the last listing so later commands can
// address items by 1-based index. Each listing replaces the previous one.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (position, item_id) VALUES (?, ?)`, i+1, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Snapshot returns the ids of the last listing in display order.
func (s *SQLiteStore) Snapshot(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT item_id FROM snapshots ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectItems = `SELECT id, kind, content, category, status, target_time, created_at, updated_at, comment FROM items`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (domain.Item, error) {
	var item domain.Item
	var kind string
	var code int
	var target sql.NullInt64
	var created, updated int64
	if err := row.Scan(&item.ID, &kind, &item.Content, &item.Category, &code, &target, &created, &updated, &item.Comment); err != nil {
		return domain.Item{}, err
	}
	item.Kind = domain.ItemKind(kind)
	if status, ok := domain.StatusFromCode(code); ok {
		item.Status = status
	}
	if target.Valid {
		t := time.Unix(target.Int64, 0)
		item.TargetTime = &t
	}
	item.CreatedAt = time.Unix(created, 0)
	item.UpdatedAt = time.Unix(updated, 0)
	return item, nil
}

func statusCodes(statuses []domain.StatusType) []interface{} {
	var codes []interface{}
	for _, st := range statuses {
		for _, concrete := range st.Expand() {
			if code, ok := concrete.Code(); ok {
				codes = append(codes, code)
			}
		}
	}
	return codes
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func unixOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

var _ ports.ItemRepository = (*SQLiteStore)(nil)
