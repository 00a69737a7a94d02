package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/doeshing/tasq/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasq.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_CreateGetUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deadline := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	created, err := s.Create(ctx, domain.Item{Kind: domain.KindTask, Content: "buy milk", Category: "home", TargetTime: &deadline})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || created.Status != domain.StatusOngoing {
		t.Fatalf("unexpected created item: %+v", created)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "buy milk" || got.TargetTime == nil || !got.TargetTime.Equal(deadline) {
		t.Errorf("unexpected item: %+v", got)
	}

	got.Status = domain.StatusDone
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := s.Get(ctx, created.ID)
	if again.Status != domain.StatusDone {
		t.Errorf("status = %s, want done", again.Status)
	}

	if _, err := s.Get(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	past := now.Add(-48 * time.Hour)
	soon := now.Add(2 * time.Hour)

	seed := []domain.Item{
		{Kind: domain.KindTask, Content: "pay rent", Category: "home", TargetTime: &past},
		{Kind: domain.KindTask, Content: "write report", Category: "work", TargetTime: &soon},
		{Kind: domain.KindTask, Content: "read book", Category: "home"},
		{Kind: domain.KindTask, Content: "old chore", Category: "home", Status: domain.StatusDone},
		{Kind: domain.KindRecord, Content: "ran 5k", Category: "health"},
	}
	for _, it := range seed {
		if _, err := s.Create(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter domain.ItemFilter
		want   []string
	}{
		{
			name:   "open tasks sorted by deadline",
			filter: domain.ItemFilter{Kind: domain.KindTask, Statuses: []domain.StatusType{domain.StatusOpen}},
			want:   []string{"pay rent", "write report", "read book"},
		},
		{
			name:   "category is case-insensitive",
			filter: domain.ItemFilter{Kind: domain.KindTask, Category: "WORK"},
			want:   []string{"write report"},
		},
		{
			name:   "overdue",
			filter: domain.ItemFilter{Kind: domain.KindTask, Statuses: []domain.StatusType{domain.StatusOngoing}, TargetTimeMax: &now},
			want:   []string{"pay rent"},
		},
		{
			name:   "no deadline",
			filter: domain.ItemFilter{Kind: domain.KindTask, NoDeadline: true, Statuses: []domain.StatusType{domain.StatusOngoing}},
			want:   []string{"read book"},
		},
		{
			name:   "records with search",
			filter: domain.ItemFilter{Kind: domain.KindRecord, Search: "5k"},
			want:   []string{"ran 5k"},
		},
		{
			name:   "limit",
			filter: domain.ItemFilter{Kind: domain.KindTask, Statuses: []domain.StatusType{domain.StatusAll}, Limit: 2},
			want:   []string{"pay rent", "write report"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var got []string
			for _, it := range items {
				got = append(got, it.Content)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSQLiteStore_SnapshotAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Create(ctx, domain.Item{Kind: domain.KindTask, Content: "a"})
	b, _ := s.Create(ctx, domain.Item{Kind: domain.KindTask, Content: "b"})

	if err := s.SaveSnapshot(ctx, []int64{b.ID, a.ID}); err != nil {
		t.Fatal(err)
	}
	ids, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != b.ID || ids[1] != a.ID {
		t.Fatalf("snapshot = %v", ids)
	}

	n, err := s.Delete(ctx, []int64{b.ID})
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	ids, _ = s.Snapshot(ctx)
	if len(ids) != 1 || ids[0] != a.ID {
		t.Errorf("snapshot after delete = %v", ids)
	}

	cats, err := s.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 0 {
		t.Errorf("categories = %v", cats)
	}
}
