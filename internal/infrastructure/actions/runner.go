package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/doeshing/tasq/internal/domain"
	"github.com/doeshing/tasq/internal/pkg/timestr"
	"github.com/doeshing/tasq/internal/ports"
)

// Runner is the action layer: it parses a traditional argument vector and
// applies it to the item store.
type Runner struct {
	Store ports.ItemRepository
	Out   io.Writer
	Now   func() time.Time
}

// NewRunner builds a Runner writing human output to out.
func NewRunner(store ports.ItemRepository, out io.Writer) *Runner {
	return &Runner{Store: store, Out: out, Now: time.Now}
}

// Execute parses args and runs them.
func (r *Runner) Execute(ctx context.Context, args []string) (ports.ActionReport, error) {
	inv, err := Parse(args)
	if err != nil {
		return ports.ActionReport{}, err
	}
	return r.Run(ctx, inv)
}

// Run applies an already parsed invocation.
func (r *Runner) Run(ctx context.Context, inv Invocation) (ports.ActionReport, error) {
	if r.Store == nil {
		return ports.ActionReport{}, errors.New("item store unavailable")
	}
	switch inv.Action {
	case domain.ActionTask:
		return r.addTask(ctx, inv)
	case domain.ActionRecord:
		return r.addRecord(ctx, inv)
	case domain.ActionDone:
		return r.complete(ctx, inv)
	case domain.ActionUpdate:
		return r.update(ctx, inv)
	case domain.ActionDelete:
		return r.delete(ctx, inv)
	case domain.ActionList:
		if inv.ShowIndex > 0 {
			return r.show(ctx, inv.ShowIndex)
		}
		return r.list(ctx, inv)
	default:
		return ports.ActionReport{}, fmt.Errorf("unsupported action %q", inv.Action)
	}
}

func (r *Runner) addTask(ctx context.Context, inv Invocation) (ports.ActionReport, error) {
	now := r.now()
	item := domain.Item{Kind: domain.KindTask, Content: inv.Content, Category: inv.Category, Status: domain.StatusOngoing}
	switch {
	case inv.TimeStr == "":
		eod := timestr.Point{Time: now, DayOnly: true}.Upper()
		item.TargetTime = &eod
	case isSchedule(inv.TimeStr):
		item.Comment = "recurring: " + inv.TimeStr
	default:
		p, err := timestr.Parse(inv.TimeStr, now)
		if err != nil {
			return ports.ActionReport{}, err
		}
		target := p.Upper()
		item.TargetTime = &target
	}
	created, err := r.Store.Create(ctx, item)
	if err != nil {
		return ports.ActionReport{}, fmt.Errorf("failed to add task: %w", err)
	}
	fmt.Fprintf(r.Out, "Inserted Task: %s\n", describeItem(created, now))
	return report(created), nil
}

func (r *Runner) addRecord(ctx context.Context, inv Invocation) (ports.ActionReport, error) {
	now := r.now()
	item := domain.Item{Kind: domain.KindRecord, Content: inv.Content, Category: inv.Category, CreatedAt: now}
	if inv.TimeStr != "" {
		p, err := timestr.Parse(inv.TimeStr, now)
		if err != nil {
			return ports.ActionReport{}, err
		}
		item.CreatedAt = p.Lower()
		if p.DayOnly {
			item.CreatedAt = time.Date(p.Time.Year(), p.Time.Month(), p.Time.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())
		}
	}
	created, err := r.Store.Create(ctx, item)
	if err != nil {
		return ports.ActionReport{}, fmt.Errorf("failed to add record: %w", err)
	}
	fmt.Fprintf(r.Out, "Inserted Record: %s\n", describeItem(created, now))
	return report(created), nil
}

func (r *Runner) complete(ctx context.Context, inv Invocation) (ports.ActionReport, error) {
	item, err := r.resolve(ctx, inv.Target, domain.KindTask)
	if err != nil {
		return ports.ActionReport{}, err
	}
	if item.Kind != domain.KindTask {
		return ports.ActionReport{}, fmt.Errorf("item %q is a record; only tasks can be completed", item.Content)
	}
	item.Status = inv.Status
	if inv.Comment != "" {
		item.Content = item.Content + "\n" + inv.Comment
	}
	if err := r.Store.Update(ctx, item); err != nil {
		return ports.ActionReport{}, fmt.Errorf("failed to complete task: %w", err)
	}
	fmt.Fprintf(r.Out, "Completed Task: %s [%s]\n", firstLine(item.Content), item.Status)
	return report(item), nil
}

func (r *Runner) update(ctx context.Context, inv Invocation) (ports.ActionReport, error) {
	item, err := r.resolve(ctx, inv.Target, "")
	if err != nil {
		return ports.ActionReport{}, err
	}
	now := r.now()
	if inv.NewContent != "" {
		item.Content = inv.NewContent
	}
	if inv.AddContent != "" {
		item.Content = item.Content + "\n" + inv.AddContent
	}
	if inv.Category != "" {
		item.Category = inv.Category
	}
	if inv.TimeStr != "" {
		p, err := timestr.Parse(inv.TimeStr, now)
		if err != nil {
			return ports.ActionReport{}, err
		}
		if item.Kind == domain.KindRecord {
			item.CreatedAt = p.Lower()
		} else {
			target := p.Upper()
			item.TargetTime = &target
		}
	}
	if inv.StatusSet {
		item.Status = inv.Status
	}
	if err := r.Store.Update(ctx, item); err != nil {
		return ports.ActionReport{}, fmt.Errorf("failed to update item: %w", err)
	}
	fmt.Fprintf(r.Out, "Updated: %s\n", describeItem(item, now))
	return report(item), nil
}

func (r *Runner) delete(ctx context.Context, inv Invocation) (ports.ActionReport, error) {
	if inv.Target != "" {
		item, err := r.resolve(ctx, inv.Target, "")
		if err != nil {
			return ports.ActionReport{}, err
		}
		if _, err := r.Store.Delete(ctx, []int64{item.ID}); err != nil {
			return ports.ActionReport{}, fmt.Errorf("failed to delete item: %w", err)
		}
		fmt.Fprintf(r.Out, "Deleted: %s\n", firstLine(item.Content))
		return report(item), nil
	}

	filter := domain.ItemFilter{Kind: domain.KindTask}
	if inv.StatusSet {
		filter.Statuses = []domain.StatusType{inv.Status}
	}
	items, err := r.Store.List(ctx, filter)
	if err != nil {
		return ports.ActionReport{}, err
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	n, err := r.Store.Delete(ctx, ids)
	if err != nil {
		return ports.ActionReport{}, fmt.Errorf("failed to delete tasks: %w", err)
	}
	fmt.Fprintf(r.Out, "Deleted %d task(s)\n", n)
	return ports.ActionReport{}, nil
}

func (r *Runner) list(ctx context.Context, inv Invocation) (ports.ActionReport, error) {
	now := r.now()
	filter, err := buildFilter(inv, now)
	if err != nil {
		return ports.ActionReport{}, err
	}
	items, err := r.Store.List(ctx, filter)
	if err != nil {
		return ports.ActionReport{}, fmt.Errorf("failed to list items: %w", err)
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if err := r.Store.SaveSnapshot(ctx, ids); err != nil {
		return ports.ActionReport{}, fmt.Errorf("failed to remember listing: %w", err)
	}
	renderList(r.Out, inv.ListKind, items, now)
	return ports.ActionReport{Category: inv.Category}, nil
}

func (r *Runner) show(ctx context.Context, index int) (ports.ActionReport, error) {
	item, err := r.byIndex(ctx, index)
	if err != nil {
		return ports.ActionReport{}, err
	}
	fmt.Fprintln(r.Out, item.Content)
	return report(item), nil
}

// resolve finds the item addressed by target. Numeric targets index the last
// listing; anything else must match exactly one item's content. kind narrows
// content matches when set.
func (r *Runner) resolve(ctx context.Context, target string, kind domain.ItemKind) (domain.Item, error) {
	target = strings.TrimSpace(target)
	if idx, err := strconv.Atoi(strings.TrimPrefix(target, "#")); err == nil {
		return r.byIndex(ctx, idx)
	}

	filter := domain.ItemFilter{Kind: kind, Search: target, Statuses: []domain.StatusType{domain.StatusOpen}}
	matches, err := r.Store.List(ctx, filter)
	if err != nil {
		return domain.Item{}, err
	}
	if len(matches) == 0 && kind == "" {
		filter.Statuses = nil
		if matches, err = r.Store.List(ctx, filter); err != nil {
			return domain.Item{}, err
		}
	}
	for _, m := range matches {
		if strings.EqualFold(m.Content, target) {
			return m, nil
		}
	}
	switch len(matches) {
	case 0:
		return domain.Item{}, fmt.Errorf("no item matches %q", target)
	case 1:
		return matches[0], nil
	default:
		return domain.Item{}, fmt.Errorf("%d items match %q; use an index from 'list'", len(matches), target)
	}
}

func (r *Runner) byIndex(ctx context.Context, idx int) (domain.Item, error) {
	ids, err := r.Store.Snapshot(ctx)
	if err != nil {
		return domain.Item{}, err
	}
	if idx < 1 || idx > len(ids) {
		return domain.Item{}, fmt.Errorf("index %d is out of range of the last listing (%d items); run 'list' first", idx, len(ids))
	}
	return r.Store.Get(ctx, ids[idx-1])
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func buildFilter(inv Invocation, now time.Time) (domain.ItemFilter, error) {
	filter := domain.ItemFilter{
		Kind:       inv.ListKind,
		Category:   inv.Category,
		Search:     inv.Search,
		Limit:      inv.Limit,
		NoDeadline: inv.NoDeadline,
	}
	if inv.ListKind == domain.KindRecord {
		filter.Days = inv.Days
		return filter, nil
	}

	if inv.Status != "" {
		filter.Statuses = []domain.StatusType{inv.Status}
	}
	bound := func(expr string, upper bool) (*time.Time, error) {
		p, err := timestr.Parse(expr, now)
		if err != nil {
			return nil, err
		}
		t := p.Lower()
		if upper {
			t = p.Upper()
		}
		return &t, nil
	}

	var err error
	if inv.TargetTimeMin != "" {
		if filter.TargetTimeMin, err = bound(inv.TargetTimeMin, false); err != nil {
			return filter, err
		}
	}
	if inv.TargetTimeMax != "" {
		if filter.TargetTimeMax, err = bound(inv.TargetTimeMax, true); err != nil {
			return filter, err
		}
	}
	if inv.TimeStr != "" {
		if filter.TargetTimeMax, err = bound(inv.TimeStr, true); err != nil {
			return filter, err
		}
	}
	if inv.Days > 0 {
		end := timestr.Point{Time: now.AddDate(0, 0, inv.Days), DayOnly: true}.Upper()
		filter.TargetTimeMax = &end
	}
	if inv.Overdue {
		filter.TargetTimeMax = &now
		if !inv.StatusSet {
			filter.Statuses = []domain.StatusType{domain.StatusOngoing}
		}
	}
	return filter, nil
}

func isSchedule(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"every ", "daily", "weekly", "monthly", "yearly", "weekdays"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func report(item domain.Item) ports.ActionReport {
	id := item.ID
	return ports.ActionReport{ItemID: &id, Content: item.Content, Category: item.Category}
}

var _ ports.ActionRunner = (*Runner)(nil)
