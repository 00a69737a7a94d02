package actions

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/tasq/internal/domain"
)

func renderList(w io.Writer, kind domain.ItemKind, items []domain.Item, now time.Time) {
	label := "tasks"
	if kind == domain.KindRecord {
		label = "records"
	}
	if len(items) == 0 {
		fmt.Fprintf(w, "No %s found.\n", label)
		return
	}
	for i, item := range items {
		fmt.Fprintf(w, "%3d. %s\n", i+1, describeItem(item, now))
	}
	fmt.Fprintf(w, "%d %s\n", len(items), label)
}

func describeItem(item domain.Item, now time.Time) string {
	var b strings.Builder
	if item.Category != "" {
		fmt.Fprintf(&b, "[%s] ", item.Category)
	}
	b.WriteString(firstLine(item.Content))
	switch item.Kind {
	case domain.KindTask:
		if item.TargetTime != nil {
			fmt.Fprintf(&b, " (due %s, %s)", item.TargetTime.Format(domain.DateTimeFormat), humanize.RelTime(*item.TargetTime, now, "ago", "from now"))
		}
		if strings.HasPrefix(item.Comment, "recurring: ") {
			fmt.Fprintf(&b, " (%s)", item.Comment)
		}
		if item.Status != "" && item.Status != domain.StatusOngoing {
			fmt.Fprintf(&b, " [%s]", item.Status)
		}
		if item.IsOverdue(now) {
			b.WriteString(" OVERDUE")
		}
	case domain.KindRecord:
		fmt.Fprintf(&b, " (%s)", item.CreatedAt.Format(domain.DateTimeFormat))
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
