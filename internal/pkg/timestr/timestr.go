// Package timestr resolves the short time expressions accepted by the task
// grammar ("today", "+3d", "eom", "friday", "2025-12-25 14:00") into times.
package timestr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Point is a resolved expression. DayOnly points cover a whole calendar day.
type Point struct {
	Time    time.Time
	DayOnly bool
}

// Lower is the earliest instant the point covers.
func (p Point) Lower() time.Time {
	if p.DayOnly {
		return startOfDay(p.Time)
	}
	return p.Time
}

// Upper is the latest instant the point covers.
func (p Point) Upper() time.Time {
	if p.DayOnly {
		return startOfDay(p.Time).Add(24*time.Hour - time.Nanosecond)
	}
	return p.Time
}

var relative = regexp.MustCompile(`^([+-]?)(\d+)\s*([mhdw])$`)
var inRelative = regexp.MustCompile(`^in\s+(\d+)\s+(minute|hour|day|week)s?$`)

var layouts = []struct {
	layout  string
	dayOnly bool
}{
	{"2006-01-02 15:04", false},
	{"2006-01-02T15:04", false},
	{time.RFC3339, false},
	{"2006-01-02", true},
	{"2006/01/02", true},
	{"01/02", true},
	{"01-02", true},
}

// Parse resolves value relative to now. Results are in now's location.
func Parse(value string, now time.Time) (Point, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return Point{}, fmt.Errorf("empty time expression")
	}

	switch s {
	case "now":
		return Point{Time: now}, nil
	case "today", "tonight":
		return Point{Time: now, DayOnly: true}, nil
	case "tomorrow", "tmr":
		return Point{Time: now.AddDate(0, 0, 1), DayOnly: true}, nil
	case "yesterday":
		return Point{Time: now.AddDate(0, 0, -1), DayOnly: true}, nil
	case "eow", "end of week":
		return Point{Time: endOfWeek(now), DayOnly: true}, nil
	case "eom", "end of month":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Point{Time: first.AddDate(0, 1, -1), DayOnly: true}, nil
	case "next week":
		return Point{Time: now.AddDate(0, 0, 7), DayOnly: true}, nil
	case "next month":
		return Point{Time: now.AddDate(0, 1, 0), DayOnly: true}, nil
	}

	if m := relative.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[2])
		if m[1] == "-" {
			n = -n
		}
		return shift(now, n, m[3]), nil
	}
	if m := inRelative.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return shift(now, n, m[2][:1]), nil
	}

	if wd, ok := weekday(strings.TrimPrefix(s, "next ")); ok {
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return Point{Time: now.AddDate(0, 0, days), DayOnly: true}, nil
	}

	for _, l := range layouts {
		t, err := time.ParseInLocation(l.layout, s, now.Location())
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(now.Year(), 0, 0)
		}
		return Point{Time: t, DayOnly: l.dayOnly}, nil
	}
	return Point{}, fmt.Errorf("unrecognized time expression %q", value)
}

// IsTimeExpression reports whether value parses.
func IsTimeExpression(value string, now time.Time) bool {
	_, err := Parse(value, now)
	return err == nil
}

func shift(now time.Time, n int, unit string) Point {
	switch unit {
	case "m":
		return Point{Time: now.Add(time.Duration(n) * time.Minute)}
	case "h":
		return Point{Time: now.Add(time.Duration(n) * time.Hour)}
	case "w":
		return Point{Time: now.AddDate(0, 0, 7*n), DayOnly: true}
	default:
		return Point{Time: now.AddDate(0, 0, n), DayOnly: true}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfWeek(t time.Time) time.Time {
	days := (int(time.Sunday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, days)
}

func weekday(s string) (time.Weekday, bool) {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday,
		"monday": time.Monday, "mon": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday,
		"friday": time.Friday, "fri": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday,
	}
	wd, ok := names[s]
	return wd, ok
}
