package attendance

import (
	"slices"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate accepts the date shapes the dashboard and the calendar service send.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortByDateDesc orders items newest first. Items whose date does not parse
// stay at their original index; the others are sorted (stably) into the
// remaining slots. It returns the indexes of the unparseable items.
func sortByDateDesc[T any](items []T, date func(T) string) []int {
	type dated struct {
		item T
		at   time.Time
	}

	var valid []dated
	var slots, malformed []int
	for i, item := range items {
		at, ok := ParseDate(date(item))
		if !ok {
			malformed = append(malformed, i)
			continue
		}
		valid = append(valid, dated{item: item, at: at})
		slots = append(slots, i)
	}

	slices.SortStableFunc(valid, func(a, b dated) int {
		return b.at.Compare(a.at)
	})
	for n, slot := range slots {
		items[slot] = valid[n].item
	}
	return malformed
}
