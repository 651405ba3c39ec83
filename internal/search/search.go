// Package search filters the in-memory notification history.
package search

import (
	"sort"
	"strings"

	"github.com/oakledger/beacon/internal/model"
)

// Apply filters records with AND semantics and returns the matches sorted
// by creation time descending. It is a pure function of its inputs: the
// input slice is never mutated and calling it twice with the same cache
// and filters yields identical output.
func Apply(records []model.Notification, f model.SearchFilters) []model.Notification {
	var out []model.Notification
	for _, n := range records {
		if matches(n, f) {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matches(n model.Notification, f model.SearchFilters) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(n.Text), q) &&
			!strings.Contains(strings.ToLower(n.Type), q) &&
			!strings.Contains(strings.ToLower(n.Category), q) {
			return false
		}
	}
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.Category != "" && n.Category != f.Category {
		return false
	}
	if f.Priority != "" && n.Priority != f.Priority {
		return false
	}
	if f.Read != nil && n.Read != *f.Read {
		return false
	}
	if f.From != nil && n.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && n.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
