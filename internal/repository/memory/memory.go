// Package memory holds in-memory repositories for tests and local runs.
// Every store copies on read and write so callers never share backing arrays.
package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// inRange compares calendar dates only.
func inRange(d, from, to time.Time) bool {
	k := dateKey(d)
	return k >= dateKey(from) && k <= dateKey(to)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func page[T any](items []T, p, limit int) []T {
	if limit <= 0 {
		return items
	}
	if p <= 0 {
		p = 1
	}
	start := (p - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
