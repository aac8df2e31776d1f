package store

import (
	"context"
	"os"
	"time"
)

// Stats holds collection statistics.
type Stats struct {
	DBPath            string          `json:"db_path"`
	DBSizeBytes       int64           `json:"db_size_bytes"`
	TotalQuotes       int             `json:"total_quotes"`
	SelectedCategory  string          `json:"selected_category"`
	SnapshotUpdatedAt *time.Time      `json:"snapshot_updated_at,omitempty"`
	Categories        []CategoryStats `json:"categories"`
}

// CategoryStats holds per-category counts.
type CategoryStats struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type updatedAtReader interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}

// Stats returns collection statistics. dbPath is reported and sized when non-empty.
func (s *QuoteStore) Stats(ctx context.Context, dbPath string) *Stats {
	st := &Stats{
		DBPath:           dbPath,
		SelectedCategory: s.SelectedCategory(ctx),
	}

	if dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	if r, ok := s.durable.(updatedAtReader); ok {
		if t, ok, err := r.UpdatedAt(ctx, KeyQuotes); err == nil && ok {
			st.SnapshotUpdatedAt = &t
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st.TotalQuotes = len(s.quotes)
	counts := make(map[string]int)
	for _, q := range s.quotes {
		counts[q.Category]++
	}
	for _, c := range categoriesOf(s.quotes) {
		st.Categories = append(st.Categories, CategoryStats{Category: c, Count: counts[c]})
	}

	return st
}
