// Package store provides QuoteStore, the in-memory quote collection mirrored to
// durable key-value storage.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rcliao/quotebook/internal/kv"
	"github.com/rcliao/quotebook/internal/model"
)

// Storage keys.
const (
	KeyQuotes           = "quotes"
	KeySelectedCategory = "lastSelectedCategory"
	KeyLastViewed       = "lastViewedQuote"
)

// ErrStorageCorrupt marks a persisted snapshot that is present but cannot be parsed.
var ErrStorageCorrupt = errors.New("storage corrupt")

// Options configures a QuoteStore.
type Options struct {
	// Session holds state that need not survive a restart (last viewed quote).
	// When nil, last-viewed tracking is disabled.
	Session kv.Storage

	// Logger defaults to slog.Default() when nil.
	Logger *slog.Logger

	// Rand is used by PickRandom. Defaults to a randomly seeded PCG source.
	Rand *rand.Rand
}

// MergeResult is the outcome of MergeExternal.
type MergeResult struct {
	Added  int           `json:"added"`
	Quotes []model.Quote `json:"-"`
}

// QuoteStore owns the quote collection. All reads and writes are serialized,
// and every membership change is flushed to durable storage before returning.
type QuoteStore struct {
	mu      sync.RWMutex
	quotes  []model.Quote
	durable kv.Storage
	session kv.Storage
	logger  *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Open creates a QuoteStore over durable and hydrates it from the persisted snapshot.
func Open(ctx context.Context, durable kv.Storage, opts Options) *QuoteStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &QuoteStore{
		durable: durable,
		session: opts.Session,
		logger:  logger,
		rng:     rng,
	}
	s.Load(ctx)
	return s
}

// Load replaces the in-memory collection with the persisted snapshot and returns it.
// A missing or unparseable snapshot yields an empty collection.
func (s *QuoteStore) Load(ctx context.Context) []model.Quote {
	quotes, err := s.readSnapshot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding persisted quotes", slog.Any("error", err))
		quotes = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = quotes
	return slices.Clone(s.quotes)
}

func (s *QuoteStore) readSnapshot(ctx context.Context) ([]model.Quote, error) {
	raw, ok, err := s.durable.Get(ctx, KeyQuotes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var quotes []model.Quote
	if err := json.Unmarshal([]byte(raw), &quotes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorrupt, err)
	}
	return quotes, nil
}

// Save overwrites the persisted snapshot with the full collection.
func (s *QuoteStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *QuoteStore) saveLocked(ctx context.Context) error {
	quotes := s.quotes
	if quotes == nil {
		quotes = []model.Quote{}
	}
	b, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encode quotes: %w", err)
	}
	if err := s.durable.Set(ctx, KeyQuotes, string(b)); err != nil {
		return fmt.Errorf("save quotes: %w", err)
	}
	return nil
}

// Add trims and validates the input, appends the quote and persists the collection.
// Invalid input returns a *model.ValidationError and leaves the collection untouched.
func (s *QuoteStore) Add(ctx context.Context, text, category string) (model.Quote, error) {
	q, err := model.New(text, category)
	if err != nil {
		return model.Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.quotes)
	s.quotes = append(s.quotes, q)
	if err := s.saveLocked(ctx); err != nil {
		s.quotes = s.quotes[:n]
		return model.Quote{}, err
	}
	return q, nil
}

// All returns a copy of the full collection in insertion order.
func (s *QuoteStore) All() []model.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.quotes)
}

// Len returns the collection size.
func (s *QuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}

// Categories returns the distinct categories in order of first appearance.
func (s *QuoteStore) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return categoriesOf(s.quotes)
}

func categoriesOf(quotes []model.Quote) []string {
	seen := make(map[string]bool)
	categories := []string{}
	for _, q := range quotes {
		if !seen[q.Category] {
			seen[q.Category] = true
			categories = append(categories, q.Category)
		}
	}
	return categories
}

// Filter returns the quotes whose category equals selector, or every quote when
// selector is model.AllCategories. The result is never nil.
func (s *QuoteStore) Filter(selector string) []model.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		if selector == model.AllCategories || q.Category == selector {
			out = append(out, q)
		}
	}
	return out
}

// PickRandom selects one quote uniformly at random.
// It returns model.ErrNotFound when quotes is empty.
func (s *QuoteStore) PickRandom(quotes []model.Quote) (model.Quote, error) {
	if len(quotes) == 0 {
		return model.Quote{}, model.ErrNotFound
	}
	s.rngMu.Lock()
	i := s.rng.IntN(len(quotes))
	s.rngMu.Unlock()
	return quotes[i], nil
}

// MergeExternal appends every incoming quote whose exact (text, category) pair is
// not already present, including pairs seen earlier in the same batch. Existing
// local data always wins. Incoming records are not validated.
func (s *QuoteStore) MergeExternal(ctx context.Context, incoming []model.Quote) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[model.Quote]struct{}, len(s.quotes)+len(incoming))
	for _, q := range s.quotes {
		seen[q] = struct{}{}
	}

	n := len(s.quotes)
	for _, q := range incoming {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		s.quotes = append(s.quotes, q)
	}

	added := len(s.quotes) - n
	if added > 0 {
		if err := s.saveLocked(ctx); err != nil {
			s.quotes = s.quotes[:n]
			return MergeResult{Quotes: slices.Clone(s.quotes)}, err
		}
	}

	return MergeResult{Added: added, Quotes: slices.Clone(s.quotes)}, nil
}

// SelectedCategory returns the remembered category filter. A missing, unreadable
// or stale value (a category no longer in the collection) yields model.AllCategories.
func (s *QuoteStore) SelectedCategory(ctx context.Context) string {
	v, ok, err := s.durable.Get(ctx, KeySelectedCategory)
	if err != nil {
		s.logger.WarnContext(ctx, "read selected category", slog.Any("error", err))
		return model.AllCategories
	}
	if !ok || v == model.AllCategories {
		return model.AllCategories
	}
	if !slices.Contains(s.Categories(), v) {
		return model.AllCategories
	}
	return v
}

// SelectCategory remembers the category filter. The category must be
// model.AllCategories or present in the collection.
func (s *QuoteStore) SelectCategory(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return &model.ValidationError{Field: "category", Reason: "is required"}
	}
	if category != model.AllCategories && !slices.Contains(s.Categories(), category) {
		return &model.ValidationError{Field: "category", Reason: fmt.Sprintf("%q is not present", category)}
	}
	if err := s.durable.Set(ctx, KeySelectedCategory, category); err != nil {
		return fmt.Errorf("save selected category: %w", err)
	}
	return nil
}

// Remember records q as the last viewed quote in session storage.
func (s *QuoteStore) Remember(ctx context.Context, q model.Quote) error {
	if s.session == nil {
		return nil
	}

	s.mu.RLock()
	idx := slices.Index(s.quotes, q)
	s.mu.RUnlock()
	if idx < 0 {
		return model.ErrNotFound
	}

	if err := s.session.Set(ctx, KeyLastViewed, strconv.Itoa(idx)); err != nil {
		return fmt.Errorf("save last viewed: %w", err)
	}
	return nil
}

// LastViewed returns the quote recorded by Remember, or model.ErrNotFound.
func (s *QuoteStore) LastViewed(ctx context.Context) (model.Quote, error) {
	if s.session == nil {
		return model.Quote{}, model.ErrNotFound
	}

	v, ok, err := s.session.Get(ctx, KeyLastViewed)
	if err != nil {
		return model.Quote{}, fmt.Errorf("read last viewed: %w", err)
	}
	if !ok {
		return model.Quote{}, model.ErrNotFound
	}
	idx, err := strconv.Atoi(v)
	if err != nil {
		return model.Quote{}, model.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx < 0 || idx >= len(s.quotes) {
		return model.Quote{}, model.ErrNotFound
	}
	return s.quotes[idx], nil
}

// Next picks a random quote from the selected category and remembers it.
func (s *QuoteStore) Next(ctx context.Context) (model.Quote, error) {
	q, err := s.PickRandom(s.Filter(s.SelectedCategory(ctx)))
	if err != nil {
		return model.Quote{}, err
	}
	if err := s.Remember(ctx, q); err != nil {
		s.logger.DebugContext(ctx, "remember last viewed", slog.Any("error", err))
	}
	return q, nil
}
