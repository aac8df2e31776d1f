package remote

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rcliao/quotebook/internal/metrics"
	"github.com/rcliao/quotebook/internal/model"
)

// PostsPath is the collection route served by Server.
const PostsPath = "/posts"

// ServerOptions configures a Server.
type ServerOptions struct {
	// Seed is the initial content served by GET.
	Seed []model.Quote

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Server is an in-memory remote quote source. GET lists stored records as
// posts (title = text, body = category); POST stores records it has not seen.
type Server struct {
	mu      sync.RWMutex
	posts   []record
	nextID  int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewServer creates a server holding opts.Seed.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{logger: logger, metrics: opts.Metrics, nextID: 1}
	s.store(opts.Seed)
	return s
}

// Quotes returns the stored records as quotes.
func (s *Server) Quotes() []model.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Quote, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p.toQuote())
	}
	return out
}

// store appends quotes whose (text, category) pair is not stored yet and
// returns how many were added.
func (s *Server) store(quotes []model.Quote) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Compare the stored (title, body) pair, not the mapped quote, which
	// fills in a default category.
	type key struct{ title, body string }
	seen := make(map[key]struct{}, len(s.posts))
	for _, p := range s.posts {
		seen[key{p.Title, p.Body}] = struct{}{}
	}

	added := 0
	for _, q := range quotes {
		k := key{q.Text, q.Category}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		s.posts = append(s.posts, record{ID: s.nextID, Title: q.Text, Body: q.Category})
		s.nextID++
		added++
	}
	return added
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.Middleware)

	r.Get(PostsPath, s.handleList)
	r.Post(PostsPath, s.handlePush)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	posts := make([]record, len(s.posts))
	copy(posts, s.posts)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, posts)
}

type pushResponse struct {
	Received int `json:"received"`
	Added    int `json:"added"`
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var quotes []model.Quote
	if err := json.NewDecoder(r.Body).Decode(&quotes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected a JSON array of quotes"})
		return
	}

	added := s.store(quotes)
	s.metrics.QuotesMerged("remote", added)

	writeJSON(w, http.StatusCreated, pushResponse{Received: len(quotes), Added: added})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
