// Package acquire gathers reference material for a topic from the public
// web: a search engine result page, an encyclopedia fallback, and a bounded
// number of page fetches.
//
// Nothing in this package returns an error to its caller. An empty result
// means no usable material was found and the caller should synthesize
// content instead.
package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/assessgen/internal/catalog"
)

var tracer = otel.Tracer("github.com/abhisek/assessgen/internal/acquire")

// Snippet is the material extracted from one page.
type Snippet struct {
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Equations    []string `json:"equations,omitempty"`
	Applications []string `json:"applications,omitempty"`
}

// Usable reports whether the snippet carries any content.
func (s Snippet) Usable() bool {
	return s.Summary != "" || len(s.Equations) > 0 || len(s.Applications) > 0
}

// SearchResult is one ranked hit from a search provider.
type SearchResult struct {
	URL     string
	Title   string
	Snippet string
}

// Cache stores acquired snippets between requests.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config controls endpoints, limits and timeouts.
type Config struct {
	SearchURL   string
	FallbackURL string
	UserAgent   string

	SearchTimeout   time.Duration
	FallbackTimeout time.Duration
	FetchTimeout    time.Duration

	MaxPages        int
	MaxEquations    int
	MaxApplications int
	MinSummaryLen   int
	MaxSummaryLen   int
	MaxBodyBytes    int64

	// Concurrency bounds AcquireAll fan-out across topics.
	Concurrency int
	CacheTTL    time.Duration
}

// DefaultConfig returns the production endpoints and limits.
func DefaultConfig() Config {
	return Config{
		SearchURL:       "https://html.duckduckgo.com/html/",
		FallbackURL:     "https://en.wikipedia.org/w/api.php",
		UserAgent:       "Mozilla/5.0 (compatible; assessgen/1.0; +https://github.com/abhisek/assessgen)",
		SearchTimeout:   8 * time.Second,
		FallbackTimeout: 5 * time.Second,
		FetchTimeout:    8 * time.Second,
		MaxPages:        3,
		MaxEquations:    5,
		MaxApplications: 5,
		MinSummaryLen:   200,
		MaxSummaryLen:   800,
		MaxBodyBytes:    2 << 20,
		Concurrency:     4,
		CacheTTL:        24 * time.Hour,
	}
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Acquirer) { a.client = c }
}

// WithCache enables snippet caching.
func WithCache(c Cache) Option {
	return func(a *Acquirer) { a.cache = c }
}

// Acquirer fetches reference material for topics.
type Acquirer struct {
	cfg    Config
	tables catalog.AcquireTables
	client *http.Client
	cache  Cache
	logger *zap.Logger
}

// New creates an Acquirer.
func New(cfg Config, tables catalog.AcquireTables, logger *zap.Logger, opts ...Option) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Acquirer{
		cfg:    cfg,
		tables: tables,
		logger: logger,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire returns the usable snippets found for topic, in search rank
// order. Search and fetch failures are logged and swallowed.
func (a *Acquirer) Acquire(ctx context.Context, topic string) []Snippet {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "acquire.topic")
	defer span.End()
	span.SetAttributes(attribute.String("topic", topic))

	key := cacheKey(topic)
	if cached, ok := a.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached
	}

	results := a.search(ctx, topic)
	urls := a.filterURLs(results)
	span.SetAttributes(attribute.Int("results", len(results)), attribute.Int("pages", len(urls)))

	var snippets []Snippet
	for _, r := range urls {
		if ctx.Err() != nil {
			break
		}
		s, err := a.fetch(ctx, r)
		if err != nil {
			a.logger.Warn("page fetch failed",
				zap.String("topic", topic), zap.String("url", r.URL), zap.Error(err))
			continue
		}
		if s.Usable() {
			snippets = append(snippets, s)
		}
	}

	a.logger.Debug("topic acquired",
		zap.String("topic", topic),
		zap.Int("search_results", len(results)),
		zap.Int("snippets", len(snippets)))

	if len(snippets) > 0 {
		a.store(ctx, key, snippets)
	}
	return snippets
}

// AcquireAll runs Acquire for every topic with bounded concurrency. The
// result is indexed like topics; a topic with no material has a nil slot.
func (a *Acquirer) AcquireAll(ctx context.Context, topics []string) [][]Snippet {
	out := make([][]Snippet, len(topics))

	var g errgroup.Group
	limit := a.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, topic := range topics {
		g.Go(func() error {
			out[i] = a.Acquire(ctx, topic)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (a *Acquirer) cached(ctx context.Context, key string) ([]Snippet, bool) {
	if a.cache == nil {
		return nil, false
	}
	data, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("snippet cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var snippets []Snippet
	if err := json.Unmarshal(data, &snippets); err != nil {
		a.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return snippets, true
}

func (a *Acquirer) store(ctx context.Context, key string, snippets []Snippet) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(snippets)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.cfg.CacheTTL); err != nil {
		a.logger.Warn("snippet cache write failed", zap.Error(err))
	}
}

func cacheKey(topic string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(topic)))
	return "acquire:" + hex.EncodeToString(sum[:])
}
