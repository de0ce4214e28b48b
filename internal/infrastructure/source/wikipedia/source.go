package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/resilience"
)

const (
	DefaultAPIURL   = "https://en.wikipedia.org/w/api.php"
	DefaultMaxChars = 4000
	userAgent       = "athlete-rag/1.0 (https://github.com/kirillkom/athlete-rag)"
)

type Config struct {
	APIURL string
	// MaxChars truncates page text; 0 keeps the whole extract.
	MaxChars          int
	RequestsPerSecond float64
}

// Source looks up the best matching article for an entity label and returns its plain
// text extract.
type Source struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	snapshots  ports.ObjectStorage
	logger     *slog.Logger
}

type Option func(*Source)

func WithExecutor(executor *resilience.Executor) Option {
	return func(s *Source) { s.executor = executor }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Source) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithSnapshots stores every fetched page as <slug>.txt so it can be replayed offline.
func WithSnapshots(storage ports.ObjectStorage, logger *slog.Logger) Option {
	return func(s *Source) {
		s.snapshots = storage
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(cfg Config, opts ...Option) *Source {
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.MaxChars < 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	s := &Source{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type queryResponse struct {
	Query struct {
		Pages []struct {
			PageID  int64  `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing"`
			Index   int    `json:"index"`
		} `json:"pages"`
	} `json:"query"`
}

func (s *Source) Fetch(ctx context.Context, entity string) (domain.Document, error) {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "wikipedia fetch", fmt.Errorf("empty entity"))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Document{}, fmt.Errorf("wikipedia rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("generator", "search")
	params.Set("gsrsearch", entity)
	params.Set("gsrlimit", "1")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	endpoint := s.cfg.APIURL + "?" + params.Encode()

	var resp queryResponse
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create wikipedia request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		httpResp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("wikipedia request: %w", err)
		}
		defer httpResp.Body.Close()
		if httpResp.StatusCode >= 300 {
			return resilience.NewStatusError("wikipedia", "query", httpResp)
		}
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return fmt.Errorf("decode wikipedia response: %w", err)
		}
		return nil
	}

	var err error
	if s.executor != nil {
		err = s.executor.Execute(ctx, "wikipedia.query", call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.Document{}, resilience.WrapTemporary("wikipedia query", err)
	}

	for _, page := range resp.Query.Pages {
		if page.Missing || page.PageID == 0 {
			continue
		}
		text := truncateRunes(strings.TrimSpace(page.Extract), s.cfg.MaxChars)
		if text == "" {
			break
		}
		doc := domain.Document{
			Text:     text,
			SourceID: fmt.Sprintf("https://en.wikipedia.org/?curid=%d", page.PageID),
			Entity:   entity,
		}
		s.snapshot(ctx, entity, text)
		return doc, nil
	}
	return domain.Document{}, domain.WrapError(domain.ErrNotFound, "wikipedia fetch", fmt.Errorf("no page for %q", entity))
}

func (s *Source) snapshot(ctx context.Context, entity, text string) {
	if s.snapshots == nil {
		return
	}
	key := domain.Slug(entity) + ".txt"
	if err := s.snapshots.Save(ctx, key, strings.NewReader(text)); err != nil {
		s.logger.Warn("wikipedia_snapshot_failed", "entity", entity, "key", key, "error", err)
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
