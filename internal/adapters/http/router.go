package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/athlete-rag/internal/config"
	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
	"github.com/kirillkom/athlete-rag/internal/observability/metrics"
)

const (
	serviceName     = "api"
	maxRequestBytes = 1 << 20
)

type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Dependencies are the pipeline entry points the API calls. Rebuilds, Status and Readiness
// are optional; their endpoints answer 503 when absent.
type Dependencies struct {
	Query     ports.QueryService
	Rebuilds  ports.RebuildRequester
	Status    ports.CorpusStatusReader
	Readiness ReadinessChecker
	Entities  []string
	Metrics   *metrics.HTTPServerMetrics
	Logger    *slog.Logger
}

type Router struct {
	deps         Dependencies
	logger       *slog.Logger
	topK         int
	queryTimeout time.Duration

	limiter     *rate.Limiter
	maxInFlight int
	wait        time.Duration
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.APIRateLimitRPS > 0 {
		burst := cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}
	return &Router{
		deps:         deps,
		logger:       logger,
		topK:         cfg.RAGTopK,
		queryTimeout: cfg.QueryTimeout,
		limiter:      limiter,
		maxInFlight:  cfg.APIBackpressureMaxInFlight,
		wait:         cfg.APIBackpressureWait,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /v1/entities", rt.listEntities)
	api.HandleFunc("POST /v1/rag/query", rt.queryRAG)
	api.HandleFunc("POST /v1/corpus/rebuild", rt.requestRebuild)
	api.HandleFunc("GET /v1/corpus/status", rt.corpusStatus)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /readyz", rt.readyz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	mux.Handle("/v1/", rateLimitMiddleware(backpressureMiddleware(api, rt.maxInFlight, rt.wait), rt.limiter))

	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Readiness != nil {
		if err := rt.deps.Readiness.Ready(r.Context()); err != nil {
			writeError(w, mapErrorToHTTPStatus(err), err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) listEntities(w http.ResponseWriter, _ *http.Request) {
	entities := rt.deps.Entities
	if entities == nil {
		entities = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"entities": entities})
}

type queryRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit"`
}

// queryErrorResponse keeps the retrieved sources when only generation failed.
type queryErrorResponse struct {
	Error   string                  `json:"error"`
	Sources domain.RetrievalResult  `json:"sources,omitempty"`
	Filter  *domain.RetrievalFilter `json:"filter,omitempty"`
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = rt.topK
	}

	ctx := r.Context()
	if rt.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := rt.deps.Query.Answer(ctx, req.Question, limit)
	rt.observeAnswer(answer, err, time.Since(start))
	if err != nil {
		resp := queryErrorResponse{Error: err.Error()}
		if answer != nil {
			resp.Sources = answer.Sources
			resp.Filter = &answer.Filter
		}
		writeJSON(w, mapErrorToHTTPStatus(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) observeAnswer(answer *domain.Answer, err error, elapsed time.Duration) {
	if rt.deps.Metrics == nil {
		return
	}
	routed, sources := false, 0
	if answer != nil {
		routed = answer.Filter.IsSet()
		sources = len(answer.Sources)
	}
	rt.deps.Metrics.RecordRAGObservation(serviceName, "query", errorOutcome(err), routed, sources, elapsed)
}

func (rt *Router) requestRebuild(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Rebuilds == nil {
		writeError(w, http.StatusServiceUnavailable, "rebuild queue is not configured")
		return
	}
	req, err := rt.deps.Rebuilds.RequestRebuild(r.Context())
	if err != nil {
		rt.logger.Error("rebuild_request_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, req)
}

func (rt *Router) corpusStatus(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Status == nil {
		writeError(w, http.StatusServiceUnavailable, "run ledger is not configured")
		return
	}
	run, err := rt.deps.Status.LatestRun(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no rebuild recorded")
			return
		}
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
