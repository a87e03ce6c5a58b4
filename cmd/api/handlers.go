package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AditiJR/EuclidPublic/engine/domain"
	"github.com/AditiJR/EuclidPublic/engine/ingest"
	"github.com/AditiJR/EuclidPublic/engine/rag"
	"github.com/AditiJR/EuclidPublic/pkg/metrics"
	"github.com/AditiJR/EuclidPublic/pkg/mid"
	"github.com/AditiJR/EuclidPublic/pkg/resilience"
)

// Ingester runs the scrape → chunk → upload flow.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (domain.IngestResult, error)
}

// Searcher runs a store search.
type Searcher interface {
	Search(ctx context.Context, q rag.Query) (domain.SearchResponse, error)
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// services bundles what the router serves. breakers is empty when the
// circuit breaker is disabled.
type services struct {
	ingest   Ingester
	search   Searcher
	breakers map[string]*resilience.Breaker
}

// routeMethods lists the methods each route accepts, for 405 replies.
var routeMethods = map[string]string{
	"/ingest":       "POST",
	"/search":       "POST",
	"/openapi.json": "GET, HEAD",
	"/healthz":      "GET, HEAD",
	"/metrics":      "GET, HEAD",
}

func newHandler(cfg Config, svc services, reg *metrics.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest", handleIngest(svc.ingest, reg, logger))
	mux.HandleFunc("POST /search", handleSearch(svc.search, logger))
	mux.HandleFunc("GET /openapi.json", handleOpenAPI)
	mux.HandleFunc("GET /healthz", handleHealth(svc.breakers))
	mux.Handle("GET /metrics", reg.Handler())

	routes := make([]string, 0, len(routeMethods))
	for path, allow := range routeMethods {
		mux.Handle(path, methodNotAllowed(allow))
		routes = append(routes, path)
	}
	mux.HandleFunc("/", handleNotFound)

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(reg, "gateway", routes...),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel(cfg.ServiceName),
	)
}

// IngestRequest is the JSON body for POST /ingest.
type IngestRequest struct {
	StartURLs  []string `json:"startUrls"`
	MaxResults int      `json:"maxResults,omitempty"`
}

// SearchRequest is the JSON body for POST /search.
type SearchRequest struct {
	Q          string `json:"q"`
	MaxResults int    `json:"max_results,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	TopicID    string `json:"topic_id,omitempty"`
}

func handleIngest(ing Ingester, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	chunks := reg.Counter("gateway_ingested_chunks_total", "Chunks uploaded to the content store")
	return func(w http.ResponseWriter, r *http.Request) {
		// Uploads run one chunk at a time, so a run can outlast the server's
		// write timeout. Writers that cannot clear it are left as they are.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		var req IngestRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := ing.Ingest(r.Context(), ingest.Request{StartURLs: req.StartURLs, MaxResults: req.MaxResults})
		if err != nil {
			writeError(w, logger, "ingest failed", err)
			return
		}
		chunks.Add(int64(res.IngestedCount))
		writeJSON(w, http.StatusOK, res)
	}
}

func handleSearch(search Searcher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := search.Search(r.Context(), rag.Query{
			Q:          req.Q,
			MaxResults: req.MaxResults,
			CategoryID: req.CategoryID,
			TopicID:    req.TopicID,
		})
		if err != nil {
			writeError(w, logger, "search failed", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

func handleHealth(breakers map[string]*resilience.Breaker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok"}
		if len(breakers) > 0 {
			resp.Breakers = make(map[string]string, len(breakers))
			for name, b := range breakers {
				resp.Breakers[name] = b.State().String()
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func methodNotAllowed(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", allow)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// errorResponse maps a flow error to its HTTP status and client message.
func errorResponse(err error) (int, string) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return ue.HTTPStatus(), ue.Error()
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return http.StatusServiceUnavailable, resilience.ErrCircuitOpen.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status, text := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "err", err, "status", status)
	} else {
		logger.Warn(msg, "err", err, "status", status)
	}
	writeJSON(w, status, map[string]string{"error": text})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
