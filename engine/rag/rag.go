// Package rag proxies free-text queries to the content store's RAG search and
// reshapes the store response for callers.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AditiJR/EuclidPublic/engine/domain"
	"github.com/AditiJR/EuclidPublic/engine/store"
	"github.com/AditiJR/EuclidPublic/pkg/fn"
)

// DefaultMaxResults is used when the query does not set a limit.
const DefaultMaxResults = 5

// Searcher abstracts the store search endpoint.
type Searcher interface {
	Search(ctx context.Context, req store.SearchRequest) (store.SearchPayload, error)
}

// Query is one search request. Empty filters are not sent.
type Query struct {
	Q          string
	MaxResults int
	CategoryID string
	TopicID    string
}

// Service is the search flow.
type Service struct {
	search Searcher
	logger *slog.Logger
}

// New creates a search Service.
func New(search Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{search: search, logger: logger}
}

// Search runs q against the store. A zero limit means DefaultMaxResults. Values the store leaves out stay nil in
// the response.
func (s *Service) Search(ctx context.Context, q Query) (domain.SearchResponse, error) {
	if strings.TrimSpace(q.Q) == "" {
		return domain.SearchResponse{}, domain.MissingField("q")
	}
	if q.MaxResults < 0 {
		return domain.SearchResponse{}, domain.InvalidField("max_results", "must not be negative")
	}
	if q.MaxResults == 0 {
		q.MaxResults = DefaultMaxResults
	}

	payload, err := s.search.Search(ctx, store.SearchRequest{
		Query:      q.Q,
		MaxResults: q.MaxResults,
		CategoryID: q.CategoryID,
		TopicID:    q.TopicID,
	})
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("rag: search: %w", err)
	}
	s.logger.Debug("rag search done", "query_len", len(q.Q), "results", len(payload.Results))

	return reshape(payload), nil
}

func reshape(p store.SearchPayload) domain.SearchResponse {
	return domain.SearchResponse{
		Answer: p.Answer,
		Results: fn.Map(p.Results, func(h store.SearchHit) domain.SearchResult {
			return domain.SearchResult{
				ContentID: h.ContentID.Ptr(),
				Title:     h.Title,
				Score:     h.Score,
				ChunkText: h.ChunkText,
			}
		}),
		Meta: domain.SearchMeta{
			TotalResults:     p.TotalResults,
			ProcessingTimeMs: p.ProcessingTimeMs,
		},
	}
}
