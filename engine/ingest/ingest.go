// Package ingest runs the scrape → chunk → upload pipeline that feeds scraped
// pages into the content store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AditiJR/EuclidPublic/engine/domain"
	"github.com/AditiJR/EuclidPublic/engine/store"
	"github.com/AditiJR/EuclidPublic/pkg/fn"
	"github.com/google/uuid"
)

// DefaultMaxResults caps the scrape when the caller gives no limit.
const DefaultMaxResults = 100

// Scraper fetches pages for a set of start URLs.
type Scraper interface {
	Search(ctx context.Context, queries []string, maxResults int) ([]domain.ScrapedItem, error)
}

// Store accepts raw chunk uploads.
type Store interface {
	IngestRaw(ctx context.Context, title, summary, text string) (store.RawContent, error)
}

// Publisher announces completed runs. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// Options configures chunking.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultOptions returns the standard 4000/300 window.
func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
}

// Service is the ingestion flow.
type Service struct {
	scraper   Scraper
	store     Store
	publisher Publisher
	opts      Options
	logger    *slog.Logger
	run       fn.Stage[Request, domain.IngestResult]
}

// New creates an ingestion Service. publisher may be nil. It fails when the
// chunk window cannot advance.
func New(scraper Scraper, st Store, publisher Publisher, opts Options, logger *slog.Logger) (*Service, error) {
	if err := ValidateWindow(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		scraper:   scraper,
		store:     st,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}

	// Scrape → Prepare → Upload, each stage traced.
	scraped := fn.TracedStage("ingest.scrape", s.scrape)
	prepared := fn.Then(scraped, fn.TracedStage("ingest.prepare", s.prepare))
	s.run = fn.Then(prepared, fn.TracedStage("ingest.upload", s.upload))
	return s, nil
}

// Ingest scrapes req.StartURLs and uploads every chunk of every page to the
// store, one call at a time in source order. The first failed upload aborts
// the run; chunks already uploaded are not reported.
func (s *Service) Ingest(ctx context.Context, req Request) (domain.IngestResult, error) {
	if len(req.StartURLs) == 0 {
		return domain.IngestResult{}, domain.MissingField("startUrls")
	}
	if req.MaxResults < 0 {
		return domain.IngestResult{}, domain.InvalidField("maxResults", "must not be negative")
	}
	if req.MaxResults == 0 {
		req.MaxResults = DefaultMaxResults
	}

	start := time.Now()
	result, err := s.run(ctx, req).Unwrap()
	if err != nil {
		s.logger.Error("ingest failed", "error", err, "urls", len(req.StartURLs), "duration", time.Since(start))
		return domain.IngestResult{}, err
	}
	s.logger.Info("ingest done", "chunks", result.IngestedCount, "urls", len(req.StartURLs), "duration", time.Since(start))

	s.announce(ctx, req, result)
	return result, nil
}

func (s *Service) scrape(ctx context.Context, req Request) fn.Result[[]domain.ScrapedItem] {
	items, err := s.scraper.Search(ctx, req.StartURLs, req.MaxResults)
	if err != nil {
		return fn.Err[[]domain.ScrapedItem](fmt.Errorf("ingest: scrape: %w", err))
	}
	s.logger.Debug("scrape done", "items", len(items))
	return fn.Ok(items)
}

func (s *Service) prepare(_ context.Context, items []domain.ScrapedItem) fn.Result[[]Document] {
	withBody := fn.Filter(items, func(it domain.ScrapedItem) bool {
		return strings.TrimSpace(it.Markdown) != ""
	})

	docs := make([]Document, 0, len(withBody))
	for _, it := range withBody {
		texts, err := ChunkText(attribution(it.SourceURL)+it.Markdown, s.opts.ChunkSize, s.opts.ChunkOverlap)
		if err != nil {
			return fn.Err[[]Document](fmt.Errorf("ingest: chunk %s: %w", it.SourceURL, err))
		}
		chunks := make([]domain.Chunk, len(texts))
		for i, t := range texts {
			chunks[i] = domain.Chunk{Index: i, Text: t}
		}
		docs = append(docs, Document{Title: it.Title, SourceURL: it.SourceURL, Chunks: chunks})
	}
	return fn.Ok(docs)
}

func (s *Service) upload(ctx context.Context, docs []Document) fn.Result[domain.IngestResult] {
	result := domain.IngestResult{ContentIDs: []*string{}}
	for _, doc := range docs {
		for _, up := range doc.uploads() {
			res, err := s.store.IngestRaw(ctx, up.Title, up.Summary, up.Text)
			if err != nil {
				return fn.Err[domain.IngestResult](fmt.Errorf("ingest: upload %q: %w", up.Title, err))
			}
			result.ContentIDs = append(result.ContentIDs, res.ID)
			result.IngestedCount++
		}
	}
	return fn.Ok(result)
}

// uploads builds the store payload for every chunk of the document. Part
// numbers are 1-based; the summary leaves out the source attribution.
func (d Document) uploads() []Upload {
	header := attribution(d.SourceURL)
	return fn.Map(d.Chunks, func(c domain.Chunk) Upload {
		return Upload{
			Title:   fmt.Sprintf("%s [part %d]", d.Title, c.Index+1),
			Summary: summarize(strings.TrimPrefix(c.Text, header), SummaryWidth),
			Text:    c.Text,
		}
	})
}

func (s *Service) announce(ctx context.Context, req Request, result domain.IngestResult) {
	if s.publisher == nil {
		return
	}
	ev := CompletedEvent{
		ID:         uuid.NewString(),
		StartURLs:  req.StartURLs,
		Chunks:     result.IngestedCount,
		ContentIDs: result.ContentIDs,
		FinishedAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("ingest: publish completed event", "error", err, "event_id", ev.ID)
	}
}
