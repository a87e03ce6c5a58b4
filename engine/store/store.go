// Package store is a thin client for the RAG content store: raw-content
// ingestion and search.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AditiJR/EuclidPublic/engine/domain"
	"github.com/AditiJR/EuclidPublic/pkg/resilience"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the store API root used when none is configured.
const DefaultBaseURL = "https://sdk.senso.ai/api/v1"

const maxErrorBody = 64 << 10

// Options configures the store client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// RateLimit paces outgoing calls in requests per second. Zero means unlimited.
	RateLimit float64
	// Breaker, when set, guards every call to the store.
	Breaker *resilience.Breaker
}

// Client calls the content store.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *resilience.Breaker
}

// New creates a client authenticating with apiKey.
func New(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  opts.HTTPClient,
		rateLimiter: rate.NewLimiter(limit, 1),
		breaker:     opts.Breaker,
	}
}

// RawContent is the store's reply to a raw ingestion. ID is nil when the
// response carried neither "id" nor "content_id".
type RawContent struct {
	ID *string
}

type rawContentRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Text    string `json:"text"`
}

type rawContentResponse struct {
	ID        *FlexString `json:"id"`
	ContentID *FlexString `json:"content_id"`
}

// FlexString decodes a JSON string or number as its literal text. Other JSON
// values decode to the empty string.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*f = FlexString(t)
	case json.Number:
		*f = FlexString(t.String())
	default:
		*f = ""
	}
	return nil
}

// Ptr returns the text as a *string, nil when f is nil.
func (f *FlexString) Ptr() *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

// nonEmpty returns the text of f, nil when absent or empty.
func (f *FlexString) nonEmpty() *string {
	if f == nil || *f == "" {
		return nil
	}
	return f.Ptr()
}

// IngestRaw uploads one piece of text content.
func (c *Client) IngestRaw(ctx context.Context, title, summary, text string) (RawContent, error) {
	var resp rawContentResponse
	if err := c.post(ctx, "/content/raw", rawContentRequest{Title: title, Summary: summary, Text: text}, &resp); err != nil {
		return RawContent{}, err
	}
	id := resp.ID.nonEmpty()
	if id == nil {
		id = resp.ContentID.nonEmpty()
	}
	return RawContent{ID: id}, nil
}

// SearchRequest is the store search body. Empty filters are omitted.
type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	CategoryID string `json:"category_id,omitempty"`
	TopicID    string `json:"topic_id,omitempty"`
}

// SearchHit is one raw result entry.
type SearchHit struct {
	ContentID *FlexString `json:"content_id"`
	Title     *string     `json:"title"`
	Score     *float64    `json:"score"`
	ChunkText *string     `json:"chunk_text"`
}

// SearchPayload is the raw store search response. TotalResults keeps the
// number exactly as the store wrote it.
type SearchPayload struct {
	Answer           *string      `json:"answer"`
	Results          []SearchHit  `json:"results"`
	TotalResults     *json.Number `json:"total_results"`
	ProcessingTimeMs *float64     `json:"processing_time_ms"`
}

// Search runs a RAG search against ingested content.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchPayload, error) {
	var resp SearchPayload
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		return SearchPayload{}, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("store %s: %w", path, err)
	}
	call := func(ctx context.Context) error { return c.do(ctx, path, in, out) }
	if c.breaker != nil {
		return c.breaker.Call(ctx, call)
	}
	return call(ctx)
}

func (c *Client) do(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("store %s: encode: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("store %s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.UpstreamError{Service: "store", Status: resp.StatusCode, Body: string(msg)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("store %s: decode response: %w", path, err)
	}
	return nil
}
