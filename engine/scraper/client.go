// Package scraper is a thin client for the web-scraping service's query
// endpoint. It turns a set of start URLs into scraped markdown pages.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/AditiJR/EuclidPublic/engine/domain"
	"github.com/AditiJR/EuclidPublic/pkg/fn"
	"github.com/AditiJR/EuclidPublic/pkg/resilience"
)

// DefaultBaseURL is the standby endpoint of the RAG web browser actor.
const DefaultBaseURL = "https://rag-web-browser.apify.actor"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// Options configures the scrape client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Breaker, when set, guards every call to the service.
	Breaker *resilience.Breaker
}

// Client calls the scraping service.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// New creates a client authenticating with token.
func New(token string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Client{
		token:      token,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		breaker:    opts.Breaker,
	}
}

// Search scrapes the pages for queries, joined into a single space-separated
// query string, returning at most maxResults items. Items without body text
// are dropped.
func (c *Client) Search(ctx context.Context, queries []string, maxResults int) ([]domain.ScrapedItem, error) {
	var raw []rawItem
	call := func(ctx context.Context) error {
		var err error
		raw, err = c.search(ctx, strings.Join(queries, " "), maxResults)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	items := fn.FilterMap(raw, func(it rawItem) (domain.ScrapedItem, bool) {
		u, title, body := it.resolve()
		return domain.ScrapedItem{SourceURL: u, Title: title, Markdown: body}, strings.TrimSpace(body) != ""
	})
	if items == nil {
		items = []domain.ScrapedItem{}
	}
	return items, nil
}

func (c *Client) search(ctx context.Context, query string, maxResults int) ([]rawItem, error) {
	params := url.Values{
		"query":      {query},
		"maxResults": {strconv.Itoa(maxResults)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.UpstreamError{Service: "scraper", Status: resp.StatusCode, Body: string(body)}
	}

	var items []rawItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("scraper: decode response: %w", err)
	}
	return items, nil
}
