// Package domain defines the data model and error taxonomy shared by the
// scrape, ingest and search flows.
package domain

import "encoding/json"

// ScrapedItem is one page returned by the scraping service, already resolved
// to its url, title and body text.
type ScrapedItem struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
}

// Chunk is a bounded slice of a scraped item's text.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// IngestResult accumulates store responses across every chunk of a request.
// A nil entry in ContentIDs marks a chunk whose store response had no id.
type IngestResult struct {
	IngestedCount int       `json:"ingested_chunks"`
	ContentIDs    []*string `json:"content_ids"`
}

// SearchResult is one match returned by the content store.
type SearchResult struct {
	ContentID *string  `json:"content_id"`
	Title     *string  `json:"title"`
	Score     *float64 `json:"score"`
	ChunkText *string  `json:"chunk"`
}

// SearchMeta carries store-reported timing and totals, passed through untouched.
type SearchMeta struct {
	TotalResults     *json.Number `json:"total_results"`
	ProcessingTimeMs *float64     `json:"processing_time_ms"`
}

// SearchResponse is the reshaped store search payload.
type SearchResponse struct {
	Answer  *string        `json:"answer"`
	Results []SearchResult `json:"results"`
	Meta    SearchMeta     `json:"meta"`
}
