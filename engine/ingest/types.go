package ingest

import (
	"time"

	"github.com/AditiJR/EuclidPublic/engine/domain"
)

// Request is the input of one ingestion run.
type Request struct {
	StartURLs  []string
	MaxResults int
}

// Document is a scraped item prepared for upload: attributed and chunked.
type Document struct {
	Title     string
	SourceURL string
	Chunks    []domain.Chunk
}

// Upload is the store payload for a single chunk.
type Upload struct {
	Title   string
	Summary string
	Text    string
}

// CompletedEvent is published after a successful ingestion run.
type CompletedEvent struct {
	ID         string    `json:"id"`
	StartURLs  []string  `json:"start_urls"`
	Chunks     int       `json:"ingested_chunks"`
	ContentIDs []*string `json:"content_ids"`
	FinishedAt time.Time `json:"finished_at"`
}
