package main

import (
	"encoding/json"
	"net/http"
	"sync"
)

func schemaRef(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{"application/json": map[string]any{"schema": schema}}
}

func errorResponseDoc(desc string) map[string]any {
	return map[string]any{"description": desc, "content": jsonContent(schemaRef("Error"))}
}

func nullable(typ string) map[string]any {
	return map[string]any{"type": typ, "nullable": true}
}

// openAPIDoc is the static description of the gateway, marshaled on first use.
var openAPIDoc = sync.OnceValue(func() []byte {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       "RAG Gateway",
			"version":     "1.0.0",
			"description": "Scrapes web pages into a RAG content store and searches it.",
		},
		"paths": map[string]any{
			"/ingest": map[string]any{
				"post": map[string]any{
					"operationId": "ingest",
					"summary":     "Scrape start URLs and ingest the chunked content",
					"requestBody": map[string]any{"required": true, "content": jsonContent(schemaRef("IngestRequest"))},
					"responses": map[string]any{
						"200": map[string]any{"description": "Chunks ingested", "content": jsonContent(schemaRef("IngestResult"))},
						"400": errorResponseDoc("Invalid request"),
						"500": errorResponseDoc("Upstream or internal failure"),
					},
				},
			},
			"/search": map[string]any{
				"post": map[string]any{
					"operationId": "search",
					"summary":     "Search the content store",
					"requestBody": map[string]any{"required": true, "content": jsonContent(schemaRef("SearchRequest"))},
					"responses": map[string]any{
						"200": map[string]any{"description": "Search results", "content": jsonContent(schemaRef("SearchResponse"))},
						"400": errorResponseDoc("Missing query"),
						"500": errorResponseDoc("Upstream or internal failure"),
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"IngestRequest": map[string]any{
					"type":     "object",
					"required": []string{"startUrls"},
					"properties": map[string]any{
						"startUrls":  map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}},
						"maxResults": map[string]any{"type": "integer", "default": 100},
					},
				},
				"IngestResult": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"ingested_chunks": map[string]any{"type": "integer"},
						"content_ids":     map[string]any{"type": "array", "items": nullable("string")},
					},
				},
				"SearchRequest": map[string]any{
					"type":     "object",
					"required": []string{"q"},
					"properties": map[string]any{
						"q":           map[string]any{"type": "string"},
						"max_results": map[string]any{"type": "integer", "default": 5},
						"category_id": map[string]any{"type": "string"},
						"topic_id":    map[string]any{"type": "string"},
					},
				},
				"SearchResult": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content_id": nullable("string"),
						"title":      nullable("string"),
						"score":      nullable("number"),
						"chunk":      nullable("string"),
					},
				},
				"SearchResponse": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"answer":  nullable("string"),
						"results": map[string]any{"type": "array", "items": schemaRef("SearchResult")},
						"meta": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"total_results":      nullable("number"),
								"processing_time_ms": nullable("number"),
							},
						},
					},
				},
				"Error": map[string]any{
					"type":       "object",
					"required":   []string{"error"},
					"properties": map[string]any{"error": map[string]any{"type": "string"}},
				},
			},
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
})

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(openAPIDoc())
}
