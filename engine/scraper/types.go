package scraper

import "strings"

// rawItem is one dataset entry as returned by the scraping service. Every
// field is optional; resolve applies the documented precedence.
type rawItem struct {
	URL      *string      `json:"url"`
	Markdown *string      `json:"markdown"`
	Text     *string      `json:"text"`
	Metadata *rawMetadata `json:"metadata"`
}

type rawMetadata struct {
	URL   *string `json:"url"`
	Title *string `json:"title"`
}

const (
	unknownURL    = "unknown"
	untitledTitle = "Untitled"
)

// firstNonEmpty returns the first non-nil, non-blank value.
func firstNonEmpty(vals ...*string) (string, bool) {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v, true
		}
	}
	return "", false
}

// resolve extracts url, title and body from a raw item.
//
//	url:   metadata.url → url → "unknown"
//	title: metadata.title → resolved url → "Untitled"
//	body:  markdown → text
func (it rawItem) resolve() (url, title, body string) {
	var metaURL, metaTitle *string
	if it.Metadata != nil {
		metaURL, metaTitle = it.Metadata.URL, it.Metadata.Title
	}

	rawURL, hasURL := firstNonEmpty(metaURL, it.URL)
	url = rawURL
	if !hasURL {
		url = unknownURL
	}

	title, ok := firstNonEmpty(metaTitle)
	if !ok {
		title = rawURL
		if !hasURL {
			title = untitledTitle
		}
	}

	body, _ = firstNonEmpty(it.Markdown, it.Text)
	return url, title, body
}
