// Package exa exposes the Exa search API as agent tools: exa_search for
// neural/keyword web search with category and date filters, and
// exa_get_contents for full-text extraction from known URLs.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomdee2/samples/errors"
)

// DefaultBaseURL is the Exa API endpoint.
const DefaultBaseURL = "https://api.exa.ai"

// Client is a minimal Exa API client. Get an API key at
// https://dashboard.exa.ai/api-keys.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an Exa client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("EXA_API_KEY is not configured")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result is one search or contents hit.
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Summary       string `json:"summary,omitempty"`
	Text          string `json:"text,omitempty"`
}

type apiResponse struct {
	Results []Result `json:"results"`
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode Exa request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrapf(err, "could not build Exa request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "Exa request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read Exa response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("Exa API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out apiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrapf(err, "could not parse Exa response")
	}
	return out.Results, nil
}

// SearchRequest mirrors the parameters of POST /search.
type SearchRequest struct {
	Query              string        `json:"query"`
	Type               string        `json:"type,omitempty"` // "auto", "neural", "keyword"
	Category           string        `json:"category,omitempty"`
	NumResults         int           `json:"numResults,omitempty"`
	StartPublishedDate string        `json:"startPublishedDate,omitempty"`
	Contents           *ContentsOpts `json:"contents,omitempty"`
}

// ContentsOpts selects what content to return with each result.
type ContentsOpts struct {
	Text      *TextOpts    `json:"text,omitempty"`
	Summary   *SummaryOpts `json:"summary,omitempty"`
	LiveCrawl string       `json:"livecrawl,omitempty"` // "always", "fallback"
	Subpages  int          `json:"subpages,omitempty"`
	// SubpageTarget lists keywords that select which subpages to crawl,
	// e.g. "references" or "methodology".
	SubpageTarget []string `json:"subpageTarget,omitempty"`
}

// TextOpts bounds full-text extraction.
type TextOpts struct {
	MaxCharacters int `json:"maxCharacters,omitempty"`
}

// SummaryOpts requests an AI summary, optionally steered by a query.
type SummaryOpts struct {
	Query string `json:"query,omitempty"`
}

// Search performs a search with optional content extraction.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Result, error) {
	if req.Query == "" {
		return nil, errors.New("search query must not be empty")
	}
	if req.Type == "" {
		req.Type = "auto"
	}
	return c.post(ctx, "/search", req)
}

// GetContents retrieves page contents for known URLs.
func (c *Client) GetContents(ctx context.Context, urls []string, text *TextOpts, liveCrawl string) ([]Result, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one URL is required")
	}
	body := map[string]interface{}{"urls": urls}
	if text != nil {
		body["text"] = text
	}
	if liveCrawl != "" {
		body["livecrawl"] = liveCrawl
	}
	return c.post(ctx, "/contents", body)
}

// FormatResults renders results the way the research prompt expects them:
// title, URL and whichever of summary/text came back.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n", i+1, r.Title, r.URL)
		if r.PublishedDate != "" {
			fmt.Fprintf(&b, "   Published: %s\n", r.PublishedDate)
		}
		if r.Summary != "" {
			fmt.Fprintf(&b, "   Summary: %s\n", r.Summary)
		}
		if r.Text != "" {
			fmt.Fprintf(&b, "   Text: %s\n", r.Text)
		}
	}
	return b.String()
}
