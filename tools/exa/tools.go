package exa

import (
	"context"

	"github.com/tomdee2/samples/errors"
)

// SearchTool exposes Exa search to the agent.
type SearchTool struct {
	Client *Client
}

func (t *SearchTool) Name() string { return "exa_search" }
func (t *SearchTool) Description() string {
	return "Searches the web with Exa. Supports auto/neural/keyword modes, category filters (news, pdf, github), " +
		"date filtering, AI summaries and live crawling. Args: query (string, required), category (string), " +
		"num_results (number), start_published_date (string, ISO 8601), summary_query (string), " +
		"max_characters (number), livecrawl (string), subpages (number), subpage_target (string)."
}

func (t *SearchTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query":                map[string]interface{}{"type": "string", "description": "The search query."},
			"category":             map[string]interface{}{"type": "string", "description": "Result category filter: news, pdf or github."},
			"num_results":          map[string]interface{}{"type": "number", "description": "How many results to return (default 5)."},
			"start_published_date": map[string]interface{}{"type": "string", "description": "Only return content published after this ISO 8601 date."},
			"summary_query":        map[string]interface{}{"type": "string", "description": "If set, request an AI summary of each result steered by this query."},
			"max_characters":       map[string]interface{}{"type": "number", "description": "Character limit for extracted text."},
			"livecrawl":            map[string]interface{}{"type": "string", "description": "'always' to bypass the cache, 'fallback' to crawl only when uncached."},
			"subpages":             map[string]interface{}{"type": "number", "description": "Number of related subpages to crawl per result."},
			"subpage_target":       map[string]interface{}{"type": "string", "description": "Keyword selecting which subpages to crawl, e.g. 'references'."},
		},
		"required": []string{"query"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", errors.New("missing or invalid 'query' argument")
	}

	req := SearchRequest{
		Query:      query,
		NumResults: 5,
	}
	if v, ok := args["category"].(string); ok {
		req.Category = v
	}
	if v, ok := args["num_results"].(float64); ok && v > 0 {
		req.NumResults = int(v)
	}
	if v, ok := args["start_published_date"].(string); ok {
		req.StartPublishedDate = v
	}

	contents := &ContentsOpts{}
	wantContents := false
	if v, ok := args["summary_query"].(string); ok && v != "" {
		contents.Summary = &SummaryOpts{Query: v}
		wantContents = true
	}
	if v, ok := args["max_characters"].(float64); ok && v > 0 {
		contents.Text = &TextOpts{MaxCharacters: int(v)}
		wantContents = true
	}
	if v, ok := args["livecrawl"].(string); ok && v != "" {
		contents.LiveCrawl = v
		wantContents = true
	}
	if v, ok := args["subpages"].(float64); ok && v > 0 {
		contents.Subpages = int(v)
		wantContents = true
	}
	if v, ok := args["subpage_target"].(string); ok && v != "" {
		contents.SubpageTarget = []string{v}
		wantContents = true
	}
	if wantContents {
		req.Contents = contents
	}

	results, err := t.Client.Search(ctx, req)
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}

// GetContentsTool exposes Exa full-text extraction to the agent.
type GetContentsTool struct {
	Client *Client
}

func (t *GetContentsTool) Name() string { return "exa_get_contents" }
func (t *GetContentsTool) Description() string {
	return "Retrieves full page content from known URLs via Exa. Args: urls (array of strings, required), " +
		"max_characters (number), livecrawl (string)."
}

func (t *GetContentsTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"urls": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "URLs to extract content from.",
			},
			"max_characters": map[string]interface{}{"type": "number", "description": "Character limit for extracted text."},
			"livecrawl":      map[string]interface{}{"type": "string", "description": "'always' to bypass the cache."},
		},
		"required": []string{"urls"},
	}
}

func (t *GetContentsTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	raw, ok := args["urls"].([]interface{})
	if !ok || len(raw) == 0 {
		return "", errors.New("missing or invalid 'urls' argument")
	}
	urls := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			urls = append(urls, s)
		}
	}
	if len(urls) == 0 {
		return "", errors.New("'urls' must contain at least one string")
	}

	var text *TextOpts
	if v, ok := args["max_characters"].(float64); ok && v > 0 {
		text = &TextOpts{MaxCharacters: int(v)}
	}
	liveCrawl, _ := args["livecrawl"].(string)

	results, err := t.Client.GetContents(ctx, urls, text, liveCrawl)
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}
