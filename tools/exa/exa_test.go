package exa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, wantPath string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		_ = json.NewEncoder(w).Encode(apiResponse{Results: []Result{
			{Title: "Solid state batteries", URL: "https://example.com/a", PublishedDate: "2026-08-01", Summary: "dense"},
		}})
	}))
}

func TestSearch(t *testing.T) {
	var body map[string]interface{}
	srv := newTestServer(t, "/search", &body)
	defer srv.Close()

	client, err := NewClient("secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	results, err := client.Search(context.Background(), SearchRequest{
		Query:              "battery technology",
		Category:           "research paper",
		NumResults:         3,
		StartPublishedDate: "2026-07-25",
		Contents:           &ContentsOpts{Summary: &SummaryOpts{Query: "battery advances"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Solid state batteries", results[0].Title)

	// Type defaults to auto when unset.
	assert.Equal(t, "auto", body["type"])
	assert.Equal(t, "battery technology", body["query"])
	assert.Equal(t, "2026-07-25", body["startPublishedDate"])
	assert.Equal(t, float64(3), body["numResults"])
}

func TestSearchRequiresQuery(t *testing.T) {
	client, err := NewClient("secret")
	require.NoError(t, err)
	_, err = client.Search(context.Background(), SearchRequest{})
	assert.Error(t, err)
}

func TestGetContents(t *testing.T) {
	var body map[string]interface{}
	srv := newTestServer(t, "/contents", &body)
	defer srv.Close()

	client, err := NewClient("secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.GetContents(context.Background(), []string{"https://example.com/a"}, &TextOpts{MaxCharacters: 1000}, "fallback")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"https://example.com/a"}, body["urls"])
	assert.Equal(t, "fallback", body["livecrawl"])

	_, err = client.GetContents(context.Background(), nil, nil, "")
	assert.Error(t, err)
}

func TestAPIErrorsAreSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient("secret", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Search(context.Background(), SearchRequest{Query: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		{Title: "A", URL: "https://example.com/a", PublishedDate: "2026-08-01", Summary: "short"},
		{Title: "B", URL: "https://example.com/b", Text: "full text"},
	})
	assert.Contains(t, out, "1. A")
	assert.Contains(t, out, "Published: 2026-08-01")
	assert.Contains(t, out, "2. B")
	assert.Contains(t, out, "Text: full text")

	assert.Equal(t, "No results found.", FormatResults(nil))
}
