// Package azsearch is the knowledge backend adapter: read-only full-text
// queries and identifier lookups against an Azure AI Search index.
package azsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultAPIVersion = "2023-11-01"

	// recordSeparator terminates each rendered record in a search result
	// block; the conversational model is prompted to expect it.
	recordSeparator = "-----\n"

	maxSearchResults = 5
)

// Document is one retrievable chunk: a stable identifier, its source title,
// and the content passage.
type Document struct {
	ID      string `json:"chunk_id"`
	Title   string `json:"title"`
	Content string `json:"chunk"`
}

// Client issues queries against one search index. It is stateless and safe
// for concurrent use across call sessions; it performs no retries, so backend
// failures propagate to the caller.
type Client struct {
	endpoint   string
	index      string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

func NewClient(endpoint, index, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		index:      strings.TrimSpace(index),
		apiKey:     strings.TrimSpace(apiKey),
		apiVersion: defaultAPIVersion,
		httpClient: httpClient,
	}
}

// WithAPIVersion overrides the search API version.
func (c *Client) WithAPIVersion(version string) *Client {
	if c != nil && strings.TrimSpace(version) != "" {
		c.apiVersion = strings.TrimSpace(version)
	}
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.endpoint != "" && c.index != "" && c.apiKey != ""
}

// Search runs a full-text query and renders the top matches as a single
// source-tagged text block: "[id]: content" per record, each terminated by a
// fixed separator line. No matches yields an empty string, which callers must
// treat as "no information found", not an error.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	docs, err := c.query(ctx, map[string]any{
		"search": query,
		"top":    maxSearchResults,
		"select": "chunk_id,title,chunk",
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "[%s]: %s\n%s", doc.ID, doc.Content, recordSeparator)
	}
	return b.String(), nil
}

// Lookup resolves source identifiers back into full records for grounding.
// Identifiers absent from the index are silently omitted; order follows the
// backend's match order. Identifiers the filter cannot express are skipped,
// matching the silent-omission contract.
func (c *Client) Lookup(ctx context.Context, ids []string) ([]Document, error) {
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		// The disjunction list is comma-delimited, so an identifier carrying
		// the delimiter would split into bogus fragments. Single quotes are
		// doubled per OData string-literal escaping.
		if id == "" || strings.Contains(id, ",") {
			continue
		}
		filtered = append(filtered, strings.ReplaceAll(id, "'", "''"))
	}
	if len(filtered) == 0 {
		return nil, nil
	}
	return c.query(ctx, map[string]any{
		"search": "*",
		"filter": fmt.Sprintf("search.in(chunk_id, '%s', ',')", strings.Join(filtered, ",")),
		"top":    len(filtered),
		"select": "chunk_id,title,chunk",
	})
}

func (c *Client) query(ctx context.Context, body map[string]any) ([]Document, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("search backend is not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", c.endpoint, c.index, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("search error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		Value []Document `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Value, nil
}
