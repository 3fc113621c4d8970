// Package docsearch provides the HTTP client for the external documentation
// search service. The service is consumed as-is; this package only implements
// its query/response contract.
//
// Retrieval is best-effort: a non-200 response or a malformed body yields
// zero matches rather than an error, so a flaky search backend degrades a
// run instead of failing it. Only transport-level problems surface as errors.
package docsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

// Searcher is the documentation lookup capability consumed by specialist agents.
type Searcher interface {
	// Search returns up to pageSize command matches for the query, best first.
	Search(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error)
}

// searchResponse mirrors the service's JSON response envelope.
type searchResponse struct {
	Results []struct {
		Document struct {
			Name        string `json:"name"`
			Category    string `json:"category"`
			PluginName  string `json:"pluginName"`
			Description string `json:"description"`
			Syntax      string `json:"syntax"`
			Parameters  string `json:"parameters"`
			SourceFile  string `json:"sourceFile"`
			LicenseTier string `json:"licenseTier"`
		} `json:"document"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Client queries the documentation search service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a search client for the service at baseURL.
// A nil logger discards diagnostics.
func NewClient(baseURL string, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// Search queries the service with GET /search?query=...&pageSize=...
// The query should be the bare subtask description, never the full user request.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("build search URL: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("pageSize", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnf("search returned status %d for query %q, treating as zero results", resp.StatusCode, query)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.log.Warnf("malformed search response for query %q: %v", query, err)
		return nil, nil
	}

	matches := make([]models.CommandMatch, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		matches = append(matches, models.CommandMatch{
			Name:        r.Document.Name,
			Syntax:      r.Document.Syntax,
			Parameters:  r.Document.Parameters,
			Description: r.Document.Description,
			SourceFile:  r.Document.SourceFile,
			LicenseTier: r.Document.LicenseTier,
			Category:    r.Document.Category,
			PluginName:  r.Document.PluginName,
			Score:       r.Score,
		})
	}

	return matches, nil
}
