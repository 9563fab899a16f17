package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"PageVault/internal/config"
	"PageVault/internal/domain"
	"PageVault/internal/ports"
)

// Client talks to the external scraping service for content extraction,
// link discovery (map) and web search.
type Client struct {
	baseURL        string
	apiKey         string
	country        string
	languages      []string
	searchLocation string
	searchRecency  string
	http           *http.Client
}

var _ ports.Extractor = (*Client)(nil)

// NewClient creates a reusable HTTP client from configuration.
func NewClient(cfg config.ExtractionConfig) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		country:        cfg.Country,
		languages:      cfg.Languages,
		searchLocation: cfg.SearchLocation,
		searchRecency:  cfg.SearchRecency,
		http:           &http.Client{Timeout: 60 * time.Second},
	}
}

// extractSchema constrains the structured-JSON rendering requested
// alongside markdown in every scrape call.
var extractSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"author":      map[string]interface{}{"type": []string{"string", "null"}},
		"publishedAt": map[string]interface{}{"type": []string{"string", "null"}},
	},
}

type scrapeResponse struct {
	Data struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title   string `json:"title"`
			OGImage string `json:"ogImage"`
		} `json:"metadata"`
		JSON struct {
			Author      string `json:"author"`
			PublishedAt string `json:"publishedAt"`
		} `json:"json"`
	} `json:"data"`
}

type linksResponse struct {
	Links []domain.Link `json:"links"`
}

type searchResponse struct {
	Data struct {
		Web []domain.Link `json:"web"`
	} `json:"data"`
}

// Extract requests a main-content-only scrape with both a markdown and a
// schema-constrained JSON rendering. Any failure is reported as a single
// opaque error; the pipeline does not distinguish causes.
func (c *Client) Extract(ctx context.Context, url string) (domain.Extraction, error) {
	payload := map[string]interface{}{
		"url": url,
		"formats": []interface{}{
			"markdown",
			map[string]interface{}{"type": "json", "schema": extractSchema},
		},
		"proxy":           "auto",
		"onlyMainContent": true,
		"location":        c.location(),
	}

	var resp scrapeResponse
	if err := c.post(ctx, "/v2/scrape", payload, &resp); err != nil {
		return domain.Extraction{}, fmt.Errorf("extract %s: %w", url, err)
	}

	return domain.Extraction{
		Title:       resp.Data.Metadata.Title,
		Markdown:    resp.Data.Markdown,
		OGImage:     resp.Data.Metadata.OGImage,
		Author:      resp.Data.JSON.Author,
		PublishedAt: resp.Data.JSON.PublishedAt,
	}, nil
}

// DiscoverLinks enumerates candidate URLs under a seed URL, optionally
// filtered by keyword. Read-only, no persistence side effect.
func (c *Client) DiscoverLinks(ctx context.Context, url string, limit int, filter string) ([]domain.Link, error) {
	payload := map[string]interface{}{
		"url":      url,
		"limit":    limit,
		"location": c.location(),
	}
	if filter != "" {
		payload["search"] = filter
	}

	var resp linksResponse
	if err := c.post(ctx, "/v2/map", payload, &resp); err != nil {
		return nil, fmt.Errorf("map %s: %w", url, err)
	}

	return resp.Links, nil
}

// SearchWeb runs a topic search and returns link descriptors.
func (c *Client) SearchWeb(ctx context.Context, query string, limit int) ([]domain.Link, error) {
	payload := map[string]interface{}{
		"query":    query,
		"limit":    limit,
		"location": c.searchLocation,
		"tbs":      c.searchRecency,
	}

	var resp searchResponse
	if err := c.post(ctx, "/v2/search", payload, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	return resp.Data.Web, nil
}

func (c *Client) location() map[string]interface{} {
	return map[string]interface{}{
		"country":   c.country,
		"languages": c.languages,
	}
}

func (c *Client) post(ctx context.Context, path string, payload, v interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
