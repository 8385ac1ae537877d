package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleBaseURL = "https://www.googleapis.com"

// Google queries the Custom Search JSON API and keeps only the top result.
type Google struct {
	baseURL  string
	apiKey   string
	engineID string
	client   *http.Client
}

func NewGoogle(baseURL, apiKey, engineID string, timeout time.Duration) *Google {
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	return &Google{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		engineID: engineID,
		client:   newClient(timeout),
	}
}

func (g *Google) Name() string { return "google" }

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Google) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/customsearch/v1?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result googleResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &result) == nil && result.Error != nil && result.Error.Message != "" {
			return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, result.Error.Message)
		}
		return "", fmt.Errorf("HTTP %d from custom search", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode custom search response: %w", err)
	}
	if len(result.Items) == 0 {
		return "", ErrNoResults
	}
	return strings.TrimSpace(result.Items[0].Snippet), nil
}
