// Package health backs `pal doctor`: it checks that the configured model
// backends and the search engine answer.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jeanpaul/pal/internal/provider"
	"github.com/jeanpaul/pal/internal/search"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	googleBaseURL    = "https://generativelanguage.googleapis.com"
)

type Status struct {
	Provider  string
	BaseURL   string
	Reachable bool
	Models    []string
	Error     string
	Latency   time.Duration
}

// listing is the model-listing request used to probe one backend.
type listing struct {
	url    string
	header http.Header
	// items names the JSON array of models and field the id inside each.
	items, field string
}

func listingFor(providerType, baseURL, apiKey string) (listing, error) {
	h := http.Header{}
	switch providerType {
	case "openai":
		if apiKey != "" {
			h.Set("Authorization", "Bearer "+apiKey)
		}
		return listing{url: strings.TrimRight(baseURL, "/") + "/models", header: h, items: "data", field: "id"}, nil
	case "anthropic":
		if apiKey == "" {
			return listing{}, errors.New("no API key configured (set ANTHROPIC_API_KEY)")
		}
		h.Set("x-api-key", apiKey)
		h.Set("anthropic-version", "2023-06-01")
		return listing{url: orDefault(baseURL, anthropicBaseURL) + "/v1/models", header: h, items: "data", field: "id"}, nil
	case "google":
		if apiKey == "" {
			return listing{}, errors.New("no API key configured (set GEMINI_API_KEY)")
		}
		h.Set("x-goog-api-key", apiKey)
		return listing{url: orDefault(baseURL, googleBaseURL) + "/v1beta/models?pageSize=50", header: h, items: "models", field: "name"}, nil
	}
	return listing{}, fmt.Errorf("unknown provider type: %s", providerType)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return strings.TrimRight(s, "/")
}

// Check lists the models of a backend. A listing that cannot be decoded
// still counts as reachable.
func Check(ctx context.Context, providerType, baseURL, apiKey string) (s Status) {
	s = Status{Provider: providerType, BaseURL: baseURL}
	l, err := listingFor(providerType, baseURL, apiKey)
	if err != nil {
		s.Error = err.Error()
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	start := time.Now()
	defer func() { s.Latency = time.Since(start) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	req.Header = l.header

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.Error = "cannot reach backend: " + provider.FriendlyError(err)
		return s
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		s.Error = "authentication failed, check your API key"
		return s
	case resp.StatusCode != http.StatusOK:
		s.Error = fmt.Sprintf("endpoint returned HTTP %d", resp.StatusCode)
		return s
	}

	s.Reachable = true
	s.Models = modelIDs(resp, l)
	return s
}

func modelIDs(resp *http.Response, l listing) []string {
	var body map[string]json.RawMessage
	var items []map[string]any
	if json.NewDecoder(resp.Body).Decode(&body) != nil || json.Unmarshal(body[l.items], &items) != nil {
		return nil
	}
	var ids []string
	for _, m := range items {
		if id, ok := m[l.field].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CheckModel reports a model the backend does not serve. Only
// OpenAI-compatible backends are checked.
func CheckModel(ctx context.Context, providerType, baseURL, apiKey, model string) error {
	if providerType != "openai" {
		return nil
	}
	s := Check(ctx, providerType, baseURL, apiKey)
	if !s.Reachable {
		return fmt.Errorf("provider not reachable: %s", s.Error)
	}
	if len(s.Models) == 0 || slices.Contains(s.Models, model) {
		return nil
	}
	return fmt.Errorf("model %q not found; available: %s", model, strings.Join(s.Models, ", "))
}

// CheckSearch runs a single query against the search backend. An empty
// result set still counts as reachable.
func CheckSearch(ctx context.Context, s search.Searcher) Status {
	st := Status{Provider: s.Name()}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	start := time.Now()
	_, err := s.Search(ctx, "hello world")
	st.Latency = time.Since(start)
	if err != nil && !errors.Is(err, search.ErrNoResults) {
		st.Error = provider.FriendlyError(err)
		return st
	}
	st.Reachable = true
	return st
}
