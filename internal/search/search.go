// Package search looks questions up on the web when no context is given.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// NoResults is the reply when a search returns nothing.
	NoResults = "I couldn't find any relevant information on the internet."
	// NoSnippet is the reply when the top result carries no snippet.
	NoSnippet = "No relevant result found."
)

var ErrNoResults = errors.New("no search results")

const userAgent = "Mozilla/5.0 (compatible; pal/1.0)"

// Searcher returns the snippet of the best web result for a query.
// ErrNoResults is returned when the engine found nothing.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
	Name() string
}

// Reply turns a search outcome into the text shown to the user. The bool
// reports whether the text is a real answer worth remembering.
func Reply(snippet string, err error) (string, bool) {
	switch {
	case errors.Is(err, ErrNoResults):
		return NoResults, false
	case err != nil:
		return "An error occurred: " + err.Error(), false
	case snippet == "":
		return NoSnippet, false
	}
	return snippet, true
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

const (
	EngineAuto       = "auto"
	EngineGoogle     = "google"
	EngineDuckDuckGo = "duckduckgo"
)

type Options struct {
	Engine   string
	APIKey   string
	EngineID string
	BaseURL  string
	Timeout  time.Duration
}

// New picks a search backend. In auto mode Custom Search is used when both
// an API key and an engine id are configured, DuckDuckGo otherwise.
func New(o Options) (Searcher, error) {
	switch o.Engine {
	case "", EngineAuto:
		if o.APIKey != "" && o.EngineID != "" {
			return NewGoogle(o.BaseURL, o.APIKey, o.EngineID, o.Timeout), nil
		}
		return NewDuckDuckGo("", o.Timeout), nil
	case EngineGoogle:
		if o.APIKey == "" || o.EngineID == "" {
			return nil, errors.New("google search requires api_key and engine_id")
		}
		return NewGoogle(o.BaseURL, o.APIKey, o.EngineID, o.Timeout), nil
	case EngineDuckDuckGo:
		return NewDuckDuckGo(o.BaseURL, o.Timeout), nil
	}
	return nil, fmt.Errorf("unknown search engine %q", o.Engine)
}
