package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogle_TopSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx1", q.Get("cx"))
		assert.Equal(t, "who wrote hamlet", q.Get("q"))
		assert.Equal(t, "1", q.Get("num"))
		fmt.Fprint(w, `{"items":[{"title":"Hamlet","snippet":"Hamlet is a tragedy by William Shakespeare."}]}`)
	}))
	defer server.Close()

	g := NewGoogle(server.URL, "k", "cx1", 0)
	snippet, err := g.Search(context.Background(), "who wrote hamlet")
	require.NoError(t, err)
	assert.Equal(t, "Hamlet is a tragedy by William Shakespeare.", snippet)
}

func TestGoogle_NoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"searchInformation":{"totalResults":"0"}}`)
	}))
	defer server.Close()

	_, err := NewGoogle(server.URL, "k", "cx", 0).Search(context.Background(), "zzzz")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGoogle_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"API key not valid"}}`)
	}))
	defer server.Close()

	_, err := NewGoogle(server.URL, "bad", "cx", 0).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

const ddgPage = `<html><body>
<div class="result results_links">
  <h2><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&amp;rut=x">The <b>Go</b> Programming Language</a></h2>
  <a class="result__snippet" href="#">Go is an open source programming   language.</a>
</div>
<div class="result results_links">
  <h2><a rel="nofollow" class="result__a" href="https://example.com/">Second</a></h2>
  <a class="result__snippet" href="#">Another snippet</a>
</div>
</body></html>`

func TestDuckDuckGo_Results(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/html/", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, ddgPage)
	}))
	defer server.Close()

	d := NewDuckDuckGo(server.URL, 0)
	results, err := d.Results(context.Background(), "golang", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{
		Title:   "The Go Programming Language",
		URL:     "https://go.dev/",
		Snippet: "Go is an open source programming language.",
	}, results[0])

	snippet, err := d.Search(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, "Go is an open source programming language.", snippet)
}

func TestDuckDuckGo_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="no-results">No results.</div></body></html>`)
	}))
	defer server.Close()

	_, err := NewDuckDuckGo(server.URL, 0).Search(context.Background(), "zzzz")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestReply(t *testing.T) {
	text, ok := Reply("snippet", nil)
	assert.Equal(t, "snippet", text)
	assert.True(t, ok)

	text, ok = Reply("", nil)
	assert.Equal(t, NoSnippet, text)
	assert.False(t, ok)

	text, ok = Reply("", ErrNoResults)
	assert.Equal(t, NoResults, text)
	assert.False(t, ok)

	text, ok = Reply("", errors.New("HTTP 500"))
	assert.Equal(t, "An error occurred: HTTP 500", text)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	s, err := New(Options{APIKey: "k", EngineID: "cx"})
	require.NoError(t, err)
	assert.Equal(t, "google", s.Name())

	s, err = New(Options{Engine: EngineAuto, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", s.Name())

	_, err = New(Options{Engine: EngineGoogle})
	assert.Error(t, err)

	_, err = New(Options{Engine: "bing"})
	assert.Error(t, err)
}
