package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/pal/internal/search"
)

func TestCheck_OpenAICompat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":"qwen2.5:7b"},{"id":"phi3"}]}`))
	}))
	defer srv.Close()

	s := Check(context.Background(), "openai", srv.URL+"/v1", "")
	require.True(t, s.Reachable, s.Error)
	assert.Equal(t, []string{"qwen2.5:7b", "phi3"}, s.Models)
	assert.Equal(t, "openai", s.Provider)
}

func TestCheck_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := Check(context.Background(), "openai", srv.URL, "bad")
	assert.False(t, s.Reachable)
	assert.Contains(t, s.Error, "authentication failed")
}

func TestCheck_Anthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		w.Write([]byte(`{"data":[{"id":"claude-3-5-haiku-latest"}]}`))
	}))
	defer srv.Close()

	s := Check(context.Background(), "anthropic", srv.URL, "sk-ant")
	require.True(t, s.Reachable, s.Error)
	assert.Equal(t, []string{"claude-3-5-haiku-latest"}, s.Models)

	s = Check(context.Background(), "anthropic", srv.URL, "")
	assert.False(t, s.Reachable)
	assert.Contains(t, s.Error, "no API key")
}

func TestCheck_UnknownType(t *testing.T) {
	s := Check(context.Background(), "cohere", "", "")
	assert.False(t, s.Reachable)
	assert.Contains(t, s.Error, "unknown provider type")
}

func TestCheckModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"qwen2.5:7b"}]}`))
	}))
	defer srv.Close()

	assert.NoError(t, CheckModel(context.Background(), "openai", srv.URL, "", "qwen2.5:7b"))
	err := CheckModel(context.Background(), "openai", srv.URL, "", "llama3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qwen2.5:7b")
}

type fakeSearcher struct {
	err error
}

func (f fakeSearcher) Search(context.Context, string) (string, error) { return "snippet", f.err }
func (fakeSearcher) Name() string                                     { return "fake" }

func TestCheckSearch(t *testing.T) {
	assert.True(t, CheckSearch(context.Background(), fakeSearcher{}).Reachable)
	assert.True(t, CheckSearch(context.Background(), fakeSearcher{err: search.ErrNoResults}).Reachable)

	s := CheckSearch(context.Background(), fakeSearcher{err: errors.New("dial tcp: connection refused")})
	assert.False(t, s.Reachable)
	assert.Equal(t, "fake", s.Provider)
	assert.Contains(t, s.Error, "is the service running")
}

func TestCheck_GoogleListsModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		assert.Equal(t, "gk", r.Header.Get("x-goog-api-key"))
		w.Write([]byte(`{"models":[{"name":"models/gemini-2.0-flash"}],"nextPageToken":"x"}`))
	}))
	defer srv.Close()

	s := Check(context.Background(), "google", srv.URL, "gk")
	require.True(t, s.Reachable, s.Error)
	assert.Equal(t, []string{"models/gemini-2.0-flash"}, s.Models)
	assert.Positive(t, s.Latency)
}
