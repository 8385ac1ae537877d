package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamHandler validates the request and streams the given content pieces back.
func streamHandler(t *testing.T, validation func(*oaiRequest), pieces ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		var req oaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if validation != nil {
			validation(&req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, p := range pieces {
			data, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{{"delta": map[string]any{"content": p}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestOpenAI_Complete(t *testing.T) {
	server := httptest.NewServer(streamHandler(t, func(req *oaiRequest) {
		assert.Equal(t, "qwen", req.Model)
		assert.True(t, req.Stream)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
			assert.Equal(t, "what?", req.Messages[1].Content)
		}
	}, "Par", "is"))
	defer server.Close()

	p := NewOpenAI("test", server.URL, "key", "qwen")
	out, err := Complete(context.Background(), p, "be brief", "what?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", out)
}

func TestOpenAI_ThinkingIsDropped(t *testing.T) {
	server := httptest.NewServer(streamHandler(t, nil, "<thi", "nk>let me see</th", "ink>Shakespeare"))
	defer server.Close()

	p := NewOpenAI("test", server.URL, "", "r1")
	out, err := Complete(context.Background(), p, "", "who wrote hamlet")
	require.NoError(t, err)
	assert.Equal(t, "Shakespeare", out)
}

func TestOpenAI_AuthorizationHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	_, err := Complete(context.Background(), NewOpenAI("test", server.URL, "sekret", "m"), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sekret", got)
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"model \"nope\" not found"}}`)
	}))
	defer server.Close()

	_, err := NewOpenAI("ollama", server.URL, "", "nope").Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, se.Retryable())
	assert.Contains(t, err.Error(), `model "nope" not found`)
}

func TestOpenAI_Models(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"id":"llama3.2"},{"id":"qwen2.5:7b"}]}`)
	}))
	defer server.Close()

	models, err := NewOpenAI("ollama", server.URL+"/", "", "").Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2", "qwen2.5:7b"}, models)
}
