package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgPage = `<html><body>
<div class="result results_links">
  <h2><a class="result__a" href="https://example.com/everest">Everest</a></h2>
  <a class="result__snippet" href="#">Mount Everest is Earth's highest mountain.</a>
</div>
</body></html>`

// fakeBackend serves an OpenAI-compatible model and a DuckDuckGo results page.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"tiny"}]}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		user := req.Messages[len(req.Messages)-1].Content
		reply := "NO_ANSWER"
		switch {
		case strings.HasPrefix(user, "fix grammatical errors: "):
			reply = "She goes home."
		case strings.Contains(user, "Paris") && strings.Contains(user, "capital"):
			reply = "Paris"
		}
		data, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"delta": map[string]any{"content": reply}}},
		})
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\ndata: [DONE]\n\n", data)
	})
	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, ddgPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	cfgFile string
	kbPath  string
}

func newEnv(t *testing.T) env {
	t.Helper()
	srv := fakeBackend(t)
	dir := t.TempDir()
	e := env{
		cfgFile: filepath.Join(dir, "config.yaml"),
		kbPath:  filepath.Join(dir, "knowledge_base.json"),
	}
	cfg := fmt.Sprintf(`providers:
  local:
    type: openai
    base_url: %[1]s/v1
    model: tiny
qa:
  provider: local
grammar:
  provider: local
search:
  engine: duckduckgo
  base_url: %[1]s
  timeout: 5s
knowledge:
  path: %[2]s
log:
  level: error
`, srv.URL, e.kbPath)
	require.NoError(t, os.WriteFile(e.cfgFile, []byte(cfg), 0o644))
	return e
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.cfgFile}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTeachRecallForget(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "teach", "capital of france", "Paris")
	require.NoError(t, err)
	assert.Equal(t, "I've learned: capital of france -> Paris\n", out)

	out, err = e.run(t, "", "recall", "capital of frnce")
	require.NoError(t, err)
	assert.Equal(t, "My answer: Did you mean 'capital of france'? Paris\n", out)

	out, err = e.run(t, "", "facts")
	require.NoError(t, err)
	assert.Contains(t, out, "| capital of france | Paris | taught |")

	out, err = e.run(t, "", "forget", "capital of france")
	require.NoError(t, err)
	assert.Equal(t, "I've forgotten: capital of france\n", out)

	data, err := os.ReadFile(e.kbPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestAsk_ContextAndWeb(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "ask", "--context", "Paris is the capital of France.", "what is the capital")
	require.NoError(t, err)
	assert.Equal(t, "Q: what is the capital\nA: Paris\n\n", out)

	out, err = e.run(t, "", "ask", "tallest", "mountain")
	require.NoError(t, err)
	assert.Equal(t, "Q: tallest mountain\nA: Mount Everest is Earth's highest mountain.\n\n", out)

	var kb map[string]map[string]string
	data, err := os.ReadFile(e.kbPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &kb))
	assert.Equal(t, "Paris is the capital of France.", kb["what is the capital"]["context"])
	assert.Equal(t, "Searched online", kb["tallest mountain"]["context"])

	// The stored answer now short-circuits the model.
	out, err = e.run(t, "", "ask", "--context", "unrelated", "what is the capital")
	require.NoError(t, err)
	assert.Equal(t, "Q: what is the capital\nA: Paris\n\n", out)
}

func TestFix_Diff(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "fix", "--diff", "She", "go", "home.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Corrected Sentence: She goes home.\n"))
	assert.Contains(t, out, "-She go home.")
	assert.Contains(t, out, "+She goes home.")
}

func TestInteractiveMenu(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "3\ncolor\nblue\n4\ncolr\nexit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to Your AI!")
	assert.Contains(t, out, "I've learned: color -> blue")
	assert.Contains(t, out, "My answer: Did you mean 'color'? blue")
	assert.True(t, strings.HasSuffix(out, "Goodbye!\n"))
}

func TestDoctor(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "doctor")
	require.NoError(t, err, out)
	assert.Contains(t, out, "local (qa, grammar)")
	assert.Contains(t, out, "✓ duckduckgo")
	assert.Contains(t, out, "All services healthy!")
}

func TestProviders(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "local  openai")
	assert.Contains(t, out, "[qa, grammar]")
	assert.Contains(t, out, "ollama  openai  http://localhost:11434/v1")
}

func TestInitAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pal.yaml")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"init", path})
	require.NoError(t, root.Execute())
	assert.FileExists(t, path)

	root = newRootCmd()
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "pal dev"))
}

func TestBadConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("knowledge:\n  cutoff: 2\n"), 0o644))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "facts"})
	assert.Error(t, root.Execute())
}
