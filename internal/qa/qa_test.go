package qa

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/pal/internal/provider"
)

type replyProvider struct {
	reply string
	err   error
	last  []provider.Message
}

func (p *replyProvider) Chat(_ context.Context, msgs []provider.Message) (<-chan provider.StreamChunk, error) {
	p.last = msgs
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan provider.StreamChunk, 2)
	ch <- provider.StreamChunk{Delta: p.reply}
	ch <- provider.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}
func (p *replyProvider) Name() string                             { return "fake" }
func (p *replyProvider) ModelName() string                        { return "fake-model" }
func (p *replyProvider) Models(context.Context) ([]string, error) { return nil, nil }

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"What is Go?", []string{"What is Go?"}},
		{"who is Ada and when was she born", []string{"who is Ada", "when was she born"}},
		{"what is Android", []string{"what is Android"}},
		{"a and  and b", []string{"a", "b"}},
		{"x and x", []string{"x"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Split(tt.in), tt.in)
	}
}

func TestAnswer_ExtractsSpan(t *testing.T) {
	p := &replyProvider{reply: `"Paris"`}
	a := NewAnswerer(p, nil)

	got, err := a.Answer(context.Background(), "What is the capital of France?", "Paris is the capital of France.")
	require.NoError(t, err)
	assert.Equal(t, "Paris", got)

	require.Len(t, p.last, 2)
	assert.Equal(t, provider.RoleSystem, p.last[0].Role)
	assert.Contains(t, p.last[1].Content, "Paris is the capital of France.")
	assert.Contains(t, p.last[1].Content, "Question: What is the capital of France?")
}

func TestAnswer_NoAnswer(t *testing.T) {
	for _, reply := range []string{"NO_ANSWER", "no_answer.", "", "<think>not there</think>"} {
		a := NewAnswerer(&replyProvider{reply: reply}, nil)
		got, err := a.Answer(context.Background(), "q", "ctx")
		require.NoError(t, err)
		assert.Equal(t, NoAnswer, got, reply)
	}
}

func TestAnswer_ProviderError(t *testing.T) {
	a := NewAnswerer(&replyProvider{err: errors.New("boom")}, nil)
	_, err := a.Answer(context.Background(), "q", "ctx")
	assert.EqualError(t, err, "boom")
}

func TestAnswer_TruncatesLongContext(t *testing.T) {
	p := &replyProvider{reply: "x"}
	a := NewAnswerer(p, nil)

	_, err := a.Answer(context.Background(), "q", strings.Repeat("é", maxContextRunes+500))
	require.NoError(t, err)
	assert.Equal(t, maxContextRunes, strings.Count(p.last[1].Content, "é"))
}

func TestCleanAnswer(t *testing.T) {
	assert.Equal(t, "1969", cleanAnswer("Answer: 1969"))
	assert.Equal(t, "Neil Armstrong", cleanAnswer("Neil Armstrong\nHe was the first."))
	assert.Equal(t, "Tokyo", cleanAnswer("“Tokyo”"))
}
