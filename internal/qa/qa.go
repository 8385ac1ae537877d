// Package qa answers questions from a user-supplied passage with a language
// model used as an extractive reader.
package qa

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jeanpaul/pal/internal/logging"
	"github.com/jeanpaul/pal/internal/provider"
)

// NoAnswer is returned when the passage does not contain the answer.
const NoAnswer = "I couldn't find an answer."

const noAnswerMarker = "NO_ANSWER"

// maxContextRunes caps the passage sent to the model; fetched web pages can
// be far larger than any model window.
const maxContextRunes = 16000

const systemPrompt = `You are an extractive question answering model.
Answer the question using ONLY a short span copied verbatim from the context.
Reply with the span alone: no explanation, no full sentence, no quotes.
If the context does not contain the answer, reply with exactly ` + noAnswerMarker + `.`

type Answerer struct {
	prov provider.Provider
	log  logging.Logger
}

func NewAnswerer(p provider.Provider, log logging.Logger) *Answerer {
	if log == nil {
		log = logging.NewStub()
	}
	return &Answerer{prov: p, log: log}
}

// Answer extracts the answer to question from passage.
func (a *Answerer) Answer(ctx context.Context, question, passage string) (string, error) {
	passage = truncateRunes(strings.TrimSpace(passage), maxContextRunes)
	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s\nAnswer:", passage, question)

	reply, err := provider.Complete(ctx, a.prov, systemPrompt, user)
	if err != nil {
		return "", err
	}
	a.log.Debugf("qa raw reply for %q: %q", question, reply)

	answer := cleanAnswer(reply)
	if answer == "" || strings.EqualFold(strings.Trim(answer, "."), noAnswerMarker) {
		return NoAnswer, nil
	}
	return answer, nil
}

var answerPrefixRe = regexp.MustCompile(`(?i)^answer\s*:\s*`)

func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	s = answerPrefixRe.ReplaceAllString(s, "")
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'`“”‘’ ")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
