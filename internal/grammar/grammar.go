package grammar

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeanpaul/pal/internal/logging"
	"github.com/jeanpaul/pal/internal/provider"
)

// TaskPrefix is the instruction prefix that seq2seq grammar models are
// trained on; instruction-tuned models follow it as well.
const TaskPrefix = "fix grammatical errors: "

// UnexpectedResult is shown when the model echoes its input back unchanged.
const UnexpectedResult = "The grammar model returned unexpected results. Please verify the model."

const defaultMaxTokens = 512

const systemPrompt = `You are a grammar correction model.
Rewrite the sentence after "` + TaskPrefix + `" with its grammar, spelling and punctuation fixed.
Keep the meaning and wording otherwise unchanged. Reply with the corrected sentence only.`

type Corrector struct {
	prov      provider.Provider
	maxTokens int
	log       logging.Logger
}

func NewCorrector(p provider.Provider, maxTokens int, log logging.Logger) *Corrector {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if log == nil {
		log = logging.NewStub()
	}
	return &Corrector{prov: p, maxTokens: maxTokens, log: log}
}

// Fix returns the corrected sentence. The error is non-nil only when the
// backend fails; an echoed prompt is reported through UnexpectedResult.
func (c *Corrector) Fix(ctx context.Context, sentence string) (string, error) {
	input := TaskPrefix + truncateTokens(strings.TrimSpace(sentence), c.maxTokens)

	raw, err := provider.Complete(ctx, c.prov, systemPrompt, input)
	if err != nil {
		return "", fmt.Errorf("grammar model %s: %w", c.prov.ModelName(), err)
	}
	c.log.Debugf("grammar raw output: %q", raw)

	corrected := strings.TrimSpace(strings.TrimPrefix(raw, TaskPrefix))
	if strings.EqualFold(strings.TrimSpace(raw), input) || corrected == "" {
		return UnexpectedResult, nil
	}
	return corrected, nil
}

// truncateTokens keeps the first n whitespace-separated tokens of s.
func truncateTokens(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return s
	}
	return strings.Join(fields[:n], " ")
}
