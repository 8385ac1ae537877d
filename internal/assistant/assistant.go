// Package assistant ties the fact store, the question answering and grammar
// models, and web search together behind the operations the CLI exposes.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeanpaul/pal/internal/knowledge"
	"github.com/jeanpaul/pal/internal/logging"
	"github.com/jeanpaul/pal/internal/qa"
	"github.com/jeanpaul/pal/internal/search"
)

type Source string

const (
	SourceKnowledge Source = "knowledge"
	SourceContext   Source = "context"
	SourceWeb       Source = "web"
	SourceError     Source = "error"
)

// GrammarErrorPrefix starts the reply FixGrammar gives when the model failed.
const GrammarErrorPrefix = "Error during grammar correction: "

type Answer struct {
	Question string
	Text     string
	Source   Source
}

type QuestionAnswerer interface {
	Answer(ctx context.Context, question, passage string) (string, error)
}

type GrammarFixer interface {
	Fix(ctx context.Context, sentence string) (string, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Deps struct {
	Knowledge *knowledge.Store
	QA        QuestionAnswerer
	Grammar   GrammarFixer
	Search    search.Searcher
	Pages     PageFetcher // optional; without it URL contexts are used verbatim
	Logger    logging.Logger
}

type Assistant struct {
	kb      *knowledge.Store
	qa      QuestionAnswerer
	grammar GrammarFixer
	search  search.Searcher
	pages   PageFetcher
	log     logging.Logger
}

func New(d Deps) *Assistant {
	log := d.Logger
	if log == nil {
		log = logging.NewStub()
	}
	return &Assistant{
		kb:      d.Knowledge,
		qa:      d.QA,
		grammar: d.Grammar,
		search:  d.Search,
		pages:   d.Pages,
		log:     log,
	}
}

// Ask answers every part of a compound question. Known questions come from
// the fact store; the rest are answered from the context when one is given,
// or from a web search otherwise. New answers are remembered.
func (a *Assistant) Ask(ctx context.Context, passage, question string) []Answer {
	passage = strings.TrimSpace(passage)
	r := &reader{a: a, raw: passage}

	var answers []Answer
	for _, q := range qa.Split(question) {
		switch {
		case a.known(q):
			e, _ := a.kb.Lookup(q)
			answers = append(answers, Answer{Question: q, Text: e.Text(), Source: SourceKnowledge})
		case passage != "":
			answers = append(answers, a.fromContext(ctx, q, r))
		default:
			answers = append(answers, a.fromWeb(ctx, q))
		}
	}
	return answers
}

func (a *Assistant) known(q string) bool {
	_, ok := a.kb.Lookup(q)
	return ok
}

func (a *Assistant) fromContext(ctx context.Context, q string, r *reader) Answer {
	text, err := r.text(ctx)
	if err == nil {
		text, err = a.qa.Answer(ctx, q, text)
	}
	if err != nil {
		a.log.Warnf("answer %q from context: %v", q, err)
		return Answer{Question: q, Text: "Error processing question: " + err.Error(), Source: SourceError}
	}
	if text != qa.NoAnswer {
		a.remember(q, text, r.raw)
	}
	return Answer{Question: q, Text: text, Source: SourceContext}
}

func (a *Assistant) fromWeb(ctx context.Context, q string) Answer {
	snippet, err := a.search.Search(ctx, q)
	if err != nil && !errors.Is(err, search.ErrNoResults) {
		a.log.Warnf("%s search for %q: %v", a.search.Name(), q, err)
	}
	text, ok := search.Reply(snippet, err)
	if !ok {
		return Answer{Question: q, Text: text, Source: SourceWeb}
	}
	a.remember(q, text, knowledge.SearchedOnline)
	return Answer{Question: q, Text: text, Source: SourceWeb}
}

func (a *Assistant) remember(q, answer, source string) {
	if err := a.kb.Remember(q, answer, source); err != nil {
		a.log.Warnf("remember %q: %v", q, err)
	}
}

// reader resolves the user's context once per Ask; a URL is fetched on first use.
type reader struct {
	a       *Assistant
	raw     string
	fetched bool
	body    string
	err     error
}

func (r *reader) text(ctx context.Context) (string, error) {
	if r.a.pages == nil || !search.IsURL(r.raw) {
		return r.raw, nil
	}
	if !r.fetched {
		r.fetched = true
		r.body, r.err = r.a.pages.Fetch(ctx, r.raw)
		if r.err != nil {
			r.err = fmt.Errorf("could not read %s: %w", r.raw, r.err)
		} else {
			r.a.log.Debugf("fetched %d bytes of context from %s", len(r.body), r.raw)
		}
	}
	return r.body, r.err
}

// FixGrammar returns the corrected sentence or a readable failure message.
func (a *Assistant) FixGrammar(ctx context.Context, sentence string) string {
	fixed, err := a.grammar.Fix(ctx, sentence)
	if err != nil {
		a.log.Warnf("grammar correction: %v", err)
		return GrammarErrorPrefix + err.Error()
	}
	return fixed
}

func (a *Assistant) Teach(key, value string) string {
	msg, err := a.kb.Learn(key, value)
	switch {
	case errors.Is(err, knowledge.ErrEmptyKey):
		return "Nothing to learn: the key is empty."
	case err != nil:
		a.log.Errorf("learn %q: %v", key, err)
		return "I couldn't save that: " + err.Error()
	}
	return msg
}

func (a *Assistant) Recall(key string) string {
	return a.kb.Retrieve(strings.TrimSpace(key))
}

func (a *Assistant) Forget(key string) string {
	key = strings.TrimSpace(key)
	err := a.kb.Forget(key)
	switch {
	case errors.Is(err, knowledge.ErrEmptyKey):
		return "Nothing to forget: the key is empty."
	case errors.Is(err, knowledge.ErrNotFound):
		return fmt.Sprintf("I don't know '%s', so there is nothing to forget.", key)
	case err != nil:
		a.log.Errorf("forget %q: %v", key, err)
		return "I couldn't forget that: " + err.Error()
	}
	return "I've forgotten: " + key
}

func (a *Assistant) Facts() []knowledge.Fact {
	return a.kb.Facts()
}
