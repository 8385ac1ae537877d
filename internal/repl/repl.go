// Package repl runs the numbered interactive menu.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeanpaul/pal/internal/assistant"
	"github.com/jeanpaul/pal/internal/knowledge"
	"github.com/jeanpaul/pal/internal/logging"
	"github.com/jeanpaul/pal/internal/tui"
)

// Assistant is the part of assistant.Assistant the menu drives.
type Assistant interface {
	Ask(ctx context.Context, passage, question string) []assistant.Answer
	FixGrammar(ctx context.Context, sentence string) string
	Teach(key, value string) string
	Recall(key string) string
	Forget(key string) string
	Facts() []knowledge.Fact
}

type Options struct {
	// Color enables lipgloss styling and glamour rendering.
	Color bool
	Width int
}

type REPL struct {
	a    Assistant
	in   *bufio.Reader
	out  io.Writer
	opts Options
	log  logging.Logger

	lines chan line
	done  chan struct{}
}

type line struct {
	text string
	err  error
}

func New(a Assistant, in io.Reader, out io.Writer, opts Options, log logging.Logger) *REPL {
	if log == nil {
		log = logging.NewStub()
	}
	return &REPL{a: a, in: bufio.NewReader(in), out: out, opts: opts, log: log}
}

// readLines feeds r.lines until the input fails or Run returns. A blocked
// Read keeps it alive until the input is closed.
func (r *REPL) readLines() {
	for {
		text, err := r.in.ReadString('\n')
		select {
		case r.lines <- line{text: text, err: err}:
		case <-r.done:
			return
		}
		if err != nil {
			close(r.lines)
			return
		}
	}
}

var errEOF = errors.New("end of input")

const menu = `
What would you like to do?
1: Ask a question
2: Fix grammar
3: Teach me something
4: Retrieve what I know
5: List everything I know
6: Forget something
`

// Run loops until the user types exit or quit, input ends, or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.done = make(chan struct{})
	defer close(r.done)

	r.println("")
	r.println(r.paint(tui.BannerStyle, "Welcome to Your AI!"))
	r.println("I can answer questions, fix grammar, and learn new things from you.")
	r.println(r.paint(tui.HelpStyle, "Type 'exit' to quit."))

	for {
		if err := ctx.Err(); err != nil {
			r.println("Goodbye!")
			return nil
		}
		fmt.Fprint(r.out, menu)

		choice, err := r.prompt(ctx, "Enter your choice: ")
		if err != nil {
			return r.stop(err)
		}
		r.log.Debugf("menu choice %q", choice)

		switch strings.ToLower(choice) {
		case "exit", "quit":
			r.println("Goodbye!")
			return nil
		case "1":
			err = r.ask(ctx)
		case "2":
			err = r.fix(ctx)
		case "3":
			err = r.teach(ctx)
		case "4":
			err = r.recall(ctx)
		case "5":
			r.list()
		case "6":
			err = r.forget(ctx)
		default:
			r.println(r.paint(tui.WarningStyle, "Invalid choice. Please try again."))
		}
		if err != nil {
			return r.stop(err)
		}
	}
}

func (r *REPL) stop(err error) error {
	if errors.Is(err, errEOF) {
		r.println("")
		r.println("Goodbye!")
		return nil
	}
	return err
}

func (r *REPL) ask(ctx context.Context) error {
	passage, err := r.prompt(ctx, "Provide some context (or leave blank to search online): ")
	if err != nil {
		return err
	}
	question, err := r.prompt(ctx, "What is your question? ")
	if err != nil {
		return err
	}
	for _, ans := range r.a.Ask(ctx, passage, question) {
		text := ans.Text
		if ans.Source == assistant.SourceError {
			text = r.paint(tui.ErrorStyle, text)
		}
		fmt.Fprintf(r.out, "%s %s\n%s %s\n\n",
			r.paint(tui.QuestionLabelStyle, "Q:"), ans.Question,
			r.paint(tui.AnswerLabelStyle, "A:"), text)
	}
	return nil
}

func (r *REPL) fix(ctx context.Context) error {
	sentence, err := r.prompt(ctx, "Enter a sentence to fix: ")
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", r.paint(tui.AnswerLabelStyle, "Corrected Sentence:"), r.a.FixGrammar(ctx, sentence))
	return nil
}

func (r *REPL) teach(ctx context.Context) error {
	key, err := r.prompt(ctx, "What should I learn? (Key): ")
	if err != nil {
		return err
	}
	value, err := r.prompt(ctx, "What does it mean? (Value): ")
	if err != nil {
		return err
	}
	r.println(r.a.Teach(key, value))
	return nil
}

func (r *REPL) recall(ctx context.Context) error {
	key, err := r.prompt(ctx, "What do you want me to recall? ")
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", r.paint(tui.AnswerLabelStyle, "My answer:"), r.a.Recall(key))
	return nil
}

func (r *REPL) list() {
	fmt.Fprint(r.out, tui.RenderMarkdown(tui.FactsMarkdown(r.a.Facts()), r.opts.Width, !r.opts.Color))
}

func (r *REPL) forget(ctx context.Context) error {
	key, err := r.prompt(ctx, "What should I forget? ")
	if err != nil {
		return err
	}
	r.println(r.a.Forget(key))
	return nil
}

// prompt writes label and reads one trimmed line. A final line without a
// newline is still returned; errEOF comes when nothing was read or ctx is
// cancelled while waiting.
func (r *REPL) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(r.out, r.paint(tui.PromptStyle, label))
	if r.lines == nil {
		r.lines = make(chan line)
		go r.readLines()
	}

	var l line
	var ok bool
	select {
	case <-ctx.Done():
		return "", errEOF
	case l, ok = <-r.lines:
	}
	if !ok {
		return "", errEOF
	}
	if l.err != nil {
		if errors.Is(l.err, io.EOF) && l.text != "" {
			return strings.TrimSpace(l.text), nil
		}
		if errors.Is(l.err, io.EOF) {
			return "", errEOF
		}
		return "", l.err
	}
	return strings.TrimSpace(l.text), nil
}

func (r *REPL) println(s string) {
	fmt.Fprintln(r.out, s)
}

func (r *REPL) paint(style lipgloss.Style, s string) string {
	if !r.opts.Color {
		return s
	}
	return style.Render(s)
}
