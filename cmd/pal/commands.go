package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/pal/internal/assistant"
	"github.com/jeanpaul/pal/internal/config"
	"github.com/jeanpaul/pal/internal/grammar"
	"github.com/jeanpaul/pal/internal/health"
	"github.com/jeanpaul/pal/internal/tui"
	"github.com/jeanpaul/pal/pkg/version"
)

func newAskCmd(a *app) *cobra.Command {
	var passage string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from --context, the fact file, or the web",
		Long: `Answers each part of a question joined with "and". Known questions come
from the fact file. Otherwise the answer is extracted from --context (text
or an http(s) URL) or, without a context, found with a web search.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color := isTerminal()
			for _, ans := range asst.Ask(cmd.Context(), passage, strings.Join(args, " ")) {
				text := ans.Text
				if color && ans.Source == assistant.SourceError {
					text = tui.ErrorStyle.Render(text)
				}
				fmt.Fprintf(out, "%s %s\n%s %s\n", paint(color, tui.QuestionLabelStyle, "Q:"), ans.Question,
					paint(color, tui.AnswerLabelStyle, "A:"), text)
				if a.verbose {
					fmt.Fprintln(out, paint(color, tui.SourceStyle, "   ("+string(ans.Source)+")"))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&passage, "context", "c", "", "text or URL to answer from (default: search online)")
	return cmd
}

func newFixCmd(a *app) *cobra.Command {
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "fix [sentence]",
		Short: "Correct the grammar of a sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			sentence := strings.Join(args, " ")
			fixed := asst.FixGrammar(cmd.Context(), sentence)

			out := cmd.OutOrStdout()
			color := isTerminal()
			fmt.Fprintf(out, "%s %s\n", paint(color, tui.AnswerLabelStyle, "Corrected Sentence:"), fixed)
			if !showDiff || fixed == grammar.UnexpectedResult || strings.HasPrefix(fixed, assistant.GrammarErrorPrefix) {
				return nil
			}
			diff := grammar.Diff(sentence, fixed)
			if diff == "" {
				fmt.Fprintln(out, paint(color, tui.HelpStyle, "No changes."))
				return nil
			}
			if color {
				diff = tui.ColorDiff(diff)
			}
			fmt.Fprint(out, diff)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showDiff, "diff", "d", false, "show a unified diff of the correction")
	return cmd
}

func newTeachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "teach <key> <value>",
		Short: "Remember a fact",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.offlineAssistant()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), asst.Teach(args[0], strings.Join(args[1:], " ")))
			return nil
		},
	}
}

func newRecallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recall <key>",
		Short: "Retrieve a fact, allowing for typos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.offlineAssistant()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				paint(isTerminal(), tui.AnswerLabelStyle, "My answer:"), asst.Recall(strings.Join(args, " ")))
			return nil
		},
	}
}

func newForgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <key>",
		Short: "Remove a fact",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.offlineAssistant()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), asst.Forget(strings.Join(args, " ")))
			return nil
		},
	}
}

func newFactsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "facts",
		Short: "List everything in the fact file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.offlineAssistant()
			if err != nil {
				return err
			}
			md := tui.FactsMarkdown(asst.Facts())
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderMarkdown(md, 100, !isTerminal()))
			return nil
		},
	}
}

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the model backends and web search are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.doctor(cmd)
		},
	}
}

func (a *app) doctor(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	color := isTerminal()
	ctx := cmd.Context()
	cfg := a.cfg

	fmt.Fprintln(out, paint(color, tui.BannerStyle, "  Service Health Check"))
	fmt.Fprintln(out)

	roles := map[string][]string{}
	roles[cfg.QA.Provider] = append(roles[cfg.QA.Provider], "qa")
	roles[cfg.Grammar.Provider] = append(roles[cfg.Grammar.Provider], "grammar")

	healthy := true
	for _, name := range cfg.ProviderNames() {
		pcfg := cfg.Providers[name]
		used := roles[name]
		label := name
		if len(used) > 0 {
			label = name + " (" + strings.Join(used, ", ") + ")"
		}
		fmt.Fprintf(out, "  %s %s ... ", paint(color, tui.MenuKeyStyle, "●"), label)

		status := health.Check(ctx, pcfg.Type, pcfg.BaseURL, pcfg.APIKey)
		switch {
		case status.Reachable:
			models := ""
			if len(status.Models) > 0 {
				models = fmt.Sprintf(" (%d models)", len(status.Models))
			}
			fmt.Fprintf(out, "%s%s %s\n", paint(color, tui.BannerStyle, "✓ OK"),
				models, paint(color, tui.HelpStyle, status.Latency.Round(time.Millisecond).String()))
		case len(used) > 0:
			healthy = false
			fmt.Fprintln(out, paint(color, tui.ErrorStyle, "✗ "+status.Error))
		default:
			fmt.Fprintln(out, paint(color, tui.HelpStyle, "- "+status.Error+" (unused)"))
		}
	}

	for _, sel := range []config.Selection{cfg.QA, cfg.Grammar.Selection} {
		pcfg, model, err := cfg.Resolve(sel)
		if err != nil {
			return err
		}
		if err := health.CheckModel(ctx, pcfg.Type, pcfg.BaseURL, pcfg.APIKey, model); err != nil {
			healthy = false
			fmt.Fprintf(out, "  %s %s\n", paint(color, tui.ErrorStyle, "✗"), err)
		}
	}

	fmt.Fprintf(out, "\n  %s %s ... ", paint(color, tui.MenuKeyStyle, "●"), "search")
	web, err := a.searcher()
	if err != nil {
		return err
	}
	if st := health.CheckSearch(ctx, web); st.Reachable {
		fmt.Fprintf(out, "%s %s\n", paint(color, tui.BannerStyle, "✓ "+web.Name()),
			paint(color, tui.HelpStyle, st.Latency.Round(time.Millisecond).String()))
	} else {
		fmt.Fprintln(out, paint(color, tui.WarningStyle, "- "+web.Name()+": "+st.Error))
	}

	fmt.Fprintf(out, "  %s %s ... ", paint(color, tui.MenuKeyStyle, "●"), "config")
	if cfg.File != "" {
		fmt.Fprintln(out, paint(color, tui.BannerStyle, "✓ "+cfg.File))
	} else {
		fmt.Fprintln(out, paint(color, tui.HelpStyle, "- Using defaults (run 'pal init' to customize)"))
	}

	fmt.Fprintf(out, "  %s %s ... ", paint(color, tui.MenuKeyStyle, "●"), "facts")
	if kb, err := a.store(); err != nil {
		healthy = false
		fmt.Fprintln(out, paint(color, tui.ErrorStyle, "✗ "+err.Error()))
	} else {
		fmt.Fprintln(out, paint(color, tui.BannerStyle, fmt.Sprintf("✓ %s (%d facts)", kb.Path(), kb.Len())))
	}

	fmt.Fprintln(out)
	if !healthy {
		fmt.Fprintln(out, paint(color, tui.ErrorStyle, "  Some services pal needs are unavailable."))
		fmt.Fprintln(out, paint(color, tui.HelpStyle, "  For local models, start Ollama: ollama serve"))
		return errors.New("health check failed")
	}
	fmt.Fprintln(out, paint(color, tui.BannerStyle, "  All services healthy!"))
	return nil
}

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured model backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printProviders(cmd.OutOrStdout(), a.cfg, isTerminal())
			return nil
		},
	}
}

func printProviders(out io.Writer, cfg *config.Config, color bool) {
	fmt.Fprintln(out, paint(color, tui.BannerStyle, "  Configured Providers"))
	fmt.Fprintln(out)
	for _, name := range cfg.ProviderNames() {
		p := cfg.Providers[name]
		label := "default endpoint"
		if p.BaseURL != "" {
			label = p.BaseURL
		}
		var marks []string
		if name == cfg.QA.Provider {
			marks = append(marks, "qa")
		}
		if name == cfg.Grammar.Provider {
			marks = append(marks, "grammar")
		}
		line := fmt.Sprintf("  %s  %s  %s", paint(color, tui.MenuKeyStyle, name), p.Type, paint(color, tui.HelpStyle, label))
		if len(marks) > 0 {
			line += "  " + paint(color, tui.SourceStyle, "["+strings.Join(marks, ", ")+"]")
		}
		fmt.Fprintln(out, line)
	}
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a starter config.yaml",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(config.Dir(), "config.yaml")
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pal %s\n", version.String())
		},
	}
}
