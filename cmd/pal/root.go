package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeanpaul/pal/internal/assistant"
	"github.com/jeanpaul/pal/internal/config"
	"github.com/jeanpaul/pal/internal/grammar"
	"github.com/jeanpaul/pal/internal/knowledge"
	"github.com/jeanpaul/pal/internal/logging"
	"github.com/jeanpaul/pal/internal/provider"
	"github.com/jeanpaul/pal/internal/qa"
	"github.com/jeanpaul/pal/internal/repl"
	"github.com/jeanpaul/pal/internal/search"
)

const maxRetries = 3

// skipConfig marks commands that run without loading config.yaml.
const skipConfig = "skip-config"

// app carries what PersistentPreRunE set up to the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool

	cfg *config.Config
	log logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logging.NewStub()}

	root := &cobra.Command{
		Use:   "pal",
		Short: "A personal assistant that answers questions, fixes grammar and remembers facts",
		Long: `pal answers questions from a context you give it, or from a web search
when you don't, corrects grammar, and remembers what you teach it in a
JSON fact file.

Run without arguments to start the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asst, err := a.assistant(cmd.Context())
			if err != nil {
				return err
			}
			opts := repl.Options{Color: isTerminal(), Width: 100}
			return repl.New(asst, cmd.InOrStdin(), cmd.OutOrStdout(), opts, a.log.With("repl")).Run(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml or "+config.Dir()+"/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.String("kb", "", "fact file (default: knowledge_base.json)")
	pf.String("provider", "", "provider used for question answering and grammar")
	pf.String("model", "", "model used for question answering")
	_ = a.v.BindPFlag("knowledge.path", pf.Lookup("kb"))
	_ = a.v.BindPFlag("qa.provider", pf.Lookup("provider"))
	_ = a.v.BindPFlag("grammar.provider", pf.Lookup("provider"))
	_ = a.v.BindPFlag("qa.model", pf.Lookup("model"))

	root.AddCommand(
		newAskCmd(a),
		newFixCmd(a),
		newTeachCmd(a),
		newRecallCmd(a),
		newForgetCmd(a),
		newFactsCmd(a),
		newDoctorCmd(a),
		newProvidersCmd(a),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{Level: level, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = log
	if cfg.File != "" {
		a.log.Debugf("using config %s", cfg.File)
	}
	return nil
}

func (a *app) store() (*knowledge.Store, error) {
	return knowledge.Open(a.cfg.Knowledge.Path, a.cfg.Knowledge.Cutoff, a.log.With("knowledge"))
}

func (a *app) searcher() (search.Searcher, error) {
	s := a.cfg.Search
	return search.New(search.Options{
		Engine:   s.Engine,
		APIKey:   s.APIKey,
		EngineID: s.EngineID,
		BaseURL:  s.BaseURL,
		Timeout:  a.cfg.SearchTimeout(),
	})
}

func (a *app) assistant(ctx context.Context) (*assistant.Assistant, error) {
	kb, err := a.store()
	if err != nil {
		return nil, err
	}
	qaModel, err := makeProvider(ctx, a.cfg, a.cfg.QA)
	if err != nil {
		return nil, err
	}
	grammarModel, err := makeProvider(ctx, a.cfg, a.cfg.Grammar.Selection)
	if err != nil {
		return nil, err
	}
	web, err := a.searcher()
	if err != nil {
		return nil, err
	}
	a.log.Debugf("qa=%s/%s grammar=%s/%s search=%s", qaModel.Name(), qaModel.ModelName(),
		grammarModel.Name(), grammarModel.ModelName(), web.Name())

	return assistant.New(assistant.Deps{
		Knowledge: kb,
		QA:        qa.NewAnswerer(qaModel, a.log.With("qa")),
		Grammar:   grammar.NewCorrector(grammarModel, a.cfg.Grammar.MaxTokens, a.log.With("grammar")),
		Search:    web,
		Pages:     search.NewPageFetcher(a.cfg.SearchTimeout()),
		Logger:    a.log.With("assistant"),
	}), nil
}

// offlineAssistant serves the fact-file commands, which never reach a model.
func (a *app) offlineAssistant() (*assistant.Assistant, error) {
	kb, err := a.store()
	if err != nil {
		return nil, err
	}
	return assistant.New(assistant.Deps{Knowledge: kb, Logger: a.log.With("assistant")}), nil
}

func makeProvider(ctx context.Context, cfg *config.Config, sel config.Selection) (provider.Provider, error) {
	pcfg, model, err := cfg.Resolve(sel)
	if err != nil {
		return nil, fmt.Errorf("%w (configure it in %s/config.yaml)", err, config.Dir())
	}

	var p provider.Provider
	switch pcfg.Type {
	case "openai":
		p = provider.NewOpenAI(sel.Provider, pcfg.BaseURL, pcfg.APIKey, model)
	case "anthropic":
		if pcfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic requires api_key (set ANTHROPIC_API_KEY)")
		}
		p = provider.NewAnthropic(pcfg.BaseURL, pcfg.APIKey, model)
	case "google":
		if pcfg.APIKey == "" {
			return nil, fmt.Errorf("google requires api_key (set GEMINI_API_KEY)")
		}
		g, err := provider.NewGemini(ctx, pcfg.BaseURL, pcfg.APIKey, model)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unknown provider type %q", pcfg.Type)
	}
	return provider.WithRetry(p, maxRetries), nil
}
