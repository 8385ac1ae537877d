package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	QA        Selection                 `yaml:"qa" mapstructure:"qa"`
	Grammar   GrammarConfig             `yaml:"grammar" mapstructure:"grammar"`
	Search    SearchConfig              `yaml:"search" mapstructure:"search"`
	Knowledge KnowledgeConfig           `yaml:"knowledge" mapstructure:"knowledge"`
	Log       LogConfig                 `yaml:"log" mapstructure:"log"`

	// File is the config file that was read, empty when running on defaults.
	File string `yaml:"-" mapstructure:"-"`
}

type ProviderConfig struct {
	Type    string `yaml:"type" mapstructure:"type"`
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model   string `yaml:"model,omitempty" mapstructure:"model"`
}

// over fills the fields p leaves empty from d.
func (p ProviderConfig) over(d ProviderConfig) ProviderConfig {
	if p.Type == "" {
		p.Type = d.Type
	}
	if p.BaseURL == "" {
		p.BaseURL = d.BaseURL
	}
	if p.APIKey == "" {
		p.APIKey = d.APIKey
	}
	if p.Model == "" {
		p.Model = d.Model
	}
	return p
}

// Selection picks a provider by name and optionally overrides its model.
type Selection struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model,omitempty" mapstructure:"model"`
}

type GrammarConfig struct {
	Selection `yaml:",inline" mapstructure:",squash"`
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`
}

type SearchConfig struct {
	Engine   string `yaml:"engine" mapstructure:"engine"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	EngineID string `yaml:"engine_id,omitempty" mapstructure:"engine_id"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout  string `yaml:"timeout" mapstructure:"timeout"`
}

type KnowledgeConfig struct {
	Path   string  `yaml:"path" mapstructure:"path"`
	Cutoff float64 `yaml:"cutoff" mapstructure:"cutoff"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file,omitempty" mapstructure:"file"`
}

var (
	providerTypes = map[string]bool{"openai": true, "anthropic": true, "google": true}
	searchEngines = map[string]bool{"auto": true, "google": true, "duckduckgo": true}
	logLevels     = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"ollama": {Type: "openai", BaseURL: "http://localhost:11434/v1", Model: "qwen2.5:7b"},
			"vllm":   {Type: "openai", BaseURL: "http://localhost:8000/v1"},
		},
		QA:      Selection{Provider: "ollama"},
		Grammar: GrammarConfig{Selection: Selection{Provider: "ollama"}, MaxTokens: 512},
		Search:  SearchConfig{Engine: "auto", Timeout: "15s"},
		Knowledge: KnowledgeConfig{
			Path:   "knowledge_base.json",
			Cutoff: 0.6,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Dir is the per-user config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pal")
}

// Load reads config.yaml from file, or from the search path when file is
// empty, layers PAL_* environment variables and anything already bound on v
// (command-line flags) on top, and validates the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix("PAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	defaults := DefaultConfig().Providers
	for name, p := range cfg.Providers {
		if d, ok := defaults[name]; ok {
			p = p.over(d)
		}
		p.APIKey = expandEnv(p.APIKey)
		p.BaseURL = expandEnv(p.BaseURL)
		cfg.Providers[name] = p
	}
	cfg.Search.APIKey = expandEnv(cfg.Search.APIKey)
	cfg.Search.EngineID = expandEnv(cfg.Search.EngineID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every scalar key so that AutomaticEnv can see it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("qa.provider", cfg.QA.Provider)
	v.SetDefault("qa.model", cfg.QA.Model)
	v.SetDefault("grammar.provider", cfg.Grammar.Provider)
	v.SetDefault("grammar.model", cfg.Grammar.Model)
	v.SetDefault("grammar.max_tokens", cfg.Grammar.MaxTokens)
	v.SetDefault("search.engine", cfg.Search.Engine)
	v.SetDefault("search.api_key", cfg.Search.APIKey)
	v.SetDefault("search.engine_id", cfg.Search.EngineID)
	v.SetDefault("search.base_url", cfg.Search.BaseURL)
	v.SetDefault("search.timeout", cfg.Search.Timeout)
	v.SetDefault("knowledge.path", cfg.Knowledge.Path)
	v.SetDefault("knowledge.cutoff", cfg.Knowledge.Cutoff)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
}

func (c *Config) ProviderFor(name string) (ProviderConfig, bool) {
	p, ok := c.Providers[name]
	return p, ok
}

// Resolve returns the provider behind s and the model to use with it.
func (c *Config) Resolve(s Selection) (ProviderConfig, string, error) {
	p, ok := c.Providers[s.Provider]
	if !ok {
		return ProviderConfig{}, "", fmt.Errorf("config: provider %q not found in providers", s.Provider)
	}
	model := s.Model
	if model == "" {
		model = p.Model
	}
	return p, model, nil
}

// ProviderNames lists the configured providers in name order.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) SearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for _, name := range c.ProviderNames() {
		p := c.Providers[name]
		if !providerTypes[p.Type] {
			return fmt.Errorf("config: provider %q has invalid type %q (must be openai, anthropic, or google)", name, p.Type)
		}
		if p.Type == "openai" && p.BaseURL == "" {
			return fmt.Errorf("config: provider %q (type openai) requires base_url", name)
		}
	}

	roles := []struct {
		name string
		sel  Selection
	}{{"qa", c.QA}, {"grammar", c.Grammar.Selection}}
	for _, r := range roles {
		role, s := r.name, r.sel
		if s.Provider == "" {
			return fmt.Errorf("config: %s.provider is required", role)
		}
		p, model, err := c.Resolve(s)
		if err != nil {
			return err
		}
		if (p.Type == "anthropic" || p.Type == "google") && missing(p.APIKey) {
			return fmt.Errorf("config: provider %q (type %s) requires api_key", s.Provider, p.Type)
		}
		if model == "" && p.Type == "openai" {
			return fmt.Errorf("config: %s needs a model (set %s.model or providers.%s.model)", role, role, s.Provider)
		}
	}

	if c.Grammar.MaxTokens < 1 {
		c.Grammar.MaxTokens = 512
	}
	if !searchEngines[c.Search.Engine] {
		return fmt.Errorf("config: search.engine %q is invalid (must be auto, google, or duckduckgo)", c.Search.Engine)
	}
	if c.Search.Engine == "google" && (missing(c.Search.APIKey) || missing(c.Search.EngineID)) {
		return fmt.Errorf("config: search.engine google requires api_key and engine_id")
	}
	if _, err := time.ParseDuration(c.Search.Timeout); err != nil {
		return fmt.Errorf("config: search.timeout: %w", err)
	}
	if c.Knowledge.Path == "" {
		return fmt.Errorf("config: knowledge.path is required")
	}
	if c.Knowledge.Cutoff < 0 || c.Knowledge.Cutoff > 1 {
		return fmt.Errorf("config: knowledge.cutoff %v must be within [0, 1]", c.Knowledge.Cutoff)
	}
	if !logLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("config: log.level %q is invalid", c.Log.Level)
	}
	return nil
}

// missing reports an empty value or an environment reference that did not expand.
func missing(s string) bool {
	return s == "" || strings.HasPrefix(s, "$")
}

// WriteDefault writes the default configuration to path as YAML. An existing
// file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
