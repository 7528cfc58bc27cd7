// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-pipeline CLI.
// See docs/ARCHITECTURE.md § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/citation"
	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/content"
	"github.com/pdiddy/research-pipeline/internal/llm"
	"github.com/pdiddy/research-pipeline/internal/logging"
	"github.com/pdiddy/research-pipeline/internal/moderation"
	"github.com/pdiddy/research-pipeline/internal/pipeline"
	"github.com/pdiddy/research-pipeline/internal/plan"
	"github.com/pdiddy/research-pipeline/internal/search"
	"github.com/pdiddy/research-pipeline/internal/secrets"
	"github.com/pdiddy/research-pipeline/internal/section"
	"github.com/pdiddy/research-pipeline/internal/store"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns configured when non-empty, otherwise the secret
// value for key, otherwise "".
func secretDefault(key, configured string) string {
	if configured != "" {
		return configured
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the research-pipeline CLI.
var rootCmd = &cobra.Command{
	Use:   "research-pipeline",
	Short: "Automated research over web and scholarly search",
	Long: `research-pipeline conducts automated research on a topic: it moderates
the topic, plans the research, searches web and scholarly engines, extracts
page content, formats citations in four styles, and outlines document
sections.

The research subcommand runs the whole pipeline; moderate, plan, search,
cite, and sections run individual stages, the latter three against an
existing session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-pipeline.yaml or ~/.config/research-pipeline/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("research-pipeline")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "research-pipeline"))
		}
	}

	viper.SetEnvPrefix("RESEARCH_PIPELINE")
	viper.AutomaticEnv()

	viper.SetDefault("llm.primary.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.primary.model", "gpt-4o")
	viper.SetDefault("search.call_budget", 10)
	viper.SetDefault("search.results_per_query", 10)
	viper.SetDefault("store.path", "research-sessions.db")
	viper.SetDefault("citation.primary_style", "harvard")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the stage configuration from viper settings
// and loaded secrets. Engine API keys fall back to the SerpAPI secret,
// provider keys to the OpenAI ones.
func pipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		LLM: types.LLMConfig{
			Primary: types.ProviderConfig{
				Name:    viper.GetString("llm.primary.name"),
				BaseURL: viper.GetString("llm.primary.base_url"),
				Model:   viper.GetString("llm.primary.model"),
				APIKey:  secretDefault("openai-api-key", viper.GetString("llm.primary.api_key")),
			},
			Fallback: types.ProviderConfig{
				Name:    viper.GetString("llm.fallback.name"),
				BaseURL: viper.GetString("llm.fallback.base_url"),
				Model:   viper.GetString("llm.fallback.model"),
				APIKey:  secretDefault("fallback-api-key", viper.GetString("llm.fallback.api_key")),
			},
		},
		Search: types.SearchConfig{
			CallBudget:      viper.GetInt("search.call_budget"),
			ResultsPerQuery: viper.GetInt("search.results_per_query"),
			Engines:         map[string]types.EngineConfig{},
		},
		Content: types.ContentConfig{
			MaxFetch:        viper.GetInt("content.max_fetch"),
			MaxContentBytes: viper.GetInt("content.max_content_bytes"),
			ChunkSize:       viper.GetInt("content.chunk_size"),
			ChunkOverlap:    viper.GetInt("content.chunk_overlap"),
		},
		Citation: types.CitationConfig{
			PrimaryStyle: viper.GetString("citation.primary_style"),
		},
		Store: types.StoreConfig{
			Path: viper.GetString("store.path"),
		},
		PromptsFile: viper.GetString("prompts_file"),
	}

	engines := viper.GetStringMap("search.engines")
	if len(engines) == 0 {
		// Both engines on by default when no engine block is configured.
		engines = map[string]any{"web": nil, "scholar": nil}
		viper.SetDefault("search.engines.web.enabled", true)
		viper.SetDefault("search.engines.scholar.enabled", true)
		viper.SetDefault("search.engines.web.weight", 1)
		viper.SetDefault("search.engines.scholar.weight", 1)
	}
	for name := range engines {
		cfg.Search.Engines[name] = types.EngineConfig{
			Enabled: viper.GetBool(fmt.Sprintf("search.engines.%s.enabled", name)),
			Weight:  viper.GetInt(fmt.Sprintf("search.engines.%s.weight", name)),
			APIKey:  secretDefault("serpapi-api-key", viper.GetString(fmt.Sprintf("search.engines.%s.api_key", name))),
		}
	}

	return cfg
}

// deps bundles everything a stage command needs.
type deps struct {
	cfg      types.PipelineConfig
	logger   *zap.Logger
	store    *store.Store
	prompts  *config.Provider
	gateway  *llm.Gateway
	pipeline *pipeline.Pipeline
}

func (d *deps) Close() {
	if d.store != nil {
		d.store.Close()
	}
	if d.logger != nil {
		d.logger.Sync()
	}
}

// buildDeps constructs the store, prompt provider, LLM gateway, and the
// full pipeline from configuration.
func buildDeps(cmd *cobra.Command) (*deps, error) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	logger, err := logging.New(level, format)
	if err != nil {
		return nil, err
	}

	cfg := pipelineConfig()

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	prompts, err := config.NewProvider(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	gateway, err := llm.NewGateway(cfg.LLM, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	p := pipeline.New(
		st,
		moderation.NewGate(moderation.NewMemoryCache(), st, gateway, prompts, logger),
		plan.NewPlanner(gateway, prompts, logger),
		search.NewOrchestrator(search.BuildEngines(cfg.Search), cfg.Search, st, logger),
		content.NewExtractor(cfg.Content, st, logger),
		citation.NewFormatter(gateway, prompts, st, logger),
		section.NewPlanner(gateway, prompts, st, logger),
		prompts,
		logger,
	)

	return &deps{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		prompts:  prompts,
		gateway:  gateway,
		pipeline: p,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
