package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimcheck/internal/model"
)

// wellKnownEnv maps config keys onto the unprefixed variables the service
// has always honoured
var wellKnownEnv = map[string]string{
	"llm.model":              "OPENAI_CHAT_MODEL",
	"embedding.model":        "EMBEDDING_MODEL",
	"retrieval.top_k":        "TOP_K",
	"index.path":             "INDEX_PATH",
	"online.news_api_key":    "NEWS_API_KEY",
	"reasoning.supported_th": "SUPPORTED_TH",
	"online.enabled":         "ONLINE_FALLBACK_ENABLED",
	"online.days":            "ONLINE_DAYS",
	"online.top_k":           "ONLINE_TOP_K",
	"online.timeout":         "ONLINE_TIMEOUT_S",
	"online.allow_domains":   "ONLINE_ALLOW_DOMAINS",
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ClaimCheck configuration",
	Long: `Manage ClaimCheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CLAIMCHECK_*, then OPENAI_API_KEY, NEWS_API_KEY, ...)
3. Config file (~/.claimcheck/config.yaml)
4. Defaults

A .env file in the working directory is loaded before the environment is read.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration after defaults, config file, environment and flags are merged. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		configFile := viper.ConfigFileUsed()
		if configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (defaults and environment only)\n\n")
		}

		yamlData, err := yaml.Marshal(maskSecrets(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Effective Configuration")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Println(string(yamlData))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.claimcheck/config.yaml with every option at its default.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(home, ".claimcheck", "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the effective configuration:\n")
		fmt.Printf("  claimcheck config show\n")
		fmt.Printf("\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// configureViper seeds defaults, locates the config file and wires the
// environment. A missing config file is not an error.
func configureViper(v *viper.Viper, file string) error {
	loadDotEnv()

	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		return err
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".claimcheck"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// CLAIMCHECK_ONLINE_TOP_K -> online.top_k
	v.SetEnvPrefix("CLAIMCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range wellKnownEnv {
		prefixed := "CLAIMCHECK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// loadConfig unmarshals the merged settings and fills provider credentials
// from their conventional variables
func loadConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyProviderEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// setDefaults registers every field of cfg as a viper default so that
// AutomaticEnv can see all keys
func setDefaults(v *viper.Viper, cfg model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaultTree(v, "", tree)

	// omitempty fields still need a key for env lookups
	for _, key := range []string{
		"llm.api_key", "llm.base_url", "embedding.api_key", "embedding.base_url",
		"online.news_api_key", "online.feeds_file", "keywords.symbols_file",
		"session.redis_password", "cache.dir",
		"http.http_proxy", "http.https_proxy", "http.no_proxy",
	} {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
	if !v.IsSet("online.feeds") {
		v.SetDefault("online.feeds", []string{})
	}
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaultTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

func applyProviderEnv(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai", "":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OPENAI_BASE_URL")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	if strings.EqualFold(cfg.Embedding.Provider, "openai") || cfg.Embedding.Provider == "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = os.Getenv("OPENAI_BASE_URL")
		}
	}
}

func validateConfig(cfg model.Config) error {
	var problems []string
	if cfg.Retrieval.TopK < 1 {
		problems = append(problems, "retrieval.top_k must be >= 1")
	}
	for name, v := range map[string]float64{
		"reasoning.supported_th":         cfg.Reasoning.SupportedThreshold,
		"reasoning.uncertain_th":         cfg.Reasoning.UncertainThreshold,
		"reasoning.unverifiable_ceiling": cfg.Reasoning.UnverifiableCeiling,
		"retrieval.min_score":            cfg.Retrieval.MinScore,
	} {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1], got %v", name, v))
		}
	}
	switch cfg.Session.Backend {
	case "memory", "redis", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("session.backend %q is not one of memory, redis, sqlite", cfg.Session.Backend))
	}
	if cfg.Online.Enabled && cfg.Online.Days < 1 {
		problems = append(problems, "online.days must be >= 1")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func maskSecrets(cfg model.Config) model.Config {
	mask := func(s string) string {
		if len(s) <= 4 {
			if s == "" {
				return ""
			}
			return "****"
		}
		return s[:3] + "****"
	}
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	cfg.Embedding.APIKey = mask(cfg.Embedding.APIKey)
	cfg.Online.NewsAPIKey = mask(cfg.Online.NewsAPIKey)
	cfg.Session.RedisPass = mask(cfg.Session.RedisPass)
	return cfg
}

func writeDefaultConfig(configPath string) (err error) {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'claimcheck config show' to view it, or delete it first to recreate", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	// Helper for writing with error checking
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# ClaimCheck Configuration File\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (CLAIMCHECK_*)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")

	yamlData, mErr := yaml.Marshal(model.DefaultConfig())
	if mErr != nil {
		return fmt.Errorf("error marshaling config: %w", mErr)
	}
	printf("%s", yamlData)

	printf("\n# API Keys (recommended to use environment variables instead):\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	printf("#   export NEWS_API_KEY=...\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
	return err
}
