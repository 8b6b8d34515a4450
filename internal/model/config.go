package model

import "time"

// Config holds every tunable of the claim checker
type Config struct {
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Reasoning ReasoningConfig `yaml:"reasoning" mapstructure:"reasoning"`
	Online    OnlineConfig    `yaml:"online" mapstructure:"online"`
	Keywords  KeywordsConfig  `yaml:"keywords" mapstructure:"keywords"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
}

// LLMConfig selects and tunes the language-model provider
type LLMConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model         string  `yaml:"model" mapstructure:"model"`
	APIKey        string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL       string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout       int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	Temperature   float32 `yaml:"temperature" mapstructure:"temperature"`
	VerdictTokens int     `yaml:"verdict_max_tokens" mapstructure:"verdict_max_tokens"`
	AnswerTokens  int     `yaml:"answer_max_tokens" mapstructure:"answer_max_tokens"`
}

// EmbeddingConfig selects the embedding backend.
// The backend and dimension must match the ones used to build the index.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, hash
	Model     string `yaml:"model" mapstructure:"model"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Cache     bool   `yaml:"cache" mapstructure:"cache"`
}

type IndexConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type RetrievalConfig struct {
	TopK     int     `yaml:"top_k" mapstructure:"top_k"`
	MinScore float64 `yaml:"min_score" mapstructure:"min_score"`
}

// ReasoningConfig holds verdict thresholds
type ReasoningConfig struct {
	SupportedThreshold    float64 `yaml:"supported_th" mapstructure:"supported_th"`
	UncertainThreshold    float64 `yaml:"uncertain_th" mapstructure:"uncertain_th"`
	UnverifiableCeiling   float64 `yaml:"unverifiable_ceiling" mapstructure:"unverifiable_ceiling"`
	StrictRetry           bool    `yaml:"strict_retry" mapstructure:"strict_retry"`
	HistoryWindow         int     `yaml:"history_window" mapstructure:"history_window"`
	ExpandBelowTopScore   float64 `yaml:"expand_below_top_score" mapstructure:"expand_below_top_score"`
	ExpandBelowChunkCount int     `yaml:"expand_below_chunk_count" mapstructure:"expand_below_chunk_count"`
}

// OnlineConfig tunes live expansion
type OnlineConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	Days          int      `yaml:"days" mapstructure:"days"`
	TopK          int      `yaml:"top_k" mapstructure:"top_k"`
	Timeout       int      `yaml:"timeout" mapstructure:"timeout"` // seconds
	AllowDomains  []string `yaml:"allow_domains" mapstructure:"allow_domains"`
	NewsAPIKey    string   `yaml:"news_api_key,omitempty" mapstructure:"news_api_key"`
	NewsAPIURL    string   `yaml:"news_api_url" mapstructure:"news_api_url"`
	Feeds         []string `yaml:"feeds,omitempty" mapstructure:"feeds"`
	FeedsFile     string   `yaml:"feeds_file,omitempty" mapstructure:"feeds_file"`
	MaxItems      int      `yaml:"max_items" mapstructure:"max_items"`
	MaxTextChars  int      `yaml:"max_text_chars" mapstructure:"max_text_chars"`
	FetchFullText bool     `yaml:"fetch_full_text" mapstructure:"fetch_full_text"`
	RespectRobots bool     `yaml:"respect_robots" mapstructure:"respect_robots"`
	RatePerDomain float64  `yaml:"rate_per_domain" mapstructure:"rate_per_domain"` // requests per second
	Concurrency   int      `yaml:"concurrency" mapstructure:"concurrency"`
	CacheTTL      int      `yaml:"cache_ttl" mapstructure:"cache_ttl"` // seconds
}

type KeywordsConfig struct {
	SymbolsFile string `yaml:"symbols_file,omitempty" mapstructure:"symbols_file"`
	Max         int    `yaml:"max" mapstructure:"max"`
}

// SessionConfig selects the transcript backend
type SessionConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // memory, redis, sqlite
	TTL        int    `yaml:"ttl" mapstructure:"ttl"`         // seconds, 0 = never expire
	RedisAddr  string `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPass  string `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB    int    `yaml:"redis_db" mapstructure:"redis_db"`
	SQLitePath string `yaml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
}

// CacheConfig selects the byte cache shared by embeddings and online results
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Backend   string `yaml:"backend" mapstructure:"backend"` // layered, redis
	Dir       string `yaml:"dir,omitempty" mapstructure:"dir"`
	TTL       int    `yaml:"ttl" mapstructure:"ttl"` // seconds
	RedisAddr string `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" mapstructure:"redis_db"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// HTTPConfig configures outbound HTTP for online expansion
type HTTPConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes    int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	InsecureTLS bool   `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy   string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultConfig returns the stock configuration
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:      "openai",
			Model:         "gpt-4o-mini",
			Timeout:       60,
			Temperature:   0.0,
			VerdictTokens: 600,
			AnswerTokens:  400,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			Cache:     true,
		},
		Index: IndexConfig{
			Path: "data/index/claimcheck.gob",
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0.0,
		},
		Reasoning: ReasoningConfig{
			SupportedThreshold:    0.55,
			UncertainThreshold:    0.35,
			UnverifiableCeiling:   0.3,
			StrictRetry:           true,
			HistoryWindow:         4,
			ExpandBelowTopScore:   0.35,
			ExpandBelowChunkCount: 2,
		},
		Online: OnlineConfig{
			Enabled:       true,
			Days:          14,
			TopK:          3,
			Timeout:       6,
			AllowDomains:  []string{"reuters.com", "apnews.com", "wsj.com", "bloomberg.com", "sec.gov", "investor.*"},
			NewsAPIURL:    "https://newsapi.org/v2/everything",
			MaxItems:      20,
			MaxTextChars:  4000,
			FetchFullText: true,
			RespectRobots: true,
			RatePerDomain: 1.0,
			Concurrency:   4,
			CacheTTL:      900,
		},
		Keywords: KeywordsConfig{
			Max: 6,
		},
		Session: SessionConfig{
			Backend:    "memory",
			TTL:        86400,
			RedisAddr:  "localhost:6379",
			SQLitePath: "data/sessions.db",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "layered",
			TTL:       3600,
			RedisAddr: "localhost:6379",
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		HTTP: HTTPConfig{
			UserAgent: "claimcheck/0.1 (+https://github.com/ppiankov/claimcheck)",
			MaxBytes:  2 * 1024 * 1024,
		},
	}
}

// Seconds converts a seconds field to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
