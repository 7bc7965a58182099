package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"paperdigest/internal/domain"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "PAPER_DIGEST_CONFIG"
	categoriesEnv      = "DIGEST_CATEGORIES"
	interestsEnv       = "DIGEST_INTERESTS"
	recipientsEnv      = "DIGEST_RECIPIENTS"
	maxPapersEnv       = "DIGEST_MAX_PAPERS"
	topNEnv            = "DIGEST_TOP_N"
	providerEnv        = "LLM_PROVIDER"
	anthropicKeyEnv    = "ANTHROPIC_API_KEY"
	openaiKeyEnv       = "OPENAI_API_KEY"
	semanticScholarEnv = "SEMANTIC_SCHOLAR_API_KEY"
	smtpHostEnv        = "SMTP_HOST"
	smtpPortEnv        = "SMTP_PORT"
	smtpUserEnv        = "SMTP_USER"
	smtpPassEnv        = "SMTP_PASS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Digest    DigestConfig    `yaml:"digest"`
	LLM       LLMConfig       `yaml:"llm"`
	Email     EmailConfig     `yaml:"email"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig locates the digest directory and the paper-memory database.
type StorageConfig struct {
	DigestDir    string `yaml:"digestDir"`
	MemoryDBPath string `yaml:"memoryDbPath"`
}

// SchedulerConfig defines when digest generation should run.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Hour     int            `yaml:"hour"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// DigestConfig carries the immutable run parameters for one generation.
type DigestConfig struct {
	Interests   string        `yaml:"interests"`
	Categories  []string      `yaml:"categories"`
	Sources     []string      `yaml:"sources"`
	MaxPapers   int           `yaml:"maxPapers"`
	TopN        int           `yaml:"topN"`
	BatchSize   int           `yaml:"batchSize"`
	BatchDelay  time.Duration `yaml:"batchDelay"`
	ExcludeSeen bool          `yaml:"excludeSeen"`

	// PriorityAuthors names authors whose papers get their relevance score
	// multiplied by AuthorBoost before selection.
	PriorityAuthors []string `yaml:"priorityAuthors"`
	AuthorBoost     float64  `yaml:"authorBoost"`

	SemanticScholarAPIKey string        `yaml:"semanticScholarApiKey"`
	SourceTimeout         time.Duration `yaml:"sourceTimeout"`
}

// LLMConfig selects the ranking backend and its credentials.
type LLMConfig struct {
	Provider        string `yaml:"provider"`
	AnthropicAPIKey string `yaml:"anthropicApiKey"`
	AnthropicModel  string `yaml:"anthropicModel"`
	OpenAIAPIKey    string `yaml:"openaiApiKey"`
	OpenAIModel     string `yaml:"openaiModel"`
	OpenAIEndpoint  string `yaml:"openaiEndpoint"`
	OllamaHost      string `yaml:"ollamaHost"`
	OllamaModel     string `yaml:"ollamaModel"`
}

// EmailConfig wires optional digest delivery.
type EmailConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Recipients    []string `yaml:"recipients"`
	From          string   `yaml:"from"`
	Subject       string   `yaml:"subject"`
	SendOnPartial bool     `yaml:"sendOnPartial"`
	SMTPHost      string   `yaml:"smtpHost"`
	SMTPPort      int      `yaml:"smtpPort"`
	SMTPUser      string   `yaml:"smtpUser"`
	SMTPPassword  string   `yaml:"smtpPassword"`
	SentStatePath string   `yaml:"sentStatePath"`
}

// fileConfig mirrors Config for YAML decoding. Fields whose zero value is a
// legitimate explicit setting (hour 0, boolean switches) are pointers, so an
// absent key and an explicit zero can be told apart during the merge.
type fileConfig struct {
	Logging   LoggingConfig       `yaml:"logging"`
	Storage   StorageConfig       `yaml:"storage"`
	Scheduler fileSchedulerConfig `yaml:"scheduler"`
	Digest    fileDigestConfig    `yaml:"digest"`
	LLM       LLMConfig           `yaml:"llm"`
	Email     fileEmailConfig     `yaml:"email"`
}

type fileSchedulerConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	Hour     *int   `yaml:"hour"`
	Timezone string `yaml:"timezone"`
}

type fileDigestConfig struct {
	Interests       string         `yaml:"interests"`
	Categories      []string       `yaml:"categories"`
	Sources         []string       `yaml:"sources"`
	MaxPapers       int            `yaml:"maxPapers"`
	TopN            int            `yaml:"topN"`
	BatchSize       int            `yaml:"batchSize"`
	BatchDelay      *time.Duration `yaml:"batchDelay"`
	ExcludeSeen     *bool          `yaml:"excludeSeen"`
	PriorityAuthors []string       `yaml:"priorityAuthors"`
	AuthorBoost     float64        `yaml:"authorBoost"`

	SemanticScholarAPIKey string        `yaml:"semanticScholarApiKey"`
	SourceTimeout         time.Duration `yaml:"sourceTimeout"`
}

type fileEmailConfig struct {
	Enabled       *bool    `yaml:"enabled"`
	Recipients    []string `yaml:"recipients"`
	From          string   `yaml:"from"`
	Subject       string   `yaml:"subject"`
	SendOnPartial *bool    `yaml:"sendOnPartial"`
	SMTPHost      string   `yaml:"smtpHost"`
	SMTPPort      int      `yaml:"smtpPort"`
	SMTPUser      string   `yaml:"smtpUser"`
	SMTPPassword  string   `yaml:"smtpPassword"`
	SentStatePath string   `yaml:"sentStatePath"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg fileConfig
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate checks the run parameters once, before any component is built.
// TopN larger than MaxPapers is allowed; selection caps at the smaller value.
func (c Config) Validate() error {
	d := c.Digest
	if strings.TrimSpace(d.Interests) == "" {
		return &domain.ConfigError{Field: "digest.interests", Msg: "interest statement is required"}
	}
	if len(d.Sources) == 0 {
		return &domain.ConfigError{Field: "digest.sources", Msg: "at least one source is required"}
	}
	if d.MaxPapers < 1 {
		return &domain.ConfigError{Field: "digest.maxPapers", Msg: "must be at least 1"}
	}
	if d.TopN < 1 {
		return &domain.ConfigError{Field: "digest.topN", Msg: "must be at least 1"}
	}
	if d.BatchSize < 1 {
		return &domain.ConfigError{Field: "digest.batchSize", Msg: "must be at least 1"}
	}
	if d.BatchDelay < 0 {
		return &domain.ConfigError{Field: "digest.batchDelay", Msg: "must not be negative"}
	}
	if d.SourceTimeout <= 0 {
		return &domain.ConfigError{Field: "digest.sourceTimeout", Msg: "must be positive"}
	}
	if len(d.PriorityAuthors) > 0 && d.AuthorBoost <= 0 {
		return &domain.ConfigError{Field: "digest.authorBoost", Msg: "must be positive when priority authors are set"}
	}

	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return &domain.ConfigError{Field: "llm.anthropicApiKey", Msg: "required for anthropic provider"}
		}
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return &domain.ConfigError{Field: "llm.openaiApiKey", Msg: "required for openai provider"}
		}
	case "ollama":
		if c.LLM.OllamaHost == "" {
			return &domain.ConfigError{Field: "llm.ollamaHost", Msg: "required for ollama provider"}
		}
	default:
		return &domain.ConfigError{Field: "llm.provider", Msg: "unknown provider " + c.LLM.Provider}
	}

	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return &domain.ConfigError{Field: "scheduler.hour", Msg: "must be between 0 and 23"}
	}
	if c.Email.Enabled && len(c.Email.Recipients) == 0 {
		return &domain.ConfigError{Field: "email.recipients", Msg: "required when email is enabled"}
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(categoriesEnv); v != "" {
		c.Digest.Categories = splitList(v)
	}
	if v := os.Getenv(interestsEnv); v != "" {
		c.Digest.Interests = v
	}
	if v := os.Getenv(recipientsEnv); v != "" {
		c.Email.Recipients = splitList(v)
	}
	if v := os.Getenv(maxPapersEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Digest.MaxPapers = n
		}
	}
	if v := os.Getenv(topNEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Digest.TopN = n
		}
	}
	if v := os.Getenv(providerEnv); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(anthropicKeyEnv); v != "" {
		c.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv(openaiKeyEnv); v != "" {
		c.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv(semanticScholarEnv); v != "" {
		c.Digest.SemanticScholarAPIKey = v
	}
	if v := os.Getenv(smtpHostEnv); v != "" {
		c.Email.SMTPHost = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Email.SMTPPort = n
		}
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.Email.SMTPUser = v
	}
	if v := os.Getenv(smtpPassEnv); v != "" {
		c.Email.SMTPPassword = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mergeConfig(base Config, override fileConfig) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Storage.DigestDir != "" {
		base.Storage.DigestDir = override.Storage.DigestDir
	}
	if override.Storage.MemoryDBPath != "" {
		base.Storage.MemoryDBPath = override.Storage.MemoryDBPath
	}

	if override.Scheduler.Enabled != nil {
		base.Scheduler.Enabled = *override.Scheduler.Enabled
	}
	if override.Scheduler.Hour != nil {
		base.Scheduler.Hour = *override.Scheduler.Hour
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Digest.Interests != "" {
		base.Digest.Interests = override.Digest.Interests
	}
	if len(override.Digest.Categories) > 0 {
		base.Digest.Categories = override.Digest.Categories
	}
	if len(override.Digest.Sources) > 0 {
		base.Digest.Sources = override.Digest.Sources
	}
	if override.Digest.MaxPapers != 0 {
		base.Digest.MaxPapers = override.Digest.MaxPapers
	}
	if override.Digest.TopN != 0 {
		base.Digest.TopN = override.Digest.TopN
	}
	if override.Digest.BatchSize != 0 {
		base.Digest.BatchSize = override.Digest.BatchSize
	}
	if override.Digest.BatchDelay != nil {
		base.Digest.BatchDelay = *override.Digest.BatchDelay
	}
	if override.Digest.ExcludeSeen != nil {
		base.Digest.ExcludeSeen = *override.Digest.ExcludeSeen
	}
	if len(override.Digest.PriorityAuthors) > 0 {
		base.Digest.PriorityAuthors = override.Digest.PriorityAuthors
	}
	if override.Digest.AuthorBoost != 0 {
		base.Digest.AuthorBoost = override.Digest.AuthorBoost
	}
	if override.Digest.SemanticScholarAPIKey != "" {
		base.Digest.SemanticScholarAPIKey = override.Digest.SemanticScholarAPIKey
	}
	if override.Digest.SourceTimeout != 0 {
		base.Digest.SourceTimeout = override.Digest.SourceTimeout
	}

	if override.LLM.Provider != "" {
		base.LLM.Provider = override.LLM.Provider
	}
	if override.LLM.AnthropicAPIKey != "" {
		base.LLM.AnthropicAPIKey = override.LLM.AnthropicAPIKey
	}
	if override.LLM.AnthropicModel != "" {
		base.LLM.AnthropicModel = override.LLM.AnthropicModel
	}
	if override.LLM.OpenAIAPIKey != "" {
		base.LLM.OpenAIAPIKey = override.LLM.OpenAIAPIKey
	}
	if override.LLM.OpenAIModel != "" {
		base.LLM.OpenAIModel = override.LLM.OpenAIModel
	}
	if override.LLM.OpenAIEndpoint != "" {
		base.LLM.OpenAIEndpoint = override.LLM.OpenAIEndpoint
	}
	if override.LLM.OllamaHost != "" {
		base.LLM.OllamaHost = override.LLM.OllamaHost
	}
	if override.LLM.OllamaModel != "" {
		base.LLM.OllamaModel = override.LLM.OllamaModel
	}

	if override.Email.Enabled != nil {
		base.Email.Enabled = *override.Email.Enabled
	}
	if len(override.Email.Recipients) > 0 {
		base.Email.Recipients = override.Email.Recipients
	}
	if override.Email.From != "" {
		base.Email.From = override.Email.From
	}
	if override.Email.Subject != "" {
		base.Email.Subject = override.Email.Subject
	}
	if override.Email.SendOnPartial != nil {
		base.Email.SendOnPartial = *override.Email.SendOnPartial
	}
	if override.Email.SMTPHost != "" {
		base.Email.SMTPHost = override.Email.SMTPHost
	}
	if override.Email.SMTPPort != 0 {
		base.Email.SMTPPort = override.Email.SMTPPort
	}
	if override.Email.SMTPUser != "" {
		base.Email.SMTPUser = override.Email.SMTPUser
	}
	if override.Email.SMTPPassword != "" {
		base.Email.SMTPPassword = override.Email.SMTPPassword
	}
	if override.Email.SentStatePath != "" {
		base.Email.SentStatePath = override.Email.SentStatePath
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			DigestDir:    "digests",
			MemoryDBPath: "digests/memory.db",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Hour:     6,
			Timezone: defaultTimezone,
			location: tz,
		},
		Digest: DigestConfig{
			Categories:    []string{"cs.AI", "cs.LG"},
			Sources:       []string{"arxiv"},
			MaxPapers:     50,
			TopN:          10,
			BatchSize:     5,
			BatchDelay:    time.Second,
			ExcludeSeen:   true,
			AuthorBoost:   1.5,
			SourceTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			AnthropicModel: "claude-3-haiku-20240307",
			OpenAIModel:    "gpt-4o-mini",
			OpenAIEndpoint: "https://api.openai.com/v1",
			OllamaHost:     "http://localhost:11434",
			OllamaModel:    "llama3.1",
		},
		Email: EmailConfig{
			Enabled:       false,
			Subject:       "Daily Research Digest - {date}",
			From:          "noreply@example.com",
			SMTPPort:      587,
			SentStatePath: "digests/sent.json",
		},
	}
}
