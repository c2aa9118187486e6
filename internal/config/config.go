// Package config loads interviewer settings from defaults, an optional YAML
// file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/locale"
	"github.com/evstrateg/ai-interviewer-bot-sub001/internal/render"
)

// Config holds all interviewer configuration.
type Config struct {
	Interview  InterviewConfig  `yaml:"interview"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Store      StoreConfig      `yaml:"store"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InterviewConfig configures the turn pipeline.
type InterviewConfig struct {
	DefaultLanguage string        `yaml:"default_language"`
	PromptVersion   string        `yaml:"prompt_version"`
	SessionTimeout  time.Duration `yaml:"session_timeout"`
	ReapInterval    time.Duration `yaml:"reap_interval"`
	MaxHistory      int           `yaml:"max_history"`
	InternalNotes   bool          `yaml:"internal_notes"` // include internal_notes in turn output
}

// ClassifierConfig selects the response classifier.
type ClassifierConfig struct {
	Kind      string        `yaml:"kind"` // heuristic, judge
	JudgeAddr string        `yaml:"judge_addr"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GeneratorConfig configures optional model-backed phrasing.
type GeneratorConfig struct {
	Provider    string        `yaml:"provider"` // none, gemini
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int32         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	Driver    string `yaml:"driver"` // sqlite, pgx
	DSN       string `yaml:"dsn"`
	CacheSize int    `yaml:"cache_size"`
}

// ArchiveConfig configures where finished interviews go.
type ArchiveConfig struct {
	Kind      string `yaml:"kind"` // none, file, s3
	Dir       string `yaml:"dir"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Interview: InterviewConfig{
			DefaultLanguage: string(locale.English),
			PromptVersion:   string(render.DefaultVersion),
			SessionTimeout:  180 * time.Minute,
			ReapInterval:    5 * time.Minute,
			MaxHistory:      100,
		},
		Classifier: ClassifierConfig{
			Kind:    "heuristic",
			Timeout: 10 * time.Second,
		},
		Generator: GeneratorConfig{
			Provider:    "none",
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     20 * time.Second,
		},
		Store: StoreConfig{
			Driver:    "sqlite",
			DSN:       "interviewer.db",
			CacheSize: 1024,
		},
		Archive: ArchiveConfig{
			Kind:   "file",
			Dir:    "archive",
			Region: "us-east-1",
			Bucket: "interviewer-archive",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error. A .env file in the working directory is optional.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// #region env

func (c *Config) applyEnvOverrides() error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("INTERVIEWER_DEFAULT_LANGUAGE", &c.Interview.DefaultLanguage)
	str("INTERVIEWER_PROMPT_VERSION", &c.Interview.PromptVersion)
	if v := strings.TrimSpace(os.Getenv("SESSION_TIMEOUT_MINUTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_TIMEOUT_MINUTES: %w", err))
		} else {
			c.Interview.SessionTimeout = time.Duration(n) * time.Minute
		}
	}
	num("MAX_CONVERSATION_HISTORY", &c.Interview.MaxHistory)
	if v := strings.TrimSpace(os.Getenv("INTERVIEWER_INTERNAL_NOTES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INTERVIEWER_INTERNAL_NOTES: %w", err))
		} else {
			c.Interview.InternalNotes = b
		}
	}

	str("INTERVIEWER_CLASSIFIER", &c.Classifier.Kind)
	str("INTERVIEWER_JUDGE_ADDR", &c.Classifier.JudgeAddr)
	dur("INTERVIEWER_CLASSIFIER_TIMEOUT", &c.Classifier.Timeout)

	if key := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")); key != "" {
		c.Generator.APIKey = key
		if c.Generator.Provider == "none" {
			c.Generator.Provider = "gemini"
		}
	}
	str("INTERVIEWER_GENERATOR", &c.Generator.Provider)
	str("GEMINI_MODEL", &c.Generator.Model)
	if v := strings.TrimSpace(os.Getenv("GEMINI_TEMPERATURE")); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEMINI_TEMPERATURE: %w", err))
		} else {
			c.Generator.Temperature = float32(f)
		}
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_MAX_TOKENS")); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEMINI_MAX_TOKENS: %w", err))
		} else {
			c.Generator.MaxTokens = int32(n)
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		c.Store.DSN = dsn
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			c.Store.Driver = "pgx"
		}
	}
	str("INTERVIEWER_DB_DRIVER", &c.Store.Driver)
	str("INTERVIEWER_DB_PATH", &c.Store.DSN)

	str("INTERVIEWER_ARCHIVE", &c.Archive.Kind)
	str("INTERVIEWER_ARCHIVE_DIR", &c.Archive.Dir)
	str("ARTIFACT_S3_ENDPOINT", &c.Archive.Endpoint)
	str("ARTIFACT_S3_REGION", &c.Archive.Region)
	c.Archive.AccessKey = firstNonEmpty(os.Getenv("ARTIFACT_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER"), c.Archive.AccessKey)
	c.Archive.SecretKey = firstNonEmpty(os.Getenv("ARTIFACT_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD"), c.Archive.SecretKey)
	str("ARTIFACT_S3_BUCKET", &c.Archive.Bucket)

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if strings.HasPrefix(v, ":") {
			c.Server.Addr = v
		} else {
			c.Server.Addr = ":" + v
		}
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// #endregion env

// #region validate

// Validate rejects settings the interviewer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := locale.Parse(c.Interview.DefaultLanguage); err != nil {
		errs = append(errs, fmt.Errorf("interview.default_language: %w", err))
	}
	if _, err := render.ParseVersion(c.Interview.PromptVersion); err != nil {
		errs = append(errs, fmt.Errorf("interview.prompt_version: %w", err))
	}
	if c.Interview.SessionTimeout <= 0 {
		errs = append(errs, errors.New("interview.session_timeout must be positive"))
	}
	if c.Interview.ReapInterval <= 0 {
		errs = append(errs, errors.New("interview.reap_interval must be positive"))
	}
	if c.Interview.MaxHistory <= 0 {
		errs = append(errs, errors.New("interview.max_history must be positive"))
	}

	switch c.Classifier.Kind {
	case "heuristic":
	case "judge":
		if c.Classifier.JudgeAddr == "" {
			errs = append(errs, errors.New("classifier.judge_addr is required for the judge classifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("classifier.kind %q: want heuristic or judge", c.Classifier.Kind))
	}
	if c.Classifier.Timeout <= 0 {
		errs = append(errs, errors.New("classifier.timeout must be positive"))
	}

	switch c.Generator.Provider {
	case "none":
	case "gemini":
		if c.Generator.APIKey == "" {
			errs = append(errs, errors.New("generator.api_key is required for gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("generator.provider %q: want none or gemini", c.Generator.Provider))
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 1 {
		errs = append(errs, fmt.Errorf("generator.temperature %.2f outside [0,1]", c.Generator.Temperature))
	}
	if c.Generator.Timeout <= 0 {
		errs = append(errs, errors.New("generator.timeout must be positive"))
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "pgx" {
		errs = append(errs, fmt.Errorf("store.driver %q: want sqlite or pgx", c.Store.Driver))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required"))
	}

	switch c.Archive.Kind {
	case "none":
	case "file":
		if c.Archive.Dir == "" {
			errs = append(errs, errors.New("archive.dir is required for the file archive"))
		}
	case "s3":
		if c.Archive.Endpoint == "" || c.Archive.Bucket == "" {
			errs = append(errs, errors.New("archive.endpoint and archive.bucket are required for s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.kind %q: want none, file or s3", c.Archive.Kind))
	}

	if _, err := zapcore.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q: want text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Language returns the parsed default language.
func (c *Config) Language() locale.Language {
	lang, err := locale.Parse(c.Interview.DefaultLanguage)
	if err != nil {
		return locale.English
	}
	return lang
}

// Version returns the parsed default prompt version.
func (c *Config) Version() render.Version {
	v, err := render.ParseVersion(c.Interview.PromptVersion)
	if err != nil {
		return render.DefaultVersion
	}
	return v
}

// #endregion validate
