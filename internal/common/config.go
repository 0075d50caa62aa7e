package common

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (PDFX_BATCH_PAGE_DELAY=0s).
const EnvPrefix = "PDFX"

// Config holds all application configuration
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Render  RenderConfig  `mapstructure:"render"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Log     LogConfig     `mapstructure:"log"`
}

// InputConfig describes the district/round/PDF tree and how much of it to process.
type InputConfig struct {
	Root              string   `mapstructure:"root"`
	Districts         []string `mapstructure:"districts"`
	LimitDistricts    int      `mapstructure:"limit_districts"`      // 0 = all
	LimitPDFsPerRound int      `mapstructure:"limit_pdfs_per_round"` // 0 = all
}

// OutputConfig holds result table and ledger locations. Relative file names
// resolve against Dir.
type OutputConfig struct {
	Dir          string `mapstructure:"dir"`
	RecordsFile  string `mapstructure:"records_file"`
	SummaryFile  string `mapstructure:"summary_file"`
	TrackerFile  string `mapstructure:"tracker_file"`
	WorkbookFile string `mapstructure:"workbook_file"`
	SQLitePath   string `mapstructure:"sqlite_path"` // empty disables the SQLite mirror
}

// TrackerConfig tunes the processed-set ledger.
type TrackerConfig struct {
	SaveEvery   int    `mapstructure:"save_every"`
	KeyStrategy string `mapstructure:"key_strategy"` // filename | relpath
}

// BatchConfig tunes the orchestrator.
type BatchConfig struct {
	CheckpointEvery int           `mapstructure:"checkpoint_every"` // districts
	PageDelay       time.Duration `mapstructure:"page_delay"`
	ProgressEvery   int           `mapstructure:"progress_every"` // PDFs
}

// RenderConfig controls page rasterization.
type RenderConfig struct {
	Scale float64 `mapstructure:"scale"` // 1.0 = 72 DPI
}

// LLMConfig holds model service configuration
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int64         `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	TextLimit   int           `mapstructure:"text_limit"`
}

// RetryConfig is the per-page retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// LogConfig selects handler, level and optional tee file.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	File   string `mapstructure:"file"`   // empty = stdout only
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.root", "RA_tasks_2025")
	v.SetDefault("input.districts", []string{})
	v.SetDefault("input.limit_districts", 3)
	v.SetDefault("input.limit_pdfs_per_round", 10000)

	v.SetDefault("output.dir", "results")
	v.SetDefault("output.records_file", "extracted_software_data.csv")
	v.SetDefault("output.summary_file", "district_summary.csv")
	v.SetDefault("output.tracker_file", "processed_pdfs.json")
	v.SetDefault("output.workbook_file", "software_report.xlsx")
	v.SetDefault("output.sqlite_path", "")

	v.SetDefault("tracker.save_every", 5)
	v.SetDefault("tracker.key_strategy", "filename")

	v.SetDefault("batch.checkpoint_every", 5)
	v.SetDefault("batch.page_delay", 1500*time.Millisecond)
	v.SetDefault("batch.progress_every", 10)

	v.SetDefault("render.scale", 1.5)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", time.Hour)
	v.SetDefault("llm.text_limit", 800)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 2*time.Second)
	v.SetDefault("retry.multiplier", 1.5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// DefaultConfig returns the built-in defaults without reading files or env.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	return &cfg
}

// LoadConfig layers defaults, an optional config file (YAML/TOML/JSON by
// extension), a best-effort .env file and environment variables.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; a missing file is the common case
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("llm.model", EnvPrefix+"_LLM_MODEL", "OPENAI_MODEL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("llm.base_url", EnvPrefix+"_LLM_BASE_URL", "OPENAI_BASE_URL"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "decode config", err)
	}
	return &cfg, nil
}

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("input.root", c.Input.Root, Required)
	v.Field("output.dir", c.Output.Dir, Required)
	v.Field("tracker.save_every", c.Tracker.SaveEvery, Positive)
	v.Field("batch.checkpoint_every", c.Batch.CheckpointEvery, Positive)
	v.Field("retry.max_attempts", c.Retry.MaxAttempts, Positive)
	v.Field("render.scale", c.Render.Scale, Positive)
	v.Field("tracker.key_strategy", c.Tracker.KeyStrategy, OneOf("filename", "relpath"))
	v.Field("log.format", c.Log.Format, OneOf("json", "text"))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// RequireCredentials fails when the model service cannot be called.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrMissingCredentials)
	}
	return nil
}

// OutputPath resolves name against Output.Dir unless it is absolute.
func (c *Config) OutputPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}
