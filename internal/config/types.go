// Package config provides configuration loading, validation, and defaults
// for fudbot. Values come from an optional YAML file, FUDBOT_* environment
// variables and the well-known credential variables (see loader.go).
package config

import "time"

// Config is the root configuration for all fudbot components.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Character CharacterConfig `mapstructure:"character"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Twitter   TwitterConfig   `mapstructure:"twitter"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Bot       BotConfig       `mapstructure:"bot"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// CharacterConfig selects the persona loaded at startup.
type CharacterConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Dir  string `mapstructure:"dir"  validate:"required"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"    validate:"oneof=gemini openai"`
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	BaseURL     string        `mapstructure:"base_url"    validate:"omitempty,url"`
	Model       string        `mapstructure:"model"       validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens"  validate:"min=1"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s"`
}

// TwitterConfig holds the OAuth1 user-context credentials for the
// microblog platform.
type TwitterConfig struct {
	ConsumerKey       string        `mapstructure:"consumer_key"        validate:"required"`
	ConsumerSecret    string        `mapstructure:"consumer_secret"     validate:"required"`
	AccessToken       string        `mapstructure:"access_token"        validate:"required"`
	AccessTokenSecret string        `mapstructure:"access_token_secret" validate:"required"`
	BaseURL           string        `mapstructure:"base_url"            validate:"required,url"`
	MentionsLimit     int           `mapstructure:"mentions_limit"      validate:"min=5,max=100"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s"`
}

// TrackerConfig configures the token analytics API.
type TrackerConfig struct {
	APIKey    string        `mapstructure:"api_key"   validate:"required"`
	BaseURL   string        `mapstructure:"base_url"  validate:"required,url"`
	Timeframe string        `mapstructure:"timeframe" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout"   validate:"min=1s"`
}

// TelegramConfig configures the optional Telegram control surface. An empty
// token disables it.
type TelegramConfig struct {
	Token        string         `mapstructure:"token"`
	AdminUserID  int64          `mapstructure:"admin_user_id"  validate:"required_with=Token"`
	MirrorChatID int64          `mapstructure:"mirror_chat_id"`
	Messages     MessagesConfig `mapstructure:"messages"`
}

// MessagesConfig holds canned Telegram responses.
type MessagesConfig struct {
	Welcome      string `mapstructure:"welcome"`
	Help         string `mapstructure:"help"`
	Unauthorized string `mapstructure:"unauthorized"`
	GeneralError string `mapstructure:"general_error"`
	NoPosts      string `mapstructure:"no_posts"`
	ModeUsage    string `mapstructure:"mode_usage"`
}

// StorageConfig selects and configures the memory backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"         validate:"oneof=json sqlite postgres"`
	MemoryPath    string `mapstructure:"memory_path"    validate:"required_if=Driver json"`
	ProcessedPath string `mapstructure:"processed_path" validate:"required_if=Driver json"`
	SQLitePath    string `mapstructure:"sqlite_path"    validate:"required_if=Driver sqlite"`
	PostgresURL   string `mapstructure:"postgres_url"   validate:"required_if=Driver postgres"`
}

// BotConfig holds the orchestration loop policy.
type BotConfig struct {
	PostMode              string        `mapstructure:"post_mode"               validate:"oneof=topical mixed"`
	PostMinutes           []int         `mapstructure:"post_minutes"            validate:"min=1,dive,min=0,max=59"`
	PostCooldown          time.Duration `mapstructure:"post_cooldown"`
	NotificationInterval  time.Duration `mapstructure:"notification_interval"   validate:"min=1s"`
	TopTokens             int           `mapstructure:"top_tokens"              validate:"min=1,max=100"`
	ReplyBatchSize        int           `mapstructure:"reply_batch_size"        validate:"min=1"`
	ReplyDelay            time.Duration `mapstructure:"reply_delay"`
	RateLimitBackoff      time.Duration `mapstructure:"rate_limit_backoff"      validate:"min=1s"`
	MaxGenerationAttempts int           `mapstructure:"max_generation_attempts" validate:"min=1,max=10"`
	RecentPhraseCapacity  int           `mapstructure:"recent_phrase_capacity"  validate:"min=1"`
	ClassifyMentions      bool          `mapstructure:"classify_mentions"`
	DebugSamples          int           `mapstructure:"debug_samples"           validate:"min=1"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single scheduled task. Schedule is a cron
// expression with a leading seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
