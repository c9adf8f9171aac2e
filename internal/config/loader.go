package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "FUDBOT"

// credentialEnv maps config keys to the conventional variable names that
// deployments already export. The prefixed FUDBOT_* name is checked first.
var credentialEnv = map[string][]string{
	"character.name":              {"CHARACTER_NAME"},
	"llm.api_key":                 {"LLM_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"},
	"twitter.consumer_key":        {"TWITTER_CONSUMER_KEY"},
	"twitter.consumer_secret":     {"TWITTER_CONSUMER_SECRET"},
	"twitter.access_token":        {"TWITTER_ACCESS_TOKEN"},
	"twitter.access_token_secret": {"TWITTER_ACCESS_TOKEN_SECRET"},
	"tracker.api_key":             {"SOLANA_TRACKER_API_KEY"},
	"telegram.token":              {"TELEGRAM_BOT_TOKEN"},
	"telegram.admin_user_id":      {"TELEGRAM_ADMIN_USER_ID"},
	"telegram.mirror_chat_id":     {"TELEGRAM_CHAT_ID"},
	"storage.postgres_url":        {"DATABASE_URL"},
}

// LoadConfig reads configuration in order of increasing precedence:
// defaults, the YAML file at path (optional), then environment variables.
// The result is validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range credentialEnv {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("character.name", "")
	v.SetDefault("character.dir", DefaultCharacterDir)

	v.SetDefault("llm.provider", DefaultLLMProvider)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", DefaultLLMModel)
	v.SetDefault("llm.temperature", DefaultLLMTemperature)
	v.SetDefault("llm.max_tokens", DefaultLLMMaxTokens)
	v.SetDefault("llm.max_retries", DefaultLLMMaxRetries)
	v.SetDefault("llm.retry_delay", DefaultLLMRetryDelay)
	v.SetDefault("llm.timeout", DefaultLLMTimeout)

	v.SetDefault("twitter.base_url", DefaultTwitterBaseURL)
	v.SetDefault("twitter.mentions_limit", DefaultTwitterMentionsLimit)
	v.SetDefault("twitter.timeout", DefaultTwitterTimeout)

	v.SetDefault("tracker.base_url", DefaultTrackerBaseURL)
	v.SetDefault("tracker.timeframe", DefaultTrackerTimeframe)
	v.SetDefault("tracker.timeout", DefaultTrackerTimeout)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)
	v.SetDefault("telegram.mirror_chat_id", 0)
	v.SetDefault("telegram.messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("telegram.messages.help", DefaultMessages.Help)
	v.SetDefault("telegram.messages.unauthorized", DefaultMessages.Unauthorized)
	v.SetDefault("telegram.messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("telegram.messages.no_posts", DefaultMessages.NoPosts)
	v.SetDefault("telegram.messages.mode_usage", DefaultMessages.ModeUsage)

	v.SetDefault("storage.driver", DefaultStorageDriver)
	v.SetDefault("storage.memory_path", DefaultMemoryPath)
	v.SetDefault("storage.processed_path", DefaultProcessedPath)
	v.SetDefault("storage.sqlite_path", DefaultSQLitePath)
	v.SetDefault("storage.postgres_url", "")

	v.SetDefault("bot.post_mode", DefaultPostMode)
	v.SetDefault("bot.post_minutes", DefaultPostMinutes)
	v.SetDefault("bot.post_cooldown", DefaultPostCooldown)
	v.SetDefault("bot.notification_interval", DefaultNotificationInterval)
	v.SetDefault("bot.top_tokens", DefaultTopTokens)
	v.SetDefault("bot.reply_batch_size", DefaultReplyBatchSize)
	v.SetDefault("bot.reply_delay", DefaultReplyDelay)
	v.SetDefault("bot.rate_limit_backoff", DefaultRateLimitBackoff)
	v.SetDefault("bot.max_generation_attempts", DefaultMaxGenerationAttempts)
	v.SetDefault("bot.recent_phrase_capacity", DefaultRecentPhraseCapacity)
	v.SetDefault("bot.classify_mentions", false)
	v.SetDefault("bot.debug_samples", DefaultDebugSamples)

	v.SetDefault("scheduler.tasks."+TaskTick+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskTick+".schedule", DefaultTickSchedule)
	v.SetDefault("scheduler.tasks."+TaskStoreMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskStoreMaintenance+".schedule", DefaultStoreMaintenanceSchedule)
}
