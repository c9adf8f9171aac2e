package config

import "time"

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultCharacterDir = "./characters"

	DefaultLLMProvider    = "gemini"
	DefaultLLMModel       = "gemini-2.0-flash"
	DefaultLLMTemperature = 0.9
	DefaultLLMMaxTokens   = 1024
	DefaultLLMMaxRetries  = 2
	DefaultLLMRetryDelay  = 2 * time.Second
	DefaultLLMTimeout     = time.Minute

	DefaultTwitterBaseURL       = "https://api.twitter.com"
	DefaultTwitterMentionsLimit = 20
	DefaultTwitterTimeout       = 30 * time.Second

	DefaultTrackerBaseURL   = "https://data.solanatracker.io"
	DefaultTrackerTimeframe = "1h"
	DefaultTrackerTimeout   = 30 * time.Second

	DefaultStorageDriver = "json"
	DefaultMemoryPath    = "./storage/memory.json"
	DefaultProcessedPath = "./storage/processed_tweets.json"
	DefaultSQLitePath    = "./storage/fudbot.db"

	DefaultPostMode              = PostModeTopical
	DefaultPostCooldown          = 5 * time.Minute
	DefaultNotificationInterval  = 5 * time.Minute
	DefaultTopTokens             = 30
	DefaultReplyBatchSize        = 2
	DefaultReplyDelay            = 30 * time.Second
	DefaultRateLimitBackoff      = 15 * time.Minute
	DefaultMaxGenerationAttempts = 3
	DefaultRecentPhraseCapacity  = 50
	DefaultDebugSamples          = 5

	TaskTick             = "tick"
	TaskStoreMaintenance = "store_maintenance"

	DefaultTickSchedule             = "* * * * * *"
	DefaultStoreMaintenanceSchedule = "0 30 4 * * *"
)

// Post modes. Topical posts are always token critiques; mixed posts flip a
// coin between a critique and a generic persona post, and mentions without a
// topic get a conversational reply instead of a dismissal.
const (
	PostModeTopical = "topical"
	PostModeMixed   = "mixed"
)

// DefaultPostMinutes are the quarter-hour marks a scheduled post may fire on.
var DefaultPostMinutes = []int{0, 15, 30, 45}

// DefaultMessages are the canned Telegram responses.
var DefaultMessages = MessagesConfig{
	Welcome:      "gm. i watch the charts so you don't have to. /help for commands.",
	Help:         "/status - loop state\n/recent [n] - last posts\n/trending - current top tokens\n/tweetmode on|off - toggle publishing (admin)\n/debugmode on|off - toggle debug run (admin)",
	Unauthorized: "not authorized.",
	GeneralError: "something broke. check the logs.",
	NoPosts:      "nothing posted yet.",
	ModeUsage:    "usage: /%s on|off",
}
