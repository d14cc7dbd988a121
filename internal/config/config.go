package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"

	"markov-chatter/internal/copypasta"
	"markov-chatter/internal/scheduler"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

// PlatformMaxMessageLength is the hard cap of the chat platform.
const PlatformMaxMessageLength = 4096

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	OwnerUserID      int64   `env:"OWNER_USER_ID"`
	OwnerName        string  `env:"CHANNEL_OWNER"`
	ModeratorIDs     []int64 `env:"MODERATOR_IDS" envSeparator:":"`
	// Chats the bot listens to; empty means every chat it is in.
	AllowedChats []int64 `env:"ALLOWED_CHATS" envSeparator:":"`

	// Markov generator
	AllowURLs            bool          `env:"ALLOW_URLS" envDefault:"false"`
	ContextWindowLength  int           `env:"CONTEXT_WINDOW_LENGTH" envDefault:"3"`
	MinTokenLength       int           `env:"MIN_TOKEN_LENGTH" envDefault:"1"`
	MaxMessageLength     int           `env:"MAX_MESSAGE_LENGTH" envDefault:"500"`
	AutonomousDelayCount int           `env:"AUTONOMOUS_DELAY_COUNT" envDefault:"20"`
	AutonomousDelay      time.Duration `env:"AUTONOMOUS_DELAY" envDefault:"300s"`
	GenerationRetryCount int           `env:"GENERATION_RETRY_COUNT" envDefault:"10"`
	ReplyCooldown        time.Duration `env:"REPLY_COOLDOWN" envDefault:"30s"`
	UseEqualWeights      bool          `env:"USE_EQUAL_WEIGHTS" envDefault:"false"`
	WeightFunction       string        `env:"WEIGHT_FUNCTION" envDefault:"length"`

	// Detectors
	ChantRepeatCount int     `env:"CHANT_REPEAT_COUNT" envDefault:"3"`
	PyramidStopSize  int     `env:"PYRAMID_STOP_SIZE" envDefault:"2"`
	PyramidMention   float64 `env:"PYRAMID_MENTION_CHANCE" envDefault:"0.25"`

	// LLM settings (askgpt)
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`
	AskGPTMaxTokens  int         `env:"ASKGPT_MAX_TOKENS" envDefault:"100"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Storage
	LedgerFilePath     string `env:"LEDGER_FILE_PATH" envDefault:"data/ledger.json"`
	CorpusFilePath     string `env:"CORPUS_FILE_PATH" envDefault:"data/corpus.txt"`
	ModeratorsFilePath string `env:"MODERATORS_FILE_PATH" envDefault:"data/moderators.json"`
	UtteranceLogPath   string `env:"UTTERANCE_LOG_PATH" envDefault:"logs/utterances.jsonl"`

	// Reports
	ReportSchedule string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Parse reads the environment without exiting on error.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxMessageLength > PlatformMaxMessageLength {
		cfg.MaxMessageLength = PlatformMaxMessageLength
	}
	return cfg, nil
}

// Copypasta builds the generator configuration.
func (c *Config) Copypasta() (*copypasta.Config, error) {
	weight, err := copypasta.ParseWeightFunc(c.WeightFunction)
	if err != nil {
		return nil, fmt.Errorf("WEIGHT_FUNCTION: %w", err)
	}
	return &copypasta.Config{
		AllowURLs:            c.AllowURLs,
		ContextWindowLength:  c.ContextWindowLength,
		MinTokenLength:       c.MinTokenLength,
		MaxMessageLength:     c.MaxMessageLength,
		AutonomousDelayCount: c.AutonomousDelayCount,
		AutonomousDelay:      c.AutonomousDelay,
		GenerationRetryCount: c.GenerationRetryCount,
		ReplyCooldown:        c.ReplyCooldown,
		UseEqualWeights:      c.UseEqualWeights,
		Weight:               weight,
	}, nil
}

// Schedule extracts the scheduler settings from a generator configuration.
func Schedule(c *copypasta.Config) scheduler.Config {
	return scheduler.Config{
		DelayCount:    c.AutonomousDelayCount,
		Delay:         c.AutonomousDelay,
		ReplyCooldown: c.ReplyCooldown,
	}
}
