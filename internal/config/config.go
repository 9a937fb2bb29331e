package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is not set")
	ErrNoJournal    = errors.New("JOURNAL_PATH is not set")
)

type Config struct {
	TelegramToken string
	TelegramDebug bool

	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	AdvisorTimeout time.Duration

	// ManagerChatID is zero when no operator chat is configured.
	ManagerChatID int64

	JournalPath      string
	JournalKey       string
	JournalRetention time.Duration

	NATSURL     string
	NATSSubject string

	LogLevel  string
	LogFormat string
}

// SetDefaults registers fallback values for every optional key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("ADVISOR_TIMEOUT", 8*time.Second)
	v.SetDefault("JOURNAL_RETENTION", 30*24*time.Hour)
	v.SetDefault("NATS_ORDER_SUBJECT", "orders.created")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// LoadDotEnv exports the variables of a .env file into the process
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from v. A malformed MANAGER_CHAT_ID is
// logged and treated as unset.
func Load(v *viper.Viper, logger *slog.Logger) (Config, error) {
	cfg := Config{
		TelegramToken:    strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
		TelegramDebug:    v.GetBool("TELEGRAM_DEBUG"),
		OpenAIKey:        strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		OpenAIModel:      v.GetString("OPENAI_MODEL"),
		OpenAIBaseURL:    v.GetString("OPENAI_BASE_URL"),
		AdvisorTimeout:   v.GetDuration("ADVISOR_TIMEOUT"),
		JournalPath:      v.GetString("JOURNAL_PATH"),
		JournalKey:       v.GetString("JOURNAL_ENCRYPTION_KEY"),
		JournalRetention: v.GetDuration("JOURNAL_RETENTION"),
		NATSURL:          v.GetString("NATS_URL"),
		NATSSubject:      v.GetString("NATS_ORDER_SUBJECT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}

	if raw := strings.TrimSpace(v.GetString("MANAGER_CHAT_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("ignoring malformed MANAGER_CHAT_ID, orders will not be relayed", "value", raw, "error", err)
		} else {
			cfg.ManagerChatID = id
		}
	}

	if cfg.AdvisorTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid ADVISOR_TIMEOUT %q", v.GetString("ADVISOR_TIMEOUT"))
	}
	if cfg.JournalRetention <= 0 {
		return Config{}, fmt.Errorf("invalid JOURNAL_RETENTION %q", v.GetString("JOURNAL_RETENTION"))
	}

	return cfg, nil
}

// Validate checks what the bot needs to start.
func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return nil
}
