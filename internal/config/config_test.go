package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(nil), discard())
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.Equal(t, 8*time.Second, cfg.AdvisorTimeout)
	assert.Equal(t, 720*time.Hour, cfg.JournalRetention)
	assert.Equal(t, "orders.created", cfg.NATSSubject)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.ManagerChatID)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)
}

func TestLoadValues(t *testing.T) {
	cfg, err := Load(newViper(map[string]any{
		"TELEGRAM_BOT_TOKEN": " 123:abc ",
		"OPENAI_API_KEY":     "sk-test",
		"ADVISOR_TIMEOUT":    "3s",
		"MANAGER_CHAT_ID":    "-1001234567890",
		"JOURNAL_PATH":       "/var/lib/bot/journal.db",
		"TELEGRAM_DEBUG":     "true",
	}), discard())
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Equal(t, 3*time.Second, cfg.AdvisorTimeout)
	assert.Equal(t, int64(-1001234567890), cfg.ManagerChatID)
	assert.Equal(t, "/var/lib/bot/journal.db", cfg.JournalPath)
	assert.True(t, cfg.TelegramDebug)
	assert.NoError(t, cfg.Validate())
}

func TestMalformedManagerChatIsIgnored(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cfg, err := Load(newViper(map[string]any{"MANAGER_CHAT_ID": "ops-chat"}), logger)
	require.NoError(t, err)
	assert.Zero(t, cfg.ManagerChatID)
	assert.Contains(t, logs.String(), "MANAGER_CHAT_ID")
}

func TestLoadRejectsBadDurations(t *testing.T) {
	_, err := Load(newViper(map[string]any{"ADVISOR_TIMEOUT": "0s"}), discard())
	assert.Error(t, err)

	_, err = Load(newViper(map[string]any{"JOURNAL_RETENTION": "-1h"}), discard())
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MATERIALS_BOT_TEST_KEY=from-dotenv\n"), 0o600))
	t.Setenv("MATERIALS_BOT_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("MATERIALS_BOT_TEST_KEY"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("MATERIALS_BOT_TEST_KEY"))

	v := viper.New()
	v.AutomaticEnv()
	assert.Equal(t, "from-dotenv", v.GetString("MATERIALS_BOT_TEST_KEY"))
}
