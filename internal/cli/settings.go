package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"insightchat-backend/internal/conversation"
)

// Settings is the CLI configuration.
// Precedence: env (INSIGHTCHAT_*) > config file > defaults.
type Settings struct {
	GeminiAPIKey    string `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel     string `mapstructure:"gemini_model" yaml:"gemini_model"`
	UsageServiceURL string `mapstructure:"usage_service_url" yaml:"usage_service_url"`
	UsageToken      string `mapstructure:"usage_token" yaml:"usage_token"`
	QuotaMaxRetries int    `mapstructure:"quota_max_retries" yaml:"quota_max_retries"`
	QuotaRetryMs    int    `mapstructure:"quota_retry_delay_ms" yaml:"quota_retry_delay_ms"`
	RawMaxRows      int    `mapstructure:"raw_max_rows" yaml:"raw_max_rows"`
	RawMaxChars     int    `mapstructure:"raw_max_chars" yaml:"raw_max_chars"`
	HistoryMessages int    `mapstructure:"history_max_messages" yaml:"history_max_messages"`
}

func loadSettings(cfgFile string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("INSIGHTCHAT")
	v.AutomaticEnv()

	limits := conversation.DefaultLimits()
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("usage_service_url", "")
	v.SetDefault("usage_token", "")
	v.SetDefault("quota_max_retries", limits.QuotaMaxRetries)
	v.SetDefault("quota_retry_delay_ms", 250)
	v.SetDefault("raw_max_rows", limits.RawMaxRows)
	v.SetDefault("raw_max_chars", limits.RawMaxChars)
	v.SetDefault("history_max_messages", limits.HistoryMessages)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".insightchat"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional
		_ = v.ReadInConfig()
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &s, nil
}

func (s *Settings) limits() conversation.Limits {
	return conversation.Limits{
		QuotaMaxRetries: s.QuotaMaxRetries,
		RawMaxRows:      s.RawMaxRows,
		RawMaxChars:     s.RawMaxChars,
		HistoryMessages: s.HistoryMessages,
	}
}

func (s *Settings) quotaRetryDelay() time.Duration {
	return time.Duration(s.QuotaRetryMs) * time.Millisecond
}
