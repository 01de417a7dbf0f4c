package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Remote interview service
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	WSBaseURL  string        `env:"WS_BASE_URL"` // derived from API_BASE_URL when empty
	RPCTimeout time.Duration `env:"RPC_TIMEOUT" envDefault:"30s"`

	// Companion API
	HTTPAddress string `env:"HTTP_ADDRESS" envDefault:":8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Tracing   string `env:"TRACING"` // "stdout" or empty

	// Media and speech
	FrameInterval         time.Duration `env:"FRAME_INTERVAL" envDefault:"500ms"`
	SpeechLanguage        string        `env:"SPEECH_LANGUAGE" envDefault:"en-US"`
	SpeechWordsPerMinute  int           `env:"SPEECH_WORDS_PER_MINUTE" envDefault:"170"`
	GoogleCredentialsFile string        `env:"GOOGLE_CREDENTIALS_FILE"`
	AudioInput            string        `env:"AUDIO_INPUT"` // raw LINEAR16 16kHz mono; empty = typed answers
	FrameInput            string        `env:"FRAME_INPUT"` // JPEG file refreshed by the camera helper

	// Progress flags and report archive. Both are optional.
	RedisAddr  string        `env:"REDIS_ADDR"`
	RedisURL   string        `env:"REDIS_URL"`
	MongoURI   string        `env:"MONGO_URI"`
	MongoDB    string        `env:"MONGO_DB" envDefault:"mockinterview"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.WSBaseURL == "" {
		cfg.WSBaseURL = WebsocketBase(cfg.APIBaseURL)
	}
	cfg.WSBaseURL = strings.TrimRight(cfg.WSBaseURL, "/")
	if cfg.FrameInterval <= 0 {
		return nil, fmt.Errorf("FRAME_INTERVAL must be positive")
	}
	return cfg, nil
}

// RedisTarget returns whichever of REDIS_ADDR / REDIS_URL was set.
func (c *Config) RedisTarget() string {
	if c.RedisAddr != "" {
		return c.RedisAddr
	}
	return c.RedisURL
}

// WebsocketBase maps http(s):// to ws(s)://.
func WebsocketBase(apiBase string) string {
	switch {
	case strings.HasPrefix(apiBase, "https://"):
		return "wss://" + strings.TrimPrefix(apiBase, "https://")
	case strings.HasPrefix(apiBase, "http://"):
		return "ws://" + strings.TrimPrefix(apiBase, "http://")
	}
	return apiBase
}
