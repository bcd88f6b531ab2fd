// Package config loads the environment driven settings of both binaries.
// A .env file in the working directory is read first when present; real
// environment variables win over it.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Server struct {
	Host             string        `env:"CHAT_HOST,default=127.0.0.1" validate:"required"`
	Port             int           `env:"CHAT_PORT,default=8887" validate:"min=0,max=65535"`
	MetricsAddr      string        `env:"CHAT_METRICS_ADDR" validate:"omitempty,hostname_port"`
	LogLevel         string        `env:"LOG_LEVEL,default=INFO" validate:"required,loglevel"`
	TranscriptPath   string        `env:"CHAT_TRANSCRIPT_PATH"`
	HistoryGreets    int           `env:"CHAT_HISTORY_GREETS,default=10" validate:"min=0,max=1000"`
	MaxMessageLength int           `env:"CHAT_MAX_MESSAGE_LENGTH,default=512" validate:"min=0"`
	WriteTimeout     time.Duration `env:"CHAT_WRITE_TIMEOUT,default=0s" validate:"min=0s"`
}

// Addr is the listen address built from Host and Port.
func (c Server) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Server) Level() slog.Level {
	return ParseLevel(c.LogLevel)
}

type Client struct {
	ServerAddr string `env:"CHAT_SERVER_ADDR,default=127.0.0.1:8887" validate:"required,hostname_port"`
	LogLevel   string `env:"LOG_LEVEL,default=INFO" validate:"required,loglevel"`
	Colours    bool   `env:"CHAT_COLOURS,default=true"`
}

func init() {
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		var l slog.Level
		return l.UnmarshalText([]byte(fl.Field().String())) == nil
	})
}

func LoadServer() (Server, error) {
	var cfg Server
	if err := load(&cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func LoadClient() (Client, error) {
	var cfg Client
	if err := load(&cfg); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func load(cfg any) error {
	_ = godotenv.Load()
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseLevel maps DEBUG/INFO/WARN/ERROR (any case) to a slog level and
// falls back to INFO.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}
