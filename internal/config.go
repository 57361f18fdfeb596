package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0"`
	Port                int           `env:"PORT,default=8080"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret           string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration   time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthHandshakeWindow time.Duration `env:"AUTH_HANDSHAKE_WINDOW,default=10s"`
	DeliveryBufferSize  int           `env:"DELIVERY_BUFFER_SIZE,default=16"`
	LimitMessages       *int          `env:"LIMIT_MESSAGES"`
	CharReplacement     string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ReportFilepath      string        `env:"REPORT_FILEPATH,default=reports.log"`
	ReportFlushInterval time.Duration `env:"REPORT_FLUSH_INTERVAL,default=5s"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}

// Logger builds the process logger from the configured level,
// defaulting to Info on an unknown value.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
