package utils

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Address        string
	OriginPatterns []string

	// Intervals are in milliseconds.
	ReadTimeout  int
	WriteTimeout int
	TickInterval int

	SendQueue int
}

type MixerConfig struct {
	Workers       int
	MaxFrameBytes int64

	// QueueWarnDepth logs when a session has this many undrained messages.
	QueueWarnDepth int

	// BubbleMargin is how far past an avatar's box its personal space reaches.
	BubbleMargin float64

	MaxDisplayName int
}

type LogConfig struct {
	Level       string
	Development bool
}

type MathConfig struct {
	Float64EqualityThreshold float64
}

type Config struct {
	Server ServerConfig
	Mixer  MixerConfig
	Log    LogConfig
	Math   MathConfig
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      "localhost:4242",
			ReadTimeout:  10000,
			WriteTimeout: 10000,
			TickInterval: 17,
			SendQueue:    1024,
		},
		Mixer: MixerConfig{
			Workers:        4,
			MaxFrameBytes:  1 << 16,
			QueueWarnDepth: 256,
			BubbleMargin:   0.5,
			MaxDisplayName: 128,
		},
		Log: LogConfig{
			Level: "info",
		},
		Math: MathConfig{
			Float64EqualityThreshold: 1e-9,
		},
	}
}

// ReadTOML loads fileName over the defaults. A missing file yields the defaults.
func ReadTOML(fileName string) (*Config, error) {
	config := DefaultConfig()
	file, err := os.ReadFile(fileName)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(file, config); err != nil {
		return nil, err
	}
	return config, nil
}

func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

func AlmostEqual(a, b, threshold float64) bool {
	return math.Abs(a-b) <= threshold
}
