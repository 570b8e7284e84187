// Package config loads the immutable configuration snapshot the
// session pipeline is constructed with.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

// Config is one session's configuration. It is read once at startup
// and never mutated; a changed setting means a new session.
type Config struct {
	Device        string // microphone device name, empty = system default
	SampleRate    uint32
	Channels      uint32
	RecordingsDir string // empty = ~/Recordings
	Backend       string // "vosk" or "openai"
	ModelPath     string // vosk model dir or its parent
	APIKey        string
	Language      string
}

// Load reads configuration from the environment. If envFile is
// non-empty, it is loaded first (missing file is not an error, same
// as the usual .env convention).
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		godotenv.Load()
	}

	cfg := Config{
		Device:        os.Getenv("VOICE_RECORDER_DEVICE"),
		SampleRate:    DefaultSampleRate,
		Channels:      DefaultChannels,
		RecordingsDir: os.Getenv("VOICE_RECORDER_DIR"),
		Backend:       os.Getenv("VOICE_RECORDER_BACKEND"),
		ModelPath:     os.Getenv("VOSK_MODEL_PATH"),
		APIKey:        os.Getenv("OPENAI_API_KEY"),
		Language:      os.Getenv("VOICE_RECORDER_LANG"),
	}

	if v := os.Getenv("VOICE_RECORDER_SAMPLE_RATE"); v != "" {
		rate, err := strconv.ParseUint(v, 10, 32)
		if err != nil || rate == 0 {
			return Config{}, fmt.Errorf("invalid VOICE_RECORDER_SAMPLE_RATE %q", v)
		}
		cfg.SampleRate = uint32(rate)
	}

	if cfg.Backend == "" {
		// The offline model needs no credentials; prefer it unless a
		// key is configured.
		if cfg.APIKey != "" {
			cfg.Backend = "openai"
		} else {
			cfg.Backend = "vosk"
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case "vosk", "openai":
	default:
		return fmt.Errorf("unknown backend %q (use vosk or openai)", c.Backend)
	}
	if c.Backend == "openai" && c.APIKey == "" {
		return fmt.Errorf("backend openai requires OPENAI_API_KEY")
	}
	return nil
}
