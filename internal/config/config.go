package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of the live player. Flags given on the command
// line override these values.
type Config struct {
	Environment string

	// HTTP snapshot API; empty disables it.
	HTTPAddr string

	// Audio
	SampleRate   int
	BufferFrames int
	Headless     bool

	// MIDI input
	MIDIDevice  string // preferred device name pattern
	MIDIChannel int    // -1 for all channels

	// Engine
	PresetPath    string
	Flats         bool
	PruneInterval time.Duration

	Debug bool
}

// Load reads the configuration from KEYS_* environment variables.
func Load() *Config {
	return &Config{
		Environment:   getEnv("KEYS_ENV", "development"),
		HTTPAddr:      getEnv("KEYS_HTTP_ADDR", ":8080"),
		SampleRate:    getEnvInt("KEYS_SAMPLE_RATE", 48000),
		BufferFrames:  getEnvInt("KEYS_BUFFER_FRAMES", 512),
		Headless:      getEnvBool("KEYS_HEADLESS", false),
		MIDIDevice:    getEnv("KEYS_MIDI_DEVICE", ""),
		MIDIChannel:   getEnvInt("KEYS_MIDI_CHANNEL", -1),
		PresetPath:    getEnv("KEYS_PRESET", ""),
		Flats:         getEnvBool("KEYS_FLATS", false),
		PruneInterval: getEnvDuration("KEYS_PRUNE_INTERVAL", 250*time.Millisecond),
		Debug:         getEnvBool("KEYS_DEBUG", false),
	}
}

// LoadDotEnv loads the given .env files (or ./.env) into the environment.
// A missing file is not an error and reports false.
func LoadDotEnv(files ...string) (bool, error) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsProduction reports whether the player runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(getEnv(key, "")))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
