package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Relay modes
const (
	// RelayModeStore downloads provider audio and serves it from the audio store
	RelayModeStore = "store"
	// RelayModeDirect returns the provider's audio URL without downloading it
	RelayModeDirect = "direct"
)

// Audio store backends
const (
	StoreLocal = "local"
	StoreS3    = "s3"
)

// Config holds all configuration for the readaloud relay service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"5000"`

	// Relay configuration
	RelayMode      string `envconfig:"RELAY_MODE" default:"store"`        // store or direct
	AudioDir       string `envconfig:"AUDIO_DIR" default:"audios"`        // Created on startup if absent
	AudioURLPrefix string `envconfig:"AUDIO_URL_PREFIX" default:"/audios"` // Path prefix generated files are served under
	ClientBuildDir string `envconfig:"CLIENT_BUILD_DIR" default:"../client/build"`

	// TTS provider configuration
	TTSHost    string `envconfig:"TTS_HOST" default:"https://translate.google.com"`
	TTSTimeout int    `envconfig:"TTS_TIMEOUT" default:"10"` // seconds, per provider call

	// Translation endpoint (used by the CLI)
	TranslateURL string `envconfig:"TRANSLATE_URL" default:"https://translate.googleapis.com/translate_a/single"`

	// Audio store backend
	AudioStore  string `envconfig:"AUDIO_STORE" default:"local"` // local or s3
	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:""`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:""`
	S3Bucket    string `envconfig:"S3_BUCKET" default:""`
	S3Region    string `envconfig:"S3_REGION" default:""`
	S3Secure    bool   `envconfig:"S3_SECURE" default:"true"`

	// Deepgram STT configuration for the dictation endpoint (optional)
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`

	// Dictation audio configuration
	DictationSampleRate int     `envconfig:"DICTATION_SAMPLE_RATE" default:"16000"` // linear16 mono
	VADEnergyThreshold  float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"`  // RMS energy threshold for VAD
	VADSilenceFrames    int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`       // Frames of silence to mark speech end

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks option values that envconfig cannot express
func (c *Config) Validate() error {
	switch c.RelayMode {
	case RelayModeStore, RelayModeDirect:
	default:
		return fmt.Errorf("RELAY_MODE must be %q or %q, got %q", RelayModeStore, RelayModeDirect, c.RelayMode)
	}

	switch c.AudioStore {
	case StoreLocal:
	case StoreS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required when AUDIO_STORE=s3")
		}
	default:
		return fmt.Errorf("AUDIO_STORE must be %q or %q, got %q", StoreLocal, StoreS3, c.AudioStore)
	}

	if c.DictationSampleRate <= 0 {
		return fmt.Errorf("DICTATION_SAMPLE_RATE must be positive")
	}

	return nil
}

// DictationEnabled reports whether a speech recognition engine is configured
func (c *Config) DictationEnabled() bool {
	return c.DeepgramAPIKey != ""
}
