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
)

type Config struct {
	HTTPAddr        string
	StaticDir       string
	UploadsDir      string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	// TLS is enabled when both files are set
	TLSCertFile string
	TLSKeyFile  string

	SpeechLanguage   string
	SpeechSampleRate int
	SpeechModel      string
	AudioValidate    bool

	TranscribeTimeout time.Duration
	SentimentTimeout  time.Duration
	MaxConcurrent     int
	UploadMaxAge      time.Duration

	CredentialsFile string
	Project         string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads envFile (if present) into the environment, then builds the
// configuration from environment variables. Variables already set in the
// environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("could not load env file %s: %w", envFile, err)
		}
	}

	var errs []error
	cfg := Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":3000"),
		StaticDir:         getEnv("STATIC_DIR", "static"),
		UploadsDir:        getEnv("UPLOADS_DIR", "uploads"),
		MaxUploadBytes:    int64(getInt("MAX_UPLOAD_BYTES", 32<<20, &errs)),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		TLSCertFile:       os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:        os.Getenv("TLS_KEY_FILE"),
		SpeechLanguage:    getEnv("SPEECH_LANGUAGE", "en-US"),
		SpeechSampleRate:  getInt("SPEECH_SAMPLE_RATE", 48000, &errs),
		SpeechModel:       os.Getenv("SPEECH_MODEL"),
		AudioValidate:     getBool("AUDIO_VALIDATE", true, &errs),
		TranscribeTimeout: getDuration("TRANSCRIBE_TIMEOUT", 60*time.Second, &errs),
		SentimentTimeout:  getDuration("SENTIMENT_TIMEOUT", 15*time.Second, &errs),
		MaxConcurrent:     getInt("MAX_CONCURRENT", 8, &errs),
		UploadMaxAge:      getDuration("UPLOAD_MAX_AGE", 15*time.Minute, &errs),
		CredentialsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Project:           os.Getenv("GOOGLE_CLOUD_PROJECT"),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("could not parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	if c.UploadsDir == "" {
		errs = append(errs, errors.New("UPLOADS_DIR must not be empty"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.SpeechSampleRate <= 0 {
		errs = append(errs, errors.New("SPEECH_SAMPLE_RATE must be positive"))
	}
	if c.TranscribeTimeout <= 0 || c.SentimentTimeout <= 0 {
		errs = append(errs, errors.New("TRANSCRIBE_TIMEOUT and SENTIMENT_TIMEOUT must be positive"))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENT must be positive"))
	}
	if c.UploadMaxAge <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_AGE must be positive"))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// NewLogger builds the process logger from the configuration.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
