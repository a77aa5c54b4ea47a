package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/google"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "STATIC_DIR", "UPLOADS_DIR", "MAX_UPLOAD_BYTES", "SHUTDOWN_TIMEOUT",
		"TLS_CERT_FILE", "TLS_KEY_FILE", "SPEECH_LANGUAGE", "SPEECH_SAMPLE_RATE",
		"SPEECH_MODEL", "AUDIO_VALIDATE", "TRANSCRIBE_TIMEOUT", "SENTIMENT_TIMEOUT",
		"MAX_CONCURRENT", "UPLOAD_MAX_AGE", "GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_CLOUD_PROJECT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, "en-US", cfg.SpeechLanguage)
	assert.Equal(t, 48000, cfg.SpeechSampleRate)
	assert.True(t, cfg.AudioValidate)
	assert.Equal(t, 60*time.Second, cfg.TranscribeTimeout)
	assert.Equal(t, 15*time.Second, cfg.SentimentTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.TLSEnabled())
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"HTTP_ADDR=:9000\nSPEECH_LANGUAGE=fr-FR\nTRANSCRIBE_TIMEOUT=90s\nLOG_LEVEL=debug\n"), 0644))
	t.Setenv("SPEECH_LANGUAGE", "de-DE")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "de-DE", cfg.SpeechLanguage)
	assert.Equal(t, 90*time.Second, cfg.TranscribeTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_CONCURRENT", "many")
	t.Setenv("SENTIMENT_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CONCURRENT")
	assert.Contains(t, err.Error(), "SENTIMENT_TIMEOUT")
}

func TestValidate_TLSPair(t *testing.T) {
	clearEnv(t)
	t.Setenv("TLS_CERT_FILE", "server.crt")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS_CERT_FILE and TLS_KEY_FILE")
}

func TestValidate_UploadMaxAgeMustBePositive(t *testing.T) {
	for _, value := range []string{"0s", "-5s"} {
		clearEnv(t)
		t.Setenv("UPLOAD_MAX_AGE", value)

		_, err := Load("")
		require.Error(t, err, value)
		assert.Contains(t, err.Error(), "UPLOAD_MAX_AGE must be positive")
	}
}

func TestCheckCredentials_MissingFile(t *testing.T) {
	cfg := Config{CredentialsFile: filepath.Join(t.TempDir(), "credentials.json")}

	err := cfg.CheckCredentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials file not found")
}

func TestCheckCredentials_FilePresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0600))

	cfg := Config{CredentialsFile: path}
	assert.NoError(t, cfg.CheckCredentials(context.Background()))
	assert.Len(t, cfg.ClientOptions(), 1)
}

func TestCheckCredentials_NoDefaultCredentials(t *testing.T) {
	original := findDefaultCredentials
	findDefaultCredentials = func(context.Context, ...string) (*google.Credentials, error) {
		return nil, errors.New("could not find default credentials")
	}
	t.Cleanup(func() { findDefaultCredentials = original })

	err := Config{}.CheckCredentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Google Cloud credentials found")
}
