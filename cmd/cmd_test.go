package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashleysally00/interview-voice-to-text-test/scribe"
	"github.com/ashleysally00/interview-voice-to-text-test/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &scribe.Result{
		Transcript: "what a lovely day",
		Sentiment:  &sentiment.Result{Score: 0.8, Magnitude: 0.9},
	})
	assert.Equal(t, "Transcript: what a lovely day\nSentiment:  positive (score 0.80, magnitude 0.90)\n", buf.String())

	buf.Reset()
	printResult(&buf, &scribe.Result{Message: scribe.NoSpeechMessage})
	assert.Equal(t, "No speech detected\n", buf.String())
}

func TestUploadCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, err := r.FormFile("audio")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"No audio file uploaded"}`))
			return
		}
		w.Write([]byte(`{"transcript":"this is terrible","sentiment":{"score":-0.7,"magnitude":0.7}}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	out, err := execute(t, "upload", path, "--server", srv.URL, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Transcript: this is terrible")
	assert.Contains(t, out, "negative (score -0.70, magnitude 0.70)")

	_, err = execute(t, "upload", "--server", srv.URL)
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "service-account.json")
	require.NoError(t, os.WriteFile(creds, []byte("{}"), 0o600))

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", creds)
	t.Setenv("UPLOADS_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("HTTP_ADDR", ":4000")

	out, err := execute(t, "check", "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Listen address:   :4000 (tls: false)")
	assert.Contains(t, out, "Credentials:      "+creds)
	assert.Contains(t, out, "Configuration OK")
	assert.DirExists(t, filepath.Join(dir, "uploads"))

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", filepath.Join(dir, "missing.json"))
	_, err = execute(t, "check", "--env-file", "")
	assert.ErrorContains(t, err, "credentials file not found")
}
