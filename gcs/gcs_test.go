package gcs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestListRecordings_FiltersWavObjects(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"kind": "storage#objects",
			"items": [
				{"kind": "storage#object", "bucket": "voice", "name": "one.wav"},
				{"kind": "storage#object", "bucket": "voice", "name": "notes.txt"},
				{"kind": "storage#object", "bucket": "voice", "name": "calls/TWO.WAV"}
			]
		}`))
	}))
	defer srv.Close()

	lister, err := New(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	defer lister.Close()

	names, err := lister.ListRecordings(context.Background(), "voice")
	require.NoError(t, err)
	assert.Equal(t, []string{"one.wav", "calls/TWO.WAV"}, names)
	assert.True(t, strings.HasSuffix(gotPath, "/b/voice/o"), gotPath)
}

func TestListRecordings_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": 404, "message": "The specified bucket does not exist."}}`))
	}))
	defer srv.Close()

	lister, err := New(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	defer lister.Close()

	_, err = lister.ListRecordings(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list bucket missing")
}

func TestURI(t *testing.T) {
	assert.Equal(t, "gs://voice/calls/a.wav", URI("voice", "calls/a.wav"))
}
