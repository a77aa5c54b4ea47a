package scribe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashleysally00/interview-voice-to-text-test/gcs"
	"github.com/gorilla/mux"
)

// Handler builds the router. Exposed so tests and embedding servers can use
// it without listening.
func (s *Scribe) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverMiddleware, s.logMiddleware)

	// API routes
	router.HandleFunc("/test", s.handleTest).Methods("GET")
	router.HandleFunc("/upload", s.handleUpload).Methods("POST")
	router.HandleFunc("/transcribe-uri", s.handleTranscribeURI).Methods("POST")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/ws", s.handleWebSocket)
	if s.lister != nil {
		router.HandleFunc("/buckets/{bucket}/recordings", s.handleListRecordings).Methods("GET")
	}

	// Browser client
	staticFS := http.FileServer(http.Dir(s.config.StaticDir))
	router.PathPrefix("/").Handler(staticFS)

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Scribe) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": ServerWorkingReply})
}

func (s *Scribe) handleUpload(w http.ResponseWriter, r *http.Request) {
	req := s.requests.Begin(r.RemoteAddr)
	s.logger.Info("Received upload request", "requestID", req.ID, "remoteAddr", r.RemoteAddr)

	respond := func(status int, body any) { writeJSON(w, status, body) }
	reject := func(err error) {
		s.respondError(req, err, respond)
		s.finish(req)
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		reject(uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["audio"]
	switch {
	case len(files) == 0:
		reject(clientError("receive", msgNoAudio, nil))
		return
	case len(files) > 1:
		reject(clientError("receive", msgTooManyFiles, nil))
		return
	}

	file, err := files[0].Open()
	if err != nil {
		reject(unhandledError("open upload", err))
		return
	}
	defer file.Close()

	s.logger.Debug("Processing file",
		"requestID", req.ID,
		"filename", files[0].Filename,
		"bytes", files[0].Size)

	s.handleRecording(r.Context(), req, file, respond)
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return &Error{Kind: KindTooLarge, Op: "receive", Err: err}
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingFile):
		return clientError("receive", msgNoAudio, nil)
	default:
		return unhandledError("parse upload", err)
	}
}

type transcribeURIRequest struct {
	URI string `json:"uri"`
}

func (s *Scribe) handleTranscribeURI(w http.ResponseWriter, r *http.Request) {
	req := s.requests.Begin(r.RemoteAddr)
	respond := func(status int, body any) { writeJSON(w, status, body) }
	reject := func(err error) {
		s.respondError(req, err, respond)
		s.finish(req)
	}

	var payload transcribeURIRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&payload); err != nil {
		reject(clientError("decode", msgBadURI, err))
		return
	}
	if !strings.HasPrefix(payload.URI, "gs://") {
		reject(clientError("decode", msgBadURI, fmt.Errorf("%q is not a gs:// URI", payload.URI)))
		return
	}

	s.logger.Info("Received transcription request", "requestID", req.ID, "uri", payload.URI)
	s.handleRemoteRecording(r.Context(), req, payload.URI, respond)
}

type recordingsResponse struct {
	Bucket     string   `json:"bucket"`
	Recordings []string `json:"recordings"`
	// URIs can be posted to /transcribe-uri as is.
	URIs []string `json:"uris"`
}

func (s *Scribe) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	bucket := mux.Vars(r)["bucket"]

	names, err := s.lister.ListRecordings(r.Context(), bucket)
	if err != nil {
		s.logger.Error("Failed to list recordings", "error", err, "bucket", bucket)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgListing, Details: err.Error()})
		return
	}
	uris := make([]string, 0, len(names))
	for _, name := range names {
		uris = append(uris, gcs.URI(bucket, name))
	}
	writeJSON(w, http.StatusOK, recordingsResponse{Bucket: bucket, Recordings: names, URIs: uris})
}

// recoverMiddleware turns a panic into the generic server error response.
func (s *Scribe) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("Server error", "panic", rec, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{
					Error:   msgServer,
					Details: fmt.Sprint(rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Scribe) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
