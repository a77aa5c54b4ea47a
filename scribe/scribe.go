package scribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ashleysally00/interview-voice-to-text-test/sentiment"
	"github.com/ashleysally00/interview-voice-to-text-test/store"
	"github.com/ashleysally00/interview-voice-to-text-test/stt"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"
)

// Configuration for the Scribe service
type Config struct {
	// HTTP server address
	HTTPAddr string

	// Certificate files for TLS; plain HTTP when empty
	CertFile string
	KeyFile  string

	// Directory holding the browser client
	StaticDir string

	MaxUploadBytes int64

	// Recordings must match this rate when ValidateAudio is set
	SampleRate    int
	ValidateAudio bool

	TranscribeTimeout time.Duration
	SentimentTimeout  time.Duration
	ShutdownTimeout   time.Duration

	// Upper bound on requests talking to the cloud APIs at once
	MaxConcurrent int
}

// Transcriber turns a complete recording into recognized segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) ([]stt.Segment, error)
	TranscribeURI(ctx context.Context, uri string) ([]stt.Segment, error)
}

// SentimentAnalyzer scores a non-empty transcript.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (sentiment.Result, error)
}

// RecordingLister lists recordings kept in a bucket.
type RecordingLister interface {
	ListRecordings(ctx context.Context, bucket string) ([]string, error)
}

// Deps are constructed once at process start and shared by all requests.
type Deps struct {
	Store       *store.Store
	Transcriber Transcriber
	Analyzer    SentimentAnalyzer
	// Lister is optional; bucket routes are disabled without it.
	Lister RecordingLister
	Logger *slog.Logger
}

// Scribe serves the recording upload API.
type Scribe struct {
	config Config
	logger *slog.Logger

	store       *store.Store
	transcriber Transcriber
	analyzer    SentimentAnalyzer
	lister      RecordingLister

	requests *RequestList
	upstream *semaphore.Weighted

	server   *http.Server
	upgrader websocket.Upgrader
	started  time.Time

	processed atomic.Uint64
	noSpeech  atomic.Uint64
	failed    atomic.Uint64

	// onFinish observes every request after cleanup; used by tests.
	onFinish func(*Request)
}

// New creates a new Scribe instance
func New(cfg Config, deps Deps) (*Scribe, error) {
	if deps.Store == nil || deps.Transcriber == nil || deps.Analyzer == nil {
		return nil, errors.New("store, transcriber and sentiment analyzer are required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = stt.DefaultSampleRate
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = time.Minute
	}
	if cfg.SentimentTimeout <= 0 {
		cfg.SentimentTimeout = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scribe{
		config:      cfg,
		logger:      logger,
		store:       deps.Store,
		transcriber: deps.Transcriber,
		analyzer:    deps.Analyzer,
		lister:      deps.Lister,
		requests:    NewRequestList(logger),
		upstream:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		started: time.Now(),
	}

	s.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Scribe) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.config.CertFile != "" {
			err = s.server.ListenAndServeTLS(s.config.CertFile, s.config.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("Server running",
		"address", s.config.HTTPAddr,
		"tls", s.config.CertFile != "",
		"static", s.config.StaticDir,
		"uploads", s.store.Dir())

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully shuts down the HTTP server, waiting for in-flight requests.
func (s *Scribe) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	s.logger.Info("Server stopped", "inFlight", s.requests.Len())
	return nil
}
