package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashleysally00/interview-voice-to-text-test/config"
	"github.com/ashleysally00/interview-voice-to-text-test/gcs"
	"github.com/ashleysally00/interview-voice-to-text-test/scribe"
	"github.com/ashleysally00/interview-voice-to-text-test/sentiment"
	"github.com/ashleysally00/interview-voice-to-text-test/store"
	"github.com/ashleysally00/interview-voice-to-text-test/stt"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides HTTP_ADDR")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err := cfg.CheckCredentials(ctx); err != nil {
		return err
	}

	uploads, err := store.New(cfg.UploadsDir, logger)
	if err != nil {
		return err
	}
	// Nothing is in flight yet, so every leftover is an orphan.
	if removed, err := uploads.Sweep(0); err != nil {
		logger.Warn("Failed to sweep uploads directory", "error", err)
	} else if removed > 0 {
		logger.Info("Removed leftover recordings", "count", removed)
	}

	janitor, err := store.NewJanitor(uploads, cfg.UploadMaxAge)
	if err != nil {
		return err
	}
	go func() {
		if err := janitor.Run(ctx); err != nil {
			logger.Error("Upload janitor stopped", "error", err)
		}
	}()

	opts := cfg.ClientOptions()

	speech, err := stt.New(ctx, stt.Config{
		LanguageCode: cfg.SpeechLanguage,
		SampleRate:   int32(cfg.SpeechSampleRate),
		Model:        cfg.SpeechModel,
	}, opts...)
	if err != nil {
		return err
	}
	defer closeClient(logger, "speech", speech.Close)

	language, err := sentiment.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer closeClient(logger, "language", language.Close)

	buckets, err := gcs.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer closeClient(logger, "storage", buckets.Close)

	svc, err := scribe.New(scribe.Config{
		HTTPAddr:          cfg.HTTPAddr,
		CertFile:          cfg.TLSCertFile,
		KeyFile:           cfg.TLSKeyFile,
		StaticDir:         cfg.StaticDir,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		SampleRate:        cfg.SpeechSampleRate,
		ValidateAudio:     cfg.AudioValidate,
		TranscribeTimeout: cfg.TranscribeTimeout,
		SentimentTimeout:  cfg.SentimentTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		MaxConcurrent:     cfg.MaxConcurrent,
	}, scribe.Deps{
		Store:       uploads,
		Transcriber: speech,
		Analyzer:    language,
		Lister:      buckets,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}
	logger.Debug("Program exiting")
	return nil
}

func closeClient(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("Failed to close client", "client", name, "error", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
