package scribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ashleysally00/interview-voice-to-text-test/audio"
	"github.com/ashleysally00/interview-voice-to-text-test/sentiment"
	"github.com/ashleysally00/interview-voice-to-text-test/store"
	"github.com/ashleysally00/interview-voice-to-text-test/stt"
)

// Result is the success payload for one recording. Sentiment is nil when no
// speech was recognized.
type Result struct {
	Transcript string            `json:"transcript"`
	Sentiment  *sentiment.Result `json:"sentiment,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// respondFunc writes the final response for a request.
type respondFunc func(status int, body any)

// handleRecording stores one recording, runs it through the pipeline and
// responds. The stored artifact is deleted after the response on every path.
func (s *Scribe) handleRecording(ctx context.Context, req *Request, recording io.Reader, respond respondFunc) {
	defer s.finish(req)

	h, err := s.store.Save(recording)
	if err != nil {
		s.respondError(req, storageError("store", err), respond)
		return
	}
	req.advance(StateStored)
	defer s.release(req, h)
	// Runs before release so a panic is still answered before cleanup.
	defer s.recoverPanic(req, respond)

	result, err := s.process(ctx, req, h)
	if err != nil {
		s.respondError(req, err, respond)
		return
	}
	s.respondResult(req, result, respond)
}

// handleRemoteRecording runs a recording already in Cloud Storage through the
// pipeline. Nothing is stored locally.
func (s *Scribe) handleRemoteRecording(ctx context.Context, req *Request, uri string, respond respondFunc) {
	defer s.finish(req)
	defer s.recoverPanic(req, respond)

	result, err := s.analyze(ctx, req, func(ctx context.Context) ([]stt.Segment, error) {
		return s.transcriber.TranscribeURI(ctx, uri)
	})
	if err != nil {
		s.respondError(req, err, respond)
		return
	}
	s.respondResult(req, result, respond)
}

func (s *Scribe) process(ctx context.Context, req *Request, h store.Handle) (Result, error) {
	data, err := s.store.Read(h)
	if err != nil {
		return Result{}, storageError("read", err)
	}

	if s.config.ValidateAudio {
		if err := audio.Validate(data, audio.Expected(uint32(s.config.SampleRate))); err != nil {
			return Result{}, clientError("validate", msgBadFormat, err)
		}
	}

	return s.analyze(ctx, req, func(ctx context.Context) ([]stt.Segment, error) {
		return s.transcriber.Transcribe(ctx, data)
	})
}

// analyze transcribes, short-circuits on empty speech, and otherwise scores
// the transcript. Each upstream call gets its own deadline.
func (s *Scribe) analyze(ctx context.Context, req *Request, recognize func(context.Context) ([]stt.Segment, error)) (Result, error) {
	if err := s.upstream.Acquire(ctx, 1); err != nil {
		return Result{}, unhandledError("acquire", err)
	}
	defer s.upstream.Release(1)

	tctx, cancel := context.WithTimeout(ctx, s.config.TranscribeTimeout)
	segments, err := recognize(tctx)
	cancel()
	if err != nil {
		return Result{}, upstreamError("transcribe", err)
	}
	req.advance(StateTranscribed)

	transcript := stt.Join(segments)
	if strings.TrimSpace(transcript) == "" {
		req.advance(StateEmptySpeech)
		s.logger.Info("No speech detected", "requestID", req.ID)
		return Result{Transcript: "", Message: NoSpeechMessage}, nil
	}
	s.logger.Info("Transcript", "requestID", req.ID, "segments", len(segments), "text", transcript)

	sctx, cancel := context.WithTimeout(ctx, s.config.SentimentTimeout)
	score, err := s.analyzer.Analyze(sctx, transcript)
	cancel()
	if err != nil {
		return Result{}, upstreamError("analyze sentiment", err)
	}
	req.advance(StateSentimentAnalyzed)

	return Result{Transcript: transcript, Sentiment: &score}, nil
}

func (s *Scribe) respondResult(req *Request, result Result, respond respondFunc) {
	if result.Sentiment == nil {
		s.noSpeech.Add(1)
	}
	s.processed.Add(1)
	respond(http.StatusOK, result)
	req.advance(StateResponded)
}

func (s *Scribe) respondError(req *Request, err error, respond respondFunc) {
	status, body := toResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Error processing audio", "error", err, "requestID", req.ID, "code", grpcCode(err))
	} else {
		s.logger.Info("Rejected recording", "error", err, "requestID", req.ID)
	}
	s.failed.Add(1)
	respond(status, body)
	req.advance(StateResponded)
}

// recoverPanic answers a request whose collaborator panicked with the
// generic server error.
func (s *Scribe) recoverPanic(req *Request, respond respondFunc) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}
	s.respondError(req, unhandledError("process", fmt.Errorf("%v", rec)), respond)
}

// release deletes the stored recording. Failures are logged, never returned.
func (s *Scribe) release(req *Request, h store.Handle) {
	if err := s.store.Delete(h); err != nil {
		s.logger.Error("Error deleting file", "error", err, "requestID", req.ID, "path", h.Path)
		return
	}
	req.advance(StateCleaned)
}

func (s *Scribe) finish(req *Request) {
	s.requests.End(req.ID)
	if s.onFinish != nil {
		s.onFinish(req)
	}
}
