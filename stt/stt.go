// Package stt transcribes recorded audio with Google Cloud Speech-to-Text.
package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

const (
	DefaultLanguage   = "en-US"
	DefaultSampleRate = 48000
)

// Config is fixed per deployment; it is never negotiated per request.
type Config struct {
	LanguageCode string
	SampleRate   int32
	Model        string
	UseEnhanced  bool
}

// Segment is the top-ranked alternative of one recognition result.
type Segment struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
}

// Client is the speech-to-text client.
type Client struct {
	speechClient *speech.Client
	config       Config
}

// New creates a Google Cloud Speech client. Without options it relies on
// Application Default Credentials.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultLanguage
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	speechClient, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &Client{speechClient: speechClient, config: cfg}, nil
}

// Close cleans up the speech client connection.
func (c *Client) Close() error {
	if c.speechClient != nil {
		return c.speechClient.Close()
	}
	return nil
}

// Transcribe recognizes a complete LINEAR16 recording.
func (c *Client) Transcribe(ctx context.Context, audio []byte) ([]Segment, error) {
	return c.recognize(ctx, &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
	})
}

// TranscribeURI recognizes a recording stored in Cloud Storage (gs://bucket/object).
func (c *Client) TranscribeURI(ctx context.Context, uri string) ([]Segment, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return nil, fmt.Errorf("invalid recording URI %q: must start with gs://", uri)
	}
	return c.recognize(ctx, &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Uri{Uri: uri},
	})
}

func (c *Client) recognize(ctx context.Context, audio *speechpb.RecognitionAudio) ([]Segment, error) {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: c.config.SampleRate,
			LanguageCode:    c.config.LanguageCode,
			Model:           c.config.Model,
			UseEnhanced:     c.config.UseEnhanced,
		},
		Audio: audio,
	}

	// Failures surface to the caller as-is, the generated client would
	// otherwise retry UNAVAILABLE and DEADLINE_EXCEEDED.
	resp, err := c.speechClient.Recognize(ctx, req, gax.WithRetry(func() gax.Retryer { return nil }))
	if err != nil {
		return nil, err
	}
	return segments(resp.GetResults()), nil
}

func segments(results []*speechpb.SpeechRecognitionResult) []Segment {
	out := make([]Segment, 0, len(results))
	for _, result := range results {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		top := result.GetAlternatives()[0]
		out = append(out, Segment{Text: top.GetTranscript(), Confidence: top.GetConfidence()})
	}
	return out
}

// Join concatenates segment texts into one transcript, one segment per line.
func Join(segments []Segment) string {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n")
}
