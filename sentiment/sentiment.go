// Package sentiment scores text with the Google Cloud Natural Language API.
package sentiment

import (
	"context"
	"errors"
	"fmt"

	language "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

var ErrEmptyText = errors.New("sentiment analysis requires non-empty text")

// Result is the document-level sentiment. Score is in [-1, 1], Magnitude is
// non-negative and unbounded.
type Result struct {
	Score     float32 `json:"score"`
	Magnitude float32 `json:"magnitude"`
}

type Client struct {
	languageClient *language.Client
}

func New(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	languageClient, err := language.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create language client: %w", err)
	}
	return &Client{languageClient: languageClient}, nil
}

func (c *Client) Close() error {
	if c.languageClient != nil {
		return c.languageClient.Close()
	}
	return nil
}

// Analyze returns the sentiment of text unmodified.
func (c *Client) Analyze(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, ErrEmptyText
	}

	resp, err := c.languageClient.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
		Document: &languagepb.Document{
			Source: &languagepb.Document_Content{Content: text},
			Type:   languagepb.Document_PLAIN_TEXT,
		},
		EncodingType: languagepb.EncodingType_UTF8,
	}, gax.WithRetry(func() gax.Retryer { return nil }))
	if err != nil {
		return Result{}, err
	}

	doc := resp.GetDocumentSentiment()
	return Result{Score: doc.GetScore(), Magnitude: doc.GetMagnitude()}, nil
}

// Label interprets a score as positive, negative or neutral.
func Label(score float32) string {
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	default:
		return "neutral"
	}
}
