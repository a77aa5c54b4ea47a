// Package gcs lists recordings kept in Cloud Storage buckets.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type Lister struct {
	client *storage.Client
}

func New(ctx context.Context, opts ...option.ClientOption) (*Lister, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Lister{client: client}, nil
}

func (l *Lister) Close() error {
	return l.client.Close()
}

// ListRecordings returns the names of .wav objects in bucket.
func (l *Lister) ListRecordings(ctx context.Context, bucket string) ([]string, error) {
	names := make([]string, 0)
	it := l.client.Bucket(bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
		}
		if strings.HasSuffix(strings.ToLower(attrs.Name), ".wav") {
			names = append(names, attrs.Name)
		}
	}
	return names, nil
}

// URI returns the gs:// URI of an object.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}
