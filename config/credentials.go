package config

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// findDefaultCredentials is replaced in tests.
var findDefaultCredentials = google.FindDefaultCredentials

// CheckCredentials verifies that Google Cloud credentials are available
// before any client is created.
func (c Config) CheckCredentials(ctx context.Context) error {
	if c.CredentialsFile != "" {
		info, err := os.Stat(c.CredentialsFile)
		if err != nil {
			return fmt.Errorf("credentials file not found at %s (GOOGLE_APPLICATION_CREDENTIALS): %w", c.CredentialsFile, err)
		}
		if info.IsDir() {
			return fmt.Errorf("credentials path %s is a directory, expected a service account JSON file", c.CredentialsFile)
		}
		return nil
	}

	if _, err := findDefaultCredentials(ctx, cloudPlatformScope); err != nil {
		return fmt.Errorf("no Google Cloud credentials found; set GOOGLE_APPLICATION_CREDENTIALS or run `gcloud auth application-default login`: %w", err)
	}
	return nil
}

// ClientOptions returns the options shared by every Google Cloud client.
func (c Config) ClientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	if c.Project != "" {
		opts = append(opts, option.WithQuotaProject(c.Project))
	}
	return opts
}
