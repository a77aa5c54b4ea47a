package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashleysally00/interview-voice-to-text-test/scribe"
)

// APIError is a non-200 reply from the server.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server returned %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(serverURL string, insecureMode bool, serverCertFile string) (*Client, error) {
	tlsConfig, err := createTLSConfig(insecureMode, serverCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
	}, nil
}

// Ping checks the server's liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/test", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// Upload sends one recording and returns the transcript and sentiment.
func (c *Client) Upload(ctx context.Context, filename string, recording []byte) (*scribe.Result, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(recording); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	slog.Debug("Uploading recording", "url", req.URL.String(), "bytes", len(recording))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var result scribe.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// UploadFile sends a WAV file from disk.
func (c *Client) UploadFile(ctx context.Context, path string) (*scribe.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return c.Upload(ctx, filepath.Base(path), data)
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body scribe.ErrorResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error, Details: body.Details}
}

// IsClientError reports whether err is a 4xx reply.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

func createTLSConfig(insecureMode bool, serverCertFile string) (*tls.Config, error) {
	if insecureMode {
		slog.Warn("Running in insecure mode. This should not be used in production!")
		return &tls.Config{InsecureSkipVerify: true}, nil
	}
	if serverCertFile == "" {
		return nil, nil
	}

	// Load the server's certificate
	certPEM, err := os.ReadFile(serverCertFile)
	if err != nil {
		return nil, err
	}

	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM(certPEM) {
		return nil, fmt.Errorf("failed to append server certificate")
	}

	return &tls.Config{
		RootCAs: certPool,
	}, nil
}
