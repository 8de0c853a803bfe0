// Package transcribe uploads encoded audio to an OpenAI-compatible
// transcription endpoint and returns the recognized text.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

const (
	DefaultEndpoint  = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModel     = "whisper-1"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"

	uploadFileName = "recording.mp3"
	uploadMIMEType = "audio/mpeg"

	maxErrorBodyBytes = 4096
)

var (
	// ErrMissingCredential indicates the API key variable is unset or empty.
	ErrMissingCredential = errors.New("transcription credential missing")
	// ErrTransport indicates the request could not be delivered or read.
	ErrTransport = errors.New("transcription transport failure")
	// ErrRemoteRejection indicates a non-2xx status from the endpoint.
	ErrRemoteRejection = errors.New("transcription rejected by endpoint")
	// ErrMalformedResponse indicates a 2xx body that is not a JSON object.
	ErrMalformedResponse = errors.New("transcription response malformed")
)

// Doer is the HTTP capability the client needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// LookupFunc resolves an environment variable. It matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// Config controls request shape and credential lookup.
type Config struct {
	Endpoint  string
	Model     string
	Language  string
	Prompt    string
	APIKeyEnv string
	UserAgent string
	Timeout   time.Duration
}

// Client posts one multipart upload per transcription.
type Client struct {
	cfg    Config
	http   Doer
	lookup LookupFunc
}

// Option customizes a Client.
type Option func(*Client)

// WithDoer replaces the HTTP transport.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithLookup replaces environment lookup for the API key.
func WithLookup(fn LookupFunc) Option {
	return func(c *Client) { c.lookup = fn }
}

// New builds a client. Empty config fields take the package defaults.
func New(cfg Config, opts ...Option) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.APIKeyEnv) == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}

	c := &Client{cfg: cfg, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(cfg.Timeout)
	}
	return c
}

// NewHTTPClient returns an http.Client with HTTP/2 enabled on its transport.
// A zero timeout leaves requests unbounded.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	_ = http2.ConfigureTransport(tr)
	return &http.Client{Transport: tr, Timeout: timeout}
}

// Result is the outcome of one successful upload.
type Result struct {
	Text    string
	Status  int
	Latency time.Duration
}

type transcriptionResponse struct {
	Text *string `json:"text"`
}

// Transcribe uploads audio and returns the `text` field of the reply; a reply
// without that field yields "". The API key is read on every call so a
// changed environment applies to the next run.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (Result, error) {
	apiKey, ok := c.lookup(c.cfg.APIKeyEnv)
	if !ok || strings.TrimSpace(apiKey) == "" {
		return Result{}, fmt.Errorf("%w: %s environment variable not set", ErrMissingCredential, c.cfg.APIKeyEnv)
	}

	body, contentType, err := c.buildForm(audio)
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request body: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	latency := time.Since(started)
	if err != nil {
		return Result{Status: resp.StatusCode, Latency: latency}, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Status: resp.StatusCode, Latency: latency},
			fmt.Errorf("%w: HTTP %d: %s", ErrRemoteRejection, resp.StatusCode, truncate(strings.TrimSpace(string(payload)), maxErrorBodyBytes))
	}

	var decoded transcriptionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Result{Status: resp.StatusCode, Latency: latency}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	text := ""
	if decoded.Text != nil {
		text = *decoded.Text
	}
	return Result{Text: text, Status: resp.StatusCode, Latency: latency}, nil
}

// buildForm writes the file part (recording.mp3, audio/mpeg) and the model
// field, plus language/prompt when configured.
func (c *Client) buildForm(audio []byte) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, uploadFileName))
	header.Set("Content-Type", uploadMIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}

	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return nil, "", fmt.Errorf("writing model field: %w", err)
	}
	if lang := strings.TrimSpace(c.cfg.Language); lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return nil, "", fmt.Errorf("writing language field: %w", err)
		}
	}
	if prompt := strings.TrimSpace(c.cfg.Prompt); prompt != "" {
		if err := writer.WriteField("prompt", prompt); err != nil {
			return nil, "", fmt.Errorf("writing prompt field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
