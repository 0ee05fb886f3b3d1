package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genassist/internal/domain"
	"genassist/internal/infra"
)

// ErrMissingBaseURL indicates the client was configured without a service endpoint.
var ErrMissingBaseURL = errors.New("genapi: base url is required")

// CredentialProvider supplies an opaque bearer credential on demand. The
// client never inspects or refreshes it.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredential is a CredentialProvider returning a fixed token.
type StaticCredential string

func (s StaticCredential) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// Options configures the generation service client.
type Options struct {
	BaseURL        string
	Credentials    CredentialProvider
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the remote generation service. It does
// no retrying of its own; retry policy belongs to the orchestrator.
type Client struct {
	baseURL     string
	credentials CredentialProvider
	httpClient  *http.Client
	logger      *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	credentials := opts.Credentials
	if credentials == nil {
		credentials = StaticCredential("")
	}
	return &Client{
		baseURL:     baseURL,
		credentials: credentials,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// BaseURL returns the configured service endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit enqueues a generation request. The outcome carries exactly one of a
// remote job id (async path) or an inline artifact reference (synchronous
// image path).
func (c *Client) Submit(ctx context.Context, kind domain.Kind, prompt string, params domain.Params) (*SubmitOutcome, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("genapi: prompt is required")
	}
	payload := submitRequest{
		Prompt:  prompt,
		Size:    params.Size,
		Quality: params.Quality,
	}
	if kind == domain.KindVideo && params.DurationSeconds > 0 {
		payload.Duration = params.DurationSeconds
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("genapi: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/generate/%s", c.baseURL, kind)
	raw, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var decoded submitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("genapi: decode response: %w", err)
	}
	if decoded.ID != "" {
		return &SubmitOutcome{JobID: decoded.ID}, nil
	}
	if artifact := decoded.firstArtifact(); artifact != nil {
		return &SubmitOutcome{Artifact: artifact}, nil
	}
	return nil, fmt.Errorf("genapi: submit response carried neither job id nor artifact")
}

// QueryStatus fetches the current status report for an async job.
func (c *Client) QueryStatus(ctx context.Context, kind domain.Kind, jobID string) (*StatusReport, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("genapi: job id is required")
	}
	endpoint := fmt.Sprintf("%s/generate/%s/%s", c.baseURL, kind, jobID)
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var report StatusReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("genapi: decode status report: %w", err)
	}
	c.logger.Debug().
		Str("job_id", jobID).
		Str("kind", string(kind)).
		Str("status", report.Status).
		Msg("genapi: status report")
	return &report, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("genapi: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("genapi: %w: %s", domain.ErrUnauthorized, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genapi: %w: %s", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("genapi: %w: read response: %s", domain.ErrNetwork, err)
	}
	if resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, raw)
	}
	return raw, nil
}

// StatusError preserves the HTTP status code and a body snippet alongside the
// classified domain error.
type StatusError struct {
	Code int
	Body string
	err  error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("genapi: status %d", e.Code)
	}
	return fmt.Sprintf("genapi: status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return classify(e.Code)
}

func classify(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.ErrUnauthorized
	case code >= 500:
		return domain.ErrServiceError
	default:
		return domain.ErrClientError
	}
}

func classifyStatus(code int, raw []byte) error {
	return &StatusError{Code: code, Body: bodySnippet(raw), err: classify(code)}
}

func bodySnippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
