package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snippetbot/internal/domain/execution"
	"snippetbot/internal/ports"
)

const (
	defaultGrace       = 2 * time.Second
	maxResponseBytes   = 4 << 20
	requestIDHeader    = "X-Request-Id"
	errorSnippetLength = 200
)

var _ ports.Executor = (*Client)(nil)

// ClientConfig configures a remote executor client.
type ClientConfig struct {
	BaseURL string
	// HTTPClient defaults to a client without its own timeout; every call is
	// bounded by the execution timeout plus Grace.
	HTTPClient *http.Client
	Grace      time.Duration
	Logger     *zap.Logger
}

// Client implements ports.Executor against a remote executor service.
type Client struct {
	base   *url.URL
	http   *http.Client
	grace  time.Duration
	logger *zap.Logger
}

// NewClient validates cfg and returns a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("remote executor: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote executor: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote executor: unsupported scheme %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = defaultGrace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{base: base, http: httpClient, grace: grace, logger: logger}, nil
}

// Execute posts the request and decodes the tagged outcome. A call that
// outlives timeout plus the grace period is reported as a timeout.
func (c *Client) Execute(ctx context.Context, req execution.Request, timeout time.Duration) execution.Outcome {
	body, err := json.Marshal(executeRequest{
		Code:      req.Source,
		Stdin:     req.Stdin,
		TimeoutMS: timeout.Milliseconds(),
	})
	if err != nil {
		return execution.OtherFailure("Cannot encode request: %v", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout+c.grace)
	defer cancel()

	endpoint := c.base.String() + executePathPrefix + url.PathEscape(string(req.Language))
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return execution.OtherFailure("Cannot build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return execution.TimeoutFailure()
		}
		c.logger.Warn("remote executor unreachable", zap.String("url", endpoint), zap.Error(err))
		return execution.OtherFailure("Executor unreachable: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return execution.TimeoutFailure()
		}
		return execution.OtherFailure("Cannot read executor response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return execution.OtherFailure("Executor responded with %s: %s", resp.Status, snippet(payload))
	}

	var decoded executeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return execution.OtherFailure("Malformed executor response: %v", err)
	}
	outcome, err := decoded.outcome()
	if err != nil {
		return execution.OtherFailure("Malformed executor response: %v", err)
	}
	return outcome
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func snippet(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if utf8.RuneCountInString(text) <= errorSnippetLength {
		return text
	}
	return string([]rune(text)[:errorSnippetLength]) + "..."
}
