// Package ldm talks to the local download manager over its loopback HTTP API.
package ldm

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

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// AuthHeader carries the LDM token on submissions
const AuthHeader = "X-Auth-Token"

const (
	maxBodySize        = 1 << 20
	defaultPingTimeout = 2 * time.Second
)

var _ domain.LDMService = (*Client)(nil)

// Client is the LDM HTTP client. It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	pingHTTP *http.Client
	tokens   *TokenCache
	submit   func(ctx context.Context, req domain.SubmitRequest) (map[string]interface{}, error)
	logger   *zap.Logger
}

// NewClient creates a new LDM client
func NewClient(config *domain.LDMConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	pingTimeout := config.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	c := &Client{
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		http:     &http.Client{Timeout: config.RequestTimeout},
		pingHTTP: &http.Client{Timeout: pingTimeout},
		logger:   logger,
	}
	c.tokens = NewTokenCache(c.requestToken, config.TokenTTL)
	c.submit = WithTokenRetry(c.tokens, c.sendDownload)
	return c
}

// Tokens exposes the token cache for scheduled refreshes
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// Ping probes GET /ping
func (c *Client) Ping(ctx context.Context) (*domain.PingInfo, error) {
	body, err := c.get(ctx, c.pingHTTP, "/ping")
	if err != nil {
		return nil, err
	}
	reply := gjson.ParseBytes(body)
	return &domain.PingInfo{
		App:     reply.Get("app").String(),
		Version: reply.Get("version").String(),
	}, nil
}

// FetchToken obtains a new token from GET /token and caches it
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	return c.tokens.Refresh(ctx)
}

// Submit hands url to LDM. The result is always non-nil.
func (c *Client) Submit(ctx context.Context, url, referer string) *domain.SubmitResult {
	url = strings.TrimSpace(url)
	if url == "" {
		return domain.FailedSubmit(errors.New("missing url"))
	}

	data, err := c.submit(ctx, domain.SubmitRequest{URL: url, Referer: referer})
	if err != nil {
		c.logger.Warn("LDM submission failed",
			zap.String("url", url),
			zap.Error(err))
		return &domain.SubmitResult{Success: false, Error: resultError(err)}
	}

	c.logger.Info("Submitted to LDM",
		zap.String("url", url),
		zap.Bool("referer", referer != ""))
	return &domain.SubmitResult{Success: true, Data: data}
}

// Status polls GET /status
func (c *Client) Status(ctx context.Context) (*domain.StatusReport, error) {
	body, err := c.get(ctx, c.http, "/status")
	if err != nil {
		return nil, err
	}

	report := domain.EmptyStatus()
	if err := json.Unmarshal(body, report); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	if report.Downloads == nil {
		report.Downloads = []domain.TransferInfo{}
	}
	return report, nil
}

// StatusOrEmpty returns a zeroed report instead of an error
func (c *Client) StatusOrEmpty(ctx context.Context) *domain.StatusReport {
	report, err := c.Status(ctx)
	if err != nil {
		c.logger.Debug("LDM status unavailable", zap.Error(err))
		return domain.EmptyStatus()
	}
	return report
}

func (c *Client) requestToken(ctx context.Context) (string, error) {
	body, err := c.get(ctx, c.http, "/token")
	if err != nil {
		var statusErr *domain.HTTPStatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("%w: %w", errNoTokenEndpoint, err)
		}
		return "", err
	}

	token := gjson.GetBytes(body, "token").String()
	if token == "" {
		return "", fmt.Errorf("%w: reply has no token", errNoTokenEndpoint)
	}
	c.logger.Debug("Obtained LDM token")
	return token, nil
}

func (c *Client) sendDownload(ctx context.Context, token string, req domain.SubmitRequest) (map[string]interface{}, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/download", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set(AuthHeader, token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotRunning, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read /download reply: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errTokenRejected
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &domain.HTTPStatusError{StatusCode: resp.StatusCode}
	}

	// Any 2xx is accepted; the body is passed through as data
	data, _ := gjson.ParseBytes(body).Value().(map[string]interface{})
	return data, nil
}

func (c *Client) get(ctx context.Context, client *http.Client, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotRunning, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s reply: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return body, nil
}

// resultError turns err into the short message shown to users
func resultError(err error) string {
	var statusErr *domain.HTTPStatusError
	switch {
	case errors.Is(err, domain.ErrNotRunning):
		return domain.ErrNotRunning.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.ErrUnauthorized.Error()
	case errors.As(err, &statusErr):
		return statusErr.Error()
	default:
		return err.Error()
	}
}
