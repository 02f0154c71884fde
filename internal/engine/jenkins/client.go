package jenkins

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"jobwait/internal/config"
	"jobwait/internal/engine"
	"jobwait/internal/logger"
)

const (
	// RetryWaitMin is the minimum wait between status read retries
	RetryWaitMin = 1 * time.Second
	// RetryWaitMax is the maximum wait between status read retries
	RetryWaitMax = 10 * time.Second
)

// Client represents a Jenkins API client
type Client struct {
	url    string
	auth   http.Header
	crumb  bool
	client *http.Client
	status *retryablehttp.Client
	logger *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used by the client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
			c.status.Logger = &slogAdapter{logger: l}
		}
	}
}

// WithRetryWait overrides the wait bounds between status read retries
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		c.status.RetryWaitMin = min
		c.status.RetryWaitMax = max
	}
}

// NewClient creates a new Jenkins client instance
func NewClient(cfg config.JenkinsConfig, opts ...Option) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	transport := newTransport(cfg.InsecureSkipVerify)

	// Submission and probe calls are never retried
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	status := retryablehttp.NewClient()
	status.RetryMax = cfg.StatusRetries
	if status.RetryMax < 0 {
		status.RetryMax = 0
	}
	status.RetryWaitMin = RetryWaitMin
	status.RetryWaitMax = RetryWaitMax
	status.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	c := &Client{
		// Normalize URL: remove trailing slash to avoid double slashes in paths
		url:    strings.TrimSuffix(cfg.URL, "/"),
		auth:   AuthHeaders(cfg.AuthUsername(), cfg.Token, cfg.Headers),
		crumb:  cfg.CrumbEnabled(),
		client: client,
		status: status,
		logger: logger.Get(),
	}
	c.status.Logger = &slogAdapter{logger: c.logger}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newTransport clones the default transport so that skipping certificate
// verification only affects this client
func newTransport(insecure bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		//nolint:gosec // G402: opt-in for self-signed Jenkins instances
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return transport
}

// AuthHeaders builds the header set sent on every request. The basic auth
// header is always present unless extra explicitly replaces it.
func AuthHeaders(username, token string, extra map[string]string) http.Header {
	headers := http.Header{}
	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", username, token)))
	headers.Set("Authorization", "Basic "+auth)

	for k, v := range extra {
		headers.Set(k, v)
	}
	return headers
}

// applyHeaders copies the auth context onto req
func (c *Client) applyHeaders(req *http.Request) {
	for k, values := range c.auth {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
}

// resolve turns a server path or a Location value into an absolute URL
func (c *Client) resolve(ref string) (string, error) {
	base, err := url.Parse(c.url + "/")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// doRequest sends a single, non-retried request to the Jenkins API. A form
// body is sent url-encoded; a nil form sends no body at all.
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values, extra http.Header) (*http.Response, []byte, error) {
	fullURL := c.url + path

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, nil, &engine.TransportError{Op: method, URL: fullURL, Err: err}
	}

	c.applyHeaders(req)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, values := range extra {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, &engine.TransportError{Op: method, URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &engine.TransportError{Op: method, URL: fullURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	// Check if the response status is successful
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Jenkins API request failed", "status", resp.Status, "body", truncate(string(respBody), 512), "url", fullURL)
		return resp, respBody, &engine.TransportError{
			Op:         method,
			URL:        fullURL,
			StatusCode: resp.StatusCode,
			Err:        formatJenkinsError(resp.StatusCode, string(respBody)),
		}
	}

	return resp, respBody, nil
}

// getCrumb retrieves the CSRF crumb from Jenkins for POST requests
// Returns the crumb field name and value separately
func (c *Client) getCrumb(ctx context.Context) (string, string, error) {
	_, body, err := c.doRequest(ctx, http.MethodGet, "/crumbIssuer/api/json", nil, nil)
	if err != nil {
		return "", "", err
	}

	var crumbData struct {
		Crumb             string `json:"crumb"`
		CrumbRequestField string `json:"crumbRequestField"`
	}

	if err := json.Unmarshal(body, &crumbData); err != nil {
		return "", "", err
	}

	crumbField := crumbData.CrumbRequestField
	if crumbField == "" {
		crumbField = "Jenkins-Crumb" // Default field name
	}

	return crumbField, crumbData.Crumb, nil
}

// crumbHeader returns the crumb as a header, or nil when crumbs are disabled
// or unavailable
func (c *Client) crumbHeader(ctx context.Context) http.Header {
	if !c.crumb {
		return nil
	}

	field, value, err := c.getCrumb(ctx)
	if err != nil {
		c.logger.Warn("Failed to get CSRF crumb, proceeding without it", "error", err)
		return nil
	}
	if field == "" || value == "" {
		return nil
	}

	h := http.Header{}
	h.Set(field, value)
	return h
}

// encodeJobPath encodes a job path for use in Jenkins URLs.
// Handles nested folders: "folder/subfolder/job" -> "job/folder/job/subfolder/job/job".
// A name already written in URL form ("folder/job/deploy") is kept as is.
func encodeJobPath(jobName string) string {
	parts := strings.Split(jobName, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	if isURLForm(parts) {
		return "/job/" + strings.Join(parts, "/")
	}

	encoded := make([]string, 0, len(parts)*2)
	for _, part := range parts {
		encoded = append(encoded, "job", part)
	}
	return "/" + strings.Join(encoded, "/")
}

// isURLForm reports whether every other segment after the first is "job"
func isURLForm(parts []string) bool {
	if len(parts) < 3 || len(parts)%2 == 0 {
		return false
	}
	for i := 1; i < len(parts); i += 2 {
		if parts[i] != "job" {
			return false
		}
	}
	return true
}

// formatJenkinsError formats Jenkins API errors into user-friendly messages
// without exposing internal implementation details
func formatJenkinsError(statusCode int, responseBody string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication failed: invalid credentials")
	case http.StatusForbidden:
		return fmt.Errorf("access denied: insufficient permissions")
	case http.StatusNotFound:
		return fmt.Errorf("resource not found")
	case http.StatusBadRequest:
		return fmt.Errorf("invalid request")
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("jenkins server error: please try again later")
	default:
		return fmt.Errorf("jenkins api request failed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// slogAdapter adapts slog.Logger to retryablehttp.LeveledLogger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (s *slogAdapter) Error(msg string, keysAndValues ...interface{}) {
	s.logger.Error(msg, keysAndValues...)
}

func (s *slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	s.logger.Info(msg, keysAndValues...)
}

func (s *slogAdapter) Debug(msg string, keysAndValues ...interface{}) {
	s.logger.Debug(msg, keysAndValues...)
}

func (s *slogAdapter) Warn(msg string, keysAndValues ...interface{}) {
	s.logger.Warn(msg, keysAndValues...)
}
