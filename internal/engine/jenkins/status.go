package jenkins

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"jobwait/internal/engine"
)

// Snapshot is one parsed read of a queue item or build. A snapshot whose body
// could not be decoded is the unknown snapshot: every field is zero and
// IsUnknown reports true.
type Snapshot struct {
	Cancelled         bool
	ExecutableURL     string
	Why               string
	Result            string
	Number            int
	Duration          int64
	EstimatedDuration int64
	FullDisplayName   string
	Timestamp         int64

	known bool
}

// Unknown returns the snapshot used when a status body cannot be decoded
func Unknown() Snapshot {
	return Snapshot{}
}

// IsUnknown reports whether s came from an undecodable body
func (s Snapshot) IsUnknown() bool {
	return !s.known
}

// snapshotPayload mirrors the fields read from queue item and build JSON
type snapshotPayload struct {
	Cancelled  bool `json:"cancelled"`
	Executable *struct {
		Number int    `json:"number"`
		URL    string `json:"url"`
	} `json:"executable"`
	Why               *string `json:"why"`
	Result            *string `json:"result"`
	Number            int     `json:"number"`
	Duration          int64   `json:"duration"`
	EstimatedDuration int64   `json:"estimatedDuration"`
	FullDisplayName   string  `json:"fullDisplayName"`
	Timestamp         int64   `json:"timestamp"`
}

// decodeSnapshot parses body, returning Unknown() and the decode error on failure
func decodeSnapshot(body []byte) (Snapshot, error) {
	var p snapshotPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Unknown(), err
	}

	s := Snapshot{
		Cancelled:         p.Cancelled,
		Number:            p.Number,
		Duration:          p.Duration,
		EstimatedDuration: p.EstimatedDuration,
		FullDisplayName:   p.FullDisplayName,
		Timestamp:         p.Timestamp,
		known:             true,
	}
	if p.Executable != nil {
		s.ExecutableURL = p.Executable.URL
		if s.Number == 0 {
			s.Number = p.Executable.Number
		}
	}
	if p.Why != nil {
		s.Why = *p.Why
	}
	if p.Result != nil {
		s.Result = *p.Result
	}
	return s, nil
}

// StatusReader reads the status of a queue item or build
type StatusReader interface {
	ReadStatus(ctx context.Context, statusURL string) (Snapshot, error)
}

// statusEndpoint appends the JSON API suffix to a queue or build URL
func statusEndpoint(statusURL string) string {
	if !strings.HasSuffix(statusURL, "/") {
		statusURL += "/"
	}
	return statusURL + "api/json"
}

// ReadStatus issues one GET against statusURL's JSON API. Transport failures
// and non-2xx answers surviving the retry budget are returned as
// *engine.TransportError. A body that does not decode yields Unknown() and no
// error so the caller simply polls again.
func (c *Client) ReadStatus(ctx context.Context, statusURL string) (Snapshot, error) {
	endpoint := statusEndpoint(statusURL)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Unknown(), &engine.TransportError{Op: http.MethodGet, URL: endpoint, Err: err}
	}
	c.applyHeaders(req.Request)

	resp, err := c.status.Do(req)
	if err != nil {
		return Unknown(), &engine.TransportError{Op: http.MethodGet, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// A truncated read is treated like a partial write on the server side
		c.logger.Info("Failed to read status body, will retry", "url", endpoint, "error", err)
		return Unknown(), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Unknown(), &engine.TransportError{
			Op:         http.MethodGet,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        formatJenkinsError(resp.StatusCode, string(body)),
		}
	}

	snapshot, err := decodeSnapshot(body)
	if err != nil {
		c.logger.Info("Failed to parse status body, will retry", "url", endpoint, "error", err, "body", truncate(string(body), 512))
		return Unknown(), nil
	}
	return snapshot, nil
}
