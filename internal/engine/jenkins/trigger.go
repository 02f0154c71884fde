package jenkins

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"jobwait/internal/config"
	"jobwait/internal/engine"
)

// parametersMarker appears in job JSON when the job declares build parameters
const parametersMarker = "ParametersDefinitionProperty"

// Trigger submits builds to Jenkins
type Trigger struct {
	client *Client
	logger *slog.Logger
}

// NewTrigger creates a new Jenkins trigger instance
func NewTrigger(client *Client) *Trigger {
	return &Trigger{
		client: client,
		logger: client.logger,
	}
}

// IsParameterized reports whether jobName declares build parameters
func (t *Trigger) IsParameterized(ctx context.Context, jobName string) (bool, error) {
	_, body, err := t.client.doRequest(ctx, http.MethodGet, encodeJobPath(jobName)+"/api/json", nil, nil)
	if err != nil {
		return false, err
	}
	return bytes.Contains(body, []byte(parametersMarker)), nil
}

// TriggerBuild triggers a Jenkins build for the given job and returns the
// queue item URL taken from the Location header. Nothing here is retried.
func (t *Trigger) TriggerBuild(ctx context.Context, jobName string, params map[string]string) (string, error) {
	if err := config.ValidateJobName(jobName); err != nil {
		return "", &engine.TriggerError{Job: jobName, Err: err}
	}

	parameterized, err := t.IsParameterized(ctx, jobName)
	if err != nil {
		return "", &engine.TriggerError{Job: jobName, Err: err}
	}

	// Jenkins buildWithParameters expects form-encoded data; plain build takes no body
	buildPath := encodeJobPath(jobName) + "/build"
	var form url.Values
	if parameterized {
		buildPath = encodeJobPath(jobName) + "/buildWithParameters"
		form = url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		t.logger.Info("Triggering parameterized build", "job", jobName, "parameters", len(params))
	} else {
		if len(params) > 0 {
			t.logger.Warn("Job takes no parameters, ignoring the ones supplied", "job", jobName, "parameters", len(params))
		}
		t.logger.Info("Triggering build", "job", jobName)
	}

	resp, _, err := t.client.doRequest(ctx, http.MethodPost, buildPath, form, t.client.crumbHeader(ctx))
	if err != nil {
		return "", &engine.TriggerError{Job: jobName, Err: err}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", &engine.TriggerError{
			Job: jobName,
			Err: &engine.ProtocolError{Msg: "Failed to find location header in response!"},
		}
	}

	queueURL, err := t.client.resolve(location)
	if err != nil {
		return "", &engine.TriggerError{
			Job: jobName,
			Err: &engine.ProtocolError{Msg: "invalid location header " + location + ": " + err.Error()},
		}
	}

	t.logger.Info("Build queued", "job", jobName, "queue_url", queueURL)
	return queueURL, nil
}
