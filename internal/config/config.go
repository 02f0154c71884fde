package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Jenkins JenkinsConfig `yaml:"jenkins"`
	Job     JobConfig     `yaml:"job"`
	Audit   AuditConfig   `yaml:"audit"`
}

// JenkinsConfig represents the Jenkins connection configuration
type JenkinsConfig struct {
	URL                string            `yaml:"url"`
	Username           string            `yaml:"username"` // Jenkins username (optional, defaults to token if not provided)
	Token              string            `yaml:"token"`
	Headers            map[string]string `yaml:"headers"`              // Extra request headers, override the Authorization header on conflict
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"` // Applies to this client's transport only
	Timeout            int               `yaml:"request_timeout"`      // Per-request timeout in seconds (default: 30)
	StatusRetries      int               `yaml:"status_retries"`       // Retries per status read (default: 3, -1 disables)
	Crumb              *bool             `yaml:"crumb"`                // Fetch a CSRF crumb before submitting (default: true)
}

// JobConfig represents the job to trigger and how to follow it
type JobConfig struct {
	Name         string            `yaml:"name"`
	Parameters   map[string]string `yaml:"parameters"`
	Wait         bool              `yaml:"wait"`
	Timeout      int               `yaml:"timeout"`       // Watchdog budget in seconds (default: 3600, 0 disables)
	PollInterval int               `yaml:"poll_interval"` // Seconds between status polls (default: 5)
}

// AuditConfig represents the optional run history store
type AuditConfig struct {
	Path string `yaml:"path"` // Empty disables the audit trail
}

const (
	defaultRequestTimeout = 30
	defaultStatusRetries  = 3
	defaultJobTimeout     = 3600
	defaultPollInterval   = 5
	maxJobNameLength      = 255
)

// Load loads the configuration from the given file path on the OS filesystem
func Load(filePath string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), filePath)
}

// LoadFs loads the configuration from fs. An empty filePath skips the file and
// builds the configuration from the environment and defaults alone.
func LoadFs(fs afero.Fs, filePath string) (*Config, error) {
	config := &Config{}

	if filePath != "" {
		data, err := afero.ReadFile(fs, filePath)
		if err != nil {
			return nil, err
		}

		// Parse the YAML into the Config struct
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	// Apply environment variables
	if err := applyEnvVars(config); err != nil {
		return nil, err
	}

	// Set default values if not provided
	setDefaults(config)

	// Validate ranges; required fields are checked by Validate once flags are applied
	if err := validateRanges(config); err != nil {
		return nil, err
	}

	return config, nil
}

// lookupEnv returns the first non-empty value among the given variable names
func lookupEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// applyEnvVars applies environment variables to the configuration. The INPUT_*
// names are what action runners export for declared inputs.
func applyEnvVars(config *Config) error {
	// Jenkins configuration
	if v := lookupEnv("JOBWAIT_URL", "INPUT_URL"); v != "" {
		config.Jenkins.URL = v
	}
	if v := lookupEnv("JOBWAIT_USER_NAME", "INPUT_USER_NAME"); v != "" {
		config.Jenkins.Username = v
	}
	if v := lookupEnv("JOBWAIT_API_TOKEN", "INPUT_API_TOKEN"); v != "" {
		config.Jenkins.Token = v
	}
	if v := lookupEnv("JOBWAIT_HEADERS", "INPUT_HEADERS"); v != "" {
		headers, err := ParseStringMap(v)
		if err != nil {
			return fmt.Errorf("invalid headers: %w", err)
		}
		config.Jenkins.Headers = MergeStringMaps(config.Jenkins.Headers, headers)
	}
	if v := os.Getenv("JOBWAIT_INSECURE_SKIP_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Jenkins.InsecureSkipVerify = b
		}
	}
	if v := os.Getenv("JOBWAIT_REQUEST_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil && t > 0 {
			config.Jenkins.Timeout = t
		}
	}
	if v := os.Getenv("JOBWAIT_STATUS_RETRIES"); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			config.Jenkins.StatusRetries = r
		}
	}
	if v := os.Getenv("JOBWAIT_CRUMB"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Jenkins.Crumb = &b
		}
	}

	// Job configuration
	if v := lookupEnv("JOBWAIT_JOB_NAME", "INPUT_JOB_NAME"); v != "" {
		config.Job.Name = v
	}
	if v := lookupEnv("JOBWAIT_PARAMETER", "INPUT_PARAMETER"); v != "" {
		params, err := ParseStringMap(v)
		if err != nil {
			return fmt.Errorf("invalid parameter: %w", err)
		}
		config.Job.Parameters = MergeStringMaps(config.Job.Parameters, params)
	}
	if v := lookupEnv("JOBWAIT_WAIT", "INPUT_WAIT"); v != "" {
		// Only the literal "true" turns waiting on
		config.Job.Wait = v == "true"
	}
	if v := lookupEnv("JOBWAIT_TIMEOUT", "INPUT_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil && t >= 0 {
			config.Job.Timeout = t
		}
	}
	if v := os.Getenv("JOBWAIT_POLL_INTERVAL"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			config.Job.PollInterval = p
		}
	}

	// Audit configuration
	if v := os.Getenv("JOBWAIT_AUDIT_PATH"); v != "" {
		config.Audit.Path = v
	}

	return nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Jenkins defaults
	if config.Jenkins.Timeout == 0 {
		config.Jenkins.Timeout = defaultRequestTimeout
	}
	if config.Jenkins.StatusRetries == 0 {
		config.Jenkins.StatusRetries = defaultStatusRetries
	}
	if config.Jenkins.Crumb == nil {
		crumb := true
		config.Jenkins.Crumb = &crumb
	}
	config.Jenkins.URL = strings.TrimSuffix(config.Jenkins.URL, "/")

	// Job defaults
	if config.Job.Timeout == 0 {
		config.Job.Timeout = defaultJobTimeout
	}
	if config.Job.PollInterval == 0 {
		config.Job.PollInterval = defaultPollInterval
	}
}

// CrumbEnabled reports whether a CSRF crumb should be fetched before submission
func (c JenkinsConfig) CrumbEnabled() bool {
	return c.Crumb == nil || *c.Crumb
}

// AuthUsername returns the user for basic auth. If no user is configured the
// token doubles as the user name (Jenkins API token authentication).
func (c JenkinsConfig) AuthUsername() string {
	if c.Username == "" {
		return c.Token
	}
	return c.Username
}

// GetLogLevel returns the log level from the environment
func GetLogLevel() string {
	levelStr := os.Getenv("JOBWAIT_LOG_LEVEL")
	if levelStr == "" {
		return "info"
	}

	// Validate log level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if _, ok := validLevels[levelStr]; ok {
		return levelStr
	}

	return "info"
}

// GetLogFormat returns the log format from the environment
func GetLogFormat() string {
	if os.Getenv("JOBWAIT_LOG_FORMAT") == "text" {
		return "text"
	}
	return "json"
}

// validateRanges rejects values that can never be valid, wherever they came from
func validateRanges(cfg *Config) error {
	if cfg.Jenkins.URL != "" {
		if err := validateURL(cfg.Jenkins.URL); err != nil {
			return err
		}
	}
	if cfg.Jenkins.Timeout < 0 {
		return fmt.Errorf("invalid jenkins.request_timeout: %d (must be positive)", cfg.Jenkins.Timeout)
	}
	if cfg.Jenkins.StatusRetries < -1 {
		return fmt.Errorf("invalid jenkins.status_retries: %d (must be -1 or more)", cfg.Jenkins.StatusRetries)
	}
	if cfg.Job.Timeout < 0 {
		return fmt.Errorf("invalid job.timeout: %d (must be non-negative)", cfg.Job.Timeout)
	}
	if cfg.Job.PollInterval < 0 {
		return fmt.Errorf("invalid job.poll_interval: %d (must be positive)", cfg.Job.PollInterval)
	}
	return nil
}

// Validate checks everything a trigger run needs
func (c *Config) Validate() error {
	if err := validateRanges(c); err != nil {
		return err
	}

	// Validate Jenkins configuration
	if c.Jenkins.URL == "" {
		return fmt.Errorf("jenkins.url is required")
	}
	if c.Jenkins.Token == "" {
		return fmt.Errorf("jenkins.token is required")
	}

	return ValidateJobName(c.Job.Name)
}

// ValidateJobName rejects names that cannot address a job. Slashes separate
// folders, so only empty and ".." segments are refused.
func ValidateJobName(name string) error {
	if name == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if len(name) > maxJobNameLength {
		return fmt.Errorf("job name exceeds maximum length of %d characters", maxJobNameLength)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid job name format: %s", name)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid jenkins.url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid jenkins.url: %q (scheme must be http or https)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid jenkins.url: %q (missing host)", raw)
	}
	return nil
}
