package models

import (
	"time"
)

// RunRecord represents one finished run in the history
type RunRecord struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	JobName   string    `json:"job_name"`
	Params    string    `json:"params"`
	QueueURL  string    `json:"queue_url"`
	BuildURL  string    `json:"build_url"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
}
