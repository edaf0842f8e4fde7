package models

import (
	"time"
)

// RunReport summarises a completed upload run.
type RunReport struct {
	RunID           string             `json:"run_id"`
	APIBaseURL      string             `json:"api_base_url"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
	Products        int                `json:"products"`
	PriceRows       int                `json:"price_rows"`
	Uploaded        int                `json:"uploaded"`
	Batches         int                `json:"batches"`
	Retries         int                `json:"retries"`
	Validation      *ValidationResult  `json:"validation,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	LogCounts       []LogCount         `json:"log_counts,omitempty"`
	ArchivedObjects []string           `json:"archived_objects,omitempty"`
}

// LogCount is the number of warnings and errors logged by a component during a run.
type LogCount struct {
	Component string `json:"component"`
	Warnings  int64  `json:"warnings"`
	Errors    int64  `json:"errors"`
}
