package domain

import (
	"errors"
	"fmt"
)

// PingInfo is the LDM liveness reply
type PingInfo struct {
	App     string `json:"app"`
	Version string `json:"version"`
}

// SubmitRequest is the JSON body of POST /download
type SubmitRequest struct {
	URL     string `json:"url"`
	Referer string `json:"referer,omitempty"`
}

// SubmitResult is the structured outcome of a submission. It is always
// returned, never an error.
type SubmitResult struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// TransferInfo describes one active LDM transfer
type TransferInfo struct {
	Filename   string  `json:"filename"`
	Progress   float64 `json:"progress"`
	Speed      float64 `json:"speed"`
	Downloaded int64   `json:"downloaded"`
	Size       int64   `json:"size"`
}

// StatusReport is the LDM status reply
type StatusReport struct {
	ActiveDownloads int            `json:"activeDownloads"`
	TotalSpeed      float64        `json:"totalSpeed"`
	Downloads       []TransferInfo `json:"downloads"`
}

// EmptyStatus is substituted when LDM cannot be reached
func EmptyStatus() *StatusReport {
	return &StatusReport{Downloads: []TransferInfo{}}
}

var (
	// ErrNotRunning means the LDM service did not answer at all
	ErrNotRunning = errors.New("LDM not running or connection refused")

	// ErrUnauthorized means LDM kept rejecting the token after a refresh
	ErrUnauthorized = errors.New("LDM authentication failed")
)

// HTTPStatusError is a non-2xx reply other than a retried 401
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// FailedSubmit converts err into a structured failure
func FailedSubmit(err error) *SubmitResult {
	return &SubmitResult{Success: false, Error: err.Error()}
}
