package domain

// DownloadState mirrors the browser's download item state
type DownloadState string

const (
	DownloadInProgress  DownloadState = "in_progress"
	DownloadInterrupted DownloadState = "interrupted"
	DownloadComplete    DownloadState = "complete"
)

// DownloadEvent is a transient record produced by the browser or a page scan.
// It is consumed once by the controller and discarded.
type DownloadEvent struct {
	ID           string        `json:"id"`
	URL          string        `json:"url" binding:"required"`
	Referer      string        `json:"referer,omitempty"`
	FileSize     int64         `json:"fileSize,omitempty"` // bytes, <= 0 when unknown
	State        DownloadState `json:"state,omitempty"`
	ActiveTabURL string        `json:"activeTabUrl,omitempty"`
}

// SizeKnown reports whether the browser declared a usable size
func (e DownloadEvent) SizeKnown() bool {
	return e.FileSize > 0
}

// InterceptAction is the terminal state of one download-created event
type InterceptAction string

const (
	// ActionSkipped means interception was disabled or the event was not in progress
	ActionSkipped InterceptAction = "skip"
	// ActionRejected means the classifier declined the URL
	ActionRejected InterceptAction = "classify-reject"
	// ActionIntercepted means LDM accepted the URL and the native download was cancelled
	ActionIntercepted InterceptAction = "intercepted"
	// ActionFallback means submission failed and the native download proceeds
	ActionFallback InterceptAction = "fallback"
)

// InterceptOutcome is what the controller decided for a download
type InterceptOutcome struct {
	Action  InterceptAction `json:"action"`
	Reason  string          `json:"reason,omitempty"`
	Referer string          `json:"referer,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Cancel and Erase tell the browser side to drop the native download
	Cancel bool `json:"cancel"`
	Erase  bool `json:"erase"`
}

// Submitted reports whether the event reached the LDM client
func (o InterceptOutcome) Submitted() bool {
	return o.Action == ActionIntercepted || o.Action == ActionFallback
}

// Source identifies what triggered a submission
type Source string

const (
	SourceIntercept   Source = "intercept"
	SourceManual      Source = "manual"
	SourceContextMenu Source = "context-menu"
	SourceScan        Source = "scan"
)

// ValidateSource checks if a source is valid
func ValidateSource(s Source) bool {
	switch s {
	case SourceIntercept, SourceManual, SourceContextMenu, SourceScan:
		return true
	}
	return false
}
