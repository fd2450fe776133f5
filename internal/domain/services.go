package domain

import "context"

// LDMService is the contract of the local download manager client
type LDMService interface {
	// Ping probes LDM liveness
	Ping(ctx context.Context) (*PingInfo, error)

	// Submit hands a URL to LDM. It never returns an error; failures are
	// reported in the result.
	Submit(ctx context.Context, url, referer string) *SubmitResult

	// StatusOrEmpty returns active transfers, or a zeroed report when offline
	StatusOrEmpty(ctx context.Context) *StatusReport
}

// BrowserHost is the browser side of an intercepted download
type BrowserHost interface {
	// CancelDownload stops the native download
	CancelDownload(ctx context.Context, id string) error

	// EraseDownload removes the cancelled download from the browser's list
	EraseDownload(ctx context.Context, id string) error

	// ActiveTabURL returns the URL of the focused tab, or "" when unknown
	ActiveTabURL(ctx context.Context) (string, error)
}

// Notifier shows desktop notifications for submissions
type Notifier interface {
	NotifySubmitted(settings *Settings, url string)
	NotifyFailed(settings *Settings, url string, reason string)
}
