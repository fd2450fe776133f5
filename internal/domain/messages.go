package domain

import (
	"encoding/json"
	"time"
)

// Action names a cross-context request from the browser UI
type Action string

const (
	ActionUpdateSettings  Action = "updateSettings"
	ActionCheckConnection Action = "checkConnection"
	ActionDownloadURL     Action = "downloadUrl"
	ActionScanVideos      Action = "scanVideos"
	ActionGrabLinks       Action = "grabLinks"
	ActionGetPageURL      Action = "getPageUrl"
)

// ValidateAction checks if an action is known
func ValidateAction(a Action) bool {
	switch a {
	case ActionUpdateSettings, ActionCheckConnection, ActionDownloadURL,
		ActionScanVideos, ActionGrabLinks, ActionGetPageURL:
		return true
	}
	return false
}

// Message is a named-action request. Only the fields relevant to the action
// are read.
type Message struct {
	Action    Action `json:"action" binding:"required"`
	URL       string `json:"url,omitempty"`
	Referer   string `json:"referer,omitempty"`
	PageURL   string `json:"pageUrl,omitempty"`
	MediaOnly bool   `json:"mediaOnly,omitempty"`
	Source    Source `json:"source,omitempty"`

	// Settings is a partial settings object merged over the current ones
	Settings json.RawMessage `json:"settings,omitempty"`
}

// Reply is the response to a Message
type Reply struct {
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	Connection *ConnectionState `json:"connection,omitempty"`
	Data       map[string]any   `json:"data,omitempty"`
	Videos     []Candidate      `json:"videos,omitempty"`
	Links      []string         `json:"links,omitempty"`
	URL        string           `json:"url,omitempty"`
	Settings   *Settings        `json:"settings,omitempty"`
}

// ConnectionState is the last known LDM reachability
type ConnectionState struct {
	Connected bool      `json:"connected"`
	App       string    `json:"app,omitempty"`
	Version   string    `json:"version,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// CandidateKind classifies a scanned media URL
type CandidateKind string

const (
	CandidatePage  CandidateKind = "page"
	CandidateVideo CandidateKind = "video"
	CandidateAudio CandidateKind = "audio"
	CandidateLink  CandidateKind = "link"
)

// Candidate is a media URL found on a page
type Candidate struct {
	URL     string        `json:"url"`
	Title   string        `json:"title"`
	Quality string        `json:"quality"`
	Type    CandidateKind `json:"type"`
}
