// Package classifier decides whether a download URL should be handed to LDM.
package classifier

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

// Reason explains a rejection
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonScheme    Reason = "scheme"
	ReasonManifest  Reason = "manifest"
	ReasonExtension Reason = "extension"
	ReasonDenylist  Reason = "denylist"
	ReasonAllowlist Reason = "allowlist"
	ReasonSize      Reason = "size"
	ReasonHostname  Reason = "hostname"
)

// Decision is the result of classifying one URL
type Decision struct {
	Accept bool   `json:"accept"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func accept() Decision {
	return Decision{Accept: true}
}

func reject(reason Reason, format string, args ...interface{}) Decision {
	return Decision{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

var manifestMarkers = []string{".m3u8", ".mpd", "manifest"}

// Classify applies the interception rules in order and stops at the first
// rejection. sizeBytes <= 0 means the size is unknown.
func Classify(s *domain.Settings, rawURL string, sizeBytes int64) Decision {
	if HasOpaqueScheme(rawURL) {
		return reject(ReasonScheme, "%s URLs cannot be fetched by LDM", schemeOf(rawURL))
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		u = nil
	}

	if marker := manifestMarker(u, rawURL); marker != "" {
		return reject(ReasonManifest, "streaming manifest (%s)", marker)
	}

	if u != nil {
		if ext := pathExtension(u.Path); s.IsIgnoredExtension(ext) {
			return reject(ReasonExtension, "extension %q is ignored", ext)
		}
	}

	host := hostname(u)
	if host == "" {
		if s.StrictHostnames {
			return reject(ReasonHostname, "hostname could not be parsed")
		}
	} else {
		for _, d := range s.DomainDenylist {
			if strings.Contains(host, d) {
				return reject(ReasonDenylist, "host %s matches deny-list entry %q", host, d)
			}
		}
		if len(s.DomainAllowlist) > 0 && !containsAny(host, s.DomainAllowlist) {
			return reject(ReasonAllowlist, "host %s is not on the allow-list", host)
		}
	}

	if s.MinFileSizeKB > 0 && sizeBytes > 0 && sizeBytes < s.MinFileSizeKB*1024 {
		return reject(ReasonSize, "%d KB is below the %d KB minimum", sizeBytes/1024, s.MinFileSizeKB)
	}

	return accept()
}

// HasOpaqueScheme reports blob: and data: URLs
func HasOpaqueScheme(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	return strings.HasPrefix(lower, "blob:") || strings.HasPrefix(lower, "data:")
}

// IsStreamingManifest reports URLs of HLS/DASH manifests
func IsStreamingManifest(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		u = nil
	}
	return manifestMarker(u, rawURL) != ""
}

// IsDownloadableURL reports whether an external process can fetch rawURL
// directly: http(s), not opaque, not a streaming manifest.
func IsDownloadableURL(rawURL string) bool {
	if rawURL == "" || HasOpaqueScheme(rawURL) || IsStreamingManifest(rawURL) {
		return false
	}
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Extension returns the lower-cased extension of the URL path without the dot,
// or "" when there is none or the URL is malformed.
func Extension(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return pathExtension(u.Path)
}

// Hostname returns the lower-cased host of rawURL, or "" when it has none
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return hostname(u)
}

// HostMatches reports whether the host of rawURL contains any of sites
func HostMatches(rawURL string, sites []string) bool {
	host := Hostname(rawURL)
	return host != "" && containsAny(host, sites)
}

func pathExtension(p string) string {
	ext := path.Ext(path.Base(p))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func manifestMarker(u *url.URL, rawURL string) string {
	subject := rawURL
	if u != nil {
		subject = u.Path
	}
	subject = strings.ToLower(subject)
	for _, m := range manifestMarkers {
		if strings.Contains(subject, m) {
			return m
		}
	}
	return ""
}

func hostname(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func schemeOf(rawURL string) string {
	if i := strings.IndexByte(rawURL, ':'); i > 0 {
		return strings.ToLower(strings.TrimSpace(rawURL[:i]))
	}
	return rawURL
}

func containsAny(host string, subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(host, s) {
			return true
		}
	}
	return false
}
