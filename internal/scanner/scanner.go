// Package scanner finds downloadable media on HTML pages.
package scanner

import (
	"iter"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/lastdm/ldm-bridge/internal/classifier"
	"github.com/lastdm/ldm-bridge/internal/domain"
)

const (
	defaultPageTitle = "Video Page"
	extractorQuality = "yt-dlp"
	unknownQuality   = "Unknown"
	audioQuality     = "Audio"
	fallbackFilename = "download"
)

// streamExtensions are the video and audio extensions offered by Scan
var streamExtensions = map[string]bool{
	"mp4": true, "mkv": true, "avi": true, "mov": true, "wmv": true, "flv": true,
	"webm": true, "m4v": true, "mpeg": true, "mpg": true, "3gp": true,
	"mp3": true, "wav": true, "flac": true, "aac": true, "ogg": true, "m4a": true,
}

// mediaExtensions restrict GrabLinks when only media is requested
var mediaExtensions = map[string]bool{
	"mp4": true, "mkv": true, "avi": true, "mov": true, "wmv": true, "flv": true,
	"webm": true, "m4v": true, "mpeg": true, "mpg": true, "3gp": true,
	"mp3": true, "wav": true, "flac": true, "aac": true, "ogg": true, "m4a": true, "wma": true,
	"zip": true, "rar": true, "7z": true, "tar": true, "gz": true, "bz2": true,
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "ppt": true, "pptx": true,
	"psd": true, "ai": true, "eps": true,
	"exe": true, "msi": true, "dmg": true, "pkg": true, "deb": true, "rpm": true, "apk": true,
}

// Scanner extracts media candidates from parsed pages
type Scanner struct {
	extractorSites []string
	skipSites      []string
}

// New creates a scanner from configuration
func New(config *domain.ScannerConfig) *Scanner {
	return &Scanner{
		extractorSites: lowerAll(config.ExtractorSites),
		skipSites:      lowerAll(config.SkipScanSites),
	}
}

// IsExtractorSite reports whether pageURL is on a site that needs an
// external extractor to resolve its media
func (s *Scanner) IsExtractorSite(pageURL string) bool {
	return classifier.HostMatches(pageURL, s.extractorSites)
}

// SkipsScan reports whether pageURL is on a site that is never scanned
func (s *Scanner) SkipsScan(pageURL string) bool {
	return classifier.HostMatches(pageURL, s.skipSites)
}

// Scan returns a lazy sequence of media candidates found in doc. The
// sequence can be consumed once; later iterations yield nothing. Each URL
// is yielded at most once, in page order: the page itself for extractor
// sites, then <video> sources, then <audio> sources, then linked media files.
func (s *Scanner) Scan(pageURL string, doc *goquery.Document) iter.Seq[domain.Candidate] {
	var consumed atomic.Bool

	return func(yield func(domain.Candidate) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		if doc == nil || s.SkipsScan(pageURL) {
			return
		}

		base := baseURL(pageURL, doc)
		pageTitle := documentTitle(doc)
		seen := make(map[string]bool)

		emit := func(c domain.Candidate) bool {
			if seen[c.URL] {
				return true
			}
			seen[c.URL] = true
			return yield(c)
		}

		if s.IsExtractorSite(pageURL) {
			title := pageTitle
			if title == "" {
				title = defaultPageTitle
			}
			if !emit(domain.Candidate{URL: pageURL, Title: title, Quality: extractorQuality, Type: domain.CandidatePage}) {
				return
			}
		}

		for _, video := range doc.Find("video").EachIter() {
			title := videoTitle(video, pageTitle)
			if src := resolve(base, video.AttrOr("src", "")); downloadable(src, seen) {
				if !emit(domain.Candidate{URL: src, Title: title, Quality: videoQuality(video), Type: domain.CandidateVideo}) {
					return
				}
			}
			for _, source := range video.Find("source").EachIter() {
				if src := resolve(base, source.AttrOr("src", "")); downloadable(src, seen) {
					quality := source.AttrOr("type", "")
					if quality == "" {
						quality = unknownQuality
					}
					if !emit(domain.Candidate{URL: src, Title: title, Quality: quality, Type: domain.CandidateVideo}) {
						return
					}
				}
			}
		}

		for _, audio := range doc.Find("audio").EachIter() {
			if src := resolve(base, audio.AttrOr("src", "")); downloadable(src, seen) {
				if !emit(domain.Candidate{URL: src, Title: pageTitle, Quality: audioQuality, Type: domain.CandidateAudio}) {
					return
				}
			}
			for _, source := range audio.Find("source").EachIter() {
				if src := resolve(base, source.AttrOr("src", "")); downloadable(src, seen) {
					quality := source.AttrOr("type", "")
					if quality == "" {
						quality = audioQuality
					}
					if !emit(domain.Candidate{URL: src, Title: pageTitle, Quality: quality, Type: domain.CandidateAudio}) {
						return
					}
				}
			}
		}

		for _, link := range doc.Find("a[href]").EachIter() {
			href := resolve(base, link.AttrOr("href", ""))
			ext := classifier.Extension(href)
			if !streamExtensions[ext] || !downloadable(href, seen) {
				continue
			}
			title := strings.TrimSpace(link.Text())
			if title == "" {
				title = filenameOf(href)
			}
			if !emit(domain.Candidate{URL: href, Title: title, Quality: strings.ToUpper(ext), Type: domain.CandidateLink}) {
				return
			}
		}
	}
}

// Videos collects Scan into a slice
func (s *Scanner) Videos(pageURL string, doc *goquery.Document) []domain.Candidate {
	videos := []domain.Candidate{}
	for c := range s.Scan(pageURL, doc) {
		videos = append(videos, c)
	}
	return videos
}

// GrabLinks lists the absolute link targets of doc, skipping script, mail
// and in-page anchors. With mediaOnly only media files are kept and the
// sources of <video>/<audio> elements are appended.
func (s *Scanner) GrabLinks(pageURL string, doc *goquery.Document, mediaOnly bool) []string {
	links := []string{}
	if doc == nil {
		return links
	}

	base := baseURL(pageURL, doc)
	seen := make(map[string]bool)

	for _, link := range doc.Find("a[href]").EachIter() {
		raw := strings.TrimSpace(link.AttrOr("href", ""))
		if raw == "" || strings.HasPrefix(raw, "#") || hasPrefixFold(raw, "javascript:") || hasPrefixFold(raw, "mailto:") {
			continue
		}

		href := resolve(base, raw)
		if href == "" || seen[href] {
			continue
		}
		seen[href] = true

		if mediaOnly && !mediaExtensions[classifier.Extension(href)] {
			continue
		}
		links = append(links, href)
	}

	if mediaOnly {
		for _, el := range doc.Find("video source, audio source, video[src], audio[src]").EachIter() {
			src := resolve(base, el.AttrOr("src", ""))
			if downloadable(src, seen) {
				seen[src] = true
				links = append(links, src)
			}
		}
	}

	return links
}

func downloadable(src string, seen map[string]bool) bool {
	return src != "" && !seen[src] && classifier.IsDownloadableURL(src)
}

// baseURL prefers <base href>, then the page URL, then the document URL
func baseURL(pageURL string, doc *goquery.Document) *url.URL {
	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		base = u
	} else if doc.Url != nil {
		base = doc.Url
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if base == nil {
				return ref
			}
			return base.ResolveReference(ref)
		}
	}
	return base
}

func resolve(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if classifier.HasOpaqueScheme(raw) {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func documentTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func videoTitle(video *goquery.Selection, pageTitle string) string {
	for _, attr := range []string{"title", "alt"} {
		if v := strings.TrimSpace(video.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	if caption := video.Closest("figure").Find("figcaption").First(); caption.Length() > 0 {
		if text := strings.TrimSpace(caption.Text()); text != "" {
			return text
		}
	}
	if v := strings.TrimSpace(video.AttrOr("aria-label", "")); v != "" {
		return v
	}
	return pageTitle
}

// videoQuality buckets the declared height of a video element
func videoQuality(video *goquery.Selection) string {
	height, err := strconv.Atoi(strings.TrimSpace(video.AttrOr("height", "")))
	if err != nil || height <= 0 {
		return unknownQuality
	}
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "1440p"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	default:
		return strconv.Itoa(height) + "p"
	}
}

func filenameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackFilename
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return fallbackFilename
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return name
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
