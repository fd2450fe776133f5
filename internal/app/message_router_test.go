package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastdm/ldm-bridge/internal/domain"
	"github.com/lastdm/ldm-bridge/internal/scanner"
)

// stubFetcher serves pages from memory
type stubFetcher struct {
	pages     map[string]string
	redirects map[string]string
}

func (f *stubFetcher) Fetch(ctx context.Context, pageURL string) (*scanner.Page, error) {
	if target, ok := f.redirects[pageURL]; ok {
		pageURL = target
	}
	html, ok := f.pages[pageURL]
	if !ok {
		return nil, &domain.HTTPStatusError{StatusCode: 404}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &scanner.Page{URL: pageURL, Doc: doc}, nil
}

func newTestRouter(t *testing.T, fetcher PageFetcher) (*MessageRouter, *controllerFixture) {
	t.Helper()
	f := newControllerFixture(t, testSettings())
	config := domain.DefaultConfig()
	monitor := NewConnectionMonitor(f.ldm, f.ldm, &config.LDM, nil)
	router := NewMessageRouter(f.settings, f.controller, monitor, scanner.New(&config.Scanner), fetcher, nil)
	return router, f
}

const videoPage = `<html><head><title>Clips</title></head><body>
	<video src="/v/one.mp4" height="720"></video>
	<a href="/files/two.mkv">Two</a>
	<a href="/about">About</a>
	<a href="mailto:me@example.com">Mail</a>
</body></html>`

func TestDispatch_UnknownAction(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	reply := router.Dispatch(context.Background(), domain.Message{Action: "launchRockets"})
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Error, "unknown action")
}

func TestDispatch_UpdateSettings(t *testing.T) {
	router, f := newTestRouter(t, nil)

	reply := router.Dispatch(context.Background(), domain.Message{
		Action:   domain.ActionUpdateSettings,
		Settings: json.RawMessage(`{"interceptAll":false,"ignoredExtensions":[".EXE"]}`),
	})
	require.True(t, reply.Success, reply.Error)
	assert.Equal(t, []string{"exe"}, reply.Settings.IgnoredExtensions)
	assert.False(t, f.settings.Load().InterceptEnabled)

	// omitted fields keep their value
	reply = router.Dispatch(context.Background(), domain.Message{
		Action:   domain.ActionUpdateSettings,
		Settings: json.RawMessage(`{"minFileSize":256}`),
	})
	require.True(t, reply.Success, reply.Error)
	assert.Equal(t, int64(256), reply.Settings.MinFileSizeKB)
	assert.Equal(t, []string{"exe"}, reply.Settings.IgnoredExtensions)
	assert.False(t, reply.Settings.InterceptEnabled)

	reply = router.Dispatch(context.Background(), domain.Message{
		Action:   domain.ActionUpdateSettings,
		Settings: json.RawMessage(`["not","an","object"]`),
	})
	assert.False(t, reply.Success)

	// without a payload the stored settings are re-read
	f.repo.mu.Lock()
	f.repo.settings.InterceptEnabled = true
	f.repo.mu.Unlock()

	reply = router.Dispatch(context.Background(), domain.Message{Action: domain.ActionUpdateSettings})
	require.True(t, reply.Success, reply.Error)
	assert.True(t, f.settings.Load().InterceptEnabled)
}

func TestDispatch_CheckConnection(t *testing.T) {
	router, f := newTestRouter(t, nil)

	reply := router.Dispatch(context.Background(), domain.Message{Action: domain.ActionCheckConnection})
	assert.True(t, reply.Success)
	require.NotNil(t, reply.Connection)
	assert.True(t, reply.Connection.Connected)

	f.ldm.mu.Lock()
	f.ldm.online = false
	f.ldm.mu.Unlock()

	reply = router.Dispatch(context.Background(), domain.Message{Action: domain.ActionCheckConnection})
	assert.False(t, reply.Success)
	require.NotNil(t, reply.Connection)
	assert.False(t, reply.Connection.Connected)
}

func TestDispatch_DownloadURL(t *testing.T) {
	router, f := newTestRouter(t, nil)

	reply := router.Dispatch(context.Background(), domain.Message{
		Action:  domain.ActionDownloadURL,
		URL:     " https://example.com/a.zip ",
		PageURL: "https://example.com/list",
	})
	assert.True(t, reply.Success)

	submits := f.ldm.Submits()
	require.Len(t, submits, 1)
	assert.Equal(t, "https://example.com/a.zip", submits[0].URL)
	assert.Equal(t, "https://example.com/list", submits[0].Referer)

	entries, err := f.history.Recent(1)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceManual, entries[0].Source)

	reply = router.Dispatch(context.Background(), domain.Message{Action: domain.ActionDownloadURL})
	assert.False(t, reply.Success)
	assert.Equal(t, "url is required", reply.Error)

	f.ldm.result = domain.FailedSubmit(domain.ErrNotRunning)
	reply = router.Dispatch(context.Background(), domain.Message{
		Action: domain.ActionDownloadURL,
		URL:    "https://example.com/b.zip",
		Source: domain.SourceScan,
	})
	assert.False(t, reply.Success)
	assert.Equal(t, domain.ErrNotRunning.Error(), reply.Error)
}

func TestDispatch_ScanVideos(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://example.com/clips": videoPage}}
	router, _ := newTestRouter(t, fetcher)

	reply := router.Dispatch(context.Background(), domain.Message{Action: domain.ActionScanVideos, PageURL: "https://example.com/clips"})
	require.True(t, reply.Success, reply.Error)
	require.Len(t, reply.Videos, 2)
	assert.Equal(t, "https://example.com/v/one.mp4", reply.Videos[0].URL)
	assert.Equal(t, "720p", reply.Videos[0].Quality)
	assert.Equal(t, "https://example.com/files/two.mkv", reply.Videos[1].URL)
}

func TestDispatch_GrabLinks(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"https://example.com/clips": videoPage}}
	router, _ := newTestRouter(t, fetcher)

	reply := router.Dispatch(context.Background(), domain.Message{Action: domain.ActionGrabLinks, URL: "https://example.com/clips"})
	require.True(t, reply.Success, reply.Error)
	assert.Equal(t, []string{"https://example.com/files/two.mkv", "https://example.com/about"}, reply.Links)

	reply = router.Dispatch(context.Background(), domain.Message{Action: domain.ActionGrabLinks, URL: "https://example.com/clips", MediaOnly: true})
	require.True(t, reply.Success, reply.Error)
	assert.Equal(t, []string{"https://example.com/files/two.mkv", "https://example.com/v/one.mp4"}, reply.Links)
}

func TestDispatch_GetPageURL(t *testing.T) {
	fetcher := &stubFetcher{
		pages:     map[string]string{"https://example.com/final": "<html></html>"},
		redirects: map[string]string{"https://example.com/short": "https://example.com/final"},
	}
	router, _ := newTestRouter(t, fetcher)

	reply := router.Dispatch(context.Background(), domain.Message{Action: domain.ActionGetPageURL, PageURL: "https://example.com/short"})
	require.True(t, reply.Success, reply.Error)
	assert.Equal(t, "https://example.com/final", reply.URL)
}

func TestDispatch_PageErrors(t *testing.T) {
	router, _ := newTestRouter(t, &stubFetcher{})

	reply := router.Dispatch(context.Background(), domain.Message{Action: domain.ActionScanVideos})
	assert.False(t, reply.Success)
	assert.Equal(t, "pageUrl is required", reply.Error)

	reply = router.Dispatch(context.Background(), domain.Message{Action: domain.ActionScanVideos, PageURL: "https://example.com/missing"})
	assert.False(t, reply.Success)
	assert.Equal(t, "HTTP 404", reply.Error)

	noFetch, _ := newTestRouter(t, nil)
	reply = noFetch.Dispatch(context.Background(), domain.Message{Action: domain.ActionGetPageURL, PageURL: "https://example.com/"})
	assert.False(t, reply.Success)
	assert.Equal(t, "page fetching is not available", reply.Error)
}
