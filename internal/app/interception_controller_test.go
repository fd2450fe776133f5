package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastdm/ldm-bridge/internal/classifier"
	"github.com/lastdm/ldm-bridge/internal/domain"
)

type controllerFixture struct {
	repo       *mockRepo
	ldm        *mockLDM
	notifier   *mockNotifier
	settings   *SettingsStore
	history    *HistoryService
	controller *InterceptionController
}

func newControllerFixture(t *testing.T, settings *domain.Settings) *controllerFixture {
	t.Helper()
	repo := newMockRepo()
	store, err := NewSettingsStore(repo, settings, nil)
	require.NoError(t, err)

	f := &controllerFixture{
		repo:     repo,
		ldm:      &mockLDM{online: true},
		notifier: &mockNotifier{},
		settings: store,
		history:  NewHistoryService(repo, 50, nil),
	}
	f.controller = NewInterceptionController(f.settings, f.ldm, f.history, f.notifier, nil)
	return f
}

func inProgress(url string) domain.DownloadEvent {
	return domain.DownloadEvent{ID: "42", URL: url, State: domain.DownloadInProgress}
}

func TestHandleDownloadCreated_Intercepted(t *testing.T) {
	f := newControllerFixture(t, testSettings())
	host := NewDirectiveHost("")

	ev := inProgress("https://cdn.example.com/file.zip")
	ev.Referer = "https://example.com/downloads"
	ev.FileSize = 4 << 20

	outcome := f.controller.HandleDownloadCreated(context.Background(), host, ev)

	assert.Equal(t, domain.ActionIntercepted, outcome.Action)
	assert.True(t, outcome.Cancel)
	assert.True(t, outcome.Erase)
	assert.Equal(t, []string{"42"}, host.Cancelled())
	assert.Equal(t, []string{"42"}, host.Erased())

	submits := f.ldm.Submits()
	require.Len(t, submits, 1)
	assert.Equal(t, "https://cdn.example.com/file.zip", submits[0].URL)
	assert.Equal(t, "https://example.com/downloads", submits[0].Referer)

	assert.Equal(t, []string{"https://cdn.example.com/file.zip"}, f.notifier.submitted)

	entries, err := f.history.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SourceIntercept, entries[0].Source)
	assert.True(t, entries[0].Success)
}

func TestHandleDownloadCreated_FallbackKeepsNativeDownload(t *testing.T) {
	f := newControllerFixture(t, testSettings())
	f.ldm.result = domain.FailedSubmit(domain.ErrNotRunning)
	host := NewDirectiveHost("")

	outcome := f.controller.HandleDownloadCreated(context.Background(), host, inProgress("https://example.com/a.zip"))

	assert.Equal(t, domain.ActionFallback, outcome.Action)
	assert.False(t, outcome.Cancel)
	assert.False(t, outcome.Erase)
	assert.Equal(t, domain.ErrNotRunning.Error(), outcome.Error)
	assert.Empty(t, host.Cancelled())
	assert.Empty(t, host.Erased())
	assert.Empty(t, f.notifier.submitted)
	assert.Empty(t, f.notifier.failed)

	entries, err := f.history.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
}

func TestHandleDownloadCreated_Skips(t *testing.T) {
	disabled := testSettings()
	disabled.InterceptEnabled = false

	tests := []struct {
		name     string
		settings *domain.Settings
		state    domain.DownloadState
	}{
		{"interception disabled", disabled, domain.DownloadInProgress},
		{"already complete", testSettings(), domain.DownloadComplete},
		{"interrupted", testSettings(), domain.DownloadInterrupted},
		{"missing state", testSettings(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture(t, tt.settings)
			ev := inProgress("https://example.com/a.zip")
			ev.State = tt.state

			outcome := f.controller.HandleDownloadCreated(context.Background(), NewDirectiveHost(""), ev)
			assert.Equal(t, domain.ActionSkipped, outcome.Action)
			assert.NotEmpty(t, outcome.Reason)
			assert.Empty(t, f.ldm.Submits())
		})
	}
}

func TestHandleDownloadCreated_ClassifierRejects(t *testing.T) {
	settings := testSettings()
	settings.DomainDenylist = []string{"ads.example.com"}
	settings.MinFileSizeKB = 100
	f := newControllerFixture(t, settings)

	tests := []struct {
		url    string
		size   int64
		reason classifier.Reason
	}{
		{"blob:https://example.com/1234", 0, classifier.ReasonScheme},
		{"https://example.com/index.html", 0, classifier.ReasonExtension},
		{"https://ads.example.com/a.zip", 0, classifier.ReasonDenylist},
		{"https://example.com/small.zip", 10 * 1024, classifier.ReasonSize},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			ev := inProgress(tt.url)
			ev.FileSize = tt.size
			outcome := f.controller.HandleDownloadCreated(context.Background(), NewDirectiveHost(""), ev)
			assert.Equal(t, domain.ActionRejected, outcome.Action)
			assert.Equal(t, string(tt.reason), outcome.Reason)
		})
	}
	assert.Empty(t, f.ldm.Submits())
}

func TestHandleDownloadCreated_RefererResolution(t *testing.T) {
	f := newControllerFixture(t, testSettings())

	ev := inProgress("https://example.com/a.zip")
	ev.ActiveTabURL = "https://example.com/reported"
	outcome := f.controller.HandleDownloadCreated(context.Background(), NewDirectiveHost("https://example.com/host"), ev)
	assert.Equal(t, "https://example.com/reported", outcome.Referer)

	outcome = f.controller.HandleDownloadCreated(context.Background(), NewDirectiveHost("https://example.com/host"), inProgress("https://example.com/b.zip"))
	assert.Equal(t, "https://example.com/host", outcome.Referer)

	outcome = f.controller.HandleDownloadCreated(context.Background(), failingHost{}, inProgress("https://example.com/c.zip"))
	assert.Equal(t, domain.ActionIntercepted, outcome.Action)
	assert.Empty(t, outcome.Referer)

	submits := f.ldm.Submits()
	require.Len(t, submits, 3)
	assert.Equal(t, "https://example.com/reported", submits[0].Referer)
	assert.Equal(t, "https://example.com/host", submits[1].Referer)
	assert.Empty(t, submits[2].Referer)
}

func TestHandleDownloadCreated_HostErrorsDoNotFail(t *testing.T) {
	f := newControllerFixture(t, testSettings())

	ev := inProgress("https://example.com/a.zip")
	ev.Referer = "https://example.com/"
	outcome := f.controller.HandleDownloadCreated(context.Background(), failingHost{}, ev)

	assert.Equal(t, domain.ActionIntercepted, outcome.Action)
	assert.False(t, outcome.Cancel)
	assert.False(t, outcome.Erase)
}

func TestHandleDownloadCreated_WithoutHostCallerCancels(t *testing.T) {
	f := newControllerFixture(t, testSettings())

	outcome := f.controller.HandleDownloadCreated(context.Background(), nil, inProgress("https://example.com/a.zip"))

	assert.Equal(t, domain.ActionIntercepted, outcome.Action)
	assert.True(t, outcome.Cancel)
	assert.True(t, outcome.Erase)
}

func TestHandleDownloadCreated_UsesLatestSettings(t *testing.T) {
	f := newControllerFixture(t, testSettings())

	next := testSettings()
	next.InterceptEnabled = false
	_, err := f.settings.Replace(next)
	require.NoError(t, err)

	outcome := f.controller.HandleDownloadCreated(context.Background(), NewDirectiveHost(""), inProgress("https://example.com/a.zip"))
	assert.Equal(t, domain.ActionSkipped, outcome.Action)
}

func TestDownloadURL(t *testing.T) {
	f := newControllerFixture(t, testSettings())

	// user-chosen URLs bypass the classifier
	result := f.controller.DownloadURL(context.Background(), "https://example.com/page.html", "https://example.com/", domain.SourceContextMenu)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"https://example.com/page.html"}, f.notifier.submitted)

	f.ldm.result = domain.FailedSubmit(&domain.HTTPStatusError{StatusCode: 500})
	result = f.controller.DownloadURL(context.Background(), "https://example.com/b.zip", "", domain.Source("bogus"))
	assert.False(t, result.Success)
	assert.Equal(t, "HTTP 500", result.Error)
	assert.Equal(t, []string{"https://example.com/b.zip: HTTP 500"}, f.notifier.failed)

	entries, err := f.history.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	sources := []domain.Source{entries[0].Source, entries[1].Source}
	assert.ElementsMatch(t, []domain.Source{domain.SourceContextMenu, domain.SourceManual}, sources)
}

func TestController_Classify(t *testing.T) {
	f := newControllerFixture(t, testSettings())

	assert.True(t, f.controller.Classify("https://example.com/a.zip", 0).Accept)
	assert.False(t, f.controller.Classify("https://example.com/live/master.m3u8", 0).Accept)
}
