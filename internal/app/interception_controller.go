package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/classifier"
	"github.com/lastdm/ldm-bridge/internal/domain"
	"github.com/lastdm/ldm-bridge/pkg/logger"
)

// InterceptionController decides, per browser download, whether LDM takes it over
type InterceptionController struct {
	settings *SettingsStore
	ldm      domain.LDMService
	history  *HistoryService
	notifier domain.Notifier
	logs     *logger.LoggerAdapter
}

// NewInterceptionController creates a new interception controller
func NewInterceptionController(
	settings *SettingsStore,
	ldm domain.LDMService,
	history *HistoryService,
	notifier domain.Notifier,
	logs *logger.LoggerAdapter,
) *InterceptionController {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	return &InterceptionController{
		settings: settings,
		ldm:      ldm,
		history:  history,
		notifier: notifier,
		logs:     logs,
	}
}

// Classify runs the classifier against the current settings
func (c *InterceptionController) Classify(rawURL string, sizeBytes int64) classifier.Decision {
	return classifier.Classify(c.settings.Load(), rawURL, sizeBytes)
}

// HandleDownloadCreated runs one download-created event through
// skip, classify and submit. A failed submission leaves the native download
// untouched; a successful one cancels and erases it through host.
func (c *InterceptionController) HandleDownloadCreated(ctx context.Context, host domain.BrowserHost, ev domain.DownloadEvent) domain.InterceptOutcome {
	settings := c.settings.Load()

	if !settings.InterceptEnabled {
		return c.skip(ev, "interception disabled")
	}
	if ev.State != domain.DownloadInProgress {
		return c.skip(ev, fmt.Sprintf("download state is %q", ev.State))
	}

	decision := classifier.Classify(settings, ev.URL, ev.FileSize)
	if !decision.Accept {
		c.logs.LogIntercept("download_rejected",
			zap.String("id", ev.ID),
			zap.String("url", ev.URL),
			zap.String("reason", string(decision.Reason)),
			zap.String("detail", decision.Detail))
		return domain.InterceptOutcome{Action: domain.ActionRejected, Reason: string(decision.Reason)}
	}

	referer := c.resolveReferer(ctx, host, ev)
	var size int64
	if ev.SizeKnown() {
		size = ev.FileSize
	}
	result := c.ldm.Submit(ctx, ev.URL, referer)
	c.record(ev.URL, referer, domain.SourceIntercept, size, result)

	if !result.Success {
		c.logs.LogIntercept("download_fallback",
			zap.String("id", ev.ID),
			zap.String("url", ev.URL),
			zap.String("error", result.Error))
		return domain.InterceptOutcome{Action: domain.ActionFallback, Referer: referer, Error: result.Error}
	}

	// without a host the caller owns the native download
	outcome := domain.InterceptOutcome{Action: domain.ActionIntercepted, Referer: referer, Cancel: true, Erase: true}
	if host != nil {
		if err := host.CancelDownload(ctx, ev.ID); err != nil {
			outcome.Cancel = false
			c.logs.LogError(logger.CategoryIntercept, "Failed to cancel native download",
				zap.String("id", ev.ID),
				zap.Error(err))
		}
		if err := host.EraseDownload(ctx, ev.ID); err != nil {
			outcome.Erase = false
			c.logs.LogError(logger.CategoryIntercept, "Failed to erase native download",
				zap.String("id", ev.ID),
				zap.Error(err))
		}
	}

	c.logs.LogIntercept("download_intercepted",
		zap.String("id", ev.ID),
		zap.String("url", ev.URL),
		zap.Bool("referer", referer != ""),
		zap.Int64("size", size))
	c.notifySubmitted(settings, ev.URL)
	return outcome
}

// DownloadURL submits a URL chosen by the user. No classification applies.
func (c *InterceptionController) DownloadURL(ctx context.Context, url, referer string, source domain.Source) *domain.SubmitResult {
	if !domain.ValidateSource(source) {
		source = domain.SourceManual
	}

	result := c.ldm.Submit(ctx, url, referer)
	c.record(url, referer, source, 0, result)

	settings := c.settings.Load()
	if result.Success {
		c.logs.LogIntercept("download_sent",
			zap.String("url", url),
			zap.String("source", string(source)))
		c.notifySubmitted(settings, url)
	} else {
		c.logs.LogIntercept("download_send_failed",
			zap.String("url", url),
			zap.String("source", string(source)),
			zap.String("error", result.Error))
		if c.notifier != nil {
			c.notifier.NotifyFailed(settings, url, result.Error)
		}
	}
	return result
}

// resolveReferer prefers the event referer, then the active tab URL
func (c *InterceptionController) resolveReferer(ctx context.Context, host domain.BrowserHost, ev domain.DownloadEvent) string {
	if ev.Referer != "" {
		return ev.Referer
	}
	if ev.ActiveTabURL != "" {
		return ev.ActiveTabURL
	}
	if host == nil {
		return ""
	}
	tabURL, err := host.ActiveTabURL(ctx)
	if err != nil {
		c.logs.General().Debug("Active tab lookup failed", zap.Error(err))
		return ""
	}
	return tabURL
}

func (c *InterceptionController) skip(ev domain.DownloadEvent, reason string) domain.InterceptOutcome {
	c.logs.LogIntercept("download_skipped",
		zap.String("id", ev.ID),
		zap.String("url", ev.URL),
		zap.String("reason", reason))
	return domain.InterceptOutcome{Action: domain.ActionSkipped, Reason: reason}
}

func (c *InterceptionController) record(url, referer string, source domain.Source, size int64, result *domain.SubmitResult) {
	if c.history == nil {
		return
	}
	if _, err := c.history.Record(url, referer, source, size, result); err != nil {
		c.logs.LogError(logger.CategoryIntercept, "Failed to record history",
			zap.String("url", url),
			zap.Error(err))
	}
}

func (c *InterceptionController) notifySubmitted(settings *domain.Settings, url string) {
	if c.notifier != nil {
		c.notifier.NotifySubmitted(settings, url)
	}
}
