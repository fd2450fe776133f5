package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
	"github.com/lastdm/ldm-bridge/internal/scanner"
	"github.com/lastdm/ldm-bridge/pkg/logger"
)

// PageFetcher retrieves pages for scanning
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*scanner.Page, error)
}

// MessageRouter dispatches named-action messages from the browser UI
type MessageRouter struct {
	settings   *SettingsStore
	controller *InterceptionController
	monitor    *ConnectionMonitor
	scanner    *scanner.Scanner
	fetcher    PageFetcher
	logs       *logger.LoggerAdapter
}

// NewMessageRouter creates a new message router
func NewMessageRouter(
	settings *SettingsStore,
	controller *InterceptionController,
	monitor *ConnectionMonitor,
	pageScanner *scanner.Scanner,
	fetcher PageFetcher,
	logs *logger.LoggerAdapter,
) *MessageRouter {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	return &MessageRouter{
		settings:   settings,
		controller: controller,
		monitor:    monitor,
		scanner:    pageScanner,
		fetcher:    fetcher,
		logs:       logs,
	}
}

// Dispatch handles one message. Failures are reported in the reply.
func (r *MessageRouter) Dispatch(ctx context.Context, msg domain.Message) domain.Reply {
	if !domain.ValidateAction(msg.Action) {
		return failure(fmt.Errorf("unknown action: %q", msg.Action))
	}

	r.logs.General().Debug("Dispatching message", zap.String("action", string(msg.Action)))

	switch msg.Action {
	case domain.ActionUpdateSettings:
		return r.updateSettings(msg)
	case domain.ActionCheckConnection:
		state := r.monitor.Check(ctx)
		return domain.Reply{Success: state.Connected, Connection: &state}
	case domain.ActionDownloadURL:
		return r.downloadURL(ctx, msg)
	case domain.ActionScanVideos:
		page, err := r.fetch(ctx, msg)
		if err != nil {
			return failure(err)
		}
		return domain.Reply{Success: true, URL: page.URL, Videos: r.scanner.Videos(page.URL, page.Doc)}
	case domain.ActionGrabLinks:
		page, err := r.fetch(ctx, msg)
		if err != nil {
			return failure(err)
		}
		return domain.Reply{Success: true, URL: page.URL, Links: r.scanner.GrabLinks(page.URL, page.Doc, msg.MediaOnly)}
	case domain.ActionGetPageURL:
		page, err := r.fetch(ctx, msg)
		if err != nil {
			return failure(err)
		}
		return domain.Reply{Success: true, URL: page.URL}
	}
	return failure(fmt.Errorf("unhandled action: %q", msg.Action))
}

// updateSettings merges msg.Settings over the current settings, or re-reads
// the stored settings when the message carries none
func (r *MessageRouter) updateSettings(msg domain.Message) domain.Reply {
	var (
		settings *domain.Settings
		err      error
	)
	if len(msg.Settings) > 0 {
		settings, err = r.settings.Merge(msg.Settings)
	} else {
		settings, err = r.settings.Reload()
	}
	if err != nil {
		r.logs.LogError(logger.CategoryIntercept, "Failed to update settings", zap.Error(err))
		return failure(err)
	}
	return domain.Reply{Success: true, Settings: settings}
}

func (r *MessageRouter) downloadURL(ctx context.Context, msg domain.Message) domain.Reply {
	target := strings.TrimSpace(msg.URL)
	if target == "" {
		return failure(errors.New("url is required"))
	}

	source := msg.Source
	if source == "" {
		source = domain.SourceManual
	}
	referer := msg.Referer
	if referer == "" {
		referer = msg.PageURL
	}

	result := r.controller.DownloadURL(ctx, target, referer, source)
	return domain.Reply{Success: result.Success, Error: result.Error, Data: result.Data}
}

func (r *MessageRouter) fetch(ctx context.Context, msg domain.Message) (*scanner.Page, error) {
	pageURL := strings.TrimSpace(msg.PageURL)
	if pageURL == "" {
		pageURL = strings.TrimSpace(msg.URL)
	}
	if pageURL == "" {
		return nil, errors.New("pageUrl is required")
	}
	if r.fetcher == nil {
		return nil, errors.New("page fetching is not available")
	}
	return r.fetcher.Fetch(ctx, pageURL)
}

func failure(err error) domain.Reply {
	return domain.Reply{Success: false, Error: err.Error()}
}
