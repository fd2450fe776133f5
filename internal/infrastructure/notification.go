package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

const (
	MethodOSAScript  = "osascript"
	MethodNotifySend = "notify-send"
	MethodNone       = "none"
)

// CommandRunner executes a notification command
type CommandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService implements domain.Notifier with desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	run    CommandRunner
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return NewNotificationServiceWithRunner(config, runCommand, logger)
}

// NewNotificationServiceWithRunner creates a notification service that
// executes commands through run
func NewNotificationServiceWithRunner(config *domain.NotificationConfig, run CommandRunner, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		run:    run,
		logger: logger,
	}
}

// Send shows a notification unless the user turned notifications off
func (n *NotificationService) Send(settings *domain.Settings, title, message string) error {
	if settings != nil && !settings.NotificationsEnabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}
	sound := settings == nil || settings.SoundEnabled

	var (
		name string
		args []string
	)
	switch n.config.Method {
	case MethodOSAScript:
		name = "osascript"
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		if sound {
			script += ` sound name "Glass"`
		}
		args = []string{"-e", script}
	case MethodNotifySend:
		name = "notify-send"
		if sound {
			args = append(args, "--hint=string:sound-name:complete")
		}
		args = append(args, title, message)
	case MethodNone, "":
		return nil
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.String("command", commandLine(name, args...)),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("command", commandLine(name, args...)))
	return nil
}

// NotifySubmitted implements domain.Notifier
func (n *NotificationService) NotifySubmitted(settings *domain.Settings, url string) {
	n.Send(settings, "Sent to LDM", truncateString(url, 60))
}

// NotifyFailed implements domain.Notifier
func (n *NotificationService) NotifyFailed(settings *domain.Settings, url string, reason string) {
	message := truncateString(url, 60)
	if reason != "" {
		message = fmt.Sprintf("%s: %s", reason, message)
	}
	n.Send(settings, "LDM download failed", message)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
