package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastdm/ldm-bridge/internal/domain"
)

type recordedCommand struct {
	name string
	args []string
}

func recordingService(method string, fail error) (*NotificationService, *[]recordedCommand) {
	var calls []recordedCommand
	run := func(name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return fail
	}
	return NewNotificationServiceWithRunner(&domain.NotificationConfig{Method: method}, run, nil), &calls
}

func TestNotify_RespectsDisabledSetting(t *testing.T) {
	svc, calls := recordingService(MethodNotifySend, nil)
	s := domain.DefaultSettings()
	s.NotificationsEnabled = false

	svc.NotifySubmitted(s, "https://example.com/a.zip")

	assert.Empty(t, *calls)
}

func TestNotify_NotifySendWithSound(t *testing.T) {
	svc, calls := recordingService(MethodNotifySend, nil)
	s := domain.DefaultSettings()

	svc.NotifySubmitted(s, "https://example.com/a.zip")

	require.Len(t, *calls, 1)
	assert.Equal(t, "notify-send", (*calls)[0].name)
	assert.Equal(t, []string{"--hint=string:sound-name:complete", "Sent to LDM", "https://example.com/a.zip"}, (*calls)[0].args)
}

func TestNotify_SoundToggle(t *testing.T) {
	svc, calls := recordingService(MethodOSAScript, nil)
	s := domain.DefaultSettings()
	s.SoundEnabled = false

	svc.NotifyFailed(s, "https://example.com/a.zip", "HTTP 500")

	require.Len(t, *calls, 1)
	assert.Equal(t, "osascript", (*calls)[0].name)
	script := (*calls)[0].args[1]
	assert.Contains(t, script, "HTTP 500: https://example.com/a.zip")
	assert.NotContains(t, script, "sound name")
}

func TestNotify_NoneMethod(t *testing.T) {
	svc, calls := recordingService(MethodNone, nil)

	assert.NoError(t, svc.Send(domain.DefaultSettings(), "t", "m"))
	assert.Empty(t, *calls)
}

func TestNotify_RunnerError(t *testing.T) {
	svc, _ := recordingService(MethodNotifySend, errors.New("not installed"))

	err := svc.Send(domain.DefaultSettings(), "t", "m")

	assert.EqualError(t, err, "not installed")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
}
