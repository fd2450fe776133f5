package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/domain"
	"github.com/lastdm/ldm-bridge/pkg/logger"
)

// Pinger probes LDM liveness
type Pinger interface {
	Ping(ctx context.Context) (*domain.PingInfo, error)
}

// TokenFetcher obtains a fresh LDM token
type TokenFetcher interface {
	FetchToken(ctx context.Context) (string, error)
}

// ConnectionMonitor owns the periodic LDM connection check and the scheduled
// token refresh
type ConnectionMonitor struct {
	pinger   Pinger
	tokens   TokenFetcher
	config   *domain.LDMConfig
	logs     *logger.LoggerAdapter
	mu       sync.RWMutex
	state    domain.ConnectionState
	running  bool
	stopChan chan struct{}
	workerWg sync.WaitGroup
	cron     *cron.Cron
}

// NewConnectionMonitor creates a new connection monitor. tokens may be nil.
func NewConnectionMonitor(pinger Pinger, tokens TokenFetcher, config *domain.LDMConfig, logs *logger.LoggerAdapter) *ConnectionMonitor {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	return &ConnectionMonitor{
		pinger: pinger,
		tokens: tokens,
		config: config,
		logs:   logs,
	}
}

// Start begins checking the connection and refreshing the token
func (m *ConnectionMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("connection monitor already running")
	}

	var scheduler *cron.Cron
	if m.tokens != nil && m.config.TokenRefreshSchedule != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(m.config.TokenRefreshSchedule, func() { m.refreshToken(ctx) }); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("invalid token refresh schedule: %w", err)
		}
	}

	m.running = true
	m.stopChan = make(chan struct{})
	m.cron = scheduler
	m.mu.Unlock()

	if scheduler != nil {
		scheduler.Start()
	}

	m.workerWg.Add(1)
	go m.watch(ctx)

	m.logs.General().Info("Connection monitor started",
		zap.Duration("interval", m.interval()),
		zap.String("token_refresh", m.config.TokenRefreshSchedule))
	return nil
}

// Stop stops the timers and waits for the check loop to exit
func (m *ConnectionMonitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("connection monitor not running")
	}
	m.running = false
	scheduler := m.cron
	m.cron = nil
	close(m.stopChan)
	m.mu.Unlock()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	m.workerWg.Wait()

	m.logs.General().Info("Connection monitor stopped")
	return nil
}

// IsRunning returns whether the monitor is running
func (m *ConnectionMonitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// State returns the last observed connection state
func (m *ConnectionMonitor) State() domain.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Check pings LDM now and records the result
func (m *ConnectionMonitor) Check(ctx context.Context) domain.ConnectionState {
	next := domain.ConnectionState{CheckedAt: time.Now()}
	info, err := m.pinger.Ping(ctx)
	if err == nil {
		next.Connected = true
		next.App = info.App
		next.Version = info.Version
	}

	m.mu.Lock()
	previous := m.state
	m.state = next
	m.mu.Unlock()

	switch {
	case next.Connected && !previous.Connected:
		m.logs.General().Info("LDM connected",
			zap.String("app", next.App),
			zap.String("version", next.Version))
		if !previous.CheckedAt.IsZero() {
			m.refreshToken(ctx)
		}
	case !next.Connected && previous.Connected:
		m.logs.General().Warn("LDM disconnected", zap.Error(err))
	}
	return next
}

func (m *ConnectionMonitor) watch(ctx context.Context) {
	defer m.workerWg.Done()

	ticker := time.NewTicker(m.interval())
	defer ticker.Stop()

	m.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *ConnectionMonitor) refreshToken(ctx context.Context) {
	if m.tokens == nil {
		return
	}
	if _, err := m.tokens.FetchToken(ctx); err != nil {
		m.logs.General().Debug("Token refresh failed", zap.Error(err))
		return
	}
	m.logs.General().Debug("Token refreshed")
}

func (m *ConnectionMonitor) interval() time.Duration {
	if m.config.ConnectionCheckInterval > 0 {
		return m.config.ConnectionCheckInterval
	}
	return 5 * time.Second
}
