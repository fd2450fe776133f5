package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lastdm/ldm-bridge/internal/daemon"
)

const (
	serverBinary       = "ldm-bridge-server"
	serverBinaryEnv    = "LDM_BRIDGE_SERVER"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
	healthTimeout      = time.Second
)

// bridgeHealth is the body of GET /health
type bridgeHealth struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// fetchHealth asks the bridge at baseURL for its health report
func fetchHealth(baseURL string) (*bridgeHealth, error) {
	client := &http.Client{Timeout: healthTimeout}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	var health bridgeHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("invalid health reply: %w", err)
	}
	if health.Status != "ok" {
		return nil, fmt.Errorf("bridge reports status %q", health.Status)
	}
	return &health, nil
}

func isServerRunning() bool {
	_, err := fetchHealth(serverURL)
	return err == nil
}

// serverCandidates lists where the server binary is looked for, in order
func serverCandidates() []string {
	var candidates []string
	if override := os.Getenv(serverBinaryEnv); override != "" {
		candidates = append(candidates, override)
	}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), serverBinary))
	}
	if onPath, err := exec.LookPath(serverBinary); err == nil {
		candidates = append(candidates, onPath)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "go", "bin", serverBinary),
			filepath.Join(home, ".local", "bin", serverBinary))
	}
	return append(candidates, "/usr/local/bin/"+serverBinary, "/usr/bin/"+serverBinary)
}

func findServerBinary() (string, error) {
	for _, candidate := range serverCandidates() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s binary not found (set %s to its path)", serverBinary, serverBinaryEnv)
}

// waitForServer polls the health endpoint until it answers or timeout passes
func waitForServer(timeout time.Duration) error {
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		if isServerRunning() {
			return nil
		}
		select {
		case <-deadline:
			return fmt.Errorf("server did not start within %v", timeout)
		case <-ticker.C:
		}
	}
}

// ensureServerRunning starts the bridge in the background unless it already answers
func ensureServerRunning() error {
	if isServerRunning() {
		return nil
	}

	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	// stdout is reserved for command output
	fmt.Fprintln(os.Stderr, "Bridge server not running, starting...")

	if _, err := daemon.Spawn(serverPath, "-server-mode"); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	if err := waitForServer(serverStartTimeout); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Bridge server started")
	return nil
}

var errBridgeDown = errors.New("bridge server is not running")
