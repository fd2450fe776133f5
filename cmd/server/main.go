package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/api"
	"github.com/lastdm/ldm-bridge/internal/app"
	"github.com/lastdm/ldm-bridge/internal/daemon"
	"github.com/lastdm/ldm-bridge/internal/infrastructure"
	"github.com/lastdm/ldm-bridge/internal/ldm"
	"github.com/lastdm/ldm-bridge/internal/scanner"
	"github.com/lastdm/ldm-bridge/pkg/logger"
)

const version = "1.0.0"

var (
	serverMode  = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	foreground  = flag.Bool("foreground", false, "Run in the foreground instead of detaching")
	configPath  = flag.String("config", "", "Path to config file")
	writeConfig = flag.String("write-config", "", "Write the effective configuration to this path and exit")
)

func main() {
	flag.Parse()

	if *writeConfig != "" {
		config, err := app.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		if err := app.SaveConfig(config, *writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration written to %s\n", *writeConfig)
		return
	}

	// If not in server mode, run as daemon
	if !*serverMode && !*foreground {
		startAsDaemon()
		return
	}

	runServer()
}

// startAsDaemon re-executes the binary detached, in server mode
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}

	pid, err := daemon.Spawn(execPath, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", pid)
}

func runServer() {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	general, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize multi-logger (intercept and error files next to the general logger)
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	}, general)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer multiLog.Close()

	logAdapter := logger.NewLoggerAdapter(multiLog)
	log := logAdapter.General()
	defer logAdapter.Sync()

	log.Info("Starting ldm-bridge server",
		zap.String("version", version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("ldm", config.LDM.BaseURL))

	repo, err := infrastructure.NewSQLiteRepository(config.History.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	settings, err := app.NewSettingsStore(repo, config.Interception.InitialSettings(), log)
	if err != nil {
		log.Fatal("Failed to load settings", zap.Error(err))
	}

	history := app.NewHistoryService(repo, config.History.MaxEntries, log)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	client := ldm.NewClient(&config.LDM, log)

	controller := app.NewInterceptionController(settings, client, history, notifier, logAdapter)
	monitor := app.NewConnectionMonitor(client, client, &config.LDM, logAdapter)
	messages := app.NewMessageRouter(
		settings,
		controller,
		monitor,
		scanner.New(&config.Scanner),
		scanner.NewFetcher(&config.Scanner, log),
		logAdapter,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := monitor.Start(ctx); err != nil {
		log.Fatal("Failed to start connection monitor", zap.Error(err))
	}

	router := api.SetupRouter(api.Services{
		Settings:       settings,
		History:        history,
		Controller:     controller,
		Monitor:        monitor,
		Messages:       messages,
		Data:           app.NewDataManager(settings, history, logAdapter),
		LDM:            client,
		StatusInterval: config.LDM.StatusPollInterval,
		Version:        version,
	}, logAdapter)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := monitor.Stop(); err != nil {
		log.Error("Error stopping connection monitor", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
