package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bramburn/timetracker/internal/agent"
	"github.com/bramburn/timetracker/internal/annotation"
	"github.com/bramburn/timetracker/internal/client"
	"github.com/bramburn/timetracker/internal/config"
	"github.com/bramburn/timetracker/internal/database"
	"github.com/bramburn/timetracker/internal/detector"
	"github.com/bramburn/timetracker/internal/logger"
	"github.com/bramburn/timetracker/internal/logstore"
	"github.com/bramburn/timetracker/internal/platform"
	"github.com/bramburn/timetracker/internal/queue"
	"github.com/bramburn/timetracker/internal/screenshot"
	"github.com/bramburn/timetracker/internal/session"
	"github.com/bramburn/timetracker/internal/tracker"
	"github.com/bramburn/timetracker/internal/ui"
	"github.com/bramburn/timetracker/internal/uploader"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/local.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting timetracker agent",
		zap.String("env", cfg.Env),
		zap.String("config_path", *configPath),
	)

	// Initialize database (screenshot retry queue storage)
	db, err := database.New(cfg.StoragePath, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Initialize platform
	platformInstance, err := platform.NewPlatform()
	if err != nil {
		log.Fatal("Failed to initialize platform", zap.Error(err))
	}

	// Establish identity: user from config, fresh session per run
	identity := session.NewIdentity(cfg.User.ID)
	log.Info("Session established",
		zap.String("user_id", identity.UserID),
		zap.String("session_id", identity.SessionID),
		zap.String("device_id", identity.DeviceID),
	)

	// Initialize API client
	apiClient := client.NewAPIClient(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.Timeout)*time.Second,
		log.Logger,
	)

	// Local activity log
	store := logstore.New(cfg.ActivityLogPath, log.Logger)

	// Screenshot retry queue
	screenshotQueue := queue.NewScreenshotQueue(db.DB, log.Logger)

	// Upload coordinator
	coordinator := uploader.New(
		store,
		apiClient,
		screenshotQueue,
		identity.UserID,
		identity.SessionID,
		uploader.Options{
			Interval:             time.Duration(cfg.Upload.Interval) * time.Second,
			ScreenshotRetrySweep: time.Duration(cfg.Upload.ScreenshotRetrySweep) * time.Second,
			ScreenshotMaxRetries: cfg.Upload.ScreenshotMaxRetries,
		},
		log.Logger,
	)

	// Idle detector
	idleDetector := detector.New(
		time.Duration(cfg.Tracking.IdleThreshold)*time.Second,
		time.Duration(cfg.Tracking.IdleCheckInterval)*time.Second,
		log.Logger,
	)

	// Window tracker
	windowTracker := tracker.New(
		platformInstance,
		store,
		time.Duration(cfg.Tracking.WindowPollInterval)*time.Second,
		log.Logger,
	)

	// Annotation flow. Development runs get an interactive console prompt;
	// unattended runs have no prompter, so idle periods are logged but never
	// annotated.
	var prompter annotation.Prompter
	if cfg.Env == "development" && !cfg.Tray.Enabled {
		prompter = ui.NewConsolePrompter(os.Stdin, os.Stdout)
	}
	flow := annotation.NewFlow(
		time.Duration(cfg.Tracking.AnnotationMinIdle)*time.Second,
		prompter,
		coordinator,
		store,
		log.Logger,
	)

	// Screenshot service (optional)
	var screenshotService *screenshot.Service
	if cfg.Screenshot.Enabled {
		dir := cfg.Screenshot.Directory
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "timetracker_screenshots")
		}
		screenshotService = screenshot.NewService(
			screenshot.NewCapturer(),
			coordinator.UploadScreenshot,
			dir,
			time.Duration(cfg.Screenshot.Interval)*time.Second,
			cfg.Screenshot.JPEGQuality,
			log.Logger,
		)
	} else {
		log.Info("Screenshot capture disabled in configuration")
	}

	// Assemble the agent
	trackingAgent := agent.New(
		platformInstance,
		store,
		idleDetector,
		windowTracker,
		coordinator,
		flow,
		screenshotService,
		log.Logger,
	)

	// Optional tray shell; wired before Start so state changes are seen
	var tray *ui.TrayApp
	if cfg.Tray.Enabled {
		tray = ui.New(
			func() { coordinator.UploadLogsNow() },
			nil,
		)
		trackingAgent.OnStateChange(tray.SetIdle)
	}

	if err := trackingAgent.Start(); err != nil {
		log.Fatal("Failed to start agent", zap.Error(err))
	}

	log.Info("Timetracker agent started successfully",
		zap.String("backend_url", cfg.Backend.BaseURL),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if tray != nil {
		// The tray loop owns the main goroutine; a signal or the Quit menu
		// item ends it.
		go func() {
			sig := <-quit
			log.Info("Received shutdown signal", zap.String("signal", sig.String()))
			tray.Quit()
		}()

		tray.Run()
	} else {
		sig := <-quit
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	log.Info("Shutting down timetracker agent...")

	// Stop the agent synchronously, with a timeout guard
	done := make(chan struct{})
	go func() {
		trackingAgent.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Agent stopped successfully")
	case <-time.After(10 * time.Second):
		log.Warn("Shutdown timeout reached, forcing immediate exit")
		os.Exit(1)
	}

	// Drop screenshots that exhausted their retries or lost their files
	if err := screenshotQueue.Cleanup(cfg.Upload.ScreenshotMaxRetries); err != nil {
		log.Error("Failed to clean up screenshot queue", zap.Error(err))
	}

	log.Info("Timetracker agent stopped")

	// Windows hooks can prevent normal exit, so force it
	os.Exit(0)
}
