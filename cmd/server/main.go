package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/auth"
	"chat-relay/dispatch"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/server"
	"chat-relay/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Keeping the logic out of main ensures every defer (database close, report
// flush) runs before the process exits, and makes the bootstrap testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := config.Logger()
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Storage & in-memory state
	userRepository := repositories.NewUserRepository(db)
	roomRepository := repositories.NewRoomRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	timesheetRepository := repositories.NewTimesheetRepository(db)

	registry := runtime.NewRegistry(logger, config.DeliveryBufferSize)
	knownUsers, err := userRepository.ListUsers()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading registered users failed: %w", err)
	}
	for _, id := range knownUsers {
		registry.AddUser(id)
	}

	directory := runtime.NewDirectory(logger, roomRepository)
	if err := directory.Load(); err != nil {
		return exitRuntime, fmt.Errorf("loading room memberships failed: %w", err)
	}

	broadcaster := runtime.NewBroadcaster(logger, directory, registry, messageRepository)

	// 4. Moderation & side services
	words, err := moderation.LoadCensoredWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading censored words failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("building moderator failed: %w", err)
	}

	reportLog, err := services.NewReportLog(config.ReportFilepath)
	if err != nil {
		return exitRuntime, fmt.Errorf("opening report log failed: %w", err)
	}
	defer func() {
		logger.Info("Closing report log...")
		_ = reportLog.Close()
	}()

	tokens := auth.NewTokenService(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, registry, tokens)
	timeClock := services.NewTimeClockService(timesheetRepository)

	dispatcher := dispatch.NewDispatcher(dispatch.Deps{
		Log:         logger,
		Users:       userRepository,
		Registry:    registry,
		Directory:   directory,
		Broadcaster: broadcaster,
		Moderator:   &moderator,
		TimeClock:   timeClock,
		Reports:     reportLog,
	})

	// 5. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Closed once on shutdown; every live session selects on it.
	shutdown := make(chan struct{})

	// Periodic report flush so a crash loses at most one interval.
	go func() {
		ticker := time.NewTicker(config.ReportFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reportLog.Flush(); err != nil {
					logger.Error("Report flush failed", "error", err)
				}
			}
		}
	}()

	// 6. HTTP Server Setup
	srv := server.NewServer(logger, authService, tokens, registry, directory,
		broadcaster, dispatcher, &moderator, messageRepository,
		config.AuthHandshakeWindow, shutdown)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:    address,
		Handler: srv.Routes(),
	}

	// Use an error channel to capture ListenAndServe issues asynchronously.
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// Closing the shutdown channel lets every session send its close frame
	// and unwind before the listener is torn down.
	logger.Info("Shutting down gracefully...")
	close(shutdown)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown incomplete", "error", err)
	}
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
