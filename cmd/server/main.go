package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liamcoop/scoreform/internal/logger"
	"github.com/liamcoop/scoreform/rules"
	"github.com/liamcoop/scoreform/session"
)

// Config holds the server settings; environment variables provide the flag defaults
type Config struct {
	Port           string
	NotifyTTL      time.Duration
	SessionIdleTTL time.Duration
	MaxSessions    int
}

func configFromEnv() Config {
	cfg := Config{
		Port:           os.Getenv("PORT"),
		NotifyTTL:      session.DefaultFeedConfig().TTL,
		SessionIdleTTL: 30 * time.Minute,
		MaxSessions:    1000,
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if ttl, err := time.ParseDuration(os.Getenv("NOTIFY_TTL")); err == nil && ttl > 0 {
		cfg.NotifyTTL = ttl
	}
	if ttl, err := time.ParseDuration(os.Getenv("SESSION_IDLE_TTL")); err == nil && ttl >= 0 {
		cfg.SessionIdleTTL = ttl
	}
	if n, err := strconv.Atoi(os.Getenv("MAX_SESSIONS")); err == nil && n >= 0 {
		cfg.MaxSessions = n
	}
	return cfg
}

func newRootCmd() *cobra.Command {
	cfg := configFromEnv()

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the scoring rule-set editor over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port (env PORT)")
	cmd.Flags().DurationVar(&cfg.NotifyTTL, "notify-ttl", cfg.NotifyTTL, "how long notifications stay visible (env NOTIFY_TTL)")
	cmd.Flags().DurationVar(&cfg.SessionIdleTTL, "session-idle-ttl", cfg.SessionIdleTTL, "close sessions idle this long, 0 disables (env SESSION_IDLE_TTL)")
	cmd.Flags().IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "live session cap, 0 is unbounded (env MAX_SESSIONS)")

	return cmd
}

func run(ctx context.Context, cfg Config) error {
	compiler, err := rules.NewCompiler()
	if err != nil {
		return fmt.Errorf("failed to create compiler: %w", err)
	}

	feedConfig := session.DefaultFeedConfig()
	feedConfig.TTL = cfg.NotifyTTL
	manager := session.NewManager(session.NewInMemoryStore(), feedConfig,
		session.WithIdleTTL(cfg.SessionIdleTTL),
		session.WithMaxSessions(cfg.MaxSessions),
	)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewServer(manager, compiler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.RunJanitor(ctx, janitorInterval(cfg.SessionIdleTTL))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// janitorInterval sweeps a few times per idle period, at most once a second
func janitorInterval(idleTTL time.Duration) time.Duration {
	interval := idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.Fatal("server exited", "error", err)
	}
}
