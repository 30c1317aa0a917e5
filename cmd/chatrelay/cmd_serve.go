package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/chatrelay/internal/backend"
	"github.com/user/chatrelay/internal/config"
	"github.com/user/chatrelay/internal/exchange"
	"github.com/user/chatrelay/internal/history"
	"github.com/user/chatrelay/internal/httpapi"
	"github.com/user/chatrelay/internal/state"
	"github.com/user/chatrelay/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatrelay daemon",
	RunE:  runServe,
}

// serveSignals are the signals the daemon reacts to: SIGINT/SIGTERM for a
// graceful stop, SIGHUP (sent by the restart command) for a re-exec.
var serveSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "chatrelay.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// buildHub wires the stores, the webhook client, and the history window into
// a coordinator hub. Shared by serve and the one-shot CLI commands.
func buildHub(cfg *config.Config) (*exchange.Hub, error) {
	kv := state.NewKV(cfg.DataDir)
	sessions := state.NewSessionStore(kv)
	messages := state.NewMessageStore(kv)

	client := backend.New(backend.Config{
		URL:            cfg.Webhook.URL,
		APIKey:         cfg.Webhook.APIKey,
		Timeout:        time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second,
		IncludeHistory: cfg.Webhook.IncludeHistory,
	})

	window, err := history.New(cfg.History.Model, cfg.History.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("create history window: %w", err)
	}

	return exchange.NewHub(client, sessions, messages, window), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	hub, err := buildHub(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.HTTP.Enabled {
		srv := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: httpapi.NewServer(hub),
		}
		g.Go(func() error {
			slog.Info("http api started", "listen", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, hub)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		g.Go(func() error {
			slog.Info("telegram adapter started")
			adapter.Start(ctx)
			return nil
		})
	} else {
		slog.Info("telegram adapter disabled (no token)")
	}

	slog.Info("chatrelay started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"webhook_url", cfg.Webhook.URL,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, serveSignals...)

wait:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received SIGHUP, restarting")
				execPath, err := os.Executable()
				if err != nil {
					slog.Error("failed to get executable path", "error", err)
					continue
				}
				// Clean up PID file before re-exec
				os.Remove(pidPath)
				if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
					slog.Error("failed to re-exec", "error", err)
					// Re-write PID file since we failed to re-exec
					if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
						slog.Error("failed to re-write PID file", "error", writeErr)
					}
					continue
				}
			}
			// SIGINT or SIGTERM
			slog.Info("shutting down", "signal", sig)
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("chatrelay stopped")
	return nil
}
