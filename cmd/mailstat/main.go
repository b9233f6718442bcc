// Command mailstat checks a mailbox once for new messages from a sender
// and prints the statistic value carried in each message body.
//
// It takes no arguments. Configuration comes from an optional YAML file
// (MAILSTAT_CONFIG, default config.yaml) and the environment, including a
// .env file in the working directory. Schedule it externally and never run
// two instances against the same state file at once.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tracyhatemice/mailstat/internal/config"
	"github.com/tracyhatemice/mailstat/internal/idstore"
	"github.com/tracyhatemice/mailstat/internal/mailbox"
	"github.com/tracyhatemice/mailstat/internal/poller"
	"github.com/tracyhatemice/mailstat/internal/report"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Debug("mailstat starting",
		"protocol", cfg.GetProtocol(),
		"host", cfg.GetHost(),
		"state_file", cfg.GetStateFile(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p := poller.New(
		poller.Options{
			Sender:    cfg.Sender,
			Lookback:  cfg.Lookback(),
			StatField: cfg.GetStatField(),
		},
		newDialer(cfg, logger),
		idstore.New(cfg.GetStateFile()),
		report.New(os.Stdout),
		logger,
	)

	if err := p.Run(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func newDialer(cfg *config.Config, logger *slog.Logger) mailbox.Dialer {
	if cfg.GetProtocol() == "pop3" {
		return mailbox.NewPOP3(
			cfg.GetHost(), cfg.GetPort(),
			cfg.Username, cfg.Password,
			cfg.TLSEnabled(), logger,
		)
	}
	return mailbox.NewIMAP(
		cfg.GetHost(), cfg.GetPort(),
		cfg.Username, cfg.Password,
		cfg.TLSEnabled(), cfg.GetFolder(), logger,
	)
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
