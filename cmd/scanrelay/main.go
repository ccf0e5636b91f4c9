// Command scanrelay bridges Telegram chat commands to the symbol scorer.
//
// Usage:
//
//	scanrelay [-config scanrelay.yaml] [-addr :8080]
//	scanrelay set-token < token.txt
//	scanrelay clear-token
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"

	"github.com/jdelaire/scanrelay/adapters/httpapi"
	"github.com/jdelaire/scanrelay/adapters/telegram_notifier"
	"github.com/jdelaire/scanrelay/adapters/telegram_receiver"
	"github.com/jdelaire/scanrelay/core"
	"github.com/jdelaire/scanrelay/core/ops"
	"github.com/jdelaire/scanrelay/core/policy"
	"github.com/jdelaire/scanrelay/internal/config"
	"github.com/jdelaire/scanrelay/internal/logging"
	"github.com/jdelaire/scanrelay/internal/scoring"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if len(os.Args) > 1 {
		if cmd, ok := tokenCommands[os.Args[1]]; ok {
			msg, err := cmd(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
				os.Exit(1)
			}
			fmt.Fprintln(os.Stderr, msg)
			return
		}
	}

	configPath := flag.String("config", os.Getenv("SCANRELAY_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		slog.Error("scanrelay failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pol := policy.New(cfg.Admin())
	runner := scoring.NewRunner(scoring.Placeholder{}, cfg.Scan.MaxConcurrent, cfg.Scan.Timeout, logger)

	reg, err := ops.NewRelayRegistry(pol, runner)
	if err != nil {
		return err
	}

	notifier := telegram_notifier.New(cfg.Telegram.Token, logger)
	if cfg.Telegram.BaseURL != "" {
		notifier.WithBaseURL(cfg.Telegram.BaseURL)
	}
	dispatcher := core.NewDispatcher(reg, pol, runner, notifier, logger)

	_, hasAdmin := pol.Admin()
	logger.Info("scanrelay starting",
		"mode", cfg.Telegram.Mode,
		"addr", cfg.HTTP.Addr,
		"admin_configured", hasAdmin,
		"token_configured", cfg.Telegram.Token != "",
		"commands", lo.Map(reg.List(), func(op ops.Op, _ int) string { return "/" + op.Name() }),
	)

	handler := httpapi.NewHandler(dispatcher, httpapi.Options{
		Token:       cfg.Telegram.Token,
		RootWebhook: cfg.HTTP.RootWebhook,
	}, logger)
	srv := httpapi.NewServer(cfg.HTTP.Addr, handler, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if cfg.Telegram.Mode == config.ModePoll {
		recv := telegram_receiver.New(cfg.Telegram.Token, func(ctx context.Context, msg core.InboundMessage) {
			dispatcher.Handle(ctx, msg)
		}, logger)
		if cfg.Telegram.BaseURL != "" {
			recv.WithBaseURL(cfg.Telegram.BaseURL)
		}
		go recv.Start(ctx)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
