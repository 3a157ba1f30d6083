package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/broker/factory"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/executor"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/storage"
	"github.com/camuig/autotrader/internal/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "show positions without closing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		os.Exit(1)
	}
	defer storage.Close(db)

	stack, err := factory.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "broker init error: %v\n", err)
		os.Exit(1)
	}

	session := broker.NewSession(stack.Connector, cfg.Timeouts.Broker(), log)
	defer session.Disconnect()
	if !session.Connect(ctx) {
		fmt.Fprintf(os.Stderr, "cannot connect to %s\n", session.Name())
		os.Exit(1)
	}

	var notifier executor.Notifier = telegram.Disabled()
	if !*dryRun {
		notifier = telegram.NewNotifier(cfg, log)
	}
	exec := executor.NewExecutor(session, storage.NewRepository(db), notifier,
		cfg.Trading.OrderConcurrency, cfg.Timeouts.Order(), log)

	results, err := exec.CloseAll(ctx, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get positions error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No open positions.")
		return
	}

	fmt.Printf("Found %d position(s) on %s (%s):\n\n", len(results), session.Name(), cfg.Mode())
	for _, r := range results {
		p := r.Proposal
		fmt.Printf("  %s: %s %.0f @ ~%.2f\n", p.Symbol, p.Side, p.Quantity, p.Price)
	}
	fmt.Println()

	if *dryRun {
		fmt.Println("Dry run, no orders placed.")
		return
	}

	var closed, failed int
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "  [FAIL] %s: %v\n", r.Proposal.Symbol, r.Err)
			failed++
			continue
		}
		fmt.Printf("  [OK]   %s: order %s %s, filled %.0f @ %.2f\n",
			r.Proposal.Symbol, r.Trade.OrderID, r.Trade.Status, r.Trade.FilledQty, r.Trade.FilledPrice)
		closed++
	}

	fmt.Printf("\nDone: %d closed, %d failed.\n", closed, failed)
	if failed > 0 {
		stop()
		os.Exit(1)
	}
}
