package main

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/camuig/autotrader/internal/ai"
	"github.com/camuig/autotrader/internal/broker"
	"github.com/camuig/autotrader/internal/broker/factory"
	"github.com/camuig/autotrader/internal/config"
	"github.com/camuig/autotrader/internal/coordinator"
	"github.com/camuig/autotrader/internal/executor"
	"github.com/camuig/autotrader/internal/logger"
	"github.com/camuig/autotrader/internal/storage"
	"github.com/camuig/autotrader/internal/telegram"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *gorm.DB
	repo     *storage.Repository
	session  *broker.Session
	notifier *telegram.Notifier
	exec     *executor.Executor
	coord    *coordinator.Coordinator
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	return cfg, log, nil
}

// newApp builds the full service graph. The broker is connected lazily by
// the first call that needs it.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	repo := storage.NewRepository(db)

	stack, err := factory.New(ctx, cfg, log)
	if err != nil {
		_ = storage.Close(db)
		return nil, fmt.Errorf("broker: %w", err)
	}

	session := broker.NewSession(stack.Connector, cfg.Timeouts.Broker(), log)
	notifier := telegram.NewNotifier(cfg, log)
	exec := executor.NewExecutor(session, repo, notifier, cfg.Trading.OrderConcurrency, cfg.Timeouts.Order(), log)
	llm := ai.NewClient(cfg.LLM, log)
	coord := coordinator.New(cfg, session, stack.Data, llm, exec, repo, notifier, log)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		repo:     repo,
		session:  session,
		notifier: notifier,
		exec:     exec,
		coord:    coord,
	}, nil
}

func (a *app) Close() {
	a.session.Disconnect()
	if err := storage.Close(a.db); err != nil {
		a.log.Error("close database", "error", err)
	}
}
