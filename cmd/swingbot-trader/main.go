// Command swingbot-trader runs the trading engine: it drains the signal
// inbox, executes trading cycles on a fixed interval, and persists engine
// state across restarts.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"swingbot/internal/broker"
	"swingbot/internal/config"
	"swingbot/internal/cooldown"
	"swingbot/internal/engine"
	"swingbot/internal/events"
	"swingbot/internal/order"
	"swingbot/internal/position"
	"swingbot/internal/scanner"
	sig "swingbot/internal/signal"
	"swingbot/internal/store"
	"swingbot/internal/strategy"
	"swingbot/internal/strategy/builtins"
	"swingbot/internal/ta"
	"swingbot/internal/util"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	cfgPath := "config/swingbot.yaml"
	if p := os.Getenv("SWINGBOT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()

	var b broker.Broker
	if cfg.Trading.Broker == "simulator" {
		b = broker.NewSimulatorBroker()
	} else {
		b = broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	}

	analyzer := ta.NewAlpacaAnalyzer(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL, cfg.Alpaca.DataFeed,
		cfg.Trading.RateLimitPerMin,
	)

	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "swingbot.db")
	}
	db, err := store.NewSQLiteStore(sqlitePath)
	if err != nil {
		log.Fatalf("failed to open history store: %v", err)
	}
	defer db.Close()

	journal := store.NewJournal(cfg.Storage.DataDir)

	recorder := store.NewRecorder(db, bus)
	go recorder.Run(ctx)

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewLLMSwing(
		cfg.Trading.MaxPositionValue,
		cfg.Trading.MinConfidence,
		cfg.Trading.MaxVIX,
	))
	strat, err := registry.Get(cfg.Trading.Strategy)
	if err != nil {
		log.Fatalf("failed to select strategy: %v", err)
	}

	eng, err := engine.New(engine.Config{
		MaxPositions:     cfg.Trading.MaxPositions,
		MaxPositionValue: cfg.Trading.MaxPositionValue,
		CooldownOnExit:   cfg.Trading.CooldownDuration(),
		CancelTimeout:    time.Duration(cfg.Trading.CancelTimeoutSeconds) * time.Second,
		CallTimeout:      time.Duration(cfg.Trading.CallTimeoutSeconds) * time.Second,
		EntryPolicy:      cfg.Trading.EntryPolicy,
	}, engine.Deps{
		Broker:    b,
		Orders:    order.NewManager(b, cfg.Trading.AnalyzeMode, bus),
		Queue:     sig.NewQueue(cfg.Signals.MaxSignals, cfg.Signals.DefaultTTL(), bus),
		Cooldowns: cooldown.NewManager(cfg.Trading.CooldownDuration(), bus),
		Positions: position.NewTracker(),
		Analyzer:  analyzer,
		Strategy:  strat,
		Trades:    db,
		Journal:   journal,
		Bus:       bus,
	})
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	statePath := cfg.Storage.StatePath
	if statePath == "" {
		statePath = filepath.Join(cfg.Storage.DataDir, "state.json")
	}
	if err := eng.RestoreState(statePath); err != nil {
		logger.Warn("state restore failed, starting fresh", "err", err)
	}

	var inbox scanner.Scanner
	if cfg.Signals.InboxDir != "" {
		inbox = scanner.NewInboxScanner(cfg.Signals.InboxDir)
	}

	eng.Start()
	logger.Info("swingbot-trader started",
		"broker", b.Name(),
		"strategy", strat.Name(),
		"analyze_mode", cfg.Trading.AnalyzeMode,
		"cycle_seconds", cfg.Trading.CycleSeconds,
	)

	interval := time.Duration(cfg.Trading.CycleSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		if inbox != nil {
			signals, err := inbox.Scan(ctx)
			if err != nil {
				logger.Warn("inbox scan failed", "err", err)
			}
			added := 0
			for _, s := range signals {
				if eng.AddSignal(s) {
					added++
				}
			}
			if len(signals) > 0 {
				bus.Publish(events.New(events.ScanComplete, "", map[string]any{
					"found": len(signals),
					"added": added,
				}))
			}
		}

		if _, err := eng.RunCycle(ctx); err != nil {
			logger.Error("cycle failed", "err", err)
		}
		if err := eng.SaveState(statePath); err != nil {
			logger.Error("state save failed", "err", err)
		}
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			eng.Stop()
			if err := eng.SaveState(statePath); err != nil {
				logger.Error("final state save failed", "err", err)
			}
			logger.Info("swingbot-trader stopped")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
