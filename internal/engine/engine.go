// Package engine orchestrates the trading cycle: position sync, exit
// evaluation, entry evaluation, and cooldown maintenance, in that order.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"swingbot/internal/broker"
	"swingbot/internal/cooldown"
	"swingbot/internal/domain"
	"swingbot/internal/events"
	"swingbot/internal/order"
	"swingbot/internal/position"
	"swingbot/internal/signal"
	"swingbot/internal/store"
	"swingbot/internal/strategy"
	"swingbot/internal/ta"
	"swingbot/internal/util"
)

// Entry-pass policies. Strict preserves the historical behavior: the first
// blocked signal halts the pass so queue order is never violated. Skip
// admits lower-priority signals behind a blocked one.
const (
	PolicyStrictPriorityHalt = "strict-priority-halt"
	PolicySkipAndContinue    = "skip-and-continue"
)

// ErrNotRunning is returned by RunCycle before Start or after Stop.
var ErrNotRunning = errors.New("engine is not running")

// Config holds the engine's trading limits and timeouts.
type Config struct {
	MaxPositions     int
	MaxPositionValue float64
	CooldownOnExit   time.Duration
	CancelTimeout    time.Duration // order-cancellation confirmation window
	CallTimeout      time.Duration // deadline applied to each external call
	EntryPolicy      string
}

// Deps are the collaborators the engine drives. Broker, Orders, and Strategy
// are required; Trades and Journal are optional sinks.
type Deps struct {
	Broker    broker.Broker
	Orders    *order.Manager
	Queue     *signal.Queue
	Cooldowns *cooldown.Manager
	Positions *position.Tracker
	Analyzer  ta.Analyzer
	Strategy  strategy.Strategy
	Trades    store.TradeStore
	Journal   *store.Journal
	Bus       *events.Bus
}

// CycleStats summarizes one completed cycle.
type CycleStats struct {
	Positions        int
	ExitsEvaluated   int
	Exits            int
	EntriesEvaluated int
	Entries          int
	EntriesBlocked   int
	CooldownsExpired int
	Errors           int
}

// Engine runs trading cycles. A single caller must drive RunCycle to
// completion before starting the next; the queue, cooldowns, and tracker are
// owned by the cycle and are not otherwise synchronized.
type Engine struct {
	cfg           Config
	broker        broker.Broker
	orders        *order.Manager
	queue         *signal.Queue
	cooldowns     *cooldown.Manager
	positions     *position.Tracker
	analyzer      ta.Analyzer
	strat         strategy.Strategy
	trades        store.TradeStore
	journal       *store.Journal
	bus           *events.Bus
	strategyState json.RawMessage
	running       atomic.Bool
	now           func() time.Time
	log           *slog.Logger
}

// New creates an Engine. Configuration errors fail loudly here, in contrast
// to the soft-failure posture of the running cycle.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Broker == nil {
		return nil, errors.New("engine: broker is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("engine: order manager is required")
	}
	if deps.Queue == nil || deps.Cooldowns == nil || deps.Positions == nil {
		return nil, errors.New("engine: queue, cooldowns, and positions are required")
	}
	if deps.Strategy == nil {
		return nil, errors.New("engine: strategy is required")
	}
	switch cfg.EntryPolicy {
	case "":
		cfg.EntryPolicy = PolicyStrictPriorityHalt
	case PolicyStrictPriorityHalt, PolicySkipAndContinue:
	default:
		return nil, fmt.Errorf("engine: unknown entry policy %q", cfg.EntryPolicy)
	}
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 5
	}
	if cfg.CancelTimeout <= 0 {
		cfg.CancelTimeout = 30 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	return &Engine{
		cfg:       cfg,
		broker:    deps.Broker,
		orders:    deps.Orders,
		queue:     deps.Queue,
		cooldowns: deps.Cooldowns,
		positions: deps.Positions,
		analyzer:  deps.Analyzer,
		strat:     deps.Strategy,
		trades:    deps.Trades,
		journal:   deps.Journal,
		bus:       deps.Bus,
		now:       time.Now,
		log:       slog.Default().With("component", "engine"),
	}, nil
}

// Start allows cycles to execute.
func (e *Engine) Start() { e.running.Store(true) }

// Stop prevents further cycles from executing. A cycle in flight completes.
func (e *Engine) Stop() { e.running.Store(false) }

// Running reports whether cycles are allowed to execute.
func (e *Engine) Running() bool { return e.running.Load() }

// AddSignal admits a candidate trade into the queue.
func (e *Engine) AddSignal(sig signal.Pending) bool {
	return e.queue.Add(sig)
}

// Queue exposes the signal queue for snapshotting.
func (e *Engine) Queue() *signal.Queue { return e.queue }

// Positions exposes the position tracker for snapshotting.
func (e *Engine) Positions() *position.Tracker { return e.positions }

// RunCycle executes one full pass: sync positions, evaluate exits, evaluate
// entries, sweep cooldowns, and emit a cycle-complete event. Per-ticker
// failures degrade that ticker only and never abort the cycle.
func (e *Engine) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	if !e.running.Load() {
		return stats, ErrNotRunning
	}

	start := e.now()

	// 1. Sync: the broker's position list is the baseline for this cycle.
	if err := e.syncPositions(ctx); err != nil {
		// Without an authoritative baseline, exits could target phantom
		// positions; skip the whole cycle instead.
		return stats, fmt.Errorf("position sync failed: %w", err)
	}
	stats.Positions = e.positions.Count()

	mc := e.buildMarketContext(ctx)

	// 2. Exits before entries: freed capital is never re-spent in the same
	// pass, and losing positions are dealt with before new risk is added.
	e.exitPass(ctx, &mc, &stats)

	// 3. Entries.
	e.entryPass(ctx, &mc, &stats)

	// 4. Cooldown sweep.
	stats.CooldownsExpired = e.cooldowns.CleanupExpired()

	elapsed := e.now().Sub(start)
	e.log.Info("cycle complete",
		"positions", stats.Positions,
		"exits", stats.Exits,
		"entries", stats.Entries,
		"blocked", stats.EntriesBlocked,
		"errors", stats.Errors,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	if e.bus != nil {
		e.bus.Publish(events.New(events.CycleComplete, "", map[string]any{
			"positions": stats.Positions,
			"exits":     stats.Exits,
			"entries":   stats.Entries,
			"elapsed":   elapsed.String(),
		}))
	}
	return stats, nil
}

// syncPositions refreshes the tracker from the broker, retrying transient
// failures.
func (e *Engine) syncPositions(ctx context.Context) error {
	return util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		callCtx, cancel := e.callCtx(ctx)
		defer cancel()
		return e.positions.SyncFromBroker(callCtx, e.broker)
	})
}

// buildMarketContext assembles the market-wide snapshot for this cycle.
// Failures degrade individual fields rather than aborting: a missing account
// reading leaves zero buying power, and an unknown session reads as closed,
// both of which fail entries safe.
func (e *Engine) buildMarketContext(ctx context.Context) strategy.MarketContext {
	mc := strategy.MarketContext{
		MarketStatus:    domain.MarketClosed,
		Positions:       e.positions.All(),
		CooldownTickers: e.cooldowns.Tickers(),
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()

	if acct, err := e.broker.GetAccount(callCtx); err != nil {
		e.log.Warn("account fetch failed, continuing degraded", "err", err)
	} else {
		mc.Equity = acct.Equity
		mc.BuyingPower = acct.BuyingPower
	}

	if status, err := e.broker.MarketStatus(callCtx); err != nil {
		e.log.Warn("market status fetch failed, treating as closed", "err", err)
	} else {
		mc.MarketStatus = status
	}

	if e.analyzer != nil {
		mc.VIX = e.analyzer.MarketVolatility(callCtx)
	}

	return mc
}

// exitPass asks the strategy about every tracked position and closes the
// ones it wants out of.
func (e *Engine) exitPass(ctx context.Context, mc *strategy.MarketContext, stats *CycleStats) {
	for _, pos := range e.positions.All() {
		stats.ExitsEvaluated++

		sig := e.analyze(ctx, pos.Ticker)
		if sig == nil {
			continue
		}

		// The analyzer's price is fresher than the last broker sync.
		if sig.Price > 0 && pos.EntryPrice > 0 {
			pl := (sig.Price - pos.EntryPrice) * pos.Qty
			plPct := pl / math.Abs(pos.EntryPrice*pos.Qty) * 100
			e.positions.UpdatePnL(pos.Ticker, pl, plPct)
			pos, _ = e.positions.Get(pos.Ticker)
		}

		decision := e.strat.EvaluateExit(pos, *sig, *mc)
		if !decision.ShouldExit {
			continue
		}

		e.log.Info("exit signaled", "ticker", pos.Ticker, "reason", decision.Reason, "urgency", decision.Urgency)
		closed := e.orders.ClosePosition(ctx, pos.Ticker, true, e.cfg.CancelTimeout)
		if closed == nil && !e.orders.AnalyzeMode() {
			stats.Errors++
			continue
		}

		e.positions.Remove(pos.Ticker)
		e.cooldowns.Add(pos.Ticker, decision.Reason, e.strat.Name(), e.cfg.CooldownOnExit)
		e.recordTrade(ctx, "exit", pos.Ticker, string(pos.Side), math.Abs(pos.Qty), sig.Price, decision.Reason, closed)
		stats.Exits++
	}
}

// entryPass drains admissible signals from the queue in priority order.
func (e *Engine) entryPass(ctx context.Context, mc *strategy.MarketContext, stats *CycleStats) {
	strict := e.cfg.EntryPolicy == PolicyStrictPriorityHalt

	for _, pending := range e.queue.Snapshot() {
		if ok, reason := e.canTakePosition(pending.Ticker); !ok {
			stats.EntriesBlocked++
			e.log.Debug("entry blocked", "ticker", pending.Ticker, "reason", reason)
			if strict {
				// Queue order doubles as the admission gate: nothing behind a
				// blocked signal runs this cycle.
				return
			}
			continue
		}

		stats.EntriesEvaluated++

		sig := e.analyze(ctx, pending.Ticker)
		if sig == nil {
			// No data this cycle; leave the signal for the next one.
			if strict {
				return
			}
			continue
		}

		decision := e.strat.EvaluateEntry(*sig, *mc, pending.Recommendation)
		if !decision.ShouldEnter {
			e.log.Debug("entry declined", "ticker", pending.Ticker, "reason", decision.Reason)
			if strict {
				return
			}
			continue
		}

		params := e.buildOrderParams(pending, decision, sig)
		if params.Qty <= 0 {
			e.log.Warn("entry sized to zero, dropping signal", "ticker", pending.Ticker)
			e.queue.Remove(pending.Ticker)
			continue
		}

		submitted := e.orders.SubmitBracket(ctx, params)
		// Consumed either way: a failed submission is discarded so it cannot
		// stall the queue, and upstream scanners will re-issue if the setup
		// is still live.
		e.queue.Remove(pending.Ticker)

		if submitted == nil && !e.orders.AnalyzeMode() {
			stats.Errors++
			continue
		}

		// The position itself appears in the tracker on the next broker sync,
		// once the entry leg fills.
		e.recordTrade(ctx, "entry", pending.Ticker, string(entrySide(params.Action)),
			float64(params.Qty), params.EntryPrice, decision.Reason, submitted)
		stats.Entries++
	}
}

// canTakePosition applies the admission gates: position-count limit, ticker
// already held, and cooldown.
func (e *Engine) canTakePosition(ticker string) (bool, string) {
	if e.positions.Count() >= e.cfg.MaxPositions {
		return false, "position limit reached"
	}
	if e.positions.Has(ticker) {
		return false, "position already held"
	}
	if e.cooldowns.InCooldown(ticker) {
		return false, "ticker in cooldown"
	}
	return true, ""
}

// analyze fetches technical signals for one ticker, treating both errors and
// missing data as a soft skip.
func (e *Engine) analyze(ctx context.Context, ticker string) *domain.TechnicalSignals {
	if e.analyzer == nil {
		return nil
	}
	callCtx, cancel := e.callCtx(ctx)
	defer cancel()

	sig, err := e.analyzer.AnalyzeStock(callCtx, ticker)
	if err != nil {
		e.log.Warn("technical analysis failed, skipping ticker", "ticker", ticker, "err", err)
		return nil
	}
	return sig
}

func (e *Engine) buildOrderParams(pending signal.Pending, decision strategy.EntryDecision, sig *domain.TechnicalSignals) domain.OrderParams {
	action := pending.Action
	if pending.Recommendation != nil && pending.Recommendation.Action != "" {
		action = pending.Recommendation.Action
	}

	qty := decision.Size
	if qty <= 0 {
		qty = e.strat.PositionSize(*sig, strategy.MarketContext{}, e.cfg.MaxPositionValue)
	}

	entry := decision.EntryPrice
	if entry <= 0 {
		entry = sig.Price
	}

	return domain.OrderParams{
		Ticker:      pending.Ticker,
		Action:      action,
		Qty:         qty,
		EntryPrice:  entry,
		StopLoss:    decision.StopLoss,
		Target:      decision.Target,
		Strategy:    e.strat.Name(),
		TimeInForce: "gtc",
	}
}

// recordTrade persists an executed trade to the history store and journal.
// Sink failures are logged only.
func (e *Engine) recordTrade(ctx context.Context, kind, ticker, side string, qty, price float64, reason string, o *domain.Order) {
	rec := store.TradeRecord{
		Ticker:     ticker,
		Kind:       kind,
		Side:       side,
		Qty:        qty,
		Price:      price,
		Strategy:   e.strat.Name(),
		Reason:     reason,
		ExecutedAt: e.now().UTC(),
	}
	if o != nil {
		rec.ClientOrderID = o.ClientOrderID
	}

	if e.trades != nil {
		if err := e.trades.SaveTrade(ctx, rec); err != nil {
			e.log.Warn("trade history write failed", "ticker", ticker, "err", err)
		}
	}
	if e.journal != nil {
		if err := e.journal.Append([]store.TradeRecord{rec}); err != nil {
			e.log.Warn("journal write failed", "ticker", ticker, "err", err)
		}
	}
}

// callCtx bounds one external call so a hung broker or data request cannot
// stall the scheduler indefinitely.
func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.CallTimeout)
}

func entrySide(action domain.Action) domain.Side {
	if action.IsShortSide() {
		return domain.SideShort
	}
	return domain.SideLong
}
