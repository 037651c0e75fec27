// Package engine runs the decision loop: it reads the reference price feed,
// scores the selected market against the probability model, exits positions
// that hit take-profit, and enters positions when the model sees edge.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/edgebot/internal/books"
	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/events"
	"github.com/alanyoungcy/edgebot/internal/ledger"
	"github.com/alanyoungcy/edgebot/internal/model"
	"github.com/alanyoungcy/edgebot/internal/pricefeed"
)

// tickSlippage is added to the ask on entries and subtracted from the bid on
// exits so limit orders cross the spread.
const tickSlippage = 0.01

// Trader places orders on the exchange.
type Trader interface {
	Ready() bool
	PostOrder(ctx context.Context, order domain.OrderRequest) (domain.OrderResult, error)
}

// Notifier pushes trade events to external channels. Implementations must
// not block the tick; failures are absorbed.
type Notifier interface {
	Notify(ctx context.Context, event, message string) error
}

// Options configures engine timing.
type Options struct {
	TickInterval time.Duration // decision cadence
	Cooldown     time.Duration // minimum gap between entries
	PriceLag     time.Duration // lookback for the momentum term
}

// Status is a point-in-time snapshot for the operator API. MarketProbability
// is the market's own implied YES probability, read off the best YES bid; it
// reads 50 while the book is empty.
type Status struct {
	Active            bool              `json:"active"`
	Processing        bool              `json:"processing"`
	Market            *domain.Market    `json:"market,omitempty"`
	Policy            domain.RiskPolicy `json:"policy"`
	RefPrice          float64           `json:"ref_price"`
	Volatility        float64           `json:"volatility"`
	Probability       int               `json:"probability"`
	MarketProbability float64           `json:"market_probability"`
}

// Engine owns the decision loop state. All mutable state is guarded by mu;
// a tick holds the processing flag so overlapping ticks skip instead of
// queueing.
type Engine struct {
	feed     *pricefeed.Feed
	books    *books.Cache
	ledger   *ledger.Ledger
	trader   Trader
	events   *events.Log
	notifier Notifier
	logger   *slog.Logger
	opts     Options

	mu          sync.Mutex
	active      bool
	processing  bool
	market      *domain.Market
	policy      domain.RiskPolicy
	lastEntryAt time.Time

	now func() time.Time
}

// New wires an Engine. notifier may be nil.
func New(
	feed *pricefeed.Feed,
	bookCache *books.Cache,
	led *ledger.Ledger,
	trader Trader,
	eventLog *events.Log,
	notifier Notifier,
	policy domain.RiskPolicy,
	opts Options,
	logger *slog.Logger,
) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 5 * time.Second
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 15 * time.Second
	}
	if opts.PriceLag <= 0 {
		opts.PriceLag = 15 * time.Minute
	}
	return &Engine{
		feed:     feed,
		books:    bookCache,
		ledger:   led,
		trader:   trader,
		events:   eventLog,
		notifier: notifier,
		policy:   policy,
		opts:     opts,
		logger:   logger.With(slog.String("component", "engine")),
		now:      time.Now,
	}
}

// Run drives the decision loop until ctx is cancelled. A panicking tick is
// recovered and logged; the engine stays active.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	e.logger.Info("engine loop started", slog.Duration("tick_interval", e.opts.TickInterval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.safeTick(ctx)
		}
	}
}

func (e *Engine) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tick panicked", slog.Any("panic", r))
			e.events.Append(domain.EventError, fmt.Sprintf("tick panicked: %v", r))
		}
	}()

	if err := e.tick(ctx); err != nil {
		e.logger.Error("tick failed", slog.String("error", err.Error()))
		e.events.Append(domain.EventError, err.Error())
	}
}

// tick runs one decision pass: preconditions, take-profit exits, then entry
// evaluation.
func (e *Engine) tick(ctx context.Context) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return nil
	}
	if e.market == nil {
		// Nothing to trade yet; credentials are not even needed.
		e.mu.Unlock()
		return nil
	}
	if !e.trader.Ready() {
		// Hard halt: trading without credentials can only fail, so the
		// engine deactivates itself rather than retrying every tick.
		e.active = false
		e.mu.Unlock()
		msg := "trading credentials unavailable: engine halted; derive API credentials and restart"
		e.events.Append(domain.EventFatal, msg)
		e.notify(ctx, "error", msg)
		return domain.ErrMissingCredentials
	}
	if e.processing {
		e.mu.Unlock()
		e.logger.Debug("previous tick still processing, skipping")
		return nil
	}
	e.processing = true
	market := e.market
	policy := e.policy
	lastEntryAt := e.lastEntryAt
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.processing = false
		e.mu.Unlock()
	}()

	current, _, ok := e.feed.Current()
	if !ok {
		current = 0
	}
	lagged := e.feed.LaggedPrice(e.opts.PriceLag)
	volatility := e.feed.Volatility()
	strike := model.ParseStrike(market.Question, current)
	prob := model.Probability(current, strike, market.MinutesToExpiry(e.now()), volatility, lagged)

	e.logger.Debug("tick",
		slog.Float64("ref_price", current),
		slog.Float64("lagged", lagged),
		slog.Float64("volatility", volatility),
		slog.Int("probability", prob))

	e.runExits(ctx, *market, policy)

	if cd := e.opts.Cooldown; e.now().Sub(lastEntryAt) < cd {
		e.logger.Debug("entry cooldown in effect")
		return nil
	}

	return e.evaluateEntry(ctx, *market, policy, current, volatility, prob)
}

// runExits walks the selected market's open positions sequentially and sells
// any whose best bid clears the take-profit threshold. Positions held in
// other markets are left alone; their tokens are not in this market's books.
// Order failures are classified and absorbed so the remaining positions
// still get evaluated.
func (e *Engine) runExits(ctx context.Context, market domain.Market, policy domain.RiskPolicy) {
	for _, pos := range e.ledger.OpenPositions(market.ID) {
		bid := e.books.Get(market.Token(pos.Outcome)).BestBid()
		if bid <= 0 || pos.EntryPrice <= 0 {
			continue
		}

		gainPct := (bid - pos.EntryPrice) / pos.EntryPrice * 100
		if gainPct < policy.TakeProfitPct {
			continue
		}

		sellSize := pos.Size * policy.SellAmountPct / 100
		order := domain.OrderRequest{
			TokenID: market.Token(pos.Outcome),
			Side:    domain.OrderSideSell,
			Price:   bid - tickSlippage,
			Size:    sellSize,
		}

		result, err := e.trader.PostOrder(ctx, order)
		if err != nil {
			e.handleOrderError(ctx, "take-profit sell", err)
			continue
		}

		status := domain.TradeStatusPartial
		if policy.SellAmountPct >= 100 {
			status = domain.TradeStatusClosed
		}
		e.ledger.SetStatus(ctx, pos.ID, status)
		e.ledger.Append(ctx, domain.TradeLog{
			CreatedAt:  e.now(),
			MarketID:   market.ID,
			Question:   market.Question,
			Outcome:    pos.Outcome,
			Side:       domain.OrderSideSell,
			EntryPrice: order.Price,
			Size:       sellSize,
			Status:     domain.TradeStatusClosed,
		})

		msg := fmt.Sprintf("take-profit: sold %.2f %s @ %.3f (gain %.1f%%)",
			sellSize, pos.Outcome, order.Price, gainPct)
		e.logger.Info("take-profit exit",
			slog.String("trade_id", pos.ID),
			slog.String("order_id", result.OrderID),
			slog.Float64("gain_pct", gainPct))
		e.events.Append(domain.EventInfo, msg)
		e.notify(ctx, "position_closed", msg)
	}
}

// evaluateEntry scores both sides and enters at most one of them. YES takes
// priority when both clear the bar.
func (e *Engine) evaluateEntry(ctx context.Context, market domain.Market, policy domain.RiskPolicy, refPrice, volatility float64, prob int) error {
	yesAsk := e.books.Get(market.YesToken()).BestAsk()
	noAsk := e.books.Get(market.NoToken()).BestAsk()

	yesEdge := (float64(prob)/100 - yesAsk) * 100
	noEdge := ((100-float64(prob))/100 - noAsk) * 100

	var outcome domain.Outcome
	var ask, edge float64
	switch {
	case policy.Bias.AllowsYes() && float64(prob) >= policy.MinProbability && yesEdge >= policy.MinEdgePct:
		outcome, ask, edge = domain.OutcomeYes, yesAsk, yesEdge
	case policy.Bias.AllowsNo() && 100-float64(prob) >= policy.MinProbability && noEdge >= policy.MinEdgePct:
		outcome, ask, edge = domain.OutcomeNo, noAsk, noEdge
	default:
		return nil
	}

	if e.ledger.BuyCount(market.ID) >= policy.MaxBuysPerMarket {
		e.logger.Warn("buy cap reached, skipping entry",
			slog.String("market_id", market.ID),
			slog.Int("max_buys", policy.MaxBuysPerMarket))
		e.events.Append(domain.EventWarn, fmt.Sprintf("buy cap reached for market %s", market.ID))
		return nil
	}

	order := domain.OrderRequest{
		TokenID: market.Token(outcome),
		Side:    domain.OrderSideBuy,
		Price:   ask + tickSlippage,
		Size:    policy.MaxPositionUSD / ask,
	}

	result, err := e.trader.PostOrder(ctx, order)
	if err != nil {
		e.handleOrderError(ctx, "entry buy", err)
		return nil
	}

	marketProb := yesAsk
	if outcome == domain.OutcomeNo {
		marketProb = noAsk
	}
	entry := e.ledger.Append(ctx, domain.TradeLog{
		CreatedAt:  e.now(),
		MarketID:   market.ID,
		Question:   market.Question,
		Outcome:    outcome,
		Side:       domain.OrderSideBuy,
		EntryPrice: order.Price,
		Size:       order.Size,
		RefPrice:   refPrice,
		ModelProb:  prob,
		MarketProb: marketProb * 100,
		Volatility: volatility,
		Status:     domain.TradeStatusOpen,
	})

	e.mu.Lock()
	e.lastEntryAt = e.now()
	e.mu.Unlock()

	msg := fmt.Sprintf("entered %s: %.2f units @ %.3f (model %d%%, edge %.1f%%)",
		outcome, order.Size, order.Price, prob, edge)
	e.logger.Info("entry placed",
		slog.String("trade_id", entry.ID),
		slog.String("order_id", result.OrderID),
		slog.String("outcome", string(outcome)),
		slog.Float64("edge_pct", edge),
		slog.Float64("notional_usd", entry.Notional()))
	e.events.Append(domain.EventInfo, msg)
	e.notify(ctx, "order_placed", msg)
	return nil
}

// handleOrderError classifies an order failure. Auth failures get
// remediation guidance, transport failures are absorbed as warnings, and
// everything else is surfaced to the event log as an error.
func (e *Engine) handleOrderError(ctx context.Context, op string, err error) {
	switch {
	case isAuthError(err):
		msg := fmt.Sprintf("%s rejected as unauthorized: re-derive API credentials and check the wallet key (%v)", op, err)
		e.logger.Warn("order auth failure", slog.String("op", op), slog.String("error", err.Error()))
		e.events.Append(domain.EventWarn, msg)
		e.notify(ctx, "error", msg)
	case errors.Is(err, domain.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded):
		e.logger.Warn("order transport failure", slog.String("op", op), slog.String("error", err.Error()))
		e.events.Append(domain.EventWarn, fmt.Sprintf("%s failed transiently: %v", op, err))
	default:
		e.logger.Error("order failed", slog.String("op", op), slog.String("error", err.Error()))
		e.events.Append(domain.EventError, fmt.Sprintf("%s failed: %v", op, err))
		e.notify(ctx, "error", fmt.Sprintf("%s failed: %v", op, err))
	}
}

// isAuthError matches the error shapes the exchange uses for credential
// problems.
func isAuthError(err error) bool {
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrMissingCredentials) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "401") ||
		strings.Contains(s, "unauthorized") ||
		strings.Contains(s, "invalid api key")
}

func (e *Engine) notify(ctx context.Context, event, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, message); err != nil {
		e.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

// --------------------------------------------------------------------------
// Operator controls
// --------------------------------------------------------------------------

// Start activates the decision loop.
func (e *Engine) Start() {
	e.mu.Lock()
	e.active = true
	e.mu.Unlock()
	e.events.Append(domain.EventInfo, "engine started")
	e.logger.Info("engine activated")
}

// Stop deactivates the decision loop. The Run goroutine keeps ticking but
// every tick returns immediately.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
	e.events.Append(domain.EventInfo, "engine stopped")
	e.logger.Info("engine deactivated")
}

// Active reports whether the engine is trading.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SelectMarket switches the engine to a new market.
func (e *Engine) SelectMarket(m domain.Market) {
	e.mu.Lock()
	e.market = &m
	e.mu.Unlock()
	e.events.Append(domain.EventInfo, fmt.Sprintf("market selected: %s", m.Question))
	e.logger.Info("market selected", slog.String("market_id", m.ID), slog.String("question", m.Question))
}

// Market returns the currently selected market, or nil.
func (e *Engine) Market() *domain.Market {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.market == nil {
		return nil
	}
	m := *e.market
	return &m
}

// SetPolicy swaps the risk policy. The new policy takes effect on the next
// tick; the tick in flight keeps the policy it started with.
func (e *Engine) SetPolicy(p domain.RiskPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()
	e.events.Append(domain.EventInfo, "risk policy updated")
	return nil
}

// Policy returns the current risk policy.
func (e *Engine) Policy() domain.RiskPolicy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy
}

// Snapshot returns the engine state for the operator API.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	st := Status{
		Active:     e.active,
		Processing: e.processing,
		Policy:     e.policy,
	}
	if e.market != nil {
		m := *e.market
		st.Market = &m
	}
	e.mu.Unlock()

	current, _, ok := e.feed.Current()
	if ok {
		st.RefPrice = current
	}
	st.Volatility = e.feed.Volatility()
	if st.Market != nil {
		strike := model.ParseStrike(st.Market.Question, current)
		st.Probability = model.Probability(current, strike,
			st.Market.MinutesToExpiry(e.now()), st.Volatility,
			e.feed.LaggedPrice(e.opts.PriceLag))
		st.MarketProbability = e.books.Get(st.Market.YesToken()).DisplayBid() * 100
	}
	return st
}
