package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	s3blob "github.com/alanyoungcy/edgebot/internal/blob/s3"
	"github.com/alanyoungcy/edgebot/internal/books"
	"github.com/alanyoungcy/edgebot/internal/crypto"
	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/engine"
	"github.com/alanyoungcy/edgebot/internal/events"
	"github.com/alanyoungcy/edgebot/internal/feed"
	"github.com/alanyoungcy/edgebot/internal/ledger"
	"github.com/alanyoungcy/edgebot/internal/platform/polymarket"
	"github.com/alanyoungcy/edgebot/internal/pricefeed"
	"github.com/alanyoungcy/edgebot/internal/server"
	"github.com/alanyoungcy/edgebot/internal/server/handler"
)

// runtime bundles the in-process components shared by all modes.
type runtime struct {
	priceFeed *pricefeed.Feed
	bookCache *books.Cache
	ledger    *ledger.Ledger
	eventLog  *events.Log
	engine    *engine.Engine
	gamma     *polymarket.GammaClient
	clob      *polymarket.ClobClient
	refresher *books.Refresher
}

// paperTrader satisfies the engine's Trader interface without touching the
// exchange. Orders are acknowledged locally so the ledger records what the
// engine would have done.
type paperTrader struct {
	logger *slog.Logger
}

func (p paperTrader) Ready() bool { return true }

func (p paperTrader) PostOrder(ctx context.Context, order domain.OrderRequest) (domain.OrderResult, error) {
	p.logger.InfoContext(ctx, "paper order",
		slog.String("token_id", order.TokenID),
		slog.String("side", string(order.Side)),
		slog.Float64("price", order.Price),
		slog.Float64("size", order.Size),
	)
	return domain.OrderResult{
		Success: true,
		OrderID: "paper-" + uuid.NewString(),
		Status:  "matched",
	}, nil
}

// buildRuntime constructs the shared engine components around the given
// trader. clob may be nil for modes without exchange access.
func (a *App) buildRuntime(deps *Dependencies, trader engine.Trader, clob *polymarket.ClobClient) *runtime {
	priceFeed := pricefeed.New()
	bookCache := books.NewCache()
	led := ledger.New(deps.TradeLogStore, a.logger)

	eventLog := events.NewLog(0)
	if deps.SignalBus != nil {
		bus := deps.SignalBus
		eventLog.SetPublisher(func(ev domain.Event) {
			payload, err := json.Marshal(map[string]any{
				"time":     ev.Time.UnixMilli(),
				"severity": string(ev.Severity),
				"message":  ev.Message,
			})
			if err != nil {
				return
			}
			go func() {
				pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = bus.Publish(pubCtx, "events", payload)
			}()
		})
	}

	eng := engine.New(
		priceFeed,
		bookCache,
		led,
		trader,
		eventLog,
		deps.Notifier,
		a.cfg.Risk.Policy(),
		engine.Options{
			TickInterval: a.cfg.Engine.TickInterval.Duration,
			Cooldown:     a.cfg.Engine.Cooldown.Duration,
			PriceLag:     a.cfg.Engine.PriceLag.Duration,
		},
		a.logger,
	)

	return &runtime{
		priceFeed: priceFeed,
		bookCache: bookCache,
		ledger:    led,
		eventLog:  eventLog,
		engine:    eng,
		gamma:     polymarket.NewGammaClient(a.cfg.Polymarket.GammaHost),
		clob:      clob,
	}
}

// buildSigner loads the wallet key and constructs the EIP-712 signer.
func (a *App) buildSigner() (*crypto.Signer, error) {
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("load wallet key: %w", err)
	}
	return crypto.NewSigner(key, a.cfg.Polymarket.ChainID)
}

// startFeeds launches the reference price stream and the order book
// refresher. Prices flow into the in-memory window and, when Redis is wired,
// are mirrored to the cache and published on the signal bus.
func (a *App) startFeeds(ctx context.Context, g *errgroup.Group, deps *Dependencies, rt *runtime) {
	symbol := a.cfg.Feed.Symbol

	handlePrice := func(price float64, ts time.Time) {
		rt.priceFeed.Record(price, ts)

		if deps.PriceCache != nil {
			if err := deps.PriceCache.SetPrice(ctx, symbol, price, ts); err != nil {
				a.logger.WarnContext(ctx, "price cache update failed", slog.String("error", err.Error()))
			}
		}
		if deps.SignalBus != nil {
			payload, err := json.Marshal(map[string]any{
				"symbol": symbol,
				"price":  price,
				"ts":     ts.UnixMilli(),
			})
			if err == nil {
				_ = deps.SignalBus.Publish(ctx, "prices", payload)
			}
		}
	}

	refFeed := feed.NewReferenceFeed(a.cfg.Feed.WsHost, symbol, handlePrice, a.logger)
	g.Go(func() error {
		return refFeed.Run(ctx)
	})

	refresher := books.NewRefresher(rt.clob, rt.bookCache, a.cfg.Engine.TickInterval.Duration, a.logger)
	if m := rt.engine.Market(); m != nil {
		refresher.SetTokens(m.TokenIDs[:])
	}
	g.Go(func() error {
		return refresher.Run(ctx)
	})

	rt.refresher = refresher

	// Selected-market metadata refresh. Hourly markets expire; warn the
	// operator when the one being traded closes.
	g.Go(func() error {
		ticker := time.NewTicker(2 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				m := rt.engine.Market()
				if m == nil {
					continue
				}
				fresh, err := rt.gamma.GetMarket(ctx, m.ID)
				if err != nil {
					a.logger.WarnContext(ctx, "market refresh failed",
						slog.String("market_id", m.ID),
						slog.String("error", err.Error()),
					)
					continue
				}
				if !fresh.Active {
					rt.eventLog.Append(domain.EventWarn,
						fmt.Sprintf("selected market is no longer active: %s", fresh.Question))
				}
			}
		}
	})
}

// startHTTPServer mounts the operator API and runs it until ctx is done.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, rt *runtime) {
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(),
		Engine:  handler.NewEngineHandler(rt.engine),
		Markets: handler.NewMarketHandler(rt.gamma, rt.engine, marketSubscriber{rt}),
		Trades:  handler.NewTradeHandler(rt.ledger),
		Events:  handler.NewEventHandler(rt.eventLog),
	}
	if rt.clob != nil {
		handlers.Balances = handler.NewBalanceHandler(rt.clob)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		APIKey:      a.cfg.Server.APIKey,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http server shutdown", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}

// marketSubscriber routes market selections to the book refresher when one
// is running.
type marketSubscriber struct {
	rt *runtime
}

func (s marketSubscriber) SetTokens(tokens []string) {
	if s.rt.refresher != nil {
		s.rt.refresher.SetTokens(tokens)
	}
}

// TradeMode runs the full trading stack: reference feed, book refresher,
// decision engine with live order submission, optional archiver, and the
// operator API.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	signer, err := a.buildSigner()
	if err != nil {
		return fmt.Errorf("trade mode: %w", err)
	}

	clob := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost, signer, a.cfg.Polymarket.SignatureType)
	if err := clob.DeriveAPIKey(ctx); err != nil {
		a.logger.WarnContext(ctx, "derive API key failed; engine will halt on first tick",
			slog.String("error", err.Error()),
		)
	}

	rt := a.buildRuntime(deps, clob, clob)

	if err := rt.ledger.Load(ctx); err != nil {
		a.logger.WarnContext(ctx, "ledger restore failed", slog.String("error", err.Error()))
	}

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps, rt)

	rt.engine.Start()
	g.Go(func() error {
		return rt.engine.Run(ctx)
	})

	// Balance sync, display only. Failures are absorbed.
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				bal, err := clob.GetBalances(ctx)
				if err != nil {
					a.logger.WarnContext(ctx, "balance sync failed", slog.String("error", err.Error()))
					continue
				}
				a.logger.DebugContext(ctx, "balances",
					slog.Float64("collateral", bal.Collateral),
					slog.Float64("allowance", bal.Allowance),
				)
			}
		}
	})

	if deps.BlobWriter != nil && deps.TradeLogStore != nil {
		archiver := s3blob.NewArchiver(
			deps.BlobWriter,
			deps.TradeLogStore,
			a.cfg.S3.ArchiveAfter.Duration,
			time.Hour,
			a.logger,
		)
		g.Go(func() error {
			return archiver.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, rt)
	}

	return g.Wait()
}

// MonitorMode runs the same decision loop against a paper trader: prices are
// watched, probabilities computed, and entries and exits recorded in the
// ledger, but no order ever reaches the exchange.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	// GetBook is unauthenticated, so no signer is needed for book polling.
	clob := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost, nil, a.cfg.Polymarket.SignatureType)
	rt := a.buildRuntime(deps, paperTrader{logger: a.logger}, clob)

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps, rt)

	rt.engine.Start()
	g.Go(func() error {
		return rt.engine.Run(ctx)
	})

	// Consume the published price stream the way an external dashboard would.
	if deps.SignalBus != nil {
		g.Go(func() error {
			ch, err := deps.SignalBus.Subscribe(ctx, "prices")
			if err != nil {
				return fmt.Errorf("monitor mode: subscribe prices: %w", err)
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case _, ok := <-ch:
					if !ok {
						return nil
					}
				}
			}
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, rt)
	}

	return g.Wait()
}

// ServerMode serves the operator API only. The engine is wired but stays
// inactive until started through the API; orders are paper-traded.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	if !a.cfg.Server.Enabled {
		return fmt.Errorf("server mode: server.enabled must be true")
	}

	clob := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost, nil, a.cfg.Polymarket.SignatureType)
	rt := a.buildRuntime(deps, paperTrader{logger: a.logger}, clob)

	g, ctx := errgroup.WithContext(ctx)

	a.startFeeds(ctx, g, deps, rt)

	g.Go(func() error {
		return rt.engine.Run(ctx)
	})

	a.startHTTPServer(ctx, g, rt)

	return g.Wait()
}
