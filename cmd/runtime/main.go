// Command runtime is the fund-forge-go strategy runtime: it wires the
// historical archive (C2), the product catalog (C10), the backfill
// controller (C3), the subscription handler (C6), the price book (C4) and
// matching engine (C7), the ledger registry (C8), the event bus (C9), the
// coldstore shipper, and the feedio websocket gateway into one
// running process, replaying a small synthetic vendor feed through them
// end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/backfill"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/book"
	"github.com/ndrandal/fund-forge-go/internal/catalog"
	"github.com/ndrandal/fund-forge-go/internal/coldstore"
	"github.com/ndrandal/fund-forge-go/internal/config"
	"github.com/ndrandal/fund-forge-go/internal/eventbus"
	"github.com/ndrandal/fund-forge-go/internal/feedio"
	"github.com/ndrandal/fund-forge-go/internal/ledger"
	"github.com/ndrandal/fund-forge-go/internal/matching"
	"github.com/ndrandal/fund-forge-go/internal/product"
	"github.com/ndrandal/fund-forge-go/internal/subscription"
	"github.com/ndrandal/fund-forge-go/internal/vendoradapter"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime: load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime: invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime: build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("fund-forge-go runtime starting", zap.String("mode", cfg.Mode.String()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	archiveStore, err := archive.New(archive.Config{Root: cfg.ArchiveRoot, ClearCacheDuration: cfg.ClearCacheDuration}, log)
	if err != nil {
		log.Fatal("open archive", zap.Error(err))
	}
	go archiveStore.Run(ctx, cfg.ClearCacheDuration)

	var backfillMirror *catalog.BackfillRegistry
	if cfg.Mode != config.ModeBacktest && cfg.MongoURI != "" {
		catalogCtx, catalogCancel := context.WithTimeout(ctx, 5*time.Second)
		catalogStore, err := catalog.NewStore(catalogCtx, cfg.MongoURI)
		catalogCancel()
		if err != nil {
			log.Warn("catalog unavailable, continuing without persisted mirroring", zap.Error(err))
		} else {
			defer catalogStore.Close(context.Background())
			backfillMirror = catalog.NewBackfillRegistry(catalogStore)
		}
	}

	products := product.NewTable()
	ledgerSvc := ledger.NewService(products, log)
	account := ledgerSvc.GetOrCreate(ledger.Key{Brokerage: "paper", Account: "default"}, ledger.Config{
		Currency:        cfg.Currency,
		Mode:            ledgerModeFor(cfg.Mode),
		Leverage:        cfg.Leverage,
		StartingCash:    cfg.StartingCash,
		IsSimulatingPnL: true,
	})

	books := book.NewRegistry()
	matchEngine := matching.New(books, ledgerSvc, decimal.NewFromFloat(0.01), log)

	symbols := demoSymbols()
	mockVendor := vendoradapter.NewMock(demoVendorName, 42, symbols, log)
	vendors := map[string]vendoradapter.VendorAdapter{demoVendorName: mockVendor}

	rawCh := make(chan basedata.BaseDatum, 1024)
	router := newVendorRouter(ctx, mockVendor, rawCh, log)

	subHandler := subscription.New(vendoradapter.Capabilities{Adapter: mockVendor}, archiveStore, subscription.Config{
		HistoryToRetain: cfg.RetainHistory,
		FillForward:     cfg.FillForward,
		RetainWindow:    cfg.RetainHistory,
		Router:          router.route,
	}, log)

	backfillCtrl := backfill.New(backfill.Config{
		MaxConcurrentDownloads: cfg.MaxConcurrentDownloads,
		UpdateInterval:         time.Duration(cfg.UpdateSeconds) * time.Second,
	}, archiveStore, vendors, backfillMirror, log)

	bus := eventbus.New(eventbus.Config{Buffered: cfg.BufferingDuration > 0}, log)
	if cfg.BufferingDuration > 0 {
		go bus.RunTicker(ctx, cfg.BufferingDuration, time.Now)
	}

	if cfg.ColdstoreEnabled() {
		s3Client, err := coldstore.NewClient(ctx, cfg.S3Region)
		if err != nil {
			log.Warn("coldstore client unavailable, shipment disabled", zap.Error(err))
		} else {
			shipper := coldstore.New(coldstore.Config{
				Bucket:   cfg.S3Bucket,
				Prefix:   cfg.S3Prefix,
				Interval: time.Duration(cfg.ArchiveIntervalHours) * time.Hour,
				AfterAge: time.Duration(cfg.ArchiveAfterHours) * time.Hour,
			}, archiveStore, s3Client, log)
			go shipper.Run(ctx, archiveKeysFor(symbols, demoVendorName))
		}
	}

	feedioMgr := feedio.NewManager(256, log)
	go feedio.Run(ctx, bus, feedioMgr)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.FeedioHost, cfg.FeedioPort)
		log.Info("feedio listening", zap.String("addr", addr))
		if err := feedio.Serve(ctx, addr, feedioMgr, log); err != nil {
			log.Error("feedio server stopped", zap.Error(err))
		}
	}()

	startSymbolSubscriptions(ctx, subHandler, symbols, log)

	targets := backfillTargetsFor(symbols, demoVendorName)
	go backfillCtrl.StartSchedule(ctx, targets)

	go runDataPipeline(ctx, rawCh, subHandler, books, matchEngine, account, bus, log)
	go runMatchingForwarder(ctx, matchEngine, account, bus, log)

	<-ctx.Done()
	log.Info("runtime stopped")
}

func ledgerModeFor(m config.Mode) ledger.Mode {
	switch m {
	case config.ModeLive:
		return ledger.Live
	case config.ModeLivePaperTrading:
		return ledger.LivePaperTrading
	default:
		return ledger.Backtest
	}
}

// startSymbolSubscriptions registers the demo fleet's strategy subscriptions:
// a direct tick stream (matches the vendor's native resolution, no
// consolidator) and a one-minute candle (which the handler must build a
// consolidator for, since the mock vendor only streams ticks and quotes).
func startSymbolSubscriptions(ctx context.Context, h *subscription.Handler, symbols []vendoradapter.MockSymbol, log *zap.Logger) {
	for _, s := range symbols {
		tickSub := basedata.DataSubscription{
			Symbol:     s.Symbol,
			Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1},
			DataType:   basedata.DataTypeTick,
			Market:     s.Symbol.Market,
		}
		if err := h.Subscribe(ctx, tickSub, false); err != nil {
			log.Warn("runtime: tick subscribe failed", zap.String("symbol", s.Symbol.Name), zap.Error(err))
		}

		barSub := basedata.DataSubscription{
			Symbol:     s.Symbol,
			Resolution: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1},
			DataType:   basedata.DataTypeCandle,
			Market:     s.Symbol.Market,
		}
		if err := h.Subscribe(ctx, barSub, true); err != nil {
			log.Warn("runtime: candle subscribe failed", zap.String("symbol", s.Symbol.Name), zap.Error(err))
		}
	}
}

// backfillTargetsFor schedules a one-minute-candle forward fill for every
// demo symbol, with a 24-hour backward walk to seed some history on first
// run.
func backfillTargetsFor(symbols []vendoradapter.MockSymbol, vendorName string) []backfill.ScheduleTarget {
	targets := make([]backfill.ScheduleTarget, 0, len(symbols))
	for _, s := range symbols {
		targets = append(targets, backfill.ScheduleTarget{
			Vendor:       vendorName,
			Symbol:       s.Symbol,
			Resolution:   basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1},
			DataType:     basedata.DataTypeCandle,
			BackwardFrom: time.Now().Add(-24 * time.Hour),
		})
	}
	return targets
}

func archiveKeysFor(symbols []vendoradapter.MockSymbol, vendorName string) []archive.Key {
	keys := make([]archive.Key, 0, len(symbols))
	for _, s := range symbols {
		keys = append(keys, archive.Key{
			Vendor:     vendorName,
			Market:     s.Symbol.Market,
			Symbol:     s.Symbol.Name,
			Resolution: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1},
			DataType:   basedata.DataTypeCandle,
		})
	}
	return keys
}
