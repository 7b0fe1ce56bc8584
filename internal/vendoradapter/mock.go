package vendoradapter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

const (
	mockBaseDailyVol = 0.02  // 2% daily volatility
	mockTicksPerDay  = 86400 // for per-tick vol scaling
)

// MockSymbol configures one synthetic instrument the Mock adapter serves.
type MockSymbol struct {
	Symbol               basedata.Symbol
	BasePrice            decimal.Decimal
	TickSizeValue        decimal.Decimal
	VolatilityMultiplier float64 // 1.0 is baseline; higher is choppier
	DecimalPlaces        int
}

// Mock is a VendorAdapter generating synthetic GBM-driven price data, for
// use in tests and as a paper-trading fixture when no real vendor
// connection is configured. It carries no network dependency.
type Mock struct {
	name string
	log  *zap.Logger

	mu     sync.Mutex
	rng    *pcgRNG
	prices map[string]float64 // symbol name -> current price
	syms   map[string]MockSymbol

	streams map[string]context.CancelFunc // DataSubscription key -> cancel
}

// NewMock creates a Mock vendor adapter seeded deterministically, so a
// given seed always replays the same price path.
func NewMock(name string, seed uint64, symbols []MockSymbol, log *zap.Logger) *Mock {
	prices := make(map[string]float64, len(symbols))
	bySym := make(map[string]MockSymbol, len(symbols))
	for _, s := range symbols {
		prices[s.Symbol.Name] = s.BasePrice.InexactFloat64()
		bySym[s.Symbol.Name] = s
	}
	return &Mock{
		name:    name,
		log:     log,
		rng:     newPCGRNG(seed, 1),
		prices:  prices,
		syms:    bySym,
		streams: make(map[string]context.CancelFunc),
	}
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Symbols(ctx context.Context) ([]basedata.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]basedata.Symbol, 0, len(m.syms))
	for _, s := range m.syms {
		out = append(out, s.Symbol)
	}
	return out, nil
}

func (m *Mock) Resolutions(sym basedata.Symbol) []basedata.Resolution {
	return []basedata.Resolution{
		{Kind: basedata.ResolutionTicks, Multiplier: 1},
		{Kind: basedata.ResolutionSeconds, Multiplier: 1},
		{Kind: basedata.ResolutionMinutes, Multiplier: 1},
	}
}

func (m *Mock) Markets() []basedata.MarketType {
	seen := make(map[basedata.MarketType]bool)
	var out []basedata.MarketType
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.syms {
		if !seen[s.Symbol.Market] {
			seen[s.Symbol.Market] = true
			out = append(out, s.Symbol.Market)
		}
	}
	return out
}

func (m *Mock) DecimalAccuracy(sym basedata.Symbol) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.syms[sym.Name]; ok {
		return s.DecimalPlaces
	}
	return 2
}

func (m *Mock) TickSize(sym basedata.Symbol) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.syms[sym.Name]; ok {
		return s.TickSizeValue
	}
	return decimal.NewFromFloat(0.01)
}

func (m *Mock) BaseDataTypes(sym basedata.Symbol) []basedata.BaseDataType {
	return []basedata.BaseDataType{basedata.DataTypeTick, basedata.DataTypeQuote}
}

// step advances sym's price one GBM tick and returns the new value,
// snapped to the symbol's tick size.
func (m *Mock) step(name string) float64 {
	s := m.syms[name]
	price := m.prices[name]

	vol := mockBaseDailyVol * s.VolatilityMultiplier
	tickVol := vol / math.Sqrt(mockTicksPerDay)
	z := m.rng.Gaussian()
	price *= math.Exp(tickVol * z)

	tick := s.TickSizeValue.InexactFloat64()
	if tick > 0 {
		price = math.Round(price/tick) * tick
		if price < tick {
			price = tick
		}
	}
	m.prices[name] = price
	return price
}

// Subscribe opens a synthetic tick stream for sub, pushing one Tick per
// call to an internal ~50ms ticker until ctx is cancelled or Unsubscribe is
// called. Quote subscriptions derive a bid/ask spread of one tick around
// the generated mid.
func (m *Mock) Subscribe(ctx context.Context, sub basedata.DataSubscription, out chan<- basedata.BaseDatum) error {
	m.mu.Lock()
	if _, ok := m.syms[sub.Symbol.Name]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("vendoradapter: mock has no symbol %q", sub.Symbol.Name)
	}
	streamKey := streamKeyOf(sub)
	if _, exists := m.streams[streamKey]; exists {
		m.mu.Unlock()
		return fmt.Errorf("vendoradapter: %s already subscribed", streamKey)
	}
	streamCtx, cancel := context.WithCancel(ctx)
	m.streams[streamKey] = cancel
	m.mu.Unlock()

	go m.run(streamCtx, sub, out)
	return nil
}

func (m *Mock) run(ctx context.Context, sub basedata.DataSubscription, out chan<- basedata.BaseDatum) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			datum := m.generate(sub, time.Now())
			if datum == nil {
				continue
			}
			select {
			case out <- datum:
			case <-ctx.Done():
				return
			default:
				if m.log != nil {
					m.log.Warn("vendoradapter: mock stream dropped datum, output channel full",
						zap.String("symbol", sub.Symbol.Name))
				}
			}
		}
	}
}

func (m *Mock) generate(sub basedata.DataSubscription, now time.Time) basedata.BaseDatum {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.syms[sub.Symbol.Name]
	if !ok {
		return nil
	}
	mid := m.step(sub.Symbol.Name)
	price := decimal.NewFromFloat(mid).Round(int32(s.DecimalPlaces))
	tick := s.TickSizeValue

	switch sub.DataType {
	case basedata.DataTypeQuote:
		return basedata.Quote{
			Sym: sub.Symbol, Bid: price.Sub(tick), Ask: price.Add(tick),
			BidSize: decimal.NewFromInt(1), AskSize: decimal.NewFromInt(1), Time: now,
		}
	default:
		return basedata.Tick{Sym: sub.Symbol, Price: price, Size: decimal.NewFromInt(1), Time: now}
	}
}

func (m *Mock) Unsubscribe(sub basedata.DataSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := streamKeyOf(sub)
	cancel, ok := m.streams[key]
	if !ok {
		return nil
	}
	cancel()
	delete(m.streams, key)
	return nil
}

// UpdateHistoricalData replays req's window by running the same GBM step
// offline, one synthetic bar per resolution period, independent of the
// adapter's live price state (a backfill should not perturb live ticks).
func (m *Mock) UpdateHistoricalData(ctx context.Context, req HistoricalRequest, out chan<- basedata.BaseDatum) (HistoricalResult, error) {
	m.mu.Lock()
	s, ok := m.syms[req.Symbol.Name]
	seed := m.rng.Float64()
	m.mu.Unlock()
	if !ok {
		return HistoricalResult{}, fmt.Errorf("vendoradapter: mock has no symbol %q", req.Symbol.Name)
	}

	period := req.Resolution.Duration()
	if period <= 0 {
		period = time.Minute
	}
	local := newPCGRNG(uint64(seed*1e9), 7)
	price := s.BasePrice.InexactFloat64()
	tick := s.TickSizeValue.InexactFloat64()

	written := 0
	var earliest, latest time.Time
	for t := req.From; t.Before(req.To); t = t.Add(period) {
		select {
		case <-ctx.Done():
			return HistoricalResult{Written: written, Earliest: earliest, Latest: latest}, ctx.Err()
		default:
		}

		vol := mockBaseDailyVol * s.VolatilityMultiplier
		periodVol := vol * math.Sqrt(period.Seconds()/86400)
		price *= math.Exp(periodVol * local.Gaussian())
		if tick > 0 {
			price = math.Round(price/tick) * tick
		}

		candle := basedata.Candle{
			Sym: req.Symbol, Res: req.Resolution,
			Open: decimal.NewFromFloat(price), High: decimal.NewFromFloat(price),
			Low: decimal.NewFromFloat(price), Close: decimal.NewFromFloat(price),
			Volume: decimal.NewFromInt(1), TimeClosed: t, Closed: true,
		}
		select {
		case out <- candle:
		case <-ctx.Done():
			return HistoricalResult{Written: written, Earliest: earliest, Latest: latest}, ctx.Err()
		}

		written++
		if earliest.IsZero() {
			earliest = t
		}
		latest = t
		if req.Progress != nil {
			req.Progress(written)
		}
	}
	return HistoricalResult{Written: written, Earliest: earliest, Latest: latest}, nil
}

func streamKeyOf(sub basedata.DataSubscription) string {
	return fmt.Sprintf("%s|%s|%s", sub.Symbol.Name, sub.Resolution.String(), sub.DataType.String())
}

var _ VendorAdapter = (*Mock)(nil)
