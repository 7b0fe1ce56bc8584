// Package ledger implements the ledger service (C8): one actor per
// (brokerage, account) owning that account's cash, margin, and position
// state, driven by order fills and per-time-slice mark-to-market passes.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// Ledger holds one (brokerage, account) pair's mutable state. Per §9's
// design note it is actor-owned: every method here assumes it runs on the
// single goroutine the owning Actor serializes messages through, and takes
// no lock of its own.
type Ledger struct {
	Brokerage string
	Account   string
	Currency  string
	Mode      Mode
	Leverage  decimal.Decimal

	CashValue     decimal.Decimal
	CashAvailable decimal.Decimal
	CashUsed      decimal.Decimal

	// IsSimulatingPnL keeps per-symbol closed-PnL and total-booked-PnL
	// counters updating even in Live mode, for strategies that want to
	// track their own view alongside the broker's.
	IsSimulatingPnL bool

	positions       map[basedata.SymbolCode]*Position
	positionsClosed map[basedata.SymbolCode][]*Position
	symbolCodeMap   map[string][]basedata.SymbolCode

	MarginUsed       map[basedata.SymbolCode]decimal.Decimal
	symbolClosedPnL  map[basedata.SymbolCode]decimal.Decimal
	positionsCounter map[string]int
	TotalBookedPnL   decimal.Decimal

	winStreak, lossStreak         int
	bestWinStreak, bestLossStreak int

	info SymbolInfoProvider
	log  *zap.Logger
}

// Config seeds a new Ledger's starting account state.
type Config struct {
	Brokerage       string
	Account         string
	Currency        string
	Mode            Mode
	Leverage        decimal.Decimal
	StartingCash    decimal.Decimal
	IsSimulatingPnL bool
}

// New builds an empty Ledger with no open positions. info supplies margin
// and tick-value lookups; a nil logger is replaced with a no-op one.
func New(cfg Config, info SymbolInfoProvider, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	leverage := cfg.Leverage
	if leverage.IsZero() {
		leverage = decimal.NewFromInt(1)
	}
	return &Ledger{
		Brokerage:        cfg.Brokerage,
		Account:          cfg.Account,
		Currency:         cfg.Currency,
		Mode:             cfg.Mode,
		Leverage:         leverage,
		CashValue:        cfg.StartingCash,
		CashAvailable:    cfg.StartingCash,
		CashUsed:         decimal.Zero,
		IsSimulatingPnL:  cfg.IsSimulatingPnL,
		positions:        make(map[basedata.SymbolCode]*Position),
		positionsClosed:  make(map[basedata.SymbolCode][]*Position),
		symbolCodeMap:    make(map[string][]basedata.SymbolCode),
		MarginUsed:       make(map[basedata.SymbolCode]decimal.Decimal),
		symbolClosedPnL:  make(map[basedata.SymbolCode]decimal.Decimal),
		positionsCounter: make(map[string]int),
		info:             info,
		log:              log,
	}
}

func (l *Ledger) recomputeCashValue() {
	if l.Mode.simulatesLocally() {
		l.CashValue = l.CashUsed.Add(l.CashAvailable)
	}
}

// GenerateID produces a position id of the form
// "<brokerage>-<account>-<counter>-<symbol>-<side>", where counter
// increments per symbol name across the ledger's lifetime.
func (l *Ledger) GenerateID(symbolName string, side Side) string {
	l.positionsCounter[symbolName]++
	return fmt.Sprintf("%s-%s-%d-%s-%s", l.Brokerage, l.Account, l.positionsCounter[symbolName], symbolName, side)
}

// IsLong reports whether symbolCode currently has an open long position.
func (l *Ledger) IsLong(symbolCode basedata.SymbolCode) bool {
	p, ok := l.positions[symbolCode]
	return ok && p.Side == Long
}

// IsShort reports whether symbolCode currently has an open short position.
func (l *Ledger) IsShort(symbolCode basedata.SymbolCode) bool {
	p, ok := l.positions[symbolCode]
	return ok && p.Side == Short
}

// IsFlat reports the absence of any open position for symbolCode.
func (l *Ledger) IsFlat(symbolCode basedata.SymbolCode) bool {
	_, ok := l.positions[symbolCode]
	return !ok
}

// PositionSize returns the open quantity for symbolCode, zero if flat.
func (l *Ledger) PositionSize(symbolCode basedata.SymbolCode) decimal.Decimal {
	if p, ok := l.positions[symbolCode]; ok {
		return p.QuantityOpen
	}
	return decimal.Zero
}

// OpenPnL returns the last mark-to-market open PnL for symbolCode.
func (l *Ledger) OpenPnL(symbolCode basedata.SymbolCode) decimal.Decimal {
	if p, ok := l.positions[symbolCode]; ok {
		return p.OpenPnL
	}
	return decimal.Zero
}

// BookedPnL returns symbolCode's open position's realized PnL so far (does
// not include prior closed positions for the same code; see TotalBookedPnL
// for the account-wide total).
func (l *Ledger) BookedPnL(symbolCode basedata.SymbolCode) decimal.Decimal {
	if p, ok := l.positions[symbolCode]; ok {
		return p.BookedPnL
	}
	return decimal.Zero
}

// InProfit reports whether symbolCode's open position currently marks
// positive open PnL.
func (l *Ledger) InProfit(symbolCode basedata.SymbolCode) bool {
	p, ok := l.positions[symbolCode]
	return ok && p.OpenPnL.GreaterThan(decimal.Zero)
}

// InDrawdown reports whether symbolCode's open position currently marks
// negative open PnL.
func (l *Ledger) InDrawdown(symbolCode basedata.SymbolCode) bool {
	p, ok := l.positions[symbolCode]
	return ok && p.OpenPnL.LessThan(decimal.Zero)
}

// HasSide reports whether an open position for symbolCode exists on side.
// This is the query the matching engine's ExitLong/ExitShort admission
// check depends on (internal/matching.PositionQuery).
func (l *Ledger) HasSide(symbolCode basedata.SymbolCode, side Side) bool {
	p, ok := l.positions[symbolCode]
	return ok && p.Side == side
}

// TimesliceUpdate marks every open position to market against the base
// data in slice that matches its symbol, per §4.8's TimeSlice handling.
// Positions an embedded bracket closed during update_base_data move to the
// closed list; this ledger's matching engine never sets that flag itself
// since it implements no bracket order type, so this path only fires for
// a future bracket-aware caller.
func (l *Ledger) TimesliceUpdate(slice []basedata.BaseDatum, now time.Time) {
	for _, datum := range slice {
		code := basedata.SymbolCode(datum.Symbol().Name)
		p, ok := l.positions[code]
		if !ok || p.IsClosed {
			continue
		}
		price, ok := ReferencePrice(datum)
		if !ok {
			continue
		}
		p.MarkToMarket(price)

		if p.IsClosed {
			delete(l.positions, code)
			l.positionsClosed[code] = append(l.positionsClosed[code], p)
		}
	}
	l.recomputeCashValue()
}

// FlattenAccount closes every open position at the price given for its
// symbol in prices (a snapshot the caller resolves from the price book
// before sending), per §4.8's FlattenAccount message. It is a no-op in
// Live mode, matching the original's "only simulated accounts can be
// flattened locally" rule. Positions whose symbol is missing from prices
// are left open and logged.
func (l *Ledger) FlattenAccount(now time.Time, prices map[string]decimal.Decimal) {
	if !l.Mode.simulatesLocally() {
		return
	}
	codes := make([]basedata.SymbolCode, 0, len(l.positions))
	for code := range l.positions {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	for _, code := range codes {
		p := l.positions[code]
		price, ok := prices[p.SymbolName]
		if !ok {
			l.log.Warn("ledger: no fill price available to flatten position", zap.String("symbol", p.SymbolName))
			continue
		}
		l.paperExit(code, now, price, "Flatten All")
	}
}

func (l *Ledger) paperExit(code basedata.SymbolCode, now time.Time, price decimal.Decimal, tag string) (PositionEvent, bool) {
	p, ok := l.positions[code]
	if !ok {
		return PositionEvent{}, false
	}
	delete(l.positions, code)

	if l.Mode.simulatesLocally() {
		l.releaseMargin(code)
	}
	ev := p.ReducePositionSize(price, p.QuantityOpen, now, tag)

	if l.Mode.simulatesLocally() || l.IsSimulatingPnL {
		l.symbolClosedPnL[code] = l.symbolClosedPnL[code].Add(ev.BookedPnL)
		l.TotalBookedPnL = l.TotalBookedPnL.Add(ev.BookedPnL)
	}
	if l.Mode.simulatesLocally() {
		l.CashAvailable = l.CashAvailable.Add(ev.BookedPnL)
	}
	l.recordClose(ev.BookedPnL)

	l.positionsClosed[code] = append(l.positionsClosed[code], p)
	l.recomputeCashValue()
	return ev, true
}

func (l *Ledger) recordClose(bookedPnL decimal.Decimal) {
	if bookedPnL.GreaterThan(decimal.Zero) {
		l.winStreak++
		l.lossStreak = 0
		if l.winStreak > l.bestWinStreak {
			l.bestWinStreak = l.winStreak
		}
	} else if bookedPnL.LessThan(decimal.Zero) {
		l.lossStreak++
		l.winStreak = 0
		if l.lossStreak > l.bestLossStreak {
			l.bestLossStreak = l.lossStreak
		}
	}
}

// Print renders the same win-rate/profit-factor one-liner the original
// ledger's print() produces, for operator consoles and log lines.
func (l *Ledger) Print() string {
	var totalTrades, wins, losses int
	var winPnL, lossPnL, pnl decimal.Decimal

	for _, closed := range l.positionsClosed {
		for _, p := range closed {
			totalTrades++
			switch {
			case p.BookedPnL.GreaterThan(decimal.Zero):
				wins++
				winPnL = winPnL.Add(p.BookedPnL)
			case p.BookedPnL.LessThan(decimal.Zero):
				losses++
				lossPnL = lossPnL.Add(p.BookedPnL)
			}
			pnl = pnl.Add(p.BookedPnL)
		}
	}

	winRate := decimal.Zero
	if totalTrades > 0 {
		winRate = decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(totalTrades))).Mul(decimal.NewFromInt(100))
	}
	profitFactor := decimal.Zero
	switch {
	case !lossPnL.IsZero():
		profitFactor = winPnL.Div(lossPnL.Neg())
	case winPnL.GreaterThan(decimal.Zero):
		profitFactor = decimal.NewFromInt(1000)
	}
	breakEven := totalTrades - wins - losses

	return fmt.Sprintf(
		"Brokerage: %s, Account: %s, Balance: %s, Win Rate: %s%%, Profit Factor: %s, Total Profit: %s, Wins: %d, Losses: %d, Break Even: %d, Total Trades: %d, Open Positions: %d, Cash Used: %s, Cash Available: %s",
		l.Brokerage, l.Account, l.CashValue.Round(2), winRate.Round(2), profitFactor.Round(2), pnl.Round(2),
		wins, losses, breakEven, totalTrades, len(l.positions), l.CashUsed.Round(2), l.CashAvailable.Round(2),
	)
}
