package product

import (
	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/ledger"
)

// Table is the process-wide product reference: a read-only union of the
// static oanda/rithmic registries, plus any overrides an operator layers
// on top at startup (e.g. a vendor quoting a different tick value than
// the built-in table). Every lookup is by plain string key, never by a
// pointer into a live Position or Order, per §9's cyclic-reference note.
type Table struct {
	info        map[string]Info
	marginTiers map[string][]MarginTier
	flatMargin  map[string]decimal.Decimal
	commissions map[string]Commission
}

// NewTable builds a Table pre-populated from the built-in oanda/rithmic
// registries.
func NewTable() *Table {
	t := &Table{
		info:        make(map[string]Info, len(oandaSymbols)+len(futuresSymbols)),
		marginTiers: make(map[string][]MarginTier, len(oandaMarginTiers)),
		flatMargin:  make(map[string]decimal.Decimal, len(intradayMargins)),
		commissions: make(map[string]Commission, len(commissionPerContract)),
	}
	for k, v := range oandaSymbols {
		t.info[k] = v
	}
	for k, v := range futuresSymbols {
		t.info[k] = v
	}
	for k, v := range oandaMarginTiers {
		t.marginTiers[k] = v
	}
	for k, v := range intradayMargins {
		t.flatMargin[k] = v
	}
	for k, v := range commissionPerContract {
		t.commissions[k] = v
	}
	return t
}

// Override replaces (or adds) a single symbol's Info, for a vendor backfill
// run that reports different tick economics than the built-in table.
func (t *Table) Override(info Info) {
	t.info[normalize(info.SymbolName)] = info
}

// Info returns the symbol info for name (or its futures root, e.g. "ESZ24"
// resolves via "ES"), if known.
func (t *Table) Info(name string) (Info, bool) {
	key := normalize(name)
	if i, ok := t.info[key]; ok {
		return i, true
	}
	if i, ok := t.info[RootSymbol(key)]; ok {
		return i, true
	}
	return Info{}, false
}

// Commission returns the per-side commission owed for qty contracts of
// name, or zero if name has no commission entry (e.g. most forex pairs,
// which OANDA prices into the spread instead).
func (t *Table) Commission(name string, qty decimal.Decimal) decimal.Decimal {
	key := RootSymbol(normalize(name))
	c, ok := t.commissions[key]
	if !ok {
		return decimal.Zero
	}
	return c.PerSide.Mul(qty)
}

// IntradayMargin implements ledger.SymbolInfoProvider. It prefers a flat
// Rithmic-style per-contract figure; failing that, a tiered OANDA-style
// schedule computed against the symbol's own tick value as the per-unit
// contract value; failing both, reports unknown so the caller falls back
// to leverage-based margin.
func (t *Table) IntradayMargin(symbolCode basedata.SymbolCode, qty decimal.Decimal) (decimal.Decimal, bool) {
	key := RootSymbol(normalize(string(symbolCode)))

	if flat, ok := t.flatMargin[key]; ok {
		return flat.Mul(qty), true
	}

	if tiers, ok := t.marginTiers[key]; ok {
		info, hasInfo := t.info[key]
		if !hasInfo {
			return decimal.Zero, false
		}
		return calculateTiered(tiers, qty, info.TickValue), true
	}

	return decimal.Zero, false
}

// TickValue implements ledger.SymbolInfoProvider.
func (t *Table) TickValue(symbolCode basedata.SymbolCode) decimal.Decimal {
	if info, ok := t.Info(string(symbolCode)); ok {
		return info.TickValue
	}
	return decimal.NewFromInt(1)
}

// PnLCurrency implements ledger.SymbolInfoProvider.
func (t *Table) PnLCurrency(symbolCode basedata.SymbolCode) string {
	if info, ok := t.Info(string(symbolCode)); ok {
		return info.PnLCurrency
	}
	return "USD"
}

var _ ledger.SymbolInfoProvider = (*Table)(nil)
