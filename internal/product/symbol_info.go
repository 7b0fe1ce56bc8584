// Package product is the product reference (C10): read-only, process-wide
// symbol info, margin tier, and commission tables, keyed by symbol name
// rather than by any live object, so a ledger or order never holds a
// pointer into this package (§9's "cyclic references... broken with
// identifier-keyed lookups").
package product

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Info is everything the ledger and matching engine need to know about a
// symbol that isn't part of its own live state.
type Info struct {
	SymbolName      string
	PnLCurrency     string
	TickValue       decimal.Decimal
	TickSize        decimal.Decimal
	DecimalAccuracy int32
}

// Commission is a per-side, per-contract commission rate.
type Commission struct {
	PerSide  decimal.Decimal
	Currency string
}

// MarginTier is one band of a tiered intraday margin schedule: contracts
// up to MaxUnits (decimal.Zero MaxUnits meaning "and beyond", the final
// open-ended tier) cost MarginPercent percent of quantity*contractValue.
type MarginTier struct {
	MaxUnits     decimal.Decimal
	MarginPercent decimal.Decimal
}

// calculateTiered walks tiers in order, apportioning qty across each band
// until it is exhausted, mirroring calculate_oanda_margin's running-total
// loop over MARGIN_TIERS.
func calculateTiered(tiers []MarginTier, qty, contractValue decimal.Decimal) decimal.Decimal {
	remaining := qty
	total := decimal.Zero

	for _, tier := range tiers {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		tierQty := remaining
		if !tier.MaxUnits.IsZero() && remaining.GreaterThan(tier.MaxUnits) {
			tierQty = tier.MaxUnits
		}

		total = total.Add(tierQty.Mul(contractValue).Mul(tier.MarginPercent).Div(decimal.NewFromInt(100)))
		remaining = remaining.Sub(tierQty)
	}

	return total
}

// RootSymbol strips a futures contract's month-code-plus-year suffix (e.g.
// "ESZ24" -> "ES") so a contract-qualified symbol code can be looked up
// against a root-keyed table. Symbols without that suffix (forex pairs,
// equities) are returned unchanged.
func RootSymbol(code string) string {
	i := len(code)
	for i > 0 && code[i-1] >= '0' && code[i-1] <= '9' {
		i--
	}
	if i == len(code) || i == 0 {
		return code
	}
	if letter := code[i-1]; letter >= 'A' && letter <= 'Z' {
		return code[:i-1]
	}
	return code
}

// normalize upper-cases and trims a lookup key so "es", "ES ", and "ES"
// all hit the same table entry.
func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
