package main

import (
	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/vendoradapter"
)

// demoVendorName is the mock adapter's name when no real vendor is wired.
const demoVendorName = "mock"

// demoSymbols seeds the mock vendor with a small cross-asset fleet, in the
// spirit of the feed simulator's own fake-ticker table: a handful of
// equities, an FX pair, and a future, spanning tick sizes and volatility
// multipliers.
func demoSymbols() []vendoradapter.MockSymbol {
	equity := func(name string, base, tick string, vol float64) vendoradapter.MockSymbol {
		return vendoradapter.MockSymbol{
			Symbol:               basedata.Symbol{Name: name, Vendor: demoVendorName, Market: basedata.MarketEquity},
			BasePrice:            decimal.RequireFromString(base),
			TickSizeValue:        decimal.RequireFromString(tick),
			VolatilityMultiplier: vol,
			DecimalPlaces:        2,
		}
	}
	return []vendoradapter.MockSymbol{
		equity("NEXO", "185.00", "0.01", 1.4),
		equity("QBIT", "92.50", "0.01", 1.6),
		equity("LEDG", "78.50", "0.01", 0.8),
		equity("HELX", "195.00", "0.01", 0.5),
		equity("VOLT", "98.00", "0.01", 1.1),
		{
			Symbol:               basedata.Symbol{Name: "EURUSD", Vendor: demoVendorName, Market: basedata.MarketForex},
			BasePrice:            decimal.RequireFromString("1.0850"),
			TickSizeValue:        decimal.RequireFromString("0.0001"),
			VolatilityMultiplier: 0.6,
			DecimalPlaces:        4,
		},
		{
			Symbol:               basedata.Symbol{Name: "ESFUT", Vendor: demoVendorName, Market: basedata.MarketFutures},
			BasePrice:            decimal.RequireFromString("5120.00"),
			TickSizeValue:        decimal.RequireFromString("0.25"),
			VolatilityMultiplier: 1.0,
			DecimalPlaces:        2,
		},
	}
}
