package product

import "github.com/shopspring/decimal"

// oandaSymbols mirrors OANDA_SYMBOL_INFO: forex pairs quoted per-unit, with
// value_per_tick already scaled for OANDA's standard lot size.
var oandaSymbols = map[string]Info{
	"AUD-USD": oandaPair("AUD-USD", "USD", "0.001", "0.00001", 5),
	"EUR-USD": oandaPair("EUR-USD", "USD", "0.001", "0.00001", 5),
	"GBP-USD": oandaPair("GBP-USD", "USD", "0.001", "0.00001", 5),
	"NZD-USD": oandaPair("NZD-USD", "USD", "0.001", "0.00001", 5),
	"USD-CAD": oandaPair("USD-CAD", "CAD", "0.001", "0.00001", 5),
	"USD-CHF": oandaPair("USD-CHF", "CHF", "0.001", "0.00001", 5),
	"USD-JPY": oandaPair("USD-JPY", "JPY", "0.1", "0.01", 2),
	"EUR-GBP": oandaPair("EUR-GBP", "GBP", "0.001", "0.00001", 5),
	"EUR-JPY": oandaPair("EUR-JPY", "JPY", "0.1", "0.01", 2),
	"EUR-CHF": oandaPair("EUR-CHF", "CHF", "0.001", "0.00001", 5),
	"AUD-CAD": oandaPair("AUD-CAD", "CAD", "0.001", "0.00001", 5),
	"AUD-CHF": oandaPair("AUD-CHF", "CHF", "0.001", "0.00001", 5),
	"AUD-JPY": oandaPair("AUD-JPY", "JPY", "0.1", "0.01", 2),
	"AUD-NZD": oandaPair("AUD-NZD", "NZD", "0.001", "0.00001", 5),
}

func oandaPair(name, currency, tickValue, tickSize string, accuracy int32) Info {
	return Info{
		SymbolName:      name,
		PnLCurrency:     currency,
		TickValue:       decimal.RequireFromString(tickValue),
		TickSize:        decimal.RequireFromString(tickSize),
		DecimalAccuracy: accuracy,
	}
}

// oandaMarginTiers mirrors MARGIN_TIERS: tiered margin percentages by
// position size, keyed by pair. The majors (AUD/EUR/GBP/NZD-USD, USD-CAD,
// USD-CHF, EUR-GBP, EUR-CHF, AUD-CAD, AUD-CHF, AUD-NZD) share one schedule;
// JPY crosses (a smaller quote-currency value per point) share another.
var (
	oandaMajorTiers = []MarginTier{
		{MaxUnits: decimal.NewFromInt(2), MarginPercent: decimal.RequireFromString("0.50")},
		{MaxUnits: decimal.NewFromInt(5), MarginPercent: decimal.RequireFromString("1.00")},
		{MaxUnits: decimal.NewFromInt(50), MarginPercent: decimal.RequireFromString("5.00")},
		{MaxUnits: decimal.Zero, MarginPercent: decimal.RequireFromString("20.00")},
	}
	oandaJPYTiers = []MarginTier{
		{MaxUnits: decimal.NewFromInt(1), MarginPercent: decimal.RequireFromString("0.67")},
		{MaxUnits: decimal.NewFromInt(5), MarginPercent: decimal.RequireFromString("1.33")},
		{MaxUnits: decimal.NewFromInt(20), MarginPercent: decimal.RequireFromString("5.00")},
		{MaxUnits: decimal.Zero, MarginPercent: decimal.RequireFromString("20.00")},
	}
)

var oandaMarginTiers = map[string][]MarginTier{
	"AUD-USD": oandaMajorTiers,
	"EUR-USD": oandaMajorTiers,
	"GBP-USD": oandaMajorTiers,
	"NZD-USD": oandaMajorTiers,
	"USD-CAD": oandaMajorTiers,
	"USD-CHF": oandaMajorTiers,
	"EUR-GBP": oandaMajorTiers,
	"EUR-CHF": oandaMajorTiers,
	"AUD-CAD": oandaMajorTiers,
	"AUD-CHF": oandaMajorTiers,
	"AUD-NZD": oandaMajorTiers,
	"USD-JPY": oandaJPYTiers,
	"EUR-JPY": oandaJPYTiers,
	"AUD-JPY": oandaJPYTiers,
}
