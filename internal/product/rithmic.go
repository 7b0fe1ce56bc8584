package product

import "github.com/shopspring/decimal"

// futuresSymbols mirrors SYMBOL_INFO_MAP's add_symbol! table: root ticker
// -> (tick value, tick size, decimal accuracy). Currency is USD for every
// entry actually wired here (the CME/COMEX/NYMEX contracts); EUR-settled
// Eurex contracts from the original table are left for a future vendor
// that actually trades them.
var futuresSymbols = map[string]Info{
	"ES":  futuresInfo("ES", "12.5", "0.25", 2),
	"MES": futuresInfo("MES", "1.25", "0.25", 2),
	"NQ":  futuresInfo("NQ", "5.0", "0.25", 2),
	"MNQ": futuresInfo("MNQ", "0.50", "0.25", 2),
	"YM":  futuresInfo("YM", "5.0", "1.0", 0),
	"MYM": futuresInfo("MYM", "0.50", "1.0", 0),
	"RTY": futuresInfo("RTY", "5.0", "0.1", 2),
	"M2K": futuresInfo("M2K", "0.50", "0.1", 2),
	"EMD": futuresInfo("EMD", "2.5", "0.05", 2),
	"E7":  futuresInfo("E7", "0.625", "0.0001", 4),
	"J7":  futuresInfo("J7", "0.00625", "0.000001", 6),
	"GE":  futuresInfo("GE", "0.0625", "0.0025", 4),
	"GF":  futuresInfo("GF", "1.25", "0.025", 3),
	"HE":  futuresInfo("HE", "0.1", "0.0025", 4),
	"LE":  futuresInfo("LE", "1.0", "0.025", 3),
	"RF":  futuresInfo("RF", "1.25", "0.0001", 4),
	"SP":  futuresInfo("SP", "25.0", "0.1", 2),
	"GC":  futuresInfo("GC", "10.0", "0.1", 2),
	"MGC": futuresInfo("MGC", "1.0", "0.1", 2),
	"HG":  futuresInfo("HG", "0.0125", "0.0005", 4),
	"QI":  futuresInfo("QI", "0.03125", "0.0025", 4),
	"SI":  futuresInfo("SI", "0.125", "0.005", 3),
	"SIL": futuresInfo("SIL", "0.0125", "0.005", 3),
	"CL":  futuresInfo("CL", "10.0", "0.01", 2),
	"MCL": futuresInfo("MCL", "1.0", "0.01", 2),
	"HO":  futuresInfo("HO", "4.2", "0.0001", 4),
	"NG":  futuresInfo("NG", "10.0", "0.001", 3),
	"PA":  futuresInfo("PA", "5.0", "0.05", 2),
	"PL":  futuresInfo("PL", "5.0", "0.1", 2),
	"QM":  futuresInfo("QM", "5.0", "0.01", 2),
	"RB":  futuresInfo("RB", "4.2", "0.0001", 4),
	"MBT": futuresInfo("MBT", "1.25", "0.25", 2),
	"M6A": futuresInfo("M6A", "0.1", "0.0001", 4),
	"M6B": futuresInfo("M6B", "0.0625", "0.0001", 4),
	"M6E": futuresInfo("M6E", "0.125", "0.0001", 4),
	"MJY": futuresInfo("MJY", "0.00125", "0.000001", 6),
}

func futuresInfo(name, tickValue, tickSize string, accuracy int32) Info {
	return Info{
		SymbolName:      name,
		PnLCurrency:     "USD",
		TickValue:       decimal.RequireFromString(tickValue),
		TickSize:        decimal.RequireFromString(tickSize),
		DecimalAccuracy: accuracy,
	}
}

// intradayMargins mirrors INTRADAY_MARGINS: Rithmic's day-session per-
// contract margin requirement, looked up flat (no tiering) by root ticker.
var intradayMargins = map[string]decimal.Decimal{
	"MES": decimal.RequireFromString("40.00"),
	"MNQ": decimal.RequireFromString("100.00"),
	"MYM": decimal.RequireFromString("50.00"),
	"M2K": decimal.RequireFromString("50.00"),
	"ES":  decimal.RequireFromString("400.00"),
	"NQ":  decimal.RequireFromString("1000.00"),
	"YM":  decimal.RequireFromString("500.00"),
	"RTY": decimal.RequireFromString("500.00"),
	"EMD": decimal.RequireFromString("3775.00"),
	"6A":  decimal.RequireFromString("362.50"),
	"6B":  decimal.RequireFromString("475.00"),
	"6C":  decimal.RequireFromString("250.00"),
	"6E":  decimal.RequireFromString("525.00"),
	"6J":  decimal.RequireFromString("700.00"),
	"6N":  decimal.RequireFromString("350.00"),
	"6S":  decimal.RequireFromString("925.00"),
	"E7":  decimal.RequireFromString("262.50"),
	"J7":  decimal.RequireFromString("350.00"),
	"M6A": decimal.RequireFromString("36.25"),
	"M6B": decimal.RequireFromString("47.50"),
	"M6E": decimal.RequireFromString("52.50"),
	"MJY": decimal.RequireFromString("70.00"),
	"CL":  decimal.RequireFromString("1650.00"),
	"QM":  decimal.RequireFromString("825.00"),
	"MCL": decimal.RequireFromString("165.00"),
	"NG":  decimal.RequireFromString("5500.00"),
	"RB":  decimal.RequireFromString("7900.00"),
	"HO":  decimal.RequireFromString("8600.00"),
	"GC":  decimal.RequireFromString("2075.00"),
	"MGC": decimal.RequireFromString("207.50"),
	"HG":  decimal.RequireFromString("1525.00"),
	"SI":  decimal.RequireFromString("11000.00"),
	"QI":  decimal.RequireFromString("5500.00"),
	"SIL": decimal.RequireFromString("2200.00"),
	"PL":  decimal.RequireFromString("2800.00"),
}

// overnightMargins mirrors OVERNIGHT_MARGINS, the higher requirement a
// position carried past the day session is held to. Exposed for a future
// session-aware margin pass; nothing currently switches between the two.
var overnightMargins = map[string]decimal.Decimal{
	"MES": decimal.RequireFromString("1460.00"),
	"MNQ": decimal.RequireFromString("2220.00"),
	"MYM": decimal.RequireFromString("1040.00"),
	"M2K": decimal.RequireFromString("760.00"),
	"ES":  decimal.RequireFromString("14600.00"),
	"NQ":  decimal.RequireFromString("22200.00"),
	"YM":  decimal.RequireFromString("10400.00"),
	"RTY": decimal.RequireFromString("7600.00"),
	"EMD": decimal.RequireFromString("15100.00"),
	"CL":  decimal.RequireFromString("6600.00"),
	"QM":  decimal.RequireFromString("3300.00"),
	"MCL": decimal.RequireFromString("660.00"),
	"GC":  decimal.RequireFromString("10000.00"),
	"MGC": decimal.RequireFromString("1000.00"),
}

// commissionPerContract mirrors COMMISSION_PER_CONTRACT: Rithmic's
// exchange-fee-inclusive per-side, per-contract commission.
var commissionPerContract = map[string]Commission{
	"YM":  {PerSide: decimal.RequireFromString("1.90"), Currency: "USD"},
	"M2K": {PerSide: decimal.RequireFromString("0.50"), Currency: "USD"},
	"MES": {PerSide: decimal.RequireFromString("0.50"), Currency: "USD"},
	"MYM": {PerSide: decimal.RequireFromString("0.50"), Currency: "USD"},
	"ES":  {PerSide: decimal.RequireFromString("1.90"), Currency: "USD"},
	"MNQ": {PerSide: decimal.RequireFromString("0.50"), Currency: "USD"},
	"NQ":  {PerSide: decimal.RequireFromString("1.90"), Currency: "USD"},
	"EMD": {PerSide: decimal.RequireFromString("1.85"), Currency: "USD"},
	"RTY": {PerSide: decimal.RequireFromString("1.90"), Currency: "USD"},
	"VXM": {PerSide: decimal.RequireFromString("0.35"), Currency: "USD"},
	"6A":  {PerSide: decimal.RequireFromString("2.12"), Currency: "USD"},
	"6B":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"6C":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"6E":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"6J":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"6S":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"E7":  {PerSide: decimal.RequireFromString("1.38"), Currency: "USD"},
	"J7":  {PerSide: decimal.RequireFromString("1.38"), Currency: "USD"},
	"M6A": {PerSide: decimal.RequireFromString("0.39"), Currency: "USD"},
	"M6B": {PerSide: decimal.RequireFromString("0.39"), Currency: "USD"},
	"M6E": {PerSide: decimal.RequireFromString("0.39"), Currency: "USD"},
	"MJY": {PerSide: decimal.RequireFromString("0.39"), Currency: "USD"},
	"DX":  {PerSide: decimal.RequireFromString("1.88"), Currency: "USD"},
	"CL":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"MCL": {PerSide: decimal.RequireFromString("0.65"), Currency: "USD"},
	"HO":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"NG":  {PerSide: decimal.RequireFromString("2.13"), Currency: "USD"},
	"QM":  {PerSide: decimal.RequireFromString("1.73"), Currency: "USD"},
}
