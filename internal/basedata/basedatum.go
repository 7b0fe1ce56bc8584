package basedata

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseDatum is the tagged-variant interface implemented by Tick, Quote,
// Candle, QuoteBar, and Fundamental. Every variant carries a symbol, a
// closed-UTC timestamp, a resolution, and a base-data-type tag.
type BaseDatum interface {
	Symbol() Symbol
	TimeClosedUTC() time.Time
	Resolution() Resolution
	DataType() BaseDataType
	IsClosed() bool
}

// Tick is a single trade print.
type Tick struct {
	Sym   Symbol
	Price decimal.Decimal
	Size  decimal.Decimal
	Time  time.Time
}

func (t Tick) Symbol() Symbol             { return t.Sym }
func (t Tick) TimeClosedUTC() time.Time   { return t.Time.UTC() }
func (t Tick) Resolution() Resolution     { return Resolution{Kind: ResolutionTicks, Multiplier: 1} }
func (t Tick) DataType() BaseDataType     { return DataTypeTick }
func (t Tick) IsClosed() bool             { return true }

// Quote is a top-of-book bid/ask snapshot.
type Quote struct {
	Sym     Symbol
	Bid     decimal.Decimal
	Ask     decimal.Decimal
	BidSize decimal.Decimal
	AskSize decimal.Decimal
	Time    time.Time
}

func (q Quote) Symbol() Symbol           { return q.Sym }
func (q Quote) TimeClosedUTC() time.Time { return q.Time.UTC() }
func (q Quote) Resolution() Resolution   { return Resolution{Kind: ResolutionTicks, Multiplier: 1} }
func (q Quote) DataType() BaseDataType   { return DataTypeQuote }
func (q Quote) IsClosed() bool           { return true }

// Candle is an OHLCV bar over Res ending at TimeClosed. Only closed candles
// are persisted to the archive.
type Candle struct {
	Sym        Symbol
	Res        Resolution
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	TimeClosed time.Time
	Closed     bool
}

func (c Candle) Symbol() Symbol           { return c.Sym }
func (c Candle) TimeClosedUTC() time.Time { return c.TimeClosed.UTC() }
func (c Candle) Resolution() Resolution   { return c.Res }
func (c Candle) DataType() BaseDataType   { return DataTypeCandle }
func (c Candle) IsClosed() bool           { return c.Closed }

// QuoteBar is an OHLC bar over both bid and ask sides.
type QuoteBar struct {
	Sym                                            Symbol
	Res                                             Resolution
	BidOpen, BidHigh, BidLow, BidClose              decimal.Decimal
	AskOpen, AskHigh, AskLow, AskClose              decimal.Decimal
	Volume                                          decimal.Decimal
	TimeClosed                                      time.Time
	Closed                                          bool
}

func (q QuoteBar) Symbol() Symbol           { return q.Sym }
func (q QuoteBar) TimeClosedUTC() time.Time { return q.TimeClosed.UTC() }
func (q QuoteBar) Resolution() Resolution   { return q.Res }
func (q QuoteBar) DataType() BaseDataType   { return DataTypeQuoteBar }
func (q QuoteBar) IsClosed() bool           { return q.Closed }

// BidAskClose is used when deriving synthetic level-0 book prices from a bar
// (§4.4): bid_close/ask_close become the book's level-0 prices.
func (q QuoteBar) BidAskClose() (bid, ask decimal.Decimal) {
	return q.BidClose, q.AskClose
}

// Fundamental is a loosely typed reference-data snapshot (dividends,
// earnings, open interest, etc).
type Fundamental struct {
	Sym    Symbol
	Time   time.Time
	Fields map[string]decimal.Decimal
}

func (f Fundamental) Symbol() Symbol           { return f.Sym }
func (f Fundamental) TimeClosedUTC() time.Time { return f.Time.UTC() }
func (f Fundamental) Resolution() Resolution   { return Resolution{Kind: ResolutionDays, Multiplier: 1} }
func (f Fundamental) DataType() BaseDataType   { return DataTypeFundamental }
func (f Fundamental) IsClosed() bool           { return true }
