package ledger

// Mode selects which ledger behaviors apply: backtest and paper trading
// simulate fills, margin and PnL locally; live mirrors broker-reported
// state instead of computing it (§4.8's repeated "non-live modes" carve-
// outs for margin, cash_value and booked PnL accounting).
type Mode int

const (
	Backtest Mode = iota
	LivePaperTrading
	Live
)

func (m Mode) String() string {
	switch m {
	case Backtest:
		return "Backtest"
	case LivePaperTrading:
		return "LivePaperTrading"
	case Live:
		return "Live"
	default:
		return "Unknown"
	}
}

// simulatesLocally reports whether the ledger computes margin, cash, and
// booked PnL itself rather than mirroring an external account feed.
func (m Mode) simulatesLocally() bool {
	return m != Live
}
