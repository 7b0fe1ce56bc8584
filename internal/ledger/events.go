package ledger

import (
	"time"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// RejectedEvent is emitted when UpdateOrCreatePosition's margin commit
// fails; its Reason is the margin commit's "Insufficient funds" text. The
// matching engine's own OrderRejected reasons (admission, TIF) are
// different strings.
type RejectedEvent struct {
	Brokerage  string
	Account    string
	SymbolName string
	SymbolCode basedata.SymbolCode
	OrderID    string
	Reason     string
	Tag        string
	Time       time.Time
}
