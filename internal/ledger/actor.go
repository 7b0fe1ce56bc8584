package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// MessageKind tags the variant carried by a Message, per §9's "tagged
// variants... replace any runtime dispatch" design note and §4.8's
// enumerated inbox.
type MessageKind int

const (
	MsgTimeSlice MessageKind = iota
	MsgFill
	MsgCallback
	MsgFlattenAccount
	MsgPrintLedger
	MsgExportTrades
)

// FillResult is the response to a MsgFill, delivered on the Message's
// FillResult channel when non-nil.
type FillResult struct {
	Events   []PositionEvent
	Rejected *RejectedEvent
}

// Message is one inbox entry. Only the fields relevant to Kind are read;
// the three response channels (FillResult, Respond, Done) are left nil by
// fire-and-forget callers who don't need to wait on the outcome.
type Message struct {
	Kind MessageKind

	Slice []basedata.BaseDatum // MsgTimeSlice
	Time  time.Time            // MsgTimeSlice, MsgFlattenAccount, MsgExportTrades

	Fill       FillIntake       // MsgFill
	FillResult chan FillResult  // MsgFill, optional

	Request Request        // MsgCallback
	Respond chan Response  // MsgCallback

	Prices map[string]decimal.Decimal // MsgFlattenAccount

	Dir       string     // MsgExportTrades
	ExportErr chan error // MsgExportTrades, optional

	PrintResult chan string // MsgPrintLedger, optional
}

// Actor serializes every mutation of one Ledger through a single goroutine
// and a bounded mailbox, per §5's "the ledger is an actor... all per-
// account mutations are single-threaded" concurrency model.
type Actor struct {
	ledger *Ledger
	inbox  chan Message
	log    *zap.Logger
}

// NewActor wraps ledger in an Actor with a bounded inbox of the given
// depth. Run must be started for messages to be processed.
func NewActor(l *Ledger, inboxDepth int, log *zap.Logger) *Actor {
	if inboxDepth <= 0 {
		inboxDepth = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Actor{ledger: l, inbox: make(chan Message, inboxDepth), log: log}
}

// Key identifies the actor's (brokerage, account) pair.
func (a *Actor) Key() Key { return Key{Brokerage: a.ledger.Brokerage, Account: a.ledger.Account} }

// Run processes messages until ctx is cancelled. It is the actor's single
// owning goroutine; Ledger's methods must never be called from elsewhere.
func (a *Actor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-a.inbox:
			if !ok {
				return
			}
			a.handle(msg)
		}
	}
}

func (a *Actor) handle(msg Message) {
	switch msg.Kind {
	case MsgTimeSlice:
		a.ledger.TimesliceUpdate(msg.Slice, msg.Time)

	case MsgFill:
		events, rejected := a.ledger.UpdateOrCreatePosition(msg.Fill)
		if msg.FillResult != nil {
			msg.FillResult <- FillResult{Events: events, Rejected: rejected}
		}

	case MsgCallback:
		if msg.Respond != nil {
			msg.Respond <- a.ledger.Answer(msg.Request, msg.Time)
		}

	case MsgFlattenAccount:
		a.ledger.FlattenAccount(msg.Time, msg.Prices)

	case MsgPrintLedger:
		s := a.ledger.Print()
		a.log.Info("ledger", zap.String("summary", s))
		if msg.PrintResult != nil {
			msg.PrintResult <- s
		}

	case MsgExportTrades:
		err := a.ledger.ExportTrades(msg.Dir, msg.Time)
		if msg.ExportErr != nil {
			msg.ExportErr <- err
		} else if err != nil {
			a.log.Error("ledger: export failed", zap.Error(err))
		}
	}
}

// send delivers msg to the inbox, respecting ctx for backpressure.
func (a *Actor) send(ctx context.Context, msg Message) error {
	select {
	case a.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitFill sends a fill for intake and waits for the resulting position
// events (or a margin rejection).
func (a *Actor) SubmitFill(ctx context.Context, fill FillIntake) (FillResult, error) {
	result := make(chan FillResult, 1)
	if err := a.send(ctx, Message{Kind: MsgFill, Fill: fill, FillResult: result}); err != nil {
		return FillResult{}, err
	}
	select {
	case r := <-result:
		return r, nil
	case <-ctx.Done():
		return FillResult{}, ctx.Err()
	}
}

// TimeSlice enqueues a mark-to-market pass. Fire-and-forget: callers that
// need ordering relative to a later message rely on the inbox's FIFO
// delivery, not a response.
func (a *Actor) TimeSlice(ctx context.Context, slice []basedata.BaseDatum, at time.Time) error {
	return a.send(ctx, Message{Kind: MsgTimeSlice, Slice: slice, Time: at})
}

// Callback runs a synchronous query against the actor's ledger state. at is
// only read for RequestPaperExit, which needs a close timestamp; every
// other request kind ignores it.
func (a *Actor) Callback(ctx context.Context, req Request, at time.Time) (Response, error) {
	respond := make(chan Response, 1)
	if err := a.send(ctx, Message{Kind: MsgCallback, Request: req, Time: at, Respond: respond}); err != nil {
		return Response{}, err
	}
	select {
	case r := <-respond:
		return r, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// FlattenAccount enqueues a flatten-all pass using prices as the per-symbol
// exit price snapshot.
func (a *Actor) FlattenAccount(ctx context.Context, at time.Time, prices map[string]decimal.Decimal) error {
	return a.send(ctx, Message{Kind: MsgFlattenAccount, Time: at, Prices: prices})
}

// PrintLedger requests the summary line and waits for it.
func (a *Actor) PrintLedger(ctx context.Context) (string, error) {
	result := make(chan string, 1)
	if err := a.send(ctx, Message{Kind: MsgPrintLedger, PrintResult: result}); err != nil {
		return "", err
	}
	select {
	case s := <-result:
		return s, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ExportTrades requests a CSV export and waits for the result.
func (a *Actor) ExportTrades(ctx context.Context, dir string, at time.Time) error {
	errc := make(chan error, 1)
	if err := a.send(ctx, Message{Kind: MsgExportTrades, Dir: dir, Time: at, ExportErr: errc}); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Key identifies one ledger actor by its (brokerage, account) pair.
type Key struct {
	Brokerage string
	Account   string
}

func (k Key) String() string { return fmt.Sprintf("%s/%s", k.Brokerage, k.Account) }
