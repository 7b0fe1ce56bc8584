package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/matching"
)

// Service is the ledger registry (§9's "ledger registry" process-wide
// registry): it owns every account's Actor, starting one goroutine per
// account the first time it's addressed. Service itself implements
// matching.PositionQuery so the matching engine can ask whether an account
// holds a side without knowing anything about actors or mailboxes.
type Service struct {
	mu      sync.RWMutex
	actors  map[Key]*Actor
	cancels map[Key]context.CancelFunc

	info SymbolInfoProvider
	log  *zap.Logger

	callbackTimeout time.Duration
}

// NewService builds an empty registry. info is shared by every ledger this
// service creates.
func NewService(info SymbolInfoProvider, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		actors:          make(map[Key]*Actor),
		cancels:         make(map[Key]context.CancelFunc),
		info:            info,
		log:             log,
		callbackTimeout: 2 * time.Second,
	}
}

// GetOrCreate returns the actor for key, creating and starting it (via
// Config) if this is the first time key has been addressed.
func (s *Service) GetOrCreate(key Key, cfg Config) *Actor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.actors[key]; ok {
		return a
	}

	cfg.Brokerage = key.Brokerage
	cfg.Account = key.Account
	l := New(cfg, s.info, s.log)
	a := NewActor(l, 256, s.log)

	ctx, cancel := context.WithCancel(context.Background())
	s.actors[key] = a
	s.cancels[key] = cancel
	go a.Run(ctx)

	return a
}

// Get returns the actor for key if it has already been created.
func (s *Service) Get(key Key) (*Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[key]
	return a, ok
}

// Keys returns every account currently registered.
func (s *Service) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Key, 0, len(s.actors))
	for k := range s.actors {
		out = append(out, k)
	}
	return out
}

// Shutdown cancels every actor's Run loop. It does not wait for them to
// drain; callers that need a clean stop should flatten and export first.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
}

// HasPosition implements internal/matching.PositionQuery: it answers
// whether account currently holds side for symbolCode, used only by
// ExitLong/ExitShort admission. brokerage is not part of matching's
// interface, so the lookup assumes one brokerage per account name; callers
// addressing multiple brokerages under the same account string should key
// their own Service per brokerage instead.
func (s *Service) HasPosition(account string, symbolCode basedata.SymbolCode, side matching.Side) bool {
	s.mu.RLock()
	var actor *Actor
	for k, a := range s.actors {
		if k.Account == account {
			actor = a
			break
		}
	}
	s.mu.RUnlock()
	if actor == nil {
		return false
	}

	ledgerSide := Long
	if side == matching.Sell {
		ledgerSide = Short
	}
	kind := RequestIsLong
	if ledgerSide == Short {
		kind = RequestIsShort
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.callbackTimeout)
	defer cancel()

	resp, err := actor.Callback(ctx, Request{Kind: kind, SymbolCode: symbolCode}, time.Now())
	if err != nil {
		s.log.Warn("ledger: HasPosition callback failed", zap.String("account", account), zap.Error(err))
		return false
	}
	return resp.Bool
}

var _ matching.PositionQuery = (*Service)(nil)
