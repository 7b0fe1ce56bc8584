package feedio

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/eventbus"
)

// Run drains bus.Events() and broadcasts each one to mgr's clients until
// ctx is cancelled or the bus's output channel closes.
func Run(ctx context.Context, bus *eventbus.Bus, mgr *Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-bus.Events():
			if !ok {
				return
			}
			mgr.Broadcast(e)
		}
	}
}

// Serve starts an HTTP server exposing Handler(mgr) at "/" on addr,
// returning once ctx is cancelled or ListenAndServe fails.
func Serve(ctx context.Context, addr string, mgr *Manager, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/", Handler(mgr, log))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("feedio: serve: %w", err)
		}
		return nil
	}
}
