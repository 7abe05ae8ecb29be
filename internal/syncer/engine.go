package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/cart"
)

// State is the reconciliation state of a session.
type State string

const (
	// StateLocal means the server cart has not been merged this session.
	StateLocal State = "local"

	// StateReconciled means the one merge of this session has happened.
	StateReconciled State = "reconciled"
)

// Remote is the server side of the cart.
type Remote interface {
	GetCart(ctx context.Context) ([]api.CartLine, error)
	PutCart(ctx context.Context, lines []api.CartLine) error
}

// StateStore persists State per session. A missing row is StateLocal.
type StateStore interface {
	LoadSyncState(ctx context.Context, session string) (string, bool, error)
	SaveSyncState(ctx context.Context, session, state string) error
	DeleteSyncState(ctx context.Context, session string) error
}

// Engine runs FetchCart and SyncCart for one session.
//
// Thread-safety: FetchCart, Reset and State are serialized; SyncCart may
// run concurrently with them.
type Engine struct {
	mu         sync.Mutex
	cart       *cart.Store
	remote     Remote
	states     StateStore
	session    string
	reconciled bool
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New returns an Engine for session, usually canonical.SessionKey(token).
func New(c *cart.Store, remote Remote, states StateStore, session string, opts ...Option) *Engine {
	e := &Engine{
		cart:    c,
		remote:  remote,
		states:  states,
		session: session,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the session's current state.
func (e *Engine) State(ctx context.Context) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(ctx)
}

func (e *Engine) stateLocked(ctx context.Context) (State, error) {
	if e.reconciled {
		return StateReconciled, nil
	}
	raw, ok, err := e.states.LoadSyncState(ctx, e.session)
	if err != nil {
		return "", fmt.Errorf("sync state: %w", err)
	}
	if ok && State(raw) == StateReconciled {
		e.reconciled = true
		return StateReconciled, nil
	}
	return StateLocal, nil
}

// FetchCart pulls the server cart and merges it into the local cart.
//
// It reports pulled=false without contacting the server once the session is
// reconciled. On failure the cart and the state are left untouched, the
// failure is logged at warn level and returned; the next call retries.
// The merge is applied to the cart as it is when the response arrives, so
// mutations made while the request was in flight are kept.
func (e *Engine) FetchCart(ctx context.Context) (pulled bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.stateLocked(ctx)
	if err != nil {
		e.logger.Warn("fetch cart skipped", "error", err)
		return false, fmt.Errorf("fetch cart: %w", err)
	}
	if state == StateReconciled {
		e.logger.Debug("fetch cart skipped", "reason", "already reconciled")
		return false, nil
	}

	lines, err := e.remote.GetCart(ctx)
	if err != nil {
		e.logger.Warn("fetch cart failed", "error", err, "transient", api.IsTransient(err))
		return false, fmt.Errorf("fetch cart: %w", err)
	}

	remote, dropped := FromLines(lines)
	if len(dropped) > 0 {
		e.logger.Warn("fetch cart dropped invalid lines", "indexes", dropped)
	}

	merged, err := e.cart.MergeRemote(remote)
	if err != nil {
		e.logger.Warn("fetch cart merge failed", "error", err)
		return false, fmt.Errorf("fetch cart: %w", err)
	}
	e.reconciled = true

	if err := e.states.SaveSyncState(ctx, e.session, string(StateReconciled)); err != nil {
		// The merge is applied; this process will not merge again, but a
		// later process sharing the token might.
		e.logger.Error("fetch cart: persist sync state failed", "error", err)
		return true, fmt.Errorf("fetch cart: %w", err)
	}

	e.logger.Info("cart reconciled",
		"remote_lines", len(remote),
		"items", len(merged),
		"units", merged.Units(),
	)
	return true, nil
}

// SyncCart replaces the server cart with the local snapshot.
func (e *Engine) SyncCart(ctx context.Context) error {
	items := e.cart.Items()
	if err := e.remote.PutCart(ctx, ToLines(items)); err != nil {
		e.logger.Error("sync cart failed", "error", err)
		return fmt.Errorf("sync cart: %w", err)
	}
	e.logger.Debug("cart pushed", "items", len(items), "units", items.Units())
	return nil
}

// Reset returns the session to StateLocal, e.g. on logout.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.states.DeleteSyncState(ctx, e.session); err != nil {
		return fmt.Errorf("reset sync state: %w", err)
	}
	e.reconciled = false
	return nil
}
