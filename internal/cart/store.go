package cart

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/basket/internal/pricing"
)

// Store is the single in-process container of cart state.
//
// Every mutation is applied to a copy, written to Storage, and only then
// made visible. A failed write leaves the in-memory cart untouched and
// returns the error, so memory and disk never disagree.
//
// Thread-safety: all methods are safe for concurrent use. Subscribers are
// called after the lock is released, in subscription order.
type Store struct {
	mu      sync.Mutex
	storage Storage
	items   Snapshot
	open    bool
	logger  *slog.Logger

	subs    map[int]func(Snapshot)
	subSeq  int
	subKeys []int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open rehydrates a Store from storage. A missing key yields an empty cart.
func Open(ctx context.Context, storage Storage, opts ...Option) (*Store, error) {
	s := &Store{
		storage: storage,
		items:   Snapshot{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, ok, err := storage.Load(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}
	if ok {
		items, err := decodeSnapshot(data)
		if err != nil {
			return nil, fmt.Errorf("open cart: %w", err)
		}
		s.items = items
	}

	s.logger.Debug("cart rehydrated", "items", len(s.items), "units", s.items.Units())
	return s, nil
}

// Items returns a copy of the current snapshot.
func (s *Store) Items() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Count returns the total number of units.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Units()
}

// TotalPrice returns Σ price × qty recomputed from the current items.
func (s *Store) TotalPrice() (apd.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.Total(s.items)
}

// Add adds one unit of p.
func (s *Store) Add(p Product) error {
	return s.AddToCart(p, 1)
}

// AddToCart adds qty units of p. An existing line has its quantity
// increased and keeps its original price snapshot.
func (s *Store) AddToCart(p Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if p.ProductID <= 0 {
		return ErrInvalidProduct
	}

	return s.mutate("add", func(cur Snapshot) (Snapshot, bool) {
		next := cur.Clone()
		if i := next.Index(p.Key()); i >= 0 {
			next[i].Qty += qty
			return next, true
		}
		return append(next, newItem(p, qty)), true
	})
}

// RemoveFromCart removes the line for key. Absent keys are a no-op.
func (s *Store) RemoveFromCart(key Key) error {
	return s.mutate("remove", func(cur Snapshot) (Snapshot, bool) {
		i := cur.Index(key)
		if i < 0 {
			return nil, false
		}
		next := make(Snapshot, 0, len(cur)-1)
		next = append(next, cur[:i].Clone()...)
		next = append(next, cur[i+1:].Clone()...)
		return next, true
	})
}

// UpdateQty sets the quantity for key exactly. qty < 1 removes the line.
// Absent keys are a no-op.
func (s *Store) UpdateQty(key Key, qty int) error {
	if qty < 1 {
		return s.RemoveFromCart(key)
	}
	return s.mutate("update", func(cur Snapshot) (Snapshot, bool) {
		i := cur.Index(key)
		if i < 0 || cur[i].Qty == qty {
			return nil, false
		}
		next := cur.Clone()
		next[i].Qty = qty
		return next, true
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart() error {
	return s.mutate("clear", func(cur Snapshot) (Snapshot, bool) {
		if len(cur) == 0 {
			return nil, false
		}
		return Snapshot{}, true
	})
}

// MergeRemote merges remote into the cart as it is at call time, using
// Merge semantics. It returns the resulting snapshot.
func (s *Store) MergeRemote(remote Snapshot) (Snapshot, error) {
	err := s.mutate("merge", func(cur Snapshot) (Snapshot, bool) {
		if remote.Units() == 0 {
			return nil, false
		}
		return Merge(cur, remote), true
	})
	if err != nil {
		return nil, err
	}
	return s.Items(), nil
}

// ToggleOpen flips the drawer visibility flag and returns the new value.
// The flag is presentation state and is never persisted.
func (s *Store) ToggleOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	return s.open
}

// IsOpen reports the drawer visibility flag.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Subscribe registers fn to receive a copy of the snapshot after every
// successful mutation. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subSeq++
	id := s.subSeq
	s.subs[id] = fn
	s.subKeys = append(s.subKeys, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// mutate applies change to the current snapshot, persists the result and
// publishes it. change returns ok=false for a no-op.
func (s *Store) mutate(op string, change func(cur Snapshot) (Snapshot, bool)) error {
	s.mu.Lock()

	next, ok := change(s.items)
	if !ok {
		s.mu.Unlock()
		return nil
	}

	data, err := encodeSnapshot(next)
	if err == nil {
		err = s.storage.Save(context.Background(), StorageKey, data)
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("cart write failed", "op", op, "error", err)
		return fmt.Errorf("%s: persist cart: %w", op, err)
	}

	s.items = next
	listeners := s.listenersLocked()
	published := next.Clone()
	s.mu.Unlock()

	s.logger.Debug("cart updated", "op", op, "items", len(published), "units", published.Units())
	for _, fn := range listeners {
		fn(published.Clone())
	}
	return nil
}

// listenersLocked returns live subscribers in subscription order and
// compacts the order list. Caller must hold s.mu.
func (s *Store) listenersLocked() []func(Snapshot) {
	keys := s.subKeys[:0]
	out := make([]func(Snapshot), 0, len(s.subs))
	for _, id := range s.subKeys {
		if fn, ok := s.subs[id]; ok {
			keys = append(keys, id)
			out = append(out, fn)
		}
	}
	s.subKeys = keys
	return out
}
