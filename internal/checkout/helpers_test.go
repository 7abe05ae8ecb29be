package checkout

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/canonical"
	"github.com/roach88/basket/internal/cart"
	"github.com/roach88/basket/internal/marketplace"
	"github.com/roach88/basket/internal/pricing"
	"github.com/roach88/basket/internal/store"
	"github.com/roach88/basket/internal/syncer"
	"github.com/roach88/basket/internal/testutil"
)

const (
	testToken     = "tok"
	redirectDelay = 2 * time.Second
)

type harness struct {
	backend *marketplace.Server
	userID  int
	url     string
	db      *store.Store
	cart    *cart.Store
	client  *api.Client
	engine  *syncer.Engine
	clock   *testutil.ManualClock
	nav     *testutil.RecordingNavigator
	seen    []Status
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithToken(t, testToken)
}

func newHarnessWithToken(t *testing.T, token string) *harness {
	t.Helper()
	backend := marketplace.New(marketplace.WithLogger(quietLogger()))
	id := backend.AddUser(testToken, api.User{Name: "Ada", Email: "ada@example.com"})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	db, err := store.Open(filepath.Join(t.TempDir(), "basket.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c, err := cart.Open(context.Background(), db, cart.WithLogger(quietLogger()))
	require.NoError(t, err)

	client, err := api.New(srv.URL, token, api.WithLogger(quietLogger()))
	require.NoError(t, err)

	engine := syncer.New(c, client, db, canonical.SessionKey(token), syncer.WithLogger(quietLogger()))

	return &harness{
		backend: backend,
		userID:  id,
		url:     srv.URL,
		db:      db,
		cart:    c,
		client:  client,
		engine:  engine,
		clock:   testutil.NewManualClock(),
		nav:     &testutil.RecordingNavigator{},
	}
}

func (h *harness) newTransaction(ids ...string) *Transaction {
	if len(ids) == 0 {
		ids = []string{"attempt-1", "attempt-2", "attempt-3"}
	}
	return New(Deps{
		Market:    h.client,
		Sync:      h.engine,
		Cart:      h.cart,
		Ledger:    h.db,
		Navigator: h.nav,
	},
		WithLogger(quietLogger()),
		WithRedirectDelay(redirectDelay),
		WithScheduler(h.clock),
		WithIDGenerator(NewFixedGenerator(ids...)),
		WithOnTransition(func(_, to Status) { h.seen = append(h.seen, to) }),
	)
}

func (h *harness) addProduct(t *testing.T, id int, price string, qty int) {
	t.Helper()
	p, err := pricing.ParsePrice(price)
	require.NoError(t, err)
	require.NoError(t, h.cart.AddToCart(cart.Product{ProductID: id, Title: "product", Price: p}, qty))
}

// ready returns a transaction in AwaitingMethod with a complete form.
func (h *harness) ready(t *testing.T) *Transaction {
	t.Helper()
	h.addProduct(t, 1, "10", 2)
	tx := h.newTransaction()
	require.NoError(t, tx.Begin(context.Background()))
	require.NoError(t, tx.SetShipping(Shipping{Address: "1 Main St", City: "Springfield", Phone: "555-0100"}))
	require.NoError(t, tx.SetPaymentMethod("card"))
	return tx
}

func strPtr(s string) *string { return &s }
