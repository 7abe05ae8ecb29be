package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/cart"
	"github.com/roach88/basket/internal/store"
)

// DefaultRedirectDelay is how long after success the order page is opened.
const DefaultRedirectDelay = 1500 * time.Millisecond

// Marketplace is the subset of the API a checkout needs.
type Marketplace interface {
	Me(ctx context.Context) (api.User, error)
	SaveProfile(ctx context.Context, p api.Profile) error
	Checkout(ctx context.Context, req api.CheckoutRequest) (api.CheckoutResponse, error)
}

// Syncer pushes the local cart to the server.
type Syncer interface {
	SyncCart(ctx context.Context) error
}

// Cart is the local cart as seen by checkout.
type Cart interface {
	Items() cart.Snapshot
	ClearCart() error
}

// Ledger records submission attempts.
type Ledger interface {
	BeginSubmission(ctx context.Context, id, fingerprint string) error
	FinishSubmission(ctx context.Context, id, status, orderID, errMsg string) error
}

// Navigator opens a client route such as /orders/17.
type Navigator interface {
	Navigate(path string)
}

// Scheduler runs f after d. The returned func cancels a pending f and
// reports whether it did.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Shipping is the delivery part of the checkout form.
type Shipping struct {
	Address string
	City    string
	Phone   string
}

// Deps are the collaborators of a Transaction. Ledger and Navigator are
// optional.
type Deps struct {
	Market    Marketplace
	Sync      Syncer
	Cart      Cart
	Ledger    Ledger
	Navigator Navigator
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithLogger sets the transaction logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transaction) {
		t.logger = l
	}
}

// WithRedirectDelay sets the delay between success and navigation.
func WithRedirectDelay(d time.Duration) Option {
	return func(t *Transaction) {
		t.redirectDelay = d
	}
}

// WithScheduler replaces the timer used for the redirect.
func WithScheduler(s Scheduler) Option {
	return func(t *Transaction) {
		t.scheduler = s
	}
}

// WithIDGenerator replaces the attempt id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Transaction) {
		t.ids = g
	}
}

// WithOnTransition registers fn to receive every status change. fn runs
// with the transaction locked and must not call back into it.
func WithOnTransition(fn func(from, to Status)) Option {
	return func(t *Transaction) {
		t.onTransition = fn
	}
}

// Transaction is one checkout attempt.
//
// Thread-safety: all methods are safe for concurrent use. Network calls run
// without the lock held.
type Transaction struct {
	deps          Deps
	logger        *slog.Logger
	redirectDelay time.Duration
	scheduler     Scheduler
	ids           IDGenerator
	onTransition  func(from, to Status)

	mu          sync.Mutex
	status      Status
	history     []Status
	closed      bool
	abandoned   bool
	inFlight    bool
	shipping    Shipping
	method      string
	saveProfile bool
	user        *api.User
	lastErr     error
	orderID     api.OrderID
	attemptID   string
	stopNav     func() bool

	background sync.WaitGroup
}

// New returns an Idle transaction.
func New(deps Deps, opts ...Option) *Transaction {
	t := &Transaction{
		deps:          deps,
		logger:        slog.Default(),
		redirectDelay: DefaultRedirectDelay,
		scheduler:     timerScheduler{},
		ids:           UUIDv7Generator{},
		status:        StatusIdle,
		history:       []Status{StatusIdle},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// transitionLocked moves to next. Caller must hold t.mu.
func (t *Transaction) transitionLocked(next Status) {
	prev := t.status
	t.status = next
	t.history = append(t.history, next)
	t.logger.Debug("checkout transition", "from", prev, "to", next)
	if t.onTransition != nil {
		t.onTransition(prev, next)
	}
}

// Begin verifies the session and pushes the local cart.
//
// A rejected session closes the transaction and returns ErrLoginRequired.
// Any other session check failure, and a push failure, passes through
// Failed back to Idle and Begin may be called again. On success the status is AwaitingMethod and
// empty shipping fields are filled from the user profile.
func (t *Transaction) Begin(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.status != StatusIdle {
		s := t.status
		t.mu.Unlock()
		return invalidState("begin", s)
	}
	t.transitionLocked(StatusVerifyingAuth)
	t.mu.Unlock()

	user, err := t.deps.Market.Me(ctx)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		t.lastErr = err
		if !api.IsUnauthorized(err) {
			t.transitionLocked(StatusFailed)
			t.transitionLocked(StatusIdle)
			t.mu.Unlock()
			t.logger.Warn("verify session failed", "error", err, "transient", api.IsTransient(err))
			return fmt.Errorf("begin: verify session: %w", err)
		}
		t.closed = true
		t.transitionLocked(StatusIdle)
		t.mu.Unlock()
		t.logger.Info("checkout needs login", "error", err)
		return fmt.Errorf("begin: %w: %w", ErrLoginRequired, err)
	}
	t.user = &user
	t.prefillLocked(user)
	t.transitionLocked(StatusSyncingCart)
	t.mu.Unlock()

	err = t.deps.Sync.SyncCart(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if err != nil {
		t.lastErr = err
		t.transitionLocked(StatusFailed)
		t.transitionLocked(StatusIdle)
		return fmt.Errorf("begin: %w", err)
	}
	t.lastErr = nil
	t.transitionLocked(StatusAwaitingMethod)
	return nil
}

func (t *Transaction) prefillLocked(u api.User) {
	fill := func(dst *string, src *string) {
		if strings.TrimSpace(*dst) == "" && src != nil {
			*dst = *src
		}
	}
	fill(&t.shipping.Address, u.Address)
	fill(&t.shipping.City, u.City)
	fill(&t.shipping.Phone, u.Phone)
}

// SetShipping replaces the shipping fields.
func (t *Transaction) SetShipping(s Shipping) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked("set shipping"); err != nil {
		return err
	}
	t.shipping = s
	return nil
}

// SetPaymentMethod sets the payment method, e.g. "card" or "cash".
func (t *Transaction) SetPaymentMethod(method string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked("set payment method"); err != nil {
		return err
	}
	t.method = method
	return nil
}

// SetSaveProfile controls whether PlaceOrder also stores the shipping
// fields on the user profile.
func (t *Transaction) SetSaveProfile(save bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked("set save profile"); err != nil {
		return err
	}
	t.saveProfile = save
	return nil
}

func (t *Transaction) editableLocked(op string) error {
	if t.closed {
		return ErrClosed
	}
	switch t.status {
	case StatusSubmitting, StatusSucceeded:
		return invalidState(op, t.status)
	}
	return nil
}

// Validate reports the fields that must be filled before PlaceOrder. It
// has no side effects and may be called in any status.
func (t *Transaction) Validate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validateLocked()
}

func (t *Transaction) validateLocked() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"address", t.shipping.Address},
		{"city", t.shipping.City},
		{"phone", t.shipping.Phone},
		{"payment method", t.method},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Code: ErrCodeMissingFields, Fields: missing}
	}
	if len(t.deps.Cart.Items()) == 0 {
		return &ValidationError{Code: ErrCodeEmptyCart}
	}
	return nil
}

// PlaceOrder submits the order.
//
// Only one submission runs per transaction; a concurrent call returns
// ErrSubmissionInFlight without contacting the server. The local cart is
// pushed again before the order call so the server orders the lines being
// submitted, and no order is placed if that push fails. Both calls are
// detached from ctx cancellation so their outcome is always observed. On
// success the cart is cleared and a redirect to the order page is
// scheduled. On failure the status returns to AwaitingMethod with the cart
// and form kept, and the error is returned.
func (t *Transaction) PlaceOrder(ctx context.Context) (api.OrderID, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrClosed
	}
	if t.inFlight {
		t.mu.Unlock()
		return "", ErrSubmissionInFlight
	}
	if t.status != StatusAwaitingMethod {
		s := t.status
		t.mu.Unlock()
		return "", invalidState("place order", s)
	}
	if err := t.validateLocked(); err != nil {
		t.mu.Unlock()
		return "", err
	}

	t.inFlight = true
	t.lastErr = nil
	t.attemptID = t.ids.Generate()
	t.transitionLocked(StatusSubmitting)

	attemptID := t.attemptID
	items := t.deps.Cart.Items()
	req := api.CheckoutRequest{
		Method:  t.method,
		Address: t.shipping.Address,
		City:    t.shipping.City,
		Phone:   t.shipping.Phone,
	}
	saveProfile := t.saveProfile
	t.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	logger := t.logger.With("attempt_id", attemptID)

	t.recordBegin(detached, logger, attemptID, items, req)

	if saveProfile {
		t.background.Add(1)
		go func() {
			defer t.background.Done()
			p := api.Profile{Address: req.Address, City: req.City, Phone: req.Phone}
			if err := t.deps.Market.SaveProfile(detached, p); err != nil {
				logger.Warn("save profile failed", "error", err)
			}
		}()
	}

	var resp api.CheckoutResponse
	err := t.deps.Sync.SyncCart(detached)
	if err == nil {
		logger.Info("submitting order", "items", len(items), "units", items.Units(), "method", req.Method)
		resp, err = t.deps.Market.Checkout(detached, req)
	}

	if err != nil {
		t.recordFinish(detached, logger, attemptID, store.StatusFailed, "", err.Error())
	} else {
		t.recordFinish(detached, logger, attemptID, store.StatusSucceeded, resp.OrderID.String(), "")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight = false

	if err != nil {
		t.lastErr = err
		t.transitionLocked(StatusFailed)
		t.transitionLocked(StatusAwaitingMethod)
		if t.abandoned {
			t.closed = true
		}
		logger.Error("order failed", "error", err, "transient", api.IsTransient(err))
		return "", fmt.Errorf("place order: %w", err)
	}

	t.orderID = resp.OrderID
	t.transitionLocked(StatusSucceeded)
	logger.Info("order placed", "order_id", resp.OrderID)

	if cerr := t.deps.Cart.ClearCart(); cerr != nil {
		logger.Error("clear cart after order failed", "order_id", resp.OrderID, "error", cerr)
	}

	if t.abandoned {
		t.closed = true
		return resp.OrderID, nil
	}
	if t.deps.Navigator != nil {
		path := "/orders/" + resp.OrderID.String()
		nav := t.deps.Navigator
		t.stopNav = t.scheduler.AfterFunc(t.redirectDelay, func() {
			nav.Navigate(path)
		})
	}
	return resp.OrderID, nil
}

func (t *Transaction) recordBegin(ctx context.Context, logger *slog.Logger, id string, items cart.Snapshot, req api.CheckoutRequest) {
	if t.deps.Ledger == nil {
		return
	}
	fp, err := Fingerprint(items, req)
	if err == nil {
		err = t.deps.Ledger.BeginSubmission(ctx, id, fp)
	}
	if err != nil {
		logger.Warn("ledger write failed", "error", err)
	}
}

func (t *Transaction) recordFinish(ctx context.Context, logger *slog.Logger, id, status, orderID, errMsg string) {
	if t.deps.Ledger == nil {
		return
	}
	if err := t.deps.Ledger.FinishSubmission(ctx, id, status, orderID, errMsg); err != nil {
		logger.Warn("ledger write failed", "error", err)
	}
}

// Abandon records that the user navigated away. Outside Submitting the
// transaction closes at once and any pending redirect is cancelled. During
// Submitting the outcome is still applied when it arrives, but no redirect
// is scheduled.
func (t *Transaction) Abandon() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.abandoned = true
	if t.status == StatusSubmitting {
		return
	}
	if t.stopNav != nil {
		t.stopNav()
		t.stopNav = nil
	}
	if t.closed {
		return
	}
	t.closed = true
	switch t.status {
	case StatusVerifyingAuth, StatusSyncingCart, StatusAwaitingMethod, StatusFailed:
		t.transitionLocked(StatusIdle)
	}
}

// Wait blocks until detached background work, such as the profile save,
// has finished.
func (t *Transaction) Wait() {
	t.background.Wait()
}

// Status returns the current status.
func (t *Transaction) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// History returns every status traversed, starting with Idle.
func (t *Transaction) History() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Status(nil), t.history...)
}

// Shipping returns the current shipping fields.
func (t *Transaction) Shipping() Shipping {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shipping
}

// PaymentMethod returns the selected payment method.
func (t *Transaction) PaymentMethod() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.method
}

// User returns the authenticated user once VerifyingAuth has passed.
func (t *Transaction) User() (api.User, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.user == nil {
		return api.User{}, false
	}
	return *t.user, true
}

// Err returns the error attached by the last failed step, if any.
func (t *Transaction) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// OrderID returns the placed order id after success.
func (t *Transaction) OrderID() (api.OrderID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orderID, t.orderID != ""
}

// AttemptID returns the id of the latest submission attempt.
func (t *Transaction) AttemptID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attemptID
}

// Closed reports whether the transaction no longer accepts operations.
func (t *Transaction) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// IsLoginRequired returns true if err came from a failed auth check.
func IsLoginRequired(err error) bool {
	return errors.Is(err, ErrLoginRequired)
}
