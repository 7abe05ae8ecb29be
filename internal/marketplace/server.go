package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/basket/internal/api"
)

// Order is a placed order.
type Order struct {
	ID      int            `json:"id"`
	UserID  int            `json:"userId"`
	Items   []api.CartLine `json:"items"`
	Method  string         `json:"method"`
	Address string         `json:"address"`
	City    string         `json:"city"`
	Phone   string         `json:"phone"`
}

// Fault makes a route answer with Status and Message instead of running.
// Times is the number of requests affected; 0 means until cleared.
type Fault struct {
	Status  int
	Message string
	Times   int
}

// Server holds users, carts and orders in memory.
// All methods are safe for concurrent use.
type Server struct {
	mu       sync.RWMutex
	users    map[int]api.User
	tokens   map[string]int
	carts    map[int][]api.CartLine
	orders   []Order
	faults   map[string]*Fault
	calls    map[string]int
	onOrder  func(ctx context.Context)
	nextUser int
	logger   *slog.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New returns an empty Server.
func New(opts ...Option) *Server {
	s := &Server{
		users:    make(map[int]api.User),
		tokens:   make(map[string]int),
		carts:    make(map[int][]api.CartLine),
		faults:   make(map[string]*Fault),
		calls:    make(map[string]int),
		nextUser: 1,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.injectFaults)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", s.handleMe)
		r.Put("/auth/profile", s.handleSaveProfile)
		r.Get("/cart", s.handleGetCart)
		r.Put("/cart", s.handlePutCart)
		r.Post("/orders/checkout", s.handleCheckout)
		r.Get("/orders/{id}", s.handleGetOrder)
	})
	return r
}

// AddUser registers u under token and returns the assigned user id.
// A zero u.ID is replaced with the next free id.
func (s *Server) AddUser(token string, u api.User) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextUser
	}
	if u.ID >= s.nextUser {
		s.nextUser = u.ID + 1
	}
	s.users[u.ID] = u
	s.tokens[token] = u.ID
	return u.ID
}

// SetCart replaces the server cart of userID.
func (s *Server) SetCart(userID int, lines []api.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = cloneLines(lines)
}

// Cart returns the server cart of userID and whether one exists.
func (s *Server) Cart(userID int) ([]api.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines, ok := s.carts[userID]
	return cloneLines(lines), ok
}

// User returns the stored user.
func (s *Server) User(userID int) (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

// Orders returns every placed order in creation order.
func (s *Server) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, len(s.orders))
	for i, o := range s.orders {
		o.Items = cloneLines(o.Items)
		out[i] = o
	}
	return out
}

// Calls returns how many requests reached route, e.g. "POST /orders/checkout",
// including ones answered by a fault.
func (s *Server) Calls(route string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[route]
}

// InjectFault makes route fail with f until f.Times requests are consumed.
func (s *Server) InjectFault(route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = &f
}

// ClearFaults removes every injected fault.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]*Fault)
}

// OnOrder registers fn to run inside POST /orders/checkout after
// validation and before the order is created. Tests use it to hold a
// submission open.
func (s *Server) OnOrder(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOrder = fn
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("marketplace request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.calls[route]++
		f, ok := s.faults[route]
		var fault Fault
		if ok {
			fault = *f
			if f.Times > 0 {
				f.Times--
				if f.Times == 0 {
					delete(s.faults, route)
				}
			}
		}
		s.mu.Unlock()

		if ok {
			writeError(w, fault.Status, fault.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func cloneLines(lines []api.CartLine) []api.CartLine {
	if lines == nil {
		return nil
	}
	out := make([]api.CartLine, len(lines))
	for i, l := range lines {
		l.VariantID = clonePtr(l.VariantID)
		l.Title = clonePtr(l.Title)
		l.Price = clonePtr(l.Price)
		l.Image = clonePtr(l.Image)
		out[i] = l
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
