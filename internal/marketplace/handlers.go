package marketplace

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/basket/internal/api"
)

type ctxKey struct{}

func userIDFrom(ctx context.Context) int {
	id, _ := ctx.Value(ctxKey{}).(int)
	return id
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		id, ok := s.tokens[bearerToken(r)]
		s.mu.RUnlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.User(userIDFrom(r.Context()))
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var p api.Profile
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	id := userIDFrom(r.Context())
	s.mu.Lock()
	u := s.users[id]
	u.Address = optional(p.Address)
	u.City = optional(p.City)
	u.Phone = optional(p.Phone)
	s.users[id] = u
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	lines, ok := s.Cart(userIDFrom(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	if lines == nil {
		lines = []api.CartLine{}
	}
	writeJSON(w, http.StatusOK, api.CartPayload{Items: lines})
}

func (s *Server) handlePutCart(w http.ResponseWriter, r *http.Request) {
	var p api.CartPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	for i, l := range p.Items {
		if l.ProductID <= 0 {
			writeError(w, http.StatusBadRequest, "items["+strconv.Itoa(i)+"]: productId must be > 0")
			return
		}
		if l.Qty < 1 {
			writeError(w, http.StatusBadRequest, "items["+strconv.Itoa(i)+"]: qty must be >= 1")
			return
		}
	}
	if p.Items == nil {
		p.Items = []api.CartLine{}
	}

	s.SetCart(userIDFrom(r.Context()), p.Items)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req api.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if missing := missingCheckoutFields(req); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing "+strings.Join(missing, ", "))
		return
	}

	s.mu.RLock()
	hook := s.onOrder
	s.mu.RUnlock()
	if hook != nil {
		hook(r.Context())
	}

	id := userIDFrom(r.Context())
	s.mu.Lock()
	lines := s.carts[id]
	if len(lines) == 0 {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}
	order := Order{
		ID:      len(s.orders) + 1,
		UserID:  id,
		Items:   cloneLines(lines),
		Method:  req.Method,
		Address: req.Address,
		City:    req.City,
		Phone:   req.Phone,
	}
	s.orders = append(s.orders, order)
	s.carts[id] = []api.CartLine{}
	s.mu.Unlock()

	s.logger.Info("order placed", "order_id", order.ID, "user_id", id, "lines", len(order.Items))
	writeJSON(w, http.StatusCreated, map[string]any{"orderId": order.ID})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || orderID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	id := userIDFrom(r.Context())
	for _, o := range s.Orders() {
		if o.ID == orderID && o.UserID == id {
			writeJSON(w, http.StatusOK, o)
			return
		}
	}
	writeError(w, http.StatusNotFound, "order not found")
}

func missingCheckoutFields(req api.CheckoutRequest) []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"method", req.Method},
		{"address", req.Address},
		{"city", req.City},
		{"phone", req.Phone},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
