package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/marketplace"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBackend(t *testing.T) (*marketplace.Server, *httptest.Server) {
	t.Helper()
	backend := marketplace.New(marketplace.WithLogger(quietLogger()))
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv
}

func newClient(t *testing.T, url, token string) *api.Client {
	t.Helper()
	c, err := api.New(url, token, api.WithLogger(quietLogger()))
	require.NoError(t, err)
	return c
}

func strPtr(s string) *string { return &s }

func TestNew_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "::nope", "example.com"} {
		_, err := api.New(u, "tok")
		assert.Error(t, err, u)
	}
}

func TestMe(t *testing.T) {
	backend, srv := newBackend(t)
	backend.AddUser("tok", api.User{Name: "Ada", Email: "ada@example.com", City: strPtr("Springfield")})

	u, err := newClient(t, srv.URL, "tok").Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	require.NotNil(t, u.City)
	assert.Equal(t, "Springfield", *u.City)
	assert.Nil(t, u.Address)
}

func TestMe_Unauthorized(t *testing.T) {
	_, srv := newBackend(t)

	_, err := newClient(t, srv.URL, "missing").Me(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.False(t, api.IsTransient(err))

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "login required", apiErr.Message)
	assert.Equal(t, "GET /auth/me", apiErr.Op)
	assert.Equal(t, "GET /auth/me: 401 login required", err.Error())
}

func TestCartRoundTrip(t *testing.T) {
	backend, srv := newBackend(t)
	backend.AddUser("tok", api.User{Name: "Ada"})
	c := newClient(t, srv.URL, "tok")
	ctx := context.Background()

	lines, err := c.GetCart(ctx)
	require.NoError(t, err, "404 is an empty cart")
	assert.Empty(t, lines)

	v := 2
	require.NoError(t, c.PutCart(ctx, []api.CartLine{
		{ProductID: 1, VariantID: &v, Qty: 3, Title: strPtr("Tea"), Price: strPtr("2.49")},
	}))

	lines, err = c.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Qty)
	require.NotNil(t, lines[0].VariantID)
	assert.Equal(t, 2, *lines[0].VariantID)
	assert.Equal(t, "2.49", *lines[0].Price)

	require.NoError(t, c.PutCart(ctx, nil))
	lines, err = c.GetCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPutCart_Rejected(t *testing.T) {
	backend, srv := newBackend(t)
	backend.AddUser("tok", api.User{Name: "Ada"})

	err := newClient(t, srv.URL, "tok").PutCart(context.Background(), []api.CartLine{{ProductID: 1, Qty: 0}})
	require.Error(t, err)
	assert.False(t, api.IsTransient(err))

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.ErrCodeRejected, apiErr.Code)
	assert.Equal(t, "items[0]: qty must be >= 1", apiErr.Message)
}

func TestCheckout(t *testing.T) {
	backend, srv := newBackend(t)
	id := backend.AddUser("tok", api.User{Name: "Ada"})
	backend.SetCart(id, []api.CartLine{{ProductID: 1, Qty: 1}})

	resp, err := newClient(t, srv.URL, "tok").Checkout(context.Background(), api.CheckoutRequest{
		Method: "card", Address: "1 Main St", City: "Springfield", Phone: "555-0100",
	})
	require.NoError(t, err)
	assert.Equal(t, api.OrderID("1"), resp.OrderID)
}

func TestCheckout_StringOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"orderId":"A-17"}`)
	}))
	defer srv.Close()

	resp, err := newClient(t, srv.URL, "tok").Checkout(context.Background(), api.CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "A-17", resp.OrderID.String())
}

func TestCheckout_MissingOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, "tok").Checkout(context.Background(), api.CheckoutRequest{})
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.ErrCodeDecode, apiErr.Code)
}

func TestSaveProfile(t *testing.T) {
	backend, srv := newBackend(t)
	id := backend.AddUser("tok", api.User{Name: "Ada"})

	err := newClient(t, srv.URL, "tok").SaveProfile(context.Background(), api.Profile{Address: "1 Main St", City: "Springfield", Phone: "555"})
	require.NoError(t, err)

	u, _ := backend.User(id)
	assert.Equal(t, "555", *u.Phone)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status        int
		body          string
		wantCode      api.ErrorCode
		wantTransient bool
		wantMessage   string
	}{
		{http.StatusServiceUnavailable, `{"error":"maintenance"}`, api.ErrCodeServer, true, "maintenance"},
		{http.StatusTooManyRequests, ``, api.ErrCodeServer, true, ""},
		{http.StatusNotFound, `{"error":"nope"}`, api.ErrCodeNotFound, false, "nope"},
		{http.StatusBadRequest, `plain text failure`, api.ErrCodeRejected, false, "plain text failure"},
		{http.StatusConflict, `{"other":"shape"}`, api.ErrCodeRejected, false, ""},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL, "tok").Me(context.Background())
			var apiErr *api.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantTransient, api.IsTransient(err))
		})
	}
}

func TestTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(t, url, "tok").Me(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsTransient(err))
	assert.False(t, api.IsUnauthorized(err))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := api.New(srv.URL, "tok", api.WithTimeout(50*time.Millisecond), api.WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsTransient(err))
}

func TestBasePathIsPreserved(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"id":1,"name":"Ada","email":"a"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL+"/v1/", "tok").Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/v1/auth/me", gotPath)
}
