package cli

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/marketplace"
)

var shippingArgs = []string{"--method", "card", "--address", "1 Main St", "--city", "Almaty", "--phone", "555-0100"}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	e := newCLIEnv(t)
	seedCart(e)

	out := e.mustRunAuth(append([]string{"checkout"}, shippingArgs...)...)
	assert.Equal(t, "order 1 placed\nredirect /orders/1\n", out)

	orders := e.backend.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, e.userID, orders[0].UserID)
	assert.Equal(t, "card", orders[0].Method)
	assert.Equal(t, "Almaty", orders[0].City)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, 2, orders[0].Items[0].Qty)

	assert.Equal(t, "cart is empty\n", e.mustRun("show"))

	hist := decodeData[[]SubmissionView](t, e.mustRun("--format", "json", "history"))
	require.Len(t, hist, 1)
	assert.Equal(t, int64(1), hist[0].Seq)
	assert.Equal(t, "succeeded", hist[0].Status)
	assert.Equal(t, "1", hist[0].OrderID)
	assert.NotEmpty(t, hist[0].ID)
	assert.NotEmpty(t, hist[0].Fingerprint)
}

func TestCheckoutJSON(t *testing.T) {
	e := newCLIEnv(t)
	seedCart(e)

	out := e.mustRunAuth(append([]string{"--format", "json", "checkout"}, shippingArgs...)...)
	res := decodeData[CheckoutResult](t, out)
	assert.Equal(t, "1", res.OrderID)
	assert.Equal(t, "/orders/1", res.Redirect)
	assert.NotEmpty(t, res.AttemptID)
}

func TestCheckoutMergesServerCartFirst(t *testing.T) {
	e := newCLIEnv(t)
	e.backend.SetCart(e.userID, []api.CartLine{{ProductID: 9, Qty: 1, Title: strPtr("Eggs"), Price: strPtr("4")}})
	e.mustRun("add", "1", "--title", "Apples", "--price", "2.50")

	e.mustRunAuth(append([]string{"checkout"}, shippingArgs...)...)

	orders := e.backend.Orders()
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, 1, orders[0].Items[0].ProductID)
	assert.Equal(t, 9, orders[0].Items[1].ProductID)
}

func TestCheckoutPrefillsFromProfile(t *testing.T) {
	e := newCLIEnv(t)
	seedCart(e)

	// Save the profile through a first checkout with --save-address.
	e.mustRunAuth(append([]string{"checkout", "--save-address"}, shippingArgs...)...)
	seedCart(e)

	out := e.mustRunAuth("checkout", "--method", "cash")
	assert.Equal(t, "order 2 placed\nredirect /orders/2\n", out)

	orders := e.backend.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "1 Main St", orders[1].Address)
	assert.Equal(t, "555-0100", orders[1].Phone)
	assert.Equal(t, "cash", orders[1].Method)
}

func TestCheckoutValidation(t *testing.T) {
	tests := []struct {
		name    string
		seed    bool
		args    []string
		message string
		fields  []any
	}{
		{
			name:    "missing shipping",
			seed:    true,
			args:    []string{"--method", "card", "--city", "Almaty"},
			message: "checkout: validation: missing address, phone",
			fields:  []any{"address", "phone"},
		},
		{
			name:    "empty cart",
			args:    shippingArgs,
			message: "checkout: validation: cart is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newCLIEnv(t)
			if tt.seed {
				seedCart(e)
			}
			out, _, err := e.runAuth(append([]string{"--format", "json", "checkout"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeValidation, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			if tt.fields != nil {
				details, ok := resp.Error.Details.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tt.fields, details["fields"])
			}
			assert.Empty(t, e.backend.Orders())
		})
	}
}

func TestCheckoutOrderFailureKeepsCart(t *testing.T) {
	e := newCLIEnv(t)
	seedCart(e)
	e.backend.InjectFault("POST /orders/checkout", marketplace.Fault{Status: http.StatusInternalServerError, Message: "boom", Times: 1})

	out, _, err := e.runAuth(append([]string{"checkout"}, shippingArgs...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]: checkout")

	view := decodeData[CartView](t, e.mustRun("--format", "json", "show"))
	assert.Len(t, view.Items, 2)

	// The retry succeeds and both attempts are in the ledger.
	out = e.mustRunAuth(append([]string{"checkout"}, shippingArgs...)...)
	assert.Equal(t, "order 1 placed\nredirect /orders/1\n", out)

	hist := decodeData[[]SubmissionView](t, e.mustRun("--format", "json", "history"))
	require.Len(t, hist, 2)
	assert.Equal(t, "failed", hist[0].Status)
	assert.NotEmpty(t, hist[0].Error)
	assert.Equal(t, "succeeded", hist[1].Status)
	assert.Equal(t, hist[0].Fingerprint, hist[1].Fingerprint)
}

func TestCheckoutRejectedToken(t *testing.T) {
	e := newCLIEnv(t)
	seedCart(e)

	out, _, err := e.run(append([]string{"--token", "wrong", "checkout"}, shippingArgs...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: checkout: begin: login required")
	assert.Len(t, decodeData[CartView](t, e.mustRun("--format", "json", "show")).Items, 2)
}

func TestCheckoutPushFailure(t *testing.T) {
	e := newCLIEnv(t)
	seedCart(e)
	e.backend.InjectFault("PUT /cart", marketplace.Fault{Status: http.StatusBadGateway, Message: "upstream", Times: 1})

	out, _, err := e.runAuth(append([]string{"checkout"}, shippingArgs...)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]: checkout: begin: sync cart")
	assert.Empty(t, e.backend.Orders())
}

func TestCheckoutRequiresMethod(t *testing.T) {
	e := newCLIEnv(t)
	_, _, err := e.runAuth("checkout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestHistoryEmpty(t *testing.T) {
	e := newCLIEnv(t)
	assert.Equal(t, "no submissions\n", e.mustRun("history"))
}
