package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// User is the authenticated principal returned by GET /auth/me.
type User struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// CartLine is one item on the server cart. Title, Price and Image are
// optional on pull and always sent on push.
type CartLine struct {
	ProductID int     `json:"productId"`
	VariantID *int    `json:"variantId,omitempty"`
	Qty       int     `json:"qty"`
	Title     *string `json:"title,omitempty"`
	Price     *string `json:"price,omitempty"`
	Image     *string `json:"image,omitempty"`
}

// CartPayload is the body of GET /cart and PUT /cart.
type CartPayload struct {
	Items []CartLine `json:"items"`
}

// Profile is the body of PUT /auth/profile.
type Profile struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
}

// CheckoutRequest is the body of POST /orders/checkout.
type CheckoutRequest struct {
	Method  string `json:"method"`
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
}

// CheckoutResponse is the reply to POST /orders/checkout.
type CheckoutResponse struct {
	OrderID OrderID `json:"orderId"`
}

// OrderID is a server order identifier. Servers send it either as a JSON
// number or a string; it is always handled as text.
type OrderID string

func (id *OrderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = OrderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("order id %s: not an integer", n)
	}
	*id = OrderID(n.String())
	return nil
}

func (id OrderID) String() string {
	return string(id)
}

type errorBody struct {
	Error string `json:"error"`
}
