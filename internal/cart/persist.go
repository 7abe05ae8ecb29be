package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/basket/internal/pricing"
)

// StorageKey is the fixed key the cart is persisted under.
const StorageKey = "cart.v1"

// storageVersion is the current persisted layout.
// 0 - bare JSON array of items (legacy, read-only)
// 1 - {"version":1,"items":[...]} with decimal string prices
const storageVersion = 1

// Storage is durable client-local storage of opaque blobs.
// Load returns ok=false when the key has never been written.
type Storage interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
}

type persistedCart struct {
	Version int             `json:"version"`
	Items   []persistedItem `json:"items"`
}

type persistedItem struct {
	ProductID int       `json:"productId"`
	VariantID *int      `json:"variantId"`
	Title     string    `json:"title"`
	Price     priceText `json:"price"`
	Image     *string   `json:"image"`
	Qty       int       `json:"qty"`
}

// priceText is a decimal carried as a JSON string. Bare JSON numbers are
// accepted on read because the legacy layout stored prices that way.
type priceText string

func (p *priceText) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = priceText(s)
		return nil
	}
	*p = priceText(b)
	return nil
}

// encodeSnapshot serializes s in the current layout.
func encodeSnapshot(s Snapshot) ([]byte, error) {
	pc := persistedCart{Version: storageVersion, Items: make([]persistedItem, len(s))}
	for i, it := range s {
		pc.Items[i] = persistedItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.Title,
			Price:     priceText(it.Price.Text('f')),
			Image:     it.Image,
			Qty:       it.Qty,
		}
	}
	data, err := json.Marshal(pc)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses any supported layout. Items that violate the model
// invariants (qty < 1, duplicate key) are folded in through Merge so a
// hand-edited or legacy blob still yields a valid snapshot.
func decodeSnapshot(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Snapshot{}, nil
	}

	var items []persistedItem
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode legacy cart: %w", err)
		}
	} else {
		var pc persistedCart
		if err := json.Unmarshal(trimmed, &pc); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		if pc.Version > storageVersion {
			return nil, fmt.Errorf("decode cart: version %d: %w", pc.Version, ErrUnsupportedVersion)
		}
		items = pc.Items
	}

	raw := make(Snapshot, 0, len(items))
	for i, pi := range items {
		price, err := pricing.ParsePrice(string(pi.Price))
		if err != nil {
			return nil, fmt.Errorf("decode cart: item %d: %w", i, err)
		}
		raw = append(raw, Item{
			ProductID: pi.ProductID,
			VariantID: pi.VariantID,
			Title:     pi.Title,
			Price:     price,
			Image:     pi.Image,
			Qty:       pi.Qty,
		})
	}
	return Merge(raw, nil), nil
}
