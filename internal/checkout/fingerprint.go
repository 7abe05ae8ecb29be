package checkout

import (
	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/canonical"
	"github.com/roach88/basket/internal/cart"
)

// Fingerprint digests the submitted cart and shipping data. Two attempts
// with the same fingerprint ordered the same thing to the same place.
func Fingerprint(items cart.Snapshot, req api.CheckoutRequest) (string, error) {
	lines := make([]any, len(items))
	for i, it := range items {
		line := map[string]any{
			"productId": it.ProductID,
			"price":     it.Price.Text('f'),
			"qty":       it.Qty,
		}
		if it.VariantID != nil {
			line["variantId"] = *it.VariantID
		}
		lines[i] = line
	}
	return canonical.DigestValue(canonical.DomainSubmission, map[string]any{
		"items":   lines,
		"method":  req.Method,
		"address": req.Address,
		"city":    req.City,
		"phone":   req.Phone,
	})
}
