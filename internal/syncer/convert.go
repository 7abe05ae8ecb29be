package syncer

import (
	"github.com/roach88/basket/internal/api"
	"github.com/roach88/basket/internal/cart"
	"github.com/roach88/basket/internal/pricing"
)

// ToLines converts a snapshot to the wire form sent on push.
func ToLines(s cart.Snapshot) []api.CartLine {
	out := make([]api.CartLine, len(s))
	for i, it := range s {
		title := it.Title
		price := pricing.Format(&it.Price)
		out[i] = api.CartLine{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Qty:       it.Qty,
			Title:     &title,
			Price:     &price,
			Image:     it.Image,
		}
	}
	return out
}

// FromLines converts pulled lines to a snapshot. Lines without a valid
// product id or price are dropped and reported by index; a missing price
// counts as zero since the local snapshot wins for shared keys.
func FromLines(lines []api.CartLine) (cart.Snapshot, []int) {
	out := make(cart.Snapshot, 0, len(lines))
	var dropped []int
	for i, l := range lines {
		if l.ProductID <= 0 {
			dropped = append(dropped, i)
			continue
		}
		it := cart.Item{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Image:     l.Image,
			Qty:       l.Qty,
		}
		if l.Title != nil {
			it.Title = *l.Title
		}
		if l.Price != nil {
			p, err := pricing.ParsePrice(*l.Price)
			if err != nil {
				dropped = append(dropped, i)
				continue
			}
			it.Price = p
		}
		out = append(out, it)
	}
	return out, dropped
}
