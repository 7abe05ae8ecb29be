package cart

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/unicode/norm"
)

// Key identifies a cart line. The zero variant and "no variant" are distinct.
type Key struct {
	ProductID  int
	VariantID  int
	HasVariant bool
}

// NewKey builds a Key from a product id and an optional variant id.
func NewKey(productID int, variantID *int) Key {
	if variantID == nil {
		return Key{ProductID: productID}
	}
	return Key{ProductID: productID, VariantID: *variantID, HasVariant: true}
}

func (k Key) String() string {
	if k.HasVariant {
		return fmt.Sprintf("%d/%d", k.ProductID, k.VariantID)
	}
	return fmt.Sprintf("%d", k.ProductID)
}

// Product is a catalog item reference, the input to AddToCart.
type Product struct {
	ProductID int
	VariantID *int
	Title     string
	Price     apd.Decimal
	Image     *string
}

// Key returns the identity key of the product.
func (p Product) Key() Key {
	return NewKey(p.ProductID, p.VariantID)
}

// Item is one line in the cart.
type Item struct {
	ProductID int
	VariantID *int
	Title     string
	Price     apd.Decimal // snapshot taken at add time
	Image     *string
	Qty       int
}

// Key returns the identity key of the item.
func (it Item) Key() Key {
	return NewKey(it.ProductID, it.VariantID)
}

// UnitPrice implements pricing.Line.
func (it Item) UnitPrice() *apd.Decimal {
	return &it.Price
}

// Quantity implements pricing.Line.
func (it Item) Quantity() int {
	return it.Qty
}

// clone returns a deep copy that shares no pointers with it.
func (it Item) clone() Item {
	out := it
	out.Price = apd.Decimal{}
	out.Price.Set(&it.Price)
	if it.VariantID != nil {
		v := *it.VariantID
		out.VariantID = &v
	}
	if it.Image != nil {
		img := *it.Image
		out.Image = &img
	}
	return out
}

func newItem(p Product, qty int) Item {
	it := Item{
		ProductID: p.ProductID,
		VariantID: p.VariantID,
		Title:     norm.NFC.String(p.Title),
		Price:     p.Price,
		Image:     p.Image,
		Qty:       qty,
	}
	return it.clone()
}

// Snapshot is an ordered list of items with unique keys.
type Snapshot []Item

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for i, it := range s {
		out[i] = it.clone()
	}
	return out
}

// Index returns the position of key in s, or -1.
func (s Snapshot) Index(key Key) int {
	for i, it := range s {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

// Units returns the total quantity across items.
func (s Snapshot) Units() int {
	n := 0
	for _, it := range s {
		n += it.Qty
	}
	return n
}
