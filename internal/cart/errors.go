package cart

import "errors"

var (
	// ErrInvalidQuantity is returned when AddToCart is given qty < 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidProduct is returned for a product without a positive id.
	ErrInvalidProduct = errors.New("product id must be positive")

	// ErrUnsupportedVersion is returned when persisted state was written by
	// a newer layout than this build understands.
	ErrUnsupportedVersion = errors.New("unsupported cart storage version")
)
