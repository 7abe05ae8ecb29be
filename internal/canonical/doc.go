// Package canonical provides RFC 8785 canonical JSON and domain-separated
// digests for basket.
//
// Canonical bytes are used wherever two encodings of the same logical value
// must compare equal: submission fingerprints in the checkout ledger and
// session keys in the local store. Plain encoding/json is used everywhere
// else.
//
// # Supported values
//
//   - string (NFC normalized at serialization)
//   - int, int64
//   - bool
//   - []any
//   - map[string]any (keys ordered by UTF-16 code units)
//
// Floats and null are rejected. Decimal prices are encoded as strings by the
// caller before they reach this package.
package canonical
