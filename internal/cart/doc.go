// Package cart holds the buyer's working set of intended purchases.
//
// The package has three parts:
//   - Item, Key and Snapshot: the value model
//   - Merge: the pure function combining two snapshots by identity-key
//     quantity summation
//   - Store: the single in-process container of cart state, persisted to
//     durable local storage on every mutation
//
// # Invariants
//
//   - Every item has Qty >= 1. Updating to a quantity below one removes it.
//   - Identity is (ProductID, VariantID). A snapshot never holds two items
//     with the same key.
//   - Price is captured when the item is first added and never refreshed
//     from the catalog.
//   - Insertion order is preserved.
//
// No operation in this package touches the network.
package cart
