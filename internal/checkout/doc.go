// Package checkout drives a single checkout attempt through its states:
//
//	Idle → VerifyingAuth → SyncingCart → AwaitingMethod → Submitting → {Succeeded | Failed}
//
// A Transaction is created per attempt. Begin verifies the session and
// pushes the local cart; PlaceOrder submits exactly once per attempt even
// under concurrent calls. The cart is cleared only after the server
// confirms the order. A failed submission returns to AwaitingMethod with
// the cart and the entered shipping data kept.
package checkout
