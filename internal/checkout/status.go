package checkout

import "fmt"

// Status is the state of a Transaction.
type Status int

const (
	StatusIdle Status = iota
	StatusVerifyingAuth
	StatusSyncingCart
	StatusAwaitingMethod
	StatusSubmitting
	StatusSucceeded
	StatusFailed
)

var statusNames = [...]string{
	StatusIdle:           "idle",
	StatusVerifyingAuth:  "verifying_auth",
	StatusSyncingCart:    "syncing_cart",
	StatusAwaitingMethod: "awaiting_method",
	StatusSubmitting:     "submitting",
	StatusSucceeded:      "succeeded",
	StatusFailed:         "failed",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}
