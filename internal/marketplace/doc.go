// Package marketplace is an in-memory implementation of the marketplace
// REST endpoints used by the basket client.
//
// It backs the "basket serve" development server and the integration tests
// of the api, syncer and checkout packages. Every POST /orders/checkout that
// passes validation creates a new order; the server performs no
// de-duplication, so a client that double-submits is observable.
package marketplace
