// Package middleware wraps a ports.DocumentStore with behavior applied at the
// persistence boundary: encryption at rest and redaction of personal data.
package middleware

import "github.com/aretw0/folio/pkg/ports"

// Middleware wraps a DocumentStore to add behavior.
type Middleware func(ports.DocumentStore) ports.DocumentStore

// Chain applies mws so that the first one is the outermost.
func Chain(store ports.DocumentStore, mws ...Middleware) ports.DocumentStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
