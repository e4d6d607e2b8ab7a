// Package catalog defines the remote catalog data model and the collaborator
// interface the update engine consumes. The wire format belongs to the
// implementing client (internal/services/gog); the engine only sees these
// value types.
package catalog
