// Package filter implements the pure selection predicate the update engine
// applies to the remote listing. Strategies compose these primitives instead
// of branching inside the pipeline.
package filter
