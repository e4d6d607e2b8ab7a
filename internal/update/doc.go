// Package update drives a reconciliation run: strategy selection, resume
// checkpoint handling, and the fetch/merge/checkpoint pipeline.
package update
