// Package manifest owns the local-truth data model: the versioned manifest
// snapshot, the resume checkpoint, their atomic persistence, and the merge
// rule that folds remote records into local ones.
package manifest
