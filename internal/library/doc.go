// Package library owns on-disk layout: deriving folder names from item
// titles and keeping the library directory in step with the manifest.
package library
