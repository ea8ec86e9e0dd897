// Package stamper periodically appends a human-readable timestamp record to
// the shared log store.
package stamper
