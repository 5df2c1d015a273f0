// Package ir provides the canonical value types used to identify compiled
// column instances.
//
// Normalized column parameters are stored as ir.Object values, encoded with
// RFC 8785 canonical JSON and hashed with a domain prefix. The resulting
// aliases are what make two structurally identical data-view requests compile
// to byte-identical SQL.
//
// Key constraints:
//   - no float values (they break hash stability)
//   - ir imports nothing internal
package ir
