// Package driftbox implements an in-memory, ephemeral file-exchange core:
// a single-writer/multi-reader streaming byte container (Slab) and a
// keyed, self-expiring store of the current Slab per path (Repository).
//
// HTTP routing, body framing, and diagnostics rendering are deliberately
// kept out of this package; see driftbox/httpapi and driftbox/diagnostics.
package driftbox
