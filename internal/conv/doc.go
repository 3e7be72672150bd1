// Package conv provides checked integer conversions.
//
// The index persists its configuration and graph as fixed-width int32 fields,
// while the in-memory structures use int and uint32. Every crossing between
// those widths goes through this package so that oversized values and
// negative counts read from a stream surface as errors instead of wrapping.
package conv
