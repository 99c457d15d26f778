// Package riblt implements Rateless Invertible Bloom Lookup Tables. An Encoder
// turns a set of source symbols into an unbounded stream of coded symbols; a
// Decoder holding another set consumes the stream and recovers the symmetric
// difference of the two sets once enough coded symbols have arrived. A Sketch
// is a fixed-length prefix of the same stream, for one-shot reconciliation
// when an upper bound on the difference is known.
//
// None of the types are safe for concurrent use.
package riblt
