// Package retryability answers retried writes from the log.
//
// When a client retries a write that already executed, the server must not
// run it again. It instead rebuilds the reply the first execution returned,
// using only the log record that execution produced and, for
// find-and-modify, the pre- or post-image the record links to.
//
// Relayed writes are stored inside carrier records; every entry point
// unwraps one carrier level first, so answering from a carrier and from its
// inner record gives the same result.
//
// The Reconstruct* functions are pure apart from the ImageLookup call.
// Reconstructor adds logging and Prometheus metrics around them.
package retryability
