// Package store provides SQLite-backed durable storage for oplog records.
//
// The oplog table is keyed by position (term, secs, inc), so iteration in
// key order is log order. Records are only ever appended or truncated from
// the front; a position, once written, never changes meaning.
//
// # Storage format
//
//   - o and o2 are canonical JSON (RFC 8785), snappy block-compressed
//   - record_hash is ir.RecordHash of the record's document form; it is
//     what makes re-appending the same record idempotent and a different
//     record at an occupied position an error
//   - image links are stored as "term:secs:inc" text
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Store implements retryability.ImageLookup, so a retried find-and-modify
// can be answered straight from the database.
package store
