// Package oplog models the durable log records a retried write is answered
// from.
//
// A Record is one position-ordered log entry (insert, update, delete or
// noop). A write that was relayed rather than executed locally is stored as
// a carrier: a noop whose payload is the sentinel {"$sessionMigrateInfo": 1}
// and whose o2 holds the inner record's document form. Classify turns a
// record into the Envelope sum type (Direct or Carrier); Unwrap strips one
// level of carrier.
//
// Records have two serialized forms:
//   - document form (ToDocument / ParseRecord), embedded inside carriers
//   - byte form (Marshal / Unmarshal), canonical JSON of the document form
//
// Positions are OpTimes: (term, Timestamp(secs, inc)), totally ordered.
package oplog
