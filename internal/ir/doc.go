// Package ir provides the canonical document representation used by
// every other package in retrywrites.
//
// This package contains value types and their serialization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - No float types: documents are compared and hashed canonically
//   - Document field order is never significant; output is always in
//     RFC 8785 key order
//   - Null is a real value (Null{}), distinct from an absent field
package ir
