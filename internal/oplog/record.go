package oplog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/roach88/retrywrites/internal/ir"
)

// IDField is the identity field of every stored document.
const IDField = "_id"

// Record is one durable log entry.
//
// Payload meaning depends on Op:
//   - Insert: Object is the inserted document
//   - Update: Object is the applied delta or replacement; Object2 is the
//     match criteria
//   - Delete: Object is the deleted document's identifying key
//   - Noop:   Object is an opaque marker; a carrier keeps its inner record
//     in Object2
//
// Records are values: once built they are never mutated.
type Record struct {
	OpTime    OpTime
	Op        OpType
	Namespace string

	// UUID identifies the target collection. Optional.
	UUID *uuid.UUID

	Object  ir.Document
	Object2 ir.Document

	// Image links point at separate Noop records that hold the full
	// document before or after an update (or before a delete).
	PreImageOpTime  *OpTime
	PostImageOpTime *OpTime
}

// DB returns the database part of the namespace.
func (r Record) DB() string {
	db, _, _ := strings.Cut(r.Namespace, ".")
	return db
}

// Collection returns the collection part of the namespace.
func (r Record) Collection() string {
	_, coll, _ := strings.Cut(r.Namespace, ".")
	return coll
}

// DocumentID returns the identity field of the primary payload.
func (r Record) DocumentID() (ir.Value, bool) {
	return r.Object.Get(IDField)
}

// HasImageLink reports whether the record carries a pre- or post-image link.
func (r Record) HasImageLink() bool {
	return r.PreImageOpTime != nil || r.PostImageOpTime != nil
}

// ValidationError describes a structurally invalid record.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid oplog record: %s: %s", e.Field, e.Message)
}

// Validate checks the structural invariants every stored record satisfies.
// It does not look at the optime: records built outside a log carry the
// null optime.
func (r Record) Validate() error {
	if !r.Op.Valid() {
		return &ValidationError{Field: "op", Message: fmt.Sprintf("unknown op type %q", string(r.Op))}
	}

	db, coll, ok := strings.Cut(r.Namespace, ".")
	if !utf8.ValidString(r.Namespace) {
		return &ValidationError{Field: "ns", Message: fmt.Sprintf("namespace %q is not valid UTF-8", r.Namespace)}
	}
	if !ok || db == "" || coll == "" {
		return &ValidationError{Field: "ns", Message: fmt.Sprintf("namespace %q must be <db>.<collection>", r.Namespace)}
	}

	if r.Object == nil {
		return &ValidationError{Field: "o", Message: "payload is required"}
	}

	if err := ir.Validate(r.Object); err != nil {
		return &ValidationError{Field: "o", Message: err.Error()}
	}

	if r.Op == OpUpdate && r.Object2 == nil {
		return &ValidationError{Field: "o2", Message: "update records require match criteria"}
	}
	if r.Object2 != nil {
		if err := ir.Validate(r.Object2); err != nil {
			return &ValidationError{Field: "o2", Message: err.Error()}
		}
	}

	if r.PreImageOpTime != nil && r.PostImageOpTime != nil {
		return &ValidationError{Field: "preImageOpTime", Message: "pre- and post-image links are mutually exclusive"}
	}

	return nil
}
