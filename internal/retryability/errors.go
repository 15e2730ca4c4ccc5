package retryability

import (
	"errors"
	"fmt"

	"github.com/roach88/retrywrites/internal/oplog"
)

// Error is a failed reconstruction.
//
// Every failure is reported at the first point the inconsistency is
// observable and carries the position and op kind involved, so a log dump
// is enough to diagnose it.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// OpTime is the position of the record the retry was answered from (the
	// carrier's, for a relayed write), or of the image that could not be
	// found.
	OpTime oplog.OpTime

	// Op is the (unwrapped) op kind of the record, when known.
	Op oplog.OpType

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes reconstruction errors.
type ErrorCode string

const (
	// ErrCodeMalformedCarrier indicates a carrier's inner payload could not be parsed.
	ErrCodeMalformedCarrier ErrorCode = "MALFORMED_CARRIER"

	// ErrCodeOperationKindMismatch indicates the record's op kind cannot answer
	// the requested command.
	ErrCodeOperationKindMismatch ErrorCode = "OPERATION_KIND_MISMATCH"

	// ErrCodeIntentRecordMismatch indicates the retry's upsert/remove/image
	// intent disagrees with what the record stored.
	ErrCodeIntentRecordMismatch ErrorCode = "INTENT_RECORD_MISMATCH"

	// ErrCodeImageNotFound indicates a required pre- or post-image is not in the log.
	ErrCodeImageNotFound ErrorCode = "IMAGE_NOT_FOUND"

	// ErrCodeMissingIdentity indicates an upsert's insert record has no _id.
	ErrCodeMissingIdentity ErrorCode = "MISSING_IDENTITY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s (optime=%s, op=%s)", msg, e.OpTime, e.Op.Name())
	} else if !e.OpTime.IsNull() {
		msg = fmt.Sprintf("%s (optime=%s)", msg, e.OpTime)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the reconstruction error code in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsMalformedCarrier reports whether err is a malformed carrier error.
func IsMalformedCarrier(err error) bool {
	return hasCode(err, ErrCodeMalformedCarrier)
}

// IsOperationKindMismatch reports whether err is an op kind mismatch.
func IsOperationKindMismatch(err error) bool {
	return hasCode(err, ErrCodeOperationKindMismatch)
}

// IsIntentRecordMismatch reports whether err is an intent/record mismatch.
func IsIntentRecordMismatch(err error) bool {
	return hasCode(err, ErrCodeIntentRecordMismatch)
}

// IsImageNotFound reports whether err is a missing image error.
func IsImageNotFound(err error) bool {
	return hasCode(err, ErrCodeImageNotFound)
}

// IsMissingIdentity reports whether err is a missing _id error.
func IsMissingIdentity(err error) bool {
	return hasCode(err, ErrCodeMissingIdentity)
}

// IsInternal reports whether err indicates a corrupted or unexpected log
// state rather than a retry that does not match its prior execution.
func IsInternal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeMalformedCarrier, ErrCodeMissingIdentity:
		return true
	default:
		return false
	}
}

func newMalformedCarrierError(rec oplog.Record, cause error) *Error {
	return &Error{
		Code:    ErrCodeMalformedCarrier,
		Message: "relayed write record could not be unwrapped",
		OpTime:  rec.OpTime,
		Err:     cause,
	}
}

// The constructors below take the position of the record as logged and the
// unwrapped record. A relayed inner record may carry a null optime, so its
// own position is never reported.

func newKindMismatchError(command CommandKind, at oplog.OpTime, inner oplog.Record) *Error {
	return &Error{
		Code:    ErrCodeOperationKindMismatch,
		Message: fmt.Sprintf("retried %s does not match the %s record", command, inner.Op.Name()),
		OpTime:  at,
		Op:      inner.Op,
	}
}

func newIntentMismatchError(at oplog.OpTime, inner oplog.Record, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeIntentRecordMismatch,
		Message: fmt.Sprintf(format, args...),
		OpTime:  at,
		Op:      inner.Op,
	}
}

func newImageNotFoundError(at oplog.OpTime, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeImageNotFound,
		Message: fmt.Sprintf(format, args...),
		OpTime:  at,
	}
}

func newMissingIdentityError(at oplog.OpTime, inner oplog.Record) *Error {
	return &Error{
		Code:    ErrCodeMissingIdentity,
		Message: fmt.Sprintf("inserted document has no %s field", oplog.IDField),
		OpTime:  at,
		Op:      inner.Op,
	}
}
