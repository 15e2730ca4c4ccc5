package harness

import (
	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
	"github.com/roach88/retrywrites/internal/retryability"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates the retry produced exactly the expected outcome.
	Pass bool

	// Command is the retried command.
	Command retryability.CommandKind

	// At is the position the retry was answered from.
	At oplog.OpTime

	// Reply is the reconstructed reply, nil when the retry failed.
	Reply ir.Document

	// ErrorCode is the reconstruction error code, empty on success.
	ErrorCode retryability.ErrorCode

	// Error is the full reconstruction error message, empty on success.
	Error string

	// Errors contains expectation mismatches. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome is the reply or error code as a document:
// {reply: {...}} or {error: "CODE"}.
func (r *Result) Outcome() ir.Document {
	if r.ErrorCode != "" {
		return ir.Doc(ir.E("error", ir.String(string(r.ErrorCode))))
	}
	var reply ir.Value = ir.Null{}
	if r.Reply != nil {
		reply = r.Reply
	}
	return ir.Doc(ir.E("reply", reply))
}
