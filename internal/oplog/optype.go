package oplog

import "fmt"

// OpType is the kind of mutation a log record describes.
// The set is closed: every switch over OpType lists all four kinds and
// treats anything else as invalid.
type OpType string

const (
	OpInsert OpType = "i"
	OpUpdate OpType = "u"
	OpDelete OpType = "d"
	OpNoop   OpType = "n"
)

// ParseOpType parses the single-letter wire form.
func ParseOpType(s string) (OpType, error) {
	switch op := OpType(s); op {
	case OpInsert, OpUpdate, OpDelete, OpNoop:
		return op, nil
	default:
		return "", fmt.Errorf("unknown op type %q", s)
	}
}

// Valid reports whether op is one of the four known kinds.
func (op OpType) Valid() bool {
	switch op {
	case OpInsert, OpUpdate, OpDelete, OpNoop:
		return true
	default:
		return false
	}
}

// Name returns the human-readable kind, used in error messages.
func (op OpType) Name() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpNoop:
		return "noop"
	default:
		return fmt.Sprintf("unknown(%q)", string(op))
	}
}
