package retryability

import (
	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// WriteResult is the reply state of a retried insert, update or delete.
type WriteResult struct {
	N         int
	NModified int

	// UpsertedID is {_id: <value>} when an update inserted a new document,
	// nil otherwise.
	UpsertedID ir.Document
}

// ReconstructInsert answers a retried insert from the record it produced.
func ReconstructInsert(rec oplog.Record) (WriteResult, error) {
	inner, err := unwrap(rec)
	if err != nil {
		return WriteResult{}, err
	}

	switch inner.Op {
	case oplog.OpInsert:
		return WriteResult{N: 1}, nil
	default:
		return WriteResult{}, newKindMismatchError(CommandInsert, rec.OpTime, inner)
	}
}

// ReconstructUpdate answers a retried update. An Update record means an
// existing document was modified; an Insert record means the update upserted.
func ReconstructUpdate(rec oplog.Record) (WriteResult, error) {
	inner, err := unwrap(rec)
	if err != nil {
		return WriteResult{}, err
	}

	switch inner.Op {
	case oplog.OpUpdate:
		return WriteResult{N: 1, NModified: 1}, nil
	case oplog.OpInsert:
		id, err := upsertedID(rec.OpTime, inner)
		if err != nil {
			return WriteResult{}, err
		}
		return WriteResult{N: 1, UpsertedID: id}, nil
	default:
		return WriteResult{}, newKindMismatchError(CommandUpdate, rec.OpTime, inner)
	}
}

// ReconstructDelete answers a retried delete.
func ReconstructDelete(rec oplog.Record) (WriteResult, error) {
	inner, err := unwrap(rec)
	if err != nil {
		return WriteResult{}, err
	}

	switch inner.Op {
	case oplog.OpDelete:
		return WriteResult{N: 1}, nil
	default:
		return WriteResult{}, newKindMismatchError(CommandDelete, rec.OpTime, inner)
	}
}

// unwrap strips a carrier and reports a bad payload as MALFORMED_CARRIER.
func unwrap(rec oplog.Record) (oplog.Record, error) {
	inner, err := oplog.Unwrap(rec)
	if err != nil {
		return oplog.Record{}, newMalformedCarrierError(rec, err)
	}
	return inner, nil
}

// upsertedID extracts {_id: ...} from an insert record's document.
func upsertedID(at oplog.OpTime, inner oplog.Record) (ir.Document, error) {
	id, ok := inner.DocumentID()
	if !ok {
		return nil, newMissingIdentityError(at, inner)
	}
	return ir.Doc(ir.E(oplog.IDField, id)).Clone(), nil
}
