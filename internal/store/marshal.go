package store

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// encodePayload converts a document to snappy-compressed canonical JSON.
// A nil document encodes to nil (stored as NULL).
func encodePayload(doc ir.Document) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return snappy.Encode(nil, data), nil
}

// decodePayload reverses encodePayload. NULL decodes to a nil document.
func decodePayload(data []byte) (ir.Document, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	doc, err := ir.UnmarshalDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return doc, nil
}

func encodeOpTime(ot *oplog.OpTime) any {
	if ot == nil {
		return nil
	}
	return ot.Spec()
}

func decodeOpTime(s *string) (*oplog.OpTime, error) {
	if s == nil {
		return nil, nil
	}
	ot, err := oplog.ParseOpTime(*s)
	if err != nil {
		return nil, err
	}
	return &ot, nil
}

func encodeUUID(u *uuid.UUID) any {
	if u == nil {
		return nil
	}
	return u.String()
}

func decodeUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	u, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("parse ui: %w", err)
	}
	return &u, nil
}

// recordHash identifies a record's full content, position included.
func recordHash(rec oplog.Record) (string, error) {
	return ir.RecordHash(rec.ToDocument())
}
