package oplog

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/roach88/retrywrites/internal/ir"
)

// Field names of the record document form.
const (
	fieldTS        = "ts"
	fieldTerm      = "t"
	fieldOp        = "op"
	fieldNS        = "ns"
	fieldUUID      = "ui"
	fieldObject    = "o"
	fieldObject2   = "o2"
	fieldPreImage  = "preImageOpTime"
	fieldPostImage = "postImageOpTime"

	fieldSecs = "t"
	fieldInc  = "i"
)

var knownFields = map[string]bool{
	fieldTS: true, fieldTerm: true, fieldOp: true, fieldNS: true, fieldUUID: true,
	fieldObject: true, fieldObject2: true, fieldPreImage: true, fieldPostImage: true,
}

// ToDocument returns the document form of the record. A carrier embeds
// its inner record in this form.
func (r Record) ToDocument() ir.Document {
	obj := r.Object
	if obj == nil {
		obj = ir.Document{}
	}

	doc := ir.Doc(
		ir.E(fieldTS, timestampDoc(r.OpTime.TS)),
		ir.E(fieldTerm, ir.Int(r.OpTime.Term)),
		ir.E(fieldOp, ir.String(string(r.Op))),
		ir.E(fieldNS, ir.String(r.Namespace)),
		ir.E(fieldObject, obj),
	)
	if r.UUID != nil {
		doc[fieldUUID] = ir.String(r.UUID.String())
	}
	if r.Object2 != nil {
		doc[fieldObject2] = r.Object2
	}
	if r.PreImageOpTime != nil {
		doc[fieldPreImage] = opTimeDoc(*r.PreImageOpTime)
	}
	if r.PostImageOpTime != nil {
		doc[fieldPostImage] = opTimeDoc(*r.PostImageOpTime)
	}
	return doc
}

// ParseRecord builds a record from its document form and validates it.
// Unknown fields are rejected so a truncated or foreign payload cannot be
// mistaken for a record.
func ParseRecord(doc ir.Document) (Record, error) {
	if doc == nil {
		return Record{}, fmt.Errorf("parse record: document is empty")
	}
	for k := range doc {
		if !knownFields[k] {
			return Record{}, fmt.Errorf("parse record: unknown field %q", k)
		}
	}

	var r Record

	tsDoc, err := requireDocument(doc, fieldTS)
	if err != nil {
		return Record{}, err
	}
	ts, err := parseTimestamp(tsDoc)
	if err != nil {
		return Record{}, fmt.Errorf("parse record: %s: %w", fieldTS, err)
	}
	term, err := requireInt(doc, fieldTerm)
	if err != nil {
		return Record{}, err
	}
	r.OpTime = OpTime{TS: ts, Term: term}

	opStr, err := requireString(doc, fieldOp)
	if err != nil {
		return Record{}, err
	}
	if r.Op, err = ParseOpType(opStr); err != nil {
		return Record{}, fmt.Errorf("parse record: %w", err)
	}

	if r.Namespace, err = requireString(doc, fieldNS); err != nil {
		return Record{}, err
	}

	if v, ok := doc[fieldUUID]; ok {
		s, isString := v.(ir.String)
		if !isString {
			return Record{}, fmt.Errorf("parse record: %s must be a string, got %T", fieldUUID, v)
		}
		id, err := uuid.Parse(string(s))
		if err != nil {
			return Record{}, fmt.Errorf("parse record: %s: %w", fieldUUID, err)
		}
		r.UUID = &id
	}

	if r.Object, err = requireDocument(doc, fieldObject); err != nil {
		return Record{}, err
	}
	if _, ok := doc[fieldObject2]; ok {
		if r.Object2, err = requireDocument(doc, fieldObject2); err != nil {
			return Record{}, err
		}
	}

	if r.PreImageOpTime, err = optionalOpTime(doc, fieldPreImage); err != nil {
		return Record{}, err
	}
	if r.PostImageOpTime, err = optionalOpTime(doc, fieldPostImage); err != nil {
		return Record{}, err
	}

	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Marshal encodes a record as canonical JSON of its document form.
func Marshal(r Record) ([]byte, error) {
	data, err := ir.MarshalCanonical(r.ToDocument())
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) (Record, error) {
	doc, err := ir.UnmarshalDocument(data)
	if err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return ParseRecord(doc)
}

func timestampDoc(ts Timestamp) ir.Document {
	return ir.Doc(ir.E(fieldSecs, ir.Int(ts.T)), ir.E(fieldInc, ir.Int(ts.I)))
}

func opTimeDoc(ot OpTime) ir.Document {
	return ir.Doc(ir.E(fieldTS, timestampDoc(ot.TS)), ir.E(fieldTerm, ir.Int(ot.Term)))
}

func parseTimestamp(doc ir.Document) (Timestamp, error) {
	secs, err := requireUint32(doc, fieldSecs)
	if err != nil {
		return Timestamp{}, err
	}
	inc, err := requireUint32(doc, fieldInc)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{T: secs, I: inc}, nil
}

func optionalOpTime(doc ir.Document, field string) (*OpTime, error) {
	if _, ok := doc[field]; !ok {
		return nil, nil
	}
	sub, err := requireDocument(doc, field)
	if err != nil {
		return nil, err
	}
	tsDoc, err := requireDocument(sub, fieldTS)
	if err != nil {
		return nil, fmt.Errorf("parse record: %s: %w", field, err)
	}
	ts, err := parseTimestamp(tsDoc)
	if err != nil {
		return nil, fmt.Errorf("parse record: %s: %w", field, err)
	}
	term, err := requireInt(sub, fieldTerm)
	if err != nil {
		return nil, fmt.Errorf("parse record: %s: %w", field, err)
	}
	return &OpTime{TS: ts, Term: term}, nil
}

func requireDocument(doc ir.Document, field string) (ir.Document, error) {
	v, ok := doc[field]
	if !ok {
		return nil, fmt.Errorf("parse record: missing field %q", field)
	}
	d, ok := v.(ir.Document)
	if !ok {
		return nil, fmt.Errorf("parse record: %s must be a document, got %T", field, v)
	}
	return d, nil
}

func requireString(doc ir.Document, field string) (string, error) {
	v, ok := doc[field]
	if !ok {
		return "", fmt.Errorf("parse record: missing field %q", field)
	}
	s, ok := v.(ir.String)
	if !ok {
		return "", fmt.Errorf("parse record: %s must be a string, got %T", field, v)
	}
	return string(s), nil
}

func requireInt(doc ir.Document, field string) (int64, error) {
	v, ok := doc[field]
	if !ok {
		return 0, fmt.Errorf("parse record: missing field %q", field)
	}
	n, ok := v.(ir.Int)
	if !ok {
		return 0, fmt.Errorf("parse record: %s must be an integer, got %T", field, v)
	}
	return int64(n), nil
}

func requireUint32(doc ir.Document, field string) (uint32, error) {
	n, err := requireInt(doc, field)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("parse record: %s out of range: %d", field, n)
	}
	return uint32(n), nil
}
