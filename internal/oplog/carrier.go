package oplog

import (
	"fmt"

	"github.com/roach88/retrywrites/internal/ir"
)

// CarrierMarkerField is the single field of the carrier sentinel payload.
const CarrierMarkerField = "$sessionMigrateInfo"

// CarrierSentinel returns the payload that marks a Noop record as a carrier
// for a relayed write. A fresh copy is returned on every call.
func CarrierSentinel() ir.Document {
	return ir.Doc(ir.E(CarrierMarkerField, ir.Int(1)))
}

// Envelope is the sealed sum of the two shapes a log record can take:
// a Direct record that describes its own mutation, or a Carrier that
// relays an inner record. Use Classify to obtain one.
type Envelope interface {
	envelope()
}

// Direct is a record that is not wrapped.
type Direct struct {
	Record Record
}

func (Direct) envelope() {}

// Carrier is a relayed record. Payload holds the inner record's document
// form, not yet parsed.
type Carrier struct {
	Outer   Record
	Payload ir.Document
}

func (Carrier) envelope() {}

// Classify decides which envelope a record is. A record is a carrier
// exactly when it is a Noop whose payload equals the sentinel.
func Classify(r Record) Envelope {
	if r.Op == OpNoop && ir.Equal(r.Object, CarrierSentinel()) {
		return Carrier{Outer: r, Payload: r.Object2}
	}
	return Direct{Record: r}
}

// IsCarrier reports whether r relays an inner record.
func IsCarrier(r Record) bool {
	_, ok := Classify(r).(Carrier)
	return ok
}

// CarrierError reports a carrier whose inner payload is missing or cannot
// be parsed as a record.
type CarrierError struct {
	OpTime OpTime
	Err    error
}

func (e *CarrierError) Error() string {
	return fmt.Sprintf("malformed carrier record at %s: %v", e.OpTime, e.Err)
}

func (e *CarrierError) Unwrap() error {
	return e.Err
}

// Inner parses the relayed record.
func (c Carrier) Inner() (Record, error) {
	if c.Payload == nil {
		return Record{}, &CarrierError{OpTime: c.Outer.OpTime, Err: fmt.Errorf("missing %s payload", fieldObject2)}
	}
	inner, err := ParseRecord(c.Payload)
	if err != nil {
		return Record{}, &CarrierError{OpTime: c.Outer.OpTime, Err: err}
	}
	return inner, nil
}

// Unwrap returns the record a retry should be answered from: r itself when
// it is not a carrier, otherwise the inner record. Exactly one level is
// removed; an inner record is never checked for wrapping again.
func Unwrap(r Record) (Record, error) {
	switch env := Classify(r).(type) {
	case Direct:
		return env.Record, nil
	case Carrier:
		return env.Inner()
	default:
		panic(fmt.Sprintf("oplog: unhandled envelope %T", env))
	}
}

// Wrap builds a carrier at the given position that relays inner.
// Image links are copied from inner onto the carrier, matching how a
// relayed write keeps its links reachable from the outer record.
func Wrap(at OpTime, inner Record) Record {
	return Record{
		OpTime:          at,
		Op:              OpNoop,
		Namespace:       inner.Namespace,
		UUID:            inner.UUID,
		Object:          CarrierSentinel(),
		Object2:         inner.ToDocument(),
		PreImageOpTime:  inner.PreImageOpTime,
		PostImageOpTime: inner.PostImageOpTime,
	}
}
