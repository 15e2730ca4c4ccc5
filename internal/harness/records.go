package harness

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// AutoUUID in a record's ui field asks for the namespace's collection UUID.
const AutoUUID = "auto"

// PositionSource hands out positions for records that do not name one.
// Implemented by oplog.Clock (production) and testutil.DeterministicClock (tests).
type PositionSource interface {
	Next() oplog.OpTime
}

// UUIDGenerator creates collection UUIDs for ui: auto.
// Implemented by UUIDv7Generator (production) and testutil.FixedUUIDGenerator (tests).
type UUIDGenerator interface {
	New() uuid.UUID
}

// UUIDv7Generator generates time-sortable UUIDv7 collection identifiers.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// New creates a new UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// RecordBuilder turns RecordSpecs into oplog records.
//
// Every namespace gets one collection UUID per builder, so all ui: auto
// records for the same namespace agree.
//
// Not safe for concurrent use.
type RecordBuilder struct {
	positions PositionSource
	uuids     UUIDGenerator
	catalog   map[string]uuid.UUID
}

// NewRecordBuilder creates a builder.
func NewRecordBuilder(positions PositionSource, uuids UUIDGenerator) *RecordBuilder {
	return &RecordBuilder{
		positions: positions,
		uuids:     uuids,
		catalog:   make(map[string]uuid.UUID),
	}
}

// Build converts specs in order.
func (b *RecordBuilder) Build(specs []RecordSpec) ([]oplog.Record, error) {
	records := make([]oplog.Record, 0, len(specs))
	for i := range specs {
		rec, err := b.BuildOne(&specs[i])
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// BuildOne converts a single spec. A carrier's inner record is built first,
// so an inner record without a position sorts before its carrier.
func (b *RecordBuilder) BuildOne(spec *RecordSpec) (oplog.Record, error) {
	if spec.Inner != nil {
		return b.buildCarrier(spec)
	}

	at, err := b.position(spec.At)
	if err != nil {
		return oplog.Record{}, err
	}

	op, err := oplog.ParseOpType(spec.Op)
	if err != nil {
		return oplog.Record{}, err
	}

	rec := oplog.Record{
		OpTime:    at,
		Op:        op,
		Namespace: spec.NS,
	}

	if rec.UUID, err = b.collectionUUID(spec.UI, spec.NS); err != nil {
		return oplog.Record{}, err
	}
	if rec.Object, err = ir.DocumentFromMap(spec.O); err != nil {
		return oplog.Record{}, fmt.Errorf("o: %w", err)
	}
	if rec.Object2, err = ir.DocumentFromMap(spec.O2); err != nil {
		return oplog.Record{}, fmt.Errorf("o2: %w", err)
	}
	if rec.PreImageOpTime, err = optionalPosition(spec.PreImage); err != nil {
		return oplog.Record{}, fmt.Errorf("pre_image: %w", err)
	}
	if rec.PostImageOpTime, err = optionalPosition(spec.PostImage); err != nil {
		return oplog.Record{}, fmt.Errorf("post_image: %w", err)
	}

	if err := rec.Validate(); err != nil {
		return oplog.Record{}, err
	}
	return rec, nil
}

func (b *RecordBuilder) buildCarrier(spec *RecordSpec) (oplog.Record, error) {
	inner, err := b.BuildOne(spec.Inner)
	if err != nil {
		return oplog.Record{}, fmt.Errorf("inner: %w", err)
	}

	at, err := b.position(spec.At)
	if err != nil {
		return oplog.Record{}, err
	}

	carrier := oplog.Wrap(at, inner)
	if spec.NS != "" {
		carrier.Namespace = spec.NS
	}
	if spec.UI != "" {
		if carrier.UUID, err = b.collectionUUID(spec.UI, carrier.Namespace); err != nil {
			return oplog.Record{}, err
		}
	}

	// Links named on the carrier replace the ones copied from inner
	if spec.PreImage != "" || spec.PostImage != "" {
		if carrier.PreImageOpTime, err = optionalPosition(spec.PreImage); err != nil {
			return oplog.Record{}, fmt.Errorf("pre_image: %w", err)
		}
		if carrier.PostImageOpTime, err = optionalPosition(spec.PostImage); err != nil {
			return oplog.Record{}, fmt.Errorf("post_image: %w", err)
		}
	}

	if err := carrier.Validate(); err != nil {
		return oplog.Record{}, err
	}
	return carrier, nil
}

func (b *RecordBuilder) position(s string) (oplog.OpTime, error) {
	if s == "" {
		if b.positions == nil {
			return oplog.OpTime{}, fmt.Errorf("at is required")
		}
		return b.positions.Next(), nil
	}
	at, err := oplog.ParseOpTime(s)
	if err != nil {
		return oplog.OpTime{}, fmt.Errorf("at: %w", err)
	}
	return at, nil
}

func (b *RecordBuilder) collectionUUID(ui, ns string) (*uuid.UUID, error) {
	switch ui {
	case "":
		return nil, nil
	case AutoUUID:
		if b.uuids == nil {
			return nil, fmt.Errorf("ui: auto needs a UUID generator")
		}
		id, ok := b.catalog[ns]
		if !ok {
			id = b.uuids.New()
			b.catalog[ns] = id
		}
		return &id, nil
	default:
		id, err := uuid.Parse(ui)
		if err != nil {
			return nil, fmt.Errorf("ui: %w", err)
		}
		return &id, nil
	}
}

func optionalPosition(s string) (*oplog.OpTime, error) {
	if s == "" {
		return nil, nil
	}
	at, err := oplog.ParseOpTime(s)
	if err != nil {
		return nil, err
	}
	return &at, nil
}
