package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retrywrites/internal/ir"
)

func insertRecord() Record {
	return Record{
		OpTime:    NewOpTime(1, 50, 10),
		Op:        OpInsert,
		Namespace: "a.b",
		Object:    ir.Doc(ir.E("_id", ir.Int(2))),
	}
}

func TestClassifyDirect(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"insert", insertRecord()},
		{"noop with other payload", Record{Op: OpNoop, Namespace: "a.b", Object: ir.Doc(ir.E("msg", ir.String("hi")))}},
		{"sentinel on non-noop", Record{Op: OpUpdate, Namespace: "a.b", Object: CarrierSentinel(), Object2: ir.Doc()}},
		{"sentinel with extra field", Record{Op: OpNoop, Namespace: "a.b", Object: ir.Doc(
			ir.E(CarrierMarkerField, ir.Int(1)), ir.E("x", ir.Int(1)),
		)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Classify(tt.rec)
			direct, ok := env.(Direct)
			require.True(t, ok, "expected Direct, got %T", env)
			assert.Equal(t, tt.rec.Op, direct.Record.Op)

			unwrapped, err := Unwrap(tt.rec)
			require.NoError(t, err)
			assertRecordsEqual(t, tt.rec, unwrapped)
		})
	}
}

func TestUnwrapCarrier(t *testing.T) {
	inner := insertRecord()
	carrier := Wrap(NewOpTime(1, 60, 10), inner)

	assert.True(t, IsCarrier(carrier))
	assert.Equal(t, OpNoop, carrier.Op)
	assert.Equal(t, "a.b", carrier.Namespace)

	unwrapped, err := Unwrap(carrier)
	require.NoError(t, err)
	assertRecordsEqual(t, inner, unwrapped)
}

func TestWrapCopiesImageLinks(t *testing.T) {
	inner := Record{
		Op:             OpDelete,
		Namespace:      "test.user",
		Object:         ir.Doc(ir.E("_id", ir.Int(20))),
		PreImageOpTime: NewOpTime(1, 120, 3).Ptr(),
	}

	carrier := Wrap(NewOpTime(1, 60, 10), inner)
	require.NotNil(t, carrier.PreImageOpTime)
	assert.Equal(t, NewOpTime(1, 120, 3), *carrier.PreImageOpTime)
	assert.Nil(t, carrier.PostImageOpTime)
}

func TestUnwrapIsOneLevelDeep(t *testing.T) {
	inner := insertRecord()
	middle := Wrap(NewOpTime(1, 60, 10), inner)
	outer := Wrap(NewOpTime(1, 70, 1), middle)

	unwrapped, err := Unwrap(outer)
	require.NoError(t, err)
	assert.True(t, IsCarrier(unwrapped), "second level must be returned as-is")
	assertRecordsEqual(t, middle, unwrapped)
}

func TestUnwrapMalformedCarrier(t *testing.T) {
	tests := []struct {
		name    string
		payload ir.Document
	}{
		{"missing o2", nil},
		{"o2 is not a record", ir.Doc(ir.E("x", ir.Int(1)))},
		{"o2 record fails validation", ir.Doc(
			ir.E("ts", ir.Doc(ir.E("t", ir.Int(1)), ir.E("i", ir.Int(1)))),
			ir.E("t", ir.Int(1)),
			ir.E("op", ir.String("u")),
			ir.E("ns", ir.String("a.b")),
			ir.E("o", ir.Doc()),
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carrier := Record{
				OpTime:    NewOpTime(1, 60, 10),
				Op:        OpNoop,
				Namespace: "a.b",
				Object:    CarrierSentinel(),
				Object2:   tt.payload,
			}

			_, err := Unwrap(carrier)
			require.Error(t, err)

			var ce *CarrierError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, NewOpTime(1, 60, 10), ce.OpTime)
		})
	}
}

func TestCarrierSentinelIsFresh(t *testing.T) {
	s := CarrierSentinel()
	s["x"] = ir.Int(1)
	assert.Len(t, CarrierSentinel(), 1)
}
