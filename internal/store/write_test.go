package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

func TestAppend_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestInsert(50, 10, 2)
	require.NoError(t, s.Append(ctx, rec))
	require.NoError(t, s.Append(ctx, rec), "identical re-append must be a no-op")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAppend_PositionConflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, createTestInsert(50, 10, 2)))

	err := s.Append(ctx, createTestInsert(50, 10, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPositionConflict))

	got, err := s.Get(ctx, oplog.NewOpTime(1, 50, 10))
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2), got.Object["_id"], "original record must survive")
}

func TestAppend_BatchIsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, createTestInsert(50, 10, 2)))

	err := s.Append(ctx,
		createTestInsert(60, 1, 7),
		createTestInsert(50, 10, 99),
	)
	require.ErrorIs(t, err, ErrPositionConflict)

	_, err = s.Get(ctx, oplog.NewOpTime(1, 60, 1))
	assert.ErrorIs(t, err, ErrNotFound, "batch must roll back")
}

func TestAppend_RejectsInvalidRecord(t *testing.T) {
	s := createTestStore(t)

	bad := createTestInsert(50, 10, 2)
	bad.Namespace = "nocollection"

	err := s.Append(context.Background(), bad)
	require.Error(t, err)

	var ve *oplog.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestAppend_NormalizationFormsConflict(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	nfc := createTestImage(50, 10, ir.Doc(ir.E("name", ir.String("caf\u00e9"))))
	nfd := createTestImage(50, 10, ir.Doc(ir.E("name", ir.String("cafe\u0301"))))

	require.NoError(t, s.Append(ctx, nfc))
	require.NoError(t, s.Append(ctx, nfc), "identical re-append is a no-op")

	err := s.Append(ctx, nfd)
	require.ErrorIs(t, err, ErrPositionConflict)

	got, err := s.Get(ctx, oplog.NewOpTime(1, 50, 10))
	require.NoError(t, err)
	assert.Equal(t, ir.String("caf\u00e9"), got.Object["name"])
}

func TestAppend_RejectsUnstorablePayloads(t *testing.T) {
	tests := []struct {
		name string
		doc  ir.Document
	}{
		{"invalid UTF-8 value", ir.Doc(ir.E("name", ir.String("caf\xe9")))},
		{"invalid UTF-8 key", ir.Doc(ir.E("\xff", ir.Int(1)))},
		{"keys equal under NFC", ir.Doc(ir.E("\u00e9", ir.Int(1)), ir.E("e\u0301", ir.Int(2)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ctx := context.Background()

			err := s.Append(ctx, createTestImage(50, 10, tt.doc))
			require.Error(t, err)

			var ve *oplog.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "o", ve.Field)

			_, found, err := s.FetchImage(ctx, oplog.NewOpTime(1, 50, 10))
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestTruncateBefore(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx,
		createTestInsert(10, 1, 1),
		createTestInsert(20, 1, 2),
		createTestInsert(30, 1, 3),
	))

	n, err := s.TruncateBefore(ctx, oplog.NewOpTime(1, 20, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, oplog.NewOpTime(1, 10, 1))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, oplog.NewOpTime(1, 20, 1))
	assert.NoError(t, err, "the bound itself is kept")
}

func TestTruncateBefore_OrdersByTermFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	late := createTestInsert(5, 1, 1)
	late.OpTime = oplog.NewOpTime(2, 5, 1)
	require.NoError(t, s.Append(ctx, createTestInsert(500, 1, 2), late))

	n, err := s.TruncateBefore(ctx, oplog.NewOpTime(2, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, late.OpTime)
	assert.NoError(t, err)
}
