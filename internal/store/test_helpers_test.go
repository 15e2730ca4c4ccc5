package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestInsert creates an insert record of {_id: id} at (1, secs, inc).
func createTestInsert(secs, inc uint32, id int64) oplog.Record {
	return oplog.Record{
		OpTime:    oplog.NewOpTime(1, secs, inc),
		Op:        oplog.OpInsert,
		Namespace: "test.user",
		Object:    ir.Doc(ir.E("_id", ir.Int(id))),
	}
}

// createTestImage creates a noop record holding an image document.
func createTestImage(secs, inc uint32, doc ir.Document) oplog.Record {
	return oplog.Record{
		OpTime:    oplog.NewOpTime(1, secs, inc),
		Op:        oplog.OpNoop,
		Namespace: "test.user",
		Object:    doc,
	}
}
