package retryability

import (
	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

var (
	atWrite   = oplog.NewOpTime(1, 50, 10)
	atImage   = oplog.NewOpTime(1, 50, 9)
	atCarrier = oplog.NewOpTime(1, 60, 10)
)

func insertRec(doc ir.Document) oplog.Record {
	return oplog.Record{
		OpTime:    atWrite,
		Op:        oplog.OpInsert,
		Namespace: "a.b",
		Object:    doc,
	}
}

func updateRec() oplog.Record {
	return oplog.Record{
		OpTime:    atWrite,
		Op:        oplog.OpUpdate,
		Namespace: "a.b",
		Object:    ir.Doc(ir.E("$set", ir.Doc(ir.E("z", ir.Int(1))))),
		Object2:   ir.Doc(ir.E("_id", ir.Int(1))),
	}
}

func deleteRec() oplog.Record {
	return oplog.Record{
		OpTime:    atWrite,
		Op:        oplog.OpDelete,
		Namespace: "a.b",
		Object:    ir.Doc(ir.E("_id", ir.Int(1))),
	}
}

func noopRec() oplog.Record {
	return oplog.Record{
		OpTime:    atWrite,
		Op:        oplog.OpNoop,
		Namespace: "a.b",
		Object:    ir.Doc(ir.E("msg", ir.String("new primary"))),
	}
}

func withPre(r oplog.Record, at oplog.OpTime) oplog.Record {
	r.PreImageOpTime = at.Ptr()
	return r
}

func withPost(r oplog.Record, at oplog.OpTime) oplog.Record {
	r.PostImageOpTime = at.Ptr()
	return r
}

// wrapped relays r through a carrier with the links moved onto the carrier
// only, which is how a relayed find-and-modify is logged.
func wrapped(r oplog.Record) oplog.Record {
	carrier := oplog.Wrap(atCarrier, r)
	inner := r
	inner.PreImageOpTime, inner.PostImageOpTime = nil, nil
	carrier.Object2 = inner.ToDocument()
	return carrier
}

func imageLookup(doc ir.Document) *MapLookup {
	m := NewMapLookup()
	m.Put(atImage, doc)
	return m
}

// relayedAtNull relays r the way the log does: the inner record keeps no
// position of its own, only the carrier does.
func relayedAtNull(r oplog.Record) oplog.Record {
	r.OpTime = oplog.OpTime{}
	return oplog.Wrap(atCarrier, r)
}
