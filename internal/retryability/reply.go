package retryability

import "github.com/roach88/retrywrites/internal/ir"

// Reply renders the result as the reply document the client would have
// received: {n, nModified[, upserted]}.
func (r WriteResult) Reply() ir.Document {
	reply := ir.Doc(
		ir.E("n", ir.Int(r.N)),
		ir.E("nModified", ir.Int(r.NModified)),
	)
	if r.UpsertedID != nil {
		reply["upserted"] = r.UpsertedID.Clone()
	}
	return reply
}

// Reply renders {lastErrorObject: {n[, updatedExisting][, upserted]}, value}.
// value is null when the result carries no document.
func (r FindAndModifyResult) Reply() ir.Document {
	leo := ir.Doc(ir.E("n", ir.Int(r.N)))
	if r.UpdatedExisting != nil {
		leo["updatedExisting"] = ir.Bool(*r.UpdatedExisting)
	}
	if r.UpsertedID != nil {
		if id, ok := r.UpsertedID.Get("_id"); ok {
			leo["upserted"] = id
		}
	}

	var value ir.Value = ir.Null{}
	if r.Value != nil {
		value = r.Value.Clone()
	}
	return ir.Doc(
		ir.E("lastErrorObject", leo),
		ir.E("value", value),
	)
}
