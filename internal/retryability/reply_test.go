package retryability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/retrywrites/internal/ir"
)

func TestWriteResultReply(t *testing.T) {
	tests := []struct {
		name string
		res  WriteResult
		want string
	}{
		{"insert", WriteResult{N: 1}, `{"n":1,"nModified":0}`},
		{"update", WriteResult{N: 1, NModified: 1}, `{"n":1,"nModified":1}`},
		{"upsert", WriteResult{N: 1, UpsertedID: ir.Doc(ir.E("_id", ir.Int(2)))}, `{"n":1,"nModified":0,"upserted":{"_id":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(ir.MustMarshalCanonical(tt.res.Reply())))
		})
	}
}

func TestFindAndModifyResultReply(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name string
		res  FindAndModifyResult
		want string
	}{
		{
			"upsert",
			FindAndModifyResult{N: 1, UpdatedExisting: &no, Value: ir.Doc(ir.E("x", ir.Int(1)))},
			`{"lastErrorObject":{"n":1,"updatedExisting":false},"value":{"x":1}}`,
		},
		{
			"upsert with id",
			FindAndModifyResult{
				N: 1, UpdatedExisting: &no,
				UpsertedID: ir.Doc(ir.E("_id", ir.Int(7))),
				Value:      ir.Doc(ir.E("_id", ir.Int(7))),
			},
			`{"lastErrorObject":{"n":1,"updatedExisting":false,"upserted":7},"value":{"_id":7}}`,
		},
		{
			"update",
			FindAndModifyResult{N: 1, UpdatedExisting: &yes, Value: ir.Doc(ir.E("x", ir.Int(1)), ir.E("z", ir.Int(1)))},
			`{"lastErrorObject":{"n":1,"updatedExisting":true},"value":{"x":1,"z":1}}`,
		},
		{
			"remove",
			FindAndModifyResult{N: 1, Value: ir.Doc(ir.E("_id", ir.Int(1)))},
			`{"lastErrorObject":{"n":1},"value":{"_id":1}}`,
		},
		{
			"no value",
			FindAndModifyResult{},
			`{"lastErrorObject":{"n":0},"value":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(ir.MustMarshalCanonical(tt.res.Reply())))
		})
	}
}

func TestReplyDoesNotAlias(t *testing.T) {
	value := ir.Doc(ir.E("x", ir.Int(1)))
	res := FindAndModifyResult{N: 1, Value: value}

	reply := res.Reply()
	reply["value"].(ir.Document)["x"] = ir.Int(2)
	assert.Equal(t, ir.Int(1), value["x"])
}
