package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

func TestShow_AllRecords(t *testing.T) {
	inner := oplog.Record{
		OpTime:    oplog.NewOpTime(1, 50, 10),
		Op:        oplog.OpDelete,
		Namespace: "test.user",
		Object:    ir.Doc(ir.E("_id", ir.Int(20))),
	}
	db := seedDB(t,
		insertAt(oplog.NewOpTime(1, 40, 1), 1),
		oplog.Wrap(oplog.NewOpTime(1, 60, 10), inner),
	)

	stdout, _, err := runCLI(t, "show", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, `1:40:1 insert test.user {"ns":"test.user","o":{"_id":1,"x":1},"op":"i"`)
	assert.Contains(t, stdout, "1:60:10 noop test.user")
	assert.Contains(t, stdout, `  inner: {"ns":"test.user","o":{"_id":20},"op":"d","t":1,"ts":{"i":10,"t":50}}`)
}

func TestShow_JSONAt(t *testing.T) {
	db := seedDB(t, insertAt(oplog.NewOpTime(1, 40, 1), 1), insertAt(oplog.NewOpTime(1, 40, 2), 2))

	stdout, _, err := runCLI(t, "--format", "json", "show", "--db", db, "--at", "1:40:2")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ShowResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Records, 1)

	view := resp.Data.Records[0]
	assert.Equal(t, "1:40:2", view.At)
	assert.Equal(t, "insert", view.Op)
	assert.False(t, view.Carrier)
	assert.Nil(t, view.Inner)

	rec, err := oplog.Unmarshal(view.Record)
	require.NoError(t, err)
	id, ok := rec.DocumentID()
	require.True(t, ok)
	assert.Equal(t, ir.Int(2), id)
}

func TestShow_RangeAndNamespace(t *testing.T) {
	other := insertAt(oplog.NewOpTime(1, 40, 3), 3)
	other.Namespace = "test.order"
	db := seedDB(t,
		insertAt(oplog.NewOpTime(1, 40, 1), 1),
		insertAt(oplog.NewOpTime(1, 40, 2), 2),
		other,
	)

	stdout, _, err := runCLI(t, "show", "--db", db, "--from", "1:40:2")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "1:40:1 ")
	assert.Contains(t, stdout, "1:40:2 ")
	assert.Contains(t, stdout, "1:40:3 ")

	stdout, _, err = runCLI(t, "show", "--db", db, "--ns", "test.order")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1:40:3 insert test.order")
	assert.NotContains(t, stdout, "test.user")

	stdout, _, err = runCLI(t, "show", "--db", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1:40:1 ")
	assert.NotContains(t, stdout, "1:40:2 ")
}

func TestShow_MalformedCarrier(t *testing.T) {
	carrier := oplog.Record{
		OpTime:    oplog.NewOpTime(1, 60, 10),
		Op:        oplog.OpNoop,
		Namespace: "test.user",
		Object:    oplog.CarrierSentinel(),
		Object2:   ir.Doc(ir.E("garbage", ir.Bool(true))),
	}
	db := seedDB(t, carrier)

	stdout, _, err := runCLI(t, "show", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "inner: malformed: malformed carrier record at {ts: Timestamp(60, 10), t: 1}")
}

func TestShow_Errors(t *testing.T) {
	db := seedDB(t)

	stdout, _, err := runCLI(t, "show", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No records found.")

	_, _, err = runCLI(t, "show", "--db", db, "--at", "1:1:1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = runCLI(t, "show", "--db", db, "--at", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
