package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retrywrites/internal/retryability"
)

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/fam_update_pre_image.yaml")
	require.NoError(t, err)

	assert.Equal(t, "fam_update_pre_image", scenario.Name)
	require.Len(t, scenario.Records, 2)
	assert.Equal(t, "1:50:9", scenario.Records[1].PreImage)
	assert.Equal(t, map[string]any{"$set": map[string]any{"z": 2}}, scenario.Records[1].O)

	cmd, err := scenario.Retry.Command()
	require.NoError(t, err)
	assert.Equal(t, retryability.CommandFindAndModify, cmd.Kind)
	assert.False(t, cmd.Intent.ReturnNew)
}

func TestLoadScenario_Carrier(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/nested_fam_remove.yaml")
	require.NoError(t, err)

	carrier := scenario.Records[1]
	require.NotNil(t, carrier.Inner)
	assert.Equal(t, "d", carrier.Inner.Op)
	assert.Empty(t, carrier.Op)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown top-level field",
			yaml: `
name: typo
description: "x"
record:
  - {at: "1:1:1", op: i, ns: a.b, o: {}}
retry: {command: insert}
expect: {reply: {n: 1}}
`,
		},
		{
			name: "unknown op",
			yaml: `
name: bad_op
description: "x"
records:
  - {at: "1:1:1", op: c, ns: a.b, o: {}}
retry: {command: insert}
expect: {reply: {n: 1}}
`,
		},
		{
			name: "bad position",
			yaml: `
name: bad_at
description: "x"
records:
  - {at: "yesterday", op: i, ns: a.b, o: {}}
retry: {command: insert}
expect: {reply: {n: 1}}
`,
		},
		{
			name: "unknown command",
			yaml: `
name: bad_command
description: "x"
records:
  - {at: "1:1:1", op: i, ns: a.b, o: {}}
retry: {command: upsert}
expect: {reply: {n: 1}}
`,
		},
		{
			name: "unknown error code",
			yaml: `
name: bad_code
description: "x"
records:
  - {at: "1:1:1", op: i, ns: a.b, o: {}}
retry: {command: insert}
expect: {error: BOOM}
`,
		},
		{
			name: "empty records",
			yaml: `
name: no_records
description: "x"
records: []
retry: {command: insert}
expect: {reply: {n: 1}}
`,
		},
		{
			name: "namespace without collection",
			yaml: `
name: bad_ns
description: "x"
records:
  - {at: "1:1:1", op: i, ns: nodot, o: {}}
retry: {command: insert}
expect: {reply: {n: 1}}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario("inline.yaml", []byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")

			var se *SchemaError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestParseScenario_SemanticErrors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		substr string
	}{
		{
			name: "carrier with its own op",
			yaml: `
name: carrier_op
description: "x"
records:
  - op: n
    ns: a.b
    inner: {op: i, ns: a.b, o: {}}
retry: {command: insert}
expect: {reply: {n: 1}}
`,
			substr: "takes its op, o and o2 from inner",
		},
		{
			name: "record without payload",
			yaml: `
name: no_payload
description: "x"
records:
  - {op: i, ns: a.b}
retry: {command: insert}
expect: {reply: {n: 1}}
`,
			substr: "o is required",
		},
		{
			name: "position out of range",
			yaml: `
name: big_inc
description: "x"
records:
  - {at: "1:1:4294967296", op: i, ns: a.b, o: {}}
retry: {command: insert}
expect: {reply: {n: 1}}
`,
			substr: "records[0]: at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario("inline.yaml", []byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestLoadRecordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	content := `
records:
  - {at: "1:50:9", op: n, ns: test.user, o: {x: 1}}
  - at: "1:60:1"
    inner: {at: "1:50:10", op: d, ns: test.user, o: {_id: 1}}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	file, err := LoadRecordFile(path)
	require.NoError(t, err)
	require.Len(t, file.Records, 2)
	require.NotNil(t, file.Records[1].Inner)
}

func TestLoadRecordFile_RejectsScenarioFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	content := `
records:
  - {at: "1:50:9", op: n, ns: test.user, o: {x: 1}}
retry: {command: insert}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadRecordFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid records file")
}
