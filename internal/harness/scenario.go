package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/retrywrites/internal/oplog"
	"github.com/roach88/retrywrites/internal/retryability"
)

// Scenario defines a retry conformance scenario: a log, an optional
// truncation, one retried command and the reply (or error) it must get.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Records are appended to a fresh log in order.
	Records []RecordSpec `yaml:"records"`

	// TruncateBefore drops every record older than this position before
	// the retry runs.
	TruncateBefore string `yaml:"truncate_before,omitempty"`

	// Retry is the command being retried.
	Retry RetrySpec `yaml:"retry"`

	// Expect is the outcome the retry must produce.
	Expect ExpectSpec `yaml:"expect"`
}

// RecordSpec is one log record as written in YAML.
//
// A spec with Inner set describes a carrier relaying Inner; it must not set
// op, o or o2 itself. Positions are "term:secs:inc"; records without one get
// the next position from the clock.
type RecordSpec struct {
	At        string         `yaml:"at,omitempty"`
	Op        string         `yaml:"op,omitempty"`
	NS        string         `yaml:"ns,omitempty"`
	UI        string         `yaml:"ui,omitempty"`
	O         map[string]any `yaml:"o,omitempty"`
	O2        map[string]any `yaml:"o2,omitempty"`
	PreImage  string         `yaml:"pre_image,omitempty"`
	PostImage string         `yaml:"post_image,omitempty"`
	Inner     *RecordSpec    `yaml:"inner,omitempty"`
}

// RetrySpec is the retried command.
type RetrySpec struct {
	// CommandName is insert, update, delete or findAndModify.
	CommandName string `yaml:"command"`

	// At is the position of the record the retry is answered from.
	// Defaults to the last record in the scenario.
	At string `yaml:"at,omitempty"`

	// Intent is read for findAndModify only.
	Intent IntentSpec `yaml:"intent,omitempty"`
}

// IntentSpec mirrors retryability.FindAndModifyIntent.
type IntentSpec struct {
	Remove bool   `yaml:"remove,omitempty"`
	Upsert bool   `yaml:"upsert,omitempty"`
	New    bool   `yaml:"new,omitempty"`
	NS     string `yaml:"ns,omitempty"`
}

// ExpectSpec holds exactly one of Reply or Error.
type ExpectSpec struct {
	// Reply is the exact reply document.
	Reply map[string]any `yaml:"reply,omitempty"`

	// Error is the expected error code.
	Error string `yaml:"error,omitempty"`
}

// RecordFile is a bare list of records, the input format of `append`.
type RecordFile struct {
	Records []RecordSpec `yaml:"records"`
}

// Intent converts the YAML intent.
func (i IntentSpec) Intent() retryability.FindAndModifyIntent {
	return retryability.FindAndModifyIntent{
		Remove:    i.Remove,
		Upsert:    i.Upsert,
		ReturnNew: i.New,
		Namespace: i.NS,
	}
}

// Command converts the YAML retry into a retryability.Command.
func (r RetrySpec) Command() (retryability.Command, error) {
	kind, err := retryability.ParseCommandKind(r.CommandName)
	if err != nil {
		return retryability.Command{}, err
	}
	return retryability.Command{Kind: kind, Intent: r.Intent.Intent()}, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, fails the
// schema, contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario parses scenario YAML. filename is used in error messages.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	if err := ValidateYAML(filename, data, DefScenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "record:" vs "records:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadRecordFile reads a YAML file holding a records list.
func LoadRecordFile(path string) (*RecordFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	if err := ValidateYAML(path, data, DefRecordFile); err != nil {
		return nil, fmt.Errorf("invalid records file: %w", err)
	}

	var file RecordFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range file.Records {
		if err := validateRecordSpec(&file.Records[i]); err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
	}
	return &file, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Records) == 0 {
		return fmt.Errorf("records list is required and must be non-empty")
	}

	for i := range s.Records {
		if err := validateRecordSpec(&s.Records[i]); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
	}

	if s.TruncateBefore != "" {
		if _, err := oplog.ParseOpTime(s.TruncateBefore); err != nil {
			return fmt.Errorf("truncate_before: %w", err)
		}
	}

	if _, err := s.Retry.Command(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if s.Retry.At != "" {
		if _, err := oplog.ParseOpTime(s.Retry.At); err != nil {
			return fmt.Errorf("retry.at: %w", err)
		}
	}

	hasReply := s.Expect.Reply != nil
	hasError := s.Expect.Error != ""
	if hasReply == hasError {
		return fmt.Errorf("expect: exactly one of reply or error is required")
	}

	return nil
}

// validateRecordSpec checks the parts of a record the schema cannot.
func validateRecordSpec(r *RecordSpec) error {
	for field, value := range map[string]string{"at": r.At, "pre_image": r.PreImage, "post_image": r.PostImage} {
		if value == "" {
			continue
		}
		if _, err := oplog.ParseOpTime(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}

	if r.Inner != nil {
		if r.Op != "" || r.O != nil || r.O2 != nil {
			return fmt.Errorf("a carrier record takes its op, o and o2 from inner")
		}
		if err := validateRecordSpec(r.Inner); err != nil {
			return fmt.Errorf("inner: %w", err)
		}
		return nil
	}

	if r.Op == "" {
		return fmt.Errorf("op is required")
	}
	if r.NS == "" {
		return fmt.Errorf("ns is required")
	}
	if r.O == nil {
		return fmt.Errorf("o is required")
	}
	return nil
}
