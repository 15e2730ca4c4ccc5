package ir

// Version constants for the record format and the tool.
const (
	// RecordFormatVersion is the version of the stored record document form.
	RecordFormatVersion = "1"

	// ToolVersion is the retrywrites release version.
	ToolVersion = "0.1.0"
)
