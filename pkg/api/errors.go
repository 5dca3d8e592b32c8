package api

// Error responses carry these metadata keys so clients can highlight the
// offending input.
const (
	// ErrorKindHeader holds a stable error kind such as "PercentageSumMismatch".
	ErrorKindHeader = "Error-Kind"
	// ErrorFieldHeader holds the request field path, e.g. "participants[1].share".
	ErrorFieldHeader = "Error-Field"
)
