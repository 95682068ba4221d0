// Package parser provides log file reading and line extraction for reconciliation.
package parser

// LogLine is a raw log line as read from one stream.
type LogLine struct {
	// Content is the raw line text without the trailing newline.
	Content string

	// Source is the file path this line came from.
	Source string

	// Index is the 0-based position of the line in the source file.
	Index int

	// Truncated is set when the line was longer than the reader's limit.
	// Content then holds only its head and is not a complete record.
	Truncated bool
}

// Event is a line extracted with the fingerprint pattern.
type Event struct {
	// Kind is the event type code.
	Kind uint64

	// Fingerprint is the hex content digest identifying the event instance.
	Fingerprint string

	// Rest is the trailing text after the fingerprint.
	Rest string
}

// Payload is a decoded JSON event. Numbers are kept as json.Number so
// integers and floats stay distinguishable.
type Payload map[string]any

// JSONRecord is a line extracted with the JSON pattern.
type JSONRecord struct {
	// Raw is the JSON object text exactly as it appeared in the line.
	Raw string

	// Fields is the decoded object.
	Fields Payload
}
