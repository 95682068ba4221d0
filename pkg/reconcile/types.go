// Package reconcile verifies that two independently produced event logs
// describe an equivalent sequence of events.
//
// Three checks are provided:
//
//   - CompareJSONFiles aligns two JSON-payload logs with a tolerant
//     two-pointer walk.
//   - CheckBrokerRestart and CheckEngineRestart assert that every retained
//     event fingerprint occurs exactly once in each log.
//   - CompareFingerprintLists compares a single projected column positionally.
//
// Checks are pure functions of their inputs: they return a Result and send
// diagnostics to an injected Recorder. An error is returned only when an
// input cannot be read.
package reconcile

// CheckType identifies a reconciliation check.
type CheckType string

const (
	TypeJSON        CheckType = "json"
	TypeMD5         CheckType = "md5"
	TypeMultiplicity CheckType = "multiplicity"
)

// IssueType categorizes reconciliation defects.
type IssueType string

const (
	// IssueTypeMismatch indicates two aligned events are not equivalent.
	IssueTypeMismatch IssueType = "mismatch"

	// IssueTypeDuplicate indicates a fingerprint seen a number of times other than once.
	IssueTypeDuplicate IssueType = "duplicate"

	// IssueTypeNoEvents indicates a log with no retained events to count.
	IssueTypeNoEvents IssueType = "no_events"

	// IssueTypeFixupBroken indicates a known synthetic pair appeared incomplete.
	IssueTypeFixupBroken IssueType = "fixup_broken"

	// IssueTypeUnconsumed indicates a sequence left entries uncompared.
	IssueTypeUnconsumed IssueType = "unconsumed"
)

// Result is the outcome of one check.
type Result struct {
	// Check is the kind of check that produced the result.
	Check CheckType `json:"check"`

	// Sources are the two inputs, in argument order.
	Sources [2]string `json:"sources"`

	// Passed is the verdict.
	Passed bool `json:"passed"`

	// Issues lists every defect found. Empty when Passed.
	Issues []Issue `json:"issues"`

	// Stats provides execution statistics.
	Stats Stats `json:"stats"`
}

// Stats counts what a check consumed. Fields suffixed 1 and 2 refer to the
// first and second input.
type Stats struct {
	Lines1 int `json:"lines1"`
	Lines2 int `json:"lines2"`

	// Compared is the number of pairs found equivalent.
	Compared int `json:"compared,omitempty"`

	Skipped1 int `json:"skipped1,omitempty"`
	Skipped2 int `json:"skipped2,omitempty"`

	Unparseable1 int `json:"unparseable1,omitempty"`
	Unparseable2 int `json:"unparseable2,omitempty"`

	// Trailing lines left unread once the other stream was exhausted.
	Trailing1 int `json:"trailing1,omitempty"`
	Trailing2 int `json:"trailing2,omitempty"`

	// Multiplicity checks only.
	Retained1 int   `json:"retained1,omitempty"`
	Retained2 int   `json:"retained2,omitempty"`
	Excluded1 int   `json:"excluded1,omitempty"`
	Excluded2 int   `json:"excluded2,omitempty"`
	Counts1   []int `json:"counts1,omitempty"`
	Counts2   []int `json:"counts2,omitempty"`
}

// HasIssues returns true if any issues were detected.
func (r *Result) HasIssues() bool {
	return len(r.Issues) > 0
}

// Issue is a single reconciliation defect.
type Issue struct {
	// Type categorizes the issue.
	Type IssueType `json:"type"`

	// Description is a human-readable summary.
	Description string `json:"description"`

	// Context locates the defect.
	Context IssueContext `json:"context"`
}

// IssueContext provides the details needed to diagnose an issue by hand.
type IssueContext struct {
	// Stream is 1 or 2 for single-stream issues, 0 when both are involved.
	Stream int `json:"stream,omitempty"`

	// Source is the file of a single-stream issue.
	Source string `json:"source,omitempty"`

	// Index1 and Index2 are 0-based line positions in each stream.
	Index1 int `json:"index1"`
	Index2 int `json:"index2"`

	// Raw1 and Raw2 are the offending records as they appeared.
	Raw1 string `json:"raw1,omitempty"`
	Raw2 string `json:"raw2,omitempty"`

	// Fingerprint, Kind and Count describe a multiplicity violation.
	Fingerprint string `json:"fingerprint,omitempty"`
	Kind        uint64 `json:"kind,omitempty"`
	Count       int    `json:"count,omitempty"`
}
