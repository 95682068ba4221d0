package detector

import (
	"regexp"
	"strings"

	"github.com/ccollicutt/replaycheck/pkg/parser"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// digestPattern matches a lowercase hex md5 digest.
var digestPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// maxDigestColumn bounds the columns searched for a digest.
const maxDigestColumn = 16

// LineFormat is a known event log line format.
type LineFormat struct {
	Name        string              // Human-readable name
	Check       reconcile.CheckType // Check that consumes this format
	Description string

	// Match reports whether a line is in this format. Column is the
	// 1-based column of interest, or 0 when the format has none.
	Match func(line string) (column int, ok bool)
}

// DefaultFormats returns the built-in line formats, most specific first.
func DefaultFormats() []*LineFormat {
	return []*LineFormat{
		{
			Name:        "fingerprint events",
			Check:       reconcile.TypeMultiplicity,
			Description: "<prefix> INFO: <decimal kind> <hex fingerprint> <rest>",
			Match: func(line string) (int, bool) {
				_, ok := parser.ExtractEvent(line)
				return 0, ok
			},
		},
		{
			Name:        "JSON events",
			Check:       reconcile.TypeJSON,
			Description: "<prefix> <JSON object>",
			Match: func(line string) (int, bool) {
				_, ok := parser.ExtractJSON(line)
				return 0, ok
			},
		},
		{
			Name:        "md5 digest column",
			Check:       reconcile.TypeMD5,
			Description: "whitespace-separated fields, one holding a 32 hex digit digest",
			Match:       matchDigestColumn,
		},
	}
}

func matchDigestColumn(line string) (int, bool) {
	fields := strings.Fields(line)
	for i, f := range fields {
		if i >= maxDigestColumn {
			break
		}
		if digestPattern.MatchString(f) {
			return i + 1, true
		}
	}
	return 0, false
}
