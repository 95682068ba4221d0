package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// fingerprintPattern matches "<prefix> INFO: <kind> <fingerprint> <rest>".
	fingerprintPattern = regexp.MustCompile(`^.* INFO: ([0-9]+)\s+([0-9a-f]+)\s(.*)$`)

	// jsonPattern matches "<prefix> <json-object>" where the object starts at
	// the first '{' and runs to the end of the line.
	jsonPattern = regexp.MustCompile(`^[^{]* (\{.*\})$`)
)

var errTrailingData = errors.New("trailing data after JSON object")

// ExtractEvent parses a line with the fingerprint pattern.
// Returns false when the line does not match; such lines are noise, not defects.
func ExtractEvent(line string) (Event, bool) {
	m := fingerprintPattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	kind, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Event{}, false
	}

	return Event{
		Kind:        kind,
		Fingerprint: m[2],
		Rest:        m[3],
	}, true
}

// ExtractJSON parses a line with the JSON pattern and decodes the object.
// Returns false when the line does not match or the text is not a JSON object.
func ExtractJSON(line string) (JSONRecord, bool) {
	m := jsonPattern.FindStringSubmatch(line)
	if m == nil {
		return JSONRecord{}, false
	}

	fields, err := DecodePayload(m[1])
	if err != nil {
		return JSONRecord{}, false
	}

	return JSONRecord{Raw: m[1], Fields: fields}, true
}

// DecodePayload decodes a JSON object keeping numbers as json.Number.
func DecodePayload(text string) (Payload, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var fields Payload
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return fields, nil
}

// Canonical returns the compact form of a payload with keys sorted.
func Canonical(p Payload) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(p)); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Column returns the 1-based whitespace-separated field of a line, or an
// empty string when the line has fewer fields.
func Column(line string, n int) string {
	if n < 1 {
		return ""
	}
	fields := strings.Fields(line)
	if len(fields) < n {
		return ""
	}
	return fields[n-1]
}
