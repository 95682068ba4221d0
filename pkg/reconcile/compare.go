package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ccollicutt/replaycheck/pkg/parser"
)

// sentinelText is the "new poller instance" record each producer synthesizes
// locally when it starts. It has no counterpart in the peer stream.
const sentinelText = `{"_type": 4294901762, "category": 65535, "element": 2, "broker_id": 1, ` +
	`"broker_name": "", "enabled": true, "poller_id": 1, "poller_name": "Central"}`

var sentinelCanonical = mustCanonical(sentinelText)

// SyntheticTypes are per-process bookkeeping event types. They may appear on
// either side, at any position, without a counterpart.
var SyntheticTypes = map[uint64]string{
	4294901762: "bbdo category",
	131081:     "storage bookkeeping",
}

func mustCanonical(text string) string {
	p, err := parser.DecodePayload(text)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in record %s: %v", text, err))
	}
	return parser.Canonical(p)
}

// IsSentinel reports whether a record is the locally synthesized poller
// instance record. The canonical forms are compared case-insensitively.
func IsSentinel(rec parser.JSONRecord) bool {
	return strings.EqualFold(parser.Canonical(rec.Fields), sentinelCanonical)
}

// SyntheticType returns the payload's _type when it is one of SyntheticTypes.
func SyntheticType(p parser.Payload) (uint64, bool) {
	typ, ok := payloadType(p)
	if !ok {
		return 0, false
	}
	_, synthetic := SyntheticTypes[typ]
	return typ, synthetic
}

func payloadType(p parser.Payload) (uint64, bool) {
	n, ok := p["_type"].(json.Number)
	if !ok {
		return 0, false
	}
	typ, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return typ, true
}

// Equivalent reports whether two payloads describe the same event.
// Field counts must match. Float fields on the left compare within tol
// (a difference strictly greater than tol is a mismatch); every other field
// compares exactly. When the payloads differ, the reason names the first
// offending field in key order.
func Equivalent(a, b parser.Payload, tol float64) (bool, string) {
	if len(a) != len(b) {
		return false, fmt.Sprintf("field count %d != %d", len(a), len(b))
	}

	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		vb, ok := b[k]
		if !ok {
			return false, fmt.Sprintf("field %q missing on second side", k)
		}
		if !valuesEqual(a[k], vb, tol) {
			return false, fmt.Sprintf("field %q differs: %v != %v", k, a[k], vb)
		}
	}
	return true, ""
}

func valuesEqual(a, b any, tol float64) bool {
	na, ok := a.(json.Number)
	if !ok {
		return nestedEqual(a, b)
	}
	nb, ok := b.(json.Number)
	if !ok {
		return false
	}

	if isFloat(na) {
		fa, errA := na.Float64()
		fb, errB := nb.Float64()
		if errA != nil || errB != nil {
			return false
		}
		return math.Abs(fa-fb) <= tol
	}
	return numbersEqual(na, nb)
}

// nestedEqual compares values inside objects and arrays. Numbers compare by
// value with no tolerance, so 1 and 1.0 are equal.
func nestedEqual(a, b any) bool {
	switch va := a.(type) {
	case json.Number:
		vb, ok := b.(json.Number)
		return ok && numbersEqual(va, vb)
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, x := range va {
			y, ok := vb[k]
			if !ok || !nestedEqual(x, y) {
				return false
			}
		}
		return true
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !nestedEqual(va[i], vb[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// numbersEqual compares two JSON numbers by value. Integers are compared
// exactly, whatever their size.
func numbersEqual(na, nb json.Number) bool {
	if !isFloat(na) && !isFloat(nb) {
		ia, okA := new(big.Int).SetString(na.String(), 10)
		ib, okB := new(big.Int).SetString(nb.String(), 10)
		return okA && okB && ia.Cmp(ib) == 0
	}
	fa, errA := na.Float64()
	fb, errB := nb.Float64()
	return errA == nil && errB == nil && fa == fb
}

func isFloat(n json.Number) bool {
	return strings.ContainsAny(n.String(), ".eE")
}
