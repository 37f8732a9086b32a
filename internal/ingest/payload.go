package ingest

import (
	"encoding/json"
	"math"
	"strconv"
)

// Payload is the inbound beacon data in one of two shapes: the raw JSON string
// exactly as received, or an already-decoded object. The two shapes collapse
// into one canonical string form at Canonicalize.
type Payload struct {
	raw        string
	structured map[string]any
	isRaw      bool
	present    bool
}

// RawString wraps a JSON-encoded string received from the client.
func RawString(s string) Payload {
	return Payload{raw: s, isRaw: true, present: s != ""}
}

// StructuredValue wraps an already-decoded payload object.
func StructuredValue(m map[string]any) Payload {
	return Payload{structured: m, present: m != nil}
}

// Present reports whether any payload data was supplied at all.
func (p Payload) Present() bool { return p.present }

// canonicalString returns the string form that gets persisted and hashed.
// Raw strings are used verbatim; structured values are serialized once here.
// Deduplication is therefore syntactic: the same event submitted as a string
// and as an object produces two different data hashes.
func (p Payload) canonicalString() (string, error) {
	if p.isRaw {
		return p.raw, nil
	}
	b, err := json.Marshal(p.structured)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parsed returns the payload as a decoded object. For raw strings the error is
// a JSON syntax error when the string does not parse; JSON that parses to a
// non-object yields (nil, false, nil).
func (p Payload) parsed() (map[string]any, bool, error) {
	if !p.isRaw {
		return p.structured, true, nil
	}
	var v any
	if err := json.Unmarshal([]byte(p.raw), &v); err != nil {
		return nil, false, err
	}
	m, ok := v.(map[string]any)
	return m, ok, nil
}

// fieldPresent mirrors the client contract: empty strings, zero numbers,
// false, and null all count as absent.
func fieldPresent(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}

// coerceString renders a payload value for a text column. Numbers keep their
// JSON literal form so epoch timestamps round-trip unchanged.
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
