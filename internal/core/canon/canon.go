// Package canon implements the canonical byte encoding for JSON-like values.
//
// Two values that are semantically equal (same JSON value under
// key-order-insensitive comparison for objects) encode to identical bytes:
// object keys are sorted at every depth, output is compact, and numbers keep
// their original literal form. The encoding doubles as the storage form and
// as the sort key for deterministic export ordering.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	perr "jsonlmerge/internal/platform/errors"
)

// Encode returns the canonical compact JSON encoding of v.
// v must be a JSON-shaped value: nil, bool, string, json.Number, numeric,
// []any, or map[string]any. Anything else is a codec error
func Encode(v any) ([]byte, error) {
	if err := check(v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeCodec, "canonical encode")
	}
	// json.Encoder terminates the value with a newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeString is Encode for a known string value (field names, keys).
// It cannot fail for valid UTF-8 input in practice; errors still surface
func EncodeString(s string) ([]byte, error) { return Encode(s) }

// Decode is the exact inverse of Encode. Numbers decode as json.Number so a
// later Encode reproduces the original literal. Malformed or trailing input
// is a codec error
func Decode(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeCodec, "canonical decode")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, perr.CodecErrf("canonical decode: trailing data after value")
	}
	return v, nil
}

// Fingerprint returns the hex sha256 of Encode(v), used as a store key
// component. The full encoding is persisted alongside it, so the hash is an
// index, not the source of truth
func Fingerprint(v any) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintBytes hashes an already-encoded canonical value
func FingerprintBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// check walks v and rejects anything outside the JSON variant set.
// Exhaustive matching here keeps unexpected shapes from being silently
// mis-encoded downstream
func check(v any) error {
	switch x := v.(type) {
	case nil, bool, string, json.Number:
		return nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case []any:
		for _, e := range x {
			if err := check(e); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, e := range x {
			if err := check(e); err != nil {
				return err
			}
		}
		return nil
	default:
		return perr.CodecErrf("unsupported value type %T", v)
	}
}
