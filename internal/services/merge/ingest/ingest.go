// Package ingest turns raw input lines into field-store rows.
//
// A line is parsed into a JSON object, the merge key is extracted, and the
// remaining fields are decomposed into (field, value) pairs. Array-valued
// fields are flattened one level so each element joins the field's value
// set independently; nested arrays inside elements stay intact
package ingest

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	perr "jsonlmerge/internal/platform/errors"
	"jsonlmerge/internal/services/merge/domain"
)

// FieldValue is one candidate member of a field's value set
type FieldValue struct {
	Field string
	Value any
}

// ParseRecord decodes a line into a JSON object. Numbers decode as
// json.Number so their literal form survives into the canonical encoding.
// Non-object values and malformed JSON are parse errors
func ParseRecord(line []byte) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeParse, "parse line")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, perr.ParseErrf("parse line: trailing data after value")
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, perr.ParseErrf("parse line: not a JSON object")
	}
	return rec, nil
}

// TopLevelExtractor extracts a top-level field as the merge key.
// A present null is a valid key; only absence reports !ok
func TopLevelExtractor(field string) domain.KeyExtractor {
	return func(rec domain.Record) (any, bool) {
		v, ok := rec[field]
		return v, ok
	}
}

// DotPathExtractor extracts a nested merge key addressed by a dot path
// such as "meta.id". Each segment must resolve to an object until the
// last; a missing segment or a non-object in the middle reports !ok
func DotPathExtractor(path string) domain.KeyExtractor {
	segs := strings.Split(path, ".")
	return func(rec domain.Record) (any, bool) {
		var cur any = rec
		for _, seg := range segs {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = obj[seg]
			if !ok {
				return nil, false
			}
		}
		return cur, true
	}
}

// NewExtractor picks the extractor for a key spec: a spec containing a
// dot addresses a nested key, otherwise the key is a top-level field
func NewExtractor(keySpec string) domain.KeyExtractor {
	if strings.Contains(keySpec, ".") {
		return DotPathExtractor(keySpec)
	}
	return TopLevelExtractor(keySpec)
}

// Decompose splits a record into candidate field values, skipping the
// merge-key field itself. Array values contribute one candidate per
// element (an empty array contributes nothing)
func Decompose(rec domain.Record, keyField string) []FieldValue {
	out := make([]FieldValue, 0, len(rec))
	for field, value := range rec {
		if field == keyField {
			continue
		}
		if arr, ok := value.([]any); ok {
			for _, el := range arr {
				out = append(out, FieldValue{Field: field, Value: el})
			}
			continue
		}
		out = append(out, FieldValue{Field: field, Value: value})
	}
	return out
}
