// Package domain holds the core data structures and ports for the record merger
package domain

import "time"

// Record is one parsed input object. Values are JSON-shaped: nil, bool,
// string, json.Number, []any, map[string]any. Records are read-only once
// ingested; merged output is always newly constructed
type Record = map[string]any

// ValueRow is one pending field-store insert.
// MergeKey and Value carry canonical encodings; ValueHash indexes the value
type ValueRow struct {
	MergeKey  string
	Field     string
	ValueHash string
	Value     []byte
}

// KeyRow registers the original decoded form of a merge key.
// First registration wins; later ones are no-ops
type KeyRow struct {
	MergeKey string
	Key      []byte
}

// Outcome classifies one input line
type Outcome uint8

const (
	// OutcomeAccepted means the record was decomposed and buffered
	OutcomeAccepted Outcome = iota

	// OutcomeSkippedEmpty means the line was blank
	OutcomeSkippedEmpty

	// OutcomeSkippedParseError means the line was not a valid JSON object
	OutcomeSkippedParseError

	// OutcomeSkippedMissingKey means the record lacked the merge-key field
	OutcomeSkippedMissingKey
)

// String renders the outcome for diagnostics
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeSkippedEmpty:
		return "skipped_empty"
	case OutcomeSkippedParseError:
		return "skipped_parse_error"
	case OutcomeSkippedMissingKey:
		return "skipped_missing_key"
	default:
		return "unknown"
	}
}

// Category labels a per-line diagnostic
type Category string

const (
	// CategoryParseError marks lines that are not valid JSON objects
	CategoryParseError Category = "parse_error"

	// CategoryMissingKey marks records lacking the merge-key field
	CategoryMissingKey Category = "missing_key"
)

// Diagnostic is one per-line skip event, emitted in input order
type Diagnostic struct {
	Line     int
	Category Category
	Message  string
}

// Summary is the final run report
type Summary struct {
	LinesRead         int
	Accepted          int
	SkippedEmpty      int
	SkippedParse      int
	SkippedMissingKey int
	ValuesInserted    int
	ValuesDeduped     int
	KeysExported      int
	Elapsed           time.Duration
}

// Count records the outcome of one input line
func (s *Summary) Count(o Outcome) {
	s.LinesRead++
	switch o {
	case OutcomeAccepted:
		s.Accepted++
	case OutcomeSkippedEmpty:
		s.SkippedEmpty++
	case OutcomeSkippedParseError:
		s.SkippedParse++
	case OutcomeSkippedMissingKey:
		s.SkippedMissingKey++
	}
}
