package domain

import "context"

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context) (Summary, error)
}

// StorageRepo is the disk-backed accumulator surface.
// Writes are insert-or-ignore: a value set never loses a member and
// re-inserting an equal value is a no-op
type StorageRepo interface {
	// Migrate creates the scratch schema (idempotent)
	Migrate(ctx context.Context) error

	// InsertValues bulk-inserts value rows, reporting how many were new
	// and how many were deduplicated against existing rows
	InsertValues(ctx context.Context, rows []ValueRow) (inserted, deduped int, err error)

	// RegisterKeys records original key forms; first writer wins
	RegisterKeys(ctx context.Context, rows []KeyRow) error

	// ValuesFor returns all distinct canonical values for (mergeKey, field)
	// in canonical-encoding sort order
	ValuesFor(ctx context.Context, mergeKey, field string) ([][]byte, error)

	// FieldsFor returns all field names seen under mergeKey, lexicographic
	FieldsFor(ctx context.Context, mergeKey string) ([]string, error)

	// MergeKeysPage returns up to limit merge keys strictly after afterKey,
	// ascending; an empty page terminates iteration
	MergeKeysPage(ctx context.Context, afterKey string, limit int) ([]string, error)

	// ResolveKey returns the original canonical key value, or a not found
	// error if the key was never registered
	ResolveKey(ctx context.Context, mergeKey string) ([]byte, error)
}

// LineSource supplies raw input lines with 1-based line numbers
type LineSource interface {
	Next() (line []byte, lineNo int, err error)
	Close() error
}

// LineSink consumes output lines
type LineSink interface {
	WriteLine(line []byte) error
	Flush() error
}

// KeyExtractor pulls the merge-key value out of a parsed record.
// ok is false when the key is absent; a present null is a valid key
type KeyExtractor func(rec Record) (value any, ok bool)

// DiagnosticSink receives per-line skip events in input order
type DiagnosticSink interface {
	Emit(d Diagnostic)
}
