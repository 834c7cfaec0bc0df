package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"

	"jsonlmerge/internal/adapters/jsonl"
	"jsonlmerge/internal/modkit/repokit"
	"jsonlmerge/internal/platform/store"
	"jsonlmerge/internal/platform/testkit"
	"jsonlmerge/internal/services/merge/domain"
	"jsonlmerge/internal/services/merge/repo"
)

type memSink struct{ lines []string }

func (m *memSink) WriteLine(b []byte) error {
	m.lines = append(m.lines, string(b))
	return nil
}

func (m *memSink) Flush() error { return nil }

type memDiag struct{ ds []domain.Diagnostic }

func (m *memDiag) Emit(d domain.Diagnostic) { m.ds = append(m.ds, d) }

// countingTx counts batch flush transactions
type countingTx struct {
	repokit.TxRunner
	flushes int
}

func (c *countingTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	c.flushes++
	return c.TxRunner.Tx(ctx, fn)
}

func openDB(t *testing.T) repokit.TxRunner {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{
		SQLite: store.SQLiteConfig{Enabled: true, Path: testkit.TempDB(t)},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s.DB
}

func runMerge(t *testing.T, input string, cfg Config) (domain.Summary, []string, []domain.Diagnostic) {
	t.Helper()

	src := jsonl.NewReader(io.NopCloser(strings.NewReader(input)))
	defer src.Close()
	sink := &memSink{}
	diag := &memDiag{}

	svc := New(openDB(t), repo.NewSQLite(), src, sink, diag, cfg)
	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return sum, sink.lines, diag.ds
}

func TestRunMergesRecordsByKey(t *testing.T) {
	input := `{"id":"A","tags":["x","y"],"note":"n1"}
{"id":"B","v":1}
{"id":"A","tags":["y","z"],"note":"n1"}
`
	sum, lines, diags := runMerge(t, input, Config{KeyField: "id"})

	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if lines[0] != `{"id":"A","note":"n1","tags":["x","y","z"]}` {
		t.Fatalf("merged A = %s", lines[0])
	}
	if lines[1] != `{"id":"B","v":1}` {
		t.Fatalf("merged B = %s", lines[1])
	}
	if len(diags) != 0 {
		t.Fatalf("diags = %v", diags)
	}

	if sum.LinesRead != 3 || sum.Accepted != 3 || sum.KeysExported != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.ValuesInserted != 5 || sum.ValuesDeduped != 2 {
		t.Fatalf("value counts = %d inserted, %d deduped", sum.ValuesInserted, sum.ValuesDeduped)
	}
}

func TestRunSkipsBadLinesAndKeepsDiagnosticsOrdered(t *testing.T) {
	input := `{"id":"A","x":1}

not json
{"noid":true}
{"id":"A","x":2}
`
	sum, lines, diags := runMerge(t, input, Config{KeyField: "id"})

	if sum.LinesRead != 5 || sum.Accepted != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.SkippedEmpty != 1 || sum.SkippedParse != 1 || sum.SkippedMissingKey != 1 {
		t.Fatalf("skip counts = %+v", sum)
	}

	if len(diags) != 2 {
		t.Fatalf("diags = %v", diags)
	}
	if diags[0].Line != 3 || diags[0].Category != domain.CategoryParseError {
		t.Fatalf("diag[0] = %+v", diags[0])
	}
	if diags[1].Line != 4 || diags[1].Category != domain.CategoryMissingKey {
		t.Fatalf("diag[1] = %+v", diags[1])
	}

	if len(lines) != 1 || lines[0] != `{"id":"A","x":[1,2]}` {
		t.Fatalf("lines = %v", lines)
	}
}

func TestRunNullKeyIsValid(t *testing.T) {
	input := `{"id":null,"a":1}
{"id":null,"a":2}
`
	sum, lines, _ := runMerge(t, input, Config{KeyField: "id"})

	if sum.SkippedMissingKey != 0 {
		t.Fatalf("null key was skipped: %+v", sum)
	}
	if len(lines) != 1 || lines[0] != `{"id":null,"a":[1,2]}` {
		t.Fatalf("lines = %v", lines)
	}
}

func TestRunKeepsNumericLiteralsDistinct(t *testing.T) {
	input := `{"id":"A","n":1}
{"id":"A","n":1.0}
`
	_, lines, _ := runMerge(t, input, Config{KeyField: "id"})

	if len(lines) != 1 || lines[0] != `{"id":"A","n":[1,1.0]}` {
		t.Fatalf("lines = %v", lines)
	}
}

func TestRunMergesEquivalentObjectsOnce(t *testing.T) {
	input := `{"id":"A","o":{"y":1,"x":2}}
{"id":"A","o":{"x":2,"y":1}}
`
	sum, lines, _ := runMerge(t, input, Config{KeyField: "id"})

	if sum.ValuesInserted != 1 || sum.ValuesDeduped != 1 {
		t.Fatalf("value counts = %+v", sum)
	}
	if len(lines) != 1 || lines[0] != `{"id":"A","o":{"x":2,"y":1}}` {
		t.Fatalf("lines = %v", lines)
	}
}

func TestRunDotPathKey(t *testing.T) {
	input := `{"meta":{"id":"X"},"v":1}
{"meta":{"id":"X"},"v":2}
`
	_, lines, _ := runMerge(t, input, Config{KeyField: "meta.id"})

	if len(lines) != 1 {
		t.Fatalf("lines = %v", lines)
	}
	// the meta container is merged like any other field
	if lines[0] != `{"meta.id":"X","meta":{"id":"X"},"v":[1,2]}` {
		t.Fatalf("merged = %s", lines[0])
	}
}

func TestRunSmallBatchesFlushRepeatedly(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 7; i++ {
		sb.WriteString(`{"id":"K","f` + string(rune('a'+i)) + `":1}` + "\n")
	}
	sum, lines, _ := runMerge(t, sb.String(), Config{KeyField: "id", BatchSize: 2})

	if sum.ValuesInserted != 7 {
		t.Fatalf("inserted = %d", sum.ValuesInserted)
	}
	if len(lines) != 1 || lines[0] != `{"id":"K","fa":1,"fb":1,"fc":1,"fd":1,"fe":1,"ff":1,"fg":1}` {
		t.Fatalf("lines = %v", lines)
	}
}

func TestRunKeyOnlyRecordsFlushInBatches(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString(`{"id":"k` + strconv.Itoa(i) + `"}` + "\n")
	}

	db := &countingTx{TxRunner: openDB(t)}
	src := jsonl.NewReader(io.NopCloser(strings.NewReader(sb.String())))
	defer src.Close()
	sink := &memSink{}

	svc := New(db, repo.NewSQLite(), src, sink, nil, Config{KeyField: "id", BatchSize: 2})
	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// records carrying only the merge key produce no value rows, yet their
	// key rows must still fill batches instead of accumulating until EOF
	if db.flushes != 3 {
		t.Fatalf("flushes = %d, want 3", db.flushes)
	}
	if sum.Accepted != 6 || sum.ValuesInserted != 0 || sum.KeysExported != 6 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sink.lines) != 6 || sink.lines[0] != `{"id":"k0"}` || sink.lines[5] != `{"id":"k5"}` {
		t.Fatalf("lines = %v", sink.lines)
	}
}

func TestRunRepeatedKeyDedupesInBuffer(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString(`{"id":"K"}` + "\n")
	}

	db := &countingTx{TxRunner: openDB(t)}
	src := jsonl.NewReader(io.NopCloser(strings.NewReader(sb.String())))
	defer src.Close()
	sink := &memSink{}

	svc := New(db, repo.NewSQLite(), src, sink, nil, Config{KeyField: "id", BatchSize: 2})
	sum, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// one distinct key dedupes to one buffered row, so only the final flush runs
	if db.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", db.flushes)
	}
	if sum.Accepted != 50 || sum.KeysExported != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sink.lines) != 1 || sink.lines[0] != `{"id":"K"}` {
		t.Fatalf("lines = %v", sink.lines)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	src := jsonl.NewReader(io.NopCloser(strings.NewReader(`{"id":"A"}` + "\n")))
	defer src.Close()

	svc := New(openDB(t), repo.NewSQLite(), src, &memSink{}, nil, Config{KeyField: "id"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Run(ctx); err == nil {
		t.Fatalf("canceled run returned nil error")
	}
}

func TestRunKeysExportInCanonicalOrder(t *testing.T) {
	input := `{"id":"b","v":1}
{"id":"a","v":1}
{"id":10,"v":1}
`
	_, lines, _ := runMerge(t, input, Config{KeyField: "id"})

	// canonical encodings sort bytewise: "a" and "b" (0x22 prefix) before 10 (0x31)
	want := []string{
		`{"id":"a","v":1}`,
		`{"id":"b","v":1}`,
		`{"id":10,"v":1}`,
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d] = %s, want %s", i, lines[i], want[i])
		}
	}
}
