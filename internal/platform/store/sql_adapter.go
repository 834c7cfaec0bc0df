package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jsonlmerge/internal/platform/store/sqlite"
)

// sqlAdapter wraps sqlite.DB and implements RowQuerier + TxRunner
// it also emits query trace events when a tracer is configured
type sqlAdapter struct {
	d *sqlite.DB
}

func newSQLAdapter(d *sqlite.DB) *sqlAdapter { return &sqlAdapter{d: d} }

func (a *sqlAdapter) Ping(ctx context.Context) error {
	if a == nil || a.d == nil {
		return errors.New("sqlite: nil adapter")
	}
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *sqlAdapter) Close() error { return a.d.Close() }

func (a *sqlAdapter) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	start := time.Now()
	res, err := a.d.SQL.ExecContext(ctx, q, args...)
	a.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return newTag(res), nil
}

func (a *sqlAdapter) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := a.d.SQL.QueryContext(ctx, q, args...)
	a.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

func (a *sqlAdapter) QueryRow(ctx context.Context, q string, args ...any) Row {
	start := time.Now()
	r := a.d.SQL.QueryRowContext(ctx, q, args...)
	// wrap to emit after Scan completes, capturing error from Scan
	return row{
		r: r,
		after: func(scanErr error) {
			a.emit(ctx, q, args, start, scanErr)
		},
	}
}

func (a *sqlAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.d.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	q := txQuerier{
		tx:     tx,
		tracer: a.d.Tracer,
		slowUS: int64(a.d.SlowMs) * 1000,
	}
	if err := fn(q); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// emit sends a query event to the configured tracer
func (a *sqlAdapter) emit(ctx context.Context, q string, args []any, start time.Time, err error) {
	if a == nil || a.d == nil || a.d.Tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	slow := a.d.SlowMs >= 0 && elapsedUS >= int64(a.d.SlowMs)*1000
	a.d.Tracer.OnQuery(ctx, sqlite.QueryEvent{
		SQL:       q,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      slow,
	})
}

// adapters for database/sql to our tiny Row/Rows/CommandTag

type row struct {
	r     *sql.Row
	after func(error)
}

func (x row) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type rows struct{ r *sql.Rows }

func (x rows) Next() bool            { return x.r.Next() }
func (x rows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x rows) Err() error            { return x.r.Err() }
func (x rows) Close()                { _ = x.r.Close() }
func (x rows) Columns() []string {
	cols, err := x.r.Columns()
	if err != nil {
		return nil
	}
	return cols
}

// tag snapshots sql.Result so we satisfy our CommandTag interface
type tag struct{ affected int64 }

func newTag(res sql.Result) tag {
	n, err := res.RowsAffected()
	if err != nil {
		n = 0
	}
	return tag{affected: n}
}

func (t tag) String() string      { return "" }
func (t tag) RowsAffected() int64 { return t.affected }

// txQuerier uses *sql.Tx to satisfy RowQuerier inside a Tx
// it mirrors sqlAdapter emit behavior so queries inside transactions are also traced
type txQuerier struct {
	tx     *sql.Tx
	tracer sqlite.QueryTracer
	slowUS int64
}

func (t txQuerier) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	start := time.Now()
	res, err := t.tx.ExecContext(ctx, q, args...)
	t.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return newTag(res), nil
}

func (t txQuerier) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.tx.QueryContext(ctx, q, args...)
	t.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{r: rs}, nil
}

func (t txQuerier) QueryRow(ctx context.Context, q string, args ...any) Row {
	start := time.Now()
	r := t.tx.QueryRowContext(ctx, q, args...)
	return row{
		r: r,
		after: func(scanErr error) {
			t.emit(ctx, q, args, start, scanErr)
		},
	}
}

func (t txQuerier) emit(ctx context.Context, q string, args []any, start time.Time, err error) {
	if t.tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	slow := t.slowUS >= 0 && elapsedUS >= t.slowUS
	t.tracer.OnQuery(ctx, sqlite.QueryEvent{
		SQL:       q,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      slow,
	})
}
