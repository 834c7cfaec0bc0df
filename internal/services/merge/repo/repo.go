// Package repo provides the SQLite-backed field store implementation
package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"jsonlmerge/internal/modkit/repokit"
	perr "jsonlmerge/internal/platform/errors"
	"jsonlmerge/internal/services/merge/domain"
)

// insertChunk bounds the number of rows per multi-row INSERT so the
// statement stays well under SQLite's bind variable limit
const insertChunk = 500

type (
	lite   struct{ q repokit.Queryer }
	binder struct{}
)

// NewSQLite constructs a new repo binder for the SQLite scratch store
func NewSQLite() repokit.Binder[domain.StorageRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.StorageRepo { return &lite{q: q} }

// Migrate implements domain.StorageRepo
func (s *lite) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS field_values (
			merge_key  TEXT NOT NULL,
			field      TEXT NOT NULL,
			value_hash TEXT NOT NULL,
			value_canon BLOB NOT NULL,
			PRIMARY KEY (merge_key, field, value_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS merge_keys (
			merge_key TEXT NOT NULL PRIMARY KEY,
			key_canon BLOB NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeStorage, "migrate scratch schema")
		}
	}
	return nil
}

// InsertValues implements domain.StorageRepo.
// OR IGNORE makes re-inserting an equal value a no-op; the affected row
// count tells new inserts apart from deduplicated ones
func (s *lite) InsertValues(ctx context.Context, rows []domain.ValueRow) (int, int, error) {
	var inserted int
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		chunk := rows[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT OR IGNORE INTO field_values (merge_key, field, value_hash, value_canon) VALUES `)
		args := make([]any, 0, len(chunk)*4)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString("(?,?,?,?)")
			args = append(args, r.MergeKey, r.Field, r.ValueHash, r.Value)
		}

		tag, err := s.q.Exec(ctx, sb.String(), args...)
		if err != nil {
			return 0, 0, perr.Wrapf(err, perr.ErrorCodeStorage, "insert field values")
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, len(rows) - inserted, nil
}

// RegisterKeys implements domain.StorageRepo
func (s *lite) RegisterKeys(ctx context.Context, rows []domain.KeyRow) error {
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		chunk := rows[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT OR IGNORE INTO merge_keys (merge_key, key_canon) VALUES `)
		args := make([]any, 0, len(chunk)*2)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString("(?,?)")
			args = append(args, r.MergeKey, r.Key)
		}

		if _, err := s.q.Exec(ctx, sb.String(), args...); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeStorage, "register merge keys")
		}
	}
	return nil
}

// ValuesFor implements domain.StorageRepo.
// Ordering by the canonical bytes gives a deterministic, comparison-free
// sort for merged arrays (SQLite TEXT/BLOB order is bytewise)
func (s *lite) ValuesFor(ctx context.Context, mergeKey, field string) ([][]byte, error) {
	rows, err := s.q.Query(ctx,
		`SELECT value_canon FROM field_values WHERE merge_key = ? AND field = ? ORDER BY value_canon`,
		mergeKey, field,
	)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "query field values")
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "scan field value")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FieldsFor implements domain.StorageRepo
func (s *lite) FieldsFor(ctx context.Context, mergeKey string) ([]string, error) {
	rows, err := s.q.Query(ctx,
		`SELECT DISTINCT field FROM field_values WHERE merge_key = ? ORDER BY field`,
		mergeKey,
	)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "query fields")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "scan field")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// MergeKeysPage implements domain.StorageRepo.
// Keyset pagination keeps export memory bounded and avoids holding a
// result set open across the per-key queries that follow
func (s *lite) MergeKeysPage(ctx context.Context, afterKey string, limit int) ([]string, error) {
	rows, err := s.q.Query(ctx,
		`SELECT merge_key FROM merge_keys WHERE merge_key > ? ORDER BY merge_key LIMIT ?`,
		afterKey, limit,
	)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "query merge keys")
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "scan merge key")
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ResolveKey implements domain.StorageRepo
func (s *lite) ResolveKey(ctx context.Context, mergeKey string) ([]byte, error) {
	var canon []byte
	err := s.q.QueryRow(ctx,
		`SELECT key_canon FROM merge_keys WHERE merge_key = ?`, mergeKey,
	).Scan(&canon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, perr.NotFoundf("merge key not registered")
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "resolve merge key")
	}
	return canon, nil
}
