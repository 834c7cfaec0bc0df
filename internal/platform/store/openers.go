package store

import (
	"context"

	"jsonlmerge/internal/platform/store/sqlite"
)

// openSQLite opens the embedded backend and wires the optional query tracer
func openSQLite(ctx context.Context, cfg Config, s *Store) (*sqlAdapter, error) {
	db, err := sqlite.Open(ctx, cfg.SQLite.Path, cfg.SQLite.BusyTimeoutMs)
	if err != nil {
		return nil, err
	}
	if cfg.SQLite.LogSQL {
		db.Tracer = sqlite.Tracer(s.Log)
		db.SlowMs = cfg.SQLite.SlowQueryMs
		if db.SlowMs <= 0 {
			db.SlowMs = 500
		}
	}
	return newSQLAdapter(db), nil
}
