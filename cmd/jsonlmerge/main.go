// Command jsonlmerge merges JSONL records that share a merge key into one
// record per key, spooling intermediate state to a SQLite scratch database
// so inputs never need to fit in memory
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"jsonlmerge/internal/adapters/jsonl"
	"jsonlmerge/internal/core/version"
	"jsonlmerge/internal/modkit"
	"jsonlmerge/internal/platform/config"
	"jsonlmerge/internal/platform/logger"
	"jsonlmerge/internal/platform/store"
	"jsonlmerge/internal/platform/store/sqlite"

	mergemod "jsonlmerge/internal/services/merge/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

// defaultOutput derives the output path from the input path
func defaultOutput(input string) string {
	if input == "-" {
		return "-"
	}
	base := strings.TrimSuffix(input, ".gz")
	base = strings.TrimSuffix(base, ".jsonl")
	return base + "_merged.jsonl"
}

func main() {
	root := config.New()
	dbCfg := root.Prefix("SERVICE_SQLITE_")

	l := logger.Get()

	var (
		fInput    = flag.String("input", "", "input JSONL path, - for stdin (.gz is decompressed)")
		fOutput   = flag.String("output", "", "output JSONL path, - for stdout (default <input>_merged.jsonl)")
		fKey      = flag.String("key", "id", "merge-key field: a top-level name or a dot path like meta.id")
		fBatch    = flag.Int("batch-size", 1000, "value rows buffered per scratch-store transaction")
		fProgress = flag.Int("progress-every", 100000, "log ingest progress every N lines, 0 disables")
		fDBPath   = flag.String("db-path", "", "scratch database path (default a fresh file under the temp dir)")
		fKeepDB   = flag.Bool("keep-db", false, "keep the scratch database after the run")
	)
	flag.Parse()

	if *fInput == "" {
		l.Panic().Msg("must provide -input")
	}
	output := *fOutput
	if output == "" {
		output = defaultOutput(*fInput)
	}

	runID := uuid.NewString()
	dbPath := *fDBPath
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "jsonlmerge-"+runID+".db")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRun(ctx, runID)

	st, err := store.Open(ctx, store.Config{
		SQLite: store.SQLiteConfig{
			Enabled:       true,
			Path:          dbPath,
			BusyTimeoutMs: dbCfg.MayInt("BUSY_TIMEOUT_MS", 5000),
			LogSQL:        dbCfg.MayBool("LOG_SQL", false),
			SlowQueryMs:   dbCfg.MayInt("SLOW_MS", 500),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	closeStore := func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close scratch store")
		}
	}
	removeScratch := func() {
		if *fKeepDB {
			return
		}
		if err := sqlite.Remove(dbPath); err != nil {
			l.Error().Err(err).Str("db_path", dbPath).Msg("failed to remove scratch database")
		}
	}

	// Surface flags to the module's FromConfig
	mustSetEnv("CORE_MERGE_KEY_FIELD", *fKey)
	mustSetEnv("CORE_MERGE_BATCH_SIZE", strconv.Itoa(*fBatch))
	_ = os.Setenv("CORE_MERGE_PROGRESS_EVERY", strconv.Itoa(*fProgress))

	src, err := jsonl.OpenSource(*fInput)
	if err != nil {
		closeStore()
		removeScratch()
		l.Fatal().Err(err).Str("input", *fInput).Msg("cannot open input")
	}
	sink, err := jsonl.OpenSink(output)
	if err != nil {
		_ = src.Close()
		closeStore()
		removeScratch()
		l.Fatal().Err(err).Str("output", output).Msg("cannot open output")
	}

	deps := modkit.Deps{
		Cfg: root,
		DB:  st.DB,
		Log: *l,
	}

	mm, err := mergemod.New(deps, src, sink)
	if err != nil {
		_ = src.Close()
		_ = sink.Close()
		closeStore()
		removeScratch()
		l.Fatal().Err(err).Msg("invalid merge options")
	}

	bi := version.Info()
	l.Info().
		Str("run_id", runID).
		Str("version", bi.Version).
		Str("commit", bi.Commit).
		Str("input", *fInput).
		Str("output", output).
		Str("key", *fKey).
		Str("db_path", dbPath).
		Msg("merge starting")

	ports := mm.Ports().(mergemod.Ports)
	sum, runErr := ports.Runner.Run(ctx)

	if err := src.Close(); err != nil {
		l.Error().Err(err).Msg("failed to close input")
	}
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	closeStore()

	removeScratch()

	if runErr != nil {
		l.Fatal().Err(runErr).Msg("merge failed")
	}

	l.Info().
		Int("lines_read", sum.LinesRead).
		Int("accepted", sum.Accepted).
		Int("skipped_empty", sum.SkippedEmpty).
		Int("skipped_parse", sum.SkippedParse).
		Int("skipped_missing_key", sum.SkippedMissingKey).
		Int("values_inserted", sum.ValuesInserted).
		Int("values_deduped", sum.ValuesDeduped).
		Int("keys_exported", sum.KeysExported).
		Dur("elapsed", sum.Elapsed).
		Msg("merge complete")
}
