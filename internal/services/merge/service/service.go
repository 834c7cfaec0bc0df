// Package service implements the merge pipeline: an ingest pass that
// decomposes records into the scratch store, then an export pass that
// reassembles one merged record per key
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"jsonlmerge/internal/core/canon"
	"jsonlmerge/internal/modkit/repokit"
	perr "jsonlmerge/internal/platform/errors"
	"jsonlmerge/internal/platform/logger"
	"jsonlmerge/internal/services/merge/domain"
	"jsonlmerge/internal/services/merge/ingest"
)

// Config tunes the pipeline
type Config struct {
	// KeyField is the merge-key spec (top-level name or dot path)
	KeyField string

	// BatchSize is the number of buffered value rows per flush
	BatchSize int

	// ProgressEvery logs ingest progress every N lines, 0 disables
	ProgressEvery int

	// PageSize is the export keyset page size
	PageSize int
}

const (
	defaultBatchSize = 1000
	defaultPageSize  = 500
)

// Service runs the merge pipeline. It implements domain.RunnerPort
type Service struct {
	db      repokit.TxRunner
	binder  repokit.Binder[domain.StorageRepo]
	source  domain.LineSource
	sink    domain.LineSink
	diag    domain.DiagnosticSink
	extract domain.KeyExtractor
	cfg     Config
}

// New constructs a Service. diag may be nil to drop diagnostics
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	source domain.LineSource,
	sink domain.LineSink,
	diag domain.DiagnosticSink,
	cfg Config,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &Service{
		db:      db,
		binder:  binder,
		source:  source,
		sink:    sink,
		diag:    diag,
		extract: ingest.NewExtractor(cfg.KeyField),
		cfg:     cfg,
	}
}

// Run implements domain.RunnerPort
func (s *Service) Run(ctx context.Context) (domain.Summary, error) {
	start := time.Now()
	var sum domain.Summary

	repo := repokit.MustBind(s.binder, s.db)
	if err := repo.Migrate(ctx); err != nil {
		return sum, err
	}

	if err := s.ingestAll(logger.WithStage(ctx, "ingest"), &sum); err != nil {
		return sum, err
	}
	if err := s.exportAll(logger.WithStage(ctx, "export"), repo, &sum); err != nil {
		return sum, err
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// ingestAll streams the source into the scratch store in batched
// transactions, classifying each line exactly once
func (s *Service) ingestAll(ctx context.Context, sum *domain.Summary) error {
	log := logger.C(ctx)

	var (
		vals []domain.ValueRow
		keys []domain.KeyRow
	)
	// seenKeys dedupes key rows within the current batch so records that
	// repeat one key cannot grow the buffer
	seenKeys := make(map[string]struct{})
	flush := func() error {
		if len(vals) == 0 && len(keys) == 0 {
			return nil
		}
		err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
			r := s.binder.Bind(q)
			if err := r.RegisterKeys(ctx, keys); err != nil {
				return err
			}
			ins, dup, err := r.InsertValues(ctx, vals)
			if err != nil {
				return err
			}
			sum.ValuesInserted += ins
			sum.ValuesDeduped += dup
			return nil
		})
		vals = vals[:0]
		keys = keys[:0]
		clear(seenKeys)
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, lineNo, err := s.source.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "read input line")
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			sum.Count(domain.OutcomeSkippedEmpty)
			continue
		}

		rec, err := ingest.ParseRecord(trimmed)
		if err != nil {
			sum.Count(domain.OutcomeSkippedParseError)
			s.emit(domain.Diagnostic{Line: lineNo, Category: domain.CategoryParseError, Message: err.Error()})
			continue
		}

		keyVal, ok := s.extract(rec)
		if !ok {
			sum.Count(domain.OutcomeSkippedMissingKey)
			s.emit(domain.Diagnostic{
				Line:     lineNo,
				Category: domain.CategoryMissingKey,
				Message:  "record has no " + s.cfg.KeyField + " field",
			})
			continue
		}

		keyEnc, err := canon.Encode(keyVal)
		if err != nil {
			return perr.WithOp(err, "encode merge key")
		}
		mergeKey := string(keyEnc)
		if _, ok := seenKeys[mergeKey]; !ok {
			seenKeys[mergeKey] = struct{}{}
			keys = append(keys, domain.KeyRow{MergeKey: mergeKey, Key: keyEnc})
		}

		for _, fv := range ingest.Decompose(rec, s.cfg.KeyField) {
			enc, err := canon.Encode(fv.Value)
			if err != nil {
				return perr.WithOp(err, "encode field value")
			}
			vals = append(vals, domain.ValueRow{
				MergeKey:  mergeKey,
				Field:     fv.Field,
				ValueHash: canon.FingerprintBytes(enc),
				Value:     enc,
			})
		}
		sum.Count(domain.OutcomeAccepted)

		// key rows count toward the bound too: records carrying nothing but
		// the merge key must not accumulate until EOF
		if len(vals)+len(keys) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
		if s.cfg.ProgressEvery > 0 && sum.LinesRead%s.cfg.ProgressEvery == 0 {
			log.Info().
				Int("lines", sum.LinesRead).
				Int("accepted", sum.Accepted).
				Int("values_inserted", sum.ValuesInserted).
				Msg("ingest progress")
		}
	}
	if err := flush(); err != nil {
		return err
	}

	log.Info().
		Int("lines", sum.LinesRead).
		Int("accepted", sum.Accepted).
		Int("skipped_empty", sum.SkippedEmpty).
		Int("skipped_parse", sum.SkippedParse).
		Int("skipped_missing_key", sum.SkippedMissingKey).
		Int("values_inserted", sum.ValuesInserted).
		Int("values_deduped", sum.ValuesDeduped).
		Msg("ingest complete")
	return nil
}

// exportAll walks registered keys in canonical order and writes one merged
// record per key
func (s *Service) exportAll(ctx context.Context, repo domain.StorageRepo, sum *domain.Summary) error {
	log := logger.C(ctx)

	after := ""
	for {
		page, err := repo.MergeKeysPage(ctx, after, s.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for _, mergeKey := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, err := s.mergedLine(ctx, repo, mergeKey)
			if err != nil {
				return err
			}
			if err := s.sink.WriteLine(line); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnknown, "write output line")
			}
			sum.KeysExported++
		}
		after = page[len(page)-1]
	}

	if err := s.sink.Flush(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "flush output")
	}
	log.Info().Int("keys_exported", sum.KeysExported).Msg("export complete")
	return nil
}

// mergedLine assembles one output record directly from stored canonical
// bytes: the merge-key field first, then fields lexicographic, singleton
// value sets collapsed to a bare value
func (s *Service) mergedLine(ctx context.Context, repo domain.StorageRepo, mergeKey string) ([]byte, error) {
	keyCanon, err := repo.ResolveKey(ctx, mergeKey)
	if err != nil {
		return nil, err
	}
	fields, err := repo.FieldsFor(ctx, mergeKey)
	if err != nil {
		return nil, err
	}

	keyName, err := canon.EncodeString(s.cfg.KeyField)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.Write(keyName)
	buf.WriteByte(':')
	buf.Write(keyCanon)

	for _, field := range fields {
		if field == s.cfg.KeyField {
			continue
		}
		vals, err := repo.ValuesFor(ctx, mergeKey, field)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			continue
		}

		name, err := canon.EncodeString(field)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')

		if len(vals) == 1 {
			buf.Write(vals[0])
			continue
		}
		buf.WriteByte('[')
		for i, v := range vals {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(v)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Service) emit(d domain.Diagnostic) {
	if s.diag != nil {
		s.diag.Emit(d)
	}
}
