package service

import (
	"jsonlmerge/internal/platform/logger"
	"jsonlmerge/internal/services/merge/domain"
)

// LogSink reports per-line diagnostics through the structured logger
type LogSink struct {
	Log *logger.Logger
}

// Emit implements domain.DiagnosticSink
func (s LogSink) Emit(d domain.Diagnostic) {
	log := s.Log
	if log == nil {
		log = logger.Get()
	}
	log.Warn().
		Int("line", d.Line).
		Str("category", string(d.Category)).
		Msg(d.Message)
}
