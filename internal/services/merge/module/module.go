// Package module implements the merge service module
package module

import (
	"jsonlmerge/internal/modkit"
	"jsonlmerge/internal/services/merge/domain"
	"jsonlmerge/internal/services/merge/repo"
	"jsonlmerge/internal/services/merge/service"
)

// Ports exposed by the merge module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the merge service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new merge module over the given line source and sink
func New(deps modkit.Deps, source domain.LineSource, sink domain.LineSink) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	svc := service.New(deps.DB, repo.NewSQLite(), source, sink,
		service.LogSink{Log: &deps.Log},
		service.Config{
			KeyField:      opts.KeyField,
			BatchSize:     opts.BatchSize,
			ProgressEvery: opts.ProgressEvery,
			PageSize:      opts.PageSize,
		})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "merge" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
