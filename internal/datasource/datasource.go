// Package datasource defines the DataSource abstraction QueryOrchestrator
// dispatches to: the default Athena-backed source and the Cost Explorer
// fallback (spec §3, §4.6, §4.7).
package datasource

import (
	"context"

	"github.com/amitkumar0206/finops-orchestrator-sub000/internal/queryspec"
)

// DataSource is the single operation every backend exposes.
type DataSource interface {
	Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error)
}

// AthenaFetcher narrows internal/athena.Driver to the one method
// QueryOrchestrator needs, avoiding an import cycle while keeping the
// concrete type swappable in tests.
type AthenaFetcher interface {
	Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error)
}

// Athena adapts an AthenaFetcher to the DataSource interface.
type Athena struct {
	fetcher AthenaFetcher
}

func NewAthena(fetcher AthenaFetcher) *Athena {
	return &Athena{fetcher: fetcher}
}

func (a *Athena) Fetch(ctx context.Context, spec *queryspec.QuerySpec) (*queryspec.QueryResult, error) {
	return a.fetcher.Fetch(ctx, spec)
}
