package search

import (
	"context"
	"errors"

	"titlevault/internal/domain"
)

// ErrSourceUnavailable is returned by providers when the upstream call
// yielded nothing usable after every retry.
var ErrSourceUnavailable = errors.New("source unavailable")

// Provider adapts one external catalog to RawCandidates. Search is called
// once per kind the provider lists in Info().Kinds that the query admits.
type Provider interface {
	Name() string
	Info() domain.ProviderInfo
	Search(ctx context.Context, query domain.Query, kind domain.MediaType) ([]domain.RawCandidate, error)
}
