package enrich

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"titlevault/internal/domain"
)

// resolveRegistry returns the payload for a title from the persisted
// registry when a mapping exists, falling back to a live resolution.
// Only privileged callers write live results back.
func (p *Pipeline) resolveRegistry(ctx context.Context, resolver Resolver, record domain.CanonicalRecord, caller domain.Caller) (map[string]any, domain.RegistrySource, bool) {
	imdbID := strings.TrimSpace(record.UniversalID)
	title := strings.TrimSpace(record.Title)
	if imdbID == "" || title == "" {
		return nil, "", false
	}
	source := resolver.Source()

	if payload, ok := p.cachedRegistryPayload(ctx, imdbID, source); ok {
		return payload, domain.RegistrySourceCache, true
	}

	resolved, ok := resolver.Resolve(ctx, title)
	if !ok || resolved.SourceID == "" {
		return nil, "", false
	}

	if caller.Privileged && p.registry != nil {
		p.persistRegistry(ctx, imdbID, source, resolved, caller)
	}
	return resolved.Payload, domain.RegistrySourceAPI, true
}

func (p *Pipeline) cachedRegistryPayload(ctx context.Context, imdbID, source string) (map[string]any, bool) {
	if p.registry == nil {
		return nil, false
	}
	mapping, err := p.registry.LookupMapping(ctx, imdbID, source)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn("registry mapping lookup failed",
				slog.String("imdbId", imdbID),
				slog.String("source", source),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	if mapping.Source != source {
		return nil, false
	}
	entry, err := p.registry.GetEntry(ctx, source, mapping.SourceID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.Warn("registry entry lookup failed",
				slog.String("source", source),
				slog.String("sourceId", mapping.SourceID),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	return entry.Payload, true
}

func (p *Pipeline) persistRegistry(ctx context.Context, imdbID, source string, resolved domain.Resolution, caller domain.Caller) {
	now := p.now().UTC()
	overriddenBy := strings.TrimSpace(caller.ID)
	if overriddenBy == "" {
		overriddenBy = "admin"
	}
	err := p.registry.UpsertEntry(ctx, domain.RegistryEntry{
		Source:       source,
		SourceID:     resolved.SourceID,
		Payload:      resolved.Payload,
		UpdatedAt:    now,
		OverriddenBy: overriddenBy,
	})
	if err == nil {
		err = p.registry.UpsertMapping(ctx, domain.IDMapping{
			UniversalID: imdbID,
			Source:      source,
			SourceID:    resolved.SourceID,
			UpdatedAt:   now,
		})
	}
	if err != nil {
		p.logger.Warn("registry persist failed",
			slog.String("imdbId", imdbID),
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
	}
}
