package search

import (
	"sort"

	"titlevault/internal/domain"
)

// Reconcile partitions candidates by universal identifier. Every
// candidate sharing an identifier lands in one cluster regardless of
// source; identifier-less candidates stay singletons. Title and year
// similarity never merges two results.
func Reconcile(candidates []domain.ScoredCandidate) []domain.Cluster {
	clusters := make([]domain.Cluster, 0, len(candidates))
	byID := make(map[string]int)
	var singletons []domain.Cluster

	for _, candidate := range candidates {
		id := candidate.UniversalID
		if id == "" {
			singletons = append(singletons, domain.Cluster{Members: []domain.ScoredCandidate{candidate}})
			continue
		}
		if idx, ok := byID[id]; ok {
			clusters[idx].Members = append(clusters[idx].Members, candidate)
			continue
		}
		byID[id] = len(clusters)
		clusters = append(clusters, domain.Cluster{Key: id, Members: []domain.ScoredCandidate{candidate}})
	}
	return append(clusters, singletons...)
}

// MergeBest flattens a cluster into one result. The highest-scoring member
// is authoritative; each field it lacks comes from the next member in
// score order that has it.
func MergeBest(cluster domain.Cluster) domain.MergedResult {
	if len(cluster.Members) == 0 {
		return domain.MergedResult{}
	}
	members := make([]domain.ScoredCandidate, len(cluster.Members))
	copy(members, cluster.Members)
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Score > members[j].Score
	})

	pick := func(field func(domain.ScoredCandidate) string) string {
		for _, member := range members {
			if value := field(member); value != "" {
				return value
			}
		}
		return ""
	}

	primary := members[0]
	merged := domain.MergedResult{
		Title:       pick(func(c domain.ScoredCandidate) string { return c.Title }),
		Year:        pick(func(c domain.ScoredCandidate) string { return c.Year }),
		UniversalID: pick(func(c domain.ScoredCandidate) string { return c.UniversalID }),
		CatalogID:   pick(func(c domain.ScoredCandidate) string { return c.CatalogID }),
		Type:        primary.Type,
		Plot:        pick(func(c domain.ScoredCandidate) string { return c.Plot }),
		Poster:      pick(func(c domain.ScoredCandidate) string { return c.Poster }),
		Confidence:  primary.Score,
	}

	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		if _, ok := seen[member.Source]; ok {
			continue
		}
		seen[member.Source] = struct{}{}
		merged.SourcesUsed = append(merged.SourcesUsed, member.Source)
	}
	return merged
}

// MergeAll merges every cluster and orders the results by confidence,
// keeping cluster order among ties.
func MergeAll(clusters []domain.Cluster) []domain.MergedResult {
	results := make([]domain.MergedResult, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster.Members) == 0 {
			continue
		}
		results = append(results, MergeBest(cluster))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}
