package search

import (
	"reflect"
	"testing"

	"titlevault/internal/domain"
)

func scored(source, id, title string, score int) domain.ScoredCandidate {
	return domain.ScoredCandidate{
		RawCandidate: domain.RawCandidate{Source: source, UniversalID: id, Title: title},
		Score:        score,
	}
}

func TestReconcileGroupsByUniversalID(t *testing.T) {
	clusters := Reconcile([]domain.ScoredCandidate{
		scored("tmdb", "", "Parasite", 90),
		scored("omdb", "tt6751668", "Parasite", 110),
		scored("tvmaze", "tt6751668", "Parasite", 80),
		scored("omdb", "tt0000001", "Parasite", 40),
	})
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(clusters))
	}
	if clusters[0].Key != "tt6751668" || len(clusters[0].Members) != 2 {
		t.Fatalf("unexpected first cluster %+v", clusters[0])
	}
	if clusters[2].Key != "" || len(clusters[2].Members) != 1 {
		t.Fatalf("expected identifier-less singleton last, got %+v", clusters[2])
	}
}

func TestReconcileNeverMergesOnTitleAlone(t *testing.T) {
	clusters := Reconcile([]domain.ScoredCandidate{
		scored("tmdb", "", "Heat", 90),
		scored("omdb", "", "Heat", 90),
	})
	if len(clusters) != 2 {
		t.Fatalf("expected 2 singletons, got %d", len(clusters))
	}
}

func TestReconcileIdentityIsOrderIndependent(t *testing.T) {
	a := scored("tmdb", "tt1", "A", 10)
	b := scored("omdb", "tt1", "A", 20)
	c := scored("jikan", "", "B", 5)
	for _, order := range [][]domain.ScoredCandidate{{a, b, c}, {c, b, a}, {b, c, a}} {
		clusters := Reconcile(order)
		found := false
		for _, cluster := range clusters {
			if cluster.Key == "tt1" {
				found = true
				if len(cluster.Members) != 2 {
					t.Fatalf("expected both tt1 members together, got %d", len(cluster.Members))
				}
			}
		}
		if !found {
			t.Fatal("expected a tt1 cluster")
		}
	}
}

func TestMergeBestFirstNonEmptyInScoreOrder(t *testing.T) {
	low := scored("tvmaze", "tt1", "Show", 60)
	low.Plot = "from tvmaze"
	low.Poster = "tvmaze.jpg"
	low.Year = "2008"
	high := scored("tmdb", "tt1", "Show", 95)
	high.Type = domain.MediaTypeSeries
	high.CatalogID = "1396"
	mid := scored("omdb", "tt1", "", 70)
	mid.Plot = "from omdb"

	merged := MergeBest(domain.Cluster{Key: "tt1", Members: []domain.ScoredCandidate{low, high, mid}})
	if merged.Confidence != 95 {
		t.Fatalf("expected confidence 95, got %d", merged.Confidence)
	}
	if merged.Plot != "from omdb" {
		t.Fatalf("expected plot from next-highest member, got %q", merged.Plot)
	}
	if merged.Poster != "tvmaze.jpg" || merged.Year != "2008" {
		t.Fatalf("unexpected fallbacks %+v", merged)
	}
	if merged.Type != domain.MediaTypeSeries || merged.CatalogID != "1396" {
		t.Fatalf("unexpected primary fields %+v", merged)
	}
	if !reflect.DeepEqual(merged.SourcesUsed, []string{"tmdb", "omdb", "tvmaze"}) {
		t.Fatalf("unexpected sources %v", merged.SourcesUsed)
	}
}

func TestMergeBestDoesNotReorderInput(t *testing.T) {
	members := []domain.ScoredCandidate{scored("a", "tt1", "x", 1), scored("b", "tt1", "x", 2)}
	_ = MergeBest(domain.Cluster{Members: members})
	if members[0].Source != "a" {
		t.Fatal("expected caller slice to stay untouched")
	}
}

func TestMergeAllOrdersByConfidence(t *testing.T) {
	results := MergeAll([]domain.Cluster{
		{Members: []domain.ScoredCandidate{scored("a", "", "low", 10)}},
		{Members: []domain.ScoredCandidate{scored("b", "", "high", 90)}},
		{Members: []domain.ScoredCandidate{scored("c", "", "tie", 10)}},
		{},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Title != "high" || results[1].Title != "low" || results[2].Title != "tie" {
		t.Fatalf("unexpected order %+v", results)
	}
}
