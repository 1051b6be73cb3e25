package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealhound/dealhound/models"
)

type stubAdapter struct {
	name     string
	products []models.Product
	delay    time.Duration
	panics   bool
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Search(ctx context.Context, _ models.SearchFilters) []models.Product {
	if s.panics {
		panic("selector compiled against last year's markup")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return []models.Product{}
		}
	}
	return s.products
}

func product(title string, source models.Source) models.Product {
	return models.Product{Title: title, Price: 10, URL: "https://example.com/" + title, Source: source}
}

func TestSearch_MergesAllSources(t *testing.T) {
	a := New(nil,
		&stubAdapter{name: "ebay", products: []models.Product{
			product("a", models.SourceEbay),
			product("b", models.SourceEbay),
		}},
		&stubAdapter{name: "facebook", products: []models.Product{
			product("c", models.SourceFacebook),
		}},
	)

	got := a.Search(context.Background(), models.SearchFilters{Keywords: "gpu"})
	if len(got) != 3 {
		t.Fatalf("got %d products, want 3", len(got))
	}
	// Registration order is stable regardless of completion order.
	if got[0].Source != models.SourceEbay || got[2].Source != models.SourceFacebook {
		t.Fatalf("merge order broken: %+v", got)
	}
}

func TestSearch_PanickingAdapterIsContained(t *testing.T) {
	a := New(nil,
		&stubAdapter{name: "newegg", panics: true},
		&stubAdapter{name: "facebook"},
		&stubAdapter{name: "ebay", products: []models.Product{
			product("a", models.SourceEbay),
			product("b", models.SourceEbay),
		}},
	)

	got := a.Search(context.Background(), models.SearchFilters{Keywords: "gpu"})
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2 from the surviving adapter", len(got))
	}
}

func TestSearch_RunsConcurrently(t *testing.T) {
	delay := 100 * time.Millisecond
	a := New(nil,
		&stubAdapter{name: "ebay", delay: delay, products: []models.Product{product("a", models.SourceEbay)}},
		&stubAdapter{name: "newegg", delay: delay, products: []models.Product{product("b", models.SourceNewegg)}},
		&stubAdapter{name: "facebook", delay: delay, products: []models.Product{product("c", models.SourceFacebook)}},
	)

	start := time.Now()
	got := a.Search(context.Background(), models.SearchFilters{Keywords: "gpu"})
	elapsed := time.Since(start)

	if len(got) != 3 {
		t.Fatalf("got %d products, want 3", len(got))
	}
	if elapsed > 2*delay {
		t.Fatalf("adapters appear to have run sequentially: %v", elapsed)
	}
}

type stubRanker struct {
	err    error
	called bool
}

func (s *stubRanker) Rank(_ context.Context, products []models.Product, _ models.UserPreferences) ([]models.RankedProduct, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	// Reverse order stands in for a model-driven reorder.
	ranked := make([]models.RankedProduct, 0, len(products))
	for i := len(products) - 1; i >= 0; i-- {
		ranked = append(ranked, models.RankedProduct{Product: products[i], RankScore: i + 1})
	}
	return ranked, nil
}

func TestSearchRanked_ForwardsToRanker(t *testing.T) {
	r := &stubRanker{}
	a := New(r, &stubAdapter{name: "ebay", products: []models.Product{
		product("a", models.SourceEbay),
		product("b", models.SourceEbay),
	}})

	got := a.SearchRanked(context.Background(), models.SearchFilters{Keywords: "gpu"}, models.UserPreferences{})
	if !r.called {
		t.Fatal("ranker was not invoked")
	}
	if len(got) != 2 || got[0].Title != "b" {
		t.Fatalf("ranker order not applied: %+v", got)
	}
}

func TestSearchRanked_DegradesWhenRankerFails(t *testing.T) {
	r := &stubRanker{err: errors.New("status 429")}
	a := New(r, &stubAdapter{name: "ebay", products: []models.Product{product("a", models.SourceEbay)}})

	got := a.SearchRanked(context.Background(), models.SearchFilters{Keywords: "gpu"}, models.UserPreferences{})
	if len(got) != 1 || got[0].RankScore != 0 {
		t.Fatalf("want unranked passthrough, got %+v", got)
	}
}

func TestSearchRanked_NoRanker(t *testing.T) {
	a := New(nil, &stubAdapter{name: "ebay", products: []models.Product{product("a", models.SourceEbay)}})

	got := a.SearchRanked(context.Background(), models.SearchFilters{Keywords: "gpu"}, models.UserPreferences{})
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("want wrapped products, got %+v", got)
	}
}

func TestSearchRanked_EmptyMergeSkipsRanker(t *testing.T) {
	r := &stubRanker{}
	a := New(r, &stubAdapter{name: "ebay"})

	got := a.SearchRanked(context.Background(), models.SearchFilters{Keywords: "gpu"}, models.UserPreferences{})
	if len(got) != 0 {
		t.Fatalf("want empty, got %+v", got)
	}
	if r.called {
		t.Fatal("ranker must not run on an empty merge")
	}
}
