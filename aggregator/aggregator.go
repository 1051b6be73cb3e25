// Package aggregator fans a search out to every configured site adapter
// concurrently and merges whatever comes back. One slow or broken source
// never takes the whole search down with it.
package aggregator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dealhound/dealhound/models"
)

// Adapter is one searchable source. Search never returns an error:
// adapters log their failure cause and collapse it to an empty slice,
// so a degraded source contributes nothing instead of failing the
// aggregate.
type Adapter interface {
	Name() string
	Search(ctx context.Context, filters models.SearchFilters) []models.Product
}

// Ranker orders merged results against the user's stated intent.
type Ranker interface {
	Rank(ctx context.Context, products []models.Product, prefs models.UserPreferences) ([]models.RankedProduct, error)
}

// Aggregator owns the configured adapters and the optional ranker.
type Aggregator struct {
	adapters []Adapter
	ranker   Ranker
}

// New builds an aggregator over the given adapters. ranker may be nil;
// Rank then degrades to source order.
func New(ranker Ranker, adapters ...Adapter) *Aggregator {
	return &Aggregator{adapters: adapters, ranker: ranker}
}

// Search queries every adapter concurrently and returns the merged
// results in adapter registration order. A panicking adapter is
// contained and contributes nothing.
func (a *Aggregator) Search(ctx context.Context, filters models.SearchFilters) []models.Product {
	results := make([][]models.Product, len(a.adapters))

	var wg sync.WaitGroup
	for i, adapter := range a.adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.searchOne(ctx, adapter, filters)
		}()
	}
	wg.Wait()

	merged := []models.Product{}
	for i, r := range results {
		slog.Info("adapter finished", "source", a.adapters[i].Name(), "results", len(r))
		merged = append(merged, r...)
	}
	return merged
}

func (a *Aggregator) searchOne(ctx context.Context, adapter Adapter, filters models.SearchFilters) (products []models.Product) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("adapter panicked", "source", adapter.Name(), "panic", r)
			products = []models.Product{}
		}
	}()
	return adapter.Search(ctx, filters)
}

// SearchRanked merges and then ranks. Without a ranker, or when ranking
// fails, the merged products are wrapped unranked so the caller always
// gets the same shape back.
func (a *Aggregator) SearchRanked(ctx context.Context, filters models.SearchFilters, prefs models.UserPreferences) []models.RankedProduct {
	products := a.Search(ctx, filters)

	if a.ranker != nil && len(products) > 0 {
		ranked, err := a.ranker.Rank(ctx, products, prefs)
		if err == nil {
			return ranked
		}
		slog.Warn("ranking failed, returning unranked results", "error", err)
	}

	ranked := make([]models.RankedProduct, len(products))
	for i, p := range products {
		ranked[i] = models.RankedProduct{Product: p}
	}
	return ranked
}
