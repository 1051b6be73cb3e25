package rank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/models"
)

func sampleProducts() []models.Product {
	return []models.Product{
		{Title: "RTX 3080 used", Price: 450, Condition: models.ConditionUsed, Source: models.SourceFacebook},
		{Title: "RTX 3080 new", Price: 700, Condition: models.ConditionNew, Source: models.SourceNewegg},
		{Title: "RTX 3070", Price: 380, Condition: models.ConditionUsed, Source: models.SourceEbay},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), config.RankConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
	})
}

func answer(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return body
}

func TestRank_ReordersAndAnnotates(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write(answer(`[{"id":1,"score":95,"reason":"new and in budget"},{"id":0,"score":70,"reason":"used"}]`))
	})

	ranked, err := c.Rank(context.Background(), sampleProducts(), models.UserPreferences{ProductType: "gpu"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if len(ranked) != 3 {
		t.Fatalf("got %d ranked products, want 3", len(ranked))
	}
	if ranked[0].Title != "RTX 3080 new" || ranked[0].RankScore != 95 {
		t.Errorf("top pick = %+v", ranked[0])
	}
	if ranked[0].RankReason != "new and in budget" {
		t.Errorf("rank reason = %q", ranked[0].RankReason)
	}
	// The omitted product is appended unranked.
	if ranked[2].Title != "RTX 3070" || ranked[2].RankScore != 0 {
		t.Errorf("omitted product not appended: %+v", ranked[2])
	}
}

func TestRank_RescuesFencedArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(answer("Here is the ranking:\n```json\n[{\"id\":2,\"score\":88,\"reason\":\"cheapest\"}]\n```"))
	})

	ranked, err := c.Rank(context.Background(), sampleProducts(), models.UserPreferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranked[0].Title != "RTX 3070" || ranked[0].RankScore != 88 {
		t.Errorf("top pick = %+v", ranked[0])
	}
}

func TestRank_IgnoresOutOfRangeIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(answer(`[{"id":7,"score":99,"reason":"hallucinated"},{"id":-1,"score":98},{"id":0,"score":50,"reason":"ok"}]`))
	})

	ranked, err := c.Rank(context.Background(), sampleProducts(), models.UserPreferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("got %d ranked products, want 3", len(ranked))
	}
	if ranked[0].Title != "RTX 3080 used" || ranked[0].RankScore != 50 {
		t.Errorf("top pick = %+v", ranked[0])
	}
}

func TestRank_SingleProductSkipsAPI(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write(answer(`[]`))
	})

	ranked, err := c.Rank(context.Background(), sampleProducts()[:1], models.UserPreferences{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("API must not be called for a single product")
	}
	if len(ranked) != 1 || ranked[0].Title != "RTX 3080 used" {
		t.Fatalf("got %+v", ranked)
	}
}

func TestRank_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, models.ErrCodeRankAuthFailure},
		{"rate limited", http.StatusTooManyRequests, models.ErrCodeRankRateLimited},
		{"server error", http.StatusInternalServerError, models.ErrCodeRankFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			_, err := c.Rank(context.Background(), sampleProducts(), models.UserPreferences{})
			var se *models.SearchError
			if !errors.As(err, &se) {
				t.Fatalf("want *models.SearchError, got %v", err)
			}
			if se.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", se.Code, tt.wantCode)
			}
		})
	}
}

func TestRank_GarbageAnswerIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(answer("I cannot rank these products."))
	})

	if _, err := c.Rank(context.Background(), sampleProducts(), models.UserPreferences{}); err == nil {
		t.Fatal("expected an error for a non-JSON answer")
	}
}
