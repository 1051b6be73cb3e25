package models

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Keywords    string           `json:"keywords" binding:"required"`
	MaxPrice    float64          `json:"max_price,omitempty"`
	Condition   string           `json:"condition,omitempty"`
	Location    *Location        `json:"location,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// Filters converts the request into the adapter-facing query.
func (r *SearchRequest) Filters() SearchFilters {
	return SearchFilters{
		Keywords:  r.Keywords,
		MaxPrice:  r.MaxPrice,
		Condition: r.Condition,
		Location:  r.Location,
	}
}

// SearchResponse is the envelope for search results and errors.
type SearchResponse struct {
	Success  bool            `json:"success"`
	Count    int             `json:"count"`
	Products []RankedProduct `json:"products,omitempty"`
	Error    *ErrorDetail    `json:"error,omitempty"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Sources []string `json:"sources"`
	Version string   `json:"version"`
}
