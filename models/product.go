package models

// Source identifies which site a product was extracted from.
// It is always set by the owning adapter, never inferred downstream.
type Source string

const (
	SourceEbay     Source = "ebay"
	SourceFacebook Source = "facebook"
	SourceNewegg   Source = "newegg"
)

// Canonical condition strings. Extraction normalizes every source's
// vocabulary into one of these.
const (
	ConditionNew          = "New"
	ConditionUsed         = "Used"
	ConditionLikeNew      = "Like New"
	ConditionGood         = "Good"
	ConditionFair         = "Fair"
	ConditionPoor         = "Poor"
	ConditionRefurbished  = "Refurbished"
	ConditionOpenBox      = "Open Box"
	ConditionNotSpecified = "Not specified"
)

// Product is a single extracted listing. It is a value type: created once
// by an extractor and never mutated afterwards. Ranking wraps products in
// RankedProduct rather than altering them.
type Product struct {
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	URL       string   `json:"url"`
	Condition string   `json:"condition"`
	Shipping  string   `json:"shipping,omitempty"`
	Image     string   `json:"image,omitempty"`
	Specs     []string `json:"specs,omitempty"`
	Rating    int      `json:"rating,omitempty"`
	Source    Source   `json:"source"`
}

// Location narrows a search geographically. Either Zipcode or City/Region
// is set; Distance is in miles.
type Location struct {
	Zipcode  string `json:"zipcode,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Distance int    `json:"distance,omitempty"`
}

// DefaultSearchRadius is the distance used when a location carries no
// explicit radius.
const DefaultSearchRadius = 25

// SearchFilters is the read-only query passed to every adapter.
// Constructed per search invocation and discarded after the call.
type SearchFilters struct {
	Keywords  string    `json:"keywords"`
	MaxPrice  float64   `json:"max_price,omitempty"` // 0 = no limit
	Condition string    `json:"condition,omitempty"` // "new", "used" or "refurbished"
	Location  *Location `json:"location,omitempty"`
}

// UserPreferences is the structured intent forwarded to the ranking
// collaborator alongside the merged product list.
type UserPreferences struct {
	ProductType string            `json:"product_type,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	PriceRange  []float64         `json:"price_range,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
}

// RankedProduct attaches the ranking collaborator's annotations to a
// product without touching the extraction fields.
type RankedProduct struct {
	Product
	RankScore  int    `json:"rank_score,omitempty"`
	RankReason string `json:"rank_reason,omitempty"`
}
