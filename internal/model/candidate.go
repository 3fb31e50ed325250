package model

// Candidate is one external search result considered for matching against a
// catalog wine. Candidates are transient and never persisted.
type Candidate struct {
	SourceID      string   `json:"source_id"`
	SourceName    string   `json:"source_name"`
	SourceWinery  string   `json:"source_winery"`
	SourceVintage *int     `json:"source_vintage,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	PriceLow      *float64 `json:"price_low,omitempty"`
	PriceHigh     *float64 `json:"price_high,omitempty"`
	SourceURL     string   `json:"source_url,omitempty"`
}

// DisplayName joins winery and wine name the way sources present them.
func (c Candidate) DisplayName() string {
	if c.SourceWinery == "" {
		return c.SourceName
	}
	if c.SourceName == "" {
		return c.SourceWinery
	}
	return c.SourceWinery + " " + c.SourceName
}
