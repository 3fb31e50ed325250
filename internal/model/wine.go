package model

import (
	"fmt"
	"strings"
)

// Wine is the catalog view of a wine as exposed by the inventory layer.
type Wine struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ProducerName string `json:"producer_name"`
}

// Query builds the free-text search string sent to external sources.
func (w Wine) Query() string {
	return strings.TrimSpace(w.ProducerName + " " + w.Name)
}

// Pair identifies a wine/vintage combination held in inventory. A nil
// Vintage denotes a non-vintage wine.
type Pair struct {
	WineID  int64 `json:"wine_id"`
	Vintage *int  `json:"vintage"`
}

// VintageValue returns the vintage year, or 0 for non-vintage wines.
func (p Pair) VintageValue() int {
	if p.Vintage == nil {
		return 0
	}
	return *p.Vintage
}

// String renders the pair for logs.
func (p Pair) String() string {
	if p.Vintage == nil {
		return fmt.Sprintf("%d/NV", p.WineID)
	}
	return fmt.Sprintf("%d/%d", p.WineID, *p.Vintage)
}

// VintageFromValue maps the stored vintage column (0 for non-vintage) back
// to its nullable form.
func VintageFromValue(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
