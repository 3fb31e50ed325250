package source

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/model"
)

// DefaultWineSearcherURL is the production price and critic page host.
const DefaultWineSearcherURL = "https://www.wine-searcher.com"

// PriceConfidence is the confidence assigned to a price page hit. The page
// is looked up by exact search terms so it carries no per-candidate score.
const PriceConfidence = 0.90

var (
	priceTitleRe = regexp.MustCompile(`<title>Best local price for ([^<]+)</title>`)
	avgPriceRe   = regexp.MustCompile(`Avg Price \(ex-tax\) €([0-9,]+)`)
	canonicalRe  = regexp.MustCompile(`<link href="([^"]+)" rel="canonical">`)
	storesSuffix = regexp.MustCompile(`(?i) - stores near you.*$`)
)

// PriceResult is the average market price read from a price page.
type PriceResult struct {
	Name  string
	Price float64
	URL   string
}

// WineSearcher reads price pages and critic score pages.
type WineSearcher struct {
	session *Session
	baseURL string
}

// NewWineSearcher creates a price and critic adapter. An empty baseURL
// selects DefaultWineSearcherURL.
func NewWineSearcher(s *Session, baseURL string) *WineSearcher {
	if baseURL == "" {
		baseURL = DefaultWineSearcherURL
	}
	return &WineSearcher{session: s, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the source identifier stored on valuations and scores.
func (w *WineSearcher) Name() string { return model.SourceWineSearcher }

// LookupPrice returns the average price for query and vintage, or nil when
// the page has no price or cannot be fetched.
func (w *WineSearcher) LookupPrice(ctx context.Context, query string, vintage *int) *PriceResult {
	target := w.baseURL + "/find/" + searchTerms(query, vintage)

	resp, err := w.session.GetWithHandoff(ctx, w.Name(), target)
	if err != nil {
		zap.L().Warn("wine-searcher: price lookup failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	if !resp.OK() {
		zap.L().Warn("wine-searcher: unexpected status", zap.String("query", query), zap.Int("status", resp.StatusCode))
		return nil
	}

	res := ParsePricePage(resp.Body, query, resp.URL)
	if res == nil {
		zap.L().Debug("wine-searcher: no price on page", zap.String("query", query), zap.String("url", resp.URL))
	}
	return res
}

// ParsePricePage extracts the average price from a price page. fallbackName
// and fallbackURL are used when the page has no title or canonical link.
func ParsePricePage(html, fallbackName, fallbackURL string) *PriceResult {
	pm := avgPriceRe.FindStringSubmatch(html)
	if pm == nil {
		return nil
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(pm[1], ",", ""), 64)
	if err != nil {
		return nil
	}

	name := fallbackName
	if tm := priceTitleRe.FindStringSubmatch(html); tm != nil {
		name = strings.TrimSpace(tm[1])
	}
	name = storesSuffix.ReplaceAllString(jsonEntities.Replace(name), "")

	return &PriceResult{
		Name:  name,
		Price: price,
		URL:   canonicalURL(html, fallbackURL),
	}
}

func canonicalURL(html, fallback string) string {
	if m := canonicalRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return fallback
}
