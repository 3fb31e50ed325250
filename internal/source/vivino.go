package source

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/model"
)

// DefaultVivinoURL is the production catalog search host.
const DefaultVivinoURL = "https://www.vivino.com"

// The search page embeds one JSON object per result in an HTML attribute.
var vivinoRecordRe = regexp.MustCompile(`(?s)\{"vintage":\{"id":\d+.*?"prices":\[\]\}`)

// Vivino searches the Vivino catalog for candidate wines.
type Vivino struct {
	session *Session
	baseURL string
}

// NewVivino creates a catalog adapter. An empty baseURL selects
// DefaultVivinoURL.
func NewVivino(s *Session, baseURL string) *Vivino {
	if baseURL == "" {
		baseURL = DefaultVivinoURL
	}
	return &Vivino{session: s, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name returns the source identifier stored on valuations.
func (v *Vivino) Name() string { return model.SourceVivino }

// SearchCandidates returns the candidates found for query and vintage. Any
// failure yields no candidates.
func (v *Vivino) SearchCandidates(ctx context.Context, query string, vintage *int) []model.Candidate {
	terms := query
	if vintage != nil {
		terms = query + " " + strconv.Itoa(*vintage)
	}
	target := v.baseURL + "/search/wines?" + url.Values{"q": {terms}}.Encode()

	resp, err := v.session.Get(ctx, v.Name(), target)
	if err != nil {
		zap.L().Warn("vivino: search failed", zap.String("query", terms), zap.Error(err))
		return nil
	}
	if !resp.OK() {
		zap.L().Warn("vivino: unexpected status", zap.String("query", terms), zap.Int("status", resp.StatusCode))
		return nil
	}

	cands := ParseVivinoSearch(resp.Body, v.baseURL)
	zap.L().Debug("vivino: search parsed", zap.String("query", terms), zap.Int("candidates", len(cands)))
	return cands
}

// ParseVivinoSearch extracts candidates from a search result page. Records
// without a wine id or name are dropped.
func ParseVivinoSearch(html, baseURL string) []model.Candidate {
	decoded := jsonEntities.Replace(html)

	var out []model.Candidate
	for _, raw := range vivinoRecordRe.FindAllString(decoded, -1) {
		if !gjson.Valid(raw) {
			continue
		}
		rec := gjson.Parse(raw)

		id := rec.Get("vintage.wine.id").Int()
		name := rec.Get("vintage.wine.name").String()
		if id == 0 || name == "" {
			continue
		}

		sourceID := strconv.FormatInt(id, 10)
		c := model.Candidate{
			SourceID:     sourceID,
			SourceName:   name,
			SourceWinery: rec.Get("vintage.wine.winery.name").String(),
			SourceURL:    baseURL + "/w/" + sourceID,
		}
		if year := rec.Get("vintage.year").Int(); year > 0 {
			c.SourceVintage = model.IntPtr(int(year))
		}
		if amount := rec.Get("price.amount").Float(); amount > 0 {
			c.Price = model.Float64Ptr(amount)
		}
		out = append(out, c)
	}
	return out
}
