package source

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// AggregateCriticName labels the page-level score used when no individual
// critic blocks are present.
const AggregateCriticName = "Wine-Searcher Aggregate"

const (
	itemMarker = `<div class="info-card__item">`
	defaultMax = 100
)

var (
	blockTerminators = []string{itemMarker, "</section>", "</body>"}

	criticScoreRe = regexp.MustCompile(`info-card__critic-score[\s\S]*?<span class="font-strong-bold">([^<]+)</span>`)
	criticAwardRe = regexp.MustCompile(`data-award="([^"]+)"`)
	scoreMaxRe    = regexp.MustCompile(`^(?:&nbsp;|\s|</span>|<span[^>]*>)*/(?:&nbsp;|\s)*(\d+)`)
	criticNoteRe  = regexp.MustCompile(`<div class="pt-2">([\s\S]*?)</div>`)
	criticLinkRe  = regexp.MustCompile(`<a[^>]*data-event="critics"[^>]*>`)
	hrefRe        = regexp.MustCompile(`href="([^"]+)"`)
	productNameRe = regexp.MustCompile(`"product":\{[^}]*"name":"([^"]+)"`)
	aggregateRe   = regexp.MustCompile(`"criticScore":(\d+)`)
	digitsRe      = regexp.MustCompile(`^\d+$`)
)

// CriticEntry is one critic's score as it appears on the page, normalized
// to a 100-point scale.
type CriticEntry struct {
	CriticName string
	Score      int
	MaxScore   int
	SourceURL  string
	Note       string
}

// CriticPage is the parsed critic score page for one wine.
type CriticPage struct {
	WineName string
	URL      string
	Scores   []CriticEntry
}

// LookupCriticScores fetches the critic page for query and vintage. A nil
// vintage requests the page for all vintages. Failures return nil.
func (w *WineSearcher) LookupCriticScores(ctx context.Context, query string, vintage *int) *CriticPage {
	segment := "1"
	if vintage != nil {
		segment = strconv.Itoa(*vintage)
	}
	target := w.baseURL + "/find/" + searchTerms(query, nil) + "/" + segment

	resp, err := w.session.GetWithHandoff(ctx, w.Name(), target)
	if err != nil {
		zap.L().Warn("wine-searcher: critic lookup failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	if !resp.OK() {
		zap.L().Warn("wine-searcher: unexpected status", zap.String("query", query), zap.Int("status", resp.StatusCode))
		return nil
	}

	page := ParseCriticPage(resp.Body, resp.URL)
	zap.L().Debug("wine-searcher: critic page parsed",
		zap.String("query", query),
		zap.String("wine", page.WineName),
		zap.Int("scores", len(page.Scores)),
	)
	return page
}

// ParseCriticPage extracts every critic score from html. fallbackURL is
// used when the page has no canonical link.
func ParseCriticPage(html, fallbackURL string) *CriticPage {
	page := &CriticPage{
		URL:      canonicalURL(html, fallbackURL),
		WineName: productName(html),
	}

	for _, block := range criticBlocks(html) {
		if e, ok := parseCriticBlock(block, page.URL); ok {
			page.Scores = append(page.Scores, e)
		}
	}

	if len(page.Scores) == 0 {
		if m := aggregateRe.FindStringSubmatch(html); m != nil {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				page.Scores = []CriticEntry{{
					CriticName: AggregateCriticName,
					Score:      n,
					MaxScore:   defaultMax,
					SourceURL:  page.URL,
				}}
			}
		}
	}
	return page
}

// criticBlocks splits html into the bodies of info-card items. Each block
// ends at the next item, the end of the section or the end of the body; a
// block with no terminator is discarded.
func criticBlocks(html string) []string {
	var blocks []string
	rest := html
	for {
		i := strings.Index(rest, itemMarker)
		if i < 0 {
			return blocks
		}
		rest = rest[i+len(itemMarker):]

		end := -1
		for _, t := range blockTerminators {
			if j := strings.Index(rest, t); j >= 0 && (end < 0 || j < end) {
				end = j
			}
		}
		if end < 0 {
			return blocks
		}
		blocks = append(blocks, rest[:end])
		rest = rest[end:]
	}
}

func parseCriticBlock(block, fallbackURL string) (CriticEntry, bool) {
	sm := criticScoreRe.FindStringSubmatchIndex(block)
	am := criticAwardRe.FindStringSubmatch(block)
	if sm == nil || am == nil {
		return CriticEntry{}, false
	}

	raw := stripTags(block[sm[2]:sm[3]])
	if !digitsRe.MatchString(raw) {
		return CriticEntry{}, false
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return CriticEntry{}, false
	}

	maxScore := defaultMax
	if mm := scoreMaxRe.FindStringSubmatch(block[sm[1]:]); mm != nil {
		maxScore, _ = strconv.Atoi(mm[1])
	}

	e := CriticEntry{
		CriticName: decodeText(am[1]),
		Score:      normalizeScore(score, maxScore),
		MaxScore:   maxScore,
		SourceURL:  reviewLink(block),
	}
	if e.SourceURL == "" {
		e.SourceURL = fallbackURL
	}
	if nm := criticNoteRe.FindStringSubmatch(block); nm != nil {
		e.Note = stripTags(nm[1])
	}
	return e, true
}

// normalizeScore rescales score to 100 points. A zero or negative maximum
// leaves the score as is.
func normalizeScore(score, maxScore int) int {
	if maxScore <= 0 || maxScore == defaultMax {
		return score
	}
	return int(math.Round(float64(score) / float64(maxScore) * 100))
}

// reviewLink returns the critic's own review URL. Links back to the score
// site itself are ignored.
func reviewLink(block string) string {
	anchor := criticLinkRe.FindString(block)
	if anchor == "" {
		return ""
	}
	m := hrefRe.FindStringSubmatch(anchor)
	if m == nil || strings.Contains(m[1], "wine-searcher.com") {
		return ""
	}
	return m[1]
}

func productName(html string) string {
	if m := productNameRe.FindStringSubmatch(html); m != nil {
		return decodeText(m[1])
	}
	return ""
}
