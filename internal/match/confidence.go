package match

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/cellar-valuation/internal/model"
)

// Calibrated thresholds for automatic classification.
const (
	ReviewThreshold     = 0.60
	ConfidenceThreshold = 0.85
)

const (
	nameWeight     = 0.50
	producerWeight = 0.35
	vintageWeight  = 0.15
)

// Outcome classifies a confidence score.
type Outcome int

const (
	Reject Outcome = iota
	Review
	Accept
)

func (o Outcome) String() string {
	switch o {
	case Accept:
		return "matched"
	case Review:
		return "needs_review"
	default:
		return "reject"
	}
}

// Status maps an accepted or reviewable outcome to the valuation status it
// produces. Reject has no status and returns "".
func (o Outcome) Status() model.ValuationStatus {
	switch o {
	case Accept:
		return model.StatusMatched
	case Review:
		return model.StatusNeedsReview
	default:
		return ""
	}
}

// Thresholds holds the cut-offs used by Classify.
type Thresholds struct {
	Review float64
	Accept float64
}

// DefaultThresholds returns the calibrated thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Review: ReviewThreshold, Accept: ConfidenceThreshold}
}

// Classify buckets confidence using t.
func (t Thresholds) Classify(confidence float64) Outcome {
	switch {
	case confidence >= t.Accept:
		return Accept
	case confidence >= t.Review:
		return Review
	default:
		return Reject
	}
}

// Classify buckets confidence using the calibrated thresholds.
func Classify(confidence float64) Outcome {
	return DefaultThresholds().Classify(confidence)
}

// Confidence scores candidate against a catalog wine and vintage, rounded to
// two decimals.
func Confidence(wine model.Wine, vintage *int, c model.Candidate) float64 {
	score := nameWeight*nameSimilarity(wine.Name, c.SourceName, vintage, c.SourceVintage) +
		producerWeight*Similarity(wine.ProducerName, c.SourceWinery) +
		vintageWeight*vintageSimilarity(vintage, c.SourceVintage)
	return round2(score)
}

// nameSimilarity compares wine names with the vintage year tokens removed,
// since sources often append the year to the name and vintage is scored on
// its own.
func nameSimilarity(a, b string, years ...*int) float64 {
	return similarityNormalized(stripYears(Normalize(a), years), stripYears(Normalize(b), years))
}

func stripYears(s string, years []*int) string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if !isYear(f, years) {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func isYear(tok string, years []*int) bool {
	for _, y := range years {
		if y != nil && tok == strconv.Itoa(*y) {
			return true
		}
	}
	return false
}

func vintageSimilarity(want, got *int) float64 {
	switch {
	case want == nil:
		return 1.0
	case got == nil:
		return 0.5
	case *want == *got:
		return 1.0
	default:
		return 0.0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Match is a candidate together with its confidence.
type Match struct {
	Candidate  model.Candidate
	Confidence float64
}

// BestMatch returns the highest-scoring candidate, or nil when there are
// none. Ties keep the earliest candidate.
func BestMatch(wine model.Wine, vintage *int, candidates []model.Candidate) *Match {
	var best *Match
	for _, c := range candidates {
		conf := Confidence(wine, vintage, c)
		if best == nil || conf > best.Confidence {
			best = &Match{Candidate: c, Confidence: conf}
		}
	}
	return best
}
