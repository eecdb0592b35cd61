package scoring

import (
	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// Combined-score weighting for domains with a writing component. Fixed by
// product decision; the configurable per-domain weights table is inert (see
// DESIGN.md).
const (
	mcqWeight     = 0.6
	writingWeight = 0.4
)

// severeMissCutoff separates a mild threshold miss from a severe one. The
// boundary is inclusive: delta of exactly -10.0 counts as severe.
const severeMissCutoff = -10.0

// mindsetGate is the minimum mindset score for an unqualified admit.
const mindsetGate = 2.0

// RecommendationInput carries everything the decision needs. WritingScores
// may omit domains that produced no evaluation; reasoning never has one.
type RecommendationInput struct {
	MCQPcts       map[domain.Domain]float64
	WritingScores map[domain.Domain]*float64
	Thresholds    map[domain.Domain]float64
	MindsetScore  float64
}

// CombinePct blends an MCQ percentage with a 0-4 writing score:
// mcq x 0.6 + (writing/4 x 100) x 0.4, one-decimal rounded. A nil writing
// score leaves the MCQ percentage unchanged.
func CombinePct(mcqPct float64, writingScore *float64) float64 {
	if writingScore == nil {
		return round1(mcqPct)
	}
	return round1(mcqPct*mcqWeight + (*writingScore/4.0*100.0)*writingWeight)
}

// CalculateRecommendation combines per-domain signals into the final
// admissions recommendation. Pure function, no I/O.
func CalculateRecommendation(in RecommendationInput) domain.RecommendationResult {
	results := make(map[domain.Domain]domain.DomainResult, len(domain.AcademicDomains))
	var combinedSum float64
	for _, d := range domain.AcademicDomains {
		mcq := in.MCQPcts[d]
		var ws *float64
		if d != domain.DomainReasoning {
			ws = in.WritingScores[d]
		}
		threshold := domain.DefaultThreshold
		if t, ok := in.Thresholds[d]; ok {
			threshold = t
		}
		combined := CombinePct(mcq, ws)
		delta := round1(combined - threshold)
		results[d] = domain.DomainResult{
			Domain:         d,
			MCQPct:         mcq,
			WritingScore:   ws,
			CombinedPct:    combined,
			Threshold:      threshold,
			Delta:          delta,
			MeetsThreshold: delta >= 0,
		}
		combinedSum += combined
	}

	return domain.RecommendationResult{
		English:            results[domain.DomainEnglish],
		Mathematics:        results[domain.DomainMathematics],
		Reasoning:          results[domain.DomainReasoning],
		OverallAcademicPct: round1(combinedSum / float64(len(domain.AcademicDomains))),
		MindsetScore:       in.MindsetScore,
		Band:               decideBand(results, in.MindsetScore),
	}
}

// decideBand walks the decision table in strict priority order. Boundary
// semantics are scoring-consequential: threshold met at delta >= 0, mild miss
// at delta > -10, severe miss at delta <= -10.
func decideBand(results map[domain.Domain]domain.DomainResult, mindset float64) domain.RecommendationBand {
	var missed []domain.DomainResult
	for _, d := range domain.AcademicDomains {
		if !results[d].MeetsThreshold {
			missed = append(missed, results[d])
		}
	}

	switch len(missed) {
	case 0:
		if mindset >= mindsetGate {
			return domain.RecReadyToAdmit
		}
		return domain.RecAcademicSupport
	case 1:
		m := missed[0]
		if m.Delta > severeMissCutoff {
			if m.Domain == domain.DomainEnglish {
				return domain.RecLanguageSupport
			}
			return domain.RecAcademicSupport
		}
		return domain.RecBorderlineReview
	default:
		severe := 0
		for _, m := range missed {
			if m.Delta < severeMissCutoff {
				severe++
			}
		}
		if severe >= 2 {
			return domain.RecNotYetReady
		}
		return domain.RecBorderlineReview
	}
}

// MindsetDescriptor maps a 0-4 mindset score to its qualitative band used by
// the mindset narrative prompt.
func MindsetDescriptor(score float64) string {
	switch {
	case score >= 3.5:
		return "strong growth orientation"
	case score >= 2.5:
		return "developing growth orientation"
	case score >= 1.5:
		return "may need targeted support"
	default:
		return "significant coaching needed"
	}
}
