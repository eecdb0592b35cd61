package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/scoring"
)

// Fixed narrative fallbacks. Never-throw: a failed generation substitutes
// one of these strings instead of propagating an error.
const (
	narrativeUnavailable  = "An automated narrative is unavailable for this submission."
	narrativeErrored      = "Narrative generation encountered an error; manual review is recommended."
	reasoningNarrativeMax = 512
	mindsetNarrativeMax   = 384
)

// NarrativeGenerator produces free-text commentary for the reasoning and
// mindset domains via the judge port.
type NarrativeGenerator struct {
	Judge domain.Judge
}

// NewNarrativeGenerator constructs a NarrativeGenerator.
func NewNarrativeGenerator(j domain.Judge) NarrativeGenerator {
	return NarrativeGenerator{Judge: j}
}

// generate runs one narrative prompt with the shared failure semantics.
func (g NarrativeGenerator) generate(ctx domain.Context, system, user string, maxTokens int) string {
	out, err := g.Judge.Judge(ctx, system, user, maxTokens)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			// Missing credential: a configuration gap, not a transient fault.
			slog.Warn("narrative generation unavailable", slog.Any("error", err))
			return narrativeUnavailable
		}
		slog.Warn("narrative generation failed", slog.Any("error", err))
		return narrativeErrored
	}
	return strings.TrimSpace(out)
}

// ReasoningInput carries the signals the reasoning narrative describes.
type ReasoningInput struct {
	Pct       float64
	Threshold float64
	Grade     int
	Correct   int
	Total     int
	Locale    domain.Locale
}

// Reasoning produces 3-4 sentences comparing the reasoning score to its
// threshold, framed as a snapshot rather than a fixed judgement.
func (g NarrativeGenerator) Reasoning(ctx domain.Context, in ReasoningInput) string {
	system := fmt.Sprintf("You are an admissions assessor writing a short interpretive note for a grade %d applicant's reasoning assessment. Use %s. Write 3-4 sentences of plain prose, no lists, no headings.", in.Grade, spellingFor(in.Locale))
	user := fmt.Sprintf(
		"The applicant scored %.1f%% on the reasoning section (%d of %d correct) against a threshold of %.1f%%. "+
			"Cover: how the score compares to the threshold, what it suggests about reasoning ability, and what it means for programme readiness. "+
			"Frame the result as a snapshot of current performance, not a fixed judgement of potential.",
		in.Pct, in.Correct, in.Total, in.Threshold)
	return g.generate(ctx, system, user, reasoningNarrativeMax)
}

// Mindset produces 2-3 supportive sentences describing a 0-4 mindset score
// through its qualitative band.
func (g NarrativeGenerator) Mindset(ctx domain.Context, score float64, grade int, locale domain.Locale) string {
	system := fmt.Sprintf("You are an admissions assessor writing a short note on a grade %d applicant's learning-mindset responses. Use %s. Write 2-3 supportive sentences. Describe behaviours, never label the student.", grade, spellingFor(locale))
	user := fmt.Sprintf(
		"The applicant's mindset score is %.1f out of 4, which indicates: %s. "+
			"Write an encouraging summary of what this suggests about how the applicant approaches learning and challenge.",
		score, scoring.MindsetDescriptor(score))
	return g.generate(ctx, system, user, mindsetNarrativeMax)
}

func spellingFor(l domain.Locale) string {
	if l == domain.LocaleAmerican {
		return "American English spelling"
	}
	return "British English spelling"
}
