// Package usecase contains the application services of the scoring pipeline:
// writing evaluation, narrative generation, intake, and orchestration.
package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/ai"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/observability"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// minEvaluableLen is the shortest trimmed response worth sending to the
// judge; anything below scores Insufficient without an external call.
const minEvaluableLen = 10

// WritingEvaluator grades one writing task through the judge port. It never
// returns an error and never panics: every failure mode degrades to a
// deterministic fallback evaluation so one bad task cannot block a pipeline
// run.
type WritingEvaluator struct {
	Judge     domain.Judge
	MaxTokens int
}

// NewWritingEvaluator constructs a WritingEvaluator.
func NewWritingEvaluator(j domain.Judge, maxTokens int) WritingEvaluator {
	return WritingEvaluator{Judge: j, MaxTokens: maxTokens}
}

// Evaluate grades a single writing task.
func (e WritingEvaluator) Evaluate(ctx domain.Context, task domain.WritingTask) domain.WritingEvaluation {
	if len(strings.TrimSpace(task.Response)) < minEvaluableLen {
		return domain.WritingEvaluation{
			Domain:           task.Domain,
			Band:             domain.BandInsufficient,
			Score:            0,
			ContentNarrative: "The response was too short to evaluate.",
			WritingNarrative: "No assessable writing was provided.",
			ThresholdComment: "Below the minimum response length for this task.",
		}
	}

	raw, err := e.Judge.Judge(ctx, writingSystemPrompt(task), writingUserPrompt(task), e.MaxTokens)
	if err != nil {
		slog.Warn("writing evaluation degraded to fallback",
			slog.String("domain", string(task.Domain)),
			slog.Any("error", err))
		observability.WritingFallbacksTotal.WithLabelValues("judge_error").Inc()
		return fallbackEvaluation(task.Domain, err)
	}

	cleaned := ai.CleanJSONResponse(raw)
	var parsed struct {
		Band             string          `json:"band"`
		Score            json.RawMessage `json:"score"`
		ContentNarrative string          `json:"content_narrative"`
		WritingNarrative string          `json:"writing_narrative"`
		ThresholdComment string          `json:"threshold_comment"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		slog.Warn("writing evaluation response unparseable",
			slog.String("domain", string(task.Domain)),
			slog.Any("error", err))
		observability.WritingFallbacksTotal.WithLabelValues("parse_error").Inc()
		return fallbackEvaluation(task.Domain, err)
	}

	return domain.WritingEvaluation{
		Domain:           task.Domain,
		Band:             NormaliseBand(parsed.Band),
		Score:            clampScore(parsed.Score),
		ContentNarrative: parsed.ContentNarrative,
		WritingNarrative: parsed.WritingNarrative,
		ThresholdComment: parsed.ThresholdComment,
	}
}

// fallbackEvaluation is the safety net for any judge failure: a neutral
// middle band flagged for manual review.
func fallbackEvaluation(d domain.Domain, cause error) domain.WritingEvaluation {
	return domain.WritingEvaluation{
		Domain:           d,
		Band:             domain.BandDeveloping,
		Score:            2,
		ContentNarrative: fmt.Sprintf("Automated evaluation was unavailable (%v). Manual review recommended.", cause),
		WritingNarrative: "Automated evaluation was unavailable. Manual review recommended.",
		ThresholdComment: "Score assigned provisionally pending manual review.",
	}
}

// NormaliseBand maps a judge-reported band string onto the five enumerated
// bands. "Limited" is normalized to Emerging per the rubric; unrecognized
// values land on Developing as the safe middle default.
func NormaliseBand(s string) domain.Band {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "excellent":
		return domain.BandExcellent
	case "good":
		return domain.BandGood
	case "developing":
		return domain.BandDeveloping
	case "emerging", "limited":
		return domain.BandEmerging
	case "insufficient", "no response", "none":
		return domain.BandInsufficient
	default:
		return domain.BandDeveloping
	}
}

// clampScore parses the judge's score field, treating non-numeric values as
// 0 and clamping into [0,4]. Accepts both JSON numbers and quoted numerics.
func clampScore(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 4 {
		return 4
	}
	return f
}

func writingSystemPrompt(task domain.WritingTask) string {
	spelling := "British English spelling conventions (organise, colour, programme)"
	if task.Locale == domain.LocaleAmerican {
		spelling = "American English spelling conventions (organize, color, program)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced admissions assessor evaluating a grade %d applicant's written response. Use %s.\n\n", task.Grade, spelling)
	b.WriteString("Assess both the content (ideas, relevance, depth) and the writing quality (structure, vocabulary, accuracy) of the response.\n\n")
	b.WriteString("Band the response using this rubric:\n")
	b.WriteString("- Excellent = 4: sophisticated, well-structured, fully developed\n")
	b.WriteString("- Good = 3: clear, mostly accurate, relevant\n")
	b.WriteString("- Developing = 2: partially developed, noticeable errors\n")
	b.WriteString("- Emerging = 1: minimal development, frequent errors\n")
	b.WriteString("- Insufficient / No response = 0: off-topic or absent\n\n")
	b.WriteString("Respond with ONLY a JSON object. No prose, no markdown, no explanations outside the JSON.")
	return b.String()
}

func writingUserPrompt(task domain.WritingTask) string {
	var b strings.Builder
	if task.StudentName != "" {
		fmt.Fprintf(&b, "Student: %s", task.StudentName)
		if task.Programme != "" {
			fmt.Fprintf(&b, " (applying to %s)", task.Programme)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Task prompt:\n%s\n\n", task.PromptText)
	fmt.Fprintf(&b, "Student response:\n%s\n\n", task.Response)
	b.WriteString("Return JSON with exactly this shape:\n")
	b.WriteString(`{"band": "Excellent|Good|Developing|Emerging|Insufficient", "score": 0-4, "content_narrative": "...", "writing_narrative": "...", "threshold_comment": "..."}`)
	return b.String()
}
