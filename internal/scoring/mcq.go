package scoring

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
	"github.com/wigsbury-ui/evalent.io-sub001/pkg/textx"
)

// MCQOutcome is the result of scoring one submission's multiple-choice and
// mindset items.
type MCQOutcome struct {
	Scores       map[domain.Domain]domain.DomainScore
	MindsetScore float64
}

// ScoreMCQs grades every MCQ answer key against the raw submission and
// accumulates the mindset mean separately. Student answers are located by the
// key's stable label, never by question number: webhook payload ordering is
// not guaranteed to equal key ordering.
func ScoreMCQs(sub domain.RawSubmission, keys []domain.AnswerKey) MCQOutcome {
	scores := make(map[domain.Domain]domain.DomainScore)
	var mindsetSum float64
	var mindsetCount int

	for _, key := range keys {
		switch key.QuestionType {
		case domain.QuestionMCQ:
			field, ok := findByLabel(sub, key.Label)
			letter := ""
			if ok {
				letter = ExtractLetter(field.Answer, key)
			}
			s := scores[key.Domain]
			s.Domain = key.Domain
			s.Total++
			correct := letter != "" && letter == strings.ToUpper(strings.TrimSpace(key.CorrectAnswer))
			if correct {
				s.Correct++
			}
			s.Items = append(s.Items, domain.MCQItem{
				QuestionNumber: key.QuestionNumber,
				Construct:      key.Construct,
				StudentAnswer:  letter,
				CorrectAnswer:  strings.ToUpper(strings.TrimSpace(key.CorrectAnswer)),
				IsCorrect:      correct,
			})
			scores[key.Domain] = s
		case domain.QuestionMindset:
			field, ok := findByLabel(sub, key.Label)
			if !ok {
				continue
			}
			if v, ok := likertValue(field.Answer); ok {
				mindsetSum += v
				mindsetCount++
			} else {
				slog.Warn("unparseable mindset answer", slog.String("label", key.Label), slog.String("answer", field.Answer))
			}
		}
	}

	for d, s := range scores {
		s.Pct = RoundPct(s.Correct, s.Total)
		scores[d] = s
	}

	out := MCQOutcome{Scores: scores}
	if mindsetCount > 0 {
		out.MindsetScore = round1(mindsetSum / float64(mindsetCount))
		scores[domain.DomainMindset] = domain.DomainScore{
			Domain: domain.DomainMindset,
			Total:  mindsetCount,
			Score:  out.MindsetScore,
		}
	}
	return out
}

// RoundPct returns correct/total as a one-decimal percentage, 0 when total
// is 0: round(correct/total x 1000)/10.
func RoundPct(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ExtractLetter resolves a raw answer value to a single option letter A-D.
// Resolution order: exact single character, leading letter with punctuation
// ("A) ...", "A. ..."), then full-text match against the key's option texts
// (case-insensitive, whitespace-normalized, substring-tolerant both ways).
// Returns "" when nothing resolves.
func ExtractLetter(raw string, key domain.AnswerKey) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	upper := strings.ToUpper(v)
	if len(upper) == 1 {
		// A lone character either names an option or resolves to nothing; it
		// is never an option text.
		if upper >= "A" && upper <= "D" {
			return upper
		}
		return ""
	}
	if len(upper) >= 2 && upper[0] >= 'A' && upper[0] <= 'D' && (upper[1] == ')' || upper[1] == '.') {
		return upper[:1]
	}
	norm := textx.NormalizeSpace(v)
	for letter, text := range key.Options() {
		if textx.ContainsEither(norm, textx.NormalizeSpace(text)) {
			return letter
		}
	}
	return ""
}

// likertValue parses a mindset item answer into a 0-4 value. Numeric answers
// are accepted directly when in range; common Likert labels map to fixed
// anchors.
func likertValue(raw string) (float64, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f < 0 || f > 4 {
			return 0, false
		}
		return f, true
	}
	switch textx.NormalizeSpace(v) {
	case "strongly agree", "always":
		return 4, true
	case "agree", "often":
		return 3, true
	case "neutral", "not sure", "sometimes":
		return 2, true
	case "disagree", "rarely":
		return 1, true
	case "strongly disagree", "never":
		return 0, true
	}
	return 0, false
}

// findByLabel locates the raw field whose name matches the key label,
// case-insensitively. Falls back to the field-map key itself for payloads
// that omit per-field names.
func findByLabel(sub domain.RawSubmission, label string) (domain.RawField, bool) {
	want := strings.ToLower(strings.TrimSpace(label))
	if want == "" {
		return domain.RawField{}, false
	}
	for id, f := range sub.Fields {
		if strings.ToLower(f.Name) == want || strings.ToLower(id) == want {
			return f, true
		}
	}
	return domain.RawField{}, false
}
