// Package scoring implements the deterministic core of the admissions
// pipeline: domain classification, MCQ scoring, writing extraction, and the
// recommendation decision table. Everything here is pure and I/O-free.
package scoring

import (
	"strings"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// fieldNameCodes maps short field-name markers to domains. Checked before any
// question-text heuristics; first match wins. Reasoning has no code because
// reasoning items are MCQ-only and carry explicit keys.
var fieldNameCodes = []struct {
	marker string
	domain domain.Domain
}{
	{"_en_", domain.DomainEnglish},
	{"english", domain.DomainEnglish},
	{"_ma_", domain.DomainMathematics},
	{"maths", domain.DomainMathematics},
	{"math", domain.DomainMathematics},
	{"_mind_", domain.DomainMindset},
	{"mindset", domain.DomainMindset},
	{"_val_", domain.DomainValues},
	{"values", domain.DomainValues},
	{"_crea_", domain.DomainCreativity},
	{"creativ", domain.DomainCreativity},
}

// textPhrases are the fallback heuristics scanned over field name + question
// text when no field-name code matched.
var textPhrases = []struct {
	phrase string
	domain domain.Domain
}{
	{"essay", domain.DomainEnglish},
	{"well-organised paragraph", domain.DomainEnglish},
	{"well-organized paragraph", domain.DomainEnglish},
	{"mathematic", domain.DomainMathematics},
	{"difficult thing", domain.DomainMathematics},
	{"why you would like", domain.DomainMindset},
	{"our school", domain.DomainMindset},
	{"kindness", domain.DomainValues},
	{"fairness", domain.DomainValues},
	{"community", domain.DomainValues},
	{"design", domain.DomainCreativity},
	{"idea", domain.DomainCreativity},
	{"improve", domain.DomainCreativity},
}

// ClassifyDomain resolves the domain for a raw form field. Field-name codes
// take strict priority over question-text phrases. When nothing matches it
// returns ok=false and the caller drops the field; an ambiguous field is
// never guessed into a default domain.
func ClassifyDomain(fieldName, questionText string) (domain.Domain, bool) {
	name := strings.ToLower(fieldName)
	for _, c := range fieldNameCodes {
		if strings.Contains(name, c.marker) {
			return c.domain, true
		}
	}
	haystack := name + " " + strings.ToLower(questionText)
	for _, p := range textPhrases {
		if strings.Contains(haystack, p.phrase) {
			return p.domain, true
		}
	}
	return "", false
}

// DomainForConstruct maps an answer-key construct label to a domain for
// reporting joins. Unlike ClassifyDomain this is fail-open: an unrecognized
// construct defaults to english. The asymmetry is deliberate; see DESIGN.md.
func DomainForConstruct(construct string) domain.Domain {
	c := strings.ToLower(construct)
	switch {
	case strings.Contains(c, "math"), strings.Contains(c, "number"), strings.Contains(c, "geometr"):
		return domain.DomainMathematics
	case strings.Contains(c, "reason"), strings.Contains(c, "logic"), strings.Contains(c, "pattern"):
		return domain.DomainReasoning
	case strings.Contains(c, "mindset"), strings.Contains(c, "growth"), strings.Contains(c, "motivat"):
		return domain.DomainMindset
	case strings.Contains(c, "value"), strings.Contains(c, "ethic"), strings.Contains(c, "empath"):
		return domain.DomainValues
	case strings.Contains(c, "creativ"), strings.Contains(c, "imagin"), strings.Contains(c, "invent"):
		return domain.DomainCreativity
	default:
		return domain.DomainEnglish
	}
}
