package scoring

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// minResponseLen filters out placeholder answers ("ok", "-", "n/a") before
// any prompt lookup happens.
const minResponseLen = 5

// ExtractWritingTasks pulls long-form responses out of the raw submission and
// pairs each with its domain and source prompt. Fields whose domain cannot be
// inferred are dropped and logged, never guessed; the caller can observe the
// drop through the returned unmatched names.
func ExtractWritingTasks(sub domain.RawSubmission, keys []domain.AnswerKey, s domain.Submission, locale domain.Locale) ([]domain.WritingTask, []string) {
	var fields []domain.RawField
	for _, f := range sub.Fields {
		if f.Kind != domain.FieldFreeText {
			continue
		}
		if len(strings.TrimSpace(f.Answer)) <= minResponseLen {
			continue
		}
		fields = append(fields, f)
	}
	// Form order keeps downstream logs stable; it is not scoring-relevant.
	sort.Slice(fields, func(i, j int) bool { return fields[i].FormOrder < fields[j].FormOrder })

	var tasks []domain.WritingTask
	var unmatched []string
	for _, f := range fields {
		d, ok := ClassifyDomain(f.Name, f.Label)
		if !ok {
			slog.Warn("writing response dropped, no domain inferred",
				slog.String("field", f.Name),
				slog.String("label", f.Label))
			unmatched = append(unmatched, f.Name)
			continue
		}
		tasks = append(tasks, domain.WritingTask{
			Domain:      d,
			PromptText:  promptTextFor(d, keys),
			Response:    f.Answer,
			Grade:       s.Grade,
			Locale:      locale,
			StudentName: s.StudentName,
			Programme:   s.Programme,
		})
	}
	return tasks, unmatched
}

// promptTextFor returns the question text of the first non-MCQ answer key for
// the domain, matching either the key's own domain tag or its construct
// mapping. Empty when the grade's key set has no writing prompt for it.
func promptTextFor(d domain.Domain, keys []domain.AnswerKey) string {
	for _, k := range keys {
		if k.QuestionType == domain.QuestionMCQ {
			continue
		}
		if k.Domain == d || DomainForConstruct(k.Construct) == d {
			return k.QuestionText
		}
	}
	return ""
}
