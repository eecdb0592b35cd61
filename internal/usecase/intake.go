package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// JotformAnswer is one answered question in the webhook payload, keyed by
// question id. The control type tags how the answer is interpreted
// downstream.
type JotformAnswer struct {
	Name   string          `json:"name"`
	Text   string          `json:"text"`
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
	Order  string          `json:"order"`
}

// JotformWebhook is the decoded intake payload.
type JotformWebhook struct {
	SubmissionID string                   `json:"submissionID" validate:"required"`
	FormID       string                   `json:"formID"`
	Answers      map[string]JotformAnswer `json:"answers" validate:"required,min=1"`
}

// submissionMeta is the validated student metadata lifted out of the form's
// hidden and identity fields.
type submissionMeta struct {
	SchoolID    string `validate:"required"`
	StudentID   string
	StudentName string `validate:"required"`
	Programme   string
	Grade       int `validate:"required,gte=3,lte=10"`
}

// IntakeService turns webhook deliveries into pending submissions and score
// jobs. Duplicate deliveries resolve to the already-stored submission.
type IntakeService struct {
	Submissions domain.SubmissionRepository
	Queue       domain.Queue
	validate    *validator.Validate
}

// NewIntakeService constructs an IntakeService.
func NewIntakeService(repo domain.SubmissionRepository, q domain.Queue) *IntakeService {
	return &IntakeService{
		Submissions: repo,
		Queue:       q,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// IntakeResult reports what a webhook delivery resolved to.
type IntakeResult struct {
	SubmissionID string `json:"submission_id"`
	Duplicate    bool   `json:"duplicate"`
	JobID        string `json:"job_id,omitempty"`
}

// Intake decodes and validates a webhook body, persists the submission, and
// enqueues its score job. A delivery whose jotform submission id is already
// stored is an idempotent success: the existing id comes back, nothing is
// re-enqueued.
func (s *IntakeService) Intake(ctx domain.Context, body []byte) (IntakeResult, error) {
	var payload JotformWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return IntakeResult{}, fmt.Errorf("op=intake.decode: %w: %v", domain.ErrInvalidArgument, err)
	}
	if err := s.validate.Struct(payload); err != nil {
		return IntakeResult{}, fmt.Errorf("op=intake.validate: %w: %v", domain.ErrInvalidArgument, err)
	}

	if existing, err := s.Submissions.FindByJotformID(ctx, payload.SubmissionID); err == nil {
		slog.Info("duplicate webhook delivery absorbed",
			slog.String("jotform_submission_id", payload.SubmissionID),
			slog.String("submission_id", existing.ID))
		return IntakeResult{SubmissionID: existing.ID, Duplicate: true}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return IntakeResult{}, fmt.Errorf("op=intake.lookup: %w", err)
	}

	meta, raw := splitAnswers(payload.Answers)
	if err := s.validate.Struct(meta); err != nil {
		return IntakeResult{}, fmt.Errorf("op=intake.meta: %w: %v", domain.ErrInvalidArgument, err)
	}

	sub := domain.Submission{
		ID:                  uuid.NewString(),
		JotformSubmissionID: payload.SubmissionID,
		SchoolID:            meta.SchoolID,
		StudentID:           meta.StudentID,
		StudentName:         meta.StudentName,
		Programme:           meta.Programme,
		Grade:               meta.Grade,
		RawAnswers:          raw,
		Status:              domain.StatusPending,
	}

	id, err := s.Submissions.Create(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost a race against a concurrent delivery of the same
			// submission; the winner's record is authoritative.
			existing, ferr := s.Submissions.FindByJotformID(ctx, payload.SubmissionID)
			if ferr != nil {
				return IntakeResult{}, fmt.Errorf("op=intake.create: %w", err)
			}
			return IntakeResult{SubmissionID: existing.ID, Duplicate: true}, nil
		}
		return IntakeResult{}, fmt.Errorf("op=intake.create: %w", err)
	}

	jobID, err := s.Queue.EnqueueScore(ctx, domain.ScoreTaskPayload{SubmissionID: id})
	if err != nil {
		// The record exists; the re-score endpoint can recover it.
		slog.Error("score job enqueue failed after create",
			slog.String("submission_id", id),
			slog.Any("error", err))
		return IntakeResult{SubmissionID: id}, fmt.Errorf("op=intake.enqueue: %w", err)
	}

	slog.Info("submission accepted",
		slog.String("submission_id", id),
		slog.String("jotform_submission_id", payload.SubmissionID),
		slog.Int("grade", meta.Grade),
		slog.Int("fields", len(raw.Fields)))
	return IntakeResult{SubmissionID: id, JobID: jobID}, nil
}

// Rescore enqueues a fresh score job for an existing submission. Safe to call
// repeatedly; a re-run overwrites prior scoring state.
func (s *IntakeService) Rescore(ctx domain.Context, submissionID string) (string, error) {
	if _, err := s.Submissions.Get(ctx, submissionID); err != nil {
		return "", fmt.Errorf("op=intake.rescore: %w", err)
	}
	jobID, err := s.Queue.EnqueueScore(ctx, domain.ScoreTaskPayload{SubmissionID: submissionID})
	if err != nil {
		return "", fmt.Errorf("op=intake.rescore: %w", err)
	}
	slog.Info("re-score enqueued", slog.String("submission_id", submissionID))
	return jobID, nil
}

// metaFieldNames are form fields lifted into submission metadata instead of
// the raw answer map.
var metaFieldNames = map[string]struct{}{
	"school_id":    {},
	"student_id":   {},
	"student_name": {},
	"programme":    {},
	"grade":        {},
}

// splitAnswers partitions the webhook answers into student metadata and the
// raw answer map. Unrecognized control types are carried with the unknown
// tag rather than dropped; scoring decides what to ignore.
func splitAnswers(answers map[string]JotformAnswer) (submissionMeta, domain.RawSubmission) {
	var meta submissionMeta
	raw := domain.RawSubmission{Fields: make(map[string]domain.RawField, len(answers))}

	for qid, a := range answers {
		value := answerText(a.Answer)
		name := strings.ToLower(strings.TrimSpace(a.Name))

		if _, ok := metaFieldNames[name]; ok {
			switch name {
			case "school_id":
				meta.SchoolID = value
			case "student_id":
				meta.StudentID = value
			case "student_name":
				meta.StudentName = value
			case "programme":
				meta.Programme = value
			case "grade":
				if g, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
					meta.Grade = g
				}
			}
			continue
		}
		if a.Type == "control_fullname" && meta.StudentName == "" {
			meta.StudentName = value
			continue
		}

		order, _ := strconv.Atoi(a.Order)
		raw.Fields[qid] = domain.RawField{
			Kind:      kindForControl(a.Type),
			Name:      a.Name,
			Label:     a.Text,
			Answer:    value,
			FormOrder: order,
		}
	}
	return meta, raw
}

// kindForControl maps Jotform control types onto the field-kind tags the
// scoring core branches on.
func kindForControl(controlType string) domain.FieldKind {
	switch controlType {
	case "control_radio", "control_dropdown":
		return domain.FieldSingleChoice
	case "control_textarea":
		return domain.FieldFreeText
	default:
		return domain.FieldUnknown
	}
}

// answerText flattens a Jotform answer value to a single string. Answers
// arrive as plain strings, name objects, or option arrays depending on the
// control.
func answerText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, ", "))
	}
	var parts map[string]string
	if err := json.Unmarshal(raw, &parts); err == nil {
		// Name objects join in a stable key order (first, last, ...).
		keys := make([]string, 0, len(parts))
		for k := range parts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]string, 0, len(keys))
		for _, pref := range []string{"prefix", "first", "middle", "last", "suffix"} {
			if v, ok := parts[pref]; ok && v != "" {
				ordered = append(ordered, v)
			}
		}
		if len(ordered) == 0 {
			for _, k := range keys {
				if parts[k] != "" {
					ordered = append(ordered, parts[k])
				}
			}
		}
		return strings.TrimSpace(strings.Join(ordered, " "))
	}
	return strings.TrimSpace(strings.Trim(string(raw), `"`))
}
