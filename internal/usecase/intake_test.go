package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

type fakeQueue struct {
	jobs []domain.ScoreTaskPayload
	err  error
}

func (f *fakeQueue) EnqueueScore(_ domain.Context, p domain.ScoreTaskPayload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, p)
	return fmt.Sprintf("job-%d", len(f.jobs)), nil
}

func webhookBody(t *testing.T, submissionID string) []byte {
	t.Helper()
	payload := JotformWebhook{
		SubmissionID: submissionID,
		FormID:       "form-9",
		Answers: map[string]JotformAnswer{
			"1": {Name: "school_id", Type: "control_textbox", Answer: json.RawMessage(`"school-1"`)},
			"2": {Name: "student_name", Type: "control_fullname", Answer: json.RawMessage(`{"first": "Amira", "last": "Haddad"}`)},
			"3": {Name: "grade", Type: "control_dropdown", Answer: json.RawMessage(`"7"`)},
			"4": {Name: "programme", Type: "control_textbox", Answer: json.RawMessage(`"Year 7 Entry"`)},
			"5": {Name: "g7_en_q1", Text: "Pick the noun", Type: "control_radio", Answer: json.RawMessage(`"A"`), Order: "5"},
			"6": {Name: "g7_en_essay", Text: "Write a short essay", Type: "control_textarea", Answer: json.RawMessage(`"I love reading adventure stories."`), Order: "6"},
			"7": {Name: "consent", Type: "control_checkbox", Answer: json.RawMessage(`["yes"]`), Order: "7"},
		},
	}
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return b
}

func TestIntakeHappyPath(t *testing.T) {
	subs := newFakeSubmissions()
	q := &fakeQueue{}
	svc := NewIntakeService(subs, q)

	res, err := svc.Intake(context.Background(), webhookBody(t, "jf-1"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.NotEmpty(t, res.SubmissionID)
	assert.Equal(t, "job-1", res.JobID)

	stored := subs.subs[res.SubmissionID]
	assert.Equal(t, "jf-1", stored.JotformSubmissionID)
	assert.Equal(t, "school-1", stored.SchoolID)
	assert.Equal(t, "Amira Haddad", stored.StudentName)
	assert.Equal(t, 7, stored.Grade)
	assert.Equal(t, "Year 7 Entry", stored.Programme)
	assert.Equal(t, domain.StatusPending, stored.Status)

	// Metadata fields never leak into the raw answer map.
	require.Len(t, stored.RawAnswers.Fields, 3)
	assert.Equal(t, domain.FieldSingleChoice, stored.RawAnswers.Fields["5"].Kind)
	assert.Equal(t, domain.FieldFreeText, stored.RawAnswers.Fields["6"].Kind)
	assert.Equal(t, domain.FieldUnknown, stored.RawAnswers.Fields["7"].Kind)
	assert.Equal(t, 6, stored.RawAnswers.Fields["6"].FormOrder)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, res.SubmissionID, q.jobs[0].SubmissionID)
}

func TestIntakeDuplicateIsIdempotent(t *testing.T) {
	subs := newFakeSubmissions()
	q := &fakeQueue{}
	svc := NewIntakeService(subs, q)

	first, err := svc.Intake(context.Background(), webhookBody(t, "jf-1"))
	require.NoError(t, err)

	second, err := svc.Intake(context.Background(), webhookBody(t, "jf-1"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.SubmissionID, second.SubmissionID)
	assert.Len(t, q.jobs, 1, "a duplicate delivery must not enqueue again")
}

func TestIntakeRejectsMalformedBody(t *testing.T) {
	svc := NewIntakeService(newFakeSubmissions(), &fakeQueue{})
	_, err := svc.Intake(context.Background(), []byte(`{not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestIntakeRejectsMissingMetadata(t *testing.T) {
	body, err := json.Marshal(JotformWebhook{
		SubmissionID: "jf-2",
		Answers: map[string]JotformAnswer{
			"1": {Name: "g7_en_q1", Type: "control_radio", Answer: json.RawMessage(`"A"`)},
		},
	})
	require.NoError(t, err)

	svc := NewIntakeService(newFakeSubmissions(), &fakeQueue{})
	_, ierr := svc.Intake(context.Background(), body)
	assert.ErrorIs(t, ierr, domain.ErrInvalidArgument)
}

func TestIntakeRejectsGradeOutOfRange(t *testing.T) {
	payload := JotformWebhook{
		SubmissionID: "jf-3",
		Answers: map[string]JotformAnswer{
			"1": {Name: "school_id", Answer: json.RawMessage(`"school-1"`)},
			"2": {Name: "student_name", Answer: json.RawMessage(`"Kai"`)},
			"3": {Name: "grade", Answer: json.RawMessage(`"12"`)},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	svc := NewIntakeService(newFakeSubmissions(), &fakeQueue{})
	_, ierr := svc.Intake(context.Background(), body)
	assert.ErrorIs(t, ierr, domain.ErrInvalidArgument)
}

func TestIntakeEnqueueFailureKeepsRecord(t *testing.T) {
	subs := newFakeSubmissions()
	svc := NewIntakeService(subs, &fakeQueue{err: errors.New("broker down")})

	res, err := svc.Intake(context.Background(), webhookBody(t, "jf-4"))
	require.Error(t, err)
	assert.NotEmpty(t, res.SubmissionID)
	_, ok := subs.subs[res.SubmissionID]
	assert.True(t, ok, "the submission must survive an enqueue failure for re-score recovery")
}

func TestRescore(t *testing.T) {
	subs := newFakeSubmissions(gradeSevenSubmission())
	q := &fakeQueue{}
	svc := NewIntakeService(subs, q)

	jobID, err := svc.Rescore(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, "sub-1", q.jobs[0].SubmissionID)
}

func TestRescoreUnknownSubmission(t *testing.T) {
	svc := NewIntakeService(newFakeSubmissions(), &fakeQueue{})
	_, err := svc.Rescore(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnswerTextShapes(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`"  padded  "`, "padded"},
		{`["a", "b"]`, "a, b"},
		{`{"first": "Amira", "last": "Haddad"}`, "Amira Haddad"},
		{`{"last": "Haddad", "first": "Amira", "prefix": "Ms"}`, "Ms Amira Haddad"},
		{``, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, answerText(json.RawMessage(c.raw)), c.raw)
	}
}

func TestResultViewExposesErrorLogOnlyInError(t *testing.T) {
	sub := gradeSevenSubmission()
	sub.Status = domain.StatusComplete
	sub.ErrorLog = "stale failure from a prior run"
	sub.RecommendationBand = domain.RecReadyToAdmit
	subs := newFakeSubmissions(sub)
	svc := NewResultService(subs)

	view, err := svc.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Empty(t, view.ErrorLog)
	assert.Equal(t, domain.RecReadyToAdmit, view.RecommendationBand)

	sub.Status = domain.StatusError
	sub.ErrorLog = "answer keys unavailable"
	subs.subs["sub-1"] = sub
	view, err = svc.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "answer keys unavailable", view.ErrorLog)
}
