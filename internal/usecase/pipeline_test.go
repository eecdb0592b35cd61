package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

type fakeSubmissions struct {
	subs       map[string]domain.Submission
	statusLog  []domain.ProcessingStatus
	errorLogs  []string
	getErr     error
	scoresErr  error
	resultErr  error
	savedScore map[domain.Domain]domain.DomainScore
}

func newFakeSubmissions(subs ...domain.Submission) *fakeSubmissions {
	f := &fakeSubmissions{subs: make(map[string]domain.Submission)}
	for _, s := range subs {
		f.subs[s.ID] = s
	}
	return f
}

func (f *fakeSubmissions) Create(_ domain.Context, s domain.Submission) (string, error) {
	f.subs[s.ID] = s
	return s.ID, nil
}

func (f *fakeSubmissions) Get(_ domain.Context, id string) (domain.Submission, error) {
	if f.getErr != nil {
		return domain.Submission{}, f.getErr
	}
	s, ok := f.subs[id]
	if !ok {
		return domain.Submission{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSubmissions) FindByJotformID(_ domain.Context, jid string) (domain.Submission, error) {
	for _, s := range f.subs {
		if s.JotformSubmissionID == jid {
			return s, nil
		}
	}
	return domain.Submission{}, domain.ErrNotFound
}

func (f *fakeSubmissions) UpdateStatus(_ domain.Context, id string, status domain.ProcessingStatus, errorLog string) error {
	s := f.subs[id]
	s.Status = status
	s.ErrorLog = errorLog
	f.subs[id] = s
	f.statusLog = append(f.statusLog, status)
	if errorLog != "" {
		f.errorLogs = append(f.errorLogs, errorLog)
	}
	return nil
}

func (f *fakeSubmissions) SaveScores(_ domain.Context, id string, scores map[domain.Domain]domain.DomainScore, mindset float64) error {
	if f.scoresErr != nil {
		return f.scoresErr
	}
	f.savedScore = scores
	s := f.subs[id]
	s.DomainScores = scores
	s.MindsetScore = mindset
	f.subs[id] = s
	return nil
}

func (f *fakeSubmissions) SaveResult(_ domain.Context, s domain.Submission) error {
	if f.resultErr != nil {
		return f.resultErr
	}
	f.subs[s.ID] = s
	return nil
}

type fakeAnswerKeys struct {
	keys []domain.AnswerKey
	err  error
}

func (f *fakeAnswerKeys) ListByGrade(_ domain.Context, _ int) ([]domain.AnswerKey, error) {
	return f.keys, f.err
}

func (f *fakeAnswerKeys) BulkUpsert(_ domain.Context, keys []domain.AnswerKey) (int, error) {
	f.keys = append(f.keys, keys...)
	return len(keys), nil
}

type fakeGradeConfigs struct {
	cfg domain.GradeConfig
	err error
}

func (f *fakeGradeConfigs) Get(_ domain.Context, _ string, _ int) (domain.GradeConfig, error) {
	return f.cfg, f.err
}

type fakeEmail struct {
	sent    int
	to      string
	subject string
	html    string
	err     error
}

func (f *fakeEmail) Send(_ domain.Context, to, subject, html string) error {
	f.sent++
	f.to, f.subject, f.html = to, subject, html
	if f.err != nil {
		return f.err
	}
	return nil
}

func gradeSevenKeys() []domain.AnswerKey {
	return []domain.AnswerKey{
		{Grade: 7, QuestionNumber: 1, Domain: domain.DomainEnglish, QuestionType: domain.QuestionMCQ, Label: "g7_en_q1", OptionA: "cat", OptionB: "dog", CorrectAnswer: "A"},
		{Grade: 7, QuestionNumber: 2, Domain: domain.DomainEnglish, QuestionType: domain.QuestionMCQ, Label: "g7_en_q2", OptionA: "red", OptionB: "blue", CorrectAnswer: "B"},
		{Grade: 7, QuestionNumber: 3, Domain: domain.DomainMathematics, QuestionType: domain.QuestionMCQ, Label: "g7_ma_q1", OptionA: "4", OptionB: "5", CorrectAnswer: "A"},
		{Grade: 7, QuestionNumber: 4, Domain: domain.DomainReasoning, QuestionType: domain.QuestionMCQ, Label: "g7_re_q1", OptionA: "x", OptionB: "y", CorrectAnswer: "B"},
		{Grade: 7, QuestionNumber: 5, Domain: domain.DomainMindset, QuestionType: domain.QuestionMindset, Label: "g7_mind_q1"},
		{Grade: 7, QuestionNumber: 6, Domain: domain.DomainEnglish, QuestionType: domain.QuestionWriting, Label: "g7_en_essay", QuestionText: "Write a short essay about your favourite book."},
	}
}

func gradeSevenSubmission() domain.Submission {
	return domain.Submission{
		ID:                  "sub-1",
		JotformSubmissionID: "jf-100",
		SchoolID:            "school-1",
		StudentName:         "Amira",
		Programme:           "Year 7 Entry",
		Grade:               7,
		Status:              domain.StatusPending,
		RawAnswers: domain.RawSubmission{Fields: map[string]domain.RawField{
			"3":  {Kind: domain.FieldSingleChoice, Name: "g7_en_q1", Answer: "A", FormOrder: 1},
			"4":  {Kind: domain.FieldSingleChoice, Name: "g7_en_q2", Answer: "B", FormOrder: 2},
			"5":  {Kind: domain.FieldSingleChoice, Name: "g7_ma_q1", Answer: "A", FormOrder: 3},
			"6":  {Kind: domain.FieldSingleChoice, Name: "g7_re_q1", Answer: "B", FormOrder: 4},
			"7":  {Kind: domain.FieldSingleChoice, Name: "g7_mind_q1", Answer: "Strongly agree", FormOrder: 5},
			"8":  {Kind: domain.FieldFreeText, Name: "g7_en_essay", Label: "Write a short essay", Answer: "I love reading adventure stories because they take me to new places.", FormOrder: 6},
			"99": {Kind: domain.FieldUnknown, Name: "consent", Answer: "yes", FormOrder: 7},
		}},
	}
}

func perfectPipeline(subs *fakeSubmissions, keys *fakeAnswerKeys, cfgs *fakeGradeConfigs, email *fakeEmail) Pipeline {
	judge := &fakeJudge{responses: []string{
		`{"band": "Good", "score": 3, "content_narrative": "clear ideas", "writing_narrative": "fluent", "threshold_comment": "above"}`,
		"The applicant reasons well for this grade.",
		"A wonderfully curious learner.",
	}}
	return Pipeline{
		Submissions:    subs,
		AnswerKeys:     keys,
		GradeConfig:    cfgs,
		Evaluator:      NewWritingEvaluator(judge, 1024),
		Narratives:     NewNarrativeGenerator(judge),
		Email:          email,
		DecisionSecret: "test-secret",
		ReportBaseURL:  "https://reports.example.com/",
	}
}

func TestPipelineHappyPath(t *testing.T) {
	subs := newFakeSubmissions(gradeSevenSubmission())
	keys := &fakeAnswerKeys{keys: gradeSevenKeys()}
	cfgs := &fakeGradeConfigs{cfg: domain.GradeConfig{
		SchoolID: "school-1", Grade: 7,
		AssessorName: "Ms. Chen", AssessorEmail: "chen@example.com",
		Locale: domain.LocaleBritish,
	}}
	email := &fakeEmail{}
	p := perfectPipeline(subs, keys, cfgs, email)

	report, err := p.Run(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, report.Status)

	got := subs.subs["sub-1"]
	assert.Equal(t, domain.StatusComplete, got.Status)
	assert.Equal(t, []domain.ProcessingStatus{domain.StatusScoring, domain.StatusAIEvaluation, domain.StatusComplete}, subs.statusLog)

	// All MCQs correct, mindset 4, writing 3: english 100x0.6 + 75x0.4 = 90.
	assert.Equal(t, 90.0, got.EnglishCombined)
	assert.Equal(t, 100.0, got.MathematicsCombined)
	assert.Equal(t, 100.0, got.ReasoningCombined)
	assert.Equal(t, 96.7, got.OverallAcademicPct)
	assert.Equal(t, 4.0, got.MindsetScore)
	assert.Equal(t, domain.RecReadyToAdmit, got.RecommendationBand)
	assert.Equal(t, domain.BandGood, got.WritingEvaluations[domain.DomainEnglish].Band)
	assert.Equal(t, "The applicant reasons well for this grade.", got.ReasoningNarrative)
	assert.Equal(t, "A wonderfully curious learner.", got.MindsetNarrative)

	require.Equal(t, 1, email.sent)
	assert.Equal(t, "chen@example.com", email.to)
	assert.Contains(t, email.subject, "Amira")
	assert.Contains(t, email.html, "Ready to admit")
	assert.Contains(t, email.html, DecisionToken("test-secret", "sub-1", "accept"))
}

func TestPipelineNoAnswerKeysFatal(t *testing.T) {
	subs := newFakeSubmissions(gradeSevenSubmission())
	p := perfectPipeline(subs, &fakeAnswerKeys{}, &fakeGradeConfigs{}, &fakeEmail{})

	report, err := p.Run(context.Background(), "sub-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoAnswerKeys)
	assert.Equal(t, domain.StatusError, report.Status)
	assert.Equal(t, domain.StatusError, subs.subs["sub-1"].Status)
	assert.Contains(t, subs.subs["sub-1"].ErrorLog, "answer keys unavailable")
}

func TestPipelineJudgeOutageStillCompletes(t *testing.T) {
	subs := newFakeSubmissions(gradeSevenSubmission())
	keys := &fakeAnswerKeys{keys: gradeSevenKeys()}
	judge := &fakeJudge{err: errors.New("connection refused")}
	p := Pipeline{
		Submissions:    subs,
		AnswerKeys:     keys,
		GradeConfig:    &fakeGradeConfigs{err: domain.ErrNotFound},
		Evaluator:      NewWritingEvaluator(judge, 1024),
		Narratives:     NewNarrativeGenerator(judge),
		DecisionSecret: "s",
		ReportBaseURL:  "https://reports.example.com",
	}

	report, err := p.Run(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, report.Status)

	got := subs.subs["sub-1"]
	assert.Equal(t, domain.BandDeveloping, got.WritingEvaluations[domain.DomainEnglish].Band)
	assert.Equal(t, 2.0, got.WritingEvaluations[domain.DomainEnglish].Score)
	assert.Equal(t, narrativeErrored, got.ReasoningNarrative)
	assert.Equal(t, narrativeErrored, got.MindsetNarrative)
}

func TestPipelineEmailFailureKeepsComplete(t *testing.T) {
	subs := newFakeSubmissions(gradeSevenSubmission())
	email := &fakeEmail{err: errors.New("resend down")}
	cfgs := &fakeGradeConfigs{cfg: domain.GradeConfig{AssessorEmail: "a@example.com", Locale: domain.LocaleBritish}}
	p := perfectPipeline(subs, &fakeAnswerKeys{keys: gradeSevenKeys()}, cfgs, email)

	report, err := p.Run(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, report.Status)
	assert.Equal(t, 1, email.sent)
	assert.Equal(t, domain.StatusComplete, subs.subs["sub-1"].Status)
}

func TestPipelineNoAssessorEmailSkipsDispatch(t *testing.T) {
	subs := newFakeSubmissions(gradeSevenSubmission())
	email := &fakeEmail{}
	p := perfectPipeline(subs, &fakeAnswerKeys{keys: gradeSevenKeys()}, &fakeGradeConfigs{cfg: domain.GradeConfig{}}, email)

	_, err := p.Run(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 0, email.sent)
}

func TestPipelineMissingSubmission(t *testing.T) {
	subs := newFakeSubmissions()
	p := perfectPipeline(subs, &fakeAnswerKeys{keys: gradeSevenKeys()}, &fakeGradeConfigs{}, &fakeEmail{})

	report, err := p.Run(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.StatusError, report.Status)
	// Nothing was written for a submission that does not exist.
	assert.Empty(t, subs.statusLog)
}

func TestPipelineSaveResultFailure(t *testing.T) {
	subs := newFakeSubmissions(gradeSevenSubmission())
	subs.resultErr = errors.New("disk full")
	p := perfectPipeline(subs, &fakeAnswerKeys{keys: gradeSevenKeys()}, &fakeGradeConfigs{}, &fakeEmail{})

	report, err := p.Run(context.Background(), "sub-1")
	require.Error(t, err)
	assert.Equal(t, domain.StatusError, report.Status)
	assert.Equal(t, domain.StatusError, subs.subs["sub-1"].Status)
	assert.Contains(t, subs.subs["sub-1"].ErrorLog, "persist result")
}

func TestPipelineRescoreFromComplete(t *testing.T) {
	sub := gradeSevenSubmission()
	sub.Status = domain.StatusComplete
	subs := newFakeSubmissions(sub)
	cfgs := &fakeGradeConfigs{cfg: domain.GradeConfig{Locale: domain.LocaleBritish}}
	p := perfectPipeline(subs, &fakeAnswerKeys{keys: gradeSevenKeys()}, cfgs, &fakeEmail{})

	report, err := p.Run(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, report.Status)
	assert.Equal(t, []domain.ProcessingStatus{domain.StatusScoring, domain.StatusAIEvaluation, domain.StatusComplete}, subs.statusLog)
}

func TestDecisionTokenRoundTrip(t *testing.T) {
	token := DecisionToken("secret", "sub-1", "accept")
	assert.True(t, VerifyDecisionToken("secret", "sub-1", "accept", token))
	assert.False(t, VerifyDecisionToken("secret", "sub-1", "reject", token))
	assert.False(t, VerifyDecisionToken("secret", "sub-2", "accept", token))
	assert.False(t, VerifyDecisionToken("other", "sub-1", "accept", token))
	assert.False(t, strings.Contains(token, ":"))
}
