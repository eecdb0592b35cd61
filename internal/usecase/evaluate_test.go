package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// fakeJudge records calls and replays canned responses.
type fakeJudge struct {
	calls     int
	lastSys   string
	lastUser  string
	responses []string
	err       error
}

func (f *fakeJudge) Judge(_ domain.Context, sys, user string, _ int) (string, error) {
	f.calls++
	f.lastSys = sys
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no canned response")
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r, nil
}

func task(resp string) domain.WritingTask {
	return domain.WritingTask{
		Domain:     domain.DomainEnglish,
		PromptText: "Write an essay about your favourite book.",
		Response:   resp,
		Grade:      7,
		Locale:     domain.LocaleBritish,
	}
}

func TestEvaluateShortCircuitNoCall(t *testing.T) {
	j := &fakeJudge{}
	e := NewWritingEvaluator(j, 1024)
	// "ok" has 2 characters: below the 10-char minimum.
	out := e.Evaluate(context.Background(), task("ok"))
	assert.Equal(t, domain.BandInsufficient, out.Band)
	assert.Equal(t, 0.0, out.Score)
	assert.Equal(t, 0, j.calls, "judge must not be called for short responses")
}

func TestEvaluateParsesFencedJSON(t *testing.T) {
	j := &fakeJudge{responses: []string{"```json\n{\"band\": \"Excellent\", \"score\": 4, \"content_narrative\": \"rich ideas\", \"writing_narrative\": \"fluent\", \"threshold_comment\": \"well above\"}\n```"}}
	e := NewWritingEvaluator(j, 1024)
	out := e.Evaluate(context.Background(), task("A long and thoughtful response about reading."))
	require.Equal(t, 1, j.calls)
	assert.Equal(t, domain.BandExcellent, out.Band)
	assert.Equal(t, 4.0, out.Score)
	assert.Equal(t, "rich ideas", out.ContentNarrative)
	assert.Equal(t, "fluent", out.WritingNarrative)
	assert.Equal(t, "well above", out.ThresholdComment)
}

func TestEvaluateScoreClamping(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`{"band": "Good", "score": 7}`, 4},
		{`{"band": "Good", "score": -2}`, 0},
		{`{"band": "Good", "score": "3"}`, 3},
		{`{"band": "Good", "score": "lots"}`, 0},
		{`{"band": "Good"}`, 0},
	}
	for _, c := range cases {
		j := &fakeJudge{responses: []string{c.raw}}
		e := NewWritingEvaluator(j, 1024)
		out := e.Evaluate(context.Background(), task("A sufficiently long answer for evaluation."))
		assert.Equal(t, c.want, out.Score, c.raw)
	}
}

func TestEvaluateFallbackOnJudgeError(t *testing.T) {
	j := &fakeJudge{err: errors.New("boom")}
	e := NewWritingEvaluator(j, 1024)
	out := e.Evaluate(context.Background(), task("A sufficiently long answer for evaluation."))
	assert.Equal(t, domain.BandDeveloping, out.Band)
	assert.Equal(t, 2.0, out.Score)
	assert.Contains(t, out.ContentNarrative, "Manual review")
}

func TestEvaluateFallbackOnGarbageResponse(t *testing.T) {
	j := &fakeJudge{responses: []string{"I think the student did quite well overall."}}
	e := NewWritingEvaluator(j, 1024)
	out := e.Evaluate(context.Background(), task("A sufficiently long answer for evaluation."))
	assert.Equal(t, domain.BandDeveloping, out.Band)
	assert.Equal(t, 2.0, out.Score)
}

func TestEvaluatePromptContract(t *testing.T) {
	j := &fakeJudge{responses: []string{`{"band": "Good", "score": 3}`}}
	e := NewWritingEvaluator(j, 1024)
	tk := task("A sufficiently long answer for evaluation.")
	tk.StudentName = "Amira"
	tk.Programme = "Year 7 Entry"
	e.Evaluate(context.Background(), tk)
	assert.Contains(t, j.lastSys, "grade 7")
	assert.Contains(t, j.lastSys, "British English")
	assert.Contains(t, j.lastSys, "ONLY a JSON object")
	assert.Contains(t, j.lastUser, tk.PromptText)
	assert.Contains(t, j.lastUser, tk.Response)
	assert.Contains(t, j.lastUser, "Amira")

	tk.Locale = domain.LocaleAmerican
	e.Evaluate(context.Background(), tk)
	assert.Contains(t, j.lastSys, "American English")
}

func TestNormaliseBand(t *testing.T) {
	assert.Equal(t, domain.BandEmerging, NormaliseBand("LIMITED"))
	assert.Equal(t, domain.BandExcellent, NormaliseBand("excellent"))
	assert.Equal(t, domain.BandDeveloping, NormaliseBand("garbage"))
	assert.Equal(t, domain.BandInsufficient, NormaliseBand("No Response"))
	assert.Equal(t, domain.BandInsufficient, NormaliseBand("none"))
	assert.Equal(t, domain.BandGood, NormaliseBand(" Good "))
}
