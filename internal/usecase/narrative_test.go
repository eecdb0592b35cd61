package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

func TestReasoningNarrativePrompt(t *testing.T) {
	j := &fakeJudge{responses: []string{"  A solid performance overall.  "}}
	g := NewNarrativeGenerator(j)
	out := g.Reasoning(context.Background(), ReasoningInput{
		Pct: 63.4, Threshold: 55, Grade: 8, Correct: 19, Total: 30, Locale: domain.LocaleBritish,
	})
	assert.Equal(t, "A solid performance overall.", out)
	assert.Contains(t, j.lastSys, "grade 8")
	assert.Contains(t, j.lastSys, "3-4 sentences")
	assert.Contains(t, j.lastUser, "63.4%")
	assert.Contains(t, j.lastUser, "19 of 30")
	assert.Contains(t, j.lastUser, "55.0%")
	assert.Contains(t, j.lastUser, "snapshot")
}

func TestMindsetNarrativeDescriptors(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{3.6, "strong growth orientation"},
		{2.7, "developing growth orientation"},
		{1.8, "may need targeted support"},
		{1.0, "significant coaching needed"},
	}
	for _, c := range cases {
		j := &fakeJudge{responses: []string{"Encouraging words."}}
		g := NewNarrativeGenerator(j)
		g.Mindset(context.Background(), c.score, 6, domain.LocaleBritish)
		assert.Contains(t, j.lastUser, c.want, "score %.1f", c.score)
	}
}

func TestNarrativeFallbackMissingCredential(t *testing.T) {
	j := &fakeJudge{err: fmt.Errorf("%w: key missing", domain.ErrInvalidArgument)}
	g := NewNarrativeGenerator(j)
	out := g.Mindset(context.Background(), 3, 6, domain.LocaleBritish)
	assert.Equal(t, narrativeUnavailable, out)
}

func TestNarrativeFallbackOnFailure(t *testing.T) {
	j := &fakeJudge{err: errors.New("http 500")}
	g := NewNarrativeGenerator(j)
	out := g.Reasoning(context.Background(), ReasoningInput{Grade: 6})
	assert.Equal(t, narrativeErrored, out)
}
