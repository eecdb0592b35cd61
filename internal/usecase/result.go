package usecase

import (
	"fmt"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// ResultView is the flattened read model served by the result endpoint.
// Report rendering and dashboards depend on this field set.
type ResultView struct {
	SubmissionID        string                                         `json:"submission_id"`
	JotformSubmissionID string                                         `json:"jotform_submission_id"`
	StudentName         string                                         `json:"student_name"`
	Programme           string                                         `json:"programme,omitempty"`
	Grade               int                                            `json:"grade"`
	Status              domain.ProcessingStatus                        `json:"processing_status"`
	ErrorLog            string                                         `json:"error_log,omitempty"`
	DomainScores        map[domain.Domain]domain.DomainScore           `json:"domain_scores,omitempty"`
	WritingEvaluations  map[domain.Domain]domain.WritingEvaluation     `json:"writing_evaluations,omitempty"`
	ReasoningNarrative  string                                         `json:"reasoning_narrative,omitempty"`
	MindsetNarrative    string                                         `json:"mindset_narrative,omitempty"`
	EnglishCombined     float64                                        `json:"english_combined"`
	MathematicsCombined float64                                        `json:"mathematics_combined"`
	ReasoningCombined   float64                                        `json:"reasoning_combined"`
	OverallAcademicPct  float64                                        `json:"overall_academic_pct"`
	MindsetScore        float64                                        `json:"mindset_score"`
	RecommendationBand  domain.RecommendationBand                      `json:"recommendation_band,omitempty"`
}

// ResultService serves scored submissions to the HTTP surface.
type ResultService struct {
	Submissions domain.SubmissionRepository
}

// NewResultService constructs a ResultService.
func NewResultService(repo domain.SubmissionRepository) ResultService {
	return ResultService{Submissions: repo}
}

// Get returns the flattened result for a submission in any status. Raw
// answers are deliberately absent from the view: they are intake material,
// not report material.
func (s ResultService) Get(ctx domain.Context, submissionID string) (ResultView, error) {
	sub, err := s.Submissions.Get(ctx, submissionID)
	if err != nil {
		return ResultView{}, fmt.Errorf("op=result.get: %w", err)
	}
	view := ResultView{
		SubmissionID:        sub.ID,
		JotformSubmissionID: sub.JotformSubmissionID,
		StudentName:         sub.StudentName,
		Programme:           sub.Programme,
		Grade:               sub.Grade,
		Status:              sub.Status,
		DomainScores:        sub.DomainScores,
		WritingEvaluations:  sub.WritingEvaluations,
		ReasoningNarrative:  sub.ReasoningNarrative,
		MindsetNarrative:    sub.MindsetNarrative,
		EnglishCombined:     sub.EnglishCombined,
		MathematicsCombined: sub.MathematicsCombined,
		ReasoningCombined:   sub.ReasoningCombined,
		OverallAcademicPct:  sub.OverallAcademicPct,
		MindsetScore:        sub.MindsetScore,
		RecommendationBand:  sub.RecommendationBand,
	}
	if sub.Status == domain.StatusError {
		view.ErrorLog = sub.ErrorLog
	}
	return view, nil
}
