package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/observability"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/scoring"
)

// Pipeline runs the full scoring sequence for one submission: MCQ scoring,
// writing extraction and evaluation, narrative generation, recommendation,
// persistence, and assessor notification. One pipeline run per consumed
// score job; there is no cancellation once started.
type Pipeline struct {
	Submissions domain.SubmissionRepository
	AnswerKeys  domain.AnswerKeyRepository
	GradeConfig domain.GradeConfigRepository
	Evaluator   WritingEvaluator
	Narratives  NarrativeGenerator
	Email       domain.EmailSender

	DecisionSecret string
	ReportBaseURL  string
	EmailFrom      string
}

// RunReport is the structured outcome handed back to the caller. A failed
// run carries the error text that was also written to the submission's
// error_log; callers never see a raw panic.
type RunReport struct {
	SubmissionID string
	Status       domain.ProcessingStatus
	Band         domain.RecommendationBand
	ErrorLog     string
}

// Run executes the pipeline for submissionID. The returned error is non-nil
// when the run landed in the error state; the submission record has already
// been updated by then.
func (p Pipeline) Run(ctx domain.Context, submissionID string) (report RunReport, err error) {
	tracer := otel.Tracer("usecase.pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	report.SubmissionID = submissionID

	sub, err := p.Submissions.Get(ctx, submissionID)
	if err != nil {
		report.Status = domain.StatusError
		report.ErrorLog = err.Error()
		return report, fmt.Errorf("op=pipeline.load: %w", err)
	}

	// Everything after load is absorbed into the error state rather than
	// propagated: the caller always receives a structured report.
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("panic: %v", rec)
			slog.Error("pipeline panicked", slog.String("submission_id", submissionID), slog.Any("recover", rec))
			p.fail(ctx, submissionID, msg)
			report.Status = domain.StatusError
			report.ErrorLog = msg
			err = fmt.Errorf("op=pipeline.run: %w: %s", domain.ErrInternal, msg)
		}
	}()

	if err := p.transition(ctx, &sub, domain.StatusScoring); err != nil {
		report.Status = domain.StatusError
		report.ErrorLog = err.Error()
		return report, err
	}

	keys, err := p.AnswerKeys.ListByGrade(ctx, sub.Grade)
	if err == nil && len(keys) == 0 {
		err = fmt.Errorf("%w: grade %d", domain.ErrNoAnswerKeys, sub.Grade)
	}
	if err != nil {
		// No MCQ score can be trusted without keys; the whole run aborts.
		msg := fmt.Sprintf("answer keys unavailable: %v", err)
		p.fail(ctx, submissionID, msg)
		report.Status = domain.StatusError
		report.ErrorLog = msg
		return report, fmt.Errorf("op=pipeline.keys: %w", err)
	}

	cfg := p.gradeConfig(ctx, sub)

	stepStart := time.Now()
	outcome := scoring.ScoreMCQs(sub.RawAnswers, keys)
	observability.PipelineStepDuration.WithLabelValues("score_mcq").Observe(time.Since(stepStart).Seconds())

	if err := p.Submissions.SaveScores(ctx, submissionID, outcome.Scores, outcome.MindsetScore); err != nil {
		msg := fmt.Sprintf("persist domain scores: %v", err)
		p.fail(ctx, submissionID, msg)
		report.Status = domain.StatusError
		report.ErrorLog = msg
		return report, fmt.Errorf("op=pipeline.save_scores: %w", err)
	}
	if err := p.transition(ctx, &sub, domain.StatusAIEvaluation); err != nil {
		report.Status = domain.StatusError
		report.ErrorLog = err.Error()
		return report, err
	}

	// Writing evaluations run sequentially in extraction order. Each task's
	// failure is isolated inside the evaluator's fallback; one bad task never
	// aborts the others.
	stepStart = time.Now()
	tasks, unmatched := scoring.ExtractWritingTasks(sub.RawAnswers, keys, sub, cfg.Locale)
	if len(unmatched) > 0 {
		slog.Warn("writing fields dropped during extraction",
			slog.String("submission_id", submissionID),
			slog.Any("fields", unmatched))
	}
	evals := make(map[domain.Domain]domain.WritingEvaluation, len(tasks))
	for _, t := range tasks {
		if _, seen := evals[t.Domain]; seen {
			slog.Warn("duplicate writing task for domain, keeping first",
				slog.String("submission_id", submissionID),
				slog.String("domain", string(t.Domain)))
			continue
		}
		evals[t.Domain] = p.Evaluator.Evaluate(ctx, t)
	}
	observability.PipelineStepDuration.WithLabelValues("evaluate_writing").Observe(time.Since(stepStart).Seconds())

	stepStart = time.Now()
	reasoning := outcome.Scores[domain.DomainReasoning]
	sub.ReasoningNarrative = p.Narratives.Reasoning(ctx, ReasoningInput{
		Pct:       reasoning.Pct,
		Threshold: cfg.Threshold(domain.DomainReasoning),
		Grade:     sub.Grade,
		Correct:   reasoning.Correct,
		Total:     reasoning.Total,
		Locale:    cfg.Locale,
	})
	sub.MindsetNarrative = p.Narratives.Mindset(ctx, outcome.MindsetScore, sub.Grade, cfg.Locale)
	observability.PipelineStepDuration.WithLabelValues("narratives").Observe(time.Since(stepStart).Seconds())

	rec := scoring.CalculateRecommendation(scoring.RecommendationInput{
		MCQPcts: map[domain.Domain]float64{
			domain.DomainEnglish:     outcome.Scores[domain.DomainEnglish].Pct,
			domain.DomainMathematics: outcome.Scores[domain.DomainMathematics].Pct,
			domain.DomainReasoning:   outcome.Scores[domain.DomainReasoning].Pct,
		},
		WritingScores: writingScoresFor(evals),
		Thresholds: map[domain.Domain]float64{
			domain.DomainEnglish:     cfg.Threshold(domain.DomainEnglish),
			domain.DomainMathematics: cfg.Threshold(domain.DomainMathematics),
			domain.DomainReasoning:   cfg.Threshold(domain.DomainReasoning),
		},
		MindsetScore: outcome.MindsetScore,
	})

	sub.DomainScores = outcome.Scores
	sub.WritingEvaluations = evals
	sub.MindsetScore = outcome.MindsetScore
	sub.EnglishCombined = rec.English.CombinedPct
	sub.MathematicsCombined = rec.Mathematics.CombinedPct
	sub.ReasoningCombined = rec.Reasoning.CombinedPct
	sub.OverallAcademicPct = rec.OverallAcademicPct
	sub.RecommendationBand = rec.Band

	if err := p.Submissions.SaveResult(ctx, sub); err != nil {
		msg := fmt.Sprintf("persist result: %v", err)
		p.fail(ctx, submissionID, msg)
		report.Status = domain.StatusError
		report.ErrorLog = msg
		return report, fmt.Errorf("op=pipeline.save_result: %w", err)
	}
	if err := p.transition(ctx, &sub, domain.StatusComplete); err != nil {
		report.Status = domain.StatusError
		report.ErrorLog = err.Error()
		return report, err
	}
	observability.PipelineRunsTotal.WithLabelValues(string(domain.StatusComplete)).Inc()
	observability.RecommendationBandsTotal.WithLabelValues(string(rec.Band)).Inc()

	// Notification is a decoupled failure domain: a failed send is logged
	// and counted but never moves the submission out of complete.
	p.notify(ctx, sub, cfg, rec)

	report.Status = domain.StatusComplete
	report.Band = rec.Band
	slog.Info("pipeline complete",
		slog.String("submission_id", submissionID),
		slog.String("band", string(rec.Band)),
		slog.Float64("overall_academic_pct", rec.OverallAcademicPct))
	return report, nil
}

// transition validates and persists a status change, keeping the in-memory
// copy in sync.
func (p Pipeline) transition(ctx domain.Context, sub *domain.Submission, next domain.ProcessingStatus) error {
	n, err := sub.Status.Transition(next)
	if err != nil {
		p.fail(ctx, sub.ID, err.Error())
		return fmt.Errorf("op=pipeline.transition: %w", err)
	}
	if err := p.Submissions.UpdateStatus(ctx, sub.ID, n, ""); err != nil {
		return fmt.Errorf("op=pipeline.transition: %w", err)
	}
	sub.Status = n
	return nil
}

// fail force-sets the error state with the message in error_log. Best
// effort: a failing status write at this point is only logged.
func (p Pipeline) fail(ctx domain.Context, submissionID, msg string) {
	observability.PipelineRunsTotal.WithLabelValues(string(domain.StatusError)).Inc()
	if err := p.Submissions.UpdateStatus(ctx, submissionID, domain.StatusError, msg); err != nil {
		slog.Error("failed to record pipeline error",
			slog.String("submission_id", submissionID),
			slog.String("error_log", msg),
			slog.Any("error", err))
	}
}

// gradeConfig loads the school's grade configuration, falling back to
// defaults when none is stored. Missing config is a metadata gap, not a
// pipeline failure.
func (p Pipeline) gradeConfig(ctx domain.Context, sub domain.Submission) domain.GradeConfig {
	cfg, err := p.GradeConfig.Get(ctx, sub.SchoolID, sub.Grade)
	if err != nil {
		slog.Warn("grade config unavailable, using defaults",
			slog.String("school_id", sub.SchoolID),
			slog.Int("grade", sub.Grade),
			slog.Any("error", err))
		return domain.GradeConfig{SchoolID: sub.SchoolID, Grade: sub.Grade, Locale: domain.LocaleBritish}
	}
	if cfg.Locale == "" {
		cfg.Locale = domain.LocaleBritish
	}
	return cfg
}

func writingScoresFor(evals map[domain.Domain]domain.WritingEvaluation) map[domain.Domain]*float64 {
	out := make(map[domain.Domain]*float64, len(evals))
	for d, e := range evals {
		score := e.Score
		out[d] = &score
	}
	return out
}
