package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// SubmissionRepo persists and loads submissions from PostgreSQL.
type SubmissionRepo struct{ Pool PgxPool }

// NewSubmissionRepo constructs a SubmissionRepo with the given pool.
func NewSubmissionRepo(p PgxPool) *SubmissionRepo { return &SubmissionRepo{Pool: p} }

const submissionColumns = `id, jotform_submission_id, school_id, student_id, student_name, programme, grade,
	raw_answers, domain_scores, writing_evaluations,
	COALESCE(reasoning_narrative,''), COALESCE(mindset_narrative,''),
	english_combined, mathematics_combined, reasoning_combined, overall_academic_pct, mindset_score,
	COALESCE(recommendation_band,''), status, COALESCE(error_log,''), created_at, updated_at`

// Create inserts a new submission and returns its id. A duplicate
// jotform_submission_id surfaces as domain.ErrConflict.
func (r *SubmissionRepo) Create(ctx domain.Context, s domain.Submission) (string, error) {
	tracer := otel.Tracer("repo.submissions")
	ctx, span := tracer.Start(ctx, "submissions.Create")
	defer span.End()

	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	rawJSON, err := json.Marshal(s.RawAnswers)
	if err != nil {
		return "", fmt.Errorf("op=submission.create: %w", err)
	}
	now := time.Now().UTC()
	q := `INSERT INTO submissions (id, jotform_submission_id, school_id, student_id, student_name, programme, grade, raw_answers, status, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = r.Pool.Exec(ctx, q, id, s.JotformSubmissionID, s.SchoolID, s.StudentID, s.StudentName, s.Programme, s.Grade, rawJSON, domain.StatusPending, now, now)
	if err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("op=submission.create: %w: jotform_submission_id %s", domain.ErrConflict, s.JotformSubmissionID)
		}
		return "", fmt.Errorf("op=submission.create: %w", err)
	}
	return id, nil
}

// Get loads a submission by id.
func (r *SubmissionRepo) Get(ctx domain.Context, id string) (domain.Submission, error) {
	tracer := otel.Tracer("repo.submissions")
	ctx, span := tracer.Start(ctx, "submissions.Get")
	defer span.End()
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE id=$1`
	return r.scanOne(r.Pool.QueryRow(ctx, q, id), "submission.get")
}

// FindByJotformID loads a submission by its jotform submission id.
func (r *SubmissionRepo) FindByJotformID(ctx domain.Context, jotformID string) (domain.Submission, error) {
	tracer := otel.Tracer("repo.submissions")
	ctx, span := tracer.Start(ctx, "submissions.FindByJotformID")
	defer span.End()
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE jotform_submission_id=$1 LIMIT 1`
	return r.scanOne(r.Pool.QueryRow(ctx, q, jotformID), "submission.find_jotform")
}

// UpdateStatus sets the processing status and error log.
func (r *SubmissionRepo) UpdateStatus(ctx domain.Context, id string, status domain.ProcessingStatus, errorLog string) error {
	tracer := otel.Tracer("repo.submissions")
	ctx, span := tracer.Start(ctx, "submissions.UpdateStatus")
	defer span.End()
	q := `UPDATE submissions SET status=$2, error_log=$3, updated_at=$4 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, status, errorLog, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=submission.update_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=submission.update_status: %w: id %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveScores persists the MCQ-stage domain scores and mindset mean.
func (r *SubmissionRepo) SaveScores(ctx domain.Context, id string, scores map[domain.Domain]domain.DomainScore, mindset float64) error {
	tracer := otel.Tracer("repo.submissions")
	ctx, span := tracer.Start(ctx, "submissions.SaveScores")
	defer span.End()
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("op=submission.save_scores: %w", err)
	}
	q := `UPDATE submissions SET domain_scores=$2, mindset_score=$3, updated_at=$4 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, scoresJSON, mindset, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=submission.save_scores: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=submission.save_scores: %w: id %s", domain.ErrNotFound, id)
	}
	return nil
}

// SaveResult persists the full scored field set in one write.
func (r *SubmissionRepo) SaveResult(ctx domain.Context, s domain.Submission) error {
	tracer := otel.Tracer("repo.submissions")
	ctx, span := tracer.Start(ctx, "submissions.SaveResult")
	defer span.End()
	scoresJSON, err := json.Marshal(s.DomainScores)
	if err != nil {
		return fmt.Errorf("op=submission.save_result: %w", err)
	}
	evalsJSON, err := json.Marshal(s.WritingEvaluations)
	if err != nil {
		return fmt.Errorf("op=submission.save_result: %w", err)
	}
	q := `UPDATE submissions SET
		domain_scores=$2, writing_evaluations=$3,
		reasoning_narrative=$4, mindset_narrative=$5,
		english_combined=$6, mathematics_combined=$7, reasoning_combined=$8,
		overall_academic_pct=$9, mindset_score=$10, recommendation_band=$11,
		updated_at=$12
	WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, s.ID, scoresJSON, evalsJSON,
		s.ReasoningNarrative, s.MindsetNarrative,
		s.EnglishCombined, s.MathematicsCombined, s.ReasoningCombined,
		s.OverallAcademicPct, s.MindsetScore, string(s.RecommendationBand),
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=submission.save_result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=submission.save_result: %w: id %s", domain.ErrNotFound, s.ID)
	}
	return nil
}

func (r *SubmissionRepo) scanOne(row pgx.Row, op string) (domain.Submission, error) {
	var s domain.Submission
	var rawJSON, scoresJSON, evalsJSON []byte
	var band string
	err := row.Scan(&s.ID, &s.JotformSubmissionID, &s.SchoolID, &s.StudentID, &s.StudentName, &s.Programme, &s.Grade,
		&rawJSON, &scoresJSON, &evalsJSON,
		&s.ReasoningNarrative, &s.MindsetNarrative,
		&s.EnglishCombined, &s.MathematicsCombined, &s.ReasoningCombined, &s.OverallAcademicPct, &s.MindsetScore,
		&band, &s.Status, &s.ErrorLog, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Submission{}, fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
		}
		return domain.Submission{}, fmt.Errorf("op=%s: %w", op, err)
	}
	s.RecommendationBand = domain.RecommendationBand(band)
	if len(rawJSON) > 0 {
		if err := json.Unmarshal(rawJSON, &s.RawAnswers); err != nil {
			return domain.Submission{}, fmt.Errorf("op=%s: %w", op, err)
		}
	}
	if len(scoresJSON) > 0 {
		if err := json.Unmarshal(scoresJSON, &s.DomainScores); err != nil {
			return domain.Submission{}, fmt.Errorf("op=%s: %w", op, err)
		}
	}
	if len(evalsJSON) > 0 {
		if err := json.Unmarshal(evalsJSON, &s.WritingEvaluations); err != nil {
			return domain.Submission{}, fmt.Errorf("op=%s: %w", op, err)
		}
	}
	return s, nil
}
