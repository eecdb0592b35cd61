package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// GradeConfigRepo loads per-school grade configuration.
type GradeConfigRepo struct{ Pool PgxPool }

// NewGradeConfigRepo constructs a GradeConfigRepo with the given pool.
func NewGradeConfigRepo(p PgxPool) *GradeConfigRepo { return &GradeConfigRepo{Pool: p} }

// Get loads the configuration for a school and grade.
func (r *GradeConfigRepo) Get(ctx domain.Context, schoolID string, grade int) (domain.GradeConfig, error) {
	tracer := otel.Tracer("repo.grade_configs")
	ctx, span := tracer.Start(ctx, "grade_configs.Get")
	defer span.End()
	q := `SELECT school_id, grade, thresholds, domain_weights,
		COALESCE(assessor_name,''), COALESCE(assessor_email,''), COALESCE(locale,'')
	FROM grade_configs WHERE school_id=$1 AND grade=$2`
	row := r.Pool.QueryRow(ctx, q, schoolID, grade)

	var c domain.GradeConfig
	var thresholdsJSON, weightsJSON []byte
	var locale string
	if err := row.Scan(&c.SchoolID, &c.Grade, &thresholdsJSON, &weightsJSON, &c.AssessorName, &c.AssessorEmail, &locale); err != nil {
		if err == pgx.ErrNoRows {
			return domain.GradeConfig{}, fmt.Errorf("op=grade_config.get: %w", domain.ErrNotFound)
		}
		return domain.GradeConfig{}, fmt.Errorf("op=grade_config.get: %w", err)
	}
	c.Locale = domain.Locale(locale)
	if len(thresholdsJSON) > 0 {
		if err := json.Unmarshal(thresholdsJSON, &c.Thresholds); err != nil {
			return domain.GradeConfig{}, fmt.Errorf("op=grade_config.get: %w", err)
		}
	}
	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &c.DomainWeights); err != nil {
			return domain.GradeConfig{}, fmt.Errorf("op=grade_config.get: %w", err)
		}
	}
	return c, nil
}
