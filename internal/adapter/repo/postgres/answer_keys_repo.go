package postgres

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

// AnswerKeyRepo loads and seeds answer keys. Keys are immutable once a
// grade's testing window opens; BulkUpsert exists for pre-window seeding and
// corrections only.
type AnswerKeyRepo struct{ Pool PgxPool }

// NewAnswerKeyRepo constructs an AnswerKeyRepo with the given pool.
func NewAnswerKeyRepo(p PgxPool) *AnswerKeyRepo { return &AnswerKeyRepo{Pool: p} }

// ListByGrade returns the grade's keys ordered by question number.
func (r *AnswerKeyRepo) ListByGrade(ctx domain.Context, grade int) ([]domain.AnswerKey, error) {
	tracer := otel.Tracer("repo.answer_keys")
	ctx, span := tracer.Start(ctx, "answer_keys.ListByGrade")
	defer span.End()
	q := `SELECT id, grade, question_number, domain, question_type, COALESCE(construct,''), label,
		COALESCE(option_a,''), COALESCE(option_b,''), COALESCE(option_c,''), COALESCE(option_d,''),
		COALESCE(correct_answer,''), COALESCE(question_text,''), COALESCE(rationale,'')
	FROM answer_keys WHERE grade=$1 ORDER BY question_number`
	rows, err := r.Pool.Query(ctx, q, grade)
	if err != nil {
		return nil, fmt.Errorf("op=answer_key.list: %w", err)
	}
	defer rows.Close()

	var keys []domain.AnswerKey
	for rows.Next() {
		var k domain.AnswerKey
		if err := rows.Scan(&k.ID, &k.Grade, &k.QuestionNumber, &k.Domain, &k.QuestionType, &k.Construct, &k.Label,
			&k.OptionA, &k.OptionB, &k.OptionC, &k.OptionD,
			&k.CorrectAnswer, &k.QuestionText, &k.Rationale); err != nil {
			return nil, fmt.Errorf("op=answer_key.list: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=answer_key.list: %w", err)
	}
	return keys, nil
}

// BulkUpsert writes a batch of keys in one transaction, keyed on
// (grade, question_number). Returns the number of rows written.
func (r *AnswerKeyRepo) BulkUpsert(ctx domain.Context, keys []domain.AnswerKey) (int, error) {
	tracer := otel.Tracer("repo.answer_keys")
	ctx, span := tracer.Start(ctx, "answer_keys.BulkUpsert")
	defer span.End()
	if len(keys) == 0 {
		return 0, nil
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("op=answer_key.bulk_upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO answer_keys (id, grade, question_number, domain, question_type, construct, label, option_a, option_b, option_c, option_d, correct_answer, question_text, rationale)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	ON CONFLICT (grade, question_number)
	DO UPDATE SET domain=EXCLUDED.domain, question_type=EXCLUDED.question_type, construct=EXCLUDED.construct, label=EXCLUDED.label,
		option_a=EXCLUDED.option_a, option_b=EXCLUDED.option_b, option_c=EXCLUDED.option_c, option_d=EXCLUDED.option_d,
		correct_answer=EXCLUDED.correct_answer, question_text=EXCLUDED.question_text, rationale=EXCLUDED.rationale`

	batch := &pgx.Batch{}
	for _, k := range keys {
		id := k.ID
		if id == "" {
			id = uuid.New().String()
		}
		batch.Queue(q, id, k.Grade, k.QuestionNumber, k.Domain, k.QuestionType, k.Construct, k.Label,
			k.OptionA, k.OptionB, k.OptionC, k.OptionD, k.CorrectAnswer, k.QuestionText, k.Rationale)
	}
	results := tx.SendBatch(ctx, batch)
	for range keys {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("op=answer_key.bulk_upsert: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("op=answer_key.bulk_upsert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("op=answer_key.bulk_upsert: %w", err)
	}
	return len(keys), nil
}
