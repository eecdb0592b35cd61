// Package domain holds the core entities and ports of the admissions
// scoring service. It depends on nothing outside the standard library.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrNoAnswerKeys    = errors.New("no answer keys for grade")
	ErrInternal        = errors.New("internal error")
)

// Context is an alias so ports stay readable; adapters pass context.Context.
type Context = context.Context

// Domain enumerates the six fixed assessment categories.
type Domain string

const (
	DomainEnglish     Domain = "english"
	DomainMathematics Domain = "mathematics"
	DomainReasoning   Domain = "reasoning"
	DomainMindset     Domain = "mindset"
	DomainValues      Domain = "values"
	DomainCreativity  Domain = "creativity"
)

// AcademicDomains are the three domains that carry thresholds and feed the
// overall academic percentage.
var AcademicDomains = []Domain{DomainEnglish, DomainMathematics, DomainReasoning}

// QuestionType enumerates answer-key item kinds.
type QuestionType string

const (
	QuestionMCQ     QuestionType = "mcq"
	QuestionWriting QuestionType = "writing"
	QuestionMindset QuestionType = "mindset"
)

// Locale selects spelling conventions for judge prompts.
type Locale string

const (
	LocaleBritish  Locale = "en-GB"
	LocaleAmerican Locale = "en-US"
)

// AnswerKey is one row per question per grade, seeded in bulk before any
// student testing begins for that grade and immutable afterward.
// Invariant: for QuestionMCQ, CorrectAnswer is one of A-D.
type AnswerKey struct {
	ID             string
	Grade          int
	QuestionNumber int
	Domain         Domain
	QuestionType   QuestionType
	Construct      string
	Label          string
	OptionA        string
	OptionB        string
	OptionC        string
	OptionD        string
	CorrectAnswer  string
	QuestionText   string
	Rationale      string
}

// Options returns the option texts keyed by letter, skipping blanks.
func (k AnswerKey) Options() map[string]string {
	opts := make(map[string]string, 4)
	for letter, text := range map[string]string{"A": k.OptionA, "B": k.OptionB, "C": k.OptionC, "D": k.OptionD} {
		if text != "" {
			opts[letter] = text
		}
	}
	return opts
}

// FieldKind tags raw webhook fields. Unknown kinds are carried but ignored by
// scoring and extraction.
type FieldKind string

const (
	FieldSingleChoice FieldKind = "single_choice"
	FieldFreeText     FieldKind = "free_text"
	FieldUnknown      FieldKind = "unknown"
)

// RawField is one answered form field from the intake webhook.
type RawField struct {
	Kind      FieldKind `json:"kind"`
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Answer    string    `json:"answer"`
	FormOrder int       `json:"form_order"`
}

// RawSubmission is the opaque field map produced once by the intake webhook
// and never mutated.
type RawSubmission struct {
	Fields map[string]RawField `json:"fields"`
}

// MCQItem records one scored multiple-choice item, kept for narrative
// generation downstream.
type MCQItem struct {
	QuestionNumber int    `json:"question_number"`
	Construct      string `json:"construct"`
	StudentAnswer  string `json:"student_answer"`
	CorrectAnswer  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

// DomainScore aggregates MCQ outcomes for one domain. Mindset uses Score
// (0-4 mean) instead of Pct; percentage domains leave Score at zero.
type DomainScore struct {
	Domain  Domain    `json:"domain"`
	Correct int       `json:"correct"`
	Total   int       `json:"total"`
	Pct     float64   `json:"pct"`
	Score   float64   `json:"score"`
	Items   []MCQItem `json:"items,omitempty"`
}

// WritingTask pairs one long-form response with its source prompt. Consumed
// once by the writing evaluator; not persisted independently.
type WritingTask struct {
	Domain      Domain
	PromptText  string
	Response    string
	Grade       int
	Locale      Locale
	StudentName string
	Programme   string
}

// Band is the qualitative label assigned to a writing response.
type Band string

const (
	BandExcellent    Band = "Excellent"
	BandGood         Band = "Good"
	BandDeveloping   Band = "Developing"
	BandEmerging     Band = "Emerging"
	BandInsufficient Band = "Insufficient"
)

// WritingEvaluation is the judge's verdict for one writing task.
// Invariant: Score in [0,4]; Band is one of the five enumerated values.
type WritingEvaluation struct {
	Domain           Domain  `json:"domain"`
	Band             Band    `json:"band"`
	Score            float64 `json:"score"`
	ContentNarrative string  `json:"content_narrative"`
	WritingNarrative string  `json:"writing_narrative"`
	ThresholdComment string  `json:"threshold_comment"`
}

// DomainResult is the recommendation-stage view of one academic domain.
// Computed fresh on each recommendation run; not independently persisted.
type DomainResult struct {
	Domain         Domain   `json:"domain"`
	MCQPct         float64  `json:"mcq_pct"`
	WritingScore   *float64 `json:"writing_score,omitempty"`
	CombinedPct    float64  `json:"combined_pct"`
	Threshold      float64  `json:"threshold"`
	Delta          float64  `json:"delta"`
	MeetsThreshold bool     `json:"meets_threshold"`
}

// RecommendationBand is the final admissions-readiness category.
type RecommendationBand string

const (
	RecReadyToAdmit     RecommendationBand = "Ready to admit"
	RecAcademicSupport  RecommendationBand = "Admit with academic support"
	RecLanguageSupport  RecommendationBand = "Admit with language support"
	RecBorderlineReview RecommendationBand = "Borderline — further review"
	RecNotYetReady      RecommendationBand = "Not yet ready"
)

// RecommendationResult is the terminal artifact of the scoring core.
type RecommendationResult struct {
	English            DomainResult       `json:"english"`
	Mathematics        DomainResult       `json:"mathematics"`
	Reasoning          DomainResult       `json:"reasoning"`
	OverallAcademicPct float64            `json:"overall_academic_pct"`
	MindsetScore       float64            `json:"mindset_score"`
	Band               RecommendationBand `json:"recommendation_band"`
}

// Submission is the persisted record a scoring run reads and updates.
// Downstream report rendering and email dispatch depend on this field set.
type Submission struct {
	ID                  string
	JotformSubmissionID string
	SchoolID            string
	StudentID           string
	StudentName         string
	Programme           string
	Grade               int
	RawAnswers          RawSubmission
	DomainScores        map[Domain]DomainScore
	WritingEvaluations  map[Domain]WritingEvaluation
	ReasoningNarrative  string
	MindsetNarrative    string
	EnglishCombined     float64
	MathematicsCombined float64
	ReasoningCombined   float64
	OverallAcademicPct  float64
	MindsetScore        float64
	RecommendationBand  RecommendationBand
	Status              ProcessingStatus
	ErrorLog            string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// GradeConfig carries per-school, per-grade scoring configuration.
// DomainWeights is parsed and stored but not consulted by the overall score,
// which hardcodes equal thirds; see DESIGN.md before wiring it anywhere.
type GradeConfig struct {
	SchoolID      string
	Grade         int
	Thresholds    map[Domain]float64
	DomainWeights map[Domain]float64
	AssessorName  string
	AssessorEmail string
	Locale        Locale
}

// DefaultThreshold applies when a school has no configured threshold for an
// academic domain.
const DefaultThreshold = 55.0

// Threshold returns the configured threshold for d, or the default.
func (c GradeConfig) Threshold(d Domain) float64 {
	if v, ok := c.Thresholds[d]; ok {
		return v
	}
	return DefaultThreshold
}

// ScoreTaskPayload is the queue message that triggers one pipeline run.
type ScoreTaskPayload struct {
	SubmissionID string `json:"submission_id"`
}

// Ports

// SubmissionRepository persists submissions and their scoring state.
type SubmissionRepository interface {
	Create(ctx Context, s Submission) (string, error)
	Get(ctx Context, id string) (Submission, error)
	FindByJotformID(ctx Context, jotformID string) (Submission, error)
	UpdateStatus(ctx Context, id string, status ProcessingStatus, errorLog string) error
	SaveScores(ctx Context, id string, scores map[Domain]DomainScore, mindset float64) error
	SaveResult(ctx Context, s Submission) error
}

// AnswerKeyRepository loads seeded answer keys.
type AnswerKeyRepository interface {
	ListByGrade(ctx Context, grade int) ([]AnswerKey, error)
	BulkUpsert(ctx Context, keys []AnswerKey) (int, error)
}

// GradeConfigRepository loads per-school grade configuration.
type GradeConfigRepository interface {
	Get(ctx Context, schoolID string, grade int) (GradeConfig, error)
}

// Queue enqueues score jobs for the worker.
type Queue interface {
	EnqueueScore(ctx Context, payload ScoreTaskPayload) (string, error)
}

// Judge is the external LLM capability. Implementations must honor ctx
// deadlines; callers never retry a failed call.
type Judge interface {
	Judge(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// EmailSender dispatches a rendered report to an assessor.
type EmailSender interface {
	Send(ctx Context, to, subject, html string) error
}
