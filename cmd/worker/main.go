// Command worker consumes score jobs and runs the scoring pipeline.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/ai/anthropic"
	aistub "github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/ai/stub"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/email/resend"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/observability"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/queue/redpanda"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/repo/postgres"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/config"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL, cfg.DBConnectMaxElapsed)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Dev runs without a judge credential use the deterministic stub; real
	// evaluation always goes through Anthropic.
	var judge domain.Judge
	if cfg.AnthropicAPIKey == "" && cfg.IsDev() {
		slog.Warn("no judge credential configured, using stub judge")
		judge = aistub.New()
	} else {
		judge = anthropic.New(cfg)
	}

	pipeline := usecase.Pipeline{
		Submissions:    postgres.NewSubmissionRepo(pool),
		AnswerKeys:     postgres.NewAnswerKeyRepo(pool),
		GradeConfig:    postgres.NewGradeConfigRepo(pool),
		Evaluator:      usecase.NewWritingEvaluator(judge, cfg.JudgeMaxTokens),
		Narratives:     usecase.NewNarrativeGenerator(judge),
		Email:          resend.New(cfg.ResendAPIKey, cfg.ResendBaseURL, cfg.EmailFrom, cfg.EmailTimeout),
		DecisionSecret: cfg.DecisionSecret,
		ReportBaseURL:  cfg.ReportBaseURL,
		EmailFrom:      cfg.EmailFrom,
	}

	handler := func(ctx context.Context, payload domain.ScoreTaskPayload) error {
		_, err := pipeline.Run(ctx, payload.SubmissionID)
		return err
	}

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, handler)
	if err != nil {
		slog.Error("redpanda consumer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Close()

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
