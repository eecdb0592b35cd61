// Command seedkeys bulk-loads answer-key YAML bundles into the database.
// Usage: seedkeys -dir seeds/ or seedkeys -file seeds/grade7.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/observability"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/adapter/repo/postgres"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/answerkeys"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/config"
	"github.com/wigsbury-ui/evalent.io-sub001/internal/domain"
)

func main() {
	dir := flag.String("dir", "", "directory of answer-key bundle YAML files")
	file := flag.String("file", "", "single answer-key bundle YAML file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	slog.SetDefault(observability.SetupLogger(cfg))

	if (*dir == "") == (*file == "") {
		slog.Error("exactly one of -dir or -file is required")
		os.Exit(2)
	}

	var keys []domain.AnswerKey
	if *dir != "" {
		keys, err = answerkeys.LoadDir(*dir)
	} else {
		keys, err = answerkeys.LoadFile(*file)
	}
	if err != nil {
		slog.Error("bundle load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL, cfg.DBConnectMaxElapsed)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	n, err := postgres.NewAnswerKeyRepo(pool).BulkUpsert(ctx, keys)
	if err != nil {
		slog.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("answer keys seeded", slog.Int("count", n))
}
