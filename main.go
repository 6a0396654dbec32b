package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/EdoanRadiance/Multimodal-DL-Classification-Project/pipeline"
)

func main() {
	input := flag.String("input", "", "CSV file with a URL column")
	output := flag.String("output", "features.csv", "output path (csv sink) or table name (postgres sink)")
	sinkKind := flag.String("sink", "csv", "durable sink: csv or postgres")
	schema := flag.String("schema", "", "feature schema: lexical or scrape")
	concurrency := flag.Int("concurrency", 0, "worker pool size")
	batchSize := flag.Int("batch", 0, "records per durable flush")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if *input == "" {
		slog.Error("missing -input")
		os.Exit(2)
	}

	cfg := pipeline.LoadConfig()
	if *configPath != "" {
		var err error
		cfg, err = pipeline.LoadConfigFile(*configPath, cfg)
		if err != nil {
			slog.Error("bad config file", "err", err)
			os.Exit(1)
		}
	}
	if *schema != "" {
		cfg.Schema = *schema
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	urls, err := pipeline.ReadURLs(*input)
	if err != nil {
		slog.Error("read input failed", "err", err)
		os.Exit(1)
	}

	sink, err := openSink(ctx, *sinkKind, *output)
	if err != nil {
		slog.Error("open sink failed", "err", err)
		os.Exit(1)
	}

	slog.Info("pipeline started",
		"urls", len(urls), "schema", cfg.Schema,
		"concurrency", cfg.Concurrency, "batch_size", cfg.BatchSize)

	completed, err := pipeline.RunBatch(ctx, urls, cfg, sink)
	if closeErr := sink.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		slog.Error("pipeline stopped", "durable_rows", completed, "err", err)
		os.Exit(1)
	}

	slog.Info("pipeline finished", "completed", completed)
}

func openSink(ctx context.Context, kind, output string) (pipeline.FeatureSink, error) {
	if kind == "postgres" {
		return pipeline.NewPostgresSink(ctx, os.Getenv("DB_URL"), output)
	}
	return pipeline.NewCSVSink(output)
}
