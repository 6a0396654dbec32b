package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Featurizer holds the active schema and the enrichment clients it
// attaches. Lexical extraction is always on; clients exist only when the
// schema needs their columns.
type Featurizer struct {
	Schema       Schema
	Registration *RegistrationClient
	Rank         *RankClient
	Content      *ContentClient
}

func NewFeaturizer(cfg Config) (*Featurizer, error) {
	schema, err := SchemaByName(cfg.Schema)
	if err != nil {
		return nil, err
	}

	// one outbound rate limit shared by the HTTP-bound clients
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Concurrency)

	f := &Featurizer{Schema: schema}
	if schema.NeedsRegistration {
		f.Registration = NewRegistrationClient(cfg)
	}
	if schema.NeedsRank {
		f.Rank = NewRankClient(cfg, limiter)
	}
	if schema.NeedsPage {
		f.Content = NewContentClient(cfg, limiter)
	}
	return f, nil
}

// FeatureVector computes one complete record for one URL. It never
// fails: client errors arrive as sentinels, a panicking client lookup
// costs only that client's sentinels, and a panic in the assembly path
// degrades to an all-sentinel record so the batch still accounts for
// the row.
func (f *Featurizer) FeatureVector(ctx context.Context, raw string) (rec FeatureRecord) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("feature task panicked", "url", raw, "panic", r)
			rec = f.Schema.Assemble(NormalizedURL{Raw: raw}, map[string]float64{},
				RegistrationResult{AgeDays: -1, RegistrationDays: -1},
				RankResult{Score: -1}, FailedPageResult())
		}
	}()

	n := Normalize(raw)
	lex := ExtractLexical(raw)

	reg := RegistrationResult{AgeDays: -1, RegistrationDays: -1}
	rank := RankResult{Score: -1}
	page := FailedPageResult()

	// each lookup runs in its own goroutine and recovers its own panics:
	// a recover here in the parent cannot reach them, and a panicking
	// client must only cost its sentinel default, never the process
	var wg sync.WaitGroup
	lookup := func(client string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("client lookup panicked", "url", raw, "client", client, "panic", r)
					PipelineStats.ClientErrors.Add(1)
				}
			}()
			fn()
		}()
	}
	if f.Registration != nil {
		lookup("registration", func() { reg = f.Registration.Lookup(n) })
	}
	if f.Rank != nil {
		lookup("rank", func() { rank = f.Rank.Lookup(ctx, n) })
	}
	if f.Content != nil {
		lookup("page", func() { page = f.Content.Lookup(ctx, n) })
	}
	wg.Wait()

	return f.Schema.Assemble(n, lex, reg, rank, page)
}

// RunBatch fans urls out across a bounded worker pool, collects records
// in completion order and flushes them to sink in cfg.BatchSize groups,
// bounding memory regardless of input size. It returns the number of
// completed records; on a sink failure it returns the count of rows
// already durable together with the error, so a caller can resume from
// that boundary. A single URL never aborts the batch.
func RunBatch(ctx context.Context, urls []string, cfg Config, sink FeatureSink) (int, error) {
	f, err := NewFeaturizer(cfg)
	if err != nil {
		return 0, err
	}
	return f.Run(ctx, urls, cfg, sink)
}

func (f *Featurizer) Run(ctx context.Context, urls []string, cfg Config, sink FeatureSink) (int, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}

	if err := sink.WriteHeader(f.Schema); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	jobs := make(chan string)
	results := make(chan FeatureRecord, cfg.Concurrency)

	var workers sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for raw := range jobs {
				results <- f.FeatureVector(ctx, raw)
				PipelineStats.Completed.Add(1)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, u := range urls {
			select {
			case jobs <- u:
				PipelineStats.Submitted.Add(1)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		workers.Wait()
		close(results)
	}()

	done := make(chan struct{})
	defer close(done)
	go runMonitor(done)

	// the collector is the single flush owner: workers never touch the
	// buffer or the sink
	buffer := make([]FeatureRecord, 0, cfg.BatchSize)
	flushed := 0
	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		if err := sink.Append(buffer); err != nil {
			return fmt.Errorf("flush after row %d: %w", flushed, err)
		}
		flushed += len(buffer)
		PipelineStats.Flushed.Add(int64(len(buffer)))
		slog.Info("flushed batch", "rows", len(buffer), "durable", flushed)
		buffer = buffer[:0]
		return nil
	}

	completed := 0
	for rec := range results {
		completed++
		buffer = append(buffer, rec)
		if len(buffer) >= cfg.BatchSize {
			if err := flush(); err != nil {
				go func() {
					for range results {
					}
				}()
				return flushed, err
			}
		}
	}

	if err := flush(); err != nil {
		return flushed, err
	}
	if err := ctx.Err(); err != nil {
		return completed, err
	}
	return completed, nil
}

func runMonitor(done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Info("pipeline stats",
				"submitted", PipelineStats.Submitted.Load(),
				"completed", PipelineStats.Completed.Load(),
				"flushed", PipelineStats.Flushed.Load(),
				"client_errors", PipelineStats.ClientErrors.Load(),
			)
		case <-done:
			return
		}
	}
}
