package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink appends feature rows to one table, one transaction per
// flush: a batch lands fully or not at all.
type PostgresSink struct {
	pool   *pgxpool.Pool
	table  string
	schema Schema
	insert string
}

func NewPostgresSink(ctx context.Context, databaseURL, table string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &PostgresSink{pool: pool, table: table}, nil
}

func (s *PostgresSink) WriteHeader(schema Schema) error {
	s.schema = schema

	cols := make([]string, 0, len(schema.Columns)+1)
	cols = append(cols, `"url" text NOT NULL`)
	for _, c := range schema.Columns {
		cols = append(cols, fmt.Sprintf("%q double precision NOT NULL", c))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", s.table, strings.Join(cols, ", "))

	if _, err := s.pool.Exec(context.Background(), ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	names := make([]string, 0, len(schema.Columns)+1)
	holders := make([]string, 0, len(schema.Columns)+1)
	names = append(names, `"url"`)
	holders = append(holders, "$1")
	for i, c := range schema.Columns {
		names = append(names, fmt.Sprintf("%q", c))
		holders = append(holders, fmt.Sprintf("$%d", i+2))
	}
	s.insert = fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		s.table, strings.Join(names, ", "), strings.Join(holders, ", "))

	return nil
}

func (s *PostgresSink) Append(records []FeatureRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		args := make([]any, 0, len(s.schema.Columns)+1)
		args = append(args, rec.URL)
		for _, col := range s.schema.Columns {
			args = append(args, rec.Values[col])
		}
		batch.Queue(s.insert, args...)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec %d: %w", i, err)
		}
	}
	br.Close()

	return tx.Commit(ctx)
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
