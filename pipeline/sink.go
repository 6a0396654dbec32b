package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
)

// FeatureSink is the append-only durable output: a header written once,
// then zero or more complete batches in completion order. A sink error
// is the one failure class that aborts a batch run.
type FeatureSink interface {
	WriteHeader(schema Schema) error
	Append(records []FeatureRecord) error
	Close() error
}

// CSVSink writes the feature table to a local CSV file. Each Append is
// flushed before returning so a reported success is on disk.
type CSVSink struct {
	file   *os.File
	w      *csv.Writer
	schema Schema
}

func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return &CSVSink{file: f, w: csv.NewWriter(f)}, nil
}

func (s *CSVSink) WriteHeader(schema Schema) error {
	s.schema = schema
	if err := s.w.Write(schema.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Append(records []FeatureRecord) error {
	for _, rec := range records {
		if err := s.w.Write(s.schema.Row(rec)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
