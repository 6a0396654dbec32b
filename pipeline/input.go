package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadURLs reads the URL column of a CSV file once into an ordered
// slice. The column is located by header name (case-insensitive); a
// file without a URL header is an error, not a guess.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "url") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no URL column in %s", path)
	}

	var urls []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col >= len(row) {
			continue
		}
		if u := strings.TrimSpace(row[col]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
