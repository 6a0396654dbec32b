package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Schema         string
	Concurrency    int
	BatchSize      int
	RankEndpoint   string
	WhoisServer    string
	UserAgent      string
	FetchTimeout   time.Duration
	LookupTimeout  time.Duration
	RequestsPerSec float64
	MaxBodyBytes   int64
}

// fileConfig is the YAML overlay. Only fields present in the file
// override the env/default values.
type fileConfig struct {
	Schema         string  `yaml:"schema"`
	Concurrency    int     `yaml:"concurrency"`
	BatchSize      int     `yaml:"batch_size"`
	RankEndpoint   string  `yaml:"rank_endpoint"`
	WhoisServer    string  `yaml:"whois_server"`
	UserAgent      string  `yaml:"user_agent"`
	FetchTimeoutS  int     `yaml:"fetch_timeout_sec"`
	LookupTimeoutS int     `yaml:"lookup_timeout_sec"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

func LoadConfig() Config {
	loadDotEnv()

	return Config{
		Schema:         getEnv("FEATURE_SCHEMA", SchemaLexical),
		Concurrency:    getEnvInt("PIPELINE_CONCURRENCY", 16),
		BatchSize:      getEnvInt("PIPELINE_BATCH_SIZE", 500),
		RankEndpoint:   getEnv("RANK_ENDPOINT", "https://siterank.redirect2.me/api/rank.json"),
		WhoisServer:    getEnv("WHOIS_SERVER", ""),
		UserAgent:      getEnv("PIPELINE_USER_AGENT", "URLFeaturizer/1.0"),
		FetchTimeout:   5 * time.Second,
		LookupTimeout:  10 * time.Second,
		RequestsPerSec: 50,
		MaxBodyBytes:   5 * 1024 * 1024,
	}
}

// LoadConfigFile applies a YAML overlay on top of cfg.
func LoadConfigFile(path string, cfg Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.Schema != "" {
		cfg.Schema = fc.Schema
	}
	if fc.Concurrency > 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if fc.BatchSize > 0 {
		cfg.BatchSize = fc.BatchSize
	}
	if fc.RankEndpoint != "" {
		cfg.RankEndpoint = fc.RankEndpoint
	}
	if fc.WhoisServer != "" {
		cfg.WhoisServer = fc.WhoisServer
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if fc.FetchTimeoutS > 0 {
		cfg.FetchTimeout = time.Duration(fc.FetchTimeoutS) * time.Second
	}
	if fc.LookupTimeoutS > 0 {
		cfg.LookupTimeout = time.Duration(fc.LookupTimeoutS) * time.Second
	}
	if fc.RequestsPerSec > 0 {
		cfg.RequestsPerSec = fc.RequestsPerSec
	}

	return cfg, nil
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			k, v, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			if _, exists := os.LookupEnv(strings.TrimSpace(k)); !exists {
				os.Setenv(strings.TrimSpace(k), strings.TrimSpace(v))
			}
		}
		f.Close()
		return
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
