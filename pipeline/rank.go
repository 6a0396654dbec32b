package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// rankThreshold splits legitimate from merely suspicious traffic ranks.
const rankThreshold = 100_000

// RankClient queries a remote traffic-rank API keyed by registrable
// domain. The score is thresholded before it leaves the client:
// rank < 100k is 1, rank >= 100k is 0, and a missing rank or any lookup
// failure is -1, the most conservative outcome.
type RankClient struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

type rankResponse struct {
	Rank *int64 `json:"rank"`
}

func NewRankClient(cfg Config, limiter *rate.Limiter) *RankClient {
	return &RankClient{
		endpoint: cfg.RankEndpoint,
		client:   &http.Client{Timeout: cfg.LookupTimeout},
		limiter:  limiter,
	}
}

func (c *RankClient) Lookup(ctx context.Context, n NormalizedURL) RankResult {
	if n.Domain == "" {
		return RankResult{Score: -1}
	}

	rank, err := c.fetchRank(ctx, n.Domain)
	if err != nil {
		slog.Debug("rank lookup failed", "domain", n.Domain, "err", err)
		PipelineStats.ClientErrors.Add(1)
		return RankResult{Score: -1}
	}
	if rank == nil {
		return RankResult{Score: -1, OK: true}
	}
	if *rank < rankThreshold {
		return RankResult{Score: 1, OK: true}
	}
	return RankResult{Score: 0, OK: true}
}

func (c *RankClient) fetchRank(ctx context.Context, domain string) (*int64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate wait: %w", err)
		}
	}

	u := c.endpoint + "?domain=" + url.QueryEscape(domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rank API %d for %s", resp.StatusCode, domain)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var result rankResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return result.Rank, nil
}
