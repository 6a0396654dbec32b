package pipeline

import (
	"log/slog"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// RegistrationClient resolves domain creation/expiration dates over
// WHOIS. Failures of any kind (network, unknown TLD, unparsable record,
// missing creation date) collapse to the -1 sentinels; nothing
// propagates past Lookup.
type RegistrationClient struct {
	server string
	now    func() time.Time
	query  func(domain string) (string, error)
}

func NewRegistrationClient(cfg Config) *RegistrationClient {
	client := whois.NewClient()
	client.SetTimeout(cfg.LookupTimeout)

	c := &RegistrationClient{server: cfg.WhoisServer, now: time.Now}
	c.query = func(domain string) (string, error) {
		if c.server != "" {
			return client.Whois(domain, c.server)
		}
		return client.Whois(domain)
	}
	return c
}

func (c *RegistrationClient) Lookup(n NormalizedURL) RegistrationResult {
	failed := RegistrationResult{AgeDays: -1, RegistrationDays: -1}

	if n.Domain == "" {
		return failed
	}

	raw, err := c.query(n.Domain)
	if err != nil {
		slog.Debug("whois query failed", "domain", n.Domain, "err", err)
		PipelineStats.ClientErrors.Add(1)
		return failed
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		slog.Debug("whois parse failed", "domain", n.Domain, "err", err)
		PipelineStats.ClientErrors.Add(1)
		return failed
	}

	var created, expires *time.Time
	if parsed.Domain != nil {
		created = parsed.Domain.CreatedDateInTime
		expires = parsed.Domain.ExpirationDateInTime
	}

	return registrationFeatures(created, expires, c.now())
}

// registrationFeatures derives the day counts from the record dates.
// A missing creation date leaves both features at the sentinel; a
// missing expiration date only loses the registration length.
func registrationFeatures(created, expires *time.Time, now time.Time) RegistrationResult {
	r := RegistrationResult{AgeDays: -1, RegistrationDays: -1}
	if created == nil {
		return r
	}

	r.OK = true
	r.AgeDays = float64(int(now.Sub(*created).Hours() / 24))
	if expires != nil {
		r.RegistrationDays = float64(int(expires.Sub(*created).Hours() / 24))
	}
	return r
}
