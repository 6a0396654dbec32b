package pipeline

import (
	"fmt"
	"strconv"
)

// Schema variant names.
const (
	SchemaLexical = "lexical"
	SchemaScrape  = "scrape"
)

// Schema fixes the feature columns of every emitted record. Membership
// and order are decided at startup and never vary row to row. The two
// variants share the lexical extractor and differ in which enrichment
// clients they attach.
type Schema struct {
	Name              string
	Columns           []string
	NeedsRegistration bool
	NeedsRank         bool
	NeedsPage         bool
}

var lexicalColumns = []string{
	"length", "num_dots", "num_hyphens", "num_slashes", "num_subdomains",
	"long_url", "path_depth", "domain_length", "contains_ip", "https_token",
	"contains_at_symbol", "at_symbol_position", "double_slash_redirecting",
	"prefix_suffix", "non_standard_port", "shortening_service",
	"num_query_params", "query_length", "query_entropy", "digit_ratio",
	"suspicious_words", "suspicious_extension", "unusual_tld",
	"domain_age", "domain_registration_length", "redirection",
	"domain_entropy", "contains_underscore", "subdomain_complexity",
}

var scrapeColumns = []string{
	"having_ip_address", "url_length", "shortening_service",
	"having_at_symbol", "double_slash_redirecting", "prefix_suffix",
	"having_sub_domain", "ssl_final_state", "web_traffic",
	"domain_registration_length", "age_of_domain", "favicon", "port",
	"https_token", "request_url", "url_of_anchor", "links_in_tags", "sfh",
	"submitting_to_email", "abnormal_url", "on_mouseover", "right_click",
	"popup_window", "iframe", "dns_record", "page_rank", "google_index",
	"links_pointing_to_page", "statistical_report", "redirect",
}

// SchemaByName resolves a configured variant name.
func SchemaByName(name string) (Schema, error) {
	switch name {
	case SchemaLexical:
		return Schema{
			Name:              SchemaLexical,
			Columns:           lexicalColumns,
			NeedsRegistration: true,
		}, nil
	case SchemaScrape:
		return Schema{
			Name:              SchemaScrape,
			Columns:           scrapeColumns,
			NeedsRegistration: true,
			NeedsRank:         true,
			NeedsPage:         true,
		}, nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q", name)
	}
}

// Assemble merges the per-signal outputs into one complete record. It is
// a pure total function: inputs arrive already failure-normalized, and
// every schema column is populated.
func (s Schema) Assemble(n NormalizedURL, lex map[string]float64, reg RegistrationResult, rank RankResult, page PageResult) FeatureRecord {
	values := make(map[string]float64, len(s.Columns))

	switch s.Name {
	case SchemaScrape:
		values["having_ip_address"] = lex[SigHostIsIP]
		values["url_length"] = lex[SigURLLengthTernary]
		values["shortening_service"] = lex[SigShortener]
		values["having_at_symbol"] = lex[SigContainsAt]
		values["double_slash_redirecting"] = lex[SigDoubleSlashLast]
		values["prefix_suffix"] = lex[SigPrefixSuffix]
		values["having_sub_domain"] = lex[SigSubDomainTernary]
		values["ssl_final_state"] = lex[SigHTTPSScheme]
		values["web_traffic"] = rank.Score
		values["domain_registration_length"] = flag(reg.OK && reg.RegistrationDays > 365)
		values["age_of_domain"] = flag(reg.OK && reg.AgeDays >= 180)
		values["favicon"] = page.Favicon
		values["port"] = lex[SigNonStandardPort]
		values["https_token"] = lex[SigHTTPSTokenHost]
		values["request_url"] = page.RequestURL
		values["url_of_anchor"] = page.AnchorURL
		values["links_in_tags"] = page.LinksInTags
		values["sfh"] = page.SFH
		values["submitting_to_email"] = page.MailTo
		values["abnormal_url"] = page.AbnormalURL
		values["on_mouseover"] = page.OnMouseOver
		values["right_click"] = page.RightClick
		values["popup_window"] = page.PopUpWindow
		values["iframe"] = page.IFrame
		values["dns_record"] = flag(reg.OK)
		values["page_rank"] = -1
		values["google_index"] = 1
		values["links_pointing_to_page"] = 1
		values["statistical_report"] = -1
		values["redirect"] = lex[SigRedirectParam]
	default:
		for _, col := range lexicalColumns {
			values[col] = lex[col]
		}
		values["https_token"] = lex[SigHTTPSScheme]
		values["domain_age"] = reg.AgeDays
		values["domain_registration_length"] = reg.RegistrationDays
	}

	return FeatureRecord{URL: n.Raw, Values: values}
}

// Row renders one record in canonical column order, URL first, for
// tabular sinks.
func (s Schema) Row(rec FeatureRecord) []string {
	row := make([]string, 0, len(s.Columns)+1)
	row = append(row, rec.URL)
	for _, col := range s.Columns {
		row = append(row, strconv.FormatFloat(rec.Values[col], 'g', -1, 64))
	}
	return row
}

// Header is the canonical header row, matching Row's layout.
func (s Schema) Header() []string {
	return append([]string{"URL"}, s.Columns...)
}
