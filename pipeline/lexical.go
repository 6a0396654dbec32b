package pipeline

import (
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Signal names shared by the lexical extractor and the schema variants.
// Values follow the domain convention: 1 benign, -1 suspicious, 0
// indeterminate; the rest are raw counts, ratios or entropies.
const (
	SigLength              = "length"
	SigLongURL             = "long_url"
	SigURLLengthTernary    = "url_length"
	SigNumDots             = "num_dots"
	SigNumHyphens          = "num_hyphens"
	SigNumSlashes          = "num_slashes"
	SigNumSubdomains       = "num_subdomains"
	SigSubdomainComplexity = "subdomain_complexity"
	SigSubDomainTernary    = "having_sub_domain"
	SigPathDepth           = "path_depth"
	SigDomainLength        = "domain_length"
	SigContainsIP          = "contains_ip"
	SigHostIsIP            = "having_ip_address"
	SigHTTPSScheme         = "https_scheme"
	SigHTTPSTokenHost      = "https_token"
	SigContainsAt          = "contains_at_symbol"
	SigAtPosition          = "at_symbol_position"
	SigDoubleSlash         = "redirection"
	SigDoubleSlashMulti    = "double_slash_redirecting"
	SigDoubleSlashLast     = "double_slash_last"
	SigPrefixSuffix        = "prefix_suffix"
	SigNonStandardPort     = "non_standard_port"
	SigShortener           = "shortening_service"
	SigNumQueryParams      = "num_query_params"
	SigQueryLength         = "query_length"
	SigQueryEntropy        = "query_entropy"
	SigDigitRatio          = "digit_ratio"
	SigSuspiciousWords     = "suspicious_words"
	SigSuspiciousExt       = "suspicious_extension"
	SigUnusualTLD          = "unusual_tld"
	SigDomainEntropy       = "domain_entropy"
	SigUnderscore          = "contains_underscore"
	SigRedirectParam       = "redirect_param"
)

var (
	ipAnywhereRe = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	ipHostRe     = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)

	shortenerHosts  = []string{"bit.ly", "tinyurl.com", "goo.gl", "ow.ly", "is.gd", "buff.ly"}
	suspiciousWords = []string{"login", "verify", "secure", "account", "update"}
	suspiciousExts  = []string{".exe", ".zip", ".scr", ".bat"}
	commonTLDs      = map[string]bool{"com": true, "org": true, "net": true, "edu": true}
)

// Entropy is the Shannon entropy of s in bits per character; the empty
// string has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	var e float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		e -= p * math.Log2(p)
	}
	return e
}

// ExtractLexical computes every string-derived signal from the URL text
// alone. It is pure and deterministic: no I/O, no shared state, O(len).
// Counts run over the string exactly as given; host-scoped signals use
// the normalized host.
func ExtractLexical(raw string) map[string]float64 {
	n := Normalize(raw)
	host := n.Host
	lower := strings.ToLower(raw)

	parsed, err := url.Parse(n.URL)
	if err != nil {
		parsed = &url.URL{}
	}

	f := make(map[string]float64, 32)

	// length in runes so the digit ratio below divides like units
	length := utf8.RuneCountInString(raw)
	f[SigLength] = float64(length)
	f[SigLongURL] = flag(length <= 54)
	switch {
	case length < 54:
		f[SigURLLengthTernary] = 1
	case length <= 75:
		f[SigURLLengthTernary] = 0
	default:
		f[SigURLLengthTernary] = -1
	}

	f[SigNumDots] = float64(strings.Count(raw, "."))
	f[SigNumHyphens] = float64(strings.Count(raw, "-"))
	f[SigNumSlashes] = float64(strings.Count(raw, "/"))

	hostDots := strings.Count(host, ".")
	f[SigNumSubdomains] = float64(hostDots)
	f[SigSubdomainComplexity] = flag(hostDots <= 2)
	switch {
	case hostDots <= 1:
		f[SigSubDomainTernary] = 1
	case hostDots == 2:
		f[SigSubDomainTernary] = 0
	default:
		f[SigSubDomainTernary] = -1
	}

	depth := 0
	for _, seg := range strings.Split(parsed.Path, "/") {
		if seg != "" {
			depth++
		}
	}
	f[SigPathDepth] = float64(depth)
	f[SigDomainLength] = float64(len(host))

	f[SigContainsIP] = flag(!ipAnywhereRe.MatchString(raw))
	f[SigHostIsIP] = flag(!ipHostRe.MatchString(host))

	f[SigHTTPSScheme] = flag(strings.HasPrefix(raw, "https://"))
	f[SigHTTPSTokenHost] = flag(!strings.Contains(host, "https"))

	at := strings.Index(raw, "@")
	f[SigContainsAt] = flag(at < 0)
	f[SigAtPosition] = flag2(at > 0)

	f[SigDoubleSlash] = doubleSlashSecond(raw)
	f[SigDoubleSlashMulti] = flag2(strings.Count(raw, "//") > 1)
	f[SigDoubleSlashLast] = doubleSlashLast(raw)

	f[SigPrefixSuffix] = flag(!strings.Contains(host, "-"))
	f[SigNonStandardPort] = flag(standardPort(parsed.Port()))
	f[SigShortener] = flag(!matchesAny(host, shortenerHosts))

	query := parsed.RawQuery
	params, qerr := url.ParseQuery(query)
	if qerr != nil {
		params = nil
	}
	f[SigNumQueryParams] = float64(len(params))
	f[SigQueryLength] = float64(len(query))
	f[SigQueryEntropy] = Entropy(query)

	digits := 0
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if length > 0 {
		f[SigDigitRatio] = float64(digits) / float64(length)
	} else {
		f[SigDigitRatio] = 0
	}

	f[SigSuspiciousWords] = flag(!matchesAny(lower, suspiciousWords))
	f[SigSuspiciousExt] = flag(!hasAnySuffix(lower, suspiciousExts))

	tld := host
	if i := strings.LastIndex(host, "."); i >= 0 {
		tld = host[i+1:]
	}
	f[SigUnusualTLD] = flag(commonTLDs[tld])

	f[SigDomainEntropy] = Entropy(host)
	f[SigUnderscore] = flag(!strings.Contains(host, "_"))

	f[SigRedirectParam] = 0
	for key := range params {
		if strings.Contains(strings.ToLower(key), "redirect") {
			f[SigRedirectParam] = 1
			break
		}
	}

	return f
}

// doubleSlashSecond flags repeated "//" by the second occurrence: 1 only
// when at least two occurrences exist and the second starts past index 5.
func doubleSlashSecond(s string) float64 {
	count := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '/' && s[i+1] == '/' {
			count++
			if count == 2 {
				return flag2(i > 5)
			}
		}
	}
	return -1
}

// doubleSlashLast compares the last "//" against the expected post-scheme
// position: 7 for https URLs, 6 otherwise.
func doubleSlashLast(s string) float64 {
	expected := 6
	if strings.HasPrefix(s, "https://") {
		expected = 7
	}
	return flag(strings.LastIndex(s, "//") <= expected)
}

func standardPort(port string) bool {
	return port == "" || port == "80" || port == "443"
}

func matchesAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// flag maps a benign condition to 1 and its violation to -1.
func flag(benign bool) float64 {
	if benign {
		return 1
	}
	return -1
}

// flag2 maps true to 1 and false to -1 without a benign reading; used
// where the original convention keeps 1 for the positive match.
func flag2(v bool) float64 {
	if v {
		return 1
	}
	return -1
}
