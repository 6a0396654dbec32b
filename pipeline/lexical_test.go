package pipeline

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

// -- Entropy -------------------------------------------------------------------

func TestEntropy_Properties(t *testing.T) {
	if got := Entropy(""); got != 0 {
		t.Errorf("empty string entropy = %v, want 0", got)
	}
	if got := Entropy("aaaa"); got != 0 {
		t.Errorf("entropy(aaaa) = %v, want 0", got)
	}
	// all-distinct alphabet hits the maximum log2(n)
	if got := Entropy("abcd"); math.Abs(got-2) > 1e-12 {
		t.Errorf("entropy(abcd) = %v, want 2", got)
	}
	for _, s := range []string{"a", "ab", "aab", "http://example.com", "пример"} {
		if got := Entropy(s); got < 0 {
			t.Errorf("entropy(%q) = %v, want >= 0", s, got)
		}
	}
}

// -- ExtractLexical ------------------------------------------------------------

func TestLexical_SimpleHTTPSURL(t *testing.T) {
	f := ExtractLexical("https://a.com")

	if f[SigHTTPSScheme] != 1 {
		t.Errorf("scheme flag = %v, want 1", f[SigHTTPSScheme])
	}
	if f[SigHTTPSTokenHost] != 1 {
		t.Errorf("https-token-in-host flag = %v, want 1", f[SigHTTPSTokenHost])
	}
	if f[SigLength] != 13 {
		t.Errorf("length = %v, want 13", f[SigLength])
	}
	if f[SigNumDots] != 1 {
		t.Errorf("dot count = %v, want 1", f[SigNumDots])
	}
}

func TestLexical_Idempotent(t *testing.T) {
	const u = "https://user@sub.login-site.xyz:8443/a/b/c.exe?q=1&redirect_to=x"
	if !reflect.DeepEqual(ExtractLexical(u), ExtractLexical(u)) {
		t.Error("two extractions of the same URL differ")
	}
}

func TestLexical_Flags(t *testing.T) {
	cases := []struct {
		name string
		url  string
		sig  string
		want float64
	}{
		{"short url benign", "http://a.com", SigLongURL, 1},
		{"long url suspicious", "http://a.com/" + strings.Repeat("a", 60), SigLongURL, -1},
		{"ternary mid length", "http://example.com/" + strings.Repeat("a", 40), SigURLLengthTernary, 0},
		{"ip literal", "http://192.168.10.5/login", SigContainsIP, -1},
		{"ip host", "http://192.168.10.5/", SigHostIsIP, -1},
		{"no ip", "http://example.com/", SigContainsIP, 1},
		{"https token in host", "http://https-login.com/", SigHTTPSTokenHost, -1},
		{"plain http scheme", "http://a.com", SigHTTPSScheme, -1},
		{"at symbol present", "http://user@evil.com", SigContainsAt, -1},
		{"at position benign rule", "http://user@evil.com", SigAtPosition, 1},
		{"no at symbol", "http://a.com", SigAtPosition, -1},
		{"hyphen in host", "http://pay-pal.com", SigPrefixSuffix, -1},
		{"no hyphen", "http://paypal.com", SigPrefixSuffix, 1},
		{"odd port", "http://a.com:8080/", SigNonStandardPort, -1},
		{"https port", "https://a.com:443/", SigNonStandardPort, 1},
		{"shortener", "http://bit.ly/xyz", SigShortener, -1},
		{"not shortener", "http://bitly.example.org/xyz", SigShortener, 1},
		{"suspicious word", "http://a.com/verify-account", SigSuspiciousWords, -1},
		{"suspicious extension", "http://a.com/setup.exe", SigSuspiciousExt, -1},
		{"benign extension", "http://a.com/setup.html", SigSuspiciousExt, 1},
		{"unusual tld", "http://a.click/", SigUnusualTLD, -1},
		{"common tld", "http://a.edu/", SigUnusualTLD, 1},
		{"underscore in host", "http://my_site.com/", SigUnderscore, -1},
		{"deep subdomains", "http://a.b.c.d.com/", SigSubdomainComplexity, -1},
		{"flat host", "http://d.com/", SigSubdomainComplexity, 1},
		{"redirect param", "http://a.com/?redirect=http://b.com", SigRedirectParam, 1},
		{"no redirect param", "http://a.com/?q=1", SigRedirectParam, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractLexical(tc.url)[tc.sig]
			if got != tc.want {
				t.Errorf("%s(%q) = %v, want %v", tc.sig, tc.url, got, tc.want)
			}
		})
	}
}

func TestLexical_Counts(t *testing.T) {
	f := ExtractLexical("http://sub.example.com/a/b/c?x=1&y=22")

	if f[SigPathDepth] != 3 {
		t.Errorf("path depth = %v, want 3", f[SigPathDepth])
	}
	if f[SigNumQueryParams] != 2 {
		t.Errorf("query params = %v, want 2", f[SigNumQueryParams])
	}
	if f[SigQueryLength] != 8 {
		t.Errorf("query length = %v, want 8", f[SigQueryLength])
	}
	if f[SigNumSubdomains] != 2 {
		t.Errorf("host dots = %v, want 2", f[SigNumSubdomains])
	}
	if f[SigDomainLength] != float64(len("sub.example.com")) {
		t.Errorf("domain length = %v", f[SigDomainLength])
	}
}

func TestLexical_DoubleSlashRules(t *testing.T) {
	// second occurrence past index 5
	if got := ExtractLexical("http://a.com//b")[SigDoubleSlash]; got != 1 {
		t.Errorf("second-occurrence rule = %v, want 1", got)
	}
	// only the scheme separator
	if got := ExtractLexical("http://a.com/b")[SigDoubleSlash]; got != -1 {
		t.Errorf("single // = %v, want -1", got)
	}
	// last occurrence beyond the post-scheme position
	if got := ExtractLexical("http://a.com//b")[SigDoubleSlashLast]; got != -1 {
		t.Errorf("last-occurrence rule = %v, want -1", got)
	}
	if got := ExtractLexical("https://a.com/b")[SigDoubleSlashLast]; got != 1 {
		t.Errorf("clean https url = %v, want 1", got)
	}
}

func TestLexical_DigitRatio(t *testing.T) {
	f := ExtractLexical("http://a1b2.com")
	want := 2.0 / 15.0
	if math.Abs(f[SigDigitRatio]-want) > 1e-12 {
		t.Errorf("digit ratio = %v, want %v", f[SigDigitRatio], want)
	}
}

func TestLexical_LengthCountsRunes(t *testing.T) {
	// 19 characters, 25 bytes: length and digit ratio must not mix units
	f := ExtractLexical("http://пример.com/1")
	if f[SigLength] != 19 {
		t.Errorf("length = %v, want 19 runes", f[SigLength])
	}
	want := 1.0 / 19.0
	if math.Abs(f[SigDigitRatio]-want) > 1e-12 {
		t.Errorf("digit ratio = %v, want %v", f[SigDigitRatio], want)
	}
}
