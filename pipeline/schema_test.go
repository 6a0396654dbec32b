package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaByName(t *testing.T) {
	lex, err := SchemaByName(SchemaLexical)
	require.NoError(t, err)
	assert.Len(t, lex.Columns, 29)
	assert.True(t, lex.NeedsRegistration)
	assert.False(t, lex.NeedsRank)
	assert.False(t, lex.NeedsPage)

	scrape, err := SchemaByName(SchemaScrape)
	require.NoError(t, err)
	assert.Len(t, scrape.Columns, 30)
	assert.True(t, scrape.NeedsRegistration)
	assert.True(t, scrape.NeedsRank)
	assert.True(t, scrape.NeedsPage)

	_, err = SchemaByName("tfidf")
	assert.Error(t, err)
}

func assembleFor(t *testing.T, name, raw string, reg RegistrationResult, rank RankResult, page PageResult) (Schema, FeatureRecord) {
	t.Helper()
	s, err := SchemaByName(name)
	require.NoError(t, err)
	return s, s.Assemble(Normalize(raw), ExtractLexical(raw), reg, rank, page)
}

func TestAssemble_EveryColumnPopulated(t *testing.T) {
	for _, name := range []string{SchemaLexical, SchemaScrape} {
		t.Run(name, func(t *testing.T) {
			s, rec := assembleFor(t, name, "https://www.example.com/login?x=1",
				RegistrationResult{AgeDays: -1, RegistrationDays: -1},
				RankResult{Score: -1}, FailedPageResult())

			assert.Len(t, rec.Values, len(s.Columns))
			for _, col := range s.Columns {
				_, ok := rec.Values[col]
				assert.True(t, ok, "missing column %s", col)
			}
			assert.Len(t, s.Row(rec), len(s.Columns)+1)
			assert.Equal(t, s.Header()[0], "URL")
		})
	}
}

func TestAssemble_LexicalCarriesRawDays(t *testing.T) {
	_, rec := assembleFor(t, SchemaLexical, "https://example.com",
		RegistrationResult{AgeDays: 4000, RegistrationDays: 300, OK: true},
		RankResult{Score: -1}, FailedPageResult())

	assert.Equal(t, 4000.0, rec.Values["domain_age"])
	assert.Equal(t, 300.0, rec.Values["domain_registration_length"])
	// the lexical table's https_token column is the scheme flag
	assert.Equal(t, 1.0, rec.Values["https_token"])
}

func TestAssemble_ScrapeThresholdsRegistration(t *testing.T) {
	_, rec := assembleFor(t, SchemaScrape, "http://example.com",
		RegistrationResult{AgeDays: 4000, RegistrationDays: 300, OK: true},
		RankResult{Score: 1, OK: true}, FailedPageResult())

	assert.Equal(t, -1.0, rec.Values["domain_registration_length"], "300 days <= 365")
	assert.Equal(t, 1.0, rec.Values["age_of_domain"], "4000 days >= 180")
	assert.Equal(t, 1.0, rec.Values["dns_record"])
	assert.Equal(t, 1.0, rec.Values["web_traffic"])
	assert.Equal(t, -1.0, rec.Values["favicon"], "failed page unit")
}

func TestAssemble_ScrapeSentinelsOnFailure(t *testing.T) {
	_, rec := assembleFor(t, SchemaScrape, "http://example.com",
		RegistrationResult{AgeDays: -1, RegistrationDays: -1},
		RankResult{Score: -1}, FailedPageResult())

	assert.Equal(t, -1.0, rec.Values["domain_registration_length"])
	assert.Equal(t, -1.0, rec.Values["age_of_domain"])
	assert.Equal(t, -1.0, rec.Values["dns_record"])
	assert.Equal(t, -1.0, rec.Values["web_traffic"])
	for _, col := range []string{"request_url", "url_of_anchor", "links_in_tags",
		"sfh", "submitting_to_email", "abnormal_url", "on_mouseover",
		"right_click", "popup_window", "iframe"} {
		assert.Equal(t, -1.0, rec.Values[col], col)
	}
}
