package pipeline

import "sync/atomic"

// NormalizedURL is the canonical form of one raw input URL. Host is
// lower-cased with any port and leading "www." stripped; an empty Host
// means the input was unparseable and is still a valid value. Domain is
// the registrable domain used as the key for WHOIS and rank lookups.
type NormalizedURL struct {
	Raw    string
	URL    string
	Host   string
	Domain string
}

// FeatureRecord is one fixed-schema row of named numeric signals. Values
// holds every column of the active schema; the URL itself is carried
// separately so sinks can emit it as the leading identifier column.
type FeatureRecord struct {
	URL    string
	Values map[string]float64
}

// RegistrationResult carries WHOIS-derived features. On any lookup or
// parse failure OK is false and both day counts are -1.
type RegistrationResult struct {
	AgeDays          float64
	RegistrationDays float64
	OK               bool
}

// RankResult carries the already-thresholded traffic score:
// 1 legitimate, 0 suspicious, -1 unknown or lookup failed.
type RankResult struct {
	Score float64
	OK    bool
}

// PageResult carries the DOM-structure signals of one fetched page. A
// fetch or parse failure yields every field at -1 with OK false; the
// eleven signals default as one unit, never piecemeal.
type PageResult struct {
	Favicon     float64
	RequestURL  float64
	AnchorURL   float64
	LinksInTags float64
	SFH         float64
	MailTo      float64
	AbnormalURL float64
	OnMouseOver float64
	RightClick  float64
	PopUpWindow float64
	IFrame      float64
	OK          bool
}

// FailedPageResult is the uniform sentinel unit for a page that could
// not be fetched or parsed.
func FailedPageResult() PageResult {
	return PageResult{
		Favicon: -1, RequestURL: -1, AnchorURL: -1, LinksInTags: -1,
		SFH: -1, MailTo: -1, AbnormalURL: -1, OnMouseOver: -1,
		RightClick: -1, PopUpWindow: -1, IFrame: -1,
	}
}

type Stats struct {
	Submitted    atomic.Int64
	Completed    atomic.Int64
	Flushed      atomic.Int64
	ClientErrors atomic.Int64
}

var PipelineStats Stats
