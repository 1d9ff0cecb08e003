// Package attribution derives the four canonical marketing dimensions
// (channel group, source, campaign, ad content) from a session's raw
// utm_source, http_referer, utm_campaign and utm_content fields.
//
// Channel precedence is encoded as an ordered rule table evaluated top-down
// with a guaranteed default, so the order every revenue-by-channel metric
// depends on is auditable in one place. Classification is total and pure:
// identical raw input always yields identical output, and no dimension is
// ever empty.
package attribution

import "strings"

// Canonical dimension values.
const (
	ChannelPaidSearchGoogle        = "paid_search_google"
	ChannelPaidSearchBing          = "paid_search_bing"
	ChannelPaidSearchSocialbook    = "paid_search_socialbook"
	ChannelOrganicSearchGoogle     = "organic_search_google"
	ChannelOrganicSearchBing       = "organic_search_bing"
	ChannelOrganicSearchSocialbook = "organic_search_socialbook"
	ChannelDirectTypeIn            = "direct_type_in"
	ChannelOther                   = "other"

	SourceOther            = "other"
	CampaignOrganicNonPaid = "organic_non_paid"
	AdContentOrganic       = "organic"

	// Unknown labels session-level dimensions on facts that cannot be
	// joined back to a session (referential gap rows).
	Unknown = "(unknown)"
)

// Coarse reporting buckets that collapse channel groups for trend reports.
const (
	BucketPaid    = "paid"
	BucketOrganic = "organic"
	BucketDirect  = "direct"
	BucketOther   = "other"
)

// adContentNotAvailable is the literal placeholder some trackers emit
// instead of omitting utm_content.
const adContentNotAvailable = "n/a"

// sourceProfile ties a paid utm_source to the referrer domain of the same
// engine and the channel pair it resolves to.
type sourceProfile struct {
	UTMSource      string
	RefererDomain  string
	PaidChannel    string
	OrganicChannel string
}

// knownSources is ordered; evaluation walks it in this order so ties (none
// exist today, but a future overlapping domain would) resolve
// deterministically.
var knownSources = []sourceProfile{
	{UTMSource: "gsearch", RefererDomain: "gsearch.com", PaidChannel: ChannelPaidSearchGoogle, OrganicChannel: ChannelOrganicSearchGoogle},
	{UTMSource: "bsearch", RefererDomain: "bsearch.com", PaidChannel: ChannelPaidSearchBing, OrganicChannel: ChannelOrganicSearchBing},
	{UTMSource: "socialbook", RefererDomain: "socialbook.com", PaidChannel: ChannelPaidSearchSocialbook, OrganicChannel: ChannelOrganicSearchSocialbook},
}

// Classification holds the four derived dimensions for one session.
type Classification struct {
	ChannelGroup string
	Source       string
	Campaign     string
	AdContent    string
}

// ChannelRule is one step of the ordered channel evaluator. Matches and
// Resolve receive the trimmed raw values; the first matching rule wins.
type ChannelRule struct {
	Name    string
	Matches func(utmSource, httpReferer string) bool
	Resolve func(utmSource, httpReferer string) string
}

// channelRules encodes the channel precedence: exact paid utm_source match
// first, then referrer-inferred organic for sessions without a utm_source,
// then true direct traffic, then the catch-all. The last rule matches
// unconditionally, which is what makes classification total.
var channelRules = []ChannelRule{
	{
		Name: "paid_utm_source",
		Matches: func(utmSource, _ string) bool {
			return lookupByUTMSource(utmSource) != nil
		},
		Resolve: func(utmSource, _ string) string {
			return lookupByUTMSource(utmSource).PaidChannel
		},
	},
	{
		Name: "organic_referer",
		Matches: func(utmSource, httpReferer string) bool {
			return utmSource == "" && lookupByReferer(httpReferer) != nil
		},
		Resolve: func(_, httpReferer string) string {
			return lookupByReferer(httpReferer).OrganicChannel
		},
	},
	{
		Name: "direct_type_in",
		Matches: func(utmSource, httpReferer string) bool {
			return utmSource == "" && httpReferer == ""
		},
		Resolve: func(_, _ string) string {
			return ChannelDirectTypeIn
		},
	},
	{
		Name: "other",
		Matches: func(_, _ string) bool {
			return true
		},
		Resolve: func(_, _ string) string {
			return ChannelOther
		},
	},
}

// Classify maps one session's raw referrer/UTM fields to the four canonical
// dimensions. Absent means empty after trimming whitespace.
func Classify(utmSource, httpReferer, utmCampaign, utmContent string) Classification {
	utmSource = strings.TrimSpace(utmSource)
	httpReferer = strings.TrimSpace(httpReferer)
	utmCampaign = strings.TrimSpace(utmCampaign)
	utmContent = strings.TrimSpace(utmContent)

	return Classification{
		ChannelGroup: resolveChannelGroup(utmSource, httpReferer),
		Source:       resolveSource(utmSource, httpReferer),
		Campaign:     resolveCampaign(utmCampaign),
		AdContent:    resolveAdContent(utmContent),
	}
}

// Rules exposes the ordered channel rule names for auditing and tests.
func Rules() []string {
	names := make([]string, len(channelRules))
	for i, rule := range channelRules {
		names[i] = rule.Name
	}
	return names
}

// Bucket collapses a channel group into its coarse paid/organic/direct/other
// reporting bucket. Unknown channel groups land in other.
func Bucket(channelGroup string) string {
	switch {
	case strings.HasPrefix(channelGroup, "paid_search_"):
		return BucketPaid
	case strings.HasPrefix(channelGroup, "organic_search_"):
		return BucketOrganic
	case channelGroup == ChannelDirectTypeIn:
		return BucketDirect
	default:
		return BucketOther
	}
}

func resolveChannelGroup(utmSource, httpReferer string) string {
	for _, rule := range channelRules {
		if rule.Matches(utmSource, httpReferer) {
			return rule.Resolve(utmSource, httpReferer)
		}
	}
	// Unreachable: the last rule matches everything.
	return ChannelOther
}

func resolveSource(utmSource, httpReferer string) string {
	if utmSource != "" {
		return utmSource
	}
	if profile := lookupByReferer(httpReferer); profile != nil {
		return profile.UTMSource
	}
	return SourceOther
}

func resolveCampaign(utmCampaign string) string {
	if utmCampaign == "" {
		return CampaignOrganicNonPaid
	}
	return utmCampaign
}

func resolveAdContent(utmContent string) string {
	if utmContent == "" || strings.EqualFold(utmContent, adContentNotAvailable) {
		return AdContentOrganic
	}
	return utmContent
}

func lookupByUTMSource(utmSource string) *sourceProfile {
	if utmSource == "" {
		return nil
	}
	for i := range knownSources {
		if knownSources[i].UTMSource == utmSource {
			return &knownSources[i]
		}
	}
	return nil
}

func lookupByReferer(httpReferer string) *sourceProfile {
	if httpReferer == "" {
		return nil
	}
	for i := range knownSources {
		if strings.Contains(httpReferer, knownSources[i].RefererDomain) {
			return &knownSources[i]
		}
	}
	return nil
}
