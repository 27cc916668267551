package rag

import "strings"

type QueryType string

const (
	QueryTypeComparison     QueryType = "comparison"
	QueryTypeTrend          QueryType = "trend"
	QueryTypeRanking        QueryType = "ranking"
	QueryTypeFinancial      QueryType = "financial"
	QueryTypePerformance    QueryType = "performance"
	QueryTypeRecommendation QueryType = "recommendation"
	QueryTypeGeneral        QueryType = "general"
)

type TimePeriod string

const (
	PeriodToday     TimePeriod = "today"
	PeriodYesterday TimePeriod = "yesterday"
	PeriodLastWeek  TimePeriod = "last_week"
	PeriodThisMonth TimePeriod = "this_month"
	PeriodLastMonth TimePeriod = "last_month"
	PeriodQuarter   TimePeriod = "quarter"
	PeriodYear      TimePeriod = "year"
	PeriodNone      TimePeriod = "none"
)

type EntityTypeFilter string

const (
	EntityFilterCampaign EntityTypeFilter = "campaign"
	EntityFilterAdSet    EntityTypeFilter = "adset"
	EntityFilterAd       EntityTypeFilter = "ad"
	EntityFilterAll      EntityTypeFilter = "all"
)

type Channel string

const (
	ChannelGoogleAds Channel = "google_ads"
	ChannelMeta      Channel = "meta"
	ChannelNone      Channel = ""
)

// QueryIntent is the structured reading of a free-text query. Every field
// has a "no preference" fallback, so classification cannot fail.
type QueryIntent struct {
	QueryType  QueryType
	TimePeriod TimePeriod
	EntityType EntityTypeFilter
	Channel    Channel
}

// queryTypeRules are evaluated in order; the first rule whose keyword set
// matches wins. The order is the policy: a query mentioning both "compare"
// and "spend" is a comparison, not a financial query.
var queryTypeRules = []struct {
	result   QueryType
	keywords []string
}{
	{QueryTypeComparison, []string{"compare", "vs", "versus", "difference"}},
	{QueryTypeTrend, []string{"trend", "over time", "history"}},
	{QueryTypeRanking, []string{"top", "best", "worst", "bottom"}},
	{QueryTypeFinancial, []string{"spend", "cost", "budget", "roas", "roi", "revenue"}},
	{QueryTypePerformance, []string{"click", "impression", "ctr", "cpc"}},
	{QueryTypeRecommendation, []string{"recommend", "suggest", "improve"}},
}

// timePeriodRules: first phrase found wins. "last month" outranks "this
// month" only in the sense that neither phrase is a substring of the other,
// so the order here is stable documentation rather than a tiebreaker.
var timePeriodRules = []struct {
	result  TimePeriod
	phrases []string
}{
	{PeriodLastMonth, []string{"last month"}},
	{PeriodLastWeek, []string{"last week"}},
	{PeriodToday, []string{"today"}},
	{PeriodYesterday, []string{"yesterday"}},
	{PeriodThisMonth, []string{"this month"}},
	{PeriodQuarter, []string{"this quarter", "q1", "q2", "q3", "q4"}},
	{PeriodYear, []string{"this year", "ytd"}},
}

// channelRules: "google" is deliberately tested before the meta keywords,
// so "Google Ads vs Meta" resolves to google_ads.
var channelRules = []struct {
	result   Channel
	keywords []string
}{
	{ChannelGoogleAds, []string{"google"}},
	{ChannelMeta, []string{"meta", "facebook", "instagram"}},
}

// ClassifyIntent maps a raw query to a QueryIntent using keyword membership
// over the lower-cased text. Deterministic, no external calls.
func ClassifyIntent(query string) QueryIntent {
	q := strings.ToLower(query)

	intent := QueryIntent{
		QueryType:  QueryTypeGeneral,
		TimePeriod: PeriodNone,
		EntityType: EntityFilterAll,
		Channel:    ChannelNone,
	}

	for _, rule := range queryTypeRules {
		if containsAny(q, rule.keywords) {
			intent.QueryType = rule.result
			break
		}
	}

	for _, rule := range timePeriodRules {
		if containsAny(q, rule.phrases) {
			intent.TimePeriod = rule.result
			break
		}
	}

	switch {
	case strings.Contains(q, "campaign"):
		intent.EntityType = EntityFilterCampaign
	case strings.Contains(q, "ad set") || strings.Contains(q, "adset"):
		intent.EntityType = EntityFilterAdSet
	case hasWord(q, "ad") || hasWord(q, "ads"):
		intent.EntityType = EntityFilterAd
	}

	for _, rule := range channelRules {
		if containsAny(q, rule.keywords) {
			intent.Channel = rule.result
			break
		}
	}

	return intent
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// hasWord matches whole tokens only; a substring test for "ad" would fire
// on words like "read" or "roadmap".
func hasWord(q, word string) bool {
	for _, tok := range strings.FieldsFunc(q, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if tok == word {
			return true
		}
	}
	return false
}
