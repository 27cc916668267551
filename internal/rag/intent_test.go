package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntentQueryTypes(t *testing.T) {
	tests := []struct {
		query string
		want  QueryType
	}{
		{"Compare Google Ads vs Meta spend this quarter", QueryTypeComparison},
		{"Show me the CTR trend over time", QueryTypeTrend},
		{"What are my top campaigns?", QueryTypeRanking},
		{"How much did we spend last month?", QueryTypeFinancial},
		{"How many clicks did the retargeting campaign get?", QueryTypePerformance},
		{"Suggest ways to improve my campaigns", QueryTypeRecommendation},
		{"What is happening with my account?", QueryTypeGeneral},
	}

	for _, tt := range tests {
		intent := ClassifyIntent(tt.query)
		assert.Equal(t, tt.want, intent.QueryType, "query: %s", tt.query)
	}
}

func TestClassifyIntentComparisonBeatsFinancial(t *testing.T) {
	// "compare" and "spend" both match; comparison outranks financial.
	intent := ClassifyIntent("Compare spend across campaigns")
	assert.Equal(t, QueryTypeComparison, intent.QueryType)
}

func TestClassifyIntentTimePeriods(t *testing.T) {
	tests := []struct {
		query string
		want  TimePeriod
	}{
		{"spend last month", PeriodLastMonth},
		{"clicks last week", PeriodLastWeek},
		{"impressions today", PeriodToday},
		{"what happened yesterday", PeriodYesterday},
		{"budget this month", PeriodThisMonth},
		{"performance this quarter", PeriodQuarter},
		{"Q3 results", PeriodQuarter},
		{"YTD spend", PeriodYear},
		{"how are things going", PeriodNone},
	}

	for _, tt := range tests {
		intent := ClassifyIntent(tt.query)
		assert.Equal(t, tt.want, intent.TimePeriod, "query: %s", tt.query)
	}
}

func TestClassifyIntentEntityTypes(t *testing.T) {
	assert.Equal(t, EntityFilterCampaign, ClassifyIntent("show my campaigns").EntityType)
	assert.Equal(t, EntityFilterAdSet, ClassifyIntent("which ad sets are active").EntityType)
	assert.Equal(t, EntityFilterAdSet, ClassifyIntent("adset budgets").EntityType)
	assert.Equal(t, EntityFilterAd, ClassifyIntent("best performing ads").EntityType)
	assert.Equal(t, EntityFilterAll, ClassifyIntent("overall performance").EntityType)
}

func TestClassifyIntentAdRequiresWholeWord(t *testing.T) {
	// "roadmap" and "read" contain "ad" but are not about ads.
	assert.Equal(t, EntityFilterAll, ClassifyIntent("read the roadmap").EntityType)
}

func TestClassifyIntentChannels(t *testing.T) {
	assert.Equal(t, ChannelGoogleAds, ClassifyIntent("google campaigns").Channel)
	assert.Equal(t, ChannelMeta, ClassifyIntent("facebook results").Channel)
	assert.Equal(t, ChannelMeta, ClassifyIntent("instagram engagement").Channel)
	assert.Equal(t, ChannelNone, ClassifyIntent("all channels").Channel)

	// Both channels named: google wins.
	intent := ClassifyIntent("Compare Google Ads vs Meta spend this quarter")
	assert.Equal(t, ChannelGoogleAds, intent.Channel)
	assert.Equal(t, PeriodQuarter, intent.TimePeriod)
	assert.Equal(t, QueryTypeComparison, intent.QueryType)
}
