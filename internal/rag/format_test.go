package rag

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatContextIncludesSections(t *testing.T) {
	ctx := &RetrievalContext{
		Query:    "campaign spend",
		ClientID: "client-1",
		Entities: []Entity{{
			ID:     "c1",
			Kind:   KindCampaign,
			Name:   "Summer Sale - Google Ads",
			Status: "active",
			Attributes: map[string]any{
				"objective":       "conversions",
				"budget":          5000.0,
				"budget_currency": "EUR",
			},
		}},
		Metrics: []MetricRecord{
			{EntityID: "c1", Date: date(2024, time.February, 1), Impressions: 1000, Clicks: 50, Conversions: 5, Spend: 100, Revenue: 500, HasRevenue: true},
			{EntityID: "c1", Date: date(2024, time.February, 2), Impressions: 1000, Clicks: 50, Conversions: 5, Spend: 100, Revenue: 500, HasRevenue: true},
		},
		Relationships: []HierarchySummary{{
			CampaignID:   "c1",
			CampaignName: "Summer Sale - Google Ads",
			AdSets:       []ChildRef{{ID: "a1", Name: "Broad Audience"}},
		}},
		DateRange: DateRange{Start: date(2024, time.February, 1), End: date(2024, time.February, 29)},
	}

	out := FormatContextForLLM(ctx)

	assert.Contains(t, out, "Data period: 2024-02-01 to 2024-02-29")
	assert.Contains(t, out, "[CAMPAIGN] Summer Sale - Google Ads (ID: c1, Status: active)")
	assert.Contains(t, out, "Objective: conversions")
	assert.Contains(t, out, "Budget: 5000.00 EUR")

	// Aggregated across both days.
	assert.Contains(t, out, "Impressions: 2000")
	assert.Contains(t, out, "Clicks: 100")
	assert.Contains(t, out, "CTR: 5.00%")
	assert.Contains(t, out, "Spend: $200.00")
	assert.Contains(t, out, "CPC: $2.00")
	assert.Contains(t, out, "Revenue: $1000.00")
	assert.Contains(t, out, "ROAS: 5.00x")

	assert.Contains(t, out, "Ad Sets: Broad Audience")
}

func TestFormatContextOmitsROASWithoutRevenue(t *testing.T) {
	ctx := &RetrievalContext{
		Entities: []Entity{{ID: "c1", Kind: KindCampaign, Name: "Lead Gen", Status: "active"}},
		Metrics: []MetricRecord{
			{EntityID: "c1", Date: date(2024, time.March, 1), Impressions: 500, Clicks: 20, Spend: 40},
		},
		DateRange: DateRange{Start: date(2024, time.March, 1), End: date(2024, time.March, 31)},
	}

	out := FormatContextForLLM(ctx)

	assert.NotContains(t, out, "ROAS")
	assert.NotContains(t, out, "Revenue")
}

func TestFormatContextUnknownEntityFallsBackToID(t *testing.T) {
	ctx := &RetrievalContext{
		Metrics: []MetricRecord{
			{EntityID: "mystery-7", Impressions: 10, Clicks: 1, Spend: 2},
		},
		DateRange: DateRange{Start: date(2024, time.March, 1), End: date(2024, time.March, 31)},
	}

	out := FormatContextForLLM(ctx)
	assert.Contains(t, out, "### mystery-7")
}

func TestFormatContextCapsEntities(t *testing.T) {
	ctx := &RetrievalContext{
		DateRange: DateRange{Start: date(2024, time.March, 1), End: date(2024, time.March, 31)},
	}
	for i := 0; i < 30; i++ {
		ctx.Entities = append(ctx.Entities, Entity{
			ID:   string(rune('a' + i)),
			Kind: KindCampaign,
			Name: "Campaign",
		})
	}

	out := FormatContextForLLM(ctx)
	assert.Equal(t, formatEntityCap, strings.Count(out, "[CAMPAIGN]"))
}
