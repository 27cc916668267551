package seed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShapesDataset(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(42, now)

	p := Params{
		NumClients:         2,
		CampaignsPerClient: 3,
		AdSetsPerCampaign:  2,
		AdsPerAdSet:        4,
		MetricDays:         7,
	}
	data := g.Generate(p)

	require.Len(t, data.Clients, 2)
	require.Len(t, data.Campaigns, 6)
	require.Len(t, data.AdSets, 12)
	require.Len(t, data.Ads, 48)

	// Campaigns and ad sets each carry a daily series.
	assert.Len(t, data.Metrics, (6+12)*7)
}

func TestGenerateScopesEverythingToOwningClient(t *testing.T) {
	g := NewGenerator(7, time.Now().UTC())
	data := g.Generate(DefaultParams())

	clientIDs := make(map[string]bool)
	for _, c := range data.Clients {
		clientIDs[c.ID] = true
	}

	for _, campaign := range data.Campaigns {
		assert.True(t, clientIDs[campaign.ClientID])
	}
	for _, adset := range data.AdSets {
		assert.True(t, clientIDs[adset.ClientID])
	}
	for _, row := range data.Metrics {
		assert.True(t, clientIDs[row.ClientID])
	}
}

func TestGenerateMetricsAreNonNegativeAndDated(t *testing.T) {
	g := NewGenerator(1, time.Now().UTC())
	data := g.Generate(Params{
		NumClients:         1,
		CampaignsPerClient: 2,
		AdSetsPerCampaign:  1,
		AdsPerAdSet:        1,
		MetricDays:         30,
	})

	for _, row := range data.Metrics {
		assert.GreaterOrEqual(t, row.Impressions, int64(0))
		assert.GreaterOrEqual(t, row.Clicks, int64(0))
		assert.GreaterOrEqual(t, row.Spend, 0.0)
		assert.LessOrEqual(t, row.Clicks, row.Impressions)

		_, err := time.Parse("2006-01-02", row.Date)
		assert.NoError(t, err)

		if row.Revenue != nil {
			assert.Greater(t, *row.Revenue, 0.0)
		}
	}
}

func TestGenerateChannelsAlternate(t *testing.T) {
	g := NewGenerator(3, time.Now().UTC())
	data := g.Generate(Params{
		NumClients:         1,
		CampaignsPerClient: 4,
		AdSetsPerCampaign:  1,
		AdsPerAdSet:        1,
		MetricDays:         1,
	})

	channels := make(map[string]int)
	for _, campaign := range data.Campaigns {
		channels[campaign.Channel]++
	}
	assert.Equal(t, 2, channels["google_ads"])
	assert.Equal(t, 2, channels["meta"])
}
