package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/adgraph/backend/internal/graph/neo4j"
)

// Generator produces a realistic advertising dataset for development and
// demos. Seeded generators are reproducible apart from the uuids.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

// Dataset is one full generated tenant tree.
type Dataset struct {
	Clients   []neo4j.ClientRecord
	Campaigns []neo4j.CampaignRecord
	AdSets    []neo4j.AdSetRecord
	Ads       []neo4j.AdRecord
	Metrics   []neo4j.MetricRow
}

type Params struct {
	NumClients         int
	CampaignsPerClient int
	AdSetsPerCampaign  int
	AdsPerAdSet        int
	MetricDays         int
}

func DefaultParams() Params {
	return Params{
		NumClients:         5,
		CampaignsPerClient: 4,
		AdSetsPerCampaign:  3,
		AdsPerAdSet:        5,
		MetricDays:         90,
	}
}

var companyNames = []struct {
	name     string
	industry string
}{
	{"Apex Retail", "Retail"},
	{"TechFlow SaaS", "SaaS"},
	{"HealthFirst Clinic", "Healthcare"},
	{"GlobalFinance Corp", "Finance"},
	{"Wanderlust Travel", "Travel"},
}

var industries = []string{
	"E-commerce", "SaaS", "Healthcare", "Finance",
	"Retail", "Travel", "Education", "Real Estate",
}

var campaignPrefixes = []string{
	"Summer Sale", "Brand Awareness", "Lead Gen", "Retargeting",
	"Holiday Special", "New Product Launch", "Customer Acquisition", "Engagement Boost",
}

var campaignObjectives = []string{
	"awareness", "traffic", "engagement", "leads", "conversions", "sales",
}

var adHeadlines = []string{
	"Save Big Today!", "Limited Time Offer", "Discover Something New",
	"Transform Your Business", "Get Started Free", "Exclusive Deal Inside",
	"Don't Miss Out", "See What's New",
}

var audiences = []string{"Broad", "Interest-Based", "Lookalike", "Retargeting", "Custom"}

var currencies = []string{"USD", "EUR", "GBP"}

var targetingOptions = []string{
	`{"age": "25-44", "interests": ["technology", "business"]}`,
	`{"age": "18-34", "interests": ["fashion", "lifestyle"]}`,
	`{"age": "35-54", "interests": ["finance", "investing"]}`,
	`{"age": "25-54", "location": "United States", "interests": ["shopping"]}`,
	`{"age": "18-24", "interests": ["gaming", "entertainment"]}`,
}

var channels = []string{"google_ads", "meta"}

func NewGenerator(seed int64, now time.Time) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: now,
	}
}

// Generate builds one complete dataset: clients own campaigns, campaigns
// contain ad sets, ad sets contain ads, and campaigns and ad sets carry
// daily metrics.
func (g *Generator) Generate(p Params) *Dataset {
	data := &Dataset{}

	for i := 0; i < p.NumClients; i++ {
		client := g.newClient(i)
		data.Clients = append(data.Clients, client)

		currency := currencies[g.rng.Intn(len(currencies))]

		for j := 0; j < p.CampaignsPerClient; j++ {
			campaign := g.newCampaign(client.ID, currency, j)
			data.Campaigns = append(data.Campaigns, campaign)

			withRevenue := campaign.Objective == "conversions" || campaign.Objective == "sales"
			data.Metrics = append(data.Metrics,
				g.newMetricSeries(client.ID, "campaign", campaign.ID, currency, p.MetricDays, 1, withRevenue)...)

			for k := 0; k < p.AdSetsPerCampaign; k++ {
				adset := g.newAdSet(client.ID, campaign.ID, currency, k)
				data.AdSets = append(data.AdSets, adset)

				data.Metrics = append(data.Metrics,
					g.newMetricSeries(client.ID, "adset", adset.ID, currency, p.MetricDays, p.AdSetsPerCampaign, false)...)

				for l := 0; l < p.AdsPerAdSet; l++ {
					data.Ads = append(data.Ads, g.newAd(client.ID, adset.ID, l))
				}
			}
		}
	}

	return data
}

func (g *Generator) newClient(index int) neo4j.ClientRecord {
	if index < len(companyNames) {
		return neo4j.ClientRecord{
			ID:       uuid.New().String(),
			Name:     companyNames[index].name,
			Industry: companyNames[index].industry,
		}
	}
	return neo4j.ClientRecord{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("Client %d", index+1),
		Industry: industries[g.rng.Intn(len(industries))],
	}
}

func (g *Generator) newCampaign(clientID, currency string, index int) neo4j.CampaignRecord {
	prefix := campaignPrefixes[g.rng.Intn(len(campaignPrefixes))]
	channel := channels[index%len(channels)]

	startDate := g.now.AddDate(0, 0, -(30 + g.rng.Intn(61)))
	endDate := startDate.AddDate(0, 0, 30+g.rng.Intn(61))

	status := weightedStatus(g.rng, []string{"active", "paused", "completed"}, []float64{0.6, 0.2, 0.2})
	if endDate.Before(g.now) {
		status = "completed"
	}

	channelLabel := "Google Ads"
	if channel == "meta" {
		channelLabel = "Meta"
	}

	return neo4j.CampaignRecord{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Name:      fmt.Sprintf("%s - %s", prefix, channelLabel),
		Status:    status,
		Channel:   channel,
		Objective: campaignObjectives[g.rng.Intn(len(campaignObjectives))],
		Budget:    float64(1000 + g.rng.Intn(19001)),
		Currency:  currency,
		StartDate: startDate.Format("2006-01-02"),
		EndDate:   endDate.Format("2006-01-02"),
	}
}

func (g *Generator) newAdSet(clientID, campaignID, currency string, index int) neo4j.AdSetRecord {
	return neo4j.AdSetRecord{
		ID:         uuid.New().String(),
		ClientID:   clientID,
		CampaignID: campaignID,
		Name:       fmt.Sprintf("%s Audience", audiences[index%len(audiences)]),
		Status:     weightedStatus(g.rng, []string{"active", "paused"}, []float64{0.8, 0.2}),
		Budget:     float64(200 + g.rng.Intn(1801)),
		Targeting:  targetingOptions[g.rng.Intn(len(targetingOptions))],
	}
}

func (g *Generator) newAd(clientID, adsetID string, index int) neo4j.AdRecord {
	return neo4j.AdRecord{
		ID:       uuid.New().String(),
		ClientID: clientID,
		AdSetID:  adsetID,
		Name:     fmt.Sprintf("Ad Variant %c", 'A'+index),
		Status:   weightedStatus(g.rng, []string{"active", "paused"}, []float64{0.85, 0.15}),
		Headline: adHeadlines[g.rng.Intn(len(adHeadlines))],
	}
}

// newMetricSeries simulates one entity's daily metrics with weekend dips, a
// small linear trend, and day-to-day noise. Ad set rows are scaled down by
// the sibling count so they roughly sum to their campaign.
func (g *Generator) newMetricSeries(clientID, entityKind, entityID, currency string, days, scale int, withRevenue bool) []neo4j.MetricRow {
	baseImpressions := float64(1000 + g.rng.Intn(9001))
	baseCTR := 0.5 + g.rng.Float64()*2.5
	baseCVR := 1.0 + g.rng.Float64()*9.0
	baseCPC := 0.5 + g.rng.Float64()*4.5
	baseAOV := 50 + g.rng.Float64()*150
	trendFactor := -0.002 + g.rng.Float64()*0.007

	rows := make([]neo4j.MetricRow, 0, days)

	for day := 0; day < days; day++ {
		date := g.now.AddDate(0, 0, -(days - day))

		weekendFactor := 1.0
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekendFactor = 0.7
		}
		dailyVariance := 0.7 + g.rng.Float64()*0.6
		trendMultiplier := 1 + trendFactor*float64(day)

		impressions := int64(baseImpressions * weekendFactor * dailyVariance * trendMultiplier)
		clicks := int64(float64(impressions) * (baseCTR / 100) * (0.8 + g.rng.Float64()*0.4))
		conversions := int64(float64(clicks) * (baseCVR / 100) * (0.7 + g.rng.Float64()*0.6))
		spend := float64(clicks) * baseCPC * (0.9 + g.rng.Float64()*0.2)

		if scale > 1 {
			impressions /= int64(scale)
			clicks /= int64(scale)
			conversions /= int64(scale)
			spend /= float64(scale)
		}

		row := neo4j.MetricRow{
			ID:          fmt.Sprintf("%s_%s", entityID, date.Format("2006-01-02")),
			ClientID:    clientID,
			EntityKind:  entityKind,
			EntityID:    entityID,
			Date:        date.Format("2006-01-02"),
			Impressions: maxInt64(0, impressions),
			Clicks:      maxInt64(0, clicks),
			Conversions: maxInt64(0, conversions),
			Spend:       roundCents(maxFloat(0, spend)),
			Currency:    currency,
		}

		if withRevenue && conversions > 0 {
			revenue := roundCents(float64(conversions) * baseAOV * (0.8 + g.rng.Float64()*0.4))
			row.Revenue = &revenue
		}

		rows = append(rows, row)
	}

	return rows
}

func weightedStatus(rng *rand.Rand, statuses []string, weights []float64) string {
	r := rng.Float64()
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return statuses[i]
		}
	}
	return statuses[len(statuses)-1]
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
