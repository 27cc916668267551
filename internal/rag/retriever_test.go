package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	campaigns     []Entity
	adsets        []Entity
	searchResults []Entity
	metrics       []MetricRecord
	hierarchies   []HierarchySummary

	lastClientID    string
	lastChannel     string
	searchTermsSeen []string
	metricsRange    DateRange
	hierarchyIDs    []string

	err error
}

func (f *fakeStore) Campaigns(ctx context.Context, clientID, channel string, limit int) ([]Entity, error) {
	f.lastClientID = clientID
	f.lastChannel = channel
	return f.campaigns, f.err
}

func (f *fakeStore) AdSets(ctx context.Context, clientID string, limit int) ([]Entity, error) {
	f.lastClientID = clientID
	return f.adsets, f.err
}

func (f *fakeStore) SearchCampaignsByName(ctx context.Context, clientID, term string, limit int) ([]Entity, error) {
	f.searchTermsSeen = append(f.searchTermsSeen, term)
	return f.searchResults, f.err
}

func (f *fakeStore) Metrics(ctx context.Context, clientID string, dateRange DateRange, limit int) ([]MetricRecord, error) {
	f.metricsRange = dateRange
	return f.metrics, f.err
}

func (f *fakeStore) Hierarchy(ctx context.Context, clientID string, campaignIDs []string) ([]HierarchySummary, error) {
	f.hierarchyIDs = campaignIDs
	return f.hierarchies, f.err
}

type failingSearcher struct{}

func (failingSearcher) SearchEntities(ctx context.Context, clientID, query string, limit int) ([]Entity, error) {
	return nil, errors.New("index unavailable")
}

func campaign(id, name string) Entity {
	return Entity{ID: id, Kind: KindCampaign, Name: name, Status: "active", Attributes: map[string]any{}}
}

func TestRetrieveDeduplicatesEntities(t *testing.T) {
	c1 := campaign("c1", "Summer Sale - Google Ads")
	c2 := campaign("c2", "Holiday Special - Meta")

	store := &fakeStore{
		campaigns:     []Entity{c1},
		searchResults: []Entity{c1, c2},
		metrics: []MetricRecord{
			{ID: "m1", EntityID: "c1", Date: time.Now().UTC()},
			{ID: "m2", EntityID: "c9", Date: time.Now().UTC()},
		},
		hierarchies: []HierarchySummary{{CampaignID: "c1", CampaignName: "Summer Sale - Google Ads"}},
	}

	r := NewRetriever(store, nil, 0)
	got, err := r.Retrieve(context.Background(), "Summer campaigns last month", "client-1", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, "client-1", store.lastClientID)
	require.Len(t, got.Entities, 2)
	assert.Equal(t, "c1", got.Entities[0].ID)
	assert.Equal(t, "c2", got.Entities[1].ID)

	// Metrics for entities outside the retrieved set are filtered out.
	require.Len(t, got.Metrics, 1)
	assert.Equal(t, "m1", got.Metrics[0].ID)

	assert.Equal(t, []string{"c1", "c2"}, store.hierarchyIDs)
	assert.Equal(t, QueryTypeGeneral, got.Metadata.Intent.QueryType)
	assert.Equal(t, PeriodLastMonth, got.Metadata.Intent.TimePeriod)
	assert.False(t, got.Metadata.IsFollowUp)
}

func TestRetrieveResolvesDateRangeFromIntent(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, nil, 0)

	got, err := r.Retrieve(context.Background(), "spend last month", "client-1", nil, 0)
	require.NoError(t, err)

	firstOfThis := time.Date(time.Now().UTC().Year(), time.Now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, firstOfThis.AddDate(0, 0, -1), got.DateRange.End)
	assert.Equal(t, got.DateRange, store.metricsRange)
}

func TestRetrieveExplicitRangeWins(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, nil, 0)

	want := DateRange{Start: date(2024, time.January, 1), End: date(2024, time.January, 31)}
	got, err := r.Retrieve(context.Background(), "spend last month", "client-1", &want, 0)
	require.NoError(t, err)

	assert.Equal(t, want, got.DateRange)
}

func TestRetrieveMetricFilterFallsBack(t *testing.T) {
	// Retrieved entities have no matching metric rows; the unfiltered
	// client-scoped list is returned instead of nothing.
	store := &fakeStore{
		campaigns: []Entity{campaign("c1", "Lead Gen")},
		metrics:   []MetricRecord{{ID: "m1", EntityID: "other"}},
	}

	r := NewRetriever(store, nil, 0)
	got, err := r.Retrieve(context.Background(), "campaign spend", "client-1", nil, 0)
	require.NoError(t, err)

	require.Len(t, got.Metrics, 1)
	assert.Equal(t, "m1", got.Metrics[0].ID)
}

func TestRetrieveChannelFilterForwarded(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, nil, 0)

	_, err := r.Retrieve(context.Background(), "google campaign spend", "client-1", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, string(ChannelGoogleAds), store.lastChannel)
}

func TestRetrieveToleratesSearcherFailure(t *testing.T) {
	store := &fakeStore{campaigns: []Entity{campaign("c1", "Retargeting")}}
	r := NewRetriever(store, failingSearcher{}, 0)

	got, err := r.Retrieve(context.Background(), "campaign results", "client-1", nil, 0)
	require.NoError(t, err)
	require.Len(t, got.Entities, 1)
}

func TestRetrieveStoreErrorAborts(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	r := NewRetriever(store, nil, 0)

	_, err := r.Retrieve(context.Background(), "campaign spend", "client-1", nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieve entities")
}

func TestRetrieveForFollowUpMergesAndDedups(t *testing.T) {
	c1 := campaign("c1", "Summer Sale")
	c2 := campaign("c2", "Holiday Special")

	store := &fakeStore{
		campaigns: []Entity{c1},
		metrics:   []MetricRecord{{ID: "m1", EntityID: "c1"}},
	}
	r := NewRetriever(store, nil, 0)

	previous := &RetrievalContext{
		Query:     "show campaigns",
		ClientID:  "client-1",
		Entities:  []Entity{c1, c2},
		Metrics:   []MetricRecord{{ID: "m1", EntityID: "c1"}, {ID: "m0", EntityID: "c2"}},
		DateRange: DateRange{Start: date(2024, time.January, 1), End: date(2024, time.January, 31)},
	}

	got, err := r.RetrieveForFollowUp(context.Background(), "more about campaign spend", "client-1", previous)
	require.NoError(t, err)

	// Previous range is reused, not re-resolved.
	assert.Equal(t, previous.DateRange, got.DateRange)

	// Entities union, fresh first, dedup by id.
	require.Len(t, got.Entities, 2)
	assert.Equal(t, "c1", got.Entities[0].ID)
	assert.Equal(t, "c2", got.Entities[1].ID)

	// Metrics dedup by row id.
	require.Len(t, got.Metrics, 2)

	assert.True(t, got.Metadata.IsFollowUp)
	assert.Equal(t, "show campaigns", got.Metadata.PreviousQuery)
}

func TestSearchTermsSkipShortAndNonAlpha(t *testing.T) {
	terms := searchTerms("top 10 sale campaigns for q3 2024")
	assert.Equal(t, []string{"sale", "campaigns"}, terms)
}
