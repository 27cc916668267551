package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.InitSchema())
	return c
}

func sampleResult(queryID string) *rag.QueryResult {
	return &rag.QueryResult{
		QueryID: queryID,
		Query:   "campaign spend last month",
		Answer:  "Summer Sale spent $1,200.",
		Confidence: rag.ConfidenceScore{
			Overall: 0.82,
			Level:   rag.ConfidenceHigh,
		},
		Sources: []rag.Source{{
			EntityType: "campaign",
			EntityID:   "c1",
			EntityName: "Summer Sale - Google Ads",
			DateRange:  "2024-02-01 to 2024-02-29",
		}},
		Timestamp: time.Now().UTC(),
	}
}

func TestRecordAndReadHistory(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.RecordQuery(ctx, "client-1", "s1", sampleResult("q1")))
	require.NoError(t, c.RecordQuery(ctx, "client-1", "", sampleResult("q2")))
	require.NoError(t, c.RecordQuery(ctx, "client-2", "", sampleResult("q3")))

	records, err := c.QueryHistory(ctx, "client-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, rec := range records {
		assert.Equal(t, "client-1", rec.ClientID)
		assert.Equal(t, "campaign spend last month", rec.QueryText)
		assert.Equal(t, "high", rec.ConfidenceLevel)
		assert.Equal(t, 1, rec.SourceCount)
		assert.False(t, rec.Refused)
	}
}

func TestRecordRefusedQuery(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	result := &rag.QueryResult{
		QueryID: "q1",
		Query:   "mystery question",
		Answer:  "I don't have enough data to answer this question reliably.",
		Confidence: rag.ConfidenceScore{
			Overall: 0.1,
			Level:   rag.ConfidenceInsufficient,
		},
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, c.RecordQuery(ctx, "client-1", "", result))

	records, err := c.QueryHistory(ctx, "client-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Refused)
	assert.Equal(t, 0, records[0].SourceCount)
}

func TestQuerySources(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.RecordQuery(ctx, "client-1", "", sampleResult("q1")))

	sources, err := c.QuerySources(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "campaign", sources[0].EntityType)
	assert.Equal(t, "c1", sources[0].EntityID)
	assert.Equal(t, "Summer Sale - Google Ads", sources[0].EntityName)
}

func TestFeedbackRequiresExistingQuery(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.SaveFeedback(ctx, models.Feedback{QueryID: "missing", Helpful: true})
	assert.Error(t, err)

	require.NoError(t, c.RecordQuery(ctx, "client-1", "", sampleResult("q1")))
	err = c.SaveFeedback(ctx, models.Feedback{
		QueryID:       "q1",
		Helpful:       false,
		IssueCategory: "accuracy",
		Comment:       "numbers look off",
	})
	assert.NoError(t, err)
}
