package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adgraph/backend/internal/llm"
	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/internal/storage/sqlite"
)

type stubStore struct{}

func (stubStore) Campaigns(ctx context.Context, clientID, channel string, limit int) ([]rag.Entity, error) {
	return []rag.Entity{{
		ID:     "c1",
		Kind:   rag.KindCampaign,
		Name:   "Summer Sale - Google Ads",
		Status: "active",
		Attributes: map[string]any{
			"budget":    5000.0,
			"objective": "conversions",
		},
	}}, nil
}

func (stubStore) AdSets(ctx context.Context, clientID string, limit int) ([]rag.Entity, error) {
	return nil, nil
}

func (stubStore) SearchCampaignsByName(ctx context.Context, clientID, term string, limit int) ([]rag.Entity, error) {
	return nil, nil
}

func (stubStore) Metrics(ctx context.Context, clientID string, dateRange rag.DateRange, limit int) ([]rag.MetricRecord, error) {
	metrics := make([]rag.MetricRecord, 15)
	for i := range metrics {
		metrics[i] = rag.MetricRecord{
			ID:          "m" + string(rune('a'+i)),
			EntityKind:  rag.KindCampaign,
			EntityID:    "c1",
			Date:        dateRange.End.AddDate(0, 0, -i),
			Impressions: 1000,
			Clicks:      50,
			Spend:       100,
		}
	}
	return metrics, nil
}

func (stubStore) Hierarchy(ctx context.Context, clientID string, campaignIDs []string) ([]rag.HierarchySummary, error) {
	return nil, nil
}

type stubCompleter struct{}

func (stubCompleter) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	return "Summer Sale spent $1,500 last month.", nil
}

func newTestApp(t *testing.T) (*fiber.App, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	engine := rag.NewEngine(
		rag.NewRetriever(stubStore{}, nil, 0),
		rag.NewScorer(0),
		rag.NewConversationMemory(10),
		stubCompleter{},
		rag.DefaultFollowUpPolicy(),
		db,
	)

	h := NewQueryHandler(engine, db, nil)

	app := fiber.New()
	app.Post("/api/v1/query", h.HandleQuery)
	app.Get("/api/v1/query/history", h.GetQueryHistory)
	app.Post("/api/v1/feedback", h.HandleFeedback)
	app.Delete("/api/v1/sessions/:id", h.ClearSession)

	return app, db
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestHandleQueryAnswers(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := postJSON(t, app, "/api/v1/query", map[string]any{
		"query":     "campaign spend last month",
		"client_id": "client-1",
	})

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Summer Sale spent $1,500 last month.", body["answer"])
	assert.NotEmpty(t, body["query_id"])
	assert.NotEmpty(t, body["sources"])
}

func TestHandleQueryValidation(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := postJSON(t, app, "/api/v1/query", map[string]any{
		"client_id": "client-1",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "query is required", body["error"])

	status, body = postJSON(t, app, "/api/v1/query", map[string]any{
		"query": "campaign spend",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "client_id is required", body["error"])

	status, _ = postJSON(t, app, "/api/v1/query", map[string]any{
		"query":      "campaign spend",
		"client_id":  "client-1",
		"start_date": "2024-02-01",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = postJSON(t, app, "/api/v1/query", map[string]any{
		"query":      "campaign spend",
		"client_id":  "client-1",
		"start_date": "2024-02-10",
		"end_date":   "2024-02-01",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleQueryExplicitDateRange(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := postJSON(t, app, "/api/v1/query", map[string]any{
		"query":      "campaign spend",
		"client_id":  "client-1",
		"start_date": "2024-02-01",
		"end_date":   "2024-02-29",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body["context_summary"], "2024-02-01 to 2024-02-29")
}

func TestQueryHistoryEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := postJSON(t, app, "/api/v1/query", map[string]any{
		"query":     "campaign spend",
		"client_id": "client-1",
	})
	require.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest("GET", "/api/v1/query/history?client_id=client-1", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		ClientID string           `json:"client_id"`
		History  []map[string]any `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "client-1", body.ClientID)
	require.Len(t, body.History, 1)
	assert.Equal(t, "campaign spend", body.History[0]["query"])
}

func TestFeedbackEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := postJSON(t, app, "/api/v1/query", map[string]any{
		"query":     "campaign spend",
		"client_id": "client-1",
	})
	require.Equal(t, fiber.StatusOK, status)
	queryID := body["query_id"].(string)

	status, body = postJSON(t, app, "/api/v1/feedback", map[string]any{
		"query_id": queryID,
		"helpful":  true,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "recorded", body["status"])

	status, body = postJSON(t, app, "/api/v1/feedback", map[string]any{
		"query_id": queryID,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "helpful is required", body["error"])
}

func TestClearSessionEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("DELETE", "/api/v1/sessions/s1", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
