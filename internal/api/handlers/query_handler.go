package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/metrics"
	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/internal/storage/models"
	"github.com/adgraph/backend/internal/storage/sqlite"
	"github.com/adgraph/backend/pkg/logger"
	"github.com/adgraph/backend/pkg/utils"
)

const maxQueryLength = 2000

// ResponseCache stores serialized query results. Optional; a nil cache
// disables caching.
type ResponseCache interface {
	SetResult(ctx context.Context, key string, result interface{}) error
	GetResult(ctx context.Context, key string, result interface{}) (bool, error)
}

type QueryHandler struct {
	engine *rag.Engine
	db     *sqlite.Client
	cache  ResponseCache
}

func NewQueryHandler(engine *rag.Engine, db *sqlite.Client, cache ResponseCache) *QueryHandler {
	return &QueryHandler{
		engine: engine,
		db:     db,
		cache:  cache,
	}
}

type queryRequest struct {
	Query     string `json:"query"`
	ClientID  string `json:"client_id"`
	UserRole  string `json:"user_role"`
	SessionID string `json:"session_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req queryRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}
	if len(req.Query) > maxQueryLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is too long",
		})
	}
	if req.ClientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	dateRange, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Session-bound queries depend on conversation state and bypass the
	// cache entirely.
	cacheable := h.cache != nil && req.SessionID == "" && dateRange == nil
	cacheKey := utils.CacheKey(req.ClientID, req.Query)

	if cacheable {
		var cached rag.QueryResult
		found, err := h.cache.GetResult(c.Context(), cacheKey, &cached)
		if err != nil {
			logger.Warn("Cache read failed", zap.Error(err))
		} else if found {
			return c.JSON(cached)
		}
	}

	result, err := h.engine.Answer(c.Context(), rag.Request{
		Query:     req.Query,
		ClientID:  req.ClientID,
		UserRole:  req.UserRole,
		SessionID: req.SessionID,
		DateRange: dateRange,
	})
	if err != nil {
		logger.Error("Failed to process query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	if cacheable {
		if err := h.cache.SetResult(c.Context(), cacheKey, result); err != nil {
			logger.Warn("Cache write failed", zap.Error(err))
		}
	}

	return c.JSON(result)
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	clientID := c.Query("client_id")
	if clientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)

	records, err := h.db.QueryHistory(c.Context(), clientID, limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, rec := range records {
		history = append(history, fiber.Map{
			"query_id":         rec.ID,
			"session_id":       rec.SessionID,
			"query":            rec.QueryText,
			"answer":           rec.Answer,
			"confidence":       rec.Confidence,
			"confidence_level": rec.ConfidenceLevel,
			"source_count":     rec.SourceCount,
			"refused":          rec.Refused,
			"created_at":       rec.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"client_id": clientID,
		"history":   history,
	})
}

type feedbackRequest struct {
	QueryID       string `json:"query_id"`
	Helpful       *bool  `json:"helpful"`
	IssueCategory string `json:"issue_category"`
	Comment       string `json:"comment"`
}

func (h *QueryHandler) HandleFeedback(c *fiber.Ctx) error {
	var req feedbackRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.QueryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query_id is required",
		})
	}
	if req.Helpful == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "helpful is required",
		})
	}

	err := h.db.SaveFeedback(c.Context(), models.Feedback{
		QueryID:       req.QueryID,
		Helpful:       *req.Helpful,
		IssueCategory: req.IssueCategory,
		Comment:       req.Comment,
	})
	if err != nil {
		logger.Error("Failed to save feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save feedback",
		})
	}

	helpful := "false"
	if *req.Helpful {
		helpful = "true"
	}
	metrics.UserSatisfaction.WithLabelValues(helpful).Inc()

	return c.JSON(fiber.Map{
		"status": "recorded",
	})
}

func (h *QueryHandler) ClearSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session id is required",
		})
	}

	h.engine.ClearSession(sessionID)

	return c.JSON(fiber.Map{
		"status": "cleared",
	})
}

func parseDateRange(startDate, endDate string) (*rag.DateRange, error) {
	if startDate == "" && endDate == "" {
		return nil, nil
	}
	if startDate == "" || endDate == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "start_date and end_date must be provided together")
	}

	start, err := parseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "end_date must not precede start_date")
	}

	return &rag.DateRange{Start: start, End: end}, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "dates must be formatted as YYYY-MM-DD")
	}
	return t, nil
}
