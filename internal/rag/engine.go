package rag

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/llm"
	"github.com/adgraph/backend/internal/metrics"
	"github.com/adgraph/backend/pkg/logger"
)

const (
	maxSources         = 10
	maxRecommendations = 3
	recMetricFloor     = 10
	dialogueTurns      = 3
)

// Completer generates an answer from a system prompt and a dialogue.
type Completer interface {
	Complete(ctx context.Context, system string, messages []llm.Message) (string, error)
}

// QueryLog persists answered queries for history and feedback. Recording is
// best effort; a log failure never fails the query.
type QueryLog interface {
	RecordQuery(ctx context.Context, clientID, sessionID string, result *QueryResult) error
}

// Request is one question against one client's data.
type Request struct {
	Query     string
	ClientID  string
	UserRole  string
	SessionID string
	DateRange *DateRange
}

// Source points at a graph entity the answer drew from.
type Source struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	DateRange  string `json:"date_range"`
}

type QueryResult struct {
	QueryID            string          `json:"query_id"`
	Query              string          `json:"query"`
	Answer             string          `json:"answer"`
	Confidence         ConfidenceScore `json:"confidence"`
	Sources            []Source        `json:"sources"`
	Recommendations    []string        `json:"recommendations,omitempty"`
	ContextSummary     string          `json:"context_summary"`
	DrillDownAvailable bool            `json:"drill_down_available"`
	Timestamp          time.Time       `json:"timestamp"`
}

// Engine orchestrates one query end to end: retrieval, confidence scoring,
// generation or refusal, memory, and the query log.
type Engine struct {
	retriever *Retriever
	scorer    *Scorer
	memory    *ConversationMemory
	completer Completer
	policy    FollowUpPolicy
	queryLog  QueryLog
}

func NewEngine(retriever *Retriever, scorer *Scorer, memory *ConversationMemory, completer Completer, policy FollowUpPolicy, queryLog QueryLog) *Engine {
	return &Engine{
		retriever: retriever,
		scorer:    scorer,
		memory:    memory,
		completer: completer,
		policy:    policy,
		queryLog:  queryLog,
	}
}

// Answer processes one request. Empty retrieval is not an error; it flows
// through scoring and normally ends in a refusal answer. Errors mean the
// pipeline itself failed (graph down, generation failed).
func (e *Engine) Answer(ctx context.Context, req Request) (*QueryResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if req.ClientID == "" {
		return nil, fmt.Errorf("client id must not be empty")
	}

	start := time.Now()
	queryID := uuid.New().String()

	var previous *RetrievalContext
	if req.SessionID != "" {
		previous = e.memory.LastContext(req.SessionID)
	}

	// A continuation phrase without a stored context is treated as a fresh
	// query, never an error.
	isFollowUp := previous != nil && e.policy.IsFollowUp(req.Query)

	var (
		retrCtx *RetrievalContext
		err     error
	)
	if isFollowUp {
		retrCtx, err = e.retriever.RetrieveForFollowUp(ctx, req.Query, req.ClientID, previous)
	} else {
		retrCtx, err = e.retriever.Retrieve(ctx, req.Query, req.ClientID, req.DateRange, 0)
	}
	if err != nil {
		metrics.RecordQuery(string(ClassifyIntent(req.Query).QueryType), "error", time.Since(start))
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	intent := retrCtx.Metadata.Intent
	score := e.scorer.Score(req.Query, retrCtx.Entities, retrCtx.Metrics, &retrCtx.DateRange)
	rendered := FormatContextForLLM(retrCtx)

	metrics.RecordRetrieval(len(retrCtx.Entities), len(retrCtx.Metrics))
	metrics.ObserveConfidence(score.Overall)

	result := &QueryResult{
		QueryID:            queryID,
		Query:              req.Query,
		Confidence:         score,
		ContextSummary:     rendered,
		DrillDownAvailable: drillDownAllowed(req.UserRole) && len(retrCtx.Relationships) > 0,
		Timestamp:          time.Now().UTC(),
	}

	status := "answered"
	if e.scorer.ShouldRefuse(score) {
		result.Answer = e.refuse(ctx, req.Query, rendered, score)
		status = "refused"
		metrics.RecordRefusal()
	} else {
		answer, err := e.generate(ctx, req, retrCtx, rendered)
		if err != nil {
			metrics.RecordQuery(string(intent.QueryType), "error", time.Since(start))
			return nil, fmt.Errorf("answer generation failed: %w", err)
		}
		result.Answer = answer
		result.Sources = buildSources(retrCtx)
		if wantsRecommendations(intent, retrCtx) {
			result.Recommendations = e.recommend(ctx, rendered)
		}
	}

	if req.SessionID != "" {
		e.memory.AddTurn(req.SessionID, Turn{
			Query:     req.Query,
			Answer:    result.Answer,
			Context:   retrCtx,
			Timestamp: result.Timestamp,
		})
	}

	if e.queryLog != nil {
		if err := e.queryLog.RecordQuery(ctx, req.ClientID, req.SessionID, result); err != nil {
			logger.Warn("Query log write failed", zap.Error(err), zap.String("query_id", queryID))
		}
	}

	metrics.RecordQuery(string(intent.QueryType), status, time.Since(start))

	logger.Info("Query answered",
		zap.String("query_id", queryID),
		zap.String("client_id", req.ClientID),
		zap.String("status", status),
		zap.Float64("confidence", score.Overall),
		zap.Duration("latency", time.Since(start)),
	)

	return result, nil
}

// ClearSession drops a session's conversation history.
func (e *Engine) ClearSession(sessionID string) {
	e.memory.Clear(sessionID)
}

// SessionHistory returns the in-memory turns for a session, oldest first.
func (e *Engine) SessionHistory(sessionID string) []Turn {
	return e.memory.History(sessionID)
}

func (e *Engine) generate(ctx context.Context, req Request, retrCtx *RetrievalContext, rendered string) (string, error) {
	var messages []llm.Message
	if retrCtx.Metadata.IsFollowUp && req.SessionID != "" {
		turns := e.memory.History(req.SessionID)
		if len(turns) > dialogueTurns {
			turns = turns[len(turns)-dialogueTurns:]
		}
		for _, t := range turns {
			messages = append(messages,
				llm.Message{Role: llm.RoleUser, Content: t.Query},
				llm.Message{Role: llm.RoleAssistant, Content: t.Answer},
			)
		}
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: userPrompt(rendered, req.Query),
	})

	return e.completer.Complete(ctx, systemPrompt, messages)
}

// refuse generates the low-confidence answer from the gaps and whatever
// context was retrieved. Falls back to a static answer if generation fails,
// so a refusal never turns into a pipeline error.
func (e *Engine) refuse(ctx context.Context, query, rendered string, score ConfidenceScore) string {
	reply, err := e.completer.Complete(ctx, systemPrompt, []llm.Message{{
		Role:    llm.RoleUser,
		Content: lowConfidencePrompt(rendered, query, score.MissingData),
	}})
	if err != nil {
		logger.Warn("Low-confidence generation failed", zap.Error(err))
		return lowConfidenceAnswer(score)
	}
	return reply
}

// recommend makes a dedicated completion for optimization suggestions. Best
// effort: a failure drops the recommendations, never the answer.
func (e *Engine) recommend(ctx context.Context, rendered string) []string {
	reply, err := e.completer.Complete(ctx, systemPrompt, []llm.Message{{
		Role:    llm.RoleUser,
		Content: recommendationPrompt(rendered),
	}})
	if err != nil {
		logger.Warn("Recommendation generation failed", zap.Error(err))
		return nil
	}
	return parseRecommendations(reply)
}

func wantsRecommendations(intent QueryIntent, retrCtx *RetrievalContext) bool {
	switch intent.QueryType {
	case QueryTypePerformance, QueryTypeFinancial, QueryTypeRanking:
		return len(retrCtx.Metrics) >= recMetricFloor
	}
	return false
}

// buildSources lists the entities behind the answer, deduplicated by id and
// capped at maxSources.
func buildSources(retrCtx *RetrievalContext) []Source {
	seen := make(map[string]bool, len(retrCtx.Entities))
	sources := make([]Source, 0, maxSources)
	rangeStr := retrCtx.DateRange.String()

	for _, e := range retrCtx.Entities {
		if e.ID == "" || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		sources = append(sources, Source{
			EntityType: string(e.Kind),
			EntityID:   e.ID,
			EntityName: e.Name,
			DateRange:  rangeStr,
		})
		if len(sources) == maxSources {
			break
		}
	}
	return sources
}

// parseRecommendations pulls up to maxRecommendations bullet or numbered
// lines from the recommendation reply. A "Recommendations" header is
// optional; when present, only lines after it count. A reply with no list
// lines yields an empty slice, which callers treat as "no recommendations".
func parseRecommendations(reply string) []string {
	lines := strings.Split(reply, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "recommendation") {
			lines = lines[i+1:]
			break
		}
	}

	var recs []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		var body string
		switch {
		case strings.HasPrefix(trimmed, "-"):
			body = strings.TrimSpace(trimmed[1:])
		case len(trimmed) > 1 && unicode.IsDigit(rune(trimmed[0])):
			body = strings.TrimSpace(strings.TrimLeft(trimmed, "0123456789.) "))
		default:
			// A non-list line after the first item ends the list.
			if len(recs) > 0 {
				return recs
			}
			continue
		}

		if body != "" {
			recs = append(recs, body)
			if len(recs) == maxRecommendations {
				return recs
			}
		}
	}
	return recs
}

func drillDownAllowed(role string) bool {
	switch strings.ToLower(role) {
	case "analyst", "admin":
		return true
	}
	return false
}
