package rag

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/adgraph/backend/pkg/logger"
)

const (
	entityCategoryCap = 50
	maxSearchTerms    = 3
	searchTermResults = 10
	semanticResults   = 5
	metricRowCap      = 500
	hierarchyCap      = 20
	defaultMaxResults = 100
)

// Retriever builds a RetrievalContext from the tenant-scoped graph. The
// EntitySearcher is optional; when nil, retrieval is purely graph reads.
type Retriever struct {
	store      GraphStore
	searcher   EntitySearcher
	maxResults int
}

func NewRetriever(store GraphStore, searcher EntitySearcher, maxResults int) *Retriever {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Retriever{
		store:      store,
		searcher:   searcher,
		maxResults: maxResults,
	}
}

// Retrieve gathers entities, metrics, and hierarchy summaries relevant to
// the query. Empty results are a valid low-confidence outcome; only graph
// access failures are errors, and those abort the whole query.
func (r *Retriever) Retrieve(ctx context.Context, query, clientID string, dateRange *DateRange, maxResults int) (*RetrievalContext, error) {
	if maxResults <= 0 {
		maxResults = r.maxResults
	}

	intent := ClassifyIntent(query)

	var resolved DateRange
	if dateRange != nil {
		resolved = *dateRange
	} else {
		resolved = ResolveDateRange(intent.TimePeriod, time.Now().UTC())
	}

	entities, err := r.retrieveEntities(ctx, query, clientID, intent)
	if err != nil {
		return nil, fmt.Errorf("retrieve entities: %w", err)
	}

	entityIDs := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.ID != "" {
			entityIDs = append(entityIDs, e.ID)
		}
	}

	metrics, err := r.retrieveMetrics(ctx, clientID, resolved, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("retrieve metrics: %w", err)
	}

	relationships, err := r.retrieveRelationships(ctx, clientID, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("retrieve relationships: %w", err)
	}

	logger.Info("Context retrieved",
		zap.String("client_id", clientID),
		zap.Int("entities", len(entities)),
		zap.Int("metrics", len(metrics)),
		zap.Int("relationships", len(relationships)),
	)

	return &RetrievalContext{
		Query:         query,
		ClientID:      clientID,
		Entities:      truncateEntities(entities, maxResults),
		Metrics:       truncateMetrics(metrics, maxResults*10),
		Relationships: truncateHierarchies(relationships, maxResults),
		DateRange:     resolved,
		Metadata: ContextMetadata{
			Intent:      intent,
			RetrievedAt: time.Now().UTC(),
		},
	}, nil
}

func (r *Retriever) retrieveEntities(ctx context.Context, query, clientID string, intent QueryIntent) ([]Entity, error) {
	var entities []Entity
	seen := make(map[string]bool)

	add := func(list []Entity) {
		for _, e := range list {
			if e.ID == "" || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			entities = append(entities, e)
		}
	}

	if intent.EntityType == EntityFilterAll || intent.EntityType == EntityFilterCampaign {
		campaigns, err := r.store.Campaigns(ctx, clientID, string(intent.Channel), entityCategoryCap)
		if err != nil {
			return nil, err
		}
		add(campaigns)
	}

	if intent.EntityType == EntityFilterAll || intent.EntityType == EntityFilterAdSet {
		adsets, err := r.store.AdSets(ctx, clientID, entityCategoryCap)
		if err != nil {
			return nil, err
		}
		add(adsets)
	}

	for _, term := range searchTerms(query) {
		matches, err := r.store.SearchCampaignsByName(ctx, clientID, term, searchTermResults)
		if err != nil {
			return nil, err
		}
		add(matches)
	}

	if r.searcher != nil {
		similar, err := r.searcher.SearchEntities(ctx, clientID, query, semanticResults)
		if err != nil {
			// The semantic index is an enrichment, not a source of truth;
			// its failures must not take down graph-backed retrieval.
			logger.Warn("Semantic entity search failed", zap.Error(err))
		} else {
			add(similar)
		}
	}

	return entities, nil
}

func (r *Retriever) retrieveMetrics(ctx context.Context, clientID string, dateRange DateRange, entityIDs []string) ([]MetricRecord, error) {
	metrics, err := r.store.Metrics(ctx, clientID, dateRange, metricRowCap)
	if err != nil {
		return nil, err
	}

	if len(entityIDs) == 0 {
		return metrics, nil
	}

	ids := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		ids[id] = true
	}

	filtered := make([]MetricRecord, 0, len(metrics))
	for _, m := range metrics {
		if ids[m.EntityID] {
			filtered = append(filtered, m)
		}
	}

	// An over-specific entity filter must not zero out the metrics; fall
	// back to the unfiltered client-scoped list.
	if len(filtered) == 0 {
		return metrics, nil
	}
	return filtered, nil
}

func (r *Retriever) retrieveRelationships(ctx context.Context, clientID string, entityIDs []string) ([]HierarchySummary, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	if len(entityIDs) > hierarchyCap {
		entityIDs = entityIDs[:hierarchyCap]
	}
	return r.store.Hierarchy(ctx, clientID, entityIDs)
}

// RetrieveForFollowUp runs a fresh retrieval against the previous context's
// date range and merges: entities and metrics union new-first with dedup by
// id; relationships concatenate (duplicates tolerated, they are display
// hints only).
func (r *Retriever) RetrieveForFollowUp(ctx context.Context, query, clientID string, previous *RetrievalContext) (*RetrievalContext, error) {
	fresh, err := r.Retrieve(ctx, query, clientID, &previous.DateRange, 0)
	if err != nil {
		return nil, err
	}

	seenEntities := make(map[string]bool, len(fresh.Entities))
	entities := make([]Entity, 0, len(fresh.Entities)+len(previous.Entities))
	for _, e := range fresh.Entities {
		seenEntities[e.ID] = true
		entities = append(entities, e)
	}
	for _, e := range previous.Entities {
		if !seenEntities[e.ID] {
			seenEntities[e.ID] = true
			entities = append(entities, e)
		}
	}

	seenMetrics := make(map[string]bool, len(fresh.Metrics))
	metrics := make([]MetricRecord, 0, len(fresh.Metrics)+len(previous.Metrics))
	for _, m := range fresh.Metrics {
		seenMetrics[m.ID] = true
		metrics = append(metrics, m)
	}
	for _, m := range previous.Metrics {
		if !seenMetrics[m.ID] {
			seenMetrics[m.ID] = true
			metrics = append(metrics, m)
		}
	}

	relationships := make([]HierarchySummary, 0, len(fresh.Relationships)+len(previous.Relationships))
	relationships = append(relationships, fresh.Relationships...)
	relationships = append(relationships, previous.Relationships...)

	merged := &RetrievalContext{
		Query:         query,
		ClientID:      clientID,
		Entities:      truncateEntities(entities, r.maxResults),
		Metrics:       truncateMetrics(metrics, r.maxResults*10),
		Relationships: relationships,
		DateRange:     fresh.DateRange,
		Metadata: ContextMetadata{
			Intent:        fresh.Metadata.Intent,
			RetrievedAt:   fresh.Metadata.RetrievedAt,
			IsFollowUp:    true,
			PreviousQuery: previous.Query,
		},
	}
	return merged, nil
}

// searchTerms extracts up to maxSearchTerms alphabetic tokens longer than
// three characters for name matching.
func searchTerms(query string) []string {
	var terms []string
	for _, word := range strings.Fields(query) {
		if len(word) <= 3 || !isAlpha(word) {
			continue
		}
		terms = append(terms, word)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(s) > 0
}

func truncateEntities(list []Entity, max int) []Entity {
	if len(list) > max {
		return list[:max]
	}
	return list
}

func truncateMetrics(list []MetricRecord, max int) []MetricRecord {
	if len(list) > max {
		return list[:max]
	}
	return list
}

func truncateHierarchies(list []HierarchySummary, max int) []HierarchySummary {
	if len(list) > max {
		return list[:max]
	}
	return list
}

// FollowUpPolicy decides whether a query continues the previous turn. The
// indicator list is intentionally configuration: the defaults misfire often
// and callers are expected to tune them.
type FollowUpPolicy struct {
	Indicators []string
}

func DefaultFollowUpPolicy() FollowUpPolicy {
	return FollowUpPolicy{Indicators: []string{
		"more", "detail", "explain", "why", "how", "what about",
		"and", "also", "that", "this", "these", "those",
		"it", "they", "them",
	}}
}

// IsFollowUp reports whether the query contains a continuation indicator.
// Single words match whole tokens only; multi-word indicators match as
// phrases. A previous context must also exist for the orchestrator to treat
// the query as a follow-up.
func (p FollowUpPolicy) IsFollowUp(query string) bool {
	q := strings.ToLower(query)
	for _, ind := range p.Indicators {
		if strings.Contains(ind, " ") {
			if strings.Contains(q, ind) {
				return true
			}
		} else if hasWord(q, ind) {
			return true
		}
	}
	return false
}
