package rag

import (
	"context"
	"time"
)

// Kind tags every retrieved item with its graph record type. Set once at
// retrieval time so downstream scoring never re-derives type from content.
type Kind string

const (
	KindCampaign Kind = "campaign"
	KindAdSet    Kind = "adset"
	KindAd       Kind = "ad"
	KindMetric   Kind = "metric"
)

// Entity is a campaign, ad set, or ad node. Type-specific attributes
// (objective, budget, targeting, headline, ...) live in the open Attributes
// map; the graph store owns the shape and this package reads it as-is.
type Entity struct {
	ID         string
	Kind       Kind
	Name       string
	Status     string
	Attributes map[string]any
}

// Attr returns a string attribute, or "" when absent or non-string.
func (e Entity) Attr(key string) string {
	if v, ok := e.Attributes[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// AttrFloat returns a numeric attribute, tolerating int-typed graph values.
func (e Entity) AttrFloat(key string) (float64, bool) {
	switch v := e.Attributes[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// MetricRecord is one entity's performance on one day. Revenue is optional;
// ROAS is undefined (not zero) unless both spend and revenue are positive.
type MetricRecord struct {
	ID          string
	EntityKind  Kind
	EntityID    string
	Date        time.Time
	Impressions int64
	Clicks      int64
	Conversions int64
	Spend       float64
	Currency    string
	Revenue     float64
	HasRevenue  bool
}

// HierarchySummary is a one-level child breakdown for a campaign, used for
// drill-down answers. Children are display hints, not facts: duplicates from
// follow-up merges are tolerated.
type HierarchySummary struct {
	CampaignID   string
	CampaignName string
	AdSets       []ChildRef
	Ads          []ChildRef
}

type ChildRef struct {
	ID   string
	Name string
}

// DateRange is an inclusive pair of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + " to " + r.End.Format("2006-01-02")
}

// RetrievalContext is the unit of work for one query: everything read from
// the graph plus how it was read. Built fresh per query (or follow-up merge)
// and never mutated afterwards.
type RetrievalContext struct {
	Query         string
	ClientID      string
	Entities      []Entity
	Metrics       []MetricRecord
	Relationships []HierarchySummary
	DateRange     DateRange
	Metadata      ContextMetadata
}

type ContextMetadata struct {
	Intent        QueryIntent
	RetrievedAt   time.Time
	IsFollowUp    bool
	PreviousQuery string
}

// GraphStore is the tenant-scoped read/write surface of the graph database.
// Every read is filtered by clientID; returning another tenant's records is
// a correctness violation, not a degradation. Failures surface as errors,
// never as silently empty results.
type GraphStore interface {
	Campaigns(ctx context.Context, clientID, channel string, limit int) ([]Entity, error)
	AdSets(ctx context.Context, clientID string, limit int) ([]Entity, error)
	SearchCampaignsByName(ctx context.Context, clientID, term string, limit int) ([]Entity, error)
	Metrics(ctx context.Context, clientID string, dateRange DateRange, limit int) ([]MetricRecord, error)
	Hierarchy(ctx context.Context, clientID string, campaignIDs []string) ([]HierarchySummary, error)
}

// EntitySearcher finds entities by semantic similarity to the query text.
// Optional collaborator: retrieval works identically without one.
type EntitySearcher interface {
	SearchEntities(ctx context.Context, clientID, query string, limit int) ([]Entity, error)
}
