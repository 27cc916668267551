package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/pkg/circuitbreaker"
	"github.com/adgraph/backend/pkg/logger"
	"github.com/adgraph/backend/pkg/retry"
)

// Client wraps the graph database behind the tenant-scoped read surface plus
// the write operations the seeder uses. Every read query filters by client id
// inside Cypher; callers never see unscoped data.
type Client struct {
	driver      neo4j.DriverWithContext
	database    string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.New("neo4j", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          20 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if database == "" {
		database = "neo4j"
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri))

	return &Client{
		driver:      driver,
		database:    database,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(session)
		})
	})
}

// Campaigns returns a client's campaigns, newest first. An empty channel
// matches all channels.
func (c *Client) Campaigns(ctx context.Context, clientID, channel string, limit int) ([]rag.Entity, error) {
	query := `
		MATCH (c:Client {id: $client_id})-[:OWNS]->(camp:Campaign)
		WHERE $channel = '' OR camp.channel = $channel
		RETURN camp
		ORDER BY camp.start_date DESC
		LIMIT $limit
	`

	return c.queryEntities(ctx, query, map[string]interface{}{
		"client_id": clientID,
		"channel":   channel,
		"limit":     limit,
	}, "camp", rag.KindCampaign)
}

func (c *Client) AdSets(ctx context.Context, clientID string, limit int) ([]rag.Entity, error) {
	query := `
		MATCH (a:AdSet {client_id: $client_id})
		RETURN a
		ORDER BY a.name
		LIMIT $limit
	`

	return c.queryEntities(ctx, query, map[string]interface{}{
		"client_id": clientID,
		"limit":     limit,
	}, "a", rag.KindAdSet)
}

func (c *Client) SearchCampaignsByName(ctx context.Context, clientID, term string, limit int) ([]rag.Entity, error) {
	query := `
		MATCH (c:Client {id: $client_id})-[:OWNS]->(camp:Campaign)
		WHERE toLower(camp.name) CONTAINS toLower($term)
		RETURN camp
		LIMIT $limit
	`

	return c.queryEntities(ctx, query, map[string]interface{}{
		"client_id": clientID,
		"term":      term,
		"limit":     limit,
	}, "camp", rag.KindCampaign)
}

func (c *Client) queryEntities(ctx context.Context, query string, params map[string]interface{}, alias string, kind rag.Kind) ([]rag.Entity, error) {
	var entities []rag.Entity

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, query, params)
		if err != nil {
			return fmt.Errorf("failed to query entities: %w", err)
		}

		entities = entities[:0]
		for result.Next(ctx) {
			value, ok := result.Record().Get(alias)
			if !ok {
				continue
			}
			node, ok := value.(neo4j.Node)
			if !ok {
				continue
			}
			entities = append(entities, entityFromNode(node, kind))
		}

		if err := result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return entities, nil
}

// Metrics returns the client's daily metric rows inside the range, newest
// first. Dates are stored as ISO strings, so lexicographic comparison is
// chronological.
func (c *Client) Metrics(ctx context.Context, clientID string, dateRange rag.DateRange, limit int) ([]rag.MetricRecord, error) {
	query := `
		MATCH (m:Metric {client_id: $client_id})
		WHERE m.date >= $start AND m.date <= $end
		RETURN m
		ORDER BY m.date DESC
		LIMIT $limit
	`

	var metrics []rag.MetricRecord

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, query, map[string]interface{}{
			"client_id": clientID,
			"start":     dateRange.Start.Format("2006-01-02"),
			"end":       dateRange.End.Format("2006-01-02"),
			"limit":     limit,
		})
		if err != nil {
			return fmt.Errorf("failed to query metrics: %w", err)
		}

		metrics = metrics[:0]
		for result.Next(ctx) {
			value, ok := result.Record().Get("m")
			if !ok {
				continue
			}
			node, ok := value.(neo4j.Node)
			if !ok {
				continue
			}
			metrics = append(metrics, metricFromNode(node))
		}

		if err := result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return metrics, nil
}

// Hierarchy returns one-level child breakdowns for the given campaigns.
func (c *Client) Hierarchy(ctx context.Context, clientID string, campaignIDs []string) ([]rag.HierarchySummary, error) {
	query := `
		MATCH (camp:Campaign {client_id: $client_id})
		WHERE camp.id IN $campaign_ids
		OPTIONAL MATCH (camp)-[:CONTAINS]->(a:AdSet)
		OPTIONAL MATCH (a)-[:CONTAINS]->(ad:Ad)
		RETURN camp.id AS campaign_id, camp.name AS campaign_name,
		       collect(DISTINCT {id: a.id, name: a.name}) AS adsets,
		       collect(DISTINCT {id: ad.id, name: ad.name}) AS ads
	`

	var summaries []rag.HierarchySummary

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		result, err := session.Run(ctx, query, map[string]interface{}{
			"client_id":    clientID,
			"campaign_ids": campaignIDs,
		})
		if err != nil {
			return fmt.Errorf("failed to query hierarchy: %w", err)
		}

		summaries = summaries[:0]
		for result.Next(ctx) {
			record := result.Record()

			campaignID, _ := record.Get("campaign_id")
			campaignName, _ := record.Get("campaign_name")
			adsets, _ := record.Get("adsets")
			ads, _ := record.Get("ads")

			summaries = append(summaries, rag.HierarchySummary{
				CampaignID:   asString(campaignID),
				CampaignName: asString(campaignName),
				AdSets:       childRefs(adsets),
				Ads:          childRefs(ads),
			})
		}

		if err := result.Err(); err != nil {
			return fmt.Errorf("error iterating results: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Hierarchy retrieved",
		zap.String("client_id", clientID),
		zap.Int("campaigns", len(summaries)),
	)

	return summaries, nil
}

func entityFromNode(node neo4j.Node, kind rag.Kind) rag.Entity {
	entity := rag.Entity{
		Kind:       kind,
		Attributes: make(map[string]any, len(node.Props)),
	}

	for key, value := range node.Props {
		switch key {
		case "id":
			entity.ID = asString(value)
		case "name":
			entity.Name = asString(value)
		case "status":
			entity.Status = asString(value)
		default:
			entity.Attributes[key] = value
		}
	}

	return entity
}

func metricFromNode(node neo4j.Node) rag.MetricRecord {
	m := rag.MetricRecord{
		ID:       asString(node.Props["id"]),
		EntityID: asString(node.Props["entity_id"]),
		Currency: asString(node.Props["currency"]),
	}

	switch asString(node.Props["entity_kind"]) {
	case string(rag.KindAdSet):
		m.EntityKind = rag.KindAdSet
	case string(rag.KindAd):
		m.EntityKind = rag.KindAd
	default:
		m.EntityKind = rag.KindCampaign
	}

	if dateStr := asString(node.Props["date"]); dateStr != "" {
		if date, err := time.Parse("2006-01-02", dateStr); err == nil {
			m.Date = date
		}
	}

	m.Impressions = asInt64(node.Props["impressions"])
	m.Clicks = asInt64(node.Props["clicks"])
	m.Conversions = asInt64(node.Props["conversions"])
	m.Spend = asFloat64(node.Props["spend"])

	if revenue, ok := node.Props["revenue"]; ok && revenue != nil {
		m.Revenue = asFloat64(revenue)
		m.HasRevenue = true
	}

	return m
}

func childRefs(value interface{}) []rag.ChildRef {
	list, ok := value.([]interface{})
	if !ok {
		return nil
	}

	refs := make([]rag.ChildRef, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ref := rag.ChildRef{
			ID:   asString(entry["id"]),
			Name: asString(entry["name"]),
		}
		// OPTIONAL MATCH misses collect as {id: null, name: null}.
		if ref.ID == "" && ref.Name == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func asString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func asInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func asFloat64(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
