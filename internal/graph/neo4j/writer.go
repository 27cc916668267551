package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/adgraph/backend/pkg/logger"
)

// Write-side records used by the seeder. Dates are ISO strings to match the
// read queries' lexicographic range filters.

type ClientRecord struct {
	ID       string
	Name     string
	Industry string
}

type CampaignRecord struct {
	ID        string
	ClientID  string
	Name      string
	Status    string
	Channel   string
	Objective string
	Budget    float64
	Currency  string
	StartDate string
	EndDate   string
}

type AdSetRecord struct {
	ID         string
	ClientID   string
	CampaignID string
	Name       string
	Status     string
	Budget     float64
	Targeting  string
}

type AdRecord struct {
	ID       string
	ClientID string
	AdSetID  string
	Name     string
	Status   string
	Headline string
}

type MetricRow struct {
	ID          string
	ClientID    string
	EntityKind  string
	EntityID    string
	Date        string
	Impressions int64
	Clicks      int64
	Conversions int64
	Spend       float64
	Currency    string
	Revenue     *float64
}

// InitSchema creates the uniqueness constraints the upserts rely on.
func (c *Client) InitSchema(ctx context.Context) error {
	constraints := []string{
		`CREATE CONSTRAINT client_id IF NOT EXISTS FOR (c:Client) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT campaign_id IF NOT EXISTS FOR (c:Campaign) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT adset_id IF NOT EXISTS FOR (a:AdSet) REQUIRE a.id IS UNIQUE`,
		`CREATE CONSTRAINT ad_id IF NOT EXISTS FOR (a:Ad) REQUIRE a.id IS UNIQUE`,
		`CREATE CONSTRAINT metric_id IF NOT EXISTS FOR (m:Metric) REQUIRE m.id IS UNIQUE`,
	}

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		for _, constraint := range constraints {
			if _, err := session.Run(ctx, constraint, nil); err != nil {
				return fmt.Errorf("failed to create constraint: %w", err)
			}
		}
		return nil
	})
}

func (c *Client) UpsertClient(ctx context.Context, rec ClientRecord) error {
	query := `
		MERGE (c:Client {id: $id})
		SET c.name = $name, c.industry = $industry
	`

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, query, map[string]interface{}{
			"id":       rec.ID,
			"name":     rec.Name,
			"industry": rec.Industry,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert client: %w", err)
		}
		return nil
	})
}

func (c *Client) UpsertCampaign(ctx context.Context, rec CampaignRecord) error {
	query := `
		MATCH (c:Client {id: $client_id})
		MERGE (camp:Campaign {id: $id})
		SET camp.client_id = $client_id,
		    camp.name = $name,
		    camp.status = $status,
		    camp.channel = $channel,
		    camp.objective = $objective,
		    camp.budget = $budget,
		    camp.budget_currency = $currency,
		    camp.start_date = $start_date,
		    camp.end_date = $end_date
		MERGE (c)-[:OWNS]->(camp)
	`

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, query, map[string]interface{}{
			"id":         rec.ID,
			"client_id":  rec.ClientID,
			"name":       rec.Name,
			"status":     rec.Status,
			"channel":    rec.Channel,
			"objective":  rec.Objective,
			"budget":     rec.Budget,
			"currency":   rec.Currency,
			"start_date": rec.StartDate,
			"end_date":   rec.EndDate,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert campaign: %w", err)
		}
		return nil
	})
}

func (c *Client) UpsertAdSet(ctx context.Context, rec AdSetRecord) error {
	query := `
		MATCH (camp:Campaign {id: $campaign_id})
		MERGE (a:AdSet {id: $id})
		SET a.client_id = $client_id,
		    a.campaign_id = $campaign_id,
		    a.name = $name,
		    a.status = $status,
		    a.budget = $budget,
		    a.targeting = $targeting
		MERGE (camp)-[:CONTAINS]->(a)
	`

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, query, map[string]interface{}{
			"id":          rec.ID,
			"client_id":   rec.ClientID,
			"campaign_id": rec.CampaignID,
			"name":        rec.Name,
			"status":      rec.Status,
			"budget":      rec.Budget,
			"targeting":   rec.Targeting,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert ad set: %w", err)
		}
		return nil
	})
}

func (c *Client) UpsertAd(ctx context.Context, rec AdRecord) error {
	query := `
		MATCH (a:AdSet {id: $adset_id})
		MERGE (ad:Ad {id: $id})
		SET ad.client_id = $client_id,
		    ad.adset_id = $adset_id,
		    ad.name = $name,
		    ad.status = $status,
		    ad.headline = $headline
		MERGE (a)-[:CONTAINS]->(ad)
	`

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, query, map[string]interface{}{
			"id":        rec.ID,
			"client_id": rec.ClientID,
			"adset_id":  rec.AdSetID,
			"name":      rec.Name,
			"status":    rec.Status,
			"headline":  rec.Headline,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert ad: %w", err)
		}
		return nil
	})
}

// InsertMetrics writes daily rows in one UNWIND batch per call.
func (c *Client) InsertMetrics(ctx context.Context, rows []MetricRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		UNWIND $rows AS row
		MERGE (m:Metric {id: row.id})
		SET m.client_id = row.client_id,
		    m.entity_kind = row.entity_kind,
		    m.entity_id = row.entity_id,
		    m.date = row.date,
		    m.impressions = row.impressions,
		    m.clicks = row.clicks,
		    m.conversions = row.conversions,
		    m.spend = row.spend,
		    m.currency = row.currency,
		    m.revenue = row.revenue
	`

	batch := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		entry := map[string]interface{}{
			"id":          row.ID,
			"client_id":   row.ClientID,
			"entity_kind": row.EntityKind,
			"entity_id":   row.EntityID,
			"date":        row.Date,
			"impressions": row.Impressions,
			"clicks":      row.Clicks,
			"conversions": row.Conversions,
			"spend":       row.Spend,
			"currency":    row.Currency,
		}
		if row.Revenue != nil {
			entry["revenue"] = *row.Revenue
		} else {
			entry["revenue"] = nil
		}
		batch = append(batch, entry)
	}

	err := c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		if _, err := session.Run(ctx, query, map[string]interface{}{"rows": batch}); err != nil {
			return fmt.Errorf("failed to insert metrics: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Metrics inserted", zap.Int("rows", len(rows)))
	return nil
}

// DeleteClientData removes one client and everything hanging off it.
func (c *Client) DeleteClientData(ctx context.Context, clientID string) error {
	queries := []string{
		`MATCH (m:Metric {client_id: $client_id}) DETACH DELETE m`,
		`MATCH (ad:Ad {client_id: $client_id}) DETACH DELETE ad`,
		`MATCH (a:AdSet {client_id: $client_id}) DETACH DELETE a`,
		`MATCH (camp:Campaign {client_id: $client_id}) DETACH DELETE camp`,
		`MATCH (c:Client {id: $client_id}) DETACH DELETE c`,
	}

	return c.executeWithRetry(ctx, func(session neo4j.SessionWithContext) error {
		for _, query := range queries {
			if _, err := session.Run(ctx, query, map[string]interface{}{"client_id": clientID}); err != nil {
				return fmt.Errorf("failed to delete client data: %w", err)
			}
		}
		return nil
	})
}
