package rag

import (
	"fmt"
	"strings"
)

const (
	formatEntityCap       = 20
	formatMetricEntityCap = 10
	formatHierarchyCap    = 5
)

type entityAggregate struct {
	impressions int64
	clicks      int64
	conversions int64
	spend       float64
	revenue     float64
	hasRevenue  bool
}

// FormatContextForLLM renders the retrieved context as the text block the
// generation service sees. This rendering is the model's only view of the
// data, so it mirrors what the confidence scorer counted: date range,
// entities, per-entity metric aggregates, then hierarchy.
func FormatContextForLLM(ctx *RetrievalContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Data period: %s\n", ctx.DateRange)

	if len(ctx.Entities) > 0 {
		b.WriteString("\n## Campaigns and Entities:\n")
		for i, e := range ctx.Entities {
			if i >= formatEntityCap {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s (ID: %s, Status: %s)\n",
				strings.ToUpper(string(e.Kind)), e.Name, e.ID, e.Status)
			if obj := e.Attr("objective"); obj != "" {
				fmt.Fprintf(&b, "  Objective: %s\n", obj)
			}
			if budget, ok := e.AttrFloat("budget"); ok {
				currency := e.Attr("budget_currency")
				if currency == "" {
					currency = "USD"
				}
				fmt.Fprintf(&b, "  Budget: %.2f %s\n", budget, currency)
			}
		}
	}

	if len(ctx.Metrics) > 0 {
		b.WriteString("\n## Performance Metrics:\n")
		writeMetricAggregates(&b, ctx)
	}

	if len(ctx.Relationships) > 0 {
		b.WriteString("\n## Campaign Structure:\n")
		for i, rel := range ctx.Relationships {
			if i >= formatHierarchyCap {
				break
			}
			fmt.Fprintf(&b, "- Campaign: %s\n", rel.CampaignName)
			if len(rel.AdSets) > 0 {
				names := make([]string, 0, len(rel.AdSets))
				for _, a := range rel.AdSets {
					if a.Name != "" {
						names = append(names, a.Name)
					}
					if len(names) == 5 {
						break
					}
				}
				if len(names) > 0 {
					fmt.Fprintf(&b, "  Ad Sets: %s\n", strings.Join(names, ", "))
				}
			}
		}
	}

	return b.String()
}

// writeMetricAggregates sums each entity's metrics across the context and
// prints the first formatMetricEntityCap entities in first-appearance order.
func writeMetricAggregates(b *strings.Builder, ctx *RetrievalContext) {
	aggregates := make(map[string]*entityAggregate)
	var order []string

	for _, m := range ctx.Metrics {
		agg, ok := aggregates[m.EntityID]
		if !ok {
			agg = &entityAggregate{}
			aggregates[m.EntityID] = agg
			order = append(order, m.EntityID)
		}
		agg.impressions += m.Impressions
		agg.clicks += m.Clicks
		agg.conversions += m.Conversions
		agg.spend += m.Spend
		if m.HasRevenue {
			agg.revenue += m.Revenue
			agg.hasRevenue = true
		}
	}

	names := make(map[string]string, len(ctx.Entities))
	for _, e := range ctx.Entities {
		if _, ok := names[e.ID]; !ok {
			names[e.ID] = e.Name
		}
	}

	for i, entityID := range order {
		if i >= formatMetricEntityCap {
			break
		}
		agg := aggregates[entityID]

		name := names[entityID]
		if name == "" {
			name = entityID
		}

		var ctr float64
		if agg.impressions > 0 {
			ctr = float64(agg.clicks) / float64(agg.impressions) * 100
		}
		var cpc float64
		if agg.clicks > 0 {
			cpc = agg.spend / float64(agg.clicks)
		}

		fmt.Fprintf(b, "\n### %s\n", name)
		fmt.Fprintf(b, "- Impressions: %d\n", agg.impressions)
		fmt.Fprintf(b, "- Clicks: %d\n", agg.clicks)
		fmt.Fprintf(b, "- CTR: %.2f%%\n", ctr)
		fmt.Fprintf(b, "- Conversions: %d\n", agg.conversions)
		fmt.Fprintf(b, "- Spend: $%.2f\n", agg.spend)
		fmt.Fprintf(b, "- CPC: $%.2f\n", cpc)

		// ROAS is undefined without positive spend and revenue; the lines
		// are omitted rather than printed as zero.
		if agg.hasRevenue && agg.spend > 0 && agg.revenue > 0 {
			roas := agg.revenue / agg.spend
			fmt.Fprintf(b, "- Revenue: $%.2f\n", agg.revenue)
			fmt.Fprintf(b, "- ROAS: %.2fx\n", roas)
		}
	}
}
