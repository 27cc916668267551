package rag

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adgraph/backend/pkg/logger"
)

type ConfidenceLevel string

const (
	ConfidenceHigh         ConfidenceLevel = "high"
	ConfidenceMedium       ConfidenceLevel = "medium"
	ConfidenceLow          ConfidenceLevel = "low"
	ConfidenceInsufficient ConfidenceLevel = "insufficient"
)

// ConfidenceScore is the trustworthiness estimate for one query. Factors
// are independently capped and sum to Overall in [0,1]. Immutable once
// produced.
type ConfidenceScore struct {
	Overall     float64
	Level       ConfidenceLevel
	Factors     map[string]float64
	Explanation string
	MissingData []string
}

// DefaultConfidenceThreshold is the insufficiency cutoff. It sits below the
// medium boundary (0.6) on purpose: the historical default of 0.7 made the
// "low" tier unreachable.
const DefaultConfidenceThreshold = 0.4

// Scorer computes confidence from retrieved context. Scores below the
// threshold refuse; [threshold, 0.6) is low; [0.6, 0.8) medium; >=0.8 high.
type Scorer struct {
	threshold float64
}

func NewScorer(threshold float64) *Scorer {
	if threshold <= 0 || threshold >= 0.6 {
		threshold = DefaultConfidenceThreshold
	}
	return &Scorer{threshold: threshold}
}

// Score evaluates the query against the retrieved entities and metrics.
func (s *Scorer) Score(query string, entities []Entity, metrics []MetricRecord, dateRange *DateRange) ConfidenceScore {
	factors := make(map[string]float64, 5)
	var missing []string

	itemCount := len(entities) + len(metrics)

	quantity := scoreDataQuantity(itemCount)
	factors["data_quantity"] = quantity
	if quantity < 0.15 {
		missing = append(missing, "Limited data points available")
	}

	recency := scoreDataRecency(entities, metrics, dateRange)
	factors["data_recency"] = recency
	if recency < 0.1 {
		missing = append(missing, "Data may be outdated or missing recent metrics")
	}

	match := scoreQueryMatch(query, entities, metrics)
	factors["query_match"] = match
	if match < 0.1 {
		missing = append(missing, "Query terms not well matched in available data")
	}

	completeness := scoreDataCompleteness(entities, metrics)
	factors["data_completeness"] = completeness
	if completeness < 0.1 {
		missing = append(missing, "Some expected fields are missing")
	}

	factors["source_diversity"] = scoreSourceDiversity(entities, metrics)

	var overall float64
	for _, v := range factors {
		overall += v
	}

	var level ConfidenceLevel
	switch {
	case overall >= 0.8:
		level = ConfidenceHigh
	case overall >= 0.6:
		level = ConfidenceMedium
	case overall >= s.threshold:
		level = ConfidenceLow
	default:
		level = ConfidenceInsufficient
	}

	score := ConfidenceScore{
		Overall:     overall,
		Level:       level,
		Factors:     factors,
		Explanation: explain(level, missing),
		MissingData: missing,
	}

	logger.Info("Confidence scored",
		zap.Float64("overall", overall),
		zap.String("level", string(level)),
		zap.Int("items", itemCount),
	)

	return score
}

// ShouldRefuse reports whether the refusal policy fires: only the
// insufficient level is refused.
func (s *Scorer) ShouldRefuse(score ConfidenceScore) bool {
	return score.Level == ConfidenceInsufficient
}

// scoreDataQuantity: monotonic step function of item count, capped at 0.3.
func scoreDataQuantity(count int) float64 {
	switch {
	case count == 0:
		return 0.0
	case count >= 20:
		return 0.3
	case count >= 10:
		return 0.25
	case count >= 5:
		return 0.2
	case count >= 2:
		return 0.15
	default:
		return 0.1
	}
}

// scoreDataRecency: capped at 0.2. Items without any dates still earn a
// partial score; with a query range, coverage of both bounds scores full.
func scoreDataRecency(entities []Entity, metrics []MetricRecord, dateRange *DateRange) float64 {
	if len(entities)+len(metrics) == 0 {
		return 0.0
	}

	var hasStart, hasEnd, anyDate bool
	consider := func(dateStr string) {
		if dateStr == "" {
			return
		}
		anyDate = true
		if dateRange == nil {
			return
		}
		start := dateRange.Start.Format("2006-01-02")
		end := dateRange.End.Format("2006-01-02")
		if dateStr >= start {
			hasStart = true
		}
		if dateStr <= end {
			hasEnd = true
		}
	}

	for _, m := range metrics {
		if !m.Date.IsZero() {
			consider(m.Date.Format("2006-01-02"))
		}
	}
	for _, e := range entities {
		for _, key := range []string{"date", "created_at", "updated_at", "start_date"} {
			consider(e.Attr(key))
		}
	}

	if !anyDate {
		return 0.1
	}
	if dateRange == nil {
		return 0.15
	}
	switch {
	case hasStart && hasEnd:
		return 0.2
	case hasStart || hasEnd:
		return 0.15
	default:
		return 0.1
	}
}

var queryStopWords = map[string]bool{
	"what": true, "show": true, "give": true, "tell": true,
}

// scoreQueryMatch: fraction of meaningful query terms found in the
// stringified context, scaled by 0.25 and capped at 0.2.
func scoreQueryMatch(query string, entities []Entity, metrics []MetricRecord) float64 {
	if len(entities)+len(metrics) == 0 || query == "" {
		return 0.0
	}

	terms := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) > 3 && !queryStopWords[word] {
			terms[word] = true
		}
	}
	if len(terms) == 0 {
		return 0.1
	}

	text := contextText(entities, metrics)
	matches := 0
	for term := range terms {
		if strings.Contains(text, term) {
			matches++
		}
	}

	ratio := float64(matches) / float64(len(terms))
	return min(0.2, ratio*0.25)
}

// expectedFields by record kind; unknown entity kinds fall back to the
// generic client shape.
var expectedEntityFields = map[Kind][]string{
	KindCampaign: {"name", "status", "budget", "objective"},
	KindAdSet:    {"name", "status", "budget", "targeting"},
	KindAd:       {"name", "status", "headline"},
}

var fallbackEntityFields = []string{"name", "industry", "budget"}

// scoreDataCompleteness: average per-item fraction of expected fields that
// are present and non-empty, scaled by 0.2 and capped at 0.2.
func scoreDataCompleteness(entities []Entity, metrics []MetricRecord) float64 {
	if len(entities)+len(metrics) == 0 {
		return 0.0
	}

	var scores []float64

	for _, e := range entities {
		expected, ok := expectedEntityFields[e.Kind]
		if !ok {
			expected = fallbackEntityFields
		}
		present := 0
		for _, field := range expected {
			if entityFieldPresent(e, field) {
				present++
			}
		}
		scores = append(scores, float64(present)/float64(len(expected)))
	}

	for _, m := range metrics {
		// Counts and spend are value-typed and always carried; the date is
		// the field that can genuinely be missing on a metric node.
		present := 3
		if !m.Date.IsZero() {
			present = 4
		}
		scores = append(scores, float64(present)/4.0)
	}

	if len(scores) == 0 {
		return 0.1
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))
	return min(0.2, avg*0.2)
}

func entityFieldPresent(e Entity, field string) bool {
	switch field {
	case "name":
		return e.Name != ""
	case "status":
		return e.Status != ""
	default:
		v, ok := e.Attributes[field]
		return ok && v != nil
	}
}

// scoreSourceDiversity: fraction of the four record kinds present across
// the items, scaled by 0.1 and capped at 0.1.
func scoreSourceDiversity(entities []Entity, metrics []MetricRecord) float64 {
	if len(entities)+len(metrics) == 0 {
		return 0.0
	}

	kinds := make(map[Kind]bool)
	for _, e := range entities {
		kinds[e.Kind] = true
	}
	if len(metrics) > 0 {
		kinds[KindMetric] = true
	}

	ratio := float64(len(kinds)) / 4.0
	return min(0.1, ratio*0.1)
}

// contextText flattens entities and metrics into the lower-cased blob that
// query-term matching scans.
func contextText(entities []Entity, metrics []MetricRecord) string {
	var b strings.Builder
	for _, e := range entities {
		b.WriteString(strings.ToLower(e.Name))
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(e.Status))
		b.WriteByte(' ')
		b.WriteString(string(e.Kind))
		b.WriteByte(' ')
		for k, v := range e.Attributes {
			b.WriteString(strings.ToLower(k))
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(fmt.Sprint(v)))
			b.WriteByte(' ')
		}
	}
	for _, m := range metrics {
		b.WriteString(strings.ToLower(m.EntityID))
		b.WriteByte(' ')
		if !m.Date.IsZero() {
			b.WriteString(m.Date.Format("2006-01-02"))
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "impressions %d clicks %d conversions %d spend %.2f ",
			m.Impressions, m.Clicks, m.Conversions, m.Spend)
	}
	return b.String()
}

func explain(level ConfidenceLevel, missing []string) string {
	explanations := map[ConfidenceLevel]string{
		ConfidenceHigh:         "High confidence based on comprehensive data coverage.",
		ConfidenceMedium:       "Medium confidence. Some data points may be missing.",
		ConfidenceLow:          "Low confidence. Limited data available for this query.",
		ConfidenceInsufficient: "Insufficient data to provide a reliable answer.",
	}

	explanation := explanations[level]
	if len(missing) > 0 {
		shown := missing
		if len(shown) > 2 {
			shown = shown[:2]
		}
		explanation += " Missing: " + strings.Join(shown, "; ")
	}
	return explanation
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
