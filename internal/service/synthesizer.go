package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shop-analytics/internal/analytics"
	"shop-analytics/internal/llm"
	"shop-analytics/internal/models"
	"shop-analytics/internal/util"

	"go.uber.org/zap"
)

const (
	answerTopLimit   = 5
	answerStockLimit = 5
)

// Computation is the deterministic result of running a descriptor against a
// store snapshot. When Available is false Text explains what is missing.
type Computation struct {
	Available bool
	Text      string
	Coverage  analytics.Coverage
	// Substituted is set when the descriptor named something the data does
	// not contain, such as an unknown product, and a broader result was used
	Substituted bool
}

// Answer is the synthesized reply with its confidence
type Answer struct {
	Text       string
	Confidence models.Confidence
}

// AnswerSynthesizer computes descriptor results and phrases them
type AnswerSynthesizer struct {
	llm          llm.Completer
	timeout      time.Duration
	lowStockDays float64
	logger       *zap.Logger
}

// NewAnswerSynthesizer creates a synthesizer backed by completer
func NewAnswerSynthesizer(completer llm.Completer, timeout time.Duration, lowStockDays float64) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		llm:          completer,
		timeout:      timeout,
		lowStockDays: lowStockDays,
		logger:       util.GetLogger(),
	}
}

// Synthesize computes d over ds and asks the model to phrase the result.
// degraded marks an earlier stage that fell back to its default.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, ds *analytics.Dataset, d models.QueryDescriptor, now time.Time, degraded bool) Answer {
	comp := s.Compute(ds, d, now)
	if !comp.Available {
		return Answer{Text: comp.Text, Confidence: models.ConfidenceLow}
	}

	text, err := complete(ctx, s.llm, s.timeout, stageSynthesize, phrasePrompt(question, d, comp.Text))
	if err != nil {
		s.logger.Warn("Answer phrasing degraded", zap.Error(err))
		util.PipelineDegradedTotal.WithLabelValues(stageSynthesize).Inc()
		return Answer{Text: comp.Text, Confidence: models.ConfidenceLow}
	}
	return Answer{Text: text, Confidence: assignConfidence(comp, degraded || d.Defaulted)}
}

// assignConfidence grades a phrased answer: high needs full window coverage
// and no substitution anywhere, otherwise medium. Unavailable computations
// and failed phrasing are low and never reach here.
func assignConfidence(comp Computation, defaulted bool) models.Confidence {
	if !comp.Available {
		return models.ConfidenceLow
	}
	if defaulted || comp.Substituted || comp.Coverage != analytics.CoverageFull {
		return models.ConfidenceMedium
	}
	return models.ConfidenceHigh
}

// Compute evaluates d over ds. It reads nothing outside ds.
func (s *AnswerSynthesizer) Compute(ds *analytics.Dataset, d models.QueryDescriptor, now time.Time) Computation {
	w := analytics.TrailingWindow(now, d.WindowDays)

	switch d.Metric {
	case models.MetricDaysOfStock:
		return s.computeDaysOfStock(ds, d, w)
	case models.MetricRepeatCustomers:
		return computeRepeatCustomers(ds, w)
	case models.MetricUnitsSold:
		return computeUnitsSold(ds, w)
	default:
		return computeOrderMetric(ds, d.Metric, w)
	}
}

func computeOrderMetric(ds *analytics.Dataset, metric models.Metric, w analytics.Window) Computation {
	if len(ds.Orders) == 0 {
		return unavailable("Insufficient data: the store has no order history yet, so %s cannot be computed.", metricLabel(metric))
	}

	coverage, _ := analytics.HistoryCoverage(ds.Orders, w)
	orders := analytics.OrdersIn(ds.Orders, w)
	revenue := analytics.TotalRevenue(orders)

	var text string
	switch metric {
	case models.MetricOrderCount:
		text = fmt.Sprintf("%d orders were placed in the last %d days, totalling %s.", len(orders), w.Days, money(revenue))
	case models.MetricAverageOrderValue:
		if len(orders) == 0 {
			return unavailable("Insufficient data: there were no orders in the last %d days, so average order value cannot be computed.", w.Days)
		}
		text = fmt.Sprintf("Average order value over the last %d days was %s across %d orders.",
			w.Days, money(revenue/float64(len(orders))), len(orders))
	default:
		text = fmt.Sprintf("Revenue over the last %d days was %s from %d orders.", w.Days, money(revenue), len(orders))
	}
	return Computation{Available: true, Text: text, Coverage: coverage}
}

func computeUnitsSold(ds *analytics.Dataset, w analytics.Window) Computation {
	if len(ds.Orders) == 0 {
		return unavailable("Insufficient data: the store has no order history yet, so units sold cannot be computed.")
	}

	coverage, _ := analytics.HistoryCoverage(ds.Orders, w)
	top := analytics.TopProductsByUnits(ds.Products, analytics.OrdersIn(ds.Orders, w), answerTopLimit)
	if len(top) == 0 {
		return unavailable("Insufficient data: no products were sold in the last %d days.", w.Days)
	}

	parts := make([]string, 0, len(top))
	for _, p := range top {
		parts = append(parts, fmt.Sprintf("%s (%d units, %s)", p.Title, p.QuantitySold, money(p.Revenue)))
	}
	text := fmt.Sprintf("Top selling products over the last %d days: %s.", w.Days, strings.Join(parts, ", "))
	return Computation{Available: true, Text: text, Coverage: coverage}
}

func (s *AnswerSynthesizer) computeDaysOfStock(ds *analytics.Dataset, d models.QueryDescriptor, w analytics.Window) Computation {
	if len(ds.Products) == 0 {
		return unavailable("Insufficient data: the store has no products, so no stock projection is available.")
	}
	if len(ds.Orders) == 0 {
		return unavailable("Insufficient data: the store has no sales history, so no stock projection is available.")
	}

	levels, coverage := analytics.StockLevels(ds, w)

	var prefix string
	if d.Product != "" {
		if level, ok := findLevel(levels, d.Product); ok {
			return projectOne(level, coverage, w)
		}
		prefix = fmt.Sprintf("No product matching %q was found, so store-wide projections are shown. ", d.Product)
	}

	var projected, unprojected []analytics.StockLevel
	for _, l := range levels {
		if l.DaysOfStock == nil {
			unprojected = append(unprojected, l)
		} else {
			projected = append(projected, l)
		}
	}
	if len(projected) == 0 {
		return unavailable("%sNo projection available: none of the products sold any units in the last %d days.", prefix, w.Days)
	}

	analytics.SortByDaysOfStock(projected)
	low := analytics.LowStock(levels, s.lowStockDays, 0)

	shown := projected
	if len(shown) > answerStockLimit {
		shown = shown[:answerStockLimit]
	}
	parts := make([]string, 0, len(shown))
	for _, l := range shown {
		parts = append(parts, fmt.Sprintf("%s (%d in stock, about %.1f days)", l.Title, l.Inventory, *l.DaysOfStock))
	}

	var b strings.Builder
	b.WriteString(prefix)
	fmt.Fprintf(&b, "Based on sales over the last %d days, the lowest stock projections are: %s.", w.Days, strings.Join(parts, ", "))
	fmt.Fprintf(&b, " %d products need attention (under %.0f days of stock or at their reorder threshold).", len(low), s.lowStockDays)
	if len(unprojected) > 0 {
		fmt.Fprintf(&b, " %d products had no sales in the window, so no projection is available for them.", len(unprojected))
	}
	return Computation{Available: true, Text: b.String(), Coverage: coverage, Substituted: prefix != ""}
}

func projectOne(l analytics.StockLevel, coverage analytics.Coverage, w analytics.Window) Computation {
	if l.DaysOfStock == nil {
		return unavailable("No projection available for %s: it sold no units in the last %d days (%d in stock).",
			l.Title, w.Days, l.Inventory)
	}
	text := fmt.Sprintf("%s has %d units in stock and sold %d units over the last %d days (about %.2f per day), which is roughly %.1f days of stock.",
		l.Title, l.Inventory, l.UnitsSold, l.SalesDays, l.DailyVelocity, *l.DaysOfStock)
	if l.Inventory <= l.ReorderThreshold {
		text += fmt.Sprintf(" It is at or below its reorder threshold of %d.", l.ReorderThreshold)
	}
	return Computation{Available: true, Text: text, Coverage: coverage}
}

// findLevel matches a product title exactly first, then by substring,
// ignoring case
func findLevel(levels []analytics.StockLevel, product string) (analytics.StockLevel, bool) {
	want := strings.ToLower(strings.TrimSpace(product))
	for _, l := range levels {
		if strings.ToLower(l.Title) == want {
			return l, true
		}
	}
	for _, l := range levels {
		title := strings.ToLower(l.Title)
		if strings.Contains(title, want) || strings.Contains(want, title) {
			return l, true
		}
	}
	return analytics.StockLevel{}, false
}

func computeRepeatCustomers(ds *analytics.Dataset, w analytics.Window) Computation {
	if len(ds.Customers) == 0 {
		return unavailable("Insufficient data: the store has no customers yet, so repeat purchasing cannot be computed.")
	}

	coverage, _ := analytics.HistoryCoverage(ds.Orders, w)
	stats := analytics.Customers(ds.Customers, w)

	text := fmt.Sprintf("%d of %d customers have ordered more than once (%.1f%% repeat rate).",
		stats.Repeat, stats.Total, stats.RetentionRate)
	if stats.TopCustomer != "" {
		text += fmt.Sprintf(" The most loyal customer is %s with %d orders.", stats.TopCustomer, stats.MostOrders)
	}
	text += fmt.Sprintf(" %d customers ordered in the last %d days.", stats.ActiveInWindow, w.Days)
	return Computation{Available: true, Text: text, Coverage: coverage}
}

func unavailable(format string, args ...interface{}) Computation {
	return Computation{Text: fmt.Sprintf(format, args...), Coverage: analytics.CoverageNone}
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func metricLabel(m models.Metric) string {
	switch m {
	case models.MetricOrderCount:
		return "order count"
	case models.MetricAverageOrderValue:
		return "average order value"
	default:
		return string(m)
	}
}

func phrasePrompt(question string, d models.QueryDescriptor, computed string) string {
	var b strings.Builder
	b.WriteString("You are an analytics assistant for an online store owner.\n")
	fmt.Fprintf(&b, "The owner asked: %q\n", question)
	fmt.Fprintf(&b, "These figures were computed from the store's data (%s, last %d days):\n", d.Metric, d.WindowDays)
	b.WriteString(computed)
	b.WriteString("\nAnswer in at most four plain sentences using only these figures. ")
	b.WriteString("Do not invent numbers. Add one practical recommendation if it fits.")
	return b.String()
}
