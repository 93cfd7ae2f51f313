package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-analytics/internal/llm"
	"shop-analytics/internal/models"
	"shop-analytics/internal/util"

	"go.uber.org/zap"
)

const maxWindowDays = 365

var errNoJSONObject = errors.New("no JSON object in completion")

// QueryPlanner turns a classified question into a bounded query descriptor
type QueryPlanner struct {
	llm               llm.Completer
	timeout           time.Duration
	defaultWindowDays int
	logger            *zap.Logger
}

// NewQueryPlanner creates a planner. defaultWindowDays is used whenever the
// question does not name a window.
func NewQueryPlanner(completer llm.Completer, timeout time.Duration, defaultWindowDays int) *QueryPlanner {
	if defaultWindowDays <= 0 {
		defaultWindowDays = 30
	}
	return &QueryPlanner{
		llm:               completer,
		timeout:           timeout,
		defaultWindowDays: defaultWindowDays,
		logger:            util.GetLogger(),
	}
}

// rawDescriptor is the JSON shape the model is asked to produce
type rawDescriptor struct {
	Entity     string `json:"entity"`
	Metric     string `json:"metric"`
	WindowDays *int   `json:"window_days"`
	Product    string `json:"product"`
}

// Describe never fails: on any model or parse error the intent default is used
func (p *QueryPlanner) Describe(ctx context.Context, question string, intent models.Intent) models.QueryDescriptor {
	text, err := complete(ctx, p.llm, p.timeout, stageDescribe, describePrompt(question, intent))
	if err == nil {
		var d models.QueryDescriptor
		if d, err = p.parse(text, intent); err == nil {
			return d
		}
	}

	p.logger.Warn("Query description degraded",
		zap.String("intent", string(intent)),
		zap.Error(err))
	util.PipelineDegradedTotal.WithLabelValues(stageDescribe).Inc()
	return p.Default(intent)
}

// Default is the descriptor used when nothing usable came back for intent
func (p *QueryPlanner) Default(intent models.Intent) models.QueryDescriptor {
	metric := intent.DefaultMetric()
	d := models.QueryDescriptor{
		Entity:     metric.Entity(),
		Metric:     metric,
		WindowDays: p.defaultWindowDays,
		Defaulted:  true,
	}
	d.ShopifyQL = RenderShopifyQL(d)
	return d
}

func (p *QueryPlanner) parse(text string, intent models.Intent) (models.QueryDescriptor, error) {
	obj, err := extractJSONObject(text)
	if err != nil {
		return models.QueryDescriptor{}, err
	}
	var raw rawDescriptor
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return models.QueryDescriptor{}, fmt.Errorf("failed to decode descriptor: %w", err)
	}

	var d models.QueryDescriptor
	if strings.TrimSpace(raw.Metric) == "" {
		d.Metric = intent.DefaultMetric()
		d.Defaulted = true
	} else {
		d.Metric, err = models.ParseMetric(raw.Metric)
		if err != nil {
			return models.QueryDescriptor{}, err
		}
	}

	// entity always follows the metric
	d.Entity = d.Metric.Entity()
	if e := strings.ToLower(strings.TrimSpace(raw.Entity)); e != "" && models.Entity(e) != d.Entity {
		d.Defaulted = true
	}

	switch {
	case raw.WindowDays == nil || *raw.WindowDays <= 0:
		d.WindowDays = p.defaultWindowDays
		d.Defaulted = true
	case *raw.WindowDays > maxWindowDays:
		d.WindowDays = maxWindowDays
		d.Defaulted = true
	default:
		d.WindowDays = *raw.WindowDays
	}

	if d.Entity == models.EntityProducts {
		d.Product = strings.TrimSpace(raw.Product)
	}

	d.ShopifyQL = RenderShopifyQL(d)
	return d, nil
}

// extractJSONObject returns the outermost {...} in text, tolerating code
// fences and prose around it
func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return text[start : end+1], nil
}

// RenderShopifyQL renders the query text shown to the user for d
func RenderShopifyQL(d models.QueryDescriptor) string {
	since := fmt.Sprintf("SINCE -%dd UNTIL today", d.WindowDays)

	var lines []string
	switch d.Metric {
	case models.MetricRevenue:
		lines = []string{"FROM orders", "SHOW sum(total_price) AS revenue", since}
	case models.MetricOrderCount:
		lines = []string{"FROM orders", "SHOW count() AS order_count", since}
	case models.MetricAverageOrderValue:
		lines = []string{"FROM orders", "SHOW sum(total_price) / count() AS average_order_value", since}
	case models.MetricUnitsSold:
		lines = []string{
			"FROM products",
			"SHOW product_title, sum(quantity) AS units_sold",
			"GROUP BY product_title",
			since,
			"ORDER BY units_sold DESC",
			"LIMIT 5",
		}
	case models.MetricDaysOfStock:
		lines = []string{
			"FROM products",
			fmt.Sprintf("SHOW product_title, inventory_quantity, inventory_quantity / (sum(quantity) / %d) AS days_of_stock", d.WindowDays),
		}
		if d.Product != "" {
			lines = append(lines, fmt.Sprintf("WHERE product_title = '%s'", strings.ReplaceAll(d.Product, "'", "''")))
		}
		lines = append(lines, since, "ORDER BY days_of_stock ASC", "LIMIT 5")
	case models.MetricRepeatCustomers:
		lines = []string{
			"FROM customers",
			"SHOW customer_name, orders_count, total_spent",
			"WHERE orders_count > 1",
			since,
			"ORDER BY orders_count DESC",
			"LIMIT 10",
		}
	}
	return strings.Join(lines, "\n")
}

func describePrompt(question string, intent models.Intent) string {
	var b strings.Builder
	b.WriteString("Turn a store owner's question into a JSON query description.\n")
	fmt.Fprintf(&b, "The question was classified as: %s\n", intent)
	b.WriteString("Fields:\n")
	b.WriteString(`- "metric": one of revenue, order_count, average_order_value, units_sold, days_of_stock, repeat_customers` + "\n")
	b.WriteString(`- "entity": one of products, orders, customers` + "\n")
	b.WriteString(`- "window_days": number of trailing days the question covers, omit if not stated` + "\n")
	b.WriteString(`- "product": product title if the question is about one product, otherwise ""` + "\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	b.WriteString("Reply with the JSON object only.")
	return b.String()
}
