package models

import (
	"fmt"
	"strings"
)

// Intent is the closed set of question categories
type Intent string

const (
	IntentInventory Intent = "inventory"
	IntentSales     Intent = "sales"
	IntentCustomers Intent = "customers"
	IntentGeneral   Intent = "general"
)

// Intents lists every allowed intent label
var Intents = []Intent{IntentInventory, IntentSales, IntentCustomers, IntentGeneral}

// Valid reports whether the intent belongs to the closed set
func (i Intent) Valid() bool {
	switch i {
	case IntentInventory, IntentSales, IntentCustomers, IntentGeneral:
		return true
	}
	return false
}

// ParseIntent parses a label into an Intent. The "_analysis" suffix used by
// older clients is accepted.
func ParseIntent(s string) (Intent, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	label = strings.TrimSuffix(label, "_analysis")
	intent := Intent(label)
	if !intent.Valid() {
		return IntentGeneral, fmt.Errorf("unknown intent %q", s)
	}
	return intent, nil
}

// Confidence labels how complete a synthesized answer is
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Valid reports whether the confidence belongs to the closed set
func (c Confidence) Valid() bool {
	return c == ConfidenceLow || c == ConfidenceMedium || c == ConfidenceHigh
}

// Entity is the data set a query reads from
type Entity string

const (
	EntityProducts  Entity = "products"
	EntityOrders    Entity = "orders"
	EntityCustomers Entity = "customers"
)

// Metric is the value a query computes
type Metric string

const (
	MetricRevenue           Metric = "revenue"
	MetricOrderCount        Metric = "order_count"
	MetricAverageOrderValue Metric = "average_order_value"
	MetricUnitsSold         Metric = "units_sold"
	MetricDaysOfStock       Metric = "days_of_stock"
	MetricRepeatCustomers   Metric = "repeat_customers"
)

// ParseMetric parses a metric label, reporting out-of-set values
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := metricEntities[m]; !ok {
		return "", fmt.Errorf("unknown metric %q", s)
	}
	return m, nil
}

var metricEntities = map[Metric]Entity{
	MetricRevenue:           EntityOrders,
	MetricOrderCount:        EntityOrders,
	MetricAverageOrderValue: EntityOrders,
	MetricUnitsSold:         EntityProducts,
	MetricDaysOfStock:       EntityProducts,
	MetricRepeatCustomers:   EntityCustomers,
}

// Entity returns the entity the metric is computed over
func (m Metric) Entity() Entity {
	return metricEntities[m]
}

// DefaultMetric returns the metric used when a question of this intent
// does not name one
func (i Intent) DefaultMetric() Metric {
	switch i {
	case IntentInventory:
		return MetricDaysOfStock
	case IntentCustomers:
		return MetricRepeatCustomers
	default:
		return MetricRevenue
	}
}

// QueryDescriptor is the structured description of what to compute for a question
type QueryDescriptor struct {
	Entity     Entity `json:"entity"`
	Metric     Metric `json:"metric"`
	WindowDays int    `json:"window_days"`
	Product    string `json:"product,omitempty"`
	ShopifyQL  string `json:"shopify_ql"`
	Defaulted  bool   `json:"defaulted"`
}
