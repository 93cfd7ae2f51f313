package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"shop-analytics/internal/analytics"
	"shop-analytics/internal/llm"
	"shop-analytics/internal/models"
	"shop-analytics/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntentLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Intent
		wantErr bool
	}{
		{in: "inventory", want: models.IntentInventory},
		{in: "  Sales.\n", want: models.IntentSales},
		{in: `"customers"`, want: models.IntentCustomers},
		{in: "Category: general", want: models.IntentGeneral},
		{in: "sales_analysis", want: models.IntentSales},
		{in: "**inventory**\nbecause stock was mentioned", want: models.IntentInventory},
		{in: "marketing", wantErr: true},
		{in: "sales and inventory", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIntentLabel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyFallsBackToGeneral(t *testing.T) {
	c := NewIntentClassifier(llm.Unavailable{}, time.Second)
	got := c.Classify(context.Background(), "how are sales?", &analytics.Dataset{})
	assert.Equal(t, models.IntentGeneral, got.Intent)
	assert.True(t, got.Degraded)

	c = NewIntentClassifier(llm.CompleterFunc(func(context.Context, string) (string, error) {
		return "inventory", nil
	}), time.Second)
	got = c.Classify(context.Background(), "stock?", nil)
	assert.Equal(t, models.IntentInventory, got.Intent)
	assert.False(t, got.Degraded)
}

func TestClassifyPromptListsEveryIntent(t *testing.T) {
	prompt := classifyPrompt("q", &analytics.Dataset{Products: make([]models.Product, 3)})
	for _, intent := range models.Intents {
		assert.Contains(t, prompt, string(intent))
	}
	assert.Contains(t, prompt, "3 products")
}

func TestDescribeParsing(t *testing.T) {
	tests := []struct {
		name   string
		intent models.Intent
		reply  string
		want   models.QueryDescriptor
	}{
		{
			name:   "complete descriptor",
			intent: models.IntentSales,
			reply:  `{"entity":"orders","metric":"order_count","window_days":7}`,
			want:   models.QueryDescriptor{Entity: models.EntityOrders, Metric: models.MetricOrderCount, WindowDays: 7},
		},
		{
			name:   "fenced with prose",
			intent: models.IntentSales,
			reply:  "Here you go:\n```json\n{\"metric\":\"units_sold\",\"entity\":\"products\",\"window_days\":14}\n```",
			want:   models.QueryDescriptor{Entity: models.EntityProducts, Metric: models.MetricUnitsSold, WindowDays: 14},
		},
		{
			name:   "missing window uses default",
			intent: models.IntentSales,
			reply:  `{"entity":"orders","metric":"revenue"}`,
			want:   models.QueryDescriptor{Entity: models.EntityOrders, Metric: models.MetricRevenue, WindowDays: 30, Defaulted: true},
		},
		{
			name:   "missing metric uses intent default",
			intent: models.IntentInventory,
			reply:  `{"window_days":10}`,
			want:   models.QueryDescriptor{Entity: models.EntityProducts, Metric: models.MetricDaysOfStock, WindowDays: 10, Defaulted: true},
		},
		{
			name:   "window clamped",
			intent: models.IntentSales,
			reply:  `{"entity":"orders","metric":"revenue","window_days":5000}`,
			want:   models.QueryDescriptor{Entity: models.EntityOrders, Metric: models.MetricRevenue, WindowDays: 365, Defaulted: true},
		},
		{
			name:   "entity follows metric",
			intent: models.IntentCustomers,
			reply:  `{"entity":"orders","metric":"repeat_customers","window_days":30}`,
			want:   models.QueryDescriptor{Entity: models.EntityCustomers, Metric: models.MetricRepeatCustomers, WindowDays: 30, Defaulted: true},
		},
		{
			name:   "product kept for product metrics",
			intent: models.IntentInventory,
			reply:  `{"entity":"products","metric":"days_of_stock","window_days":30,"product":" Blue Mug "}`,
			want:   models.QueryDescriptor{Entity: models.EntityProducts, Metric: models.MetricDaysOfStock, WindowDays: 30, Product: "Blue Mug"},
		},
		{
			name:   "product dropped for order metrics",
			intent: models.IntentSales,
			reply:  `{"entity":"orders","metric":"revenue","window_days":30,"product":"Blue Mug"}`,
			want:   models.QueryDescriptor{Entity: models.EntityOrders, Metric: models.MetricRevenue, WindowDays: 30},
		},
		{
			name:   "unknown metric falls back",
			intent: models.IntentCustomers,
			reply:  `{"entity":"orders","metric":"profit_margin","window_days":30}`,
			want:   models.QueryDescriptor{Entity: models.EntityCustomers, Metric: models.MetricRepeatCustomers, WindowDays: 30, Defaulted: true},
		},
		{
			name:   "not json falls back",
			intent: models.IntentGeneral,
			reply:  "revenue for the last month",
			want:   models.QueryDescriptor{Entity: models.EntityOrders, Metric: models.MetricRevenue, WindowDays: 30, Defaulted: true},
		},
		{
			name:   "bad window type falls back",
			intent: models.IntentSales,
			reply:  `{"metric":"revenue","window_days":"thirty"}`,
			want:   models.QueryDescriptor{Entity: models.EntityOrders, Metric: models.MetricRevenue, WindowDays: 30, Defaulted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := tt.reply
			p := NewQueryPlanner(llm.CompleterFunc(func(context.Context, string) (string, error) {
				return reply, nil
			}), time.Second, 30)

			got := p.Describe(context.Background(), "question", tt.intent)
			want := tt.want
			want.ShopifyQL = RenderShopifyQL(want)
			assert.Equal(t, want, got)
		})
	}
}

func TestDescribeFailureUsesIntentDefault(t *testing.T) {
	p := NewQueryPlanner(llm.Unavailable{}, time.Second, 45)

	got := p.Describe(context.Background(), "stock?", models.IntentInventory)
	assert.Equal(t, models.MetricDaysOfStock, got.Metric)
	assert.Equal(t, models.EntityProducts, got.Entity)
	assert.Equal(t, 45, got.WindowDays)
	assert.True(t, got.Defaulted)
	assert.Contains(t, got.ShopifyQL, "FROM products")
}

func TestRenderShopifyQL(t *testing.T) {
	q := RenderShopifyQL(models.QueryDescriptor{
		Entity:     models.EntityProducts,
		Metric:     models.MetricDaysOfStock,
		WindowDays: 14,
		Product:    "Owner's Mug",
	})
	assert.Contains(t, q, "FROM products")
	assert.Contains(t, q, "WHERE product_title = 'Owner''s Mug'")
	assert.Contains(t, q, "sum(quantity) / 14")
	assert.Contains(t, q, "SINCE -14d UNTIL today")

	for _, m := range []models.Metric{
		models.MetricRevenue, models.MetricOrderCount, models.MetricAverageOrderValue,
		models.MetricUnitsSold, models.MetricDaysOfStock, models.MetricRepeatCustomers,
	} {
		q := RenderShopifyQL(models.QueryDescriptor{Entity: m.Entity(), Metric: m, WindowDays: 30})
		assert.True(t, strings.HasPrefix(q, "FROM "+string(m.Entity())+"\n"), "%s renders %q", m, q)
	}

	units := RenderShopifyQL(models.QueryDescriptor{Entity: models.EntityProducts, Metric: models.MetricUnitsSold, WindowDays: 7})
	assert.Equal(t, "FROM products\nSHOW product_title, sum(quantity) AS units_sold\nGROUP BY product_title\nSINCE -7d UNTIL today\nORDER BY units_sold DESC\nLIMIT 5", units)
}

func TestAssignConfidence(t *testing.T) {
	tests := []struct {
		name      string
		comp      Computation
		defaulted bool
		want      models.Confidence
	}{
		{"full coverage", Computation{Available: true, Coverage: analytics.CoverageFull}, false, models.ConfidenceHigh},
		{"partial coverage", Computation{Available: true, Coverage: analytics.CoveragePartial}, false, models.ConfidenceMedium},
		{"defaulted stage", Computation{Available: true, Coverage: analytics.CoverageFull}, true, models.ConfidenceMedium},
		{"substituted product", Computation{Available: true, Coverage: analytics.CoverageFull, Substituted: true}, false, models.ConfidenceMedium},
		{"unavailable", Computation{Coverage: analytics.CoverageFull}, false, models.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assignConfidence(tt.comp, tt.defaulted))
		})
	}
}

func TestComputeDaysOfStock(t *testing.T) {
	s := NewAnswerSynthesizer(llm.Unavailable{}, time.Second, 14)
	catalog := slowMoverCatalog("shop-a")
	ds := &analytics.Dataset{StoreID: "shop-a", Products: catalog.Products, Orders: catalog.Orders, Customers: catalog.Customers}
	d := models.QueryDescriptor{Entity: models.EntityProducts, Metric: models.MetricDaysOfStock, WindowDays: 30}

	t.Run("store wide", func(t *testing.T) {
		comp := s.Compute(ds, d, testNow)
		require.True(t, comp.Available)
		assert.Equal(t, analytics.CoverageFull, comp.Coverage)
		// 6 mugs over 30 days is 0.2/day, 12 in stock is 60 days
		assert.Contains(t, comp.Text, "Fast Mug (12 in stock, about 60.0 days)")
		assert.Contains(t, comp.Text, "1 products had no sales in the window")
	})

	t.Run("named product", func(t *testing.T) {
		d := d
		d.Product = "fast mug"
		comp := s.Compute(ds, d, testNow)
		require.True(t, comp.Available)
		assert.False(t, comp.Substituted)
		assert.Contains(t, comp.Text, "sold 6 units over the last 30 days (about 0.20 per day), which is roughly 60.0 days of stock")
	})

	t.Run("unknown product", func(t *testing.T) {
		d := d
		d.Product = "Teapot"
		comp := s.Compute(ds, d, testNow)
		require.True(t, comp.Available)
		assert.True(t, comp.Substituted)
		assert.Contains(t, comp.Text, `No product matching "Teapot"`)
	})

	t.Run("nothing sold in window", func(t *testing.T) {
		d := d
		d.WindowDays = 1
		comp := s.Compute(ds, d, testNow)
		assert.False(t, comp.Available)
		assert.Contains(t, comp.Text, "No projection available")
	})

	t.Run("no sales history", func(t *testing.T) {
		comp := s.Compute(&analytics.Dataset{Products: catalog.Products}, d, testNow)
		assert.False(t, comp.Available)
		assert.Contains(t, comp.Text, "Insufficient data")
	})
}

func TestComputeDaysOfStockSlowSeller(t *testing.T) {
	s := NewAnswerSynthesizer(llm.Unavailable{}, time.Second, 14)
	ds := &analytics.Dataset{
		StoreID:  "shop-a",
		Products: []models.Product{{ID: "lamp", StoreID: "shop-a", Title: "Lamp", InventoryQuantity: 25}},
		Orders: []models.Order{
			{ID: "o1", StoreID: "shop-a", TotalPrice: 15, CreatedAt: testNow.AddDate(0, 0, -40),
				LineItems: []models.LineItem{{ProductID: "lamp", Title: "Lamp", Quantity: 1, Price: 15}}},
			{ID: "o2", StoreID: "shop-a", TotalPrice: 15, CreatedAt: testNow.AddDate(0, 0, -10),
				LineItems: []models.LineItem{{ProductID: "lamp", Title: "Lamp", Quantity: 1, Price: 15}}},
		},
	}
	d := models.QueryDescriptor{Entity: models.EntityProducts, Metric: models.MetricDaysOfStock, WindowDays: 30, Product: "Lamp"}

	comp := s.Compute(ds, d, testNow)

	require.True(t, comp.Available)
	assert.Equal(t, "Lamp has 25 units in stock and sold 1 units over the last 30 days (about 0.03 per day), which is roughly 750.0 days of stock.", comp.Text)
	assert.NotContains(t, comp.Text, "0.0 units per day")
}

func TestComputeOrderMetrics(t *testing.T) {
	s := NewAnswerSynthesizer(llm.Unavailable{}, time.Second, 14)
	catalog := slowMoverCatalog("shop-a")
	ds := &analytics.Dataset{StoreID: "shop-a", Products: catalog.Products, Orders: catalog.Orders, Customers: catalog.Customers}

	tests := []struct {
		metric models.Metric
		window int
		want   string
	}{
		{models.MetricRevenue, 30, "Revenue over the last 30 days was $120.00 from 3 orders."},
		{models.MetricOrderCount, 90, "4 orders were placed in the last 90 days, totalling $160.00."},
		{models.MetricAverageOrderValue, 30, "Average order value over the last 30 days was $40.00 across 3 orders."},
		{models.MetricUnitsSold, 30, "Fast Mug (6 units, $120.00)"},
		{models.MetricRepeatCustomers, 30, "1 of 1 customers have ordered more than once (100.0% repeat rate)."},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			d := models.QueryDescriptor{Entity: tt.metric.Entity(), Metric: tt.metric, WindowDays: tt.window}
			comp := s.Compute(ds, d, testNow)
			require.True(t, comp.Available)
			assert.Contains(t, comp.Text, tt.want)
		})
	}

	comp := s.Compute(ds, models.QueryDescriptor{Metric: models.MetricAverageOrderValue, WindowDays: 1}, testNow)
	assert.False(t, comp.Available)

	comp = s.Compute(&analytics.Dataset{}, models.QueryDescriptor{Metric: models.MetricRevenue, WindowDays: 30}, testNow)
	assert.False(t, comp.Available)
	assert.Contains(t, comp.Text, "no order history")
}

func TestSynthesizeEmptyPhrasingIsLow(t *testing.T) {
	s := NewAnswerSynthesizer(llm.CompleterFunc(func(context.Context, string) (string, error) {
		return "   ", nil
	}), time.Second, 14)
	catalog := slowMoverCatalog("shop-a")
	ds := &analytics.Dataset{Products: catalog.Products, Orders: catalog.Orders, Customers: catalog.Customers}
	d := models.QueryDescriptor{Entity: models.EntityOrders, Metric: models.MetricRevenue, WindowDays: 30}

	got := s.Synthesize(context.Background(), "revenue?", ds, d, testNow, false)
	assert.Equal(t, models.ConfidenceLow, got.Confidence)
	assert.Equal(t, "Revenue over the last 30 days was $120.00 from 3 orders.", got.Text)
}

func TestCompleteAlwaysBoundsTheCall(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		var deadline time.Time
		var hasDeadline bool
		completer := llm.CompleterFunc(func(ctx context.Context, _ string) (string, error) {
			deadline, hasDeadline = ctx.Deadline()
			return "sales", nil
		})

		start := time.Now()
		text, err := complete(context.Background(), completer, timeout, stageClassify, "Classify")

		require.NoError(t, err)
		assert.Equal(t, "sales", text)
		require.True(t, hasDeadline, "timeout %s", timeout)
		assert.WithinDuration(t, start.Add(DefaultLLMTimeout), deadline, time.Second)
	}
}

func TestQuestionServiceDefaultsNonPositiveTimeout(t *testing.T) {
	svc := NewQuestionService(store.NewMemoryStore(), nil, nil, llm.Unavailable{}, QuestionOptions{LLMTimeout: -time.Second})

	assert.Equal(t, DefaultLLMTimeout, svc.opts.LLMTimeout)
	assert.Equal(t, DefaultLLMTimeout, svc.classifier.timeout)
	assert.Equal(t, DefaultLLMTimeout, svc.planner.timeout)
	assert.Equal(t, DefaultLLMTimeout, svc.synthesizer.timeout)
}
