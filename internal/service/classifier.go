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

// Classification is the classifier outcome. Degraded is set when the model
// call failed or returned an out-of-set label and the default was used.
type Classification struct {
	Intent   models.Intent
	Degraded bool
}

// IntentClassifier maps free-text questions onto the closed intent set
type IntentClassifier struct {
	llm     llm.Completer
	timeout time.Duration
	logger  *zap.Logger
}

// NewIntentClassifier creates a classifier backed by completer
func NewIntentClassifier(completer llm.Completer, timeout time.Duration) *IntentClassifier {
	return &IntentClassifier{
		llm:     completer,
		timeout: timeout,
		logger:  util.GetLogger(),
	}
}

// Classify never fails: any model error falls back to general
func (c *IntentClassifier) Classify(ctx context.Context, question string, ds *analytics.Dataset) Classification {
	text, err := complete(ctx, c.llm, c.timeout, stageClassify, classifyPrompt(question, ds))
	if err != nil {
		c.logger.Warn("Intent classification degraded", zap.Error(err))
		util.PipelineDegradedTotal.WithLabelValues(stageClassify).Inc()
		return Classification{Intent: models.IntentGeneral, Degraded: true}
	}

	intent, err := parseIntentLabel(text)
	if err != nil {
		c.logger.Warn("Classifier returned out-of-set label",
			zap.String("label", text),
			zap.Error(err))
		util.PipelineDegradedTotal.WithLabelValues(stageClassify).Inc()
		return Classification{Intent: models.IntentGeneral, Degraded: true}
	}
	return Classification{Intent: intent}
}

// parseIntentLabel accepts the bare label, optionally quoted or followed by
// punctuation. Anything longer than one label is rejected.
func parseIntentLabel(text string) (models.Intent, error) {
	label := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	label = strings.Trim(label, " \t\"'`*.:")
	if strings.HasPrefix(strings.ToLower(label), "category") {
		label = strings.TrimSpace(label[len("category"):])
		label = strings.Trim(label, " \t\"'`*.:")
	}
	return models.ParseIntent(label)
}

func classifyPrompt(question string, ds *analytics.Dataset) string {
	labels := make([]string, 0, len(models.Intents))
	for _, intent := range models.Intents {
		labels = append(labels, string(intent))
	}

	var b strings.Builder
	b.WriteString("Classify a store owner's question into exactly one category.\n")
	fmt.Fprintf(&b, "Allowed categories: %s\n", strings.Join(labels, ", "))
	b.WriteString("- inventory: stock levels, reordering, days of stock left\n")
	b.WriteString("- sales: revenue, order volume, best sellers, order value\n")
	b.WriteString("- customers: repeat buyers, loyalty, customer activity\n")
	b.WriteString("- general: anything else\n")
	if ds != nil {
		fmt.Fprintf(&b, "The store has %d products, %d orders and %d customers.\n",
			len(ds.Products), len(ds.Orders), len(ds.Customers))
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	b.WriteString("Reply with the category name only.")
	return b.String()
}
