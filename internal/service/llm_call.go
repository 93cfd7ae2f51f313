package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop-analytics/internal/llm"
	"shop-analytics/internal/util"
)

// Pipeline stage names, used as metric labels and in logs
const (
	stageClassify   = "classify"
	stageDescribe   = "describe"
	stageSynthesize = "synthesize"
)

// DefaultLLMTimeout bounds a stage call when no positive timeout is configured
const DefaultLLMTimeout = 15 * time.Second

var errEmptyCompletion = errors.New("empty completion")

// complete runs a single bounded model call for stage. The returned text is
// trimmed; an empty completion is reported as an error.
func complete(ctx context.Context, completer llm.Completer, timeout time.Duration, stage, prompt string) (string, error) {
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := completer.Complete(ctx, prompt)
	util.LLMCallLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		util.LLMCallsTotal.WithLabelValues(stage, outcome).Inc()
		return "", fmt.Errorf("%s call failed: %w", stage, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		util.LLMCallsTotal.WithLabelValues(stage, "empty").Inc()
		return "", fmt.Errorf("%s call failed: %w", stage, errEmptyCompletion)
	}
	util.LLMCallsTotal.WithLabelValues(stage, "ok").Inc()
	return text, nil
}
