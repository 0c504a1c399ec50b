// Package estimator turns a free-text task description into a structured
// project estimate by prompting a generative model and normalizing its reply
// into a guaranteed shape.
package estimator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ticketwise/internal/domain"
)

// Retry policy for transient model-service unavailability.
const (
	maxAttempts    = 3
	retryBaseDelay = 2 * time.Second
)

// Service runs the estimation pipeline. The invoker is injected so tests can
// substitute a fake for the Gemini client.
type Service struct {
	Invoker Invoker
	Logger  *zap.Logger

	// sleep is swapped out in tests to observe backoff delays.
	sleep func(time.Duration)
}

// New creates an estimation service around an invoker.
func New(inv Invoker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Invoker: inv, Logger: logger, sleep: time.Sleep}
}

// Estimate runs the full pipeline for one task description: prompt, model
// call with retry, normalization, title resolution, and identity generation.
// The returned response is always well-shaped; a hard invocation failure is
// reported through Success=false plus Error, never through a partial payload.
func (s *Service) Estimate(ctx context.Context, task string) domain.EstimateResponse {
	resp := domain.EstimateResponse{
		Task:         task,
		TicketID:     TicketID(task),
		TicketNumber: TicketNumber(),
	}

	raw, err := s.generate(ctx, BuildPrompt(task))
	if err != nil {
		s.Logger.Error("model invocation failed", zap.Error(err))
		resp.Success = false
		resp.Error = "estimate generation failed: " + err.Error()
		resp.Title = "Manual Review Required"
		resp.Estimate = failedEstimate()
		return resp
	}

	norm := normalize(raw, task)
	if norm.Outcome == outcomeDegraded {
		resp.Degraded = true
		s.Logger.Warn("model reply unparsable, using fallback estimate",
			zap.String("ticket_id", resp.TicketID))
	} else if !reasoningWellFormed(norm.Estimate.Reasoning) {
		s.Logger.Warn("reasoning narrative drifted from requested shape",
			zap.String("ticket_id", resp.TicketID))
	}

	resp.Success = true
	resp.Title = ResolveTitle(norm.Title, task)
	resp.Estimate = norm.Estimate
	return resp
}

// generate invokes the model, retrying transient-unavailability failures up
// to maxAttempts with exponential backoff (2s, 4s). Any other failure, or
// running out of attempts, propagates to the caller.
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	delay := retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := s.Invoker.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isTransientUnavailable(err) || attempt == maxAttempts {
			return "", err
		}
		s.Logger.Warn("model service unavailable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		s.sleep(delay)
		delay *= 2
	}
	return "", lastErr
}
