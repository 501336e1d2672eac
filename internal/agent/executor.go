// Package agent implements the extraction, analysis and summarization
// collaborators of the pipeline on top of an llm.TextGenerator.
//
// Each unit of work (one chapter, one analysis batch, one entity) gets a
// bounded number of attempts. Transport faults back off quadratically; answers
// that cannot be parsed are retried immediately with feedback appended to the
// prompt.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sirupsen/logrus"

	"github.com/scrypster/lorebinders/internal/llm"
	"github.com/scrypster/lorebinders/internal/logger"
)

// ErrUnparseable is returned when every attempt produced an answer that could
// not be decoded.
var ErrUnparseable = errors.New("agent response could not be parsed")

// DefaultConfidence is attached to every analysis profile.
const DefaultConfidence = 0.8

// Options tunes the retry behaviour shared by all agents.
type Options struct {
	// MaxAttempts per unit of work (default: 3).
	MaxAttempts int

	// Backoff returns the wait before attempt+1 after a transport fault.
	// Default: QuadraticBackoff.
	Backoff func(attempt int) time.Duration

	// Confidence is recorded on analysis profiles (default: DefaultConfidence).
	Confidence float64

	Logger logrus.FieldLogger
}

// QuadraticBackoff waits attempt² × 100ms.
func QuadraticBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 100 * time.Millisecond
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff == nil {
		o.Backoff = QuadraticBackoff
	}
	if o.Confidence == 0 {
		o.Confidence = DefaultConfidence
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return o
}

type executor struct {
	gen  llm.TextGenerator
	opts Options
}

func newExecutor(gen llm.TextGenerator, opts Options) *executor {
	return &executor{gen: gen, opts: opts.withDefaults()}
}

// run sends prompt until parse accepts an answer or attempts run out.
func (e *executor) run(ctx context.Context, fields logrus.Fields, prompt string, parse func(string) error) error {
	log := e.opts.Logger.WithFields(fields)
	feedback := ""
	var lastErr error

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		full := prompt
		if feedback != "" {
			full += "\n\n" + feedback
		}

		raw, err := e.gen.Complete(ctx, full)
		switch {
		case errors.Is(err, llm.ErrEmptyResponse):
			lastErr = err
			feedback = "Your previous response was empty. Respond with valid JSON."
			log.WithField("attempt", attempt).Warn("empty response")
			continue
		case err != nil:
			lastErr = err
			if !retryable(ctx, err) || attempt == e.opts.MaxAttempts {
				log.WithError(err).WithField("attempt", attempt).Error("text analysis call failed")
				return err
			}
			log.WithError(err).WithField("attempt", attempt).Warn("text analysis call failed, retrying")
			if err := sleep(ctx, e.opts.Backoff(attempt)); err != nil {
				return err
			}
			continue
		}

		if err := parse(raw); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnparseable, err)
			feedback = fmt.Sprintf("Your previous response could not be parsed (%v). Respond with only valid JSON in the required structure.", err)
			log.WithError(err).WithField("attempt", attempt).Warn("unparseable response")
			continue
		}
		return nil
	}

	log.WithError(lastErr).Error("giving up after retries")
	return fmt.Errorf("failed after %d attempts: %w", e.opts.MaxAttempts, lastErr)
}

// retryable reports whether another attempt at the same call may succeed.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, llm.ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	// Per-request timeouts and connection faults.
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
