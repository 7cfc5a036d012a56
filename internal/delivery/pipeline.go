// ABOUTME: Delivery pipeline that opens the destination and inserts a prompt
// ABOUTME: Primary plus one delayed backup attempt, each a ticker and change-driven probe loop
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// Options tunes a Pipeline
type Options struct {
	DestinationURL string
	BackupDelay    time.Duration
	RetryInterval  time.Duration
	MaxTries       int
	Logger         *zap.Logger
}

// DefaultOptions returns the timings used against chatgpt.com
func DefaultOptions() Options {
	return Options{
		DestinationURL: "https://chatgpt.com/",
		BackupDelay:    1500 * time.Millisecond,
		RetryInterval:  200 * time.Millisecond,
		MaxTries:       120,
	}
}

// Pipeline delivers prompts into freshly opened destination contexts
type Pipeline struct {
	opener Opener
	opts   Options
	logger *zap.Logger
}

// New creates a pipeline over opener
func New(opener Opener, opts Options) *Pipeline {
	defaults := DefaultOptions()
	if opts.DestinationURL == "" {
		opts.DestinationURL = defaults.DestinationURL
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaults.RetryInterval
	}
	if opts.MaxTries <= 0 {
		opts.MaxTries = defaults.MaxTries
	}
	if opts.BackupDelay < 0 {
		opts.BackupDelay = defaults.BackupDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{opener: opener, opts: opts, logger: logger}
}

// Start mints a request for prompt and begins delivery in the background
func (p *Pipeline) Start(ctx context.Context, prompt string) *Run {
	return p.StartRequest(ctx, models.NewDeliveryRequest(prompt))
}

// StartRequest begins delivery of a prepared request in the background.
// The returned Run settles exactly once.
func (p *Pipeline) StartRequest(ctx context.Context, req models.DeliveryRequest) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(req, cancel)
	go p.execute(runCtx, run)
	return run
}

func (p *Pipeline) execute(ctx context.Context, run *Run) {
	logger := p.logger.With(zap.String("request_id", run.Request.RequestID))

	run.setState(StateContextOpening)
	dest, err := p.opener.Open(ctx, p.opts.DestinationURL)
	if err != nil {
		if ctx.Err() != nil {
			run.settle(OutcomeAbandoned, nil)
			return
		}
		logger.Warn("failed to open destination", zap.Error(err))
		run.settle(OutcomeFailed, fmt.Errorf("failed to open destination: %w", err))
		return
	}
	defer func() {
		if err := dest.Close(); err != nil {
			logger.Debug("failed to release destination", zap.Error(err))
		}
	}()

	run.setState(StateContextLoading)
	if err := p.waitLoad(ctx, dest); err != nil {
		if errors.Is(err, errGone) || ctx.Err() != nil {
			logger.Debug("destination abandoned while loading")
			run.settle(OutcomeAbandoned, nil)
			return
		}
		logger.Warn("destination failed to load", zap.Error(err))
		run.settle(OutcomeFailed, fmt.Errorf("failed to load destination: %w", err))
		return
	}

	run.setState(StateInserting)
	payload := Payload{Text: run.Request.Prompt, RequestID: run.Request.RequestID}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		run.addAttempt(p.attempt(ctx, dest, payload, "primary"))
	}()
	go func() {
		defer wg.Done()
		timer := time.NewTimer(p.opts.BackupDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			run.addAttempt(AttemptReport{Name: "backup", Outcome: OutcomeAbandoned})
			return
		case <-dest.Gone():
			run.addAttempt(AttemptReport{Name: "backup", Outcome: OutcomeAbandoned})
			return
		}
		run.addAttempt(p.attempt(ctx, dest, payload, "backup"))
	}()
	wg.Wait()

	outcome := mergeOutcomes(run.Attempts())
	logger.Info("delivery settled", zap.String("outcome", string(outcome)))
	run.settle(outcome, nil)
}

var errGone = errors.New("destination gone")

// waitLoad has no timeout of its own; only ctx and the page bound it
func (p *Pipeline) waitLoad(ctx context.Context, dest Destination) error {
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- dest.WaitLoad(loadCtx) }()

	select {
	case err := <-result:
		return err
	case <-dest.Gone():
		cancel()
		<-result
		return errGone
	}
}

// attempt probes until the composer is found, the budget runs out or the
// context ends. Timer ticks count against MaxTries, change events do not.
func (p *Pipeline) attempt(ctx context.Context, dest Destination, payload Payload, name string) AttemptReport {
	logger := p.logger.With(zap.String("request_id", payload.RequestID), zap.String("attempt", name))
	report := AttemptReport{Name: name}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	changes := dest.Changes(attemptCtx)

	ticker := time.NewTicker(p.opts.RetryInterval)
	defer ticker.Stop()

	for {
		report.Probes++
		status, err := dest.Insert(attemptCtx, payload)
		if err != nil {
			// Evaluation fails while the page swaps documents; keep probing
			logger.Debug("probe failed", zap.Error(err))
		}

		switch status {
		case InsertInserted:
			report.Outcome = OutcomeInserted
			return report
		case InsertHasContent:
			report.Outcome = OutcomeAlreadyHasContent
			return report
		case InsertConsumed:
			report.Outcome = outcomeConsumed
			return report
		}

		if report.Ticks >= p.opts.MaxTries {
			logger.Debug("composer never appeared", zap.Int("ticks", report.Ticks))
			report.Outcome = OutcomeExhausted
			return report
		}

		select {
		case <-ctx.Done():
			report.Outcome = OutcomeAbandoned
			return report
		case <-dest.Gone():
			report.Outcome = OutcomeAbandoned
			return report
		case <-ticker.C:
			report.Ticks++
		case _, ok := <-changes:
			if !ok {
				changes = nil
			}
		}
	}
}
