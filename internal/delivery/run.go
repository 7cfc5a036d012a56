// ABOUTME: Run handle for one delivery request
// ABOUTME: Tracks the pipeline state, per-attempt reports and the final outcome
package delivery

import (
	"context"
	"sync"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// State is the pipeline stage of a run
type State int

const (
	StateCreated State = iota
	StateContextOpening
	StateContextLoading
	StateInserting
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateContextOpening:
		return "context_opening"
	case StateContextLoading:
		return "context_loading"
	case StateInserting:
		return "inserting"
	case StateSettled:
		return "settled"
	}
	return "unknown"
}

// Outcome is how a run, or one attempt of it, ended
type Outcome string

const (
	OutcomeInserted          Outcome = "inserted"
	OutcomeAlreadyHasContent Outcome = "already_has_content"
	OutcomeExhausted         Outcome = "exhausted"
	OutcomeAbandoned         Outcome = "abandoned"
	OutcomeFailed            Outcome = "failed"

	// outcomeConsumed means the other attempt already handled the request
	outcomeConsumed Outcome = "consumed"
)

// AttemptReport summarises one attempt loop
type AttemptReport struct {
	Name    string
	Outcome Outcome
	// Probes counts every in-page probe, Ticks only the timer-driven ones
	Probes int
	Ticks  int
}

// Run is the handle returned by Pipeline.Start
type Run struct {
	Request models.DeliveryRequest

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    State
	outcome  Outcome
	err      error
	attempts []AttemptReport
}

func newRun(req models.DeliveryRequest, cancel context.CancelFunc) *Run {
	return &Run{
		Request: req,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   StateCreated,
	}
}

// Done is closed once the run has settled and every attempt has stopped
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel abandons the run
func (r *Run) Cancel() {
	r.cancel()
}

// Wait blocks until the run settles or ctx ends
func (r *Run) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.Result()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// State returns the current stage
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the outcome and error; empty until the run settles
func (r *Run) Result() (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.err
}

// Attempts returns the reports of attempts that have finished
func (r *Run) Attempts() []AttemptReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AttemptReport, len(r.attempts))
	copy(out, r.attempts)
	return out
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Run) addAttempt(a AttemptReport) {
	r.mu.Lock()
	r.attempts = append(r.attempts, a)
	r.mu.Unlock()
}

func (r *Run) settle(outcome Outcome, err error) {
	r.mu.Lock()
	r.state = StateSettled
	r.outcome = outcome
	r.err = err
	r.mu.Unlock()
	r.cancel()
	close(r.done)
}

// outcomeRank orders attempt outcomes; the higher one describes the run
func outcomeRank(o Outcome) int {
	switch o {
	case OutcomeInserted:
		return 5
	case OutcomeAlreadyHasContent:
		return 4
	case outcomeConsumed:
		return 3
	case OutcomeExhausted:
		return 2
	case OutcomeAbandoned:
		return 1
	}
	return 0
}

func mergeOutcomes(reports []AttemptReport) Outcome {
	best := OutcomeAbandoned
	for _, a := range reports {
		if outcomeRank(a.Outcome) > outcomeRank(best) {
			best = a.Outcome
		}
	}
	// Only consumed markers seen: an earlier probe of this run wrote the text
	if best == outcomeConsumed {
		return OutcomeInserted
	}
	return best
}
