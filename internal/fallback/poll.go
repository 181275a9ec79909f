package fallback

import (
	"context"
	"log/slog"
	"time"
)

// PollState is the terminal state of a polled job
type PollState string

const (
	Completed PollState = "completed"
	Failed    PollState = "failed"
	TimedOut  PollState = "timed_out"
)

// Status is what a single check of a job reports
type Status[T any] struct {
	Done   bool
	Failed bool
	Value  T
	Reason string
}

// PollResult is the outcome of Poll
type PollResult[T any] struct {
	State    PollState
	Value    T
	Attempts int
	Reason   string
}

// PollOptions bound a polling loop
type PollOptions struct {
	Initial     time.Duration
	Max         time.Duration
	Factor      float64
	MaxAttempts int
}

// DefaultPollOptions polls at 1s, 2s, 4s... capped at 10s, 30 checks at most
var DefaultPollOptions = PollOptions{
	Initial:     time.Second,
	Max:         10 * time.Second,
	Factor:      2,
	MaxAttempts: 30,
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Initial <= 0 {
		o.Initial = DefaultPollOptions.Initial
	}
	if o.Max <= 0 {
		o.Max = DefaultPollOptions.Max
	}
	if o.Factor < 1 {
		o.Factor = DefaultPollOptions.Factor
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultPollOptions.MaxAttempts
	}
	return o
}

// Poll calls check with exponential backoff until the job completes, fails,
// runs out of attempts or ctx ends. Check errors count as a failed attempt
// and polling continues.
func Poll[T any](ctx context.Context, opts PollOptions, check func(ctx context.Context) (Status[T], error)) PollResult[T] {
	opts = opts.withDefaults()
	delay := opts.Initial

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		st, err := check(ctx)
		switch {
		case err != nil:
			slog.Warn("Poll check failed", "attempt", attempt, "err", err)
		case st.Failed:
			return PollResult[T]{State: Failed, Value: st.Value, Attempts: attempt, Reason: st.Reason}
		case st.Done:
			return PollResult[T]{State: Completed, Value: st.Value, Attempts: attempt}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return PollResult[T]{State: TimedOut, Attempts: attempt, Reason: ctx.Err().Error()}
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * opts.Factor)
		if delay > opts.Max {
			delay = opts.Max
		}
	}

	return PollResult[T]{State: TimedOut, Attempts: opts.MaxAttempts, Reason: "attempt limit reached"}
}
