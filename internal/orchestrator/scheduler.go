package orchestrator

import (
	"context"
	"errors"
	"time"

	"genassist/internal/domain"
	"genassist/internal/genapi"
	"genassist/internal/resolver"
)

// pollLoop drives status queries for one job until a terminal state,
// cancellation, or a fatal error. Queries are strictly sequential: the loop
// holds at most one in-flight request, and a slow request absorbs its tick
// instead of queueing another.
func (o *Orchestrator) pollLoop(ctx context.Context, job domain.Job) {
	defer o.wg.Done()
	defer o.unregister(job.ID)

	ticks := 0
	for {
		report, err := o.client.QueryStatus(ctx, job.Kind, job.ID)
		if ctx.Err() != nil {
			// Cancelled while the query was in flight; discard the result.
			return
		}

		var wait time.Duration
		switch {
		case err == nil:
			job.RetryCount = 0
			state := mapStatus(report.Status)
			if state.Terminal() {
				o.finish(job, state, report)
				return
			}
			job.State = state
			if !o.applyUpdate(job) {
				return
			}
			o.logger.Debug().
				Str("job_id", job.ID).
				Str("raw_status", report.Status).
				Str("state", string(state)).
				Msg("orchestrator: job in progress")
			ticks++
			wait = o.nextInterval(ticks, time.Since(job.SubmittedAt))

		case errors.Is(err, domain.ErrRateLimited):
			job.RetryCount++
			if job.RetryCount > o.cfg.MaxRateLimitRetry {
				job.RetryCount = o.cfg.MaxRateLimitRetry
				o.fail(job, "the generation service is overloaded, please try again later")
				return
			}
			if !o.applyUpdate(job) {
				return
			}
			wait = o.cfg.BackoffBase << (job.RetryCount - 1)
			o.logger.Warn().
				Str("job_id", job.ID).
				Int("retry", job.RetryCount).
				Dur("backoff", wait).
				Msg("orchestrator: rate limited, backing off")

		case errors.Is(err, domain.ErrUnauthorized):
			o.fail(job, "credential rejected by the generation service")
			return
		case errors.Is(err, domain.ErrNetwork):
			o.fail(job, "could not reach the generation service")
			return
		default:
			o.fail(job, err.Error())
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextInterval picks the cadence tier. Short intervals early keep the UX
// responsive; longer intervals later reduce request volume and rate-limit
// pressure as generation latency grows.
func (o *Orchestrator) nextInterval(ticks int, elapsed time.Duration) time.Duration {
	if elapsed >= o.cfg.PollTier3After {
		return o.cfg.PollTier3
	}
	if ticks <= 1 {
		return o.cfg.PollTier1
	}
	return o.cfg.PollTier2
}

// finish applies a terminal report: succeeded reports go through the
// resolver, failed ones surface the remote reason verbatim.
func (o *Orchestrator) finish(job domain.Job, state domain.State, report *genapi.StatusReport) {
	switch state {
	case domain.StateSucceeded:
		ref, err := resolver.CandidateFromReport(report, job.Kind)
		if err != nil {
			o.fail(job, "generation succeeded but no artifact was returned")
			return
		}
		res, err := o.resolver.Resolve(ref)
		if err != nil {
			o.fail(job, "generation succeeded but the artifact could not be resolved")
			return
		}
		job.State = domain.StateSucceeded
		job.ResultRef = ref
		job.ResolvedURL = res.URL
		job.FailureReason = ""
		o.mu.Lock()
		o.playback[job.ID] = &playbackState{ref: ref, res: res}
		o.mu.Unlock()
		if o.applyUpdate(job) {
			o.logger.Info().
				Str("job_id", job.ID).
				Str("strategy", res.Strategy).
				Msg("orchestrator: job succeeded")
		}

	case domain.StateCancelled:
		job.State = domain.StateCancelled
		job.FailureReason = ""
		o.applyUpdate(job)

	default:
		reason := report.FailureReason
		if reason == "" {
			reason = "generation failed"
		}
		o.fail(job, reason)
	}
}

func (o *Orchestrator) fail(job domain.Job, reason string) {
	job.State = domain.StateFailed
	job.FailureReason = reason
	job.ResolvedURL = ""
	if o.applyUpdate(job) {
		o.logger.Error().
			Str("job_id", job.ID).
			Str("reason", reason).
			Msg("orchestrator: job failed")
	}
}
