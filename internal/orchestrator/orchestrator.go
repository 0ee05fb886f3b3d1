// Package orchestrator drives asynchronous generation jobs against the
// remote service: it submits requests, polls each job on an adaptive
// cadence, absorbs rate limiting with bounded backoff, resolves the final
// artifact into a consumer-loadable URL, and supports idempotent
// client-side cancellation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"genassist/internal/domain"
	"genassist/internal/genapi"
	"genassist/internal/infra"
	"genassist/internal/ledger"
	"genassist/internal/resolver"
)

// GenerationClient is the slice of the service client the orchestrator
// depends on.
type GenerationClient interface {
	Submit(ctx context.Context, kind domain.Kind, prompt string, params domain.Params) (*genapi.SubmitOutcome, error)
	QueryStatus(ctx context.Context, kind domain.Kind, jobID string) (*genapi.StatusReport, error)
}

// Config tunes the polling cadence and rate-limit recovery. Zero values fall
// back to the production defaults; tests shrink them to milliseconds.
type Config struct {
	PollTier1         time.Duration
	PollTier2         time.Duration
	PollTier3         time.Duration
	PollTier3After    time.Duration
	BackoffBase       time.Duration
	MaxRateLimitRetry int
}

func (c Config) withDefaults() Config {
	if c.PollTier1 <= 0 {
		c.PollTier1 = 10 * time.Second
	}
	if c.PollTier2 <= 0 {
		c.PollTier2 = 15 * time.Second
	}
	if c.PollTier3 <= 0 {
		c.PollTier3 = 20 * time.Second
	}
	if c.PollTier3After <= 0 {
		c.PollTier3After = 120 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.MaxRateLimitRetry <= 0 {
		c.MaxRateLimitRetry = 3
	}
	return c
}

// Orchestrator is the job ledger's sole writer alongside the cancellation
// path; all record mutations funnel through applyUpdate.
type Orchestrator struct {
	cfg      Config
	client   GenerationClient
	ledger   ledger.Ledger
	resolver *resolver.Resolver
	logger   infra.Logger

	mu       sync.Mutex
	active   map[string]context.CancelFunc
	playback map[string]*playbackState
	closed   bool
	wg       sync.WaitGroup
}

// playbackState remembers how a succeeded job's URL was resolved so a
// render-time rejection can escalate to the next strategy exactly once.
type playbackState struct {
	ref       string
	res       *resolver.Resolution
	escalated bool
}

// New wires an orchestrator. The resolver and ledger must not be nil.
func New(cfg Config, client GenerationClient, store ledger.Ledger, res *resolver.Resolver, logger infra.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		client:   client,
		ledger:   store,
		resolver: res,
		logger:   logger,
		active:   make(map[string]context.CancelFunc),
		playback: make(map[string]*playbackState),
	}
}

// Submit sends one generation request. Synchronous (inline) image results
// resolve immediately and never poll; asynchronous results register exactly
// one poll loop keyed by the remote job id.
func (o *Orchestrator) Submit(ctx context.Context, kind domain.Kind, prompt string, params domain.Params) (*domain.Job, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}

	outcome, err := o.client.Submit(ctx, kind, prompt, params)
	if err != nil {
		return nil, fmt.Errorf("submit %s job: %w", kind, err)
	}

	now := time.Now().UTC()
	job := domain.Job{
		Kind:        kind,
		Prompt:      prompt,
		Params:      params,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	if !outcome.Async() {
		// Inline path: the service never assigned an id, so mint a local one.
		job.ID = uuid.NewString()
		o.resolveInline(&job, outcome.Artifact)
		if err := o.ledger.Put(job); err != nil {
			return nil, err
		}
		return &job, nil
	}

	job.ID = outcome.JobID
	job.State = domain.StateSubmitted

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, errors.New("orchestrator is shut down")
	}
	if _, exists := o.active[job.ID]; exists {
		o.mu.Unlock()
		return nil, fmt.Errorf("job %s is already tracked", job.ID)
	}
	if err := o.ledger.Put(job); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	o.active[job.ID] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Info().
		Str("job_id", job.ID).
		Str("kind", string(kind)).
		Msg("orchestrator: job submitted")

	go o.pollLoop(pollCtx, job)
	return &job, nil
}

func (o *Orchestrator) resolveInline(job *domain.Job, artifact *genapi.Artifact) {
	ref, err := resolver.CandidateFromArtifact(artifact, job.Kind)
	if err != nil {
		job.State = domain.StateFailed
		job.FailureReason = "generation succeeded but no artifact was returned"
		return
	}
	res, err := o.resolver.Resolve(ref)
	if err != nil {
		job.State = domain.StateFailed
		job.FailureReason = "generation succeeded but the artifact could not be resolved"
		return
	}
	job.State = domain.StateSucceeded
	job.ResultRef = ref
	job.ResolvedURL = res.URL

	o.mu.Lock()
	o.playback[job.ID] = &playbackState{ref: ref, res: res}
	o.mu.Unlock()
}

// Cancel stops observing jobID. Idempotent; cancelling a terminal job is a
// no-op. The remote job may keep running server-side.
func (o *Orchestrator) Cancel(jobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.ledger.Get(jobID)
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.State.Terminal() {
		return nil
	}
	if cancel, ok := o.active[jobID]; ok {
		cancel()
		delete(o.active, jobID)
	}
	job.State = domain.StateCancelled
	job.FailureReason = ""
	job.UpdatedAt = time.Now().UTC()
	if err := o.ledger.Put(job); err != nil {
		return err
	}
	o.logger.Info().Str("job_id", jobID).Msg("orchestrator: job cancelled")
	return nil
}

// Regenerate re-submits a prior job with the same prompt and params.
func (o *Orchestrator) Regenerate(ctx context.Context, jobID string) (*domain.Job, error) {
	prev, ok := o.ledger.Get(jobID)
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return o.Submit(ctx, prev.Kind, prev.Prompt, prev.Params)
}

// Modify re-submits with a prompt derived from the prior job and the user's
// refinement instruction.
func (o *Orchestrator) Modify(ctx context.Context, jobID, instruction string) (*domain.Job, error) {
	prev, ok := o.ledger.Get(jobID)
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, errors.New("modification instruction is required")
	}
	prompt := fmt.Sprintf("%s\n\nApply this change to the previous result: %s", prev.Prompt, instruction)
	return o.Submit(ctx, prev.Kind, prompt, prev.Params)
}

// Job returns the current record for id.
func (o *Orchestrator) Job(jobID string) (domain.Job, error) {
	job, ok := o.ledger.Get(jobID)
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

// Jobs returns all records, newest first.
func (o *Orchestrator) Jobs() []domain.Job {
	return o.ledger.List()
}

// ReportPlaybackFailure escalates a succeeded job's URL to the next resolver
// strategy after the consumer rejected the current one at render time.
// Exactly one escalation is attempted; further reports surface
// ErrPlaybackUnavailable.
func (o *Orchestrator) ReportPlaybackFailure(jobID string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.ledger.Get(jobID)
	if !ok {
		return "", domain.ErrJobNotFound
	}
	if job.State != domain.StateSucceeded {
		return "", fmt.Errorf("job %s has no playable result", jobID)
	}
	state, ok := o.playback[jobID]
	if !ok || state.escalated {
		return "", domain.ErrPlaybackUnavailable
	}
	next, err := o.resolver.Fallback(state.ref, state.res)
	if err != nil {
		state.escalated = true
		return "", domain.ErrPlaybackUnavailable
	}
	state.res = next
	state.escalated = true
	job.ResolvedURL = next.URL
	job.UpdatedAt = time.Now().UTC()
	if err := o.ledger.Put(job); err != nil {
		return "", err
	}
	o.logger.Info().
		Str("job_id", jobID).
		Str("strategy", next.Strategy).
		Msg("orchestrator: playback fallback applied")
	return next.URL, nil
}

// Close stops every poll loop and waits for them to drain.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	for id, cancel := range o.active {
		cancel()
		delete(o.active, id)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// applyUpdate writes a poll-loop mutation unless the record went terminal in
// the meantime (cancellation): a report resolving after cancel is discarded.
func (o *Orchestrator) applyUpdate(job domain.Job) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	current, ok := o.ledger.Get(job.ID)
	if ok && current.State.Terminal() {
		return false
	}
	job.UpdatedAt = time.Now().UTC()
	if err := o.ledger.Put(job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: ledger write failed")
		return false
	}
	return true
}

func (o *Orchestrator) unregister(jobID string) {
	o.mu.Lock()
	if cancel, ok := o.active[jobID]; ok {
		cancel()
		delete(o.active, jobID)
	}
	o.mu.Unlock()
}
