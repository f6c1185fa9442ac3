package scheduler

import (
	"container/list"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/seosmith/internal/models"
	"github.com/amosWeiskopf/seosmith/pkg/provider"
	"github.com/amosWeiskopf/seosmith/pkg/reflexion"
)

// ErrNoWorkers means the scheduler was constructed without any capability
var ErrNoWorkers = errors.New("scheduler requires at least one provider capability")

const (
	// DefaultCooldown suspends a rate-limited worker before it is retried
	DefaultCooldown = 60 * time.Second

	// DefaultMaxRetries bounds per-job retries for non-rate-limit failures
	DefaultMaxRetries = 2

	// DefaultClusterCap bounds the sibling context attached to one job
	DefaultClusterCap = 10
)

// Job is one unit of per-page analysis/generation work. The scheduler owns
// it exclusively: retries are the only mutation, and at most one worker
// processes a job at any instant.
type Job struct {
	Page    models.PageRecord
	Retries int
	Context JobContext
}

// JobContext carries the cross-page signals the generation step needs
type JobContext struct {
	Competitors []string
	Siblings    []models.PageSummary
}

// SharedContext is run-wide context applied to every job
type SharedContext struct {
	Competitors []string
}

// JobResult is the tagged per-job outcome streamed to the caller: either
// Suggestions is populated or Err carries the terminal failure.
type JobResult struct {
	URL         string
	Provider    string
	Analysis    *provider.Analysis
	Suggestions []models.Suggestion
	Err         error
}

// Stats summarizes a drained queue
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
}

// ResultFunc receives each JobResult as its job reaches a terminal state.
// Jobs complete in no particular order.
type ResultFunc func(JobResult)

// StateFunc observes worker status transitions
type StateFunc func(workerID int, from, to WorkerStatus)

// Scheduler distributes per-page jobs across a fixed pool of workers, one
// per configured capability. It handles rate-limit cooldowns, bounded
// retries, and streams results as jobs finish. Instances are caller-owned;
// one ProcessQueue call is one run.
type Scheduler struct {
	capabilities []provider.Capability
	refiner      *reflexion.Refiner
	cooldown     time.Duration
	maxRetries   int
	clusterCap   int
	logger       zerolog.Logger

	onResult   ResultFunc
	onProgress func(completed, total int)
	onState    StateFunc
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithCooldown overrides the rate-limit cooldown delay
func WithCooldown(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithMaxRetries overrides the per-job retry budget
func WithMaxRetries(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithClusterCap overrides the sibling context cap
func WithClusterCap(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.clusterCap = n
		}
	}
}

// WithRefiner overrides the reflexion refiner applied to generation output
func WithRefiner(r *reflexion.Refiner) Option {
	return func(s *Scheduler) { s.refiner = r }
}

// WithOnResult streams per-job results/errors to fn
func WithOnResult(fn ResultFunc) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// WithOnProgress reports (completed, total) once per terminal job
func WithOnProgress(fn func(completed, total int)) Option {
	return func(s *Scheduler) { s.onProgress = fn }
}

// WithOnStateChange observes worker status transitions
func WithOnStateChange(fn StateFunc) Option {
	return func(s *Scheduler) { s.onState = fn }
}

// WithLogger sets the scheduler's logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a Scheduler over the given capabilities
func New(capabilities []provider.Capability, opts ...Option) (*Scheduler, error) {
	if len(capabilities) == 0 {
		return nil, ErrNoWorkers
	}
	s := &Scheduler{
		capabilities: capabilities,
		refiner:      reflexion.New(),
		cooldown:     DefaultCooldown,
		maxRetries:   DefaultMaxRetries,
		clusterCap:   DefaultClusterCap,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// outcome is what a job invocation reports back to the dispatch loop. Worker
// and queue mutations happen only in the loop, never in job goroutines.
type outcome struct {
	workerID    int
	job         *Job
	analysis    *provider.Analysis
	suggestions []models.Suggestion
	err         error
}

// ProcessQueue drains one run's job queue: one job per page, dispatched to
// ready workers until every job reaches a terminal state. It resolves only
// when completed == total, however many of those were terminal failures.
// Rate-limited jobs are requeued at the front without a retry increment;
// other failures retry at the back up to the retry budget.
func (s *Scheduler) ProcessQueue(ctx context.Context, pages []models.PageRecord, shared SharedContext) (*Stats, error) {
	stats := &Stats{Total: len(pages)}
	if len(pages) == 0 {
		return stats, nil
	}

	topics := BuildTopicIndex(pages)

	queue := list.New()
	for _, page := range pages {
		queue.PushBack(&Job{
			Page: page,
			Context: JobContext{
				Competitors: shared.Competitors,
				Siblings:    topics.Siblings(page.URL, s.clusterCap),
			},
		})
	}

	workers := make([]*worker, len(s.capabilities))
	for i, cap := range s.capabilities {
		workers[i] = &worker{id: i, capability: cap, status: StatusReady}
	}

	// Both channels are buffered to worker count: at most one outstanding
	// event or cooldown per worker, so a send can never block a goroutine
	// after the run drains or the context is cancelled.
	events := make(chan outcome, len(workers))
	cooled := make(chan int, len(workers))
	completed := 0

	dispatch := func() {
		for _, w := range workers {
			if w.status != StatusReady || queue.Len() == 0 {
				continue
			}
			front := queue.Front()
			queue.Remove(front)
			job := front.Value.(*Job)
			s.transition(w, StatusBusy)
			go s.runJob(ctx, w.id, w.capability, job, events)
		}
	}

	dispatch()
	for completed < stats.Total {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()

		case id := <-cooled:
			s.transition(workers[id], StatusReady)
			dispatch()

		case ev := <-events:
			w := workers[ev.workerID]
			switch {
			case ev.err == nil:
				s.transition(w, StatusReady)
				completed++
				stats.Succeeded++
				s.emit(JobResult{
					URL:         ev.job.Page.URL,
					Provider:    w.capability.Name(),
					Analysis:    ev.analysis,
					Suggestions: ev.suggestions,
				}, completed, stats.Total)

			case provider.IsRateLimit(ev.err):
				// Rate limiting is not a job defect: the job goes back to
				// the head of the queue with its retry counter untouched
				// and the worker cools down for the fixed delay.
				s.transition(w, StatusCoolingDown)
				queue.PushFront(ev.job)
				s.logger.Warn().Str("provider", w.capability.Name()).
					Str("url", ev.job.Page.URL).Dur("cooldown", s.cooldown).
					Msg("worker rate limited")
				id := w.id
				time.AfterFunc(s.cooldown, func() { cooled <- id })

			default:
				s.transition(w, StatusReady)
				if ev.job.Retries < s.maxRetries {
					ev.job.Retries++
					queue.PushBack(ev.job)
					s.logger.Debug().Str("url", ev.job.Page.URL).
						Int("retry", ev.job.Retries).Err(ev.err).Msg("job requeued")
				} else {
					completed++
					stats.Failed++
					s.emit(JobResult{
						URL:      ev.job.Page.URL,
						Provider: w.capability.Name(),
						Err:      ev.err,
					}, completed, stats.Total)
				}
			}
			dispatch()
		}
	}

	return stats, nil
}

// runJob invokes analysis then constraint-checked generation for one job.
// It only reports the outcome; the dispatch loop owns all state.
func (s *Scheduler) runJob(ctx context.Context, workerID int, cap provider.Capability, job *Job, events chan<- outcome) {
	analysis, err := cap.Analyze(ctx, provider.AnalyzeRequest{
		Page:        job.Page,
		Competitors: job.Context.Competitors,
		Siblings:    job.Context.Siblings,
	})
	if err != nil {
		events <- outcome{workerID: workerID, job: job, err: err}
		return
	}

	suggestions, err := s.refiner.Refine(ctx, cap, provider.GenerateRequest{
		Page:     job.Page,
		Analysis: analysis,
		Siblings: job.Context.Siblings,
	})
	events <- outcome{
		workerID:    workerID,
		job:         job,
		analysis:    analysis,
		suggestions: suggestions,
		err:         err,
	}
}

func (s *Scheduler) transition(w *worker, to WorkerStatus) {
	from := w.status
	if from == to {
		return
	}
	w.status = to
	s.logger.Debug().Int("worker", w.id).Str("provider", w.capability.Name()).
		Stringer("from", from).Stringer("to", to).Msg("worker state change")
	if s.onState != nil {
		s.onState(w.id, from, to)
	}
}

func (s *Scheduler) emit(result JobResult, completed, total int) {
	if s.onResult != nil {
		s.onResult(result)
	}
	if s.onProgress != nil {
		s.onProgress(completed, total)
	}
}
