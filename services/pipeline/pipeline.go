package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lmercier/bulletin-analyzer/model"
)

var (
	// ErrQueueFull is returned by Submit when the FIFO queue has no room;
	// the caller should retry later, nothing was enqueued.
	ErrQueueFull = errors.New("job queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("pipeline is closed")
	// ErrOutcomeNotFound is returned by result stores for unknown job ids.
	ErrOutcomeNotFound = errors.New("outcome not found")
)

// State is the lifecycle state of a job. Transitions are monotonic:
// Queued → Running → {Finished, Failed}, terminal states are never left.
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateFailed   State = "failed"
	// StateNotFound is reported by Status for ids the pipeline has never
	// seen (or whose outcome has expired from the result store).
	StateNotFound State = "not_found"
)

// Terminal reports whether the state is absorbing.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed
}

func (s State) rank() int {
	switch s {
	case StateQueued:
		return 0
	case StateRunning:
		return 1
	case StateFinished, StateFailed:
		return 2
	default:
		return -1
	}
}

// Input is one extraction request: the decoded document bytes and the roster
// it must be matched against. Document is owned by the job until it reaches
// a terminal state, then released.
type Input struct {
	Document      []byte
	StudentName   string
	SubjectLabels []string
	ClassGroupID  *uint
}

// Runner executes one job. A non-nil error means the job failed; the
// pipeline maps it to the Failed transition and stores a failure outcome
// carrying err.Error() as the summary. Runners must respect ctx, which
// carries the per-job deadline.
type Runner interface {
	Run(ctx context.Context, jobID string, in Input) (*model.AnalysisOutcome, error)
}

// ResultStore is the durable mapping from job id to terminal outcome. It
// must support concurrent access; Get returns ErrOutcomeNotFound for unknown
// ids.
type ResultStore interface {
	Put(ctx context.Context, jobID string, outcome *model.AnalysisOutcome) error
	Get(ctx context.Context, jobID string) (*model.AnalysisOutcome, error)
}

// Config holds pipeline tuning. Zero values fall back to the defaults.
type Config struct {
	Workers    int           // concurrent workers (default 2)
	QueueSize  int           // FIFO queue capacity (default 64)
	JobTimeout time.Duration // per-job wall-clock bound (default 10m)
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 10 * time.Minute
	}
	return c
}

// job is the pipeline's internal bookkeeping for one submission. state is
// guarded by the pipeline mutex; input is owned by the executing worker.
type job struct {
	id         string
	input      Input
	state      State
	enqueuedAt time.Time
	outcome    *model.AnalysisOutcome
}

// StatusResult is the answer to a status query. Outcome is non-nil only for
// terminal states.
type StatusResult struct {
	JobID   string                 `json:"job_id"`
	State   State                  `json:"state"`
	Outcome *model.AnalysisOutcome `json:"outcome,omitempty"`
}

// Pipeline accepts extraction jobs, executes them on a bounded worker pool
// in submission order, tracks lifecycle state and persists terminal outcomes
// to the result store. Jobs are independent: no job reads another's state,
// and the only shared mutable structures are the queue and the store.
type Pipeline struct {
	cfg    Config
	runner Runner
	store  ResultStore

	queue chan *job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	jobs   map[string]*job
	closed bool
}

// New creates a pipeline and starts its workers.
func New(cfg Config, runner Runner, store ResultStore) *Pipeline {
	p := &Pipeline{
		cfg:    cfg.withDefaults(),
		runner: runner,
		store:  store,
		jobs:   make(map[string]*job),
	}
	p.queue = make(chan *job, p.cfg.QueueSize)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues one (document, student) extraction and returns its job id.
// It never waits for execution; it fails fast with ErrQueueFull when the
// queue is at capacity.
func (p *Pipeline) Submit(ctx context.Context, in Input) (string, error) {
	if len(in.Document) == 0 {
		return "", errors.New("empty document")
	}
	if in.StudentName == "" {
		return "", errors.New("missing student name")
	}
	if len(in.SubjectLabels) == 0 {
		return "", errors.New("missing subject labels")
	}

	j := &job{
		id:         uuid.New().String(),
		input:      in,
		state:      StateQueued,
		enqueuedAt: time.Now(),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrClosed
	}
	p.jobs[j.id] = j
	p.mu.Unlock()

	select {
	case p.queue <- j:
		return j.id, nil
	default:
		p.mu.Lock()
		delete(p.jobs, j.id)
		p.mu.Unlock()
		return "", ErrQueueFull
	}
}

// Status reports the current state of a job and, once terminal, its stored
// outcome. Unknown ids come back as StateNotFound rather than an error; an
// id whose outcome still lives in the result store (e.g. after a restart) is
// resolved from there.
func (p *Pipeline) Status(ctx context.Context, jobID string) StatusResult {
	p.mu.RLock()
	j, ok := p.jobs[jobID]
	var state State
	if ok {
		state = j.state
	}
	p.mu.RUnlock()

	if !ok {
		outcome, err := p.store.Get(ctx, jobID)
		if err != nil {
			return StatusResult{JobID: jobID, State: StateNotFound}
		}
		state = StateFinished
		if outcome.Failed() {
			state = StateFailed
		}
		return StatusResult{JobID: jobID, State: state, Outcome: outcome}
	}

	res := StatusResult{JobID: jobID, State: state}
	if state.Terminal() {
		if outcome, err := p.store.Get(ctx, jobID); err == nil {
			res.Outcome = outcome
		} else {
			// Fall back to the in-memory copy so a Failed job always
			// reports its error summary even if the store write failed.
			p.mu.RLock()
			res.Outcome = j.outcome
			p.mu.RUnlock()
		}
	}
	return res
}

// Close stops accepting submissions, drains the queue and waits for the
// workers to finish their current jobs.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.execute(j)
	}
}

// execute runs one job to a terminal state. The result-store write happens
// before the terminal transition so a status query never observes a terminal
// job without its outcome.
func (p *Pipeline) execute(j *job) {
	p.setState(j, StateRunning)

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.JobTimeout)
	defer cancel()

	type runResult struct {
		outcome *model.AnalysisOutcome
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		outcome, err := p.runner.Run(ctx, j.id, j.input)
		done <- runResult{outcome, err}
	}()

	final := StateFinished
	var outcome *model.AnalysisOutcome

	select {
	case r := <-done:
		if r.err != nil {
			final = StateFailed
			outcome = p.failureOutcome(j, r.err.Error())
		} else {
			outcome = r.outcome
			outcome.JobID = j.id
			if outcome.CompletedAt.IsZero() {
				outcome.CompletedAt = time.Now()
			}
		}
	case <-ctx.Done():
		// Best-effort abandonment: the runner goroutine is left to notice
		// the cancelled context on its own, the worker moves on.
		final = StateFailed
		outcome = p.failureOutcome(j, fmt.Sprintf("job exceeded its %s execution bound", p.cfg.JobTimeout))
		log.Printf("Pipeline: job %s timed out after %s, abandoning", j.id, p.cfg.JobTimeout)
	}

	if err := p.store.Put(context.Background(), j.id, outcome); err != nil {
		log.Printf("Pipeline: failed to store outcome for job %s: %v", j.id, err)
		final = StateFailed
		outcome = p.failureOutcome(j, fmt.Sprintf("failed to persist outcome: %v", err))
	}

	p.mu.Lock()
	j.outcome = outcome
	p.mu.Unlock()

	p.setState(j, final)

	// Release the document bytes; the job's terminal state and outcome are
	// all that remain queryable.
	p.mu.Lock()
	j.input.Document = nil
	p.mu.Unlock()
}

func (p *Pipeline) failureOutcome(j *job, summary string) *model.AnalysisOutcome {
	return &model.AnalysisOutcome{
		JobID:        j.id,
		StudentName:  j.input.StudentName,
		ErrorSummary: summary,
		CompletedAt:  time.Now(),
	}
}

// setState applies a monotonic transition. A regression would be a
// programming error; it is logged and ignored rather than applied.
func (p *Pipeline) setState(j *job, next State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if next.rank() <= j.state.rank() {
		log.Printf("Pipeline: refusing state regression %s → %s for job %s", j.state, next, j.id)
		return
	}
	j.state = next
}
