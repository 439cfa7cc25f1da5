package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lmercier/bulletin-analyzer/model"
)

// memoryStore is a thread-safe in-memory ResultStore for tests.
type memoryStore struct {
	mu       sync.Mutex
	outcomes map[string]*model.AnalysisOutcome
	putErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{outcomes: make(map[string]*model.AnalysisOutcome)}
}

func (m *memoryStore) Put(ctx context.Context, jobID string, outcome *model.AnalysisOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.outcomes[jobID] = outcome
	return nil
}

func (m *memoryStore) Get(ctx context.Context, jobID string) (*model.AnalysisOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome, ok := m.outcomes[jobID]
	if !ok {
		return nil, ErrOutcomeNotFound
	}
	return outcome, nil
}

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, jobID string, in Input) (*model.AnalysisOutcome, error)

func (f runnerFunc) Run(ctx context.Context, jobID string, in Input) (*model.AnalysisOutcome, error) {
	return f(ctx, jobID, in)
}

func okRunner(delay time.Duration) runnerFunc {
	return func(ctx context.Context, jobID string, in Input) (*model.AnalysisOutcome, error) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return &model.AnalysisOutcome{StudentName: in.StudentName, Assessment: "ok"}, nil
	}
}

func testInput(name string) Input {
	return Input{
		Document:      []byte("%PDF-fake"),
		StudentName:   name,
		SubjectLabels: []string{"MATH"},
	}
}

func waitTerminal(t *testing.T, p *Pipeline, jobID string) StatusResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		res := p.Status(context.Background(), jobID)
		if res.State.Terminal() {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return StatusResult{}
}

func TestSubmitValidation(t *testing.T) {
	p := New(Config{Workers: 1}, okRunner(0), newMemoryStore())
	defer p.Close()

	tests := []struct {
		name string
		in   Input
	}{
		{"empty document", Input{StudentName: "Jean", SubjectLabels: []string{"MATH"}}},
		{"missing student", Input{Document: []byte("x"), SubjectLabels: []string{"MATH"}}},
		{"missing labels", Input{Document: []byte("x"), StudentName: "Jean"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Submit(context.Background(), tt.in); err == nil {
				t.Error("expected submit to be rejected")
			}
		})
	}
}

func TestJobFinishes(t *testing.T) {
	store := newMemoryStore()
	p := New(Config{Workers: 1}, okRunner(0), store)
	defer p.Close()

	id, err := p.Submit(context.Background(), testInput("Jean Dupont"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	res := waitTerminal(t, p, id)
	if res.State != StateFinished {
		t.Fatalf("state = %s, want finished", res.State)
	}
	if res.Outcome == nil || res.Outcome.StudentName != "Jean Dupont" {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
	if res.Outcome.JobID != id {
		t.Errorf("outcome job id = %q, want %q", res.Outcome.JobID, id)
	}
}

func TestRunnerErrorMapsToFailed(t *testing.T) {
	p := New(Config{Workers: 1}, runnerFunc(func(ctx context.Context, jobID string, in Input) (*model.AnalysisOutcome, error) {
		return nil, errors.New("student name \"Paul Martin\" not found in bulletin")
	}), newMemoryStore())
	defer p.Close()

	id, _ := p.Submit(context.Background(), testInput("Paul Martin"))
	res := waitTerminal(t, p, id)

	if res.State != StateFailed {
		t.Fatalf("state = %s, want failed", res.State)
	}
	if res.Outcome == nil || res.Outcome.ErrorSummary == "" {
		t.Fatal("failed job must carry a human-readable error summary")
	}
	if res.Outcome.StudentName != "Paul Martin" {
		t.Errorf("failure outcome keeps the student name, got %q", res.Outcome.StudentName)
	}
}

func TestJobTimeout(t *testing.T) {
	p := New(Config{Workers: 1, JobTimeout: 30 * time.Millisecond}, okRunner(5*time.Second), newMemoryStore())
	defer p.Close()

	id, _ := p.Submit(context.Background(), testInput("Jean"))
	res := waitTerminal(t, p, id)

	if res.State != StateFailed {
		t.Fatalf("state = %s, want failed after timeout", res.State)
	}
	if res.Outcome == nil || res.Outcome.ErrorSummary == "" {
		t.Fatal("timeout must produce an error summary")
	}
}

func TestStatusUnknownID(t *testing.T) {
	p := New(Config{Workers: 1}, okRunner(0), newMemoryStore())
	defer p.Close()

	res := p.Status(context.Background(), "no-such-job")
	if res.State != StateNotFound {
		t.Errorf("state = %s, want not_found", res.State)
	}
}

func TestStatusResolvesFromStoreAfterRestart(t *testing.T) {
	// An id the pipeline has never seen but whose outcome survives in the
	// store (a previous process run) is answered from the store.
	store := newMemoryStore()
	store.Put(context.Background(), "old-job", &model.AnalysisOutcome{JobID: "old-job", StudentName: "Jean", Assessment: "ok"})

	p := New(Config{Workers: 1}, okRunner(0), store)
	defer p.Close()

	res := p.Status(context.Background(), "old-job")
	if res.State != StateFinished || res.Outcome == nil {
		t.Errorf("status = %+v, want finished with outcome", res)
	}
}

func TestQueueFull(t *testing.T) {
	block := make(chan struct{})
	p := New(Config{Workers: 1, QueueSize: 1}, runnerFunc(func(ctx context.Context, jobID string, in Input) (*model.AnalysisOutcome, error) {
		<-block
		return &model.AnalysisOutcome{StudentName: in.StudentName}, nil
	}), newMemoryStore())
	defer func() {
		close(block)
		p.Close()
	}()

	// First job occupies the worker, second fills the queue.
	if _, err := p.Submit(context.Background(), testInput("a")); err != nil {
		t.Fatal(err)
	}
	// Give the worker time to dequeue the first job.
	time.Sleep(20 * time.Millisecond)
	if _, err := p.Submit(context.Background(), testInput("b")); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Submit(context.Background(), testInput("c")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(Config{Workers: 1}, okRunner(0), newMemoryStore())
	p.Close()

	if _, err := p.Submit(context.Background(), testInput("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestConcurrentJobsRunExactlyOnce(t *testing.T) {
	const jobs = 20
	const workers = 3

	var runs int64
	runner := runnerFunc(func(ctx context.Context, jobID string, in Input) (*model.AnalysisOutcome, error) {
		atomic.AddInt64(&runs, 1)
		time.Sleep(time.Millisecond)
		return &model.AnalysisOutcome{StudentName: in.StudentName}, nil
	})

	store := newMemoryStore()
	p := New(Config{Workers: workers, QueueSize: jobs}, runner, store)
	defer p.Close()

	ids := make([]string, 0, jobs)
	for i := 0; i < jobs; i++ {
		id, err := p.Submit(context.Background(), testInput(fmt.Sprintf("student-%d", i)))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		res := waitTerminal(t, p, id)
		if res.State != StateFinished {
			t.Errorf("job %s ended %s", id, res.State)
		}
	}

	if got := atomic.LoadInt64(&runs); got != jobs {
		t.Errorf("runner invoked %d times for %d jobs", got, jobs)
	}
}

// States observed by concurrent pollers must never regress.
func TestStateMonotonicity(t *testing.T) {
	p := New(Config{Workers: 2}, okRunner(20*time.Millisecond), newMemoryStore())
	defer p.Close()

	id, err := p.Submit(context.Background(), testInput("Jean"))
	if err != nil {
		t.Fatal(err)
	}

	last := StateQueued
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state := p.Status(context.Background(), id).State
		if state.rank() < last.rank() {
			t.Fatalf("state regressed from %s to %s", last, state)
		}
		last = state
		if state.Terminal() {
			return
		}
	}
	t.Fatal("job never terminated")
}

func TestStoreFailureMarksJobFailed(t *testing.T) {
	store := newMemoryStore()
	store.putErr = errors.New("redis down")

	p := New(Config{Workers: 1}, okRunner(0), store)
	defer p.Close()

	id, _ := p.Submit(context.Background(), testInput("Jean"))
	res := waitTerminal(t, p, id)

	if res.State != StateFailed {
		t.Fatalf("state = %s, want failed when the outcome cannot be persisted", res.State)
	}
	if res.Outcome == nil || res.Outcome.ErrorSummary == "" {
		t.Error("persistence failure must still surface an error summary")
	}
}
