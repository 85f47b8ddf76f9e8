package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State describes where a job is in its lifecycle.
type State string

const (
	StateRunning State = "running"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Status is a point-in-time snapshot of one job.
type Status struct {
	ID       string    `json:"job_id"`
	State    State     `json:"status"`
	Progress []string  `json:"progress"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started_at"`
}

type job struct {
	id      string
	state   State
	events  []Event
	err     string
	started time.Time
	subs    []chan Event
}

// Jobs runs ingestion in the background and tracks each run by ID.
// Callers get the ID back immediately and poll or subscribe for the
// outcome.
type Jobs struct {
	pipeline *Pipeline
	logger   *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// NewJobs creates an empty registry around the given pipeline.
func NewJobs(pipeline *Pipeline, logger *zap.Logger) *Jobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Jobs{
		pipeline: pipeline,
		logger:   logger,
		jobs:     make(map[string]*job),
	}
}

// Start launches an ingestion run and returns its job ID without
// waiting for completion. The run uses the supplied context; cancel it
// to abort mid-flight.
func (r *Jobs) Start(ctx context.Context, sources []string) string {
	j := &job{
		id:      uuid.New().String(),
		state:   StateRunning,
		started: time.Now(),
	}
	r.mu.Lock()
	r.jobs[j.id] = j
	r.mu.Unlock()

	events := r.pipeline.Run(ctx, sources)
	go r.track(j, events)
	return j.id
}

func (r *Jobs) track(j *job, events <-chan Event) {
	for ev := range events {
		r.mu.Lock()
		j.events = append(j.events, ev)
		if ev.Terminal() {
			if ev.Stage == StageFailed {
				j.state = StateFailed
				j.err = ev.Message
			} else {
				j.state = StateReady
			}
		}
		subs := j.subs
		r.mu.Unlock()

		for _, sub := range subs {
			select {
			case sub <- ev:
			default:
				// Slow subscriber; drop rather than stall the run.
			}
		}
	}

	r.mu.Lock()
	subs := j.subs
	j.subs = nil
	r.mu.Unlock()
	for _, sub := range subs {
		close(sub)
	}
	r.logger.Info("ingestion job finished", zap.String("job_id", j.id), zap.String("state", string(j.state)))
}

// Status reports the current snapshot of a job. ok is false for an
// unknown ID.
func (r *Jobs) Status(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Status{}, false
	}
	progress := make([]string, len(j.events))
	for i, ev := range j.events {
		progress[i] = ev.Message
	}
	return Status{
		ID:       j.id,
		State:    j.state,
		Progress: progress,
		Error:    j.err,
		Started:  j.started,
	}, true
}

// Subscribe replays a job's past events and then streams live ones
// until the job finishes, at which point the channel closes. ok is
// false for an unknown ID. For an already-finished job the channel
// carries the replay only.
func (r *Jobs) Subscribe(id string) (<-chan Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, false
	}

	ch := make(chan Event, len(j.events)+64)
	for _, ev := range j.events {
		ch <- ev
	}
	if j.state == StateRunning {
		j.subs = append(j.subs, ch)
	} else {
		close(ch)
	}
	return ch, true
}
