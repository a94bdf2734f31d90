package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/utils"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrOrchestratorClosed = errors.New("orchestrator is closed")
)

type JobEventType string

const (
	JobEventStatus   JobEventType = "status"
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	Progress *model.Progress `json:"progress,omitempty"`

	// Set on the result event.
	SiteName    string `json:"site_name,omitempty"`
	HealthScore *int   `json:"health_score,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Finished reports whether the job reached a terminal status.
func (s JobStatus) Finished() bool {
	return s == JobDone || s == JobFailed || s == JobCanceled
}

type Job struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	SiteID     string         `json:"site_id,omitempty"`
	CrawlDepth int            `json:"crawl_depth"`
	Status     JobStatus      `json:"status"`
	Error      string         `json:"error,omitempty"`
	Progress   model.Progress `json:"progress"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    time.Time      `json:"ended_at"`

	Result *model.AuditSnapshot `json:"result,omitempty"`
}

// EventPublisher forwards job events outside the process.
type EventPublisher interface {
	Publish(ctx context.Context, jobID string, v any) error
}

// Orchestrator runs audits as background jobs.
type Orchestrator struct {
	cfg       *Config
	auditor   *Auditor
	publisher EventPublisher
	logger    logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobLogs    map[string]*eventLog
	jobCancels map[string]context.CancelFunc
	closed     bool
}

// eventLog holds every event of one job so subscribers can replay it.
// Guarded by Orchestrator.jobsMu.
type eventLog struct {
	events []JobEvent
	done   bool
	// changed is closed and replaced on every append and when the job ends.
	changed chan struct{}
}

func newEventLog() *eventLog {
	return &eventLog{changed: make(chan struct{})}
}

func (l *eventLog) wake() {
	close(l.changed)
	l.changed = make(chan struct{})
}

// NewOrchestrator creates an orchestrator running jobs on auditor.
func NewOrchestrator(cfg *Config, auditor *Auditor, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:        cfg,
		auditor:    auditor,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]*Job),
		jobLogs:    make(map[string]*eventLog),
		jobCancels: make(map[string]context.CancelFunc),
	}
}

// WithPublisher mirrors every job event to p.
func (o *Orchestrator) WithPublisher(p EventPublisher) *Orchestrator {
	o.publisher = p
	return o
}

// emitJobEvent appends ev to the job's log and wakes its subscribers. It never
// blocks on a reader.
func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	ev.JobID = jobID
	o.jobsMu.Lock()
	if l, ok := o.jobLogs[jobID]; ok && !l.done {
		l.events = append(l.events, ev)
		l.wake()
	}
	o.jobsMu.Unlock()

	if o.publisher != nil {
		if err := o.publisher.Publish(o.ctx, jobID, ev); err != nil {
			o.logger.Warn("failed to publish job event",
				logging.Field{Key: "job_id", Value: jobID},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

func (o *Orchestrator) updateJob(jobID string, fn func(j *Job)) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if j, ok := o.jobs[jobID]; ok {
		fn(j)
	}
}

// pruneLocked drops finished jobs older than the retention window.
// Callers hold jobsMu.
func (o *Orchestrator) pruneLocked(now time.Time) {
	if o.cfg.JobRetentionTime <= 0 {
		return
	}
	for id, j := range o.jobs {
		if j.Status.Finished() && !j.EndedAt.IsZero() && now.Sub(j.EndedAt) > o.cfg.JobRetentionTime {
			delete(o.jobs, id)
			delete(o.jobLogs, id)
		}
	}
}

// StartAudit validates req and runs it in the background. The returned Job
// is a copy; follow it with Subscribe.
func (o *Orchestrator) StartAudit(req AuditRequest) (*Job, error) {
	target := utils.EnsureScheme(req.URL)
	if _, err := utils.ParseTarget(target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	req.URL = target

	o.jobsMu.Lock()
	if o.closed {
		o.jobsMu.Unlock()
		return nil, ErrOrchestratorClosed
	}
	o.pruneLocked(time.Now())

	job := &Job{
		ID:         uuid.New().String(),
		URL:        target,
		SiteID:     req.SiteID,
		CrawlDepth: o.cfg.ClampDepth(req.CrawlDepth),
		Status:     JobPending,
		StartedAt:  time.Now().UTC(),
	}
	jobCtx, cancel := context.WithCancel(o.ctx)
	o.jobs[job.ID] = job
	o.jobLogs[job.ID] = newEventLog()
	o.jobCancels[job.ID] = cancel
	snapshot := *job
	o.wg.Add(1)
	o.jobsMu.Unlock()

	o.emitJobEvent(job.ID, JobEvent{Type: JobEventStatus, Status: JobPending})
	o.logger.Info("audit job started",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "url", Value: target})

	go o.runJob(jobCtx, job.ID, req)
	return &snapshot, nil
}

func (o *Orchestrator) runJob(ctx context.Context, jobID string, req AuditRequest) {
	defer o.wg.Done()
	defer o.finishJob(jobID)

	o.updateJob(jobID, func(j *Job) { j.Status = JobRunning })
	o.emitJobEvent(jobID, JobEvent{Type: JobEventStatus, Status: JobRunning})

	snap, err := o.auditor.Run(ctx, &req, func(p model.Progress) {
		o.updateJob(jobID, func(j *Job) { j.Progress = p })
		o.emitJobEvent(jobID, JobEvent{Type: JobEventProgress, Progress: &p})
	})

	switch {
	case err != nil && ctx.Err() != nil:
		o.setStatus(jobID, JobCanceled, ctx.Err().Error())
		o.emitJobEvent(jobID, JobEvent{Type: JobEventStatus, Status: JobCanceled, Error: ctx.Err().Error()})
	case err != nil:
		o.setStatus(jobID, JobFailed, err.Error())
		o.emitJobEvent(jobID, JobEvent{Type: JobEventStatus, Status: JobFailed, Error: err.Error()})
	default:
		o.updateJob(jobID, func(j *Job) {
			j.Status = JobDone
			j.Result = snap
		})
		health := snap.HealthScore
		o.emitJobEvent(jobID, JobEvent{
			Type:        JobEventResult,
			Status:      JobDone,
			SiteName:    snap.SiteName,
			HealthScore: &health,
		})
	}
}

func (o *Orchestrator) setStatus(jobID string, status JobStatus, msg string) {
	o.updateJob(jobID, func(j *Job) {
		j.Status = status
		j.Error = msg
	})
}

// finishJob stamps EndedAt and seals the event log so subscribers terminate
// after the last event.
func (o *Orchestrator) finishJob(jobID string) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if j, ok := o.jobs[jobID]; ok {
		j.EndedAt = time.Now().UTC()
	}
	if l, ok := o.jobLogs[jobID]; ok && !l.done {
		l.done = true
		l.wake()
	}
	delete(o.jobCancels, jobID)
}

// Subscribe streams every event of a job from the first one, including events
// emitted before the call. The channel is closed after the job's terminal
// event, or when ctx is done.
func (o *Orchestrator) Subscribe(ctx context.Context, jobID string) (<-chan JobEvent, error) {
	o.jobsMu.Lock()
	l, ok := o.jobLogs[jobID]
	o.jobsMu.Unlock()
	if !ok {
		return nil, ErrJobNotFound
	}

	out := make(chan JobEvent)
	go func() {
		defer close(out)
		next := 0
		for {
			o.jobsMu.Lock()
			pending := l.events[next:]
			done := l.done
			changed := l.changed
			o.jobsMu.Unlock()

			for _, ev := range pending {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			next += len(pending)
			if done {
				return
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// CancelJob requests cancellation of a running job. Canceling a finished job
// is a no-op.
func (o *Orchestrator) CancelJob(jobID string) error {
	o.jobsMu.Lock()
	_, known := o.jobs[jobID]
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if !known {
		return ErrJobNotFound
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// GetJob returns a copy of the job's current state.
func (o *Orchestrator) GetJob(jobID string) (*Job, error) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// ListJobs returns copies of the retained jobs, newest first, without results.
func (o *Orchestrator) ListJobs() []Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	o.pruneLocked(time.Now())

	out := make([]Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		cp := *j
		cp.Result = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out
}

// Shutdown cancels every running job and waits for them to stop or for ctx
// to expire. Later StartAudit calls fail with ErrOrchestratorClosed.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.jobsMu.Lock()
	o.closed = true
	o.jobsMu.Unlock()
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline. It is safe to call more than once.
func (o *Orchestrator) Close() {
	_ = o.Shutdown(context.Background())
}
