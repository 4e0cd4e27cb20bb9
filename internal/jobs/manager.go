package jobs

import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"
)

type JobStatus string

const (
    JobPending   JobStatus = "pending"
    JobRunning   JobStatus = "running"
    JobCompleted JobStatus = "completed"
    JobFailed    JobStatus = "failed"
    JobCancelled JobStatus = "cancelled"
)

// Job is a background run, such as retraining a brain from the commander.
type Job struct {
    ID          string
    Type        string
    Description string
    StartTime   time.Time

    status     JobStatus
    endTime    *time.Time
    err        error
    result     any
    logs       []string
    cancelFunc context.CancelFunc
    done       chan struct{}
    mu         sync.RWMutex
}

type Manager struct {
    jobs map[string]*Job
    mu   sync.RWMutex
    now  func() time.Time
}

func NewManager() *Manager {
    return &Manager{
        jobs: make(map[string]*Job),
        now:  time.Now,
    }
}

// Submit runs fn in its own goroutine and tracks it as a job. The context
// passed to fn is cancelled by CancelJob.
func (m *Manager) Submit(jobType, description string, fn func(ctx context.Context, job *Job) (any, error)) *Job {
    ctx, cancel := context.WithCancel(context.Background())

    job := &Job{
        ID:          jobType + "-" + uuid.NewString()[:8],
        Type:        jobType,
        Description: description,
        StartTime:   m.now(),
        status:      JobPending,
        cancelFunc:  cancel,
        done:        make(chan struct{}),
    }

    m.mu.Lock()
    m.jobs[job.ID] = job
    m.mu.Unlock()

    go func() {
        defer close(job.done)
        defer cancel()

        job.setStatus(JobRunning)
        job.AddLog("started")

        result, err := fn(ctx, job)
        switch {
        case ctx.Err() != nil && job.Status() == JobCancelled:
            job.AddLog("cancelled")
        case err != nil:
            job.fail(err, m.now())
            job.AddLog(fmt.Sprintf("failed: %v", err))
        default:
            job.complete(result, m.now())
            job.AddLog("completed")
        }
    }()

    return job
}

func (m *Manager) GetJob(jobID string) (*Job, bool) {
    m.mu.RLock()
    defer m.mu.RUnlock()

    job, exists := m.jobs[jobID]
    return job, exists
}

// ListJobs returns all jobs, oldest first.
func (m *Manager) ListJobs() []*Job {
    m.mu.RLock()
    defer m.mu.RUnlock()

    jobs := make([]*Job, 0, len(m.jobs))
    for _, job := range m.jobs {
        jobs = append(jobs, job)
    }
    sort.Slice(jobs, func(i, j int) bool {
        if jobs[i].StartTime.Equal(jobs[j].StartTime) {
            return jobs[i].ID < jobs[j].ID
        }
        return jobs[i].StartTime.Before(jobs[j].StartTime)
    })
    return jobs
}

func (m *Manager) CancelJob(jobID string) error {
    job, exists := m.GetJob(jobID)
    if !exists {
        return fmt.Errorf("job %s not found", jobID)
    }

    job.mu.Lock()
    defer job.mu.Unlock()

    if job.status != JobRunning && job.status != JobPending {
        return fmt.Errorf("job %s is not running", jobID)
    }

    job.cancelFunc()
    job.status = JobCancelled
    now := m.now()
    job.endTime = &now

    return nil
}

func (j *Job) setStatus(status JobStatus) {
    j.mu.Lock()
    defer j.mu.Unlock()
    if j.status == JobCancelled {
        return
    }
    j.status = status
}

func (j *Job) fail(err error, now time.Time) {
    j.mu.Lock()
    defer j.mu.Unlock()
    j.err = err
    j.status = JobFailed
    j.endTime = &now
}

func (j *Job) complete(result any, now time.Time) {
    j.mu.Lock()
    defer j.mu.Unlock()
    j.result = result
    j.status = JobCompleted
    j.endTime = &now
}

func (j *Job) AddLog(message string) {
    j.mu.Lock()
    defer j.mu.Unlock()
    timestamp := time.Now().Format("15:04:05")
    j.logs = append(j.logs, fmt.Sprintf("[%s] %s", timestamp, message))
}

// Wait blocks until the job function returned.
func (j *Job) Wait() {
    <-j.done
}

func (j *Job) Status() JobStatus {
    j.mu.RLock()
    defer j.mu.RUnlock()
    return j.status
}

func (j *Job) EndTime() *time.Time {
    j.mu.RLock()
    defer j.mu.RUnlock()
    return j.endTime
}

func (j *Job) Err() error {
    j.mu.RLock()
    defer j.mu.RUnlock()
    return j.err
}

func (j *Job) Result() any {
    j.mu.RLock()
    defer j.mu.RUnlock()
    return j.result
}

func (j *Job) Logs() []string {
    j.mu.RLock()
    defer j.mu.RUnlock()
    logs := make([]string, len(j.logs))
    copy(logs, j.logs)
    return logs
}
