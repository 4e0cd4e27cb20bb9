package commander

import (
    "context"
    "fmt"
    "strings"

    "learninghouse/internal/brain"
    "learninghouse/internal/jobs"
)

func (c *Commander) trainBackground(name string) *jobs.Job {
    job := c.jobManager.Submit("train", "Training brain "+name, func(ctx context.Context, job *jobs.Job) (any, error) {
        job.AddLog(fmt.Sprintf("training %s with the logged observations", name))
        info, err := c.brains.Retrain(ctx, name)
        if err != nil {
            return nil, err
        }
        job.AddLog(fmt.Sprintf("score %.4f on %d rows", info.Score, info.TrainingDataSize))
        return info, nil
    })
    fmt.Fprintf(c.out, "Job submitted: %s\n", c.cyan(job.ID))
    return job
}

func (c *Commander) listAllJobs() {
    all := c.jobManager.ListJobs()
    if len(all) == 0 {
        fmt.Fprintln(c.out, "No jobs found")
        return
    }

    fmt.Fprintln(c.out, c.cyan("Background Jobs:"))
    fmt.Fprintln(c.out, strings.Repeat("-", 72))
    fmt.Fprintf(c.out, "%-20s %-10s %-10s %s\n", "Job ID", "Type", "Status", "Description")
    fmt.Fprintln(c.out, strings.Repeat("-", 72))

    for _, job := range all {
        fmt.Fprintf(c.out, "%-20s %-10s %-10s %s\n",
            job.ID, job.Type, c.statusColor(job.Status())(string(job.Status())), job.Description)
    }
}

func (c *Commander) statusColor(status jobs.JobStatus) func(a ...any) string {
    switch status {
    case jobs.JobCompleted:
        return c.green
    case jobs.JobFailed:
        return c.red
    case jobs.JobRunning:
        return c.cyan
    }
    return c.yellow
}

func (c *Commander) showJobStatus(jobID string) {
    job, exists := c.jobManager.GetJob(jobID)
    if !exists {
        fmt.Fprintf(c.out, "%s Job not found: %s\n", c.red("✗"), jobID)
        return
    }

    fmt.Fprintf(c.out, "\n%s\n", c.cyan("Job Details:"))
    fmt.Fprintf(c.out, "ID:          %s\n", job.ID)
    fmt.Fprintf(c.out, "Type:        %s\n", job.Type)
    fmt.Fprintf(c.out, "Status:      %s\n", job.Status())
    fmt.Fprintf(c.out, "Start Time:  %s\n", job.StartTime.Format("15:04:05"))
    if end := job.EndTime(); end != nil {
        fmt.Fprintf(c.out, "End Time:    %s\n", end.Format("15:04:05"))
        fmt.Fprintf(c.out, "Duration:    %s\n", end.Sub(job.StartTime))
    }
    if err := job.Err(); err != nil {
        fmt.Fprintf(c.out, "Error:       %s\n", c.red(err.Error()))
    }
    if info, ok := job.Result().(brain.Info); ok {
        c.printInfo(info)
    }
}

func (c *Commander) cancelJob(jobID string) {
    if err := c.jobManager.CancelJob(jobID); err != nil {
        fmt.Fprintf(c.out, "%s %v\n", c.red("✗"), err)
        return
    }
    fmt.Fprintf(c.out, "%s Job cancelled: %s\n", c.green("✓"), jobID)
}

func (c *Commander) showJobLogs(jobID string) {
    job, exists := c.jobManager.GetJob(jobID)
    if !exists {
        fmt.Fprintf(c.out, "%s Job not found: %s\n", c.red("✗"), jobID)
        return
    }

    logs := job.Logs()
    if len(logs) == 0 {
        fmt.Fprintln(c.out, "No logs available")
        return
    }

    fmt.Fprintf(c.out, "\n%s\n", c.cyan(fmt.Sprintf("Logs for job %s:", jobID)))
    for _, line := range logs {
        fmt.Fprintln(c.out, line)
    }
}
