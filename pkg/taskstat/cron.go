package taskstat

import (
	"context"

	"github.com/robfig/cron/v3"
)

// Job adapts an existing cron job so every invocation is timed and reported
// under the given task name.
func (r *Reporter) Job(name string, j cron.Job) cron.Job {
	return r.JobFunc(name, func(context.Context) error {
		j.Run()
		return nil
	})
}

// JobFunc adapts a context-aware function into a cron job reported under
// the given task name. Returned errors are recorded in the task metrics.
func (r *Reporter) JobFunc(name string, fn func(context.Context) error) cron.Job {
	return cron.FuncJob(func() {
		_ = r.Run(context.Background(), name, fn)
	})
}
