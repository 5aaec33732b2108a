package worker

import (
	"context"
	"log"
	"time"
)

// JobScheduler submits its jobs to the pool on a fixed interval. Used for
// the manual-review sweep.
type JobScheduler struct {
	Name   string
	Ticker *time.Ticker
	Jobs   []Job
	Pool   *WorkingPool
}

func NewJobScheduler(name string, interval time.Duration, pool *WorkingPool) *JobScheduler {
	return &JobScheduler{
		Name:   name,
		Ticker: time.NewTicker(interval),
		Jobs:   make([]Job, 0),
		Pool:   pool,
	}
}

func (s *JobScheduler) AddJob(job Job) {
	s.Jobs = append(s.Jobs, job)
}

func (s *JobScheduler) Run(ctx context.Context) {
	log.Printf("[Scheduler %s] Running.\n", s.Name)
	defer s.Ticker.Stop()

	for {
		select {
		case <-s.Ticker.C:
			for _, job := range s.Jobs {
				s.Pool.SubmitJob(job)
			}

		case <-ctx.Done():
			log.Printf("[Scheduler %s] Shutting down.\n", s.Name)
			return
		}
	}
}
