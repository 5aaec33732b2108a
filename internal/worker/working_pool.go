package worker

import (
	"context"
	"log"
	"sync"
)

type Job func(ctx context.Context) error

// WorkingPool runs post-commit jobs (event publishing, ATR generation,
// review sweeps) off the request path.
type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
	}
}

// SubmitJob enqueues a job, dropping it when the queue is full so a slow
// consumer never blocks a decision commit.
func (p *WorkingPool) SubmitJob(job Job) bool {
	select {
	case p.jobChan <- job:
		return true
	default:
		log.Println("[WorkingPool] Job queue full, dropping job.")
		return false
	}
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup

	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	// Wait for the manager to signal shutdown
	<-ctx.Done()

	log.Println("[WorkingPool] Shutdown signaled. Closing job channel.")
	close(p.jobChan)

	workerWg.Wait()
	log.Println("[WorkingPool] All workers stopped.")
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-p.jobChan:
			if !ok {
				return
			}
			p.safeExecution(ctx, job, id)

		case <-ctx.Done():
			// Exit immediately, even if the job channel is not closed.
			log.Printf("[WorkingPool-Worker %d] Context canceled. Exiting.\n", id)
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WorkingPool-Worker %d] FATAL: Panic recovered in job: %v\n", workerID, r)
		}
	}()

	if err := job(ctx); err != nil {
		log.Printf("[WorkingPool-Worker %d] Error executing job: %s.\n", workerID, err)
	}
}
