package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor is one unit of periodic work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed interval. Poll failures are logged
// and the loop keeps going; only Stop or context cancellation ends it.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start polls until the context is cancelled or Stop is called. The first
// poll runs immediately so a fresh process catches up without waiting out a
// full interval.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("worker polling every %v", w.pollInterval)

	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("worker stopping: context cancelled")
			return
		case <-w.stopChan:
			log.Println("worker stopping: stop requested")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("worker poll failed: %v", err)
	}
}

// Stop ends the polling loop and waits for the current poll to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
