package worker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type WorkerPool struct {
	taskQueue chan Task
	wg        sync.WaitGroup

	// guards isClosing and the close of taskQueue, so a Submit that
	// passed the check can't race the channel close
	mu        sync.RWMutex
	isClosing bool
}

func NewWorkerPool(size int) *WorkerPool {
	wp := &WorkerPool{
		taskQueue: make(chan Task, 1000), // Buffer for 1000 pending tasks
	}

	// Start the workers
	for i := 0; i < size; i++ {
		wp.wg.Add(1) // add to WaitGroup
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done() // signal when worker finished
	for task := range wp.taskQueue {
		ctx := context.Background()
		if err := task(ctx); err != nil { // run task
			logrus.WithField("error", err).Warn("Worker task failed")
		}
	}
}

func (wp *WorkerPool) Submit(t Task) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.isClosing {
		logrus.Warn("task submitted during shutdown, dropping.")
		return
	}
	select {
	case wp.taskQueue <- t: // send task to worker pool
	default:
		logrus.Warn("Task queue full, dropping task!")
	}
}

// Shutdown closes the queue and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.isClosing {
		wp.mu.Unlock()
		return
	}
	wp.isClosing = true
	close(wp.taskQueue) // Stop accepting new tasks
	wp.mu.Unlock()

	wp.wg.Wait() // Wait for all active workers to finish tasks
}
