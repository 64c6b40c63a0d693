package worker

import (
	"log"
	"runtime/debug"
)

type Worker struct {
	id         int
	pool       *jobChannelPool
	dispatcher *Dispatcher
	jobChannel chan Job
}

func NewWorker(id int, pool *jobChannelPool, dispatcher *Dispatcher) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		dispatcher: dispatcher,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			job := <-w.jobChannel
			if job.Type == Stop {
				w.pool.retire(w.jobChannel)
				debugLog("[worker-%d] stopped", w.id)
				return
			}
			w.execute(job)
			if !w.pool.Release(w.jobChannel) {
				w.pool.retire(w.jobChannel)
				return
			}
		}
	}()
}

func (w *Worker) execute(job Job) {
	defer w.dispatcher.finish(job.ChatID)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[worker-%d] job %s for chat %d panicked: %v\n%s", w.id, job.Name, job.ChatID, r, debug.Stack())
		}
	}()
	debugLog("[worker-%d] run job %s for chat %d", w.id, job.Name, job.ChatID)
	job.Fn(w.dispatcher.jobCtx)
}
