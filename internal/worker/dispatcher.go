package worker

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type DispatcherConfig struct {
	MinWorkers        int
	MaxWorkers        int
	QueueSize         int
	WorkerIdleTimeout time.Duration
}

type chatQueue struct {
	jobs     []Job
	enqueued bool // present in the ready list
	running  bool // a job of this chat is on a worker
}

// Dispatcher fans jobs out to an elastic worker pool while keeping each
// chat's jobs sequential. Chats take turns through a round-robin ready list.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job // intake for Submit

	queueSize int64
	pending   int64 // accepted but not yet handed to a worker

	submitMu sync.RWMutex
	closing  bool
	accepted sync.WaitGroup // accepted jobs that have not finished

	jobCtx     context.Context
	cancelJobs context.CancelFunc
	quit       chan struct{}
	wake       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
	drained    chan struct{}

	mu        sync.Mutex
	queues    map[int64]*chatQueue
	ready     *list.List // chat IDs with runnable jobs
	positions map[int64]*list.Element
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 1
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	d := &Dispatcher{
		JobQueue:  make(chan Job, cfg.QueueSize),
		queueSize: int64(cfg.QueueSize),
		quit:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
		drained:   make(chan struct{}),
		queues:    make(map[int64]*chatQueue),
		ready:     list.New(),
		positions: make(map[int64]*list.Element),
	}
	d.jobCtx, d.cancelJobs = context.WithCancel(context.Background())
	d.pool = newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.WorkerIdleTimeout, d)

	// warm up the minimum number of workers
	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit queues job without blocking. It fails with ErrDispatcherBusy when
// QueueSize jobs are already waiting for a worker.
func (d *Dispatcher) Submit(job Job) error {
	if job.Fn == nil {
		return errNoJobFunc
	}
	d.submitMu.RLock()
	defer d.submitMu.RUnlock()
	if d.closing {
		return ErrDispatcherStopped
	}
	if atomic.AddInt64(&d.pending, 1) > d.queueSize {
		atomic.AddInt64(&d.pending, -1)
		return ErrDispatcherBusy
	}
	job.Type = Run
	d.accepted.Add(1)
	select {
	case d.JobQueue <- job:
		return nil
	default:
		d.accepted.Done()
		atomic.AddInt64(&d.pending, -1)
		return ErrDispatcherBusy
	}
}

// Stop refuses new jobs and waits for the accepted ones to finish. When ctx
// ends first the context passed to jobs is cancelled and ctx.Err is returned;
// the pool is released once the remaining jobs return.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.submitMu.Lock()
		d.closing = true
		d.submitMu.Unlock()
		go func() {
			d.accepted.Wait()
			close(d.quit)
			<-d.stopped
			d.pool.shutdown()
			close(d.drained)
		}()
	})
	select {
	case <-d.drained:
		d.cancelJobs()
		return nil
	case <-ctx.Done():
		d.cancelJobs()
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for {
		if d.dispatchOne() {
			select {
			case job := <-d.JobQueue:
				d.enqueueJob(job)
			default:
			}
			continue
		}
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		case <-d.wake:
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.ChatID]
	if q == nil {
		q = &chatQueue{}
		d.queues[job.ChatID] = q
	}
	q.jobs = append(q.jobs, job)
	d.markReadyLocked(job.ChatID, q)
}

func (d *Dispatcher) markReadyLocked(chatID int64, q *chatQueue) {
	if q.enqueued || q.running || len(q.jobs) == 0 {
		return
	}
	q.enqueued = true
	d.positions[chatID] = d.ready.PushBack(chatID)
}

// dispatchOne hands the next job of the chat at the front of the ready list to a worker.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}
	chatID := elem.Value.(int64)
	d.ready.Remove(elem)
	delete(d.positions, chatID)
	q := d.queues[chatID]
	q.enqueued = false
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.running = true
	d.mu.Unlock()

	atomic.AddInt64(&d.pending, -1)
	workerChan := d.pool.acquire()
	debugLog("[dispatcher] assign job %s for chat %d to worker-%d", job.Name, chatID, d.pool.workerID(workerChan))
	workerChan <- job
	return true
}

// finish is called by a worker once a chat's job has returned.
func (d *Dispatcher) finish(chatID int64) {
	d.mu.Lock()
	if q := d.queues[chatID]; q != nil {
		q.running = false
		if len(q.jobs) == 0 {
			delete(d.queues, chatID)
		} else {
			d.markReadyLocked(chatID, q)
		}
	}
	d.mu.Unlock()
	d.accepted.Done()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}
