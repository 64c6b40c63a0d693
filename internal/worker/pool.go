package worker

import (
	"sync"
	"time"
)

type workerMeta struct {
	id        int
	ch        chan Job
	lastUsed  time.Time
	enqueued  bool // is in the idle queue
	discarded bool // is targeted as delete
}

// jobChannelPool keeps between min and max workers alive; idle workers above
// min are retired after the expiry.
type jobChannelPool struct {
	mu         sync.Mutex
	cond       *sync.Cond
	idle       []*workerMeta
	metadata   map[chan Job]*workerMeta
	min        int
	max        int
	running    int
	nextID     int
	expiry     time.Duration
	closed     bool
	quit       chan struct{}
	dispatcher *Dispatcher
}

const defaultWorkerIdle = 30 * time.Second

func newJobChannelPool(minWorkers, maxWorkers int, idle time.Duration, dispatcher *Dispatcher) *jobChannelPool {
	if idle <= 0 {
		idle = defaultWorkerIdle
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	p := &jobChannelPool{
		metadata:   make(map[chan Job]*workerMeta),
		min:        minWorkers,
		max:        maxWorkers,
		expiry:     idle,
		quit:       make(chan struct{}),
		dispatcher: dispatcher,
	}
	p.cond = sync.NewCond(&p.mu)
	go p.purgeStaleWorkers()
	return p
}

// newWorkerLocked registers a worker; the caller starts it after unlocking.
func (p *jobChannelPool) newWorkerLocked() *Worker {
	p.nextID++
	worker := NewWorker(p.nextID, p, p.dispatcher)
	p.metadata[worker.jobChannel] = &workerMeta{id: worker.id, ch: worker.jobChannel}
	p.running++
	return worker
}

// spawnWorker adds a new worker straight into the idle queue.
func (p *jobChannelPool) spawnWorker() {
	p.mu.Lock()
	if p.closed || p.running >= p.max {
		p.mu.Unlock()
		return
	}
	worker := p.newWorkerLocked()
	meta := p.metadata[worker.jobChannel]
	meta.enqueued = true
	meta.lastUsed = time.Now()
	p.idle = append(p.idle, meta)
	p.mu.Unlock()
	worker.Start()
	p.cond.Signal()
}

// acquire gets an idle worker, or spawns a new one while below max.
func (p *jobChannelPool) acquire() chan Job {
	for {
		p.mu.Lock()
		if meta := p.popIdleLocked(); meta != nil {
			p.mu.Unlock()
			return meta.ch
		}
		if p.running < p.max {
			worker := p.newWorkerLocked()
			p.mu.Unlock()
			worker.Start()
			return worker.jobChannel
		}
		p.cond.Wait()
		p.mu.Unlock()
	}
}

func (p *jobChannelPool) workerID(ch chan Job) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if meta, ok := p.metadata[ch]; ok {
		return meta.id
	}
	return 0
}

// Release puts a worker back into the idle queue. It reports false when the
// worker should exit instead.
func (p *jobChannelPool) Release(ch chan Job) bool {
	p.mu.Lock()
	meta, ok := p.metadata[ch]
	if !ok || meta.discarded || p.closed {
		p.mu.Unlock()
		return false
	}
	if !meta.enqueued {
		meta.enqueued = true
		meta.lastUsed = time.Now()
		p.idle = append(p.idle, meta)
	}
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// retire deletes a worker
func (p *jobChannelPool) retire(ch chan Job) {
	p.mu.Lock()
	if meta, ok := p.metadata[ch]; ok {
		delete(p.metadata, ch)
		meta.discarded = true
		if p.running > 0 {
			p.running--
		}
	}
	p.mu.Unlock()
	p.cond.Broadcast()
}

// popIdleLocked returns the oldest idle worker, if any
func (p *jobChannelPool) popIdleLocked() *workerMeta {
	for len(p.idle) > 0 {
		meta := p.idle[0]
		p.idle = p.idle[1:]
		if meta.discarded {
			continue
		}
		meta.enqueued = false
		return meta
	}
	return nil
}

func (p *jobChannelPool) purgeStaleWorkers() {
	ticker := time.NewTicker(p.expiry)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.shutdownExpired()
		case <-p.quit:
			return
		}
	}
}

// shutdownExpired retires idle workers past the expiry while keeping min alive.
func (p *jobChannelPool) shutdownExpired() {
	var stale []*workerMeta
	now := time.Now()

	p.mu.Lock()
	if p.closed || len(p.idle) == 0 || p.running <= p.min {
		p.mu.Unlock()
		return
	}
	remaining := p.idle[:0] // keep the original array
	for _, meta := range p.idle {
		if meta.discarded {
			continue
		}
		if now.Sub(meta.lastUsed) >= p.expiry && p.running-len(stale) > p.min {
			meta.discarded = true
			meta.enqueued = false
			stale = append(stale, meta)
			continue
		}
		remaining = append(remaining, meta)
	}
	p.idle = remaining
	p.mu.Unlock()

	for _, meta := range stale {
		meta.ch <- Job{Type: Stop}
	}
}

// shutdown stops every idle worker. Busy workers exit when they are released.
func (p *jobChannelPool) shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	for _, meta := range idle {
		meta.enqueued = false
		meta.discarded = true
	}
	p.mu.Unlock()

	close(p.quit)
	for _, meta := range idle {
		meta.ch <- Job{Type: Stop}
	}
	p.cond.Broadcast()
}

func (p *jobChannelPool) size() (running, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running, len(p.idle)
}
