package bridge

import "sync"

// DefaultWorkers is the pool size used by every generated module.
const DefaultWorkers = 10

// WorkerPool runs tasks on a fixed set of goroutines in FIFO order.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool

	workers  sync.WaitGroup
	shutdown sync.Once
}

// NewWorkerPool starts n workers. n <= 0 means DefaultWorkers.
func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		n = DefaultWorkers
	}
	p := &WorkerPool{}
	p.cond = sync.NewCond(&p.mu)
	p.workers.Add(n)
	for i := 0; i < n; i++ {
		go p.work()
	}
	return p
}

func (p *WorkerPool) work() {
	defer p.workers.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		runTask(task)
	}
}

func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warningf("worker task panicked: %v", r)
		}
	}()
	task()
}

// Enqueue schedules task and reports whether it was accepted. Tasks are
// dropped once Shutdown has been called.
func (p *WorkerPool) Enqueue(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return true
}

// Pending returns the number of queued tasks not yet picked up.
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Shutdown stops intake, discards queued tasks and waits for running tasks
// to finish. Later calls return immediately once the first has completed.
func (p *WorkerPool) Shutdown() {
	p.shutdown.Do(func() {
		p.mu.Lock()
		p.stopped = true
		dropped := len(p.queue)
		p.queue = nil
		p.cond.Broadcast()
		p.mu.Unlock()

		p.workers.Wait()
		if dropped > 0 {
			log.Debugf("worker pool stopped, %d queued task(s) dropped", dropped)
		}
	})
}
