package mux

import (
	"sync"

	"github.com/rs/xid"
)

// An Executor runs pump tasks on workers it owns. A caller-supplied
// executor is borrowed: the channel submits work to it but never shuts
// it down.
type Executor interface {
	// Go submits a task without waiting for it to run.
	Go(task func())

	// Shutdown stops accepting tasks and releases workers. Tasks already
	// running are not interrupted; a task blocked in I/O stays blocked
	// inside its worker and is not observed further.
	Shutdown()
}

// singleWorker is the owned fallback executor: one goroutine fed by a
// small task queue, created per channel when the caller supplies none.
type singleWorker struct {
	name  string
	tasks chan func()
	quit  chan struct{}
	once  sync.Once
}

func newSingleWorker() *singleWorker {
	w := &singleWorker{
		name:  "pump-" + xid.New().String(),
		tasks: make(chan func(), 1),
		quit:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *singleWorker) run() {
	for {
		select {
		case task := <-w.tasks:
			task()
		case <-w.quit:
			return
		}
	}
}

func (w *singleWorker) Go(task func()) {
	select {
	case w.tasks <- task:
	case <-w.quit:
	}
}

func (w *singleWorker) Shutdown() {
	w.once.Do(func() { close(w.quit) })
}

// executorHandle pairs an executor with an explicit owns-lifecycle flag,
// so teardown checks the flag instead of branching on provenance.
type executorHandle struct {
	exec  Executor
	owned bool
}

func (h executorHandle) shutdown() {
	if h.owned && h.exec != nil {
		h.exec.Shutdown()
	}
}
