package store

import (
	"sync"
	"sync/atomic"
)

// evaluator turns a fresh read of a collection into the callback to deliver.
// last is the state returned by the previous call; changed is false when
// nothing needs delivering.
type evaluator func(docs map[string]Doc, err error, last any) (d delivery, state any, changed bool)

// delivery is one queued callback. A snapshot delivery still waiting in the
// queue is replaced by a newer snapshot, so a slow subscriber holds at most
// one pending result set between errors.
type delivery struct {
	fn       func()
	snapshot bool
}

// listener owns one subscription's FIFO queue and delivery goroutine.
// Writers never wait on a slow callback; callbacks for one listener never
// overlap.
type listener struct {
	collection string
	eval       evaluator
	last       any // guarded by Client.wmu

	qmu   sync.Mutex
	queue []delivery
	wake  chan struct{}
	done  chan struct{}

	cbmu       sync.Mutex // held while a callback runs
	closed     atomic.Bool
	inCallback atomic.Bool
}

func newListener(collection string, eval evaluator) *listener {
	return &listener{
		collection: collection,
		eval:       eval,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (l *listener) offer(docs map[string]Doc, err error) {
	d, state, changed := l.eval(docs, err, l.last)
	l.last = state
	if !changed {
		return
	}
	l.qmu.Lock()
	if n := len(l.queue); d.snapshot && n > 0 && l.queue[n-1].snapshot {
		l.queue[n-1] = d
	} else {
		l.queue = append(l.queue, d)
	}
	l.qmu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *listener) pop() (func(), bool) {
	l.qmu.Lock()
	defer l.qmu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	d := l.queue[0]
	l.queue[0] = delivery{}
	l.queue = l.queue[1:]
	return d.fn, true
}

func (l *listener) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}
		for {
			fn, ok := l.pop()
			if !ok {
				break
			}
			l.deliver(fn)
			if l.closed.Load() {
				return
			}
		}
	}
}

func (l *listener) deliver(fn func()) {
	l.cbmu.Lock()
	defer l.cbmu.Unlock()
	if l.closed.Load() {
		return
	}
	l.inCallback.Store(true)
	defer l.inCallback.Store(false)
	fn()
}

// stop prevents any callback that has not started from running. Called
// from outside a callback it also waits for one that is about to start.
func (l *listener) stop() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}
	close(l.done)
	if !l.inCallback.Load() {
		// Barrier: wait out a delivery that checked closed before we set it.
		l.cbmu.Lock()
		l.cbmu.Unlock()
	}
}
