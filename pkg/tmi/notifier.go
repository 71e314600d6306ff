package tmi

import "sync"

// notifier delivers events in order on its own goroutine. The queue is
// unbounded so the inbound path never waits for a slow handler.
type notifier struct {
	mu     sync.Mutex
	queue  []Event
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newNotifier() *notifier {
	return &notifier{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// push queues ev, reporting false once the notifier is closed.
func (n *notifier) push(ev Event) bool {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return false
	}
	n.queue = append(n.queue, ev)
	n.mu.Unlock()

	n.signal()
	return true
}

// close stops the notifier after everything already queued was delivered.
func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	n.signal()
}

func (n *notifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) run(deliver func(Event)) {
	defer close(n.done)

	for {
		n.mu.Lock()
		batch, closed := n.queue, n.closed
		n.queue = nil
		n.mu.Unlock()

		for _, ev := range batch {
			deliver(ev)
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-n.wake
		}
	}
}
