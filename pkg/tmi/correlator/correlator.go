package correlator

import (
	"context"
	"sync"
	"time"

	"tmichat/pkg/tmi/irc"
)

// Key identifies a pending command. Channel is normalized and empty for
// global commands.
type Key struct {
	Command Command
	Channel string
}

// SendFunc writes one line to the wire without blocking.
type SendFunc func(line string) error

// Result is reported to the OnDone observer for every finished command.
type Result struct {
	Key     Key
	Err     error
	Elapsed time.Duration
}

// A Pending is one issued command. It reaches exactly one terminal outcome.
type Pending struct {
	c *Correlator

	key     Key
	line    string
	timeout time.Duration
	send    SendFunc

	issuedAt time.Time
	sentAt   time.Time
	timer    *time.Timer

	done     chan struct{}
	finished bool
	payload  any
	err      error
}

func (p *Pending) Key() Key {
	return p.key
}

// Done is closed once the command has an outcome.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the outcome; it is only meaningful after Done is closed.
func (p *Pending) Result() (any, error) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()

	return p.payload, p.err
}

// SentAt is when the command was written, zero while it is still queued.
func (p *Pending) SentAt() time.Time {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()

	return p.sentAt
}

// Wait blocks until the outcome. Cancelling ctx withdraws the command and makes
// ctx.Err() its outcome, unless it already finished.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.c.Cancel(p, ctx.Err())
	}
	return p.Result()
}

// Correlator matches inbound answers to issued commands.
//
// Commands sharing a Key are serialized: only the head of a key's queue is on
// the wire, and the next one is written when the head finishes. Its timeout
// starts when it is written.
type Correlator struct {
	mu     sync.Mutex
	queues map[Key][]*Pending
	table  Table

	onDone   func(Result)
	finished []*Pending
}

func New(table Table) *Correlator {
	if table == nil {
		table = DefaultTable
	}

	return &Correlator{
		queues: make(map[Key][]*Pending),
		table:  table,
	}
}

// OnDone sets an observer called, outside the lock, after each outcome.
func (c *Correlator) OnDone(fn func(Result)) {
	c.mu.Lock()
	c.onDone = fn
	c.mu.Unlock()
}

// Issue registers a command and writes it if nothing with the same key is in flight.
func (c *Correlator) Issue(key Key, line string, timeout time.Duration, send SendFunc) *Pending {
	p := &Pending{
		c:        c,
		key:      key,
		line:     line,
		timeout:  timeout,
		send:     send,
		issuedAt: time.Now(),
		done:     make(chan struct{}),
	}

	c.do(func() {
		q := c.queues[key]
		c.queues[key] = append(q, p)
		if len(q) == 0 {
			c.startLocked(p)
		}
	})

	return p
}

// Resolve finishes the in-flight command for key successfully. It reports
// false when nothing was in flight.
func (c *Correlator) Resolve(key Key, payload any) bool {
	var ok bool
	c.do(func() {
		if q := c.queues[key]; len(q) > 0 {
			ok = c.finishLocked(q[0], payload, nil)
		}
	})
	return ok
}

// Reject finishes the in-flight command for key with err.
func (c *Correlator) Reject(key Key, err error) bool {
	var ok bool
	c.do(func() {
		if q := c.queues[key]; len(q) > 0 {
			ok = c.finishLocked(q[0], nil, err)
		}
	})
	return ok
}

// Cancel withdraws p, in flight or queued, with err.
func (c *Correlator) Cancel(p *Pending, err error) bool {
	var ok bool
	c.do(func() {
		ok = c.finishLocked(p, nil, err)
	})
	return ok
}

type hit struct {
	p       *Pending
	payload any
	err     error
}

// Match applies an inbound message to every in-flight command whose rule it
// satisfies and returns how many commands it finished. A failure notice such as
// no_permission rejects every in-flight command on that channel listing it.
func (c *Correlator) Match(msg *irc.Message, self string) int {
	if msg == nil {
		return 0
	}
	channel := msg.Channel()

	var n int
	c.do(func() {
		var hits []hit
		for key, q := range c.queues {
			if len(q) == 0 {
				continue
			}
			rule, ok := c.table[key.Command]
			if !ok {
				continue
			}
			if !rule.Global && key.Channel != channel {
				continue
			}

			head := q[0]
			if head.sentAt.IsZero() {
				continue
			}

			if rule.fails(msg) {
				hits = append(hits, hit{p: head, err: &CommandRejectedError{
					Command: key.Command,
					Channel: key.Channel,
					Reason:  msg.MsgID(),
					Message: msg.Trailing,
				}})
				continue
			}
			if payload, ok := rule.succeeds(msg, self); ok {
				hits = append(hits, hit{p: head, payload: payload})
			}
		}

		for _, h := range hits {
			if c.finishLocked(h.p, h.payload, h.err) {
				n++
			}
		}
	})

	return n
}

// CancelAll finishes every command, queued ones included, with err. Queued
// commands are never written.
func (c *Correlator) CancelAll(err error) int {
	var n int
	c.do(func() {
		queues := c.queues
		c.queues = make(map[Key][]*Pending)

		for _, q := range queues {
			for _, p := range q {
				if c.completeLocked(p, nil, err) {
					n++
				}
			}
		}
	})
	return n
}

// Len returns the number of commands without an outcome.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, q := range c.queues {
		n += len(q)
	}
	return n
}

// do runs fn under the lock and reports finished commands afterwards.
func (c *Correlator) do(fn func()) {
	c.mu.Lock()
	fn()
	finished := c.finished
	c.finished = nil
	onDone := c.onDone
	c.mu.Unlock()

	if onDone == nil {
		return
	}
	for _, p := range finished {
		onDone(Result{Key: p.key, Err: p.err, Elapsed: time.Since(p.issuedAt)})
	}
}

func (c *Correlator) startLocked(p *Pending) {
	for p != nil {
		p.sentAt = time.Now()
		if err := p.send(p.line); err != nil {
			p.sentAt = time.Time{}
			next := c.removeLocked(p)
			c.completeLocked(p, nil, err)
			p = next
			continue
		}

		pending := p
		p.timer = time.AfterFunc(p.timeout, func() {
			c.do(func() {
				c.finishLocked(pending, nil, ErrTimeout)
			})
		})
		return
	}
}

func (c *Correlator) finishLocked(p *Pending, payload any, err error) bool {
	if p.finished {
		return false
	}

	next := c.removeLocked(p)
	c.completeLocked(p, payload, err)
	if next != nil {
		c.startLocked(next)
	}
	return true
}

// removeLocked drops p from its queue and returns the new head if p was the old one.
func (c *Correlator) removeLocked(p *Pending) *Pending {
	q := c.queues[p.key]
	for i, item := range q {
		if item != p {
			continue
		}

		q = append(q[:i:i], q[i+1:]...)
		if len(q) == 0 {
			delete(c.queues, p.key)
			return nil
		}
		c.queues[p.key] = q
		if i == 0 {
			return q[0]
		}
		return nil
	}
	return nil
}

func (c *Correlator) completeLocked(p *Pending, payload any, err error) bool {
	if p.finished {
		return false
	}

	p.finished = true
	p.payload, p.err = payload, err
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	c.finished = append(c.finished, p)

	return true
}
