package tmi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"tmichat/pkg/logger"
	"tmichat/pkg/tmi/transport"
)

// connection is one dialed transport. It owns the outbound writer goroutine
// and is torn down by cancelling its context with the close reason.
type connection struct {
	conn    transport.Conn
	ctx     context.Context
	cancel  context.CancelCauseFunc
	out     chan string
	limiter *rate.Limiter

	pong  chan struct{}
	login *time.Timer
	open  atomic.Bool
}

func newConnection(parent context.Context, conn transport.Conn, o Options) *connection {
	ctx, cancel := context.WithCancelCause(parent)
	cn := &connection{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan string, o.SendQueueSize),
		pong:   make(chan struct{}, 1),
	}
	if o.RateLimit > 0 {
		cn.limiter = rate.NewLimiter(o.RateLimit, o.RateBurst)
	}

	context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	return cn
}

// send queues a line without blocking.
func (cn *connection) send(line string) error {
	if cn.ctx.Err() != nil {
		return ErrConnectionClosed
	}

	select {
	case cn.out <- line:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (cn *connection) writeLoop(log logger.Logger) {
	for {
		select {
		case <-cn.ctx.Done():
			return
		case line := <-cn.out:
			if cn.limiter != nil {
				if err := cn.limiter.Wait(cn.ctx); err != nil {
					return
				}
			}

			if err := cn.conn.WriteLine(line); err != nil {
				cn.fail(fmt.Errorf("write: %w", err))
				return
			}
			log.Trace("Sent line", slog.String("line", redact(line)))
		}
	}
}

// fail closes the connection. The first reason wins.
func (cn *connection) fail(err error) {
	cn.cancel(err)
}

func (cn *connection) close() {
	cn.cancel(ErrConnectionClosed)
	if cn.login != nil {
		cn.login.Stop()
	}
}

// cause returns the reason the connection was closed, or err when it was not
// closed by us.
func (cn *connection) cause(err error) error {
	if cn.ctx.Err() != nil {
		if cause := context.Cause(cn.ctx); cause != nil {
			return cause
		}
	}
	return fmt.Errorf("read: %w", err)
}

func redact(line string) string {
	if strings.HasPrefix(line, "PASS ") {
		return "PASS ***"
	}
	return line
}

// heartbeatToken tells heartbeat PONGs apart from the ones answering Ping.
const heartbeatToken = "tmichat-heartbeat"

// heartbeat pings the server while the connection is open and closes it when
// a reply does not arrive in time.
func (c *Client) heartbeat(cn *connection) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cn.ctx.Done():
			return
		case <-ticker.C:
		}

		select {
		case <-cn.pong:
		default:
		}

		start := time.Now()
		if err := cn.send("PING :" + heartbeatToken); err != nil {
			c.log.Warn("Failed to send ping", slog.String("error", err.Error()))
			continue
		}

		timeout := time.NewTimer(c.opts.Timeout)
		select {
		case <-cn.ctx.Done():
			timeout.Stop()
			return
		case <-cn.pong:
			timeout.Stop()
			c.setLatency(time.Since(start))
		case <-timeout.C:
			c.log.Warn("Ping timeout", slog.Duration("timeout", c.opts.Timeout))
			cn.fail(errPingTimeout)
			return
		}
	}
}
