// Package tmi is a reconnecting Twitch chat client. It keeps the channel and
// user state derived from the chat stream and correlates moderation commands
// with the server notices answering them.
package tmi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"tmichat/pkg/logger"
	"tmichat/pkg/tmi/correlator"
	"tmichat/pkg/tmi/irc"
	"tmichat/pkg/tmi/state"
)

type ReadyState int

const (
	StateDisconnected ReadyState = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosing
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var loginFailures = []string{
	"Login authentication failed",
	"Login unsuccessful",
	"Improperly formatted auth",
	"Invalid NICK",
}

func isLoginFailure(text string) bool {
	for _, f := range loginFailures {
		if strings.Contains(text, f) {
			return true
		}
	}
	return false
}

// session spans one Connect call up to Disconnect or a terminal failure,
// reconnects included.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc

	opened   chan struct{}
	openOnce sync.Once
	done     chan struct{}
	err      error

	notify  *notifier
	backoff *backoff.ExponentialBackOff
}

func (s *session) live() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

type Client struct {
	opts     Options
	log      logger.Logger
	username string

	store  *state.Store
	corr   *correlator.Correlator
	events *registry

	mu       sync.Mutex
	state    ReadyState
	session  *session
	conn     *connection
	wanted   map[string]struct{}
	latency  time.Duration
	attempts int
}

func New(opts Options) *Client {
	opts = opts.withDefaults()

	username := irc.NormalizeUser(opts.Identity.Username)
	if opts.Identity.anonymous() {
		username = fmt.Sprintf("justinfan%d", 1000+rand.IntN(80000))
	}

	c := &Client{
		opts:     opts,
		log:      logger.NewPrefixedLogger(opts.Logger, "tmi"),
		username: username,
		store:    state.NewStore(username),
		corr:     correlator.New(nil),
		events:   newRegistry(),
		wanted:   make(map[string]struct{}),
	}
	for _, ch := range opts.Channels {
		if name := irc.NormalizeChannel(ch); name != "" {
			c.wanted[name] = struct{}{}
		}
	}

	c.corr.OnDone(func(r correlator.Result) {
		c.emit(CommandDone{Command: r.Key.Command, Channel: r.Key.Channel, Err: r.Err, Elapsed: r.Elapsed})
	})

	return c
}

// On registers h for kind and returns a function removing it. Handlers of one
// kind run in registration order.
func (c *Client) On(kind EventKind, h Handler) (off func()) {
	return c.events.on(kind, h)
}

// Connect starts the connection and blocks until the first login succeeds.
// Later reconnections only surface as events. Cancelling ctx before the login
// stops the client.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil && c.session.live() {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		ctx:     sctx,
		cancel:  cancel,
		opened:  make(chan struct{}),
		done:    make(chan struct{}),
		notify:  newNotifier(),
		backoff: newBackoff(c.opts),
	}
	c.session = s
	c.attempts = 0
	c.mu.Unlock()

	go s.notify.run(c.events.emit)
	go c.run(s)

	select {
	case <-s.opened:
		return nil
	case <-s.done:
		return s.err
	case <-ctx.Done():
		s.cancel()
		<-s.done
		return ctx.Err()
	}
}

// Disconnect closes the connection, stops reconnecting and rejects every
// pending command with ErrConnectionClosed.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	s := c.session
	if s == nil || !s.live() {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.state = StateClosing
	c.mu.Unlock()

	c.log.Info("Disconnecting")
	s.cancel()
	<-s.done

	return nil
}

func (c *Client) run(s *session) {
	defer close(s.done)
	defer s.notify.close()

	for {
		opened, err := c.connect(s)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.corr.CancelAll(ErrConnectionClosed)
		c.store.Reset()

		if s.ctx.Err() != nil {
			c.setState(StateClosed)
			if opened {
				c.emit(Disconnected{})
			}
			c.log.Info("Disconnected")
			s.err = ErrConnectionClosed
			return
		}

		c.log.Warn("Connection lost", slog.String("error", err.Error()))
		if opened {
			c.emit(Disconnected{Reason: err})
		}

		if errors.Is(err, ErrLoginFailed) {
			c.log.Error("Login failed", err)
			c.setState(StateClosed)
			s.err = err
			return
		}
		if !c.opts.Reconnect {
			c.setState(StateDisconnected)
			s.err = fmt.Errorf("%w: %w", ErrConnectionClosed, err)
			return
		}

		c.mu.Lock()
		c.attempts++
		attempts := c.attempts
		c.mu.Unlock()

		if limit := c.opts.MaxReconnectAttempts; limit > 0 && attempts > limit {
			c.setState(StateClosed)
			c.log.Error("Unable to reconnect", ErrReconnectExhausted, slog.Int("attempts", limit))
			c.emit(ReconnectFailed{Attempts: limit, Err: err})
			s.err = ErrReconnectExhausted
			return
		}

		interval := s.backoff.NextBackOff()
		c.setState(StateReconnecting)
		c.log.Info("Reconnecting", slog.Int("attempt", attempts), slog.Duration("interval", interval))
		c.emit(Reconnecting{Attempt: attempts, Interval: interval})

		wait := time.NewTimer(interval)
		select {
		case <-s.ctx.Done():
			wait.Stop()
			c.setState(StateClosed)
			s.err = ErrConnectionClosed
			return
		case <-wait.C:
		}
	}
}

// connect runs one connection until it closes. It reports whether the login
// succeeded and why the connection ended.
func (c *Client) connect(s *session) (bool, error) {
	c.setState(StateConnecting)

	ep := c.opts.endpoint()
	c.log.Debug("Connecting", slog.String("server", ep.Addr()), slog.String("transport", c.opts.Transport))

	dctx, cancel := context.WithTimeout(s.ctx, c.opts.Timeout)
	conn, err := c.opts.Dialer.Dial(dctx, ep)
	cancel()
	if err != nil {
		return false, err
	}

	cn := newConnection(s.ctx, conn, c.opts)
	defer cn.close()

	go cn.writeLoop(c.log)

	cn.login = time.AfterFunc(c.opts.Timeout, func() {
		cn.fail(errLoginTimeout)
	})

	_ = cn.send("CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership")
	_ = cn.send("PASS " + c.password())
	_ = cn.send("NICK " + c.username)

	for {
		line, err := conn.ReadLine()
		if err != nil {
			return cn.open.Load(), cn.cause(err)
		}
		c.handle(s, cn, line)
	}
}

func (c *Client) password() string {
	if c.opts.Identity.anonymous() {
		return "SCHMOOPIIE"
	}

	pass := c.opts.Identity.Password
	if !strings.HasPrefix(pass, "oauth:") {
		pass = "oauth:" + pass
	}
	return pass
}

// handle processes one inbound line: state first, then pending commands, then
// subscribers.
func (c *Client) handle(s *session, cn *connection, line string) {
	msg, err := irc.Parse(line)
	if err != nil {
		c.log.Warn("Skipping malformed line", slog.String("line", line), slog.String("error", err.Error()))
		return
	}
	c.log.Trace("Received line", slog.String("line", line))

	c.store.Apply(msg)
	c.corr.Match(msg, c.username)

	switch msg.Kind {
	case irc.KindPing:
		_ = cn.send("PONG :tmi.twitch.tv")
	case irc.KindPong:
		if msg.Trailing != heartbeatToken {
			break
		}
		select {
		case cn.pong <- struct{}{}:
		default:
		}
	case irc.KindEndOfMotd:
		c.open(s, cn)
	case irc.KindReconnect:
		c.log.Info("Server requested a reconnect")
		cn.fail(errServerRestart)
	case irc.KindNotice:
		if !cn.open.Load() && isLoginFailure(msg.Trailing) {
			cn.fail(fmt.Errorf("%w: %s", ErrLoginFailed, msg.Trailing))
		}
	}

	c.emit(c.event(msg))
}

func (c *Client) open(s *session, cn *connection) {
	if !cn.open.CompareAndSwap(false, true) {
		return
	}
	cn.login.Stop()
	s.backoff.Reset()

	c.mu.Lock()
	c.conn = cn
	c.state = StateOpen
	c.attempts = 0
	wanted := slices.Sorted(maps.Keys(c.wanted))
	c.mu.Unlock()

	c.log.Info("Connected", slog.String("server", c.opts.endpoint().Addr()), slog.String("username", c.username))
	go c.heartbeat(cn)

	for _, ch := range wanted {
		c.rejoin(ch)
	}

	s.openOnce.Do(func() {
		c.emit(Connected{Server: c.opts.Server, Port: c.opts.Port})
		close(s.opened)
	})
}

func (c *Client) rejoin(ch string) {
	p := c.corr.Issue(correlator.Key{Command: correlator.Join, Channel: ch}, "JOIN #"+ch, c.commandTimeout(), c.send)
	go func() {
		if _, err := p.Wait(context.Background()); err != nil {
			c.log.Warn("Failed to join channel", slog.String("channel", ch), slog.String("error", err.Error()))
		}
	}()
}

// send queues a line on the open connection.
func (c *Client) send(line string) error {
	c.mu.Lock()
	cn := c.conn
	c.mu.Unlock()

	if cn == nil {
		return ErrConnectionClosed
	}
	return cn.send(line)
}

// emit hands ev to the session notifier, or delivers it directly when no
// session is running.
func (c *Client) emit(ev Event) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil || !s.notify.push(ev) {
		c.events.emit(ev)
	}
}

func (c *Client) setState(st ReadyState) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

func (c *Client) setLatency(d time.Duration) {
	c.mu.Lock()
	c.latency = d
	c.mu.Unlock()
}

// commandTimeout follows the measured latency so slow links do not time out
// every command.
func (c *Client) commandTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return max(c.opts.CommandTimeout, c.latency+100*time.Millisecond)
}

func (c *Client) ReadyState() ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Latency is the round trip of the last heartbeat or Ping.
func (c *Client) Latency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.latency
}

// ReconnectAttempts is the number of reconnects since the last successful login.
func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

func (c *Client) Username() string {
	return c.username
}

func (c *Client) Options() Options {
	return c.opts
}

// Channels lists the channels currently joined.
func (c *Client) Channels() []string {
	return c.store.Channels()
}

// IsMod is best effort: it reflects the last moderator list, MODE and tags seen.
func (c *Client) IsMod(channel, user string) bool {
	return c.store.IsModerator(irc.NormalizeChannel(channel), irc.NormalizeUser(user))
}

func (c *Client) RoomState(channel string) (state.RoomState, bool) {
	return c.store.RoomState(irc.NormalizeChannel(channel))
}

func (c *Client) Roster(channel string) []string {
	return c.store.Roster(irc.NormalizeChannel(channel))
}

// Moderators returns the moderator set and when it was last refreshed by a
// mods reply.
func (c *Client) Moderators(channel string) ([]string, time.Time, bool) {
	return c.store.Moderators(irc.NormalizeChannel(channel))
}

func (c *Client) UserState(channel, user string) (state.UserState, bool) {
	return c.store.UserState(irc.NormalizeChannel(channel), irc.NormalizeUser(user))
}

func (c *Client) GlobalUserState() (state.UserState, bool) {
	return c.store.GlobalUserState()
}
