package tmi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmichat/pkg/logger"
	"tmichat/pkg/tmi/internal/tmitest"
	"tmichat/pkg/tmi/transport"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestClient(t *testing.T, srv *tmitest.Server, mutate func(*Options)) *Client {
	t.Helper()

	opts := DefaultOptions()
	opts.Identity = Identity{Username: "Bot", Password: "token"}
	opts.Dialer = srv
	opts.Logger = logger.Discard()
	opts.ReconnectInterval = 5 * time.Millisecond
	opts.MaxReconnectInterval = 20 * time.Millisecond
	opts.Timeout = time.Second
	opts.CommandTimeout = time.Second
	if mutate != nil {
		mutate(&opts)
	}

	c := New(opts)
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func connect(t *testing.T, c *Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(c *Client, kinds ...EventKind) *recorder {
	r := &recorder{}
	for _, k := range kinds {
		c.On(k, func(ev Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		})
	}
	return r
}

func (r *recorder) of(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, ev := range r.events {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) count(kind EventKind) int {
	return len(r.of(kind))
}

func TestBackoff_Sequence(t *testing.T) {
	t.Parallel()

	b := newBackoff(DefaultOptions())

	want := []time.Duration{1000, 1500, 2250, 3375}
	for i, ms := range want {
		assert.Equal(t, ms*time.Millisecond, b.NextBackOff(), "attempt %d", i+1)
	}

	prev := 3375 * time.Millisecond
	for i := 0; i < 20; i++ {
		next := b.NextBackOff()
		assert.GreaterOrEqual(t, next, prev)
		assert.LessOrEqual(t, next, 30*time.Second)
		prev = next
	}
	assert.Equal(t, 30*time.Second, prev)

	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
}

func TestOptions_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     Options
		server string
		port   int
	}{
		{"secure websocket", DefaultOptions(), "irc-ws.chat.twitch.tv", 443},
		{"plain websocket", Options{}, "irc-ws.chat.twitch.tv", 80},
		{"secure tcp", Options{Transport: TransportTCP, Secure: true}, "irc.chat.twitch.tv", 6697},
		{"plain tcp", Options{Transport: TransportTCP}, "irc.chat.twitch.tv", 6667},
		{"custom", Options{Server: "localhost", Port: 1234}, "localhost", 1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.in.withDefaults()
			assert.Equal(t, tt.server, o.Server)
			assert.Equal(t, tt.port, o.Port)
			assert.Equal(t, 600*time.Millisecond, o.CommandTimeout)
			assert.Equal(t, 9999*time.Millisecond, o.Timeout)
			assert.NotNil(t, o.Dialer)
			assert.NotNil(t, o.Logger)
		})
	}

	o := Options{ClientID: "abc"}.withDefaults()
	require.IsType(t, &transport.WebSocketDialer{}, o.Dialer)
	assert.Equal(t, "abc", o.Dialer.(*transport.WebSocketDialer).ClientID)
}

func TestClient_AnonymousLogin(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, func(o *Options) { o.Identity = Identity{} })
	connect(t, c)

	assert.True(t, strings.HasPrefix(c.Username(), "justinfan"))
	assert.Equal(t, "PASS SCHMOOPIIE", srv.WaitLine(t, "PASS"))
	assert.Equal(t, "NICK "+c.Username(), srv.WaitLine(t, "NICK"))
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	connect(t, c)

	assert.Equal(t, StateOpen, c.ReadyState())
	assert.Equal(t, "bot", c.Username())
	assert.Equal(t, []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership",
		"PASS oauth:token",
		"NICK bot",
	}, srv.Lines()[:3])

	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)
	require.NoError(t, c.Disconnect())
	assert.Equal(t, StateClosed, c.ReadyState())
	assert.ErrorIs(t, c.Disconnect(), ErrNotConnected)
}

func TestClient_ConnectedFiresOnceAcrossReconnects(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	rec := record(c, EventConnected, EventDisconnected, EventReconnecting)

	connect(t, c)
	conn := srv.WaitConn(t)

	for i := 0; i < 2; i++ {
		conn.Drop()
		conn = srv.WaitConn(t)
		require.Eventually(t, func() bool { return c.ReadyState() == StateOpen }, waitFor, tick)
	}

	require.Eventually(t, func() bool { return rec.count(EventReconnecting) == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return rec.count(EventDisconnected) == 2 }, waitFor, tick)
	assert.Equal(t, 1, rec.count(EventConnected))

	for _, ev := range rec.of(EventReconnecting) {
		r := ev.(Reconnecting)
		assert.Equal(t, 1, r.Attempt, "attempts reset on every login")
		assert.Equal(t, 5*time.Millisecond, r.Interval)
	}
	assert.Equal(t, 0, c.ReconnectAttempts())
}

func TestClient_ReconnectBackoffGrows(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.FailDials(4)
	c := newTestClient(t, srv, func(o *Options) {
		o.ReconnectInterval = 2 * time.Millisecond
		o.MaxReconnectInterval = 5 * time.Millisecond
		o.ReconnectDecay = 2
	})
	rec := record(c, EventReconnecting, EventConnected)

	connect(t, c)

	require.Eventually(t, func() bool { return rec.count(EventConnected) == 1 }, waitFor, tick)
	var got []time.Duration
	for i, ev := range rec.of(EventReconnecting) {
		r := ev.(Reconnecting)
		assert.Equal(t, i+1, r.Attempt)
		got = append(got, r.Interval)
	}
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}, got)
	assert.Equal(t, 5, srv.Dials())
}

func TestClient_ReconnectExhausted(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.FailDials(100)
	c := newTestClient(t, srv, func(o *Options) { o.MaxReconnectAttempts = 2 })
	rec := record(c, EventReconnecting, EventReconnectFailed)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrReconnectExhausted)
	assert.Equal(t, 3, srv.Dials())
	assert.Equal(t, StateClosed, c.ReadyState())

	require.Eventually(t, func() bool { return rec.count(EventReconnectFailed) == 1 }, waitFor, tick)
	failed := rec.of(EventReconnectFailed)[0].(ReconnectFailed)
	assert.Equal(t, 2, failed.Attempts)
	assert.ErrorIs(t, failed.Err, tmitest.ErrDialRefused)
	assert.Equal(t, 2, rec.count(EventReconnecting))
}

func TestClient_NoReconnect(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.FailDials(1)
	c := newTestClient(t, srv, func(o *Options) { o.Reconnect = false })

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.ErrorIs(t, err, tmitest.ErrDialRefused)
	assert.Equal(t, 1, srv.Dials())
	assert.Equal(t, StateDisconnected, c.ReadyState())
}

func TestClient_LoginFailed(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.LoginNotice = "Login authentication failed"
	c := newTestClient(t, srv, nil)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, 1, srv.Dials())
}

func TestClient_LoginTimeout(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.AutoWelcome = false
	c := newTestClient(t, srv, func(o *Options) {
		o.Timeout = 20 * time.Millisecond
		o.MaxReconnectAttempts = 1
	})

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrReconnectExhausted)
	assert.Equal(t, 2, srv.Dials())
}

func TestClient_ConnectCancelled(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.FailDials(1000)
	c := newTestClient(t, srv, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, c.Connect(ctx), context.DeadlineExceeded)
	assert.Equal(t, StateClosed, c.ReadyState())
	assert.ErrorIs(t, c.Disconnect(), ErrNotConnected)
}

func TestClient_HeartbeatTimeout(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.AutoPong = false
	c := newTestClient(t, srv, func(o *Options) {
		o.PingInterval = 10 * time.Millisecond
		o.Timeout = 50 * time.Millisecond
	})
	rec := record(c, EventDisconnected)

	connect(t, c)
	srv.WaitConn(t)

	require.Eventually(t, func() bool { return rec.count(EventDisconnected) > 0 }, waitFor, tick)
	assert.ErrorIs(t, rec.of(EventDisconnected)[0].(Disconnected).Reason, errPingTimeout)
	srv.WaitConn(t)
}

func TestClient_HeartbeatLatency(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, func(o *Options) { o.PingInterval = 10 * time.Millisecond })
	connect(t, c)

	require.Eventually(t, func() bool { return c.Latency() > 0 }, waitFor, tick)
	assert.Equal(t, StateOpen, c.ReadyState())
	assert.GreaterOrEqual(t, c.commandTimeout(), time.Second)
}

func TestClient_ServerPingAndReconnect(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	rec := record(c, EventPing, EventDisconnected)
	connect(t, c)
	conn := srv.WaitConn(t)

	conn.Send("PING :tmi.twitch.tv")
	assert.Equal(t, "PONG :tmi.twitch.tv", srv.WaitLine(t, "PONG"))
	require.Eventually(t, func() bool { return rec.count(EventPing) == 1 }, waitFor, tick)

	conn.Send(":tmi.twitch.tv RECONNECT")
	srv.WaitConn(t)
	require.Eventually(t, func() bool { return rec.count(EventDisconnected) == 1 }, waitFor, tick)
	assert.ErrorIs(t, rec.of(EventDisconnected)[0].(Disconnected).Reason, errServerRestart)
}

func TestClient_CommandsWithoutConnection(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, tmitest.NewServer(), nil)
	rec := record(c, EventCommandDone)
	ctx := context.Background()

	start := time.Now()
	assert.ErrorIs(t, c.Ban(ctx, "chan", "user", ""), ErrConnectionClosed)
	assert.ErrorIs(t, c.Join(ctx, "chan"), ErrConnectionClosed)
	assert.ErrorIs(t, c.Say(ctx, "chan", "hi"), ErrConnectionClosed)
	assert.ErrorIs(t, c.Whisper(ctx, "alice", "hi"), ErrConnectionClosed)
	_, err := c.Ping(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	assert.Equal(t, 3, rec.count(EventCommandDone))
	assert.Empty(t, c.Channels())
}

func TestClient_InvalidArguments(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	connect(t, c)
	ctx := context.Background()
	sent := len(srv.Lines())

	assert.ErrorIs(t, c.Commercial(ctx, "chan", 45), ErrInvalidArgument)
	assert.ErrorIs(t, c.Whisper(ctx, "BOT", "hi"), ErrInvalidArgument)
	assert.ErrorIs(t, c.Ban(ctx, "chan", "", ""), ErrInvalidArgument)
	assert.ErrorIs(t, c.Join(ctx, "#"), ErrInvalidArgument)
	assert.ErrorIs(t, c.Color(ctx, ""), ErrInvalidArgument)
	_, err := c.Host(ctx, "chan", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, srv.Lines(), sent)
}

func TestClient_JoinPartState(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	rec := record(c, EventJoin, EventPart)
	connect(t, c)
	ctx := context.Background()

	require.NoError(t, c.Join(ctx, "#X"))
	assert.Equal(t, "JOIN #x", srv.WaitLine(t, "JOIN"))
	assert.Contains(t, c.Roster("#x"), "bot")
	_, ok := c.RoomState("x")
	assert.True(t, ok)
	assert.Equal(t, []string{"x"}, c.Channels())

	require.NoError(t, c.Part(ctx, "#x"))
	_, ok = c.RoomState("x")
	assert.False(t, ok)
	assert.Nil(t, c.Roster("x"))
	assert.Empty(t, c.Channels())

	require.Eventually(t, func() bool { return rec.count(EventJoin) == 1 && rec.count(EventPart) == 1 }, waitFor, tick)
	join := rec.of(EventJoin)[0].(Join)
	assert.Equal(t, Join{Channel: "x", User: "bot", Self: true}, join)
}

func TestClient_RejoinAfterReconnect(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, func(o *Options) { o.Channels = []string{"#Configured"} })
	connect(t, c)
	conn := srv.WaitConn(t)
	ctx := context.Background()

	require.Eventually(t, func() bool { return c.store.Joined("configured") }, waitFor, tick)
	require.NoError(t, c.Join(ctx, "extra"))
	require.NoError(t, c.Join(ctx, "gone"))
	require.NoError(t, c.Part(ctx, "gone"))

	conn.Drop()
	srv.WaitConn(t)

	require.Eventually(t, func() bool {
		return srv.Count("JOIN #configured") == 2 && srv.Count("JOIN #extra") == 2
	}, waitFor, tick)
	require.Eventually(t, func() bool { return len(c.Channels()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"configured", "extra"}, c.Channels())
	assert.Equal(t, 1, srv.Count("JOIN #gone"))
}

func TestClient_UnansweredPartLeavesChannel(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, func(o *Options) { o.CommandTimeout = 30 * time.Millisecond })
	connect(t, c)
	conn := srv.WaitConn(t)
	ctx := context.Background()

	require.NoError(t, c.Join(ctx, "x"))
	require.Equal(t, []string{"x"}, c.Channels())

	srv.SetAutoJoin(false)
	assert.ErrorIs(t, c.Part(ctx, "#x"), ErrTimeout)

	_, ok := c.RoomState("x")
	assert.False(t, ok)
	assert.Nil(t, c.Roster("x"))
	assert.Empty(t, c.Channels())

	srv.SetAutoJoin(true)
	conn.Drop()
	srv.WaitConn(t)
	require.Eventually(t, func() bool { return c.ReadyState() == StateOpen }, waitFor, tick)

	assert.Equal(t, 1, srv.Count("JOIN #x"))
	assert.Empty(t, c.Channels())
}

func TestClient_TimeoutRejectedForItsChannelOnly(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.Handle(func(conn *tmitest.Conn, line string) {
		if strings.Contains(line, ":/timeout") {
			conn.Send("@msg-id=timeout_success :tmi.twitch.tv NOTICE #other :baduser has been timed out for 30 seconds.")
			conn.Send("@msg-id=bad_timeout_mod :tmi.twitch.tv NOTICE #chan :You cannot timeout moderator baduser unless you are the owner of this channel.")
		}
	})
	c := newTestClient(t, srv, nil)
	connect(t, c)

	err := c.Timeout(context.Background(), "#Chan", "BadUser", 30, "spam")

	var rejected *CommandRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "bad_timeout_mod", rejected.Reason)
	assert.True(t, IsRejected(err, "bad_timeout_mod"))
	assert.Equal(t, "PRIVMSG #chan :/timeout baduser 30 spam", srv.WaitLine(t, "PRIVMSG #chan"))
}

func TestClient_CommandTimesOut(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, func(o *Options) { o.CommandTimeout = 30 * time.Millisecond })
	connect(t, c)

	assert.ErrorIs(t, c.Slow(context.Background(), "chan", 0), ErrTimeout)
	assert.Equal(t, "PRIVMSG #chan :/slow 300", srv.WaitLine(t, "PRIVMSG"))
}

func TestClient_DisconnectRejectsPending(t *testing.T) {
	t.Parallel()

	const n = 5

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, func(o *Options) { o.CommandTimeout = 5 * time.Second })
	rec := record(c, EventCommandDone, EventDisconnected)
	connect(t, c)

	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errs <- c.Ban(context.Background(), fmt.Sprintf("chan%d", i), "user", "")
		}()
	}
	require.Eventually(t, func() bool { return srv.Count("PRIVMSG") == n }, waitFor, tick)

	start := time.Now()
	require.NoError(t, c.Disconnect())

	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrConnectionClosed)
		case <-time.After(waitFor):
			t.Fatal("pending command was not rejected")
		}
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, c.corr.Len())

	require.Eventually(t, func() bool { return rec.count(EventCommandDone) == n }, waitFor, tick)
	require.Eventually(t, func() bool { return rec.count(EventDisconnected) == 1 }, waitFor, tick)
	assert.NoError(t, rec.of(EventDisconnected)[0].(Disconnected).Reason)
}

func TestClient_ModerationCommands(t *testing.T) {
	t.Parallel()

	replies := map[string]string{
		"/mods":         "@msg-id=room_mods :tmi.twitch.tv NOTICE #chan :The moderators of this channel are: alice, bob",
		"/host":         "@msg-id=hosts_remaining :tmi.twitch.tv NOTICE #chan :2 host commands remaining this half hour.",
		"/color":        "@msg-id=color_changed :tmi.twitch.tv NOTICE #bot :Your color has been changed.",
		"/commercial":   "@msg-id=commercial_success :tmi.twitch.tv NOTICE #chan :Initiating 30 second commercial break.",
		"/unban":        "@msg-id=unban_success :tmi.twitch.tv NOTICE #chan :alice is no longer banned from this channel.",
		"/followers 10": "@room-id=1;followers-only=10 :tmi.twitch.tv ROOMSTATE #chan",
		"/clear":        ":tmi.twitch.tv CLEARCHAT #chan",
		"/emoteonly":    "@msg-id=emote_only_on :tmi.twitch.tv NOTICE #chan :This room is now in emote-only mode.",
	}

	srv := tmitest.NewServer()
	srv.Handle(func(conn *tmitest.Conn, line string) {
		_, text, ok := strings.Cut(line, " :")
		if !ok {
			return
		}
		for prefix, reply := range replies {
			if strings.HasPrefix(text, prefix) {
				conn.Send(reply)
			}
		}
	})
	c := newTestClient(t, srv, nil)
	connect(t, c)
	ctx := context.Background()

	require.NoError(t, c.Join(ctx, "chan"))

	mods, err := c.Mods(ctx, "chan")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, mods)
	list, refreshed, ok := c.Moderators("chan")
	assert.True(t, ok)
	assert.Equal(t, []string{"alice", "bob"}, list)
	assert.False(t, refreshed.IsZero())
	assert.True(t, c.IsMod("#chan", "Alice"))

	remaining, err := c.Host(ctx, "chan", "friend")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	assert.NoError(t, c.Color(ctx, "#1E90FF"))
	assert.Equal(t, "PRIVMSG #bot :/color #1E90FF", srv.WaitLine(t, "PRIVMSG #bot"))
	assert.NoError(t, c.Commercial(ctx, "chan", 30))
	assert.NoError(t, c.Unban(ctx, "chan", "alice"))
	assert.NoError(t, c.FollowersOnly(ctx, "chan", 10))
	assert.NoError(t, c.Clear(ctx, "chan"))
	assert.NoError(t, c.EmoteOnly(ctx, "chan"))

	rs, ok := c.RoomState("chan")
	require.True(t, ok)
	assert.Equal(t, 10, rs.FollowersOnly)
}

func TestClient_SentCommands(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	connect(t, c)
	ctx := context.Background()

	require.NoError(t, c.Say(ctx, "#Chan", "hello"))
	require.NoError(t, c.Say(ctx, "chan", "/me waves"))
	require.NoError(t, c.Say(ctx, "chan", ".me bows"))
	require.NoError(t, c.Whisper(ctx, "Alice", "psst"))
	require.NoError(t, c.Raw(ctx, "PRIVMSG #chan :raw line"))

	require.Eventually(t, func() bool { return srv.Count("PRIVMSG") == 5 }, waitFor, tick)
	var got []string
	for _, l := range srv.Lines() {
		if strings.HasPrefix(l, "PRIVMSG") {
			got = append(got, l)
		}
	}
	assert.Equal(t, []string{
		"PRIVMSG #chan :hello",
		"PRIVMSG #chan :\x01ACTION waves\x01",
		"PRIVMSG #chan :\x01ACTION bows\x01",
		"PRIVMSG #jtv :/w alice psst",
		"PRIVMSG #chan :raw line",
	}, got)
}

func TestClient_ModeAliases(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, func(o *Options) { o.CommandTimeout = 20 * time.Millisecond })
	connect(t, c)
	ctx := context.Background()

	calls := []struct {
		call func() error
		line string
	}{
		{func() error { return c.SlowMode(ctx, "chan", 0) }, "PRIVMSG #chan :/slow 300"},
		{func() error { return c.SlowModeOff(ctx, "chan") }, "PRIVMSG #chan :/slowoff"},
		{func() error { return c.FollowersMode(ctx, "chan", -1) }, "PRIVMSG #chan :/followers 30"},
		{func() error { return c.FollowersModeOff(ctx, "chan") }, "PRIVMSG #chan :/followersoff"},
		{func() error { return c.R9KMode(ctx, "chan") }, "PRIVMSG #chan :/r9kbeta"},
		{func() error { return c.R9KModeOff(ctx, "chan") }, "PRIVMSG #chan :/r9kbetaoff"},
	}
	for _, tc := range calls {
		assert.ErrorIs(t, tc.call(), ErrTimeout, tc.line)
		assert.Equal(t, 1, srv.Count(tc.line), tc.line)
	}
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	connect(t, c)

	latency, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, latency, time.Duration(0))
	assert.Equal(t, latency, c.Latency())
}

func TestClient_PingIgnoresHeartbeatPong(t *testing.T) {
	t.Parallel()

	const delay = 150 * time.Millisecond

	srv := tmitest.NewServer()
	srv.AutoPong = false
	srv.Handle(func(conn *tmitest.Conn, line string) {
		token, ok := strings.CutPrefix(line, "PING :")
		if !ok {
			return
		}
		time.AfterFunc(delay, func() { conn.Send(":tmi.twitch.tv PONG tmi.twitch.tv :" + token) })
	})
	c := newTestClient(t, srv, func(o *Options) { o.PingInterval = 20 * time.Millisecond })
	connect(t, c)
	srv.WaitLine(t, "PING :"+heartbeatToken)

	latency, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, latency, delay)
	assert.Equal(t, StateOpen, c.ReadyState())
}

func TestClient_MessageSeesAppliedState(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	connect(t, c)
	conn := srv.WaitConn(t)
	require.NoError(t, c.Join(context.Background(), "chan"))

	type seen struct {
		msg   Message
		color string
		mod   bool
	}
	got := make(chan seen, 1)
	off := c.On(EventMessage, func(ev Event) {
		m := ev.(Message)
		us, _ := c.UserState(m.Channel, m.User)
		got <- seen{msg: m, color: us.Color, mod: c.IsMod(m.Channel, m.User)}
	})
	defer off()

	conn.Send("@badges=moderator/1;color=#FF0000;display-name=Alice;mod=1 :alice!alice@alice.tmi.twitch.tv PRIVMSG #chan :hello")

	select {
	case s := <-got:
		assert.Equal(t, "chan", s.msg.Channel)
		assert.Equal(t, "alice", s.msg.User)
		assert.Equal(t, "hello", s.msg.Text)
		assert.False(t, s.msg.Self)
		assert.False(t, s.msg.Action)
		assert.Equal(t, "#FF0000", s.color)
		assert.True(t, s.mod)
	case <-time.After(waitFor):
		t.Fatal("message event never delivered")
	}
}

func TestClient_HandlersMayBlockOnCommands(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	srv.Handle(func(conn *tmitest.Conn, line string) {
		if strings.Contains(line, ":/ban") {
			conn.Send("@msg-id=ban_success :tmi.twitch.tv NOTICE #chan :spammer is now banned from this channel.")
		}
	})
	c := newTestClient(t, srv, nil)
	connect(t, c)
	conn := srv.WaitConn(t)

	banned := make(chan error, 1)
	c.On(EventMessage, func(ev Event) {
		m := ev.(Message)
		if strings.Contains(m.Text, "buy followers") {
			banned <- c.Ban(context.Background(), m.Channel, m.User, "spam")
		}
	})

	conn.Send(":spammer!spammer@spammer.tmi.twitch.tv PRIVMSG #chan :buy followers now")

	select {
	case err := <-banned:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("ban issued from a handler never finished")
	}
}

func TestClient_UnknownAndMalformedLines(t *testing.T) {
	t.Parallel()

	srv := tmitest.NewServer()
	c := newTestClient(t, srv, nil)
	rec := record(c, EventRaw, EventNotice)
	connect(t, c)
	conn := srv.WaitConn(t)

	conn.Send("@")
	conn.Send(":tmi.twitch.tv SOMETHINGNEW #chan :payload")
	conn.Send("@msg-id=host_on :tmi.twitch.tv NOTICE #chan :Now hosting friend.")

	require.Eventually(t, func() bool { return rec.count(EventNotice) == 1 }, waitFor, tick)
	var commands []string
	for _, ev := range rec.of(EventRaw) {
		commands = append(commands, ev.(Raw).IRC.Command)
	}
	assert.Contains(t, commands, "SOMETHINGNEW")
	assert.Equal(t, StateOpen, c.ReadyState())
}

func TestClient_OffRemovesHandler(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, tmitest.NewServer(), nil)

	var calls int
	off := c.On(EventCommandDone, func(Event) { calls++ })
	_ = c.Ban(context.Background(), "chan", "user", "")
	off()
	off()
	_ = c.Ban(context.Background(), "chan", "user", "")

	assert.Equal(t, 1, calls)
}

func TestEventKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "message", EventMessage.String())
	assert.Equal(t, "raw", EventRaw.String())
	assert.Equal(t, "unknown", EventKind(-1).String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
}
