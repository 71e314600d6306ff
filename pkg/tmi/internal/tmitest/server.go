// Package tmitest provides an in-memory chat server for client tests.
package tmitest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"tmichat/pkg/tmi/transport"
)

var (
	ErrDialRefused = errors.New("tmitest: dial refused")
	errClosed      = errors.New("tmitest: write on closed connection")
)

// Handler is called for every line a client writes, after the automatic replies.
type Handler func(c *Conn, line string)

// Server is a scripted fake chat server. It implements transport.Dialer.
type Server struct {
	// AutoWelcome answers NICK with the end of MOTD.
	AutoWelcome bool
	// AutoJoin echoes JOIN and PART back as membership events.
	AutoJoin bool
	// AutoPong answers client PINGs.
	AutoPong bool
	// LoginNotice, when set, is sent instead of the welcome.
	LoginNotice string

	mu       sync.Mutex
	handler  Handler
	conns    []*Conn
	lines    []string
	dials    int
	failNext int
	dialed   chan *Conn
}

// NewServer returns a server that welcomes, echoes membership and answers pings.
func NewServer() *Server {
	return &Server{
		AutoWelcome: true,
		AutoJoin:    true,
		AutoPong:    true,
		dialed:      make(chan *Conn, 64),
	}
}

func (s *Server) Handle(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// SetAutoJoin switches the JOIN and PART echo on a running server.
func (s *Server) SetAutoJoin(on bool) {
	s.mu.Lock()
	s.AutoJoin = on
	s.mu.Unlock()
}

// SetAutoPong switches the PING answers on a running server.
func (s *Server) SetAutoPong(on bool) {
	s.mu.Lock()
	s.AutoPong = on
	s.mu.Unlock()
}

// FailDials makes the next n dials fail.
func (s *Server) FailDials(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

func (s *Server) Dial(ctx context.Context, _ transport.Endpoint) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.dials++
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		return nil, ErrDialRefused
	}

	c := &Conn{
		server: s,
		in:     make(chan string, 1024),
		closed: make(chan struct{}),
	}
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	select {
	case s.dialed <- c:
	default:
	}
	return c, nil
}

// Dials returns how many times the server was dialed, failed dials included.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dials
}

// Conn returns the latest connection, nil before the first dial.
func (s *Server) Conn() *Conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conns) == 0 {
		return nil
	}
	return s.conns[len(s.conns)-1]
}

// Lines returns every line written by clients, in order.
func (s *Server) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.lines...)
}

// Count returns how many written lines start with prefix.
func (s *Server) Count(prefix string) int {
	n := 0
	for _, l := range s.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// WaitLine waits until a client wrote a line starting with prefix.
func (s *Server) WaitLine(t testing.TB, prefix string) string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, l := range s.Lines() {
			if strings.HasPrefix(l, prefix) {
				return l
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no line starting with %q, got %q", prefix, s.Lines())
	return ""
}

// WaitConn waits for the next dial that succeeds.
func (s *Server) WaitConn(t testing.TB) *Conn {
	t.Helper()

	select {
	case c := <-s.dialed:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("client never dialed")
		return nil
	}
}

func (s *Server) received(c *Conn, line string) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	h := s.handler
	welcome, join, pong, notice := s.AutoWelcome, s.AutoJoin, s.AutoPong, s.LoginNotice
	s.mu.Unlock()

	verb, rest, _ := strings.Cut(line, " ")
	switch verb {
	case "NICK":
		c.setNick(rest)
		switch {
		case notice != "":
			c.Send(":tmi.twitch.tv NOTICE * :" + notice)
		case welcome:
			c.Welcome()
		}
	case "PING":
		if pong {
			token := strings.TrimPrefix(rest, ":")
			if token == "" {
				token = "tmi.twitch.tv"
			}
			c.Send(":tmi.twitch.tv PONG tmi.twitch.tv :" + token)
		}
	case "JOIN", "PART":
		if join {
			c.Send(fmt.Sprintf(":%s!%[1]s@%[1]s.tmi.twitch.tv %s %s", c.Nick(), verb, rest))
		}
	}

	if h != nil {
		h(c, line)
	}
}

// Conn is the server side of one client connection.
type Conn struct {
	server *Server

	mu   sync.Mutex
	nick string

	in     chan string
	closed chan struct{}
	once   sync.Once
}

func (c *Conn) setNick(nick string) {
	c.mu.Lock()
	c.nick = nick
	c.mu.Unlock()
}

// Nick is the nickname the client logged in with.
func (c *Conn) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nick
}

// Send delivers a line from the server to the client.
func (c *Conn) Send(line string) {
	select {
	case <-c.closed:
	case c.in <- line:
	}
}

// Welcome sends the registration burst ending with the end of MOTD.
func (c *Conn) Welcome() {
	nick := c.Nick()
	c.Send(":tmi.twitch.tv 001 " + nick + " :Welcome, GLHF!")
	c.Send(":tmi.twitch.tv 375 " + nick + " :-")
	c.Send(":tmi.twitch.tv 376 " + nick + " :>")
}

// Drop closes the connection from the server side.
func (c *Conn) Drop() {
	c.once.Do(func() { close(c.closed) })
}

// Closed reports whether either side closed the connection.
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) ReadLine() (string, error) {
	select {
	case line := <-c.in:
		return line, nil
	case <-c.closed:
		return "", io.EOF
	}
}

func (c *Conn) WriteLine(line string) error {
	if c.Closed() {
		return errClosed
	}
	c.server.received(c, line)
	return nil
}

func (c *Conn) Close() error {
	c.Drop()
	return nil
}
