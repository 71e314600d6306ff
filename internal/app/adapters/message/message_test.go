package message

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmichat/internal/app/infrastructure/config"
	"tmichat/pkg/logger"
	"tmichat/pkg/tmi"
)

type fakeChat struct {
	mu      sync.Mutex
	mods    map[string]bool
	said    []string
	sayErr  error
	latency time.Duration
}

func (f *fakeChat) Username() string { return "bot" }

func (f *fakeChat) IsMod(_, user string) bool { return f.mods[user] }

func (f *fakeChat) Say(_ context.Context, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sayErr != nil {
		return f.sayErr
	}
	f.said = append(f.said, message)
	return nil
}

func (f *fakeChat) Ping(context.Context) (time.Duration, error) { return f.latency, nil }

func newBot(t *testing.T, chat *fakeChat) *Bot {
	t.Helper()
	return New(logger.Discard(), config.Bot{Enabled: true, Admins: []string{"@Owner"}}, chat)
}

func msg(user, text string) tmi.Message {
	return tmi.Message{Channel: "chan", User: user, Text: text}
}

func TestBot_Ping(t *testing.T) {
	chat := &fakeChat{latency: 120 * time.Millisecond}
	b := newBot(t, chat)

	assert.Equal(t, "@viewer pong (120ms)", b.Handle(msg("Viewer", "!ping")))
	assert.Empty(t, b.Handle(msg("viewer", "!ping")), "cooldown")
	assert.Equal(t, []string{"@viewer pong (120ms)"}, chat.said)
}

func TestBot_Ignored(t *testing.T) {
	chat := &fakeChat{}
	b := newBot(t, chat)

	assert.Empty(t, b.Handle(msg("viewer", "hello")))
	assert.Empty(t, b.Handle(msg("viewer", "!")))
	assert.Empty(t, b.Handle(msg("viewer", "!unknown")))
	assert.Empty(t, b.Handle(tmi.Message{Channel: "chan", User: "bot", Text: "!ping", Self: true}))
	assert.Empty(t, b.Handle(tmi.Message{Channel: "chan", User: "viewer", Text: "!ping", Action: true}))
	assert.Empty(t, chat.said)
}

func TestBot_Raffle(t *testing.T) {
	chat := &fakeChat{mods: map[string]bool{"moddy": true}}
	b := newBot(t, chat)

	assert.Empty(t, b.Handle(msg("viewer", "!raffle start")), "viewers cannot start")
	assert.Empty(t, b.Handle(msg("viewer", "!raffle")), "no raffle running")

	assert.Contains(t, b.Handle(msg("moddy", "!raffle start")), "Raffle started")
	assert.Empty(t, b.Handle(msg("alice", "!raffle")))
	assert.Empty(t, b.Handle(msg("bob", "!raffle enter")))
	assert.Equal(t, "2 entrants", b.Handle(msg("alice", "!raffle count")))
	assert.Equal(t, "@bob left the raffle", b.Handle(msg("bob", "!raffle leave")))

	assert.Empty(t, b.Handle(msg("alice", "!raffle pick")), "entrants cannot pick")
	assert.Equal(t, "@alice won the raffle!", b.Handle(msg("owner", "!raffle pick")))
	assert.Equal(t, "Nobody entered the raffle", b.Handle(msg("chan", "!raffle pick")))
	assert.Equal(t, "Raffle closed", b.Handle(msg("chan", "!raffle stop")))
	assert.Empty(t, b.Handle(msg("carol", "!raffle")))
}

func TestBot_SayFailure(t *testing.T) {
	chat := &fakeChat{sayErr: errors.New("boom")}
	b := newBot(t, chat)

	assert.Empty(t, b.Handle(msg("chan", "!raffle start")))
}

func TestBot_Handler(t *testing.T) {
	chat := &fakeChat{}
	b := newBot(t, chat)

	h := b.Handler()
	h(tmi.Join{Channel: "chan", User: "x"})
	h(msg("chan", "!raffle start"))

	require.Len(t, chat.said, 1)
	assert.Contains(t, chat.said[0], "Raffle started")
}
