package tmi

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"tmichat/pkg/tmi/irc"
)

// Handler receives notifications. Handlers run on a dedicated goroutine and may
// call blocking client commands.
type Handler func(Event)

type subscriber struct {
	id int
	h  Handler
}

type registry struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventKind][]subscriber
}

func newRegistry() *registry {
	return &registry{handlers: make(map[EventKind][]subscriber)}
}

func (r *registry) on(kind EventKind, h Handler) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[kind] = append(r.handlers[kind], subscriber{id: id, h: h})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()

			subs := r.handlers[kind]
			for i, s := range subs {
				if s.id == id {
					r.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

func (r *registry) emit(ev Event) {
	r.mu.RLock()
	subs := r.handlers[ev.Kind()]
	r.mu.RUnlock()

	for _, s := range subs {
		s.h(ev)
	}
}

// event builds the notification of an inbound message. It runs after the
// store applied msg, so state readers already see the update.
func (c *Client) event(msg *irc.Message) Event {
	channel := msg.Channel()

	switch msg.Kind {
	case irc.KindPrivmsg:
		if channel == "" {
			break
		}
		user := msg.Login()
		return Message{
			Channel: channel,
			User:    user,
			Text:    msg.Text(),
			Action:  msg.IsAction(),
			Self:    user == c.Username(),
			IRC:     msg,
		}
	case irc.KindWhisper:
		return Whisper{From: msg.Login(), Text: msg.Trailing, IRC: msg}
	case irc.KindNotice:
		return Notice{Channel: channel, MsgID: msg.MsgID(), Text: msg.Trailing, IRC: msg}
	case irc.KindJoin:
		user := msg.Login()
		return Join{Channel: channel, User: user, Self: user == c.Username()}
	case irc.KindPart:
		user := msg.Login()
		return Part{Channel: channel, User: user, Self: user == c.Username()}
	case irc.KindRoomState:
		rs, _ := c.store.RoomState(channel)
		return RoomState{Channel: channel, State: rs, IRC: msg}
	case irc.KindUserState:
		us, _ := c.store.UserState(channel, c.Username())
		return UserState{Channel: channel, State: us, IRC: msg}
	case irc.KindGlobalUserState:
		us, _ := c.store.GlobalUserState()
		return GlobalUserState{State: us, IRC: msg}
	case irc.KindClearChat:
		ev := ClearChat{Channel: channel, User: irc.NormalizeUser(msg.Trailing), IRC: msg}
		if secs, ok := msg.TagInt("ban-duration"); ok {
			ev.Duration = time.Duration(secs) * time.Second
		}
		return ev
	case irc.KindClearMsg:
		return ClearMsg{
			Channel:     channel,
			User:        msg.Tag("login"),
			TargetMsgID: msg.Tag("target-msg-id"),
			Text:        msg.Trailing,
			IRC:         msg,
		}
	case irc.KindHostTarget:
		target, viewers, _ := strings.Cut(msg.Trailing, " ")
		ev := Hosting{Channel: channel, IRC: msg}
		if target != "-" {
			ev.Target = irc.NormalizeUser(target)
		}
		ev.Viewers, _ = strconv.Atoi(viewers)
		return ev
	case irc.KindUserNotice:
		return UserNotice{
			Channel:   channel,
			MsgID:     msg.MsgID(),
			User:      msg.Tag("login"),
			Text:      msg.Trailing,
			SystemMsg: msg.Tag("system-msg"),
			IRC:       msg,
		}
	case irc.KindMode:
		mode := msg.Param(1)
		if mode == "+o" || mode == "-o" {
			return Mode{Channel: channel, User: irc.NormalizeUser(msg.Param(2)), Mod: mode == "+o"}
		}
	case irc.KindNames:
		var users []string
		for _, u := range strings.Fields(msg.Trailing) {
			users = append(users, irc.NormalizeUser(u))
		}
		return Names{Channel: channel, Users: users}
	case irc.KindPing:
		return Ping{IRC: msg}
	case irc.KindPong:
		return Pong{IRC: msg}
	}

	return Raw{IRC: msg}
}
