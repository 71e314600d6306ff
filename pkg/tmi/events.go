package tmi

import (
	"time"

	"tmichat/pkg/tmi/correlator"
	"tmichat/pkg/tmi/irc"
	"tmichat/pkg/tmi/state"
)

type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventReconnecting
	EventReconnectFailed
	EventMessage
	EventWhisper
	EventNotice
	EventJoin
	EventPart
	EventRoomState
	EventUserState
	EventGlobalUserState
	EventClearChat
	EventClearMsg
	EventHosting
	EventUserNotice
	EventMode
	EventNames
	EventPing
	EventPong
	EventCommandDone
	EventRaw
)

var eventNames = [...]string{
	EventConnected:       "connected",
	EventDisconnected:    "disconnected",
	EventReconnecting:    "reconnecting",
	EventReconnectFailed: "reconnect_failed",
	EventMessage:         "message",
	EventWhisper:         "whisper",
	EventNotice:          "notice",
	EventJoin:            "join",
	EventPart:            "part",
	EventRoomState:       "roomstate",
	EventUserState:       "userstate",
	EventGlobalUserState: "globaluserstate",
	EventClearChat:       "clearchat",
	EventClearMsg:        "clearmsg",
	EventHosting:         "hosting",
	EventUserNotice:      "usernotice",
	EventMode:            "mode",
	EventNames:           "names",
	EventPing:            "ping",
	EventPong:            "pong",
	EventCommandDone:     "command_done",
	EventRaw:             "raw",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is one notification. The concrete type is determined by Kind.
type Event interface {
	Kind() EventKind
}

// Connected fires once per Connect call, on the first successful login.
type Connected struct {
	Server string
	Port   int
}

// Disconnected fires when an open connection goes away. Reason is nil after
// an explicit Disconnect.
type Disconnected struct {
	Reason error
}

type Reconnecting struct {
	Attempt  int
	Interval time.Duration
}

// ReconnectFailed is terminal: the client gave up after Attempts tries.
type ReconnectFailed struct {
	Attempts int
	Err      error
}

type Message struct {
	Channel string
	User    string
	Text    string
	Action  bool
	Self    bool
	IRC     *irc.Message
}

type Whisper struct {
	From string
	Text string
	IRC  *irc.Message
}

type Notice struct {
	Channel string
	MsgID   string
	Text    string
	IRC     *irc.Message
}

type Join struct {
	Channel string
	User    string
	Self    bool
}

type Part struct {
	Channel string
	User    string
	Self    bool
}

// RoomState carries the full room state after the update was applied.
type RoomState struct {
	Channel string
	State   state.RoomState
	IRC     *irc.Message
}

type UserState struct {
	Channel string
	State   state.UserState
	IRC     *irc.Message
}

type GlobalUserState struct {
	State state.UserState
	IRC   *irc.Message
}

// ClearChat is a chat clear when User is empty, otherwise a timeout or a ban.
// Duration is zero for bans.
type ClearChat struct {
	Channel  string
	User     string
	Duration time.Duration
	IRC      *irc.Message
}

type ClearMsg struct {
	Channel     string
	User        string
	TargetMsgID string
	Text        string
	IRC         *irc.Message
}

// Hosting has an empty Target when the channel stopped hosting.
type Hosting struct {
	Channel string
	Target  string
	Viewers int
	IRC     *irc.Message
}

type UserNotice struct {
	Channel   string
	MsgID     string
	User      string
	Text      string
	SystemMsg string
	IRC       *irc.Message
}

type Mode struct {
	Channel string
	User    string
	Mod     bool
}

type Names struct {
	Channel string
	Users   []string
}

type Ping struct {
	IRC *irc.Message
}

type Pong struct {
	IRC *irc.Message
}

// CommandDone reports the outcome of every correlated command.
type CommandDone struct {
	Command correlator.Command
	Channel string
	Err     error
	Elapsed time.Duration
}

// Raw carries every message without a dedicated event.
type Raw struct {
	IRC *irc.Message
}

func (Connected) Kind() EventKind       { return EventConnected }
func (Disconnected) Kind() EventKind    { return EventDisconnected }
func (Reconnecting) Kind() EventKind    { return EventReconnecting }
func (ReconnectFailed) Kind() EventKind { return EventReconnectFailed }
func (Message) Kind() EventKind         { return EventMessage }
func (Whisper) Kind() EventKind         { return EventWhisper }
func (Notice) Kind() EventKind          { return EventNotice }
func (Join) Kind() EventKind            { return EventJoin }
func (Part) Kind() EventKind            { return EventPart }
func (RoomState) Kind() EventKind       { return EventRoomState }
func (UserState) Kind() EventKind       { return EventUserState }
func (GlobalUserState) Kind() EventKind { return EventGlobalUserState }
func (ClearChat) Kind() EventKind       { return EventClearChat }
func (ClearMsg) Kind() EventKind        { return EventClearMsg }
func (Hosting) Kind() EventKind         { return EventHosting }
func (UserNotice) Kind() EventKind      { return EventUserNotice }
func (Mode) Kind() EventKind            { return EventMode }
func (Names) Kind() EventKind           { return EventNames }
func (Ping) Kind() EventKind            { return EventPing }
func (Pong) Kind() EventKind            { return EventPong }
func (CommandDone) Kind() EventKind     { return EventCommandDone }
func (Raw) Kind() EventKind             { return EventRaw }
