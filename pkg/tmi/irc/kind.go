package irc

import "strings"

// Kind is the closed set of inbound message kinds the client understands.
// Anything else parses as KindUnknown.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindPong
	KindPrivmsg
	KindWhisper
	KindNotice
	KindJoin
	KindPart
	KindMode
	KindNames
	KindEndOfNames
	KindWelcome
	KindMotd
	KindEndOfMotd
	KindCap
	KindRoomState
	KindUserState
	KindGlobalUserState
	KindClearChat
	KindClearMsg
	KindHostTarget
	KindUserNotice
	KindReconnect
)

var kindByCommand = map[string]Kind{
	"PING":            KindPing,
	"PONG":            KindPong,
	"PRIVMSG":         KindPrivmsg,
	"WHISPER":         KindWhisper,
	"NOTICE":          KindNotice,
	"JOIN":            KindJoin,
	"PART":            KindPart,
	"MODE":            KindMode,
	"353":             KindNames,
	"366":             KindEndOfNames,
	"001":             KindWelcome,
	"372":             KindMotd,
	"375":             KindMotd,
	"376":             KindEndOfMotd,
	"CAP":             KindCap,
	"ROOMSTATE":       KindRoomState,
	"USERSTATE":       KindUserState,
	"GLOBALUSERSTATE": KindGlobalUserState,
	"CLEARCHAT":       KindClearChat,
	"CLEARMSG":        KindClearMsg,
	"HOSTTARGET":      KindHostTarget,
	"USERNOTICE":      KindUserNotice,
	"RECONNECT":       KindReconnect,
}

var kindNames = [...]string{
	KindUnknown:         "unknown",
	KindPing:            "ping",
	KindPong:            "pong",
	KindPrivmsg:         "privmsg",
	KindWhisper:         "whisper",
	KindNotice:          "notice",
	KindJoin:            "join",
	KindPart:            "part",
	KindMode:            "mode",
	KindNames:           "names",
	KindEndOfNames:      "endofnames",
	KindWelcome:         "welcome",
	KindMotd:            "motd",
	KindEndOfMotd:       "endofmotd",
	KindCap:             "cap",
	KindRoomState:       "roomstate",
	KindUserState:       "userstate",
	KindGlobalUserState: "globaluserstate",
	KindClearChat:       "clearchat",
	KindClearMsg:        "clearmsg",
	KindHostTarget:      "hosttarget",
	KindUserNotice:      "usernotice",
	KindReconnect:       "reconnect",
}

// KindOf maps a command verb (case-insensitive for words, exact for numerics).
func KindOf(command string) Kind {
	if k, ok := kindByCommand[command]; ok {
		return k
	}
	if k, ok := kindByCommand[strings.ToUpper(command)]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}
