package correlator

import (
	"slices"
	"strings"

	"tmichat/pkg/tmi/irc"
	"tmichat/pkg/tmi/state"
)

// Command is the literal verb of an outbound command. color(name) and
// color(hex) share the same Command and therefore the same queue.
type Command string

const (
	Ban              Command = "ban"
	Clear            Command = "clear"
	Color            Command = "color"
	Commercial       Command = "commercial"
	EmoteOnly        Command = "emoteonly"
	EmoteOnlyOff     Command = "emoteonlyoff"
	FollowersOnly    Command = "followersonly"
	FollowersOnlyOff Command = "followersonlyoff"
	Host             Command = "host"
	Join             Command = "join"
	Mod              Command = "mod"
	Mods             Command = "mods"
	Part             Command = "part"
	Ping             Command = "ping"
	R9KBeta          Command = "r9kbeta"
	R9KBetaOff       Command = "r9kbetaoff"
	Slow             Command = "slow"
	SlowOff          Command = "slowoff"
	Subscribers      Command = "subscribers"
	SubscribersOff   Command = "subscribersoff"
	Timeout          Command = "timeout"
	Unban            Command = "unban"
	Unhost           Command = "unhost"
	Unmod            Command = "unmod"

	// Fire-and-forget commands: resolved once written, never tracked.
	Say     Command = "say"
	Action  Command = "action"
	Whisper Command = "whisper"
	Raw     Command = "raw"
)

// PingToken is sent with a Ping command and echoed back in its PONG.
const PingToken = "tmichat-ping"

// Correlated lists every command that waits for a server answer.
var Correlated = []Command{
	Ban, Clear, Color, Commercial, EmoteOnly, EmoteOnlyOff, FollowersOnly, FollowersOnlyOff,
	Host, Join, Mod, Mods, Part, Ping, R9KBeta, R9KBetaOff, Slow, SlowOff,
	Subscribers, SubscribersOff, Timeout, Unban, Unhost, Unmod,
}

// Rule describes how the server answers one command.
type Rule struct {
	// Global rules are keyed without a channel and match answers from any channel.
	Global  bool
	Success []string
	Failure []string
	// Event recognises a success signal that is not a NOTICE.
	Event func(msg *irc.Message, self string) (any, bool)
	// Payload builds the result of a success NOTICE. Nil yields the notice text.
	Payload func(msg *irc.Message) any
}

func (r Rule) succeeds(msg *irc.Message, self string) (any, bool) {
	if msg.Kind == irc.KindNotice && slices.Contains(r.Success, msg.MsgID()) {
		if r.Payload != nil {
			return r.Payload(msg), true
		}
		return msg.Trailing, true
	}
	if r.Event != nil {
		return r.Event(msg, self)
	}
	return nil, false
}

func (r Rule) fails(msg *irc.Message) bool {
	return msg.Kind == irc.KindNotice && slices.Contains(r.Failure, msg.MsgID())
}

// Table maps each correlated command to its answer rule.
type Table map[Command]Rule

var DefaultTable = Table{
	Ban: {
		Success: []string{"ban_success"},
		Failure: []string{"already_banned", "bad_ban_admin", "bad_ban_anon", "bad_ban_broadcaster", "bad_ban_global_mod", "bad_ban_mod", "bad_ban_self", "bad_ban_staff", "no_permission", "usage_ban"},
	},
	Clear: {
		Failure: []string{"no_permission", "usage_clear"},
		Event: func(msg *irc.Message, _ string) (any, bool) {
			return nil, msg.Kind == irc.KindClearChat && msg.Trailing == ""
		},
	},
	Color: {
		Global:  true,
		Success: []string{"color_changed"},
		Failure: []string{"turbo_only_color", "usage_color"},
	},
	Commercial: {
		Success: []string{"commercial_success"},
		Failure: []string{"bad_commercial_error", "no_permission", "usage_commercial"},
	},
	EmoteOnly: {
		Success: []string{"emote_only_on"},
		Failure: []string{"usage_emote_only_on", "already_emote_only_on", "no_permission"},
	},
	EmoteOnlyOff: {
		Success: []string{"emote_only_off"},
		Failure: []string{"usage_emote_only_off", "already_emote_only_off", "no_permission"},
	},
	FollowersOnly: {
		Success: []string{"followers_on", "followers_on_zero"},
		Failure: []string{"usage_followers_on", "already_followers_on", "no_permission"},
		Event:   roomStateTag("followers-only", func(v int) bool { return v >= 0 }),
	},
	FollowersOnlyOff: {
		Success: []string{"followers_off"},
		Failure: []string{"usage_followers_off", "already_followers_off", "no_permission"},
		Event:   roomStateTag("followers-only", func(v int) bool { return v == -1 }),
	},
	Host: {
		Success: []string{"hosts_remaining"},
		Failure: []string{"bad_host_hosting", "bad_host_rate_exceeded", "bad_host_error", "no_permission", "usage_host"},
	},
	Unhost: {
		Failure: []string{"usage_unhost", "not_hosting", "no_permission"},
		Event: func(msg *irc.Message, _ string) (any, bool) {
			return nil, msg.Kind == irc.KindHostTarget && strings.HasPrefix(msg.Trailing, "-")
		},
	},
	Join: {
		Failure: []string{"msg_channel_suspended", "msg_banned", "msg_room_not_found"},
		Event:   selfEvent(irc.KindJoin),
	},
	Part: {
		Event: selfEvent(irc.KindPart),
	},
	Mod: {
		Success: []string{"mod_success"},
		Failure: []string{"usage_mod", "bad_mod_banned", "bad_mod_mod", "no_permission"},
	},
	Unmod: {
		Success: []string{"unmod_success"},
		Failure: []string{"usage_unmod", "bad_unmod_mod", "no_permission"},
	},
	Mods: {
		Success: []string{"room_mods", "no_mods"},
		Failure: []string{"usage_mods"},
		Payload: func(msg *irc.Message) any {
			mods := state.ParseModerators(msg.Trailing)
			if msg.MsgID() == "no_mods" || mods == nil {
				return []string{}
			}
			return mods
		},
	},
	Ping: {
		Global: true,
		Event: func(msg *irc.Message, _ string) (any, bool) {
			return msg.Time, msg.Kind == irc.KindPong && msg.Trailing == PingToken
		},
	},
	R9KBeta: {
		Success: []string{"r9k_on"},
		Failure: []string{"usage_r9k_on", "already_r9k_on", "no_permission"},
	},
	R9KBetaOff: {
		Success: []string{"r9k_off"},
		Failure: []string{"usage_r9k_off", "already_r9k_off", "no_permission"},
	},
	Slow: {
		Success: []string{"slow_on"},
		Failure: []string{"usage_slow_on", "no_permission"},
		Event:   roomStateTag("slow", func(v int) bool { return v > 0 }),
	},
	SlowOff: {
		Success: []string{"slow_off"},
		Failure: []string{"usage_slow_off", "no_permission"},
		Event:   roomStateTag("slow", func(v int) bool { return v == 0 }),
	},
	Subscribers: {
		Success: []string{"subs_on"},
		Failure: []string{"usage_subs_on", "already_subs_on", "no_permission"},
	},
	SubscribersOff: {
		Success: []string{"subs_off"},
		Failure: []string{"usage_subs_off", "already_subs_off", "no_permission"},
	},
	Timeout: {
		Success: []string{"timeout_success"},
		Failure: []string{"usage_timeout", "bad_timeout_admin", "bad_timeout_anon", "bad_timeout_broadcaster", "bad_timeout_duration", "bad_timeout_global_mod", "bad_timeout_mod", "bad_timeout_self", "bad_timeout_staff", "no_permission"},
	},
	Unban: {
		Success: []string{"unban_success"},
		Failure: []string{"usage_unban", "bad_unban_no_ban", "no_permission"},
	},
}

func selfEvent(kind irc.Kind) func(*irc.Message, string) (any, bool) {
	return func(msg *irc.Message, self string) (any, bool) {
		return msg.Channel(), msg.Kind == kind && msg.Login() == self
	}
}

func roomStateTag(tag string, match func(int) bool) func(*irc.Message, string) (any, bool) {
	return func(msg *irc.Message, _ string) (any, bool) {
		if msg.Kind != irc.KindRoomState {
			return nil, false
		}
		v, ok := msg.TagInt(tag)
		return v, ok && match(v)
	}
}
