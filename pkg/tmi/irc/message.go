package irc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedLine is returned by Parse when a line has no command verb.
var ErrMalformedLine = errors.New("irc: malformed line")

const actionPrefix = "\x01ACTION "

// A Message is one parsed protocol line. It is not safe for concurrent
// mutation; the client hands every subscriber the same read-only value.
type Message struct {
	Raw  string
	Time time.Time
	Kind Kind

	Tags map[string]string

	// Prefix is the raw source, Nick/User/Host its split form when it is a user mask.
	Prefix string
	Nick   string
	User   string
	Host   string

	Command     string
	Params      []string
	Trailing    string
	HasTrailing bool
}

// Parse parses one raw line.
func Parse(line string) (*Message, error) {
	raw := strings.TrimRight(line, "\r\n")
	msg := &Message{Raw: raw, Time: time.Now(), Tags: map[string]string{}}

	rest := strings.TrimLeft(raw, " ")
	if rest == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}

	if rest[0] == '@' {
		tags, after, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil, fmt.Errorf("%w: only tags in %q", ErrMalformedLine, raw)
		}
		msg.Tags = parseTags(tags)
		rest = strings.TrimLeft(after, " ")
	}

	if rest != "" && rest[0] == ':' {
		prefix, after, ok := strings.Cut(rest[1:], " ")
		if !ok {
			return nil, fmt.Errorf("%w: only prefix in %q", ErrMalformedLine, raw)
		}
		msg.Prefix = prefix
		msg.Nick, msg.User, msg.Host = splitPrefix(prefix)
		rest = strings.TrimLeft(after, " ")
	}

	middle := rest
	if strings.HasPrefix(rest, ":") {
		middle, msg.Trailing, msg.HasTrailing = "", rest[1:], true
	} else if idx := strings.Index(rest, " :"); idx != -1 {
		middle, msg.Trailing, msg.HasTrailing = rest[:idx], rest[idx+2:], true
	}

	fields := strings.Fields(middle)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no command in %q", ErrMalformedLine, raw)
	}

	msg.Command = fields[0]
	msg.Params = fields[1:]
	msg.Kind = KindOf(msg.Command)

	return msg, nil
}

func splitPrefix(prefix string) (nick, user, host string) {
	nick, userhost, ok := strings.Cut(prefix, "!")
	if !ok {
		nick, host, _ = strings.Cut(prefix, "@")
		return nick, "", host
	}

	user, host, _ = strings.Cut(userhost, "@")
	return nick, user, host
}

// Channel returns the normalized channel the message targets, or "" if none.
func (m *Message) Channel() string {
	for _, p := range m.Params {
		if strings.HasPrefix(p, "#") {
			return NormalizeChannel(p)
		}
	}
	return ""
}

// MsgID returns the msg-id tag carried by NOTICE and USERNOTICE lines.
func (m *Message) MsgID() string {
	return m.Tags["msg-id"]
}

// Tag returns a tag value, "" when absent.
func (m *Message) Tag(key string) string {
	return m.Tags[key]
}

// Login is the lowercase sender login: the login tag when present, else the prefix nick.
func (m *Message) Login() string {
	if v := m.Tags["login"]; v != "" {
		return NormalizeUser(v)
	}
	return NormalizeUser(m.Nick)
}

// IsAction reports whether the payload is a CTCP ACTION (/me).
func (m *Message) IsAction() bool {
	return strings.HasPrefix(m.Trailing, actionPrefix)
}

// Text returns the payload with CTCP ACTION framing removed.
func (m *Message) Text() string {
	if m.IsAction() {
		return strings.TrimSuffix(strings.TrimPrefix(m.Trailing, actionPrefix), "\x01")
	}
	return m.Trailing
}

// Param returns the i-th middle parameter or "".
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

func (m *Message) String() string {
	return m.Raw
}
