package irc

import "strings"

// NormalizeChannel returns the canonical form used as a map key:
// lowercase, without the leading '#'.
func NormalizeChannel(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}

// ChannelTarget returns the wire form of a channel, always '#'-prefixed.
func ChannelTarget(name string) string {
	return "#" + NormalizeChannel(name)
}

// NormalizeUser lowercases a login and strips an '@' mention prefix.
func NormalizeUser(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
