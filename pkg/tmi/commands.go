package tmi

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"tmichat/pkg/tmi/correlator"
	"tmichat/pkg/tmi/irc"
)

var commercialLengths = []int{30, 60, 90, 120, 150, 180}

// chatVerbs holds the chat commands whose slash verb differs from the Command.
var chatVerbs = map[correlator.Command]string{
	correlator.FollowersOnly:    "followers",
	correlator.FollowersOnlyOff: "followersoff",
}

// issue sends a correlated command and waits for its outcome.
func (c *Client) issue(ctx context.Context, cmd correlator.Command, channel, line string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := c.corr.Issue(correlator.Key{Command: cmd, Channel: channel}, line, c.commandTimeout(), c.send)
	return p.Wait(ctx)
}

// chat sends a chat command such as "/ban user" to channel.
func (c *Client) chat(ctx context.Context, cmd correlator.Command, channel string, args ...string) (any, error) {
	ch := irc.NormalizeChannel(channel)
	if ch == "" {
		return nil, fmt.Errorf("%w: empty channel", ErrInvalidArgument)
	}

	verb, ok := chatVerbs[cmd]
	if !ok {
		verb = string(cmd)
	}

	text := "/" + verb
	for _, a := range args {
		if a != "" {
			text += " " + a
		}
	}
	return c.issue(ctx, cmd, ch, "PRIVMSG #"+ch+" :"+text)
}

func (c *Client) chatUser(ctx context.Context, cmd correlator.Command, channel, user string, args ...string) error {
	u := irc.NormalizeUser(user)
	if u == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidArgument)
	}
	_, err := c.chat(ctx, cmd, channel, append([]string{u}, args...)...)
	return err
}

// privmsg writes a message that expects no answer. It succeeds once queued.
func (c *Client) privmsg(ctx context.Context, channel, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := irc.NormalizeChannel(channel)
	if ch == "" {
		return fmt.Errorf("%w: empty channel", ErrInvalidArgument)
	}
	return c.send("PRIVMSG #" + ch + " :" + text)
}

// Join joins channel. Joined channels are joined again after every reconnect.
func (c *Client) Join(ctx context.Context, channel string) error {
	ch := irc.NormalizeChannel(channel)
	if ch == "" {
		return fmt.Errorf("%w: empty channel", ErrInvalidArgument)
	}

	if _, err := c.issue(ctx, correlator.Join, ch, "JOIN #"+ch); err != nil {
		return err
	}

	c.mu.Lock()
	c.wanted[ch] = struct{}{}
	c.mu.Unlock()

	return nil
}

// Part leaves channel. The channel counts as left as soon as Part is called,
// whatever the server answers.
func (c *Client) Part(ctx context.Context, channel string) error {
	ch := irc.NormalizeChannel(channel)
	if ch == "" {
		return fmt.Errorf("%w: empty channel", ErrInvalidArgument)
	}

	c.mu.Lock()
	delete(c.wanted, ch)
	c.mu.Unlock()
	c.store.Forget(ch)

	_, err := c.issue(ctx, correlator.Part, ch, "PART #"+ch)
	return err
}

// Leave is an alias of Part.
func (c *Client) Leave(ctx context.Context, channel string) error {
	return c.Part(ctx, channel)
}

// Say sends a chat message. A "/me " or ".me " prefix sends an action instead.
func (c *Client) Say(ctx context.Context, channel, message string) error {
	for _, prefix := range []string{"/me ", ".me "} {
		if rest, ok := strings.CutPrefix(message, prefix); ok {
			return c.Action(ctx, channel, rest)
		}
	}
	return c.privmsg(ctx, channel, message)
}

func (c *Client) Action(ctx context.Context, channel, message string) error {
	return c.privmsg(ctx, channel, "\x01ACTION "+message+"\x01")
}

func (c *Client) Whisper(ctx context.Context, user, message string) error {
	u := irc.NormalizeUser(user)
	if u == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidArgument)
	}
	if u == c.username {
		return fmt.Errorf("%w: cannot whisper to yourself", ErrInvalidArgument)
	}
	return c.privmsg(ctx, "jtv", "/w "+u+" "+message)
}

// Raw writes line as is.
func (c *Client) Raw(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(line)
}

func (c *Client) Ban(ctx context.Context, channel, user, reason string) error {
	return c.chatUser(ctx, correlator.Ban, channel, user, reason)
}

func (c *Client) Unban(ctx context.Context, channel, user string) error {
	return c.chatUser(ctx, correlator.Unban, channel, user)
}

// Timeout times user out. A non-positive duration selects 300 seconds.
func (c *Client) Timeout(ctx context.Context, channel, user string, seconds int, reason string) error {
	if seconds <= 0 {
		seconds = 300
	}
	return c.chatUser(ctx, correlator.Timeout, channel, user, strconv.Itoa(seconds), reason)
}

func (c *Client) Mod(ctx context.Context, channel, user string) error {
	return c.chatUser(ctx, correlator.Mod, channel, user)
}

func (c *Client) Unmod(ctx context.Context, channel, user string) error {
	return c.chatUser(ctx, correlator.Unmod, channel, user)
}

// Mods asks the server for the moderators of channel.
func (c *Client) Mods(ctx context.Context, channel string) ([]string, error) {
	payload, err := c.chat(ctx, correlator.Mods, channel)
	if err != nil {
		return nil, err
	}

	mods, _ := payload.([]string)
	return mods, nil
}

// Color changes the chat color, either a name such as "Blue" or a hex code.
func (c *Client) Color(ctx context.Context, color string) error {
	if color == "" {
		return fmt.Errorf("%w: empty color", ErrInvalidArgument)
	}
	_, err := c.issue(ctx, correlator.Color, "", "PRIVMSG #"+c.username+" :/color "+color)
	return err
}

func (c *Client) Clear(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.Clear, channel)
	return err
}

// Host starts hosting target and returns the hosts remaining this half hour.
func (c *Client) Host(ctx context.Context, channel, target string) (int, error) {
	t := irc.NormalizeChannel(target)
	if t == "" {
		return 0, fmt.Errorf("%w: empty target", ErrInvalidArgument)
	}

	payload, err := c.chat(ctx, correlator.Host, channel, t)
	if err != nil {
		return 0, err
	}

	text, _ := payload.(string)
	remaining, _ := strconv.Atoi(strings.SplitN(text, " ", 2)[0])
	return remaining, nil
}

func (c *Client) Unhost(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.Unhost, channel)
	return err
}

// Commercial runs an ad break of 30, 60, 90, 120, 150 or 180 seconds.
func (c *Client) Commercial(ctx context.Context, channel string, seconds int) error {
	if !slices.Contains(commercialLengths, seconds) {
		return fmt.Errorf("%w: commercial length %d", ErrInvalidArgument, seconds)
	}
	_, err := c.chat(ctx, correlator.Commercial, channel, strconv.Itoa(seconds))
	return err
}

// Slow enables slow mode. A non-positive delay selects 300 seconds.
func (c *Client) Slow(ctx context.Context, channel string, seconds int) error {
	if seconds <= 0 {
		seconds = 300
	}
	_, err := c.chat(ctx, correlator.Slow, channel, strconv.Itoa(seconds))
	return err
}

func (c *Client) SlowOff(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.SlowOff, channel)
	return err
}

// SlowMode is an alias of Slow.
func (c *Client) SlowMode(ctx context.Context, channel string, seconds int) error {
	return c.Slow(ctx, channel, seconds)
}

// SlowModeOff is an alias of SlowOff.
func (c *Client) SlowModeOff(ctx context.Context, channel string) error {
	return c.SlowOff(ctx, channel)
}

// FollowersOnly enables followers-only mode. A negative follow age selects 30 minutes.
func (c *Client) FollowersOnly(ctx context.Context, channel string, minutes int) error {
	if minutes < 0 {
		minutes = 30
	}
	_, err := c.chat(ctx, correlator.FollowersOnly, channel, strconv.Itoa(minutes))
	return err
}

func (c *Client) FollowersOnlyOff(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.FollowersOnlyOff, channel)
	return err
}

// FollowersMode is an alias of FollowersOnly.
func (c *Client) FollowersMode(ctx context.Context, channel string, minutes int) error {
	return c.FollowersOnly(ctx, channel, minutes)
}

// FollowersModeOff is an alias of FollowersOnlyOff.
func (c *Client) FollowersModeOff(ctx context.Context, channel string) error {
	return c.FollowersOnlyOff(ctx, channel)
}

func (c *Client) EmoteOnly(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.EmoteOnly, channel)
	return err
}

func (c *Client) EmoteOnlyOff(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.EmoteOnlyOff, channel)
	return err
}

func (c *Client) R9KBeta(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.R9KBeta, channel)
	return err
}

func (c *Client) R9KBetaOff(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.R9KBetaOff, channel)
	return err
}

// R9KMode is an alias of R9KBeta.
func (c *Client) R9KMode(ctx context.Context, channel string) error {
	return c.R9KBeta(ctx, channel)
}

// R9KModeOff is an alias of R9KBetaOff.
func (c *Client) R9KModeOff(ctx context.Context, channel string) error {
	return c.R9KBetaOff(ctx, channel)
}

func (c *Client) Subscribers(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.Subscribers, channel)
	return err
}

func (c *Client) SubscribersOff(ctx context.Context, channel string) error {
	_, err := c.chat(ctx, correlator.SubscribersOff, channel)
	return err
}

// Ping measures the round trip to the server.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p := c.corr.Issue(correlator.Key{Command: correlator.Ping}, "PING :"+correlator.PingToken, c.commandTimeout(), c.send)
	payload, err := p.Wait(ctx)
	if err != nil {
		return 0, err
	}

	latency := time.Since(p.SentAt())
	if at, ok := payload.(time.Time); ok {
		latency = at.Sub(p.SentAt())
	}
	c.setLatency(latency)

	return latency, nil
}
