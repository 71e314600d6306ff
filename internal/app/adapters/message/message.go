package message

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tmichat/internal/app/infrastructure/config"
	"tmichat/pkg/storage"
	"tmichat/internal/app/ports"
	"tmichat/pkg/logger"
	"tmichat/pkg/tmi"
	"tmichat/pkg/tmi/irc"
	"tmichat/pkg/utils"
)

const (
	replyTimeout = 5 * time.Second
	userCooldown = 3 * time.Second

	limiterCapacity = 10_000
	limiterIdle     = 10 * time.Minute
)

// Bot answers chat commands: ping and per-channel raffles.
type Bot struct {
	log    logger.Logger
	chat   ports.ChatPort
	prefix string
	admins []string
	raffle *utils.Raffle

	muLimiter    sync.Mutex
	usersLimiter *storage.Cache[*rate.Limiter]
}

func New(log logger.Logger, cfg config.Bot, chat ports.ChatPort) *Bot {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "!"
	}

	admins := make([]string, 0, len(cfg.Admins))
	for _, a := range cfg.Admins {
		admins = append(admins, irc.NormalizeUser(a))
	}

	return &Bot{
		log:          log,
		chat:         chat,
		prefix:       prefix,
		admins:       admins,
		raffle:       utils.NewRaffle(),
		usersLimiter: storage.NewCache[*rate.Limiter](limiterCapacity, limiterIdle),
	}
}

// Handler adapts the bot to tmi event subscriptions.
func (b *Bot) Handler() tmi.Handler {
	return func(ev tmi.Event) {
		if msg, ok := ev.(tmi.Message); ok {
			b.Handle(msg)
		}
	}
}

// Handle processes one chat message and returns the reply that was sent, if any.
func (b *Bot) Handle(msg tmi.Message) string {
	if msg.Self || msg.Action || !strings.HasPrefix(msg.Text, b.prefix) {
		return ""
	}

	words := strings.Fields(strings.ToLower(strings.TrimPrefix(msg.Text, b.prefix)))
	if len(words) == 0 {
		return ""
	}

	user := irc.NormalizeUser(msg.User)
	b.log.Trace("Processing command", slog.String("channel", msg.Channel), slog.String("username", user), slog.String("command", words[0]))

	var reply string
	switch words[0] {
	case "ping":
		if !b.allowUser(user) {
			return ""
		}
		reply = b.ping(user)
	case "raffle":
		reply = b.handleRaffle(msg.Channel, user, words[1:])
	default:
		return ""
	}

	if reply == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	if err := b.chat.Say(ctx, msg.Channel, reply); err != nil {
		b.log.Error("Failed to send reply", err, slog.String("channel", msg.Channel))
		return ""
	}
	return reply
}

func (b *Bot) ping(user string) string {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	latency, err := b.chat.Ping(ctx)
	if err != nil {
		b.log.Warn("Ping failed", slog.String("error", err.Error()))
		return ""
	}
	return fmt.Sprintf("@%s pong (%dms)", user, latency.Milliseconds())
}

func (b *Bot) handleRaffle(channel, user string, args []string) string {
	if len(args) == 0 {
		args = []string{"enter"}
	}

	switch args[0] {
	case "start":
		if !b.privileged(channel, user) {
			return ""
		}
		b.raffle.Init(channel)
		return fmt.Sprintf("Raffle started! Type %sraffle to enter.", b.prefix)
	case "enter", "join":
		if !b.raffle.Active(channel) || b.raffle.IsParticipating(channel, user) {
			return ""
		}
		b.raffle.Enter(channel, user)
		return ""
	case "leave":
		if b.raffle.Leave(channel, user) {
			return fmt.Sprintf("@%s left the raffle", user)
		}
		return ""
	case "count":
		if !b.raffle.Active(channel) || !b.allowUser(user) {
			return ""
		}
		return fmt.Sprintf("%d entrants", b.raffle.Count(channel))
	case "pick":
		if !b.privileged(channel, user) || !b.raffle.Active(channel) {
			return ""
		}
		winner := b.raffle.Pick(channel)
		if winner == "" {
			return "Nobody entered the raffle"
		}
		b.raffle.Leave(channel, winner)
		return fmt.Sprintf("@%s won the raffle!", winner)
	case "stop", "end":
		if !b.privileged(channel, user) {
			return ""
		}
		b.raffle.Reset(channel)
		return "Raffle closed"
	}
	return ""
}

func (b *Bot) privileged(channel, user string) bool {
	return user == irc.NormalizeChannel(channel) || slices.Contains(b.admins, user) || b.chat.IsMod(channel, user)
}

func (b *Bot) allowUser(username string) bool {
	b.muLimiter.Lock()
	defer b.muLimiter.Unlock()

	limiter, ok := b.usersLimiter.Get(username)
	if !ok {
		limiter = rate.NewLimiter(rate.Every(userCooldown), 1)
		b.usersLimiter.Set(username, limiter)
	}
	return limiter.Allow()
}
