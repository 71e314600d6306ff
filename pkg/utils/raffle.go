package utils

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
)

// Raffle keeps the entrants of one raffle per channel.
type Raffle struct {
	mu       sync.Mutex
	channels map[string]map[string]struct{}
}

func NewRaffle() *Raffle {
	return &Raffle{channels: make(map[string]map[string]struct{})}
}

func key(s string) string {
	return strings.ToLower(strings.TrimLeft(s, "#@"))
}

// Init starts an empty raffle, dropping the previous entrants.
func (r *Raffle) Init(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.channels[key(channel)] = make(map[string]struct{})
}

func (r *Raffle) Enter(channel, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := key(channel)
	if r.channels[ch] == nil {
		r.channels[ch] = make(map[string]struct{})
	}
	r.channels[ch][key(username)] = struct{}{}
}

// Leave reports whether username was participating.
func (r *Raffle) Leave(channel, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entrants := r.channels[key(channel)]
	if _, ok := entrants[key(username)]; !ok {
		return false
	}
	delete(entrants, key(username))
	return true
}

// Pick returns a random entrant, or "" when nobody entered.
func (r *Raffle) Pick(channel string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entrants := r.channels[key(channel)]
	if len(entrants) == 0 {
		return ""
	}

	names := make([]string, 0, len(entrants))
	for name := range entrants {
		names = append(names, name)
	}
	slices.Sort(names)

	return names[rand.IntN(len(names))]
}

func (r *Raffle) Reset(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.channels, key(channel))
}

func (r *Raffle) Count(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.channels[key(channel)])
}

func (r *Raffle) IsParticipating(channel, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.channels[key(channel)][key(username)]
	return ok
}

// Active reports whether a raffle was started and not reset.
func (r *Raffle) Active(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.channels[key(channel)]
	return ok
}
