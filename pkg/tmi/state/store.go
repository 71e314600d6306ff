package state

import (
	"slices"
	"strings"
	"sync"
	"time"

	"tmichat/pkg/storage"
	"tmichat/pkg/tmi/irc"
)

const defaultUserCapacity = 100_000

type channel struct {
	room       RoomState
	roster     map[string]struct{}
	moderators map[string]struct{}
	modsAt     time.Time
}

// Store is the channel/user state derived from inbound messages. Apply is meant
// to be called from a single goroutine; readers may run concurrently.
type Store struct {
	mu       sync.RWMutex
	self     string
	channels map[string]*channel
	global   *UserState

	users *storage.Cache[UserState]
	now   func() time.Time
}

type Option func(*Store)

// WithUserCapacity bounds the number of cached per-channel user states.
func WithUserCapacity(n int) Option {
	return func(s *Store) {
		s.users = storage.NewCache[UserState](n, 0)
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(self string, opts ...Option) *Store {
	s := &Store{
		self:     irc.NormalizeUser(self),
		channels: make(map[string]*channel),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.users == nil {
		s.users = storage.NewCache[UserState](defaultUserCapacity, 0)
	}

	return s
}

func (s *Store) SetSelf(username string) {
	s.mu.Lock()
	s.self = irc.NormalizeUser(username)
	s.mu.Unlock()
}

func (s *Store) Self() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.self
}

// Apply folds one inbound message into the store. Unknown kinds are ignored.
func (s *Store) Apply(msg *irc.Message) {
	if msg == nil {
		return
	}

	switch msg.Kind {
	case irc.KindJoin:
		s.applyJoin(msg)
	case irc.KindPart:
		s.applyPart(msg)
	case irc.KindNames:
		s.applyNames(msg)
	case irc.KindRoomState:
		s.applyRoomState(msg)
	case irc.KindMode:
		s.applyMode(msg)
	case irc.KindNotice:
		s.applyNotice(msg)
	case irc.KindUserState:
		s.applyUserState(msg.Channel(), s.Self(), msg)
	case irc.KindPrivmsg:
		if msg.Channel() != "" {
			s.applyUserState(msg.Channel(), msg.Login(), msg)
		}
	case irc.KindGlobalUserState:
		u := s.userStateFromTags(s.Self(), msg)
		s.mu.Lock()
		s.global = &u
		s.mu.Unlock()
	}
}

func (s *Store) applyJoin(msg *irc.Message) {
	name, user := msg.Channel(), msg.Login()
	if name == "" || user == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[name]
	if user == s.self {
		if !ok {
			ch = &channel{
				room:       RoomState{Channel: name, FollowersOnly: -1, UpdatedAt: s.now()},
				roster:     make(map[string]struct{}),
				moderators: make(map[string]struct{}),
			}
			s.channels[name] = ch
		}
		ch.roster[user] = struct{}{}
		return
	}

	if ok {
		ch.roster[user] = struct{}{}
	}
}

func (s *Store) applyPart(msg *irc.Message) {
	name, user := msg.Channel(), msg.Login()
	if name == "" || user == "" {
		return
	}

	s.mu.Lock()
	if user == s.self {
		s.mu.Unlock()
		s.Forget(name)
		return
	}

	if ch, ok := s.channels[name]; ok {
		delete(ch.roster, user)
	}
	s.mu.Unlock()
}

// Forget drops the channel state and the user states kept for it.
func (s *Store) Forget(name string) {
	name = irc.NormalizeChannel(name)

	s.mu.Lock()
	delete(s.channels, name)
	s.mu.Unlock()

	s.users.ClearPrefix(name + "/")
}

func (s *Store) applyNames(msg *irc.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[msg.Channel()]
	if !ok {
		return
	}
	for _, name := range strings.Fields(msg.Trailing) {
		ch.roster[irc.NormalizeUser(name)] = struct{}{}
	}
}

func (s *Store) applyRoomState(msg *irc.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[msg.Channel()]
	if !ok {
		return
	}

	r := &ch.room
	if v, ok := msg.Tags["room-id"]; ok {
		r.RoomID = v
	}
	if v, ok := msg.Tags["broadcaster-lang"]; ok {
		r.Language = v
	}
	if _, ok := msg.Tags["emote-only"]; ok {
		r.EmoteOnly = msg.TagBool("emote-only")
	}
	if v, ok := msg.TagInt("followers-only"); ok {
		r.FollowersOnly = v
	}
	if _, ok := msg.Tags["r9k"]; ok {
		r.R9K = msg.TagBool("r9k")
	}
	if v, ok := msg.TagInt("slow"); ok {
		r.Slow = v
	}
	if _, ok := msg.Tags["subs-only"]; ok {
		r.SubsOnly = msg.TagBool("subs-only")
	}
	r.UpdatedAt = s.now()
}

func (s *Store) applyMode(msg *irc.Message) {
	// :jtv MODE #channel +o user
	if len(msg.Params) < 3 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[msg.Channel()]
	if !ok {
		return
	}

	user := irc.NormalizeUser(msg.Params[2])
	switch msg.Params[1] {
	case "+o":
		ch.moderators[user] = struct{}{}
	case "-o":
		delete(ch.moderators, user)
	}
}

func (s *Store) applyNotice(msg *irc.Message) {
	var mods []string
	switch msg.MsgID() {
	case "room_mods":
		mods = ParseModerators(msg.Trailing)
	case "no_mods":
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[msg.Channel()]
	if !ok {
		return
	}

	ch.moderators = make(map[string]struct{}, len(mods))
	for _, m := range mods {
		ch.moderators[m] = struct{}{}
	}
	ch.modsAt = s.now()
}

func (s *Store) applyUserState(name, user string, msg *irc.Message) {
	if name == "" || user == "" {
		return
	}

	s.mu.Lock()
	ch, ok := s.channels[name]
	if ok {
		if _, has := msg.Tags["mod"]; has {
			if msg.TagBool("mod") {
				ch.moderators[user] = struct{}{}
			} else {
				delete(ch.moderators, user)
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.users.Set(userKey(name, user), s.userStateFromTags(user, msg))
}

func (s *Store) userStateFromTags(user string, msg *irc.Message) UserState {
	return UserState{
		Username:    user,
		UserID:      msg.Tags["user-id"],
		DisplayName: msg.Tags["display-name"],
		Color:       msg.Tags["color"],
		UserType:    msg.Tags["user-type"],
		Badges:      irc.ParseBadges(msg.Tags["badges"]),
		EmoteSets:   irc.ParseList(msg.Tags["emote-sets"]),
		Mod:         msg.TagBool("mod"),
		Subscriber:  msg.TagBool("subscriber"),
		Turbo:       msg.TagBool("turbo"),
		UpdatedAt:   s.now(),
	}
}

// RoomState returns a copy of the channel's room state.
func (s *Store) RoomState(name string) (RoomState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[irc.NormalizeChannel(name)]
	if !ok {
		return RoomState{}, false
	}
	return ch.room, true
}

// IsModerator is best-effort: the set is derived from MODE, room_mods and
// per-message mod tags, so it can lag behind the server. Use Moderators for
// the time of the last full refresh.
func (s *Store) IsModerator(name, user string) bool {
	name, user = irc.NormalizeChannel(name), irc.NormalizeUser(user)
	if name == user {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[name]
	if !ok {
		return false
	}
	_, mod := ch.moderators[user]
	return mod
}

// Moderators returns the known moderators, sorted, and when the list was last
// replaced by a full room_mods/no_mods answer (zero if never).
func (s *Store) Moderators(name string) ([]string, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[irc.NormalizeChannel(name)]
	if !ok {
		return nil, time.Time{}, false
	}
	return sortedKeys(ch.moderators), ch.modsAt, true
}

// Roster returns the sorted logins currently present in the channel.
func (s *Store) Roster(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[irc.NormalizeChannel(name)]
	if !ok {
		return nil
	}
	return sortedKeys(ch.roster)
}

func (s *Store) InRoster(name, user string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[irc.NormalizeChannel(name)]
	if !ok {
		return false
	}
	_, in := ch.roster[irc.NormalizeUser(user)]
	return in
}

func (s *Store) UserState(name, user string) (UserState, bool) {
	return s.users.Get(userKey(irc.NormalizeChannel(name), irc.NormalizeUser(user)))
}

func (s *Store) GlobalUserState() (UserState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.global == nil {
		return UserState{}, false
	}
	return *s.global, true
}

// Channels returns the sorted names of joined channels.
func (s *Store) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Store) Joined(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.channels[irc.NormalizeChannel(name)]
	return ok
}

// Reset drops every channel and user state, the global one included.
func (s *Store) Reset() {
	s.mu.Lock()
	s.channels = make(map[string]*channel)
	s.global = nil
	s.mu.Unlock()

	s.users.ClearAll()
}

// ParseModerators extracts logins from a room_mods notice:
// "The moderators of this channel are: alice, bob".
func ParseModerators(text string) []string {
	_, list, ok := strings.Cut(text, ":")
	if !ok {
		return nil
	}

	var mods []string
	for _, m := range strings.Split(list, ",") {
		m = irc.NormalizeUser(strings.TrimSuffix(strings.TrimSpace(m), "."))
		if m != "" {
			mods = append(mods, m)
		}
	}
	return mods
}

func userKey(channel, user string) string {
	return channel + "/" + user
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
