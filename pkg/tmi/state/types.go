package state

import "time"

// RoomState holds the moderation mode flags of a channel.
type RoomState struct {
	Channel  string `json:"channel"`
	RoomID   string `json:"room_id,omitempty"`
	Language string `json:"broadcaster_lang,omitempty"`

	EmoteOnly bool `json:"emote_only"`
	// FollowersOnly is the required follow age in minutes, -1 when disabled.
	FollowersOnly int  `json:"followers_only"`
	R9K           bool `json:"r9k"`
	// Slow is the slow-mode delay in seconds, 0 when disabled.
	Slow     int  `json:"slow"`
	SubsOnly bool `json:"subs_only"`

	UpdatedAt time.Time `json:"updated_at"`
}

// UserState is the per-channel metadata Twitch attaches to a user.
type UserState struct {
	Username    string            `json:"username"`
	UserID      string            `json:"user_id,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	Color       string            `json:"color,omitempty"`
	UserType    string            `json:"user_type,omitempty"`
	Badges      map[string]string `json:"badges,omitempty"`
	EmoteSets   []string          `json:"emote_sets,omitempty"`

	Mod        bool `json:"mod"`
	Subscriber bool `json:"subscriber"`
	Turbo      bool `json:"turbo"`

	UpdatedAt time.Time `json:"updated_at"`
}

// HasBadge reports whether the user carries a badge of the given set.
func (u UserState) HasBadge(name string) bool {
	_, ok := u.Badges[name]
	return ok
}
