package models

import "time"

// ChannelType is the type of a Channel.
type ChannelType int

// Known ChannelType values.
const (
	ChannelTypeGuildText ChannelType = iota
	ChannelTypeDM
	ChannelTypeGuildVoice
	ChannelTypeGroupDM
	ChannelTypeGuildCategory
	ChannelTypeGuildNews
	ChannelTypeGuildStore
)

// Status is a presence status string.
type Status string

// Known Status values.
const (
	StatusOnline       Status = "online"
	StatusIdle         Status = "idle"
	StatusDoNotDisturb Status = "dnd"
	StatusInvisible    Status = "invisible"
	StatusOffline      Status = "offline"
)

// Timestamp stores an ISO8601 timestamp as sent by Discord.
type Timestamp string

// User stores a Discord user, as described in spec.md §3.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar,omitempty"`
	Bot           bool   `json:"bot,omitempty"`
	Status        Status `json:"status,omitempty"`
	Game          *Game  `json:"game,omitempty"`
}

// Game is the "playing ..." activity attached to a presence.
type Game struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	URL  string `json:"url,omitempty"`
}

// Role stores a Discord guild role.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Hoist       bool   `json:"hoist"`
	Position    int    `json:"position"`
	Permissions int    `json:"permissions"`
	Managed     bool   `json:"managed"`
	Mentionable bool   `json:"mentionable"`
}

// Emoji stores a guild custom emoji.
type Emoji struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Roles         []string `json:"roles,omitempty"`
	Managed       bool     `json:"managed"`
	RequireColons bool     `json:"require_colons"`
	Animated      bool     `json:"animated"`
	Available     bool     `json:"available"`
}

// PermissionOverwrite is a per-channel permission allow/deny record
// attached to a user or role.
type PermissionOverwrite struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Allow int    `json:"allow"`
	Deny  int    `json:"deny"`
}

// Member is a guild member, uniquely keyed by User.ID within a guild.
type Member struct {
	User     *User     `json:"user"`
	Roles    []string  `json:"roles"`
	Nick     string    `json:"nick,omitempty"`
	Mute     bool      `json:"mute"`
	Deaf     bool      `json:"deaf"`
	JoinedAt Timestamp `json:"joined_at"`
}

// Channel is a Text, Voice, or DM channel. Text/Voice channels belong to
// exactly one guild (GuildID set); DM channels belong to no guild and
// carry a non-empty Recipients list.
type Channel struct {
	ID                   string                 `json:"id"`
	GuildID              string                 `json:"guild_id,omitempty"`
	Type                 ChannelType            `json:"type"`
	Name                 string                 `json:"name,omitempty"`
	Topic                string                 `json:"topic,omitempty"`
	Position             int                    `json:"position"`
	NSFW                 bool                   `json:"nsfw,omitempty"`
	Bitrate              int                    `json:"bitrate,omitempty"`
	UserLimit            int                    `json:"user_limit,omitempty"`
	ParentID             string                 `json:"parent_id,omitempty"`
	LastMessageID        string                 `json:"last_message_id,omitempty"`
	RateLimitPerUser     int                    `json:"rate_limit_per_user,omitempty"`
	Recipients           []*User                `json:"recipients,omitempty"`
	PermissionOverwrites []*PermissionOverwrite `json:"permission_overwrites,omitempty"`
}

// IsDM reports whether the channel is a direct-message (or group-DM)
// channel, per spec.md §3's Channel invariants.
func (c *Channel) IsDM() bool {
	return c.Type == ChannelTypeDM || c.Type == ChannelTypeGroupDM
}

// Guild is a Discord guild ("server"). Invariants (spec.md §3): id is
// unique within a session's guild map; members/channels/roles are each
// unique by id within the guild; member.user.id is unique within the
// guild's member list.
type Guild struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	OwnerID     string                 `json:"owner_id,omitempty"`
	JoinedAt    Timestamp              `json:"joined_at,omitempty"`
	MemberCount int                    `json:"member_count,omitempty"`
	Large       bool                   `json:"large,omitempty"`
	Unavailable bool                   `json:"unavailable,omitempty"`
	Channels    []*Channel             `json:"channels,omitempty"`
	Members     []*Member              `json:"members,omitempty"`
	Roles       []*Role                `json:"roles,omitempty"`
	Emojis      []*Emoji               `json:"emojis,omitempty"`
	Metadata    map[string]interface{} `json:"-"`
}

// UnavailableGuild is the payload shape of a GUILD_DELETE event.
type UnavailableGuild struct {
	ID          string `json:"id"`
	Unavailable bool   `json:"unavailable"`
}

// VoiceState mirrors a member's voice connection state in a guild.
type VoiceState struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	SelfMute  bool   `json:"self_mute"`
	SelfDeaf  bool   `json:"self_deaf"`
	Mute      bool   `json:"mute"`
	Deaf      bool   `json:"deaf"`
	Suppress  bool   `json:"suppress"`
}

// SessionStartLimit describes the bot's remaining identify budget, as
// returned by GET /gateway/bot.
type SessionStartLimit struct {
	Total          int           `json:"total"`
	Remaining      int           `json:"remaining"`
	ResetAfter     time.Duration `json:"reset_after"`
	MaxConcurrency int           `json:"max_concurrency"`
}

// GatewayBotResponse is the decoded body of GET /gateway/bot, consulted
// by Session Lifecycle sharding bootstrap (SPEC_FULL.md §6).
type GatewayBotResponse struct {
	URL               string            `json:"url"`
	Shards            int               `json:"shards"`
	SessionStartLimit SessionStartLimit `json:"session_start_limit"`
}

// UpdateStatusData describes the presence a caller wants to broadcast
// via Session.UpdateStatus.
type UpdateStatusData struct {
	Since  *int64 `json:"since"`
	Game   *Game  `json:"game"`
	Status Status `json:"status"`
	AFK    bool   `json:"afk"`
}
