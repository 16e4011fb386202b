package sandwich

import "github.com/TheRockettek/sandwich-gateway/models"

// Domain types live in the models package, which has no dependency on
// gateway/rest/state/dispatch; that keeps this root package free to
// import all four without an import cycle. The aliases below keep the
// public API surface at sandwich.Guild, sandwich.Event, and so on.
type (
	ChannelType            = models.ChannelType
	Status                 = models.Status
	Timestamp              = models.Timestamp
	User                   = models.User
	Game                   = models.Game
	Role                   = models.Role
	Emoji                  = models.Emoji
	PermissionOverwrite    = models.PermissionOverwrite
	Member                 = models.Member
	Channel                = models.Channel
	Guild                  = models.Guild
	UnavailableGuild       = models.UnavailableGuild
	VoiceState             = models.VoiceState
	SessionStartLimit      = models.SessionStartLimit
	GatewayBotResponse     = models.GatewayBotResponse
	UpdateStatusData       = models.UpdateStatusData
	Event                  = models.Event
	ReadyData              = models.ReadyData
	PresenceUpdate         = models.PresenceUpdate
	GuildMembersChunkData  = models.GuildMembersChunkData
	GuildBanData           = models.GuildBanData
	MessageDeleteBulkData  = models.MessageDeleteBulkData
	TypingStartData        = models.TypingStartData
	WebhooksUpdateData     = models.WebhooksUpdateData
)

const (
	ChannelTypeGuildText     = models.ChannelTypeGuildText
	ChannelTypeDM            = models.ChannelTypeDM
	ChannelTypeGuildVoice    = models.ChannelTypeGuildVoice
	ChannelTypeGroupDM       = models.ChannelTypeGroupDM
	ChannelTypeGuildCategory = models.ChannelTypeGuildCategory
	ChannelTypeGuildNews     = models.ChannelTypeGuildNews
	ChannelTypeGuildStore    = models.ChannelTypeGuildStore

	StatusOnline       = models.StatusOnline
	StatusIdle         = models.StatusIdle
	StatusDoNotDisturb = models.StatusDoNotDisturb
	StatusInvisible    = models.StatusInvisible
	StatusOffline      = models.StatusOffline

	EventReady                    = models.EventReady
	EventResumed                  = models.EventResumed
	EventChannelCreate            = models.EventChannelCreate
	EventChannelUpdate            = models.EventChannelUpdate
	EventChannelDelete            = models.EventChannelDelete
	EventGuildCreate              = models.EventGuildCreate
	EventGuildUpdate              = models.EventGuildUpdate
	EventGuildDelete              = models.EventGuildDelete
	EventGuildBanAdd              = models.EventGuildBanAdd
	EventGuildBanRemove           = models.EventGuildBanRemove
	EventGuildEmojisUpdate        = models.EventGuildEmojisUpdate
	EventGuildIntegrationsUpdate  = models.EventGuildIntegrationsUpdate
	EventGuildMemberAdd           = models.EventGuildMemberAdd
	EventGuildMemberUpdate        = models.EventGuildMemberUpdate
	EventGuildMemberRemove        = models.EventGuildMemberRemove
	EventGuildMembersChunk        = models.EventGuildMembersChunk
	EventGuildRoleCreate          = models.EventGuildRoleCreate
	EventGuildRoleUpdate          = models.EventGuildRoleUpdate
	EventGuildRoleDelete          = models.EventGuildRoleDelete
	EventMessageCreate            = models.EventMessageCreate
	EventMessageUpdate            = models.EventMessageUpdate
	EventMessageDelete            = models.EventMessageDelete
	EventMessageDeleteBulk        = models.EventMessageDeleteBulk
	EventMessageReactionAdd       = models.EventMessageReactionAdd
	EventMessageReactionRemove    = models.EventMessageReactionRemove
	EventMessageReactionRemoveAll = models.EventMessageReactionRemoveAll
	EventPresenceUpdate           = models.EventPresenceUpdate
	EventTypingStart              = models.EventTypingStart
	EventUserUpdate               = models.EventUserUpdate
	EventVoiceStateUpdate         = models.EventVoiceStateUpdate
	EventVoiceServerUpdate        = models.EventVoiceServerUpdate
	EventWebhooksUpdate           = models.EventWebhooksUpdate
)
