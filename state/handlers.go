package state

import (
	"encoding/json"

	"github.com/TheRockettek/sandwich-gateway/models"
)

// Apply is the built-in handler set (spec.md §4.F): deterministic
// state mutation run against every dispatched Event before it reaches
// user-registered callbacks. Grounded on the teacher's State.OnInterface
// type-switch in state.go, re-targeted from Redis accessor calls onto
// the in-memory Store above and generalized from the teacher's
// per-event-struct switch to a switch over models.Event.Type with
// json.RawMessage payload decode, since Event.Data arrives undecoded
// until a handler claims a shape for it.
func Apply(s *Store, ev models.Event) error {
	raw, ok := ev.Data.(json.RawMessage)
	if !ok {
		return nil
	}

	switch ev.Type {
	case models.EventReady:
		var r models.ReadyData
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}

		return applyReady(s, &r)

	case models.EventGuildCreate:
		var g models.Guild
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}

		s.GuildAdd(&g)

		return nil

	case models.EventGuildUpdate:
		return s.GuildMerge(raw)

	case models.EventGuildDelete:
		var ug models.UnavailableGuild
		if err := json.Unmarshal(raw, &ug); err != nil {
			return err
		}

		if ug.Unavailable {
			s.GuildMarkUnavailable(ug.ID)
		} else {
			s.GuildRemove(ug.ID)
		}

		return nil

	case models.EventChannelCreate:
		var c models.Channel
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}

		return s.ChannelAdd(&c)

	case models.EventChannelUpdate:
		var idOnly struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &idOnly); err != nil {
			return err
		}

		return s.ChannelMerge(idOnly.ID, raw)

	case models.EventChannelDelete:
		var c models.Channel
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}

		return s.ChannelRemove(&c)

	case models.EventGuildMemberAdd:
		var m models.Member
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}

		guildID := memberGuildID(raw)

		return s.MemberAdd(guildID, &m)

	case models.EventGuildMemberUpdate:
		var patch struct {
			GuildID  string            `json:"guild_id"`
			User     *models.User      `json:"user"`
			Nick     *string           `json:"nick"`
			Roles    *[]string         `json:"roles"`
			JoinedAt *models.Timestamp `json:"joined_at"`
			Mute     *bool             `json:"mute"`
			Deaf     *bool             `json:"deaf"`
		}
		if err := json.Unmarshal(raw, &patch); err != nil {
			return err
		}

		if patch.User == nil {
			return nil
		}

		return s.MemberMerge(patch.GuildID, patch.User.ID, func(m *models.Member) {
			m.User = patch.User

			if patch.Nick != nil {
				m.Nick = *patch.Nick
			}

			if patch.Roles != nil {
				m.Roles = *patch.Roles
			}

			if patch.JoinedAt != nil {
				m.JoinedAt = *patch.JoinedAt
			}

			if patch.Mute != nil {
				m.Mute = *patch.Mute
			}

			if patch.Deaf != nil {
				m.Deaf = *patch.Deaf
			}
		})

	case models.EventGuildMemberRemove:
		var m struct {
			GuildID string       `json:"guild_id"`
			User    *models.User `json:"user"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}

		if m.User == nil {
			return nil
		}

		return s.MemberRemove(m.GuildID, m.User.ID)

	case models.EventGuildMembersChunk:
		var chunk models.GuildMembersChunkData
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return err
		}

		for _, m := range chunk.Members {
			if err := s.MemberAdd(chunk.GuildID, m); err != nil {
				return err
			}
		}

		return nil

	case models.EventGuildRoleCreate, models.EventGuildRoleUpdate:
		var rc struct {
			GuildID string       `json:"guild_id"`
			Role    *models.Role `json:"role"`
		}
		if err := json.Unmarshal(raw, &rc); err != nil {
			return err
		}

		return s.RoleAdd(rc.GuildID, rc.Role)

	case models.EventGuildRoleDelete:
		var rd struct {
			GuildID string `json:"guild_id"`
			RoleID  string `json:"role_id"`
		}
		if err := json.Unmarshal(raw, &rd); err != nil {
			return err
		}

		return s.RoleRemove(rd.GuildID, rd.RoleID)

	case models.EventGuildEmojisUpdate:
		var ge struct {
			GuildID string          `json:"guild_id"`
			Emojis  []*models.Emoji `json:"emojis"`
		}
		if err := json.Unmarshal(raw, &ge); err != nil {
			return err
		}

		return s.EmojisSet(ge.GuildID, ge.Emojis)

	case models.EventUserUpdate:
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return err
		}

		s.UserAdd(&u)

		return nil

	case models.EventPresenceUpdate:
		var p models.PresenceUpdate
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}

		return applyPresenceUpdate(s, &p)

	default:
		// MESSAGE_* and other dispatch types are log-only: the store
		// carries no persistent message history (spec.md Non-goals).
		return nil
	}
}

func applyReady(s *Store, r *models.ReadyData) error {
	s.setSelfUser(r.User)

	for _, ug := range r.Guilds {
		s.GuildAdd(&models.Guild{ID: ug.ID, Unavailable: true})
	}

	for _, c := range r.PrivateChannels {
		if err := s.ChannelAdd(c); err != nil {
			return err
		}
	}

	return nil
}

// applyPresenceUpdate replaces the member's cached roles with the
// presence's roles and copies a non-empty username, or synthesizes a
// member record if the user was not already cached, matching the
// teacher's OnInterface PresenceUpdate branch in state.go. The member's
// nick is not changed, and a presence with status offline is ignored.
func applyPresenceUpdate(s *Store, p *models.PresenceUpdate) error {
	if p.User == nil || p.Status == models.StatusOffline {
		return nil
	}

	s.UserAdd(p.User)

	m, err := s.Member(p.GuildID, p.User.ID)
	if err != nil {
		m = &models.Member{User: p.User, Roles: p.Roles}
	} else {
		m.Roles = p.Roles
		if p.User.Username != "" {
			m.User.Username = p.User.Username
		}
	}

	return s.MemberAdd(p.GuildID, m)
}

// memberGuildID extracts guild_id from a GUILD_MEMBER_ADD payload,
// which embeds it alongside the member fields rather than nesting
// member under a distinct key.
func memberGuildID(raw []byte) string {
	var g struct {
		GuildID string `json:"guild_id"`
	}

	_ = json.Unmarshal(raw, &g)

	return g.GuildID
}
