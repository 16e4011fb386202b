// Package state implements the Session State Store component (spec.md
// §4.G): an in-memory mirror of guilds, channels, members, roles, and
// users, guarded by a single mutex under a single-writer-multiple-reader
// concurrency model. PRESENCE_UPDATE refreshes cached users and member
// roles; the presence status and game themselves are not stored.
//
// Grounded on the teacher's root state.go, whose State type exposes
// the same GuildAdd/MemberAdd/RoleAdd/ChannelAdd accessor family
// against Redis; this package re-targets that accessor set onto plain
// in-memory maps (spec.md explicitly scopes persistence out: the store
// is a cache, not a database) and drops the teacher's MaxMessageCount
// message cache, matching spec.md's Non-goal of "no persistent message
// history."
package state

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/TheRockettek/sandwich-gateway/models"
)

// ErrNotFound is returned by an accessor when the requested entity is
// not present in the store.
var ErrNotFound = errors.New("state: not found")

// Store is the Session State Store: one set of maps per Session,
// written only by the built-in event handlers and read by callers from
// any goroutine (spec.md §5).
type Store struct {
	mu sync.RWMutex

	guilds      map[string]*models.Guild
	dmChannels  map[string]*models.Channel
	users       map[string]*models.User
	selfUser    *models.User
	unavailable map[string]bool
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		guilds:      make(map[string]*models.Guild),
		dmChannels:  make(map[string]*models.Channel),
		users:       make(map[string]*models.User),
		unavailable: make(map[string]bool),
	}
}

// SelfUser returns the self-user mirror learned from READY.
func (s *Store) SelfUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selfUser
}

func (s *Store) setSelfUser(u *models.User) {
	s.mu.Lock()
	s.selfUser = u
	s.mu.Unlock()
}

// Guild returns the guild with the given id.
func (s *Store) Guild(id string) (*models.Guild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guilds[id]
	if !ok {
		return nil, ErrNotFound
	}

	return g, nil
}

// Guilds returns a snapshot slice of every known guild.
func (s *Store) Guilds() []*models.Guild {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Guild, 0, len(s.guilds))
	for _, g := range s.guilds {
		out = append(out, g)
	}

	return out
}

// GuildAdd inserts or replaces a guild. The unavailable flag is taken
// from g.Unavailable: a full GUILD_CREATE (Unavailable=false) clears
// any prior outage marker, while the placeholder guilds READY lists
// under an outage (Unavailable=true) keep it set until a real
// GUILD_CREATE arrives.
func (s *Store) GuildAdd(g *models.Guild) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guilds[g.ID] = g

	if g.Unavailable {
		s.unavailable[g.ID] = true
	} else {
		delete(s.unavailable, g.ID)
	}
}

// GuildMerge field-wise merges a GUILD_UPDATE payload into the cached
// guild matched by id (spec.md §4.F): only the keys actually present
// in raw are copied over, so the fields a GUILD_UPDATE payload never
// carries (channels, members, joined_at, member_count, large) survive
// untouched instead of being wiped by a wholesale replace. If the
// guild is not yet cached, the decoded payload is installed as-is.
func (s *Store) GuildMerge(raw json.RawMessage) error {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return err
	}

	var patch models.Guild
	if err := json.Unmarshal(raw, &patch); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.guilds[patch.ID]
	if !ok {
		s.guilds[patch.ID] = &patch

		if patch.Unavailable {
			s.unavailable[patch.ID] = true
		}

		return nil
	}

	if _, ok := present["name"]; ok {
		existing.Name = patch.Name
	}

	if _, ok := present["owner_id"]; ok {
		existing.OwnerID = patch.OwnerID
	}

	if _, ok := present["roles"]; ok {
		existing.Roles = patch.Roles
	}

	if _, ok := present["emojis"]; ok {
		existing.Emojis = patch.Emojis
	}

	if _, ok := present["unavailable"]; ok {
		existing.Unavailable = patch.Unavailable

		if patch.Unavailable {
			s.unavailable[patch.ID] = true
		} else {
			delete(s.unavailable, patch.ID)
		}
	}

	// channels, members, joined_at, member_count, and large are
	// GUILD_CREATE-only fields; a GUILD_UPDATE payload never carries
	// them, so existing's values are left as-is.

	return nil
}

// GuildRemove deletes a guild outright (used when the bot leaves a
// guild, as opposed to the guild merely becoming unavailable).
func (s *Store) GuildRemove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.guilds, id)
	delete(s.unavailable, id)
}

// GuildMarkUnavailable records a guild outage without discarding any
// cached data, distinguishing an outage GUILD_DELETE from a real
// removal per spec.md §3's Unavailables semantics.
func (s *Store) GuildMarkUnavailable(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unavailable[id] = true

	if g, ok := s.guilds[id]; ok {
		g.Unavailable = true
	}
}

// IsUnavailable reports whether a guild is currently flagged
// unavailable.
func (s *Store) IsUnavailable(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unavailable[id]
}

// Channel returns a channel by id, searching guild channel lists and
// the dmChannels map.
func (s *Store) Channel(id string) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c := s.findChannel(id); c != nil {
		return c, nil
	}

	return nil, ErrNotFound
}

// findChannel is Channel's lock-free core, reused by callers that
// already hold s.mu.
func (s *Store) findChannel(id string) *models.Channel {
	if c, ok := s.dmChannels[id]; ok {
		return c
	}

	for _, g := range s.guilds {
		for _, c := range g.Channels {
			if c.ID == id {
				return c
			}
		}
	}

	return nil
}

// ChannelAdd inserts or replaces a channel. DM channels (no GuildID)
// are stored in the top-level dmChannels map; guild channels are
// merged into their guild's Channels slice.
func (s *Store) ChannelAdd(c *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putChannel(c)
}

// putChannel is ChannelAdd's lock-free core, reused by ChannelMerge.
func (s *Store) putChannel(c *models.Channel) error {
	if c.IsDM() || c.GuildID == "" {
		s.dmChannels[c.ID] = c
		return nil
	}

	g, ok := s.guilds[c.GuildID]
	if !ok {
		return ErrNotFound
	}

	for i, existing := range g.Channels {
		if existing.ID == c.ID {
			g.Channels[i] = c
			return nil
		}
	}

	g.Channels = append(g.Channels, c)

	return nil
}

// ChannelMerge field-wise merges a CHANNEL_UPDATE payload into the
// channel matched by id, without reordering it within its guild's
// Channels slice (spec.md §4.F): only keys actually present in raw
// overwrite the cached channel's fields. If the channel is not yet
// cached, the decoded payload is inserted fresh.
func (s *Store) ChannelMerge(id string, raw json.RawMessage) error {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return err
	}

	var patch models.Channel
	if err := json.Unmarshal(raw, &patch); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.findChannel(id)
	if existing == nil {
		return s.putChannel(&patch)
	}

	for key := range present {
		switch key {
		case "name":
			existing.Name = patch.Name
		case "topic":
			existing.Topic = patch.Topic
		case "position":
			existing.Position = patch.Position
		case "nsfw":
			existing.NSFW = patch.NSFW
		case "bitrate":
			existing.Bitrate = patch.Bitrate
		case "user_limit":
			existing.UserLimit = patch.UserLimit
		case "parent_id":
			existing.ParentID = patch.ParentID
		case "last_message_id":
			existing.LastMessageID = patch.LastMessageID
		case "rate_limit_per_user":
			existing.RateLimitPerUser = patch.RateLimitPerUser
		case "recipients":
			existing.Recipients = patch.Recipients
		case "permission_overwrites":
			existing.PermissionOverwrites = patch.PermissionOverwrites
		case "type":
			existing.Type = patch.Type
		}
	}

	return nil
}

// ChannelRemove deletes a channel from its guild's Channels slice, or
// from dmChannels if it was a DM.
func (s *Store) ChannelRemove(c *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.IsDM() || c.GuildID == "" {
		delete(s.dmChannels, c.ID)
		return nil
	}

	g, ok := s.guilds[c.GuildID]
	if !ok {
		return ErrNotFound
	}

	for i, existing := range g.Channels {
		if existing.ID == c.ID {
			g.Channels = append(g.Channels[:i], g.Channels[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}

// Member returns a guild member by user id.
func (s *Store) Member(guildID, userID string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return nil, ErrNotFound
	}

	for _, m := range g.Members {
		if m.User != nil && m.User.ID == userID {
			return m, nil
		}
	}

	return nil, ErrNotFound
}

// MemberAdd inserts or replaces a guild member.
func (s *Store) MemberAdd(guildID string, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotFound
	}

	if m.User != nil {
		s.users[m.User.ID] = m.User
	}

	for i, existing := range g.Members {
		if existing.User != nil && m.User != nil && existing.User.ID == m.User.ID {
			g.Members[i] = m
			return nil
		}
	}

	g.Members = append(g.Members, m)
	g.MemberCount++

	return nil
}

// MemberMerge field-wise merges a patch into the guild member matched
// by userID, instead of MemberAdd's wholesale replace (spec.md §4.F):
// apply is called with the cached Member (or a freshly zeroed one if
// the member was not yet cached) so the caller can copy over only the
// fields its payload actually carried, leaving the rest untouched.
func (s *Store) MemberMerge(guildID, userID string, apply func(*models.Member)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotFound
	}

	for _, existing := range g.Members {
		if existing.User != nil && existing.User.ID == userID {
			apply(existing)

			if existing.User != nil {
				s.users[existing.User.ID] = existing.User
			}

			return nil
		}
	}

	m := &models.Member{}
	apply(m)
	g.Members = append(g.Members, m)
	g.MemberCount++

	if m.User != nil {
		s.users[m.User.ID] = m.User
	}

	return nil
}

// MemberRemove deletes a guild member by user id.
func (s *Store) MemberRemove(guildID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotFound
	}

	for i, existing := range g.Members {
		if existing.User != nil && existing.User.ID == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			g.MemberCount--

			return nil
		}
	}

	return ErrNotFound
}

// Role returns a guild role by id.
func (s *Store) Role(guildID, roleID string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return nil, ErrNotFound
	}

	for _, r := range g.Roles {
		if r.ID == roleID {
			return r, nil
		}
	}

	return nil, ErrNotFound
}

// RoleAdd inserts or replaces a guild role.
func (s *Store) RoleAdd(guildID string, r *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotFound
	}

	for i, existing := range g.Roles {
		if existing.ID == r.ID {
			g.Roles[i] = r
			return nil
		}
	}

	g.Roles = append(g.Roles, r)

	return nil
}

// RoleRemove deletes a guild role by id.
func (s *Store) RoleRemove(guildID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotFound
	}

	for i, existing := range g.Roles {
		if existing.ID == roleID {
			g.Roles = append(g.Roles[:i], g.Roles[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}

// User returns a user by id, searching the top-level user mirror built
// from member/presence sightings.
func (s *Store) User(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return u, nil
}

// UserAdd inserts or replaces a user in the top-level user mirror.
func (s *Store) UserAdd(u *models.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

// EmojisSet replaces a guild's emoji list wholesale, matching how
// GUILD_EMOJIS_UPDATE delivers the complete set rather than a delta.
func (s *Store) EmojisSet(guildID string, emojis []*models.Emoji) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guilds[guildID]
	if !ok {
		return ErrNotFound
	}

	g.Emojis = emojis

	return nil
}
