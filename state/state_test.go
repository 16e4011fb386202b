package state

import (
	"encoding/json"
	"testing"

	"github.com/TheRockettek/sandwich-gateway/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildCreateThenDeleteLifecycle(t *testing.T) {
	s := New()

	raw, _ := json.Marshal(models.Guild{ID: "1", Name: "test"})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildCreate, Data: json.RawMessage(raw)}))

	g, err := s.Guild("1")
	require.NoError(t, err)
	assert.Equal(t, "test", g.Name)

	raw, _ = json.Marshal(models.UnavailableGuild{ID: "1", Unavailable: false})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildDelete, Data: json.RawMessage(raw)}))

	_, err = s.Guild("1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGuildDeleteUnavailableKeepsData(t *testing.T) {
	s := New()

	raw, _ := json.Marshal(models.Guild{ID: "1", Name: "test"})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildCreate, Data: json.RawMessage(raw)}))

	raw, _ = json.Marshal(models.UnavailableGuild{ID: "1", Unavailable: true})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildDelete, Data: json.RawMessage(raw)}))

	g, err := s.Guild("1")
	require.NoError(t, err)
	assert.True(t, g.Unavailable)
	assert.True(t, s.IsUnavailable("1"))
}

func TestDMChannelLifecycle(t *testing.T) {
	s := New()

	raw, _ := json.Marshal(models.Channel{ID: "c1", Type: models.ChannelTypeDM})
	require.NoError(t, Apply(s, models.Event{Type: models.EventChannelCreate, Data: json.RawMessage(raw)}))

	c, err := s.Channel("c1")
	require.NoError(t, err)
	assert.True(t, c.IsDM())

	require.NoError(t, Apply(s, models.Event{Type: models.EventChannelDelete, Data: json.RawMessage(raw)}))

	_, err = s.Channel("c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoleUpdateMerge(t *testing.T) {
	s := New()
	s.GuildAdd(&models.Guild{ID: "g1"})

	require.NoError(t, s.RoleAdd("g1", &models.Role{ID: "r1", Name: "old", Color: 1}))
	require.NoError(t, s.RoleAdd("g1", &models.Role{ID: "r1", Name: "new", Color: 2}))

	r, err := s.Role("g1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "new", r.Name)
	assert.Equal(t, 2, r.Color)
}

func TestMemberMergeOnPresenceUpdate(t *testing.T) {
	s := New()
	s.GuildAdd(&models.Guild{ID: "g1"})
	require.NoError(t, s.MemberAdd("g1", &models.Member{User: &models.User{ID: "u1", Username: "old"}}))

	raw, _ := json.Marshal(models.PresenceUpdate{
		GuildID: "g1",
		User:    &models.User{ID: "u1", Username: "new"},
		Status:  models.StatusOnline,
		Roles:   []string{"r1"},
	})

	require.NoError(t, Apply(s, models.Event{Type: models.EventPresenceUpdate, Data: json.RawMessage(raw)}))

	m, err := s.Member("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", m.User.Username)
	assert.Equal(t, []string{"r1"}, m.Roles)
}

func TestReadyMarksInitialGuildsUnavailableUntilCreate(t *testing.T) {
	s := New()

	raw, _ := json.Marshal(models.ReadyData{
		User:   &models.User{ID: "self"},
		Guilds: []*models.UnavailableGuild{{ID: "g1", Unavailable: true}},
	})
	require.NoError(t, Apply(s, models.Event{Type: models.EventReady, Data: json.RawMessage(raw)}))

	assert.True(t, s.IsUnavailable("g1"))

	full, _ := json.Marshal(models.Guild{ID: "g1", Name: "now available", Unavailable: false})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildCreate, Data: json.RawMessage(full)}))

	assert.False(t, s.IsUnavailable("g1"))

	g, err := s.Guild("g1")
	require.NoError(t, err)
	assert.Equal(t, "now available", g.Name)
}

func TestGuildUpdatePreservesMembersAndChannels(t *testing.T) {
	s := New()

	create, _ := json.Marshal(models.Guild{
		ID:      "g1",
		Name:    "old name",
		Members: []*models.Member{{User: &models.User{ID: "u1"}}},
		Channels: []*models.Channel{
			{ID: "c1", GuildID: "g1", Name: "general"},
		},
	})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildCreate, Data: json.RawMessage(create)}))

	update, _ := json.Marshal(map[string]interface{}{"id": "g1", "name": "new name"})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildUpdate, Data: json.RawMessage(update)}))

	g, err := s.Guild("g1")
	require.NoError(t, err)
	assert.Equal(t, "new name", g.Name)
	require.Len(t, g.Members, 1)
	require.Len(t, g.Channels, 1)
	assert.Equal(t, "c1", g.Channels[0].ID)
}

func TestChannelUpdateMergesWithoutLosingFieldsOrReordering(t *testing.T) {
	s := New()

	s.GuildAdd(&models.Guild{ID: "g1"})
	require.NoError(t, s.ChannelAdd(&models.Channel{ID: "c1", GuildID: "g1", Name: "first", Topic: "hello"}))
	require.NoError(t, s.ChannelAdd(&models.Channel{ID: "c2", GuildID: "g1", Name: "second"}))

	update, _ := json.Marshal(map[string]interface{}{"id": "c1", "guild_id": "g1", "name": "renamed"})
	require.NoError(t, Apply(s, models.Event{Type: models.EventChannelUpdate, Data: json.RawMessage(update)}))

	g, err := s.Guild("g1")
	require.NoError(t, err)
	require.Len(t, g.Channels, 2)
	assert.Equal(t, "c1", g.Channels[0].ID)
	assert.Equal(t, "renamed", g.Channels[0].Name)
	assert.Equal(t, "hello", g.Channels[0].Topic)
	assert.Equal(t, "c2", g.Channels[1].ID)
}

func TestGuildMemberUpdateMergePreservesRoles(t *testing.T) {
	s := New()
	s.GuildAdd(&models.Guild{ID: "g1"})
	require.NoError(t, s.MemberAdd("g1", &models.Member{
		User:  &models.User{ID: "u7"},
		Nick:  "old",
		Roles: []string{"r1"},
	}))

	update, _ := json.Marshal(map[string]interface{}{
		"guild_id": "g1",
		"user":     map[string]string{"id": "u7"},
		"nick":     "new",
	})
	require.NoError(t, Apply(s, models.Event{Type: models.EventGuildMemberUpdate, Data: json.RawMessage(update)}))

	m, err := s.Member("g1", "u7")
	require.NoError(t, err)
	assert.Equal(t, "new", m.Nick)
	assert.Equal(t, []string{"r1"}, m.Roles)
}

func TestBulkDeleteMessagesIsLogOnly(t *testing.T) {
	s := New()

	raw, _ := json.Marshal(models.MessageDeleteBulkData{IDs: []string{"1", "2"}, ChannelID: "c1"})
	err := Apply(s, models.Event{Type: models.EventMessageDeleteBulk, Data: json.RawMessage(raw)})
	assert.NoError(t, err)
}
