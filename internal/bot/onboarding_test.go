package bot

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnboardNewcomer(t *testing.T) {
	env := newTestEnv(t)
	member := env.platform.addMember("100", "anna")

	env.bot.onboard(context.Background(), member)

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	assert.Equal(t, []roleChange{{UserID: "100", RoleID: newcomerRole, Added: true}}, env.platform.roles)
	assert.Equal(t, []permission{
		{ChannelID: welcomeChannel, RoleID: newcomerRole, Allow: welcomeAllow},
		{ChannelID: lineUpChannel, RoleID: newcomerRole, Deny: discordgo.PermissionViewChannel},
		{ChannelID: helpChannel, RoleID: newcomerRole, Deny: discordgo.PermissionViewChannel},
	}, env.platform.permissions)

	require.Len(t, env.platform.sent, 1)
	greeting := env.platform.sent[0]
	assert.Equal(t, welcomeChannel, greeting.ChannelID)
	assert.Contains(t, greeting.Message.Content, "👋 Welcome <@100> to **Hoppers**!")
	assert.Equal(t, []string{"100"}, greeting.Message.AllowedMentions.Users)
}

func TestOnboardIgnoresBots(t *testing.T) {
	env := newTestEnv(t)
	member := env.platform.addMember("100", "robot")
	member.User.Bot = true

	env.bot.onboard(context.Background(), member)

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	assert.Empty(t, env.platform.roles)
	assert.Empty(t, env.platform.sent)
}

func TestOnboardWithoutWelcomeChannel(t *testing.T) {
	cfg := testConfig()
	cfg.Channels.Welcome = "99"
	env := newTestEnvWith(t, cfg)

	env.bot.onboard(context.Background(), env.platform.addMember("100", "anna"))

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	assert.Len(t, env.platform.roles, 1)
	assert.Len(t, env.platform.permissions, 3)
	assert.Empty(t, env.platform.sent)
}

func TestPromote(t *testing.T) {
	env := newTestEnv(t)
	newcomer := env.platform.addMember("100", "anna", newcomerRole)
	regular := env.platform.addMember("101", "ben", apprenticeRole)

	promoted, err := env.bot.promote(testGuild, newcomer)
	require.NoError(t, err)
	assert.True(t, promoted)

	promoted, err = env.bot.promote(testGuild, regular)
	require.NoError(t, err)
	assert.False(t, promoted)

	_, err = env.bot.promote(testGuild, nil)
	assert.Error(t, err)

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	assert.Equal(t, []string{apprenticeRole}, env.platform.members["100"].Roles)
}
