package bot

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

const (
	welcomeAllow = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory
	hiddenDeny   = discordgo.PermissionViewChannel
)

func welcomeText(mention, guild string) string {
	return fmt.Sprintf("👋 Welcome %s to **%s**! "+
		"Please use the `/set-club` command to set your home club. "+
		"If it does not exist yet, just enter its name and it will be created automatically. "+
		"Please mute the line-up and bot-command channels to avoid a notification overload.", mention, guild)
}

// onboard locks a new member into the welcome channel until a home club is
// set.
func (bot *Bot) onboard(ctx context.Context, member *discordgo.Member) {
	if member == nil || member.User == nil || member.User.Bot {
		return
	}
	guildID := member.GuildID
	if guildID == "" {
		guildID = bot.cfg.GuildID
	}
	role := bot.cfg.Roles.Newcomer
	logger := log.With().Str("guild", guildID).Str("user", member.User.ID).Logger()

	if err := bot.platform.AddRole(guildID, member.User.ID, role); err != nil {
		logger.Error().Err(err).Msg("Could not assign newcomer role")
		return
	}
	logger.Info().Msg("Newcomer role assigned")

	channels, err := bot.platform.Channels(guildID)
	if err != nil {
		logger.Error().Err(err).Msg("Could not list channels")
	}
	welcome := false
	for _, channel := range channels {
		if channel.ID == bot.cfg.Channels.Welcome {
			welcome = true
			err = bot.platform.SetRolePermissions(channel.ID, role, welcomeAllow, 0)
		} else {
			err = bot.platform.SetRolePermissions(channel.ID, role, 0, hiddenDeny)
		}
		if err != nil {
			logger.Warn().Err(err).Str("channel", channel.ID).Msg("Could not set newcomer permissions")
		}
	}
	if !welcome {
		logger.Warn().Str("channel", bot.cfg.Channels.Welcome).Msg("Welcome channel not found")
		return
	}

	guildName, _, err := bot.platform.GuildInfo(guildID)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not read guild name")
	}
	_, err = bot.platform.SendMessage(bot.cfg.Channels.Welcome, &discordgo.MessageSend{
		Content:         welcomeText(member.User.Mention(), guildName),
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{member.User.ID}},
	})
	if err != nil {
		logger.Error().Err(err).Msg("Could not greet newcomer")
	}
}

// promote swaps the newcomer role for the apprentice role. It reports false
// when the member no longer had the newcomer role.
func (bot *Bot) promote(guildID string, member *discordgo.Member) (bool, error) {
	if member == nil || member.User == nil {
		return false, errors.New("member unknown")
	}
	if !slices.Contains(member.Roles, bot.cfg.Roles.Newcomer) {
		return false, nil
	}
	if err := bot.platform.RemoveRole(guildID, member.User.ID, bot.cfg.Roles.Newcomer); err != nil {
		return false, errors.Wrap(err, "remove newcomer role")
	}
	if err := bot.platform.AddRole(guildID, member.User.ID, bot.cfg.Roles.Apprentice); err != nil {
		return false, errors.Wrap(err, "add apprentice role")
	}
	log.Info().Str("guild", guildID).Str("user", member.User.ID).Msg("Newcomer promoted")
	return true, nil
}
