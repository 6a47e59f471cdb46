package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// Platform is the part of Discord the bot talks to.
type Platform interface {
	SendMessage(channelID string, message *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error)
	DeleteMessage(channelID, messageID string) error
	// PurgeChannel deletes up to limit of the latest messages of a channel.
	PurgeChannel(channelID string, limit int) (int, error)
	// DirectMessage fails when the user does not accept DMs from the server.
	DirectMessage(userID string, message *discordgo.MessageSend) (*discordgo.Message, error)

	GuildInfo(guildID string) (name string, memberCount int, err error)
	Members(guildID string) ([]*discordgo.Member, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Channels(guildID string) ([]*discordgo.Channel, error)
	SetRolePermissions(channelID, roleID string, allow, deny int64) error
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error

	Respond(interaction *discordgo.Interaction, response *discordgo.InteractionResponse) error
	FollowUp(interaction *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error)
	RegisterCommands(guildID string, commands []*discordgo.ApplicationCommand) error
}

// sessionPlatform implements Platform over a gateway session.
type sessionPlatform struct {
	session *discordgo.Session
}

func NewSessionPlatform(session *discordgo.Session) Platform {
	return &sessionPlatform{session: session}
}

func (p *sessionPlatform) SendMessage(channelID string, message *discordgo.MessageSend) (*discordgo.Message, error) {
	msg, err := p.session.ChannelMessageSendComplex(channelID, message)
	return msg, errors.Wrapf(err, "send message to %s", channelID)
}

func (p *sessionPlatform) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	msg, err := p.session.ChannelMessageEditComplex(edit)
	return msg, errors.Wrapf(err, "edit message %s", edit.ID)
}

func (p *sessionPlatform) DeleteMessage(channelID, messageID string) error {
	return errors.Wrapf(p.session.ChannelMessageDelete(channelID, messageID), "delete message %s", messageID)
}

func (p *sessionPlatform) PurgeChannel(channelID string, limit int) (int, error) {
	messages, err := p.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return 0, errors.Wrapf(err, "list messages of %s", channelID)
	}
	if len(messages) == 0 {
		return 0, nil
	}
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	err = p.session.ChannelMessagesBulkDelete(channelID, ids)
	if err == nil {
		return len(ids), nil
	}
	// bulk delete refuses messages older than two weeks
	log.Debug().Err(err).Str("channel", channelID).Msg("Bulk delete failed, deleting one by one")
	deleted := 0
	for _, id := range ids {
		if err := p.session.ChannelMessageDelete(channelID, id); err != nil {
			log.Warn().Err(err).Str("channel", channelID).Str("message", id).Msg("Could not delete message")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (p *sessionPlatform) DirectMessage(userID string, message *discordgo.MessageSend) (*discordgo.Message, error) {
	channel, err := p.session.UserChannelCreate(userID)
	if err != nil {
		return nil, errors.Wrapf(err, "open DM with %s", userID)
	}
	msg, err := p.session.ChannelMessageSendComplex(channel.ID, message)
	return msg, errors.Wrapf(err, "send DM to %s", userID)
}

func (p *sessionPlatform) GuildInfo(guildID string) (string, int, error) {
	if guild, err := p.session.State.Guild(guildID); err == nil {
		return guild.Name, guild.MemberCount, nil
	}
	guild, err := p.session.GuildWithCounts(guildID)
	if err != nil {
		return "", 0, errors.Wrapf(err, "fetch guild %s", guildID)
	}
	return guild.Name, guild.ApproximateMemberCount, nil
}

// guildMembersPage is the largest page the API serves.
const guildMembersPage = 1000

func (p *sessionPlatform) Members(guildID string) ([]*discordgo.Member, error) {
	var all []*discordgo.Member
	after := ""
	for {
		page, err := p.session.GuildMembers(guildID, after, guildMembersPage)
		if err != nil {
			return nil, errors.Wrapf(err, "list members of %s", guildID)
		}
		all = append(all, page...)
		if len(page) < guildMembersPage {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (p *sessionPlatform) Member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := p.session.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	member, err := p.session.GuildMember(guildID, userID)
	return member, errors.Wrapf(err, "fetch member %s", userID)
}

func (p *sessionPlatform) Channels(guildID string) ([]*discordgo.Channel, error) {
	channels, err := p.session.GuildChannels(guildID)
	return channels, errors.Wrapf(err, "list channels of %s", guildID)
}

func (p *sessionPlatform) SetRolePermissions(channelID, roleID string, allow, deny int64) error {
	err := p.session.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, allow, deny)
	return errors.Wrapf(err, "set permissions of role %s on %s", roleID, channelID)
}

func (p *sessionPlatform) AddRole(guildID, userID, roleID string) error {
	return errors.Wrapf(p.session.GuildMemberRoleAdd(guildID, userID, roleID), "add role %s to %s", roleID, userID)
}

func (p *sessionPlatform) RemoveRole(guildID, userID, roleID string) error {
	return errors.Wrapf(p.session.GuildMemberRoleRemove(guildID, userID, roleID), "remove role %s from %s", roleID, userID)
}

func (p *sessionPlatform) Respond(interaction *discordgo.Interaction, response *discordgo.InteractionResponse) error {
	return errors.Wrap(p.session.InteractionRespond(interaction, response), "respond to interaction")
}

func (p *sessionPlatform) FollowUp(interaction *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	msg, err := p.session.FollowupMessageCreate(interaction, true, params)
	return msg, errors.Wrap(err, "follow up interaction")
}

func (p *sessionPlatform) RegisterCommands(guildID string, commands []*discordgo.ApplicationCommand) error {
	if p.session.State.User == nil {
		return errors.New("session is not ready")
	}
	_, err := p.session.ApplicationCommandBulkOverwrite(p.session.State.User.ID, guildID, commands)
	return errors.Wrapf(err, "register commands in %s", guildID)
}
