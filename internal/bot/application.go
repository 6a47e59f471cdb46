package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"hopper/internal/directory"
)

const (
	customIDApply   = "apply:submit"
	customIDApprove = "app:approve:"
	customIDDeny    = "app:deny:"

	applicationMotivation = "motivation"
)

func applicationForm() form {
	return form{
		customID: customIDApply,
		title:    "Membership application",
		fields: []formField{{
			id:          applicationMotivation,
			label:       "Why do you want to join?",
			placeholder: "Grounds visited, favourite clubs, what brings you here",
			paragraph:   true,
			required:    true,
			maxLength:   1000,
		}},
	}
}

// openApplication answers /apply with the application form.
func (bot *Bot) openApplication(ctx context.Context, i *discordgo.InteractionCreate) (*discordgo.InteractionResponse, []Response) {
	if bot.cfg.Channels.Review == "" {
		return nil, []Response{ResponseString{"Applications are not open at the moment."}}
	}
	if ch := bot.cfg.Channels.Application; ch != "" && i.ChannelID != ch {
		return nil, []Response{ResponseString{fmt.Sprintf("Please use `/apply` in <#%s>.", ch)}}
	}
	app, err := bot.store.Application(ctx, i.GuildID, interactionUserID(i.Interaction))
	switch {
	case err == nil && !app.Expired(bot.now()):
		return nil, []Response{ResponseString{"Your application is already waiting for a decision."}}
	case err != nil && !errors.Is(err, directory.ErrApplicationNotFound):
		log.Error().Err(err).Msg("Could not load application")
		return nil, InternalError()
	}
	return applicationForm().response(), nil
}

// submitApplication stores the application and posts it for review.
func (bot *Bot) submitApplication(ctx context.Context, i *discordgo.InteractionCreate, values map[string]string) []Response {
	userID := interactionUserID(i.Interaction)
	answers := strings.TrimSpace(values[applicationMotivation])
	if answers == "" {
		return []Response{ResponseString{"❌ Please tell us a little about yourself."}}
	}
	app, err := bot.store.CreateApplication(ctx, i.GuildID, userID, answers, bot.cfg.ApplicationTTL)
	if err != nil {
		if errors.Is(err, directory.ErrApplicationPending) {
			return UserError(err)
		}
		log.Error().Err(err).Str("user", userID).Msg("Could not store application")
		return InternalError()
	}

	name := ""
	if i.Member != nil {
		name = displayName(i.Member)
	}
	review, err := bot.platform.SendMessage(bot.cfg.Channels.Review, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{applicationEmbed(app, name)},
		Components:      applicationButtons(userID, false),
		AllowedMentions: noMentions,
	})
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("Could not post application for review")
		if _, cerr := bot.store.ClearApplication(ctx, i.GuildID, userID); cerr != nil {
			log.Error().Err(cerr).Msg("Could not roll back application")
		}
		return []Response{ResponseString{"❌ Your application could not be delivered, please try again later."}}
	}
	if err := bot.store.AttachReviewMessage(ctx, i.GuildID, userID, review.ChannelID, review.ID); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Could not remember review message")
	}
	log.Info().Str("user", userID).Msg("Application submitted")
	return []Response{ResponseString{"✅ Your application has been sent to the moderators."}}
}

func applicationEmbed(app directory.Application, name string) *discordgo.MessageEmbed {
	title := "Application"
	if name != "" {
		title = "Application: " + name
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: app.Answers,
		Color:       colorBlue,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Applicant", Value: "<@" + app.UserID + ">"}},
		Footer:      &discordgo.MessageEmbedFooter{Text: "Expires on: " + app.ExpiresAt.UTC().Format(time.DateTime)},
	}
}

func applicationButtons(userID string, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Approve", Style: discordgo.SuccessButton, CustomID: customIDApprove + userID, Disabled: disabled},
			discordgo.Button{Label: "Deny", Style: discordgo.DangerButton, CustomID: customIDDeny + userID, Disabled: disabled},
		}},
	}
}

func canReview(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageRoles != 0
}

// decideApplication handles Approve and Deny. The decision only depends on
// the stored application, so it works across restarts.
func (bot *Bot) decideApplication(ctx context.Context, i *discordgo.InteractionCreate, customID string) {
	approve := true
	applicant, ok := strings.CutPrefix(customID, customIDApprove)
	if !ok {
		applicant, _ = strings.CutPrefix(customID, customIDDeny)
		approve = false
	}
	moderator := interactionUserID(i.Interaction)
	logger := log.With().Str("guild", i.GuildID).Str("user", applicant).Str("moderator", moderator).Logger()

	update := func(content string) *discordgo.InteractionResponse {
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{Content: content, Components: applicationButtons(applicant, true), AllowedMentions: noMentions},
		}
	}
	respond := func(response *discordgo.InteractionResponse) {
		if err := bot.platform.Respond(i.Interaction, response); err != nil {
			logger.Error().Err(err).Msg("Could not answer application button")
		}
	}

	if !canReview(i) {
		logger.Info().Msg("Application decision refused")
		respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: "❌ You need the Manage Roles permission to decide on applications.", Flags: discordgo.MessageFlagsEphemeral},
		})
		return
	}

	app, err := bot.store.Application(ctx, i.GuildID, applicant)
	if errors.Is(err, directory.ErrApplicationNotFound) {
		respond(update("This application is no longer pending."))
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Could not load application")
		respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: interactionData(InternalError(), true),
		})
		return
	}
	if app.Expired(bot.now()) {
		logger.Info().Msg("Application expired")
		respond(update("⌛ This application has expired."))
		return
	}

	guildName, _, _ := bot.platform.GuildInfo(i.GuildID)
	var content, notice string
	if approve {
		member, err := bot.platform.Member(i.GuildID, applicant)
		if err == nil {
			_, err = bot.promote(i.GuildID, member)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Could not promote applicant")
			respond(&discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: interactionData([]Response{ResponseString{"❌ Could not update the roles of the applicant."}}, true),
			})
			return
		}
		content = fmt.Sprintf("✅ Approved by <@%s>.", moderator)
		notice = fmt.Sprintf("✅ Your application to **%s** has been approved, welcome!", guildName)
	} else {
		content = fmt.Sprintf("❌ Denied by <@%s>.", moderator)
		notice = fmt.Sprintf("Your application to **%s** was not accepted.", guildName)
	}
	if _, err := bot.store.ClearApplication(ctx, i.GuildID, applicant); err != nil {
		logger.Error().Err(err).Msg("Could not clear application")
	}
	respond(update(content))
	if _, err := bot.platform.DirectMessage(applicant, &discordgo.MessageSend{Content: notice}); err != nil {
		logger.Info().Err(err).Msg("Could not DM applicant")
	}
	logger.Info().Bool("approved", approve).Msg("Application decided")
}
