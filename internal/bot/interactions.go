package bot

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func (bot *Bot) interact(ctx context.Context, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		bot.runCommand(ctx, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		bot.autocomplete(ctx, i)
	case discordgo.InteractionMessageComponent:
		bot.component(ctx, i)
	case discordgo.InteractionModalSubmit:
		bot.submit(ctx, i)
	default:
		log.Debug().Stringer("type", i.Type).Msg("Ignoring interaction")
	}
}

func (bot *Bot) reply(i *discordgo.InteractionCreate, responses []Response, ephemeral bool) error {
	return bot.platform.Respond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: interactionData(responses, ephemeral),
	})
}

func (bot *Bot) runCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	logger := log.With().Str("command", data.Name).Str("guild", i.GuildID).Str("user", interactionUserID(i.Interaction)).Logger()

	cmd, ok := bot.commands[data.Name]
	if !ok {
		logger.Warn().Msg("Unknown command")
		if err := bot.reply(i, []Response{ResponseString{"Unknown command."}}, true); err != nil {
			logger.Error().Err(err).Msg("Could not answer unknown command")
		}
		return
	}
	logger.Debug().Msg("Command received")
	opts := optionMap(data.Options)

	outcome := "ok"
	defer func() { bot.metrics.Command(data.Name, outcome) }()

	if cmd.open != nil {
		response, responses := cmd.open(ctx, i, opts)
		if response == nil {
			outcome = "rejected"
			response = &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: interactionData(responses, cmd.ephemeral),
			}
		}
		if err := bot.platform.Respond(i.Interaction, response); err != nil {
			outcome = "error"
			logger.Error().Err(err).Msg("Could not answer command")
		}
		return
	}

	if !cmd.deferred {
		if err := bot.reply(i, cmd.run(ctx, i, opts), cmd.ephemeral); err != nil {
			outcome = "error"
			logger.Error().Err(err).Msg("Could not answer command")
		}
		return
	}

	ack := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if cmd.ephemeral {
		ack.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := bot.platform.Respond(i.Interaction, ack); err != nil {
		outcome = "error"
		logger.Error().Err(err).Msg("Could not acknowledge command")
		return
	}
	responses := cmd.run(ctx, i, opts)
	if _, err := bot.platform.FollowUp(i.Interaction, webhookParams(responses, cmd.ephemeral)); err != nil {
		outcome = "error"
		logger.Error().Err(err).Msg("Could not send command follow-up")
	}
}

func (bot *Bot) component(ctx context.Context, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	switch {
	case strings.HasPrefix(customID, customIDPingOK), strings.HasPrefix(customID, customIDPingCancel):
		bot.decidePing(i, customID)
	case strings.HasPrefix(customID, customIDApprove), strings.HasPrefix(customID, customIDDeny):
		bot.decideApplication(ctx, i, customID)
	default:
		log.Warn().Str("custom_id", customID).Msg("Unknown component")
	}
}

func (bot *Bot) submit(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	values := formValues(data)
	var responses []Response
	switch {
	case data.CustomID == customIDApply:
		responses = bot.submitApplication(ctx, i, values)
	case strings.HasPrefix(data.CustomID, customIDTicketing):
		responses = bot.submitTicketing(ctx, data.CustomID, values)
	default:
		log.Warn().Str("custom_id", data.CustomID).Msg("Unknown form")
		responses = []Response{ResponseString{"Unknown form."}}
	}
	if err := bot.reply(i, responses, true); err != nil {
		log.Error().Err(err).Str("custom_id", data.CustomID).Msg("Could not answer form")
	}
}
