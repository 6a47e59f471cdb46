package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	discordgo.MessageEmbed
}

// Response is one piece of a reply. Several responses are either sent as
// separate messages or merged into a single interaction reply.
type Response interface {
	Send(channelid string, platform Platform) error
	appendTo(content *strings.Builder, embeds *[]*discordgo.MessageEmbed)
}

// noMentions keeps displayed member lists from pinging anybody.
var noMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}

func (response ResponseString) Send(channelid string, platform Platform) error {
	_, err := platform.SendMessage(channelid, &discordgo.MessageSend{Content: response.string, AllowedMentions: noMentions})
	return err
}

func (response ResponseEmbed) Send(channelid string, platform Platform) error {
	embed := response.MessageEmbed
	_, err := platform.SendMessage(channelid, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{&embed}, AllowedMentions: noMentions})
	return err
}

func (response ResponseString) appendTo(content *strings.Builder, _ *[]*discordgo.MessageEmbed) {
	if content.Len() > 0 {
		content.WriteString("\n")
	}
	content.WriteString(response.string)
}

func (response ResponseEmbed) appendTo(_ *strings.Builder, embeds *[]*discordgo.MessageEmbed) {
	embed := response.MessageEmbed
	*embeds = append(*embeds, &embed)
}

func merge(responses []Response) (string, []*discordgo.MessageEmbed) {
	var content strings.Builder
	var embeds []*discordgo.MessageEmbed
	for _, response := range responses {
		response.appendTo(&content, &embeds)
	}
	if len(embeds) > maxEmbedsPerMessage {
		embeds = embeds[:maxEmbedsPerMessage]
	}
	return content.String(), embeds
}

func interactionData(responses []Response, ephemeral bool) *discordgo.InteractionResponseData {
	content, embeds := merge(responses)
	data := &discordgo.InteractionResponseData{Content: content, Embeds: embeds, AllowedMentions: noMentions}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

func webhookParams(responses []Response, ephemeral bool) *discordgo.WebhookParams {
	content, embeds := merge(responses)
	params := &discordgo.WebhookParams{Content: content, Embeds: embeds, AllowedMentions: noMentions}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	return params
}
