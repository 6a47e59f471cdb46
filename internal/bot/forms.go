package bot

import (
	"github.com/bwmarrin/discordgo"
)

// form is a modal dialog. The context a submission needs travels in the
// custom id, so nothing is kept in memory between opening and submitting.
type form struct {
	customID string
	title    string
	fields   []formField
}

type formField struct {
	id          string
	label       string
	placeholder string
	value       string
	paragraph   bool
	required    bool
	maxLength   int
}

func (f form) response() *discordgo.InteractionResponse {
	rows := make([]discordgo.MessageComponent, 0, len(f.fields))
	for _, field := range f.fields {
		style := discordgo.TextInputShort
		if field.paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    field.id,
				Label:       field.label,
				Style:       style,
				Placeholder: field.placeholder,
				Value:       field.value,
				Required:    field.required,
				MaxLength:   field.maxLength,
			},
		}})
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   f.customID,
			Title:      f.title,
			Components: rows,
		},
	}
}

// formValues reads the text inputs of a submitted modal by custom id.
func formValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}
