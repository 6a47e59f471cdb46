package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choiceNames(choices []*discordgo.ApplicationCommandOptionChoice) []string {
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = c.Name
	}
	return names
}

func TestChoices(t *testing.T) {
	values := []string{"FC Bayern München", "TSV 1860 München", "FC Bayern München", "", "Borussia Dortmund"}

	assert.Equal(t, []string{"FC Bayern München", "TSV 1860 München"}, choiceNames(Choices(values, "munchen")))
	assert.Equal(t, []string{"Borussia Dortmund"}, choiceNames(Choices(values, " DORT ")))
	assert.Equal(t, []string{"FC Bayern München", "TSV 1860 München", "Borussia Dortmund"}, choiceNames(Choices(values, "")))
	assert.Empty(t, Choices(values, "Schalke"))
	assert.NotNil(t, Choices(nil, "x"), "Discord rejects a null choice list")
}

func TestChoicesCapped(t *testing.T) {
	var values []string
	for i := range 40 {
		values = append(values, fmt.Sprintf("Club %02d", i))
	}
	choices := Choices(values, "club")
	require.Len(t, choices, maxChoices)
	assert.Equal(t, "Club 24", choices[maxChoices-1].Name)
}

func TestTagChoices(t *testing.T) {
	all := []string{"Pins", "Programmes", "Scarves", "Tickets"}

	assert.Equal(t, []string{"Pins", "Programmes"}, choiceNames(tagChoices(all, "p")))
	assert.Equal(t, []string{"Scarves, Pins", "Scarves, Programmes"}, choiceNames(tagChoices(all, "Scarves, P")))
	assert.Equal(t, []string{"Scarves, Pins"}, choiceNames(tagChoices(all, "Scarves, Pi")))
	// Tags already typed are not offered again
	assert.Equal(t, []string{"Pins, Scarves, Programmes", "Pins, Scarves, Tickets"}, choiceNames(tagChoices(all, "Pins, Scarves,")))
}

func autocompleteInteraction(command string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	i := commandInteraction(command, "100", opts...)
	i.Type = discordgo.InteractionApplicationCommandAutocomplete
	return i
}

func focus(opt *discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	opt.Focused = true
	return opt
}

func TestAutocompleteSuggestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.club(t, "Union Berlin", "Germany", "Bundesliga", 1)
	env.club(t, "Hertha BSC", "Germany", "2. Bundesliga", 2)
	env.club(t, "FC Basel", "Switzerland", "Super League", 1)
	env.club(t, "Dorfverein", "", "", 0)
	require.NoError(t, env.store.SaveTags(ctx, "100", []string{"Scarves", "Pins"}))

	tests := []struct {
		name    string
		command string
		opts    []*discordgo.ApplicationCommandInteractionDataOption
		want    []string
	}{
		{
			name:    "countries include the usual ones",
			command: "set-club",
			opts:    []*discordgo.ApplicationCommandInteractionDataOption{focus(stringOpt("country", "itz"))},
			want:    []string{"Switzerland"},
		},
		{
			name:    "clubs of a country and unassigned clubs",
			command: "set-club",
			opts: []*discordgo.ApplicationCommandInteractionDataOption{
				stringOpt("country", "Germany"), focus(stringOpt("club", "")),
			},
			want: []string{"Dorfverein", "Hertha BSC", "Union Berlin"},
		},
		{
			name:    "clubs of any country",
			command: "club",
			opts:    []*discordgo.ApplicationCommandInteractionDataOption{focus(stringOpt("club", "ba"))},
			want:    []string{"FC Basel"},
		},
		{
			name:    "clubs of a league",
			command: "club",
			opts: []*discordgo.ApplicationCommandInteractionDataOption{
				stringOpt("country", "Germany"), stringOpt("league", "Bundesliga"), focus(stringOpt("club", "")),
			},
			want: []string{"Dorfverein", "Union Berlin"},
		},
		{
			name:    "leagues need a country",
			command: "update-league",
			opts:    []*discordgo.ApplicationCommandInteractionDataOption{focus(stringOpt("league", "liga"))},
			want:    []string{},
		},
		{
			name:    "leagues of a country",
			command: "update-league",
			opts: []*discordgo.ApplicationCommandInteractionDataOption{
				stringOpt("country", "Germany"), focus(stringOpt("league", "liga")),
			},
			want: []string{"Bundesliga", "2. Bundesliga"},
		},
		{
			name:    "tags",
			command: "tags",
			opts:    []*discordgo.ApplicationCommandInteractionDataOption{focus(stringOpt("tags", "Scarves, "))},
			want:    []string{"Scarves, Pins"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.bot.interact(ctx, autocompleteInteraction(tt.command, tt.opts...))

			response := env.platform.lastResponse(t)
			assert.Equal(t, discordgo.InteractionApplicationCommandAutocompleteResult, response.Type)
			assert.Equal(t, tt.want, choiceNames(response.Data.Choices))
		})
	}
}
