package bot

import (
	"context"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"hopper/internal/directory"
)

const maxChoices = 25

var defaultCountries = []string{
	"Germany", "Austria", "Switzerland", "England", "Spain",
	"Italy", "France", "Netherlands", "Portugal", "Belgium",
}

// Choices keeps the values containing current, ignoring case and accents,
// without duplicates and capped at what Discord accepts.
func Choices(values []string, current string) []*discordgo.ApplicationCommandOptionChoice {
	query := directory.Fold(current)
	seen := make(map[string]struct{})
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		if query != "" && !strings.Contains(directory.Fold(v), query) {
			continue
		}
		seen[v] = struct{}{}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}

func focused(list []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range list {
		if opt.Focused {
			return opt
		}
	}
	return nil
}

// countries merges the stored countries with the usual ones, sorted.
func (bot *Bot) countries(ctx context.Context) ([]string, error) {
	stored, err := bot.store.Countries(ctx)
	if err != nil {
		return nil, err
	}
	all := append(slices.Clone(stored), defaultCountries...)
	slices.Sort(all)
	return slices.Compact(all), nil
}

// tagChoices completes the last tag of a comma separated list, keeping the
// tags typed before it.
func tagChoices(all []string, current string) []*discordgo.ApplicationCommandOptionChoice {
	head, last := "", current
	if idx := strings.LastIndex(current, ","); idx >= 0 {
		head, last = strings.TrimSpace(current[:idx]), current[idx+1:]
	}
	typed := directory.ParseTags(head)
	var rest []string
	for _, tag := range all {
		if !slices.Contains(typed, tag) {
			rest = append(rest, tag)
		}
	}
	choices := Choices(rest, strings.TrimSpace(last))
	if head == "" {
		return choices
	}
	for _, c := range choices {
		full := head + ", " + c.Name
		c.Name, c.Value = full, full
	}
	return choices
}

func (bot *Bot) autocomplete(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	opt := focused(data.Options)
	choices := []*discordgo.ApplicationCommandOptionChoice{}
	if opt != nil {
		var err error
		choices, err = bot.suggest(ctx, optionMap(data.Options), opt)
		if err != nil {
			log.Warn().Err(err).Str("command", data.Name).Str("option", opt.Name).Msg("Autocomplete failed")
			choices = []*discordgo.ApplicationCommandOptionChoice{}
		}
	}
	err := bot.platform.Respond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.Debug().Err(err).Str("command", data.Name).Msg("Could not send autocomplete choices")
	}
}

func (bot *Bot) suggest(ctx context.Context, opts options, opt *discordgo.ApplicationCommandInteractionDataOption) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	current, _ := opt.Value.(string)
	country := opts.String("country")

	switch opt.Name {
	case "country":
		countries, err := bot.countries(ctx)
		if err != nil {
			return nil, err
		}
		return Choices(countries, current), nil
	case "league":
		if country == "" {
			return []*discordgo.ApplicationCommandOptionChoice{}, nil
		}
		leagues, err := bot.store.LeaguesByCountry(ctx, country)
		if err != nil {
			return nil, err
		}
		return Choices(leagues, current), nil
	case "club":
		if country == "" {
			// Without a country every club is a candidate
			matches, err := bot.store.SearchClubs(ctx, current, maxChoices)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = m.Name
			}
			return Choices(names, ""), nil
		}
		var clubs []string
		var err error
		if league := opts.String("league"); league != "" {
			clubs, err = bot.store.ClubsByCountryAndLeague(ctx, country, league)
		} else {
			clubs, err = bot.store.ClubsByCountry(ctx, country)
		}
		if err != nil {
			return nil, err
		}
		return Choices(clubs, current), nil
	case "tags":
		tags, err := bot.store.AllTags(ctx)
		if err != nil {
			return nil, err
		}
		return tagChoices(tags, current), nil
	}
	return []*discordgo.ApplicationCommandOptionChoice{}, nil
}
