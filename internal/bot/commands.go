package bot

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"hopper/internal/common"
	"hopper/internal/directory"
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(list []*discordgo.ApplicationCommandInteractionDataOption) options {
	opts := make(options, len(list))
	for _, opt := range list {
		opts[opt.Name] = opt
	}
	return opts
}

func (o options) String(name string) string {
	opt, ok := o[name]
	if !ok {
		return ""
	}
	if s, ok := opt.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func (o options) Int(name string) int {
	opt, ok := o[name]
	if !ok {
		return 0
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// command is a slash command. Deferred commands acknowledge first and answer
// with a follow-up. Commands with open answer with a modal.
type command struct {
	definition *discordgo.ApplicationCommand
	ephemeral  bool
	deferred   bool
	run        func(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response
	open       func(ctx context.Context, i *discordgo.InteractionCreate, opts options) (*discordgo.InteractionResponse, []Response)
}

func stringOption(name, description string, required, autocomplete bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         name,
		Description:  description,
		Required:     required,
		Autocomplete: autocomplete,
	}
}

func intOption(name, description string, required bool, min float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
		MinValue:    &min,
	}
}

func (bot *Bot) commandTable() map[string]command {
	country := func(description string) *discordgo.ApplicationCommandOption {
		return stringOption("country", description, true, true)
	}
	club := func(description string) *discordgo.ApplicationCommandOption {
		return stringOption("club", description, true, true)
	}

	list := []command{
		{
			definition: &discordgo.ApplicationCommand{Name: "set-club", Description: "Set or update your home club",
				Options: []*discordgo.ApplicationCommandOption{country("The country your club is from"), club("Your home club name")}},
			ephemeral: true, deferred: true, run: bot.setClub,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "update-league", Description: "Update a club's league and tier",
				Options: []*discordgo.ApplicationCommandOption{
					country("The country of the league"),
					club("The club to update"),
					stringOption("league", "The new league for the club", true, true),
					intOption("league_tier", "The league tier/level (1=top tier, 2=second tier, etc.)", true, 1),
				}},
			ephemeral: true, deferred: true, run: bot.updateLeague,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "profile", Description: "Show a user's profile",
				Options: []*discordgo.ApplicationCommandOption{{
					Type: discordgo.ApplicationCommandOptionUser, Name: "member",
					Description: "The member to show profile for (leave empty for yourself)",
				}}},
			run: bot.profile,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "tags", Description: "Set or update your tags (replaces all existing tags)",
				Options: []*discordgo.ApplicationCommandOption{stringOption("tags", "Enter your tags separated by commas (e.g., 'Scarves, Pins, Programs')", true, true)}},
			ephemeral: true, run: bot.setTags,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "add-tag", Description: "Add new tags to your existing tags",
				Options: []*discordgo.ApplicationCommandOption{stringOption("tags", "Enter new tags separated by commas (e.g., 'Scarves, Pins')", true, true)}},
			ephemeral: true, run: bot.addTags,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "club", Description: "Show club information and all members",
				Options: []*discordgo.ApplicationCommandOption{country("The country of the club"), club("The club name to display")}},
			deferred: true, run: bot.showClub,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "set-clubicon", Description: "Set or update a club's logo (PNG recommended)",
				Options: []*discordgo.ApplicationCommandOption{
					country("The country of the club"),
					club("The club to update"),
					stringOption("logo_url", "The URL to the club logo (direct image link, PNG recommended)", true, false),
				}},
			ephemeral: true, deferred: true, run: bot.setClubIcon,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "set-clubcolor", Description: "Set or update a club's color (hex format)",
				Options: []*discordgo.ApplicationCommandOption{
					country("The country of the club"),
					club("The club to update"),
					stringOption("color", "The color in hex format (e.g. FF0000 for red, without #)", true, false),
				}},
			ephemeral: true, deferred: true, run: bot.setClubColor,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "add-expert-club",
				Description: fmt.Sprintf("Mark a club as one you are an expert for (max %d)", bot.store.ExpertClubLimit()),
				Options:     []*discordgo.ApplicationCommandOption{country("The country your expert club is from"), club("The club name")}},
			ephemeral: true, deferred: true, run: bot.addExpertClub,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "remove-expert-club", Description: "Remove a club from your expert list",
				Options: []*discordgo.ApplicationCommandOption{country("The country of the club"), club("The club name to remove")}},
			ephemeral: true, deferred: true, run: bot.removeExpertClub,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "add-ticketing", Description: "Add ticketing information to a club",
				Options: []*discordgo.ApplicationCommandOption{club("The club the tickets are for")}},
			ephemeral: true, open: bot.openTicketing,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "set-stadium", Description: "Set the stadium of a club and complete its details",
				Options: []*discordgo.ApplicationCommandOption{
					club("The club playing there"),
					stringOption("stadium", "The stadium name", true, false),
					intOption("capacity", "Number of seats and standing places", false, 1),
					intOption("built", "Year the stadium was built", false, 1800),
					stringOption("image_url", "A picture of the stadium", false, false),
					stringOption("plan_url", "A seating plan", false, false),
					stringOption("blocks", "Blocks of the home and away fans", false, false),
					stringOption("access", "How to get there", false, false),
				}},
			ephemeral: true, run: bot.setStadium,
		},
		{
			definition: &discordgo.ApplicationCommand{Name: "apply", Description: "Apply for membership"},
			ephemeral:  true,
			open: func(ctx context.Context, i *discordgo.InteractionCreate, _ options) (*discordgo.InteractionResponse, []Response) {
				return bot.openApplication(ctx, i)
			},
		},
	}

	table := make(map[string]command, len(list))
	for _, c := range list {
		table[c.definition.Name] = c
	}
	return table
}

func (bot *Bot) commandDefinitions() []*discordgo.ApplicationCommand {
	definitions := make([]*discordgo.ApplicationCommand, 0, len(bot.commands))
	for _, c := range bot.commands {
		definitions = append(definitions, c.definition)
	}
	slices.SortFunc(definitions, func(a, b *discordgo.ApplicationCommand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return definitions
}

// commandError turns err into a reply. Errors carrying a hint are meant for
// the member, anything else is logged and hidden.
func commandError(command string, err error) []Response {
	if len(errors.GetAllHints(err)) > 0 {
		return UserError(err)
	}
	log.Error().Err(err).Str("command", command).Msg("Command failed")
	return InternalError()
}

func (bot *Bot) setClub(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	country, name := opts.String("country"), opts.String("club")
	if name == "" {
		return []Response{ResponseString{"❌ Please provide a club."}}
	}
	userID := interactionUserID(i.Interaction)

	// Create or find the club, then save the profile
	clubID, needsLeague, err := bot.resolver.GetOrCreate(ctx, name)
	if err != nil {
		return commandError("set-club", err)
	}
	if err := bot.store.SaveProfile(ctx, i.GuildID, userID, clubID); err != nil {
		return commandError("set-club", err)
	}
	log.Info().Str("guild", i.GuildID).Str("user", userID).Int64("club", clubID).Msg("Home club set")

	if i.Member != nil {
		if _, err := bot.promote(i.GuildID, i.Member); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("Could not promote newcomer")
		}
	}
	bot.triggerRosterAsync()
	return ClubSaved(country, name, needsLeague)
}

func (bot *Bot) updateLeague(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	country, league, tier := opts.String("country"), opts.String("league"), opts.Int("league_tier")
	if country == "" || league == "" {
		return []Response{ResponseString{"❌ Please provide a country and a league."}}
	}
	res, err := bot.resolver.Resolve(ctx, opts.String("club"))
	if err != nil {
		return commandError("update-league", err)
	}
	if _, err := bot.resolver.UpdateLeague(ctx, res.ClubID, league, country, tier); err != nil {
		return commandError("update-league", err)
	}
	log.Info().Int64("club", res.ClubID).Str("league", league).Int("tier", tier).Msg("League updated")
	bot.triggerRosterAsync()
	return LeagueUpdated(res.Name, country, league, tier)
}

func (bot *Bot) profile(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	target := opts.String("member")
	if target == "" {
		target = interactionUserID(i.Interaction)
	}
	name := target
	if member, err := bot.platform.Member(i.GuildID, target); err == nil && member != nil {
		name = displayName(member)
	}

	profile, ok, err := bot.store.Profile(ctx, i.GuildID, target)
	if err != nil {
		return commandError("profile", err)
	}
	if !ok {
		return NoProfile(name)
	}
	club, ok, err := bot.store.ClubInfo(ctx, profile.ClubID)
	if err != nil {
		return commandError("profile", err)
	}
	if !ok {
		return NoProfile(name)
	}

	view := ProfileView{Name: name, Club: club, CreatedAt: profile.CreatedAt}
	if view.Tags, err = bot.store.Tags(ctx, target); err != nil {
		return commandError("profile", err)
	}
	if view.Experts, err = bot.store.ExpertClubNames(ctx, i.GuildID, target); err != nil {
		return commandError("profile", err)
	}
	if view.ActiveDays, err = bot.store.TotalActiveDays(ctx, target); err != nil {
		return commandError("profile", err)
	}
	if view.Level, err = bot.store.Level(ctx, target); err != nil {
		return commandError("profile", err)
	}
	return []Response{ProfileCard(view, bot.cfg.LogoURL)}
}

func (bot *Bot) setTags(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	tags := directory.ParseTags(opts.String("tags"))
	if len(tags) == 0 {
		return NoTags()
	}
	userID := interactionUserID(i.Interaction)
	if err := bot.store.SaveTags(ctx, userID, tags); err != nil {
		return commandError("tags", err)
	}
	return TagsSaved(tags)
}

func (bot *Bot) addTags(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	tags := directory.ParseTags(opts.String("tags"))
	if len(tags) == 0 {
		return NoTags()
	}
	userID := interactionUserID(i.Interaction)
	if err := bot.store.AddTags(ctx, userID, tags); err != nil {
		return commandError("add-tag", err)
	}
	updated, err := bot.store.Tags(ctx, userID)
	if err != nil {
		return commandError("add-tag", err)
	}
	return TagsAdded(updated)
}

// clubCard resolves the club and renders its detailed card.
func (bot *Bot) clubCard(ctx context.Context, guildID string, clubID int64) ([]Response, error) {
	club, err := bot.collectClub(ctx, guildID, clubID, "")
	if err != nil {
		return nil, err
	}
	return []Response{ClubCard(club, bot.cfg.LogoURL, true)}, nil
}

func (bot *Bot) showClub(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	res, err := bot.resolver.Resolve(ctx, opts.String("club"))
	if err != nil {
		return commandError("club", err)
	}
	responses, err := bot.clubCard(ctx, i.GuildID, res.ClubID)
	if err != nil {
		return commandError("club", err)
	}
	return responses
}

// logoSuffix keeps only the part after the configured logo base url.
func logoSuffix(base, url string) string {
	if base != "" && strings.HasPrefix(url, base) && len(url) > len(base) {
		return strings.TrimPrefix(url, base)
	}
	return url
}

func (bot *Bot) setClubIcon(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	res, err := bot.resolver.Resolve(ctx, opts.String("club"))
	if err != nil {
		return commandError("set-clubicon", err)
	}
	url := opts.String("logo_url")
	if strings.HasSuffix(strings.ToLower(url), ".svg") {
		return SVGNotSupported()
	}
	if err := bot.proxy.CheckImage(ctx, url); err != nil {
		log.Info().Err(err).Str("url", url).Msg("Logo rejected")
		if errors.Is(err, common.ErrNotAnImage) {
			return NotAnImage(url)
		}
		return []Response{ResponseString{fmt.Sprintf("❌ '%s' could not be found.", url)}}
	}
	if err := bot.store.SetClubLogo(ctx, res.ClubID, logoSuffix(bot.cfg.LogoURL, url)); err != nil {
		return commandError("set-clubicon", err)
	}
	bot.triggerRosterAsync()
	card, err := bot.clubCard(ctx, i.GuildID, res.ClubID)
	if err != nil {
		return commandError("set-clubicon", err)
	}
	return append([]Response{LogoSaved(res.Name)}, card...)
}

func (bot *Bot) setClubColor(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	res, err := bot.resolver.Resolve(ctx, opts.String("club"))
	if err != nil {
		return commandError("set-clubcolor", err)
	}
	color, ok := directory.NormalizeColor(opts.String("color"))
	if !ok {
		return InvalidColor()
	}
	if err := bot.store.SetClubColor(ctx, res.ClubID, color); err != nil {
		return commandError("set-clubcolor", err)
	}
	bot.triggerRosterAsync()
	card, err := bot.clubCard(ctx, i.GuildID, res.ClubID)
	if err != nil {
		return commandError("set-clubcolor", err)
	}
	return append([]Response{ColorSaved(res.Name, color)}, card...)
}

func (bot *Bot) addExpertClub(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	name := opts.String("club")
	if name == "" {
		return []Response{ResponseString{"❌ Please provide a club."}}
	}
	clubID, _, err := bot.resolver.GetOrCreate(ctx, name)
	if err != nil {
		return commandError("add-expert-club", err)
	}
	if err := bot.store.AddExpertClub(ctx, i.GuildID, interactionUserID(i.Interaction), clubID); err != nil {
		return commandError("add-expert-club", err)
	}
	bot.triggerRosterAsync()
	return ExpertAdded(name)
}

func (bot *Bot) removeExpertClub(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	res, err := bot.resolver.Resolve(ctx, opts.String("club"))
	if err != nil {
		return commandError("remove-expert-club", err)
	}
	removed, err := bot.store.RemoveExpertClub(ctx, i.GuildID, interactionUserID(i.Interaction), res.ClubID)
	if err != nil {
		return commandError("remove-expert-club", err)
	}
	if removed {
		bot.triggerRosterAsync()
	}
	return ExpertRemoved(res.Name, removed)
}

const customIDTicketing = "ticketing:"

func ticketingForm(info directory.ClubInfo) form {
	title := "Tickets: " + info.Name
	if r := []rune(title); len(r) > 45 {
		title = string(r[:45])
	}
	return form{
		customID: customIDTicketing + strconv.FormatInt(info.ID, 10),
		title:    title,
		fields: []formField{
			{id: "url", label: "Ticket shop URL", value: info.TicketURL, required: false, maxLength: 300},
			{id: "price", label: "Price range", placeholder: "e.g. 15-40 EUR", value: info.TicketPrice, maxLength: 100},
			{id: "notes", label: "Notes", placeholder: "Membership needed, away sector, sale dates", value: info.TicketNotes, paragraph: true, maxLength: 1000},
		},
	}
}

func (bot *Bot) openTicketing(ctx context.Context, i *discordgo.InteractionCreate, opts options) (*discordgo.InteractionResponse, []Response) {
	res, err := bot.resolver.Resolve(ctx, opts.String("club"))
	if err != nil {
		return nil, commandError("add-ticketing", err)
	}
	info, ok, err := bot.store.ClubInfo(ctx, res.ClubID)
	if err != nil || !ok {
		return nil, commandError("add-ticketing", errors.Wrapf(directory.ErrClubNotFound, "club %d", res.ClubID))
	}
	return ticketingForm(info).response(), nil
}

func (bot *Bot) submitTicketing(ctx context.Context, customID string, values map[string]string) []Response {
	clubID, err := strconv.ParseInt(strings.TrimPrefix(customID, customIDTicketing), 10, 64)
	if err != nil {
		return commandError("add-ticketing", errors.Wrapf(err, "custom id %q", customID))
	}
	info, ok, err := bot.store.ClubInfo(ctx, clubID)
	if err != nil {
		return commandError("add-ticketing", err)
	}
	if !ok {
		return []Response{ResponseString{"❌ The club does not exist anymore."}}
	}
	url := strings.TrimSpace(values["url"])
	notes := strings.TrimSpace(values["notes"])
	price := strings.TrimSpace(values["price"])
	if err := bot.store.SetClubTicketing(ctx, clubID, url, notes, price); err != nil {
		return commandError("add-ticketing", err)
	}
	log.Info().Int64("club", clubID).Msg("Ticketing saved")
	return TicketingSaved(info.Name)
}

func (bot *Bot) setStadium(ctx context.Context, i *discordgo.InteractionCreate, opts options) []Response {
	res, err := bot.resolver.Resolve(ctx, opts.String("club"))
	if err != nil {
		return commandError("set-stadium", err)
	}
	name := opts.String("stadium")
	if name == "" {
		return []Response{ResponseString{"❌ Please provide a stadium."}}
	}
	stadiumID, err := bot.store.GetOrCreateStadium(ctx, name)
	if err != nil {
		return commandError("set-stadium", err)
	}
	if err := bot.store.SetClubStadium(ctx, res.ClubID, stadiumID); err != nil {
		return commandError("set-stadium", err)
	}
	update, err := bot.store.UpdateStadium(ctx, name, directory.StadiumPatch{
		ImageURL: opts.String("image_url"),
		PlanURL:  opts.String("plan_url"),
		Capacity: opts.Int("capacity"),
		Built:    opts.Int("built"),
		Blocks:   opts.String("blocks"),
		Access:   opts.String("access"),
	})
	if err != nil {
		return commandError("set-stadium", err)
	}
	return StadiumReport(res.Name, name, update)
}
