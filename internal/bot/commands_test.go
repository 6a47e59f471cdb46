package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/directory"
)

// runCommand sends a slash command and returns the text the user got back.
func (env *testEnv) runCommand(t *testing.T, i *discordgo.InteractionCreate) string {
	t.Helper()
	env.bot.interact(context.Background(), i)
	env.bot.background.Wait()

	cmd := env.bot.commands[i.ApplicationCommandData().Name]
	if cmd.deferred {
		return env.platform.lastFollowUp(t).Content
	}
	response := env.platform.lastResponse(t)
	require.NotNil(t, response.Data)
	return response.Data.Content
}

func TestCommandTable(t *testing.T) {
	env := newTestEnv(t)
	env.bot.ready()

	var names []string
	for _, c := range env.platform.registered {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"add-expert-club", "add-tag", "add-ticketing", "apply", "club", "profile",
		"remove-expert-club", "set-club", "set-clubcolor", "set-clubicon", "set-stadium",
		"tags", "update-league",
	}, names)
	assert.True(t, slices.IsSorted(names))
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	env.bot.interact(context.Background(), commandInteraction("nope", "300"))

	response := env.platform.lastResponse(t)
	assert.Equal(t, "Unknown command.", response.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, response.Data.Flags)
}

func TestSetClubPromotesNewcomer(t *testing.T) {
	env := newTestEnv(t)
	member := env.platform.addMember("300", "zoe", newcomerRole)
	i := commandInteraction("set-club", "300", stringOpt("country", "Germany"), stringOpt("club", "FC St. Pauli"))
	i.Member = member

	content := env.runCommand(t, i)

	ack := env.platform.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, ack.Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, ack.Data.Flags)
	assert.Contains(t, content, "✅ Your club has been updated!\n\n**Country:** Germany\n**Club:** FC St. Pauli")
	assert.Contains(t, content, "⚠️ Note: The club 'FC St. Pauli' is not yet assigned to a league.")

	profile, ok, err := env.store.Profile(context.Background(), testGuild, "300")
	require.NoError(t, err)
	require.True(t, ok)
	id, ok, err := env.store.ClubIDByName(context.Background(), "FC St. Pauli")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, profile.ClubID)

	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	assert.Equal(t, []roleChange{
		{UserID: "300", RoleID: newcomerRole},
		{UserID: "300", RoleID: apprenticeRole, Added: true},
	}, env.platform.roles)
	assert.Equal(t, 1, env.platform.purges, "the line-up is refreshed")
}

func TestSetClubKnownClubHasNoLeagueWarning(t *testing.T) {
	env := newTestEnv(t)
	env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)
	env.platform.addMember("300", "zoe", apprenticeRole)

	content := env.runCommand(t, commandInteraction("set-club", "300", stringOpt("country", "Germany"), stringOpt("club", "FC St. Pauli")))

	assert.Contains(t, content, "✅ Your club has been updated!")
	assert.NotContains(t, content, "not yet assigned")
	env.platform.mu.Lock()
	defer env.platform.mu.Unlock()
	assert.Empty(t, env.platform.roles, "members without the newcomer role keep their roles")
}

func TestUpdateLeague(t *testing.T) {
	env := newTestEnv(t)
	id := env.club(t, "FC St. Pauli", "", "", 0)

	content := env.runCommand(t, commandInteraction("update-league", "300",
		stringOpt("country", "Germany"), stringOpt("club", "Pauli"),
		stringOpt("league", "Bundesliga"), intOpt("league_tier", 1)))

	assert.Equal(t, "✅ Club 'FC St. Pauli' has been updated!\n\n**Club:** FC St. Pauli\n**Country:** Germany\n**New League:** Bundesliga (Tier 1)", content)
	info, ok, err := env.store.ClubInfo(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Bundesliga", info.LeagueName.String)
	assert.Equal(t, 1, info.TierOrUnranked())
}

func TestUpdateLeagueUnknownClub(t *testing.T) {
	env := newTestEnv(t)

	content := env.runCommand(t, commandInteraction("update-league", "300",
		stringOpt("country", "Germany"), stringOpt("club", "Atlantis"),
		stringOpt("league", "Bundesliga"), intOpt("league_tier", 1)))

	assert.Equal(t, "❌ No club matches 'Atlantis'.", content)
}

func TestTags(t *testing.T) {
	env := newTestEnv(t)

	content := env.runCommand(t, commandInteraction("tags", "300", stringOpt("tags", "Scarves, Pins, ,Programs")))
	assert.Equal(t, "✅ Your tags have been updated!\n\n**Tags:** Scarves, Pins, Programs", content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, env.platform.lastResponse(t).Data.Flags)

	content = env.runCommand(t, commandInteraction("add-tag", "300", stringOpt("tags", "Pins, Flags")))
	assert.Equal(t, "✅ Tags added successfully!\n\n**Your tags:** Scarves, Pins, Programs, Flags", content)

	content = env.runCommand(t, commandInteraction("tags", "300", stringOpt("tags", " , ")))
	assert.Equal(t, "❌ Please provide at least one tag.", content)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pauli := env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)
	hsv := env.club(t, "Hamburger SV", "Germany", "2. Bundesliga", 2)
	env.member(t, "300", "zoe", pauli)
	require.NoError(t, env.store.AddExpertClub(ctx, testGuild, "300", hsv))
	require.NoError(t, env.store.SaveTags(ctx, "300", []string{"Scarves"}))
	require.NoError(t, env.store.RecordHit(ctx, "300"))

	env.bot.interact(ctx, commandInteraction("profile", "300"))

	response := env.platform.lastResponse(t)
	assert.Zero(t, response.Data.Flags, "profiles are public")
	require.Len(t, response.Data.Embeds, 1)
	card := response.Data.Embeds[0]
	assert.Equal(t, "zoe (Casual)", card.Title)
	require.Len(t, card.Fields, 4)
	assert.Equal(t, "FC St. Pauli - 2. Bundesliga", card.Fields[0].Value)
	assert.Equal(t, "Scarves", card.Fields[1].Value)
	assert.Equal(t, "Hamburger SV", card.Fields[2].Value)
	assert.Equal(t, "1", card.Fields[3].Value)
}

func TestProfileMissing(t *testing.T) {
	env := newTestEnv(t)
	env.platform.addMember("301", "yan")

	content := env.runCommand(t, commandInteraction("profile", "300", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "member", Type: discordgo.ApplicationCommandOptionUser, Value: "301",
	}))

	assert.Equal(t, "No profile found for yan.", content)
}

func TestExpertClubs(t *testing.T) {
	env := newTestEnv(t)
	pauli := env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)
	env.member(t, "300", "zoe", pauli)
	add := func(club string) string {
		return env.runCommand(t, commandInteraction("add-expert-club", "300", stringOpt("country", "Germany"), stringOpt("club", club)))
	}

	assert.Equal(t, "❌ You are implicitly an expert for your home club and cannot add it as an expert club.", add("FC St. Pauli"))
	assert.Equal(t, "✅ Added 'Hamburger SV' to your expert clubs.", add("Hamburger SV"))
	assert.Equal(t, "❌ You already marked this club as an expert club.", add("Hamburger SV"))
	add("Holstein Kiel")
	add("Hansa Rostock")
	assert.Equal(t, "❌ You can mark up to 3 expert clubs. Remove one first.", add("VfL Bochum"))

	remove := func(club string) string {
		return env.runCommand(t, commandInteraction("remove-expert-club", "300", stringOpt("country", "Germany"), stringOpt("club", club)))
	}
	assert.Equal(t, "✅ Removed 'Hamburger SV' from your expert clubs.", remove("Hamburger"))
	assert.Equal(t, "ℹ️ 'Hamburger SV' was not in your expert clubs.", remove("Hamburger"))

	names, err := env.store.ExpertClubNames(context.Background(), testGuild, "300")
	require.NoError(t, err)
	assert.Equal(t, []string{"Holstein Kiel", "Hansa Rostock"}, names)
}

func TestSetClubColor(t *testing.T) {
	env := newTestEnv(t)
	id := env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)

	content := env.runCommand(t, commandInteraction("set-clubcolor", "300", stringOpt("country", "Germany"), stringOpt("club", "Pauli"), stringOpt("color", "red")))
	assert.Equal(t, "❌ Invalid color format. Please provide a 6-digit hex color (e.g. FF0000 for red).", content)

	env.bot.interact(context.Background(), commandInteraction("set-clubcolor", "300", stringOpt("country", "Germany"), stringOpt("club", "Pauli"), stringOpt("color", "#6b4423")))
	env.bot.background.Wait()
	followUp := env.platform.lastFollowUp(t)
	assert.Equal(t, "✅ Color of 'FC St. Pauli' set to #6B4423.", followUp.Content)
	require.Len(t, followUp.Embeds, 1)
	assert.Equal(t, 0x6B4423, followUp.Embeds[0].Color)

	info, _, err := env.store.ClubInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "6B4423", info.Color)
}

func TestSetClubIcon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pauli.png":
			w.Header().Set("Content-Type", "image/png")
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.LogoURL = server.URL + "/"
	env := newTestEnvWith(t, cfg)
	id := env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)
	icon := func(url string) string {
		return env.runCommand(t, commandInteraction("set-clubicon", "300", stringOpt("country", "Germany"), stringOpt("club", "Pauli"), stringOpt("logo_url", url)))
	}

	assert.Equal(t, "❌ .svg images are not supported. Please provide a PNG or JPG image URL.", icon(server.URL+"/pauli.svg"))
	assert.Equal(t, "❌ '"+server.URL+"/page.html' does not point to an image.", icon(server.URL+"/page.html"))
	assert.Equal(t, "❌ '"+server.URL+"/gone.png' could not be found.", icon(server.URL+"/gone.png"))
	assert.Equal(t, "✅ Logo of 'FC St. Pauli' updated.", icon(server.URL+"/pauli.png"))

	info, _, err := env.store.ClubInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "pauli.png", info.Logo, "only the part after the logo base url is stored")
	followUp := env.platform.lastFollowUp(t)
	require.Len(t, followUp.Embeds, 1)
	assert.Equal(t, server.URL+"/pauli.png", followUp.Embeds[0].Thumbnail.URL)
}

func TestShowClub(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pauli := env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)
	env.member(t, "300", "zoe", pauli)
	env.platform.addMember("301", "yan")
	require.NoError(t, env.store.AddExpertClub(ctx, testGuild, "301", pauli))
	require.NoError(t, env.store.SetClubTicketing(ctx, pauli, "https://tickets.example", "Members only", "15-40 EUR"))

	env.bot.interact(ctx, commandInteraction("club", "301", stringOpt("country", "Germany"), stringOpt("club", "pauli")))

	ack := env.platform.lastResponse(t)
	assert.Nil(t, ack.Data, "club cards are public")
	followUp := env.platform.lastFollowUp(t)
	require.Len(t, followUp.Embeds, 1)
	card := followUp.Embeds[0]
	assert.Equal(t, "⚽ FC St. Pauli", card.Title)
	assert.Equal(t, "**League:** 2. Bundesliga (Tier 2)\n**Country:** Germany", card.Description)
	require.Len(t, card.Fields, 3)
	assert.Equal(t, "Members (1)", card.Fields[0].Name)
	assert.Equal(t, "<@300> Casual", card.Fields[0].Value)
	assert.Equal(t, "<@301>", card.Fields[1].Value)
	assert.Equal(t, "🎟️ Tickets", card.Fields[2].Name)
	assert.Equal(t, "https://tickets.example\n**Price:** 15-40 EUR\nMembers only", card.Fields[2].Value)
}

func TestSetStadium(t *testing.T) {
	env := newTestEnv(t)
	env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)

	content := env.runCommand(t, commandInteraction("set-stadium", "300",
		stringOpt("club", "Pauli"), stringOpt("stadium", "Millerntor"), intOpt("capacity", 29546)))
	assert.Contains(t, content, "🏟️ **Millerntor** is the stadium of **FC St. Pauli**.")
	assert.Contains(t, content, "**Set:** capacity")

	stadium, ok, err := env.store.Stadium(context.Background(), "Millerntor")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 29546, stadium.Capacity)
}

func modalSubmit(customID, userID string, values map[string]string) *discordgo.InteractionCreate {
	var rows []discordgo.MessageComponent
	for id, value := range values {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: value},
		}})
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionModalSubmit,
		GuildID: testGuild,
		Member:  &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user" + userID}},
		Data:    discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows},
	}}
}

func TestTicketingForm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.club(t, "FC St. Pauli", "Germany", "2. Bundesliga", 2)

	env.bot.interact(ctx, commandInteraction("add-ticketing", "300", stringOpt("club", "Pauli")))
	modal := env.platform.lastResponse(t)
	require.Equal(t, discordgo.InteractionResponseModal, modal.Type)
	assert.Equal(t, customIDTicketing+strconv.FormatInt(id, 10), modal.Data.CustomID)
	assert.Len(t, modal.Data.Components, 3)

	env.bot.interact(ctx, modalSubmit(modal.Data.CustomID, "300", map[string]string{
		"url": "https://tickets.example", "price": "15-40 EUR", "notes": " Members only ",
	}))
	response := env.platform.lastResponse(t)
	assert.Equal(t, "✅ Ticketing information of **FC St. Pauli** saved.", response.Data.Content)

	info, _, err := env.store.ClubInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://tickets.example", info.TicketURL)
	assert.Equal(t, "15-40 EUR", info.TicketPrice)
	assert.Equal(t, "Members only", info.TicketNotes)

	// Reopening shows what is stored
	env.bot.interact(ctx, commandInteraction("add-ticketing", "300", stringOpt("club", "Pauli")))
	reopened := env.platform.lastResponse(t)
	row := reopened.Data.Components[0].(discordgo.ActionsRow)
	assert.Equal(t, "https://tickets.example", row.Components[0].(discordgo.TextInput).Value)
}

func TestTicketingUnknownClub(t *testing.T) {
	env := newTestEnv(t)
	env.bot.interact(context.Background(), commandInteraction("add-ticketing", "300", stringOpt("club", "Atlantis")))

	response := env.platform.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, response.Type)
	assert.Equal(t, "❌ No club matches 'Atlantis'.", response.Data.Content)
}

func TestLogoSuffix(t *testing.T) {
	assert.Equal(t, "pauli.png", logoSuffix("https://logos.example/", "https://logos.example/pauli.png"))
	assert.Equal(t, "https://other.example/pauli.png", logoSuffix("https://logos.example/", "https://other.example/pauli.png"))
	assert.Equal(t, "https://logos.example/", logoSuffix("https://logos.example/", "https://logos.example/"))
	assert.Equal(t, "https://other.example/x.png", logoSuffix("", "https://other.example/x.png"))
}

func TestLogoURL(t *testing.T) {
	assert.Equal(t, "https://logos.example/pauli.png", LogoURL("https://logos.example/", "pauli.png"))
	assert.Equal(t, "https://cdn.example/x.png", LogoURL("https://logos.example/", "https://cdn.example/x.png"))
	assert.Empty(t, LogoURL("", "pauli.png"))
	assert.Empty(t, LogoURL("https://logos.example/", ""))
}

func TestStadiumReport(t *testing.T) {
	responses := StadiumReport("FC St. Pauli", "Millerntor", directory.StadiumUpdate{
		Set: []string{"capacity"}, Overwritten: []string{"built"}, SkippedEmpty: []string{"access"},
	})
	require.Len(t, responses, 1)
	content, _ := merge(responses)
	assert.Equal(t, "🏟️ **Millerntor** is the stadium of **FC St. Pauli**.\n**Set:** capacity\n**Overwritten:** built\n**Not given:** access", content)

	content, _ = merge(StadiumReport("FC St. Pauli", "Millerntor", directory.StadiumUpdate{NotFound: true}))
	assert.Equal(t, "❌ Stadium 'Millerntor' not found.", content)
}
