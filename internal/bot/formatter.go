package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"hopper/internal/directory"
)

const (
	colorBlue   int = 0x3498DB
	colorOrange int = 0xE67E22
)

// LogoURL expands a stored logo. Full urls are kept, suffixes get the base
// url prepended, and without a base url a suffix cannot be shown.
func LogoURL(base, logo string) string {
	if logo == "" {
		return ""
	}
	if strings.HasPrefix(logo, "http://") || strings.HasPrefix(logo, "https://") {
		return logo
	}
	if base == "" {
		return ""
	}
	return base + logo
}

func parseColor(hex string) (int, bool) {
	if hex == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func colorOr(hex string, fallback int) int {
	if c, ok := parseColor(hex); ok {
		return c
	}
	return fallback
}

// nbsp keeps "name medal level" together when Discord wraps a long line.
func nbsp(s string) string {
	return strings.ReplaceAll(s, " ", "\u00a0")
}

func displayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User == nil {
		return ""
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

func leagueName(info directory.ClubInfo) string {
	if !info.HasLeague() {
		return "Unknown"
	}
	return info.LeagueName.String
}

func countryName(info directory.ClubInfo) string {
	if !info.Country.Valid || info.Country.String == "" {
		return "Unknown"
	}
	return info.Country.String
}

func flag(info directory.ClubInfo) string {
	if info.LeagueFlag.Valid && info.LeagueFlag.String != "" {
		return info.LeagueFlag.String
	}
	return info.Flag
}

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func InternalError() []Response {
	return []Response{ResponseString{"❌ Something went wrong, please try again later."}}
}

// UserError shows the hint attached to err, or err itself.
func UserError(err error) []Response {
	return []Response{ResponseString{"❌ " + directory.UserMessage(err)}}
}

func Pong(mention string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Yes, %s, I'm here ! :robot: :saluting_face: (%s)", mention, Version)}}
}

func HelpMessage() []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: colorBlue}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`/set-club <country> <club>`",
		Value:  "Set or update your home club",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`/club <country> <club>`",
		Value:  "Show a club and its members",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`/profile [member]`",
		Value:  "Show the profile of a member",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`/add-expert-club <country> <club>`",
		Value:  "Mark a club you know well, you will be pinged for it too",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`$Club` in the groundhelp channel",
		Value:  "Ping the members of a club",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`!ping`",
		Value:  "Check that the bot is alive",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "`!help`",
		Value:  "Print the usage of the different commands",
		Inline: false,
	})
	return []Response{ResponseEmbed{embed}}
}

// ClubCard shows a club with its members. Experts that are also members are
// only listed once. The detailed card adds stadium and ticketing.
func ClubCard(club ResolvedClub, logoURL string, detailed bool) ResponseEmbed {
	return clubCard(club, logoURL, detailed, Candidate.Mention)
}

// ReadOnlyClubCard lists members by name, for answers that must not look
// like a ping.
func ReadOnlyClubCard(club ResolvedClub, logoURL string) ResponseEmbed {
	return clubCard(club, logoURL, false, Candidate.Label)
}

func clubCard(club ResolvedClub, logoURL string, detailed bool, label func(Candidate) string) ResponseEmbed {
	info := club.Info
	embed := discordgo.MessageEmbed{
		Title:       "⚽ " + info.Name,
		Description: fmt.Sprintf("**League:** %s (Tier %d)\n**Country:** %s", leagueName(info), info.TierOrUnranked(), strings.TrimSpace(countryName(info)+" "+flag(info))),
		Color:       colorOr(info.Color, colorBlue),
	}
	if logo := LogoURL(logoURL, info.Logo); logo != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: logo}
	}

	members := make([]string, 0, len(club.Members))
	listed := make(map[string]struct{})
	for _, m := range club.Members {
		members = append(members, fmt.Sprintf("%s %s", label(m), m.Level))
		listed[m.UserID] = struct{}{}
	}
	value := "No members yet"
	if len(members) > 0 {
		value = strings.Join(members, ", ")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: fmt.Sprintf("Members (%d)", len(members)), Value: value})

	var experts []string
	for _, e := range club.Experts {
		if _, ok := listed[e.UserID]; !ok {
			experts = append(experts, label(e))
		}
	}
	if len(experts) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: fmt.Sprintf("Experts (%d)", len(experts)), Value: strings.Join(experts, ", ")})
	}

	if !detailed {
		return ResponseEmbed{embed}
	}
	if info.StadiumName.Valid && info.StadiumName.String != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🏟️ Stadium", Value: info.StadiumName.String})
	}
	var tickets []string
	if info.TicketURL != "" {
		tickets = append(tickets, info.TicketURL)
	}
	if info.TicketPrice != "" {
		tickets = append(tickets, "**Price:** "+info.TicketPrice)
	}
	if info.TicketNotes != "" {
		tickets = append(tickets, info.TicketNotes)
	}
	if len(tickets) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🎟️ Tickets", Value: strings.Join(tickets, "\n")})
	}
	return ResponseEmbed{embed}
}

func helpRequestTitle(plan Plan) string {
	if len(plan.Names) == 0 {
		return "Groundhelp request"
	}
	return "Groundhelp request: " + strings.Join(plan.Names, ", ")
}

// HelpRequestEmbed is the public message that goes with the mentions.
func HelpRequestEmbed(plan Plan, authorName, authorIcon string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       helpRequestTitle(plan),
		Description: plan.Description,
		Color:       plan.Color,
		Author:      &discordgo.MessageEmbedAuthor{Name: authorName, IconURL: authorIcon},
	}
	if plan.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: plan.Thumbnail}
	}
	return embed
}

// PreviewEmbed is shown to the author before a large ping goes out.
func PreviewEmbed(plan Plan) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       strings.Join(plan.Names, ", "),
		Description: plan.Description,
		Color:       plan.Color,
	}
	if embed.Title == "" {
		embed.Title = "Groundhelp request"
	}
	if plan.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: plan.Thumbnail}
	}
	lines := make([]string, 0, len(plan.Recipients))
	for _, c := range plan.Recipients {
		lines = append(lines, fmt.Sprintf("%s %s %s", c.Mention(), c.Medal(), c.Level))
	}
	value := "None"
	if len(lines) > 0 {
		value = strings.Join(lines, "\n")
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: fmt.Sprintf("Users to be pinged (%d)", len(plan.Recipients)), Value: value})
	return embed
}

// ProfileView is everything the profile card shows about a member.
type ProfileView struct {
	Name       string
	Level      directory.Level
	Club       directory.ClubInfo
	Tags       []string
	Experts    []string
	ActiveDays int
	CreatedAt  time.Time
}

func ProfileCard(view ProfileView, logoURL string) ResponseEmbed {
	club := view.Club
	embed := discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s (%s)", view.Name, view.Level),
		Color: colorOr(club.Color, colorBlue),
	}
	if logo := LogoURL(logoURL, club.Logo); logo != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: logo}
	}
	home := club.Name + " - " + leagueName(club)
	if f := flag(club); f != "" {
		home += " - " + f
	}
	tags := "No tags set"
	if len(view.Tags) > 0 {
		tags = strings.Join(view.Tags, ", ")
	}
	experts := "No experts known"
	if len(view.Experts) > 0 {
		experts = strings.Join(view.Experts, ", ")
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "⚽ Home club", Value: home},
		{Name: "🏷️ Tags", Value: tags},
		{Name: "Expert for", Value: experts},
		{Name: "📅 Active days", Value: strconv.Itoa(view.ActiveDays)},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Created on: " + view.CreatedAt.UTC().Format(time.DateTime)}
	return ResponseEmbed{embed}
}

func ClubSaved(country, club string, needsLeague bool) []Response {
	responses := []Response{ResponseString{fmt.Sprintf("✅ Your club has been updated!\n\n**Country:** %s\n**Club:** %s", country, club)}}
	if needsLeague {
		responses = append(responses, ResponseString{fmt.Sprintf("⚠️ Note: The club '%s' is not yet assigned to a league. "+
			"Please contact an admin or update the league information yourself with the /update-league command.", club)})
	}
	return responses
}

func LeagueUpdated(club, country, league string, tier int) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Club '%s' has been updated!\n\n**Club:** %s\n**Country:** %s\n**New League:** %s (Tier %d)", club, club, country, league, tier)}}
}

func TagsSaved(tags []string) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Your tags have been updated!\n\n**Tags:** %s", strings.Join(tags, ", "))}}
}

func TagsAdded(tags []string) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Tags added successfully!\n\n**Your tags:** %s", strings.Join(tags, ", "))}}
}

func NoTags() []Response {
	return []Response{ResponseString{"❌ Please provide at least one tag."}}
}

func NoProfile(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("No profile found for %s.", name)}}
}

func ExpertAdded(club string) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Added '%s' to your expert clubs.", club)}}
}

func ExpertRemoved(club string, removed bool) []Response {
	if !removed {
		return []Response{ResponseString{fmt.Sprintf("ℹ️ '%s' was not in your expert clubs.", club)}}
	}
	return []Response{ResponseString{fmt.Sprintf("✅ Removed '%s' from your expert clubs.", club)}}
}

func SVGNotSupported() []Response {
	return []Response{ResponseString{"❌ .svg images are not supported. Please provide a PNG or JPG image URL."}}
}

func NotAnImage(url string) []Response {
	return []Response{ResponseString{fmt.Sprintf("❌ '%s' does not point to an image.", url)}}
}

func InvalidColor() []Response {
	return []Response{ResponseString{"❌ Invalid color format. Please provide a 6-digit hex color (e.g. FF0000 for red)."}}
}

func LogoSaved(club string) Response {
	return ResponseString{fmt.Sprintf("✅ Logo of '%s' updated.", club)}
}

func ColorSaved(club, color string) Response {
	return ResponseString{fmt.Sprintf("✅ Color of '%s' set to #%s.", club, color)}
}

func TicketingSaved(club string) []Response {
	return []Response{ResponseString{fmt.Sprintf("✅ Ticketing information of **%s** saved.", club)}}
}

// StadiumReport lists what a stadium update did, field by field.
func StadiumReport(club, stadium string, update directory.StadiumUpdate) []Response {
	if update.NotFound {
		return []Response{ResponseString{fmt.Sprintf("❌ Stadium '%s' not found.", stadium)}}
	}
	lines := []string{fmt.Sprintf("🏟️ **%s** is the stadium of **%s**.", stadium, club)}
	add := func(label string, fields []string) {
		if len(fields) > 0 {
			lines = append(lines, fmt.Sprintf("**%s:** %s", label, strings.Join(fields, ", ")))
		}
	}
	add("Set", update.Set)
	add("Overwritten", update.Overwritten)
	add("Unchanged", update.Unchanged)
	add("Not given", update.SkippedEmpty)
	return []Response{ResponseString{strings.Join(lines, "\n")}}
}
