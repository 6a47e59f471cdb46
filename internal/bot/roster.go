package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"hopper/internal/directory"
)

const (
	maxEmbedsPerMessage = 10
	rosterPurgeLimit    = 100

	unassignedCountry = "Unassigned"
	unassignedLeague  = "No league"
)

// RosterClub is one card of the roster.
type RosterClub struct {
	Info    directory.ClubInfo
	Members []Candidate
	Experts []Candidate
}

type RosterInput struct {
	GuildName   string
	MemberCount int
	// Order is the store order of clubs with a league, by country and tier.
	// Clubs missing from it are listed last, by id.
	Order   []int64
	Clubs   map[int64]*RosterClub
	LogoURL string
}

// RosterMessage is one message of the line-up channel.
type RosterMessage struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
}

// BuildRoster lays out the line-up: a header, a banner per country, and per
// league a label followed by the club cards in batches of ten.
func BuildRoster(in RosterInput) []RosterMessage {
	messages := []RosterMessage{{Content: fmt.Sprintf("**Server: %s**\n**Number of members: %d**", in.GuildName, in.MemberCount)}}

	order := make([]int64, 0, len(in.Clubs))
	listed := make(map[int64]struct{}, len(in.Order))
	for _, id := range in.Order {
		if _, ok := in.Clubs[id]; !ok {
			continue
		}
		if _, ok := listed[id]; ok {
			continue
		}
		listed[id] = struct{}{}
		order = append(order, id)
	}
	var rest []int64
	for id := range in.Clubs {
		if _, ok := listed[id]; !ok {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	order = append(order, rest...)

	var country, league, label string
	var embeds []*discordgo.MessageEmbed
	flush := func() {
		for start := 0; start < len(embeds); start += maxEmbedsPerMessage {
			end := min(start+maxEmbedsPerMessage, len(embeds))
			message := RosterMessage{Embeds: embeds[start:end]}
			if start == 0 {
				message.Content = label
			}
			messages = append(messages, message)
		}
		embeds = nil
	}

	for i, id := range order {
		club := in.Clubs[id]
		c, l, banner := unassignedCountry, unassignedLeague, ""
		if _, ok := listed[id]; ok && club.Info.HasLeague() {
			c, l, banner = club.Info.Country.String, club.Info.LeagueName.String, flag(club.Info)
		}

		changed := i == 0 || c != country || l != league
		if changed {
			flush()
		}
		if i == 0 || c != country {
			country = c
			messages = append(messages, RosterMessage{Content: fmt.Sprintf("═══ %s ═══\n", strings.TrimSpace(c+" "+banner))})
		}
		if changed {
			league = l
			label = fmt.Sprintf("\n**%s**\n", l)
		}
		embeds = append(embeds, RosterCard(club, in.LogoURL))
	}
	flush()
	return messages
}

func rosterLine(c Candidate) string {
	return nbsp(fmt.Sprintf("%s %s %s", c.Mention(), c.Medal(), c.Level))
}

// RosterCard is the card of one club in the line-up.
func RosterCard(club *RosterClub, logoURL string) *discordgo.MessageEmbed {
	members := make([]string, len(club.Members))
	for i, m := range club.Members {
		members[i] = rosterLine(m)
	}
	embed := &discordgo.MessageEmbed{
		Color:       colorOr(club.Info.Color, colorBlue),
		Description: strings.Join(members, ", "),
		Author:      &discordgo.MessageEmbedAuthor{Name: fmt.Sprintf("%s (%d)", club.Info.Name, len(club.Members))},
	}
	if logo := LogoURL(logoURL, club.Info.Logo); logo != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: logo}
	}
	if len(club.Experts) > 0 {
		experts := make([]string, len(club.Experts))
		for i, e := range club.Experts {
			experts[i] = rosterLine(e)
		}
		embed.Fields = []*discordgo.MessageEmbedField{{Name: fmt.Sprintf("Experts (%d)", len(experts)), Value: strings.Join(experts, ", ")}}
	}
	return embed
}

// TriggerRoster asks for a fresh line-up. It blocks until a render that
// started after the call has completed.
func (bot *Bot) TriggerRoster(ctx context.Context) {
	if err := bot.roster.Trigger(ctx); err != nil {
		log.Warn().Err(err).Msg("Roster render abandoned")
	}
}

// triggerRosterAsync is used from handlers that must answer quickly.
func (bot *Bot) triggerRosterAsync() {
	bot.background.Go(func() {
		defer bot.recoverHandler("roster")
		bot.TriggerRoster(bot.ctx)
	})
}

// renderRoster is the job of the roster run queue.
func (bot *Bot) renderRoster(ctx context.Context) {
	defer bot.recoverHandler("roster")
	start := time.Now()
	channel := bot.cfg.Channels.LineUp
	logger := log.With().Str("guild", bot.cfg.GuildID).Str("channel", channel).Logger()

	input, err := bot.rosterInput(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Could not collect roster")
		bot.metrics.Roster("error", time.Since(start))
		return
	}

	deleted, err := bot.platform.PurgeChannel(channel, rosterPurgeLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not clear line-up channel")
	} else {
		logger.Debug().Int("deleted", deleted).Msg("Line-up channel cleared")
	}

	messages := BuildRoster(input)
	for _, message := range messages {
		if _, err := bot.pacer.Allowed(ctx, true); err != nil {
			logger.Warn().Err(err).Msg("Roster render interrupted")
			bot.metrics.Roster("interrupted", time.Since(start))
			return
		}
		_, err := bot.platform.SendMessage(channel, &discordgo.MessageSend{
			Content:         message.Content,
			Embeds:          message.Embeds,
			AllowedMentions: noMentions,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Could not post roster message")
		}
	}
	logger.Info().Int("clubs", len(input.Clubs)).Int("messages", len(messages)).Msg("Roster posted")
	bot.metrics.Roster("ok", time.Since(start))

	bot.sleep(ctx, bot.cfg.RosterPacing)
}

// rosterInput gathers the current home clubs and expert clubs of the guild
// members. Levels are computed once per user and render.
func (bot *Bot) rosterInput(ctx context.Context) (RosterInput, error) {
	guildID := bot.cfg.GuildID
	name, count, err := bot.platform.GuildInfo(guildID)
	if err != nil {
		return RosterInput{}, err
	}
	members, err := bot.platform.Members(guildID)
	if err != nil {
		return RosterInput{}, err
	}
	profiles, err := bot.store.Profiles(ctx, guildID)
	if err != nil {
		return RosterInput{}, err
	}
	experts, err := bot.store.AllExpertClubs(ctx, guildID)
	if err != nil {
		return RosterInput{}, err
	}

	homes := make(map[string]int64, len(profiles))
	for _, p := range profiles {
		homes[p.UserID] = p.ClubID
	}
	present := make(map[string]*discordgo.Member, len(members))
	humans := make([]*discordgo.Member, 0, len(members))
	for _, m := range members {
		if m.User == nil || m.User.Bot {
			continue
		}
		present[m.User.ID] = m
		humans = append(humans, m)
	}

	var ids []int64
	seen := make(map[int64]struct{})
	want := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, m := range humans {
		if club, ok := homes[m.User.ID]; ok {
			want(club)
		}
	}
	for _, e := range experts {
		if _, ok := present[e.UserID]; ok {
			want(e.ClubID)
		}
	}
	infos, err := bot.store.ClubsInfo(ctx, ids)
	if err != nil {
		return RosterInput{}, err
	}

	levels := make(map[string]directory.Level)
	candidate := func(userID string, expert bool) Candidate {
		level, ok := levels[userID]
		if !ok {
			var lerr error
			level, lerr = bot.store.Level(ctx, userID)
			if lerr != nil {
				log.Warn().Err(lerr).Str("user", userID).Msg("Could not compute level")
			}
			levels[userID] = level
		}
		return Candidate{UserID: userID, Name: displayName(present[userID]), Level: level, Expert: expert}
	}

	clubs := make(map[int64]*RosterClub)
	club := func(id int64) *RosterClub {
		if c, ok := clubs[id]; ok {
			return c
		}
		info, ok := infos[id]
		if !ok {
			return nil
		}
		c := &RosterClub{Info: info}
		clubs[id] = c
		return c
	}
	for _, m := range humans {
		id, ok := homes[m.User.ID]
		if !ok {
			continue
		}
		if c := club(id); c != nil {
			c.Members = append(c.Members, candidate(m.User.ID, false))
		}
	}
	for _, e := range experts {
		if _, ok := present[e.UserID]; !ok {
			continue
		}
		if c := club(e.ClubID); c != nil {
			c.Experts = append(c.Experts, candidate(e.UserID, true))
		}
	}

	order, err := bot.store.ClubIDsByCountryAndTier(ctx)
	if err != nil {
		return RosterInput{}, err
	}
	return RosterInput{
		GuildName:   name,
		MemberCount: count,
		Order:       order,
		Clubs:       clubs,
		LogoURL:     bot.cfg.LogoURL,
	}, nil
}
