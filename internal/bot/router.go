package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"hopper/internal/config"
	"hopper/internal/directory"
)

const (
	medalHome   = "🥇"
	medalExpert = "🥈"
)

// Candidate is a member a help request may ping.
type Candidate struct {
	UserID string
	Name   string
	Level  directory.Level
	Expert bool
}

func (c Candidate) Mention() string {
	return "<@" + c.UserID + ">"
}

// Label is the plain name of the member.
func (c Candidate) Label() string {
	if c.Name == "" {
		return c.UserID
	}
	return c.Name
}

func (c Candidate) Medal() string {
	if c.Expert {
		return medalExpert
	}
	return medalHome
}

// ResolvedClub is a club referenced by a help request, with the members
// present in the guild.
type ResolvedClub struct {
	// Token is the text that followed "$" and matched the club.
	Token string

	// Repeats are the later markers that matched the same club.
	Repeats []string

	Info    directory.ClubInfo
	Members []Candidate
	Experts []Candidate
}

type PlanKind int

const (
	// PlanReadOnly: a marker did not resolve, nobody is pinged.
	PlanReadOnly PlanKind = iota
	PlanNoMembers
	PlanImmediate
	PlanConfirm
)

func (k PlanKind) String() string {
	return [...]string{"read-only", "no-members", "immediate", "confirm"}[k]
}

// Plan is what the router decided to do with a help request.
type Plan struct {
	Kind  PlanKind
	Clubs []ResolvedClub
	// Recipients are the members to mention, already capped.
	Recipients []Candidate
	// Found is the number of distinct candidates before the cap.
	Found   int
	Problem error

	Names       []string
	Description string
	Color       int
	Thumbnail   string
}

// Truncated is true when more members were found than will be mentioned.
func (p Plan) Truncated() bool {
	return p.Found > len(p.Recipients)
}

type RouterOptions struct {
	MaxMentions      int
	ConfirmThreshold int
	LeagueLogoPolicy string
	LogoURL          string
}

var whitespace = regexp.MustCompile(`\s+`)

// BuildPlan decides how to answer a help request. clubs are the markers that
// resolved, in message order; problem is the resolver error that stopped the
// lookup, if any.
func BuildPlan(content string, clubs []ResolvedClub, problem error, opts RouterOptions) Plan {
	plan := Plan{Clubs: clubs, Problem: problem, Color: colorOrange}
	if problem != nil {
		plan.Kind = PlanReadOnly
		return plan
	}

	seen := make(map[string]struct{})
	var candidates []Candidate
	add := func(list []Candidate) {
		for _, c := range list {
			if _, ok := seen[c.UserID]; ok {
				continue
			}
			seen[c.UserID] = struct{}{}
			candidates = append(candidates, c)
		}
	}
	for _, club := range clubs {
		add(club.Members)
		add(club.Experts)
	}

	description := content
	for _, club := range clubs {
		if !contains(plan.Names, club.Info.Name) {
			plan.Names = append(plan.Names, club.Info.Name)
		}
		description = strings.Replace(description, "$"+club.Token, club.Info.Name, 1)
		for _, token := range club.Repeats {
			description = strings.Replace(description, "$"+token, club.Info.Name, 1)
		}
	}
	description = strings.TrimSpace(whitespace.ReplaceAllString(description, " "))
	if description == "" {
		description = content
	}
	plan.Description = description
	plan.Color = clubsColor(clubs)
	plan.Thumbnail = thumbnail(clubs, opts)

	if len(candidates) == 0 {
		plan.Kind = PlanNoMembers
		return plan
	}
	plan.Found = len(candidates)
	if len(candidates) > opts.MaxMentions {
		candidates = candidates[:opts.MaxMentions]
	}
	plan.Recipients = candidates
	if plan.Found < opts.ConfirmThreshold {
		plan.Kind = PlanImmediate
	} else {
		plan.Kind = PlanConfirm
	}
	return plan
}

func clubsColor(clubs []ResolvedClub) int {
	for _, club := range clubs {
		if c, ok := parseColor(club.Info.Color); ok {
			return c
		}
	}
	return colorOrange
}

// thumbnail is the first club logo, or the logo of the league most of the
// referenced clubs play in when the policy allows it.
func thumbnail(clubs []ResolvedClub, opts RouterOptions) string {
	first := ""
	for _, club := range clubs {
		if club.Info.Logo != "" {
			first = LogoURL(opts.LogoURL, club.Info.Logo)
			break
		}
	}
	if opts.LeagueLogoPolicy == config.LeagueLogoNever || len(clubs) < 2 {
		return first
	}

	counts := make(map[int64]int)
	var order []int64
	logos := make(map[int64]string)
	for _, club := range clubs {
		if !club.Info.LeagueID.Valid {
			continue
		}
		id := club.Info.LeagueID.Int64
		if _, ok := counts[id]; !ok {
			order = append(order, id)
			logos[id] = club.Info.LeagueLogo.String
		}
		counts[id]++
	}
	var best int64
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best, bestCount = id, counts[id]
		}
	}
	if bestCount < 2 || logos[best] == "" {
		return first
	}
	if opts.LeagueLogoPolicy != config.LeagueLogoAtLeastTwo && bestCount*2 <= len(clubs) {
		return first
	}
	return LogoURL(opts.LogoURL, logos[best])
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func (bot *Bot) routerOptions() RouterOptions {
	return RouterOptions{
		MaxMentions:      bot.cfg.MaxMentions,
		ConfirmThreshold: bot.cfg.ConfirmThreshold,
		LeagueLogoPolicy: bot.cfg.LeagueLogoPolicy,
		LogoURL:          bot.cfg.LogoURL,
	}
}

// groundHelp answers a message of the help channel that contains "$Club"
// markers. Errors end up in the channel, never in the caller.
func (bot *Bot) groundHelp(ctx context.Context, message *discordgo.Message) {
	tokens := ScanTokens(message.Content)
	if len(tokens) == 0 {
		return
	}
	logger := log.With().Str("guild", message.GuildID).Str("user", message.Author.ID).Logger()
	logger.Debug().Strs("tokens", tokens).Msg("Help request")

	clubs, problem := bot.resolveTokens(ctx, message.GuildID, tokens)
	if problem != nil && !isResolveError(problem) {
		logger.Error().Err(problem).Msg("Could not resolve help request")
		bot.sendAll(message.ChannelID, InternalError())
		bot.metrics.Ping("error")
		return
	}
	plan := BuildPlan(message.Content, clubs, problem, bot.routerOptions())
	logger.Info().Stringer("plan", plan.Kind).Int("found", plan.Found).Strs("clubs", plan.Names).Msg("Help request planned")

	switch plan.Kind {
	case PlanReadOnly:
		responses := []Response{ResponseString{directory.UserMessage(plan.Problem)}}
		for _, club := range plan.Clubs {
			responses = append(responses, ReadOnlyClubCard(club, bot.cfg.LogoURL))
		}
		bot.sendAll(message.ChannelID, responses)
		bot.metrics.Ping("aborted")
		return
	case PlanNoMembers:
		responses := []Response{ResponseString{"No members"}}
		for _, club := range plan.Clubs {
			responses = append(responses, ClubCard(club, bot.cfg.LogoURL, false))
		}
		bot.sendAll(message.ChannelID, responses)
		bot.metrics.Ping("no-members")
		return
	case PlanImmediate:
		if err := bot.sendPing(message, plan); err != nil {
			logger.Error().Err(err).Msg("Could not send help request")
			bot.sendAll(message.ChannelID, []Response{ResponseString{"Could not send the groundhelp request."}})
			bot.metrics.Ping("error")
		} else {
			bot.metrics.Ping("immediate")
		}
	case PlanConfirm:
		bot.confirmPing(ctx, message, plan)
	}

	if plan.Truncated() {
		notice := fmt.Sprintf("%d members were found, only the first %d will be mentioned.", plan.Found, len(plan.Recipients))
		if _, err := bot.platform.DirectMessage(message.Author.ID, &discordgo.MessageSend{Content: notice}); err != nil {
			bot.sendAll(message.ChannelID, []Response{ResponseString{notice}})
		}
	}
}

func isResolveError(err error) bool {
	return errors.Is(err, directory.ErrClubNotFound) ||
		errors.Is(err, directory.ErrTooManyMatches) ||
		errors.Is(err, directory.ErrAmbiguousMatch)
}

// resolveTokens stops at the first marker that does not resolve and returns
// the clubs resolved so far.
func (bot *Bot) resolveTokens(ctx context.Context, guildID string, tokens []string) ([]ResolvedClub, error) {
	var clubs []ResolvedClub
	// club id to its index in clubs
	seen := make(map[int64]int)
	for _, raw := range tokens {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		res, matched, err := bot.resolveToken(ctx, raw)
		if err != nil {
			return clubs, err
		}
		if idx, ok := seen[res.ClubID]; ok {
			clubs[idx].Repeats = append(clubs[idx].Repeats, matched)
			continue
		}
		club, err := bot.collectClub(ctx, guildID, res.ClubID, matched)
		if err != nil {
			return clubs, err
		}
		seen[res.ClubID] = len(clubs)
		clubs = append(clubs, club)
	}
	return clubs, nil
}

// resolveToken resolves the marker text, dropping trailing words while the
// text matches nothing: "$Bayern tonight" resolves "Bayern". It returns the
// part of raw that matched.
func (bot *Bot) resolveToken(ctx context.Context, raw string) (directory.Resolution, string, error) {
	words := strings.Fields(raw)
	var firstErr error
	for n := len(words); n > 0; n-- {
		query := strings.Join(words[:n], " ")
		if len([]rune(query)) < 3 {
			break
		}
		res, err := bot.resolver.Resolve(ctx, query)
		if err == nil {
			return res, matchedPrefix(raw, n), nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if !errors.Is(err, directory.ErrClubNotFound) {
			return directory.Resolution{}, "", err
		}
	}
	if firstErr == nil {
		_, firstErr = bot.resolver.Resolve(ctx, strings.TrimSpace(raw))
	}
	return directory.Resolution{}, "", firstErr
}

// matchedPrefix is raw cut after its n-th word, keeping the original spacing.
func matchedPrefix(raw string, n int) string {
	count := 0
	inWord := false
	for i, r := range raw {
		space := r == ' ' || r == '\t'
		if !space && !inWord {
			inWord = true
		}
		if space && inWord {
			inWord = false
			count++
			if count == n {
				return raw[:i]
			}
		}
	}
	return strings.TrimRight(raw, " \t")
}

func (bot *Bot) collectClub(ctx context.Context, guildID string, clubID int64, token string) (ResolvedClub, error) {
	info, ok, err := bot.store.ClubInfo(ctx, clubID)
	if err != nil {
		return ResolvedClub{}, err
	}
	if !ok {
		return ResolvedClub{}, errors.Wrapf(directory.ErrClubNotFound, "club %d", clubID)
	}
	club := ResolvedClub{Token: token, Info: info}

	members, err := bot.store.ClubMembers(ctx, guildID, clubID)
	if err != nil {
		return ResolvedClub{}, err
	}
	club.Members = bot.candidates(ctx, guildID, members, false)

	experts, err := bot.store.ExpertUsers(ctx, guildID, clubID)
	if err != nil {
		return ResolvedClub{}, err
	}
	club.Experts = bot.candidates(ctx, guildID, experts, true)
	return club, nil
}

// candidates keeps the users still present in the guild.
func (bot *Bot) candidates(ctx context.Context, guildID string, userIDs []string, expert bool) []Candidate {
	var out []Candidate
	for _, id := range userIDs {
		member, err := bot.platform.Member(guildID, id)
		if err != nil || member == nil || member.User == nil || member.User.Bot {
			continue
		}
		level, err := bot.store.Level(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("user", id).Msg("Could not compute level")
		}
		out = append(out, Candidate{UserID: id, Name: displayName(member), Level: level, Expert: expert})
	}
	return out
}

func authorName(message *discordgo.Message) string {
	if message.Member != nil && message.Member.Nick != "" {
		return message.Member.Nick
	}
	if message.Author.GlobalName != "" {
		return message.Author.GlobalName
	}
	return message.Author.Username
}

func (bot *Bot) sendPing(message *discordgo.Message, plan Plan) error {
	ids := make([]string, len(plan.Recipients))
	mentions := make([]string, len(plan.Recipients))
	for i, c := range plan.Recipients {
		ids[i] = c.UserID
		mentions[i] = c.Mention()
	}
	_, err := bot.platform.SendMessage(message.ChannelID, &discordgo.MessageSend{
		Content:         strings.Join(mentions, " "),
		Embeds:          []*discordgo.MessageEmbed{HelpRequestEmbed(plan, authorName(message), message.Author.AvatarURL(""))},
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: ids},
	})
	return err
}

// confirmPing asks the author first. The preview goes by DM, or into the
// channel for a short while when DMs are closed.
func (bot *Bot) confirmPing(ctx context.Context, message *discordgo.Message, plan Plan) {
	author := message.Author.ID
	confirmation := bot.confirmations.Open(author)
	preview := &discordgo.MessageSend{
		Content:    "Message preview:",
		Embeds:     []*discordgo.MessageEmbed{PreviewEmbed(plan)},
		Components: confirmButtons(confirmation.ID, false),
	}

	transient := false
	sent, err := bot.platform.DirectMessage(author, preview)
	if err != nil {
		log.Info().Err(err).Str("user", author).Msg("Could not DM preview, posting it in the channel")
		preview.Content = "<@" + author + "> Message preview:"
		preview.AllowedMentions = &discordgo.MessageAllowedMentions{Users: []string{author}}
		sent, err = bot.platform.SendMessage(message.ChannelID, preview)
		if err != nil {
			log.Error().Err(err).Str("user", author).Msg("Could not post preview")
			bot.confirmations.Expire(confirmation.ID)
			bot.sendAll(message.ChannelID, []Response{ResponseString{"Could not create the preview."}})
			bot.metrics.Ping("error")
			return
		}
		transient = true
	}

	bot.background.Go(func() { bot.awaitPing(confirmation, sent, transient, message, plan) })
}

func (bot *Bot) awaitPing(confirmation *Confirmation, preview *discordgo.Message, transient bool, message *discordgo.Message, plan Plan) {
	defer bot.recoverHandler("confirmation")

	var removeAt <-chan time.Time
	if transient {
		timer := time.NewTimer(bot.transientDelay)
		defer timer.Stop()
		removeAt = timer.C
	}
	select {
	case <-confirmation.Done():
	case <-removeAt:
		bot.confirmations.Expire(confirmation.ID)
	case <-bot.ctx.Done():
		bot.confirmations.Expire(confirmation.ID)
	}
	decision := confirmation.Decision()
	log.Info().Str("user", confirmation.UserID).Stringer("decision", decision).Msg("Help request decided")

	switch {
	case transient:
		if err := bot.platform.DeleteMessage(preview.ChannelID, preview.ID); err != nil {
			log.Debug().Err(err).Msg("Could not delete transient preview")
		}
	case decision == DecisionExpired:
		components := confirmButtons(confirmation.ID, true)
		_, err := bot.platform.EditMessage(&discordgo.MessageEdit{
			Channel:    preview.ChannelID,
			ID:         preview.ID,
			Components: &components,
		})
		if err != nil {
			log.Debug().Err(err).Msg("Could not disable preview buttons")
		}
	}

	if decision != DecisionConfirmed {
		bot.metrics.Ping(decision.String())
		return
	}
	if err := bot.sendPing(message, plan); err != nil {
		log.Error().Err(err).Msg("Could not send confirmed help request")
		_, _ = bot.platform.DirectMessage(confirmation.UserID, &discordgo.MessageSend{Content: "Could not send the message."})
		bot.metrics.Ping("error")
		return
	}
	bot.metrics.Ping(decision.String())
}

const (
	customIDPingOK     = "ping:ok:"
	customIDPingCancel = "ping:cancel:"
)

func confirmButtons(id string, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "OK", Style: discordgo.SuccessButton, CustomID: customIDPingOK + id, Disabled: disabled},
			discordgo.Button{Label: "Cancel", Style: discordgo.SecondaryButton, CustomID: customIDPingCancel + id, Disabled: disabled},
		}},
	}
}

// decidePing handles the OK and Cancel buttons of a preview.
func (bot *Bot) decidePing(i *discordgo.InteractionCreate, customID string) {
	decision := DecisionConfirmed
	id, ok := strings.CutPrefix(customID, customIDPingOK)
	if !ok {
		id, _ = strings.CutPrefix(customID, customIDPingCancel)
		decision = DecisionCancelled
	}

	_, err := bot.confirmations.Decide(id, interactionUserID(i.Interaction), decision)
	var response *discordgo.InteractionResponse
	switch {
	case errors.Is(err, ErrNotAuthor):
		response = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: "Only the original author can decide.", Flags: discordgo.MessageFlagsEphemeral},
		}
	case err != nil:
		response = updateWithoutButtons(id, "This request is no longer pending.")
	case decision == DecisionConfirmed:
		response = updateWithoutButtons(id, "Confirmed, the message is being sent.")
	default:
		response = updateWithoutButtons(id, "Cancelled.")
	}
	if err := bot.platform.Respond(i.Interaction, response); err != nil {
		log.Error().Err(err).Msg("Could not answer preview button")
	}
}

func updateWithoutButtons(id, content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: content, Components: confirmButtons(id, true)},
	}
}
