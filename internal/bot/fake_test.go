package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"hopper/internal/common"
	"hopper/internal/config"
	"hopper/internal/directory"
)

const (
	testGuild      = "1"
	welcomeChannel = "10"
	lineUpChannel  = "11"
	helpChannel    = "12"
	reviewChannel  = "14"
	newcomerRole   = "20"
	apprenticeRole = "21"
	casualRole     = "22"
	fanRole        = "23"
	ultraRole      = "24"
)

var errDMClosed = errors.New("cannot send messages to this user")

type sentMessage struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

type roleChange struct {
	UserID string
	RoleID string
	Added  bool
}

type permission struct {
	ChannelID string
	RoleID    string
	Allow     int64
	Deny      int64
}

// fakePlatform records everything the bot does on Discord.
type fakePlatform struct {
	mu sync.Mutex

	guildName string
	members   map[string]*discordgo.Member
	order     []string
	channels  []*discordgo.Channel
	dmClosed  bool
	nextID    int

	sent        []sentMessage
	dms         []sentMessage
	edits       []*discordgo.MessageEdit
	deleted     []string
	purges      int
	guildInfos  int
	roles       []roleChange
	permissions []permission
	responses   []*discordgo.InteractionResponse
	followUps   []*discordgo.WebhookParams
	registered  []*discordgo.ApplicationCommand

	// onPurge runs before a purge is recorded, outside the lock.
	onPurge func()
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		guildName: "Hoppers",
		members:   make(map[string]*discordgo.Member),
		channels: []*discordgo.Channel{
			{ID: welcomeChannel}, {ID: lineUpChannel}, {ID: helpChannel},
		},
	}
}

func (p *fakePlatform) addMember(id, name string, roles ...string) *discordgo.Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	member := &discordgo.Member{
		GuildID: testGuild,
		User:    &discordgo.User{ID: id, Username: name},
		Roles:   roles,
	}
	p.members[id] = member
	p.order = append(p.order, id)
	return member
}

func (p *fakePlatform) id() string {
	p.nextID++
	return fmt.Sprintf("m%d", p.nextID)
}

func (p *fakePlatform) SendMessage(channelID string, message *discordgo.MessageSend) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentMessage{ChannelID: channelID, Message: message})
	return &discordgo.Message{ID: p.id(), ChannelID: channelID}, nil
}

func (p *fakePlatform) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits = append(p.edits, edit)
	return &discordgo.Message{ID: edit.ID, ChannelID: edit.Channel}, nil
}

func (p *fakePlatform) DeleteMessage(channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *fakePlatform) PurgeChannel(channelID string, limit int) (int, error) {
	if p.onPurge != nil {
		p.onPurge()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purges++
	return 0, nil
}

func (p *fakePlatform) DirectMessage(userID string, message *discordgo.MessageSend) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dmClosed {
		return nil, errDMClosed
	}
	p.dms = append(p.dms, sentMessage{ChannelID: userID, Message: message})
	return &discordgo.Message{ID: p.id(), ChannelID: "dm-" + userID}, nil
}

func (p *fakePlatform) GuildInfo(guildID string) (string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guildInfos++
	return p.guildName, len(p.members), nil
}

func (p *fakePlatform) Members(guildID string) ([]*discordgo.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	members := make([]*discordgo.Member, 0, len(p.order))
	for _, id := range p.order {
		if m, ok := p.members[id]; ok {
			members = append(members, m)
		}
	}
	return members, nil
}

func (p *fakePlatform) Member(guildID, userID string) (*discordgo.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	member, ok := p.members[userID]
	if !ok {
		return nil, errors.Newf("unknown member %s", userID)
	}
	return member, nil
}

func (p *fakePlatform) Channels(guildID string) ([]*discordgo.Channel, error) {
	return p.channels, nil
}

func (p *fakePlatform) SetRolePermissions(channelID, roleID string, allow, deny int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permissions = append(p.permissions, permission{ChannelID: channelID, RoleID: roleID, Allow: allow, Deny: deny})
	return nil
}

func (p *fakePlatform) AddRole(guildID, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles = append(p.roles, roleChange{UserID: userID, RoleID: roleID, Added: true})
	if m, ok := p.members[userID]; ok && !slices.Contains(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (p *fakePlatform) RemoveRole(guildID, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles = append(p.roles, roleChange{UserID: userID, RoleID: roleID})
	if m, ok := p.members[userID]; ok {
		m.Roles = slices.DeleteFunc(m.Roles, func(r string) bool { return r == roleID })
	}
	return nil
}

func (p *fakePlatform) Respond(interaction *discordgo.Interaction, response *discordgo.InteractionResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, response)
	return nil
}

func (p *fakePlatform) FollowUp(interaction *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.followUps = append(p.followUps, params)
	return &discordgo.Message{ID: p.id()}, nil
}

func (p *fakePlatform) RegisterCommands(guildID string, commands []*discordgo.ApplicationCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = commands
	return nil
}

func (p *fakePlatform) messages() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sent)
}

func (p *fakePlatform) directMessages() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.dms)
}

func (p *fakePlatform) lastResponse(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.responses)
	return p.responses[len(p.responses)-1]
}

func (p *fakePlatform) lastFollowUp(t *testing.T) *discordgo.WebhookParams {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.followUps)
	return p.followUps[len(p.followUps)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() config.Config {
	return config.Config{
		Token:    "token",
		GuildID:  testGuild,
		Database: "hopper.db",
		LogoURL:  "https://logos.example/",
		Channels: config.Channels{
			Welcome:    welcomeChannel,
			LineUp:     lineUpChannel,
			GroundHelp: helpChannel,
			Review:     reviewChannel,
		},
		Roles: config.Roles{
			Newcomer:   newcomerRole,
			Apprentice: apprenticeRole,
			Casual:     casualRole,
			Fan:        fanRole,
			Ultra:      ultraRole,
		},
		ExpertClubLimit:    3,
		MaxMentions:        10,
		ConfirmThreshold:   3,
		InteractionTimeout: time.Minute,
		ApplicationTTL:     24 * time.Hour,
		LeagueLogoPolicy:   config.LeagueLogoMajority,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

type testEnv struct {
	bot      *Bot
	platform *fakePlatform
	store    *directory.Store
	clock    *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, testConfig())
}

func newTestEnvWith(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	store, err := directory.Open(context.Background(), filepath.Join(t.TempDir(), "hopper.db"), directory.Options{
		ExpertClubLimit: cfg.ExpertClubLimit,
		Now:             clock.Now,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	platform := newFakePlatform()
	bot := newBot(cfg, store, platform, NewMetrics(nil))
	bot.ctx = ctx
	bot.now = clock.Now
	bot.sleep = func(context.Context, time.Duration) {}
	bot.pacer = common.NewRateLimiter(nil)
	bot.transientDelay = 50 * time.Millisecond

	t.Cleanup(func() {
		cancel()
		bot.background.Wait()
		_ = store.Close()
	})
	return &testEnv{bot: bot, platform: platform, store: store, clock: clock}
}

// club creates a club, attached to a league when league is not empty.
func (env *testEnv) club(t *testing.T, name, country, league string, tier int) int64 {
	t.Helper()
	ctx := context.Background()
	id, _, err := env.store.GetOrCreateClub(ctx, name)
	require.NoError(t, err)
	if league != "" {
		_, err = env.bot.resolver.UpdateLeague(ctx, id, league, country, tier)
		require.NoError(t, err)
	}
	return id
}

// member adds a guild member whose home club is clubID.
func (env *testEnv) member(t *testing.T, id, name string, clubID int64) {
	t.Helper()
	env.platform.addMember(id, name, apprenticeRole)
	require.NoError(t, env.store.SaveProfile(context.Background(), testGuild, id, clubID))
}

func (env *testEnv) message(authorID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "msg",
		GuildID:   testGuild,
		ChannelID: helpChannel,
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Username: "author" + authorID},
	}
}

func commandInteraction(name, userID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: testGuild,
		Member:  &discordgo.Member{User: &discordgo.User{ID: userID, Username: "user" + userID}},
		Data:    discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func buttonInteraction(customID, userID string, permissions int64) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionMessageComponent,
		GuildID: testGuild,
		Member:  &discordgo.Member{User: &discordgo.User{ID: userID}, Permissions: permissions},
		Data:    discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

// buttonIDs lists the custom ids of the buttons of a message.
func buttonIDs(components []discordgo.MessageComponent) []string {
	var ids []string
	for _, c := range components {
		row, ok := c.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, b := range row.Components {
			if button, ok := b.(discordgo.Button); ok {
				ids = append(ids, button.CustomID)
			}
		}
	}
	return ids
}

func buttonsDisabled(components []discordgo.MessageComponent) bool {
	found := false
	for _, c := range components {
		row, ok := c.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, b := range row.Components {
			if button, ok := b.(discordgo.Button); ok {
				found = true
				if !button.Disabled {
					return false
				}
			}
		}
	}
	return found
}
