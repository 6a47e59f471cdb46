package bot

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"hopper/internal/common"
	"hopper/internal/config"
	"hopper/internal/directory"
)

const Version = "1.4.0"

const (
	// Time a preview posted in the help channel stays visible.
	transientPreviewDelay = 20 * time.Second
	dailyTimeout          = 24 * time.Hour
	dailyCycle            = time.Minute
)

// Discord allows about five messages per channel every five seconds.
var messageRestrictions = []common.Restriction{{Requests: 5, Duration: 5 * time.Second}}

// Logo hosts are probed at most this often.
var probeRestrictions = []common.Restriction{{Requests: 10, Duration: time.Minute}}

type Bot struct {
	cfg           config.Config
	store         *directory.Store
	resolver      *directory.Resolver
	platform      Platform
	proxy         *common.Proxy
	pacer         *common.RateLimiter
	confirmations *Confirmations
	roster        *common.RunQueue
	daily         common.TimedExecutor
	metrics       *Metrics
	commands      map[string]command
	startDaily    sync.Once

	// background tracks previews waiting for a decision and async renders.
	background sync.WaitGroup

	// ctx lives as long as the session; handlers derive from it.
	ctx            context.Context
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration)
	transientDelay time.Duration
}

// CreateBot wires the bot around an open store. The Discord session is only
// created by Run.
func CreateBot(cfg config.Config, store *directory.Store, reg prometheus.Registerer) (*Bot, error) {
	if store == nil {
		return nil, errors.New("bot needs a store")
	}
	return newBot(cfg, store, nil, NewMetrics(reg)), nil
}

func newBot(cfg config.Config, store *directory.Store, platform Platform, metrics *Metrics) *Bot {
	bot := &Bot{
		cfg:            cfg,
		store:          store,
		resolver:       directory.NewResolver(store),
		platform:       platform,
		proxy:          common.NewProxy(map[string]string{"User-Agent": "hopper/" + Version}, probeRestrictions, 5*time.Second),
		pacer:          common.NewRateLimiter(messageRestrictions),
		confirmations:  NewConfirmations(cfg.InteractionTimeout),
		metrics:        metrics,
		ctx:            context.Background(),
		now:            time.Now,
		sleep:          sleepContext,
		transientDelay: transientPreviewDelay,
	}
	bot.roster = common.NewRunQueue(bot.renderRoster, func() context.Context { return bot.ctx })
	bot.daily = common.NewTimedExecutor("daily", dailyTimeout, bot.dailyJob)
	bot.commands = bot.commandTable()
	return bot
}

// Run connects to Discord and serves events until ctx is done.
func (bot *Bot) Run(ctx context.Context) error {
	session, err := discordgo.New("Bot " + bot.cfg.Token)
	if err != nil {
		return errors.Wrap(err, "could not create discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	session.State.TrackMembers = true

	bot.ctx = ctx
	bot.platform = NewSessionPlatform(session)

	// Event handlers
	session.AddHandler(bot.Ready)
	session.AddHandler(bot.Receive)
	session.AddHandler(bot.ReactionAdd)
	session.AddHandler(bot.MemberJoin)
	session.AddHandler(bot.Interact)

	if err := session.Open(); err != nil {
		return errors.Wrap(err, "could not open discord session")
	}
	defer session.Close()

	log.Info().Str("version", Version).Msg("Bot running")
	<-ctx.Done()
	log.Info().Msg("Shutting down")
	bot.background.Wait()
	return nil
}

func (bot *Bot) Ready(session *discordgo.Session, ready *discordgo.Ready) {
	defer bot.recoverHandler("ready")
	log.Info().Str("user", ready.User.Username).Int("guilds", len(ready.Guilds)).Msg("Logged in")
	bot.ready()
}

// ready registers the slash commands and starts the daily job once. The
// first daily run posts the line-up.
func (bot *Bot) ready() {
	if err := bot.platform.RegisterCommands(bot.cfg.GuildID, bot.commandDefinitions()); err != nil {
		log.Error().Err(err).Str("guild", bot.cfg.GuildID).Msg("Could not register commands")
	} else {
		log.Info().Int("commands", len(bot.commands)).Str("guild", bot.cfg.GuildID).Msg("Commands registered")
	}
	bot.startDaily.Do(func() {
		bot.background.Go(func() {
			defer bot.recoverHandler("daily")
			bot.daily.Run(bot.ctx, dailyCycle)
		})
	})
}

func (bot *Bot) Receive(session *discordgo.Session, message *discordgo.MessageCreate) {
	defer bot.recoverHandler("message")
	bot.receive(bot.ctx, message.Message)
}

func (bot *Bot) receive(ctx context.Context, message *discordgo.Message) {

	// Reject messages of bots, my own included
	if message.Author == nil || message.Author.Bot {
		return
	}

	// Ignore messages from private channels
	if message.GuildID == "" {
		log.Debug().Str("user", message.Author.ID).Msg("Ignoring private message")
		return
	}

	bot.recordHit(ctx, message.Author.ID)

	// A help request does not stop the message from being read as a command
	if message.ChannelID == bot.cfg.Channels.GroundHelp && strings.Contains(message.Content, "$") {
		bot.groundHelp(ctx, message)
	}

	// Parse the input provided and call the appropriate function
	parseResult := Parse(message.Content)
	switch parseResult.parseid {
	case PARSEID_NO_BOT_PREFIX:
		return
	case PARSEID_OK:
		log.Debug().Str("content", message.Content).Msg("Command understood")
		var responses []Response
		switch parseResult.command {
		case COMMAND_PING:
			responses = Pong(message.Author.Mention())
		case COMMAND_HELP:
			responses = HelpMessage()
		}
		bot.sendAll(message.ChannelID, responses)
	default:
		// The command is invalid input, so it contains an error message
		errorMessage := parseResult.errorMessage
		log.Debug().Str("content", message.Content).Str("reason", errorMessage).Msg("Wrong input")
		bot.sendAll(message.ChannelID, InputNotValid(errorMessage))
	}
}

func (bot *Bot) ReactionAdd(session *discordgo.Session, reaction *discordgo.MessageReactionAdd) {
	defer bot.recoverHandler("reaction")
	bot.reaction(bot.ctx, reaction.MessageReaction, reaction.Member)
}

func (bot *Bot) reaction(ctx context.Context, reaction *discordgo.MessageReaction, member *discordgo.Member) {
	if member != nil && member.User != nil && member.User.Bot {
		return
	}
	if reaction.GuildID == "" {
		return
	}
	bot.recordHit(ctx, reaction.UserID)
}

func (bot *Bot) recordHit(ctx context.Context, userID string) {
	if err := bot.store.RecordHit(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Could not record activity")
		return
	}
	bot.metrics.Hit()
}

func (bot *Bot) MemberJoin(session *discordgo.Session, member *discordgo.GuildMemberAdd) {
	defer bot.recoverHandler("member join")
	bot.onboard(bot.ctx, member.Member)
}

func (bot *Bot) Interact(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	defer bot.recoverHandler("interaction")
	bot.interact(bot.ctx, interaction)
}

// sendAll posts every response as its own message. Failures are logged.
func (bot *Bot) sendAll(channelID string, responses []Response) {
	for _, response := range responses {
		if err := response.Send(channelID, bot.platform); err != nil {
			log.Error().Err(err).Str("channel", channelID).Msg("Could not send message")
		}
	}
}

// recoverHandler stops a failing handler from taking the process down.
func (bot *Bot) recoverHandler(name string) {
	if r := recover(); r != nil {
		log.Error().Str("handler", name).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Handler panicked")
	}
}

func interactionUserID(interaction *discordgo.Interaction) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
