// Package config loads the bot configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// League logo policies for multi-club help requests.
const (
	LeagueLogoMajority   = "majority"
	LeagueLogoAtLeastTwo = "at-least-two"
	LeagueLogoNever      = "never"
)

// Channels the bot reads or writes.
type Channels struct {
	Welcome     string `validate:"required"`
	LineUp      string `validate:"required"`
	GroundHelp  string `validate:"required"`
	Application string
	Review      string
}

// Roles the bot assigns.
type Roles struct {
	Newcomer   string `validate:"required"`
	Apprentice string `validate:"required"`
	Casual     string
	Fan        string
	Ultra      string
}

// Config stores runtime configuration for the bot.
type Config struct {
	Token    string `validate:"required"`
	GuildID  string `validate:"required,numeric"`
	Database string `validate:"required"`
	LogoURL  string `validate:"omitempty,url"`

	Channels Channels
	Roles    Roles

	ExpertClubLimit    int           `validate:"min=1,max=25"`
	MaxMentions        int           `validate:"min=1,max=50"`
	ConfirmThreshold   int           `validate:"min=1"`
	InteractionTimeout time.Duration `validate:"min=1s"`
	ApplicationTTL     time.Duration `validate:"min=1m"`
	RosterPacing       time.Duration `validate:"min=0"`
	LeagueLogoPolicy   string        `validate:"oneof=majority at-least-two never"`

	LogLevel    string `validate:"oneof=trace debug info warn error"`
	LogFormat   string `validate:"oneof=console json"`
	MetricsAddr string
}

// Load reads .env when present and then the process environment.
// Missing required values are reported all at once.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := getEnvAsInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durationVar := func(key string, fallback time.Duration) time.Duration {
		v, err := getEnvAsDuration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := Config{
		Token:    getEnv("DISCORD_TOKEN", ""),
		GuildID:  getEnv("GUILD_ID", ""),
		Database: getEnv("DATABASE_NAME", ""),
		LogoURL:  getEnv("LOGO_URL", ""),
		Channels: Channels{
			Welcome:     getEnv("WELCOME_CHANNEL_ID", ""),
			LineUp:      getEnv("LINE_UP_CHANNEL_ID", ""),
			GroundHelp:  getEnv("GROUNDHELP_CHANNEL_ID", ""),
			Application: getEnv("APPLICATION_CHANNEL_ID", ""),
			Review:      getEnv("REVIEW_CHANNEL_ID", ""),
		},
		Roles: Roles{
			Newcomer:   getEnv("NEWCOMER_ROLE_ID", ""),
			Apprentice: getEnv("APPRENTICE_ROLE_ID", getEnv("GROUNDHOPPER_ROLE_ID", "")),
			Casual:     getEnv("CASUAL_ROLE_ID", ""),
			Fan:        getEnv("FAN_ROLE_ID", ""),
			Ultra:      getEnv("ULTRA_ROLE_ID", ""),
		},
		ExpertClubLimit:    intVar("EXPERT_CLUB_LIMIT", 10),
		MaxMentions:        intVar("MAX_MENTIONS", 10),
		ConfirmThreshold:   intVar("CONFIRM_THRESHOLD", 3),
		InteractionTimeout: durationVar("INTERACTION_TIMEOUT", 300*time.Second),
		ApplicationTTL:     durationVar("APPLICATION_TTL", 7*24*time.Hour),
		RosterPacing:       durationVar("ROSTER_PACING", 10*time.Second),
		LeagueLogoPolicy:   strings.ToLower(getEnv("LEAGUE_LOGO_POLICY", LeagueLogoMajority)),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "console")),
		MetricsAddr:        getEnv("METRICS_ADDR", ""),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase is the reduced configuration used by the offline commands,
// which only need the storage file.
func LoadDatabase() (string, string, error) {
	_ = godotenv.Load(".env")
	database := getEnv("DATABASE_NAME", "")
	if database == "" {
		return "", "", errors.New("DATABASE_NAME must be set")
	}
	return database, getEnv("LOGO_URL", ""), nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required values and bounds.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := envNames[fe.StructNamespace()]
		if key == "" {
			key = fe.StructNamespace()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, key+" must be set")
		default:
			msgs = append(msgs, key+" is invalid ("+fe.Tag()+" "+fe.Param()+")")
		}
	}
	return errors.Newf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var envNames = map[string]string{
	"Config.Token":                "DISCORD_TOKEN",
	"Config.GuildID":              "GUILD_ID",
	"Config.Database":             "DATABASE_NAME",
	"Config.LogoURL":              "LOGO_URL",
	"Config.Channels.Welcome":     "WELCOME_CHANNEL_ID",
	"Config.Channels.LineUp":      "LINE_UP_CHANNEL_ID",
	"Config.Channels.GroundHelp":  "GROUNDHELP_CHANNEL_ID",
	"Config.Roles.Newcomer":       "NEWCOMER_ROLE_ID",
	"Config.Roles.Apprentice":     "APPRENTICE_ROLE_ID",
	"Config.ExpertClubLimit":      "EXPERT_CLUB_LIMIT",
	"Config.MaxMentions":          "MAX_MENTIONS",
	"Config.ConfirmThreshold":     "CONFIRM_THRESHOLD",
	"Config.InteractionTimeout":   "INTERACTION_TIMEOUT",
	"Config.ApplicationTTL":       "APPLICATION_TTL",
	"Config.RosterPacing":         "ROSTER_PACING",
	"Config.LeagueLogoPolicy":     "LEAGUE_LOGO_POLICY",
	"Config.LogLevel":             "LOG_LEVEL",
	"Config.LogFormat":            "LOG_FORMAT",
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, errors.Wrapf(err, "parse %s", key)
	}
	return n, nil
}

// Durations accept Go syntax ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, errors.Wrapf(err, "parse %s", key)
	}
	return d, nil
}
