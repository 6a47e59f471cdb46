package directory

import (
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// UnrankedTier is the tier of a league nobody ranked yet. It sorts last.
const UnrankedTier = 99

// Level is the engagement tier derived from recent activity.
type Level string

const (
	LevelCasual Level = "Casual"
	LevelFan    Level = "Fan"
	LevelUltra  Level = "Ultra"
)

type League struct {
	bun.BaseModel `bun:"table:leagues,alias:l"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Name    string `bun:"name,notnull"`
	Country string `bun:"country,notnull"`
	Logo    string `bun:"logo,nullzero"`
	Flag    string `bun:"flag,nullzero"`
	Tier    int    `bun:"tier,notnull"`
}

type Club struct {
	bun.BaseModel `bun:"table:clubs,alias:c"`

	ID          int64         `bun:"id,pk,autoincrement"`
	Name        string        `bun:"name,notnull"`
	NameFolded  string        `bun:"name_folded,nullzero"`
	LeagueID    sql.NullInt64 `bun:"league_id"`
	StadiumID   sql.NullInt64 `bun:"stadium_id"`
	Logo        string        `bun:"logo,nullzero"`
	Flag        string        `bun:"flag,nullzero"`
	Color       string        `bun:"color,nullzero"`
	TicketNotes string        `bun:"ticket_notes,nullzero"`
	TicketURL   string        `bun:"ticket_url,nullzero"`
	TicketPrice string        `bun:"ticket_price,nullzero"`
}

type Stadium struct {
	bun.BaseModel `bun:"table:stadiums,alias:s"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"name,notnull"`
	ImageURL string `bun:"image_url,nullzero"`
	PlanURL  string `bun:"plan_url,nullzero"`
	Capacity int    `bun:"capacity,nullzero"`
	Built    int    `bun:"built,nullzero"`
	Blocks   string `bun:"blocks,nullzero"`
	Access   string `bun:"access,nullzero"`
}

// Profile is a member's home club in one guild.
type Profile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:p"`

	UserID    string    `bun:"user_id,pk"`
	GuildID   string    `bun:"guild_id,pk"`
	ClubID    int64     `bun:"club_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Tag       string    `bun:"tag,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// ActivityHit counts the interactions of a user on one UTC day.
type ActivityHit struct {
	bun.BaseModel `bun:"table:activity,alias:a"`

	UserID string `bun:"user_id,pk"`
	Day    string `bun:"date,pk"`
	Hits   int    `bun:"hits,notnull"`
}

type ExpertClub struct {
	bun.BaseModel `bun:"table:expert_clubs,alias:e"`

	UserID  string `bun:"user_id,pk"`
	GuildID string `bun:"guild_id,pk"`
	ClubID  int64  `bun:"club_id,pk"`
}

// Application is a pending membership request.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:ap"`

	UserID          string    `bun:"user_id,pk"`
	GuildID         string    `bun:"guild_id,pk"`
	Answers         string    `bun:"answers,notnull"`
	ReviewChannelID string    `bun:"review_channel_id,nullzero"`
	ReviewMessageID string    `bun:"review_message_id,nullzero"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	ExpiresAt       time.Time `bun:"expires_at,notnull"`
}

// Expired reports whether the application can no longer be decided.
func (a Application) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// ClubInfo is a club joined with its league and stadium, as displayed.
// League fields are empty for an unassigned club.
type ClubInfo struct {
	ID          int64          `bun:"id"`
	Name        string         `bun:"name"`
	Logo        string         `bun:"logo"`
	Flag        string         `bun:"flag"`
	Color       string         `bun:"color"`
	TicketNotes string         `bun:"ticket_notes"`
	TicketURL   string         `bun:"ticket_url"`
	TicketPrice string         `bun:"ticket_price"`
	LeagueID    sql.NullInt64  `bun:"league_id"`
	LeagueName  sql.NullString `bun:"league_name"`
	Country     sql.NullString `bun:"country"`
	Tier        sql.NullInt64  `bun:"tier"`
	LeagueLogo  sql.NullString `bun:"league_logo"`
	LeagueFlag  sql.NullString `bun:"league_flag"`
	StadiumID   sql.NullInt64  `bun:"stadium_id"`
	StadiumName sql.NullString `bun:"stadium_name"`
}

// HasLeague is false for clubs nobody attached to a league yet, or whose
// league has no country. Both count as unassigned.
func (c ClubInfo) HasLeague() bool {
	return c.LeagueName.Valid && c.LeagueName.String != "" && c.Country.Valid && c.Country.String != ""
}

// TierOrUnranked is the league tier, or UnrankedTier.
func (c ClubInfo) TierOrUnranked() int {
	if !c.Tier.Valid {
		return UnrankedTier
	}
	return int(c.Tier.Int64)
}

// ClubMatch is one fuzzy search hit.
type ClubMatch struct {
	ID   int64  `bun:"id"`
	Name string `bun:"name"`
}
