package directory

// Schema is the DDL of the directory tables. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS leagues (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    name    TEXT NOT NULL,
    country TEXT NOT NULL,
    logo    TEXT,
    tier    INTEGER NOT NULL DEFAULT 99,
    UNIQUE(name, country)
);

CREATE TABLE IF NOT EXISTS stadiums (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS clubs (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    name      TEXT NOT NULL UNIQUE,
    league_id INTEGER REFERENCES leagues(id),
    logo      TEXT,
    flag      TEXT
);

CREATE TABLE IF NOT EXISTS user_profiles (
    user_id    TEXT NOT NULL,
    guild_id   TEXT NOT NULL,
    club_id    INTEGER NOT NULL REFERENCES clubs(id),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, guild_id)
);

CREATE TABLE IF NOT EXISTS tags (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    TEXT NOT NULL,
    tag        TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS activity (
    user_id TEXT NOT NULL,
    date    TEXT NOT NULL,
    hits    INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (user_id, date)
);

CREATE TABLE IF NOT EXISTS expert_clubs (
    user_id  TEXT NOT NULL,
    guild_id TEXT NOT NULL,
    club_id  INTEGER NOT NULL REFERENCES clubs(id),
    PRIMARY KEY (user_id, guild_id, club_id)
);

CREATE TABLE IF NOT EXISTS applications (
    user_id    TEXT NOT NULL,
    guild_id   TEXT NOT NULL,
    answers    TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, guild_id)
);

CREATE INDEX IF NOT EXISTS idx_user_profiles_club ON user_profiles(guild_id, club_id);
CREATE INDEX IF NOT EXISTS idx_tags_user ON tags(user_id);
CREATE INDEX IF NOT EXISTS idx_expert_clubs_club ON expert_clubs(guild_id, club_id);
`

// column is one column the current code expects. Columns listed here are
// added to older databases that were created before they existed.
type column struct {
	name       string
	definition string
}

var expectedColumns = []struct {
	table   string
	columns []column
}{
	{"leagues", []column{
		{"logo", "TEXT"},
		{"flag", "TEXT"},
		{"tier", "INTEGER NOT NULL DEFAULT 99"},
	}},
	{"stadiums", []column{
		{"image_url", "TEXT"},
		{"plan_url", "TEXT"},
		{"capacity", "INTEGER"},
		{"built", "INTEGER"},
		{"blocks", "TEXT"},
		{"access", "TEXT"},
	}},
	{"clubs", []column{
		{"name_folded", "TEXT"},
		{"stadium_id", "INTEGER REFERENCES stadiums(id)"},
		{"logo", "TEXT"},
		{"flag", "TEXT"},
		{"color", "TEXT"},
		{"ticket_notes", "TEXT"},
		{"ticket_url", "TEXT"},
		{"ticket_price", "TEXT"},
	}},
	{"user_profiles", []column{
		{"created_at", "TIMESTAMP"},
	}},
	{"tags", []column{
		{"created_at", "TIMESTAMP"},
	}},
	{"applications", []column{
		{"review_channel_id", "TEXT"},
		{"review_message_id", "TEXT"},
	}},
}
