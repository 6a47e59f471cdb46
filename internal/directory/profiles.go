package directory

import (
	"context"

	"github.com/cockroachdb/errors"
)

// SaveProfile sets the home club of a member. Saving again replaces the row,
// including its creation time.
func (s *Store) SaveProfile(ctx context.Context, guildID, userID string, clubID int64) error {
	profile := Profile{
		UserID:    userID,
		GuildID:   guildID,
		ClubID:    clubID,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().Model(&profile).
		On("CONFLICT (user_id, guild_id) DO UPDATE").
		Set("club_id = EXCLUDED.club_id").
		Set("created_at = EXCLUDED.created_at").
		Returning("NULL").
		Exec(ctx)
	return errors.Wrapf(err, "save profile of %s in %s", userID, guildID)
}

// Profile returns the home club row of a member, false when none is set.
func (s *Store) Profile(ctx context.Context, guildID, userID string) (Profile, bool, error) {
	var profile Profile
	err := s.db.NewSelect().Model(&profile).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Scan(ctx)
	if isNoRows(err) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, errors.Wrapf(err, "select profile of %s in %s", userID, guildID)
	}
	return profile, true, nil
}

// ClubMembers lists the users with clubID as home club, oldest first.
func (s *Store) ClubMembers(ctx context.Context, guildID string, clubID int64) ([]string, error) {
	var users []string
	err := s.db.NewSelect().Model((*Profile)(nil)).
		Column("user_id").
		Where("guild_id = ? AND club_id = ?", guildID, clubID).
		OrderExpr("created_at, user_id").
		Scan(ctx, &users)
	return users, errors.Wrapf(err, "select members of club %d", clubID)
}

// Profiles lists every profile of a guild.
func (s *Store) Profiles(ctx context.Context, guildID string) ([]Profile, error) {
	var profiles []Profile
	err := s.db.NewSelect().Model(&profiles).
		Where("guild_id = ?", guildID).
		OrderExpr("created_at, user_id").
		Scan(ctx)
	return profiles, errors.Wrapf(err, "select profiles of %s", guildID)
}
