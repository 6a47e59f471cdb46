package directory

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"
)

// AddExpertClub declares the user an expert for clubID. It fails with
// ErrExpertHomeClub, ErrExpertExists or ErrExpertLimit, checked in that order.
func (s *Store) AddExpertClub(ctx context.Context, guildID, userID string, clubID int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var homeClub int64
		err := tx.NewSelect().Model((*Profile)(nil)).
			Column("club_id").
			Where("user_id = ? AND guild_id = ?", userID, guildID).
			Scan(ctx, &homeClub)
		if err != nil && !isNoRows(err) {
			return errors.Wrapf(err, "select home club of %s", userID)
		}
		if err == nil && homeClub == clubID {
			return errors.WithHint(ErrExpertHomeClub,
				"You are implicitly an expert for your home club and cannot add it as an expert club.")
		}

		exists, err := tx.NewSelect().Model((*ExpertClub)(nil)).
			Where("guild_id = ? AND user_id = ? AND club_id = ?", guildID, userID, clubID).
			Exists(ctx)
		if err != nil {
			return errors.Wrapf(err, "check expert club %d of %s", clubID, userID)
		}
		if exists {
			return errors.WithHint(ErrExpertExists, "You already marked this club as an expert club.")
		}

		count, err := tx.NewSelect().Model((*ExpertClub)(nil)).
			Where("guild_id = ? AND user_id = ?", guildID, userID).
			Count(ctx)
		if err != nil {
			return errors.Wrapf(err, "count expert clubs of %s", userID)
		}
		if count >= s.expertLimit {
			return expertLimit(s.expertLimit)
		}

		_, err = tx.NewInsert().Model(&ExpertClub{UserID: userID, GuildID: guildID, ClubID: clubID}).Exec(ctx)
		return errors.Wrapf(err, "insert expert club %d of %s", clubID, userID)
	})
}

// RemoveExpertClub reports whether a row was deleted.
func (s *Store) RemoveExpertClub(ctx context.Context, guildID, userID string, clubID int64) (bool, error) {
	res, err := s.db.NewDelete().Model((*ExpertClub)(nil)).
		Where("guild_id = ? AND user_id = ? AND club_id = ?", guildID, userID, clubID).
		Exec(ctx)
	if err != nil {
		return false, errors.Wrapf(err, "delete expert club %d of %s", clubID, userID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

// ExpertUsers lists the experts of a club in the order they signed up.
func (s *Store) ExpertUsers(ctx context.Context, guildID string, clubID int64) ([]string, error) {
	var users []string
	err := s.db.NewSelect().Model((*ExpertClub)(nil)).
		Column("user_id").
		Where("guild_id = ? AND club_id = ?", guildID, clubID).
		OrderExpr("rowid").
		Scan(ctx, &users)
	return users, errors.Wrapf(err, "select experts of club %d", clubID)
}

// ExpertClubNames lists the names of the clubs a user is expert for.
func (s *Store) ExpertClubNames(ctx context.Context, guildID, userID string) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		TableExpr("expert_clubs AS e").
		ColumnExpr("c.name").
		Join("JOIN clubs AS c ON e.club_id = c.id").
		Where("e.guild_id = ? AND e.user_id = ?", guildID, userID).
		OrderExpr("e.rowid").
		Scan(ctx, &names)
	return names, errors.Wrapf(err, "select expert clubs of %s", userID)
}

// AllExpertClubs lists every expert relation of a guild.
func (s *Store) AllExpertClubs(ctx context.Context, guildID string) ([]ExpertClub, error) {
	var experts []ExpertClub
	err := s.db.NewSelect().Model(&experts).
		Where("guild_id = ?", guildID).
		OrderExpr("rowid").
		Scan(ctx)
	return experts, errors.Wrapf(err, "select expert clubs of %s", guildID)
}
