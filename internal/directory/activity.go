package directory

import (
	"context"

	"github.com/cockroachdb/errors"
)

// LevelWindow is the number of calendar days, today included, that count
// toward a level.
const LevelWindow = 14

// RecordHit counts one interaction of the user today.
func (s *Store) RecordHit(ctx context.Context, userID string) error {
	hit := ActivityHit{UserID: userID, Day: s.today(), Hits: 1}
	_, err := s.db.NewInsert().Model(&hit).
		On("CONFLICT (user_id, date) DO UPDATE").
		Set("hits = hits + 1").
		Returning("NULL").
		Exec(ctx)
	return errors.Wrapf(err, "record hit of %s", userID)
}

// ActiveDays counts the distinct days with a hit among the last window days.
func (s *Store) ActiveDays(ctx context.Context, userID string, window int) (int, error) {
	if window <= 0 {
		return 0, nil
	}
	now := s.now().UTC()
	from := now.AddDate(0, 0, -(window - 1)).Format(dayLayout)
	to := now.Format(dayLayout)

	count, err := s.db.NewSelect().Model((*ActivityHit)(nil)).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Count(ctx)
	return count, errors.Wrapf(err, "count active days of %s", userID)
}

// TotalActiveDays counts every day the user was ever active.
func (s *Store) TotalActiveDays(ctx context.Context, userID string) (int, error) {
	count, err := s.db.NewSelect().Model((*ActivityHit)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	return count, errors.Wrapf(err, "count active days of %s", userID)
}

// Level derives the engagement tier of the user from stored history.
func (s *Store) Level(ctx context.Context, userID string) (Level, error) {
	days, err := s.ActiveDays(ctx, userID, LevelWindow)
	if err != nil {
		return LevelCasual, err
	}
	return LevelFor(days), nil
}

// LevelFor maps a number of active days to a tier.
func LevelFor(activeDays int) Level {
	switch {
	case activeDays >= 5:
		return LevelUltra
	case activeDays >= 2:
		return LevelFan
	default:
		return LevelCasual
	}
}
