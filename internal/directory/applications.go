package directory

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"
)

var ErrApplicationPending = errors.New("application already pending")

// CreateApplication stores a new application valid for ttl. An expired
// application of the same member is replaced; a live one is kept and
// ErrApplicationPending is returned.
func (s *Store) CreateApplication(ctx context.Context, guildID, userID, answers string, ttl time.Duration) (Application, error) {
	now := s.now().UTC()
	app := Application{
		UserID:    userID,
		GuildID:   guildID,
		Answers:   answers,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var current Application
		err := tx.NewSelect().Model(&current).
			Where("user_id = ? AND guild_id = ?", userID, guildID).
			Scan(ctx)
		switch {
		case err == nil && !current.Expired(now):
			return errors.WithHint(ErrApplicationPending, "Your application is already waiting for a decision.")
		case err != nil && !isNoRows(err):
			return errors.Wrapf(err, "select application of %s", userID)
		}
		_, err = tx.NewInsert().Model(&app).
			On("CONFLICT (user_id, guild_id) DO UPDATE").
			Set("answers = EXCLUDED.answers").
			Set("review_channel_id = NULL").
			Set("review_message_id = NULL").
			Set("created_at = EXCLUDED.created_at").
			Set("expires_at = EXCLUDED.expires_at").
			Returning("NULL").
			Exec(ctx)
		return errors.Wrapf(err, "insert application of %s", userID)
	})
	if err != nil {
		return Application{}, err
	}
	return app, nil
}

// Application loads the application of a member, returning
// ErrApplicationNotFound when there is none.
func (s *Store) Application(ctx context.Context, guildID, userID string) (Application, error) {
	var app Application
	err := s.db.NewSelect().Model(&app).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Scan(ctx)
	if isNoRows(err) {
		return Application{}, errors.WithHint(ErrApplicationNotFound, "This application no longer exists.")
	}
	if err != nil {
		return Application{}, errors.Wrapf(err, "select application of %s", userID)
	}
	return app, nil
}

// AttachReviewMessage remembers where the application was posted for review.
func (s *Store) AttachReviewMessage(ctx context.Context, guildID, userID, channelID, messageID string) error {
	res, err := s.db.NewUpdate().Model((*Application)(nil)).
		Set("review_channel_id = ?", channelID).
		Set("review_message_id = ?", messageID).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "attach review message of %s", userID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// ClearApplication deletes the application, reporting whether one existed.
func (s *Store) ClearApplication(ctx context.Context, guildID, userID string) (bool, error) {
	res, err := s.db.NewDelete().Model((*Application)(nil)).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Exec(ctx)
	if err != nil {
		return false, errors.Wrapf(err, "clear application of %s", userID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}
