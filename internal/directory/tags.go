package directory

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"
)

// ParseTags splits a comma separated list, dropping blanks.
func ParseTags(text string) []string {
	var tags []string
	for _, tag := range strings.Split(text, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Tags returns the tags of a user in insertion order.
func (s *Store) Tags(ctx context.Context, userID string) ([]string, error) {
	return s.tags(ctx, s.db, userID)
}

func (s *Store) tags(ctx context.Context, db bun.IDB, userID string) ([]string, error) {
	var tags []string
	err := db.NewSelect().Model((*Tag)(nil)).
		Column("tag").
		Where("user_id = ?", userID).
		OrderExpr("id").
		Scan(ctx, &tags)
	return tags, errors.Wrapf(err, "select tags of %s", userID)
}

// SaveTags replaces every tag of the user.
func (s *Store) SaveTags(ctx context.Context, userID string, tags []string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().Model((*Tag)(nil)).Where("user_id = ?", userID).Exec(ctx)
		if err != nil {
			return errors.Wrapf(err, "delete tags of %s", userID)
		}
		return s.insertTags(ctx, tx, userID, tags, nil)
	})
}

// AddTags appends the tags the user does not carry yet.
func (s *Store) AddTags(ctx context.Context, userID string, tags []string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.tags(ctx, tx, userID)
		if err != nil {
			return err
		}
		return s.insertTags(ctx, tx, userID, tags, existing)
	})
}

func (s *Store) insertTags(ctx context.Context, tx bun.Tx, userID string, tags, existing []string) error {
	seen := make(map[string]struct{}, len(existing)+len(tags))
	for _, tag := range existing {
		seen[tag] = struct{}{}
	}
	var rows []Tag
	now := s.now().UTC()
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		rows = append(rows, Tag{UserID: userID, Tag: tag, CreatedAt: now})
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := tx.NewInsert().Model(&rows).Returning("NULL").Exec(ctx)
	return errors.Wrapf(err, "insert tags of %s", userID)
}

// AllTags lists every distinct tag, alphabetically.
func (s *Store) AllTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := s.db.NewSelect().Model((*Tag)(nil)).
		ColumnExpr("DISTINCT tag").
		OrderExpr("tag").
		Scan(ctx, &tags)
	return tags, errors.Wrap(err, "select all tags")
}
