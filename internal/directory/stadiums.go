package directory

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"
)

// StadiumPatch carries the incoming stadium fields. Zero values mean "not
// given" and never overwrite stored data.
type StadiumPatch struct {
	ImageURL string
	PlanURL  string
	Capacity int
	Built    int
	Blocks   string
	Access   string
}

// StadiumUpdate reports what UpdateStadium did, field by field.
type StadiumUpdate struct {
	NotFound     bool
	Set          []string
	Overwritten  []string
	Unchanged    []string
	SkippedEmpty []string
}

// Changed is true when at least one column was written.
func (u StadiumUpdate) Changed() bool {
	return len(u.Set)+len(u.Overwritten) > 0
}

func (s *Store) GetOrCreateStadium(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("stadium name is empty")
	}
	_, err := s.db.NewInsert().Model(&Stadium{Name: name}).
		Column("name").
		On("CONFLICT (name) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "insert stadium %q", name)
	}
	var id int64
	err = s.db.NewSelect().Model((*Stadium)(nil)).
		Column("id").
		Where("name = ?", name).
		Scan(ctx, &id)
	return id, errors.Wrapf(err, "select stadium %q", name)
}

// Stadium loads a stadium by name.
func (s *Store) Stadium(ctx context.Context, name string) (Stadium, bool, error) {
	var stadium Stadium
	err := s.db.NewSelect().Model(&stadium).Where("name = ?", name).Scan(ctx)
	if isNoRows(err) {
		return Stadium{}, false, nil
	}
	if err != nil {
		return Stadium{}, false, errors.Wrapf(err, "select stadium %q", name)
	}
	return stadium, true, nil
}

// UpdateStadium applies patch to the named stadium. Blank incoming fields are
// skipped, so existing values are never erased.
func (s *Store) UpdateStadium(ctx context.Context, name string, patch StadiumPatch) (StadiumUpdate, error) {
	var report StadiumUpdate
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var current Stadium
		err := tx.NewSelect().Model(&current).Where("name = ?", name).Scan(ctx)
		if isNoRows(err) {
			report.NotFound = true
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "select stadium %q", name)
		}

		q := tx.NewUpdate().Model((*Stadium)(nil)).Where("id = ?", current.ID)
		apply := func(column, stored, incoming string, value any) {
			switch {
			case incoming == "":
				report.SkippedEmpty = append(report.SkippedEmpty, column)
			case stored == incoming:
				report.Unchanged = append(report.Unchanged, column)
			case stored == "":
				report.Set = append(report.Set, column)
				q = q.Set(column+" = ?", value)
			default:
				report.Overwritten = append(report.Overwritten, column)
				q = q.Set(column+" = ?", value)
			}
		}
		patch.ImageURL = strings.TrimSpace(patch.ImageURL)
		patch.PlanURL = strings.TrimSpace(patch.PlanURL)
		patch.Blocks = strings.TrimSpace(patch.Blocks)
		patch.Access = strings.TrimSpace(patch.Access)

		apply("image_url", current.ImageURL, patch.ImageURL, patch.ImageURL)
		apply("plan_url", current.PlanURL, patch.PlanURL, patch.PlanURL)
		apply("capacity", intText(current.Capacity), intText(patch.Capacity), patch.Capacity)
		apply("built", intText(current.Built), intText(patch.Built), patch.Built)
		apply("blocks", current.Blocks, patch.Blocks, patch.Blocks)
		apply("access", current.Access, patch.Access, patch.Access)

		if !report.Changed() {
			return nil
		}
		_, err = q.Exec(ctx)
		return errors.Wrapf(err, "update stadium %q", name)
	})
	return report, err
}

func intText(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
