package directory

import (
	"context"

	"github.com/cockroachdb/errors"
)

// GetOrCreateLeague finds a league by name and country, creating it with the
// given tier when it does not exist yet. An existing league keeps its tier.
func (s *Store) GetOrCreateLeague(ctx context.Context, name, country string, tier int) (int64, error) {
	league := League{Name: name, Country: country, Tier: tier}
	_, err := s.db.NewInsert().Model(&league).
		Column("name", "country", "tier").
		On("CONFLICT (name, country) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "insert league %s (%s)", name, country)
	}
	var id int64
	err = s.db.NewSelect().Model((*League)(nil)).
		Column("id").
		Where("name = ? AND country = ?", name, country).
		Scan(ctx, &id)
	if err != nil {
		return 0, errors.Wrapf(err, "select league %s (%s)", name, country)
	}
	return id, nil
}

func (s *Store) UpdateLeagueTier(ctx context.Context, leagueID int64, tier int) error {
	_, err := s.db.NewUpdate().Model((*League)(nil)).
		Set("tier = ?", tier).
		Where("id = ?", leagueID).
		Exec(ctx)
	return errors.Wrapf(err, "update tier of league %d", leagueID)
}

// SetLeagueLogo stores a logo suffix or url for a league. Empty values are ignored.
func (s *Store) SetLeagueLogo(ctx context.Context, leagueID int64, logo, flag string) error {
	q := s.db.NewUpdate().Model((*League)(nil)).Where("id = ?", leagueID)
	changed := false
	if logo != "" {
		q = q.Set("logo = ?", logo)
		changed = true
	}
	if flag != "" {
		q = q.Set("flag = ?", flag)
		changed = true
	}
	if !changed {
		return nil
	}
	_, err := q.Exec(ctx)
	return errors.Wrapf(err, "update logo of league %d", leagueID)
}

// LeaguesByCountry lists league names of a country, top tier first.
func (s *Store) LeaguesByCountry(ctx context.Context, country string) ([]string, error) {
	var names []string
	err := s.db.NewSelect().Model((*League)(nil)).
		Column("name").
		Where("country = ?", country).
		OrderExpr("tier, name").
		Scan(ctx, &names)
	return names, errors.Wrapf(err, "select leagues of %s", country)
}

// Countries lists every country that has at least one league.
func (s *Store) Countries(ctx context.Context) ([]string, error) {
	var countries []string
	err := s.db.NewSelect().Model((*League)(nil)).
		ColumnExpr("DISTINCT country").
		OrderExpr("country").
		Scan(ctx, &countries)
	return countries, errors.Wrap(err, "select countries")
}
