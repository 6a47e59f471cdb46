package directory

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/uptrace/bun"
)

// ClubIDByName is the exact, case sensitive lookup. Returns false when no club
// has that name.
func (s *Store) ClubIDByName(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := s.db.NewSelect().Model((*Club)(nil)).
		Column("id").
		Where("name = ?", name).
		Limit(1).
		Scan(ctx, &id)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "select club %q", name)
	}
	return id, true, nil
}

// GetOrCreateClub returns the id of the club with exactly that name, creating
// it without a league when missing. needsLeague is true when the club has no
// league attached, whether it was just created or not.
func (s *Store) GetOrCreateClub(ctx context.Context, name string) (id int64, needsLeague bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, errors.New("club name is empty")
	}
	var club Club
	err = s.db.NewSelect().Model(&club).
		Column("id", "league_id").
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return club.ID, !club.LeagueID.Valid, nil
	}
	if !isNoRows(err) {
		return 0, false, errors.Wrapf(err, "select club %q", name)
	}

	club = Club{Name: name, NameFolded: Fold(name)}
	res, err := s.db.NewInsert().Model(&club).
		Column("name", "name_folded").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return 0, false, errors.Wrapf(err, "insert club %q", name)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, false, errors.Wrap(err, "read club id")
	}
	return id, true, nil
}

// SearchClubs is the fuzzy lookup: accent and case insensitive substring
// match over club names.
func (s *Store) SearchClubs(ctx context.Context, query string, limit int) ([]ClubMatch, error) {
	var matches []ClubMatch
	err := s.db.NewSelect().Model((*Club)(nil)).
		Column("id", "name").
		Where(`name_folded LIKE ? ESCAPE '\'`, likePattern(query)).
		OrderExpr("name").
		Limit(limit).
		Scan(ctx, &matches)
	return matches, errors.Wrapf(err, "search clubs like %q", query)
}

func clubInfoQuery(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().
		TableExpr("clubs AS c").
		ColumnExpr("c.id, c.name, c.logo, c.flag, c.color").
		ColumnExpr("c.ticket_notes, c.ticket_url, c.ticket_price").
		ColumnExpr("c.league_id, l.name AS league_name, l.country, l.tier, l.logo AS league_logo, l.flag AS league_flag").
		ColumnExpr("c.stadium_id, s.name AS stadium_name").
		Join("LEFT JOIN leagues AS l ON c.league_id = l.id").
		Join("LEFT JOIN stadiums AS s ON c.stadium_id = s.id")
}

// ClubInfo returns the club joined with league and stadium. Returns false when
// the club does not exist.
func (s *Store) ClubInfo(ctx context.Context, clubID int64) (ClubInfo, bool, error) {
	var info ClubInfo
	err := clubInfoQuery(s.db).Where("c.id = ?", clubID).Scan(ctx, &info)
	if isNoRows(err) {
		return ClubInfo{}, false, nil
	}
	if err != nil {
		return ClubInfo{}, false, errors.Wrapf(err, "select club info %d", clubID)
	}
	return info, true, nil
}

// ClubsInfo loads several clubs at once, keyed by id.
func (s *Store) ClubsInfo(ctx context.Context, clubIDs []int64) (map[int64]ClubInfo, error) {
	out := make(map[int64]ClubInfo, len(clubIDs))
	if len(clubIDs) == 0 {
		return out, nil
	}
	var infos []ClubInfo
	if err := clubInfoQuery(s.db).Where("c.id IN (?)", bun.In(clubIDs)).Scan(ctx, &infos); err != nil {
		return nil, errors.Wrap(err, "select clubs info")
	}
	for _, info := range infos {
		out[info.ID] = info
	}
	return out, nil
}

// ClubsByCountry lists club names of a country. Clubs without a league are
// included, so that freshly created clubs can still be picked.
func (s *Store) ClubsByCountry(ctx context.Context, country string) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		TableExpr("clubs AS c").
		ColumnExpr("c.name").
		Join("LEFT JOIN leagues AS l ON c.league_id = l.id").
		Where("l.country = ? OR l.country IS NULL", country).
		OrderExpr("c.name").
		Scan(ctx, &names)
	return names, errors.Wrapf(err, "select clubs of %s", country)
}

// ClubsByCountryAndLeague lists club names of one league, plus unassigned clubs.
func (s *Store) ClubsByCountryAndLeague(ctx context.Context, country, league string) ([]string, error) {
	var names []string
	err := s.db.NewSelect().
		TableExpr("clubs AS c").
		ColumnExpr("c.name").
		Join("LEFT JOIN leagues AS l ON c.league_id = l.id").
		Where("(l.country = ? OR l.country IS NULL) AND (l.name = ? OR l.name IS NULL)", country, league).
		OrderExpr("c.name").
		Scan(ctx, &names)
	return names, errors.Wrapf(err, "select clubs of %s / %s", country, league)
}

// ClubIDsByCountryAndTier is the natural roster order of clubs attached to a
// league: by country, then tier, then club id.
func (s *Store) ClubIDsByCountryAndTier(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		TableExpr("clubs AS c").
		ColumnExpr("c.id").
		Join("JOIN leagues AS l ON c.league_id = l.id").
		Where("l.country IS NOT NULL AND l.country != ''").
		OrderExpr("l.country, l.tier, l.name, c.id").
		Scan(ctx, &ids)
	return ids, errors.Wrap(err, "select club order")
}

// ClubsWithoutLogo lists clubs whose logo is missing.
func (s *Store) ClubsWithoutLogo(ctx context.Context) ([]ClubMatch, error) {
	var clubs []ClubMatch
	err := s.db.NewSelect().Model((*Club)(nil)).
		Column("id", "name").
		Where("logo IS NULL OR logo = ''").
		OrderExpr("id").
		Scan(ctx, &clubs)
	return clubs, errors.Wrap(err, "select clubs without logo")
}

func (s *Store) updateClub(ctx context.Context, clubID int64, what string, set func(q *bun.UpdateQuery) *bun.UpdateQuery) error {
	res, err := set(s.db.NewUpdate().Model((*Club)(nil))).
		Where("id = ?", clubID).
		Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "update %s of club %d", what, clubID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrClubNotFound, "club %d", clubID)
	}
	return nil
}

func (s *Store) SetClubLeague(ctx context.Context, clubID, leagueID int64) error {
	return s.updateClub(ctx, clubID, "league", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("league_id = ?", leagueID)
	})
}

// ClearClubLeague puts a club back into the unassigned state.
func (s *Store) ClearClubLeague(ctx context.Context, clubID int64) error {
	return s.updateClub(ctx, clubID, "league", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("league_id = NULL")
	})
}

func (s *Store) SetClubLogo(ctx context.Context, clubID int64, logo string) error {
	return s.updateClub(ctx, clubID, "logo", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("logo = ?", logo)
	})
}

func (s *Store) SetClubFlag(ctx context.Context, clubID int64, flag string) error {
	return s.updateClub(ctx, clubID, "flag", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("flag = ?", flag)
	})
}

// SetClubColor stores a colour as six upper case hex digits.
func (s *Store) SetClubColor(ctx context.Context, clubID int64, color string) error {
	normalized, ok := NormalizeColor(color)
	if !ok {
		return errors.Newf("invalid colour %q", color)
	}
	return s.updateClub(ctx, clubID, "color", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("color = ?", normalized)
	})
}

func (s *Store) SetClubTicketing(ctx context.Context, clubID int64, url, notes, price string) error {
	return s.updateClub(ctx, clubID, "ticketing", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("ticket_url = ?", nullIfEmpty(url)).
			Set("ticket_notes = ?", nullIfEmpty(notes)).
			Set("ticket_price = ?", nullIfEmpty(price))
	})
}

func (s *Store) SetClubStadium(ctx context.Context, clubID, stadiumID int64) error {
	return s.updateClub(ctx, clubID, "stadium", func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("stadium_id = ?", stadiumID)
	})
}

// NormalizeColor accepts "#ff0000", "0xFF0000" or "ff0000" and returns "FF0000".
func NormalizeColor(color string) (string, bool) {
	c := strings.TrimSpace(color)
	c = strings.TrimPrefix(c, "#")
	if len(c) > 2 && strings.EqualFold(c[:2], "0x") {
		c = c[2:]
	}
	c = strings.ToUpper(c)
	if len(c) != 6 {
		return "", false
	}
	for _, r := range c {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return "", false
		}
	}
	return c, true
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
