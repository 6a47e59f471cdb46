package directory

import (
	"context"
	"strings"
)

const (
	// SearchLimit caps the fuzzy lookup.
	SearchLimit = 10
	// AmbiguityLimit is the largest number of fuzzy hits listed back to the
	// user; more than that is "too many".
	AmbiguityLimit = 5
)

// Resolution is a resolved club reference.
type Resolution struct {
	ClubID int64
	Name   string
	// Exact is true when the name matched without fuzzy search.
	Exact bool
}

// Resolver turns free text into a club.
type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve tries the exact name first, then an accent and case insensitive
// substring search. It fails with ErrClubNotFound, ErrTooManyMatches or an
// *AmbiguousError.
func (r *Resolver) Resolve(ctx context.Context, query string) (Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Resolution{}, notFound(query)
	}
	id, ok, err := r.store.ClubIDByName(ctx, query)
	if err != nil {
		return Resolution{}, err
	}
	if ok {
		return Resolution{ClubID: id, Name: query, Exact: true}, nil
	}

	matches, err := r.store.SearchClubs(ctx, query, SearchLimit)
	if err != nil {
		return Resolution{}, err
	}
	switch {
	case len(matches) == 0:
		return Resolution{}, notFound(query)
	case len(matches) > AmbiguityLimit:
		return Resolution{}, tooMany(query)
	case len(matches) == 1:
		return Resolution{ClubID: matches[0].ID, Name: matches[0].Name}, nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	return Resolution{}, ambiguous(query, names)
}

// GetOrCreate returns the club with exactly this name, creating it if needed.
// needsLeague tells the caller the club is still unassigned.
func (r *Resolver) GetOrCreate(ctx context.Context, name string) (clubID int64, needsLeague bool, err error) {
	return r.store.GetOrCreateClub(ctx, name)
}

// UpdateLeague attaches the club to the league (name, country), creating the
// league if needed. The tier is always overwritten.
func (r *Resolver) UpdateLeague(ctx context.Context, clubID int64, league, country string, tier int) (int64, error) {
	leagueID, err := r.store.GetOrCreateLeague(ctx, league, country, tier)
	if err != nil {
		return 0, err
	}
	if err := r.store.UpdateLeagueTier(ctx, leagueID, tier); err != nil {
		return 0, err
	}
	if err := r.store.SetClubLeague(ctx, clubID, leagueID); err != nil {
		return 0, err
	}
	return leagueID, nil
}
