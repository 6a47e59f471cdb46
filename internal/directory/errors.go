package directory

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrClubNotFound   = errors.New("club not found")
	ErrTooManyMatches = errors.New("entry matches too many clubs")
	ErrAmbiguousMatch = errors.New("multiple clubs match")

	ErrExpertHomeClub = errors.New("home club cannot be an expert club")
	ErrExpertExists   = errors.New("expert club already added")
	ErrExpertLimit    = errors.New("expert club limit reached")

	ErrApplicationNotFound = errors.New("application not found")
	ErrStadiumNotFound     = errors.New("stadium not found")
)

// AmbiguousError is returned by the resolver when a query matches a handful
// of clubs. It matches ErrAmbiguousMatch with errors.Is.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return "multiple clubs match " + e.Query + ": " + strings.Join(e.Candidates, ", ")
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousMatch
}

func notFound(query string) error {
	return errors.WithHintf(errors.Wrapf(ErrClubNotFound, "%q", query),
		"No club matches '%s'.", query)
}

func tooMany(query string) error {
	return errors.WithHintf(errors.Wrapf(ErrTooManyMatches, "%q", query),
		"'%s' matches too many clubs, please be more specific.", query)
}

func ambiguous(query string, candidates []string) error {
	return errors.WithHintf(&AmbiguousError{Query: query, Candidates: candidates},
		"Multiple clubs match: %s. Please be more specific.", strings.Join(candidates, ", "))
}

func expertLimit(limit int) error {
	return errors.WithHintf(ErrExpertLimit,
		"You can mark up to %d expert clubs. Remove one first.", limit)
}

// UserMessage is the text shown to a member for err: the first hint when one
// is attached, the error itself otherwise.
func UserMessage(err error) string {
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		return hints[0]
	}
	return err.Error()
}
