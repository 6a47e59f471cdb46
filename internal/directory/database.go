// Package directory is the persistent club directory: leagues, clubs,
// stadiums, member profiles, tags, activity, expert clubs and membership
// applications, stored in a single SQLite file.
package directory

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// DefaultExpertClubLimit is how many expert clubs a member may declare.
const DefaultExpertClubLimit = 10

type Options struct {
	ExpertClubLimit int
	// Now is the clock used for timestamps and activity days.
	Now func() time.Time
}

type Store struct {
	db          *bun.DB
	expertLimit int
	now         func() time.Time
}

// Open opens (creating if needed) the database file and brings its schema up
// to date.
func Open(ctx context.Context, filename string, opts Options) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+filename)
	if err != nil {
		return nil, errors.Wrapf(err, "open database %s", filename)
	}
	// SQLite allows one writer; a single connection avoids "database is locked"
	sqldb.SetMaxOpenConns(1)

	store := &Store{
		db:          bun.NewDB(sqldb, sqlitedialect.New()),
		expertLimit: opts.ExpertClubLimit,
		now:         opts.Now,
	}
	if store.expertLimit <= 0 {
		store.expertLimit = DefaultExpertClubLimit
	}
	if store.now == nil {
		store.now = time.Now
	}

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := store.db.ExecContext(ctx, pragma); err != nil {
			_ = store.Close()
			return nil, errors.Wrapf(err, "%s", pragma)
		}
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Info().Str("database", filename).Msg("Database initialized")
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the bun handle to the offline tools.
func (s *Store) DB() *bun.DB {
	return s.db
}

// ExpertClubLimit is the configured cap of expert clubs per member.
func (s *Store) ExpertClubLimit() int {
	return s.expertLimit
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates missing tables, then adds the columns older databases lack,
// then fills derived columns. Running it twice changes nothing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errors.Wrap(err, "create tables")
	}
	for _, table := range expectedColumns {
		existing, err := s.columns(ctx, table.table)
		if err != nil {
			return err
		}
		for _, col := range table.columns {
			if _, ok := existing[col.name]; ok {
				continue
			}
			query := "ALTER TABLE " + table.table + " ADD COLUMN " + col.name + " " + col.definition
			if _, err := s.db.ExecContext(ctx, query); err != nil {
				return errors.Wrapf(err, "add column %s.%s", table.table, col.name)
			}
			log.Info().Str("table", table.table).Str("column", col.name).Msg("Added missing column")
		}
	}
	return s.backfillFoldedNames(ctx)
}

func (s *Store) columns(ctx context.Context, table string) (map[string]struct{}, error) {
	var names []string
	if err := s.db.NewRaw("SELECT name FROM pragma_table_info(?)", table).Scan(ctx, &names); err != nil {
		return nil, errors.Wrapf(err, "read columns of %s", table)
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

func (s *Store) backfillFoldedNames(ctx context.Context) error {
	var clubs []Club
	err := s.db.NewSelect().Model(&clubs).
		Column("id", "name").
		Where("name_folded IS NULL OR name_folded = ''").
		Scan(ctx)
	if err != nil {
		return errors.Wrap(err, "select clubs without folded name")
	}
	for _, club := range clubs {
		_, err := s.db.NewUpdate().Model((*Club)(nil)).
			Set("name_folded = ?", Fold(club.Name)).
			Where("id = ?", club.ID).
			Exec(ctx)
		if err != nil {
			return errors.Wrapf(err, "fold name of club %d", club.ID)
		}
	}
	if len(clubs) > 0 {
		log.Info().Int("clubs", len(clubs)).Msg("Back-filled folded club names")
	}
	return nil
}

func (s *Store) today() string {
	return s.now().UTC().Format(dayLayout)
}

const dayLayout = "2006-01-02"

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
