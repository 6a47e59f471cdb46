package directory

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML document accepted by Import.
type Seed struct {
	Stadiums []SeedStadium `yaml:"stadiums"`
	Leagues  []SeedLeague  `yaml:"leagues"`
}

type SeedStadium struct {
	Name     string `yaml:"name"`
	ImageURL string `yaml:"image_url"`
	PlanURL  string `yaml:"plan_url"`
	Capacity int    `yaml:"capacity"`
	Built    int    `yaml:"built"`
	Blocks   string `yaml:"blocks"`
	Access   string `yaml:"access"`
}

type SeedLeague struct {
	Name    string     `yaml:"name"`
	Country string     `yaml:"country"`
	Tier    int        `yaml:"tier"`
	Logo    string     `yaml:"logo"`
	Flag    string     `yaml:"flag"`
	Clubs   []SeedClub `yaml:"clubs"`
}

type SeedClub struct {
	Name        string `yaml:"name"`
	Logo        string `yaml:"logo"`
	Flag        string `yaml:"flag"`
	Color       string `yaml:"color"`
	Stadium     string `yaml:"stadium"`
	TicketURL   string `yaml:"ticket_url"`
	TicketNotes string `yaml:"ticket_notes"`
	TicketPrice string `yaml:"ticket_price"`
}

// ImportReport counts what an import touched.
type ImportReport struct {
	Stadiums int
	Leagues  int
	Clubs    int
}

func DecodeSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, errors.Wrap(err, "decode seed")
	}
	for i, league := range seed.Leagues {
		if strings.TrimSpace(league.Name) == "" || strings.TrimSpace(league.Country) == "" {
			return Seed{}, errors.Newf("league #%d needs a name and a country", i+1)
		}
		if league.Tier <= 0 {
			seed.Leagues[i].Tier = UnrankedTier
		}
	}
	return seed, nil
}

func LoadSeed(filename string) (Seed, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Seed{}, errors.Wrapf(err, "read seed %s", filename)
	}
	return DecodeSeed(data)
}

// Import loads a seed through the regular get-or-create paths, so it can be
// run again on a populated database. Stadium fields follow the partial update
// rules: blank values keep what is stored.
func (s *Store) Import(ctx context.Context, seed Seed) (ImportReport, error) {
	var report ImportReport
	for _, stadium := range seed.Stadiums {
		if err := s.importStadium(ctx, stadium); err != nil {
			return report, err
		}
		report.Stadiums++
	}

	resolver := NewResolver(s)
	for _, league := range seed.Leagues {
		var leagueID int64
		for _, club := range league.Clubs {
			clubID, _, err := resolver.GetOrCreate(ctx, club.Name)
			if err != nil {
				return report, err
			}
			if leagueID, err = resolver.UpdateLeague(ctx, clubID, league.Name, league.Country, league.Tier); err != nil {
				return report, err
			}
			if err := s.importClub(ctx, clubID, club); err != nil {
				return report, err
			}
			report.Clubs++
		}
		if leagueID == 0 {
			id, err := s.GetOrCreateLeague(ctx, league.Name, league.Country, league.Tier)
			if err != nil {
				return report, err
			}
			if err := s.UpdateLeagueTier(ctx, id, league.Tier); err != nil {
				return report, err
			}
			leagueID = id
		}
		if err := s.SetLeagueLogo(ctx, leagueID, league.Logo, league.Flag); err != nil {
			return report, err
		}
		report.Leagues++
	}
	log.Info().Int("stadiums", report.Stadiums).Int("leagues", report.Leagues).Int("clubs", report.Clubs).Msg("Seed imported")
	return report, nil
}

func (s *Store) importStadium(ctx context.Context, stadium SeedStadium) error {
	if _, err := s.GetOrCreateStadium(ctx, stadium.Name); err != nil {
		return err
	}
	_, err := s.UpdateStadium(ctx, strings.TrimSpace(stadium.Name), StadiumPatch{
		ImageURL: stadium.ImageURL,
		PlanURL:  stadium.PlanURL,
		Capacity: stadium.Capacity,
		Built:    stadium.Built,
		Blocks:   stadium.Blocks,
		Access:   stadium.Access,
	})
	return err
}

func (s *Store) importClub(ctx context.Context, clubID int64, club SeedClub) error {
	if club.Logo != "" {
		if err := s.SetClubLogo(ctx, clubID, club.Logo); err != nil {
			return err
		}
	}
	if club.Flag != "" {
		if err := s.SetClubFlag(ctx, clubID, club.Flag); err != nil {
			return err
		}
	}
	if club.Color != "" {
		if err := s.SetClubColor(ctx, clubID, club.Color); err != nil {
			return errors.Wrapf(err, "club %s", club.Name)
		}
	}
	if club.TicketURL != "" || club.TicketNotes != "" || club.TicketPrice != "" {
		if err := s.SetClubTicketing(ctx, clubID, club.TicketURL, club.TicketNotes, club.TicketPrice); err != nil {
			return err
		}
	}
	if club.Stadium != "" {
		stadiumID, err := s.GetOrCreateStadium(ctx, club.Stadium)
		if err != nil {
			return err
		}
		if err := s.SetClubStadium(ctx, clubID, stadiumID); err != nil {
			return err
		}
	}
	return nil
}
