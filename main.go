// Command hopper runs the groundhopper community bot and its maintenance
// tasks.
//
// Usage:
//
//	hopper run
//	hopper migrate
//	hopper import seed.yaml
//	hopper logos
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hopper/internal/bot"
	"hopper/internal/config"
	"hopper/internal/directory"
	"hopper/internal/monitor"
)

func main() {
	setupLogging("info", "console")

	root := &cobra.Command{
		Use:           "hopper",
		Short:         "Community bot for football groundhoppers",
		Version:       bot.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), migrateCmd(), importCmd(), logosCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("hopper failed")
		stop()
		os.Exit(1)
	}
}

func setupLogging(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve the guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel, cfg.LogFormat)
			ctx := cmd.Context()

			store, err := directory.Open(ctx, cfg.Database, directory.Options{ExpertClubLimit: cfg.ExpertClubLimit})
			if err != nil {
				return err
			}
			defer store.Close()

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			if cfg.MetricsAddr != "" {
				go func() {
					if err := monitor.Serve(ctx, cfg.MetricsAddr, monitor.NewRouter(store, registry)); err != nil {
						log.Error().Err(err).Msg("Monitor stopped")
					}
				}()
			}

			hopper, err := bot.CreateBot(cfg, store, registry)
			if err != nil {
				return err
			}
			return hopper.Run(ctx)
		},
	}
}

// openStore is used by the offline commands, which only need the database.
func openStore(ctx context.Context) (*directory.Store, string, error) {
	database, logoURL, err := config.LoadDatabase()
	if err != nil {
		return nil, "", err
	}
	store, err := directory.Open(ctx, database, directory.Options{})
	if err != nil {
		return nil, "", err
	}
	return store, logoURL, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open migrates already
			store, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			log.Info().Msg("Database is up to date")
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Load leagues, clubs and stadiums from a seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := directory.LoadSeed(args[0])
			if err != nil {
				return err
			}
			store, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := store.Import(cmd.Context(), seed)
			if err != nil {
				return err
			}
			log.Info().Interface("report", report).Msg("Seed imported")
			return nil
		},
	}
}

func logosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logos",
		Short: "Ask for the logo of every club that has none",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, logoURL, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			saved, err := backfillLogos(cmd.Context(), store, cmd.InOrStdin(), cmd.OutOrStdout(), logoURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done! %d logos saved.\n", saved)
			return nil
		},
	}
}

// backfillLogos asks for a logo url per club without one. When base is set
// only urls below it are accepted and only the suffix is stored.
func backfillLogos(ctx context.Context, store *directory.Store, in io.Reader, out io.Writer, base string) (int, error) {
	clubs, err := store.ClubsWithoutLogo(ctx)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(out, "Found: %d clubs without a logo\n", len(clubs))

	scanner := bufio.NewScanner(in)
	saved := 0
	for _, club := range clubs {
		fmt.Fprintf(out, "\nClub: %s\nPlease enter logo URL (or press Enter to skip): ", club.Name)
		if !scanner.Scan() {
			break
		}
		url := strings.TrimSpace(scanner.Text())
		if url == "" {
			fmt.Fprintln(out, "  → Skipped")
			continue
		}
		logo := url
		if base != "" {
			suffix, ok := strings.CutPrefix(url, base)
			if !ok || suffix == "" {
				fmt.Fprintf(out, "  ✗ URL does not start with expected base URL %s\n", base)
				continue
			}
			logo = suffix
		}
		if err := store.SetClubLogo(ctx, club.ID, logo); err != nil {
			return saved, errors.Wrapf(err, "save logo of %s", club.Name)
		}
		saved++
		fmt.Fprintf(out, "  ✓ Logo saved: %s\n", logo)
	}
	return saved, errors.Wrap(scanner.Err(), "read logo urls")
}
