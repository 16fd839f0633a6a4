// Command catalog validates catalog files and imports them into the
// configured catalog store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/platform/config"
	"github.com/p-n-ai/pai-tracker/internal/platform/database"
)

// storeOpener returns the catalog store to import into and a function that
// releases it.
type storeOpener func(ctx context.Context) (catalog.Store, func(), error)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCmd(openPostgresCatalog).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open storeOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Validate and import topic catalogs",
		SilenceUsage:  true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "validate <path>",
			Short: "Check a catalog file or directory without importing it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				topics, err := catalog.Load(args[0])
				if err != nil {
					return err
				}

				var invalid int
				for i := range topics {
					if err := topics[i].Validate(); err != nil {
						invalid++
						fmt.Fprintf(cmd.ErrOrStderr(), "topic %d %q: %v\n", i+1, topics[i].Name, err)
					}
				}
				if invalid > 0 {
					return fmt.Errorf("%d of %d topics are invalid", invalid, len(topics))
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d topics, %d questions OK\n", args[0], len(topics), countQuestions(topics))
				return nil
			},
		},
		&cobra.Command{
			Use:   "import <path>",
			Short: "Import a catalog file or directory into the configured database",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				topics, err := catalog.Load(args[0])
				if err != nil {
					return err
				}

				store, release, err := open(cmd.Context())
				if err != nil {
					return err
				}
				defer release()

				result, err := catalog.Import(cmd.Context(), store, topics)
				if err != nil {
					return err
				}
				for _, e := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "rejected %s\n", e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d, skipped %d, rejected %d\n",
					result.Added, result.Skipped, len(result.Errors))
				return nil
			},
		},
	)

	return root
}

func countQuestions(topics []catalog.NewTopic) int {
	n := 0
	for _, t := range topics {
		n += len(t.Questions)
	}
	return n
}

// openPostgresCatalog connects to TRACKER_DATABASE_URL and applies the schema.
func openPostgresCatalog(ctx context.Context) (catalog.Store, func(), error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	store, err := catalog.NewPostgresStore(db.Pool)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}
