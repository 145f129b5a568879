package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"checkpoint-route-service/internal/adapters/repositories"
	"checkpoint-route-service/internal/config"
	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/db"
	"checkpoint-route-service/internal/platform/logger"
)

type options struct {
	driver string
	dsn    string
}

func main() {
	config.LoadDotEnv()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "dbtool",
		Short:         "Manage the checkpoint network database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.driver, "driver", config.Get("DB_DRIVER", config.DriverSQLite), "database driver (sqlite or postgres)")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "sqlite path or postgres URL (defaults to DB_PATH or DATABASE_URL)")

	root.AddCommand(newInitCmd(opts), newSeedCmd(opts), newAuditLinksCmd(opts))
	return root
}

func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := repositories.InitSchema(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready.")
			return nil
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load checkpoints, links and shipment directions from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			conn, dialect, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := repositories.InitSchema(ctx, conn); err != nil {
				return err
			}

			res, err := repositories.SeedFromJSON(ctx,
				repositories.NewSQLCheckpointRepository(conn, dialect, logger.NewNop()),
				repositories.NewSQLShipmentDirectionRepository(conn, dialect),
				file,
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d checkpoints, %d links, %d shipment directions.\n",
				res.Checkpoints, res.Links, res.Directions)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", config.Get("SEED_PATH", "data/seeds/network.json"), "seed file path")
	return cmd
}

// newAuditLinksCmd reports links whose target does not point back.
// The exit status is non-zero when any are found.
func newAuditLinksCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "audit-links",
		Short: "List checkpoint links that are not mirrored by their neighbor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			conn, dialect, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			nodes, err := repositories.NewSQLCheckpointRepository(conn, dialect, logger.NewNop()).ListCheckpoints(ctx)
			if err != nil {
				return err
			}

			bad := domain.NewCheckpointGraph(nodes).AsymmetricLinks()
			out := cmd.OutOrStdout()
			for _, l := range bad {
				back := l.BackID
				if back == "" {
					back = "<none>"
				}
				fmt.Fprintf(out, "%s -%s-> %s, but %s -%s-> %s\n",
					l.FromID, l.Direction, l.ToID, l.ToID, l.Direction.Opposite(), back)
			}
			if len(bad) > 0 {
				return fmt.Errorf("audit links: %d asymmetric links", len(bad))
			}
			fmt.Fprintf(out, "All links of %d checkpoints are symmetric.\n", len(nodes))
			return nil
		},
	}
}

func (o *options) open(ctx context.Context) (*sql.DB, repositories.Dialect, error) {
	dialect, err := repositories.ParseDialect(o.driver)
	if err != nil {
		return nil, dialect, err
	}

	dsn := o.dsn
	if dsn == "" {
		if dialect == repositories.DialectPostgres {
			dsn = os.Getenv("DATABASE_URL")
		} else {
			dsn = config.Get("DB_PATH", "data/app.db")
		}
	}
	if dsn == "" {
		return nil, dialect, fmt.Errorf("dbtool: no dsn for driver %q", dialect)
	}

	conn, err := db.Open(ctx, dialect.String(), dsn)
	if err != nil {
		return nil, dialect, err
	}
	return conn, dialect, nil
}
