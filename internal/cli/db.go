package cli

import (
	"fmt"

	"snapscreen/internal/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the PostgreSQL scan database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the scans schema and optionally load the sample scans",
	Args:  cobra.NoArgs,
	RunE:  runDBInit,
}

var dbInitSeed bool

func init() {
	dbInitCmd.Flags().BoolVar(&dbInitSeed, "seed", false, "Insert the sample scans that are not stored yet")
	dbCmd.AddCommand(dbInitCmd)
}

func runDBInit(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("db init needs storage.driver \"postgres\" (got %q)", cfg.Storage.Driver)
	}

	pg, err := store.NewPostgresStore(cmd.Context(), cfg.Storage.Postgres, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pg.Close() }()

	if err := pg.EnsureSchema(cmd.Context()); err != nil {
		return err
	}
	if err := pg.VerifySchema(cmd.Context()); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Schema is ready.")

	if dbInitSeed {
		n, err := pg.Seed(cmd.Context())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d sample scans.\n", n)
	}
	return nil
}
