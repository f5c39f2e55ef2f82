package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"investhub/internal/adapters/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.MigrateDB(db); err != nil {
				return err
			}
			v, err := storage.SchemaVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", cfg.Database.Path, v)
			return nil
		},
	}
	return cmd
}
