package migrate

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/cmd/cmdutil"
	"github.com/mpapenbr/laptime-logger/pkg/config"
	dbmigrate "github.com/mpapenbr/laptime-logger/pkg/db/migrate"
	"github.com/mpapenbr/laptime-logger/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to migration files, e.g. file:///migrations (default: embedded migrations)")

	return cmd
}

func startMigration(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cmdutil.SetupLogging()
	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		if err := utils.WaitForTCP(ctx, postgresAddr, cmdutil.WaitTimeout()); err != nil {
			log.Fatal("database not ready", log.ErrorField(err))
		}
	}

	var err error
	if config.MigrationSourceURL == "" {
		log.Info("Using embedded migrations")
		err = dbmigrate.MigrateDb(config.DB)
	} else {
		log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
		err = dbmigrate.MigrateDbFromSource(config.MigrationSourceURL, config.DB)
	}
	if err != nil {
		log.Error("migration failed", log.ErrorField(err))
		return err
	}
	log.Info("Database is up to date")
	return nil
}
