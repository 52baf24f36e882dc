package seed

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/auth"
	"github.com/mpapenbr/laptime-logger/pkg/cmd/cmdutil"
	"github.com/mpapenbr/laptime-logger/pkg/config"
	"github.com/mpapenbr/laptime-logger/pkg/db/postgres"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	bobRepos "github.com/mpapenbr/laptime-logger/pkg/repository/bob"
	"github.com/mpapenbr/laptime-logger/pkg/seed"
	"github.com/mpapenbr/laptime-logger/pkg/service/track"
	"github.com/mpapenbr/laptime-logger/pkg/utils"
)

var seedFile string

func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "creates tracks and their main layouts",
		Long: `Creates the tracks and layouts of the seed file which don't exist yet.
Afterwards every track without a main layout gets one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&seedFile,
		"file",
		"f",
		"",
		"yaml file with track definitions (default: built-in tracks)")
	return cmd
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sqlLogger := cmdutil.SetupLogging()
	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		if err := utils.WaitForTCP(ctx, postgresAddr, cmdutil.WaitTimeout()); err != nil {
			log.Fatal("database not ready", log.ErrorField(err))
		}
	}

	defs, err := loadDefinitions()
	if err != nil {
		log.Error("could not read track definitions", log.ErrorField(err))
		return err
	}

	pool := postgres.InitWithURL(config.DB, postgres.WithTracer(sqlLogger, log.DebugLevel))
	defer pool.Close()
	svc := track.NewService(
		track.WithRepositories(bobRepos.NewRepositoriesFromPool(pool)),
		track.WithTxManager(bobRepos.NewTransactionManagerFromPool(pool)))

	id := &model.Identity{
		UserID:  auth.AdminUserID,
		Name:    "seed",
		Email:   "admin@localhost",
		IsAdmin: true,
	}
	res, err := seed.Apply(ctx, svc, id, defs)
	if err != nil {
		log.Error("seeding failed", log.ErrorField(err))
		return err
	}
	log.Info("Seeding done",
		log.Int("tracks", res.Tracks),
		log.Int("layouts", res.Layouts),
		log.Int("mainLayouts", res.MainLayouts))
	return nil
}

func loadDefinitions() (*seed.File, error) {
	if seedFile == "" {
		return seed.Default()
	}
	f, err := os.Open(seedFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return seed.Load(f)
}
