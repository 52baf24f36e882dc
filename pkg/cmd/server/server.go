package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/auth"
	"github.com/mpapenbr/laptime-logger/pkg/catalog"
	"github.com/mpapenbr/laptime-logger/pkg/cmd/cmdutil"
	"github.com/mpapenbr/laptime-logger/pkg/config"
	"github.com/mpapenbr/laptime-logger/pkg/db/postgres"
	"github.com/mpapenbr/laptime-logger/pkg/permission"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	bobRepos "github.com/mpapenbr/laptime-logger/pkg/repository/bob"
	"github.com/mpapenbr/laptime-logger/pkg/server"
	"github.com/mpapenbr/laptime-logger/pkg/service/carmodel"
	"github.com/mpapenbr/laptime-logger/pkg/service/history"
	"github.com/mpapenbr/laptime-logger/pkg/service/laptime"
	"github.com/mpapenbr/laptime-logger/pkg/service/leaderboard"
	"github.com/mpapenbr/laptime-logger/pkg/service/profile"
	"github.com/mpapenbr/laptime-logger/pkg/service/stats"
	"github.com/mpapenbr/laptime-logger/pkg/service/track"
)

//nolint:funlen // by design
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"server-addr",
		"a",
		"localhost:8080",
		"http server listen address")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (use 'stdout' for local debugging)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().StringVar(&config.AdminToken,
		"admin-token",
		"",
		"admin token value (sent in the api-token header)")
	cmd.Flags().StringVar(&config.OIDCIssuer,
		"oidc-issuer",
		"",
		"issuer url of the identity provider (empty: only the admin token is accepted)")
	cmd.Flags().StringVar(&config.OIDCClientID,
		"oidc-client-id",
		"ltl",
		"client id expected in the audience of access tokens")
	cmd.Flags().StringVar(&config.OIDCAdminGroup,
		"oidc-admin-group",
		"ltl-admin",
		"members of this group get admin rights")
	cmd.Flags().StringVar(&config.CatalogURL,
		"catalog-url",
		"https://carapi.app",
		"base url of the vehicle catalog")
	cmd.Flags().StringVar(&config.CatalogTimeout,
		"catalog-timeout",
		"10s",
		"timeout for requests against the vehicle catalog")
	cmd.Flags().Float64Var(&config.CatalogRateLimit,
		"catalog-rate-limit",
		5,
		"max requests per second against the vehicle catalog (0: unlimited)")
	cmd.Flags().StringVar(&config.SearchMode,
		"search-mode",
		"window",
		"car model search: 'window' filters the first 50 entries, 'sql' searches in the db")
	cmd.Flags().StringSliceVar(&config.CORSOrigins,
		"cors-origins",
		nil,
		"allowed origins for cross origin requests (empty: any)")
	cmd.Flags().IntVar(&config.LeaderboardTopN,
		"leaderboard-top",
		leaderboard.DefaultTopN,
		"default number of entries per layout on track leaderboards")
	cmd.Flags().DurationVar(&config.ClockSkew,
		"clock-skew",
		laptime.DefaultClockSkew,
		"how far the time of a lap may lie in the future")
	cmd.Flags().DurationVar(&config.ShutdownTimeout,
		"shutdown-timeout",
		10*time.Second,
		"time to wait for running requests on shutdown")
	cmd.Flags().Int32Var(&config.DBMaxConns,
		"db-max-conns",
		0,
		"max number of database connections (0: pgx default)")
	return cmd
}

//nolint:funlen // by design
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var telemetry *config.Telemetry
	sqlLogger := cmdutil.SetupLogging()
	cmdutil.WatchLogLevel()

	log.Debug("Config:",
		log.String("db", config.DB),
		log.String("addr", config.ServerAddr),
		log.String("oidcIssuer", config.OIDCIssuer),
		log.String("catalog", config.CatalogURL),
		log.String("searchMode", config.SearchMode),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	cmdutil.WaitForRequiredServices(ctx)

	pgTraceOption := postgres.WithTracer(sqlLogger, log.DebugLevel)
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err == nil {
			pgTraceOption = postgres.WithOtlpTracer()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	log.Info("Starting server")
	pool := postgres.InitWithURL(config.DB, pgTraceOption,
		postgres.WithMaxConns(config.DBMaxConns))
	defer pool.Close()

	authProvider, err := setupAuth(ctx)
	if err != nil {
		log.Error("auth could not be initialized", log.ErrorField(err))
		return err
	}
	pe, err := permission.NewOpaPermissionEvaluator()
	if err != nil {
		log.Error("permission evaluator could not be initialized", log.ErrorField(err))
		return err
	}

	srv := server.NewServer(
		server.WithServices(setupServices(pool, pe)),
		server.WithAuthProvider(authProvider),
		server.WithCORSOrigins(config.CORSOrigins),
		server.WithHealthCheck(pool.Ping),
		server.WithLeaderboardTopN(config.LeaderboardTopN),
	).HTTPServer(config.ServerAddr)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting http server", log.String("addr", config.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	setupGoRoutinesDump()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		log.Error("server could not be started", log.ErrorField(err))
		return err
	case <-sigCtx.Done():
		log.Debug("Got signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", log.ErrorField(err))
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return nil
}

func setupAuth(ctx context.Context) (auth.Provider, error) {
	providers := []auth.Provider{auth.NewAdminTokenProvider(config.AdminToken)}
	if config.OIDCIssuer != "" {
		p, err := auth.NewOIDCProvider(ctx, config.OIDCIssuer, config.OIDCClientID,
			auth.WithAdminGroup(config.OIDCAdminGroup),
			auth.WithRoleGroup("ltl-moderator", string(permission.RoleModerator)),
			auth.WithRoleGroup("ltl-track-manager", string(permission.RoleTrackManager)))
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return auth.Chain(providers...), nil
}

func setupServices(pool *pgxpool.Pool, pe permission.PermissionEvaluator) server.Services {
	repos := bobRepos.NewRepositoriesFromPool(pool)
	txMgr := bobRepos.NewTransactionManagerFromPool(pool)
	cars := carmodel.NewService(
		carmodel.WithCarModelRepository(repos.CarModel()),
		carmodel.WithSearcher(newSearcher(repos.CarModel())))

	return server.Services{
		Tracks: track.NewService(
			track.WithRepositories(repos),
			track.WithTxManager(txMgr),
			track.WithPermissionEvaluator(pe)),
		Leaderboard: leaderboard.NewService(leaderboard.WithRepositories(repos)),
		LapTimes: laptime.NewService(
			laptime.WithRepositories(repos),
			laptime.WithTxManager(txMgr),
			laptime.WithPermissionEvaluator(pe),
			laptime.WithCarModelService(cars),
			laptime.WithClockSkew(config.ClockSkew)),
		History: history.NewService(history.WithLapTimeRepository(repos.LapTime())),
		Profiles: profile.NewService(
			profile.WithUserRepository(repos.User()),
			profile.WithPermissionEvaluator(pe)),
		Stats:     stats.NewService(stats.WithRepositories(repos)),
		CarModels: cars,
		Catalog:   newCatalogClient(),
	}
}

func newSearcher(repo api.CarModelRepository) catalog.Searcher {
	switch config.SearchMode {
	case "sql":
		return catalog.NewSQLSearch(repo)
	case "window", "":
		return catalog.NewWindowSearch(repo)
	default:
		log.Warn("Unknown search mode, using window search",
			log.String("mode", config.SearchMode))
		return catalog.NewWindowSearch(repo)
	}
}

func newCatalogClient() *catalog.Client {
	timeout, err := time.ParseDuration(config.CatalogTimeout)
	if err != nil {
		log.Warn("Invalid catalog timeout. Using default",
			log.Duration("default", catalog.DefaultTimeout), log.ErrorField(err))
		timeout = catalog.DefaultTimeout
	}
	return catalog.NewClient(config.CatalogURL,
		catalog.WithTimeout(timeout),
		catalog.WithRateLimit(config.CatalogRateLimit))
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}
