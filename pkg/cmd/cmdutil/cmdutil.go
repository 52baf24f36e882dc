package cmdutil

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/config"
	"github.com/mpapenbr/laptime-logger/pkg/utils"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogging installs the default logger according to the log flags and
// returns a separate logger to be used for sql statements
func SetupLogging() (sqlLogger *log.Logger) {
	defaultLevel := log.InfoLevel
	if config.LogFormat != "json" {
		defaultLevel = log.DebugLevel
	}
	log.ResetDefault(newLogger(parseLogLevel(config.LogLevel, defaultLevel)))
	return newLogger(parseLogLevel(config.SQLLogLevel, log.InfoLevel))
}

func newLogger(level log.Level) *log.Logger {
	dev := config.LogFormat != "json"
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	switch {
	case config.LogFilter != "":
		logger, err := log.NewFiltered(os.Stderr, level, config.LogFilter, dev, opts...)
		if err != nil {
			log.Fatal("invalid log filter", log.String("filter", config.LogFilter),
				log.ErrorField(err))
		}
		return logger
	case dev:
		return log.DevLogger(os.Stderr, level, opts...)
	default:
		return log.New(os.Stderr, level, opts...)
	}
}

// WatchLogLevel applies changes of log-level in the config file without restart
func WatchLogLevel() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level, err := log.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			log.Warn("ignoring invalid log level", log.ErrorField(err))
			return
		}
		if level != log.Default().Level() {
			log.Default().SetLevel(level)
			log.Info("log level changed", log.String("level", level.String()))
		}
	})
	viper.WatchConfig()
}

// WaitTimeout returns the configured duration to wait for other services
func WaitTimeout() time.Duration {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	return timeout
}

// WaitForRequiredServices blocks until the database (and the identity
// provider, if configured) are reachable. It terminates the process otherwise.
func WaitForRequiredServices(ctx context.Context) {
	timeout := WaitTimeout()
	g, gctx := errgroup.WithContext(ctx)
	if postgresAddr := utils.ExtractFromDBURL(config.DB); postgresAddr != "" {
		g.Go(func() error {
			return utils.WaitForTCP(gctx, postgresAddr, timeout)
		})
	}
	if config.OIDCIssuer != "" {
		g.Go(func() error {
			return utils.WaitForHTTPResponse(gctx,
				utils.OIDCDiscoveryURL(config.OIDCIssuer), timeout)
		})
	}
	log.Debug("Waiting for connection checks to return")
	if err := g.Wait(); err != nil {
		log.Fatal("required services not ready", log.ErrorField(err))
	}
	log.Debug("Required services are available")
}
