package config

import "time"

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	WaitForServices    string // duration to wait for other services to be ready
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogFilter          string // zapfilter rules
	MigrationSourceURL string // location of migration files (empty: use embedded)
	EnableTelemetry    bool   // enable telemetry
	TelemetryEndpoint  string // endpoint for telemetry ("stdout" for local debugging)
	ProfilingPort      int    // port for profiling
	ServerAddr         string // listen addr for http server
	AdminToken         string // token for admin access
	OIDCIssuer         string // issuer url of the identity provider
	OIDCClientID       string // client id (audience) for token verification
	OIDCAdminGroup     string // group claim value granting admin rights
	CatalogURL         string // base url of the vehicle catalog
	CatalogTimeout     string // request timeout against the catalog
	CatalogRateLimit   float64
	SearchMode         string // car model search: "window" or "sql"
	CORSOrigins        []string
	LeaderboardTopN    int           // default number of entries per layout on track boards
	ClockSkew          time.Duration // how far drivenAt may lie in the future
	ShutdownTimeout    time.Duration
	DBMaxConns         int32 // max connections of the db pool (0: pgx default)
)
