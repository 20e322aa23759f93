package config

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

// Flags holds all command line flag values
type Flags struct {
	// General
	configFile *string
	version    *bool

	// Server
	serverPort         *int
	serverHost         *string
	serverReadTimeout  *string
	serverWriteTimeout *string
	serverTLSEnabled   *bool
	serverTLSCert      *string
	serverTLSKey       *string

	// Database
	dbType                 *string
	dbSQLitePath           *string
	dbPostgresHost         *string
	dbPostgresPort         *int
	dbPostgresDatabase     *string
	dbPostgresUser         *string
	dbPostgresPassword     *string
	dbPostgresSSLMode      *string
	dbPostgresMaxOpenConns *int
	dbPostgresMaxIdleConns *int

	// JWT
	jwtSecret     *string
	jwtExpiration *string
	jwtIssuer     *string

	// Lock vendor
	ttlockBaseURL      *string
	ttlockClientID     *string
	ttlockClientSecret *string
	ttlockUsername     *string
	ttlockPassword     *string
	ttlockTimeout      *string

	// Webhook
	webhookSecret *string

	// PIN
	pinCodeLength           *int
	pinDefaultExpiryMinutes *int
	pinDisplayName          *string

	// Logging
	logLevel  *string
	logFormat *string
	logOutput *string

	// Security
	securityCORSEnabled *bool
	securityCORSOrigins *[]string
}

// ParseFlags defines and parses all command line flags
func ParseFlags() (*Flags, string, bool) {
	f := &Flags{}

	// General flags
	f.configFile = flag.StringP("config", "c", "config.yaml", "Path to configuration file")
	f.version = flag.BoolP("version", "v", false, "Print version and exit")

	// Server flags
	f.serverPort = flag.Int("server.port", 0, "HTTP server port")
	f.serverHost = flag.String("server.host", "", "HTTP server bind address")
	f.serverReadTimeout = flag.String("server.read-timeout", "", "Server read timeout (e.g., 30s)")
	f.serverWriteTimeout = flag.String("server.write-timeout", "", "Server write timeout (e.g., 30s)")
	f.serverTLSEnabled = flag.Bool("server.tls-enabled", false, "Enable HTTPS")
	f.serverTLSCert = flag.String("server.tls-cert", "", "Path to TLS certificate")
	f.serverTLSKey = flag.String("server.tls-key", "", "Path to TLS key")

	// Database flags
	f.dbType = flag.String("db.type", "", "Database type (sqlite or postgres)")
	f.dbSQLitePath = flag.String("db.sqlite.path", "", "SQLite database file path")
	f.dbPostgresHost = flag.String("db.postgres.host", "", "PostgreSQL host")
	f.dbPostgresPort = flag.Int("db.postgres.port", 0, "PostgreSQL port")
	f.dbPostgresDatabase = flag.String("db.postgres.database", "", "PostgreSQL database name")
	f.dbPostgresUser = flag.String("db.postgres.user", "", "PostgreSQL user")
	f.dbPostgresPassword = flag.String("db.postgres.password", "", "PostgreSQL password")
	f.dbPostgresSSLMode = flag.String("db.postgres.ssl-mode", "", "PostgreSQL SSL mode")
	f.dbPostgresMaxOpenConns = flag.Int("db.postgres.max-open-conns", 0, "PostgreSQL max open connections")
	f.dbPostgresMaxIdleConns = flag.Int("db.postgres.max-idle-conns", 0, "PostgreSQL max idle connections")

	// JWT flags
	f.jwtSecret = flag.String("jwt.secret", "", "JWT secret key")
	f.jwtExpiration = flag.String("jwt.expiration", "", "JWT expiration duration (e.g., 24h)")
	f.jwtIssuer = flag.String("jwt.issuer", "", "JWT issuer")

	// Lock vendor flags
	f.ttlockBaseURL = flag.String("ttlock.base-url", "", "TTLock API base URL")
	f.ttlockClientID = flag.String("ttlock.client-id", "", "TTLock OAuth2 client ID")
	f.ttlockClientSecret = flag.String("ttlock.client-secret", "", "TTLock OAuth2 client secret")
	f.ttlockUsername = flag.String("ttlock.username", "", "TTLock account username")
	f.ttlockPassword = flag.String("ttlock.password", "", "TTLock account password")
	f.ttlockTimeout = flag.String("ttlock.timeout", "", "TTLock request timeout (e.g., 10s)")

	// Webhook flags
	f.webhookSecret = flag.String("webhook.secret", "", "Shared secret for webhook signature verification")

	// PIN flags
	f.pinCodeLength = flag.Int("pin.code-length", 0, "Number of digits in generated PIN codes")
	f.pinDefaultExpiryMinutes = flag.Int("pin.default-expiry-minutes", 0, "Default PIN validity window in minutes")
	f.pinDisplayName = flag.String("pin.display-name", "", "Name shown on the vendor side for issued PINs")

	// Logging flags
	f.logLevel = flag.StringP("log.level", "l", "", "Log level (debug, info, warn, error)")
	f.logFormat = flag.String("log.format", "", "Log format (json or console)")
	f.logOutput = flag.String("log.output", "", "Log output (stdout or file path)")

	// Security flags
	f.securityCORSEnabled = flag.Bool("security.cors-enabled", false, "Enable CORS")
	f.securityCORSOrigins = flag.StringSlice("security.cors-origins", nil, "CORS allowed origins (can be specified multiple times)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "parkgate - smart-lock PIN issuance and access-log service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration priority (highest to lowest):\n")
		fmt.Fprintf(os.Stderr, "  1. Command line flags\n")
		fmt.Fprintf(os.Stderr, "  2. Environment variables (PARKGATE_*)\n")
		fmt.Fprintf(os.Stderr, "  3. Configuration file (default: config.yaml)\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with custom config file\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/parkgate/config.yaml\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Override port and database type\n")
		fmt.Fprintf(os.Stderr, "  %s --server.port 9000 --db.type postgres\n\n", os.Args[0])
	}

	flag.Parse()

	return f, *f.configFile, *f.version
}

// Apply copies flag values that were explicitly set onto the configuration
func (f *Flags) Apply(c *Config) {
	changed := func(name string) bool {
		lookup := flag.Lookup(name)
		return lookup != nil && lookup.Changed
	}
	parseDuration := func(s string) (time.Duration, bool) {
		d, err := time.ParseDuration(s)
		return d, err == nil
	}

	// Server
	if changed("server.port") {
		c.Server.Port = *f.serverPort
	}
	if changed("server.host") {
		c.Server.Host = *f.serverHost
	}
	if changed("server.read-timeout") {
		if d, ok := parseDuration(*f.serverReadTimeout); ok {
			c.Server.ReadTimeout = d
		}
	}
	if changed("server.write-timeout") {
		if d, ok := parseDuration(*f.serverWriteTimeout); ok {
			c.Server.WriteTimeout = d
		}
	}
	if changed("server.tls-enabled") {
		c.Server.TLSEnabled = *f.serverTLSEnabled
	}
	if changed("server.tls-cert") {
		c.Server.TLSCert = *f.serverTLSCert
	}
	if changed("server.tls-key") {
		c.Server.TLSKey = *f.serverTLSKey
	}

	// Database
	if changed("db.type") {
		c.Database.Type = *f.dbType
	}
	if changed("db.sqlite.path") {
		c.Database.SQLite.Path = *f.dbSQLitePath
	}
	if changed("db.postgres.host") {
		c.Database.Postgres.Host = *f.dbPostgresHost
	}
	if changed("db.postgres.port") {
		c.Database.Postgres.Port = *f.dbPostgresPort
	}
	if changed("db.postgres.database") {
		c.Database.Postgres.Database = *f.dbPostgresDatabase
	}
	if changed("db.postgres.user") {
		c.Database.Postgres.User = *f.dbPostgresUser
	}
	if changed("db.postgres.password") {
		c.Database.Postgres.Password = *f.dbPostgresPassword
	}
	if changed("db.postgres.ssl-mode") {
		c.Database.Postgres.SSLMode = *f.dbPostgresSSLMode
	}
	if changed("db.postgres.max-open-conns") {
		c.Database.Postgres.MaxOpenConns = *f.dbPostgresMaxOpenConns
	}
	if changed("db.postgres.max-idle-conns") {
		c.Database.Postgres.MaxIdleConns = *f.dbPostgresMaxIdleConns
	}

	// JWT
	if changed("jwt.secret") {
		c.JWT.Secret = *f.jwtSecret
	}
	if changed("jwt.expiration") {
		if d, ok := parseDuration(*f.jwtExpiration); ok {
			c.JWT.Expiration = d
		}
	}
	if changed("jwt.issuer") {
		c.JWT.Issuer = *f.jwtIssuer
	}

	// Lock vendor
	if changed("ttlock.base-url") {
		c.TTLock.BaseURL = *f.ttlockBaseURL
	}
	if changed("ttlock.client-id") {
		c.TTLock.ClientID = *f.ttlockClientID
	}
	if changed("ttlock.client-secret") {
		c.TTLock.ClientSecret = *f.ttlockClientSecret
	}
	if changed("ttlock.username") {
		c.TTLock.Username = *f.ttlockUsername
	}
	if changed("ttlock.password") {
		c.TTLock.Password = *f.ttlockPassword
	}
	if changed("ttlock.timeout") {
		if d, ok := parseDuration(*f.ttlockTimeout); ok {
			c.TTLock.Timeout = d
		}
	}

	// Webhook
	if changed("webhook.secret") {
		c.Webhook.Secret = *f.webhookSecret
	}

	// PIN
	if changed("pin.code-length") {
		c.Pin.CodeLength = *f.pinCodeLength
	}
	if changed("pin.default-expiry-minutes") {
		c.Pin.DefaultExpiryMinutes = *f.pinDefaultExpiryMinutes
	}
	if changed("pin.display-name") {
		c.Pin.DisplayName = *f.pinDisplayName
	}

	// Logging
	if changed("log.level") {
		c.Logging.Level = *f.logLevel
	}
	if changed("log.format") {
		c.Logging.Format = *f.logFormat
	}
	if changed("log.output") {
		c.Logging.Output = *f.logOutput
	}

	// Security
	if changed("security.cors-enabled") {
		c.Security.CORSEnabled = *f.securityCORSEnabled
	}
	if changed("security.cors-origins") {
		c.Security.CORSOrigins = *f.securityCORSOrigins
	}
}
