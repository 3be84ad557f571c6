// Package config handles the parsing and validation of application configuration
// from command-line arguments, environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/woozymasta/masterlist/internal/logger"
	"github.com/woozymasta/masterlist/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server   Server        `group:"Server Options" env-namespace:"MASTERLIST"`
	Registry Registry      `group:"Registry Options" namespace:"registry" env-namespace:"MASTERLIST_REGISTRY"`
	Storage  Storage       `group:"Storage Options" namespace:"db" env-namespace:"MASTERLIST_DB"`
	GeoIP    GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"MASTERLIST_GEOIP"`
	A2S      A2S           `group:"A2S Options" namespace:"a2s" env-namespace:"MASTERLIST_A2S"`
	Logger   logger.Config `group:"Logger Options" namespace:"log" env-namespace:"MASTERLIST_LOG"`
	Dev      Dev           `group:"Development Options" namespace:"dev" env-namespace:"MASTERLIST_DEV"`

	EnvFile string `long:"env-file" env:"MASTERLIST_ENV_FILE" description:"Optional dotenv file loaded before parsing" default:".env"`
	Version bool   `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address        string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":3001"`
	AuthToken      string        `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin API token, admin endpoints are disabled when empty"`
	TrustedPrefix  string        `long:"trusted-proxy-prefix" env:"TRUSTED_PROXY_PREFIX" description:"Remote address prefix of a trusted reverse proxy (e.g. 172.)"`
	RealIPHeader   string        `long:"real-ip-header" env:"REAL_IP_HEADER" description:"Header carrying the client address behind the trusted proxy" default:"X-Real-IP"`
	MaxBodySize    int64         `long:"max-body-size" env:"MAX_BODY_SIZE" description:"Max body size for heartbeat requests" default:"65536"`
	Workers        int           `long:"workers" env:"WORKERS" description:"History worker count" default:"4"`
	QueueSize      int           `long:"queue-size" env:"QUEUE_SIZE" description:"History queue capacity" default:"1000"`
	ReadTimeout    time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"HTTP read timeout" default:"5s"`
	WriteTimeout   time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" description:"HTTP write timeout" default:"5s"`
	ShutdownPeriod time.Duration `long:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" description:"Graceful shutdown timeout" default:"5s"`
}

// Registry holds heartbeat acceptance rules.
type Registry struct {
	// betteralign:ignore

	AllowedTypes []string `long:"allowed-type" env:"ALLOWED_TYPES" description:"Accepted server types, any type when empty" env-delim:","`
	Strict       bool     `long:"strict" env:"STRICT" description:"Enforce hostname, map, mode, port and player name limits"`
	MaxPerIP     int      `long:"max-per-ip" env:"MAX_PER_IP" description:"Max servers registered from one address, 0 disables"`
}

// Storage holds heartbeat history database configuration.
type Storage struct {
	// betteralign:ignore

	Path        string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite history database, empty disables history" default:"masterlist.db"`
	PruneOlder  time.Duration `long:"prune-older" description:"Delete history rows not seen within duration and exit"`
	PruneServer string        `long:"prune-id" description:"Delete history rows of a server id and exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup" default:"masterlist.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// A2S holds Source Query protocol configuration used by the admin probe.
type A2S struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
	Rate       float64       `long:"rate" env:"RATE" description:"Outbound queries per second" default:"5"`
	Burst      int           `long:"burst" env:"BURST" description:"Outbound query burst" default:"10"`
}

// Dev holds development helpers.
type Dev struct {
	FakeServers int `long:"fake-servers" env:"FAKE_SERVERS" description:"Seed the registry with random servers" hidden:"true"`
}

// Load parses args into a Config. A dotenv file is loaded first so its values act as env defaults.
// It returns flags.ErrHelp wrapped in *flags.Error when help was requested.
func Load(args []string) (*Config, error) {
	loadEnvFile(args)

	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Parse reads the configuration from os.Args and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// Validate checks values that flag parsing can not express.
func (c *Config) Validate() error {
	if c.Server.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Server.Workers)
	}
	if c.Server.QueueSize < 1 {
		return fmt.Errorf("queue-size must be positive, got %d", c.Server.QueueSize)
	}
	if c.Server.MaxBodySize < 1 {
		return fmt.Errorf("max-body-size must be positive, got %d", c.Server.MaxBodySize)
	}
	if c.Registry.MaxPerIP < 0 {
		return fmt.Errorf("registry-max-per-ip must not be negative, got %d", c.Registry.MaxPerIP)
	}
	if c.A2S.Rate <= 0 || c.A2S.Burst < 1 {
		return fmt.Errorf("a2s-rate and a2s-burst must be positive")
	}

	return nil
}

// loadEnvFile loads the dotenv file named by --env-file or MASTERLIST_ENV_FILE, defaulting to .env.
// A missing file is not an error. Existing environment variables are never overridden.
func loadEnvFile(args []string) {
	path := ".env"
	if v := os.Getenv("MASTERLIST_ENV_FILE"); v != "" {
		path = v
	}
	for i, a := range args {
		if a == "--env-file" && i+1 < len(args) {
			path = args[i+1]
		} else if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			path = v
		}
	}

	_ = godotenv.Load(path)
}
