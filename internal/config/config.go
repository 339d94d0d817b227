// Package config resolves runtime settings from defaults, an optional .env
// file and KNJIZNICA_* environment variables. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/knjiznica/internal/kv"
	"github.com/erazemk/knjiznica/internal/store"
)

// Prefix is prepended to every environment variable name.
const Prefix = "KNJIZNICA_"

// Config holds all runtime settings.
type Config struct {
	Addr       string
	LogPath    string
	Storage    kv.Config
	DatasetKey string
	DelayMin   time.Duration
	DelayMax   time.Duration
	SessionTTL time.Duration
	BannerTTL  time.Duration
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		Addr: ":8080",
		Storage: kv.Config{
			Driver:     kv.DriverSQLite,
			SQLitePath: "knjiznica.sqlite3",
			S3:         kv.S3Config{Region: "us-east-1", Prefix: "knjiznica"},
		},
		DatasetKey: store.DefaultKey,
		DelayMin:   store.DefaultDelay.Min,
		DelayMax:   store.DefaultDelay.Max,
		SessionTTL: 12 * time.Hour,
		BannerTTL:  3600 * time.Millisecond,
	}
}

// Load reads envFile (when it exists) and the process environment.
// Environment variables take precedence over the file.
func Load(envFile string) (Config, error) {
	return load(envFile, os.Getenv)
}

func load(envFile string, getenv func(string) string) (Config, error) {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	lookup := func(name string) (string, bool) {
		if v := getenv(Prefix + name); v != "" {
			return v, true
		}
		v, ok := fileVars[Prefix+name]
		return v, ok && v != ""
	}

	c := Defaults()
	p := parser{lookup: lookup}
	p.str("ADDR", &c.Addr)
	p.str("LOG", &c.LogPath)
	p.str("DATASET_KEY", &c.DatasetKey)
	p.duration("DELAY_MIN", &c.DelayMin)
	p.duration("DELAY_MAX", &c.DelayMax)
	p.duration("SESSION_TTL", &c.SessionTTL)
	p.duration("BANNER_TTL", &c.BannerTTL)

	var driver string
	p.str("STORAGE", &driver)
	if driver != "" {
		c.Storage.Driver = kv.Driver(driver)
	}
	p.str("SQLITE_PATH", &c.Storage.SQLitePath)
	p.str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	p.str("S3_BUCKET", &c.Storage.S3.Bucket)
	p.str("S3_REGION", &c.Storage.S3.Region)
	p.str("S3_ENDPOINT", &c.Storage.S3.Endpoint)
	p.str("S3_PREFIX", &c.Storage.S3.Prefix)
	p.str("S3_ACCESS_KEY_ID", &c.Storage.S3.AccessKeyID)
	p.str("S3_SECRET_ACCESS_KEY", &c.Storage.S3.SecretAccessKey)
	p.boolean("S3_PATH_STYLE", &c.Storage.S3.PathStyle)

	if p.err != nil {
		return Config{}, p.err
	}
	return c, c.Validate()
}

// Validate checks settings that cannot be fixed up silently.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case kv.DriverMemory, kv.DriverSQLite, kv.DriverPostgres, kv.DriverS3:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == kv.DriverPostgres && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%sPOSTGRES_DSN required for the postgres driver", Prefix)
	}
	if c.Storage.Driver == kv.DriverS3 && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("%sS3_BUCKET required for the s3 driver", Prefix)
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("invalid delay range %s..%s", c.DelayMin, c.DelayMax)
	}
	return nil
}

// Delay returns the simulated store latency.
func (c Config) Delay() store.Delayer {
	if c.DelayMax == 0 {
		return store.NoDelay
	}
	return store.RandomDelay{Min: c.DelayMin, Max: c.DelayMax}
}

// parser keeps the first conversion error.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) str(name string, dst *string) {
	if v, ok := p.lookup(name); ok {
		*dst = v
	}
}

func (p *parser) duration(name string, dst *time.Duration) {
	v, ok := p.lookup(name)
	if !ok || p.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.err = fmt.Errorf("%s%s: %w", Prefix, name, err)
		return
	}
	*dst = d
}

func (p *parser) boolean(name string, dst *bool) {
	v, ok := p.lookup(name)
	if !ok || p.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err = fmt.Errorf("%s%s: %w", Prefix, name, err)
		return
	}
	*dst = b
}
