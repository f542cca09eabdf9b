package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	LockRedis = "redis"
	LockLocal = "local"
)

type Config struct {
	AppPort string

	DBDriver      string
	DBAutoMigrate bool

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	SQLitePath string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	LockBackend string
	LockTimeout time.Duration
	LockTTL     time.Duration

	PageSize int

	LogLevel  string
	LogFormat string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Real environment variables win over the file.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort: getenv("APP_PORT", "8080"),

		DBDriver:      getenv("DB_DRIVER", DriverMySQL),
		DBAutoMigrate: getenv("DB_AUTO_MIGRATE", "false") == "true",

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "loans"),
		MySQLUser: getenv("MYSQL_USER", "loans"),
		MySQLPass: getenv("MYSQL_PASS", "loans"),

		SQLitePath: getenv("SQLITE_PATH", "loan-ledger.db"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		LockBackend: getenv("LOCK_BACKEND", LockRedis),
		LockTimeout: time.Duration(getint("LOCK_TIMEOUT_MS", 2000)) * time.Millisecond,
		LockTTL:     time.Duration(getint("LOCK_TTL_MS", 10000)) * time.Millisecond,

		PageSize: getint("PAGE_SIZE", 10),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
	return c
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.LockBackend != LockRedis && c.LockBackend != LockLocal {
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}
	if c.LockTimeout <= 0 || c.LockTTL <= 0 {
		return errors.New("LOCK_TIMEOUT_MS and LOCK_TTL_MS must be > 0")
	}
	if c.LockTTL <= c.LockTimeout {
		return errors.New("LOCK_TTL_MS must exceed LOCK_TIMEOUT_MS")
	}
	if c.PageSize <= 0 {
		return errors.New("PAGE_SIZE must be > 0")
	}
	return nil
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATE/DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
