package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	AppPort string

	DBDriver    string
	SQLitePath  string
	AutoMigrate bool

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs        int
	PendingCacheTTLSecs int

	WorkflowFile string

	LedgerBaseURL         string
	CollaboratorTimeoutMS int

	KafkaBrokers     []string
	KafkaNotifyTopic string

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

func getbool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// LoadDotEnv merges .env files into the environment. Variables already set
// win, and missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func Load() *Config {
	c := &Config{
		AppPort: getenv("APP_PORT", "8080"),

		DBDriver:    strings.ToLower(getenv("DB_DRIVER", DriverMySQL)),
		SQLitePath:  getenv("SQLITE_PATH", "sacco.db"),
		AutoMigrate: getbool("AUTO_MIGRATE", true),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "sacco"),
		MySQLUser: getenv("MYSQL_USER", "sacco"),
		MySQLPass: getenv("MYSQL_PASS", "sacco"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getint("REDIS_DB", 0),

		IdempTTLSecs:        getint("IDEMPOTENCY_TTL_SECONDS", 300),
		PendingCacheTTLSecs: getint("PENDING_CACHE_TTL_SECONDS", 30),

		WorkflowFile: getenv("WORKFLOW_FILE", "configs/workflow.yaml"),

		LedgerBaseURL:         getenv("LEDGER_BASE_URL", "http://ledger:8081"),
		CollaboratorTimeoutMS: getint("COLLABORATOR_TIMEOUT_MS", 3000),

		KafkaNotifyTopic: getenv("KAFKA_NOTIFY_TOPIC", "loan-notifications"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			c.KafkaBrokers = append(c.KafkaBrokers, b)
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
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
		return fmt.Errorf("unknown DB_DRIVER %q (mysql|sqlite)", c.DBDriver)
	}
	if c.LedgerBaseURL == "" {
		return errors.New("missing LEDGER_BASE_URL")
	}
	if c.CollaboratorTimeoutMS <= 0 {
		return fmt.Errorf("invalid COLLABORATOR_TIMEOUT_MS %d", c.CollaboratorTimeoutMS)
	}
	if c.IdempTTLSecs <= 0 || c.PendingCacheTTLSecs <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaNotifyTopic == "" {
		return errors.New("KAFKA_BROKERS set without KAFKA_NOTIFY_TOPIC")
	}
	return nil
}

func (c *Config) CollaboratorTimeout() time.Duration {
	return time.Duration(c.CollaboratorTimeoutMS) * time.Millisecond
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) PendingCacheTTL() time.Duration {
	return time.Duration(c.PendingCacheTTLSecs) * time.Second
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
