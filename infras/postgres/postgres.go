package postgres

//nolint:revive
import (
	"context"
	"fmt"
	"net"
	"net/url"
	"parking/config"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	driverName = "postgres"

	defaultMaxOpenConnection = 10
	defaultMaxIdleConnection = 10
	defaultConnMaxLifetime   = 30 * time.Minute
)

// Endpoint is one side of the read/write split.
type Endpoint struct {
	Role     string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	SSLMode  string
}

type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

func New(config *config.Config) *Connection {
	return &Connection{
		Read:  Open(config, ReadEndpoint(config)),
		Write: Open(config, WriteEndpoint(config)),
	}
}

// Ping checks both pools. A shared pool is pinged once.
func (c *Connection) Ping(ctx context.Context) error {
	if c.Write == nil || c.Read == nil {
		return fmt.Errorf("database connection is not established")
	}

	if err := c.Write.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping write database: %w", err)
	}

	if c.Read == c.Write {
		return nil
	}

	if err := c.Read.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping read database: %w", err)
	}

	return nil
}

func WriteEndpoint(config *config.Config) Endpoint {
	write := config.DB.Postgres.Write

	return Endpoint{
		Role:     "write",
		Host:     write.Host,
		Port:     write.Port,
		Username: write.Username,
		Password: write.Password,
		Name:     config.DB.Postgres.Prefix + write.Name,
		SSLMode:  write.SSLMode,
	}
}

func ReadEndpoint(config *config.Config) Endpoint {
	read := config.DB.Postgres.Read

	return Endpoint{
		Role:     "read",
		Host:     read.Host,
		Port:     read.Port,
		Username: read.Username,
		Password: read.Password,
		Name:     config.DB.Postgres.Prefix + read.Name,
		SSLMode:  read.SSLMode,
	}
}

// DSN renders the endpoint as a postgres URL. Credentials are escaped; extra is appended to
// the query string.
func (e Endpoint) DSN(extra url.Values) string {
	query := url.Values{}
	if e.SSLMode != "" {
		query.Set("sslmode", e.SSLMode)
	}

	for key, values := range extra {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	dsn := url.URL{
		Scheme:   driverName,
		User:     url.UserPassword(e.Username, e.Password),
		Host:     net.JoinHostPort(e.Host, e.Port),
		Path:     "/" + e.Name,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

// Open connects with retries and applies the pool settings. It returns nil once the retry
// budget is spent.
func Open(config *config.Config, endpoint Endpoint) *sqlx.DB {
	pool := config.DB.Postgres.Pool
	logger := log.With().
		Str("name", endpoint.Role).
		Str("host", endpoint.Host).
		Str("port", endpoint.Port).
		Str("dbName", endpoint.Name).
		Logger()

	for attempt := 1; attempt <= max(1, config.DB.Postgres.MaxRetry); attempt++ {
		db, err := sqlx.Connect(driverName, endpoint.DSN(nil))
		if err == nil {
			db.SetMaxOpenConns(orDefault(pool.MaxOpenConnections, defaultMaxOpenConnection))
			db.SetMaxIdleConns(orDefault(pool.MaxIdleConnections, defaultMaxIdleConnection))
			db.SetConnMaxLifetime(defaultConnMaxLifetime)

			if pool.ConnMaxLifetimeSeconds > 0 {
				db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
			}

			logger.Info().Msg("Connected to database")

			return db
		}

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed connecting to database, retrying")

		time.Sleep(time.Duration(config.DB.Postgres.RetryWaitTime) * time.Second)
	}

	return nil
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}

	return value
}
