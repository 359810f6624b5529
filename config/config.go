package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server struct {
		Env      string `envconfig:"ENV"`
		LogLevel string `envconfig:"LOG_LEVEL"`
		Port     string `envconfig:"PORT"`
		Host     string `envconfig:"HOST"`
		Shutdown struct {
			CleanupPeriodSeconds int64 `envconfig:"CLEANUP_PERIOD_SECONDS"`
			GracePeriodSeconds   int64 `envconfig:"GRACE_PERIOD_SECONDS"`
		} `envconfig:"SHUTDOWN"`
	} `envconfig:"SERVER"`

	App struct {
		Name     string `envconfig:"APP_NAME"`
		Timezone string `envconfig:"TIMEZONE"`
		CORS     struct {
			AllowCredentials bool     `envconfig:"ALLOW_CREDENTIALS"`
			AllowedHeaders   []string `envconfig:"ALLOWED_HEADERS"`
			AllowedMethods   []string `envconfig:"ALLOWED_METHODS"`
			AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
			Enable           bool     `envconfig:"ENABLE"`
			MaxAgeSeconds    int      `envconfig:"MAX_AGE_SECONDS"`
		} `envconfig:"CORS"`
		RateLimiter struct {
			Enable        bool `envconfig:"ENABLE"`
			MaxRequests   int  `envconfig:"MAX_REQUESTS"`
			WindowSeconds int  `envconfig:"WINDOW_SECONDS"`
		} `envconfig:"RATE_LIMITER"`
		APIKey string `envconfig:"API_KEY"`
	} `envconfig:"APP"`

	Cache struct {
		Redis struct {
			Primary struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Password string `envconfig:"PASSWORD"`
				DB       int    `envconfig:"DB"`
				PoolSize int    `envconfig:"POOL_SIZE"`
			} `envconfig:"PRIMARY"`
			TimeoutMillis int `envconfig:"TIMEOUT_MILLIS"`
		} `envconfig:"REDIS"`
		TTL int `envconfig:"TTL"`
	} `envconfig:"CACHE"`

	// JWT holds the key used to verify bearer tokens issued by the identity provider.
	JWT struct {
		AccessSecret string `envconfig:"ACCESS_SECRET"`
		Issuer       string `envconfig:"ISSUER"`
	} `envconfig:"JWT"`

	DB struct {
		Postgres struct {
			MaxRetry       int    `envconfig:"MAX_RETRY"`
			RetryWaitTime  int    `envconfig:"RETRY_WAIT_TIME"`
			TxMaxRetry     int    `envconfig:"TX_MAX_RETRY"`
			MigrationTable string `envconfig:"MIGRATION_TABLE"`
			AutoMigrate    bool   `envconfig:"AUTO_MIGRATE"`
			Prefix         string `envconfig:"PREFIX"`
			Pool           struct {
				MaxOpenConnections     int `envconfig:"MAX_OPEN_CONNECTIONS"`
				MaxIdleConnections     int `envconfig:"MAX_IDLE_CONNECTIONS"`
				ConnMaxLifetimeSeconds int `envconfig:"CONN_MAX_LIFETIME_SECONDS"`
			} `envconfig:"POOL"`
			Read  PostgresEndpoint `envconfig:"READ"`
			Write PostgresEndpoint `envconfig:"WRITE"`
		} `envconfig:"POSTGRES"`
	} `envconfig:"DB"`

	Kafka struct {
		Enable        bool     `envconfig:"ENABLE"`
		Brokers       []string `envconfig:"BROKERS"`
		ConsumerGroup string   `envconfig:"CONSUMER_GROUP"`
		SASL          struct {
			Username string `envconfig:"USERNAME"`
			Password string `envconfig:"PASSWORD"`
		} `envconfig:"SASL"`
		Topics struct {
			BookingEvents  string `envconfig:"BOOKING_EVENTS"  default:"parking.booking-events"`
			ProviderEvents string `envconfig:"PROVIDER_EVENTS" default:"parking.provider-events"`
		} `envconfig:"TOPICS"`
	} `envconfig:"KAFKA"`

	CheckIn struct {
		Secret          string `envconfig:"SECRET"`
		TokenTTLMinutes int    `envconfig:"TOKEN_TTL_MINUTES"`
	} `envconfig:"CHECKIN"`

	Payments struct {
		Enabled         bool   `envconfig:"ENABLED"`
		Provider        string `envconfig:"PROVIDER"         default:"stripe"`
		DefaultCurrency string `envconfig:"DEFAULT_CURRENCY" default:"usd"`
		Stripe          struct {
			SecretKey     string `envconfig:"SECRET_KEY"`
			WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
		} `envconfig:"STRIPE"`
	} `envconfig:"PAYMENTS"`

	External struct {
		Otel struct {
			Endpoint    string  `envconfig:"ENDPOINT"`
			SampleRatio float64 `envconfig:"SAMPLE_RATIO"`
		} `envconfig:"OTEL"`
		S3 struct {
			APIEndpoint     string `envconfig:"API_ENDPOINT"`
			AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
			SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
			BucketName      string `envconfig:"BUCKET_NAME"`
			Region          string `envconfig:"REGION" default:"auto"`
		} `envconfig:"S3"`
	} `envconfig:"EXTERNAL"`
}

// PostgresEndpoint is one side of the read/write split.
type PostgresEndpoint struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Username string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Name     string `envconfig:"NAME"`
	SSLMode  string `envconfig:"SSL_MODE"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

var supportedPaymentProviders = []string{"stripe"}

var (
	conf     *Config
	once     sync.Once
	errInit  error
	envFiles = []string{".env"}
)

// Load reads the optional dotenv files into the environment and decodes it. Variables
// already set win over the files.
func Load(files ...string) (*Config, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			log.Debug().Err(err).Str("file", file).Msg("env file not loaded")
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations that would only fail later at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.Payments.Enabled && !slices.Contains(supportedPaymentProviders, c.Payments.Provider) {
		errs = append(errs, fmt.Errorf("%w: unsupported payment provider %q", ErrInvalidConfig, c.Payments.Provider))
	}

	if c.Kafka.Enable && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("%w: kafka is enabled without brokers", ErrInvalidConfig))
	}

	if c.App.RateLimiter.Enable && (c.App.RateLimiter.MaxRequests <= 0 || c.App.RateLimiter.WindowSeconds <= 0) {
		errs = append(errs, fmt.Errorf("%w: rate limiter needs a positive limit and window", ErrInvalidConfig))
	}

	if c.CheckIn.TokenTTLMinutes < 0 {
		errs = append(errs, fmt.Errorf("%w: check-in token ttl cannot be negative", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

func Init() error {
	once.Do(func() {
		conf, errInit = Load(envFiles...)
		if errInit == nil {
			log.Info().Msg("configuration loaded")
		}
	})

	return errInit
}

// Get returns the process configuration, loading it on first use. It exits when the
// configuration cannot be loaded.
func Get() *Config {
	if err := Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	return conf
}
