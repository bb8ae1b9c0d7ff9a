package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all environment variables read by the App.
const EnvPrefix = "BKCAT"

// Supported document store drivers.
const (
	RedisDriver    = "redis"
	BoltDriver     = "bolt"
	PostgresDriver = "postgres"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string          `yaml:"git_commit" envconfig:"BKCAT_GIT_COMMIT"`
	GitTag                  string          `yaml:"git_tag" envconfig:"BKCAT_GIT_TAG"`
	BuildTime               string          `yaml:"build_time" envconfig:"BKCAT_BUILD_TIME"`
	IsProduction            bool            `yaml:"is_production" envconfig:"BKCAT_IS_PRODUCTION"`
	LogLevel                zapcore.Level   `yaml:"log_level" envconfig:"BKCAT_LOG_LEVEL"`
	LogFolder               string          `yaml:"log_folder" envconfig:"BKCAT_LOG_FOLDER"`
	LogMaxSize              int             `yaml:"log_max_size" envconfig:"BKCAT_LOG_MAX_SIZE"`
	LogMaxFiles             int             `yaml:"log_max_files" envconfig:"BKCAT_LOG_MAX_FILES"`
	OpsEndpointsEnable      bool            `yaml:"ops_endpoints_enable" envconfig:"BKCAT_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool            `yaml:"profiler_endpoints_enable" envconfig:"BKCAT_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig    `yaml:"server"`
	RateLimit               RateLimitConfig `yaml:"rate_limit"`
	Storage                 StorageConfig   `yaml:"storage"`
	Redis                   RedisConfig     `yaml:"redis"`
	BoltDB                  BoltDBConfig    `yaml:"boltdb"`
	Postgres                PostgresConfig  `yaml:"postgres"`
}

type ServerConfig struct {
	Host                    string        `yaml:"host" envconfig:"BKCAT_SERVER_HOST"`
	Port                    string        `yaml:"port" envconfig:"BKCAT_SERVER_PORT"`
	ViewsFolder             string        `yaml:"views_folder" envconfig:"BKCAT_SERVER_VIEWS_FOLDER"`
	PublicFolder            string        `yaml:"public_folder" envconfig:"BKCAT_SERVER_PUBLIC_FOLDER"`
	ReadTimeout             time.Duration `yaml:"read_timeout" envconfig:"BKCAT_SERVER_READ_TIMEOUT"`
	WriteTimeout            time.Duration `yaml:"write_timeout" envconfig:"BKCAT_SERVER_WRITE_TIMEOUT"`
	LongRequestWriteTimeout time.Duration `yaml:"long_request_write_timeout" envconfig:"BKCAT_SERVER_LONG_REQUEST_WRITE_TIMEOUT"`
	RequestTimeout          time.Duration `yaml:"request_timeout" envconfig:"BKCAT_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout         time.Duration `yaml:"shutdown_timeout" envconfig:"BKCAT_SERVER_SHUTDOWN_TIMEOUT"`
}

type RateLimitConfig struct {
	Enable            bool          `yaml:"enable" envconfig:"BKCAT_RATE_LIMIT_ENABLE"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"BKCAT_RATE_LIMIT_REQUESTS_PER_SECOND"`
	Burst             int           `yaml:"burst" envconfig:"BKCAT_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" envconfig:"BKCAT_RATE_LIMIT_CLEANUP_INTERVAL"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" envconfig:"BKCAT_RATE_LIMIT_IDLE_TIMEOUT"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"BKCAT_STORAGE_DRIVER"`
}

type RedisConfig struct {
	URL           string        `yaml:"url" envconfig:"BKCAT_REDIS_URL" json:"-"`
	Host          string        `yaml:"host" envconfig:"BKCAT_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BKCAT_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BKCAT_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BKCAT_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BKCAT_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BKCAT_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BKCAT_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BKCAT_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BKCAT_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BKCAT_REDIS_DATABASE_INDEX"`
	MaxTxRetries  int           `yaml:"max_tx_retries" envconfig:"BKCAT_REDIS_MAX_TX_RETRIES"`
	QueueName     string        `yaml:"queue_name" envconfig:"BKCAT_REDIS_QUEUE_NAME"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BKCAT_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BKCAT_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BKCAT_BOLTDB_BUCKET_NAME"`
	Mirror     bool          `yaml:"mirror" envconfig:"BKCAT_BOLTDB_MIRROR"`
}

type PostgresConfig struct {
	DSN            string        `yaml:"dsn" envconfig:"BKCAT_POSTGRES_DSN" json:"-"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"BKCAT_POSTGRES_CONNECT_TIMEOUT"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"BKCAT_POSTGRES_MAX_CONNS"`
	TableName      string        `yaml:"table_name" envconfig:"BKCAT_POSTGRES_TABLE_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 100
	}

	if config.Redis.MaxTxRetries <= 0 {
		config.Redis.MaxTxRetries = 10
	}
	if config.Redis.QueueName == "" {
		config.Redis.QueueName = ChangesQueue
	}

	if len(config.Storage.Driver) == 0 {
		config.Storage.Driver = RedisDriver
	}

	if len(config.BoltDB.BucketName) == 0 {
		config.BoltDB.BucketName = "books"
	}

	if len(config.Postgres.TableName) == 0 {
		config.Postgres.TableName = "books"
	}

	switch config.Storage.Driver {
	case RedisDriver:
		if len(config.Redis.URL) == 0 && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
			return errors.New("make sure to set valid redis url or address and port in configuration file")
		}
	case BoltDriver:
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set valid boltdb file path in configuration file")
		}
	case PostgresDriver:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set valid postgres dsn in configuration file")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.BoltDB.Mirror && len(config.BoltDB.FilePath) == 0 {
		return errors.New("make sure to set valid boltdb file path to enable the mirror")
	}

	if config.RateLimit.Enable && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return errors.New("make sure to set positive rate limit values in configuration file")
	}

	if config.RateLimit.CleanupInterval <= 0 {
		config.RateLimit.CleanupInterval = time.Minute
	}

	if config.RateLimit.IdleTimeout <= 0 {
		config.RateLimit.IdleTimeout = 3 * time.Minute
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	if _, serr := os.Stat(envFile); serr == nil {
		if err = godotenv.Load(envFile); err != nil {
			return config, fmt.Errorf("failed to set environment configurations: %s", err)
		}
	}

	// Use environment variables with prefix `BKCAT`.
	err = LoadConfigEnvs(EnvPrefix, config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
