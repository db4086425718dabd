package config

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-faster/errors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HttpPort  string  `yaml:"http_port" env:"HTTP_PORT" env-default:"8080"`
	JWTSecret string  `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	LogLevel  string  `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Storage   Storage `yaml:"storage"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	// DSN is used by the postgres driver.
	DSN string `yaml:"dsn" env:"STORAGE_DSN"`
	// Path is used by the sqlite driver.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"./data/taskhub.db"`
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// MustLoad reads the config file pointed by the --config flag or CONFIG_PATH,
// environment variables override file values.
func MustLoad() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the config from path, or from the environment only when path is empty.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "godotenv.Load failed")
	}

	cfg := &Config{}
	var err error
	if path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, errors.Wrapf(statErr, "config file %q", path)
		}
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "cleanenv read failed")
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func fetchConfigPath() string {
	app := kingpin.New("taskhub", "Task completion and rewards service.")
	path := app.Flag("config", "Path to config file.").Envar("CONFIG_PATH").String()
	kingpin.MustParse(app.Parse(os.Args[1:]))
	return *path
}
