package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Store     Store     `envPrefix:"STORE_"`
		Fetcher   Fetcher   `envPrefix:"FETCHER_"`
		Map       Map       `envPrefix:"MAP_"`
		GTFS      GTFS      `envPrefix:"GTFS_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		Timeout time.Duration `envPrefix:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT" envDefault:"8080"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info"`
	}

	// Store configures the disk tier. Backend is one of
	// filesystem, sqlite, redis, memory, disabled.
	Store struct {
		Backend    string `env:"BACKEND" envDefault:"filesystem"`
		Dir        string `env:"DIR" envDefault:"cache_tiles"`
		Ext        string `env:"EXT" envDefault:"png"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"cache.db"`
	}

	Fetcher struct {
		Workers     int           `env:"WORKERS" envDefault:"4"`
		URLTemplate string        `env:"URL_TEMPLATE" envDefault:"https://a.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png"`
		UserAgent   string        `env:"USER_AGENT" envDefault:"optymap/1.0"`
		Timeout     time.Duration `env:"TIMEOUT" envDefault:"5s"`
		Cooldown    time.Duration `env:"COOLDOWN" envDefault:"10s"`
	}

	Map struct {
		PreloadMargin int `env:"PRELOAD_MARGIN" envDefault:"2"`
	}

	GTFS struct {
		Dir string `env:"DIR" envDefault:"gtfs"`
	}

	Redis struct {
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"24h"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"optymap"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
