package ops

import (
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/internal/gateway/live"
	"main/internal/gateway/live/upbit"
	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/conn"
	"main/pkg/exception"
)

const (
	_defaultInterval     = 10 * time.Second
	_defaultPollInterval = time.Second
	_defaultCommissionBP = 5
	_defaultScoreEvery   = 60
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Venue        string          `json:"venue"`
	Market       string          `json:"market"`
	Budget       int64           `json:"budget"`
	CommissionBP int64           `json:"commissionBP"`
	Interval     string          `json:"interval"`
	PollInterval string          `json:"pollInterval"`
	ScoreEvery   int             `json:"scoreEvery"`
	DataFile     string          `json:"dataFile"`
	Risk         live.RiskConfig `json:"risk"`
	Upbit        upbit.Config    `json:"upbit"`
	Postgres     *PostgresConfig `json:"postgres"`
	MetricsAddr  string          `json:"metricsAddr"`
	ProfileAddr  string          `json:"profileAddr"`
}

// PostgresConfig describes the optional candle store.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Venue        enum.Venue
	Market       string
	Budget       model.Price
	CommissionBP int64
	Interval     time.Duration
	PollInterval time.Duration
	ScoreEvery   int
	DataFile     string
	Risk         live.RiskConfig
	Upbit        upbit.Config
	Postgres     *conn.Option
	MetricsAddr  string
	ProfileAddr  string
}

// Load reads a JSON config file and resolves defaults.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config").With("path", path)
	}
	var cfg FileConfig
	if err := sonic.ConfigFastest.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config").With("path", path)
	}
	return Resolve(cfg)
}

// Resolve validates a file config and fills defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	venue, ok := enum.ParseVenue(cfg.Venue)
	if !ok {
		return Loaded{}, errors.Wrap(exception.ErrOrderUnsupportedVenue, "config").With("venue", cfg.Venue)
	}
	if cfg.Market == "" {
		return Loaded{}, errors.New("config: market is empty")
	}
	if cfg.Budget <= 0 {
		return Loaded{}, errors.New("config: budget must be > 0")
	}
	if venue == enum.VenueSimulation && cfg.DataFile == "" {
		return Loaded{}, errors.New("config: dataFile required for simulation")
	}

	interval, err := resolveDuration(cfg.Interval, _defaultInterval)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "parse interval")
	}
	pollInterval, err := resolveDuration(cfg.PollInterval, _defaultPollInterval)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "parse pollInterval")
	}

	loaded := Loaded{
		Venue:        venue,
		Market:       cfg.Market,
		Budget:       model.Price(cfg.Budget),
		CommissionBP: cfg.CommissionBP,
		Interval:     interval,
		PollInterval: pollInterval,
		ScoreEvery:   cfg.ScoreEvery,
		DataFile:     cfg.DataFile,
		Risk:         cfg.Risk,
		Upbit:        cfg.Upbit,
		MetricsAddr:  cfg.MetricsAddr,
		ProfileAddr:  cfg.ProfileAddr,
	}
	if loaded.CommissionBP <= 0 {
		loaded.CommissionBP = _defaultCommissionBP
	}
	if loaded.ScoreEvery == 0 {
		loaded.ScoreEvery = _defaultScoreEvery
	}
	if cfg.Postgres != nil {
		loaded.Postgres = &conn.Option{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}
	}
	return loaded, nil
}

func resolveDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}
