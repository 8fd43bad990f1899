package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Match    MatchConfig    `mapstructure:"match"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Live     LiveConfig     `mapstructure:"live"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	LiveGC      string `mapstructure:"live_gc"`
	ExpirySweep string `mapstructure:"expiry_sweep"`
	SweepLimit  int    `mapstructure:"sweep_limit"`
}

// MatchConfig is the per-phase time budget and the fixed window count.
type MatchConfig struct {
	DraftBudget      time.Duration `mapstructure:"draft_budget"`
	AnalysisBudget   time.Duration `mapstructure:"analysis_budget"`
	HypothesisBudget time.Duration `mapstructure:"hypothesis_budget"`
	BattleBudget     time.Duration `mapstructure:"battle_budget"`
	WindowCount      int           `mapstructure:"window_count"`
}

type PipelineConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

type LiveConfig struct {
	ConnBuffer int `mapstructure:"conn_buffer"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.live_gc", "@every 1m")
	v.SetDefault("cron.expiry_sweep", "@every 30s")
	v.SetDefault("cron.sweep_limit", 100)
	v.SetDefault("match.draft_budget", "2m")
	v.SetDefault("match.analysis_budget", "1m")
	v.SetDefault("match.hypothesis_budget", "90s")
	v.SetDefault("match.battle_budget", "4m")
	v.SetDefault("match.window_count", 8)
	v.SetDefault("pipeline.max_workers", 4)
	v.SetDefault("live.conn_buffer", 32)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
