package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Merge     MergeConfig     `mapstructure:"merge"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Linker    LinkerConfig    `mapstructure:"linker"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Lock      LockConfig      `mapstructure:"lock"`
	Retry     RetryConfig     `mapstructure:"retry"`
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
	Enabled   bool   `mapstructure:"enabled"`
	FullBatch string `mapstructure:"full_batch"`
}

type SourcesConfig struct {
	// Enabled sources in merge order; each name must have a registered
	// source adapter.
	Enabled []string `mapstructure:"enabled"`
	// Consolidation priority per source; lower wins.
	Priorities map[string]int `mapstructure:"priorities"`
}

type MergeConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

type ResolverConfig struct {
	// Source whose plate-keyed mappings are reused verbatim.
	ReferenceSource string  `mapstructure:"reference_source"`
	MakerThreshold  float64 `mapstructure:"maker_threshold"`
	GroupThreshold  float64 `mapstructure:"group_threshold"`
	ModelThreshold  float64 `mapstructure:"model_threshold"`
	TrimThreshold   float64 `mapstructure:"trim_threshold"`
	GradeThreshold  float64 `mapstructure:"grade_threshold"`
	CommitThreshold float64 `mapstructure:"commit_threshold"`
	BatchSize       int     `mapstructure:"batch_size"`
}

type LinkerConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

type LifecycleConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

type LockConfig struct {
	// "advisory" uses postgres advisory locks; "local" is an
	// in-process mutex for single-instance deployments.
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Jitter      time.Duration `mapstructure:"jitter"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CARIZON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "Asia/Seoul")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.full_batch", "0 0 2 * * *")
	v.SetDefault("sources.enabled", []string{"CHACHACHA", "ENCAR", "KCAR", "CHUTCHA"})
	v.SetDefault("sources.priorities", map[string]int{
		"CHACHACHA": 1,
		"ENCAR":     2,
		"KCAR":      3,
		"CHUTCHA":   4,
		"CHARANCHA": 5,
		"TCAR":      6,
	})
	v.SetDefault("merge.chunk_size", 1000)
	v.SetDefault("resolver.reference_source", "CHACHACHA")
	v.SetDefault("resolver.maker_threshold", 0.85)
	v.SetDefault("resolver.group_threshold", 0.88)
	v.SetDefault("resolver.model_threshold", 0.90)
	v.SetDefault("resolver.trim_threshold", 0.90)
	v.SetDefault("resolver.grade_threshold", 0.90)
	v.SetDefault("resolver.commit_threshold", 0.93)
	v.SetDefault("resolver.batch_size", 1000)
	v.SetDefault("linker.chunk_size", 1000)
	v.SetDefault("lifecycle.chunk_size", 1000)
	v.SetDefault("lock.backend", "advisory")
	v.SetDefault("lock.timeout", "30s")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff", "500ms")
	v.SetDefault("retry.jitter", "200ms")

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
