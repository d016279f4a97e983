package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
	// Inbound actions per second allowed for one websocket connection.
	ActionRate  float64 `mapstructure:"action_rate"`
	ActionBurst int     `mapstructure:"action_burst"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GameConfig holds the round timing and scoring knobs.
type GameConfig struct {
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	QuestionTicks     int           `mapstructure:"question_ticks"`
	ResultsTicks      int           `mapstructure:"results_ticks"`
	PointsPerCorrect  int           `mapstructure:"points_per_correct"`
	RoomCodeLength    int           `mapstructure:"room_code_length"`
	DefaultCategory   string        `mapstructure:"default_category"`
	DefaultDifficulty string        `mapstructure:"default_difficulty"`
	DefaultCount      int           `mapstructure:"default_count"`
	LeaderboardSize   int           `mapstructure:"leaderboard_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig reads config.yaml from path (optional) and overlays TRIVIA_* env vars.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("trivia")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":3001")
	v.SetDefault("server.rpc_address", ":3002")
	v.SetDefault("server.action_rate", 10.0)
	v.SetDefault("server.action_burst", 20)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "trivia")
	v.SetDefault("database.postgres.password", "trivia")
	v.SetDefault("database.postgres.dbname", "trivia")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("game.tick_interval", time.Second)
	v.SetDefault("game.question_ticks", 15)
	v.SetDefault("game.results_ticks", 5)
	v.SetDefault("game.points_per_correct", 100)
	v.SetDefault("game.room_code_length", 6)
	v.SetDefault("game.default_category", "general")
	v.SetDefault("game.default_difficulty", "medium")
	v.SetDefault("game.default_count", 5)
	v.SetDefault("game.leaderboard_size", 10)

	v.SetDefault("log.level", "info")
}

// Validate rejects settings the round lifecycle cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Game.TickInterval <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("game.tick_interval must be positive"))
	case c.Game.QuestionTicks <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("game.question_ticks must be positive"))
	case c.Game.ResultsTicks <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("game.results_ticks must be positive"))
	case c.Game.RoomCodeLength < 4:
		return errors.Join(ErrInvalidConfig, errors.New("game.room_code_length must be at least 4"))
	case c.Game.DefaultCount <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("game.default_count must be positive"))
	}
	return nil
}
