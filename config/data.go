package config

import (
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Data represents the data configuration
type Data struct {
	Store  string  `json:"store" yaml:"store"`
	Index  string  `json:"index" yaml:"index"`
	SQLite *SQLite `json:"sqlite" yaml:"sqlite"`
	Redis  *Redis  `json:"redis" yaml:"redis"`
}

// SQLite sqlite config struct
type SQLite struct {
	Source string `json:"source" yaml:"source"`
}

// Redis redis config struct
type Redis struct {
	Addr         string        `json:"addr" yaml:"addr"`
	Username     string        `json:"username" yaml:"username"`
	Password     string        `json:"password" yaml:"password"`
	Db           int           `json:"db" yaml:"db"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	KeyPrefix    string        `json:"key_prefix" yaml:"key_prefix"`
}

func getDataConfig(v *viper.Viper) *Data {
	return &Data{
		Store: getStringOrDefault(v, "data.store", StoreMemory),
		Index: getStringOrDefault(v, "data.index", StoreMemory),
		SQLite: &SQLite{
			Source: getStringOrDefault(v, "data.sqlite.source", "file:askflow.db?_busy_timeout=5000&_journal_mode=WAL"),
		},
		Redis: &Redis{
			Addr:         getStringOrDefault(v, "data.redis.addr", "127.0.0.1:6379"),
			Username:     v.GetString("data.redis.username"),
			Password:     v.GetString("data.redis.password"),
			Db:           v.GetInt("data.redis.db"),
			ReadTimeout:  getDurationOrDefault(v, "data.redis.read_timeout", 3*time.Second),
			WriteTimeout: getDurationOrDefault(v, "data.redis.write_timeout", 3*time.Second),
			DialTimeout:  getDurationOrDefault(v, "data.redis.dial_timeout", 5*time.Second),
			KeyPrefix:    getStringOrDefault(v, "data.redis.key_prefix", "askflow"),
		},
	}
}
