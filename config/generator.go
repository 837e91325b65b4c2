package config

import (
	"time"

	"github.com/spf13/viper"
)

// Generator providers
const (
	GeneratorRule = "rule"
	GeneratorHTTP = "http"
)

// Generator SQL generator config struct
type Generator struct {
	Provider string        `json:"provider" yaml:"provider"`
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	APIKey   string        `json:"api_key" yaml:"api_key"`
	Model    string        `json:"model" yaml:"model"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	MaxSQLs  int           `json:"max_sqls" yaml:"max_sqls"`
}

func getGeneratorConfig(v *viper.Viper) *Generator {
	return &Generator{
		Provider: getStringOrDefault(v, "generator.provider", GeneratorRule),
		Endpoint: v.GetString("generator.endpoint"),
		APIKey:   v.GetString("generator.api_key"),
		Model:    getStringOrDefault(v, "generator.model", "gpt-4o-mini"),
		Timeout:  getDurationOrDefault(v, "generator.timeout", 30*time.Second),
		MaxSQLs:  getIntOrDefault(v, "generator.max_sqls", 3),
	}
}
