package config

import (
	"github.com/spf13/viper"
)

// Logger logger config struct
type Logger struct {
	Level           int      `json:"level" yaml:"level"`
	Format          string   `json:"format" yaml:"format"`
	Output          string   `json:"output" yaml:"output"`
	OutputFile      string   `json:"output_file" yaml:"output_file"`
	SensitiveFields []string `json:"sensitive_fields" yaml:"sensitive_fields"`
}

var defaultSensitiveFields = []string{"password", "api_key", "apikey", "token", "secret", "dsn"}

func getLoggerConfig(v *viper.Viper) *Logger {
	fields := v.GetStringSlice("logger.sensitive_fields")
	if len(fields) == 0 {
		fields = defaultSensitiveFields
	}
	return &Logger{
		Level:           getIntOrDefault(v, "logger.level", 4),
		Format:          getStringOrDefault(v, "logger.format", "json"),
		Output:          getStringOrDefault(v, "logger.output", "stdout"),
		OutputFile:      v.GetString("logger.output_file"),
		SensitiveFields: fields,
	}
}
