package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	maskChar        = "*"
	fixedMaskLength = 6
)

// Desensitizer is a logrus hook that masks sensitive log fields.
type Desensitizer struct {
	fields []string
}

// NewDesensitizer creates a new desensitizer for the given field names.
// Matching is case insensitive and by substring, so "api_key" also masks
// "generator_api_key".
func NewDesensitizer(fields []string) *Desensitizer {
	lower := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			lower = append(lower, f)
		}
	}
	return &Desensitizer{fields: lower}
}

// Levels returns all log levels
func (d *Desensitizer) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire masks sensitive fields of the entry in place
func (d *Desensitizer) Fire(entry *logrus.Entry) error {
	for key, value := range entry.Data {
		if d.isSensitiveField(key) {
			entry.Data[key] = d.maskValue(value)
		}
	}
	return nil
}

// isSensitiveField checks if field name contains sensitive keywords
func (d *Desensitizer) isSensitiveField(fieldName string) bool {
	if fieldName == "" {
		return false
	}
	lowerName := strings.ToLower(fieldName)
	for _, f := range d.fields {
		if strings.Contains(lowerName, f) {
			return true
		}
	}
	return false
}

// maskValue masks sensitive values with fixed-length replacement
func (d *Desensitizer) maskValue(value any) any {
	if s, ok := value.(string); ok && s == "" {
		return s
	}
	if value == nil {
		return nil
	}
	return strings.Repeat(maskChar, fixedMaskLength)
}
