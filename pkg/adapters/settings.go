package adapters

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings provides typed access to a provider entry's settings map.
// YAML parsing produces loosely typed values (strings, ints, floats), so
// every accessor takes a default and tolerates reasonable alternatives.
type Settings map[string]any

// String returns the string value for key, or def.
func (s Settings) String(key, def string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer value for key, or def.
func (s Settings) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the float value for key, or def.
func (s Settings) Float(key string, def float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// Bool returns the boolean value for key, or def.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Decimal returns the decimal value for key, or def. Strings are preferred
// in configuration so amounts like "0.0015" stay exact.
func (s Settings) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	switch v := s[key].(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	}
	return def
}

// Duration returns the duration value for key, or def. Accepts strings in
// time.ParseDuration format.
func (s Settings) Duration(key string, def time.Duration) time.Duration {
	if v, ok := s[key].(string); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Has reports whether key is present at all.
func (s Settings) Has(key string) bool {
	_, ok := s[key]
	return ok
}
