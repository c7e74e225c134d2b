//go:build !integration

package envutil

import (
	"testing"

	"github.com/githubnext/ocsfc/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestGetIntFromEnv(t *testing.T) {
	const testEnvVar = "OCSFC_TEST_INT_VALUE"

	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		minValue     int
		maxValue     int
		expected     int
	}{
		{name: "default when env var not set", envValue: "", defaultValue: 10, minValue: 1, maxValue: 100, expected: 10},
		{name: "valid value within range", envValue: "50", defaultValue: 10, minValue: 1, maxValue: 100, expected: 50},
		{name: "valid value at minimum", envValue: "1", defaultValue: 10, minValue: 1, maxValue: 100, expected: 1},
		{name: "valid value at maximum", envValue: "100", defaultValue: 10, minValue: 1, maxValue: 100, expected: 100},
		{name: "invalid non-numeric value", envValue: "invalid", defaultValue: 10, minValue: 1, maxValue: 100, expected: 10},
		{name: "invalid value below minimum", envValue: "0", defaultValue: 10, minValue: 1, maxValue: 100, expected: 10},
		{name: "invalid negative value", envValue: "-5", defaultValue: 10, minValue: 1, maxValue: 100, expected: 10},
		{name: "invalid value above maximum", envValue: "101", defaultValue: 10, minValue: 1, maxValue: 100, expected: 10},
		{name: "whitespace in value", envValue: " 50 ", defaultValue: 10, minValue: 1, maxValue: 100, expected: 10},
		{name: "leading zeros", envValue: "0050", defaultValue: 10, minValue: 1, maxValue: 100, expected: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testEnvVar, tt.envValue)
			log := logger.New("test:GetIntFromEnv")
			assert.Equal(t, tt.expected, GetIntFromEnv(testEnvVar, tt.defaultValue, tt.minValue, tt.maxValue, log))
		})
	}
}

func TestGetIntFromEnv_WithoutLogger(t *testing.T) {
	t.Setenv("OCSFC_TEST_INT_NO_LOG", "42")
	assert.Equal(t, 42, GetIntFromEnv("OCSFC_TEST_INT_NO_LOG", 10, 1, 100, nil))
}
