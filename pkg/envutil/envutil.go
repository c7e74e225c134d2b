// Package envutil reads bounded settings from environment variables.
package envutil

import (
	"fmt"
	"os"
	"strconv"

	"github.com/githubnext/ocsfc/pkg/console"
	"github.com/githubnext/ocsfc/pkg/logger"
)

// GetIntFromEnv returns the integer value of envVar when it is set and lies
// in [minValue, maxValue]. Otherwise it warns (for set but invalid values)
// and returns defaultValue. log may be nil.
func GetIntFromEnv(envVar string, defaultValue, minValue, maxValue int, log *logger.Logger) int {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("Invalid %s value %q (must be an integer), using default %d", envVar, raw, defaultValue)))
		return defaultValue
	}
	if value < minValue || value > maxValue {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("%s value %d is out of range [%d, %d], using default %d", envVar, value, minValue, maxValue, defaultValue)))
		return defaultValue
	}

	if log != nil {
		log.Printf("Using %s=%d", envVar, value)
	}
	return value
}
