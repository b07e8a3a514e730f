package nocturne

import (
	"log/slog"
	"math"
	"os"
	"strconv"
)

// FillEnvVar returns the value of a runtime Environment Variable
func FillEnvVar(ev string) string {
	// If the EnvVar doesn't exist return a default string
	value := os.Getenv(ev)
	if value == "" {
		value = "ENOENT"
	}
	return value
}

// FillEnvVarInt reads an integer Environment Variable with a fallback.
// Unset or unparseable values return the given default.
func FillEnvVarInt(ev string, def int) int {
	value, exists := os.LookupEnv(ev)
	if !exists {
		return def
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		slog.Error("Env var is not an int, using default",
			slog.String("EnvVar", ev),
			slog.Any("Error", err))
		return def
	}
	return i
}

// FloatPrecise rounds a float to a fixed number of decimal places.
// Report percentages use two, everything else stays raw.
func FloatPrecise(f float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(f*shift) / shift
}
