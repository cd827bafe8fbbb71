package navdetect

import (
	"github.com/hazyhaar/navkey/navdetect/internal/config"
)

// Tunables are the engine's adjustable constants. Re-exported from internal.
type Tunables = config.Tunables

// DefaultTunables returns the engine defaults.
func DefaultTunables() Tunables {
	return config.Defaults()
}

// LoadTunablesFile reads tunables from a YAML file, filling gaps with
// defaults.
func LoadTunablesFile(path string) (Tunables, error) {
	return config.LoadFile(path)
}
