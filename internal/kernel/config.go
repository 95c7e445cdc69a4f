package kernel

import (
	"time"

	"github.com/imdario/mergo"
)

// Config holds the handful of build-time-fixed, but still explicitly
// overridable for tests, scheduling constants from spec.md 4.1. The
// teacher's plib.NewLinuxInspector(opts ...LinuxInspectorConfig) pattern
// manually applies "last variadic argument wins, then fall back to
// defaults"; here mergo.Merge replaces that hand-rolled merge (as
// lazydocker's own config loading does for user_config.go against its
// built-in defaults).
type Config struct {
	// Quantum is the wall-clock duration of one scheduler tick. Default
	// 100ms per spec.md 5.
	Quantum time.Duration
	// ScheduleRatio is the 19-slot cyclic vector encoding the 9:6:4
	// weighted round robin across priorities 0, 1, 2.
	ScheduleRatio []int
}

// DefaultConfig returns the spec-mandated defaults: a 100ms quantum and the
// fixed 9 zeros, 6 ones, 4 twos schedule vector.
func DefaultConfig() Config {
	ratio := make([]int, 0, 19)
	for i := 0; i < 9; i++ {
		ratio = append(ratio, 0)
	}
	for i := 0; i < 6; i++ {
		ratio = append(ratio, 1)
	}
	for i := 0; i < 4; i++ {
		ratio = append(ratio, 2)
	}
	return Config{Quantum: 100 * time.Millisecond, ScheduleRatio: ratio}
}

// Merge overlays the non-zero fields of override onto DefaultConfig and
// returns the result, so a caller can change single fields (such as a
// shorter quantum) without duplicating DefaultConfig's construction logic.
func Merge(override Config) (Config, error) {
	cfg := DefaultConfig()
	if err := mergo.Merge(&cfg, override, mergo.WithOverride); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
