package domain

import "fmt"

// StrategyVersion selects the trailing-stop EMA pair per side.
type StrategyVersion string

const (
	// StrategyV1 trails LONG on EMA long, SHORT on EMA long.
	StrategyV1 StrategyVersion = "v1"
	// StrategyV2 trails LONG on EMA long, SHORT on EMA short.
	// This is the preferred policy and the system default.
	StrategyV2 StrategyVersion = "v2"
	// StrategyV3 trails LONG on EMA short, SHORT on EMA long.
	StrategyV3 StrategyVersion = "v3"
)

// ParseStrategyVersion validates a version string.
func ParseStrategyVersion(s string) (StrategyVersion, error) {
	switch StrategyVersion(s) {
	case StrategyV1, StrategyV2, StrategyV3:
		return StrategyVersion(s), nil
	}
	return "", fmt.Errorf("unknown strategy version %q", s)
}
