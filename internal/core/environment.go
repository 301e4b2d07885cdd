package core

import "strings"

// Environment selects logging defaults for the companion.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// DefaultLogLevel is the zerolog level name used when LOG_LEVEL is unset.
// Test runs are silent; a child-facing production build only logs info and up.
func (e Environment) DefaultLogLevel() string {
	switch e {
	case Production:
		return "info"
	case Testing:
		return "disabled"
	default:
		return "debug"
	}
}

// ParseEnvironment accepts APP_ENV values case-insensitively, including the
// short forms dev, test and prod. Anything else is Development.
func ParseEnvironment(v string) Environment {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production", "prod":
		return Production
	case "testing", "test":
		return Testing
	default:
		return Development
	}
}
