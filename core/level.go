package core

import (
	"fmt"
	"strings"
)

// LogEventLevel specifies the severity of a log event as a cumulative bitmask.
//
// Each level includes every bit of the more severe levels plus one bit of its
// own, so that a level enables a target exactly when the target's mask is
// contained in it. Custom levels may be formed by OR-ing extra bits onto a
// standard level as long as callers only test containment.
type LogEventLevel uint32

const (
	// OffLevel disables all events.
	OffLevel LogEventLevel = 0

	// FatalLevel is for fatal errors.
	FatalLevel LogEventLevel = 1

	// ErrorLevel is for errors.
	ErrorLevel LogEventLevel = 3

	// WarningLevel is for warnings.
	WarningLevel LogEventLevel = 7

	// InformationLevel is for informational messages.
	InformationLevel LogEventLevel = 15

	// DebugLevel is for debugging information.
	DebugLevel LogEventLevel = 31

	// VerboseLevel is the most detailed logging level.
	VerboseLevel LogEventLevel = 63
)

// IsEnabled reports whether events at target pass a gate set to level.
func IsEnabled(level, target LogEventLevel) bool {
	return level&target == target
}

// String returns the canonical name of a standard level.
func (l LogEventLevel) String() string {
	switch l {
	case OffLevel:
		return "Off"
	case FatalLevel:
		return "Fatal"
	case ErrorLevel:
		return "Error"
	case WarningLevel:
		return "Warning"
	case InformationLevel:
		return "Information"
	case DebugLevel:
		return "Debug"
	case VerboseLevel:
		return "Verbose"
	default:
		return fmt.Sprintf("Level(%d)", uint32(l))
	}
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(name string) (LogEventLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "off":
		return OffLevel, nil
	case "fatal", "ftl":
		return FatalLevel, nil
	case "error", "err":
		return ErrorLevel, nil
	case "warning", "warn", "wrn":
		return WarningLevel, nil
	case "information", "info", "inf":
		return InformationLevel, nil
	case "debug", "dbg":
		return DebugLevel, nil
	case "verbose", "vrb":
		return VerboseLevel, nil
	default:
		return OffLevel, fmt.Errorf("%w: unknown log level %q", ErrInvalidArgument, name)
	}
}
