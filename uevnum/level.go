// Package uevnum provides constants shared across the uev ecosystem.
package uevnum

import (
	"fmt"
	"strings"
)

// Level is a trace verbosity level.  The numeric values match the
// native collector's encoding: lower is more severe.  Zero is
// reserved ("log always") and is never produced by the bridge.
type Level uint8

const (
	ErrorLevel Level = 2 // error
	WarnLevel  Level = 3 // warn
	InfoLevel  Level = 4 // info
	DebugLevel Level = 5 // debug
	TraceLevel Level = 6 // trace
)

const MaxLevel = TraceLevel

func (level Level) String() string {
	switch level {
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	case TraceLevel:
		return "trace"
	default:
		return fmt.Sprintf("level-%d", int(level))
	}
}

// LevelString parses levels as formatted by String.
func LevelString(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "trace":
		return TraceLevel, nil
	}
	return 0, fmt.Errorf("'%s' is not a valid level", s)
}
