// Package debug provides lightweight, environment-gated diagnostic output
// for the oversqlite engine and its CLI.
package debug

import (
	"fmt"
	"os"
)

var (
	enabled     = os.Getenv("OVERSQLITE_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

// Enabled reports whether debug output is currently turned on.
func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output for the remainder of the process.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output).
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet reports whether quiet mode is enabled.
func IsQuiet() bool {
	return quietMode
}

// Logf writes a debug line to stderr when debug output is enabled.
func Logf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Printf writes a debug line to stdout when debug output is enabled.
func Printf(format string, args ...interface{}) {
	if enabled || verboseMode {
		fmt.Printf(format, args...)
	}
}

// PrintNormal prints output unless quiet mode is enabled.
func PrintNormal(format string, args ...interface{}) {
	if !quietMode {
		fmt.Printf(format, args...)
	}
}

// PrintlnNormal prints a line unless quiet mode is enabled.
func PrintlnNormal(args ...interface{}) {
	if !quietMode {
		fmt.Println(args...)
	}
}
