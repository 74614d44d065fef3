// Package config handles application configuration and setup
package config

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
)

const (
	DefaultInstructionsPerSecond = 700
	DefaultScale                 = 15

	MaxInstructionsPerSecond = 1_000_000
)

// Options holds the settings of the emulator host.
type Options struct {
	ROM string

	InstructionsPerSecond int
	Scale                 int

	Disassemble bool
	Mute        bool
	Trace       bool
	Debug       bool
	Quiet       bool
}

// DefaultOptions returns options with all rates and sizes set to defaults.
func DefaultOptions() Options {
	return Options{
		InstructionsPerSecond: DefaultInstructionsPerSecond,
		Scale:                 DefaultScale,
	}
}

// Validate checks the options for values the host can not run with.
func (o Options) Validate() error {
	if o.ROM == "" {
		return errors.New("no rom file given")
	}
	if o.InstructionsPerSecond <= 0 || o.InstructionsPerSecond > MaxInstructionsPerSecond {
		return fmt.Errorf("invalid instructions per second %d", o.InstructionsPerSecond)
	}
	if o.Scale <= 0 {
		return fmt.Errorf("invalid scale %d", o.Scale)
	}
	return nil
}

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
