// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/MilkeeyCat/chip-go/internal/config"
)

// ParseFlags parses the command line arguments, including the program name
// in args[0], into emulator options.
func ParseFlags(args []string) (config.Options, error) {
	opts := config.DefaultOptions()

	name := "chip8"
	if len(args) > 0 {
		name = args[0]
		args = args[1:]
	}

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	readOptionFlags(flags, &opts)

	if err := flags.Parse(args); err != nil {
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}

	rest := flags.Args()
	if len(rest) == 0 {
		return opts, &UsageError{flags: flags, msg: "no rom file given"}
	}
	if len(rest) > 1 {
		return opts, &UsageError{
			flags: flags,
			msg:   fmt.Sprintf("unexpected argument %s after rom file, please pass the rom file as last argument", rest[1]),
		}
	}
	opts.ROM = rest[0]

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage writes the error message followed by the flag defaults to w.
func (e *UsageError) ShowUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "error: %s\n\n", e.msg)
	_, _ = fmt.Fprintf(w, "usage: chip8 [options] <rom file>\n\n")
	e.flags.SetOutput(w)
	e.flags.PrintDefaults()
	_, _ = fmt.Fprintln(w)
}

func readOptionFlags(flags *flag.FlagSet, opts *config.Options) {
	flags.IntVar(&opts.InstructionsPerSecond, "ips", opts.InstructionsPerSecond, "instructions executed per second")
	flags.IntVar(&opts.Scale, "scale", opts.Scale, "window pixels per display pixel")
	flags.BoolVar(&opts.Disassemble, "disasm", false, "print a disassembly of the rom and exit")
	flags.BoolVar(&opts.Mute, "mute", false, "do not play the sound timer beep")
	flags.BoolVar(&opts.Trace, "trace", false, "log every executed instruction, implies -debug")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
