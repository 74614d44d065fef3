// Package clock converts elapsed wall time into instruction and timer steps
// for a host loop driving the interpreter.
package clock

import (
	"errors"
	"time"
)

// TimerFrequency is the rate of the delay and sound timers in Hz.
const TimerFrequency = 60

// MaxCatchUp bounds the time accounted for in a single Advance call so a
// stalled host does not run a burst of thousands of instructions.
const MaxCatchUp = 250 * time.Millisecond

// MaxRate is the highest rate New accepts. It keeps the accumulated debt of
// MaxCatchUp times the rate within int64.
const MaxRate = 1_000_000_000

var ErrInvalidRate = errors.New("rate out of range")

// Clock tracks how many instruction and timer steps are due. Remainders are
// carried between calls, so the long-run rates are exact.
type Clock struct {
	instructionRate int64
	timerRate       int64

	// accumulated time in units of nanoseconds times rate
	instructionDebt int64
	timerDebt       int64
}

// New returns a clock for the given instruction and timer rates in Hz.
func New(instructionsPerSecond, timerHz int) (*Clock, error) {
	if instructionsPerSecond <= 0 || timerHz <= 0 ||
		instructionsPerSecond > MaxRate || timerHz > MaxRate {
		return nil, ErrInvalidRate
	}

	return &Clock{
		instructionRate: int64(instructionsPerSecond),
		timerRate:       int64(timerHz),
	}, nil
}

// Advance accounts for elapsed time and returns the number of instruction
// ticks and timer ticks that became due.
func (c *Clock) Advance(elapsed time.Duration) (ticks, timerTicks int) {
	if elapsed <= 0 {
		return 0, 0
	}
	elapsed = min(elapsed, MaxCatchUp)

	ticks = step(&c.instructionDebt, int64(elapsed), c.instructionRate)
	timerTicks = step(&c.timerDebt, int64(elapsed), c.timerRate)
	return ticks, timerTicks
}

func step(debt *int64, elapsed, rate int64) int {
	*debt += elapsed * rate
	due := *debt / int64(time.Second)
	*debt %= int64(time.Second)
	return int(due)
}
