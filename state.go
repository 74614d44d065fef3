package chip8

import (
	"fmt"
	"strings"
)

// State is a copy of the machine registers.
type State struct {
	PC uint16
	I  uint16
	SP uint8
	DT uint8
	ST uint8
	V  [16]uint8

	Stack []uint16 // active return addresses, oldest first
}

// State returns a snapshot of the registers and the active call stack.
func (i *Interpreter) State() State {
	return State{
		PC:    i.pc,
		I:     i.i,
		SP:    i.sp,
		DT:    i.dt,
		ST:    i.st,
		V:     i.vx,
		Stack: append([]uint16(nil), i.stack[:i.sp]...),
	}
}

func (s State) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pc=$%04X i=$%04X sp=%d dt=$%02X st=$%02X v=[", s.PC, s.I, s.SP, s.DT, s.ST)
	for n, v := range s.V {
		if n > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	sb.WriteByte(']')
	return sb.String()
}
