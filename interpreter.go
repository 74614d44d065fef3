package chip8

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/retroenv/retrogolib/log"
)

const (
	MemorySize   = 4096
	ProgramStart = 0x200
	MaxROMSize   = MemorySize - ProgramStart
	StackSize    = 16
)

const (
	V0 uint8 = 0
	VF uint8 = 15
)

var (
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrROMTooLarge    = errors.New("rom too large")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrMemoryAccess   = errors.New("memory access out of range")
)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

// WithRandom sets the source of random bytes used by RND.
func WithRandom(random func() uint8) Option {
	return func(i *Interpreter) {
		i.random = random
	}
}

// WithTrace enables logging of every executed instruction at debug level.
func WithTrace(enabled bool) Option {
	return func(i *Interpreter) {
		i.trace = enabled
	}
}

// Interpreter is a CHIP-8 machine. It is not safe for concurrent use: the
// host drives Tick, TickTimers and SetKeyState from a single goroutine.
type Interpreter struct {
	pc uint16    // program counter
	sp uint8     // number of active call frames
	dt uint8     // delay timer
	st uint8     // sound timer
	vx [16]uint8 // general purpose 8-bit registers, VF doubles as flag
	i  uint16    // 16-bit register generally used to store memory addresses

	stack  [StackSize]uint16
	memory [MemorySize]uint8

	display Display
	keypad  Keypad

	logger *log.Logger
	random func() uint8
	trace  bool
}

// New returns an interpreter with zeroed memory, the font loaded and pc at
// the program start.
func New(options ...Option) *Interpreter {
	interpreter := &Interpreter{
		pc: ProgramStart,
	}
	copy(interpreter.memory[FontAddress:], digitSprites[:])

	for _, option := range options {
		option(interpreter)
	}

	if interpreter.logger == nil {
		interpreter.logger = log.NewWithConfig(log.DefaultConfig())
	}
	if interpreter.random == nil {
		interpreter.random = func() uint8 {
			return uint8(rand.Intn(256))
		}
	}

	return interpreter
}

// LoadROM copies rom into memory at the program start and resets pc. Images
// larger than MaxROMSize are rejected before memory is touched.
func (i *Interpreter) LoadROM(rom []byte) error {
	if len(rom) > MaxROMSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrROMTooLarge, len(rom), MaxROMSize)
	}

	copy(i.memory[ProgramStart:], rom)
	i.pc = ProgramStart

	return nil
}

// Reset returns the machine to its power-on state. Registers, timers, the
// stack, the framebuffer and the keypad are cleared and memory is wiped
// except for the font. A ROM has to be loaded again afterwards.
func (i *Interpreter) Reset() {
	i.pc = ProgramStart
	i.sp = 0
	i.dt = 0
	i.st = 0
	i.i = 0
	i.vx = [16]uint8{}
	i.stack = [StackSize]uint16{}

	i.memory = [MemorySize]uint8{}
	copy(i.memory[FontAddress:], digitSprites[:])

	i.display.Clear()
	i.keypad.Reset()
}

// Load reads a ROM image from reader and loads it with LoadROM.
func (i *Interpreter) Load(reader io.Reader) error {
	rom, err := io.ReadAll(io.LimitReader(reader, MaxROMSize+1))
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}

	return i.LoadROM(rom)
}

// Display returns a copy of the framebuffer.
func (i *Interpreter) Display() Display {
	return i.display
}

// SetKeyState feeds the current state of a logical key into the keypad.
func (i *Interpreter) SetKeyState(key Key, state KeyState) {
	i.keypad.SetKeyState(key, state)
}

// ShouldPlaySound reports whether the sound timer is running.
func (i *Interpreter) ShouldPlaySound() bool {
	return i.st > 0
}

// TickTimers decrements the delay and sound timers, stopping at zero. The
// host calls it at 60 Hz independently of Tick.
func (i *Interpreter) TickTimers() {
	if i.dt > 0 {
		i.dt--
	}
	if i.st > 0 {
		i.st--
	}
}

// Tick fetches, decodes and executes one instruction. Unknown instructions
// are logged and skipped. A stack or memory fault returns an error and
// leaves the machine as it was before the tick, with pc at the faulting
// instruction. The key release queue is cleared after every tick.
func (i *Interpreter) Tick() error {
	defer i.keypad.ClearReleased()

	address := i.pc
	word, err := i.fetch()
	if err != nil {
		return err
	}

	ins := Decode(word)
	if i.trace {
		i.logger.Debug("Executing instruction",
			log.Hex("address", address),
			log.String("instruction", ins.String()))
	}

	if err := i.execute(ins, address); err != nil {
		i.pc = address
		return fmt.Errorf("executing '%s' at $%03X: %w", ins, address, err)
	}

	return nil
}

// Peek returns the instruction word at pc without advancing it.
func (i *Interpreter) Peek() (uint16, error) {
	if int(i.pc)+1 >= MemorySize {
		return 0, fmt.Errorf("%w: fetch at $%04X", ErrMemoryAccess, i.pc)
	}
	return uint16(i.memory[i.pc])<<8 | uint16(i.memory[i.pc+1]), nil
}

func (i *Interpreter) fetch() (uint16, error) {
	word, err := i.Peek()
	if err != nil {
		return 0, err
	}
	i.pc += 2
	return word, nil
}

// checkRange returns an error if length bytes starting at address do not
// fit into memory.
func checkRange(address uint16, length int) error {
	if int(address)+length > MemorySize {
		return fmt.Errorf("%w: %d bytes at $%04X", ErrMemoryAccess, length, address)
	}
	return nil
}

// execute applies ins, fetched from address, to the machine. pc already
// points past the instruction.
func (i *Interpreter) execute(ins Instruction, address uint16) error {
	x, y := ins.X, ins.Y

	switch ins.Op {
	// 00E0 - CLS
	// Clear the display.
	case OpCls:
		i.display.Clear()

	// 00EE - RET
	// Return from a subroutine.
	case OpRet:
		if i.sp == 0 {
			return ErrStackUnderflow
		}
		i.sp--
		i.pc = i.stack[i.sp]

	// 1nnn - JP addr
	case OpJp:
		i.pc = ins.NNN

	// 2nnn - CALL addr
	// The return address pushed is the one after the CALL.
	case OpCall:
		if int(i.sp) == StackSize {
			return ErrStackOverflow
		}
		i.stack[i.sp] = i.pc
		i.sp++
		i.pc = ins.NNN

	// 3xnn - SE Vx, byte
	case OpSeByte:
		if i.vx[x] == ins.NN {
			i.pc += 2
		}

	// 4xnn - SNE Vx, byte
	case OpSneByte:
		if i.vx[x] != ins.NN {
			i.pc += 2
		}

	// 5xy0 - SE Vx, Vy
	case OpSeReg:
		if i.vx[x] == i.vx[y] {
			i.pc += 2
		}

	// 9xy0 - SNE Vx, Vy
	case OpSneReg:
		if i.vx[x] != i.vx[y] {
			i.pc += 2
		}

	// 6xnn - LD Vx, byte
	case OpLdByte:
		i.vx[x] = ins.NN

	// 7xnn - ADD Vx, byte
	// Wraps without touching VF.
	case OpAddByte:
		i.vx[x] += ins.NN

	// 8xy0 - LD Vx, Vy
	case OpLdReg:
		i.vx[x] = i.vx[y]

	// 8xy1 - OR Vx, Vy
	case OpOr:
		i.vx[x] |= i.vx[y]

	// 8xy2 - AND Vx, Vy
	case OpAnd:
		i.vx[x] &= i.vx[y]

	// 8xy3 - XOR Vx, Vy
	case OpXor:
		i.vx[x] ^= i.vx[y]

	// 8xy4 - ADD Vx, Vy
	// Set Vx = Vx + Vy, set VF = carry.
	//
	// The flag is written last, so it wins when x is F.
	case OpAddReg:
		sum := uint16(i.vx[x]) + uint16(i.vx[y])

		i.vx[x] = uint8(sum)
		i.vx[VF] = boolToFlag(sum > 0xff)

	// 8xy5 - SUB Vx, Vy
	// Set Vx = Vx - Vy, set VF = NOT borrow.
	//
	// NOTE: VF is 1 when Vx >= Vy, not only when Vx > Vy.
	case OpSub:
		flag := boolToFlag(i.vx[x] >= i.vx[y])

		i.vx[x] -= i.vx[y]
		i.vx[VF] = flag

	// 8xy6 - SHR Vx
	// VF is the least significant bit of Vx before the shift. Vy is ignored.
	case OpShr:
		flag := i.vx[x] & 0x01

		i.vx[x] >>= 1
		i.vx[VF] = flag

	// 8xy7 - SUBN Vx, Vy
	// Set Vx = Vy - Vx, set VF = NOT borrow.
	case OpSubn:
		flag := boolToFlag(i.vx[y] >= i.vx[x])

		i.vx[x] = i.vx[y] - i.vx[x]
		i.vx[VF] = flag

	// 8xyE - SHL Vx
	// VF is the most significant bit of Vx before the shift. Vy is ignored.
	case OpShl:
		flag := i.vx[x] >> 7

		i.vx[x] <<= 1
		i.vx[VF] = flag

	// Annn - LD I, addr
	case OpLdI:
		i.i = ins.NNN

	// Bnnn - JP V0, addr
	case OpJpV0:
		i.pc = ins.NNN + uint16(i.vx[V0])

	// Cxnn - RND Vx, byte
	case OpRnd:
		i.vx[x] = i.random() & ins.NN

	// Dxyn - DRW Vx, Vy, nibble
	// Display the n-byte sprite stored at I at (Vx, Vy), set VF = collision.
	case OpDrw:
		height := int(ins.N)
		if err := checkRange(i.i, height); err != nil {
			return err
		}

		sprite := i.memory[i.i : int(i.i)+height]
		collision := i.display.Draw(i.vx[x], i.vx[y], sprite)
		i.vx[VF] = boolToFlag(collision)

	// Ex9E - SKP Vx
	case OpSkp:
		if i.keypad.IsKeyDown(Key(i.vx[x])) {
			i.pc += 2
		}

	// ExA1 - SKNP Vx
	case OpSknp:
		if i.keypad.IsKeyUp(Key(i.vx[x])) {
			i.pc += 2
		}

	// Fx07 - LD Vx, DT
	case OpLdVxDT:
		i.vx[x] = i.dt

	// Fx0A - LD Vx, K
	// Wait for a key release, store the value of the key in Vx.
	//
	// Execution does not block: without a release since the last tick, pc is
	// moved back so the instruction runs again on the next tick.
	case OpLdVxK:
		key, ok := i.keypad.Released()
		if !ok {
			i.pc -= 2
			return nil
		}
		i.vx[x] = uint8(key)

	// Fx15 - LD DT, Vx
	case OpLdDTVx:
		i.dt = i.vx[x]

	// Fx18 - LD ST, Vx
	case OpLdSTVx:
		i.st = i.vx[x]

	// Fx1E - ADD I, Vx
	// I is not masked to 12 bits and wraps at 16.
	case OpAddI:
		i.i += uint16(i.vx[x])

	// Fx29 - LD F, Vx
	case OpLdF:
		i.i = SpriteAddress(i.vx[x])

	// Fx33 - LD B, Vx
	// Store the hundreds, tens and ones digits of Vx at I, I+1 and I+2.
	case OpLdB:
		if err := checkRange(i.i, 3); err != nil {
			return err
		}
		value := i.vx[x]

		i.memory[i.i] = value / 100
		i.memory[i.i+1] = (value / 10) % 10
		i.memory[i.i+2] = value % 10

	// Fx55 - LD [I], Vx
	// Store registers V0 through Vx in memory starting at I. I is unchanged.
	case OpStore:
		if err := checkRange(i.i, int(x)+1); err != nil {
			return err
		}
		copy(i.memory[i.i:], i.vx[:x+1])

	// Fx65 - LD Vx, [I]
	// Read registers V0 through Vx from memory starting at I. I is unchanged.
	case OpLoad:
		if err := checkRange(i.i, int(x)+1); err != nil {
			return err
		}
		copy(i.vx[:x+1], i.memory[i.i:])

	default:
		i.logger.Error("Skipping instruction",
			log.Err(ins.Err()),
			log.Hex("address", address))
	}

	return nil
}

func boolToFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
