package chip8

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// Op identifies a decoded instruction.
type Op uint8

const (
	OpUnknown Op = iota
	OpCls        // 00E0
	OpRet        // 00EE
	OpJp         // 1nnn
	OpCall       // 2nnn
	OpSeByte     // 3xnn
	OpSneByte    // 4xnn
	OpSeReg      // 5xy0
	OpLdByte     // 6xnn
	OpAddByte    // 7xnn
	OpLdReg      // 8xy0
	OpOr         // 8xy1
	OpAnd        // 8xy2
	OpXor        // 8xy3
	OpAddReg     // 8xy4
	OpSub        // 8xy5
	OpShr        // 8xy6
	OpSubn       // 8xy7
	OpShl        // 8xyE
	OpSneReg     // 9xy0
	OpLdI        // Annn
	OpJpV0       // Bnnn
	OpRnd        // Cxnn
	OpDrw        // Dxyn
	OpSkp        // Ex9E
	OpSknp       // ExA1
	OpLdVxDT     // Fx07
	OpLdVxK      // Fx0A
	OpLdDTVx     // Fx15
	OpLdSTVx     // Fx18
	OpAddI       // Fx1E
	OpLdF        // Fx29
	OpLdB        // Fx33
	OpStore      // Fx55
	OpLoad       // Fx65
)

// mnemonics maps every known operation to its instruction definition.
var mnemonics = map[Op]*chip8.Instruction{
	OpCls:     chip8.ClsInst,
	OpRet:     chip8.RetInst,
	OpJp:      chip8.JpInst,
	OpCall:    chip8.CallInst,
	OpSeByte:  chip8.SeInst,
	OpSneByte: chip8.SneInst,
	OpSeReg:   chip8.SeInst,
	OpLdByte:  chip8.LdInst,
	OpAddByte: chip8.AddInst,
	OpLdReg:   chip8.LdInst,
	OpOr:      chip8.OrInst,
	OpAnd:     chip8.AndInst,
	OpXor:     chip8.XorInst,
	OpAddReg:  chip8.AddInst,
	OpSub:     chip8.SubInst,
	OpShr:     chip8.ShrInst,
	OpSubn:    chip8.SubnInst,
	OpShl:     chip8.ShlInst,
	OpSneReg:  chip8.SneInst,
	OpLdI:     chip8.LdInst,
	OpJpV0:    chip8.JpInst,
	OpRnd:     chip8.RndInst,
	OpDrw:     chip8.DrwInst,
	OpSkp:     chip8.SkpInst,
	OpSknp:    chip8.SknpInst,
	OpLdVxDT:  chip8.LdInst,
	OpLdVxK:   chip8.LdInst,
	OpLdDTVx:  chip8.LdInst,
	OpLdSTVx:  chip8.LdInst,
	OpAddI:    chip8.AddInst,
	OpLdF:     chip8.LdInst,
	OpLdB:     chip8.LdInst,
	OpStore:   chip8.LdInst,
	OpLoad:    chip8.LdInst,
}

// Instruction is a decoded instruction word. All operand views are filled
// in regardless of the operation; Op decides which of them are meaningful.
type Instruction struct {
	Op   Op
	Word uint16

	X   uint8  // second nibble, register index
	Y   uint8  // third nibble, register index
	N   uint8  // fourth nibble
	NN  uint8  // low byte
	NNN uint16 // low 12 bits, address
}

// Decode splits word into its operand fields and identifies the operation.
// Words that do not match any instruction decode to OpUnknown.
func Decode(word uint16) Instruction {
	ins := Instruction{
		Word: word,
		X:    uint8((word & 0x0f00) >> 8),
		Y:    uint8((word & 0x00f0) >> 4),
		N:    uint8(word & 0x000f),
		NN:   uint8(word & 0x00ff),
		NNN:  word & 0x0fff,
	}
	ins.Op = decodeOp(ins)
	return ins
}

func decodeOp(ins Instruction) Op {
	switch ins.Word >> 12 {
	case 0x0:
		switch ins.Word {
		case 0x00e0:
			return OpCls
		case 0x00ee:
			return OpRet
		}

	case 0x1:
		return OpJp

	case 0x2:
		return OpCall

	case 0x3:
		return OpSeByte

	case 0x4:
		return OpSneByte

	case 0x5:
		if ins.N == 0 {
			return OpSeReg
		}

	case 0x6:
		return OpLdByte

	case 0x7:
		return OpAddByte

	case 0x8:
		switch ins.N {
		case 0x0:
			return OpLdReg
		case 0x1:
			return OpOr
		case 0x2:
			return OpAnd
		case 0x3:
			return OpXor
		case 0x4:
			return OpAddReg
		case 0x5:
			return OpSub
		case 0x6:
			return OpShr
		case 0x7:
			return OpSubn
		case 0xe:
			return OpShl
		}

	case 0x9:
		if ins.N == 0 {
			return OpSneReg
		}

	case 0xa:
		return OpLdI

	case 0xb:
		return OpJpV0

	case 0xc:
		return OpRnd

	case 0xd:
		return OpDrw

	case 0xe:
		switch ins.NN {
		case 0x9e:
			return OpSkp
		case 0xa1:
			return OpSknp
		}

	case 0xf:
		switch ins.NN {
		case 0x07:
			return OpLdVxDT
		case 0x0a:
			return OpLdVxK
		case 0x15:
			return OpLdDTVx
		case 0x18:
			return OpLdSTVx
		case 0x1e:
			return OpAddI
		case 0x29:
			return OpLdF
		case 0x33:
			return OpLdB
		case 0x55:
			return OpStore
		case 0x65:
			return OpLoad
		}
	}

	return OpUnknown
}

// Known reports whether the instruction decoded to a valid operation.
func (ins Instruction) Known() bool {
	return ins.Op != OpUnknown
}

// Err returns an error wrapping ErrUnknownOpcode for unknown instructions.
func (ins Instruction) Err() error {
	if ins.Known() {
		return nil
	}
	return fmt.Errorf("%w $%04X", ErrUnknownOpcode, ins.Word)
}

// Name returns the assembler mnemonic, or an empty string for unknown
// instructions.
func (ins Instruction) Name() string {
	if m, ok := mnemonics[ins.Op]; ok {
		return m.Name
	}
	return ""
}

// IsJump reports whether the instruction unconditionally sets pc.
func (ins Instruction) IsJump() bool {
	return mnemonics[ins.Op] == chip8.JpInst
}

func (ins Instruction) IsCall() bool {
	return mnemonics[ins.Op] == chip8.CallInst
}

func (ins Instruction) IsReturn() bool {
	return mnemonics[ins.Op] == chip8.RetInst
}

// IsSkip reports whether the instruction conditionally skips the next one.
func (ins Instruction) IsSkip() bool {
	if !ins.Known() {
		return false
	}
	return chip8.SkipInstructions.Contains(ins.Name())
}

// Target returns the fixed address a jump or call transfers control to.
// Jumps relative to V0 have no fixed target.
func (ins Instruction) Target() (uint16, bool) {
	if ins.Op == OpJpV0 || !(ins.IsJump() || ins.IsCall()) {
		return 0, false
	}
	return ins.NNN, true
}

// ReadsMemory reports whether the instruction reads the memory at I.
// All register transfers share one mnemonic, so the operation selects the
// forms that address memory before the mnemonic set is consulted.
func (ins Instruction) ReadsMemory() bool {
	switch ins.Op {
	case OpDrw, OpLoad:
		return chip8.MemoryReadInstructions.Contains(ins.Name())
	default:
		return false
	}
}

// WritesMemory reports whether the instruction writes the memory at I.
func (ins Instruction) WritesMemory() bool {
	switch ins.Op {
	case OpLdB, OpStore:
		return chip8.MemoryWriteInstructions.Contains(ins.Name())
	default:
		return false
	}
}

// String returns the instruction in assembler syntax, for example
// "ld V1, $05". Unknown instructions are rendered as a data word.
func (ins Instruction) String() string {
	name := ins.Name()
	if name == "" {
		return fmt.Sprintf("dw $%04X", ins.Word)
	}
	if params := ins.params(); params != "" {
		return name + " " + params
	}
	return name
}

func (ins Instruction) params() string {
	switch ins.Op {
	case OpJp, OpCall:
		return fmt.Sprintf("$%03X", ins.NNN)
	case OpJpV0:
		return fmt.Sprintf("V0, $%03X", ins.NNN)
	case OpSeByte, OpSneByte, OpLdByte, OpAddByte, OpRnd:
		return fmt.Sprintf("V%X, $%02X", ins.X, ins.NN)
	case OpSeReg, OpSneReg, OpLdReg, OpOr, OpAnd, OpXor, OpAddReg, OpSub, OpSubn:
		return fmt.Sprintf("V%X, V%X", ins.X, ins.Y)
	case OpShr, OpShl, OpSkp, OpSknp:
		return fmt.Sprintf("V%X", ins.X)
	case OpLdI:
		return fmt.Sprintf("I, $%03X", ins.NNN)
	case OpDrw:
		return fmt.Sprintf("V%X, V%X, $%X", ins.X, ins.Y, ins.N)
	case OpLdVxDT:
		return fmt.Sprintf("V%X, DT", ins.X)
	case OpLdVxK:
		return fmt.Sprintf("V%X, K", ins.X)
	case OpLdDTVx:
		return fmt.Sprintf("DT, V%X", ins.X)
	case OpLdSTVx:
		return fmt.Sprintf("ST, V%X", ins.X)
	case OpAddI:
		return fmt.Sprintf("I, V%X", ins.X)
	case OpLdF:
		return fmt.Sprintf("F, V%X", ins.X)
	case OpLdB:
		return fmt.Sprintf("B, V%X", ins.X)
	case OpStore:
		return fmt.Sprintf("[I], V%X", ins.X)
	case OpLoad:
		return fmt.Sprintf("V%X, [I]", ins.X)
	default:
		return ""
	}
}
