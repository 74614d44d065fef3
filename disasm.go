package chip8

import (
	"fmt"
	"io"
)

// Line is a single entry of a disassembly listing.
type Line struct {
	Address     uint16
	Word        uint16
	Instruction Instruction

	// Data is set for a trailing odd byte that does not form a full word.
	Data bool
	// Label is set when a jump or call in the same image targets Address.
	Label bool
}

func (l Line) String() string {
	if l.Data {
		return fmt.Sprintf("$%03X  %02X    db $%02X", l.Address, l.Word>>8, l.Word>>8)
	}
	return fmt.Sprintf("$%03X  %04X  %s", l.Address, l.Word, l.Instruction)
}

// LabelName returns the name used for the line when it is a jump or call
// target.
func (l Line) LabelName() string {
	return fmt.Sprintf("label_%03X", l.Address)
}

func (l Line) comment() string {
	switch {
	case l.Data:
		return ""
	case l.Instruction.IsSkip():
		return "skips next instruction"
	case l.Instruction.ReadsMemory():
		return "reads memory at I"
	case l.Instruction.WritesMemory():
		return "writes memory at I"
	default:
		return ""
	}
}

// endsBlock reports whether execution never falls through to the next line.
func (l Line) endsBlock() bool {
	return !l.Data && (l.Instruction.IsJump() || l.Instruction.IsReturn())
}

// Disassemble decodes rom word by word as if it was loaded at base.
func Disassemble(rom []byte, base uint16) []Line {
	lines := make([]Line, 0, (len(rom)+1)/2)

	for offset := 0; offset < len(rom); offset += 2 {
		address := base + uint16(offset)

		if offset+1 == len(rom) {
			lines = append(lines, Line{
				Address: address,
				Word:    uint16(rom[offset]) << 8,
				Data:    true,
			})
			break
		}

		word := uint16(rom[offset])<<8 | uint16(rom[offset+1])
		lines = append(lines, Line{
			Address:     address,
			Word:        word,
			Instruction: Decode(word),
		})
	}

	targets := make(map[uint16]struct{})
	for _, line := range lines {
		if target, ok := line.Instruction.Target(); ok {
			targets[target] = struct{}{}
		}
	}
	for i := range lines {
		if _, ok := targets[lines[i].Address]; ok {
			lines[i].Label = true
		}
	}

	return lines
}

// WriteListing writes a disassembly of rom loaded at ProgramStart to w.
func WriteListing(w io.Writer, rom []byte) error {
	if _, err := fmt.Fprintf(w, "; CHIP-8 ROM disassembly, %d bytes\n", len(rom)); err != nil {
		return fmt.Errorf("writing header comment: %w", err)
	}
	if _, err := fmt.Fprintf(w, ".org $%03X\n\n", ProgramStart); err != nil {
		return fmt.Errorf("writing org directive: %w", err)
	}

	for _, line := range Disassemble(rom, ProgramStart) {
		if line.Label {
			if _, err := fmt.Fprintf(w, "%s:\n", line.LabelName()); err != nil {
				return fmt.Errorf("writing label at $%03X: %w", line.Address, err)
			}
		}

		text := line.String()
		if comment := line.comment(); comment != "" {
			text += "  ; " + comment
		}
		if line.endsBlock() {
			text += "\n"
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return fmt.Errorf("writing line at $%03X: %w", line.Address, err)
		}
	}

	return nil
}
