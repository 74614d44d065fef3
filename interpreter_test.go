package chip8

import (
	"bytes"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// program encodes instruction words as a big endian ROM image.
func program(words ...uint16) []byte {
	rom := make([]byte, 0, len(words)*2)
	for _, word := range words {
		rom = append(rom, byte(word>>8), byte(word))
	}
	return rom
}

func newTestInterpreter(t *testing.T, words ...uint16) *Interpreter {
	t.Helper()

	interpreter := New(
		WithLogger(log.NewTestLogger(t)),
		WithRandom(func() uint8 { return 0xab }),
	)
	assert.NoError(t, interpreter.LoadROM(program(words...)))
	return interpreter
}

func tick(t *testing.T, interpreter *Interpreter, count int) {
	t.Helper()

	for range count {
		assert.NoError(t, interpreter.Tick())
	}
}

func TestNew(t *testing.T) {
	interpreter := New()

	assert.Equal(t, uint16(ProgramStart), interpreter.pc)
	assert.Equal(t, digitSprites[:], interpreter.memory[FontAddress:FontAddress+len(digitSprites)])
	assert.NotNil(t, interpreter.logger)
	assert.NotNil(t, interpreter.random)
	assert.False(t, interpreter.ShouldPlaySound())
}

func TestLoadROM(t *testing.T) {
	t.Run("fits program region", func(t *testing.T) {
		interpreter := New()
		rom := bytes.Repeat([]byte{0xaa}, MaxROMSize)

		assert.NoError(t, interpreter.LoadROM(rom))
		assert.Equal(t, uint8(0xaa), interpreter.memory[ProgramStart])
		assert.Equal(t, uint8(0xaa), interpreter.memory[MemorySize-1])
	})

	t.Run("oversized rom leaves memory untouched", func(t *testing.T) {
		interpreter := New()
		before := interpreter.memory
		rom := bytes.Repeat([]byte{0xaa}, MaxROMSize+1)

		err := interpreter.LoadROM(rom)
		assert.True(t, errors.Is(err, ErrROMTooLarge))
		assert.Equal(t, before, interpreter.memory)
	})

	t.Run("reader", func(t *testing.T) {
		interpreter := New()

		assert.NoError(t, interpreter.Load(bytes.NewReader(program(0x00e0, 0x1200))))
		assert.Equal(t, uint8(0x12), interpreter.memory[ProgramStart+2])
	})

	t.Run("oversized reader", func(t *testing.T) {
		interpreter := New()
		rom := bytes.Repeat([]byte{0xaa}, MaxROMSize+100)

		err := interpreter.Load(bytes.NewReader(rom))
		assert.True(t, errors.Is(err, ErrROMTooLarge))
		assert.Equal(t, uint8(0), interpreter.memory[ProgramStart])
	})
}

func TestFetchAdvancesBeforeExecute(t *testing.T) {
	// SE V0, $00 always skips, so pc moves past the fetched word and the
	// skipped one.
	interpreter := newTestInterpreter(t, 0x3000)

	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x204), interpreter.pc)
}

func TestAddByteWraps(t *testing.T) {
	tests := []struct {
		name     string
		x        uint8
		initial  uint8
		nn       uint8
		expected uint8
	}{
		{"no wrap", 0x1, 0x10, 0x20, 0x50},
		{"wrap on second add", 0x2, 0x10, 0x80, 0x10},
		{"wrap on first add", 0xe, 0xff, 0xff, 0xfd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word := 0x7000 | uint16(tt.x)<<8 | uint16(tt.nn)
			interpreter := newTestInterpreter(t, word, word)
			interpreter.vx[tt.x] = tt.initial
			interpreter.vx[VF] = 0x55

			tick(t, interpreter, 2)
			assert.Equal(t, tt.expected, interpreter.vx[tt.x])
			assert.Equal(t, uint8(0x55), interpreter.vx[VF])
		})
	}
}

func TestArithmeticFlags(t *testing.T) {
	tests := []struct {
		name     string
		word     uint16
		vx, vy   uint8
		expected uint8
		flag     uint8
	}{
		{"add with carry", 0x8124, 0xff, 0x01, 0x00, 1},
		{"add without carry", 0x8124, 0x01, 0x01, 0x02, 0},
		{"sub without borrow", 0x8125, 0x05, 0x03, 0x02, 1},
		{"sub with borrow", 0x8125, 0x03, 0x05, 0xfe, 0},
		{"sub equal", 0x8125, 0x04, 0x04, 0x00, 1},
		{"shr lsb set", 0x8126, 0x03, 0x00, 0x01, 1},
		{"shr lsb clear", 0x8126, 0x02, 0xff, 0x01, 0},
		{"subn without borrow", 0x8127, 0x03, 0x05, 0x02, 1},
		{"subn with borrow", 0x8127, 0x05, 0x03, 0xfe, 0},
		{"shl msb set", 0x812e, 0x81, 0x00, 0x02, 1},
		{"shl msb clear", 0x812e, 0x41, 0xff, 0x82, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interpreter := newTestInterpreter(t, tt.word)
			interpreter.vx[1] = tt.vx
			interpreter.vx[2] = tt.vy
			interpreter.vx[VF] = 0x55

			tick(t, interpreter, 1)
			assert.Equal(t, tt.expected, interpreter.vx[1])
			assert.Equal(t, tt.flag, interpreter.vx[VF])
		})
	}
}

func TestFlagOverwritesResultInVF(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x8fe4)
	interpreter.vx[VF] = 0xff
	interpreter.vx[0xe] = 0x01

	tick(t, interpreter, 1)
	assert.Equal(t, uint8(1), interpreter.vx[VF])
}

func TestBitwise(t *testing.T) {
	tests := []struct {
		name     string
		word     uint16
		expected uint8
	}{
		{"ld", 0x8120, 0x0f},
		{"or", 0x8121, 0x3f},
		{"and", 0x8122, 0x0c},
		{"xor", 0x8123, 0x33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interpreter := newTestInterpreter(t, tt.word)
			interpreter.vx[1] = 0x3c
			interpreter.vx[2] = 0x0f

			tick(t, interpreter, 1)
			assert.Equal(t, tt.expected, interpreter.vx[1])
			assert.Equal(t, uint8(0), interpreter.vx[VF])
		})
	}
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name    string
		word    uint16
		v1, v2  uint8
		keyDown bool
		skip    bool
	}{
		{"se byte equal", 0x3142, 0x42, 0, false, true},
		{"se byte different", 0x3142, 0x41, 0, false, false},
		{"sne byte equal", 0x4142, 0x42, 0, false, false},
		{"sne byte different", 0x4142, 0x41, 0, false, true},
		{"se reg equal", 0x5120, 0x07, 0x07, false, true},
		{"se reg different", 0x5120, 0x07, 0x08, false, false},
		{"sne reg equal", 0x9120, 0x07, 0x07, false, false},
		{"sne reg different", 0x9120, 0x07, 0x08, false, true},
		{"skp down", 0xe19e, 0x0a, 0, true, true},
		{"skp up", 0xe19e, 0x0a, 0, false, false},
		{"sknp down", 0xe1a1, 0x0a, 0, true, false},
		{"sknp up", 0xe1a1, 0x0a, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interpreter := newTestInterpreter(t, tt.word)
			interpreter.vx[1] = tt.v1
			interpreter.vx[2] = tt.v2
			if tt.keyDown {
				interpreter.SetKeyState(KeyA, KeyDown)
			}

			tick(t, interpreter, 1)
			expected := uint16(0x202)
			if tt.skip {
				expected = 0x204
			}
			assert.Equal(t, expected, interpreter.pc)
		})
	}
}

func TestJumps(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x1234)
	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x234), interpreter.pc)

	interpreter = newTestInterpreter(t, 0xb300)
	interpreter.vx[V0] = 0x04
	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x304), interpreter.pc)
}

func TestCallReturn(t *testing.T) {
	interpreter := newTestInterpreter(t,
		0x2206, // $200: call $206
		0x6101, // $202: ld V1, $01
		0x1204, // $204: jp $204
		0x00ee, // $206: ret
	)

	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x206), interpreter.pc)
	assert.Equal(t, []uint16{0x202}, interpreter.State().Stack)

	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x202), interpreter.pc)
	assert.Equal(t, uint8(0), interpreter.sp)

	tick(t, interpreter, 1)
	assert.Equal(t, uint8(1), interpreter.vx[1])
}

func TestStackOverflow(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x2200)

	tick(t, interpreter, StackSize)
	assert.Equal(t, uint8(StackSize), interpreter.sp)

	err := interpreter.Tick()
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, uint16(0x200), interpreter.pc)
	assert.Equal(t, uint8(StackSize), interpreter.sp)
}

func TestStackUnderflow(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x00ee)

	err := interpreter.Tick()
	assert.True(t, errors.Is(err, ErrStackUnderflow))
	assert.Equal(t, uint16(0x200), interpreter.pc)
	assert.Equal(t, uint8(0), interpreter.sp)
}

func TestUnknownInstructionIsSkipped(t *testing.T) {
	for _, word := range []uint16{0x0123, 0x5121, 0x812f, 0xe1ff, 0xf1ff} {
		interpreter := newTestInterpreter(t, word)
		before := interpreter.State()

		assert.NoError(t, interpreter.Tick())

		after := interpreter.State()
		assert.Equal(t, uint16(0x202), after.PC)
		after.PC = before.PC
		assert.Equal(t, before, after)
	}
}

func TestDrawSelfCollision(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xa300, 0xd011, 0xd011)
	interpreter.memory[0x300] = 0xff

	tick(t, interpreter, 2)
	assert.Equal(t, uint8(0), interpreter.vx[VF])
	for x := range 8 {
		assert.True(t, interpreter.display.Pixel(x, 0))
	}
	assert.False(t, interpreter.display.Pixel(8, 0))

	tick(t, interpreter, 1)
	assert.Equal(t, uint8(1), interpreter.vx[VF])
	for x := range 8 {
		assert.False(t, interpreter.display.Pixel(x, 0))
	}
}

func TestDrawResetsFlag(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xa300, 0xd011)
	interpreter.memory[0x300] = 0x80
	interpreter.vx[VF] = 1

	tick(t, interpreter, 2)
	assert.Equal(t, uint8(0), interpreter.vx[VF])
	assert.True(t, interpreter.display.Pixel(0, 0))
}

func TestDrawClipsRightEdge(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xa300, 0xd011)
	interpreter.memory[0x300] = 0xff
	interpreter.vx[0] = 60
	interpreter.vx[1] = 0

	tick(t, interpreter, 2)
	for x := 60; x < DisplayWidth; x++ {
		assert.True(t, interpreter.display.Pixel(x, 0))
	}
	for x := range 4 {
		assert.False(t, interpreter.display.Pixel(x, 0))
	}
	assert.False(t, interpreter.display.Pixel(0, 1))
}

func TestDrawUsesFontSprite(t *testing.T) {
	// ld V2, $0A; ld F, V2; drw V0, V1, 5
	interpreter := newTestInterpreter(t, 0x620a, 0xf229, 0xd015)

	tick(t, interpreter, 3)
	assert.Equal(t, SpriteAddress(0xa), interpreter.i)
	// digit A: 0xf0, 0x90, 0xf0, 0x90, 0x90
	expected := []string{"####", "#..#", "####", "#..#", "#..#"}
	for y, row := range expected {
		for x, c := range row {
			assert.Equal(t, c == '#', interpreter.display.Pixel(x, y))
		}
	}
}

func TestDrawOutOfMemory(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xaffe, 0xd013)
	tick(t, interpreter, 1)

	err := interpreter.Tick()
	assert.True(t, errors.Is(err, ErrMemoryAccess))
	assert.Equal(t, uint16(0x202), interpreter.pc)
	assert.Equal(t, Display{}, interpreter.Display())
}

func TestClearScreen(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x00e0)
	interpreter.display.Draw(0, 0, []uint8{0xff, 0xff})

	tick(t, interpreter, 1)
	assert.Equal(t, Display{}, interpreter.Display())
}

func TestWaitForKeyRelease(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xf30a)

	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x200), interpreter.pc)

	interpreter.SetKeyState(KeyB, KeyDown)
	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x200), interpreter.pc)

	interpreter.SetKeyState(KeyB, KeyUp)
	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x202), interpreter.pc)
	assert.Equal(t, uint8(KeyB), interpreter.vx[3])
}

func TestWaitForKeyTakesOldestRelease(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xf30a)

	interpreter.SetKeyState(Key7, KeyDown)
	interpreter.SetKeyState(Key2, KeyDown)
	interpreter.SetKeyState(Key7, KeyUp)
	interpreter.SetKeyState(Key2, KeyUp)

	tick(t, interpreter, 1)
	assert.Equal(t, uint8(Key7), interpreter.vx[3])
}

func TestStaleReleaseIsDropped(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x6000, 0xf30a)

	interpreter.SetKeyState(Key5, KeyDown)
	interpreter.SetKeyState(Key5, KeyUp)
	tick(t, interpreter, 1)

	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x202), interpreter.pc)
	assert.Equal(t, uint8(0), interpreter.vx[3])
}

func TestTimers(t *testing.T) {
	interpreter := newTestInterpreter(t)

	interpreter.TickTimers()
	assert.Equal(t, uint8(0), interpreter.dt)
	assert.Equal(t, uint8(0), interpreter.st)

	interpreter.st = 3
	interpreter.dt = 2

	interpreter.TickTimers()
	assert.True(t, interpreter.ShouldPlaySound())
	interpreter.TickTimers()
	assert.True(t, interpreter.ShouldPlaySound())
	assert.Equal(t, uint8(0), interpreter.dt)
	interpreter.TickTimers()
	assert.False(t, interpreter.ShouldPlaySound())
	assert.Equal(t, uint8(0), interpreter.st)
}

func TestTimerRegisters(t *testing.T) {
	// ld V1, $09; ld DT, V1; ld ST, V1; ld V2, DT
	interpreter := newTestInterpreter(t, 0x6109, 0xf115, 0xf118, 0xf207)

	tick(t, interpreter, 3)
	assert.Equal(t, uint8(9), interpreter.dt)
	assert.Equal(t, uint8(9), interpreter.st)

	interpreter.TickTimers()
	tick(t, interpreter, 1)
	assert.Equal(t, uint8(8), interpreter.vx[2])
}

func TestIndexRegister(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xaffe, 0xf11e, 0xf21e)
	interpreter.vx[1] = 0x05
	interpreter.vx[2] = 0xff

	tick(t, interpreter, 2)
	assert.Equal(t, uint16(0x1003), interpreter.i)
	assert.Equal(t, uint8(0), interpreter.vx[VF])

	interpreter.i = 0xfffe
	tick(t, interpreter, 1)
	assert.Equal(t, uint16(0x00fd), interpreter.i)
}

func TestRandom(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xc30f)

	tick(t, interpreter, 1)
	assert.Equal(t, uint8(0x0b), interpreter.vx[3])
}

func TestBCD(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xa300, 0xf333)
	interpreter.vx[3] = 234

	tick(t, interpreter, 2)
	assert.Equal(t, []uint8{2, 3, 4}, interpreter.memory[0x300:0x303])

	interpreter = newTestInterpreter(t, 0xaffe, 0xf333)
	interpreter.vx[3] = 234
	tick(t, interpreter, 1)

	err := interpreter.Tick()
	assert.True(t, errors.Is(err, ErrMemoryAccess))
	assert.Equal(t, []uint8{0, 0}, interpreter.memory[0xffe:])
}

func TestStoreLoadRegisters(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xa300, 0xf255, 0xa400, 0xf365)
	interpreter.vx[0] = 0x10
	interpreter.vx[1] = 0x20
	interpreter.vx[2] = 0x30
	interpreter.vx[3] = 0x40
	copy(interpreter.memory[0x400:], []uint8{0xa1, 0xa2, 0xa3, 0xa4, 0xa5})

	tick(t, interpreter, 2)
	assert.Equal(t, []uint8{0x10, 0x20, 0x30, 0x00}, interpreter.memory[0x300:0x304])
	assert.Equal(t, uint16(0x300), interpreter.i)

	tick(t, interpreter, 2)
	assert.Equal(t, [4]uint8{0xa1, 0xa2, 0xa3, 0xa4}, [4]uint8(interpreter.vx[:4]))
	assert.Equal(t, uint8(0x00), interpreter.vx[4])
	assert.Equal(t, uint16(0x400), interpreter.i)
}

func TestStoreOutOfMemory(t *testing.T) {
	interpreter := newTestInterpreter(t, 0xaffd, 0xf355)
	tick(t, interpreter, 1)

	err := interpreter.Tick()
	assert.True(t, errors.Is(err, ErrMemoryAccess))
	assert.Equal(t, []uint8{0, 0, 0}, interpreter.memory[0xffd:])
}

func TestFetchOutOfMemory(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x1fff)
	tick(t, interpreter, 1)

	err := interpreter.Tick()
	assert.True(t, errors.Is(err, ErrMemoryAccess))
	assert.Equal(t, uint16(0xfff), interpreter.pc)
}

func TestReset(t *testing.T) {
	interpreter := newTestInterpreter(t,
		0x6105, // ld V1, $05
		0xf115, // ld DT, V1
		0xf029, // ld F, V0
		0xd015, // drw V0, V1, 5
		0x220a, // call $20A
	)
	tick(t, interpreter, 5)
	interpreter.SetKeyState(Key1, KeyDown)

	interpreter.Reset()

	state := interpreter.State()
	assert.Equal(t, uint16(ProgramStart), state.PC)
	assert.Equal(t, uint16(0), state.I)
	assert.Equal(t, uint8(0), state.SP)
	assert.Equal(t, uint8(0), state.DT)
	assert.Equal(t, [16]uint8{}, state.V)
	assert.Empty(t, state.Stack)

	assert.Equal(t, Display{}, interpreter.Display())
	assert.True(t, interpreter.keypad.IsKeyUp(Key1))
	assert.Equal(t, uint8(0), interpreter.memory[ProgramStart])
	assert.Equal(t, digitSprites[:], interpreter.memory[FontAddress:FontAddress+len(digitSprites)])

	assert.NoError(t, interpreter.LoadROM(program(0x6207)))
	tick(t, interpreter, 1)
	assert.Equal(t, uint8(7), interpreter.vx[2])
}

func TestTrace(t *testing.T) {
	interpreter := New(WithLogger(log.NewTestLogger(t)), WithTrace(true))
	assert.NoError(t, interpreter.LoadROM(program(0x6105)))

	tick(t, interpreter, 1)
	assert.Equal(t, uint8(5), interpreter.vx[1])
}

func TestPeek(t *testing.T) {
	interpreter := newTestInterpreter(t, 0x1234)

	word, err := interpreter.Peek()
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x1234), word)
	assert.Equal(t, uint16(0x200), interpreter.pc)
}
