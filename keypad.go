package chip8

import "fmt"

// The computers which originally used the Chip-8 Language had a 16-key
// hexadecimal keypad with the following layout:
//
// +---+---+---+---+
// | 1 | 2 | 3 | C |
// +---+---+---+---+
// | 4 | 5 | 6 | D |
// +---+---+---+---+
// | 7 | 8 | 9 | E |
// +---+---+---+---+
// | A | 0 | B | F |
// +---+---+---+---+

type Key uint8

const (
	Key0 Key = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

const keyCount = 16

func (k Key) String() string {
	return fmt.Sprintf("%X", uint8(k))
}

// KeyState is the position of a single key.
type KeyState uint8

const (
	KeyUp KeyState = iota
	KeyDown
)

func (s KeyState) String() string {
	if s == KeyDown {
		return "down"
	}
	return "up"
}

// Keypad tracks the state of the 16 logical keys and queues every key that
// went from down to up until the queue is cleared.
//
// Keys are addressed by their low nibble, so Key(0x1a) is the same key as
// KeyA.
type Keypad struct {
	state    [keyCount]KeyState
	released []Key
}

// SetKeyState records the current state of key. A down to up transition
// appends the key to the release queue.
func (k *Keypad) SetKeyState(key Key, state KeyState) {
	key &= 0x0f

	previous := k.state[key]
	k.state[key] = state

	if previous == KeyDown && state == KeyUp {
		k.released = append(k.released, key)
	}
}

func (k *Keypad) IsKeyDown(key Key) bool {
	return k.state[key&0x0f] == KeyDown
}

func (k *Keypad) IsKeyUp(key Key) bool {
	return k.state[key&0x0f] == KeyUp
}

// Released returns the oldest key released since the queue was last
// cleared. The queue is not modified.
func (k *Keypad) Released() (Key, bool) {
	if len(k.released) == 0 {
		return 0, false
	}
	return k.released[0], true
}

// ClearReleased drops all queued release events.
func (k *Keypad) ClearReleased() {
	k.released = k.released[:0]
}

// Reset puts every key up and drops all queued release events.
func (k *Keypad) Reset() {
	k.state = [keyCount]KeyState{}
	k.ClearReleased()
}
