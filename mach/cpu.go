package mach

import "sync"

const (
	// MemSize is the size, in bytes, of each of the two independent
	// memories (spec.md §3).
	MemSize = 64 * 1024

	// MMIOInput and MMIOOutput are the two memory-mapped addresses.
	MMIOInput  = 0x1
	MMIOOutput = 0x2
)

var (
	sharedROMOnce sync.Once
	sharedROMInst *ROM
)

// SharedROM returns a process-wide ROM instance, built once (spec.md §5:
// "Microcode ROM is constructed once and thereafter read-only").
func SharedROM() *ROM {
	sharedROMOnce.Do(func() { sharedROMInst = BuildROM() })
	return sharedROMInst
}

// OutputEvent is one append to the output buffer. Char marks whether it
// came from a byte-store (render as a rune) or a word-store (render as
// a decimal integer).
type OutputEvent struct {
	Word uint32
	Char bool
}

// CPU is the architectural state from spec.md §3/§4.G: PC, IR, µPC, the
// register file, flags, ALU output, the two independent 64 KiB
// memories, and the I/O FIFOs. All of it is owned exclusively by the CPU
// and mutated only by the control unit within one tick (spec.md §5).
type CPU struct {
	PC  uint32
	IR  uint32
	MPC int

	Registers [32]uint32
	FlagZ     bool
	FlagN     bool
	ALUOut    uint32

	InstrMem [MemSize]byte
	DataMem  [MemSize]byte

	Input  []uint32
	Output []OutputEvent

	Running bool
	ROM     *ROM
}

// New constructs a CPU with the text image placed at entry and the data
// image copied to the start of data memory (spec.md §6).
func New(textImage, dataImage []byte, entry uint32) *CPU {
	c := &CPU{
		PC:      entry,
		Running: true,
		ROM:     SharedROM(),
	}
	copy(c.InstrMem[entry:], textImage)
	copy(c.DataMem[:], dataImage)
	return c
}

// LoadInputBytes sets the input buffer from a raw byte stream, NUL
// terminated if it isn't already (original_source's load_input_file
// behavior, named "bytes" mode in spec.md §6).
func (c *CPU) LoadInputBytes(data []byte) {
	if len(data) == 0 || data[len(data)-1] != 0 {
		data = append(data, 0)
	}
	c.Input = make([]uint32, len(data))
	for i, b := range data {
		c.Input[i] = uint32(b)
	}
}

// LoadInputWords sets the input buffer from decimal integers, one per
// line ("words" mode in spec.md §6, needed by the sort scenario).
func (c *CPU) LoadInputWords(words []uint32) {
	c.Input = append([]uint32(nil), words...)
}

// popInput implements the MMIO load at address 0x1: pop one element, or
// 0 if the buffer is empty.
func (c *CPU) popInput() uint32 {
	if len(c.Input) == 0 {
		return 0
	}
	v := c.Input[0]
	c.Input = c.Input[1:]
	return v
}

// OutputText concatenates every char-tagged output event as a rune
// string (used by byte-oriented programs: hello_world, cat, ...).
func (c *CPU) OutputText() string {
	var out []rune
	for _, ev := range c.Output {
		if ev.Char {
			out = append(out, rune(ev.Word))
		}
	}
	return string(out)
}

// OutputWords returns every output event's raw word value in order
// (used by word-oriented programs: sort).
func (c *CPU) OutputWords() []uint32 {
	out := make([]uint32, len(c.Output))
	for i, ev := range c.Output {
		out[i] = ev.Word
	}
	return out
}
