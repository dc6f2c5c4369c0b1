// Package isa is the single source of truth for the RISCroll instruction
// set: the mnemonic table (format, opcode, funct3, funct7) and the
// register-alias table. Both the assembler's encoder and the machine's
// microcode ROM are built from these two tables, so a new instruction is
// added here once and picked up everywhere.
package isa

import "fmt"

// Format identifies one of the six instruction encodings plus the
// system pseudo-format used only by halt.
type Format int

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
	FormatSYS
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatU:
		return "U"
	case FormatJ:
		return "J"
	case FormatSYS:
		return "SYS"
	default:
		return "?"
	}
}

// None marks an absent funct3/funct7 field in an Info value.
const None = -1

// Info describes one mnemonic's encoding shape.
type Info struct {
	Format Format
	Opcode byte
	Funct3 int // None if the format has no funct3 field
	Funct7 int // None if the format has no funct7 field
}

// Set maps mnemonic -> Info. Built once at init and never mutated.
var Set = map[string]Info{
	"add": {FormatR, 0x33, 0b000, 0b0000000},
	"sub": {FormatR, 0x33, 0b001, 0b0000000},
	"and": {FormatR, 0x33, 0b010, 0b0000000},
	"or":  {FormatR, 0x33, 0b011, 0b0000000},
	"xor": {FormatR, 0x33, 0b100, 0b0000000},
	"mul": {FormatR, 0x33, 0b101, 0b0000000},
	"div": {FormatR, 0x33, 0b110, 0b0000000},
	"lsl": {FormatR, 0x33, 0b111, 0b0000000},
	"lsr": {FormatR, 0x33, 0b000, 0b0000001},

	"addi": {FormatI, 0x13, 0b000, None},
	"andi": {FormatI, 0x13, 0b001, None},
	"ori":  {FormatI, 0x13, 0b010, None},
	"lw":   {FormatI, 0x03, 0b000, None},
	"lb":   {FormatI, 0x03, 0b001, None},
	"jalr": {FormatI, 0x67, 0b000, None},

	"sw": {FormatS, 0x23, 0b000, None},
	"sb": {FormatS, 0x23, 0b001, None},

	"beq": {FormatB, 0x63, 0b000, None},
	"bne": {FormatB, 0x63, 0b001, None},
	"bgt": {FormatB, 0x63, 0b010, None},
	"ble": {FormatB, 0x63, 0b011, None},

	"lui": {FormatU, 0x37, None, None},
	"jal": {FormatJ, 0x6F, None, None},

	"halt": {FormatSYS, 0x7F, None, None},
}

// Lookup returns the Info for a mnemonic, or an error naming it.
func Lookup(mnemonic string) (Info, error) {
	info, ok := Set[mnemonic]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownMnemonic, mnemonic)
	}
	return info, nil
}

// aliasRegisters is the named subset of the register file (see
// spec.md §3 "Named register aliases"). r0..r31 synonyms are added
// by init() below so this map stays the readable source of truth.
var aliasRegisters = map[string]int{
	"zero": 0,
	"ra":   1,
	"sp":   2,
	"gp":   3,
	"tp":   4,
	"t0":   5,
	"t1":   6,
	"t2":   7,
	"s0":   8,
	"s1":   9,
	"a0":   10,
	"a1":   11,
	"a2":   12,
	"a3":   13,
	"a4":   14,
	"a5":   15,
	"a6":   16,
	"a7":   17,
	"s2":   18,
	"s3":   19,
	"s4":   20,
	"s5":   21,
	"s6":   22,
	"s7":   23,
	"t3":   24,
	"t4":   25,
	"t5":   26,
	"t6":   27,
	"x28":  28,
	"x29":  29,
	"x30":  30,
	"x31":  31,
}

// Registers is aliasRegisters plus the r0..r31 synonyms, assembled once.
var Registers map[string]int

func init() {
	Registers = make(map[string]int, len(aliasRegisters)+32)
	for name, idx := range aliasRegisters {
		Registers[name] = idx
	}
	for i := 0; i < 32; i++ {
		Registers[fmt.Sprintf("r%d", i)] = i
	}
}

// ResolveRegister returns the register index for a name (alias or r0..r31).
func ResolveRegister(name string) (int, error) {
	idx, ok := Registers[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return idx, nil
}
