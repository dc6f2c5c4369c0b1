package mach

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func assembleWords(words ...uint32) []byte {
	var out []byte
	for _, w := range words {
		out = append(out, word32(w)...)
	}
	return out
}

// encR/encI/encS/encB/encJ build raw instruction words directly (bit
// layouts mirror asm/encode.go) so mach's tests don't import asm.
func encR(opcode byte, funct3, funct7 int, rd, rs1, rs2 uint32) uint32 {
	return uint32(funct7)<<25 | rs2<<20 | rs1<<15 | uint32(funct3)<<12 | rd<<7 | uint32(opcode)
}

func encI(opcode byte, funct3 int, rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | rs1<<15 | uint32(funct3)<<12 | rd<<7 | uint32(opcode)
}

func encS(opcode byte, funct3 int, rs1, rs2 uint32, imm int32) uint32 {
	immBits := uint32(imm) & 0xFFF
	return (immBits>>5)<<25 | rs2<<20 | rs1<<15 | uint32(funct3)<<12 | (immBits&0x1F)<<7 | uint32(opcode)
}

func encB(funct3 int, rs1, rs2 uint32, offset int32) uint32 {
	immBits := uint32(offset) & 0x1FFF
	bit12 := (immBits >> 12) & 1
	bits10_5 := (immBits >> 5) & 0x3F
	bits4_1 := (immBits >> 1) & 0xF
	bit11 := (immBits >> 11) & 1
	return bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | uint32(funct3)<<12 | bits4_1<<8 | bit11<<7 | 0x63
}

func encJ(rd uint32, offset int32) uint32 {
	immBits := uint32(offset) & 0x1FFFFF
	bit20 := (immBits >> 20) & 1
	bits10_1 := (immBits >> 1) & 0x3FF
	bit11 := (immBits >> 11) & 1
	bits19_12 := (immBits >> 12) & 0xFF
	return bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12 | rd<<7 | 0x6F
}

func encHalt() uint32 { return 0x7F }

func TestHaltAtPC0StopsAfterThreeTicks(t *testing.T) {
	text := assembleWords(encHalt())
	cpu := New(text, nil, 0)

	require.NoError(t, cpu.Step()) // FETCH
	assert.True(t, cpu.Running)
	require.NoError(t, cpu.Step()) // dispatch -> halt entry
	require.NoError(t, cpu.Step()) // halt
	assert.False(t, cpu.Running)
	assert.Empty(t, cpu.Output)
}

func TestBranchTakenReachesLabel(t *testing.T) {
	// addi t0,zero,1 ; addi t1,zero,1 ; beq t0,t1,+8 ; addi t2,zero,99(skipped) ; halt
	text := assembleWords(
		encI(0x13, 0b000, 5, 0, 1),
		encI(0x13, 0b000, 6, 0, 1),
		encB(0b000, 5, 6, 8),
		encI(0x13, 0b000, 7, 0, 99),
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, uint32(20), cpu.PC) // halt at 16; its fetch advanced PC
	assert.Equal(t, uint32(0), cpu.Registers[7], "skipped instruction must not execute")
}

func TestBranchNotTakenFallsThrough(t *testing.T) {
	text := assembleWords(
		encI(0x13, 0b000, 5, 0, 1),
		encI(0x13, 0b000, 6, 0, 2),
		encB(0b000, 5, 6, 12), // beq, not equal
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, uint32(16), cpu.PC) // halt at 12; its fetch advanced PC
}

func TestJalLinkAndJumpAndR0Suppression(t *testing.T) {
	// jal ra, +8 ; addi t0,zero,99(skipped) ; halt
	text := assembleWords(
		encJ(1, 8),
		encI(0x13, 0b000, 5, 0, 99),
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, uint32(4), cpu.Registers[1], "ra should hold return address p+4")
	assert.Equal(t, uint32(0), cpu.Registers[5])
	assert.Equal(t, uint32(12), cpu.PC) // halt at 8; its fetch advanced PC

	// jal r0, +8 must not clobber register 0.
	text2 := assembleWords(encJ(0, 8), encHalt(), encHalt())
	cpu2 := New(text2, nil, 0)
	require.NoError(t, cpu2.Run(1000))
	assert.Equal(t, uint32(0), cpu2.Registers[0])
}

func TestMMIOLoadFromEmptyInputIsZero(t *testing.T) {
	// addi t1,zero,1 ; lw t0, 0(t1) reads the MMIO input address
	text := assembleWords(
		encI(0x13, 0b000, 6, 0, 1), // t1 = 1 (MMIO input address)
		encI(0x03, 0b000, 5, 6, 0),
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, uint32(0), cpu.Registers[5])
}

func TestMMIOStoreByteAppendsCharacter(t *testing.T) {
	text := assembleWords(
		encI(0x13, 0b000, 6, 0, 2),  // t1 = 2 (MMIO output address)
		encI(0x13, 0b000, 5, 0, 65), // t0 = 'A'
		encS(0x23, 0b001, 6, 5, 0),  // sb t0, 0(t1)
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, "A", cpu.OutputText())
}

func TestMMIOStoreWordAppendsInteger(t *testing.T) {
	text := assembleWords(
		encI(0x13, 0b000, 6, 0, 2),   // t1 = 2
		encI(0x13, 0b000, 5, 0, 777), // t0 = 777
		encS(0x23, 0b000, 6, 5, 0),   // sw t0, 0(t1)
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, []uint32{777}, cpu.OutputWords())
}

func TestDivByZeroReturnsZero(t *testing.T) {
	text := assembleWords(
		encI(0x13, 0b000, 5, 0, 10), // t0 = 10
		encR(0x33, 0b110, 0, 6, 5, 0),
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, uint32(0), cpu.Registers[6])
}

func TestDivFloorsTowardNegativeInfinityForMixedSigns(t *testing.T) {
	text := assembleWords(
		encI(0x13, 0b000, 5, 0, -7), // t0 = -7
		encI(0x13, 0b000, 6, 0, 2),  // t1 = 2
		encR(0x33, 0b110, 0, 7, 5, 6),
		encHalt(),
	)
	cpu := New(text, nil, 0)
	require.NoError(t, cpu.Run(1000))
	assert.Equal(t, int32(-4), int32(cpu.Registers[7]))
}

func TestDeterminismAcrossRuns(t *testing.T) {
	text := assembleWords(
		encI(0x13, 0b000, 5, 0, 3),
		encI(0x13, 0b000, 6, 0, 4),
		encR(0x33, 0b000, 0, 7, 5, 6),
		encHalt(),
	)

	run := func() (uint32, [32]uint32) {
		cpu := New(text, nil, 0)
		require.NoError(t, cpu.Run(1000))
		return cpu.PC, cpu.Registers
	}

	pc1, regs1 := run()
	pc2, regs2 := run()
	assert.Equal(t, pc1, pc2)
	assert.Equal(t, regs1, regs2)
}

func TestStepCapTripIsDistinctFromHalt(t *testing.T) {
	// An infinite loop: jal zero, 0 (self-jump).
	text := assembleWords(encJ(0, 0))
	cpu := New(text, nil, 0)
	err := cpu.Run(50)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepCapExceeded)
	assert.True(t, cpu.Running, "a step-cap trip is not a CPU halt")
}
