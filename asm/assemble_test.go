package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleEntryPointIsFirstTextAddress(t *testing.T) {
	source := ".text\n.org 0x40\nstart: addi t0, zero, 1\nhalt\n"
	prog, err := Assemble(source)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x40), prog.Entry)
	require.Len(t, prog.TextWords, 2)
}

func TestAssembleLabelIndependenceOfBinaryShape(t *testing.T) {
	a := ".text\nstart: addi t0, zero, 1\nL1: addi t1, zero, 2\nbeq t0, t1, L1\n"
	b := ".text\nstart: addi t0, zero, 1\nL1:\naddi t1, zero, 2\nbeq t0, t1, L1\n"

	progA, err := Assemble(a)
	require.NoError(t, err)
	progB, err := Assemble(b)
	require.NoError(t, err)

	assert.Equal(t, progA.TextWords, progB.TextWords)
}

func TestAssembleDataSectionWordAndByteLayout(t *testing.T) {
	source := ".data\n.org 0x10\nn: .word 42\ns: .byte \"hi\"\n.text\nhalt\n"
	prog, err := Assemble(source)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(prog.DataBytes), 0x10+6)
	assert.Equal(t, byte(42), prog.DataBytes[0x10])
	assert.Equal(t, []byte("hi"), prog.DataBytes[0x14:0x16])
}

func TestAssembleDataListingHasOneLinePerDecodedByte(t *testing.T) {
	source := ".data\n.org 0x10\nn: .word 42\ns: .byte \"hi\"\n.text\nhalt\n"
	prog, err := Assemble(source)
	require.NoError(t, err)

	require.Len(t, prog.DataListing, 3)
	assert.Equal(t,
		"00000010(16) - 0000002A - 00000000000000000000000000101010 - .word 42",
		prog.DataListing[0])
	assert.Equal(t,
		"00000014(20) - 00000068 - 00000000000000000000000001101000 - .byte 104",
		prog.DataListing[1])
	assert.Equal(t,
		"00000015(21) - 00000069 - 00000000000000000000000001101001 - .byte 105",
		prog.DataListing[2])
}

func TestAssembleMacroShowcaseExpandsBeforeEncoding(t *testing.T) {
	source := ".macro inc reg\naddi \\reg, \\reg, 1\n.endmacro\n.text\ninc t0\nhalt\n"
	prog, err := Assemble(source)
	require.NoError(t, err)
	require.Len(t, prog.TextWords, 2)
}

func TestAssembleUndefinedLabelOutsideLowHighIsHardError(t *testing.T) {
	source := ".text\njal ra, nowhere\n"
	_, err := Assemble(source)
	assert.ErrorIs(t, err, ErrUndefinedLabel)
}
