package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownMnemonics(t *testing.T) {
	for _, name := range []string{"add", "sub", "lsr", "addi", "lw", "lb", "jalr", "sw", "sb", "beq", "bgt", "lui", "jal", "halt"} {
		_, err := Lookup(name)
		require.NoError(t, err, "mnemonic %s should be known", name)
	}
}

func TestLookupUnknownMnemonic(t *testing.T) {
	_, err := Lookup("frobnicate")
	assert.ErrorIs(t, err, ErrUnknownMnemonic)
}

func TestLsrDistinguishedFromAddByFunct7(t *testing.T) {
	add, err := Lookup("add")
	require.NoError(t, err)
	lsr, err := Lookup("lsr")
	require.NoError(t, err)

	assert.Equal(t, add.Opcode, lsr.Opcode)
	assert.Equal(t, add.Funct3, lsr.Funct3)
	assert.NotEqual(t, add.Funct7, lsr.Funct7)
}

func TestRegisterAliasesAndSynonyms(t *testing.T) {
	cases := map[string]int{
		"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
		"t0": 5, "t1": 6, "t2": 7,
		"s0": 8, "s1": 9,
		"a0": 10, "a7": 17,
		"s2": 18, "s7": 23,
		"t3": 24, "t6": 27,
		"x28": 28, "x31": 31,
		"r0": 0, "r17": 17, "r31": 31,
	}
	for name, want := range cases {
		got, err := ResolveRegister(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestResolveUnknownRegister(t *testing.T) {
	_, err := ResolveRegister("q9")
	assert.ErrorIs(t, err, ErrUnknownRegister)
}
