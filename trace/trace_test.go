package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riscroll/mach"
)

func encHalt() uint32 { return 0x7F }

func wordsToBytes(words ...uint32) []byte {
	out := make([]byte, 0, len(words)*4)
	for _, w := range words {
		out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return out
}

func TestObserveEmitsOneLinePerPCChange(t *testing.T) {
	text := wordsToBytes(encHalt())
	cpu := mach.New(text, nil, 0)

	var buf bytes.Buffer
	l := New(&buf)

	require.NoError(t, Run(cpu, 100, l))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// FETCH (PC 0->4) then DISPATCH->HALT share PC=4, so dispatch's tick
	// is folded away; the halt tick itself never advances PC again.
	assert.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "PC=0x00000004(4)")
}

func TestObserveOnlyReportsChangedRegisters(t *testing.T) {
	// addi t0,zero,1 ; addi t1,zero,2 ; halt
	text := wordsToBytes(
		0b000000000001_00000_000_00101_0010011, // addi r5, r0, 1
		0b000000000010_00000_000_00110_0010011, // addi r6, r0, 2
		encHalt(),
	)
	cpu := mach.New(text, nil, 0)
	var buf bytes.Buffer
	l := New(&buf)
	require.NoError(t, Run(cpu, 100, l))

	out := buf.String()
	assert.Contains(t, out, "r05=00000001(1)")
	assert.Contains(t, out, "r06=00000002(2)")
}
