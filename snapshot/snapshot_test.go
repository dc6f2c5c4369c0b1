package snapshot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riscroll/mach"
)

func TestWriteIncludesRegistersMemoryAndOutput(t *testing.T) {
	text := []byte{0x7F, 0, 0, 0} // halt
	cpu := mach.New(text, nil, 0)
	cpu.Registers[5] = 0xDEADBEEF
	cpu.DataMem[0x100] = 0x01
	cpu.DataMem[0x101] = 0x02
	cpu.Output = append(cpu.Output, mach.OutputEvent{Word: 'A', Char: true})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cpu, DefaultRange))

	out := buf.String()
	assert.Contains(t, out, "[Registers]")
	assert.Contains(t, out, "r05=DEADBEEF")
	assert.Contains(t, out, "[Memory @ 0x00000100]")
	assert.Contains(t, out, "00000100: 00000201")
	assert.Contains(t, out, "[Output buffer]")
	assert.Contains(t, out, "A")
}

func TestWriteHandlesEmptyRange(t *testing.T) {
	cpu := mach.New([]byte{0x7F, 0, 0, 0}, nil, 0)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cpu, Range{Start: 0, End: 0}))
	assert.Contains(t, buf.String(), "[Memory @ 0x00000000]")
}
