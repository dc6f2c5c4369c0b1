// Package snapshot dumps a mach.CPU's final architectural state: the
// register file, a window of data memory, and the rendered output
// buffer. It is grounded on original_source/run_machine.py's
// dump_snapshot, generalized so the memory window isn't hard-coded to
// 0x100..0x140.
package snapshot

import (
	"bufio"
	"fmt"
	"io"

	"riscroll/mach"
)

// Range is a half-open [Start, End) window of data memory to dump,
// word-aligned.
type Range struct {
	Start uint32
	End   uint32
}

// DefaultRange matches original_source/run_machine.py's hard-coded
// memory window, kept as a ready-made default for callers that don't
// care to choose their own.
var DefaultRange = Range{Start: 0x100, End: 0x140}

// Write renders the final state of c to w: a [Registers] section (four
// per line, r%02d=%08X), a [Memory @ 0x%08X] section over memRange
// (one "%08X: %08X" line per word), and an [Output buffer] section
// (the CPU's rendered text output).
func Write(w io.Writer, c *mach.CPU, memRange Range) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "[Registers]")
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(bw, "r%02d=%08X r%02d=%08X r%02d=%08X r%02d=%08X\n",
			i, c.Registers[i], i+1, c.Registers[i+1], i+2, c.Registers[i+2], i+3, c.Registers[i+3])
	}

	fmt.Fprintf(bw, "\n[Memory @ 0x%08X]\n", memRange.Start)
	for addr := memRange.Start; addr+4 <= memRange.End; addr += 4 {
		word := uint32(c.DataMem[addr]) | uint32(c.DataMem[addr+1])<<8 |
			uint32(c.DataMem[addr+2])<<16 | uint32(c.DataMem[addr+3])<<24
		fmt.Fprintf(bw, "%08X: %08X\n", addr, word)
	}

	fmt.Fprintln(bw, "\n[Output buffer]")
	fmt.Fprintln(bw, c.OutputText())

	return bw.Flush()
}
