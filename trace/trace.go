// Package trace is a passive observer of CPU state: it watches a
// mach.CPU from the outside and emits one line per tick where PC
// changed, the exact format spec.md §6 prescribes. It never mutates
// the CPU it observes.
package trace

import (
	"bufio"
	"fmt"
	"io"

	"riscroll/mach"
)

// Logger renders CPU ticks to an underlying writer, one line per tick
// where PC changed, carrying forward only the registers that changed
// since the last emitted line.
type Logger struct {
	w        *bufio.Writer
	lastPC   uint32
	havePrev bool
	prevRegs [32]uint32
}

// New wraps w in a buffered trace Logger.
func New(w io.Writer) *Logger {
	return &Logger{w: bufio.NewWriter(w)}
}

// Observe is called once per mach.CPU.Step(). It emits a line only when
// PC differs from the PC recorded on the previous emitted line — the
// FETCH and DECODE-DISPATCH ticks of a single instruction share a PC
// and are folded into the instruction's one trace line.
func (l *Logger) Observe(c *mach.CPU) error {
	if l.havePrev && c.PC == l.lastPC {
		return nil
	}

	var z, n int
	if c.FlagZ {
		z = 1
	}
	if c.FlagN {
		n = 1
	}

	line := fmt.Sprintf("PC=0x%08X(%d) MPC=%d NZ=%d%d IR=0x%08X(%d)",
		c.PC, c.PC, c.MPC, z, n, c.IR, int32(c.IR))

	for i, v := range c.Registers {
		if !l.havePrev || v != l.prevRegs[i] {
			line += fmt.Sprintf(" r%02d=%08X(%d)", i, v, int32(v))
		}
	}

	if _, err := fmt.Fprintln(l.w, line); err != nil {
		return err
	}

	l.lastPC = c.PC
	l.prevRegs = c.Registers
	l.havePrev = true
	return nil
}

// Flush flushes any buffered output to the underlying writer.
func (l *Logger) Flush() error {
	return l.w.Flush()
}

// Run steps c until it halts or stepCap is reached, calling Observe
// after every tick, then flushing. It mirrors mach.CPU.Run but threads
// a Logger through, the way a passive observer attaches to an
// otherwise self-contained machine (spec.md §1's "thin external
// collaborator" contract).
func Run(c *mach.CPU, stepCap int, l *Logger) error {
	for steps := 0; c.Running; steps++ {
		if steps >= stepCap {
			if err := l.Flush(); err != nil {
				return err
			}
			return fmt.Errorf("%w: after %d steps", mach.ErrStepCapExceeded, steps)
		}
		if err := c.Step(); err != nil {
			_ = l.Flush()
			return err
		}
		if err := l.Observe(c); err != nil {
			return err
		}
	}
	return l.Flush()
}
