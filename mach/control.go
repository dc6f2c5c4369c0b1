package mach

import "fmt"

// Step executes exactly one microinstruction: the nine ordered phases
// from spec.md §4.H. Each phase runs only if its field is asserted; the
// ordering of phase 4 (ALU) before phase 5 (PC update) is load-bearing,
// since branch/JAL arithmetic needs the branch instruction's own PC
// before that PC is overwritten.
func (c *CPU) Step() error {
	mi := c.ROM.Get(c.MPC)

	// Phase 1: decode dispatch short-circuit.
	if c.MPC == mpcDispatch {
		mpc, err := c.ROM.Lookup(opcodeOf(c.IR), funct3Of(c.IR), funct7Of(c.IR))
		if err != nil {
			return err
		}
		c.MPC = mpc
		return nil
	}

	// Phase 2: halt.
	if mi.Halt {
		c.Running = false
		return nil
	}

	// Phase 3: fetch.
	if mi.LatchIR {
		c.IR = readWord(c.InstrMem[:], c.PC)
	}

	// Phase 4: ALU. originPC recovers the current instruction's own
	// address: fetch already advanced PC by 4 in a prior tick.
	if mi.LatchALU != ALUNone {
		originPC := c.PC - 4
		a, b := extractOperands(c, mi.LatchALU, originPC)
		c.ALUOut = uint32(execALU(mi.LatchALU, a, b))
		if mi.SetFlags {
			c.FlagZ = c.ALUOut == 0
			c.FlagN = int32(c.ALUOut) < 0
		}
	}

	// Phase 5: PC update.
	switch mi.LatchPC {
	case PCInc:
		c.PC += 4
	case PCAlu:
		c.PC = c.ALUOut
	case PCBranch:
		if shouldJump(mi.JumpIf, c.FlagZ, c.FlagN) {
			c.PC = c.ALUOut
		}
	}

	// Phase 6: memory read.
	if mi.MemRead {
		rd := rdOf(c.IR)
		addr := c.ALUOut
		var value uint32
		if addr == MMIOInput {
			value = c.popInput()
		} else {
			switch funct3Of(c.IR) {
			case 0b000: // lw
				w, err := c.readDataWord(addr)
				if err != nil {
					return err
				}
				value = w
			case 0b001: // lb, sign-extended
				b, err := c.readDataByte(addr)
				if err != nil {
					return err
				}
				value = uint32(signExtend(uint32(b), 8))
			}
		}
		c.Registers[rd] = value
	}

	// Phase 7: memory write.
	if mi.MemWrite {
		addr := c.ALUOut
		val := c.Registers[rs2Of(c.IR)]
		if mi.StoreByte {
			b := byte(val)
			if addr == MMIOOutput {
				c.Output = append(c.Output, OutputEvent{Word: uint32(b), Char: true})
			} else if err := c.writeDataByte(addr, b); err != nil {
				return err
			}
		} else {
			if addr == MMIOOutput {
				c.Output = append(c.Output, OutputEvent{Word: val})
			} else if err := c.writeDataWord(addr, val); err != nil {
				return err
			}
		}
	}

	// Phase 8: register writeback.
	rd := rdOf(c.IR)
	switch mi.LatchReg {
	case RegRD:
		if rd != 0 {
			c.Registers[rd] = c.ALUOut
		}
	case RegRDPC:
		if rd != 0 {
			c.Registers[rd] = c.PC
		}
	}

	// Phase 9: µPC advance.
	if mi.HasNext {
		c.MPC = mi.NextMPC
	}

	return nil
}

// Run steps the CPU until it halts or stepCap ticks have elapsed,
// whichever comes first. A step-cap trip is distinct from a CPU halt
// (spec.md §5, §7): it is reported as an error, not a Running=false.
func (c *CPU) Run(stepCap int) error {
	for steps := 0; c.Running; steps++ {
		if steps >= stepCap {
			return fmt.Errorf("%w: after %d steps", ErrStepCapExceeded, steps)
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

func readWord(mem []byte, addr uint32) uint32 {
	return uint32(mem[addr]) | uint32(mem[addr+1])<<8 | uint32(mem[addr+2])<<16 | uint32(mem[addr+3])<<24
}

func (c *CPU) readDataWord(addr uint32) (uint32, error) {
	if addr > MemSize-4 {
		return 0, fmt.Errorf("%w: read word at 0x%08X", ErrMemoryOutOfRange, addr)
	}
	return readWord(c.DataMem[:], addr), nil
}

func (c *CPU) readDataByte(addr uint32) (byte, error) {
	if addr >= MemSize {
		return 0, fmt.Errorf("%w: read byte at 0x%08X", ErrMemoryOutOfRange, addr)
	}
	return c.DataMem[addr], nil
}

func (c *CPU) writeDataWord(addr, val uint32) error {
	if addr > MemSize-4 {
		return fmt.Errorf("%w: write word at 0x%08X", ErrMemoryOutOfRange, addr)
	}
	c.DataMem[addr] = byte(val)
	c.DataMem[addr+1] = byte(val >> 8)
	c.DataMem[addr+2] = byte(val >> 16)
	c.DataMem[addr+3] = byte(val >> 24)
	return nil
}

func (c *CPU) writeDataByte(addr uint32, val byte) error {
	if addr >= MemSize {
		return fmt.Errorf("%w: write byte at 0x%08X", ErrMemoryOutOfRange, addr)
	}
	c.DataMem[addr] = val
	return nil
}
