package mach

// signExtend widens a bits-wide two's-complement value held in the low
// bits of v to a full 32-bit signed value.
func signExtend(v uint32, bits int) int32 {
	shift := uint(32 - bits)
	return int32(v<<shift) >> shift
}

// opcodeOf, funct3Of, funct7Of read the fixed instruction-word fields
// shared by every format (spec.md §4.H phase 1).
func opcodeOf(ir uint32) byte  { return byte(ir & 0x7F) }
func funct3Of(ir uint32) int   { return int((ir >> 12) & 0x7) }
func funct7Of(ir uint32) int   { return int((ir >> 25) & 0x7F) }
func rdOf(ir uint32) uint32    { return (ir >> 7) & 0x1F }
func rs1Of(ir uint32) uint32   { return (ir >> 15) & 0x1F }
func rs2Of(ir uint32) uint32   { return (ir >> 20) & 0x1F }

// extractOperands dispatches on opcode to produce the (a, b) pair the
// ALU consumes this tick, per spec.md §4.I. originPC is the address of
// the currently executing instruction itself (PC − 4, since fetch has
// already advanced PC) — supplied explicitly by the control unit so the
// extractor stays a pure function of its inputs (spec.md §9's
// replacement for the source's in-extractor PC mutation; see
// SPEC_FULL.md §4 and DESIGN.md for the jalr rationale).
func extractOperands(c *CPU, op ALUOp, originPC uint32) (int32, int32) {
	ir := c.IR
	opcode := opcodeOf(ir)

	switch opcode {
	case 0x33: // R
		return int32(c.Registers[rs1Of(ir)]), int32(c.Registers[rs2Of(ir)])

	case 0x13, 0x03, 0x67: // I: addi/andi/ori, lw/lb, jalr
		imm := signExtend((ir>>20)&0xFFF, 12)
		return int32(c.Registers[rs1Of(ir)]), imm

	case 0x23: // S: sw/sb
		immBits := ((ir >> 25) << 5) | ((ir >> 7) & 0x1F)
		imm := signExtend(immBits, 12)
		return int32(c.Registers[rs1Of(ir)]), imm

	case 0x63: // B
		if op == ALUBranchOffset {
			bit12 := (ir >> 31) & 1
			bits10_5 := (ir >> 25) & 0x3F
			bits4_1 := (ir >> 8) & 0xF
			bit11 := (ir >> 7) & 1
			immBits := (bit12 << 12) | (bit11 << 11) | (bits10_5 << 5) | (bits4_1 << 1)
			return int32(originPC), signExtend(immBits, 13)
		}
		return int32(c.Registers[rs1Of(ir)]), int32(c.Registers[rs2Of(ir)])

	case 0x6F: // J: jal
		if op == ALUJalLink {
			return int32(originPC), 4
		}
		bit20 := (ir >> 31) & 1
		bits10_1 := (ir >> 21) & 0x3FF
		bit11 := (ir >> 20) & 1
		bits19_12 := (ir >> 12) & 0xFF
		immBits := (bit20 << 20) | (bits19_12 << 12) | (bit11 << 11) | (bits10_1 << 1)
		return int32(originPC), signExtend(immBits, 21)

	case 0x37: // U: lui
		return 0, int32(ir & 0xFFFFF000)
	}

	return 0, 0
}

// execALU implements the ALU op table in spec.md §4.I. "lui" is a
// passthrough on b, not "b<<12": the extractor already delivers b
// pre-aligned to bits [31:12] (see the "lui double shift" resolution in
// SPEC_FULL.md §4 / DESIGN.md, open question (b)).
func execALU(op ALUOp, a, b int32) int32 {
	switch op {
	case ALUAdd:
		return a + b
	case ALUSub:
		return a - b
	case ALUMul:
		return a * b
	case ALUDiv:
		if b == 0 {
			return 0
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q
	case ALUAnd:
		return a & b
	case ALUOr:
		return a | b
	case ALUXor:
		return a ^ b
	case ALULsl:
		return int32(uint32(a) << uint32(b))
	case ALULsr:
		return int32(uint32(a) >> uint32(b))
	case ALULui:
		return b
	case ALUJalLink, ALUJalOffset, ALUBranchOffset:
		return a + b
	default:
		return 0
	}
}

func shouldJump(cond JumpCond, z, n bool) bool {
	switch cond {
	case JumpZ:
		return z
	case JumpNZ:
		return !z
	case JumpGT:
		return !n && !z
	case JumpLE:
		return n || z
	default:
		return false
	}
}
