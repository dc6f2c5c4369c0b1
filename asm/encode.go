package asm

import (
	"fmt"
	"strings"

	"riscroll/isa"
)

// resolve implements spec.md §4.D's operand primitive: low(L)/high(L)
// labels, plain labels (absolute or PC-relative), or an integer literal.
func resolve(operand string, labels map[string]uint32, pc uint32, relative bool) (int64, error) {
	operand = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(operand), ","))

	if label, ok := unwrap(operand, "low(", ")"); ok {
		addr, ok := labels[label]
		if !ok {
			warnUndefinedLabel(label, "low()")
			addr = 0
		}
		return int64(addr & 0xFFF), nil
	}
	if label, ok := unwrap(operand, "high(", ")"); ok {
		addr, ok := labels[label]
		if !ok {
			warnUndefinedLabel(label, "high()")
			addr = 0
		}
		return int64(addr & 0xFFFFF000), nil
	}
	if addr, ok := labels[operand]; ok {
		if relative {
			return int64(addr) - int64(pc), nil
		}
		return int64(addr), nil
	}
	v, err := parseInt(operand)
	if err != nil {
		return 0, fmt.Errorf("%w: undefined label or malformed literal %q", ErrUndefinedLabel, operand)
	}
	return v, nil
}

func unwrap(s, prefix, suffix string) (string, bool) {
	if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix) {
		return s[len(prefix) : len(s)-len(suffix)], true
	}
	return "", false
}

func warnUndefinedLabel(label, form string) {
	fmt.Fprintf(stderrWriter, "warning: undefined label %q in %s, treating as address 0\n", label, form)
}

// tokenize splits "mnemonic op1, op2, op3" into the mnemonic and a
// comma-trimmed operand list.
func tokenize(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	ops := make([]string, len(fields)-1)
	for i, f := range fields[1:] {
		ops[i] = strings.TrimSuffix(f, ",")
	}
	return fields[0], ops
}

// splitOffsetReg parses the "imm(reg)" operand syntax required for
// loads/stores.
func splitOffsetReg(operand string) (offset, reg string, err error) {
	open := strings.IndexByte(operand, '(')
	close := strings.IndexByte(operand, ')')
	if open < 0 || close < 0 || close < open || close != len(operand)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrUnbalancedParens, operand)
	}
	return operand[:open], operand[open+1 : close], nil
}

func twosComplement(v int64, bits int) uint32 {
	mask := uint32(1)<<uint(bits) - 1
	return uint32(v) & mask
}

// EncodeInstruction encodes one text item (mnemonic + operands) into its
// 32-bit word, per the format-specific layouts in spec.md §4.D.
func EncodeInstruction(source string, labels map[string]uint32, pc uint32) (uint32, error) {
	mnemonic, ops := tokenize(source)
	if mnemonic == "" {
		return 0, fmt.Errorf("%w: empty instruction line", ErrParse)
	}
	info, err := isa.Lookup(mnemonic)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, err)
	}

	switch info.Format {
	case isa.FormatR:
		return encodeR(info, ops)
	case isa.FormatI:
		return encodeI(info, ops, labels, pc)
	case isa.FormatS:
		return encodeS(info, ops, labels, pc)
	case isa.FormatB:
		return encodeB(info, ops, labels, pc)
	case isa.FormatU:
		return encodeU(info, ops, labels, pc)
	case isa.FormatJ:
		return encodeJ(info, ops, labels, pc)
	case isa.FormatSYS:
		return uint32(info.Opcode), nil
	default:
		return 0, fmt.Errorf("%w: unsupported instruction type for %q", ErrFormat, mnemonic)
	}
}

func reg(name string) (uint32, error) {
	idx, err := isa.ResolveRegister(strings.TrimSpace(name))
	return uint32(idx), err
}

func encodeR(info isa.Info, ops []string) (uint32, error) {
	if len(ops) != 3 {
		return 0, fmt.Errorf("%w: R-type expects rd, rs1, rs2, got %v", ErrParse, ops)
	}
	rd, err := reg(ops[0])
	if err != nil {
		return 0, err
	}
	rs1, err := reg(ops[1])
	if err != nil {
		return 0, err
	}
	rs2, err := reg(ops[2])
	if err != nil {
		return 0, err
	}
	word := uint32(info.Funct7)<<25 | rs2<<20 | rs1<<15 | uint32(info.Funct3)<<12 | rd<<7 | uint32(info.Opcode)
	return word, nil
}

func encodeI(info isa.Info, ops []string, labels map[string]uint32, pc uint32) (uint32, error) {
	var rdName, rs1Name, immTok string
	switch {
	case len(ops) == 3:
		for _, op := range ops {
			if strings.Count(op, "(") != strings.Count(op, ")") {
				return 0, fmt.Errorf("%w: %q", ErrUnbalancedParens, op)
			}
		}
		rdName, rs1Name, immTok = ops[0], ops[1], ops[2]
	case len(ops) == 2:
		offset, regName, err := splitOffsetReg(ops[1])
		if err != nil {
			return 0, err
		}
		rdName, rs1Name, immTok = ops[0], regName, offset
	default:
		return 0, fmt.Errorf("%w: I-type expects rd, rs1, imm or rd, imm(rs1), got %v", ErrParse, ops)
	}

	rd, err := reg(rdName)
	if err != nil {
		return 0, err
	}
	rs1, err := reg(rs1Name)
	if err != nil {
		return 0, err
	}
	imm, err := resolve(immTok, labels, pc, false)
	if err != nil {
		return 0, err
	}

	word := (twosComplement(imm, 12) << 20) | rs1<<15 | uint32(info.Funct3)<<12 | rd<<7 | uint32(info.Opcode)
	return word, nil
}

func encodeS(info isa.Info, ops []string, labels map[string]uint32, pc uint32) (uint32, error) {
	if len(ops) != 2 {
		return 0, fmt.Errorf("%w: S-type expects rs2, imm(rs1), got %v", ErrParse, ops)
	}
	offset, rs1Name, err := splitOffsetReg(ops[1])
	if err != nil {
		return 0, err
	}
	rs2, err := reg(ops[0])
	if err != nil {
		return 0, err
	}
	rs1, err := reg(rs1Name)
	if err != nil {
		return 0, err
	}
	imm, err := resolve(offset, labels, pc, false)
	if err != nil {
		return 0, err
	}
	immBits := twosComplement(imm, 12)
	word := (immBits>>5)<<25 | rs2<<20 | rs1<<15 | uint32(info.Funct3)<<12 | (immBits&0x1F)<<7 | uint32(info.Opcode)
	return word, nil
}

func encodeB(info isa.Info, ops []string, labels map[string]uint32, pc uint32) (uint32, error) {
	if len(ops) != 3 {
		return 0, fmt.Errorf("%w: B-type expects rs1, rs2, label, got %v", ErrParse, ops)
	}
	rs1, err := reg(ops[0])
	if err != nil {
		return 0, err
	}
	rs2, err := reg(ops[1])
	if err != nil {
		return 0, err
	}
	offset, err := resolve(ops[2], labels, pc, true)
	if err != nil {
		return 0, err
	}
	if offset%2 != 0 {
		return 0, fmt.Errorf("%w: branch offset %d is not even", ErrMisaligned, offset)
	}

	immBits := twosComplement(offset, 13)
	bit12 := (immBits >> 12) & 1
	bits10_5 := (immBits >> 5) & 0x3F
	bits4_1 := (immBits >> 1) & 0xF
	bit11 := (immBits >> 11) & 1

	word := bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | uint32(info.Funct3)<<12 | bits4_1<<8 | bit11<<7 | uint32(info.Opcode)
	return word, nil
}

func encodeU(info isa.Info, ops []string, labels map[string]uint32, pc uint32) (uint32, error) {
	if len(ops) != 2 {
		return 0, fmt.Errorf("%w: U-type expects rd, imm-or-high(label), got %v", ErrParse, ops)
	}
	rd, err := reg(ops[0])
	if err != nil {
		return 0, err
	}
	imm, err := resolve(ops[1], labels, pc, false)
	if err != nil {
		return 0, err
	}
	word := (uint32(imm) & 0xFFFFF000) | rd<<7 | uint32(info.Opcode)
	return word, nil
}

func encodeJ(info isa.Info, ops []string, labels map[string]uint32, pc uint32) (uint32, error) {
	if len(ops) != 2 {
		return 0, fmt.Errorf("%w: J-type expects rd, label, got %v", ErrParse, ops)
	}
	rd, err := reg(ops[0])
	if err != nil {
		return 0, err
	}
	offset, err := resolve(ops[1], labels, pc, true)
	if err != nil {
		return 0, err
	}
	if offset%2 != 0 {
		return 0, fmt.Errorf("%w: jump offset %d is not even", ErrMisaligned, offset)
	}

	immBits := twosComplement(offset, 21)
	bit20 := (immBits >> 20) & 1
	bits10_1 := (immBits >> 1) & 0x3FF
	bit11 := (immBits >> 11) & 1
	bits19_12 := (immBits >> 12) & 0xFF

	word := bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12 | rd<<7 | uint32(info.Opcode)
	return word, nil
}

// ResolveDataWord resolves a .word operand (literal or label) once the
// full label table is available.
func ResolveDataWord(operand string, labels map[string]uint32) (uint32, error) {
	v, err := resolve(operand, labels, 0, false)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
