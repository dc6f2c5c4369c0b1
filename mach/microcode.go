// Package mach is the microcoded execution engine: the microcode ROM
// (this file), the CPU datapath (cpu.go), the control unit (control.go),
// and the operand extractor + ALU (alu.go).
package mach

import (
	"fmt"
	"sort"

	"riscroll/isa"
)

// PCLatch is the µPC-level control signal for how the program counter is
// updated this tick.
type PCLatch int

const (
	PCNone PCLatch = iota
	PCInc
	PCAlu
	PCBranch
)

// RegLatch selects what a register-writeback microinstruction writes.
type RegLatch int

const (
	RegNone RegLatch = iota
	RegRD   // registers[rd] <- alu_out
	RegRDPC // registers[rd] <- PC (the jalr link)
)

// JumpCond is the branch predicate a "branch" PCLatch checks.
type JumpCond int

const (
	JumpNone JumpCond = iota
	JumpZ
	JumpNZ
	JumpGT
	JumpLE
)

// ALUOp is the operation a latched ALU microinstruction performs.
// ALUNone means no ALU operation is asserted this tick.
type ALUOp int

const (
	ALUNone ALUOp = iota
	ALUAdd
	ALUSub
	ALUMul
	ALUDiv
	ALUAnd
	ALUOr
	ALUXor
	ALULsl
	ALULsr
	ALULui
	ALUJalLink
	ALUJalOffset
	ALUBranchOffset
)

// Microinstruction is one tick's worth of datapath control signals — a
// struct of explicit typed fields rather than the source's
// dict-of-maybe-fields record (spec.md §9).
type Microinstruction struct {
	Comment   string
	LatchPC   PCLatch
	LatchIR   bool
	LatchReg  RegLatch
	LatchALU  ALUOp
	MemRead   bool
	MemWrite  bool
	StoreByte bool
	SetFlags  bool
	JumpIf    JumpCond
	NextMPC   int
	HasNext   bool
	Halt      bool
}

const (
	mpcFetch    = 0
	mpcDispatch = 1000
	mpcHalt     = 9999
)

type decodeKey struct {
	opcode byte
	funct3 int // isa.None for wildcard
	funct7 int // isa.None for wildcard
}

// ROM is the synthesised microcode ROM: a code table keyed by µPC plus the
// three-tier decode dispatch table, both built once from isa.Set and
// thereafter read-only (spec.md §5).
type ROM struct {
	code       map[int]Microinstruction
	decode     map[decodeKey]int
	mpcCounter int
}

// BuildROM constructs the ROM from the ISA table. Safe to call more than
// once; callers typically keep a single shared instance (see SharedROM).
func BuildROM() *ROM {
	rom := &ROM{
		code:       map[int]Microinstruction{},
		decode:     map[decodeKey]int{},
		mpcCounter: 100,
	}
	rom.fillFetch()
	rom.fillFromISA()
	return rom
}

func (r *ROM) fillFetch() {
	r.code[mpcFetch] = Microinstruction{
		Comment: "FETCH", LatchIR: true, LatchPC: PCInc, NextMPC: mpcDispatch, HasNext: true,
	}
	// µPC 1000 (decode dispatch) is intercepted directly by the control
	// unit's phase 1; its ROM entry is a placeholder for listings/debugging.
	// µPC 9999 is the terminal halt entry that phase 2 acts on.
	r.code[mpcDispatch] = Microinstruction{Comment: "DECODE DISPATCH"}
	r.code[mpcHalt] = Microinstruction{Comment: "HALT", Halt: true}
}

func (r *ROM) alloc(count int) int {
	addr := r.mpcCounter
	r.mpcCounter += count
	return addr
}

func (r *ROM) registerDecode(opcode byte, funct3, funct7 int, mpc int) {
	r.decode[decodeKey{opcode, funct3, funct7}] = mpc
}

// Lookup implements the three-tier decode dispatch: exact match, then
// funct7-wildcard, then funct3-and-funct7-wildcard.
func (r *ROM) Lookup(opcode byte, funct3, funct7 int) (int, error) {
	if mpc, ok := r.decode[decodeKey{opcode, funct3, funct7}]; ok {
		return mpc, nil
	}
	if mpc, ok := r.decode[decodeKey{opcode, funct3, isa.None}]; ok {
		return mpc, nil
	}
	if mpc, ok := r.decode[decodeKey{opcode, isa.None, isa.None}]; ok {
		return mpc, nil
	}
	return 0, fmt.Errorf("%w: opcode=0b%07b (0x%02X) funct3=%s funct7=%s",
		ErrUnknownDecode, opcode, opcode, fieldOrDash(funct3, 3), fieldOrDash(funct7, 7))
}

func fieldOrDash(v, bits int) string {
	if v == isa.None {
		return "-"
	}
	return fmt.Sprintf("0b%0*b", bits, v)
}

// Get returns the microinstruction at mpc, or the terminal halt entry for
// any address the ROM never filled (spec.md §3 invariant i).
func (r *ROM) Get(mpc int) Microinstruction {
	if mi, ok := r.code[mpc]; ok {
		return mi
	}
	return Microinstruction{Comment: "HALT (unmapped)", Halt: true}
}

// fillFromISA allocates a fresh µPC sequence for every mnemonic, per the
// per-kind layouts in spec.md §4.F. Mnemonics are visited in sorted
// order rather than map iteration order so that µPC assignment — and
// therefore the MPC field in every trace log — is identical from one
// process run to the next (spec.md §5's determinism requirement).
func (r *ROM) fillFromISA() {
	names := make([]string, 0, len(isa.Set))
	for name := range isa.Set {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := isa.Set[name]
		switch info.Format {
		case isa.FormatR:
			r.fillR(name, info)
		case isa.FormatI:
			r.fillI(name, info)
		case isa.FormatS:
			r.fillS(name, info)
		case isa.FormatB:
			r.fillB(name, info)
		case isa.FormatU:
			r.fillU(info)
		case isa.FormatJ:
			r.fillJ(info)
		case isa.FormatSYS:
			r.registerDecode(info.Opcode, isa.None, isa.None, mpcHalt)
		}
	}
}

var aluOpByMnemonic = map[string]ALUOp{
	"add": ALUAdd, "sub": ALUSub, "and": ALUAnd, "or": ALUOr, "xor": ALUXor,
	"mul": ALUMul, "div": ALUDiv, "lsl": ALULsl, "lsr": ALULsr,
	"addi": ALUAdd, "andi": ALUAnd, "ori": ALUOr,
}

func (r *ROM) fillR(name string, info isa.Info) {
	addr := r.alloc(2)
	r.registerDecode(info.Opcode, info.Funct3, info.Funct7, addr)
	r.code[addr] = Microinstruction{
		Comment: "R-" + name, LatchALU: aluOpByMnemonic[name], SetFlags: true, NextMPC: addr + 1, HasNext: true,
	}
	r.code[addr+1] = Microinstruction{Comment: "WB", LatchReg: RegRD, NextMPC: mpcFetch, HasNext: true}
}

func (r *ROM) fillI(name string, info isa.Info) {
	switch name {
	case "lw":
		addr := r.alloc(2)
		r.registerDecode(info.Opcode, info.Funct3, isa.None, addr)
		r.code[addr] = Microinstruction{Comment: "I-LW addr", LatchALU: ALUAdd, NextMPC: addr + 1, HasNext: true}
		r.code[addr+1] = Microinstruction{Comment: "I-LW load", MemRead: true, NextMPC: mpcFetch, HasNext: true}

	case "lb":
		addr := r.alloc(2)
		r.registerDecode(info.Opcode, info.Funct3, isa.None, addr)
		r.code[addr] = Microinstruction{Comment: "I-LB addr", LatchALU: ALUAdd, NextMPC: addr + 1, HasNext: true}
		r.code[addr+1] = Microinstruction{Comment: "I-LB load", MemRead: true, NextMPC: mpcFetch, HasNext: true}

	case "jalr":
		addr := r.alloc(3)
		r.registerDecode(info.Opcode, info.Funct3, isa.None, addr)
		r.code[addr] = Microinstruction{Comment: "I-JALR link", LatchReg: RegRDPC, NextMPC: addr + 1, HasNext: true}
		r.code[addr+1] = Microinstruction{Comment: "I-JALR addr", LatchALU: ALUAdd, NextMPC: addr + 2, HasNext: true}
		r.code[addr+2] = Microinstruction{Comment: "I-JALR jump", LatchPC: PCAlu, NextMPC: mpcFetch, HasNext: true}

	default: // addi, andi, ori
		addr := r.alloc(2)
		r.registerDecode(info.Opcode, info.Funct3, isa.None, addr)
		r.code[addr] = Microinstruction{
			Comment: "I-" + name, LatchALU: aluOpByMnemonic[name], SetFlags: true, NextMPC: addr + 1, HasNext: true,
		}
		r.code[addr+1] = Microinstruction{Comment: "WB", LatchReg: RegRD, NextMPC: mpcFetch, HasNext: true}
	}
}

func (r *ROM) fillS(name string, info isa.Info) {
	addr := r.alloc(2)
	r.registerDecode(info.Opcode, info.Funct3, isa.None, addr)
	r.code[addr] = Microinstruction{Comment: "S-" + name + " addr", LatchALU: ALUAdd, NextMPC: addr + 1, HasNext: true}
	r.code[addr+1] = Microinstruction{
		Comment: "S-" + name + " store", MemWrite: true, StoreByte: name == "sb", NextMPC: mpcFetch, HasNext: true,
	}
}

var branchCondByMnemonic = map[string]JumpCond{
	"beq": JumpZ, "bne": JumpNZ, "bgt": JumpGT, "ble": JumpLE,
}

func (r *ROM) fillB(name string, info isa.Info) {
	addr := r.alloc(3)
	r.registerDecode(info.Opcode, info.Funct3, isa.None, addr)
	r.code[addr] = Microinstruction{Comment: "B-" + name + " cmp", LatchALU: ALUSub, SetFlags: true, NextMPC: addr + 1, HasNext: true}
	r.code[addr+1] = Microinstruction{Comment: "B-" + name + " offset", LatchALU: ALUBranchOffset, NextMPC: addr + 2, HasNext: true}
	r.code[addr+2] = Microinstruction{
		Comment: "B-cond", LatchPC: PCBranch, JumpIf: branchCondByMnemonic[name], NextMPC: mpcFetch, HasNext: true,
	}
}

func (r *ROM) fillU(info isa.Info) {
	addr := r.alloc(2)
	r.registerDecode(info.Opcode, isa.None, isa.None, addr)
	r.code[addr] = Microinstruction{Comment: "U-LUI", LatchALU: ALULui, NextMPC: addr + 1, HasNext: true}
	r.code[addr+1] = Microinstruction{Comment: "U-LUI write", LatchReg: RegRD, NextMPC: mpcFetch, HasNext: true}
}

func (r *ROM) fillJ(info isa.Info) {
	addr := r.alloc(2)
	r.registerDecode(info.Opcode, isa.None, isa.None, addr)
	r.code[addr] = Microinstruction{
		Comment: "J-JAL link", LatchALU: ALUJalLink, LatchReg: RegRD, NextMPC: addr + 1, HasNext: true,
	}
	r.code[addr+1] = Microinstruction{
		Comment: "J-JAL jump", LatchALU: ALUJalOffset, LatchPC: PCAlu, NextMPC: mpcFetch, HasNext: true,
	}
}
