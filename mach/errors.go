package mach

import "errors"

var (
	// ErrUnknownDecode is raised when (opcode, funct3, funct7) has no
	// entry in the microcode ROM's decode table, at any tier.
	ErrUnknownDecode = errors.New("unsupported instruction encoding")
	// ErrMemoryOutOfRange is raised by a load/store outside the 64 KiB window.
	ErrMemoryOutOfRange = errors.New("memory access out of range")
	// ErrStepCapExceeded is a step-cap trip, distinct from a CPU halt.
	ErrStepCapExceeded = errors.New("step cap exceeded")
)
