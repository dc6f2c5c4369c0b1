package isa

import "errors"

var (
	// ErrUnknownMnemonic is returned by Lookup for a mnemonic not in Set.
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	// ErrUnknownRegister is returned by ResolveRegister for an unrecognised name.
	ErrUnknownRegister = errors.New("unknown register")
)
