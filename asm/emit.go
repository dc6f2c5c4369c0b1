package asm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// EmitText writes "<outPrefix>.text.bin" (4-byte little-endian entry
// header followed by the concatenated instruction words) and
// "<outPrefix>.text.log" (one line per instruction).
func EmitText(p *Program, outPrefix string) error {
	f, err := os.Create(outPrefix + ".text.bin")
	if err != nil {
		return fmt.Errorf("creating text image: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], p.Entry)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing entry header: %w", err)
	}
	for _, word := range p.TextWords {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], word)
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("writing instruction word: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing text image: %w", err)
	}

	return writeListing(outPrefix+".text.log", p.TextListing)
}

// EmitData writes "<outPrefix>.data.bin" (raw bytes, no header) and
// "<outPrefix>.data.log".
func EmitData(p *Program, outPrefix string) error {
	if err := os.WriteFile(outPrefix+".data.bin", p.DataBytes, 0o644); err != nil {
		return fmt.Errorf("writing data image: %w", err)
	}
	return writeListing(outPrefix+".data.log", p.DataListing)
}

func writeListing(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating listing %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("writing listing %s: %w", path, err)
		}
	}
	return w.Flush()
}
