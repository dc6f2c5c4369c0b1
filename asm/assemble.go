package asm

import (
	"fmt"
	"io"
	"os"
)

// stderrWriter is where lenience warnings go (see resolve()'s low()/high()
// undefined-label path in spec.md §7).
var stderrWriter io.Writer = os.Stderr

// Program is the fully assembled output: the two binary images plus their
// human-readable listings, ready for EmitText/EmitData or direct loading
// into a CPU.
type Program struct {
	Entry       uint32
	TextWords   []uint32
	DataBytes   []byte
	TextListing []string
	DataListing []string
}

// Assemble runs the full pipeline: macro expansion, first pass, second
// pass, and the byte-image layout.
func Assemble(source string) (*Program, error) {
	lines := splitLines(source)

	expanded, err := ExpandMacros(lines)
	if err != nil {
		return nil, err
	}

	labels, dataItems, textItems, err := FirstPass(expanded)
	if err != nil {
		return nil, err
	}

	entry := uint32(0)
	if len(textItems) > 0 {
		entry = textItems[0].Addr
	}

	textWords := make([]uint32, len(textItems))
	textListing := make([]string, len(textItems))
	for i, item := range textItems {
		word, err := EncodeInstruction(item.Source, labels, item.Addr)
		if err != nil {
			return nil, fmt.Errorf("text item at 0x%08X (%q): %w", item.Addr, item.Source, err)
		}
		textWords[i] = word
		textListing[i] = logLine(item.Addr, word, item.Source)
	}

	dataBytes, dataListing, err := layoutData(dataItems, labels)
	if err != nil {
		return nil, err
	}

	return &Program{
		Entry:       entry,
		TextWords:   textWords,
		DataBytes:   dataBytes,
		TextListing: textListing,
		DataListing: dataListing,
	}, nil
}

func splitLines(source string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, source[start:i])
			start = i + 1
		}
	}
	if start < len(source) {
		lines = append(lines, source[start:])
	}
	return lines
}

// layoutData resolves every .word operand against the full label table
// and lays both kinds of item out into one contiguous byte buffer sized
// to the data section's extent, zero-filling any .org gaps.
func layoutData(items []DataItem, labels map[string]uint32) ([]byte, []string, error) {
	var extent uint32
	for _, item := range items {
		length := uint32(len(item.Bytes))
		if item.WordOperand != "" {
			length = 4
		}
		if item.Addr+length > extent {
			extent = item.Addr + length
		}
	}

	buf := make([]byte, extent)
	var listing []string

	for _, item := range items {
		if item.WordOperand != "" {
			word, err := ResolveDataWord(item.WordOperand, labels)
			if err != nil {
				return nil, nil, fmt.Errorf("data item at 0x%08X (%q): %w", item.Addr, item.Source, err)
			}
			buf[item.Addr] = byte(word)
			buf[item.Addr+1] = byte(word >> 8)
			buf[item.Addr+2] = byte(word >> 16)
			buf[item.Addr+3] = byte(word >> 24)
			listing = append(listing, logLine(item.Addr, word, item.Source))
			continue
		}

		copy(buf[item.Addr:], item.Bytes)
		for i, b := range item.Bytes {
			addr := item.Addr + uint32(i)
			listing = append(listing, logLine(addr, uint32(b), fmt.Sprintf(".byte %d", b)))
		}
	}

	return buf, listing, nil
}

// logLine renders one assembler listing line in the format spec.md §6
// mandates for both .text.log and .data.log: a decoded byte or
// instruction word gets its own line, hex and binary side by side.
func logLine(addr, word uint32, source string) string {
	return fmt.Sprintf("%08X(%d) - %08X - %032b - %s", addr, addr, word, word, source)
}
