package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// TextItem is one instruction line, address-stamped, stored verbatim
// for the second pass.
type TextItem struct {
	Addr   uint32
	Source string
}

// DataItem is one ".word"/".byte" directive. Bytes is already resolved
// for ".byte" (escape decoding needs no label table); WordOperand is
// left for the caller to resolve once the whole label table is known,
// since a ".word" operand may be a forward-referenced label.
type DataItem struct {
	Addr        uint32
	Source      string
	Bytes       []byte // set for .byte; nil for .word
	WordOperand string // set for .word; empty for .byte
}

// FirstPass strips comments, tracks .org/.text/.data, builds the label
// table, and splits the remaining lines into ordered data and text item
// lists. See spec.md §4.C.
func FirstPass(lines []string) (labels map[string]uint32, data []DataItem, text []TextItem, err error) {
	labels = map[string]uint32{}
	section := "text"
	loc := map[string]uint32{"text": 0, "data": 0}

	for lineNo, raw := range lines {
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if rest, ok := directiveArg(line, ".org"); ok {
			addr, perr := parseInt(rest)
			if perr != nil {
				return nil, nil, nil, fmt.Errorf("%w: line %d: bad .org operand %q: %v", ErrFormat, lineNo+1, rest, perr)
			}
			loc[section] = uint32(addr)
			continue
		}
		if strings.TrimSpace(line) == ".text" {
			section = "text"
			continue
		}
		if strings.TrimSpace(line) == ".data" {
			section = "data"
			continue
		}

		// LABEL: possibly followed by more content on the same line.
		if colon := strings.Index(line, ":"); colon >= 0 && isLabelDef(line[:colon]) {
			label := strings.TrimSpace(line[:colon])
			labels[label] = loc[section]
			line = strings.TrimSpace(line[colon+1:])
			if line == "" {
				continue
			}
		}

		if section == "data" {
			item, consumed, derr := parseDataDirective(line, loc["data"])
			if derr != nil {
				return nil, nil, nil, fmt.Errorf("line %d: %w", lineNo+1, derr)
			}
			data = append(data, item)
			loc["data"] += consumed
			continue
		}

		text = append(text, TextItem{Addr: loc["text"], Source: line})
		loc["text"] += 4
	}

	return labels, data, text, nil
}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

func directiveArg(line, directive string) (string, bool) {
	if !strings.HasPrefix(line, directive) {
		return "", false
	}
	rest := strings.TrimSpace(line[len(directive):])
	return rest, rest != ""
}

// isLabelDef guards against ":" appearing inside something that isn't a
// bare label token (e.g. a string literal argument).
func isLabelDef(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	for _, r := range candidate {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func parseDataDirective(line string, addr uint32) (DataItem, uint32, error) {
	switch {
	case strings.HasPrefix(line, ".word"):
		operand := strings.TrimSpace(strings.TrimPrefix(line, ".word"))
		if operand == "" {
			return DataItem{}, 0, fmt.Errorf("%w: .word requires an operand", ErrFormat)
		}
		return DataItem{Addr: addr, Source: line, WordOperand: operand}, 4, nil

	case strings.HasPrefix(line, ".byte"):
		operand := strings.TrimSpace(strings.TrimPrefix(line, ".byte"))
		s, err := quotedString(operand)
		if err != nil {
			return DataItem{}, 0, err
		}
		decoded, err := decodeEscapes(s)
		if err != nil {
			return DataItem{}, 0, err
		}
		return DataItem{Addr: addr, Source: line, Bytes: []byte(decoded)}, uint32(len(decoded)), nil

	default:
		return DataItem{}, 0, fmt.Errorf("%w: unsupported data directive %q", ErrFormat, line)
	}
}

func quotedString(operand string) (string, error) {
	if len(operand) < 2 || operand[0] != '"' || operand[len(operand)-1] != '"' {
		return "", fmt.Errorf("%w: .byte operand must be a quoted string, got %q", ErrFormat, operand)
	}
	return operand[1 : len(operand)-1], nil
}

// decodeEscapes handles the standard escape sequences named in spec.md
// §4.C: \n, \t, \0, \xNN, plus \r, \\, \" for completeness.
func decodeEscapes(s string) (string, error) {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			out.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("%w: dangling escape at end of string", ErrFormat)
		}
		i++
		switch s[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '0':
			out.WriteByte(0)
		case '\\':
			out.WriteByte('\\')
		case '"':
			out.WriteByte('"')
		case 'x':
			if i+2 >= len(s) {
				return "", fmt.Errorf("%w: incomplete \\xNN escape", ErrFormat)
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("%w: bad \\xNN escape %q: %v", ErrFormat, s[i+1:i+3], err)
			}
			out.WriteByte(byte(v))
			i += 2
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c", ErrFormat, s[i])
		}
	}
	return out.String(), nil
}

// parseInt implements the "C-style base prefixes" literal form resolve()
// relies on: base 0 makes strconv auto-detect 0x/0o/0b/leading-zero-octal.
func parseInt(token string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(token), 0, 64)
}
