package asm

import (
	"fmt"
	"regexp"
	"strings"
)

// macroDef is a recognised ".macro NAME arg1 arg2 ... .endmacro" block.
type macroDef struct {
	name   string
	params []string
	body   []string
}

var macroRefPattern = regexp.MustCompile(`\\([A-Za-z_][A-Za-z0-9_]*)`)

// ExpandMacros strips ".macro"/".endmacro" blocks out of lines and
// substitutes every call to a recognised macro with its body, binding
// "\name" tokens positionally to call-site arguments. Macros may call
// earlier-defined macros, so expansion iterates to a fixpoint.
func ExpandMacros(lines []string) ([]string, error) {
	defs := map[string]*macroDef{}
	var rest []string

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, ".macro") {
			fields := strings.Fields(trimmed)
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: %q", ErrMacroSyntax, trimmed)
			}
			name := fields[1]
			params := make([]string, len(fields)-2)
			for j, p := range fields[2:] {
				params[j] = strings.TrimSuffix(p, ",")
			}

			var body []string
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) != ".endmacro" {
				body = append(body, lines[i])
				i++
			}
			if i >= len(lines) {
				return nil, fmt.Errorf("%w: .macro %s missing .endmacro", ErrMacroSyntax, name)
			}
			if err := checkMacroRefs(name, params, body); err != nil {
				return nil, err
			}
			defs[name] = &macroDef{name: name, params: params, body: body}
			i++
			continue
		}
		rest = append(rest, lines[i])
		i++
	}

	for {
		out, changed, err := expandOnePass(rest, defs)
		if err != nil {
			return nil, err
		}
		rest = out
		if !changed {
			break
		}
	}
	return rest, nil
}

func checkMacroRefs(name string, params, body []string) error {
	allowed := make(map[string]bool, len(params))
	for _, p := range params {
		allowed[p] = true
	}
	for _, line := range body {
		for _, m := range macroRefPattern.FindAllStringSubmatch(line, -1) {
			if !allowed[m[1]] {
				return fmt.Errorf("%w: macro %s references undefined \\%s", ErrMacroArg, name, m[1])
			}
		}
	}
	return nil
}

func expandOnePass(lines []string, defs map[string]*macroDef) ([]string, bool, error) {
	var out []string
	changed := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(stripComment(line))
		fields := strings.Fields(trimmed)
		if len(fields) == 0 {
			out = append(out, line)
			continue
		}

		def, ok := defs[fields[0]]
		if !ok {
			out = append(out, line)
			continue
		}

		args := fields[1:]
		if len(args) != len(def.params) {
			return nil, false, fmt.Errorf("%w: macro %s expects %d argument(s), got %d", ErrMacroArity, def.name, len(def.params), len(args))
		}

		sub := make(map[string]string, len(def.params))
		for idx, p := range def.params {
			sub[p] = strings.TrimSuffix(args[idx], ",")
		}

		for _, bodyLine := range def.body {
			expanded := macroRefPattern.ReplaceAllStringFunc(bodyLine, func(tok string) string {
				name := tok[1:]
				if v, ok := sub[name]; ok {
					return v
				}
				return tok
			})
			out = append(out, expanded)
		}
		changed = true
	}

	return out, changed, nil
}
