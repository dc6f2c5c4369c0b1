// Command runner loads a RISCroll text/data image pair, executes it to
// completion (or to the step cap), and optionally writes a trace log
// (--trace-out) and a final snapshot (--snapshot-out).
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"riscroll/mach"
	"riscroll/snapshot"
	"riscroll/trace"
)

const stepCap = 100_000

func main() {
	var inputMode string
	var stepLimit int
	var traceOut string
	var snapshotOut string

	rootCmd := &cobra.Command{
		Use:   "runner <text.bin> <data.bin> [input-file]",
		Short: "Execute a RISCroll binary image",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputFile := ""
			if len(args) == 3 {
				inputFile = args[2]
			}
			return run(args[0], args[1], inputFile, inputMode, stepLimit, traceOut, snapshotOut)
		},
	}
	rootCmd.Flags().StringVar(&inputMode, "input-mode", "bytes", "input file format: bytes or words")
	rootCmd.Flags().IntVar(&stepLimit, "step-cap", stepCap, "maximum ticks before aborting")
	rootCmd.Flags().StringVar(&traceOut, "trace-out", "", "trace log path (empty disables tracing)")
	rootCmd.Flags().StringVar(&snapshotOut, "snapshot-out", "", "final snapshot path (empty disables the snapshot)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(textPath, dataPath, inputPath, inputMode string, stepLimit int, traceOut, snapshotOut string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runner crashed: %v", r)
		}
	}()

	textImage, err := os.ReadFile(textPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", textPath, err)
	}
	if len(textImage) < 4 {
		return fmt.Errorf("%s: text image shorter than the 4-byte entry header", textPath)
	}
	entry := binary.LittleEndian.Uint32(textImage[:4])
	textBody := textImage[4:]

	dataImage, err := os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dataPath, err)
	}

	cpu := mach.New(textBody, dataImage, entry)

	if inputPath != "" {
		raw, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", inputPath, err)
		}
		switch inputMode {
		case "bytes":
			cpu.LoadInputBytes(raw)
		case "words":
			words, err := parseWordInput(string(raw))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", inputPath, err)
			}
			cpu.LoadInputWords(words)
		default:
			return fmt.Errorf("unknown --input-mode %q (want bytes or words)", inputMode)
		}
	}

	fmt.Println("==== MACHINE START ====")

	if traceOut != "" {
		f, err := os.Create(traceOut)
		if err != nil {
			return fmt.Errorf("creating trace log: %w", err)
		}
		defer f.Close()
		if runErr := trace.Run(cpu, stepLimit, trace.New(f)); runErr != nil {
			return fmt.Errorf("running: %w", runErr)
		}
	} else {
		if runErr := cpu.Run(stepLimit); runErr != nil {
			return fmt.Errorf("running: %w", runErr)
		}
	}

	fmt.Println("==== MACHINE HALTED ====")
	fmt.Println("Output buffer:")
	fmt.Println(cpu.OutputText())
	if words := wordOnlyOutput(cpu.Output); len(words) > 0 {
		fmt.Println("Output words:")
		for _, w := range words {
			fmt.Println(w)
		}
	}

	if snapshotOut != "" {
		f, err := os.Create(snapshotOut)
		if err != nil {
			return fmt.Errorf("creating snapshot: %w", err)
		}
		defer f.Close()
		if err := snapshot.Write(f, cpu, snapshot.DefaultRange); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}

	return nil
}

// wordOnlyOutput extracts the word-tagged events from a CPU's output
// buffer (e.g. the sort scenario's integer results), leaving char-tagged
// events to OutputText so the two renderers never double-print one event.
func wordOnlyOutput(events []mach.OutputEvent) []uint32 {
	var words []uint32
	for _, ev := range events {
		if !ev.Char {
			words = append(words, ev.Word)
		}
	}
	return words
}

// parseWordInput reads one decimal (or 0x/0b-prefixed) integer per
// line or comma-separated field, the format the sort scenario's input
// uses.
func parseWordInput(raw string) ([]uint32, error) {
	raw = strings.ReplaceAll(raw, "\n", ",")
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })

	words := make([]uint32, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseInt(f, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", f, err)
		}
		words = append(words, uint32(v))
	}
	return words, nil
}
