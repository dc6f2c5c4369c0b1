// Command translator assembles a RISCroll source file into the two
// binary images and debug listings the execution engine consumes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"riscroll/asm"
)

func main() {
	var outPrefix string

	rootCmd := &cobra.Command{
		Use:   "translator <source.asm> [out-prefix]",
		Short: "Assemble a RISCroll source file into .text.bin/.data.bin/.text.log/.data.log",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				outPrefix = args[1]
			}
			return run(args[0], outPrefix)
		},
	}
	rootCmd.Flags().StringVar(&outPrefix, "out", "", "output path prefix (defaults to the source path without its extension)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(sourcePath, outPrefix string) error {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	if outPrefix == "" {
		outPrefix = trimExt(sourcePath)
	}

	prog, err := asm.Assemble(string(src))
	if err != nil {
		return fmt.Errorf("assembling %s: %w", sourcePath, err)
	}

	if err := asm.EmitText(prog, outPrefix); err != nil {
		return fmt.Errorf("writing text image: %w", err)
	}
	if err := asm.EmitData(prog, outPrefix); err != nil {
		return fmt.Errorf("writing data image: %w", err)
	}

	fmt.Printf("wrote %s.text.bin, %s.data.bin, %s.text.log, %s.data.log\n",
		outPrefix, outPrefix, outPrefix, outPrefix)
	return nil
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
