// Command gbrun drives the lr35902 core headlessly against a ROM image,
// for quick smoke-testing outside of gbdbg's interactive TUI. Like gbdbg,
// it is development tooling outside the core's scope.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"lr35902/cpu"
	"lr35902/interrupt"
	"lr35902/mem"
	"lr35902/timer"
)

func main() {
	var maxCycles int
	var loadAddr uint16
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "gbrun <rom-file>",
		Short: "Run a ROM image against the lr35902 microcycle core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading rom: %w", err)
			}

			table, err := cpu.NewTable()
			if err != nil {
				return fmt.Errorf("building instruction table: %w", err)
			}
			ram := mem.NewRam()
			ram.Load(data, loadAddr)
			ic := &interrupt.Controller{}
			tm := timer.New(ic)
			cp := cpu.New(ram, ic, table)

			if verbose {
				log.Printf("gbrun: loaded %d bytes at 0x%04X", len(data), loadAddr)
			}

			for i := 0; i < maxCycles; i++ {
				tm.Step()
				if err := cp.Step(); err != nil {
					return fmt.Errorf("cycle %d: %w", i, err)
				}
				if verbose && cp.AtFetch() {
					log.Printf("cycle %d: PC=0x%04X A=0x%02X F=0x%02X SP=0x%04X",
						i, cp.PC(), cp.Reg8(cpu.RegA), cp.Reg8(cpu.RegF), cp.SP())
				}
			}
			return nil
		},
	}

	rootCmd.Flags().IntVar(&maxCycles, "cycles", 1_000_000, "maximum machine cycles to execute")
	rootCmd.Flags().Uint16Var(&loadAddr, "load-addr", 0x0000, "address to load the ROM image at")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log state at every fetch boundary")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
