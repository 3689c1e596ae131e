// Command goba is a headless front end for the GBA core: load a BIOS and
// ROM image, run for a cycle budget or single-step, and inspect registers.
// It deliberately has no windowing, no video output and no audio output —
// those are outside the core's scope; this is a driver for the engine, not
// a player.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"goba/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goba",
		Short: "goba — a Game Boy Advance CPU/bus/DMA core driver",
	}

	root.AddCommand(newRunCmd(), newStepCmd(), newRegsCmd())
	return root
}

// sharedFlags are the load/config flags every subcommand needs.
type sharedFlags struct {
	bios         string
	rom          string
	skipBIOSBoot bool
}

func addSharedFlags(cmd *cobra.Command, f *sharedFlags) {
	cmd.Flags().StringVar(&f.bios, "bios", "", "path to a BIOS image (required)")
	cmd.Flags().StringVar(&f.rom, "rom", "", "path to a Game Pak ROM image (required)")
	cmd.Flags().BoolVar(&f.skipBIOSBoot, "skip-bios", false, "start execution at the cartridge entry point instead of the BIOS reset vector")
	cmd.MarkFlagRequired("bios")
	cmd.MarkFlagRequired("rom")
}

func (f *sharedFlags) load() (*core.Core, error) {
	bios, err := os.ReadFile(f.bios)
	if err != nil {
		return nil, fmt.Errorf("reading bios image: %w", err)
	}
	rom, err := os.ReadFile(f.rom)
	if err != nil {
		return nil, fmt.Errorf("reading rom image: %w", err)
	}
	c := core.New(bios, rom, core.Config{SkipBIOSBoot: f.skipBIOSBoot})
	c.Reset()
	return c, nil
}

func newRunCmd() *cobra.Command {
	flags := &sharedFlags{}
	var cycles int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the core for a fixed number of CPU cycles and print a register dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load()
			if err != nil {
				return err
			}
			consumed := c.RunFor(cycles)
			fmt.Printf("ran %d cycles (requested %d)\n\n", consumed, cycles)
			printRegs(cmd, c)
			return nil
		},
	}
	addSharedFlags(cmd, flags)
	cmd.Flags().IntVar(&cycles, "cycles", 1_000_000, "number of CPU cycles to run before stopping")
	return cmd
}

func newStepCmd() *cobra.Command {
	flags := &sharedFlags{}
	var count int
	var trace bool

	cmd := &cobra.Command{
		Use:   "step",
		Short: "single-step the core a fixed number of instructions, optionally tracing PC each step",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load()
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				if trace {
					pc, _ := c.ReadRegister(15)
					fmt.Fprintf(cmd.OutOrStdout(), "%6d: pc=%08X cpsr=%08X\n", i, pc, c.ReadCPSR())
				}
				c.RunFor(1)
			}
			fmt.Println()
			printRegs(cmd, c)
			return nil
		},
	}
	addSharedFlags(cmd, flags)
	cmd.Flags().IntVar(&count, "count", 1, "number of instructions to execute")
	cmd.Flags().BoolVar(&trace, "trace", false, "print pc and cpsr before each step")
	return cmd
}

func newRegsCmd() *cobra.Command {
	flags := &sharedFlags{}
	var cycles int

	cmd := &cobra.Command{
		Use:   "regs",
		Short: "load, run for a cycle budget, and print only the register dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load()
			if err != nil {
				return err
			}
			if cycles > 0 {
				c.RunFor(cycles)
			}
			printRegs(cmd, c)
			return nil
		},
	}
	addSharedFlags(cmd, flags)
	cmd.Flags().IntVar(&cycles, "cycles", 0, "optional number of cycles to run before dumping registers")
	return cmd
}

// printRegs dumps r0-r15 and CPSR, wrapping to the terminal width when
// stdout is a real terminal and falling back to an 80-column layout under
// a pipe or redirect.
func printRegs(cmd *cobra.Command, c *core.Core) {
	out := cmd.OutOrStdout()
	width := 80
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	perLine := width / 14
	if perLine < 1 {
		perLine = 1
	}

	for i := uint8(0); i < 16; i++ {
		v, _ := c.ReadRegister(i)
		fmt.Fprintf(out, "r%-2d=%08X ", i, v)
		if (i+1)%uint8(perLine) == 0 {
			fmt.Fprintln(out)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "cpsr=%08X\n", c.ReadCPSR())
}
