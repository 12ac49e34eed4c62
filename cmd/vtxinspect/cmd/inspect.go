/*
Copyright © 2026 vtxcore contributors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ironlatch/vtxcore/snapshot"
	"github.com/ironlatch/vtxcore/vcpu"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.json>",
	Short: "Decode and print a captured VMCS/interrupt-queue snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()

		snap, err := snapshot.Decode(f)
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("vCPU #%d\n", snap.VCPUIndex)

		if reason, ok := snap.ExitReason(); ok {
			fmt.Printf("  exit reason:        %s (%d)\n", exitReasonName(reason.Basic()), reason.Basic())
		}
		if info, ok := snap.ExitInterruptionInfo(); ok {
			printInterruptionInfo("  exit interruption:", info)
		}
		if info, ok := snap.IDTVectoringInfo(); ok && info.Valid {
			printInterruptionInfo("  idt-vectoring:     ", info)
		}
		if instr, ok := snap.ExitInstructionInfo(); ok {
			fmt.Printf("  instruction info:    scale=%d base_invalid=%v index_invalid=%v addr_size=%d\n",
				instr.Scaling, instr.BaseRegInvalid, instr.IndexRegInvalid, instr.AddressSize)
		}

		if len(snap.Pending) > 0 {
			bold.Println("  pending queue:")
			for i, p := range snap.Pending {
				fmt.Printf("    [%d] vector=%#02x type=%d valid=%v error_code_valid=%v error_code=%#x\n",
					i, p.Vector, p.Type, p.Valid, p.ErrorCodeValid, p.ErrorCode)
			}
		}

		return nil
	},
}

func printInterruptionInfo(label string, info vcpu.InterruptionInfo) {
	fmt.Printf("%s valid=%v vector=%#02x type=%d error_code_valid=%v\n",
		label, info.Valid, info.Vector, info.Type, info.ErrorCodeValid)
}

// exitReasonName gives a human name to the handful of basic exit
// reasons most worth recognizing at a glance; anything else is named
// "unknown" and identified by its number alone (Intel SDM Vol. 3C,
// Appendix C, is the full table).
func exitReasonName(basic uint16) string {
	switch basic {
	case 0:
		return "exception-or-nmi"
	case 1:
		return "external-interrupt"
	case 7:
		return "interrupt-window"
	case 10:
		return "cpuid"
	case 12:
		return "hlt"
	case 18:
		return "vmcall"
	case 28:
		return "cr-access"
	case 30:
		return "io-instruction"
	case 31:
		return "rdmsr"
	case 32:
		return "wrmsr"
	case 48:
		return "ept-violation"
	default:
		return "unknown"
	}
}
