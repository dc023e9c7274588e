package crashdata

import (
	"fmt"
	"strings"

	"github.com/blacktop/go-macho/types"

	"github.com/telemetrykit/crashsym/internal/utils"
	"github.com/telemetrykit/crashsym/pkg/arch"
)

// frameNameWidth is the display column the classic report layout pads
// image names to. Overlong or non-ASCII names skip padding.
const frameNameWidth = 35

// String renders the record in the classic textual report layout.
// Consumers requiring textual parity parse this; the structured fields
// remain authoritative.
func (cd *CrashData) String() string {
	var out strings.Builder
	h := cd.Headers

	if cd.ReporterKey != "" {
		fmt.Fprintf(&out, "Incident Identifier: %s\n", cd.ReporterKey)
	}
	fmt.Fprintf(&out,
		"Process:         %s [%d]\n"+
			"Path:            %s\n"+
			"Identifier:      %s\n"+
			"Version:         %s\n"+
			"Parent Process:  %s [%d]\n\n"+
			"Exception Type:  %s\n"+
			"Exception Codes: %s at %s\n"+
			"Crashed Thread:  %d\n\n",
		h.ProcessName, h.ProcessID,
		h.ApplicationPath,
		h.ApplicationIdentifier,
		h.ApplicationBuild,
		h.ParentProcessName, h.ParentProcessID,
		h.ExceptionType,
		h.ExceptionCode, h.ExceptionAddress,
		h.CrashThread,
	)
	if h.ExceptionReason != "" {
		fmt.Fprintf(&out, "Application Specific Information:\n%s\n\n", h.ExceptionReason)
	}

	for _, t := range cd.Threads {
		switch {
		case t.ID == -1:
			out.WriteString("Last Exception Backtrace:\n")
		case t.Crashed:
			fmt.Fprintf(&out, "Thread %d Crashed:\n", t.ID)
		default:
			fmt.Fprintf(&out, "Thread %d:\n", t.ID)
		}
		for i, f := range t.Frames {
			fmt.Fprintf(&out, "%-4d%s %s %s\n", i, utils.PadRight(f.Image, frameNameWidth), f.Address, f.Symbol)
		}
		out.WriteString("\n")
		if t.Crashed && len(t.Frames) > 0 && len(t.Frames[0].Registers) > 0 {
			fmt.Fprintf(&out, "Thread %d crashed with Thread State:\n", t.ID)
			for i, reg := range t.Frames[0].Registers {
				fmt.Fprintf(&out, "%s: %s ", reg.Name, reg.Value)
				if (i+1)%4 == 0 {
					out.WriteString("\n")
				}
			}
			if len(t.Frames[0].Registers)%4 != 0 {
				out.WriteString("\n")
			}
			out.WriteString("\n")
		}
	}

	out.WriteString("Binary Images:\n")
	for _, b := range cd.Binaries {
		name := arch.NameFor(types.CPU(b.CPUType), types.CPUSubtype(b.CPUSubtype))
		fmt.Fprintf(&out, "%s - %s %s %s <%s> %s\n",
			b.StartAddress, b.EndAddress, b.Name, name, b.UUID, b.Path)
	}
	return out.String()
}
