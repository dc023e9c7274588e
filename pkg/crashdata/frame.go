package crashdata

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"github.com/telemetrykit/crashsym/pkg/snapshot"
)

// FormatAddress renders an address as fixed-width zero-padded hex: 16
// digits on LP64 targets, 8 otherwise. On 32-bit targets the upper half
// is masked off so the width holds even for garbage register values.
func FormatAddress(addr uint64, lp64 bool) string {
	if lp64 {
		return fmt.Sprintf("0x%016x", addr)
	}
	return fmt.Sprintf("0x%08x", uint32(addr))
}

// formatFrame resolves one program counter to its owning image and
// renders the frame. System frames that carry symbol info get a
// "symbol + offset" string; app frames (and frames with no symbol) get
// "0x<base> + <offset>" so the server can resolve them against dSYMs.
func formatFrame(r *snapshot.CrashReport, f snapshot.Frame, lp64 bool) *Frame {
	var (
		base      uint64
		imagePath string
		imageName = "???"
	)
	if img := r.ImageForAddress(f.PC); img != nil {
		base = img.Base
		imagePath = img.Path
		imageName = filepath.Base(img.Path)
	}

	var symbol string
	if f.Symbol != nil && Classify(imagePath, r.ProcessPath()) == ImageOther {
		name := f.Symbol.Name
		switch r.System.OperatingSystem {
		case snapshot.OSMacOSX, snapshot.OSiPhoneOS, snapshot.OSiPhoneSimulator, snapshot.OSAppleTVOS:
			name = strings.TrimPrefix(name, "_")
		default:
			log.Warnf("symbol prefix rules are unknown for OS family %s", r.System.OperatingSystem)
		}
		symbol = fmt.Sprintf("%s + %d", name, int64(f.PC-f.Symbol.Start))
	} else {
		symbol = fmt.Sprintf("0x%x + %d", base, f.PC-base)
	}

	return &Frame{
		Address: FormatAddress(f.PC, lp64),
		Symbol:  symbol,
		Image:   imageName,
	}
}
