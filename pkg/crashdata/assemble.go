package crashdata

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blacktop/go-macho/types"

	"github.com/telemetrykit/crashsym/internal/utils"
	"github.com/telemetrykit/crashsym/pkg/arch"
	"github.com/telemetrykit/crashsym/pkg/selector"
	"github.com/telemetrykit/crashsym/pkg/snapshot"
)

// Assemble builds the complete crash record from a raw snapshot. It
// never fails: any missing or unresolvable input degrades to a sentinel
// field, and the result is always a well-formed record.
func Assemble(r *snapshot.CrashReport, cfg *Config) *CrashData {
	if cfg == nil {
		cfg = &Config{}
	}
	info := arch.Resolve(r)
	crashed := r.CrashedThread()

	cd := &CrashData{
		ReporterKey: cfg.ReporterKey,
		Headers:     buildHeaders(r, info, crashed, cfg),
	}

	// A handled exception contributes a synthetic pseudo-thread (id -1)
	// ahead of the real threads, holding the throw-site backtrace.
	if r.Exception != nil && len(r.Exception.Frames) > 0 {
		t := &Thread{ID: -1, Frames: make([]*Frame, 0, len(r.Exception.Frames))}
		for _, f := range r.Exception.Frames {
			t.Frames = append(t.Frames, formatFrame(r, f, info.LP64))
		}
		cd.Threads = append(cd.Threads, t)
	}

	for i := range r.Threads {
		src := &r.Threads[i]
		t := &Thread{ID: src.Number, Crashed: src.Crashed, Frames: make([]*Frame, 0, len(src.Frames))}
		for _, f := range src.Frames {
			t.Frames = append(t.Frames, formatFrame(r, f, info.LP64))
		}
		// Registers belong to the first frame of the crashed thread and
		// nowhere else.
		if src.Crashed && len(t.Frames) > 0 {
			t.Frames[0].Registers = formatRegisters(src.Registers, info)
		}
		cd.Threads = append(cd.Threads, t)
	}

	cd.Binaries = buildBinaries(r, info)
	return cd
}

func buildHeaders(r *snapshot.CrashReport, info arch.Info, crashed *snapshot.Thread, cfg *Config) *Headers {
	h := &Headers{
		ProcessName:           "???",
		ParentProcessName:     "???",
		ApplicationPath:       "???",
		ApplicationIdentifier: "???",
		ApplicationBuild:      "???",
		ExceptionType:         utils.Sentinel(exceptionType(r)),
		ExceptionCode:         utils.Sentinel(r.Signal.Code),
		ExceptionAddress:      FormatAddress(r.Signal.Address, info.LP64),
	}

	if p := r.Process; p != nil {
		h.ProcessName = utils.Sentinel(p.Name)
		h.ProcessID = p.ID
		h.ParentProcessName = utils.Sentinel(p.ParentName)
		h.ParentProcessID = p.ParentID
		if p.Path != "" {
			h.ApplicationPath = utils.AnonymizePath(p.Path)
		}
	}
	if a := r.Application; a != nil {
		h.ApplicationIdentifier = utils.Sentinel(a.Identifier)
		h.ApplicationBuild = utils.Sentinel(a.Version)
	}
	if crashed != nil {
		h.CrashThread = crashed.Number
	}
	h.ExceptionReason = exceptionReason(r, info, crashed, cfg)
	return h
}

// exceptionType prefers the capture-time signal name; a handled
// exception reported without a signal supplies its own name instead.
func exceptionType(r *snapshot.CrashReport) string {
	if r.Signal.Name == "" && r.Exception != nil {
		return r.Exception.Name
	}
	return r.Signal.Name
}

// exceptionReason resolves the report reason by an ordered strategy
// list, first success wins: the captured exception's own reason, then a
// selector recovered from the crashed thread's argument registers, then
// nothing.
func exceptionReason(r *snapshot.CrashReport, info arch.Info, crashed *snapshot.Thread, cfg *Config) string {
	if r.Exception != nil {
		return r.Exception.Reason
	}
	if crashed == nil || cfg.Table == nil || cfg.Memory == nil {
		return ""
	}
	sel, err := selector.RecoverFromRegisters(cfg.Table, cfg.Memory, r, info.LP64, r.System.OperatingSystem.Simulator())
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Selector name found in current argument registers: %s", sel)
}

func formatRegisters(regs []snapshot.Register, info arch.Info) []Register {
	out := make([]Register, 0, len(regs))
	for _, reg := range regs {
		name := reg.Name
		// ARM reports r12 under its intra-procedure-call alias.
		if info.CPU == types.CPUArm && name == "r12" {
			name = "ip"
		}
		out = append(out, Register{
			Name:  fmt.Sprintf("%6s", name),
			Value: FormatAddress(reg.Value, info.LP64),
		})
	}
	return out
}

func buildBinaries(r *snapshot.CrashReport, info arch.Info) []*Binary {
	images := make([]snapshot.BinaryImage, len(r.Images))
	copy(images, r.Images)
	sort.Slice(images, func(i, j int) bool {
		return images[i].Base < images[j].Base
	})

	procPath := r.ProcessPath()
	out := make([]*Binary, 0, len(images))
	for _, img := range images {
		designator := " "
		if Classify(img.Path, procPath) != ImageOther {
			designator = "+"
		}
		name := "???"
		if img.Path != "" {
			name = filepath.Base(img.Path)
		}
		end := img.Base
		if img.Size > 0 {
			end = img.Base + img.Size - 1
		}
		out = append(out, &Binary{
			UUID: normalizeUUID(img.UUID),
			// The resolved report architecture is applied to every
			// image; per-image slices are not reconsidered here.
			CPUType:      uint64(info.CPU),
			CPUSubtype:   uint64(info.Subtype),
			StartAddress: FormatAddress(img.Base, info.LP64),
			EndAddress:   FormatAddress(end, info.LP64),
			Name:         designator + name,
			Path:         img.Path,
		})
	}
	return out
}

func normalizeUUID(u string) string {
	if u == "" {
		return "???"
	}
	return strings.ToLower(strings.ReplaceAll(u, "-", ""))
}
