// Package arch resolves the processor architecture of a crash snapshot.
package arch

import (
	"github.com/blacktop/go-macho/types"

	"github.com/telemetrykit/crashsym/pkg/snapshot"
)

const abi64 = types.CPU(0x01000000)

// Info is the resolved (cpu family, subtype, word width) tuple applied to
// a whole report.
type Info struct {
	CPU     types.CPU
	Subtype types.CPUSubtype
	LP64    bool
}

// Resolve determines the report architecture. Two strategies are tried in
// order and the first success wins; this ordering is a contract:
//
//  1. the first binary image carrying a native Mach processor encoding
//     supplies the cpu type and subtype, with the word width taken from
//     the 64-bit ABI bit of the cpu type;
//  2. the legacy report-wide architecture enum, kept for older capture
//     formats that have no per-image processor metadata.
//
// Absence of any architecture info degrades to a 64-bit default; Resolve
// never fails.
func Resolve(r *snapshot.CrashReport) Info {
	for i := range r.Images {
		proc := r.Images[i].Processor
		if proc == nil || proc.Encoding != snapshot.EncodingMach {
			continue
		}
		cpu := types.CPU(proc.Type)
		return Info{
			CPU:     cpu,
			Subtype: types.CPUSubtype(proc.Subtype),
			LP64:    cpu&abi64 != 0,
		}
	}

	switch r.System.Architecture {
	case snapshot.ArchARMv6:
		return Info{CPU: types.CPUArm, Subtype: types.CPUSubtypeArmV6}
	case snapshot.ArchARMv7:
		return Info{CPU: types.CPUArm, Subtype: types.CPUSubtypeArmV7}
	case snapshot.ArchX86_32:
		return Info{CPU: types.CPUI386}
	case snapshot.ArchX86_64:
		return Info{CPU: types.CPUAmd64, LP64: true}
	case snapshot.ArchPPC:
		return Info{CPU: types.CPUPpc}
	default:
		return Info{LP64: true}
	}
}

// Name returns the canonical architecture display name, e.g. "arm64" or
// "armv7s", or "???" when the cpu family is unknown.
func (i Info) Name() string {
	return NameFor(i.CPU, i.Subtype)
}

// NameFor maps a Mach cpu type/subtype pair to its display name.
func NameFor(cpu types.CPU, sub types.CPUSubtype) string {
	switch cpu {
	case types.CPUArm64:
		if sub == types.CPUSubtypeArm64E {
			return "arm64e"
		}
		return "arm64"
	case types.CPUArm:
		switch sub {
		case types.CPUSubtypeArmV6:
			return "armv6"
		case types.CPUSubtypeArmV7:
			return "armv7"
		case types.CPUSubtypeArmV7S:
			return "armv7s"
		case types.CPUSubtypeArmV7K:
			return "armv7k"
		default:
			return "arm"
		}
	case types.CPUAmd64:
		if sub == types.CPUSubtypeX86_64H {
			return "x86_64h"
		}
		return "x86_64"
	case types.CPUI386:
		return "i386"
	case types.CPUPpc:
		return "ppc"
	default:
		return "???"
	}
}
