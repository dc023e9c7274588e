// Package snapshot defines the raw crash snapshot object graph handed to
// the symbolication engine by the crash-capture layer. A snapshot is a
// point-in-time capture of a faulted process (threads, registers, loaded
// binary images, signal/exception info) and is treated as immutable here.
package snapshot

// OperatingSystem is the OS family the snapshot was captured on.
type OperatingSystem int

const (
	OSMacOSX OperatingSystem = iota
	OSiPhoneOS
	OSiPhoneSimulator
	OSAppleTVOS
	OSUnknown
)

func (o OperatingSystem) String() string {
	switch o {
	case OSMacOSX:
		return "Mac OS X"
	case OSiPhoneOS:
		return "iPhone OS"
	case OSiPhoneSimulator:
		return "Mac OS X (iPhone Simulator)"
	case OSAppleTVOS:
		return "Apple tvOS"
	default:
		return "Unknown"
	}
}

// Simulator reports whether the OS family runs app code under the
// x86 simulator calling conventions.
func (o OperatingSystem) Simulator() bool {
	return o == OSMacOSX || o == OSiPhoneSimulator
}

// Architecture is the legacy whole-report architecture enum written by
// older capture formats that lack per-image processor metadata.
type Architecture int

const (
	ArchX86_32 Architecture = iota
	ArchX86_64
	ArchARMv6
	ArchPPC
	ArchPPC64
	ArchARMv7
	ArchUnknown
)

// TypeEncoding describes how a processor type/subtype pair is encoded.
type TypeEncoding int

const (
	EncodingUnknown TypeEncoding = iota
	EncodingMach                 // native Mach-O cpu_type_t/cpu_subtype_t values
)

// ProcessorInfo is the processor type of a single binary image.
type ProcessorInfo struct {
	Encoding TypeEncoding `json:"encoding"`
	Type     uint64       `json:"type"`
	Subtype  uint64       `json:"subtype"`
}

// SystemInfo carries the report-wide system fields used by this engine.
type SystemInfo struct {
	OperatingSystem OperatingSystem `json:"operatingSystem"`
	Architecture    Architecture    `json:"architecture"`
}

// ProcessInfo identifies the crashed process and its parent.
type ProcessInfo struct {
	Name       string `json:"name,omitempty"`
	ID         int    `json:"id"`
	Path       string `json:"path,omitempty"`
	ParentName string `json:"parentName,omitempty"`
	ParentID   int    `json:"parentId"`
}

// ApplicationInfo identifies the app bundle the process belongs to.
type ApplicationInfo struct {
	Identifier string `json:"identifier,omitempty"`
	Version    string `json:"version,omitempty"`
}

// SignalInfo is the BSD signal that terminated the process.
type SignalInfo struct {
	Name    string `json:"name,omitempty"`
	Code    string `json:"code,omitempty"`
	Address uint64 `json:"address"`
}

// ExceptionInfo is an uncaught (or handled and reported) language-level
// exception, with the backtrace recorded at the throw site.
type ExceptionInfo struct {
	Name   string  `json:"name,omitempty"`
	Reason string  `json:"reason,omitempty"`
	Frames []Frame `json:"frames,omitempty"`
}

// Symbol is the nearest symbol the capture layer resolved for a frame.
type Symbol struct {
	Name  string `json:"name"`
	Start uint64 `json:"start"`
}

// Frame is a single stack frame: the instruction pointer plus the symbol
// info the capture layer attached, if any.
type Frame struct {
	PC     uint64  `json:"pc"`
	Symbol *Symbol `json:"symbol,omitempty"`
}

// Register is a named general-purpose register value. Values are always
// carried as 64-bit; on 32-bit targets the upper half is zero.
type Register struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// Thread is one thread of the crashed process. At most one thread in a
// snapshot has Crashed set.
type Thread struct {
	Number    int        `json:"number"`
	Crashed   bool       `json:"crashed,omitempty"`
	Frames    []Frame    `json:"frames,omitempty"`
	Registers []Register `json:"registers,omitempty"`
}

// RegisterValue returns the value of the named register.
func (t *Thread) RegisterValue(name string) (uint64, bool) {
	for _, reg := range t.Registers {
		if reg.Name == name {
			return reg.Value, true
		}
	}
	return 0, false
}

// BinaryImage is one executable or shared library that was mapped into
// the process at capture time.
type BinaryImage struct {
	Path      string         `json:"path,omitempty"`
	UUID      string         `json:"uuid,omitempty"`
	Base      uint64         `json:"base"`
	Size      uint64         `json:"size"`
	Processor *ProcessorInfo `json:"processor,omitempty"`
}

// CrashReport is the full raw crash snapshot.
type CrashReport struct {
	System      SystemInfo       `json:"system"`
	Process     *ProcessInfo     `json:"process,omitempty"`
	Application *ApplicationInfo `json:"application,omitempty"`
	Signal      SignalInfo       `json:"signal"`
	Exception   *ExceptionInfo   `json:"exception,omitempty"`
	Threads     []Thread         `json:"threads,omitempty"`
	Images      []BinaryImage    `json:"binaryImages,omitempty"`
}

// CrashedThread returns the first thread flagged as crashed, or nil.
func (r *CrashReport) CrashedThread() *Thread {
	for i := range r.Threads {
		if r.Threads[i].Crashed {
			return &r.Threads[i]
		}
	}
	return nil
}

// ImageForAddress resolves the binary image containing addr, or nil.
func (r *CrashReport) ImageForAddress(addr uint64) *BinaryImage {
	for i := range r.Images {
		img := &r.Images[i]
		if addr >= img.Base && addr < img.Base+img.Size {
			return img
		}
	}
	return nil
}

// ProcessPath returns the on-disk path of the crashed process binary, or
// the empty string when the capture layer could not record it.
func (r *CrashReport) ProcessPath() string {
	if r.Process == nil {
		return ""
	}
	return r.Process.Path
}
