// Package crashdata turns a raw crash snapshot into the structured,
// deterministic crash-data record uploaded by the telemetry channel.
// Symbols are resolved only for system images; app frames are left as
// base+offset pairs and re-symbolicated server side against dSYMs.
package crashdata

import (
	"github.com/telemetrykit/crashsym/pkg/imagetable"
)

// Config carries the assembler's injected capabilities. The zero value
// is valid: without an image table, selector recovery is skipped and the
// exception reason degrades per the documented strategy order.
type Config struct {
	// ReporterKey identifies the reporter instance that produced the
	// snapshot; it is carried through for deduplication.
	ReporterKey string
	// Table and Memory give the assembler access to the live loaded-
	// image list for selector recovery. Tests inject imagetable.Static.
	Table  imagetable.Table
	Memory imagetable.Memory
}

// CrashData is the fully assembled crash record. It is immutable once
// returned and byte-identical for byte-identical input.
type CrashData struct {
	ReporterKey string    `json:"reporterKey,omitempty"`
	Headers     *Headers  `json:"headers"`
	Threads     []*Thread `json:"threads"`
	Binaries    []*Binary `json:"binaries"`
}

// Headers is the report preamble. Every unknown scalar holds the "???"
// sentinel rather than an empty value.
type Headers struct {
	CrashThread           int    `json:"crashThread"`
	ProcessName           string `json:"process"`
	ProcessID             int    `json:"processId"`
	ParentProcessName     string `json:"parentProcess"`
	ParentProcessID       int    `json:"parentProcessId"`
	ApplicationPath       string `json:"applicationPath"`
	ApplicationIdentifier string `json:"applicationIdentifier"`
	ApplicationBuild      string `json:"applicationBuild"`
	ExceptionType         string `json:"exceptionType"`
	ExceptionCode         string `json:"exceptionCode"`
	ExceptionAddress      string `json:"exceptionAddress"`
	ExceptionReason       string `json:"exceptionReason,omitempty"`
}

// Thread is one formatted thread. ID -1 is reserved for the synthetic
// pseudo-thread holding a handled exception's backtrace.
type Thread struct {
	ID      int      `json:"id"`
	Crashed bool     `json:"crashed,omitempty"`
	Frames  []*Frame `json:"frames"`
}

// Frame is one formatted stack frame. Registers is populated only on
// frame 0 of the crashed thread.
type Frame struct {
	Address   string     `json:"address"`
	Symbol    string     `json:"symbol"`
	Registers []Register `json:"registers,omitempty"`

	// Image is the owning image's display basename, kept for the text
	// renderer; it is not part of the structured record.
	Image string `json:"-"`
}

// Register is one formatted register name/value pair. Pairs are kept in
// capture order so serialization stays deterministic.
type Register struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Binary is one formatted binary image.
type Binary struct {
	UUID         string `json:"uuid"`
	CPUType      uint64 `json:"cpuType"`
	CPUSubtype   uint64 `json:"cpuSubType"`
	StartAddress string `json:"startAddress"`
	EndAddress   string `json:"endAddress"`
	Name         string `json:"name"`
	Path         string `json:"path"`
}
