package crashdata

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/blacktop/go-macho/types"

	"github.com/telemetrykit/crashsym/pkg/imagetable"
	"github.com/telemetrykit/crashsym/pkg/snapshot"
)

const testProcPath = "/var/containers/Bundle/Application/X.app/X"

func testReport() *snapshot.CrashReport {
	return &snapshot.CrashReport{
		System: snapshot.SystemInfo{
			OperatingSystem: snapshot.OSiPhoneOS,
			Architecture:    snapshot.ArchUnknown,
		},
		Process: &snapshot.ProcessInfo{
			Name: "X", ID: 137, Path: testProcPath,
			ParentName: "launchd", ParentID: 1,
		},
		Application: &snapshot.ApplicationInfo{Identifier: "com.example.x", Version: "42"},
		Signal:      snapshot.SignalInfo{Name: "SIGSEGV", Code: "SEGV_ACCERR", Address: 0xdead},
		Threads: []snapshot.Thread{
			{Number: 0, Frames: []snapshot.Frame{{PC: 0x100001000}}},
			{Number: 1, Crashed: true,
				Frames: []snapshot.Frame{{PC: 0x180000020}, {PC: 0x100002000}},
				Registers: []snapshot.Register{
					{Name: "x0", Value: 0x1}, {Name: "x1", Value: 0x2},
				}},
			{Number: 2, Frames: []snapshot.Frame{{PC: 0x100003000}}},
		},
		Images: []snapshot.BinaryImage{
			{Path: "/usr/lib/libobjc.A.dylib", UUID: "AABB-CCDD", Base: 0x180000000, Size: 0x10000,
				Processor: &snapshot.ProcessorInfo{Encoding: snapshot.EncodingMach, Type: uint64(types.CPUArm64)}},
			{Path: testProcPath, UUID: "11223344", Base: 0x100000000, Size: 0x10000},
		},
	}
}

func TestAssembleThreadInvariant(t *testing.T) {
	r := testReport()
	cd := Assemble(r, nil)
	if len(cd.Threads) != len(r.Threads) {
		t.Fatalf("got %d threads, want %d", len(cd.Threads), len(r.Threads))
	}
	for i, tr := range cd.Threads {
		if tr.ID != r.Threads[i].Number {
			t.Errorf("thread %d has id %d, want %d", i, tr.ID, r.Threads[i].Number)
		}
		if len(tr.Frames) != len(r.Threads[i].Frames) {
			t.Errorf("thread %d has %d frames, want %d", i, len(tr.Frames), len(r.Threads[i].Frames))
		}
	}
}

func TestAssembleSyntheticThread(t *testing.T) {
	r := testReport()
	r.Exception = &snapshot.ExceptionInfo{
		Name:   "NSInvalidArgumentException",
		Reason: "unrecognized selector sent to instance",
		Frames: []snapshot.Frame{{PC: 0x180000020}},
	}
	cd := Assemble(r, nil)
	if len(cd.Threads) != len(r.Threads)+1 {
		t.Fatalf("got %d threads, want %d", len(cd.Threads), len(r.Threads)+1)
	}
	if cd.Threads[0].ID != -1 {
		t.Errorf("synthetic thread id = %d, want -1", cd.Threads[0].ID)
	}
	if got := cd.Headers.ExceptionReason; got != r.Exception.Reason {
		t.Errorf("ExceptionReason = %q, want %q", got, r.Exception.Reason)
	}

	// An exception without frames adds no synthetic thread.
	r.Exception.Frames = nil
	if cd := Assemble(r, nil); len(cd.Threads) != len(r.Threads) {
		t.Errorf("got %d threads, want %d", len(cd.Threads), len(r.Threads))
	}
}

func TestAssembleHandledExceptionType(t *testing.T) {
	r := testReport()
	r.Signal = snapshot.SignalInfo{}
	r.Exception = &snapshot.ExceptionInfo{Name: "NSRangeException", Reason: "index 9 beyond bounds"}

	h := Assemble(r, nil).Headers
	if h.ExceptionType != "NSRangeException" {
		t.Errorf("ExceptionType = %q, want exception name fallback", h.ExceptionType)
	}
	if h.ExceptionReason != "index 9 beyond bounds" {
		t.Errorf("ExceptionReason = %q", h.ExceptionReason)
	}
}

func TestAssembleRegistersOnCrashedFrameOnly(t *testing.T) {
	cd := Assemble(testReport(), nil)

	var carriers int
	for _, tr := range cd.Threads {
		for i, f := range tr.Frames {
			if len(f.Registers) == 0 {
				continue
			}
			carriers++
			if tr.ID != 1 || i != 0 {
				t.Errorf("registers on thread %d frame %d", tr.ID, i)
			}
		}
	}
	if carriers != 1 {
		t.Errorf("registers attached to %d frames, want 1", carriers)
	}

	regs := cd.Threads[1].Frames[0].Registers
	want := []Register{
		{Name: "    x0", Value: "0x0000000000000001"},
		{Name: "    x1", Value: "0x0000000000000002"},
	}
	if !reflect.DeepEqual(regs, want) {
		t.Errorf("registers = %+v, want %+v", regs, want)
	}
}

func TestAssembleNoRegistersWithoutCrashedThread(t *testing.T) {
	r := testReport()
	for i := range r.Threads {
		r.Threads[i].Crashed = false
	}
	cd := Assemble(r, nil)
	for _, tr := range cd.Threads {
		for _, f := range tr.Frames {
			if len(f.Registers) != 0 {
				t.Fatalf("registers attached on thread %d without a crashed thread", tr.ID)
			}
		}
	}
}

func TestAssembleARMRegisterAlias(t *testing.T) {
	r := testReport()
	r.Images = nil // force the legacy fallback
	r.System.Architecture = snapshot.ArchARMv7
	r.Threads[1].Registers = []snapshot.Register{{Name: "r12", Value: 0x10}}

	cd := Assemble(r, nil)
	regs := cd.Threads[1].Frames[0].Registers
	if len(regs) != 1 || regs[0].Name != "    ip" {
		t.Errorf("registers = %+v, want r12 aliased to ip", regs)
	}
	if regs[0].Value != "0x00000010" {
		t.Errorf("value = %q, want 8-digit format", regs[0].Value)
	}
}

func TestAssembleBinaryOrdering(t *testing.T) {
	r := testReport()
	cd := Assemble(r, nil)
	for i := 1; i < len(cd.Binaries); i++ {
		if cd.Binaries[i-1].StartAddress > cd.Binaries[i].StartAddress {
			t.Fatalf("binaries not sorted: %q before %q",
				cd.Binaries[i-1].StartAddress, cd.Binaries[i].StartAddress)
		}
	}

	// Order is the same no matter how the input was permuted.
	perm := testReport()
	perm.Images[0], perm.Images[1] = perm.Images[1], perm.Images[0]
	if !reflect.DeepEqual(Assemble(perm, nil).Binaries, cd.Binaries) {
		t.Error("binary list depends on input image order")
	}
}

func TestAssembleBinaryFields(t *testing.T) {
	cd := Assemble(testReport(), nil)

	app := cd.Binaries[0] // lowest base address is the app image
	if app.Name != "+X" {
		t.Errorf("app image name = %q, want \"+X\"", app.Name)
	}
	if app.UUID != "11223344" {
		t.Errorf("app image uuid = %q", app.UUID)
	}
	if app.StartAddress != "0x0000000100000000" || app.EndAddress != "0x000000010000ffff" {
		t.Errorf("app image range = %s - %s", app.StartAddress, app.EndAddress)
	}

	sys := cd.Binaries[1]
	if sys.Name != " libobjc.A.dylib" {
		t.Errorf("system image name = %q", sys.Name)
	}
	if sys.UUID != "aabbccdd" {
		t.Errorf("system image uuid = %q, want normalized hex", sys.UUID)
	}
	// The resolved report architecture applies to every image.
	if sys.CPUType != uint64(types.CPUArm64) || app.CPUType != uint64(types.CPUArm64) {
		t.Errorf("cpu types = %d/%d, want uniform arm64", app.CPUType, sys.CPUType)
	}
}

func TestAssembleHeaderSentinels(t *testing.T) {
	r := &snapshot.CrashReport{
		System: snapshot.SystemInfo{Architecture: snapshot.ArchX86_64},
	}
	h := Assemble(r, nil).Headers
	for name, got := range map[string]string{
		"process":    h.ProcessName,
		"parent":     h.ParentProcessName,
		"appPath":    h.ApplicationPath,
		"identifier": h.ApplicationIdentifier,
		"build":      h.ApplicationBuild,
		"excType":    h.ExceptionType,
		"excCode":    h.ExceptionCode,
	} {
		if got != "???" {
			t.Errorf("%s = %q, want \"???\"", name, got)
		}
	}
	if h.ExceptionAddress != "0x0000000000000000" {
		t.Errorf("ExceptionAddress = %q", h.ExceptionAddress)
	}
	if h.ExceptionReason != "" {
		t.Errorf("ExceptionReason = %q, want unset", h.ExceptionReason)
	}
}

func TestAssembleScrubsHomeDirectory(t *testing.T) {
	r := testReport()
	r.Process.Path = "/Users/jappleseed/Library/Developer/X.app/X"
	h := Assemble(r, nil).Headers
	if h.ApplicationPath != "/Users/USER/Library/Developer/X.app/X" {
		t.Errorf("ApplicationPath = %q", h.ApplicationPath)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	cfg := &Config{ReporterKey: "0badc0de"}
	a := Assemble(testReport(), cfg)
	b := Assemble(testReport(), cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("repeated assembly differs")
	}

	aj, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(aj, bj) {
		t.Error("serialized output differs between runs")
	}
}

// TestAssembleSelectorReason exercises the register-based reason
// fallback end to end against a crafted in-memory image.
func TestAssembleSelectorReason(t *testing.T) {
	const (
		hdrAddr = uint64(0x180000000)
		sectOff = uint64(0x1000)
	)
	table := []byte("init\x00length\x00")
	img := buildTestImage(t, hdrAddr, sectOff, table)
	st := &imagetable.Static{
		Entries: []imagetable.Entry{{Path: "/usr/lib/libobjc.A.dylib", Address: hdrAddr}},
		Regions: []imagetable.Region{{Base: hdrAddr, Data: img}},
	}

	r := testReport()
	r.Images[0].UUID = "c0ffee00deadbeefc0decafebabef00d"
	r.Threads[1].Registers = []snapshot.Register{
		{Name: "x1", Value: hdrAddr + sectOff + 5},
	}

	cd := Assemble(r, &Config{Table: st, Memory: st})
	want := "Selector name found in current argument registers: length"
	if cd.Headers.ExceptionReason != want {
		t.Errorf("ExceptionReason = %q, want %q", cd.Headers.ExceptionReason, want)
	}
}

func buildTestImage(t *testing.T, hdr, sectOff uint64, table []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	le := binary.LittleEndian

	uuid := [16]byte{0xc0, 0xff, 0xee, 0x00, 0xde, 0xad, 0xbe, 0xef, 0xc0, 0xde, 0xca, 0xfe, 0xba, 0xbe, 0xf0, 0x0d}
	var segName, sectName [16]byte
	copy(segName[:], "__TEXT")
	copy(sectName[:], "__objc_methname")

	binary.Write(buf, le, types.FileHeader{
		Magic: types.Magic64, CPU: types.CPUArm64,
		Type: types.HeaderFileType(2), NCommands: 2, SizeCommands: 24 + 72 + 80,
	})
	binary.Write(buf, le, types.UUIDCmd{LoadCmd: types.LC_UUID, Len: 24, UUID: types.UUID(uuid)})
	binary.Write(buf, le, types.Segment64{
		LoadCmd: types.LC_SEGMENT_64, Len: 72 + 80, Name: segName,
		Addr: hdr, Memsz: sectOff + uint64(len(table)), Nsect: 1,
	})
	binary.Write(buf, le, types.Section64{
		Name: sectName, Seg: segName, Addr: hdr + sectOff, Size: uint64(len(table)),
	})

	out := make([]byte, sectOff+uint64(len(table)))
	copy(out, buf.Bytes())
	copy(out[sectOff:], table)
	return out
}
