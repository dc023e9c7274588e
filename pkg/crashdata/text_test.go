package crashdata

import (
	"strings"
	"testing"

	"github.com/telemetrykit/crashsym/pkg/snapshot"
)

func TestTextRendering(t *testing.T) {
	r := testReport()
	r.Exception = &snapshot.ExceptionInfo{
		Reason: "boom",
		Frames: []snapshot.Frame{{PC: 0x180000020}},
	}
	out := Assemble(r, &Config{ReporterKey: "0badc0de"}).String()

	for _, want := range []string{
		"Incident Identifier: 0badc0de",
		"Process:         X [137]",
		"Exception Type:  SIGSEGV",
		"Exception Codes: SEGV_ACCERR at 0x000000000000dead",
		"Crashed Thread:  1",
		"Application Specific Information:\nboom",
		"Last Exception Backtrace:",
		"Thread 1 Crashed:",
		"Binary Images:",
		"<11223344>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q\n%s", want, out)
		}
	}

	// Image names are padded into the classic frame column.
	if !strings.Contains(out, "0   libobjc.A.dylib                     0x0000000180000020") {
		t.Errorf("frame line not padded as expected:\n%s", out)
	}
}
