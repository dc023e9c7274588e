// Package selector recovers a probable Objective-C message-dispatch
// selector from a crashed thread's argument registers. When a crash has
// no exception object, the selector that objc_msgSend was dispatching is
// often still sitting in the selector argument register; its value points
// into the owning image's __objc_methname string table, so a validated
// read of that table yields the method name.
package selector

import (
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/telemetrykit/crashsym/pkg/imagetable"
	"github.com/telemetrykit/crashsym/pkg/snapshot"
)

// ErrNotFound is returned when no selector could be recovered. Callers
// degrade to an unsymbolicated reason; recovery is best effort only.
var ErrNotFound = errors.New("selector: not found")

// Registers returns the candidate argument registers holding the
// dispatch selector for the given word width and build target, in the
// order they should be tried. The selector argument slot differs between
// the x86 simulator ABIs and the ARM device ABIs.
func Registers(lp64, simulator bool) []string {
	switch {
	case lp64 && simulator:
		return []string{"rsi", "rdx"}
	case simulator:
		return []string{"ecx"}
	case lp64:
		return []string{"x1"}
	default:
		return []string{"r1", "r2"}
	}
}

// Recover resolves a selector name for an address inside the named image.
// The image must currently be loaded with the same path and UUID the
// crash snapshot recorded; offset is relative to the image's base. Every
// step that fails yields ErrNotFound, never a partial result.
func Recover(tbl imagetable.Table, mem imagetable.Memory, path, imageUUID string, offset uint64) (string, error) {
	want := strings.ToLower(strings.ReplaceAll(imageUUID, "-", ""))

	count := tbl.Count()
	for i := 0; i < count; i++ {
		e, ok := tbl.Entry(i)
		if !ok || e.Path != path {
			continue
		}

		img, err := openImage(mem, e)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("skipping unreadable image")
			continue
		}

		// Guard against address-space reuse: a different build loaded at
		// the recorded path must not supply stale method names.
		id, err := img.uuid()
		if err != nil {
			continue
		}
		got := strings.ReplaceAll(id.String(), "-", "")
		if want == "" || got != want {
			continue
		}

		lo, hi, err := img.methodNames()
		if err != nil {
			return "", err
		}
		v, err := newView(mem, lo, hi)
		if err != nil {
			return "", err
		}
		return v.cstring(e.Address + offset)
	}
	return "", errors.Wrapf(ErrNotFound, "image %s not loaded", path)
}

// RecoverFromRegisters tries each candidate register of the crashed
// thread in order, takes the first non-zero value as a candidate method-
// name address, resolves its owning image from the snapshot, and runs
// Recover with the image-relative offset.
func RecoverFromRegisters(tbl imagetable.Table, mem imagetable.Memory, r *snapshot.CrashReport, lp64, simulator bool) (string, error) {
	crashed := r.CrashedThread()
	if crashed == nil {
		return "", ErrNotFound
	}
	for _, name := range Registers(lp64, simulator) {
		val, ok := crashed.RegisterValue(name)
		if !ok || val == 0 {
			continue
		}
		img := r.ImageForAddress(val)
		if img == nil {
			continue
		}
		sel, err := Recover(tbl, mem, img.Path, img.UUID, val-img.Base)
		if err != nil {
			log.WithError(err).WithField("register", name).Debug("selector recovery miss")
			continue
		}
		return sel, nil
	}
	return "", ErrNotFound
}
