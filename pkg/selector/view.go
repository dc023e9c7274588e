package selector

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/telemetrykit/crashsym/pkg/imagetable"
)

// view is a bounds-checked window [lo, hi) over foreign process memory.
// Every read is validated against the window before it is attempted; a
// read target outside the window is refused, never tried.
type view struct {
	mem imagetable.Memory
	lo  uint64
	hi  uint64
}

func newView(mem imagetable.Memory, lo, hi uint64) (*view, error) {
	if hi < lo {
		return nil, errors.Errorf("invalid region bounds [%#x, %#x)", lo, hi)
	}
	return &view{mem: mem, lo: lo, hi: hi}, nil
}

func (v *view) contains(addr uint64) bool {
	return addr >= v.lo && addr < v.hi
}

// cstring reads the NUL-terminated string starting at addr. The string
// must terminate before the window's upper bound; an unterminated run is
// refused rather than truncated, since the window is untyped foreign
// memory.
func (v *view) cstring(addr uint64) (string, error) {
	if !v.contains(addr) {
		return "", errors.Wrapf(ErrNotFound, "address %#x outside region [%#x, %#x)", addr, v.lo, v.hi)
	}

	var out []byte
	buf := make([]byte, 256)
	for cur := addr; cur < v.hi; {
		n := uint64(len(buf))
		if rem := v.hi - cur; rem < n {
			n = rem
		}
		if err := v.mem.ReadAt(buf[:n], cur); err != nil {
			return "", err
		}
		if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
			return string(append(out, buf[:i]...)), nil
		}
		out = append(out, buf[:n]...)
		cur += n
	}
	return "", errors.Wrapf(ErrNotFound, "unterminated string at %#x", addr)
}
