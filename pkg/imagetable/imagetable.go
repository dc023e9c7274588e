// Package imagetable provides snapshot-tolerant access to the set of
// binary images currently loaded in a process, plus bounds-tolerant reads
// of that process's memory. The live table is mutable OS state (dyld may
// load or unload images at any time), so every query stands alone: a
// count is never cached, and an image disappearing between the count and
// a per-index fetch is an ordinary miss, never a fault.
package imagetable

import "github.com/pkg/errors"

// ErrFault is returned for a read that touches unmapped memory.
var ErrFault = errors.New("imagetable: read outside mapped region")

// Entry describes one currently loaded image.
type Entry struct {
	// Path is the load path dyld recorded for the image.
	Path string
	// Address is the in-memory address of the image's Mach-O header.
	Address uint64
	// Slide is the load-time ASLR slide applied to the image.
	Slide uint64
}

// Table is a point-in-time view of the loaded-image list.
type Table interface {
	// Count returns the number of images currently loaded.
	Count() int
	// Entry returns the i'th image. ok is false when the image is gone
	// or the index is out of range; callers treat that as "not found".
	Entry(i int) (e Entry, ok bool)
}

// Memory reads process memory at absolute virtual addresses. ReadAt
// either fills p completely or fails; partial reads are never returned.
type Memory interface {
	ReadAt(p []byte, addr uint64) error
}

// Region is a contiguous mapped range used by Static.
type Region struct {
	Base uint64
	Data []byte
}

// Static is a deterministic Table and Memory over fixed entries and
// regions. It backs tests and non-darwin builds.
type Static struct {
	Entries []Entry
	Regions []Region
}

func (s *Static) Count() int { return len(s.Entries) }

func (s *Static) Entry(i int) (Entry, bool) {
	if i < 0 || i >= len(s.Entries) {
		return Entry{}, false
	}
	return s.Entries[i], true
}

func (s *Static) ReadAt(p []byte, addr uint64) error {
	for _, r := range s.Regions {
		if addr < r.Base || addr-r.Base > uint64(len(r.Data)) {
			continue
		}
		off := addr - r.Base
		if off+uint64(len(p)) > uint64(len(r.Data)) {
			return errors.Wrapf(ErrFault, "%d bytes at %#x", len(p), addr)
		}
		copy(p, r.Data[off:])
		return nil
	}
	return errors.Wrapf(ErrFault, "%d bytes at %#x", len(p), addr)
}
