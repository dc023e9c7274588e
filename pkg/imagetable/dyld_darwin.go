//go:build darwin && cgo

package imagetable

/*
#include <mach-o/dyld.h>
#include <stdint.h>
*/
import "C"

import "unsafe"

type dyldTable struct{}

// Dyld returns a Table over the process's live dyld image list. Every
// call goes straight to dyld; nothing is cached between calls.
func Dyld() Table { return dyldTable{} }

func (dyldTable) Count() int {
	return int(C._dyld_image_count())
}

func (dyldTable) Entry(i int) (Entry, bool) {
	if i < 0 {
		return Entry{}, false
	}
	// dyld returns NULL when the image was unloaded between the count
	// query and this fetch; report a miss, never fault.
	hdr := C._dyld_get_image_header(C.uint32_t(i))
	name := C._dyld_get_image_name(C.uint32_t(i))
	if hdr == nil || name == nil {
		return Entry{}, false
	}
	return Entry{
		Path:    C.GoString(name),
		Address: uint64(uintptr(unsafe.Pointer(hdr))),
		Slide:   uint64(uintptr(C._dyld_get_image_vmaddr_slide(C.uint32_t(i)))),
	}, true
}

type processMemory struct{}

// ProcessMemory returns a Memory over the current process's own address
// space. Callers must bound every read to a region validated against the
// image's section table first.
func ProcessMemory() Memory { return processMemory{} }

func (processMemory) ReadAt(p []byte, addr uint64) error {
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(p))
	copy(p, src)
	return nil
}
