//go:build !darwin || !cgo

package imagetable

// Dyld returns an empty Table on platforms without a dyld image list;
// selector recovery degrades to "not found".
func Dyld() Table { return &Static{} }

// ProcessMemory returns a Memory that refuses every read on platforms
// where the live image list is unavailable.
func ProcessMemory() Memory { return &Static{} }
