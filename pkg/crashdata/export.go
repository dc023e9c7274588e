package crashdata

import (
	"github.com/blacktop/go-macho/types"

	"github.com/telemetrykit/crashsym/pkg/arch"
	"github.com/telemetrykit/crashsym/pkg/snapshot"
)

// BinaryUUID pairs an app image's UUID with its architecture, for the
// dSYM-matching pipeline.
type BinaryUUID struct {
	UUID string `json:"uuid"`
	Arch string `json:"arch"`
	Type string `json:"type"` // "app" or "framework"
}

// AppUUIDs returns one entry per app-classified image in the snapshot:
// the main executable and bundled frameworks. System images have no
// dSYMs to match and are excluded entirely.
func AppUUIDs(r *snapshot.CrashReport) []BinaryUUID {
	info := arch.Resolve(r)
	procPath := r.ProcessPath()

	var out []BinaryUUID
	for i := range r.Images {
		img := &r.Images[i]
		typ := Classify(img.Path, procPath)
		if typ == ImageOther {
			continue
		}
		name := info.Name()
		if img.Processor != nil && img.Processor.Encoding == snapshot.EncodingMach {
			name = arch.NameFor(types.CPU(img.Processor.Type), types.CPUSubtype(img.Processor.Subtype))
		}
		out = append(out, BinaryUUID{
			UUID: normalizeUUID(img.UUID),
			Arch: name,
			Type: typ.String(),
		})
	}
	return out
}
