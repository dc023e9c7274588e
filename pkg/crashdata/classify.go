package crashdata

import (
	"path/filepath"
	"strings"
)

// ImageType categorizes a binary image relative to the crashed process's
// app bundle. The classification drives both symbolication policy (app
// images stay unsymbolicated for server-side resolution) and UUID export.
type ImageType int

const (
	// ImageOther is a system or otherwise external image.
	ImageOther ImageType = iota
	// ImageApp is the main application executable.
	ImageApp
	// ImageAppFramework is a framework bundled inside the app.
	ImageAppFramework
)

func (t ImageType) String() string {
	switch t {
	case ImageApp:
		return "app"
	case ImageAppFramework:
		return "framework"
	default:
		return "other"
	}
}

// Classify categorizes the image at imagePath against the process
// executable at processPath.
func Classify(imagePath, processPath string) ImageType {
	img := strings.ToLower(imagePath)
	proc := strings.ToLower(processPath)
	std := standardizePath(img)

	// The bundle root comes from the image path itself. Standardizing can
	// drop a leading "/private" segment, so the raw path is the fallback;
	// deriving it from the process path instead would miss the bundle
	// whenever only one of the two retained that segment.
	src := std
	i := strings.Index(std, ".app/")
	if i < 0 {
		src = img
		i = strings.Index(img, ".app/")
	}
	if i < 0 {
		return ImageOther
	}
	bundle := src[:i+len(".app/")]

	// Swift runtime dylibs ship inside the bundle but have no dSYM
	// mapping; they are never treated as app code.
	swiftLib := bundle + "frameworks/libswift"
	if strings.HasSuffix(img, ".dylib") &&
		(strings.HasPrefix(std, swiftLib) || strings.HasPrefix(img, swiftLib)) {
		return ImageOther
	}

	// Standardizing can drop a leading "/private" segment, so both the
	// standardized and the raw path are compared, in this order.
	if std == proc || strings.HasPrefix(img, proc) {
		return ImageApp
	}
	if strings.HasPrefix(std, bundle) || strings.HasPrefix(img, bundle) {
		return ImageAppFramework
	}
	return ImageOther
}

// standardizePath normalizes relative segments and resolves the
// "/private" alias the way path standardization does on device.
func standardizePath(path string) string {
	if path == "" {
		return path
	}
	p := filepath.Clean(path)
	if rest, ok := strings.CutPrefix(p, "/private/"); ok {
		p = "/" + rest
	}
	return p
}
