package camera

import (
	"fmt"
	"strings"
)

// PixelFormat is the encoding the sensor is asked to deliver.
type PixelFormat int

const (
	PixelFormatJPEG PixelFormat = iota
	PixelFormatGrayscale
	PixelFormatRGB565
	PixelFormatYUV422
	PixelFormatRGB888
)

var pixelFormatNames = map[PixelFormat]string{
	PixelFormatJPEG:      "jpeg",
	PixelFormatGrayscale: "grayscale",
	PixelFormatRGB565:    "rgb565",
	PixelFormatYUV422:    "yuv422",
	PixelFormatRGB888:    "rgb888",
}

func (p PixelFormat) String() string {
	if name, ok := pixelFormatNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(p))
}

// ParsePixelFormat maps a config name (e.g. "jpeg") to a PixelFormat.
func ParsePixelFormat(s string) (PixelFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range pixelFormatNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown pixel format %q", s)
}

// FrameSize is a named resolution preset.
type FrameSize struct {
	Name   string
	Width  int
	Height int
}

func (f FrameSize) String() string {
	return fmt.Sprintf("%s (%dx%d)", f.Name, f.Width, f.Height)
}

// Presets follow the sensor vendor's naming, smallest first.
var frameSizes = []FrameSize{
	{"96X96", 96, 96},
	{"QQVGA", 160, 120},
	{"QCIF", 176, 144},
	{"HQVGA", 240, 176},
	{"240X240", 240, 240},
	{"QVGA", 320, 240},
	{"CIF", 400, 296},
	{"HVGA", 480, 320},
	{"VGA", 640, 480},
	{"SVGA", 800, 600},
	{"XGA", 1024, 768},
	{"HD", 1280, 720},
	{"SXGA", 1280, 1024},
	{"UXGA", 1600, 1200},
}

// ParseFrameSize looks up a preset by name, case-insensitively.
func ParseFrameSize(name string) (FrameSize, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for _, fs := range frameSizes {
		if fs.Name == n {
			return fs, nil
		}
	}
	return FrameSize{}, fmt.Errorf("unknown frame size %q (valid: %s)", name, strings.Join(FrameSizeNames(), ", "))
}

// FrameSizeNames returns the preset names, smallest first.
func FrameSizeNames() []string {
	names := make([]string, len(frameSizes))
	for i, fs := range frameSizes {
		names[i] = fs.Name
	}
	return names
}
