// Package classify decides whether a file is a supported image or video and
// which container parser applies to it.
//
// The extension decides whether a file is a candidate at all. The leading bytes
// decide which parser runs: a supported extension whose content sniffs as a
// different supported container is parsed as the sniffed container.
package classify

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
)

// Class is the coarse media class of a file.
type Class int

const (
	Unsupported Class = iota
	Image
	Video
)

func (c Class) String() string {
	switch c {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "unsupported"
	}
}

// Format identifies the container layout and therefore the parser.
type Format string

const (
	FormatUnknown  Format = ""
	FormatJPEG     Format = "jpeg"
	FormatTIFF     Format = "tiff"
	FormatHEIF     Format = "heif"
	FormatRAF      Format = "raf"
	FormatISOBMFF  Format = "isobmff"
	FormatMatroska Format = "matroska"
)

// Class returns the media class served by the format.
func (f Format) Class() Class {
	switch f {
	case FormatJPEG, FormatTIFF, FormatHEIF, FormatRAF:
		return Image
	case FormatISOBMFF, FormatMatroska:
		return Video
	default:
		return Unsupported
	}
}

// Kind is the classification result for a single file.
type Kind struct {
	Class  Class
	Format Format
}

// Supported reports whether the kind has a parser.
func (k Kind) Supported() bool {
	return k.Class != Unsupported
}

func (k Kind) String() string {
	if !k.Supported() {
		return k.Class.String()
	}
	return k.Class.String() + "/" + string(k.Format)
}

var extensions = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".jpe":  FormatJPEG,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".dng":  FormatTIFF,
	".iiq":  FormatTIFF,
	".heic": FormatHEIF,
	".heif": FormatHEIF,
	".hif":  FormatHEIF,
	".raf":  FormatRAF,
	".mp4":  FormatISOBMFF,
	".m4v":  FormatISOBMFF,
	".mov":  FormatISOBMFF,
	".qt":   FormatISOBMFF,
	".3gp":  FormatISOBMFF,
	".3g2":  FormatISOBMFF,
	".mkv":  FormatMatroska,
	".webm": FormatMatroska,
}

// Classify maps a path to a Kind using its extension only.
func Classify(path string) Kind {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Kind{Class: Unsupported}
	}
	return Kind{Class: f.Class(), Format: f}
}

// Extensions returns the supported extensions for a class, sorted.
func Extensions(c Class) []string {
	var out []string
	for ext, f := range extensions {
		if f.Class() == c {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// SniffLen is the number of leading bytes Sniff looks at.
const SniffLen = 16

var (
	jpegMagic     = []byte{0xFF, 0xD8, 0xFF}
	tiffLE        = []byte("II*\x00")
	tiffBE        = []byte("MM\x00*")
	rafMagic      = []byte("FUJIFILMCCD-RAW")
	matroskaMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
)

var heifBrands = map[string]bool{
	"heic": true, "heix": true, "heim": true, "heis": true,
	"hevc": true, "hevx": true, "hevm": true, "hevs": true,
	"mif1": true, "msf1": true,
}

// QuickTime files written without ftyp start straight with one of these atoms.
var quickTimeAtoms = map[string]bool{
	"moov": true, "mdat": true, "wide": true, "free": true, "skip": true, "pnot": true,
}

// Sniff classifies a file by its leading bytes. It returns an Unsupported kind
// when the bytes match no known container.
func Sniff(header []byte) Kind {
	var f Format
	switch {
	case bytes.HasPrefix(header, jpegMagic):
		f = FormatJPEG
	case bytes.HasPrefix(header, tiffLE), bytes.HasPrefix(header, tiffBE):
		f = FormatTIFF
	case bytes.HasPrefix(header, rafMagic):
		f = FormatRAF
	case bytes.HasPrefix(header, matroskaMagic):
		f = FormatMatroska
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		if heifBrands[string(header[8:12])] {
			f = FormatHEIF
		} else {
			f = FormatISOBMFF
		}
	case len(header) >= 8 && quickTimeAtoms[string(header[4:8])]:
		f = FormatISOBMFF
	default:
		return Kind{Class: Unsupported}
	}
	return Kind{Class: f.Class(), Format: f}
}
