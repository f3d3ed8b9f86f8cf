// Package mediatest builds small synthetic media files for tests.
//
// The builders emit only the structures the extractor reads, in the same
// layout real cameras and muxers use.
package mediatest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ExifLayout is the EXIF date format.
const ExifLayout = "2006:01:02 15:04:05"

// ExifTime formats t the way cameras write EXIF dates.
func ExifTime(t time.Time) string {
	return t.Format(ExifLayout)
}

// EXIF holds the date fields written into a TIFF block. Empty fields are
// omitted.
type EXIF struct {
	DateTimeOriginal  string
	DateTimeDigitized string
	DateTime          string
}

const (
	tagDateTime          = 0x0132
	tagExifIFDPointer    = 0x8769
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004

	typeASCII = 2
	typeLong  = 4
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	ascii string
	long  uint32
}

// TIFF returns a little-endian TIFF block with IFD0 and, when needed, an Exif
// sub-IFD.
func TIFF(e EXIF) []byte {
	var ifd0, sub []ifdEntry
	if e.DateTime != "" {
		ifd0 = append(ifd0, ifdEntry{tag: tagDateTime, typ: typeASCII, ascii: e.DateTime})
	}
	if e.DateTimeOriginal != "" {
		sub = append(sub, ifdEntry{tag: tagDateTimeOriginal, typ: typeASCII, ascii: e.DateTimeOriginal})
	}
	if e.DateTimeDigitized != "" {
		sub = append(sub, ifdEntry{tag: tagDateTimeDigitized, typ: typeASCII, ascii: e.DateTimeDigitized})
	}

	ifdLen := func(n int) uint32 { return uint32(2 + 12*n + 4) }

	ifd0Off := uint32(8)
	n0 := len(ifd0)
	if len(sub) > 0 {
		n0++
	}
	subOff := ifd0Off + ifdLen(n0)
	dataOff := subOff
	if len(sub) > 0 {
		dataOff += ifdLen(len(sub))
		ifd0 = append(ifd0, ifdEntry{tag: tagExifIFDPointer, typ: typeLong, long: subOff})
	}

	var data bytes.Buffer
	writeIFD := func(buf *bytes.Buffer, entries []ifdEntry) {
		le := binary.LittleEndian
		_ = binary.Write(buf, le, uint16(len(entries)))
		for _, en := range entries {
			_ = binary.Write(buf, le, en.tag)
			_ = binary.Write(buf, le, en.typ)
			if en.typ == typeLong {
				_ = binary.Write(buf, le, uint32(1))
				_ = binary.Write(buf, le, en.long)
				continue
			}
			val := append([]byte(en.ascii), 0)
			_ = binary.Write(buf, le, uint32(len(val)))
			if len(val) <= 4 {
				var inline [4]byte
				copy(inline[:], val)
				buf.Write(inline[:])
				continue
			}
			_ = binary.Write(buf, le, dataOff+uint32(data.Len()))
			data.Write(val)
		}
		_ = binary.Write(buf, le, uint32(0))
	}

	var out bytes.Buffer
	out.WriteString("II*\x00")
	_ = binary.Write(&out, binary.LittleEndian, ifd0Off)
	writeIFD(&out, ifd0)
	if len(sub) > 0 {
		writeIFD(&out, sub)
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

// JPEG returns a minimal JPEG with an APP1 Exif segment.
func JPEG(e EXIF) []byte {
	tiff := TIFF(e)
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&b, binary.BigEndian, uint16(2+6+len(tiff)))
	b.WriteString("Exif\x00\x00")
	b.Write(tiff)
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}

// PlainJPEG returns a JFIF JPEG without any EXIF segment.
func PlainJPEG() []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})
	b.WriteString("JFIF\x00")
	b.Write([]byte{0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00})
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}

// RAF returns a Fujifilm RAF file whose embedded preview carries e.
func RAF(e EXIF) []byte {
	const headerLen = 92
	jpeg := JPEG(e)
	hdr := make([]byte, headerLen)
	copy(hdr, "FUJIFILMCCD-RAW 0201FF383501")
	binary.BigEndian.PutUint32(hdr[84:], headerLen)
	binary.BigEndian.PutUint32(hdr[88:], uint32(len(jpeg)))
	return append(hdr, jpeg...)
}

// Box returns an ISO-BMFF box with a 32-bit size.
func Box(typ string, body ...[]byte) []byte {
	var payload []byte
	for _, b := range body {
		payload = append(payload, b...)
	}
	out := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(out, uint32(8+len(payload)))
	copy(out[4:], typ)
	return append(out, payload...)
}

func u16(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }
func u32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }
func u64(v uint64) []byte { return binary.BigEndian.AppendUint64(nil, v) }

func ftyp(major string, compat ...string) []byte {
	body := append([]byte(major), u32(0)...)
	for _, c := range compat {
		body = append(body, c...)
	}
	return Box("ftyp", body)
}

// HEIC returns a HEIF still image whose Exif item carries e.
func HEIC(e EXIF) []byte {
	item := append(u32(6), "Exif\x00\x00"...)
	item = append(item, TIFF(e)...)

	build := func(off uint32) []byte {
		hdlr := Box("hdlr", u32(0), u32(0), []byte("pict"), make([]byte, 12), []byte{0})
		infe := Box("infe", []byte{2, 0, 0, 0}, u16(1), u16(0), []byte("Exif"), []byte{0})
		iinf := Box("iinf", u32(0), u16(1), infe)
		iloc := Box("iloc", u32(0), []byte{0x44, 0x00}, u16(1),
			u16(1), u16(0), u16(1), u32(off), u32(uint32(len(item))))
		meta := Box("meta", u32(0), hdlr, iinf, iloc)

		out := ftyp("heic", "mif1", "heic")
		out = append(out, meta...)
		return append(out, Box("mdat", item)...)
	}

	// Box sizes do not depend on the offset value.
	probe := build(0)
	return build(uint32(len(probe) - len(item)))
}

// HEICExtents returns a HEIF file whose Exif item is described by iloc
// extents with 64-bit offsets and lengths, each given as {offset, length}.
// The extents are written as is, without checking them against the file.
func HEICExtents(extents ...[2]uint64) []byte {
	hdlr := Box("hdlr", u32(0), u32(0), []byte("pict"), make([]byte, 12), []byte{0})
	infe := Box("infe", []byte{2, 0, 0, 0}, u16(1), u16(0), []byte("Exif"), []byte{0})
	iinf := Box("iinf", u32(0), u16(1), infe)

	entry := append(u16(1), u16(0)...)
	entry = append(entry, u16(uint16(len(extents)))...)
	for _, e := range extents {
		entry = append(entry, u64(e[0])...)
		entry = append(entry, u64(e[1])...)
	}
	iloc := Box("iloc", u32(0), []byte{0x88, 0x00}, u16(1), entry)
	meta := Box("meta", u32(0), hdlr, iinf, iloc)

	out := ftyp("heic", "mif1", "heic")
	out = append(out, meta...)
	return append(out, Box("mdat", make([]byte, 64))...)
}

// Movie describes an ISO-BMFF movie. Zero times are written as zero, which
// readers treat as unset.
type Movie struct {
	// Brand is the ftyp major brand. Empty means "isom".
	Brand        string
	Created      time.Time
	MediaCreated time.Time

	// Version1 writes 64-bit header times.
	Version1 bool
}

const macEpochOffset = 2082844800

func macSeconds(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.Unix() + macEpochOffset)
}

func headerBody(v1 bool, created time.Time, size int) []byte {
	var body []byte
	if v1 {
		body = append([]byte{1, 0, 0, 0}, u64(macSeconds(created))...)
		body = append(body, u64(0)...)
	} else {
		body = append([]byte{0, 0, 0, 0}, u32(uint32(macSeconds(created)))...)
		body = append(body, u32(0)...)
	}
	if len(body) < size {
		body = append(body, make([]byte, size-len(body))...)
	}
	return body
}

// MP4 returns an ISO-BMFF movie with mvhd and one track with mdhd.
func MP4(m Movie) []byte {
	brand := m.Brand
	if brand == "" {
		brand = "isom"
	}
	mvhd := Box("mvhd", headerBody(m.Version1, m.Created, 100))
	mdhd := Box("mdhd", headerBody(m.Version1, m.MediaCreated, 24))
	trak := Box("trak", Box("mdia", mdhd))

	out := ftyp(brand, brand, "mp41")
	out = append(out, Box("moov", mvhd, trak)...)
	return append(out, Box("mdat", make([]byte, 16))...)
}

func ebml(id []byte, body ...[]byte) []byte {
	var payload []byte
	for _, b := range body {
		payload = append(payload, b...)
	}
	out := append([]byte{}, id...)
	// 8-byte size vint
	size := u64(uint64(len(payload)))
	size[0] = 0x01
	out = append(out, size...)
	return append(out, payload...)
}

// Matroska returns a Matroska file with Segment/Info/DateUTC set to created,
// followed by an empty Cluster. A zero created omits DateUTC.
func Matroska(created time.Time) []byte {
	header := ebml([]byte{0x1A, 0x45, 0xDF, 0xA3}, ebml([]byte{0x42, 0x82}, []byte("matroska")))

	info := [][]byte{ebml([]byte{0x2A, 0xD7, 0xB1}, []byte{0x0F, 0x42, 0x40})}
	if !created.IsZero() {
		epoch := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
		ns := created.Sub(epoch).Nanoseconds()
		info = append(info, ebml([]byte{0x44, 0x61}, u64(uint64(ns))))
	}

	segment := ebml([]byte{0x18, 0x53, 0x80, 0x67},
		ebml([]byte{0x15, 0x49, 0xA9, 0x66}, info...),
		ebml([]byte{0x1F, 0x43, 0xB6, 0x75}),
	)
	return append(header, segment...)
}

// WriteFile writes data to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
	return path
}
