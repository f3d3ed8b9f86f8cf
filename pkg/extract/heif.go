package extract

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"
)

const (
	maxIlocSize = 1 << 20
	maxExifSize = 4 << 20
)

var exifHeader = []byte("Exif\x00\x00")

type extent struct {
	off    int64
	length int64
}

// heifCandidates locates the Exif item through meta/iinf and meta/iloc and
// decodes it.
func heifCandidates(r io.ReaderAt, size int64, loc *time.Location) ([]Candidate, error) {
	meta, ok, err := findBox(r, 0, size, "meta")
	if err != nil || !ok {
		return nil, err
	}
	// meta is a full box: version and flags precede its children.
	children := meta.body() + 4
	if children > meta.end() {
		return nil, errMalformed
	}

	id, ok, err := exifItemID(r, children, meta.end())
	if err != nil || !ok {
		return nil, err
	}

	extents, err := itemExtents(r, children, meta.end(), id, size)
	if err != nil || len(extents) == 0 {
		return nil, err
	}

	var total int64
	for _, e := range extents {
		if e.length > maxExifSize-total {
			return nil, errMalformed
		}
		total += e.length
	}

	payload := make([]byte, 0, total)
	for _, e := range extents {
		b, err := readAt(r, e.off, e.length)
		if err != nil {
			return nil, err
		}
		payload = append(payload, b...)
	}

	tiff, err := exifItemTIFF(payload)
	if err != nil {
		return nil, err
	}
	return decodeExif(bytes.NewReader(tiff), loc)
}

// exifItemID returns the id of the first item of type "Exif" in iinf.
func exifItemID(r io.ReaderAt, start, end int64) (uint32, bool, error) {
	iinf, ok, err := findBox(r, start, end, "iinf")
	if err != nil || !ok {
		return 0, false, err
	}

	vf, err := readAt(r, iinf.body(), 4)
	if err != nil {
		return 0, false, err
	}
	at := iinf.body() + 4
	if vf[0] == 0 {
		at += 2
	} else {
		at += 4
	}

	var (
		id    uint32
		found bool
	)
	err = walkBoxes(r, at, iinf.end(), func(b box) (bool, error) {
		if b.typ != "infe" {
			return true, nil
		}
		body, err := readAt(r, b.body(), min(b.end()-b.body(), 14))
		if err != nil {
			return false, err
		}

		var (
			itemID   uint32
			itemType string
		)
		switch {
		case len(body) >= 12 && body[0] == 2:
			itemID = uint32(binary.BigEndian.Uint16(body[4:6]))
			itemType = string(body[8:12])
		case len(body) >= 14 && body[0] == 3:
			itemID = binary.BigEndian.Uint32(body[4:8])
			itemType = string(body[10:14])
		default:
			// Versions 0 and 1 predate typed items.
			return true, nil
		}

		if itemType == "Exif" {
			id, found = itemID, true
			return false, nil
		}
		return true, nil
	})
	return id, found, err
}

// itemExtents returns the absolute file extents of item id as described by
// iloc. Items stored in idat are resolved against the idat payload.
func itemExtents(r io.ReaderAt, start, end int64, id uint32, size int64) ([]extent, error) {
	iloc, ok, err := findBox(r, start, end, "iloc")
	if err != nil || !ok {
		return nil, err
	}
	n := iloc.end() - iloc.body()
	if n > maxIlocSize {
		return nil, errMalformed
	}
	body, err := readAt(r, iloc.body(), n)
	if err != nil {
		return nil, err
	}

	c := &cursor{b: body}
	version := c.uint(1)
	c.uint(3) // flags
	if version > 2 {
		return nil, errMalformed
	}

	sizes := c.uint(1)
	offSize, lenSize := int(sizes>>4), int(sizes&0x0F)
	sizes = c.uint(1)
	baseSize, idxSize := int(sizes>>4), 0
	if version > 0 {
		idxSize = int(sizes & 0x0F)
	}
	for _, s := range []int{offSize, lenSize, baseSize, idxSize} {
		if s != 0 && s != 4 && s != 8 {
			return nil, errMalformed
		}
	}

	idWidth := 2
	if version == 2 {
		idWidth = 4
	}
	count := c.uint(idWidth)

	for i := uint64(0); i < count && !c.short; i++ {
		itemID := c.uint(idWidth)
		method := uint64(0)
		if version > 0 {
			method = c.uint(2) & 0x0F
		}
		c.uint(2) // data_reference_index
		base := c.uint(baseSize)
		extentCount := c.uint(2)

		var extents []extent
		for j := uint64(0); j < extentCount && !c.short; j++ {
			c.uint(idxSize)
			off := c.uint(offSize)
			length := c.uint(lenSize)
			if base > math.MaxInt64 || off > math.MaxInt64-base || length > math.MaxInt64 {
				return nil, errMalformed
			}
			extents = append(extents, extent{off: int64(base + off), length: int64(length)})
		}
		if c.short {
			break
		}
		if uint32(itemID) != id {
			continue
		}

		var origin, limit int64 = 0, size
		switch method {
		case 0:
		case 1:
			idat, ok, err := findBox(r, start, end, "idat")
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errMalformed
			}
			origin, limit = idat.body(), idat.end()
		default:
			// Items built from other items are not used for Exif.
			return nil, errMalformed
		}

		for k := range extents {
			e := &extents[k]
			if e.off > limit-origin {
				return nil, errMalformed
			}
			e.off += origin
			if e.length == 0 {
				e.length = limit - e.off
			}
			if e.length > limit-e.off {
				return nil, errMalformed
			}
		}
		return extents, nil
	}

	if c.short {
		return nil, errMalformed
	}
	return nil, nil
}

// exifItemTIFF strips the Exif item prefix: a 4-byte offset to the TIFF
// header, which usually skips an "Exif\0\0" marker.
func exifItemTIFF(item []byte) ([]byte, error) {
	if len(item) < 4 {
		return nil, errMalformed
	}
	skip := int64(binary.BigEndian.Uint32(item[:4]))
	rest := item[4:]
	if skip > int64(len(rest)) {
		return nil, errMalformed
	}
	tiff := rest[skip:]

	// Some writers leave the offset at zero and keep the marker.
	if bytes.HasPrefix(tiff, exifHeader) {
		tiff = tiff[len(exifHeader):]
	}
	if len(tiff) < 8 {
		return nil, errMalformed
	}
	return tiff, nil
}
