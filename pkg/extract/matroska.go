package extract

import (
	"encoding/binary"
	"io"
	"math/bits"
	"time"
)

// EBML element ids, with their length marker bits kept.
const (
	ebmlSegment = 0x18538067
	ebmlInfo    = 0x1549A966
	ebmlDateUTC = 0x4461
	ebmlCluster = 0x1F43B675
)

// maxElementsPerLevel bounds the work spent on a single element level.
const maxElementsPerLevel = 4096

// DateUTC counts nanoseconds from this instant.
var matroskaEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

type element struct {
	id   uint64
	data int64
	end  int64
}

// readVint decodes an EBML variable-length integer at off. With keepMarker
// the length marker bit stays in the value, as element ids are written.
// unknown reports the reserved all-ones size.
func readVint(r io.ReaderAt, off int64, keepMarker bool) (val uint64, n int, unknown bool, err error) {
	var b [8]byte
	if _, err := r.ReadAt(b[:1], off); err != nil {
		return 0, 0, false, err
	}
	if b[0] == 0 {
		return 0, 0, false, errMalformed
	}

	n = bits.LeadingZeros8(b[0]) + 1
	if n > 1 {
		if _, err := r.ReadAt(b[1:n], off+1); err != nil {
			return 0, 0, false, err
		}
	}

	if keepMarker {
		val = uint64(b[0])
	} else {
		val = uint64(b[0] & (0xFF >> n))
	}
	for _, x := range b[1:n] {
		val = val<<8 | uint64(x)
	}

	if !keepMarker {
		unknown = val == 1<<(7*n)-1
	}
	return val, n, unknown, nil
}

// readElement reads an element header at off. An unknown size extends the
// element to limit.
func readElement(r io.ReaderAt, off, limit int64) (element, error) {
	id, idLen, _, err := readVint(r, off, true)
	if err != nil {
		return element{}, err
	}
	if idLen > 4 {
		return element{}, errMalformed
	}

	size, sizeLen, unknown, err := readVint(r, off+int64(idLen), false)
	if err != nil {
		return element{}, err
	}

	e := element{id: id, data: off + int64(idLen) + int64(sizeLen)}
	switch {
	case e.data > limit:
		return element{}, errMalformed
	case unknown:
		e.end = limit
	case size > uint64(limit-e.data):
		return element{}, errMalformed
	default:
		e.end = e.data + int64(size)
	}
	return e, nil
}

// walkElements calls fn for every element in [start, end) until fn returns
// false.
func walkElements(r io.ReaderAt, start, end int64, fn func(element) (bool, error)) error {
	at := start
	for i := 0; at < end; i++ {
		if i == maxElementsPerLevel {
			return errMalformed
		}
		e, err := readElement(r, at, end)
		if err != nil {
			return err
		}
		more, err := fn(e)
		if err != nil || !more {
			return err
		}
		at = e.end
	}
	return nil
}

// matroskaCandidates reads Segment/Info/DateUTC. The search stops at the first
// Cluster since Info always precedes the media data.
func matroskaCandidates(r io.ReaderAt, size int64, _ *time.Location) ([]Candidate, error) {
	var out []Candidate

	err := walkElements(r, 0, size, func(seg element) (bool, error) {
		if seg.id != ebmlSegment {
			return true, nil
		}
		err := walkElements(r, seg.data, seg.end, func(e element) (bool, error) {
			switch e.id {
			case ebmlCluster:
				return false, nil
			case ebmlInfo:
				tm, ok, err := infoDate(r, e)
				if ok {
					out = append(out, Candidate{Attr: Created, Field: FieldMatroskaDateUTC, Time: tm})
				}
				return false, err
			}
			return true, nil
		})
		return false, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func infoDate(r io.ReaderAt, info element) (time.Time, bool, error) {
	var (
		tm time.Time
		ok bool
	)
	err := walkElements(r, info.data, info.end, func(e element) (bool, error) {
		if e.id != ebmlDateUTC {
			return true, nil
		}
		if e.end-e.data != 8 {
			return false, errMalformed
		}
		b, err := readAt(r, e.data, 8)
		if err != nil {
			return false, err
		}
		ns := int64(binary.BigEndian.Uint64(b))
		tm, ok = matroskaEpoch.Add(time.Duration(ns)), true
		return false, nil
	})
	return tm, ok, err
}
