package extract

import (
	"encoding/binary"
	"io"
	"math"
)

// maxBoxesPerLevel bounds the work spent on a single container level.
const maxBoxesPerLevel = 4096

// box is an ISO base media file format box (a QuickTime atom).
type box struct {
	typ    string
	start  int64
	hdrLen int64
	size   int64
}

func (b box) body() int64 { return b.start + b.hdrLen }
func (b box) end() int64  { return b.start + b.size }

func readBoxHeader(r io.ReaderAt, at, limit int64) (box, error) {
	var hdr [16]byte
	if _, err := r.ReadAt(hdr[:8], at); err != nil {
		return box{}, err
	}

	b := box{
		typ:    string(hdr[4:8]),
		start:  at,
		hdrLen: 8,
		size:   int64(binary.BigEndian.Uint32(hdr[:4])),
	}

	switch b.size {
	case 1:
		if limit-at < 16 {
			return box{}, errMalformed
		}
		if _, err := r.ReadAt(hdr[8:16], at+8); err != nil {
			return box{}, err
		}
		large := binary.BigEndian.Uint64(hdr[8:16])
		if large > math.MaxInt64 {
			return box{}, errMalformed
		}
		b.size = int64(large)
		b.hdrLen = 16
	case 0:
		// Extends to the end of the enclosing container.
		b.size = limit - at
	}

	if b.size < b.hdrLen || b.size > limit-at {
		return box{}, errMalformed
	}
	return b, nil
}

// walkBoxes calls fn for every box in [start, end) until fn returns false.
// Trailing bytes too short to hold a box header are ignored.
func walkBoxes(r io.ReaderAt, start, end int64, fn func(box) (bool, error)) error {
	at := start
	for i := 0; end-at >= 8; i++ {
		if i == maxBoxesPerLevel {
			return errMalformed
		}
		b, err := readBoxHeader(r, at, end)
		if err != nil {
			return err
		}
		more, err := fn(b)
		if err != nil || !more {
			return err
		}
		at = b.end()
	}
	return nil
}

// findBox returns the first box of type typ in [start, end).
func findBox(r io.ReaderAt, start, end int64, typ string) (box, bool, error) {
	var (
		found box
		ok    bool
	)
	err := walkBoxes(r, start, end, func(b box) (bool, error) {
		if b.typ == typ {
			found, ok = b, true
			return false, nil
		}
		return true, nil
	})
	return found, ok, err
}

// cursor decodes big-endian integers of variable width from a byte slice.
// Reading past the end sets short instead of panicking.
type cursor struct {
	b     []byte
	off   int
	short bool
}

func (c *cursor) uint(n int) uint64 {
	if n == 0 {
		return 0
	}
	if c.off+n > len(c.b) {
		c.short = true
		return 0
	}
	var v uint64
	for _, x := range c.b[c.off : c.off+n] {
		v = v<<8 | uint64(x)
	}
	c.off += n
	return v
}
