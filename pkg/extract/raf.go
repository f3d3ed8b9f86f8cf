package extract

import (
	"encoding/binary"
	"io"
	"time"
)

// A RAF file embeds a full JPEG preview whose EXIF block carries the capture
// dates. Its offset and length are big-endian at fixed header positions.
const (
	rafJPEGOffsetPos = 84
	rafHeaderLen     = 92
)

func rafCandidates(r io.ReaderAt, size int64, loc *time.Location) ([]Candidate, error) {
	if size < rafHeaderLen {
		return nil, errMalformed
	}
	hdr, err := readAt(r, 0, rafHeaderLen)
	if err != nil {
		return nil, err
	}

	off := int64(binary.BigEndian.Uint32(hdr[rafJPEGOffsetPos:]))
	length := int64(binary.BigEndian.Uint32(hdr[rafJPEGOffsetPos+4:]))
	if off < rafHeaderLen || length == 0 || off+length > size {
		return nil, errMalformed
	}

	return decodeExif(io.NewSectionReader(r, off, length), loc)
}
