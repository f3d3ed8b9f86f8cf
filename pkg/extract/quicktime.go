package extract

import (
	"encoding/binary"
	"io"
	"time"
)

const (
	// Seconds between 1904-01-01 and 1970-01-01, the QuickTime epoch offset.
	macEpochOffset = 2082844800

	// 9999-12-31T23:59:59Z
	maxUnixSeconds = 253402300799
)

// quickTimeCandidates reads the movie header creation time, and the media
// header creation time of the first track that has one.
func quickTimeCandidates(r io.ReaderAt, size int64, _ *time.Location) ([]Candidate, error) {
	moov, ok, err := findBox(r, 0, size, "moov")
	if err != nil || !ok {
		return nil, err
	}

	var out []Candidate

	mvhd, ok, err := findBox(r, moov.body(), moov.end(), "mvhd")
	if err != nil {
		return nil, err
	}
	if ok {
		tm, ok, err := headerCreationTime(r, mvhd)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Candidate{Attr: Created, Field: FieldMovieHeader, Time: tm})
		}
	}

	err = walkBoxes(r, moov.body(), moov.end(), func(trak box) (bool, error) {
		if trak.typ != "trak" {
			return true, nil
		}
		mdia, ok, err := findBox(r, trak.body(), trak.end(), "mdia")
		if err != nil || !ok {
			return err == nil, err
		}
		mdhd, ok, err := findBox(r, mdia.body(), mdia.end(), "mdhd")
		if err != nil || !ok {
			return err == nil, err
		}
		tm, ok, err := headerCreationTime(r, mdhd)
		if err != nil {
			return false, err
		}
		if ok {
			out = append(out, Candidate{Attr: Created, Field: FieldMediaHeader, Time: tm})
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		// A damaged track list does not invalidate a good movie header.
		if len(out) > 0 && isMalformed(err) {
			return out, nil
		}
		return nil, err
	}
	return out, nil
}

// headerCreationTime decodes creation_time from an mvhd or mdhd full box.
// Version 0 stores 32-bit seconds, version 1 64-bit. Zero and pre-1970 values
// are treated as unset.
func headerCreationTime(r io.ReaderAt, b box) (time.Time, bool, error) {
	n := min(b.end()-b.body(), 12)
	if n < 8 {
		return time.Time{}, false, errMalformed
	}
	body, err := readAt(r, b.body(), n)
	if err != nil {
		return time.Time{}, false, err
	}

	var secs uint64
	switch body[0] {
	case 0:
		secs = uint64(binary.BigEndian.Uint32(body[4:8]))
	case 1:
		if len(body) < 12 {
			return time.Time{}, false, errMalformed
		}
		secs = binary.BigEndian.Uint64(body[4:12])
	default:
		return time.Time{}, false, nil
	}

	if secs <= macEpochOffset || secs-macEpochOffset > maxUnixSeconds {
		return time.Time{}, false, nil
	}
	return time.Unix(int64(secs-macEpochOffset), 0).UTC(), true, nil
}
