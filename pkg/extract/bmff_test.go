package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestReadBoxHeader(t *testing.T) {
	large := make([]byte, 24)
	binary.BigEndian.PutUint32(large, 1)
	copy(large[4:], "mdat")
	binary.BigEndian.PutUint64(large[8:], 24)

	toEnd := []byte("\x00\x00\x00\x00mdat\x01\x02\x03\x04")

	testCases := []struct {
		name       string
		data       []byte
		wantSize   int64
		wantHdrLen int64
		wantErr    error
	}{
		{"compact", []byte("\x00\x00\x00\x0cfree\x00\x00\x00\x00"), 12, 8, nil},
		{"64-bit size", large, 24, 16, nil},
		{"size zero runs to end", toEnd, int64(len(toEnd)), 8, nil},
		{"size past end", []byte("\x00\x00\x00\x40moov\x00\x00\x00\x00"), 0, 0, errMalformed},
		{"size smaller than header", []byte("\x00\x00\x00\x04moov\x00\x00\x00\x00"), 0, 0, errMalformed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := readBoxHeader(bytes.NewReader(tc.data), 0, int64(len(tc.data)))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				return
			}
			if b.size != tc.wantSize || b.hdrLen != tc.wantHdrLen {
				t.Fatalf("got size=%d hdrLen=%d, want size=%d hdrLen=%d", b.size, b.hdrLen, tc.wantSize, tc.wantHdrLen)
			}
		})
	}
}

func TestReadVint(t *testing.T) {
	testCases := []struct {
		name        string
		data        []byte
		keepMarker  bool
		wantVal     uint64
		wantLen     int
		wantUnknown bool
	}{
		{"one byte size", []byte{0x81}, false, 1, 1, false},
		{"two byte size", []byte{0x40, 0x02}, false, 2, 2, false},
		{"segment id", []byte{0x18, 0x53, 0x80, 0x67}, true, 0x18538067, 4, false},
		{"unknown size", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, false, 1<<56 - 1, 8, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			val, n, unknown, err := readVint(bytes.NewReader(tc.data), 0, tc.keepMarker)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if val != tc.wantVal || n != tc.wantLen || unknown != tc.wantUnknown {
				t.Fatalf("got (%#x, %d, %v), want (%#x, %d, %v)", val, n, unknown, tc.wantVal, tc.wantLen, tc.wantUnknown)
			}
		})
	}

	if _, _, _, err := readVint(bytes.NewReader([]byte{0x00}), 0, false); !errors.Is(err, errMalformed) {
		t.Fatalf("expected errMalformed for a zero lead byte, got %v", err)
	}
}

func TestExifItemTIFF(t *testing.T) {
	tiff := []byte("II*\x00\x08\x00\x00\x00")

	withMarker := append([]byte{0, 0, 0, 6}, "Exif\x00\x00"...)
	withMarker = append(withMarker, tiff...)
	if got, err := exifItemTIFF(withMarker); err != nil || !bytes.Equal(got, tiff) {
		t.Fatalf("offset 6: got %q, %v", got, err)
	}

	zeroOffset := append([]byte{0, 0, 0, 0}, "Exif\x00\x00"...)
	zeroOffset = append(zeroOffset, tiff...)
	if got, err := exifItemTIFF(zeroOffset); err != nil || !bytes.Equal(got, tiff) {
		t.Fatalf("offset 0: got %q, %v", got, err)
	}

	if _, err := exifItemTIFF([]byte{0, 0, 1, 0, 'x'}); !errors.Is(err, errMalformed) {
		t.Fatalf("expected errMalformed, got %v", err)
	}
}
