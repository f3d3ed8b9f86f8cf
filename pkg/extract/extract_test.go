package extract_test

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/quidome/mfdf/internal/mediatest"
	"github.com/quidome/mfdf/pkg/classify"
	"github.com/quidome/mfdf/pkg/extract"
)

func TestExtract_Formats(t *testing.T) {
	loc := time.FixedZone("TEST", 2*60*60)
	shot := time.Date(2021, 6, 5, 14, 30, 0, 0, loc)
	edited := time.Date(2022, 3, 1, 9, 0, 0, 0, loc)
	utc := time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC)

	full := mediatest.EXIF{
		DateTimeOriginal:  mediatest.ExifTime(shot),
		DateTimeDigitized: mediatest.ExifTime(shot.Add(time.Second)),
		DateTime:          mediatest.ExifTime(edited),
	}

	testCases := []struct {
		name string
		file string
		data []byte
		want []extract.Candidate
	}{
		{
			name: "jpeg with all date fields",
			file: "a.jpg",
			data: mediatest.JPEG(full),
			want: []extract.Candidate{
				{Attr: extract.Created, Field: extract.FieldDateTimeOriginal, Time: shot},
				{Attr: extract.Created, Field: extract.FieldDateTimeDigitized, Time: shot.Add(time.Second)},
				{Attr: extract.Modified, Field: extract.FieldDateTime, Time: edited},
			},
		},
		{
			name: "jpeg with DateTime only",
			file: "b.jpg",
			data: mediatest.JPEG(mediatest.EXIF{DateTime: mediatest.ExifTime(edited)}),
			want: []extract.Candidate{
				{Attr: extract.Modified, Field: extract.FieldDateTime, Time: edited},
			},
		},
		{
			name: "blank date is ignored",
			file: "c.jpg",
			data: mediatest.JPEG(mediatest.EXIF{DateTimeOriginal: "                   ", DateTime: mediatest.ExifTime(edited)}),
			want: []extract.Candidate{
				{Attr: extract.Modified, Field: extract.FieldDateTime, Time: edited},
			},
		},
		{
			name: "placeholder date is ignored",
			file: "d.jpg",
			data: mediatest.JPEG(mediatest.EXIF{DateTimeOriginal: "0000:00:00 00:00:00"}),
			want: nil,
		},
		{
			name: "tiff",
			file: "e.tif",
			data: mediatest.TIFF(mediatest.EXIF{DateTimeOriginal: mediatest.ExifTime(shot)}),
			want: []extract.Candidate{
				{Attr: extract.Created, Field: extract.FieldDateTimeOriginal, Time: shot},
			},
		},
		{
			name: "heic exif item",
			file: "f.heic",
			data: mediatest.HEIC(mediatest.EXIF{DateTimeOriginal: mediatest.ExifTime(shot)}),
			want: []extract.Candidate{
				{Attr: extract.Created, Field: extract.FieldDateTimeOriginal, Time: shot},
			},
		},
		{
			name: "raf embedded preview",
			file: "g.raf",
			data: mediatest.RAF(mediatest.EXIF{DateTimeOriginal: mediatest.ExifTime(shot), DateTime: mediatest.ExifTime(edited)}),
			want: []extract.Candidate{
				{Attr: extract.Created, Field: extract.FieldDateTimeOriginal, Time: shot},
				{Attr: extract.Modified, Field: extract.FieldDateTime, Time: edited},
			},
		},
		{
			name: "mp4 movie and media header",
			file: "h.mp4",
			data: mediatest.MP4(mediatest.Movie{Created: utc, MediaCreated: utc.Add(time.Minute)}),
			want: []extract.Candidate{
				{Attr: extract.Created, Field: extract.FieldMovieHeader, Time: utc},
				{Attr: extract.Created, Field: extract.FieldMediaHeader, Time: utc.Add(time.Minute)},
			},
		},
		{
			name: "mov with 64-bit header",
			file: "i.mov",
			data: mediatest.MP4(mediatest.Movie{Brand: "qt  ", Created: utc, Version1: true}),
			want: []extract.Candidate{
				{Attr: extract.Created, Field: extract.FieldMovieHeader, Time: utc},
			},
		},
		{
			name: "mp4 with unset creation times",
			file: "j.mp4",
			data: mediatest.MP4(mediatest.Movie{}),
			want: nil,
		},
		{
			name: "matroska DateUTC",
			file: "k.mkv",
			data: mediatest.Matroska(utc),
			want: []extract.Candidate{
				{Attr: extract.Created, Field: extract.FieldMatroskaDateUTC, Time: utc},
			},
		},
		{
			name: "matroska without DateUTC",
			file: "l.webm",
			data: mediatest.Matroska(time.Time{}),
			want: nil,
		},
		{
			name: "jpeg without exif",
			file: "m.jpg",
			data: mediatest.PlainJPEG(),
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := mediatest.WriteFile(t, t.TempDir(), tc.file, tc.data)

			md, err := extract.Extract(path, classify.Classify(path), extract.Options{Location: loc})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertCandidates(t, md.Candidates, tc.want)
			if md.Empty() != (len(tc.want) == 0) {
				t.Fatalf("Empty() = %v with %d candidates", md.Empty(), len(md.Candidates))
			}
		})
	}
}

func TestExtract_ContentWinsOverExtension(t *testing.T) {
	utc := time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC)
	path := mediatest.WriteFile(t, t.TempDir(), "clip.jpg", mediatest.MP4(mediatest.Movie{Created: utc}))

	md, err := extract.Extract(path, classify.Classify(path), extract.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := classify.Kind{Class: classify.Video, Format: classify.FormatISOBMFF}
	if md.Kind != want {
		t.Fatalf("unexpected kind\n got: %v\nwant: %v", md.Kind, want)
	}
	assertCandidates(t, md.Candidates, []extract.Candidate{
		{Attr: extract.Created, Field: extract.FieldMovieHeader, Time: utc},
	})
}

func TestExtract_UnrecognizedHeader(t *testing.T) {
	path := mediatest.WriteFile(t, t.TempDir(), "fake.jpg", []byte("this is a text file, not a photo"))

	_, err := extract.Extract(path, classify.Classify(path), extract.Options{})
	if !errors.Is(err, extract.ErrUnrecognizedHeader) {
		t.Fatalf("expected ErrUnrecognizedHeader, got %v", err)
	}
}

func TestExtract_TruncatedMetadataIsAbsent(t *testing.T) {
	utc := time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC)
	shot := mediatest.ExifTime(utc)

	testCases := []struct {
		name string
		file string
		data []byte
	}{
		{"jpeg", "a.jpg", mediatest.JPEG(mediatest.EXIF{DateTimeOriginal: shot})},
		{"heic", "b.heic", mediatest.HEIC(mediatest.EXIF{DateTimeOriginal: shot})},
		{"raf", "c.raf", mediatest.RAF(mediatest.EXIF{DateTimeOriginal: shot})},
		{"matroska", "e.mkv", mediatest.Matroska(utc)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.data[:len(tc.data)/2]
			path := mediatest.WriteFile(t, t.TempDir(), tc.file, data)

			md, err := extract.Extract(path, classify.Classify(path), extract.Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !md.Empty() {
				t.Fatalf("expected no candidates, got %v", md.Candidates)
			}
		})
	}
}

func TestExtract_HeifExtentsOutOfRangeAreAbsent(t *testing.T) {
	const maxInt64 = 1<<63 - 1

	testCases := []struct {
		name    string
		extents [][2]uint64
	}{
		{"lengths wrap the sum", [][2]uint64{{1, maxInt64}, {1, maxInt64}, {1, 10}}},
		{"length past end of file", [][2]uint64{{1, 1 << 40}}},
		{"offset beyond int64", [][2]uint64{{1 << 63, 10}}},
		{"offset past end of file", [][2]uint64{{1 << 40, 10}}},
	}

	kind := classify.Kind{Class: classify.Image, Format: classify.FormatHEIF}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := mediatest.HEICExtents(tc.extents...)

			md, err := extract.ExtractFrom(bytes.NewReader(data), int64(len(data)), "a.heic", kind, extract.Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !md.Empty() {
				t.Fatalf("expected no candidates, got %v", md.Candidates)
			}
		})
	}
}

func TestExtract_TruncatedMovieIsAbsent(t *testing.T) {
	data := mediatest.MP4(mediatest.Movie{Created: time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC)})
	// Cut inside moov so its declared size runs past the end of the file.
	path := mediatest.WriteFile(t, t.TempDir(), "cut.mp4", data[:60])

	md, err := extract.Extract(path, classify.Classify(path), extract.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !md.Empty() {
		t.Fatalf("expected no candidates, got %v", md.Candidates)
	}
}

func TestExtract_MissingFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jpg")

	_, err := extract.Extract(path, classify.Classify(path), extract.Options{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

var errDisk = errors.New("disk on fire")

// failingReader serves the first n bytes of data and fails after that.
type failingReader struct {
	data []byte
	n    int64
}

func (f failingReader) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > f.n {
		return 0, errDisk
	}
	return copy(p, f.data[off:]), nil
}

func TestExtractFrom_ReadErrorIsReturned(t *testing.T) {
	data := mediatest.MP4(mediatest.Movie{Created: time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC)})
	kind := classify.Kind{Class: classify.Video, Format: classify.FormatISOBMFF}

	for _, n := range []int64{0, 40} {
		r := failingReader{data: data, n: n}
		_, err := extract.ExtractFrom(r, int64(len(data)), "a.mp4", kind, extract.Options{})
		if !errors.Is(err, errDisk) {
			t.Fatalf("readable=%d: expected disk error, got %v", n, err)
		}
	}
}

func TestExtractFrom_FilenameDates(t *testing.T) {
	loc := time.FixedZone("TEST", -7*60*60)
	data := mediatest.PlainJPEG()
	kind := classify.Kind{Class: classify.Image, Format: classify.FormatJPEG}

	md, err := extract.ExtractFrom(bytes.NewReader(data), int64(len(data)), "IMG_20250102_030405.jpg", kind,
		extract.Options{Location: loc, FilenameDates: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCandidates(t, md.Candidates, []extract.Candidate{
		{Attr: extract.Created, Field: extract.FieldFilename, Time: time.Date(2025, 1, 2, 3, 4, 5, 0, loc)},
	})

	md, err = extract.ExtractFrom(bytes.NewReader(data), int64(len(data)), "IMG_20250102_030405.jpg", kind,
		extract.Options{Location: loc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !md.Empty() {
		t.Fatalf("filename dates are opt-in, got %v", md.Candidates)
	}
}

func assertCandidates(t *testing.T, got, want []extract.Candidate) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("unexpected candidates\n got: %v\nwant: %v", got, want)
	}
	for i := range want {
		if got[i].Attr != want[i].Attr || got[i].Field != want[i].Field || !got[i].Time.Equal(want[i].Time) {
			t.Fatalf("unexpected candidate %d\n got: %+v\nwant: %+v", i, got[i], want[i])
		}
	}
}
