package extract

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// exifFields lists the EXIF date fields read, in priority order per attribute.
var exifFields = []struct {
	name  exif.FieldName
	attr  Attr
	field Field
}{
	{exif.DateTimeOriginal, Created, FieldDateTimeOriginal},
	{exif.DateTimeDigitized, Created, FieldDateTimeDigitized},
	{exif.DateTime, Modified, FieldDateTime},
}

// Some writers use dashes or append a zone designator.
var exifLayouts = []string{
	"2006:01:02 15:04:05",
	"2006:01:02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// exifCandidates decodes a JPEG or bare TIFF stream.
func exifCandidates(r io.ReaderAt, size int64, loc *time.Location) ([]Candidate, error) {
	return decodeExif(io.NewSectionReader(r, 0, size), loc)
}

// decodeExif returns every readable date field in the EXIF stream r. Blank or
// unparseable dates are skipped. Only read errors from r itself are returned.
func decodeExif(r io.Reader, loc *time.Location) ([]Candidate, error) {
	sr := &stickyReader{r: r}
	x, err := exif.Decode(sr)
	if sr.err != nil {
		return nil, sr.err
	}
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		// No EXIF block, or one too damaged to walk.
		return nil, nil
	}

	var out []Candidate
	for _, f := range exifFields {
		if tm, ok := exifTime(x, f.name, loc); ok {
			out = append(out, Candidate{Attr: f.attr, Field: f.field, Time: tm})
		}
	}
	return out, nil
}

func exifTime(x *exif.Exif, name exif.FieldName, loc *time.Location) (time.Time, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return time.Time{}, false
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	return parseExifTime(s, loc)
}

func parseExifTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range exifLayouts {
		// Placeholder values such as "0000:00:00 00:00:00" fail here.
		if tm, err := time.ParseInLocation(layout, s, loc); err == nil {
			return tm, true
		}
	}
	return time.Time{}, false
}

// stickyReader remembers the first read error that is not end of input, so a
// failing disk is not mistaken for a file without EXIF.
type stickyReader struct {
	r   io.Reader
	err error
}

func (s *stickyReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && s.err == nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.err = err
	}
	return n, err
}
