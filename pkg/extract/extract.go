// Package extract reads embedded timestamps from supported media files.
//
// Every timestamp found is returned as a Candidate tagged with the field it
// came from; choosing between candidates is left to the resolve package.
// Malformed or truncated metadata yields no candidates rather than an error.
// Errors are reserved for files that cannot be read at all, or whose header
// matches no known container.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/quidome/mfdf/pkg/classify"
)

// ErrUnrecognizedHeader is returned when the leading bytes of a file match no
// supported container.
var ErrUnrecognizedHeader = errors.New("unrecognized container header")

// errMalformed marks metadata that is present but unusable.
var errMalformed = errors.New("malformed metadata")

// Attr is the filesystem attribute a candidate timestamp is meant for.
type Attr int

const (
	Created Attr = iota
	Modified
)

func (a Attr) String() string {
	if a == Modified {
		return "modified"
	}
	return "created"
}

// Field names the embedded field a timestamp was read from.
type Field string

const (
	FieldDateTimeOriginal  Field = "DateTimeOriginal"
	FieldDateTimeDigitized Field = "DateTimeDigitized"
	FieldDateTime          Field = "DateTime"
	FieldMovieHeader       Field = "mvhd.creation_time"
	FieldMediaHeader       Field = "mdhd.creation_time"
	FieldMatroskaDateUTC   Field = "Info.DateUTC"
	FieldFilename          Field = "filename"
)

// Candidate is one timestamp found in a file.
type Candidate struct {
	Attr  Attr
	Field Field
	Time  time.Time
}

// Metadata holds everything extracted from one file.
type Metadata struct {
	// Kind is the kind the file was parsed as, which follows the sniffed
	// content when it disagrees with the extension.
	Kind       classify.Kind
	Candidates []Candidate
}

// Empty reports whether no timestamp was found.
func (m Metadata) Empty() bool {
	return len(m.Candidates) == 0
}

// Options configures Extract.
type Options struct {
	// Location is used for embedded timestamps that carry no timezone.
	// If nil, time.Local is used.
	Location *time.Location

	// FilenameDates adds a lowest-priority created candidate parsed from
	// common camera and messenger file name patterns.
	FilenameDates bool
}

type parser func(r io.ReaderAt, size int64, loc *time.Location) ([]Candidate, error)

var parsers = map[classify.Format]parser{
	classify.FormatJPEG:     exifCandidates,
	classify.FormatTIFF:     exifCandidates,
	classify.FormatHEIF:     heifCandidates,
	classify.FormatRAF:      rafCandidates,
	classify.FormatISOBMFF:  quickTimeCandidates,
	classify.FormatMatroska: matroskaCandidates,
}

// Extract opens path and reads its embedded timestamps.
func Extract(path string, kind classify.Kind, opts Options) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{Kind: kind}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Metadata{Kind: kind}, fmt.Errorf("stat: %w", err)
	}

	return ExtractFrom(f, info.Size(), filepath.Base(path), kind, opts)
}

// ExtractFrom reads embedded timestamps from r, which holds size bytes of the
// file called name.
func ExtractFrom(r io.ReaderAt, size int64, name string, kind classify.Kind, opts Options) (Metadata, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	header := make([]byte, classify.SniffLen)
	n, err := r.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return Metadata{Kind: kind}, fmt.Errorf("read header: %w", err)
	}

	sniffed := classify.Sniff(header[:n])
	if !sniffed.Supported() {
		return Metadata{Kind: kind}, ErrUnrecognizedHeader
	}

	md := Metadata{Kind: sniffed}
	candidates, err := parsers[sniffed.Format](r, size, loc)
	if err != nil {
		if !isMalformed(err) {
			return md, fmt.Errorf("read %s metadata: %w", sniffed.Format, err)
		}
		candidates = nil
	}
	md.Candidates = candidates

	if opts.FilenameDates {
		if tm, ok := filenameTime(name, loc); ok {
			md.Candidates = append(md.Candidates, Candidate{Attr: Created, Field: FieldFilename, Time: tm})
		}
	}

	return md, nil
}

func isMalformed(err error) bool {
	return errors.Is(err, errMalformed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// readAt reads exactly n bytes at off.
func readAt(r io.ReaderAt, off, n int64) ([]byte, error) {
	if n < 0 || off < 0 {
		return nil, errMalformed
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, off); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
