// Package resolve decides, per file, which embedded timestamp to trust and
// whether each filesystem attribute needs to change.
//
// Candidate priority is fixed:
//
//	created:  DateTimeOriginal > DateTimeDigitized > mvhd > mdhd > Matroska DateUTC > filename
//	modified: DateTime
//
// Ties within the same field keep extraction order.
package resolve

import (
	"time"

	"github.com/quidome/mfdf/pkg/extract"
	"github.com/quidome/mfdf/pkg/fsattr"
)

// DefaultTolerance absorbs filesystem timestamp granularity (FAT stores
// modification times in 2 second steps).
const DefaultTolerance = 2 * time.Second

// Action describes what should happen to one attribute.
type Action string

const (
	ActionNotRecoverable Action = "not_recoverable"
	ActionAlreadyCorrect Action = "already_correct"
	ActionApply          Action = "apply"
)

// Decision is the outcome for one attribute.
type Decision struct {
	Action Action

	// Value is the embedded timestamp, set unless Action is not_recoverable.
	Value time.Time
	Field extract.Field

	// Current is the attribute as found on disk.
	Current time.Time
}

// Dates holds the decision for both attributes of a file.
type Dates struct {
	Created  Decision
	Modified Decision
}

// Pending reports whether any attribute needs to be written.
func (d Dates) Pending() bool {
	return d.Created.Action == ActionApply || d.Modified.Action == ActionApply
}

// Extracted is the highest-priority candidate per attribute. A zero Time
// means no candidate was found.
type Extracted struct {
	Created  extract.Candidate
	Modified extract.Candidate
}

var priority = map[extract.Attr][]extract.Field{
	extract.Created: {
		extract.FieldDateTimeOriginal,
		extract.FieldDateTimeDigitized,
		extract.FieldMovieHeader,
		extract.FieldMediaHeader,
		extract.FieldMatroskaDateUTC,
		extract.FieldFilename,
	},
	extract.Modified: {
		extract.FieldDateTime,
	},
}

// Rank returns the position of field in the priority list of attr, lower
// is better. Unknown fields rank last.
func Rank(attr extract.Attr, field extract.Field) int {
	fields := priority[attr]
	for i, f := range fields {
		if f == field {
			return i
		}
	}
	return len(fields)
}

// Select picks the best candidate per attribute.
func Select(candidates []extract.Candidate) Extracted {
	var x Extracted
	for _, c := range candidates {
		if c.Time.IsZero() {
			continue
		}
		best := &x.Created
		if c.Attr == extract.Modified {
			best = &x.Modified
		}
		if best.Time.IsZero() || Rank(c.Attr, c.Field) < Rank(best.Attr, best.Field) {
			*best = c
		}
	}
	return x
}

// Options configures Resolve.
type Options struct {
	// Tolerance is the largest difference treated as equal. Negative
	// values are treated as zero.
	Tolerance time.Duration

	// CreatedWritable is false on platforms that cannot set a creation
	// time. The created decision is then not_recoverable, and the created
	// value stands in for a missing modified value.
	CreatedWritable bool
}

// Resolve compares the selected candidates with the attributes on disk.
func Resolve(x Extracted, current fsattr.Times, opts Options) Dates {
	tol := max(opts.Tolerance, 0)

	created, modified := x.Created, x.Modified
	if !opts.CreatedWritable {
		if modified.Time.IsZero() && !created.Time.IsZero() {
			modified = created
			modified.Attr = extract.Modified
		}
		created = extract.Candidate{}
	}

	return Dates{
		Created:  decide(created, current.Created, tol),
		Modified: decide(modified, current.Modified, tol),
	}
}

func decide(c extract.Candidate, current time.Time, tol time.Duration) Decision {
	d := Decision{Current: current}
	if c.Time.IsZero() {
		d.Action = ActionNotRecoverable
		return d
	}

	d.Value, d.Field = c.Time, c.Field
	diff := c.Time.Sub(current)
	if diff < 0 {
		diff = -diff
	}
	// An unknown current value (zero) is always far enough away.
	if current.IsZero() || diff > tol {
		d.Action = ActionApply
	} else {
		d.Action = ActionAlreadyCorrect
	}
	return d
}
