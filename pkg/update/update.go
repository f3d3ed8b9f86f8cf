// Package update applies resolved dates to filesystem attributes and turns
// the result into a report tag.
package update

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/quidome/mfdf/pkg/fsattr"
	"github.com/quidome/mfdf/pkg/report"
	"github.com/quidome/mfdf/pkg/resolve"
)

// AttrWriter writes filesystem timestamps. fsattr.OS is the default.
type AttrWriter interface {
	SetCreated(path string, t time.Time) error
	SetModified(path string, t time.Time) error
}

// Result is the outcome of Apply.
type Result struct {
	Tag     report.Tag
	Message string
	Err     error
}

// Updater writes the attributes marked for change.
type Updater struct {
	w      AttrWriter
	dryRun bool
	logger *zap.Logger
}

// New returns an Updater. A nil w writes through fsattr.OS, a nil logger
// discards output. With dryRun nothing is written.
func New(w AttrWriter, dryRun bool, logger *zap.Logger) *Updater {
	if w == nil {
		w = fsattr.OS{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{w: w, dryRun: dryRun, logger: logger}
}

// Apply writes the attributes of path marked apply in d. Modified is written
// before created; a failure on one does not skip the other.
func (u *Updater) Apply(path string, d resolve.Dates) Result {
	if !d.Pending() {
		if d.Created.Action == resolve.ActionAlreadyCorrect || d.Modified.Action == resolve.ActionAlreadyCorrect {
			return Result{Tag: report.TagAlreadyCorrect}
		}
		return Result{Tag: report.TagMetadataAbsent, Message: "no embedded date found"}
	}

	var (
		err     error
		applied []string
	)
	if d.Modified.Action == resolve.ActionApply {
		if werr := u.write(u.w.SetModified, path, "modified", d.Modified); werr != nil {
			err = multierr.Append(err, werr)
		} else {
			applied = append(applied, describe("modified", d.Modified))
		}
	}
	if d.Created.Action == resolve.ActionApply {
		if werr := u.write(u.w.SetCreated, path, "created", d.Created); werr != nil {
			err = multierr.Append(err, werr)
		} else {
			applied = append(applied, describe("created", d.Created))
		}
	}

	if err != nil {
		tag := report.TagIOError
		for _, e := range multierr.Errors(err) {
			if fsattr.IsPermission(e) {
				tag = report.TagPermissionError
				break
			}
		}
		return Result{Tag: tag, Message: err.Error(), Err: err}
	}

	msg := strings.Join(applied, ", ")
	if u.dryRun {
		msg = "would set " + msg
	}
	return Result{Tag: report.TagFixed, Message: msg}
}

func (u *Updater) write(set func(string, time.Time) error, path, attr string, d resolve.Decision) error {
	if u.dryRun {
		u.logger.Debug("dry run, skipping write",
			zap.String("path", path), zap.String("attr", attr), zap.Time("value", d.Value))
		return nil
	}
	if err := set(path, d.Value); err != nil {
		u.logger.Warn("attribute write failed",
			zap.String("path", path), zap.String("attr", attr), zap.Error(err))
		return fmt.Errorf("set %s: %w", attr, err)
	}
	u.logger.Debug("attribute written",
		zap.String("path", path), zap.String("attr", attr),
		zap.Time("from", d.Current), zap.Time("to", d.Value), zap.String("field", string(d.Field)))
	return nil
}

func describe(attr string, d resolve.Decision) string {
	return fmt.Sprintf("%s %s from %s", attr, d.Value.Format(time.RFC3339), d.Field)
}
