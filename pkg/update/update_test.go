package update

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/quidome/mfdf/pkg/extract"
	"github.com/quidome/mfdf/pkg/report"
	"github.com/quidome/mfdf/pkg/resolve"
)

type call struct {
	attr string
	path string
	t    time.Time
}

type fakeWriter struct {
	createdErr  error
	modifiedErr error

	calls []call
}

func (f *fakeWriter) SetCreated(path string, t time.Time) error {
	f.calls = append(f.calls, call{"created", path, t})
	return f.createdErr
}

func (f *fakeWriter) SetModified(path string, t time.Time) error {
	f.calls = append(f.calls, call{"modified", path, t})
	return f.modifiedErr
}

var when = time.Date(2021, 6, 5, 14, 30, 0, 0, time.UTC)

func decision(a resolve.Action) resolve.Decision {
	d := resolve.Decision{Action: a}
	if a != resolve.ActionNotRecoverable {
		d.Value, d.Field = when, extract.FieldDateTimeOriginal
	}
	return d
}

func TestApply_Tags(t *testing.T) {
	permission := &fs.PathError{Op: "utimensat", Path: "a.jpg", Err: fs.ErrPermission}
	other := errors.New("input/output error")

	testCases := []struct {
		name        string
		created     resolve.Action
		modified    resolve.Action
		createdErr  error
		modifiedErr error
		wantTag     report.Tag
		wantCalls   []string
	}{
		{
			name:     "both not recoverable",
			created:  resolve.ActionNotRecoverable,
			modified: resolve.ActionNotRecoverable,
			wantTag:  report.TagMetadataAbsent,
		},
		{
			name:     "already correct",
			created:  resolve.ActionNotRecoverable,
			modified: resolve.ActionAlreadyCorrect,
			wantTag:  report.TagAlreadyCorrect,
		},
		{
			name:      "modified applied",
			created:   resolve.ActionAlreadyCorrect,
			modified:  resolve.ActionApply,
			wantTag:   report.TagFixed,
			wantCalls: []string{"modified"},
		},
		{
			name:      "both applied modified first",
			created:   resolve.ActionApply,
			modified:  resolve.ActionApply,
			wantTag:   report.TagFixed,
			wantCalls: []string{"modified", "created"},
		},
		{
			name:        "permission denied still tries created",
			created:     resolve.ActionApply,
			modified:    resolve.ActionApply,
			modifiedErr: permission,
			wantTag:     report.TagPermissionError,
			wantCalls:   []string{"modified", "created"},
		},
		{
			name:       "other failure is io error",
			created:    resolve.ActionApply,
			modified:   resolve.ActionNotRecoverable,
			createdErr: other,
			wantTag:    report.TagIOError,
			wantCalls:  []string{"created"},
		},
		{
			name:        "permission wins over io error",
			created:     resolve.ActionApply,
			modified:    resolve.ActionApply,
			modifiedErr: other,
			createdErr:  permission,
			wantTag:     report.TagPermissionError,
			wantCalls:   []string{"modified", "created"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := &fakeWriter{createdErr: tc.createdErr, modifiedErr: tc.modifiedErr}
			u := New(w, false, nil)

			res := u.Apply("a.jpg", resolve.Dates{Created: decision(tc.created), Modified: decision(tc.modified)})
			if res.Tag != tc.wantTag {
				t.Fatalf("tag = %q, want %q (message %q)", res.Tag, tc.wantTag, res.Message)
			}

			var got []string
			for _, c := range w.calls {
				got = append(got, c.attr)
				if !c.t.Equal(when) {
					t.Fatalf("%s written with %v, want %v", c.attr, c.t, when)
				}
			}
			if strings.Join(got, ",") != strings.Join(tc.wantCalls, ",") {
				t.Fatalf("unexpected writes\n got: %v\nwant: %v", got, tc.wantCalls)
			}
			if res.Tag.Failed() != (res.Err != nil) {
				t.Fatalf("Err = %v for tag %q", res.Err, res.Tag)
			}
		})
	}
}

func TestApply_BothFailuresAreReported(t *testing.T) {
	w := &fakeWriter{createdErr: errors.New("created broke"), modifiedErr: errors.New("modified broke")}
	res := New(w, false, nil).Apply("a.jpg", resolve.Dates{
		Created:  decision(resolve.ActionApply),
		Modified: decision(resolve.ActionApply),
	})

	if !strings.Contains(res.Message, "created broke") || !strings.Contains(res.Message, "modified broke") {
		t.Fatalf("message should carry both failures, got %q", res.Message)
	}
}

func TestApply_DryRunWritesNothing(t *testing.T) {
	w := &fakeWriter{}
	res := New(w, true, nil).Apply("a.jpg", resolve.Dates{
		Created:  decision(resolve.ActionApply),
		Modified: decision(resolve.ActionApply),
	})

	if res.Tag != report.TagFixed {
		t.Fatalf("tag = %q, want %q", res.Tag, report.TagFixed)
	}
	if len(w.calls) != 0 {
		t.Fatalf("dry run wrote attributes: %v", w.calls)
	}
	if !strings.HasPrefix(res.Message, "would set ") {
		t.Fatalf("unexpected message %q", res.Message)
	}
}
