// Package fsattr reads and writes the created and modified timestamps that
// the operating system keeps for a file.
//
// Creation time can be written on darwin and windows only. Symbolic links
// are never followed.
package fsattr

import (
	"errors"
	"io/fs"
	"time"
)

// ErrCreatedUnsupported is returned by SetCreated on platforms that cannot
// change a file's creation time.
var ErrCreatedUnsupported = errors.New("setting creation time is not supported on this platform")

// Times holds a file's filesystem timestamps. Created is zero when the
// filesystem does not report a creation time.
type Times struct {
	Created  time.Time
	Modified time.Time
}

// IsPermission reports whether err means the write was refused, either for
// lack of privilege or because the filesystem is read-only.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) || isReadOnly(err)
}

// OS accesses attributes on the local filesystem.
type OS struct{}

func (OS) Stat(path string) (Times, error)            { return Stat(path) }
func (OS) SetCreated(path string, t time.Time) error  { return SetCreated(path, t) }
func (OS) SetModified(path string, t time.Time) error { return SetModified(path, t) }
func (OS) CreatedWritable() bool                      { return CreatedWritable }
