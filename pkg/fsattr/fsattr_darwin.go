//go:build darwin

package fsattr

import (
	"errors"
	"io/fs"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const CreatedWritable = true

func Stat(path string) (Times, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return Times{}, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	return Times{
		Created:  time.Unix(st.Birthtimespec.Unix()),
		Modified: time.Unix(st.Mtimespec.Unix()),
	}, nil
}

// SetCreated writes ATTR_CMN_CRTIME with setattrlist(2).
func SetCreated(path string, t time.Time) error {
	attrs := unix.Attrlist{
		Bitmapcount: unix.ATTR_BIT_MAP_COUNT,
		Commonattr:  unix.ATTR_CMN_CRTIME,
	}
	ts := unix.NsecToTimespec(t.UnixNano())
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&ts)), unsafe.Sizeof(ts))

	if err := unix.Setattrlist(path, &attrs, buf, unix.FSOPT_NOFOLLOW); err != nil {
		return &fs.PathError{Op: "setattrlist", Path: path, Err: err}
	}
	return nil
}

// SetModified changes mtime and leaves atime alone. Setting mtime below the
// birth time also lowers the birth time.
func SetModified(path string, t time.Time) error {
	return os.Chtimes(path, time.Time{}, t)
}

func isReadOnly(err error) bool {
	return errors.Is(err, unix.EROFS)
}
