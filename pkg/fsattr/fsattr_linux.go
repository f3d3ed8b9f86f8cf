//go:build linux

package fsattr

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Linux exposes birth time through statx but offers no way to set it.
const CreatedWritable = false

func Stat(path string) (Times, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_MTIME|unix.STATX_BTIME, &stx)
	if errors.Is(err, unix.ENOSYS) {
		return lstat(path)
	}
	if err != nil {
		return Times{}, &fs.PathError{Op: "statx", Path: path, Err: err}
	}

	t := Times{Modified: time.Unix(stx.Mtime.Sec, int64(stx.Mtime.Nsec))}
	if stx.Mask&unix.STATX_BTIME != 0 {
		t.Created = time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return t, nil
}

func lstat(path string) (Times, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Times{}, err
	}
	return Times{Modified: info.ModTime()}, nil
}

func SetCreated(path string, _ time.Time) error {
	return &fs.PathError{Op: "setcreated", Path: path, Err: ErrCreatedUnsupported}
}

// SetModified changes mtime and leaves atime alone.
func SetModified(path string, t time.Time) error {
	ts := []unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(t.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return &fs.PathError{Op: "utimensat", Path: path, Err: err}
	}
	return nil
}

func isReadOnly(err error) bool {
	return errors.Is(err, unix.EROFS)
}
