//go:build !linux && !darwin && !windows

package fsattr

import (
	"io/fs"
	"os"
	"time"
)

const CreatedWritable = false

func Stat(path string) (Times, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Times{}, err
	}
	return Times{Modified: info.ModTime()}, nil
}

func SetCreated(path string, _ time.Time) error {
	return &fs.PathError{Op: "setcreated", Path: path, Err: ErrCreatedUnsupported}
}

func SetModified(path string, t time.Time) error {
	return os.Chtimes(path, time.Time{}, t)
}

func isReadOnly(error) bool { return false }
