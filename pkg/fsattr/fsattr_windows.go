//go:build windows

package fsattr

import (
	"errors"
	"io/fs"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const CreatedWritable = true

func Stat(path string) (Times, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return Times{}, &fs.PathError{Op: "stat", Path: path, Err: err}
	}

	var data windows.Win32FileAttributeData
	if err := windows.GetFileAttributesEx(p, windows.GetFileExInfoStandard, (*byte)(unsafe.Pointer(&data))); err != nil {
		return Times{}, &fs.PathError{Op: "GetFileAttributesEx", Path: path, Err: err}
	}
	return Times{
		Created:  time.Unix(0, data.CreationTime.Nanoseconds()),
		Modified: time.Unix(0, data.LastWriteTime.Nanoseconds()),
	}, nil
}

func SetCreated(path string, t time.Time) error {
	ft := windows.NsecToFiletime(t.UnixNano())
	return setFileTime(path, &ft, nil)
}

func SetModified(path string, t time.Time) error {
	ft := windows.NsecToFiletime(t.UnixNano())
	return setFileTime(path, nil, &ft)
}

// setFileTime opens the entry itself, not a reparse point target, and leaves
// nil times unchanged.
func setFileTime(path string, ctime, mtime *windows.Filetime) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return &fs.PathError{Op: "open", Path: path, Err: err}
	}

	h, err := windows.CreateFile(p,
		windows.FILE_WRITE_ATTRIBUTES,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OPEN_REPARSE_POINT,
		0)
	if err != nil {
		return &fs.PathError{Op: "open", Path: path, Err: err}
	}
	defer windows.CloseHandle(h)

	if err := windows.SetFileTime(h, ctime, nil, mtime); err != nil {
		return &fs.PathError{Op: "SetFileTime", Path: path, Err: err}
	}
	return nil
}

func isReadOnly(err error) bool {
	return errors.Is(err, windows.ERROR_WRITE_PROTECT)
}
