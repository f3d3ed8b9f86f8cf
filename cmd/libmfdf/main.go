// Command libmfdf builds the C shared library used by the desktop front-ends:
//
//	go build -buildmode=c-shared -o libmfdf.so ./cmd/libmfdf
//
// make_report returns a heap string owned by the caller, or NULL when the run
// could not start. The caller must release it with free_string exactly once.
// Passing any other pointer to free_string, or the same pointer twice, is
// undefined.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/quidome/mfdf/pkg/boundary"
)

//export make_report
func make_report(path *C.char) (out *C.char) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	if path == nil {
		return nil
	}
	text, ok := boundary.MakeReport(goString(path))
	if !ok {
		return nil
	}
	return cString(text)
}

//export free_string
func free_string(s *C.char) {
	if s == nil {
		return
	}
	C.free(unsafe.Pointer(s))
}

// cString copies s to the C heap. The result is released with free_string.
func cString(s string) *C.char {
	return C.CString(s)
}

func goString(s *C.char) string {
	return C.GoString(s)
}

func main() {}
