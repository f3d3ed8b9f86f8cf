// Package boundary is the single entry point used by foreign callers. It
// turns a root path into report text and never lets a panic escape.
package boundary

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/quidome/mfdf/pkg/engine"
)

// ErrInvalidEncoding is returned for an empty path or one that is not valid
// UTF-8.
var ErrInvalidEncoding = errors.New("path is not valid UTF-8")

// Options is the engine configuration used for every call. Foreign callers
// pass only a path, so it is fixed at defaults.
func Options() engine.Options {
	opts := engine.DefaultOptions()
	opts.Logger = zap.NewNop()
	return opts
}

// Run processes root and returns the report text. Failures that prevent the
// run from starting, including panics, are returned as errors.
func Run(root string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("internal error: %v", r)
		}
	}()

	if root == "" || !utf8.ValidString(root) {
		return "", ErrInvalidEncoding
	}

	r, err := engine.New(Options()).Run(root)
	if err != nil {
		return "", err
	}
	return r.Text(), nil
}

// MakeReport is Run with the error folded into ok, matching the null
// sentinel of the C interface.
func MakeReport(root string) (text string, ok bool) {
	text, err := Run(root)
	return text, err == nil
}
