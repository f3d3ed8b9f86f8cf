// Package scan enumerates the regular files under a root directory.
//
// The walk is iterative and lazy: entries are produced as the consumer pulls
// them, and every call to Walk starts over. Symbolic links are never
// followed or reported.
package scan

import (
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

type Options struct {
	// MaxDepth limits how many directory levels below the root are
	// entered. -1 means unlimited, 0 means root files only.
	MaxDepth int

	// SkipHidden skips dot-prefixed files and directories.
	SkipHidden bool
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:   -1,
		SkipHidden: true,
	}
}

// Entry is one regular file, or one directory that could not be read.
type Entry struct {
	// Path is the root joined with Rel.
	Path string
	// Rel is slash-separated and relative to the root.
	Rel string
	// Err is set when the directory at Path could not be listed.
	Err error
}

type Walker struct {
	fsys   fs.FS
	root   string
	opts   Options
	logger *zap.Logger
}

// New returns a Walker over the directory root on the local filesystem.
func New(root string, opts Options, logger *zap.Logger) (*Walker, error) {
	return NewFS(os.DirFS(root), root, opts, logger)
}

// NewFS returns a Walker over fsys. Entry paths are joined onto root.
func NewFS(fsys fs.FS, root string, opts Options, logger *zap.Logger) (*Walker, error) {
	if opts.MaxDepth < -1 {
		return nil, fs.ErrInvalid
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{fsys: fsys, root: root, opts: opts, logger: logger}, nil
}

type frame struct {
	dir   string
	depth int
}

// Walk yields the files of each directory in lexical order before
// descending into its subdirectories, also in lexical order.
func (w *Walker) Walk() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		stack := []frame{{dir: ".", depth: 0}}

		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			entries, err := fs.ReadDir(w.fsys, f.dir)
			if err != nil {
				w.logger.Warn("cannot read directory", zap.String("path", w.path(f.dir)), zap.Error(err))
				if !yield(Entry{Path: w.path(f.dir), Rel: f.dir, Err: err}) {
					return
				}
				// ReadDir may still have returned the entries read before the error.
			}

			var subdirs []frame
			for _, e := range entries {
				name := e.Name()
				if w.opts.SkipHidden && strings.HasPrefix(name, ".") {
					continue
				}
				rel := path.Join(f.dir, name)

				switch typ := e.Type(); {
				case typ&fs.ModeSymlink != 0:
					w.logger.Debug("skipping symlink", zap.String("path", w.path(rel)))
				case typ.IsDir():
					if w.opts.MaxDepth >= 0 && f.depth+1 > w.opts.MaxDepth {
						continue
					}
					subdirs = append(subdirs, frame{dir: rel, depth: f.depth + 1})
				case typ.IsRegular():
					if !yield(Entry{Path: w.path(rel), Rel: rel}) {
						return
					}
				default:
					w.logger.Debug("skipping special file", zap.String("path", w.path(rel)))
				}
			}

			for i := len(subdirs) - 1; i >= 0; i-- {
				stack = append(stack, subdirs[i])
			}
		}
	}
}

func (w *Walker) path(rel string) string {
	if rel == "." {
		return w.root
	}
	return filepath.Join(w.root, filepath.FromSlash(rel))
}
