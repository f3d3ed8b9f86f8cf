// Package engine runs the date recovery pipeline over a directory tree.
//
// Each file goes through classify, extract, resolve and update exactly once,
// on one worker. Every file produces one report record; failures are
// recorded and never stop the run.
package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quidome/mfdf/pkg/classify"
	"github.com/quidome/mfdf/pkg/extract"
	"github.com/quidome/mfdf/pkg/fsattr"
	"github.com/quidome/mfdf/pkg/report"
	"github.com/quidome/mfdf/pkg/resolve"
	"github.com/quidome/mfdf/pkg/scan"
	"github.com/quidome/mfdf/pkg/update"
)

var (
	ErrRootNotFound     = errors.New("root does not exist")
	ErrRootNotDirectory = errors.New("root is not a directory")
	ErrRootUnreadable   = errors.New("root cannot be read")
)

// Attrs reads and writes filesystem timestamps. fsattr.OS is the default.
type Attrs interface {
	update.AttrWriter
	Stat(path string) (fsattr.Times, error)
	CreatedWritable() bool
}

// Options configures an Engine.
type Options struct {
	// Workers is the number of files processed in parallel. Zero or less
	// means one per CPU.
	Workers int

	Tolerance     time.Duration
	SkipHidden    bool
	MaxDepth      int
	FilenameDates bool
	DryRun        bool

	// Location is used for embedded times without a zone. Nil means local.
	Location *time.Location

	Logger *zap.Logger
	Attrs  Attrs
}

func DefaultOptions() Options {
	return Options{
		Workers:    runtime.NumCPU(),
		Tolerance:  resolve.DefaultTolerance,
		SkipHidden: true,
		MaxDepth:   -1,
	}
}

type Engine struct {
	opts    Options
	logger  *zap.Logger
	attrs   Attrs
	updater *update.Updater
}

func New(opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Attrs == nil {
		opts.Attrs = fsattr.OS{}
	}
	return &Engine{
		opts:    opts,
		logger:  opts.Logger,
		attrs:   opts.Attrs,
		updater: update.New(opts.Attrs, opts.DryRun, opts.Logger),
	}
}

// Run processes every file under root and returns the report. An error is
// returned only when root itself cannot be walked.
func (e *Engine) Run(root string) (*report.Report, error) {
	start := time.Now()

	abs, err := checkRoot(root)
	if err != nil {
		return nil, err
	}

	walker, err := scan.New(abs, scan.Options{MaxDepth: e.opts.MaxDepth, SkipHidden: e.opts.SkipHidden}, e.logger)
	if err != nil {
		return nil, fmt.Errorf("create walker: %w", err)
	}

	e.logger.Info("starting run",
		zap.String("root", abs),
		zap.Int("workers", e.opts.Workers),
		zap.Bool("dry_run", e.opts.DryRun))

	records := e.process(abs, walker)

	r := report.Build(abs, records)
	r.DryRun = e.opts.DryRun
	r.Elapsed = time.Since(start)

	e.logger.Info("run complete",
		zap.Int("examined", r.Total()),
		zap.Int("fixed", r.Counts[report.TagFixed]),
		zap.Int("failed", r.Failures()),
		zap.Duration("elapsed", r.Elapsed))
	return r, nil
}

// process feeds walker entries to the worker pool. Each worker keeps its own
// records; they are merged once all workers are done.
func (e *Engine) process(root string, walker *scan.Walker) []report.Record {
	workers := e.opts.Workers
	entries := make(chan scan.Entry, workers*2)
	buffers := make([][]report.Record, workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for entry := range entries {
				buffers[i] = append(buffers[i], e.processEntry(entry))
			}
			return nil
		})
	}

	var walkFailure []report.Record
	func() {
		defer close(entries)
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("walk aborted", zap.String("root", root), zap.Any("panic", r))
				walkFailure = append(walkFailure, report.Record{
					Path:    root,
					Tag:     report.TagIOError,
					Message: fmt.Sprintf("walk aborted: %v", r),
				})
			}
		}()
		for entry := range walker.Walk() {
			entries <- entry
		}
	}()

	_ = g.Wait()

	var records []report.Record
	for _, b := range buffers {
		records = append(records, b...)
	}
	return append(records, walkFailure...)
}

func (e *Engine) processEntry(entry scan.Entry) (rec report.Record) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while processing file", zap.String("path", entry.Path), zap.Any("panic", r))
			rec = report.Record{Path: entry.Path, Tag: report.TagIOError, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if entry.Err != nil {
		return report.Record{Path: entry.Path, Tag: report.TagIOError, Message: fmt.Sprintf("read directory: %v", entry.Err)}
	}

	kind := classify.Classify(entry.Path)
	if !kind.Supported() {
		return report.Record{Path: entry.Path, Tag: report.TagIgnored}
	}

	insp, err := e.inspect(entry.Path, kind)
	if err != nil {
		e.logger.Debug("cannot read file", zap.String("path", entry.Path), zap.Error(err))
		return report.Record{Path: entry.Path, Tag: report.TagIOError, Message: err.Error()}
	}

	res := e.updater.Apply(entry.Path, insp.Dates)
	return report.Record{Path: entry.Path, Tag: res.Tag, Message: res.Message}
}

// Inspection is everything the engine knows about one file before writing.
type Inspection struct {
	Path       string
	Kind       classify.Kind
	Candidates []extract.Candidate
	Selected   resolve.Extracted
	Current    fsattr.Times
	Dates      resolve.Dates
}

// Inspect runs classify, extract and resolve for a single file without
// writing anything.
func (e *Engine) Inspect(path string) (Inspection, error) {
	kind := classify.Classify(path)
	if !kind.Supported() {
		return Inspection{Path: path, Kind: kind}, nil
	}
	return e.inspect(path, kind)
}

func (e *Engine) inspect(path string, kind classify.Kind) (Inspection, error) {
	insp := Inspection{Path: path, Kind: kind}

	md, err := extract.Extract(path, kind, extract.Options{
		Location:      e.opts.Location,
		FilenameDates: e.opts.FilenameDates,
	})
	if err != nil {
		return insp, fmt.Errorf("extract: %w", err)
	}
	insp.Kind = md.Kind
	insp.Candidates = md.Candidates
	insp.Selected = resolve.Select(md.Candidates)

	insp.Current, err = e.attrs.Stat(path)
	if err != nil {
		return insp, fmt.Errorf("stat: %w", err)
	}

	insp.Dates = resolve.Resolve(insp.Selected, insp.Current, resolve.Options{
		Tolerance:       e.opts.Tolerance,
		CreatedWritable: e.attrs.CreatedWritable(),
	})
	return insp, nil
}

// checkRoot returns the absolute form of root after making sure it is a
// readable directory.
func checkRoot(root string) (string, error) {
	if root == "" {
		return "", ErrRootNotFound
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s", ErrRootNotFound, abs)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	case !info.IsDir():
		return "", fmt.Errorf("%w: %s", ErrRootNotDirectory, abs)
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	return abs, nil
}
