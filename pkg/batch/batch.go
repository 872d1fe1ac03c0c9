// Package batch runs a conversion over many files. Each file is read,
// converted and written independently; a failing file is recorded in the
// Report and never stops the rest of the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/nexas/pkg/metrics"
)

// ConvertFunc converts the contents of src into the contents of its target
type ConvertFunc func(ctx context.Context, src string, data []byte) ([]byte, error)

// Operation describes one kind of conversion
type Operation struct {
	// Name labels logs, metrics and journal entries, e.g. "extract"
	Name string
	// SourceExts selects files when a directory is given
	SourceExts []string
	// TargetExt replaces the source extension to form the output path
	TargetExt string
	Convert   ConvertFunc
}

// Result is the outcome for one file
type Result struct {
	Source   string        `json:"source"`
	Target   string        `json:"target"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	BytesIn  int           `json:"bytes_in"`
	BytesOut int           `json:"bytes_out"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the file was converted and written
func (r Result) OK() bool {
	return r.Err == nil && r.Error == ""
}

// Report aggregates the results of one run
type Report struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
}

// Succeeded returns the number of files converted
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that could not be converted
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Failures returns the failed results in input order
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the per-file errors, or returns nil when every file succeeded
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failures() {
		err := res.Err
		if err == nil {
			err = errors.New(res.Error)
		}
		errs = append(errs, fmt.Errorf("%s: %w", res.Source, err))
	}
	return errors.Join(errs...)
}

// Recorder persists finished reports
type Recorder interface {
	Record(ctx context.Context, report *Report) error
}

// Option configures a Runner
type Option func(*Runner)

// WithWorkers bounds how many files are processed at once. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		r.workers = max(n, 1)
	}
}

// WithTimeout sets a deadline for each file. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithMetrics records per-file and per-run metrics on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithRecorder stores every report through rec once the run finishes
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// Runner executes operations over sets of files
type Runner struct {
	workers  int
	timeout  time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics
	recorder Recorder
}

// NewRunner creates a runner; by default it is sequential with no deadline
func NewRunner(opts ...Option) *Runner {
	r := &Runner{workers: 1, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run discovers the files under each path and converts them. The returned
// error covers only failures that prevent the run itself, such as a missing
// path; per-file failures are in the Report.
func (r *Runner) Run(ctx context.Context, op Operation, paths ...string) (*Report, error) {
	var files []string
	for _, p := range paths {
		found, err := Discover(p, op.SourceExts...)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return r.RunFiles(ctx, op, files)
}

// RunFiles converts exactly the given files
func (r *Runner) RunFiles(ctx context.Context, op Operation, files []string) (*Report, error) {
	if op.Convert == nil {
		return nil, fmt.Errorf("operation %q has no converter", op.Name)
	}

	report := &Report{
		ID:        ksuid.New().String(),
		Operation: op.Name,
		Started:   time.Now().UTC(),
		Results:   make([]Result, len(files)),
	}

	conflicts := targetConflicts(files, op.TargetExt)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, src := range files {
		i, src := i, src
		g.Go(func() error {
			// Each goroutine owns one slot of Results.
			report.Results[i] = r.processFile(gctx, op, src, conflicts[i])
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.Started)
	r.log.Info("Run finished",
		"operation", op.Name,
		"id", report.ID,
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"duration", report.Duration)

	if r.metrics != nil {
		r.metrics.RecordRun(op.Name, report.Failed())
	}
	if r.recorder != nil {
		if err := r.recorder.Record(ctx, report); err != nil {
			r.log.Warn("Failed to record run", "id", report.ID, "error", err)
		}
	}
	return report, nil
}

// targetConflicts returns, per file, an error when an earlier file in the list
// already writes the same target. Only the first claimant is converted.
func targetConflicts(files []string, ext string) []error {
	conflicts := make([]error, len(files))
	claimed := make(map[string]string, len(files))
	for i, src := range files {
		target := filepath.Clean(TargetPath(src, ext))
		if first, ok := claimed[target]; ok {
			conflicts[i] = fmt.Errorf("target %s is also produced by %s", target, first)
			continue
		}
		claimed[target] = src
	}
	return conflicts
}

func (r *Runner) processFile(ctx context.Context, op Operation, src string, conflict error) Result {
	start := time.Now()
	res := Result{Source: src, Target: TargetPath(src, op.TargetExt)}
	r.log.Info(op.Name, "path", src)

	res.Err = conflict
	if res.Err == nil {
		res.Err = r.convertFile(ctx, op, &res)
	}
	res.Duration = time.Since(start)
	if res.Err != nil {
		res.Error = res.Err.Error()
		r.log.Error(op.Name+" failed", "path", src, "error", res.Err)
	} else {
		r.log.Debug(op.Name+" done", "path", src, "target", res.Target, "bytes", res.BytesOut)
	}

	if r.metrics != nil {
		r.metrics.RecordFile(op.Name, res.Err == nil, res.Duration, res.BytesIn, res.BytesOut)
	}
	return res
}

func (r *Runner) convertFile(ctx context.Context, op Operation, res *Result) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(res.Source)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	res.BytesIn = len(data)

	out, err := convertWithDeadline(ctx, op.Convert, res.Source, data)
	if err != nil {
		return err
	}

	if err := WriteFileAtomic(res.Target, out); err != nil {
		return err
	}
	res.BytesOut = len(out)
	return nil
}

// convertWithDeadline runs convert and gives up when ctx is done. A converter
// that ignores ctx keeps running in the background until it returns; its
// output is discarded.
func convertWithDeadline(ctx context.Context, convert ConvertFunc, src string, data []byte) ([]byte, error) {
	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := convert(ctx, src, data)
		done <- result{out, err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("conversion abandoned: %w", ctx.Err())
	}
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// over path, so path either keeps its old contents or holds all of data.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	tmpName = ""
	return nil
}
