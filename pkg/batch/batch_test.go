package batch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/nexas/pkg/metrics"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func upperOp() Operation {
	return Operation{
		Name:       "upper",
		SourceExts: []string{".txt"},
		TargetExt:  ".out",
		Convert: func(ctx context.Context, src string, data []byte) ([]byte, error) {
			if bytes.Contains(data, []byte("bad")) {
				return nil, errors.New("bad input")
			}
			return bytes.ToUpper(data), nil
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.json": "", "a.JSON": "", "c.csv": "", "d.bin": "", "noext": "",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0755))

	files, err := Discover(dir, ".json", ".csv")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.JSON"),
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "c.csv"),
	}, files)

	t.Run("single file ignores extension", func(t *testing.T) {
		files, err := Discover(filepath.Join(dir, "d.bin"), ".json")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "d.bin")}, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Discover(filepath.Join(dir, "missing"), ".json")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("empty directory", func(t *testing.T) {
		files, err := Discover(t.TempDir(), ".json")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestTargetPath(t *testing.T) {
	testCases := []struct {
		src, ext, want string
	}{
		{"dir/script.bin", ".json", "dir/script.json"},
		{"dir/script.json", ".new", "dir/script.new"},
		{"dir/archive.tar.dat", ".csv", "dir/archive.tar.csv"},
		{"dir/noext", ".json", "dir/noext.json"},
		{"dir/UPPER.BIN", ".json", "dir/UPPER.json"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, TargetPath(tc.src, tc.ext), tc.src)
	}
}

func TestRunner_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"1.txt": "one", "2.txt": "bad", "3.txt": "three", "skip.dat": "x",
	})

	m := metrics.NewMetrics()
	r := NewRunner(WithLogger(quietLogger()), WithMetrics(m))

	report, err := r.Run(context.Background(), upperOp(), dir)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "upper", report.Operation)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, filepath.Join(dir, "2.txt"), failures[0].Source)
	assert.Equal(t, "bad input", failures[0].Error)
	assert.Contains(t, report.Err().Error(), "2.txt: bad input")

	out, err := os.ReadFile(filepath.Join(dir, "3.out"))
	require.NoError(t, err)
	assert.Equal(t, "THREE", string(out))
	assert.NoFileExists(t, filepath.Join(dir, "2.out"))

	assert.Equal(t, 2.0, counterValue(t, m, "nexas_files_processed_total", "success"))
	assert.Equal(t, 1.0, counterValue(t, m, "nexas_files_processed_total", "error"))
	assert.Equal(t, 1.0, counterValue(t, m, "nexas_runs_total", "error"))
}

// counterValue sums the counter samples of family whose status label is status
func counterValue(t *testing.T, m *metrics.Metrics, family, status string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var total float64
	for _, f := range families {
		if f.GetName() != family {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == status {
					total += metric.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestRunner_DuplicateTargets(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"foo.json": "json", "foo.csv": "csv", "bar.csv": "bar"})

	var converted atomic.Int32
	op := Operation{
		Name:       "table-rebuild",
		SourceExts: []string{".json", ".csv"},
		TargetExt:  ".new",
		Convert: func(ctx context.Context, src string, data []byte) ([]byte, error) {
			converted.Add(1)
			return bytes.ToUpper(data), nil
		},
	}

	m := metrics.NewMetrics()
	r := NewRunner(WithWorkers(4), WithLogger(quietLogger()), WithMetrics(m))
	report, err := r.Run(context.Background(), op, dir)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, int32(2), converted.Load())

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, filepath.Join(dir, "foo.csv"), failures[0].Source)
	assert.Contains(t, failures[0].Error, "also produced by "+filepath.Join(dir, "foo.json"))
	assert.Zero(t, failures[0].BytesIn)

	out, err := os.ReadFile(filepath.Join(dir, "foo.new"))
	require.NoError(t, err)
	assert.Equal(t, "JSON", string(out))
	assert.Equal(t, 1.0, counterValue(t, m, "nexas_files_processed_total", "error"))
}

func TestRunner_SameFileTwice(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "a"})
	src := filepath.Join(dir, "a.txt")

	r := NewRunner(WithWorkers(2), WithLogger(quietLogger()))
	report, err := r.Run(context.Background(), upperOp(), src, dir)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].OK())
	assert.False(t, report.Results[1].OK())
}

func TestRunner_Parallel(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		files[string(rune('a'+i))+".txt"] = strings.Repeat("x", i+1)
	}
	writeFiles(t, dir, files)

	var active, peak int32
	op := upperOp()
	op.Convert = func(ctx context.Context, src string, data []byte) ([]byte, error) {
		n := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return bytes.ToUpper(data), nil
	}

	r := NewRunner(WithWorkers(4), WithLogger(quietLogger()))
	report, err := r.Run(context.Background(), op, dir)
	require.NoError(t, err)

	assert.Equal(t, 20, report.Succeeded())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))

	// Results stay in discovery order regardless of completion order.
	for i, res := range report.Results {
		assert.Equal(t, filepath.Join(dir, string(rune('a'+i))+".txt"), res.Source)
		assert.Equal(t, i+1, res.BytesOut)
	}
}

func TestRunner_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"fast.txt": "ok", "slow.txt": "zz"})

	op := upperOp()
	op.Convert = func(ctx context.Context, src string, data []byte) ([]byte, error) {
		if strings.HasSuffix(src, "slow.txt") {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
		}
		return data, nil
	}

	r := NewRunner(WithTimeout(20*time.Millisecond), WithLogger(quietLogger()))
	report, err := r.Run(context.Background(), op, dir)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].OK(), "fast file succeeds")
	assert.False(t, report.Results[1].OK())
	assert.True(t, errors.Is(report.Results[1].Err, context.DeadlineExceeded))
	assert.NoFileExists(t, filepath.Join(dir, "slow.out"))
}

func TestRunner_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(WithLogger(quietLogger())).Run(ctx, upperOp(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed())
	assert.True(t, errors.Is(report.Results[0].Err, context.Canceled))
}

func TestRunner_MissingPath(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), upperOp(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRunner_NoConverter(t *testing.T) {
	_, err := NewRunner().RunFiles(context.Background(), Operation{Name: "empty"}, nil)
	assert.Error(t, err)
}

type memoryRecorder struct {
	reports []*Report
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, report *Report) error {
	m.reports = append(m.reports, report)
	return m.err
}

func TestRunner_Recorder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "a"})

	rec := &memoryRecorder{}
	r := NewRunner(WithRecorder(rec), WithLogger(quietLogger()))
	report, err := r.Run(context.Background(), upperOp(), dir)
	require.NoError(t, err)
	require.Len(t, rec.reports, 1)
	assert.Same(t, report, rec.reports[0])

	// A journal failure is logged, not returned.
	rec.err = errors.New("disk full")
	_, err = r.Run(context.Background(), upperOp(), dir)
	assert.NoError(t, err)
}

func TestReport_EmptyRun(t *testing.T) {
	report, err := NewRunner(WithLogger(quietLogger())).Run(context.Background(), upperOp(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Zero(t, report.Failed())
	assert.NoError(t, report.Err())
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	err = WriteFileAtomic(filepath.Join(dir, "missing", "out.json"), []byte("x"))
	assert.Error(t, err)
}
