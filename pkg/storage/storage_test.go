package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/nexas/pkg/batch"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleReport(id ksuid.KSUID, op string) *batch.Report {
	return &batch.Report{
		ID:        id.String(),
		Operation: op,
		Started:   id.Time().UTC(),
		Duration:  1500 * time.Millisecond,
		Results: []batch.Result{
			{Source: "a.bin", Target: "a.json", BytesIn: 73, BytesOut: 420},
			{Source: "b.bin", Target: "b.json", Error: "TrailingData at offset 37", BytesIn: 39},
		},
	}
}

func TestJournal_RecordAndGet(t *testing.T) {
	j := openJournal(t)
	id := ksuid.New()
	report := sampleReport(id, "extract")

	require.NoError(t, j.Record(context.Background(), report))

	got, err := j.Get(id.String())
	require.NoError(t, err)
	assert.Equal(t, report, got)
	assert.Equal(t, 1, got.Succeeded())
	assert.Equal(t, 1, got.Failed())
}

func TestJournal_RecordAssignsID(t *testing.T) {
	j := openJournal(t)
	report := &batch.Report{Operation: "rebuild"}

	require.NoError(t, j.Record(context.Background(), report))
	require.NotEmpty(t, report.ID)

	_, err := j.Get(report.ID)
	assert.NoError(t, err)
}

func TestJournal_RecordRejectsBadID(t *testing.T) {
	j := openJournal(t)
	err := j.Record(context.Background(), &batch.Report{ID: "not-a-ksuid"})
	assert.Error(t, err)
}

func TestJournal_RecordCanceled(t *testing.T) {
	j := openJournal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := j.Record(ctx, &batch.Report{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestJournal_GetMissing(t *testing.T) {
	j := openJournal(t)

	_, err := j.Get(ksuid.New().String())
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = j.Get("garbage")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrRunNotFound))
}

func TestJournal_ListNewestFirst(t *testing.T) {
	j := openJournal(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := ksuid.NewRandomWithTime(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, err)
		ids = append(ids, id.String())
		require.NoError(t, j.Record(context.Background(), sampleReport(id, "extract")))
	}

	all, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, r := range all {
		assert.Equal(t, ids[4-i], r.ID)
	}

	latest, err := j.List(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, ids[4], latest[0].ID)
	assert.Equal(t, ids[3], latest[1].ID)
}

func TestJournal_ListEmpty(t *testing.T) {
	j := openJournal(t)
	reports, err := j.List(10)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestJournal_Delete(t *testing.T) {
	j := openJournal(t)
	id := ksuid.New()
	require.NoError(t, j.Record(context.Background(), sampleReport(id, "extract")))

	require.NoError(t, j.Delete(id.String()))
	_, err := j.Get(id.String())
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestJournal_Reopen(t *testing.T) {
	dir := t.TempDir()
	id := ksuid.New()

	j, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), sampleReport(id, "table-extract")))
	require.NoError(t, j.Close())

	j, err = Open(dir)
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Get(id.String())
	require.NoError(t, err)
	assert.Equal(t, "table-extract", got.Operation)
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("run0"), prefixUpperBound([]byte("run/")))
	assert.Equal(t, []byte{0x02}, prefixUpperBound([]byte{0x01, 0xFF}))
	assert.Nil(t, prefixUpperBound([]byte{0xFF}))
}
