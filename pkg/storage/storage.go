// Package storage keeps the run journal: every finished batch report, stored
// in pebble under its KSUID so that key order is chronological order.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/nexas/pkg/batch"
)

// ErrRunNotFound is returned when no report is stored under an id
var ErrRunNotFound = errors.New("run not found")

var runPrefix = []byte("run/")

// Journal is a pebble-backed store of batch reports
type Journal struct {
	db *pebble.DB
}

// Open opens or creates the journal in dir
func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", dir, err)
	}
	return &Journal{db: db}, nil
}

func runKey(id ksuid.KSUID) []byte {
	return append(append([]byte{}, runPrefix...), id.Bytes()...)
}

// prefixUpperBound returns the smallest key greater than every key with prefix
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// Record stores report. A report without an ID is given a new one.
func (j *Journal) Record(ctx context.Context, report *batch.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var id ksuid.KSUID
	if report.ID == "" {
		id = ksuid.New()
		report.ID = id.String()
	} else {
		parsed, err := ksuid.Parse(report.ID)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", report.ID, err)
		}
		id = parsed
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := j.db.Set(runKey(id), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// Get returns the report stored under id
func (j *Journal) Get(id string) (*batch.Report, error) {
	parsed, err := ksuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}

	data, closer, err := j.db.Get(runKey(parsed))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	defer closer.Close()

	return decodeReport(data)
}

// List returns up to limit reports, newest first. limit <= 0 returns all.
func (j *Journal) List(limit int) ([]*batch.Report, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: runPrefix,
		UpperBound: prefixUpperBound(runPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var reports []*batch.Report
	for iter.Last(); iter.Valid(); iter.Prev() {
		report, err := decodeReport(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("corrupt journal entry %x: %w", iter.Key(), err)
		}
		reports = append(reports, report)
		if limit > 0 && len(reports) == limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	return reports, nil
}

// Delete removes the report stored under id
func (j *Journal) Delete(id string) error {
	parsed, err := ksuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", id, err)
	}
	return j.db.Delete(runKey(parsed), pebble.Sync)
}

// Close closes the journal
func (j *Journal) Close() error {
	return j.db.Close()
}

func decodeReport(data []byte) (*batch.Report, error) {
	var report batch.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}
