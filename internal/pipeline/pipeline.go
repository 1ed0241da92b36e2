// Package pipeline orchestrates one jurisdiction's batch run: ingest each
// table's raw extract, normalize it through the jurisdiction's hooks, join
// the tables into crash-level rows, and persist a snapshot after every stage.
// Partitions (jurisdiction × year, or "all") are processed independently;
// one failing partition never blocks the others.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
	"github.com/couchcryptid/crash-data-pipeline/internal/observability"
)

// TableFetcher retrieves one table's decoded raw records for a partition.
type TableFetcher interface {
	FetchTable(ctx context.Context, jur string, table domain.Table, partition string, refresh bool) ([]domain.RawRecord, error)
}

// SnapshotStore persists and reloads per-stage snapshots.
type SnapshotStore interface {
	WriteUnfiltered(jur, table, partition string, rows []domain.Row) error
	WriteFiltered(jur, table, partition string, rows []domain.Row) error
	WriteMerged(jur, partition string, rows []domain.JoinedCrashRow) error
	ReadMergedAll(jur string) ([]domain.JoinedCrashRow, error)
}

// Options control one pipeline run.
type Options struct {
	// Partitions overrides the jurisdiction's default partition list.
	Partitions []string
	// Refresh bypasses the fetch cache and re-downloads every extract.
	Refresh bool
}

// Pipeline runs the ingest-normalize-merge stages for one jurisdiction.
type Pipeline struct {
	jur     jurisdiction.Jurisdiction
	fetcher TableFetcher
	store   SnapshotStore
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(j jurisdiction.Jurisdiction, f TableFetcher, s SnapshotStore, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		jur:     j,
		fetcher: f,
		store:   s,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once at least one partition has been processed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any partitions yet")
	}
	return nil
}

// Run processes every requested partition to completion. Partition failures
// are logged and counted, not propagated; Run errors only when no partition
// succeeded at all or the context is cancelled.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	partitions := opts.Partitions
	if len(partitions) == 0 {
		partitions = p.jur.Partitions()
	}
	p.logger.Info("pipeline started", "jurisdiction", p.jur.Name(), "partitions", partitions)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	succeeded := 0
	for _, partition := range partitions {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return err
		}

		start := time.Now()
		if err := p.processPartition(ctx, partition, opts.Refresh); err != nil {
			p.logger.Error("partition failed", "jurisdiction", p.jur.Name(), "partition", partition, "error", err)
			p.metrics.PartitionFailures.WithLabelValues(p.jur.Name()).Inc()
			continue
		}
		p.metrics.PartitionDuration.Observe(time.Since(start).Seconds())
		succeeded++
		p.ready.Store(true)
	}

	if succeeded == 0 {
		return fmt.Errorf("all %d partitions failed for %s", len(partitions), p.jur.Name())
	}
	p.logger.Info("pipeline finished", "jurisdiction", p.jur.Name(), "partitions_ok", succeeded)
	return nil
}

// processPartition runs one ingest-normalize-merge cycle. A missing crash
// table aborts the partition; a missing child table degrades to empty child
// data with a warning, since crashes with no child rows are valid.
func (p *Pipeline) processPartition(ctx context.Context, partition string, refresh bool) error {
	ts := p.jur.Tables()

	crashRows, err := p.ingestTable(ctx, ts, ts.Crash, partition, refresh)
	if err != nil {
		return fmt.Errorf("crash table %s: %w", ts.Crash.Name, err)
	}

	children := make(map[string][]domain.Row, len(ts.Children))
	for _, child := range ts.Children {
		rows, err := p.ingestTable(ctx, ts, child, partition, refresh)
		if err != nil {
			p.logger.Warn("child table unavailable, continuing without it",
				"jurisdiction", p.jur.Name(), "table", child.Name, "partition", partition, "error", err)
			continue
		}
		children[child.Name] = rows
	}

	joined, duplicates := merge(ts, crashRows, children, p.logger)
	p.metrics.CrashesMerged.WithLabelValues(p.jur.Name()).Add(float64(len(joined)))
	if duplicates > 0 {
		p.metrics.DuplicateKeys.WithLabelValues(p.jur.Name()).Add(float64(duplicates))
	}

	if err := p.store.WriteMerged(p.jur.Name(), partition, joined); err != nil {
		return err
	}

	p.logger.Info("partition merged",
		"jurisdiction", p.jur.Name(), "partition", partition,
		"crashes", len(joined), "duplicate_keys", duplicates)
	return nil
}

// ingestTable fetches, snapshots, and normalizes one table for a partition.
func (p *Pipeline) ingestTable(ctx context.Context, ts domain.TableSet, table domain.Table, partition string, refresh bool) ([]domain.Row, error) {
	records, err := p.fetcher.FetchTable(ctx, p.jur.Name(), table, partition, refresh)
	if err != nil {
		return nil, err
	}
	p.metrics.RowsIngested.WithLabelValues(p.jur.Name(), table.Name).Add(float64(len(records)))

	rows := rowsFromRaw(records)
	if err := p.store.WriteUnfiltered(p.jur.Name(), table.Name, partition, rows); err != nil {
		return nil, err
	}

	rows = normalize(p.jur, ts.KeyColumns, table, rows)
	p.metrics.RowsKept.WithLabelValues(p.jur.Name(), table.Name).Add(float64(len(rows)))

	if err := p.store.WriteFiltered(p.jur.Name(), table.Name, partition, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadJoined loads the joined rows of every partition on disk, for export.
func (p *Pipeline) ReadJoined() ([]domain.JoinedCrashRow, error) {
	return p.store.ReadMergedAll(p.jur.Name())
}
