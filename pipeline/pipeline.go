// Package pipeline folds page results into the global image set and records
// download outcomes to the manifest.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-images/config"
	"github.com/aluiziolira/go-scrape-images/models"
)

var (
	// ErrPipelineClosed is returned when Record is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for manifest output.
type OutputWriter interface {
	Write(results []*models.DownloadResult) error
	Close() error
	Validate() error
}

// Pipeline de-duplicates download outcomes and writes them in batches.
// It is driven from a single goroutine. A nil writer only keeps counters.
type Pipeline struct {
	writer    OutputWriter
	batchSize int
	batch     []*models.DownloadResult

	seen    map[string]struct{}
	metrics metrics

	closed bool
	err    error
}

// NewPipeline builds a pipeline batching writes according to cfg.
func NewPipeline(writer OutputWriter, cfg *config.Config) *Pipeline {
	batchSize := 64
	if cfg != nil && cfg.BatchSize > 0 {
		batchSize = cfg.BatchSize
	}
	return &Pipeline{
		writer:    writer,
		batchSize: batchSize,
		batch:     make([]*models.DownloadResult, 0, batchSize),
		seen:      make(map[string]struct{}),
		metrics:   newMetrics(),
	}
}

// Record accepts download outcomes for the manifest.
func (p *Pipeline) Record(results ...*models.DownloadResult) error {
	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	for _, result := range results {
		if !p.prepare(result) {
			continue
		}
		if p.writer == nil {
			continue
		}
		p.batch = append(p.batch, result)
		if len(p.batch) >= p.batchSize {
			if err := p.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes pending records and prevents more submissions.
func (p *Pipeline) Close() error {
	if p.closed {
		return p.err
	}
	p.closed = true
	if p.err != nil {
		return p.err
	}
	return p.flush()
}

// Err returns the first error encountered during writing.
func (p *Pipeline) Err() error {
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) prepare(result *models.DownloadResult) bool {
	if result == nil || result.URL == "" {
		p.metrics.addValidation("invalid_record")
		return false
	}
	if _, ok := p.seen[result.URL]; ok {
		p.metrics.addValidation("duplicate_url")
		return false
	}
	p.seen[result.URL] = struct{}{}
	if result.Err != nil && result.Error == "" {
		result.Error = result.Err.Error()
	}
	p.metrics.addStatus(result.Status)
	return true
}

func (p *Pipeline) flush() error {
	if p.writer == nil || len(p.batch) == 0 {
		return nil
	}
	if err := p.writer.Write(p.batch); err != nil {
		p.err = fmt.Errorf("write batch: %w", err)
		p.closed = true
		slog.Error("manifest write failed", slog.Any("error", err))
		return p.err
	}
	p.batch = p.batch[:0]
	return nil
}

type metrics struct {
	recorded   int64
	byStatus   map[models.DownloadStatus]int
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		byStatus:   make(map[models.DownloadStatus]int),
		validation: make(map[string]int),
	}
}

func (m *metrics) addStatus(status models.DownloadStatus) {
	m.recorded++
	m.byStatus[status]++
}

func (m *metrics) addValidation(kind string) {
	m.validation[kind]++
}

func (m *metrics) snapshot() map[string]interface{} {
	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}
	copyStatus := make(map[string]int, len(m.byStatus))
	for k, v := range m.byStatus {
		copyStatus[string(k)] = v
	}

	return map[string]interface{}{
		"recorded":          m.recorded,
		"by_status":         copyStatus,
		"validation_errors": copyValidation,
	}
}
