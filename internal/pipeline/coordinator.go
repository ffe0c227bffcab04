package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"invoice-rag/internal/models"
)

// Batch size bounds for concurrent group dispatch.
const (
	MinBatchSize = 1
	MaxBatchSize = 5
)

// ItemProcessor is the per-item work unit driven by the coordinator.
// Satisfied by *Processor.
type ItemProcessor interface {
	Process(ctx context.Context, doc models.Document, policyText, fallbackName string) models.AnalysisRecord
}

// CoordinatorConfig tunes pacing and the group deadline. The defaults mirror
// product-chosen values; none of them is a hard invariant.
type CoordinatorConfig struct {
	// GroupTimeout bounds the join on one concurrently dispatched group.
	GroupTimeout time.Duration
	// ItemPause is slept after every PauseEvery items in sequential mode.
	ItemPause  time.Duration
	PauseEvery int
	// GroupPause is slept between groups in batched mode.
	GroupPause time.Duration
}

// DefaultCoordinatorConfig returns the default pacing configuration.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		GroupTimeout: 120 * time.Second,
		ItemPause:    100 * time.Millisecond,
		PauseEvery:   5,
		GroupPause:   500 * time.Millisecond,
	}
}

// Coordinator drives an ItemProcessor over a collection of documents, either
// one at a time or in concurrently dispatched groups. In both modes the
// output has exactly one record per input document, in input order.
type Coordinator struct {
	processor ItemProcessor
	cfg       CoordinatorConfig
	logger    *zap.Logger
}

// NewCoordinator creates a new batch coordinator.
func NewCoordinator(processor ItemProcessor, cfg CoordinatorConfig, logger *zap.Logger) *Coordinator {
	if cfg.PauseEvery <= 0 {
		cfg.PauseEvery = 5
	}
	return &Coordinator{
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

// ClampBatchSize bounds a requested batch size to [MinBatchSize, MaxBatchSize].
func ClampBatchSize(size int) int {
	if size < MinBatchSize {
		return MinBatchSize
	}
	if size > MaxBatchSize {
		return MaxBatchSize
	}
	return size
}

// RunSequential processes documents one at a time. Each item runs on its own
// worker goroutine so a stuck item never wedges the coordinator's control
// flow, and a short pause is inserted every few items to bound resource
// pressure on large submissions.
func (c *Coordinator) RunSequential(ctx context.Context, docs []models.Document, policyText, fallbackName string) []models.AnalysisRecord {
	results := make([]models.AnalysisRecord, 0, len(docs))

	for i, doc := range docs {
		c.logger.Info("Processing invoice",
			zap.Int("index", i+1),
			zap.Int("total", len(docs)),
			zap.String("file_path", doc.Path))

		done := make(chan models.AnalysisRecord, 1)
		go func(doc models.Document) {
			done <- c.processor.Process(ctx, doc, policyText, fallbackName)
		}(doc)
		results = append(results, <-done)

		if (i+1)%c.cfg.PauseEvery == 0 {
			time.Sleep(c.cfg.ItemPause)
		}
	}

	return results
}

// RunBatched partitions documents into consecutive groups of batchSize and
// dispatches each group concurrently, joining with the group deadline.
//
// A group that misses the deadline is recorded wholesale as timed out: every
// item in it becomes an Error record, including items whose workers may have
// finished, and the orphaned workers are abandoned with their eventual
// results discarded. Items that fail inside a group that completes in time
// only affect their own record.
func (c *Coordinator) RunBatched(ctx context.Context, docs []models.Document, policyText, fallbackName string, batchSize int) []models.AnalysisRecord {
	batchSize = ClampBatchSize(batchSize)
	totalGroups := (len(docs) + batchSize - 1) / batchSize

	results := make([]models.AnalysisRecord, 0, len(docs))
	for start, group := 0, 1; start < len(docs); start, group = start+batchSize, group+1 {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}

		c.logger.Info("Processing batch",
			zap.Int("batch", group),
			zap.Int("total_batches", totalGroups),
			zap.Int("size", end-start))

		results = append(results, c.runGroup(ctx, docs[start:end], policyText, fallbackName)...)

		if group < totalGroups {
			time.Sleep(c.cfg.GroupPause)
		}
	}

	return results
}

func (c *Coordinator) runGroup(ctx context.Context, group []models.Document, policyText, fallbackName string) []models.AnalysisRecord {
	records := make([]models.AnalysisRecord, len(group))

	var wg sync.WaitGroup
	for i, doc := range group {
		wg.Add(1)
		go func(i int, doc models.Document) {
			defer wg.Done()
			records[i] = c.processor.Process(ctx, doc, policyText, fallbackName)
		}(i, doc)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return records
	case <-time.After(c.cfg.GroupTimeout):
		c.logger.Error("Batch processing timed out",
			zap.Int("size", len(group)),
			zap.Duration("timeout", c.cfg.GroupTimeout))

		// No partial credit: the whole group is reported as timed out and
		// the in-flight workers' results are discarded.
		timedOut := make([]models.AnalysisRecord, len(group))
		for i, doc := range group {
			timedOut[i] = errorRecord(doc, "Processing timed out")
		}
		return timedOut
	}
}
