package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"poetry-search/internal/domain/entity"
	"poetry-search/internal/domain/repository"
	"poetry-search/pkg/metrics"
)

// BatchResult 单个批次的入库结果
type BatchResult struct {
	Poems            int
	Lines            int
	DroppedSentences int
}

// Loader 以事务为单位写入一批作品
type Loader struct {
	tx        repository.Transactor
	dynasties repository.DynastyRepository
	authors   repository.AuthorRepository
	poems     repository.PoemRepository
	lines     repository.LineRepository
	orch      *Orchestrator
}

// NewLoader 创建批次写入器
func NewLoader(
	tx repository.Transactor,
	dynasties repository.DynastyRepository,
	authors repository.AuthorRepository,
	poems repository.PoemRepository,
	lines repository.LineRepository,
	orch *Orchestrator,
) *Loader {
	return &Loader{
		tx:        tx,
		dynasties: dynasties,
		authors:   authors,
		poems:     poems,
		lines:     lines,
		orch:      orch,
	}
}

// LoadBatch 在同一事务中写入朝代、作者、作品和带向量的句子，任一步失败整体回滚
func (l *Loader) LoadBatch(ctx context.Context, records []PoemRecord) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, nil
	}

	start := time.Now()
	var result BatchResult

	err := l.tx.WithTransaction(ctx, func(ctx context.Context) error {
		result = BatchResult{}

		dynastyIDs, err := l.dynasties.EnsureByNames(ctx, distinctDynasties(records))
		if err != nil {
			return err
		}

		keys := make([]entity.AuthorKey, 0, len(records))
		seen := make(map[entity.AuthorKey]struct{}, len(records))
		for _, r := range records {
			key := entity.AuthorKey{Name: r.Author, DynastyID: dynastyIDs[r.Dynasty]}
			if key.DynastyID == 0 {
				return fmt.Errorf("dynasty %q has no id", r.Dynasty)
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		authorIDs, err := l.authors.EnsureAuthors(ctx, keys)
		if err != nil {
			return err
		}

		poems := make([]*entity.Poem, len(records))
		for i, r := range records {
			authorID, ok := authorIDs[entity.AuthorKey{Name: r.Author, DynastyID: dynastyIDs[r.Dynasty]}]
			if !ok {
				return fmt.Errorf("author %q (%s) has no id", r.Author, r.Dynasty)
			}
			poems[i] = &entity.Poem{Title: r.Title, AuthorID: authorID, FullContent: r.Content}
		}
		if err := l.poems.CreateBatch(ctx, poems); err != nil {
			return err
		}

		drafts, dropped := l.orch.EmbedPoems(ctx, records)
		var lines []*entity.Line
		for i, poem := range poems {
			for _, d := range drafts[i] {
				lines = append(lines, &entity.Line{
					PoemID:    poem.ID,
					Content:   d.Content,
					Embedding: pgvector.NewVector(d.Embedding),
				})
			}
		}
		if err := l.lines.CreateBatch(ctx, lines); err != nil {
			return err
		}

		result = BatchResult{Poems: len(poems), Lines: len(lines), DroppedSentences: dropped}
		return nil
	})
	if err != nil {
		metrics.IngestBatchDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		return BatchResult{}, fmt.Errorf("failed to load batch of %d poems: %w", len(records), err)
	}

	metrics.IngestBatchDuration.WithLabelValues("committed").Observe(time.Since(start).Seconds())
	metrics.IngestPoemsTotal.Add(float64(result.Poems))
	metrics.IngestLinesTotal.WithLabelValues("stored").Add(float64(result.Lines))
	metrics.IngestLinesTotal.WithLabelValues("dropped").Add(float64(result.DroppedSentences))
	return result, nil
}

func distinctDynasties(records []PoemRecord) []string {
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Dynasty]; ok {
			continue
		}
		seen[r.Dynasty] = struct{}{}
		names = append(names, r.Dynasty)
	}
	return names
}
