package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"poetry-search/pkg/logger"
)

// Embedder 向量获取接口，返回结果与输入等长，缺失位置为 nil
type Embedder interface {
	Fetch(ctx context.Context, texts []string) ([][]float32, error)
}

// LineDraft 待入库的句子
type LineDraft struct {
	Content   string
	Embedding []float32
}

// Orchestrator 并发向量化调度器
type Orchestrator struct {
	embedder   Embedder
	batchSize  int
	maxWorkers int
}

// NewOrchestrator 创建调度器
func NewOrchestrator(embedder Embedder, batchSize, maxWorkers int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Orchestrator{
		embedder:   embedder,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
	}
}

// EmbedSentences 按 batchSize 切分后在固定大小的协程池中获取向量。
// 每个子批次写入自己提交序号对应的槽位，输出顺序与输入一致，与完成顺序无关。
func (o *Orchestrator) EmbedSentences(ctx context.Context, sentences []string) [][]float32 {
	out := make([][]float32, len(sentences))
	if len(sentences) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(o.maxWorkers)

	for start := 0; start < len(sentences); start += o.batchSize {
		end := min(start+o.batchSize, len(sentences))
		g.Go(func() error {
			vectors, err := o.embedder.Fetch(ctx, sentences[start:end])
			if err != nil {
				logger.Warn(ctx, "embedding sub-batch degraded to absent",
					"offset", start,
					"size", end-start,
					"error", err.Error(),
				)
			}
			for i := 0; i < len(vectors) && start+i < end; i++ {
				out[start+i] = vectors[i]
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// EmbedPoems 展开全部作品的句子统一向量化，再按作品归位；没有向量的句子被丢弃。
// 返回每首作品的句子以及丢弃数量。
func (o *Orchestrator) EmbedPoems(ctx context.Context, records []PoemRecord) ([][]LineDraft, int) {
	var all []string
	counts := make([]int, len(records))
	for i, r := range records {
		sentences := r.Sentences()
		counts[i] = len(sentences)
		all = append(all, sentences...)
	}

	vectors := o.EmbedSentences(ctx, all)

	drafts := make([][]LineDraft, len(records))
	dropped, idx := 0, 0
	for i, n := range counts {
		for j := 0; j < n; j++ {
			if vectors[idx] != nil {
				drafts[i] = append(drafts[i], LineDraft{Content: all[idx], Embedding: vectors[idx]})
			} else {
				dropped++
			}
			idx++
		}
	}
	return drafts, dropped
}
