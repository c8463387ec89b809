package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "poetry-search/pkg/errors"
	"poetry-search/pkg/logger"
	"poetry-search/pkg/metrics"
)

// BatchLoader 批次写入接口
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []PoemRecord) (BatchResult, error)
}

// Options 导入参数
type Options struct {
	DataPath    string
	DBBatchSize int
}

// RunReport 一次导入运行的汇总
type RunReport struct {
	FilesTotal       int           `json:"files_total"`
	FilesSkipped     int           `json:"files_skipped"`
	FilesProcessed   int           `json:"files_processed"`
	FilesEmpty       int           `json:"files_empty"`
	FilesFailed      int           `json:"files_failed"`
	FailedFiles      []string      `json:"failed_files,omitempty"`
	Poems            int           `json:"poems"`
	Lines            int           `json:"lines"`
	DroppedSentences int           `json:"dropped_sentences"`
	AuthorsMapped    int           `json:"authors_mapped"`
	Interrupted      bool          `json:"interrupted"`
	Duration         time.Duration `json:"duration"`
}

// DirCount 目录下的文件数
type DirCount struct {
	Dir   string `json:"dir"`
	Files int    `json:"files"`
}

// StatusReport 断点续传状态
type StatusReport struct {
	FilesTotal     int        `json:"files_total"`
	FilesProcessed int        `json:"files_processed"`
	FilesRemaining int        `json:"files_remaining"`
	RemainingByDir []DirCount `json:"remaining_by_dir"`
}

// Importer 导入流程
type Importer struct {
	opts       Options
	norm       *Normalizer
	loader     BatchLoader
	checkpoint *Checkpoint
	read       DocumentReader
}

// NewImporter 创建导入器
func NewImporter(opts Options, norm *Normalizer, loader BatchLoader, checkpoint *Checkpoint) *Importer {
	if opts.DBBatchSize <= 0 {
		opts.DBBatchSize = 100
	}
	return &Importer{
		opts:       opts,
		norm:       norm,
		loader:     loader,
		checkpoint: checkpoint,
		read:       ReadJSONFile,
	}
}

// ReadJSONFile 读取并解析 JSON 文件
func ReadJSONFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return doc, nil
}

// DiscoverFiles 递归查找目录下全部 .json 文件，返回排序后的绝对路径
func DiscoverFiles(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data path: %w", err)
	}
	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk data path %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Run 执行一次完整导入：预扫描建立朝代映射，然后逐个文件处理。
// 文件的全部批次提交后才写入断点日志；失败的文件记录日志后继续处理下一个。
func (im *Importer) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{}

	files, err := DiscoverFiles(im.opts.DataPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIngestFailed, "failed to discover corpus files")
	}
	report.FilesTotal = len(files)
	logger.Info(ctx, "corpus discovered", "files", len(files), "already_processed", im.checkpoint.Len())

	prov := BuildProvenance(ctx, files, im.read, im.norm)
	report.AuthorsMapped = prov.Size()
	logger.Info(ctx, "author dynasty table built", "authors", prov.Size())

	builder := NewRecordBuilder(im.norm, prov)

	for _, path := range files {
		if ctx.Err() != nil {
			report.Interrupted = true
			logger.Warn(ctx, "import interrupted", "error", ctx.Err().Error())
			break
		}
		if im.checkpoint.Done(path) {
			report.FilesSkipped++
			metrics.IngestFilesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		fileCtx := logger.WithContext(ctx, logger.SourceFileKey, path)
		res, empty, err := im.processFile(fileCtx, path, builder)
		report.Poems += res.Poems
		report.Lines += res.Lines
		report.DroppedSentences += res.DroppedSentences

		switch {
		case err != nil:
			report.FilesFailed++
			report.FailedFiles = append(report.FailedFiles, path)
			metrics.IngestFilesTotal.WithLabelValues("failed").Inc()
			logger.Error(fileCtx, "file import failed", err)
		case empty:
			report.FilesEmpty++
			metrics.IngestFilesTotal.WithLabelValues("empty").Inc()
			logger.Debug(fileCtx, "no records extracted")
		default:
			report.FilesProcessed++
			metrics.IngestFilesTotal.WithLabelValues("processed").Inc()
			logger.Info(fileCtx, "file imported",
				"poems", res.Poems,
				"lines", res.Lines,
				"dropped_sentences", res.DroppedSentences,
			)
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// processFile 处理单个文件，返回已提交的计数、是否为空文件
func (im *Importer) processFile(ctx context.Context, path string, builder *RecordBuilder) (BatchResult, bool, error) {
	var total BatchResult

	doc, err := im.read(path)
	if err != nil {
		return total, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ext := Extract(doc)
	if len(ext.Records) == 0 {
		if err := im.checkpoint.Mark(path); err != nil {
			return total, true, apperrors.Wrap(err, apperrors.CodeCheckpointFailed, "failed to mark empty file")
		}
		return total, true, nil
	}

	batch := make([]PoemRecord, 0, im.opts.DBBatchSize)
	batchNo := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		batchNo++
		batchCtx := logger.WithContext(ctx, logger.BatchKey, batchNo)
		res, err := im.loader.LoadBatch(batchCtx, batch)
		if err != nil {
			return err
		}
		total.Poems += res.Poems
		total.Lines += res.Lines
		total.DroppedSentences += res.DroppedSentences
		batch = batch[:0]
		return nil
	}

	for _, raw := range ext.Records {
		rec, ok := builder.BuildRecord(raw, path, ext.FallbackAuthor)
		if !ok {
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= im.opts.DBBatchSize {
			if err := flush(); err != nil {
				return total, false, apperrors.Wrap(err, apperrors.CodeIngestFailed, "failed to load batch")
			}
		}
	}
	if err := flush(); err != nil {
		return total, false, apperrors.Wrap(err, apperrors.CodeIngestFailed, "failed to load batch")
	}

	if err := im.checkpoint.Mark(path); err != nil {
		return total, false, apperrors.Wrap(err, apperrors.CodeCheckpointFailed, "failed to mark file")
	}
	return total, false, nil
}

// Status 统计尚未处理的文件，按所在目录分组
func (im *Importer) Status(ctx context.Context) (*StatusReport, error) {
	files, err := DiscoverFiles(im.opts.DataPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIngestFailed, "failed to discover corpus files")
	}

	root, _ := filepath.Abs(im.opts.DataPath)
	byDir := make(map[string]int)
	report := &StatusReport{FilesTotal: len(files)}
	for _, path := range files {
		if im.checkpoint.Done(path) {
			report.FilesProcessed++
			continue
		}
		report.FilesRemaining++
		dir, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			dir = filepath.Dir(path)
		}
		byDir[filepath.ToSlash(dir)]++
	}

	for dir, n := range byDir {
		report.RemainingByDir = append(report.RemainingByDir, DirCount{Dir: dir, Files: n})
	}
	sort.Slice(report.RemainingByDir, func(i, j int) bool {
		return report.RemainingByDir[i].Dir < report.RemainingByDir[j].Dir
	})

	logger.Debug(ctx, "import status computed",
		"total", report.FilesTotal,
		"processed", report.FilesProcessed,
		"remaining", report.FilesRemaining,
	)
	return report, nil
}
