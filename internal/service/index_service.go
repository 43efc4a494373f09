package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"edu-archive-go/internal/model"
	"edu-archive-go/internal/repository"
	"edu-archive-go/pkg/log"
	"edu-archive-go/pkg/metrics"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ReindexOptions 控制一次全量重建。
type ReindexOptions struct {
	// Purge 为 true 时先清空索引，再重新写入所有未删除的文档。
	Purge     bool
	Workers   int
	BatchSize int
}

// ReindexReport 汇总一次重建或修复的结果。
type ReindexReport struct {
	Indexed  int64 `json:"indexed"`
	Removed  int64 `json:"removed"`
	Failed   int64 `json:"failed"`
	Duration time.Duration
}

// IndexService 让搜索索引与记录库保持最终一致。
// Index 与 Remove 是 fire-and-forget：失败只记录日志、指标与脏集合，不向调用方返回错误。
type IndexService interface {
	Index(ctx context.Context, doc *model.Document)
	Remove(ctx context.Context, id uint)
	Reindex(ctx context.Context, opts ReindexOptions) (*ReindexReport, error)
	RepairDirty(ctx context.Context) (*ReindexReport, error)
	DirtyIDs(ctx context.Context) ([]uint, error)
}

type indexService struct {
	engine  SearchEngine
	docs    repository.DocumentRepository
	state   repository.IndexStateRepository
	metrics *metrics.Metrics
	timeout time.Duration
	workers int
	batch   int
}

// NewIndexService 创建索引同步服务。engine 为 nil 时所有写入都被视为失败并记入脏集合。
func NewIndexService(engine SearchEngine, docs repository.DocumentRepository, state repository.IndexStateRepository,
	m *metrics.Metrics, timeout time.Duration, workers, batchSize int) IndexService {
	if state == nil {
		state = repository.NewMemoryIndexStateRepository()
	}
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &indexService{
		engine:  engine,
		docs:    docs,
		state:   state,
		metrics: m,
		timeout: timeout,
		workers: workers,
		batch:   batchSize,
	}
}

var errNoEngine = errors.New("search engine not configured")

func (s *indexService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *indexService) upsert(ctx context.Context, entry model.SearchIndexEntry) error {
	if s.engine == nil {
		return errNoEngine
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.engine.Upsert(ctx, entry)
}

func (s *indexService) delete(ctx context.Context, id uint) error {
	if s.engine == nil {
		return errNoEngine
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.engine.Delete(ctx, id)
}

// Index 重建文档的投影并写入索引。doc 需要预加载分类、学期与标签。
func (s *indexService) Index(ctx context.Context, doc *model.Document) {
	err := s.upsert(ctx, model.NewSearchIndexEntry(doc))
	s.metrics.IndexOp("upsert", err)
	s.settle(ctx, doc.ID, "upsert", err)
}

// Remove 从索引中删除文档。
func (s *indexService) Remove(ctx context.Context, id uint) {
	err := s.delete(ctx, id)
	s.metrics.IndexOp("delete", err)
	s.settle(ctx, id, "delete", err)
}

// settle 根据结果更新脏集合。脏集合自身的失败只写日志。
func (s *indexService) settle(ctx context.Context, id uint, op string, err error) {
	if err != nil {
		log.Warnf("[Indexer] 索引%s失败, documentID: %d, Error: %v", op, id, err)
		s.markDirty(ctx, id)
		return
	}
	if clearErr := s.state.ClearDirty(ctx, id); clearErr != nil {
		log.Warnf("[Indexer] 清除脏文档标记失败, documentID: %d, Error: %v", id, clearErr)
	}
}

func (s *indexService) markDirty(ctx context.Context, id uint) {
	if err := s.state.MarkDirty(ctx, id); err != nil {
		log.Warnf("[Indexer] 记录脏文档失败, documentID: %d, Error: %v", id, err)
	}
}

// Reindex 遍历所有未删除的文档并重新写入索引。结果只取决于记录库的当前状态，重复执行是幂等的。
func (s *indexService) Reindex(ctx context.Context, opts ReindexOptions) (*ReindexReport, error) {
	if s.engine == nil {
		return nil, errNoEngine
	}
	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = s.workers
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batch
	}

	if opts.Purge {
		log.Info("[Indexer] 清空索引")
		if err := s.engine.Purge(ctx); err != nil {
			return nil, fmt.Errorf("purge index: %w", err)
		}
		// 索引已清空，之前记录的脏文档都会在本次遍历中重新写入
		if err := s.state.Reset(ctx); err != nil {
			log.Warnf("[Indexer] 重置脏集合失败: %v", err)
		}
	}

	report := &ReindexReport{}
	var indexed, failed atomic.Int64
	err := s.docs.ScanActive(ctx, batchSize, func(batch []model.Document) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range batch {
			id := batch[i].ID
			entry := model.NewSearchIndexEntry(&batch[i])
			g.Go(func() error {
				err := s.upsert(gctx, entry)
				s.metrics.IndexOp("upsert", err)
				if err != nil {
					failed.Add(1)
					log.Warnf("[Indexer] 重建时写入失败, documentID: %d, Error: %v", id, err)
					s.markDirty(ctx, id)
					return nil
				}
				indexed.Add(1)
				return nil
			})
		}
		return g.Wait()
	})
	report.Indexed = indexed.Load()
	report.Failed = failed.Load()
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("scan documents: %w", err)
	}

	// 剩余的脏文档要么刚刚被成功写入，要么已被删除，需要从索引中移除
	repair, err := s.RepairDirty(ctx)
	if err != nil {
		log.Warnf("[Indexer] 重建后修复脏文档失败: %v", err)
	} else {
		report.Removed = repair.Removed
		report.Failed += repair.Failed
	}
	report.Duration = time.Since(start)
	log.Infof("[Indexer] 重建完成, indexed: %d, removed: %d, failed: %d, 耗时: %s",
		report.Indexed, report.Removed, report.Failed, report.Duration)
	return report, nil
}

// RepairDirty 只同步脏集合中的文档：未删除的重新写入，已删除或不存在的从索引中移除。
func (s *indexService) RepairDirty(ctx context.Context) (*ReindexReport, error) {
	start := time.Now()
	ids, err := s.state.ListDirty(ctx)
	if err != nil {
		return nil, err
	}
	report := &ReindexReport{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		doc, err := s.docs.FindActiveByID(ctx, id)
		switch {
		case err == nil:
			err = s.upsert(ctx, model.NewSearchIndexEntry(doc))
			s.metrics.IndexOp("upsert", err)
			if err == nil {
				report.Indexed++
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			err = s.delete(ctx, id)
			s.metrics.IndexOp("delete", err)
			if err == nil {
				report.Removed++
			}
		}
		if err != nil {
			report.Failed++
			log.Warnf("[Indexer] 修复脏文档失败, documentID: %d, Error: %v", id, err)
			continue
		}
		if err := s.state.ClearDirty(ctx, id); err != nil {
			log.Warnf("[Indexer] 清除脏文档标记失败, documentID: %d, Error: %v", id, err)
		}
	}
	report.Duration = time.Since(start)
	return report, nil
}

func (s *indexService) DirtyIDs(ctx context.Context) ([]uint, error) {
	return s.state.ListDirty(ctx)
}
