// Package service 提供了搜索相关的业务逻辑。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"edu-archive-go/internal/model"
	"edu-archive-go/internal/repository"
	"edu-archive-go/pkg/log"

	"gorm.io/gorm"
)

const maxSearchLimit = 100

// SearchRequest 是一次检索请求，零值 ID 表示不过滤。
type SearchRequest struct {
	Query      string
	CategoryID uint
	PeriodID   uint
	TagID      uint
	Limit      int
	Offset     int
}

// SearchResponse 是检索结果。Total 是搜索引擎报告的总命中数，可能包含已被过滤掉的过期条目。
type SearchResponse struct {
	Results []model.SearchResult `json:"results"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

// SearchService 接口定义了搜索操作。
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

type searchService struct {
	engine       SearchEngine
	docs         repository.DocumentRepository
	categories   repository.CategoryRepository
	periods      repository.PeriodRepository
	tags         repository.TagRepository
	defaultLimit int
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(engine SearchEngine, docs repository.DocumentRepository, categories repository.CategoryRepository,
	periods repository.PeriodRepository, tags repository.TagRepository, defaultLimit int) SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 25
	}
	return &searchService{
		engine:       engine,
		docs:         docs,
		categories:   categories,
		periods:      periods,
		tags:         tags,
		defaultLimit: defaultLimit,
	}
}

// Search 把过滤 ID 解析为名称后查询搜索引擎，再回到记录库校验每个命中。
// 已删除或不存在的文档会被丢弃，返回顺序与引擎的排序一致。
func (s *searchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := model.SearchQuery{
		Text:   strings.TrimSpace(req.Query),
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if q.Limit <= 0 {
		q.Limit = s.defaultLimit
	}
	if q.Limit > maxSearchLimit {
		q.Limit = maxSearchLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	if req.CategoryID != 0 {
		category, err := s.categories.FindByID(ctx, req.CategoryID)
		if err != nil {
			return nil, translateNotFound(err, ErrCategoryNotFound)
		}
		q.Category = category.Name
	}
	if req.PeriodID != 0 {
		period, err := s.periods.FindByID(ctx, req.PeriodID)
		if err != nil {
			return nil, translateNotFound(err, ErrPeriodNotFound)
		}
		q.Period = period.Name()
	}
	if req.TagID != 0 {
		tag, err := s.tags.FindByID(ctx, req.TagID)
		if err != nil {
			return nil, translateNotFound(err, ErrTagNotFound)
		}
		q.Tag = tag.Name
	}

	if s.engine == nil {
		return nil, ErrSearchUnavailable
	}
	log.Infof("[SearchService] 开始检索, query: '%s', category: '%s', period: '%s', tag: '%s'", q.Text, q.Category, q.Period, q.Tag)
	page, err := s.engine.Search(ctx, q)
	if err != nil {
		log.Errorf("[SearchService] 搜索引擎查询失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	resp := &SearchResponse{Results: []model.SearchResult{}, Total: page.Total, Limit: q.Limit, Offset: q.Offset}
	if len(page.Hits) == 0 {
		return resp, nil
	}

	ids := make([]uint, 0, len(page.Hits))
	for _, hit := range page.Hits {
		ids = append(ids, hit.ID)
	}
	docs, err := s.docs.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve search hits: %w", err)
	}
	byID := make(map[uint]*model.Document, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}
	for _, hit := range page.Hits {
		doc, ok := byID[hit.ID]
		if !ok {
			log.Debugf("[SearchService] 丢弃过期的索引条目, documentID: %d", hit.ID)
			continue
		}
		resp.Results = append(resp.Results, model.SearchResult{
			Document:   doc,
			Score:      hit.Score,
			Highlights: hit.Highlights,
		})
	}
	log.Infof("[SearchService] 检索完成, 命中 %d 条, 返回 %d 条", page.Total, len(resp.Results))
	return resp, nil
}

// translateNotFound 把仓库层的 gorm.ErrRecordNotFound 转换为业务错误。
func translateNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
