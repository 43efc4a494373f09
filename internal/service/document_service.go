// Package service 包含了应用的业务逻辑层。
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"edu-archive-go/internal/model"
	"edu-archive-go/internal/pipeline"
	"edu-archive-go/internal/repository"
	"edu-archive-go/pkg/extract"
	"edu-archive-go/pkg/log"
	"edu-archive-go/pkg/metrics"
	"edu-archive-go/pkg/storage"
	"edu-archive-go/pkg/tagging"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"
)

// sniffLen 是用于识别媒体类型的文件头长度，与 mimetype 默认的读取上限一致。
const sniffLen = 3072

// UploadInput 是一次上传的输入。生成的信函也走同一条路径，并携带 TemplateID。
type UploadInput struct {
	File             io.Reader
	OriginalFilename string
	Title            string
	Description      string
	CategoryID       uint
	PeriodID         uint
	CorrespondentID  *uint
	TemplateID       *uint
	Tags             []string
	Metadata         map[string]interface{}
}

// EditInput 是一次编辑的输入。指针字段为 nil、ID 为 0 时保持原值；Tags 为 nil 时保持原有标签，
// 非 nil（包括空切片）时整体替换显式标签，然后重新执行自动打标签。
type EditInput struct {
	Title           *string
	Description     *string
	CategoryID      uint
	PeriodID        uint
	CorrespondentID *uint
	Tags            []string
}

// DocumentPage 是一页文档列表。
type DocumentPage struct {
	Documents []model.Document `json:"documents"`
	Total     int64            `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
}

// DocumentService 是入库编排器：上传、编辑、删除、恢复，以及查看与下载。
type DocumentService interface {
	Upload(ctx context.Context, actor Actor, in UploadInput) (*model.Document, error)
	Edit(ctx context.Context, actor Actor, id uint, in EditInput) (*model.Document, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Restore(ctx context.Context, actor Actor, id uint) (*model.Document, error)
	Get(ctx context.Context, actor Actor, id uint) (*model.Document, error)
	Open(ctx context.Context, actor Actor, id uint) (*model.Document, error)
	List(ctx context.Context, filter repository.DocumentFilter) (*DocumentPage, error)
	ListTrash(ctx context.Context, limit, offset int) (*DocumentPage, error)
}

// DocumentServiceDeps 显式列出编排器依赖的所有能力。
type DocumentServiceDeps struct {
	Documents      repository.DocumentRepository
	Categories     repository.CategoryRepository
	Periods        repository.PeriodRepository
	Tags           repository.TagRepository
	Files          FileStore
	Processor      ContentProcessor
	Indexer        IndexService
	Audit          AuditService
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
	PageSize       int
}

type documentService struct {
	docs       repository.DocumentRepository
	categories repository.CategoryRepository
	periods    repository.PeriodRepository
	tags       repository.TagRepository
	files      FileStore
	processor  ContentProcessor
	indexer    IndexService
	audit      AuditService
	metrics    *metrics.Metrics
	maxBytes   int64
	pageSize   int
	now        func() time.Time
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(deps DocumentServiceDeps) DocumentService {
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	return &documentService{
		docs:       deps.Documents,
		categories: deps.Categories,
		periods:    deps.Periods,
		tags:       deps.Tags,
		files:      deps.Files,
		processor:  deps.Processor,
		indexer:    deps.Indexer,
		audit:      deps.Audit,
		metrics:    deps.Metrics,
		maxBytes:   deps.MaxUploadBytes,
		pageSize:   pageSize,
		now:        time.Now,
	}
}

// Upload 执行完整的入库流程：
// 识别媒体类型 -> 计算存储路径 -> 落盘 -> 提取文本 -> 自动打标签 -> 写入记录 -> 索引。
// 落盘或写入记录失败时整个操作失败且不留下任何记录；其余阶段只会降级。
func (s *documentService) Upload(ctx context.Context, actor Actor, in UploadInput) (*model.Document, error) {
	category, period, err := s.classification(ctx, in.CategoryID, in.PeriodID)
	if err != nil {
		return nil, err
	}
	originalName := cleanFilename(in.OriginalFilename)
	log.Infof("[DocumentService] 开始处理上传, file: %s, category: %s, period: %s, uploader: %d",
		originalName, category.Slug, period.Name(), actor.UserID)

	// 1. 识别媒体类型
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(in.File, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		s.metrics.Ingested(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: read upload: %v", ErrStorageWrite, err)
	}
	if n == 0 {
		return nil, ErrEmptyFile
	}
	header = header[:n]
	mediaType := resolveMediaType(baseMediaType(mimetype.Detect(header).String()), originalName)
	body := io.MultiReader(bytes.NewReader(header), in.File)

	// 2. 计算存储路径并落盘
	storedName := storage.GenerateStorageFilename(originalName)
	filePath, err := s.files.Locate(period.FolderName(), category.Slug, storedName)
	if err != nil {
		s.metrics.Ingested(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if s.maxBytes > 0 {
		body = io.LimitReader(body, s.maxBytes+1)
	}
	size, err := s.files.Save(filePath, body)
	if err != nil {
		log.Errorf("[DocumentService] 文件落盘失败, path: %s, Error: %v", filePath, err)
		s.metrics.Ingested(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		s.removeFile(filePath)
		return nil, ErrFileTooLarge
	}
	log.Infof("[DocumentService] 文件已保存, path: %s, size: %d, mediaType: %s", filePath, size, mediaType)

	// 3. 显式标签与标签词表，失败只降级
	var diag pipeline.Diagnostics
	explicit, err := s.explicitTags(ctx, in.Tags)
	diag.Add(pipeline.StageAutoTag, err)
	vocabulary, err := s.tags.FindAll(ctx)
	diag.Add(pipeline.StageAutoTag, err)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(originalName, path.Ext(originalName))
	}

	// 4. 提取文本 + 自动打标签
	out := s.processor.Process(ctx, pipeline.Input{
		Path:       filePath,
		MediaType:  mediaType,
		Title:      title,
		Attached:   explicit,
		Vocabulary: vocabulary,
	})
	diag.Warnings = append(diag.Warnings, out.Diagnostics.Warnings...)

	// 5. 写入记录
	now := s.now()
	meta := make(map[string]interface{}, len(in.Metadata)+2)
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["original_filename"] = originalName
	meta["mime_type"] = mediaType
	doc := &model.Document{
		Title:            title,
		OriginalFilename: originalName,
		StoredFilename:   storedName,
		FilePath:         filePath,
		FileSize:         size,
		MimeType:         mediaType,
		ContentText:      out.Text,
		Description:      strings.TrimSpace(in.Description),
		Metadata:         meta,
		CategoryID:       category.ID,
		AcademicPeriodID: period.ID,
		CorrespondentID:  in.CorrespondentID,
		TemplateID:       in.TemplateID,
		Tags:             tagging.Merge(explicit, out.MatchedTags),
		Year:             now.Year(),
		Month:            int(now.Month()),
		UploadedBy:       actor.UserID,
		UploadedAt:       now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		log.Errorf("[DocumentService] 写入文档记录失败, file: %s, Error: %v", originalName, err)
		s.removeFile(filePath)
		s.metrics.Ingested(metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	doc.Category = category
	doc.AcademicPeriod = period

	// 6. 索引与审计，失败只记录
	s.indexer.Index(ctx, doc)
	s.audit.Record(ctx, actor, model.AuditUpload, &doc.ID, originalName)

	s.reportDiagnostics(doc.ID, diag)
	s.metrics.Ingested(metrics.OutcomeSuccess)
	log.Infof("[DocumentService] 上传完成, documentID: %d, strategy: %s, tags: %v", doc.ID, out.Strategy, doc.TagNames())
	return doc, nil
}

// Edit 修改标题、描述、分类与标签。分类或学期变化时，文件搬迁与记录更新在同一个事务中完成：
// 事务失败时文件会被搬回原位置。
func (s *documentService) Edit(ctx context.Context, actor Actor, id uint, in EditInput) (*model.Document, error) {
	doc, err := s.docs.FindActiveByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrDocumentNotFound)
	}

	categoryID, periodID := doc.CategoryID, doc.AcademicPeriodID
	if in.CategoryID != 0 {
		categoryID = in.CategoryID
	}
	if in.PeriodID != 0 {
		periodID = in.PeriodID
	}
	category, period, err := s.classification(ctx, categoryID, periodID)
	if err != nil {
		return nil, err
	}

	upd := repository.DocumentUpdate{
		Title:            doc.Title,
		Description:      doc.Description,
		CategoryID:       category.ID,
		AcademicPeriodID: period.ID,
		CorrespondentID:  doc.CorrespondentID,
		FilePath:         doc.FilePath,
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		upd.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		upd.Description = strings.TrimSpace(*in.Description)
	}
	if in.CorrespondentID != nil {
		upd.CorrespondentID = in.CorrespondentID
	}

	var diag pipeline.Diagnostics
	vocabulary, err := s.tags.FindAll(ctx)
	diag.Add(pipeline.StageAutoTag, err)

	oldPath := doc.FilePath
	if category.ID != doc.CategoryID || period.ID != doc.AcademicPeriodID {
		newPath, err := s.files.Path(period.FolderName(), category.Slug, doc.StoredFilename)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRelocation, err)
		}
		upd.FilePath = newPath
	}

	moved := false
	// 新建的显式标签与记录更新同属一个事务，失败时一起回滚
	err = s.docs.Transaction(ctx, func(tx repository.DocumentRepository) error {
		attached := doc.Tags
		if in.Tags != nil {
			explicit, err := tx.FindOrCreateTags(ctx, in.Tags)
			if err != nil {
				return err
			}
			attached = explicit
		}
		matched, retagDiag := s.processor.Retag(upd.Title, doc.ContentText, vocabulary, attached)
		diag.Warnings = append(diag.Warnings, retagDiag.Warnings...)
		upd.Tags = tagging.Merge(attached, matched)
		if upd.Tags == nil {
			upd.Tags = []model.Tag{}
		}

		if upd.FilePath != oldPath {
			ok, err := s.files.Relocate(oldPath, upd.FilePath)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrRelocation, err)
			}
			if !ok {
				log.Warnf("[DocumentService] 源文件不存在，仅更新记录路径, documentID: %d, path: %s", id, oldPath)
			}
			moved = ok
		}
		return tx.Update(ctx, id, upd)
	})
	if err != nil {
		if moved {
			if _, rbErr := s.files.Relocate(upd.FilePath, oldPath); rbErr != nil {
				log.Errorf("[DocumentService] 回滚文件搬迁失败, documentID: %d, from: %s, to: %s, Error: %v", id, upd.FilePath, oldPath, rbErr)
			}
		}
		switch {
		case errors.Is(err, ErrRelocation):
			return nil, err
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrDocumentNotFound
		default:
			log.Errorf("[DocumentService] 更新文档记录失败, documentID: %d, Error: %v", id, err)
			return nil, fmt.Errorf("%w: %v", ErrPersist, err)
		}
	}

	updated, err := s.docs.FindActiveByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrDocumentNotFound)
	}
	s.indexer.Index(ctx, updated)
	s.audit.Record(ctx, actor, model.AuditEdit, &updated.ID, "")
	s.reportDiagnostics(id, diag)
	log.Infof("[DocumentService] 编辑完成, documentID: %d, path: %s", id, updated.FilePath)
	return updated, nil
}

// Delete 软删除文档并从索引中移除，文件保留在原位置。
func (s *documentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := s.docs.SoftDelete(ctx, id, s.now()); err != nil {
		return translateNotFound(err, ErrDocumentNotFound)
	}
	s.indexer.Remove(ctx, id)
	s.audit.Record(ctx, actor, model.AuditDelete, &id, "")
	log.Infof("[DocumentService] 文档已移入回收站, documentID: %d", id)
	return nil
}

// Restore 恢复软删除的文档，并重新完整写入索引。
func (s *documentService) Restore(ctx context.Context, actor Actor, id uint) (*model.Document, error) {
	if err := s.docs.Restore(ctx, id); err != nil {
		return nil, translateNotFound(err, ErrDocumentNotFound)
	}
	doc, err := s.docs.FindActiveByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrDocumentNotFound)
	}
	s.indexer.Index(ctx, doc)
	s.audit.Record(ctx, actor, model.AuditRestore, &id, "")
	log.Infof("[DocumentService] 文档已恢复, documentID: %d", id)
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, actor Actor, id uint) (*model.Document, error) {
	doc, err := s.docs.FindActiveByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrDocumentNotFound)
	}
	s.audit.Record(ctx, actor, model.AuditView, &id, "")
	return doc, nil
}

// Open 返回可下载的文档，调用方使用 FilePath 读取文件。
func (s *documentService) Open(ctx context.Context, actor Actor, id uint) (*model.Document, error) {
	doc, err := s.docs.FindActiveByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrDocumentNotFound)
	}
	if _, err := os.Stat(doc.FilePath); err != nil {
		log.Warnf("[DocumentService] 文档文件缺失, documentID: %d, path: %s, Error: %v", id, doc.FilePath, err)
		return nil, ErrFileMissing
	}
	s.audit.Record(ctx, actor, model.AuditDownload, &id, "")
	return doc, nil
}

func (s *documentService) List(ctx context.Context, filter repository.DocumentFilter) (*DocumentPage, error) {
	filter.Limit, filter.Offset = s.page(filter.Limit, filter.Offset)
	docs, total, err := s.docs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DocumentPage{Documents: docs, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *documentService) ListTrash(ctx context.Context, limit, offset int) (*DocumentPage, error) {
	limit, offset = s.page(limit, offset)
	docs, total, err := s.docs.ListTrash(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &DocumentPage{Documents: docs, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *documentService) page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// classification 校验分类与学期都存在。
func (s *documentService) classification(ctx context.Context, categoryID, periodID uint) (*model.Category, *model.AcademicPeriod, error) {
	if categoryID == 0 || periodID == 0 {
		return nil, nil, ErrInvalidClassification
	}
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: category %d not found", ErrInvalidClassification, categoryID)
		}
		return nil, nil, err
	}
	period, err := s.periods.FindByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: period %d not found", ErrInvalidClassification, periodID)
		}
		return nil, nil, err
	}
	return category, period, nil
}

func (s *documentService) explicitTags(ctx context.Context, names []string) ([]model.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return s.tags.FindOrCreateByNames(ctx, names)
}

func (s *documentService) removeFile(filePath string) {
	if err := s.files.Remove(filePath); err != nil {
		log.Warnf("[DocumentService] 清理文件失败, path: %s, Error: %v", filePath, err)
	}
}

func (s *documentService) reportDiagnostics(id uint, diag pipeline.Diagnostics) {
	for _, w := range diag.Warnings {
		log.Warnf("[DocumentService] 阶段降级, documentID: %d, stage: %s, Error: %v", id, w.Stage, w.Err)
		s.metrics.Degraded(w.Stage)
	}
}

// cleanFilename 只保留原始文件名的最后一段。
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "untitled"
	}
	return name
}

// containerMediaTypes 是只能说明容器格式的识别结果。
// OLE 复合文档的 CLSID 可能位于识别窗口之外，ZIP 也可能是 OOXML 文档。
var containerMediaTypes = map[string]bool{
	"application/x-ole-storage": true,
	"application/zip":           true,
	"application/octet-stream":  true,
}

// extensionMediaTypes 是识别结果只是容器格式时按扩展名回退的媒体类型。
var extensionMediaTypes = map[string]string{
	".doc":  extract.MediaLegacyWord,
	".docx": extract.MediaDOCX,
	".xlsx": extract.MediaXLSX,
	".pdf":  extract.MediaPDF,
}

// resolveMediaType 在内容识别只得到容器格式时，按净化后的扩展名细化媒体类型。
func resolveMediaType(detected, filename string) string {
	if !containerMediaTypes[detected] {
		return detected
	}
	if mt, ok := extensionMediaTypes[storage.SafeExt(filename)]; ok {
		return mt
	}
	return detected
}

func baseMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// ParseTagNames 解析逗号分隔的标签列表。
func ParseTagNames(raw string) []string {
	names := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// ParseID 解析路径参数中的文档 ID。
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidInput
	}
	return uint(id), nil
}
