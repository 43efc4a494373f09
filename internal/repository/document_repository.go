// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"time"

	"edu-archive-go/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentFilter 描述文档列表的过滤与分页条件，零值字段表示不过滤。
type DocumentFilter struct {
	CategoryID uint
	PeriodID   uint
	TagID      uint
	Query      string
	Limit      int
	Offset     int
}

// DocumentUpdate 是一次编辑要写入的字段。Tags 为 nil 时不修改标签。
type DocumentUpdate struct {
	Title            string
	Description      string
	CategoryID       uint
	AcademicPeriodID uint
	CorrespondentID  *uint
	FilePath         string
	Metadata         map[string]interface{}
	Tags             []model.Tag
}

// DocumentRepository 接口定义了归档文档的持久化操作。
// 除 FindByID 与 Trash 相关方法外，所有查询默认只返回未删除的文档。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uint) (*model.Document, error)
	FindActiveByID(ctx context.Context, id uint) (*model.Document, error)
	FindDeletedByID(ctx context.Context, id uint) (*model.Document, error)
	FindActiveByIDs(ctx context.Context, ids []uint) ([]model.Document, error)
	Update(ctx context.Context, id uint, upd DocumentUpdate) error
	SoftDelete(ctx context.Context, id uint, at time.Time) error
	Restore(ctx context.Context, id uint) error
	List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error)
	ListTrash(ctx context.Context, limit, offset int) ([]model.Document, int64, error)
	ScanActive(ctx context.Context, batchSize int, fn func(batch []model.Document) error) error
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
	CountByPeriod(ctx context.Context, periodID uint) (int64, error)
	// FindOrCreateTags 按名称查找或创建标签。在 Transaction 的 tx 上调用时随事务一起回滚。
	FindOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error)
	// Transaction 在同一个数据库事务中执行 fn，fn 返回错误时整体回滚。
	Transaction(ctx context.Context, fn func(tx DocumentRepository) error) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").
		Preload("AcademicPeriod").
		Preload("Correspondent").
		Preload("Template").
		Preload("Tags")
}

// Create 插入文档记录以及它与标签的关联。
func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// FindByID 不区分删除状态地查找文档。
func (r *documentRepository) FindByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := withRelations(r.db.WithContext(ctx)).First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindActiveByID(ctx context.Context, id uint) (*model.Document, error) {
	return r.findByState(ctx, id, false)
}

func (r *documentRepository) FindDeletedByID(ctx context.Context, id uint) (*model.Document, error) {
	return r.findByState(ctx, id, true)
}

func (r *documentRepository) findByState(ctx context.Context, id uint, deleted bool) (*model.Document, error) {
	var doc model.Document
	err := withRelations(r.db.WithContext(ctx)).
		Where("id = ? AND is_deleted = ?", id, deleted).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindActiveByIDs 批量查找未删除的文档，返回顺序不保证与 ids 一致。
func (r *documentRepository) FindActiveByIDs(ctx context.Context, ids []uint) ([]model.Document, error) {
	var docs []model.Document
	if len(ids) == 0 {
		return docs, nil
	}
	err := withRelations(r.db.WithContext(ctx)).
		Where("id IN ? AND is_deleted = ?", ids, false).
		Find(&docs).Error
	return docs, err
}

// Update 写入编辑后的字段；upd.Tags 非 nil 时整体替换标签集合。
func (r *documentRepository) Update(ctx context.Context, id uint, upd DocumentUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"title":              upd.Title,
			"description":        upd.Description,
			"category_id":        upd.CategoryID,
			"academic_period_id": upd.AcademicPeriodID,
			"correspondent_id":   upd.CorrespondentID,
			"file_path":          upd.FilePath,
		}
		if upd.Metadata != nil {
			fields["metadata"] = datatypes.JSONMap(upd.Metadata)
		}
		// MySQL 的 RowsAffected 不统计值未变化的行，先确认记录存在
		var n int64
		if err := tx.Model(&model.Document{}).Where("id = ? AND is_deleted = ?", id, false).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Model(&model.Document{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		if upd.Tags == nil {
			return nil
		}
		doc := &model.Document{ID: id}
		return tx.Model(doc).Association("Tags").Replace(upd.Tags)
	})
}

// SoftDelete 设置删除标记与删除时间，文件与搜索索引不在这里处理。
func (r *documentRepository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Restore 清除删除标记与删除时间。
func (r *documentRepository) Restore(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND is_deleted = ?", id, true).
		Updates(map[string]interface{}{"is_deleted": false, "deleted_at": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 按上传时间倒序列出未删除的文档，并返回过滤后的总数。
func (r *documentRepository) List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Where("is_deleted = ?", false)
		if filter.CategoryID != 0 {
			q = q.Where("category_id = ?", filter.CategoryID)
		}
		if filter.PeriodID != 0 {
			q = q.Where("academic_period_id = ?", filter.PeriodID)
		}
		if filter.TagID != 0 {
			q = q.Where("id IN (?)", r.db.Table("document_tags").Select("document_id").Where("tag_id = ?", filter.TagID))
		}
		if filter.Query != "" {
			like := "%" + filter.Query + "%"
			q = q.Where("(title LIKE ? OR original_filename LIKE ? OR description LIKE ?)", like, like, like)
		}
		return q
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []model.Document
	err := withRelations(r.db.WithContext(ctx)).Scopes(scope).
		Order("uploaded_at DESC").Order("id DESC").
		Limit(limitOrAll(filter.Limit)).Offset(filter.Offset).
		Find(&docs).Error
	return docs, total, err
}

// ListTrash 按删除时间倒序列出已删除的文档。
func (r *documentRepository) ListTrash(ctx context.Context, limit, offset int) ([]model.Document, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("is_deleted = ?", true).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []model.Document
	err := withRelations(r.db.WithContext(ctx)).
		Where("is_deleted = ?", true).
		Order("deleted_at DESC").Order("id DESC").
		Limit(limitOrAll(limit)).Offset(offset).
		Find(&docs).Error
	return docs, total, err
}

// limitOrAll 把非正数转换为 gorm 的“不限制”。
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// ScanActive 按主键顺序分批遍历所有未删除的文档。
func (r *documentRepository) ScanActive(ctx context.Context, batchSize int, fn func(batch []model.Document) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	var docs []model.Document
	res := withRelations(r.db.WithContext(ctx)).
		Where("is_deleted = ?", false).
		FindInBatches(&docs, batchSize, func(tx *gorm.DB, batch int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(docs)
		})
	return res.Error
}

// CountByCategory 统计引用该分类的文档数，包括回收站中的文档。
func (r *documentRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

// CountByPeriod 统计引用该学期的文档数，包括回收站中的文档。
func (r *documentRepository) CountByPeriod(ctx context.Context, periodID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).Where("academic_period_id = ?", periodID).Count(&n).Error
	return n, err
}

func (r *documentRepository) FindOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error) {
	return findOrCreateTags(r.db.WithContext(ctx), names)
}

func (r *documentRepository) Transaction(ctx context.Context, fn func(tx DocumentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&documentRepository{db: tx})
	})
}
