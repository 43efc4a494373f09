package repository

import (
	"context"

	"edu-archive-go/internal/model"

	"gorm.io/gorm"
)

// AuditRepository 接口定义了审计日志的追加与查询。
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	ListByDocument(ctx context.Context, documentID uint, limit int) ([]model.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建一个新的 AuditRepository 实例。
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByDocument 按时间倒序返回某个文档的审计记录。
func (r *auditRepository) ListByDocument(ctx context.Context, documentID uint, limit int) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("timestamp DESC").Order("id DESC").
		Limit(limitOrAll(limit)).
		Find(&logs).Error
	return logs, err
}
