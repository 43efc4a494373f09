package service

import (
	"context"
	"time"

	"edu-archive-go/internal/model"
	"edu-archive-go/internal/repository"
	"edu-archive-go/pkg/events"
	"edu-archive-go/pkg/log"
)

// AuditPublisher 把审计事件推送到外部事件流（Kafka）。
type AuditPublisher interface {
	Publish(ctx context.Context, event events.AuditEvent) error
}

// AuditService 是只追加的审计日志接收端。
// 记录失败只写日志，不会影响调用方的操作结果。
type AuditService interface {
	Record(ctx context.Context, actor Actor, action string, documentID *uint, details string)
	History(ctx context.Context, documentID uint, limit int) ([]model.AuditLog, error)
}

type auditService struct {
	enabled   bool
	repo      repository.AuditRepository
	publisher AuditPublisher
	now       func() time.Time
}

// NewAuditService 创建审计服务。publisher 可以为 nil。
func NewAuditService(enabled bool, repo repository.AuditRepository, publisher AuditPublisher) AuditService {
	return &auditService{enabled: enabled, repo: repo, publisher: publisher, now: time.Now}
}

func (s *auditService) Record(ctx context.Context, actor Actor, action string, documentID *uint, details string) {
	if !s.enabled {
		return
	}
	entry := &model.AuditLog{
		ActorID:    actor.UserID,
		Action:     action,
		DocumentID: documentID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Details:    details,
		Timestamp:  s.now(),
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, entry); err != nil {
			log.Warnf("[AuditService] 写入审计日志失败, action: %s, documentID: %v, Error: %v", action, derefID(documentID), err)
		}
	}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, events.AuditEvent{
			ActorID:    entry.ActorID,
			Action:     entry.Action,
			DocumentID: entry.DocumentID,
			IPAddress:  entry.IPAddress,
			UserAgent:  entry.UserAgent,
			Details:    entry.Details,
			Timestamp:  entry.Timestamp,
		})
		if err != nil {
			log.Warnf("[AuditService] 发布审计事件失败, action: %s, documentID: %v, Error: %v", action, derefID(documentID), err)
		}
	}
}

func (s *auditService) History(ctx context.Context, documentID uint, limit int) ([]model.AuditLog, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListByDocument(ctx, documentID, limit)
}

func derefID(id *uint) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
