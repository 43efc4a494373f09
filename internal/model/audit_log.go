package model

import "time"

// 审计动作
const (
	AuditUpload   = "upload"
	AuditView     = "view"
	AuditDownload = "download"
	AuditEdit     = "edit"
	AuditDelete   = "delete"
	AuditRestore  = "restore"
)

// AuditLog 对应于 audit_logs 表，只追加不修改。
type AuditLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID    uint      `gorm:"index" json:"actorId"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	DocumentID *uint     `gorm:"index" json:"documentId"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ipAddress"`
	UserAgent  string    `gorm:"type:varchar(500)" json:"userAgent"`
	Details    string    `gorm:"type:text" json:"details"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (AuditLog) TableName() string {
	return "audit_logs"
}
