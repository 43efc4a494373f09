package model

import (
	"fmt"
	"time"
)

// AcademicPeriod 对应于 academic_periods 表，表示一个学年学期。
type AcademicPeriod struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	YearStart int       `gorm:"not null;uniqueIndex:idx_period_unique" json:"yearStart"`
	YearEnd   int       `gorm:"not null;uniqueIndex:idx_period_unique" json:"yearEnd"`
	Semester  string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_period_unique" json:"semester"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (AcademicPeriod) TableName() string {
	return "academic_periods"
}

// Name 返回展示名称，例如 "2024-2025 Ganjil"。
func (p AcademicPeriod) Name() string {
	return fmt.Sprintf("%d-%d %s", p.YearStart, p.YearEnd, p.Semester)
}

// FolderName 返回存储目录名，例如 "2024-2025/Ganjil"。
func (p AcademicPeriod) FolderName() string {
	return fmt.Sprintf("%d-%d/%s", p.YearStart, p.YearEnd, p.Semester)
}
