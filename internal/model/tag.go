package model

import "time"

// DefaultTagColor 是新建标签的默认显示颜色。
const DefaultTagColor = "#6c757d"

// Tag 对应于 tags 表，名称全局唯一，与文档多对多关联。
type Tag struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"name"`
	Color     string    `gorm:"type:varchar(7);not null;default:'#6c757d'" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Tag) TableName() string {
	return "tags"
}
