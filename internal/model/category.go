package model

import "time"

// Category 对应于 categories 表，是一个层级分类节点。
// Slug 全局唯一，并参与文档存储路径的计算，创建后不再修改。
type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	ParentID    *uint     `gorm:"index" json:"parentId"`
	SortOrder   int       `gorm:"not null;default:0" json:"sortOrder"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Category) TableName() string {
	return "categories"
}

// CategoryNode represents a node in the category tree.
type CategoryNode struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	ParentID  *uint           `json:"parentId"`
	SortOrder int             `json:"sortOrder"`
	IsActive  bool            `json:"isActive"`
	Children  []*CategoryNode `json:"children"`
}
