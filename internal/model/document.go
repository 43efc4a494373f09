// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"time"

	"gorm.io/datatypes"
)

// Document 对应于 documents 表，是归档文档的权威记录。
// FilePath 始终由 <period.FolderName>/<category.Slug>/<StoredFilename> 推导，不单独设置。
type Document struct {
	ID               uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title            string `gorm:"type:varchar(255);not null" json:"title"`
	OriginalFilename string `gorm:"type:varchar(255);not null" json:"originalFilename"`
	// StoredFilename 由服务端生成（uuid + 扩展名），与用户提供的文件名无关。
	StoredFilename string            `gorm:"type:varchar(255);not null;uniqueIndex" json:"storedFilename"`
	FilePath       string            `gorm:"type:varchar(500);not null" json:"-"`
	FileSize       int64             `gorm:"not null;default:0" json:"fileSize"`
	MimeType       string            `gorm:"type:varchar(100)" json:"mimeType"`
	ContentText    string            `gorm:"type:longtext" json:"-"`
	Description    string            `gorm:"type:text" json:"description"`
	Metadata       datatypes.JSONMap `json:"metadata"`

	CategoryID       uint            `gorm:"not null;index" json:"categoryId"`
	Category         *Category       `json:"category,omitempty"`
	AcademicPeriodID uint            `gorm:"not null;index" json:"academicPeriodId"`
	AcademicPeriod   *AcademicPeriod `json:"academicPeriod,omitempty"`
	CorrespondentID  *uint           `gorm:"index" json:"correspondentId"`
	Correspondent    *Correspondent  `json:"correspondent,omitempty"`
	TemplateID       *uint           `gorm:"index" json:"templateId"`
	Template         *LetterTemplate `json:"template,omitempty"`
	Tags             []Tag           `gorm:"many2many:document_tags;" json:"tags"`

	Year       int        `gorm:"index" json:"year"`
	Month      int        `json:"month"`
	UploadedBy uint       `gorm:"not null" json:"uploadedBy"`
	UploadedAt time.Time  `gorm:"autoCreateTime;index" json:"uploadedAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	IsDeleted  bool       `gorm:"not null;default:false;index" json:"isDeleted"`
	DeletedAt  *time.Time `gorm:"default:null" json:"deletedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// TagNames 返回文档标签名称列表。
func (d *Document) TagNames() []string {
	names := make([]string, 0, len(d.Tags))
	for _, t := range d.Tags {
		names = append(names, t.Name)
	}
	return names
}
