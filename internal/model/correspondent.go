package model

import "time"

// Correspondent 是文档的往来单位（可选引用）。
type Correspondent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Correspondent) TableName() string {
	return "correspondents"
}

// LetterTemplate 是公文生成引擎使用的模板，生成的文档通过 TemplateID 回指。
type LetterTemplate struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(150);not null" json:"name"`
	FilePath      string    `gorm:"type:varchar(500);not null" json:"-"`
	VariablesJSON string    `gorm:"type:text" json:"variables"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (LetterTemplate) TableName() string {
	return "letter_templates"
}
