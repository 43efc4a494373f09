package model

import (
	"sort"
	"strconv"
)

// SearchIndexEntry 是写入搜索引擎的文档投影，以文档 ID 为键。
// 每次索引都完整重建，不做部分字段更新。
type SearchIndexEntry struct {
	ID               uint     `json:"id"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Description      string   `json:"description"`
	OriginalFilename string   `json:"original_filename"`
	Category         string   `json:"category"`
	Period           string   `json:"period"`
	Year             int      `json:"year"`
	Month            int      `json:"month"`
	Tags             []string `json:"tags"`
	UploadedAt       int64    `json:"uploaded_at"`
	MimeType         string   `json:"mime_type"`
}

// DocID 返回搜索引擎中使用的文档键。
func (e SearchIndexEntry) DocID() string {
	return strconv.FormatUint(uint64(e.ID), 10)
}

// NewSearchIndexEntry 由文档记录构建投影，是记录当前状态的纯函数。
// 调用方需要预加载 Category、AcademicPeriod 与 Tags。
func NewSearchIndexEntry(doc *Document) SearchIndexEntry {
	entry := SearchIndexEntry{
		ID:               doc.ID,
		Title:            doc.Title,
		Content:          doc.ContentText,
		Description:      doc.Description,
		OriginalFilename: doc.OriginalFilename,
		Year:             doc.Year,
		Month:            doc.Month,
		UploadedAt:       doc.UploadedAt.Unix(),
		MimeType:         doc.MimeType,
	}
	if doc.Category != nil {
		entry.Category = doc.Category.Name
	}
	if doc.AcademicPeriod != nil {
		entry.Period = doc.AcademicPeriod.Name()
	}
	entry.Tags = doc.TagNames()
	sort.Strings(entry.Tags)
	return entry
}

// SearchHit 是搜索引擎返回的一条命中，Highlights 中的片段使用 <mark> 包裹。
type SearchHit struct {
	ID         uint                `json:"id"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchResult 是经过记录库二次校验后返回给调用方的单条结果。
type SearchResult struct {
	Document   *Document           `json:"document"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchQuery 是一次全文检索请求。Category、Period、Tag 为已解析的名称，空串表示不过滤，
// 多个条件之间为 AND 关系。
type SearchQuery struct {
	Text     string
	Category string
	Period   string
	Tag      string
	Limit    int
	Offset   int
}

// SearchPage 是搜索引擎返回的一页命中，Total 为引擎报告的总命中数。
type SearchPage struct {
	Hits  []SearchHit
	Total int64
}
