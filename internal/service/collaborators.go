package service

import (
	"context"
	"io"

	"edu-archive-go/internal/model"
	"edu-archive-go/internal/pipeline"
)

// SearchEngine 是外部全文检索引擎的抽象，pkg/es.Client 是生产实现。
type SearchEngine interface {
	Upsert(ctx context.Context, entry model.SearchIndexEntry) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, q model.SearchQuery) (*model.SearchPage, error)
	Purge(ctx context.Context) error
}

// FileStore 是文件布局与落盘能力，pkg/storage.Locator 是生产实现。
type FileStore interface {
	Path(folderName, categorySlug, storageFilename string) (string, error)
	Locate(folderName, categorySlug, storageFilename string) (string, error)
	Save(path string, r io.Reader) (int64, error)
	Relocate(oldPath, newPath string) (bool, error)
	Remove(path string) error
}

// ContentProcessor 是提取 + 自动打标签管线，internal/pipeline.Processor 是生产实现。
type ContentProcessor interface {
	Process(ctx context.Context, in pipeline.Input) pipeline.Output
	Retag(title, text string, vocabulary, attached []model.Tag) ([]model.Tag, pipeline.Diagnostics)
}

// Actor 是发起一次操作的主体，由调用方显式传入而不是从全局上下文读取。
type Actor struct {
	UserID    uint
	Username  string
	IPAddress string
	UserAgent string
}
