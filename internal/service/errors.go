// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 编排失败：操作没有发生。
var (
	ErrDocumentNotFound      = errors.New("document not found")
	ErrInvalidClassification = errors.New("invalid category or academic period")
	ErrStorageWrite          = errors.New("failed to write file to storage")
	ErrRelocation            = errors.New("failed to relocate document file")
	ErrPersist               = errors.New("failed to persist document record")
	ErrFileMissing           = errors.New("document file missing from storage")
	ErrFileTooLarge          = errors.New("uploaded file exceeds size limit")
	ErrEmptyFile             = errors.New("uploaded file is empty")
)

// 不变量拒绝：不是异常路径，而是被规则拒绝的请求。
var (
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryInUse       = errors.New("category is referenced by documents")
	ErrCategoryHasChildren = errors.New("category has child categories")
	ErrCategoryCycle       = errors.New("category parent would create a cycle")
	ErrDuplicateSlug       = errors.New("category slug already exists")
	ErrPeriodNotFound      = errors.New("academic period not found")
	ErrPeriodInUse         = errors.New("academic period is referenced by documents")
	ErrPeriodExists        = errors.New("academic period already exists")
	ErrInvalidPeriod       = errors.New("invalid academic period")
	ErrTagNotFound         = errors.New("tag not found")
	ErrDuplicateTag        = errors.New("tag name already exists")
	ErrInvalidInput        = errors.New("invalid input")
)

// ErrSearchUnavailable 表示查询路径无法访问搜索引擎。写入路径从不返回它。
var ErrSearchUnavailable = errors.New("search engine unavailable")
