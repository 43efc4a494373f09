// Package storage 负责归档文件在本地磁盘上的布局：
// <root>/<period.FolderName>/<category.Slug>/<storageFilename>。
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsafePath 表示某个路径分量会逃逸出根目录。
var ErrUnsafePath = errors.New("storage: unsafe path component")

const maxExtLen = 10

// Locator 计算文档的规范存储路径，并执行重定位。
type Locator struct {
	root string
}

// NewLocator 创建一个以 root 为根目录的 Locator，根目录不存在时自动创建。
func NewLocator(root string) (*Locator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("解析存储根目录失败: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储根目录失败: %w", err)
	}
	return &Locator{root: abs}, nil
}

// Root 返回存储根目录的绝对路径。
func (l *Locator) Root() string {
	return l.root
}

// Path 只计算路径，不触碰文件系统。
func (l *Locator) Path(folderName, categorySlug, storageFilename string) (string, error) {
	for _, part := range []string{folderName, categorySlug, storageFilename} {
		if err := checkComponent(part); err != nil {
			return "", err
		}
	}
	if strings.ContainsAny(categorySlug, `/\`) || strings.ContainsAny(storageFilename, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, categorySlug+"/"+storageFilename)
	}
	p := filepath.Join(l.root, filepath.FromSlash(folderName), categorySlug, storageFilename)
	if !l.Contains(p) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}
	return p, nil
}

// Locate 计算路径并确保父目录存在；目录已存在时不报错。
func (l *Locator) Locate(folderName, categorySlug, storageFilename string) (string, error) {
	p, err := l.Path(folderName, categorySlug, storageFilename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("创建存储目录失败: %w", err)
	}
	return p, nil
}

// Save 将 r 写入 path：先写临时文件再 rename，失败时不会留下半截文件。
func (l *Locator) Save(path string, r io.Reader) (int64, error) {
	if !l.Contains(path) {
		return 0, fmt.Errorf("%w: %q", ErrUnsafePath, path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("写入文件失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("落盘文件失败: %w", err)
	}
	return n, nil
}

// Relocate 在 oldPath 存在时将其原子地 rename 到 newPath。
// 源文件不存在时视为 no-op，返回 moved=false 且不报错。
func (l *Locator) Relocate(oldPath, newPath string) (bool, error) {
	if oldPath == newPath {
		return false, nil
	}
	if !l.Contains(newPath) {
		return false, fmt.Errorf("%w: %q", ErrUnsafePath, newPath)
	}
	if _, err := os.Stat(oldPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("检查源文件失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return false, fmt.Errorf("创建目标目录失败: %w", err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return false, fmt.Errorf("移动文件失败: %w", err)
	}
	return true, nil
}

// Remove 删除 path 处的文件，文件不存在时不报错。
func (l *Locator) Remove(path string) error {
	if !l.Contains(path) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Contains 判断 path 是否位于根目录之内。
func (l *Locator) Contains(path string) bool {
	rel, err := filepath.Rel(l.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func checkComponent(part string) error {
	if strings.TrimSpace(part) == "" {
		return fmt.Errorf("%w: empty component", ErrUnsafePath)
	}
	if filepath.IsAbs(part) || strings.HasPrefix(part, "/") {
		return fmt.Errorf("%w: %q", ErrUnsafePath, part)
	}
	for _, seg := range strings.FieldsFunc(part, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%w: %q", ErrUnsafePath, part)
		}
	}
	return nil
}

// GenerateStorageFilename 生成与原始文件名无关的存储文件名：uuid + 规范化后的扩展名。
// 原始文件名中的目录部分被完全丢弃。
func GenerateStorageFilename(originalFilename string) string {
	return uuid.NewString() + SafeExt(originalFilename)
}

// SafeExt 返回小写且只包含字母数字的扩展名（带点），无法识别时返回空串。
func SafeExt(originalFilename string) string {
	base := filepath.Base(strings.ReplaceAll(originalFilename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	if len(ext) < 2 || len(ext) > maxExtLen+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
