// Package tagging 根据已有标签词表为文档推荐标签。
package tagging

import (
	"strings"

	"edu-archive-go/internal/model"

	"golang.org/x/text/cases"
)

// Matcher 从词表中挑出与文档匹配、且尚未挂载的标签。
type Matcher interface {
	Match(title, text string, vocabulary, attached []model.Tag) []model.Tag
}

// SubstringMatcher 对标题与正文做大小写无关（Unicode case folding）的子串匹配。
// 常用词作为标签名时会产生误报，这是可以接受的。
type SubstringMatcher struct{}

// NewSubstringMatcher 返回默认的子串匹配器。
func NewSubstringMatcher() SubstringMatcher {
	return SubstringMatcher{}
}

func (SubstringMatcher) Match(title, text string, vocabulary, attached []model.Tag) []model.Tag {
	// Caser 不是并发安全的，每次调用单独创建
	fold := cases.Fold()
	haystack := fold.String(title + " " + text)
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	seen := make(map[string]struct{}, len(attached))
	for _, t := range attached {
		seen[fold.String(t.Name)] = struct{}{}
	}

	var matched []model.Tag
	for _, t := range vocabulary {
		name := fold.String(strings.TrimSpace(t.Name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		if strings.Contains(haystack, name) {
			matched = append(matched, t)
			seen[name] = struct{}{}
		}
	}
	return matched
}

// Merge 把 extra 合并进 tags，按名称去重，保留原有顺序。
func Merge(tags, extra []model.Tag) []model.Tag {
	out := make([]model.Tag, 0, len(tags)+len(extra))
	seen := make(map[string]struct{}, len(tags)+len(extra))
	fold := cases.Fold()
	for _, list := range [][]model.Tag{tags, extra} {
		for _, t := range list {
			key := fold.String(t.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
