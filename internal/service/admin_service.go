// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"edu-archive-go/internal/model"
	"edu-archive-go/internal/repository"
	"edu-archive-go/pkg/log"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var tagColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CategoryInput 是创建或更新分类的输入。
type CategoryInput struct {
	Name        string
	Description string
	ParentID    *uint
	SortOrder   int
	IsActive    *bool
}

// PeriodInput 是创建学期的输入。
type PeriodInput struct {
	YearStart int
	YearEnd   int
	Semester  string
}

// AdminService 接口定义了分类、学期与标签的管理操作。
type AdminService interface {
	// Category Management
	CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uint) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryTree(ctx context.Context) ([]*model.CategoryNode, error)

	// Academic Period Management
	CreatePeriod(ctx context.Context, in PeriodInput) (*model.AcademicPeriod, error)
	TogglePeriod(ctx context.Context, id uint) (*model.AcademicPeriod, error)
	DeletePeriod(ctx context.Context, id uint) error
	ListPeriods(ctx context.Context) ([]model.AcademicPeriod, error)

	// Tag Management
	CreateTag(ctx context.Context, name, color string) (*model.Tag, error)
	UpdateTag(ctx context.Context, id uint, name, color string) (*model.Tag, error)
	DeleteTag(ctx context.Context, id uint) error
	ListTags(ctx context.Context) ([]model.Tag, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	categories repository.CategoryRepository
	periods    repository.PeriodRepository
	tags       repository.TagRepository
	docs       repository.DocumentRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(categories repository.CategoryRepository, periods repository.PeriodRepository,
	tags repository.TagRepository, docs repository.DocumentRepository) AdminService {
	return &adminService{categories: categories, periods: periods, tags: tags, docs: docs}
}

// CreateCategory 根据名称生成全局唯一的 slug 并创建分类。
func (s *adminService) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: category name %q", ErrInvalidInput, in.Name)
	}
	_, err := s.categories.FindBySlug(ctx, slug)
	if err == nil {
		return nil, ErrDuplicateSlug
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if in.ParentID != nil {
		if _, err := s.categories.FindByID(ctx, *in.ParentID); err != nil {
			return nil, translateNotFound(err, ErrCategoryNotFound)
		}
	}

	category := &model.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		ParentID:    in.ParentID,
		SortOrder:   in.SortOrder,
		IsActive:    true,
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	log.Infof("[AdminService] 分类已创建, id: %d, slug: %s", category.ID, category.Slug)
	return category, nil
}

// UpdateCategory 更新分类。slug 参与存储路径计算，不随名称变化。
func (s *adminService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*model.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrCategoryNotFound)
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		category.Name = name
	}
	category.Description = strings.TrimSpace(in.Description)
	category.SortOrder = in.SortOrder
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	if in.ParentID != nil {
		if err := s.checkParent(ctx, id, *in.ParentID); err != nil {
			return nil, err
		}
	}
	category.ParentID = in.ParentID

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// checkParent 沿 parentID 向上遍历祖先，若遇到 id 自身则说明会形成环。
// 遍历步数不超过分类总数，已有数据中存在环时也能终止。
func (s *adminService) checkParent(ctx context.Context, id, parentID uint) error {
	if parentID == id {
		return ErrCategoryCycle
	}
	all, err := s.categories.FindAll(ctx)
	if err != nil {
		return err
	}
	parents := make(map[uint]*uint, len(all))
	for _, c := range all {
		parents[c.ID] = c.ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return ErrCategoryNotFound
	}
	cur := &parentID
	for steps := 0; cur != nil && steps <= len(all); steps++ {
		if *cur == id {
			return ErrCategoryCycle
		}
		cur = parents[*cur]
	}
	return nil
}

// DeleteCategory 删除分类。仍有子分类或仍被任何文档（包括回收站中的）引用时拒绝。
func (s *adminService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		return translateNotFound(err, ErrCategoryNotFound)
	}
	children, err := s.categories.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ErrCategoryHasChildren
	}
	refs, err := s.docs.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrCategoryInUse
	}
	return s.categories.Delete(ctx, id)
}

func (s *adminService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.FindAll(ctx)
}

// GetCategoryTree retrieves all categories and organizes them into a tree structure.
// 父节点不存在的分类被视为根节点。
func (s *adminService) GetCategoryTree(ctx context.Context) ([]*model.CategoryNode, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uint]*model.CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &model.CategoryNode{
			ID:        c.ID,
			Name:      c.Name,
			Slug:      c.Slug,
			ParentID:  c.ParentID,
			SortOrder: c.SortOrder,
			IsActive:  c.IsActive,
			Children:  []*model.CategoryNode{},
		}
	}

	tree := []*model.CategoryNode{}
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && *c.ParentID != c.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		tree = append(tree, node)
	}
	sortNodes(tree, 0, len(nodes))
	return tree, nil
}

func sortNodes(nodes []*model.CategoryNode, depth, limit int) {
	if depth > limit {
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		sortNodes(n.Children, depth+1, limit)
	}
}

// CreatePeriod 创建学期，(起始年, 结束年, 学期) 相同的记录只能有一条。
func (s *adminService) CreatePeriod(ctx context.Context, in PeriodInput) (*model.AcademicPeriod, error) {
	semester := strings.TrimSpace(in.Semester)
	if in.YearStart <= 0 || in.YearEnd < in.YearStart || semester == "" || strings.ContainsAny(semester, `/\`) {
		return nil, ErrInvalidPeriod
	}
	_, err := s.periods.FindByKey(ctx, in.YearStart, in.YearEnd, semester)
	if err == nil {
		return nil, ErrPeriodExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	period := &model.AcademicPeriod{YearStart: in.YearStart, YearEnd: in.YearEnd, Semester: semester, IsActive: true}
	if err := s.periods.Create(ctx, period); err != nil {
		return nil, err
	}
	log.Infof("[AdminService] 学期已创建, id: %d, name: %s", period.ID, period.Name())
	return period, nil
}

func (s *adminService) TogglePeriod(ctx context.Context, id uint) (*model.AcademicPeriod, error) {
	period, err := s.periods.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrPeriodNotFound)
	}
	period.IsActive = !period.IsActive
	if err := s.periods.Update(ctx, period); err != nil {
		return nil, err
	}
	return period, nil
}

// DeletePeriod 删除学期，仍被文档引用时拒绝。
func (s *adminService) DeletePeriod(ctx context.Context, id uint) error {
	if _, err := s.periods.FindByID(ctx, id); err != nil {
		return translateNotFound(err, ErrPeriodNotFound)
	}
	refs, err := s.docs.CountByPeriod(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return ErrPeriodInUse
	}
	return s.periods.Delete(ctx, id)
}

func (s *adminService) ListPeriods(ctx context.Context) ([]model.AcademicPeriod, error) {
	return s.periods.FindAll(ctx)
}

// CreateTag 创建标签，名称全局唯一。
func (s *adminService) CreateTag(ctx context.Context, name, color string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty tag name", ErrInvalidInput)
	}
	color, err := normalizeColor(color)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTagNameFree(ctx, name, 0); err != nil {
		return nil, err
	}
	tag := &model.Tag{Name: name, Color: color}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// UpdateTag 重命名或修改颜色，重命名时检查唯一性。
func (s *adminService) UpdateTag(ctx context.Context, id uint, name, color string) (*model.Tag, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err, ErrTagNotFound)
	}
	if name = strings.TrimSpace(name); name != "" && name != tag.Name {
		if err := s.ensureTagNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		tag.Name = name
	}
	if color != "" {
		if tag.Color, err = normalizeColor(color); err != nil {
			return nil, err
		}
	}
	if err := s.tags.Update(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *adminService) DeleteTag(ctx context.Context, id uint) error {
	if _, err := s.tags.FindByID(ctx, id); err != nil {
		return translateNotFound(err, ErrTagNotFound)
	}
	return s.tags.Delete(ctx, id)
}

func (s *adminService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.tags.FindAll(ctx)
}

func (s *adminService) ensureTagNameFree(ctx context.Context, name string, self uint) error {
	existing, err := s.tags.FindByName(ctx, name)
	if err == nil && existing.ID != self {
		return ErrDuplicateTag
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func normalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return model.DefaultTagColor, nil
	}
	if !tagColorPattern.MatchString(color) {
		return "", fmt.Errorf("%w: color %q", ErrInvalidInput, color)
	}
	return strings.ToLower(color), nil
}

// Slugify 生成 URL 安全的 slug：去掉变音符号，转小写，非字母数字的连续字符折叠为一个连字符。
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
