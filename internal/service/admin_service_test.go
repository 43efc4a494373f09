package service

import (
	"context"
	"testing"
	"time"

	"edu-archive-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdmin(h *harness) AdminService {
	return NewAdminService(h.categories, h.periods, h.tags, h.docs)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Surat Keputusan":        "surat-keputusan",
		"  Café  Déjà-vu! ":      "cafe-deja-vu",
		"Laporan/Keuangan 2024":  "laporan-keuangan-2024",
		"../..":                  "",
		"SK   Dekan -- Fakultas": "sk-dekan-fakultas",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCategory_CreateRejectsDuplicateSlug(t *testing.T) {
	h := newHarness(t)
	admin := newAdmin(h)
	ctx := context.Background()

	created, err := admin.CreateCategory(ctx, CategoryInput{Name: "Surat Masuk", ParentID: &h.letters.ID})
	require.NoError(t, err)
	assert.Equal(t, "surat-masuk", created.Slug)
	assert.True(t, created.IsActive)

	_, err = admin.CreateCategory(ctx, CategoryInput{Name: "surat  masuk!"})
	assert.ErrorIs(t, err, ErrDuplicateSlug)

	_, err = admin.CreateCategory(ctx, CategoryInput{Name: "!!!"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := uint(404)
	_, err = admin.CreateCategory(ctx, CategoryInput{Name: "Orphan", ParentID: &missing})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategory_UpdateRejectsCycles(t *testing.T) {
	h := newHarness(t)
	admin := newAdmin(h)
	ctx := context.Background()

	child, err := admin.CreateCategory(ctx, CategoryInput{Name: "Child", ParentID: &h.letters.ID})
	require.NoError(t, err)
	grandchild, err := admin.CreateCategory(ctx, CategoryInput{Name: "Grandchild", ParentID: &child.ID})
	require.NoError(t, err)

	_, err = admin.UpdateCategory(ctx, h.letters.ID, CategoryInput{ParentID: &grandchild.ID})
	assert.ErrorIs(t, err, ErrCategoryCycle)
	_, err = admin.UpdateCategory(ctx, child.ID, CategoryInput{ParentID: &child.ID})
	assert.ErrorIs(t, err, ErrCategoryCycle)

	updated, err := admin.UpdateCategory(ctx, grandchild.ID, CategoryInput{Name: "Renamed", ParentID: &h.finance.ID, SortOrder: 2})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "grandchild", updated.Slug)
	assert.Equal(t, h.finance.ID, *updated.ParentID)
}

func TestCategory_DeleteGuards(t *testing.T) {
	h := newHarness(t)
	admin := newAdmin(h)
	ctx := context.Background()

	child, err := admin.CreateCategory(ctx, CategoryInput{Name: "Child", ParentID: &h.letters.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, admin.DeleteCategory(ctx, h.letters.ID), ErrCategoryHasChildren)

	// 回收站中的文档同样阻止删除
	doc := h.upload(t, "Memo", "rapat")
	require.NoError(t, h.svc.Delete(ctx, h.actor, doc.ID))
	assert.ErrorIs(t, admin.DeleteCategory(ctx, h.finance.ID), ErrCategoryInUse)

	require.NoError(t, admin.DeleteCategory(ctx, child.ID))
	assert.ErrorIs(t, admin.DeleteCategory(ctx, child.ID), ErrCategoryNotFound)
	require.NoError(t, admin.DeleteCategory(ctx, h.letters.ID))
}

func TestCategory_Tree(t *testing.T) {
	h := newHarness(t)
	admin := newAdmin(h)
	ctx := context.Background()

	_, err := admin.CreateCategory(ctx, CategoryInput{Name: "Surat Keluar", ParentID: &h.letters.ID, SortOrder: 2})
	require.NoError(t, err)
	_, err = admin.CreateCategory(ctx, CategoryInput{Name: "Surat Masuk", ParentID: &h.letters.ID, SortOrder: 1})
	require.NoError(t, err)

	tree, err := admin.GetCategoryTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "finance", tree[0].Slug)
	assert.Equal(t, "letters", tree[1].Slug)
	require.Len(t, tree[1].Children, 2)
	assert.Equal(t, "surat-masuk", tree[1].Children[0].Slug)
	assert.Equal(t, "surat-keluar", tree[1].Children[1].Slug)
	assert.Empty(t, tree[0].Children)
}

func TestPeriods(t *testing.T) {
	h := newHarness(t)
	admin := newAdmin(h)
	ctx := context.Background()

	_, err := admin.CreatePeriod(ctx, PeriodInput{YearStart: 2025, YearEnd: 2024, Semester: "Genap"})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = admin.CreatePeriod(ctx, PeriodInput{YearStart: 2025, YearEnd: 2026, Semester: "  "})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = admin.CreatePeriod(ctx, PeriodInput{YearStart: 2024, YearEnd: 2025, Semester: "Ganjil"})
	assert.ErrorIs(t, err, ErrPeriodExists)

	created, err := admin.CreatePeriod(ctx, PeriodInput{YearStart: 2025, YearEnd: 2026, Semester: " Genap "})
	require.NoError(t, err)
	assert.Equal(t, "2025-2026 Genap", created.Name())

	periods, err := admin.ListPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 2025, periods[0].YearStart)

	toggled, err := admin.TogglePeriod(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	require.NoError(t, h.db.Create(&model.Document{
		Title: "old", OriginalFilename: "old.txt", StoredFilename: "old-stored.txt", FilePath: "/x",
		CategoryID: h.finance.ID, AcademicPeriodID: h.period.ID, UploadedBy: 1, UploadedAt: time.Now(),
	}).Error)
	assert.ErrorIs(t, admin.DeletePeriod(ctx, h.period.ID), ErrPeriodInUse)
	require.NoError(t, admin.DeletePeriod(ctx, created.ID))
	assert.ErrorIs(t, admin.DeletePeriod(ctx, created.ID), ErrPeriodNotFound)
}

func TestTags(t *testing.T) {
	h := newHarness(t)
	admin := newAdmin(h)
	ctx := context.Background()

	tag, err := admin.CreateTag(ctx, " Rapat ", "")
	require.NoError(t, err)
	assert.Equal(t, "Rapat", tag.Name)
	assert.Equal(t, model.DefaultTagColor, tag.Color)

	_, err = admin.CreateTag(ctx, "Urgent", "#FF0000")
	assert.ErrorIs(t, err, ErrDuplicateTag)
	_, err = admin.CreateTag(ctx, "Merah", "red")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = admin.UpdateTag(ctx, tag.ID, "Urgent", "")
	assert.ErrorIs(t, err, ErrDuplicateTag)

	updated, err := admin.UpdateTag(ctx, tag.ID, "Rapat Dosen", "#00AA00")
	require.NoError(t, err)
	assert.Equal(t, "Rapat Dosen", updated.Name)
	assert.Equal(t, "#00aa00", updated.Color)

	require.NoError(t, admin.DeleteTag(ctx, tag.ID))
	assert.ErrorIs(t, admin.DeleteTag(ctx, tag.ID), ErrTagNotFound)

	tags, err := admin.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Urgent"}, tagNames(tags))
}
