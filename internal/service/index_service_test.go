package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"edu-archive-go/internal/model"
	"edu-archive-go/internal/repository"
	"edu-archive-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReindex_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.upload(t, "Memo satu", "rapat")
	b := h.upload(t, "Memo dua", "anggaran")
	c := h.upload(t, "Urgent notice", "libur")
	require.NoError(t, h.svc.Delete(ctx, h.actor, b.ID))

	// 索引与记录库已经漂移：丢失一条、残留一条
	require.NoError(t, h.engine.Delete(ctx, a.ID))
	require.NoError(t, h.engine.Upsert(ctx, model.SearchIndexEntry{ID: b.ID, Title: "stale"}))

	first, err := h.indexer.Reindex(ctx, ReindexOptions{Purge: true, Workers: 3, BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Indexed)
	assert.Zero(t, first.Failed)
	snapshot := h.engine.snapshot()

	second, err := h.indexer.Reindex(ctx, ReindexOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Indexed)
	assert.Equal(t, snapshot, h.engine.snapshot())

	require.Len(t, snapshot, 2)
	assert.Contains(t, snapshot, a.ID)
	assert.Contains(t, snapshot, c.ID)
	assert.Equal(t, []string{"Urgent"}, snapshot[c.ID].Tags)
}

func TestReindex_ReportsFailuresAndMarksDirty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.upload(t, "Memo", "rapat")
	h.engine.setFail(errors.New("timeout"))

	_, err := h.indexer.Reindex(ctx, ReindexOptions{Purge: true})
	assert.Error(t, err)

	report, err := h.indexer.Reindex(ctx, ReindexOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Indexed)
	assert.GreaterOrEqual(t, report.Failed, int64(1))

	dirty, err := h.indexer.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{doc.ID}, dirty)
}

// unwritableState 的 MarkDirty 总是失败，例如 Redis 不可达。
type unwritableState struct {
	repository.IndexStateRepository
}

func (unwritableState) MarkDirty(context.Context, ...uint) error {
	return errors.New("redis: connection refused")
}

func TestReindex_LogsDirtyMarkFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc := h.upload(t, "Memo", "rapat")

	core, logs := observer.New(zap.WarnLevel)
	defer log.Replace(zap.New(core))()

	indexer := NewIndexService(h.engine, h.docs, unwritableState{repository.NewMemoryIndexStateRepository()}, nil, time.Second, 2, 2)
	h.engine.setFail(errors.New("timeout"))

	report, err := indexer.Reindex(ctx, ReindexOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Failed)

	entries := logs.FilterMessageSnippet("记录脏文档失败").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "redis: connection refused")
	assert.Contains(t, entries[0].Message, fmt.Sprintf("documentID: %d", doc.ID))
}

func TestRepairDirty_SyncsOnlyDirtyDocuments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.engine.setFail(errors.New("connection refused"))
	kept := h.upload(t, "Memo", "rapat")
	gone := h.upload(t, "Draft", "coretan")
	require.NoError(t, h.svc.Delete(ctx, h.actor, gone.ID))
	h.engine.setFail(nil)

	// gone 的旧条目仍在索引中
	require.NoError(t, h.engine.Upsert(ctx, model.SearchIndexEntry{ID: gone.ID}))
	// 不在脏集合里的条目不会被修复触碰
	require.NoError(t, h.engine.Upsert(ctx, model.SearchIndexEntry{ID: 999, Title: "untouched"}))

	dirty, err := h.indexer.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{kept.ID, gone.ID}, dirty)

	report, err := h.indexer.RepairDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Indexed)
	assert.Equal(t, int64(1), report.Removed)
	assert.Zero(t, report.Failed)

	snapshot := h.engine.snapshot()
	assert.Contains(t, snapshot, kept.ID)
	assert.NotContains(t, snapshot, gone.ID)
	assert.Equal(t, "untouched", snapshot[999].Title)

	dirty, err = h.indexer.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestIndex_SuccessClearsDirtyMark(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.engine.setFail(errors.New("connection refused"))
	doc := h.upload(t, "Memo", "rapat")
	h.engine.setFail(nil)

	_, err := h.svc.Edit(ctx, h.actor, doc.ID, EditInput{Title: strPtr("Memo rapat")})
	require.NoError(t, err)

	dirty, err := h.indexer.DirtyIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
	assert.Equal(t, "Memo rapat", h.engine.snapshot()[doc.ID].Title)
}

func TestReindex_WithoutEngine(t *testing.T) {
	h := newHarness(t)
	indexer := NewIndexService(nil, h.docs, nil, nil, 0, 0, 0)

	_, err := indexer.Reindex(context.Background(), ReindexOptions{})
	assert.Error(t, err)

	indexer.Index(context.Background(), &model.Document{ID: 5})
	dirty, err := indexer.DirtyIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, dirty)
}
