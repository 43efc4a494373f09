package service

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"edu-archive-go/internal/config"
	"edu-archive-go/internal/model"
	"edu-archive-go/internal/pipeline"
	"edu-archive-go/internal/repository"
	"edu-archive-go/pkg/database"
	"edu-archive-go/pkg/extract"
	"edu-archive-go/pkg/storage"
	"edu-archive-go/pkg/tagging"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeEngine 是内存中的搜索引擎。
type fakeEngine struct {
	mu        sync.Mutex
	entries   map[uint]model.SearchIndexEntry
	fail      error
	hits      []model.SearchHit
	lastQuery model.SearchQuery
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{entries: map[uint]model.SearchIndexEntry{}}
}

func (e *fakeEngine) Upsert(_ context.Context, entry model.SearchIndexEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	e.entries[entry.ID] = entry
	return nil
}

func (e *fakeEngine) Delete(_ context.Context, id uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	delete(e.entries, id)
	return nil
}

func (e *fakeEngine) Search(_ context.Context, q model.SearchQuery) (*model.SearchPage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastQuery = q
	if e.fail != nil {
		return nil, e.fail
	}
	return &model.SearchPage{Hits: e.hits, Total: int64(len(e.hits))}, nil
}

func (e *fakeEngine) Purge(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	e.entries = map[uint]model.SearchIndexEntry{}
	return nil
}

func (e *fakeEngine) setFail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

func (e *fakeEngine) snapshot() map[uint]model.SearchIndexEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[uint]model.SearchIndexEntry, len(e.entries))
	for k, v := range e.entries {
		out[k] = v
	}
	return out
}

// fakeAudit 记录收到的审计动作。
type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *fakeAudit) Record(_ context.Context, _ Actor, action string, _ *uint, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *fakeAudit) History(context.Context, uint, int) ([]model.AuditLog, error) {
	return nil, nil
}

func (a *fakeAudit) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.actions...)
}

// faultyDocs 在真实仓库之上注入写入失败与提交失败。
type faultyDocs struct {
	repository.DocumentRepository
	createErr error
	commitErr error
}

func (f *faultyDocs) Create(ctx context.Context, doc *model.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.DocumentRepository.Create(ctx, doc)
}

// Transaction 在 fn 成功之后、提交之前返回 commitErr，模拟搬迁后提交失败。
func (f *faultyDocs) Transaction(ctx context.Context, fn func(tx repository.DocumentRepository) error) error {
	return f.DocumentRepository.Transaction(ctx, func(tx repository.DocumentRepository) error {
		if err := fn(tx); err != nil {
			return err
		}
		return f.commitErr
	})
}

type harness struct {
	db         *gorm.DB
	docs       *faultyDocs
	categories repository.CategoryRepository
	periods    repository.PeriodRepository
	tags       repository.TagRepository
	locator    *storage.Locator
	engine     *fakeEngine
	audit      *fakeAudit
	state      repository.IndexStateRepository
	indexer    IndexService
	deps       DocumentServiceDeps
	svc        DocumentService
	search     SearchService
	finance    model.Category
	letters    model.Category
	period     model.AcademicPeriod
	urgent     model.Tag
	actor      Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "archive.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	locator, err := storage.NewLocator(filepath.Join(dir, "files"))
	require.NoError(t, err)

	h := &harness{
		db:         db,
		docs:       &faultyDocs{DocumentRepository: repository.NewDocumentRepository(db)},
		categories: repository.NewCategoryRepository(db),
		periods:    repository.NewPeriodRepository(db),
		tags:       repository.NewTagRepository(db),
		locator:    locator,
		engine:     newFakeEngine(),
		audit:      &fakeAudit{},
		state:      repository.NewMemoryIndexStateRepository(),
		finance:    model.Category{Name: "Finance", Slug: "finance", IsActive: true},
		letters:    model.Category{Name: "Letters", Slug: "letters", IsActive: true},
		period:     model.AcademicPeriod{YearStart: 2024, YearEnd: 2025, Semester: "Ganjil", IsActive: true},
		urgent:     model.Tag{Name: "Urgent", Color: model.DefaultTagColor},
		actor:      Actor{UserID: 7, Username: "tu-admin", IPAddress: "10.0.0.1"},
	}
	require.NoError(t, db.Create(&h.finance).Error)
	require.NoError(t, db.Create(&h.letters).Error)
	require.NoError(t, db.Create(&h.period).Error)
	require.NoError(t, db.Create(&h.urgent).Error)

	processor := pipeline.NewProcessor(
		extract.NewExtractor(config.ExtractionConfig{}, nil, nil),
		tagging.NewSubstringMatcher(),
	)
	h.indexer = NewIndexService(h.engine, h.docs, h.state, nil, time.Second, 2, 2)
	h.deps = DocumentServiceDeps{
		Documents:      h.docs,
		Categories:     h.categories,
		Periods:        h.periods,
		Tags:           h.tags,
		Files:          h.locator,
		Processor:      processor,
		Indexer:        h.indexer,
		Audit:          h.audit,
		MaxUploadBytes: 1 << 20,
	}
	h.svc = NewDocumentService(h.deps)
	h.search = NewSearchService(h.engine, h.docs, h.categories, h.periods, h.tags, 10)
	return h
}

func (h *harness) upload(t *testing.T, title, content string, tags ...string) *model.Document {
	t.Helper()
	doc, err := h.svc.Upload(context.Background(), h.actor, UploadInput{
		File:             strings.NewReader(content),
		OriginalFilename: strings.ToLower(strings.ReplaceAll(title, " ", "_")) + ".txt",
		Title:            title,
		CategoryID:       h.finance.ID,
		PeriodID:         h.period.ID,
		Tags:             tags,
	})
	require.NoError(t, err)
	return doc
}

// storedFiles 列出存储根目录下的所有文件。
func (h *harness) storedFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(h.locator.Root(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func tagNames(tags []model.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}
