// Package bootstrap 按依赖顺序组装服务进程与命令行工具共用的组件。
package bootstrap

import (
	"context"
	"fmt"

	"edu-archive-go/internal/config"
	"edu-archive-go/internal/pipeline"
	"edu-archive-go/internal/repository"
	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/database"
	"edu-archive-go/pkg/es"
	"edu-archive-go/pkg/extract"
	"edu-archive-go/pkg/kafka"
	"edu-archive-go/pkg/log"
	"edu-archive-go/pkg/metrics"
	"edu-archive-go/pkg/storage"
	"edu-archive-go/pkg/tagging"
	"edu-archive-go/pkg/tika"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// App 持有组装完成的仓储与服务。
type App struct {
	Config  config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Files   *storage.Locator
	Metrics *metrics.Metrics

	Categories repository.CategoryRepository
	Periods    repository.PeriodRepository
	Tags       repository.TagRepository
	Documents  repository.DocumentRepository

	Indexer     service.IndexService
	Audit       service.AuditService
	DocumentSvc service.DocumentService
	SearchSvc   service.SearchService
	AdminSvc    service.AdminService

	auditProducer *kafka.AuditProducer
}

// Build 初始化数据库、存储、提取链路、搜索引擎与各个服务。
// 搜索引擎不可用时仍然返回可用的 App：索引写入会被记为 dirty，搜索返回不可用。
func Build(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*App, error) {
	app := &App{Config: cfg}

	// 1. 数据库与 Redis
	db, err := database.NewMySQL(cfg.Database.MySQL)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	app.DB = db

	rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
	if err != nil {
		// Redis 只承载索引 dirty 集合，不可用时退化为进程内集合
		log.Warnf("[Bootstrap] Redis 不可用，dirty 集合仅保存在进程内: %v", err)
		rdb = nil
	}
	app.Redis = rdb

	// 2. 文件存储
	files, err := storage.NewLocator(cfg.Storage.Root)
	if err != nil {
		return nil, err
	}
	app.Files = files

	// 3. 指标
	if reg != nil {
		m, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("注册指标失败: %w", err)
		}
		app.Metrics = m
	}

	// 4. 提取与打标签管道
	tikaClient := tika.NewClient(cfg.Tika, cfg.Extraction.OCR)
	extractor := extract.NewExtractor(
		cfg.Extraction,
		extract.NewRecognizer(cfg.Extraction.OCR, tikaClient),
		extract.NewPdftoppmRenderer(cfg.Extraction.PDFRender),
	).WithParser(tikaClient)
	processor := pipeline.NewProcessor(extractor, tagging.NewSubstringMatcher())

	// 5. 仓储
	app.Categories = repository.NewCategoryRepository(db)
	app.Periods = repository.NewPeriodRepository(db)
	app.Tags = repository.NewTagRepository(db)
	app.Documents = repository.NewDocumentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	indexState := repository.NewIndexStateRepository(rdb)

	// 6. 搜索引擎，失败不阻止启动
	var engine service.SearchEngine
	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Errorf("[Bootstrap] Elasticsearch 客户端创建失败，索引功能降级: %v", err)
	} else {
		if err := esClient.EnsureIndex(ctx); err != nil {
			log.Errorf("[Bootstrap] 确认索引 '%s' 失败，写入将被记为 dirty: %v", esClient.IndexName(), err)
		}
		engine = esClient
	}

	// 7. 审计
	var publisher service.AuditPublisher
	if cfg.Kafka.Enabled {
		app.auditProducer = kafka.NewAuditProducer(cfg.Kafka)
		publisher = app.auditProducer
	}
	app.Audit = service.NewAuditService(cfg.Audit.Enabled, auditRepo, publisher)

	// 8. 服务
	app.Indexer = service.NewIndexService(engine, app.Documents, indexState, app.Metrics,
		cfg.Elasticsearch.Timeout, cfg.Reindex.Workers, cfg.Reindex.BatchSize)
	app.DocumentSvc = service.NewDocumentService(service.DocumentServiceDeps{
		Documents:      app.Documents,
		Categories:     app.Categories,
		Periods:        app.Periods,
		Tags:           app.Tags,
		Files:          files,
		Processor:      processor,
		Indexer:        app.Indexer,
		Audit:          app.Audit,
		Metrics:        app.Metrics,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		PageSize:       cfg.Search.ResultsPerPage,
	})
	app.SearchSvc = service.NewSearchService(engine, app.Documents, app.Categories, app.Periods, app.Tags,
		cfg.Search.ResultsPerPage)
	app.AdminSvc = service.NewAdminService(app.Categories, app.Periods, app.Tags, app.Documents)

	return app, nil
}

// Close 释放外部连接。
func (a *App) Close() {
	if a.auditProducer != nil {
		if err := a.auditProducer.Close(); err != nil {
			log.Warnf("[Bootstrap] 关闭 Kafka 生产者失败: %v", err)
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
