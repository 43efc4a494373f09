package handler

import (
	"net/http"

	"edu-archive-go/internal/middleware"
	"edu-archive-go/internal/service"
	"edu-archive-go/pkg/metrics"
	"edu-archive-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// RouterDeps 是注册路由所需的全部依赖。
type RouterDeps struct {
	Mode            string
	JWT             *token.JWTManager
	Documents       service.DocumentService
	Search          service.SearchService
	Admin           service.AdminService
	DB              *gorm.DB
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	MaxUploadBytes  int64
	MultipartMemory int64
}

// NewRouter 创建 Gin 引擎并注册所有路由。
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	if deps.MultipartMemory > 0 {
		r.MaxMultipartMemory = deps.MultipartMemory
	}
	r.Use(middleware.RequestLogger(), middleware.Metrics(deps.Metrics), gin.Recovery())

	r.GET("/healthz", NewHealthHandler(deps.DB).Healthz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	documentHandler := NewDocumentHandler(deps.Documents, deps.MaxUploadBytes)
	searchHandler := NewSearchHandler(deps.Search)
	adminHandler := NewAdminHandler(deps.Admin)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(deps.JWT))
	{
		documents := apiV1.Group("/documents")
		{
			documents.POST("", documentHandler.Upload)
			documents.GET("", documentHandler.List)
			documents.GET("/trash", documentHandler.ListTrash)
			documents.GET("/:id", documentHandler.Get)
			documents.GET("/:id/download", documentHandler.Download)
			documents.PUT("/:id", documentHandler.Update)
			documents.DELETE("/:id", documentHandler.Delete)
			documents.POST("/:id/restore", documentHandler.Restore)
		}

		apiV1.GET("/search", searchHandler.Search)

		admin := apiV1.Group("/admin")
		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin.Use(middleware.AdminAuthMiddleware())
		{
			categories := admin.Group("/categories")
			{
				categories.POST("", adminHandler.CreateCategory)
				categories.GET("", adminHandler.ListCategories)
				categories.GET("/tree", adminHandler.GetCategoryTree)
				categories.PUT("/:id", adminHandler.UpdateCategory)
				categories.DELETE("/:id", adminHandler.DeleteCategory)
			}
			periods := admin.Group("/periods")
			{
				periods.POST("", adminHandler.CreatePeriod)
				periods.GET("", adminHandler.ListPeriods)
				periods.POST("/:id/toggle", adminHandler.TogglePeriod)
				periods.DELETE("/:id", adminHandler.DeletePeriod)
			}
			tags := admin.Group("/tags")
			{
				tags.POST("", adminHandler.CreateTag)
				tags.GET("", adminHandler.ListTags)
				tags.PUT("/:id", adminHandler.UpdateTag)
				tags.DELETE("/:id", adminHandler.DeleteTag)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respond(c, http.StatusNotFound, "not found", nil)
	})
	return r
}
