package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler 报告服务与记录库的连通性。搜索引擎不参与健康判断。
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			respond(c, http.StatusServiceUnavailable, "database unavailable", nil)
			return
		}
	}
	ok(c, gin.H{"status": "ok"})
}
