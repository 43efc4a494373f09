package middleware

import (
	"strconv"

	"edu-archive-go/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 按路由模板统计请求数，未匹配的路由记为 "unmatched"。
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.Request(c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
	}
}
